package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rs/xid"

	"github.com/san-kum/chaosnet/internal/analysis"
	"github.com/san-kum/chaosnet/internal/config"
	"github.com/san-kum/chaosnet/internal/dynamo"
	"github.com/san-kum/chaosnet/internal/experiment"
)

const (
	metadataFile    = "metadata.json"
	statesFile      = "states.csv"
	lyapunovFile    = "lyapunov.csv"
	correlationFile = "correlation.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) BaseDir() string { return s.baseDir }

// RunMetadata is everything needed to reproduce a run, plus its summary
// scalars. Non-finite metrics cannot be encoded as JSON numbers and are kept
// as strings in NonFinite.
type RunMetadata struct {
	ID          string                   `json:"id"`
	Timestamp   time.Time                `json:"timestamp"`
	N           int                      `json:"n"`
	Coupling    float64                  `json:"coupling"`
	Gain        float64                  `json:"gain"`
	Seed        int64                    `json:"seed"`
	RunIndex    int                      `json:"run_index"`
	BurnIn      dynamo.Window            `json:"burn_in"`
	Observe     dynamo.Window            `json:"observe"`
	Solver      dynamo.SolverConfig      `json:"solver"`
	Lyapunov    config.LyapunovConfig    `json:"lyapunov"`
	Correlation config.CorrelationConfig `json:"correlation"`
	Metrics     map[string]float64       `json:"metrics"`
	NonFinite   map[string]string        `json:"non_finite,omitempty"`
	Accepted    int                      `json:"accepted_steps"`
	Rejected    int                      `json:"rejected_steps"`
	ElapsedSec  float64                  `json:"elapsed_s"`
	Error       string                   `json:"error,omitempty"`
}

// Metric returns a metric value whether it was stored as finite or not.
func (m *RunMetadata) Metric(name string) (float64, bool) {
	if v, ok := m.Metrics[name]; ok {
		return v, true
	}
	if s, ok := m.NonFinite[name]; ok {
		v, err := strconv.ParseFloat(s, 64)
		return v, err == nil
	}
	return 0, false
}

// RunKey names the run directory so listings sort by coupling, then run.
func RunKey(coupling float64, runIndex int, id string) string {
	return fmt.Sprintf("sigma%s_run%03d_%s", strconv.FormatFloat(coupling, 'f', -1, 64), runIndex, id)
}

func newMetadata(id string, res *experiment.RunResult) RunMetadata {
	p := res.Params
	meta := RunMetadata{
		ID:          id,
		Timestamp:   time.Now(),
		N:           p.N,
		Coupling:    p.Coupling,
		Gain:        p.Gain,
		Seed:        p.Seed,
		RunIndex:    p.RunIndex,
		BurnIn:      p.BurnIn,
		Observe:     p.Observe,
		Solver:      p.Solver,
		Lyapunov:    p.Lyapunov,
		Correlation: p.Correlation,
		Metrics:     make(map[string]float64, len(res.Metrics)),
		Accepted:    res.Stats.Accepted,
		Rejected:    res.Stats.Rejected,
		ElapsedSec:  res.Elapsed.Seconds(),
	}
	for k, v := range res.Metrics {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			if meta.NonFinite == nil {
				meta.NonFinite = make(map[string]string)
			}
			meta.NonFinite[k] = strconv.FormatFloat(v, 'g', -1, 64)
			continue
		}
		meta.Metrics[k] = v
	}
	if res.Err != nil {
		meta.Error = res.Err.Error()
	}
	return meta
}

// Save writes a run directory and returns the metadata that was written.
// Skipped runs get a metadata file only.
func (s *Store) Save(res *experiment.RunResult) (*RunMetadata, error) {
	id := xid.New().String()
	runDir := filepath.Join(s.baseDir, RunKey(res.Params.Coupling, res.Params.RunIndex, id))
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, err
	}

	meta := newMetadata(id, res)
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return nil, err
	}

	if res.Trajectory != nil && res.Trajectory.Len() > 0 {
		if err := writeStates(filepath.Join(runDir, statesFile), res.Trajectory); err != nil {
			return nil, err
		}
	}
	if res.Lyapunov != nil {
		l := res.Lyapunov
		if err := writeColumns(filepath.Join(runDir, lyapunovFile),
			[]string{"time", "exponent", "separation"}, l.Times, l.Exponents, l.Separation); err != nil {
			return nil, err
		}
	}
	if len(res.Correlation) > 0 {
		lags := analysis.Lags((len(res.Correlation)+1)/2, res.Params.Observe.Dt)
		if err := writeColumns(filepath.Join(runDir, correlationFile),
			[]string{"lag", "correlation"}, lags, res.Correlation); err != nil {
			return nil, err
		}
	}

	return &meta, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeStates(path string, traj *dynamo.Trajectory) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"time"}
	for i := 0; i < traj.Dim(); i++ {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	row := make([]string, traj.Dim()+1)
	for i, x := range traj.States {
		row[0] = formatFloat(traj.Times[i])
		for j, val := range x {
			row[j+1] = formatFloat(val)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeColumns(path string, header []string, cols ...[]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	row := make([]string, len(cols))
	for i := range cols[0] {
		for j, c := range cols {
			row[j] = formatFloat(c[i])
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the metadata of every run, ordered by coupling then run index.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := readMetadata(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Coupling != runs[j].Coupling {
			return runs[i].Coupling < runs[j].Coupling
		}
		return runs[i].RunIndex < runs[j].RunIndex
	})
	return runs, nil
}

// Dir resolves a run ID to its directory.
func (s *Store) Dir(runID string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(s.baseDir, "*_"+runID))
	if err != nil {
		return "", err
	}
	if len(matches) != 1 {
		return "", fmt.Errorf("run %q: %w", runID, os.ErrNotExist)
	}
	return matches[0], nil
}

func readMetadata(dir string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	dir, err := s.Dir(runID)
	if err != nil {
		return nil, err
	}
	return readMetadata(dir)
}

// LoadTrajectory reads states.csv back into a trajectory.
func (s *Store) LoadTrajectory(runID string) (*dynamo.Trajectory, error) {
	cols, err := s.readColumns(runID, statesFile)
	if err != nil {
		return nil, err
	}
	traj := dynamo.NewTrajectory(len(cols))
	for _, rec := range cols {
		traj.Append(rec[0], dynamo.State(rec[1:]))
	}
	return traj, nil
}

// LoadLyapunov returns the sample times and local exponents.
func (s *Store) LoadLyapunov(runID string) ([]float64, []float64, error) {
	return s.loadPair(runID, lyapunovFile)
}

// LoadCorrelation returns the lag axis and the normalized correlation.
func (s *Store) LoadCorrelation(runID string) ([]float64, []float64, error) {
	return s.loadPair(runID, correlationFile)
}

func (s *Store) loadPair(runID, name string) ([]float64, []float64, error) {
	rows, err := s.readColumns(runID, name)
	if err != nil {
		return nil, nil, err
	}
	xs := make([]float64, 0, len(rows))
	ys := make([]float64, 0, len(rows))
	for _, r := range rows {
		if len(r) < 2 {
			continue
		}
		xs = append(xs, r[0])
		ys = append(ys, r[1])
	}
	return xs, ys, nil
}

func (s *Store) readColumns(runID, name string) ([][]float64, error) {
	dir, err := s.Dir(runID)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return [][]float64{}, nil
	}

	rows := make([][]float64, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		row := make([]float64, len(records[i]))
		for j, field := range records[i] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", name, i+1, err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

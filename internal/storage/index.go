package storage

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	// Pure-Go SQLite driver, registered as "sqlite".
	_ "github.com/glebarez/go-sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id               TEXT PRIMARY KEY,
	coupling         REAL NOT NULL,
	run_index        INTEGER NOT NULL,
	n                INTEGER NOT NULL,
	gain             REAL NOT NULL,
	seed             INTEGER NOT NULL,
	created          TEXT NOT NULL,
	lyapunov         REAL,
	correlation_time REAL,
	rms_activity     REAL,
	non_finite       TEXT,
	error            TEXT
);
CREATE INDEX IF NOT EXISTS runs_coupling ON runs (coupling, run_index);`

// Index mirrors run metadata into SQLite for listing and querying.
type Index struct {
	db *sql.DB
}

// IndexEntry is one row of the index. A metric that was not computed is NaN
// and absent from NonFinite; a metric that came out NaN or infinite holds that
// value and is listed in NonFinite with its text form.
type IndexEntry struct {
	ID              string
	Coupling        float64
	RunIndex        int
	N               int
	Gain            float64
	Seed            int64
	Created         time.Time
	Lyapunov        float64
	CorrelationTime float64
	RMSActivity     float64
	NonFinite       map[string]string
	Error           string
}

func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index schema: %w", err)
	}
	if err := addNonFiniteColumn(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate index schema: %w", err)
	}
	return &Index{db: db}, nil
}

// addNonFiniteColumn upgrades index files created before non_finite existed.
func addNonFiniteColumn(db *sql.DB) error {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('runs') WHERE name = 'non_finite'`).Scan(&n)
	if err != nil || n > 0 {
		return err
	}
	_, err = db.Exec(`ALTER TABLE runs ADD COLUMN non_finite TEXT`)
	return err
}

// encodeNonFinite packs name=value pairs in name order; empty means none.
func encodeNonFinite(m map[string]string) string {
	pairs := make([]string, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func decodeNonFinite(s string) map[string]string {
	if s == "" {
		return nil
	}
	m := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		if k, v, ok := strings.Cut(pair, "="); ok {
			m[k] = v
		}
	}
	return m
}

func (ix *Index) Close() error {
	return ix.db.Close()
}

func nullable(v float64, ok bool) sql.NullFloat64 {
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func (ix *Index) Add(meta *RunMetadata) error {
	lyap, lyapOK := meta.Metrics["lyapunov"]
	tau, tauOK := meta.Metrics["correlation_time"]
	rms, rmsOK := meta.Metrics["rms_activity"]

	_, err := ix.db.Exec(`INSERT OR REPLACE INTO runs
		(id, coupling, run_index, n, gain, seed, created, lyapunov, correlation_time, rms_activity, non_finite, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Coupling, meta.RunIndex, meta.N, meta.Gain, meta.Seed,
		meta.Timestamp.UTC().Format(time.RFC3339Nano),
		nullable(lyap, lyapOK), nullable(tau, tauOK), nullable(rms, rmsOK),
		encodeNonFinite(meta.NonFinite), meta.Error)
	return err
}

// Rebuild re-indexes every run found in the store.
func (ix *Index) Rebuild(st *Store) (int, error) {
	runs, err := st.List()
	if err != nil {
		return 0, err
	}
	for i := range runs {
		if err := ix.Add(&runs[i]); err != nil {
			return i, err
		}
	}
	return len(runs), nil
}

func (ix *Index) All() ([]IndexEntry, error) {
	return ix.query(`SELECT id, coupling, run_index, n, gain, seed, created,
		lyapunov, correlation_time, rms_activity, non_finite, error
		FROM runs ORDER BY coupling, run_index, created`)
}

// BySigma returns the runs whose coupling is within tol of sigma.
func (ix *Index) BySigma(sigma, tol float64) ([]IndexEntry, error) {
	return ix.query(`SELECT id, coupling, run_index, n, gain, seed, created,
		lyapunov, correlation_time, rms_activity, non_finite, error
		FROM runs WHERE coupling BETWEEN ? AND ? ORDER BY run_index, created`,
		sigma-tol, sigma+tol)
}

func (ix *Index) query(q string, args ...any) ([]IndexEntry, error) {
	rows, err := ix.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]IndexEntry, 0)
	for rows.Next() {
		var (
			e              IndexEntry
			created        string
			lyap, tau, rms     sql.NullFloat64
			nonFinite, errText sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Coupling, &e.RunIndex, &e.N, &e.Gain, &e.Seed, &created,
			&lyap, &tau, &rms, &nonFinite, &errText); err != nil {
			return nil, err
		}
		e.Created, _ = time.Parse(time.RFC3339Nano, created)
		e.NonFinite = decodeNonFinite(nonFinite.String)
		e.Lyapunov = e.metric("lyapunov", lyap)
		e.CorrelationTime = e.metric("correlation_time", tau)
		e.RMSActivity = e.metric("rms_activity", rms)
		e.Error = errText.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// metric resolves a REAL column, falling back to the recorded non-finite
// value and then to NaN.
func (e *IndexEntry) metric(name string, v sql.NullFloat64) float64 {
	if v.Valid {
		return v.Float64
	}
	if s, ok := e.NonFinite[name]; ok {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return math.NaN()
}

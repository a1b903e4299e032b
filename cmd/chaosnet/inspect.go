package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/chaosnet/internal/analysis"
	"github.com/san-kum/chaosnet/internal/config"
	"github.com/san-kum/chaosnet/internal/export"
	"github.com/san-kum/chaosnet/internal/storage"
	"github.com/san-kum/chaosnet/internal/viz"
)

// maxPlotUnits caps how many unit traces share one chart.
const maxPlotUnits = 4

func formatMetric(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.4g", v)
}

// indexCell shows a non-finite metric by its value and a missing one as "-".
func indexCell(e storage.IndexEntry, name string, v float64) string {
	if s, ok := e.NonFinite[name]; ok {
		return s
	}
	return formatMetric(v)
}

func listRuns(cmd *cobra.Command, args []string) error {
	dir := resolveDataDir()
	ix, err := openIndex(dir)
	if err != nil {
		return err
	}

	var entries []storage.IndexEntry
	if sigmaFilter >= 0 {
		entries, err = ix.BySigma(sigmaFilter, sigmaTol)
	} else {
		entries, err = ix.All()
	}
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no runs found (try `chaosnet reindex` if runs were copied in)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSIGMA\tRUN\tN\tGAIN\tLAMBDA\tTAU\tRMS\tCREATED\tERROR")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%g\t%d\t%d\t%.4g\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Coupling, e.RunIndex, e.N, e.Gain,
			indexCell(e, "lyapunov", e.Lyapunov),
			indexCell(e, "correlation_time", e.CorrelationTime),
			indexCell(e, "rms_activity", e.RMSActivity),
			e.Created.Format(time.DateTime), e.Error)
	}
	return w.Flush()
}

func plotLyapunov(cmd *cobra.Command, args []string) error {
	st := storage.New(resolveDataDir())
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	times, exps, err := st.LoadLyapunov(args[0])
	if err != nil {
		return fmt.Errorf("no lyapunov estimate for %s: %w", args[0], err)
	}
	fmt.Println(viz.PlotLyapunov(exps, meta.Coupling))
	if len(times) > 0 {
		fmt.Printf("%s %s at t=%g\n", viz.MetricLabel.Render("final exponent"),
			viz.MetricValue.Render(fmt.Sprintf("%.6g", exps[len(exps)-1])), times[len(times)-1])
	}
	return nil
}

func plotCorrelation(cmd *cobra.Command, args []string) error {
	st := storage.New(resolveDataDir())
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	_, corr, err := st.LoadCorrelation(args[0])
	if err != nil {
		return fmt.Errorf("no autocorrelation for %s: %w", args[0], err)
	}
	fmt.Println(viz.PlotCorrelation(corr, meta.Coupling))
	tau, _ := meta.Metric("correlation_time")
	fmt.Printf("%s %s (%s mode)\n", viz.MetricLabel.Render("correlation time"),
		viz.MetricValue.Render(formatMetric(tau)), meta.Correlation.Mode)
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(resolveDataDir())
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	traj, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	if traj.Len() == 0 {
		return fmt.Errorf("run %s has no stored states", meta.ID)
	}
	k := min(maxPlotUnits, traj.Dim())
	series := make([][]float64, k)
	for i := range series {
		series[i] = traj.Unit(i)
	}
	fmt.Println(viz.PlotUnits(series, fmt.Sprintf("units 0..%d (sigma=%g, run %d)", k-1, meta.Coupling, meta.RunIndex)))
	fmt.Println(viz.PlotSeries(traj.Norms(), "|x|"))
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	st := storage.New(resolveDataDir())
	traj, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	portrait, err := analysis.PhasePortrait(traj, xAxis, yAxis)
	if err != nil {
		return err
	}
	canvas := viz.NewCanvas(60, 20)
	canvas.PlotPoints(portrait.Points)
	fmt.Println(viz.BoxWithTitle(fmt.Sprintf("x%d vs x%d", yAxis, xAxis), canvas.String(), 64))
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(resolveDataDir())
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	traj, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	if corrUnit < 0 || corrUnit >= traj.Dim() {
		return fmt.Errorf("unit %d outside [0, %d)", corrUnit, traj.Dim())
	}
	x := traj.Unit(corrUnit)
	dt := meta.Observe.Dt

	fmt.Println(viz.HeaderStyle.Render(fmt.Sprintf("%s  sigma=%g run=%d unit=%d", meta.ID, meta.Coupling, meta.RunIndex, corrUnit)))
	fmt.Println(viz.PlotSeries(analysis.PowerSpectrum(x), "power spectrum"))
	fmt.Printf("%s %s\n", viz.MetricLabel.Render("dominant frequency"),
		viz.MetricValue.Render(fmt.Sprintf("%.4g", analysis.DominantFrequency(x, dt))))

	corr, err := analysis.SingleUnit(traj, corrUnit)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", viz.MetricLabel.Render("correlation time"),
		viz.MetricValue.Render(formatMetric(analysis.CorrelationTime(corr, dt))))
	maxima := analysis.LocalMaxima(x)
	fmt.Printf("%s %d distinct\n", viz.MetricLabel.Render("local maxima"), len(maxima))

	parts := make([]string, 0, len(meta.Metrics)+len(meta.NonFinite))
	for name, v := range meta.Metrics {
		parts = append(parts, fmt.Sprintf("%s=%.4g", name, v))
	}
	for name, v := range meta.NonFinite {
		parts = append(parts, name+"="+v)
	}
	sort.Strings(parts)
	fmt.Println(viz.Subtle.Render(strings.Join(parts, "  ")))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(resolveDataDir())
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	switch format {
	case "json":
		traj, err := st.LoadTrajectory(args[0])
		if err != nil {
			return err
		}
		if outDir == "" {
			return storage.ExportJSON(os.Stdout, meta, traj)
		}
		if err := storage.ExportJSONFile(outDir, meta, traj); err != nil {
			return err
		}
		fmt.Println("exported to", outDir)
		return nil
	case "svg":
		dir := outDir
		if dir == "" {
			dir = filepath.Join(st.BaseDir(), "svg", meta.ID)
		}
		sink := export.NewSVGSink(dir)
		var written []string

		if traj, err := st.LoadTrajectory(args[0]); err == nil {
			portrait, err := analysis.PhasePortrait(traj, xAxis, yAxis)
			if err != nil {
				return err
			}
			path, err := sink.WritePhase("phase.svg", portrait)
			if err != nil {
				return err
			}
			written = append(written, path)
		}
		if times, exps, err := st.LoadLyapunov(args[0]); err == nil {
			if path, err := sink.WriteSeries("lyapunov.svg", times, exps); err == nil {
				written = append(written, path)
			}
		}
		if lags, corr, err := st.LoadCorrelation(args[0]); err == nil {
			if path, err := sink.WriteSeries("correlation.svg", lags, corr); err == nil {
				written = append(written, path)
			}
		}
		if len(written) == 0 {
			return fmt.Errorf("run %s has no data to plot", meta.ID)
		}
		for _, p := range written {
			fmt.Println("wrote", p)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s (use json or svg)", format)
	}
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tN\tSIGMA\tGAIN\tSEED\tRUNS\tBURN-IN\tOBSERVE\tCORR")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%d\t%v\t%.4g\t%d\t%d\t%g@%g\t%g@%g\t%s\n",
			name, p.N, p.Couplings, p.Gain, p.Seed, p.Runs,
			p.BurnIn.Duration(), p.BurnIn.Dt,
			p.Observe.Duration(), p.Observe.Dt,
			p.Correlation.Mode)
	}
	return w.Flush()
}

func reindex(cmd *cobra.Command, args []string) error {
	dir := resolveDataDir()
	ix, err := openIndex(dir)
	if err != nil {
		return err
	}
	n, err := ix.Rebuild(storage.New(dir))
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d runs from %s\n", n, dir)
	return nil
}

// dumpConfig prints the effective configuration in the config file format.
func dumpConfig(cfg *config.Config) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}

package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/chaosnet/internal/analysis"
	"github.com/san-kum/chaosnet/internal/config"
	"github.com/san-kum/chaosnet/internal/dynamo"
	"github.com/san-kum/chaosnet/internal/experiment"
	"github.com/san-kum/chaosnet/internal/storage"
	"github.com/san-kum/chaosnet/internal/viz"
)

// batch is the outcome of one invocation of the runner.
type batch struct {
	cfg     *config.Config
	results []*experiment.RunResult
	saved   map[*experiment.RunResult]*storage.RunMetadata
}

func runSimulations(cmd *cobra.Command, args []string) error {
	b, err := execute(cmd, false)
	if b != nil {
		printSummary(b)
	}
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	b, err := execute(cmd, true)
	if b == nil {
		return err
	}
	printSummary(b)
	if err != nil {
		return err
	}
	if len(b.cfg.Couplings) < 2 {
		fmt.Println(viz.Subtle.Render("a sweep needs at least two coupling strengths"))
		return nil
	}

	// run 0 of every coupling, all on the same base draw
	var params []float64
	var trajs []*dynamo.Trajectory
	for _, res := range b.results {
		if res == nil || res.Skipped() || res.Params.RunIndex != 0 || res.Trajectory == nil {
			continue
		}
		params = append(params, res.Params.Coupling)
		trajs = append(trajs, res.Trajectory)
	}
	if len(params) > 0 {
		points, err := analysis.Bifurcation(params, trajs, b.cfg.Correlation.Unit)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(viz.TitleStyle.Render(fmt.Sprintf("local maxima of unit %d vs sigma", b.cfg.Correlation.Unit)))
		fmt.Print(analysis.BifurcationToASCII(points, 72, 20))
	}

	curves := sweepCurves(b.results)
	if len(curves.sigmas) > 1 {
		span := fmt.Sprintf("sigma %g..%g", curves.sigmas[0], curves.sigmas[len(curves.sigmas)-1])
		fmt.Println()
		fmt.Println(viz.PlotSeries(curves.taus, "mean correlation time, "+span))
		if b.cfg.Lyapunov.Enabled {
			fmt.Println()
			fmt.Println(viz.PlotSeries(curves.lambdas, "mean final local lyapunov exponent, "+span))
		}
	}
	if curves.lambdaExcluded > 0 || curves.tauExcluded > 0 {
		fmt.Println(viz.StatusSkipped.Render(fmt.Sprintf(
			"excluded from means: %d non-finite exponents, %d runs that never decorrelated",
			curves.lambdaExcluded, curves.tauExcluded)))
	}
	return nil
}

// sweepSummary holds per-coupling means over runs, in ascending coupling order.
type sweepSummary struct {
	sigmas, lambdas, taus []float64
	// runs whose final exponent or correlation time was not finite
	lambdaExcluded, tauExcluded int
}

// sweepCurves averages correlation time and final exponent over runs for
// each coupling. Non-finite values are counted, not averaged.
func sweepCurves(results []*experiment.RunResult) sweepSummary {
	type acc struct {
		lambda, tau float64
		nl, nt      int
	}
	var c sweepSummary
	bySigma := make(map[float64]*acc)
	for _, res := range results {
		if res == nil || res.Skipped() {
			continue
		}
		a := bySigma[res.Params.Coupling]
		if a == nil {
			a = &acc{}
			bySigma[res.Params.Coupling] = a
		}
		if v, ok := res.Metrics["lyapunov"]; ok {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				c.lambdaExcluded++
			} else {
				a.lambda += v
				a.nl++
			}
		}
		if math.IsNaN(res.CorrelationTime) || math.IsInf(res.CorrelationTime, 0) {
			c.tauExcluded++
		} else {
			a.tau += res.CorrelationTime
			a.nt++
		}
	}
	for s := range bySigma {
		c.sigmas = append(c.sigmas, s)
	}
	sort.Float64s(c.sigmas)
	for _, s := range c.sigmas {
		a := bySigma[s]
		c.lambdas = append(c.lambdas, mean(a.lambda, a.nl))
		c.taus = append(c.taus, mean(a.tau, a.nt))
	}
	return c
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// execute plans the runs, runs them on the worker pool and persists each
// result to the store and the index as it completes.
func execute(cmd *cobra.Command, keepTrajectories bool) (*batch, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if saveConfig != "" {
		if err := config.Save(saveConfig, cfg); err != nil {
			return nil, fmt.Errorf("failed to save config: %w", err)
		}
	}
	if dryRun {
		return nil, dumpConfig(cfg)
	}
	params, err := experiment.Plan(cfg)
	if err != nil {
		return nil, err
	}

	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}
	ix, err := openIndex(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	runLogger := logger
	var prog *tea.Program
	if useTUI {
		f, err := os.OpenFile(filepath.Join(cfg.DataDir, "chaosnet.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		runLogger = log.New(f, "chaosnet: ", log.LstdFlags)
		prog = tea.NewProgram(viz.NewProgress(len(params)))
	} else {
		runLogger.Printf("%d runs: n=%d sigma=%v runs=%d seed=%d -> %s",
			len(params), cfg.N, cfg.Couplings, cfg.Runs, cfg.Seed, cfg.DataDir)
	}

	b := &batch{cfg: cfg, saved: make(map[*experiment.RunResult]*storage.RunMetadata)}
	var mu sync.Mutex

	runner := experiment.NewRunner(cfg.Workers, runLogger)
	runner.DropTrajectories = !keepTrajectories
	runner.OnResult = func(res *experiment.RunResult) {
		mu.Lock()
		meta, err := st.Save(res)
		if err == nil {
			b.saved[res] = meta
			err = ix.Add(meta)
		}
		mu.Unlock()
		if err != nil {
			runLogger.Printf("persist sigma=%g run=%d: %v", res.Params.Coupling, res.Params.RunIndex, err)
		}
		if prog != nil {
			prog.Send(doneMsg(res))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if prog == nil {
		b.results, err = runner.RunAll(ctx, params)
		return b, err
	}

	done := make(chan error, 1)
	go func() {
		var runErr error
		b.results, runErr = runner.RunAll(ctx, params)
		prog.Send(viz.BatchDoneMsg{Err: runErr})
		done <- runErr
	}()
	if _, err := prog.Run(); err != nil {
		stop()
		<-done
		return b, fmt.Errorf("progress view: %w", err)
	}
	return b, <-done
}

func doneMsg(res *experiment.RunResult) viz.RunDoneMsg {
	lambda := math.NaN()
	if v, ok := res.Metrics["lyapunov"]; ok {
		lambda = v
	}
	return viz.RunDoneMsg{
		Coupling: res.Params.Coupling,
		RunIndex: res.Params.RunIndex,
		Lyapunov: lambda,
		Tau:      res.CorrelationTime,
		Elapsed:  res.Elapsed,
		Err:      res.Err,
	}
}

func printSummary(b *batch) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSIGMA\tRUN\tLAMBDA\tTAU\tRMS\tSTEPS\tSTATUS")
	for _, res := range b.results {
		if res == nil {
			continue
		}
		id := "-"
		if meta := b.saved[res]; meta != nil {
			id = meta.ID
		}
		status := "ok"
		if res.Skipped() {
			status = "skipped"
		}
		lambda := "-"
		if v, ok := res.Metrics["lyapunov"]; ok {
			lambda = fmt.Sprintf("%.4f", v)
		}
		fmt.Fprintf(w, "%s\t%g\t%d\t%s\t%.4g\t%.4g\t%d\t%s\n",
			id, res.Params.Coupling, res.Params.RunIndex, lambda,
			res.CorrelationTime, res.Metrics["rms_activity"], res.Stats.Accepted, status)
	}
	w.Flush()
}

package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/san-kum/chaosnet/internal/config"
	"github.com/san-kum/chaosnet/internal/storage"
)

var (
	dataDir    string
	configFile string
	preset     string
	envFile    string
	n          int
	sigmas     []float64
	gain       float64
	seed       int64
	runs       int
	workers    int
	lyapunov   bool
	corrMode   string
	corrUnit   int
	method     string
	useTUI     bool
	dryRun     bool
	saveConfig string
	// list filters
	sigmaFilter float64
	sigmaTol    float64
	// phase plot axes
	xAxis int
	yAxis int
	// export
	format string
	outDir string
)

var logger = log.New(os.Stderr, "chaosnet: ", log.LstdFlags)

func main() {
	rootCmd := &cobra.Command{
		Use:           "chaosnet",
		Short:         "random recurrent network chaos simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadEnv(envFile)
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default from config, $"+config.EnvDataDir+" or ./runs)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file with overrides")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "simulate every (coupling, run) pair and store the results",
		Args:  cobra.NoArgs,
		RunE:  runSimulations,
	}
	addRunFlags(runCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run a coupling sweep and print the transition to chaos",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addRunFlags(sweepCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}
	listCmd.Flags().Float64Var(&sigmaFilter, "sigma", -1, "only runs with this coupling strength")
	listCmd.Flags().Float64Var(&sigmaTol, "tol", 1e-9, "coupling match tolerance")

	lyapunovCmd := &cobra.Command{
		Use:   "lyapunov [run_id]",
		Short: "plot the local lyapunov exponent of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotLyapunov,
	}

	corrCmd := &cobra.Command{
		Use:   "corr [run_id]",
		Short: "plot the autocorrelation of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotCorrelation,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot unit activity of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase portrait of two units",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().IntVar(&xAxis, "x-axis", 0, "unit for x-axis")
	phaseCmd.Flags().IntVar(&yAxis, "y-axis", 1, "unit for y-axis")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of one unit",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&corrUnit, "unit", 0, "unit to analyze")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as json or svg plots",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&format, "format", "json", "json or svg")
	exportCmd.Flags().StringVar(&outDir, "out", "", "output file (json) or directory (svg); json defaults to stdout")
	exportCmd.Flags().IntVar(&xAxis, "x-axis", 0, "unit for phase x-axis")
	exportCmd.Flags().IntVar(&yAxis, "y-axis", 1, "unit for phase y-axis")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	reindexCmd := &cobra.Command{
		Use:   "reindex",
		Short: "rebuild the sqlite index from run directories",
		Args:  cobra.NoArgs,
		RunE:  reindex,
	}

	rootCmd.AddCommand(runCmd, sweepCmd, listCmd, lyapunovCmd, corrCmd, plotCmd, phaseCmd, analyzeCmd, exportCmd, presetsCmd, reindexCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml), applied on top of --preset")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().IntVar(&n, "n", config.DefaultN, "number of units")
	cmd.Flags().Float64SliceVar(&sigmas, "sigma", []float64{config.DefaultCoupling}, "coupling strengths")
	cmd.Flags().Float64Var(&gain, "gain", config.DefaultGain, "gain")
	cmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "random seed")
	cmd.Flags().IntVar(&runs, "runs", 1, "independent draws per coupling")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (0 = GOMAXPROCS)")
	cmd.Flags().BoolVar(&lyapunov, "lyapunov", true, "estimate the local lyapunov exponent (--lyapunov=false to skip)")
	cmd.Flags().StringVar(&corrMode, "mode", "", "autocorrelation mode: single or ensemble")
	cmd.Flags().IntVar(&corrUnit, "unit", 0, "unit for single-unit autocorrelation")
	cmd.Flags().StringVar(&method, "method", "", "integration method: rk45 or rk4")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "show a live progress view")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the effective config and exit")
	cmd.Flags().StringVar(&saveConfig, "save-config", "", "write the effective config to this yaml file")
}

// loadConfig layers defaults, preset, config file, environment and flags, in
// that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("n") {
		cfg.N = n
	}
	if flags.Changed("sigma") {
		cfg.Couplings = sigmas
	}
	if flags.Changed("gain") {
		cfg.Gain = gain
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("runs") {
		cfg.Runs = runs
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("lyapunov") {
		cfg.Lyapunov.Enabled = lyapunov
	}
	if flags.Changed("mode") {
		cfg.Correlation.Mode = corrMode
	}
	if flags.Changed("unit") {
		cfg.Correlation.Unit = corrUnit
	}
	if flags.Changed("method") {
		cfg.Solver.Method = method
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, cfg.Validate()
}

// resolveDataDir picks the directory for commands that read stored runs.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if v := os.Getenv(config.EnvDataDir); v != "" {
		return v
	}
	return config.DefaultDataDir
}

func indexPath(dir string) string {
	return filepath.Join(dir, "index.db")
}

// openIndex opens the run index and closes it when the process exits.
func openIndex(dir string) (*storage.Index, error) {
	ix, err := storage.OpenIndex(indexPath(dir))
	if err != nil {
		return nil, err
	}
	atexit.Register(func() {
		if err := ix.Close(); err != nil {
			logger.Printf("closing index: %v", err)
		}
	})
	return ix, nil
}

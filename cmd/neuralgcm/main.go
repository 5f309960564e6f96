package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Oscarrrhhhh/neuralgcm/internal/analysis"
	"github.com/Oscarrrhhhh/neuralgcm/internal/config"
	"github.com/Oscarrrhhhh/neuralgcm/internal/experiment"
	"github.com/Oscarrrhhhh/neuralgcm/internal/grid"
	"github.com/Oscarrrhhhh/neuralgcm/internal/hybrid"
	"github.com/Oscarrrhhhh/neuralgcm/internal/nn"
	"github.com/Oscarrrhhhh/neuralgcm/internal/storage"
	"github.com/Oscarrrhhhh/neuralgcm/internal/train"
	"github.com/Oscarrrhhhh/neuralgcm/internal/tui"
	"github.com/Oscarrrhhhh/neuralgcm/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	core       string
	corrector  string
	dt         float64
	steps      int
	seed       int64
	field      string
	checkpoint string
	exportOut  string
	// Training parameters
	epochs   int
	lr       float64
	eps      float64
	trainOut string
	// Ensemble parameters
	members int
	spread  float64
	// Frame rate for live view
	frameRate int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "neuralgcm",
		Short: "hybrid physics/ML atmospheric forecast engine",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".neuralgcm", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a forecast",
		RunE:  runForecast,
	}
	addForecastFlags(runCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a field mean series",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&field, "field", grid.FieldTemperature, "field name")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&exportOut, "out", "", "write to file instead of stdout")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark the integrator",
		RunE:  benchForecast,
	}
	benchCmd.Flags().StringVar(&preset, "preset", "smallgrid", "preset configuration")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of a field mean series",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&field, "field", grid.FieldTemperature, "field name")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a forecast with live visualization",
		RunE:  runLive,
	}
	addForecastFlags(liveCmd)
	liveCmd.Flags().IntVar(&frameRate, "fps", 10, "frame rate")
	liveCmd.Flags().StringVar(&field, "field", grid.FieldTemperature, "field to chart")

	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "fit the corrector to a reference rollout",
		RunE:  trainCorrector,
	}
	addForecastFlags(trainCmd)
	trainCmd.Flags().IntVar(&epochs, "epochs", 20, "gradient steps")
	trainCmd.Flags().Float64Var(&lr, "lr", 1e-2, "initial step size for the backtracking line search")
	trainCmd.Flags().Float64Var(&eps, "eps", 1e-6, "finite difference step")
	trainCmd.Flags().StringVar(&trainOut, "out", "params.json", "checkpoint output path")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "run an ensemble of perturbed forecasts",
		RunE:  runEnsemble,
	}
	addForecastFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&members, "members", 8, "ensemble members")
	ensembleCmd.Flags().Float64Var(&spread, "spread", 0.5, "initial temperature perturbation stddev (K)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range config.ListPresets() {
				fmt.Println(p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, benchCmd, analyzeCmd, liveCmd, trainCmd, ensembleCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addForecastFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "preset configuration")
	cmd.Flags().StringVar(&core, "core", "", "dynamical core")
	cmd.Flags().StringVar(&corrector, "corrector", "", "corrector network")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep (s)")
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "rollout length")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	cmd.Flags().StringVar(&checkpoint, "params", "", "parameter checkpoint to load")
}

// loadConfig resolves preset, config file, and flags in that order; flags
// that were set explicitly win.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("core") {
		cfg.Core = core
	}
	if cmd.Flags().Changed("corrector") {
		cfg.Corrector = corrector
	}
	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("steps") {
		cfg.Steps = steps
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}

	return cfg, nil
}

func buildExperiment(cmd *cobra.Command) (*experiment.Experiment, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	exp, err := experiment.Build(experiment.NewRegistry(), cfg)
	if err != nil {
		return nil, nil, err
	}

	if checkpoint != "" && cmd.Flags().Changed("params") {
		p, err := nn.LoadCheckpoint(checkpoint)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load checkpoint: %w", err)
		}
		exp.Params = p
	}

	return exp, cfg, nil
}

func runForecast(cmd *cobra.Command, args []string) error {
	exp, cfg, err := buildExperiment(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("running forecast: core=%s corrector=%s steps=%d dt=%.0fs\n",
		cfg.Core, cfg.Corrector, cfg.Steps, cfg.Dt)
	start := time.Now()

	result, err := exp.Run(context.Background())
	if err != nil {
		return err
	}

	elapsed := time.Since(start)

	runID, err := st.Save(storage.RunMetadata{
		Preset:    preset,
		Core:      cfg.Core,
		Corrector: cfg.Corrector,
		Dt:        cfg.Dt,
		Steps:     result.Steps,
		Seed:      cfg.Seed,
		Metrics:   result.Metrics,
	}, result.Trajectory, exp.Params)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.Steps)
	fmt.Println("\nmetrics:")
	for name, val := range result.Metrics {
		fmt.Printf("  %s: %.6f\n", name, val)
	}

	if chart, err := viz.PlotFieldMean(result.Trajectory, grid.FieldTemperature); err == nil {
		fmt.Println()
		fmt.Println(chart)
	}

	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tCORE\tCORRECTOR\tSTEPS\tDT")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.0fs\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Core,
			run.Corrector,
			run.Steps,
			run.Dt,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	means, err := st.LoadMeans(runID)
	if err != nil {
		return err
	}

	series, ok := means[field]
	if !ok {
		return fmt.Errorf("no series for field %q in run %s", field, runID)
	}
	if len(series) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("core: %s, corrector: %s\n", meta.Core, meta.Corrector)
	fmt.Printf("samples: %d\n\n", len(series))

	fmt.Println(viz.PlotSeries(series, "mean "+field))
	fmt.Printf("\ndrift: %.6f\n", analysis.Drift(series))

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if exportOut != "" {
		return st.ExportFile(args[0], exportOut)
	}
	return st.Export(args[0], os.Stdout)
}

func benchForecast(cmd *cobra.Command, args []string) error {
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return fmt.Errorf("unknown preset: %s", preset)
	}

	stepCounts := []int{12, 48, 96}
	dts := []float64{900, 1800, 3600}

	fmt.Printf("benchmarking %s preset (grid %dx%dx%d)\n\n",
		preset, cfg.Grid.Levels, cfg.Grid.Lat, cfg.Grid.Lon)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEPS\tDT\tTIME\tSTEPS/SEC")

	for _, n := range stepCounts {
		for _, step := range dts {
			cfg.Steps = n
			cfg.Dt = step

			exp, err := experiment.Build(experiment.NewRegistry(), cfg)
			if err != nil {
				return err
			}

			start := time.Now()
			result, err := exp.Run(context.Background())
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			stepsPerSec := float64(result.Steps) / elapsed.Seconds()
			fmt.Fprintf(w, "%d\t%.0fs\t%v\t%.0f\n", n, step, elapsed, stepsPerSec)
		}
	}

	return w.Flush()
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	means, err := st.LoadMeans(runID)
	if err != nil {
		return err
	}

	series, ok := means[field]
	if !ok || len(series) == 0 {
		return fmt.Errorf("no data for field %q", field)
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("field: %s\n\n", field)

	fmt.Println(viz.PlotSpectrum(series, "power spectrum ("+field+")"))
	fmt.Println()

	period := analysis.DominantPeriod(series)
	if period > 0 {
		fmt.Printf("dominant period: %.1f steps (%.1f h)\n", period, period*meta.Dt/3600)
	} else {
		fmt.Println("no dominant period")
	}

	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	exp, cfg, err := buildExperiment(cmd)
	if err != nil {
		return err
	}

	m := tui.NewModel(exp.Integrator, exp.Params, exp.Initial, cfg.Dt, cfg.Steps, frameRate, field)
	return tui.Run(m)
}

// trainCorrector fits the MLP corrector so that corrected rollouts match a
// reference trajectory produced by the bare dynamical core. A converged
// corrector therefore learns the zero tendency; the point of the command is
// exercising the full loss/gradient/update path on a real rollout.
func trainCorrector(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Corrector == "zero" {
		cfg.Corrector = "mlp"
	}

	registry := experiment.NewRegistry()
	exp, err := experiment.Build(registry, cfg)
	if err != nil {
		return err
	}

	zeroCorr, zeroParams, err := registry.Corrector("zero", cfg)
	if err != nil {
		return err
	}
	reference, err := (&hybrid.Integrator{
		Core:      exp.Integrator.Core,
		Encoder:   exp.Integrator.Encoder,
		Corrector: zeroCorr,
		Bounds:    exp.Integrator.Bounds,
	}).Rollout(exp.Initial, zeroParams, cfg.Dt, cfg.Steps)
	if err != nil {
		return fmt.Errorf("reference rollout failed: %w", err)
	}

	loss := train.RolloutLoss(exp.Integrator, exp.Initial, cfg.Dt, reference)
	params := exp.Params

	initial, err := loss(params)
	if err != nil {
		return err
	}
	fmt.Printf("training %d parameters for %d epochs (lr=%g)\n", params.NumParams(), epochs, lr)
	fmt.Printf("epoch 0: loss %.6e\n", initial)

	for epoch := 1; epoch <= epochs; epoch++ {
		gradient, err := train.Gradient(loss, params, eps)
		if err != nil {
			return err
		}
		next, l, err := train.BacktrackingStep(loss, params, gradient, lr)
		if err != nil {
			return err
		}
		params = next
		fmt.Printf("epoch %d: loss %.6e\n", epoch, l)
	}

	if err := nn.SaveCheckpoint(trainOut, params); err != nil {
		return err
	}
	fmt.Printf("checkpoint written: %s\n", trainOut)

	return nil
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	exp, cfg, err := buildExperiment(cmd)
	if err != nil {
		return err
	}

	ens := &hybrid.Ensemble{
		Integrator: exp.Integrator,
		Members:    members,
		Spread:     spread,
		SeedStart:  cfg.Seed,
	}

	fmt.Printf("running %d members, spread %.2f K\n", members, spread)
	start := time.Now()

	trajectories, err := ens.Run(context.Background(), exp.Initial, exp.Params, cfg.Dt, cfg.Steps)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n\n", time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MEMBER\tFINAL MEAN T\tDRIFT")
	finals := make([]float64, 0, len(trajectories))
	for m, traj := range trajectories {
		series, err := analysis.FieldMeanSeries(traj, grid.FieldTemperature)
		if err != nil {
			return err
		}
		final := series[len(series)-1]
		finals = append(finals, final)
		fmt.Fprintf(w, "%d\t%.4f K\t%.6f\n", m, final, analysis.Drift(series))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	mean, sd := meanStddev(finals)
	fmt.Printf("\nensemble mean %.4f K, stddev %.4f K\n", mean, sd)

	return nil
}

func meanStddev(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	variance := sq / float64(len(xs))
	return mean, math.Sqrt(variance)
}

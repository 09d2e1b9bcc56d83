package main

import (
	"context"
	"fmt"
	"maps"
	"math"
	"os"
	"os/signal"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/varsens/internal/automation"
	"github.com/san-kum/varsens/internal/config"
	"github.com/san-kum/varsens/internal/dynamo"
	"github.com/san-kum/varsens/internal/experiment"
	"github.com/san-kum/varsens/internal/export"
	"github.com/san-kum/varsens/internal/propagation"
	"github.com/san-kum/varsens/internal/storage"
	"github.com/san-kum/varsens/internal/tui"
)

var (
	dt         float64
	duration   float64
	integrator string
	mode       string
	preset     string
	live       bool
	jsonOut    bool
	row        int
	col        int
	outFile    string
	svgFile    string
	parallel   int
	dts        []float64
	trials     int
	sigmaPos   float64
	sigmaVel   float64
	sigmaMass  float64
	seed       int64
)

var (
	title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	dim   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "varsens",
		Short:         "state transition and sensitivity propagation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("data", ".varsens", "data directory")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	if err := bindEnv(viper.GetViper(), rootCmd, "data", "log-level"); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	runCmd := &cobra.Command{
		Use:   "run [scenario.yaml]",
		Short: "propagate a scenario and store the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	runCmd.Flags().StringVar(&preset, "preset", "", "use a preset scenario")
	runCmd.Flags().Float64Var(&dt, "dt", 0, "timestep, negative to propagate backward")
	runCmd.Flags().Float64Var(&duration, "time", 0, "duration")
	runCmd.Flags().StringVar(&integrator, "integrator", "", "integrator")
	runCmd.Flags().StringVar(&mode, "mode", "", "augmented or variational-only")
	runCmd.Flags().BoolVar(&live, "live", false, "show live progress")
	runCmd.Flags().BoolVar(&jsonOut, "json", false, "write the result as json to stdout")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show run metadata and the final composite matrix",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot one composite entry over time",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&row, "row", 0, "composite row")
	plotCmd.Flags().IntVar(&col, "col", -1, "composite column, default the last")
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "also write the plot as svg")

	exportCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file, default stdout")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset scenarios",
		RunE:  listPresets,
	}

	batchCmd := &cobra.Command{
		Use:   "batch [batch.yaml]",
		Short: "run a batch of scenarios concurrently and store each result",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
	batchCmd.Flags().IntVar(&parallel, "parallel", 0, "override the batch concurrency")

	sweepCmd := &cobra.Command{
		Use:   "sweep [scenario.yaml]",
		Short: "timestep convergence study",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&preset, "preset", "", "use a preset scenario")
	sweepCmd.Flags().Float64Var(&duration, "time", 0, "duration")
	sweepCmd.Flags().StringVar(&integrator, "integrator", "", "integrator")
	sweepCmd.Flags().Float64SliceVar(&dts, "dts", []float64{40, 20, 10, 5}, "timesteps")
	sweepCmd.Flags().IntVar(&parallel, "parallel", 0, "concurrent runs, 0 for unlimited")

	mcCmd := &cobra.Command{
		Use:   "montecarlo [scenario.yaml]",
		Short: "compare perturbed runs with the linear prediction",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	mcCmd.Flags().StringVar(&preset, "preset", "", "use a preset scenario")
	mcCmd.Flags().Float64Var(&duration, "time", 0, "duration")
	mcCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	mcCmd.Flags().Float64Var(&sigmaPos, "sigma-pos", 0.01, "position deviation (km)")
	mcCmd.Flags().Float64Var(&sigmaVel, "sigma-vel", 1e-5, "velocity deviation (km/s)")
	mcCmd.Flags().Float64Var(&sigmaMass, "sigma-mass", 0.1, "mass deviation (kg)")
	mcCmd.Flags().Int64Var(&seed, "seed", 0, "random seed, 0 for time based")
	mcCmd.Flags().IntVar(&parallel, "parallel", 0, "concurrent runs, 0 for unlimited")

	rootCmd.AddCommand(runCmd, listCmd, showCmd, plotCmd, exportCmd, presetsCmd, batchCmd, sweepCmd, mcCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bindEnv binds persistent flags of cmd to v, readable as VARSENS_<FLAG>.
func bindEnv(v *viper.Viper, cmd *cobra.Command, names ...string) error {
	v.SetEnvPrefix("varsens")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, name := range names {
		if err := v.BindPFlag(name, cmd.PersistentFlags().Lookup(name)); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}

func newLogger() kitlog.Logger {
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)

	allow := level.AllowInfo()
	switch strings.ToLower(viper.GetString("log-level")) {
	case "debug":
		allow = level.AllowDebug()
	case "warn":
		allow = level.AllowWarn()
	case "error":
		allow = level.AllowError()
	}
	return level.NewFilter(logger, allow)
}

func loadScenario(cmd *cobra.Command, args []string) (*config.Scenario, error) {
	var sc *config.Scenario
	switch {
	case preset != "":
		sc = config.GetPreset(preset)
		if sc == nil {
			return nil, fmt.Errorf("unknown preset %q (available: %s)", preset, strings.Join(config.ListPresets(), ", "))
		}
	case len(args) == 1:
		var err error
		if sc, err = config.Load(args[0]); err != nil {
			return nil, err
		}
	default:
		sc = config.DefaultScenario()
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		sc.Dt = dt
	}
	if flags.Changed("time") {
		sc.Duration = duration
	}
	if flags.Changed("integrator") {
		sc.Integrator = integrator
	}
	if flags.Changed("mode") {
		sc.Mode = mode
	}
	return sc, sc.Validate()
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	logger := newLogger()
	reg := experiment.NewRegistry()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	run := func(ctx context.Context, obs dynamo.Observer) (*propagation.Result, error) {
		opts := []experiment.Option{experiment.WithLogger(logger)}
		if obs != nil {
			opts = append(opts, experiment.WithObserver(obs))
		}
		exp, err := reg.Build(sc, opts...)
		if err != nil {
			return nil, err
		}
		return exp.Run(ctx)
	}

	var res *propagation.Result
	if live {
		res, err = tui.RunLive(ctx, sc.Name, sc.RunConfig(), run)
	} else {
		res, err = run(ctx, nil)
	}
	if err != nil {
		return err
	}

	st := storage.New(viper.GetString("data"))
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(sc, res)
	if err != nil {
		return err
	}
	level.Info(logger).Log("msg", "run stored", "id", runID)

	if jsonOut {
		return storage.WriteJSON(os.Stdout, sc, res)
	}

	fmt.Println(title.Render(sc.Name) + dim.Render("  "+runID))
	fmt.Printf("mode: %s  steps: %d  rejected: %d\n", res.Mode, res.StepsTaken, res.Rejected)
	for _, e := range res.Errors {
		fmt.Println("warning:", e)
	}
	printComposite(res.Labels, res.Final())
	return printMetrics(res.Metrics)
}

func printComposite(labels []string, c *mat.Dense) {
	if c == nil {
		return
	}
	fmt.Println()
	fmt.Println(dim.Render("columns: " + strings.Join(labels, " ")))
	fmt.Printf("%.6g\n", mat.Formatted(c, mat.Squeeze()))
}

func printMetrics(metrics map[string]float64) error {
	if len(metrics) == 0 {
		return nil
	}
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tVALUE")
	for _, name := range slices.Sorted(maps.Keys(metrics)) {
		fmt.Fprintf(w, "%s\t%.6g\n", name, metrics[name])
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(viper.GetString("data"))
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tMODE\tDURATION\tDT\tINTEG\tSTEPS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0fs\t%gs\t%s\t%d\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Mode,
			run.Duration,
			run.Dt,
			run.Integrator,
			run.Steps,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(viper.GetString("data"))
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	comps, times, err := st.LoadComposite(args[0])
	if err != nil {
		return err
	}

	fmt.Println(title.Render(meta.Scenario) + dim.Render("  "+meta.ID))
	fmt.Printf("mode: %s  integrator: %s  dt: %g  duration: %g\n", meta.Mode, meta.Integrator, meta.Dt, meta.Duration)
	fmt.Printf("steps: %d  rejected: %d  samples: %d\n", meta.Steps, meta.Rejected, len(comps))
	if len(comps) > 0 {
		fmt.Printf("\nt = %g\n", times[len(times)-1])
		printComposite(meta.Labels, comps[len(comps)-1])
	}
	return printMetrics(meta.Metrics)
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(viper.GetString("data"))
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	comps, times, err := st.LoadComposite(runID)
	if err != nil {
		return err
	}
	if len(comps) < 2 {
		return fmt.Errorf("run %s has %d composite samples, need at least 2", runID, len(comps))
	}

	c := col
	if c < 0 {
		c = len(meta.Labels) - 1
	}
	if row < 0 || row >= meta.StateSize || c >= len(meta.Labels) {
		return fmt.Errorf("entry (%d, %d) outside %dx%d composite", row, c, meta.StateSize, len(meta.Labels))
	}

	data := make([]float64, len(comps))
	for i, m := range comps {
		data[i] = m.At(row, c)
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)
	fmt.Printf("samples: %d\n\n", len(data))

	caption := fmt.Sprintf("d x%d / d %s", row, meta.Labels[c])
	graph := asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
	fmt.Println(graph)

	if svgFile != "" {
		svg := export.SeriesToSVG(times, data, 800, 300, "#5fd7d7", caption)
		if err := os.WriteFile(svgFile, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgFile)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(viper.GetString("data"))
	if outFile == "" {
		return st.Export(args[0], os.Stdout)
	}
	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := st.Export(args[0], f); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", args[0], outFile)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tINTEG\tDT\tDURATION\tDESCRIPTION")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%s\n", name, p.Integrator, p.Dt, p.Duration, p.Description)
	}
	return w.Flush()
}

func runBatch(cmd *cobra.Command, args []string) error {
	b, err := automation.LoadBatch(args[0])
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("parallel") {
		b.Parallel = parallel
	}
	logger := newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	scenarios, results, err := automation.RunBatch(ctx, b, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}

	st := storage.New(viper.GetString("data"))
	if err := st.Init(); err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tSTEPS\tMAX|S|")
	for i, res := range results {
		runID, err := st.Save(scenarios[i], res)
		if err != nil {
			return err
		}
		peak := 0.0
		if s := res.Sensitivity(); s != nil {
			peak = mat.Norm(s, math.Inf(1))
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.6g\n", runID, scenarios[i].Name, res.StepsTaken, peak)
	}
	return w.Flush()
}

func runSweep(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out, err := automation.RunStepSweep(ctx, sc, dts, experiment.NewRegistry(), parallel, newLogger())
	if err != nil {
		return err
	}

	fmt.Println(title.Render(sc.Name) + dim.Render("  timestep sweep, reference dt="+fmt.Sprint(out[len(out)-1].Dt)))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DT\tSTEPS\tSTATE ERR\tCOMPOSITE ERR\tORDER")
	for _, r := range out[:len(out)-1] {
		order := "-"
		if !math.IsNaN(r.Order) {
			order = fmt.Sprintf("%.2f", r.Order)
		}
		fmt.Fprintf(w, "%g\t%d\t%.3e\t%.3e\t%s\n", r.Dt, r.Steps, r.StateError, r.CompositeError, order)
	}
	return w.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := automation.MonteCarloConfig{
		Trials:        trials,
		PositionSigma: sigmaPos,
		VelocitySigma: sigmaVel,
		MassSigma:     sigmaMass,
		Seed:          seed,
		Parallel:      parallel,
	}
	out, err := automation.RunMonteCarlo(ctx, sc, experiment.NewRegistry(), cfg, newLogger())
	if err != nil {
		return err
	}

	mean, worst := automation.LinearityStats(out)
	fmt.Println(title.Render(sc.Name) + dim.Render(fmt.Sprintf("  %d trials", len(out))))
	fmt.Printf("linearisation error: mean %.3e  worst %.3e\n", mean, worst)
	return nil
}

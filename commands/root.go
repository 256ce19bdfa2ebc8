package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/penwyp/tracevis/internal/application/render"
	"github.com/penwyp/tracevis/internal/core/model"
	"github.com/penwyp/tracevis/internal/presentation/formatter"
	"github.com/penwyp/tracevis/internal/util"
)

const defaultLogFile = "~/.tracevis/logs/app.log"

// options holds the values of the shared render and inspect flags.
type options struct {
	configFile string
	debug      bool

	subjectCol string
	visitCol   string
	pc1Col     string
	pc2Col     string
	delimiter  string
	visits     []string
	subjects   []string
	colors     []string

	frames     int
	interval   int
	format     string
	fps        int
	output     string
	width      int
	height     int
	workers    int
	report     string
	ffmpegPath string
	watch      bool
}

var rootCmd = NewRootCommand()

// NewRootCommand builds the tracevis command tree.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

func newRootCommand() (*cobra.Command, *options) {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "tracevis [flags] <input>",
		Short: "Animate subject trajectories through PCoA space",
		Long: `tracevis renders an animation of subjects moving through a two-dimensional
PCoA ordination across an ordered list of visits.

The input is a delimited table with one row per subject and visit carrying
the PC1 and PC2 coordinates. Subjects with a record for every selected visit
are animated; the rest are reported as excluded. A directory input renders
one animation per table.

Examples:
  tracevis pcoa.tsv                                   # All visits, GIF output
  tracevis pcoa.tsv --visits Baseline,Week4,Week12    # Ordered visit selection
  tracevis pcoa.tsv --color Baseline=navy --color Week4=#ff7f0e
  tracevis pcoa.tsv --format mp4 --fps 24 -o cohort.mp4
  tracevis tables/ -o animations/ --report json       # Batch mode
  tracevis pcoa.tsv --watch                           # Re-render on change`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, opts, args[0])
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "YAML config file (flags override its values)")
	pf.BoolVar(&opts.debug, "debug", false, "Enable debug logging to stderr")
	pf.StringVar(&opts.subjectCol, "subject-col", "SubjectID", "Subject ID column")
	pf.StringVar(&opts.visitCol, "visit-col", "Visit", "Visit column")
	pf.StringVar(&opts.pc1Col, "pc1-col", "PC1", "PC1 column")
	pf.StringVar(&opts.pc2Col, "pc2-col", "PC2", "PC2 column")
	pf.StringVar(&opts.delimiter, "delimiter", "tab", "Field delimiter (tab, comma, semicolon, auto)")
	pf.StringSliceVar(&opts.visits, "visits", nil, "Ordered visits to animate (default: all, sorted)")
	pf.StringSliceVar(&opts.subjects, "subjects", nil, "Subjects to include (default: all)")
	pf.StringVar(&opts.report, "report", formatter.FormatTable, "Report format (table, json, csv, summary, none)")

	f := cmd.Flags()
	f.StringArrayVar(&opts.colors, "color", nil, "Visit color as Visit=color, CSS name or #rrggbb (repeatable)")
	f.IntVar(&opts.frames, "frames", render.DefaultFramesPerSegment, "Frames per visit-to-visit segment (recommended 5-100)")
	f.IntVar(&opts.interval, "interval", render.DefaultIntervalMS, "Frame interval in milliseconds (50-1000)")
	f.StringVar(&opts.format, "format", "gif", "Output format (gif, mp4, frames)")
	f.IntVar(&opts.fps, "fps", 0, "Frame rate override (default: gif 10, mp4 15)")
	f.StringVarP(&opts.output, "output", "o", "", "Output path (default pcoa_animation_custom.<ext>)")
	f.IntVar(&opts.width, "width", 800, "Canvas width in pixels")
	f.IntVar(&opts.height, "height", 600, "Canvas height in pixels")
	f.IntVar(&opts.workers, "workers", 0, "Rasterization workers (default: number of CPUs)")
	f.StringVar(&opts.ffmpegPath, "ffmpeg", "", "ffmpeg binary for mp4 output (default: $FFMPEG_PATH, then $PATH)")
	f.BoolVar(&opts.watch, "watch", false, "Re-render whenever the input changes")

	cmd.AddCommand(newInspectCommand(opts), newVersionCommand())
	return cmd, opts
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func initLogging(opts *options) {
	logLevel := "info"
	if opts.debug {
		logLevel = "debug"
	}
	util.InitLogger(logLevel, expandPath(defaultLogFile), opts.debug)
}

// buildConfig loads the config file, if any, and overlays flags. Without a
// config file every flag applies; with one only flags set explicitly do.
func buildConfig(cmd *cobra.Command, opts *options, input string) (*render.Config, error) {
	cfg := &render.Config{}
	if opts.configFile != "" {
		loaded, err := render.LoadConfig(expandPath(opts.configFile))
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	apply := func(name string) bool {
		flag := cmd.Flags().Lookup(name)
		return flag != nil && (opts.configFile == "" || flag.Changed)
	}

	if err := rejectExplicitZero(cmd, map[string]int{
		"frames":   opts.frames,
		"interval": opts.interval,
		"width":    opts.width,
		"height":   opts.height,
	}); err != nil {
		return nil, err
	}

	if input != "" {
		cfg.Input = input
	}
	if apply("subject-col") {
		cfg.Columns.Subject = opts.subjectCol
	}
	if apply("visit-col") {
		cfg.Columns.Visit = opts.visitCol
	}
	if apply("pc1-col") {
		cfg.Columns.PC1 = opts.pc1Col
	}
	if apply("pc2-col") {
		cfg.Columns.PC2 = opts.pc2Col
	}
	if apply("delimiter") {
		cfg.Delimiter = opts.delimiter
	}
	if apply("visits") && len(opts.visits) > 0 {
		cfg.Visits = trimAll(opts.visits)
	}
	if apply("subjects") && len(opts.subjects) > 0 {
		cfg.Subjects = trimAll(opts.subjects)
	}
	if apply("report") {
		cfg.Report = opts.report
	}
	if apply("color") && len(opts.colors) > 0 {
		colors, err := parseColors(opts.colors)
		if err != nil {
			return nil, err
		}
		if cfg.Colors == nil {
			cfg.Colors = make(map[string]string, len(colors))
		}
		for visit, c := range colors {
			cfg.Colors[visit] = c
		}
	}
	if apply("frames") {
		cfg.FramesPerSegment = opts.frames
	}
	if apply("interval") {
		cfg.IntervalMS = opts.interval
	}
	if apply("format") {
		cfg.Format = opts.format
	}
	if apply("fps") {
		cfg.FPS = opts.fps
	}
	if apply("output") && opts.output != "" {
		cfg.Output = opts.output
	}
	if apply("width") {
		cfg.Width = opts.width
	}
	if apply("height") {
		cfg.Height = opts.height
	}
	if apply("workers") {
		cfg.Workers = opts.workers
	}
	if apply("ffmpeg") && opts.ffmpegPath != "" {
		cfg.FFmpegPath = opts.ffmpegPath
	}
	if apply("watch") {
		cfg.Watch = opts.watch
	}
	return cfg, nil
}

// rejectExplicitZero fails for flags set to 0 on the command line. Zero
// means "use the default" only when a value is left out of the config.
func rejectExplicitZero(cmd *cobra.Command, values map[string]int) error {
	for _, name := range []string{"frames", "interval", "width", "height"} {
		flag := cmd.Flags().Lookup(name)
		if flag != nil && flag.Changed && values[name] == 0 {
			return fmt.Errorf("%w: --%s must be greater than 0", model.ErrInvalidConfig, name)
		}
	}
	return nil
}

// parseColors turns repeated Visit=color flags into a map.
func parseColors(specs []string) (map[string]string, error) {
	colors := make(map[string]string, len(specs))
	for _, spec := range specs {
		visit, c, ok := strings.Cut(spec, "=")
		visit, c = strings.TrimSpace(visit), strings.TrimSpace(c)
		if !ok || visit == "" || c == "" {
			return nil, fmt.Errorf("%w: --color %q must look like Visit=color", model.ErrInvalidConfig, spec)
		}
		colors[visit] = c
	}
	return colors, nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func runRender(cmd *cobra.Command, opts *options, input string) error {
	initLogging(opts)

	cfg, err := buildConfig(cmd, opts, input)
	if err != nil {
		return err
	}

	var progress io.Writer
	if term.IsTerminal(int(os.Stderr.Fd())) {
		progress = cmd.ErrOrStderr()
	}
	o, err := render.NewOrchestrator(cfg, progress)
	if err != nil {
		return err
	}
	for _, w := range cfg.Warnings() {
		fmt.Fprintln(cmd.ErrOrStderr(), util.FormatWarning("warning: "+w))
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if cfg.Watch {
		return o.Watch(ctx, func(reports []*formatter.Report, err error) {
			printReports(cmd, cfg.Report, reports)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), util.FormatFailure("error: "+err.Error()))
			}
		})
	}

	reports, err := o.Run(ctx)
	printReports(cmd, cfg.Report, reports)
	announce(cmd, reports)
	return err
}

// announce confirms each written artifact on stderr.
func announce(cmd *cobra.Command, reports []*formatter.Report) {
	for _, r := range reports {
		if r == nil || r.Render == nil {
			continue
		}
		line := "Wrote " + r.Render.Output
		if info, err := os.Stat(r.Render.Output); err == nil && !info.IsDir() {
			line += " (" + util.FormatBytes(info.Size()) + ")"
		}
		fmt.Fprintln(cmd.ErrOrStderr(), util.FormatSuccess(line))
	}
}

func printReports(cmd *cobra.Command, format string, reports []*formatter.Report) {
	if format == render.ReportNone {
		return
	}
	f, err := formatter.New(format, cmd.OutOrStdout())
	if err != nil {
		util.LogWarnf("Report skipped: %v", err)
		return
	}
	for i, r := range reports {
		if i > 0 && (format == formatter.FormatTable || format == formatter.FormatSummary) {
			fmt.Fprintln(cmd.OutOrStdout(), util.FormatSectionSeparator(0))
		}
		if err := f.Format(r); err != nil {
			util.LogWarnf("Report output failed: %v", err)
		}
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			util.LogInfo("Interrupted, stopping")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/penwyp/tracevis/internal/core/animation"
	"github.com/penwyp/tracevis/internal/core/frame"
	"github.com/penwyp/tracevis/internal/core/model"
	"github.com/penwyp/tracevis/internal/core/palette"
	"github.com/penwyp/tracevis/internal/core/trajectory"
	"github.com/penwyp/tracevis/internal/data/parser"
	"github.com/penwyp/tracevis/internal/data/scanner"
	"github.com/penwyp/tracevis/internal/presentation/canvas"
	"github.com/penwyp/tracevis/internal/presentation/encoder"
	"github.com/penwyp/tracevis/internal/presentation/formatter"
	"github.com/penwyp/tracevis/internal/util"
)

// DefaultBatchOutput is the output directory for batch runs without --output.
const DefaultBatchOutput = "pcoa_animations"

// Orchestrator coordinates parsing, extraction, interpolation, rendering and
// encoding for one configuration.
type Orchestrator struct {
	config   *Config
	parser   *parser.Parser
	progress io.Writer
}

// NewOrchestrator validates config and prepares the pipeline. progress, when
// non-nil, receives a live progress bar.
func NewOrchestrator(config *Config, progress io.Writer) (*Orchestrator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	for _, w := range config.Warnings() {
		util.LogWarn(w)
	}

	p, err := parser.NewParser(config.Columns, config.Delimiter, config.Workers)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{config: config, parser: p, progress: progress}, nil
}

// Config returns the validated configuration.
func (o *Orchestrator) Config() *Config { return o.config }

// Run renders the configured input. A directory input renders one animation
// per table into the output directory; per-file failures are joined so every
// table is attempted.
func (o *Orchestrator) Run(ctx context.Context) ([]*formatter.Report, error) {
	info, err := os.Stat(o.config.Input)
	if err != nil {
		return nil, fmt.Errorf("input %s: %w", o.config.Input, err)
	}
	if !info.IsDir() {
		report, err := o.RenderFile(ctx, o.config.Input, o.config.OutputPath())
		if report == nil {
			return nil, err
		}
		return []*formatter.Report{report}, err
	}
	return o.runBatch(ctx)
}

func (o *Orchestrator) runBatch(ctx context.Context) ([]*formatter.Report, error) {
	startTime := time.Now()

	// Phase 1: Scan tables
	fs := scanner.NewFileScanner(o.config.Input)
	files, err := fs.Scan()
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", o.config.Input, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .tsv, .csv or .txt tables found in %s", o.config.Input)
	}
	util.LogInfof("Found %d tables in %s", len(files), o.config.Input)

	outDir := o.config.Output
	if outDir == "" {
		outDir = DefaultBatchOutput
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	// Phase 2: Parse concurrently so every table is warm in the parser cache
	parseStart := time.Now()
	var errs []error
	parsed := make(map[string]bool, len(files))
	for res := range o.parser.ParseFiles(files) {
		if res.Error != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.File, res.Error))
			continue
		}
		parsed[res.File] = true
	}
	util.LogDebug(fmt.Sprintf("Phase 2 - Batch parse duration: %v, %d of %d tables parsed", time.Since(parseStart), len(parsed), len(files)))

	// Phase 3: Render tables one at a time
	ext := ""
	if o.config.Format != encoder.FormatFrames {
		ext = "." + o.config.Format
	}
	names := fs.OutputNames(files, ext)
	var reports []*formatter.Report
	for _, file := range files {
		if !parsed[file] {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		output := filepath.Join(outDir, names[file])
		report, err := o.RenderFile(ctx, file, output)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			util.LogErrorf("Batch render of %s failed: %v", file, err)
			errs = append(errs, fmt.Errorf("%s: %w", file, err))
		}
	}

	util.LogInfof("Batch finished: %d of %d tables rendered, duration %v", rendered(reports), len(files), time.Since(startTime))
	return reports, errors.Join(errs...)
}

func rendered(reports []*formatter.Report) int {
	n := 0
	for _, r := range reports {
		if r.Render != nil {
			n++
		}
	}
	return n
}

// selectVisits returns the configured visit order or every visit in the table.
func (o *Orchestrator) selectVisits(table *parser.Table) []string {
	if len(o.config.Visits) > 0 {
		return o.config.Visits
	}
	return table.Visits()
}

// Inspect parses input and reports its columns, visits and the coverage of
// the selected visits without rendering.
func (o *Orchestrator) Inspect(input string) (*formatter.Report, error) {
	table, err := o.parser.ParseFile(input)
	if err != nil {
		return nil, err
	}
	records := trajectory.FilterSubjects(table.Records, o.config.Subjects)
	visits := o.selectVisits(table)

	if err := trajectory.ValidateVisits(visits); err != nil {
		return buildReport(table, records, visits, nil), err
	}
	extraction, err := trajectory.ExtractPaths(records, visits, nil)
	if extraction == nil {
		return buildReport(table, records, visits, nil), err
	}
	// zero qualifying subjects is a finding here, not a failure
	return buildReport(table, records, visits, extraction), nil
}

// RenderFile renders one table to output. When subjects fail to qualify the
// coverage report is still returned alongside the error.
func (o *Orchestrator) RenderFile(ctx context.Context, input, output string) (*formatter.Report, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	ctx = util.ContextWithRunID(ctx, runID)
	log := util.L(ctx)
	log.Info("Render started", util.Field{Key: "input", Value: input}, util.Field{Key: "output", Value: output})

	// Phase 1: Parse table
	parseStart := time.Now()
	table, err := o.parser.ParseFile(input)
	if err != nil {
		return nil, err
	}
	log.Debug(fmt.Sprintf("Phase 1 - Parse duration: %v, %d records, %d dropped", time.Since(parseStart), len(table.Records), table.Dropped))

	// Phase 2: Select subjects and extract complete paths
	extractStart := time.Now()
	visits := o.selectVisits(table)
	records := trajectory.FilterSubjects(table.Records, o.config.Subjects)
	extraction, err := trajectory.ExtractPaths(records, visits, nil)
	if err != nil {
		if extraction != nil {
			report := buildReport(table, records, visits, extraction)
			report.RunID = runID
			return report, err
		}
		return nil, err
	}
	report := buildReport(table, records, visits, extraction)
	report.RunID = runID
	log.Debug(fmt.Sprintf("Phase 2 - Extract duration: %v, %d included, %d excluded", time.Since(extractStart), report.Included, report.Excluded))

	// Phase 3: Fix axis bounds over every selected subject's records
	bounds, ok := model.ComputeBounds(records)
	if !ok {
		return report, fmt.Errorf("%w: no coordinates to bound", model.ErrNoQualifyingSubjects)
	}
	log.Debug(fmt.Sprintf("Phase 3 - Bounds x [%.3f, %.3f] y [%.3f, %.3f]", bounds.MinX, bounds.MaxX, bounds.MinY, bounds.MaxY))

	// Phase 4: Colors and interpolation
	planStart := time.Now()
	colors, err := palette.Assign(visits, o.config.Colors)
	if err != nil {
		return report, err
	}
	for _, v := range visits {
		log.Debug("Visit color", util.Field{Key: "visit", Value: v}, util.Field{Key: "color", Value: palette.Hex(colors[v])})
	}
	interpolator, err := trajectory.NewInterpolator(visits, colors, o.config.FramesPerSegment)
	if err != nil {
		return report, err
	}
	plan, err := interpolator.Plan(extraction.Paths, bounds)
	if err != nil {
		return report, err
	}
	log.Debug(fmt.Sprintf("Phase 4 - Plan duration: %v, %d segments x %d frames", time.Since(planStart), plan.Segments(), plan.FramesPerSegment))

	if o.config.Format == encoder.FormatGIF {
		if err := encoder.CheckGIFBudget(plan.TotalFrames(), o.config.Width, o.config.Height); err != nil {
			return report, err
		}
	}

	// Phase 5: Render and encode
	cv, err := canvas.New(bounds, canvas.Options{Width: o.config.Width, Height: o.config.Height})
	if err != nil {
		return report, err
	}
	enc, err := encoder.New(o.config.Format, encoder.Options{FPS: o.config.FPS, FFmpegPath: o.config.FFmpegPath})
	if err != nil {
		return report, err
	}
	composer := frame.NewComposer(plan)
	driver := animation.NewDriver(composer, cv, animation.Options{
		Workers:  o.config.Workers,
		Progress: o.progressFunc(filepath.Base(input)),
	})
	result, err := driver.Run(ctx, enc, output)
	o.finishProgress()
	if err != nil {
		log.Error("Render failed", util.Field{Key: "error", Value: err.Error()})
		return report, err
	}
	log.Debug(fmt.Sprintf("Phase 5 - Render duration: %v, %d frames", result.Elapsed, result.Frames))

	report.Render = &formatter.RenderInfo{
		Output:           result.Output,
		Encoder:          result.Encoder,
		FramesPerSegment: plan.FramesPerSegment,
		Segments:         plan.Segments(),
		TotalFrames:      result.Frames,
		IntervalMS:       o.config.IntervalMS,
		FPS:              encoder.EffectiveFPS(o.config.Format, o.config.FPS),
		ElapsedMS:        time.Since(startTime).Milliseconds(),
	}
	log.Info("Render finished",
		util.Field{Key: "frames", Value: result.Frames},
		util.Field{Key: "subjects", Value: result.Subjects},
		util.Field{Key: "duration", Value: time.Since(startTime).String()})
	return report, nil
}

func (o *Orchestrator) progressFunc(label string) func(done, total int) {
	if o.progress == nil {
		return nil
	}
	return func(done, total int) {
		fmt.Fprintf(o.progress, "\r%s%s %s %d/%d", util.ClearLine, label, util.CreateProgressBar(done, total, 32), done, total)
	}
}

func (o *Orchestrator) finishProgress() {
	if o.progress != nil {
		fmt.Fprintln(o.progress)
	}
}

package growth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"growthcurves/internal/config"
	apperrors "growthcurves/internal/errors"
	"growthcurves/internal/gamlss"
	"growthcurves/internal/infrastructure"
)

// TracerName is the instrumentation scope of pipeline spans
const TracerName = "growthcurves/growth"

// Pipeline stages recorded on errors
const (
	StageValidate = "validate"
	StageClean    = "clean"
	StageGrid     = "grid"
	StageSelect   = "select"
	StageCentiles = "centiles"
	StageOverlay  = "overlay"
)

// Options configures a Pipeline
type Options struct {
	Mode          Mode
	FixedStrength float64
	Cleaning      CleaningStrategy
	CentileLevels []float64
	CentileGrid   int
	Workers       int
	FitTimeout    time.Duration
	Fit           gamlss.Options
	GatingTissue  string
	TissueColumn  string
}

// DefaultOptions returns fixed mode with percentile cleaning
func DefaultOptions() Options {
	return Options{
		Mode:          ModeFixed,
		FixedStrength: DefaultFixedStrength,
		Cleaning:      CleanPercentile,
		CentileLevels: DefaultCentileLevels,
		Workers:       runtime.NumCPU(),
		FitTimeout:    30 * time.Second,
		Fit:           gamlss.DefaultOptions(),
		GatingTissue:  DefaultGatingTissue,
		TissueColumn:  "tissue",
	}
}

// OptionsFromConfig maps pipeline configuration onto Options
func OptionsFromConfig(cfg config.PipelineConfig) Options {
	return Options{
		Mode:          Mode(cfg.Mode),
		FixedStrength: cfg.FixedStrength,
		Cleaning:      CleaningStrategy(cfg.CleaningStrategy),
		CentileLevels: cfg.CentileLevels,
		CentileGrid:   cfg.CentileGrid,
		Workers:       cfg.Workers,
		FitTimeout:    cfg.FitTimeout,
		Fit:           gamlss.Options{MaxCycles: cfg.MaxCycles, Tolerance: cfg.Tolerance},
		GatingTissue:  cfg.GatingTissue,
		TissueColumn:  cfg.TissueColumn,
	}
}

// Request is the input of one unit of work
type Request struct {
	Unit         Unit
	Observations *Frame
	Covariate    string
	Response     string
	// Disease is optional. Its rows need the covariate and response
	// columns plus the tissue label column.
	Disease *Frame
	// Mode and Strength override the pipeline options when set.
	Mode     Mode
	Strength float64
}

// Pipeline runs cleaning, selection, centile extraction and assembly
type Pipeline struct {
	opts     Options
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *infrastructure.FitMetrics
	cleaner  *Cleaner
	selector *Selector
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithTracer sets the tracer used for pipeline spans
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = tracer }
}

// WithMetrics sets the fit instruments
func WithMetrics(metrics *infrastructure.FitMetrics) Option {
	return func(p *Pipeline) { p.metrics = metrics }
}

// NewPipeline creates a pipeline. Zero-valued options fall back to
// DefaultOptions.
func NewPipeline(opts Options, options ...Option) *Pipeline {
	def := DefaultOptions()
	if opts.Mode == "" {
		opts.Mode = def.Mode
	}
	if opts.Cleaning == "" {
		opts.Cleaning = def.Cleaning
	}
	if len(opts.CentileLevels) == 0 {
		opts.CentileLevels = def.CentileLevels
	}
	if opts.Workers < 1 {
		opts.Workers = def.Workers
	}
	if opts.GatingTissue == "" {
		opts.GatingTissue = def.GatingTissue
	}
	if opts.TissueColumn == "" {
		opts.TissueColumn = def.TissueColumn
	}

	p := &Pipeline{opts: opts}
	for _, o := range options {
		o(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(TracerName)
	}
	p.logger = p.logger.With(slog.String("component", "pipeline"))
	p.cleaner = NewCleaner(opts.Cleaning, p.logger)
	p.selector = NewSelector(opts.Fit, opts.FitTimeout, opts.Workers, p.logger, p.metrics)
	return p
}

// Options returns the effective options
func (p *Pipeline) Options() Options {
	return p.opts
}

// Run processes one unit. Errors are *errors.AppError values carrying the
// failing stage and the unit.
func (p *Pipeline) Run(ctx context.Context, req Request) (result *Result, err error) {
	mode := p.opts.Mode
	if req.Mode != "" {
		mode = req.Mode
	}
	strength := p.opts.FixedStrength
	if req.Strength != 0 {
		strength = req.Strength
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("unit.sex", req.Unit.Sex),
		attribute.String("unit.tissue", req.Unit.Tissue),
		attribute.String("unit.biomarker", req.Unit.Biomarker),
		attribute.String("mode", string(mode)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	logger := p.logger.With(
		slog.String("sex", req.Unit.Sex),
		slog.String("tissue", req.Unit.Tissue),
		slog.String("biomarker", req.Unit.Biomarker))

	if !mode.Valid() {
		return nil, p.stageError(req.Unit, StageValidate, apperrors.NewAppValidationError(fmt.Sprintf("unknown mode %q", mode)))
	}
	if req.Observations == nil {
		return nil, p.stageError(req.Unit, StageValidate, apperrors.NewMissingInput("observation table is required"))
	}

	table, err := p.clean(ctx, req)
	if err != nil {
		return nil, p.stageError(req.Unit, StageClean, err)
	}
	if p.metrics != nil {
		p.metrics.RowsRetained.Record(ctx, int64(table.Len()))
	}

	grid, err := BuildGrid(mode, table.Len(), strength)
	if err != nil {
		return nil, p.stageError(req.Unit, StageGrid, apperrors.NewAppValidationError(err.Error()))
	}

	sel, err := p.search(ctx, table, grid)
	if err != nil {
		return nil, p.stageError(req.Unit, StageSelect, err)
	}

	centiles, err := p.centiles(ctx, sel, table, logger)
	if err != nil {
		return nil, p.stageError(req.Unit, StageCentiles, err)
	}

	overlay, err := p.overlay(ctx, req, table, sel.Best)
	if err != nil {
		return nil, p.stageError(req.Unit, StageOverlay, err)
	}

	result = Assemble(mode, req.Unit, table, sel, centiles, overlay)
	if p.metrics != nil {
		p.metrics.SelectedAIC.Record(ctx, result.AIC,
			metric.WithAttributes(attribute.String("family", result.Family)))
	}
	logger.InfoContext(ctx, "unit fitted",
		slog.String("family", result.Family),
		slog.Float64("aic", result.AIC),
		slog.Int("rows", result.Rows),
		slog.Int("candidates", result.Candidates),
		slog.Int("converged", result.ConvergedCandidates),
		slog.Bool("overlay", overlay != nil))
	return result, nil
}

func (p *Pipeline) clean(ctx context.Context, req Request) (*Table, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.clean")
	defer span.End()

	table, report, err := p.cleaner.Clean(ctx, req.Observations, req.Covariate, req.Response)
	if report != nil {
		span.SetAttributes(
			attribute.Int("rows.input", report.RowsInput),
			attribute.Int("rows.final", report.RowsFinal),
			attribute.Float64("skewness", report.Skewness),
			attribute.Bool("log_transformed", report.LogTransformed))
	}
	return table, err
}

func (p *Pipeline) search(ctx context.Context, table *Table, grid Grid) (*Selection, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.search", trace.WithAttributes(
		attribute.Int("candidates", grid.Size())))
	defer span.End()

	sel, err := p.selector.Select(ctx, table.Data(), grid)
	if sel != nil {
		span.SetAttributes(attribute.Int("converged", sel.Converged))
	}
	return sel, err
}

// centiles extracts the centile table of the selected model. When its
// quantiles are not finite somewhere on the grid the next converged
// finalist by AIC replaces it as sel.Best.
func (p *Pipeline) centiles(ctx context.Context, sel *Selection, table *Table, logger *slog.Logger) (*CentileTable, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.centiles")
	defer span.End()

	scale := ScaleIdentity
	if table.LogTransformed {
		scale = ScaleLog
	}
	best, centiles, err := centilesByRank(sel.Finalists, func(r *gamlss.Result) (*CentileTable, error) {
		return ExtractCentiles(r, p.opts.CentileLevels, p.opts.CentileGrid, scale)
	})
	if err != nil {
		return nil, err
	}
	if best != sel.Best {
		logger.WarnContext(ctx, "selected model has non-finite centiles, using next finalist",
			slog.String("rejected", sel.Best.Spec.String()),
			slog.String("selected", best.Spec.String()),
			slog.Float64("aic", best.AIC))
		span.SetAttributes(attribute.Bool("fallback", true))
		sel.Best = best
	}
	return centiles, nil
}

// centilesByRank returns the first converged result, in AIC order, whose
// centiles extract cleanly. If none does it returns the error of the
// lowest-AIC result.
func centilesByRank(results []*gamlss.Result, extract func(*gamlss.Result) (*CentileTable, error)) (*gamlss.Result, *CentileTable, error) {
	ranked := RankConverged(results)
	if len(ranked) == 0 {
		return nil, nil, errors.New("centiles need a converged model")
	}
	var first error
	for _, r := range ranked {
		table, err := extract(r)
		if err == nil {
			return r, table, nil
		}
		if first == nil {
			first = err
		}
	}
	return nil, nil, first
}

func (p *Pipeline) overlay(ctx context.Context, req Request, table *Table, best *gamlss.Result) (*Overlay, error) {
	if req.Disease == nil {
		return nil, nil
	}
	_, span := p.tracer.Start(ctx, "pipeline.overlay")
	defer span.End()

	ov, err := ScoreDisease(req.Disease, OverlaySpec{
		Covariate:    req.Covariate,
		Response:     req.Response,
		TissueColumn: p.opts.TissueColumn,
		Gating:       p.opts.GatingTissue,
	}, table, best)
	span.SetAttributes(attribute.Bool("applied", ov != nil))
	return ov, err
}

// stageError tags err with the failing stage and unit
func (p *Pipeline) stageError(unit Unit, stage string, err error) error {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return fmt.Errorf("%s stage for %s: %w", stage, unit, err)
		}
		appErr = apperrors.NewAppError(apperrors.ErrTypeInternal, "unexpected failure", err)
	}
	if appErr.Stage == "" {
		appErr.WithStage(stage)
	}
	return appErr.
		WithContext("sex", unit.Sex).
		WithContext("tissue", unit.Tissue).
		WithContext("biomarker", unit.Biomarker)
}

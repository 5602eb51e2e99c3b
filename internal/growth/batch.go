package growth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apperrors "growthcurves/internal/errors"
)

// UnitStatus is the outcome class of one unit in a batch
type UnitStatus string

const (
	UnitFitted  UnitStatus = "fitted"
	UnitFailed  UnitStatus = "failed"
	UnitSkipped UnitStatus = "skipped"
)

// UnitOutcome reports one unit of a batch. Err is set when Status is
// UnitFailed or UnitSkipped.
type UnitOutcome struct {
	Unit   Unit
	Status UnitStatus
	Result *Result
	Err    error
	Stage  string
}

// Diagnostic renders a failure for people, e.g. "clean: no valid data
// after removing outliers for biomarker FA, sex F, tissue WM".
func (o UnitOutcome) Diagnostic() string {
	if o.Err == nil {
		return ""
	}
	msg := o.Err.Error()
	var appErr *apperrors.AppError
	if errors.As(o.Err, &appErr) {
		msg = appErr.Message
	}
	if o.Stage == "" {
		return fmt.Sprintf("%s for %s", msg, o.Unit)
	}
	return fmt.Sprintf("%s: %s for %s", o.Stage, msg, o.Unit)
}

// BatchSummary counts outcomes by status
type BatchSummary struct {
	Fitted  int `json:"fitted"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Summarize counts outcomes by status
func Summarize(outcomes []UnitOutcome) BatchSummary {
	var s BatchSummary
	for _, o := range outcomes {
		switch o.Status {
		case UnitFitted:
			s.Fitted++
		case UnitFailed:
			s.Failed++
		case UnitSkipped:
			s.Skipped++
		}
	}
	return s
}

// RunBatch runs every request in order. A unit that fails is reported in
// its outcome and the batch moves on; only cancellation of ctx stops the
// batch early, marking the remaining units skipped.
func (p *Pipeline) RunBatch(ctx context.Context, reqs []Request) []UnitOutcome {
	outcomes := make([]UnitOutcome, 0, len(reqs))
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, UnitOutcome{Unit: req.Unit, Status: UnitSkipped, Err: err})
			p.countUnit(ctx, UnitSkipped)
			continue
		}

		res, err := p.Run(ctx, req)
		if err != nil {
			out := UnitOutcome{
				Unit:   req.Unit,
				Status: UnitFailed,
				Err:    err,
				Stage:  apperrors.StageOf(err),
			}
			p.logger.ErrorContext(ctx, "unit failed",
				slog.String("sex", req.Unit.Sex),
				slog.String("tissue", req.Unit.Tissue),
				slog.String("biomarker", req.Unit.Biomarker),
				slog.String("stage", out.Stage),
				slog.String("error_type", string(apperrors.TypeOf(err))),
				slog.String("diagnostic", out.Diagnostic()))
			outcomes = append(outcomes, out)
			p.countUnit(ctx, UnitFailed)
			continue
		}
		outcomes = append(outcomes, UnitOutcome{Unit: req.Unit, Status: UnitFitted, Result: res})
		p.countUnit(ctx, UnitFitted)
	}

	sum := Summarize(outcomes)
	p.logger.InfoContext(ctx, "batch finished",
		slog.Int("units", len(outcomes)),
		slog.Int("fitted", sum.Fitted),
		slog.Int("failed", sum.Failed),
		slog.Int("skipped", sum.Skipped))
	return outcomes
}

func (p *Pipeline) countUnit(ctx context.Context, status UnitStatus) {
	if p.metrics == nil {
		return
	}
	p.metrics.UnitsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
}

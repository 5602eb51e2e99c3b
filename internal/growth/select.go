package growth

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	apperrors "growthcurves/internal/errors"
	"growthcurves/internal/gamlss"
	"growthcurves/internal/infrastructure"
)

// Selection is the outcome of running a grid
type Selection struct {
	Best *gamlss.Result
	// Finalists are the refitted group winners in grid order; in fixed
	// mode every candidate is a finalist.
	Finalists []*gamlss.Result
	Attempted int
	Converged int
}

// SelectBest returns the converged result with the lowest AIC and its
// index. The first of equal minima wins. It returns nil and -1 when no
// result converged.
func SelectBest(results []*gamlss.Result) (*gamlss.Result, int) {
	best, idx := (*gamlss.Result)(nil), -1
	for i, r := range results {
		if r == nil || !r.Converged {
			continue
		}
		if best == nil || r.AIC < best.AIC {
			best, idx = r, i
		}
	}
	return best, idx
}

// Selector runs candidate fits in parallel and picks the winner
type Selector struct {
	fitOpts    gamlss.Options
	fitTimeout time.Duration
	workers    int
	logger     *slog.Logger
	metrics    *infrastructure.FitMetrics
}

// RankConverged returns the converged results ordered by AIC. Equal AICs
// keep their order in results.
func RankConverged(results []*gamlss.Result) []*gamlss.Result {
	var ranked []*gamlss.Result
	for _, r := range results {
		if r != nil && r.Converged {
			ranked = append(ranked, r)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].AIC < ranked[j].AIC })
	return ranked
}

// NewSelector creates a selector. workers below one means one; a zero
// fitTimeout disables the per-fit deadline.
func NewSelector(fitOpts gamlss.Options, fitTimeout time.Duration, workers int, logger *slog.Logger, metrics *infrastructure.FitMetrics) *Selector {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{
		fitOpts:    fitOpts,
		fitTimeout: fitTimeout,
		workers:    workers,
		logger:     logger.With(slog.String("component", "selector")),
		metrics:    metrics,
	}
}

// Select fits the grid and returns the minimum-AIC converged model. In
// search mode the winner of each (method, family) group is refitted and
// the refits are compared. It fails with NO_CONVERGED_MODEL when nothing
// converges and with the context error when ctx ends first.
func (s *Selector) Select(ctx context.Context, data gamlss.Data, grid Grid) (*Selection, error) {
	sel := &Selection{}

	inner := s.fitAll(ctx, data, grid.Specs())
	sel.Attempted = len(inner)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if grid.Mode == ModeSearch {
		var winners []gamlss.Spec
		offset := 0
		for _, grp := range grid.Groups {
			n := len(grp.Candidates)
			if best, _ := SelectBest(inner[offset : offset+n]); best != nil {
				winners = append(winners, best.Spec)
			}
			offset += n
		}
		sel.Finalists = s.fitAll(ctx, data, winners)
		sel.Attempted += len(sel.Finalists)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	} else {
		sel.Finalists = inner
	}

	for _, r := range sel.Finalists {
		if r.Converged {
			sel.Converged++
		}
	}
	sel.Best, _ = SelectBest(sel.Finalists)
	if sel.Best == nil {
		return sel, apperrors.NewNoConvergedModel(sel.Attempted)
	}

	s.logger.InfoContext(ctx, "model selected",
		slog.String("family", sel.Best.Spec.Family),
		slog.String("method", string(sel.Best.Spec.Method)),
		slog.Float64("strength", sel.Best.Spec.Strength),
		slog.Int("df", sel.Best.Spec.DF),
		slog.Float64("aic", sel.Best.AIC),
		slog.Int("attempted", sel.Attempted),
		slog.Int("converged", sel.Converged))
	return sel, nil
}

// fitAll fits specs with bounded parallelism. Results keep the order of
// specs regardless of completion order.
func (s *Selector) fitAll(ctx context.Context, data gamlss.Data, specs []gamlss.Spec) []*gamlss.Result {
	results := make([]*gamlss.Result, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, spec := range specs {
		g.Go(func() error {
			results[i] = s.fitOne(gctx, data, spec)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Selector) fitOne(ctx context.Context, data gamlss.Data, spec gamlss.Spec) *gamlss.Result {
	if s.fitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fitTimeout)
		defer cancel()
	}

	start := time.Now()
	res := gamlss.Fit(ctx, data, spec, s.fitOpts)
	elapsed := time.Since(start)

	if s.metrics != nil {
		attrs := metric.WithAttributes(
			attribute.String("family", spec.Family),
			attribute.String("method", string(spec.Method)),
			attribute.Bool("converged", res.Converged),
		)
		s.metrics.FitsTotal.Add(ctx, 1, attrs)
		s.metrics.FitDuration.Record(ctx, elapsed.Seconds(), attrs)
	}

	if !res.Converged {
		s.logger.DebugContext(ctx, "candidate did not converge",
			slog.String("family", spec.Family),
			slog.String("method", string(spec.Method)),
			slog.Float64("strength", spec.Strength),
			slog.Int("df", spec.DF),
			slog.String("reason", string(res.Failure)),
			slog.Any("error", res.Err))
	}
	return res
}

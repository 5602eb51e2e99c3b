package growth

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/aclements/go-moremath/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	apperrors "growthcurves/internal/errors"
)

const (
	zScoreLimit    = 3.0
	upperTailLevel = 0.99
	skewThreshold  = 1.0
)

// Cleaning step names used in EmptyDataset errors
const (
	StepMissing       = "removing missing values"
	StepOutliers      = "removing outliers"
	StepPercentile    = "trimming responses above the 99th percentile"
	StepSecondOutlier = "removing outliers after transformation"
)

// CleanReport carries the cleaning diagnostics. They are logged, not
// returned to callers of the pipeline.
type CleanReport struct {
	Strategy       CleaningStrategy
	RowsInput      int
	RowsComplete   int
	RowsTrimmed    int
	RowsFinal      int
	Skewness       float64
	Kurtosis       float64
	SkewnessAfter  float64
	LogTransformed bool
	UpperLimit     float64
}

// Cleaner produces fit-ready tables from raw frames
type Cleaner struct {
	strategy CleaningStrategy
	logger   *slog.Logger
}

// NewCleaner creates a cleaner for strategy; an empty strategy means
// CleanPercentile.
func NewCleaner(strategy CleaningStrategy, logger *slog.Logger) *Cleaner {
	if strategy == "" {
		strategy = CleanPercentile
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{strategy: strategy, logger: logger.With(slog.String("component", "cleaner"))}
}

// Clean drops incomplete rows, trims |z| > 3 outliers on both columns,
// decides on a log transform of the response from its skewness and trims
// the upper tail according to the strategy. Every step that leaves no
// rows fails with an EMPTY_DATASET error naming the step.
func (c *Cleaner) Clean(ctx context.Context, frame *Frame, covariate, response string) (*Table, *CleanReport, error) {
	if frame == nil {
		return nil, nil, apperrors.NewMissingInput("observation table is required")
	}
	if !c.strategy.Valid() {
		return nil, nil, apperrors.NewAppValidationError(fmt.Sprintf("unknown cleaning strategy %q", c.strategy))
	}
	xs, ok := frame.Column(covariate)
	if !ok {
		return nil, nil, apperrors.NewMissingColumn("observation", covariate)
	}
	ys, ok := frame.Column(response)
	if !ok {
		return nil, nil, apperrors.NewMissingColumn("observation", response)
	}
	if len(xs) != len(ys) {
		return nil, nil, apperrors.NewAppValidationError(
			fmt.Sprintf("columns %q and %q differ in length (%d, %d)", covariate, response, len(xs), len(ys)))
	}

	report := &CleanReport{Strategy: c.strategy, RowsInput: len(ys)}

	x, y := dropMissing(xs, ys)
	report.RowsComplete = len(y)
	if len(y) == 0 {
		return nil, report, apperrors.NewEmptyDataset(StepMissing)
	}

	x, y = trimZScores(x, y)
	report.RowsTrimmed = len(y)
	if len(y) == 0 {
		return nil, report, apperrors.NewEmptyDataset(StepOutliers)
	}

	report.Skewness, report.Kurtosis = moments(y)
	if report.Skewness > skewThreshold && floats.Min(y) > 0 {
		logged := make([]float64, len(y))
		for i, v := range y {
			logged[i] = math.Log(v)
		}
		y = logged
		report.LogTransformed = true
	}
	report.SkewnessAfter, _ = moments(y)

	switch c.strategy {
	case CleanPercentile:
		report.UpperLimit = quantileLinear(y, upperTailLevel)
		x, y = keepAtMost(x, y, report.UpperLimit)
		if len(y) == 0 {
			return nil, report, apperrors.NewEmptyDataset(StepPercentile)
		}
	case CleanDoubleZScore:
		x, y = trimZScores(x, y)
		if len(y) == 0 {
			return nil, report, apperrors.NewEmptyDataset(StepSecondOutlier)
		}
	}
	report.RowsFinal = len(y)

	c.logger.InfoContext(ctx, "observations cleaned",
		slog.String("covariate", covariate),
		slog.String("response", response),
		slog.String("strategy", string(report.Strategy)),
		slog.Int("rows_input", report.RowsInput),
		slog.Int("rows_complete", report.RowsComplete),
		slog.Int("rows_trimmed", report.RowsTrimmed),
		slog.Int("rows_final", report.RowsFinal),
		slog.Float64("skewness", report.Skewness),
		slog.Float64("kurtosis", report.Kurtosis),
		slog.Bool("log_transformed", report.LogTransformed),
		slog.Float64("skewness_after", report.SkewnessAfter))

	return &Table{
		X:              x,
		Y:              y,
		XName:          covariate,
		YName:          response,
		LogTransformed: report.LogTransformed,
	}, report, nil
}

// dropMissing keeps rows where both values are finite
func dropMissing(xs, ys []float64) ([]float64, []float64) {
	x := make([]float64, 0, len(xs))
	y := make([]float64, 0, len(ys))
	for i := range xs {
		if isFinite(xs[i]) && isFinite(ys[i]) {
			x = append(x, xs[i])
			y = append(y, ys[i])
		}
	}
	return x, y
}

// trimZScores drops rows where either column lies more than three sample
// standard deviations from its mean. A column without spread trims nothing.
func trimZScores(xs, ys []float64) ([]float64, []float64) {
	mx, sx := stat.MeanStdDev(xs, nil)
	my, sy := stat.MeanStdDev(ys, nil)

	x := make([]float64, 0, len(xs))
	y := make([]float64, 0, len(ys))
	for i := range xs {
		if zScore(xs[i], mx, sx) > zScoreLimit || zScore(ys[i], my, sy) > zScoreLimit {
			continue
		}
		x = append(x, xs[i])
		y = append(y, ys[i])
	}
	return x, y
}

func zScore(v, mean, sd float64) float64 {
	if !(sd > 0) {
		return 0
	}
	return math.Abs(v-mean) / sd
}

// moments returns the skewness and excess kurtosis of v from its central
// moments.
func moments(v []float64) (skew, kurt float64) {
	m2 := stat.Moment(2, v, nil)
	if !(m2 > 0) {
		return 0, 0
	}
	skew = stat.Moment(3, v, nil) / math.Pow(m2, 1.5)
	kurt = stat.Moment(4, v, nil)/(m2*m2) - 3
	return skew, kurt
}

// quantileLinear interpolates between order statistics at h = (n-1)q, the
// Hyndman-Fan type 7 estimator. Below n = 67 the type 8 estimator of
// stats.Sample.Quantile clamps the 0.99 level to the maximum, which would
// make the upper-tail trim a no-op on small units.
func quantileLinear(v []float64, q float64) float64 {
	if len(v) == 0 {
		return math.NaN()
	}
	s := stats.Sample{Xs: v}.Copy().Sort()
	h := float64(len(s.Xs)-1) * q
	lo := int(math.Floor(h))
	if lo >= len(s.Xs)-1 {
		return s.Xs[len(s.Xs)-1]
	}
	if lo < 0 {
		return s.Xs[0]
	}
	return s.Xs[lo] + (h-float64(lo))*(s.Xs[lo+1]-s.Xs[lo])
}

func keepAtMost(xs, ys []float64, limit float64) ([]float64, []float64) {
	x := make([]float64, 0, len(xs))
	y := make([]float64, 0, len(ys))
	for i := range ys {
		if ys[i] <= limit {
			x = append(x, xs[i])
			y = append(y, ys[i])
		}
	}
	return x, y
}

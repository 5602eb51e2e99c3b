package growth

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"

	"growthcurves/internal/gamlss"
)

// DefaultCentileLevels are the reported percentile levels
var DefaultCentileLevels = []float64{3, 15, 50, 85, 97}

// Scale names the response scale centile values are reported on
type Scale string

const (
	ScaleIdentity Scale = "identity"
	ScaleLog      Scale = "log"
)

// CentileRow is one (covariate, level, value) triple
type CentileRow struct {
	X     float64 `json:"x"`
	Level float64 `json:"level"`
	Value float64 `json:"value"`
}

// CentileTable holds centile values in long layout: rows ordered by
// covariate ascending, then by level ascending.
type CentileTable struct {
	Levels []float64    `json:"levels"`
	Scale  Scale        `json:"scale"`
	Rows   []CentileRow `json:"rows"`
}

// CentilePoint is one covariate value in wide layout
type CentilePoint struct {
	X      float64
	Values []float64
}

// Points returns the number of covariate evaluation points
func (t *CentileTable) Points() int {
	if len(t.Levels) == 0 {
		return 0
	}
	return len(t.Rows) / len(t.Levels)
}

// Wide returns one entry per covariate value with Values aligned to Levels
func (t *CentileTable) Wide() []CentilePoint {
	k := len(t.Levels)
	if k == 0 {
		return nil
	}
	points := make([]CentilePoint, 0, t.Points())
	for i := 0; i+k <= len(t.Rows); i += k {
		pt := CentilePoint{X: t.Rows[i].X, Values: make([]float64, k)}
		for j := 0; j < k; j++ {
			pt.Values[j] = t.Rows[i+j].Value
		}
		points = append(points, pt)
	}
	return points
}

// ExtractCentiles evaluates the fitted quantile function of res at each
// level (in percent) and each evaluation point. gridPoints == 0 uses the
// distinct observed covariate values; otherwise gridPoints evenly spaced
// values span the observed range.
func ExtractCentiles(res *gamlss.Result, levels []float64, gridPoints int, scale Scale) (*CentileTable, error) {
	if res == nil || !res.Converged {
		return nil, fmt.Errorf("centiles need a converged model")
	}
	if len(levels) == 0 {
		levels = DefaultCentileLevels
	}
	sorted := append([]float64(nil), levels...)
	sort.Float64s(sorted)
	for _, l := range sorted {
		if !(l > 0 && l < 100) {
			return nil, fmt.Errorf("centile level %g outside (0, 100)", l)
		}
	}

	xs := res.DistinctX()
	if gridPoints == 1 && len(xs) > 0 {
		xs = []float64{xs[0]}
	} else if gridPoints > 1 && len(xs) > 0 {
		xs = floats.Span(make([]float64, gridPoints), xs[0], xs[len(xs)-1])
	}

	table := &CentileTable{
		Levels: sorted,
		Scale:  scale,
		Rows:   make([]CentileRow, 0, len(xs)*len(sorted)),
	}
	for _, x := range xs {
		th, err := res.Predict(x)
		if err != nil {
			return nil, err
		}
		for _, l := range sorted {
			v := res.Family.Quantile(l/100, th)
			if !isFinite(v) {
				return nil, fmt.Errorf("%s centile %g at x=%g is not finite", res.Spec.Family, l, x)
			}
			table.Rows = append(table.Rows, CentileRow{X: x, Level: l, Value: v})
		}
	}
	return table, nil
}

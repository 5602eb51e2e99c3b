package growth

import (
	"fmt"

	"growthcurves/internal/gamlss"
)

// DefaultFixedStrength is the penalized spline strength of fixed mode
const DefaultFixedStrength = 3000.0

var (
	// FixedFamilies are tried in fixed mode, in this order
	FixedFamilies = []string{"BCT", "BCCG", "BCPE", "NO"}
	// SearchFamilies are tried in search mode, in this order
	SearchFamilies = []string{"BCT", "BCCG", "BCPE", "NO", "GA", "IG", "WEI"}
	// SearchMethods are the smoothers compared in search mode
	SearchMethods = []gamlss.Method{gamlss.PenalizedSpline, gamlss.SmoothingSpline, gamlss.LocalRegression}
	// SearchStrengths are the spline penalties of the inner search
	SearchStrengths = []float64{5000, 6000, 7000, 8000, 9000, 10000}
	// SearchDF are the degrees of freedom of the inner search
	SearchDF = []int{1, 2, 3, 4}
	// LocalSpanRows are local regression spans in rows; the span is this
	// count divided by the row count.
	LocalSpanRows = []int{1, 2, 3, 4}
)

// Group is the inner grid of one (method, family) pair. Its best member
// by AIC goes on to the outer comparison.
type Group struct {
	Family     string
	Method     gamlss.Method
	Candidates []gamlss.Spec
}

// Grid is the ordered set of candidates for one run. Order is part of the
// contract: AIC ties resolve to the candidate listed first.
type Grid struct {
	Mode   Mode
	Groups []Group
}

// Size returns the number of inner candidates
func (g Grid) Size() int {
	n := 0
	for _, grp := range g.Groups {
		n += len(grp.Candidates)
	}
	return n
}

// Specs flattens the grid in order
func (g Grid) Specs() []gamlss.Spec {
	specs := make([]gamlss.Spec, 0, g.Size())
	for _, grp := range g.Groups {
		specs = append(specs, grp.Candidates...)
	}
	return specs
}

// BuildGrid enumerates the candidates for mode. rows is the cleaned row
// count, used for local regression spans. fixedStrength applies to fixed
// mode only; zero selects DefaultFixedStrength.
func BuildGrid(mode Mode, rows int, fixedStrength float64) (Grid, error) {
	switch mode {
	case ModeFixed:
		if fixedStrength == 0 {
			fixedStrength = DefaultFixedStrength
		}
		if !(fixedStrength > 0) {
			return Grid{}, fmt.Errorf("smoothing strength must be positive, got %g", fixedStrength)
		}
		grid := Grid{Mode: mode}
		for _, fam := range FixedFamilies {
			grid.Groups = append(grid.Groups, Group{
				Family: fam,
				Method: gamlss.PenalizedSpline,
				Candidates: []gamlss.Spec{
					{Family: fam, Method: gamlss.PenalizedSpline, Strength: fixedStrength},
				},
			})
		}
		return grid, nil

	case ModeSearch:
		if rows <= 0 {
			return Grid{}, fmt.Errorf("search grid needs a positive row count, got %d", rows)
		}
		grid := Grid{Mode: mode}
		for _, method := range SearchMethods {
			strengths := SearchStrengths
			if method == gamlss.LocalRegression {
				strengths = make([]float64, len(LocalSpanRows))
				for i, k := range LocalSpanRows {
					strengths[i] = float64(k) / float64(rows)
				}
			}
			for _, fam := range SearchFamilies {
				grp := Group{Family: fam, Method: method}
				for _, s := range strengths {
					for _, df := range SearchDF {
						grp.Candidates = append(grp.Candidates, gamlss.Spec{
							Family:   fam,
							Method:   method,
							Strength: s,
							DF:       df,
						})
					}
				}
				grid.Groups = append(grid.Groups, grp)
			}
		}
		return grid, nil
	}
	return Grid{}, fmt.Errorf("unknown mode %q", mode)
}

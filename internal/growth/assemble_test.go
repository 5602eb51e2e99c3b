package growth

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growthcurves/internal/gamlss"
	"growthcurves/internal/shared/testutil"
)

func TestAssemble(t *testing.T) {
	table, best := fitCohort(t, testutil.NormalCohort(100, 60), "NO")
	sel := &Selection{Best: best, Finalists: []*gamlss.Result{best}, Attempted: 3, Converged: 1}
	centiles, err := ExtractCentiles(best, nil, 10, ScaleIdentity)
	require.NoError(t, err)
	unit := Unit{Sex: "F", Tissue: "GM", Biomarker: "FA"}

	t.Run("fixed mode", func(t *testing.T) {
		res := Assemble(ModeFixed, unit, table, sel, centiles, nil)

		assert.Equal(t, "NO", res.Family)
		assert.Equal(t, best.AIC, res.AIC)
		assert.Equal(t, 3, res.Candidates)
		assert.Equal(t, 1, res.ConvergedCandidates)
		assert.Equal(t, CurveFitted, res.Curves["mu"].Status)
		assert.Equal(t, CurveFitted, res.Curves["sigma"].Status)
		assert.Equal(t, CurveNotApplicable, res.Curves["nu"].Status)
		assert.Equal(t, CurveNotApplicable, res.Curves["tau"].Status)
		assert.Nil(t, res.Smoothing)
		assert.Empty(t, res.Summary)
		assert.Same(t, centiles, res.Centiles)
	})

	t.Run("search mode adds smoothing and summary", func(t *testing.T) {
		res := Assemble(ModeSearch, unit, table, sel, centiles, nil)

		require.NotNil(t, res.Smoothing)
		assert.Equal(t, gamlss.PenalizedSpline, res.Smoothing.Method)
		assert.Equal(t, 3000.0, res.Smoothing.Strength)
		assert.Contains(t, res.Summary, "Family: NO")
		assert.Contains(t, res.Summary, "mu.(Intercept)")
		assert.Contains(t, res.Summary, fmt.Sprintf("observations: %d", table.Len()))
	})
}

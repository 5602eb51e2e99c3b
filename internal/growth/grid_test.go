package growth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growthcurves/internal/gamlss"
)

func TestBuildGrid_Fixed(t *testing.T) {
	grid, err := BuildGrid(ModeFixed, 150, 0)
	require.NoError(t, err)

	specs := grid.Specs()
	require.Len(t, specs, 4)
	for i, fam := range []string{"BCT", "BCCG", "BCPE", "NO"} {
		assert.Equal(t, gamlss.Spec{Family: fam, Method: gamlss.PenalizedSpline, Strength: 3000}, specs[i])
	}

	grid, err = BuildGrid(ModeFixed, 150, 1200)
	require.NoError(t, err)
	assert.Equal(t, 1200.0, grid.Specs()[0].Strength)
}

func TestBuildGrid_Search(t *testing.T) {
	grid, err := BuildGrid(ModeSearch, 200, 0)
	require.NoError(t, err)

	assert.Len(t, grid.Groups, 21)
	assert.Equal(t, 7*(24+24+16), grid.Size())

	seen := map[gamlss.Spec]bool{}
	for _, grp := range grid.Groups {
		for _, spec := range grp.Candidates {
			assert.Equal(t, grp.Family, spec.Family)
			assert.Equal(t, grp.Method, spec.Method)
			assert.False(t, seen[spec], "duplicate %s", spec)
			seen[spec] = true

			assert.GreaterOrEqual(t, spec.DF, 1)
			assert.LessOrEqual(t, spec.DF, 4)
			if spec.Method == gamlss.LocalRegression {
				assert.Contains(t, []float64{1.0 / 200, 2.0 / 200, 3.0 / 200, 4.0 / 200}, spec.Strength)
			} else {
				assert.GreaterOrEqual(t, spec.Strength, 5000.0)
				assert.LessOrEqual(t, spec.Strength, 10000.0)
			}
		}
	}

	// grid order is method outer, family inner
	assert.Equal(t, gamlss.PenalizedSpline, grid.Groups[0].Method)
	assert.Equal(t, "BCT", grid.Groups[0].Family)
	assert.Equal(t, "WEI", grid.Groups[6].Family)
	assert.Equal(t, gamlss.SmoothingSpline, grid.Groups[7].Method)
	assert.Equal(t, gamlss.LocalRegression, grid.Groups[20].Method)
}

func TestBuildGrid_Deterministic(t *testing.T) {
	a, err := BuildGrid(ModeSearch, 120, 0)
	require.NoError(t, err)
	b, err := BuildGrid(ModeSearch, 120, 0)
	require.NoError(t, err)
	assert.Equal(t, a.Specs(), b.Specs())
}

func TestBuildGrid_Errors(t *testing.T) {
	_, err := BuildGrid("grid", 10, 0)
	assert.Error(t, err)

	_, err = BuildGrid(ModeSearch, 0, 0)
	assert.Error(t, err)

	_, err = BuildGrid(ModeFixed, 10, -5)
	assert.Error(t, err)
}

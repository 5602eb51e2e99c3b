package gamlss

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func uniformX(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	x := make([]float64, n)
	for i := range x {
		x[i] = 1 + 17*rng.Float64()
	}
	return x
}

func ones(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return w
}

func TestBSplineBasis_PartitionOfUnity(t *testing.T) {
	tests := []struct {
		name  string
		knots []float64
	}{
		{"equal segments", equalKnots(1, 18, 20, 3)},
		{"quantile knots", quantileKnots(uniformX(100, 1), 20, 3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, x := range []float64{1, 1.5, 7.25, 12, 17.99, 18} {
				if x < tt.knots[3] || x > tt.knots[len(tt.knots)-4] {
					continue
				}
				b := bsplineBasis(x, tt.knots, 3, 0)
				assert.Len(t, b, len(tt.knots)-4)
				assert.InDelta(t, 1, floats.Sum(b), 1e-12, "x=%g", x)
			}
		})
	}
}

func TestBSplineBasis_SecondDerivativeOfLinearIsZero(t *testing.T) {
	knots := quantileKnots(uniformX(60, 2), 8, 3)
	k := len(knots) - 4

	// Greville abscissae reproduce f(x) = x
	greville := make([]float64, k)
	for i := range greville {
		greville[i] = (knots[i+1] + knots[i+2] + knots[i+3]) / 3
	}

	x := 0.5 * (knots[0] + knots[len(knots)-1])
	assert.InDelta(t, x, floats.Dot(bsplineBasis(x, knots, 3, 0), greville), 1e-10)
	assert.InDelta(t, 0, floats.Dot(bsplineBasis(x, knots, 3, 2), greville), 1e-8)

	omega := curvaturePenalty(knots, 3)
	c := mat.NewVecDense(k, greville)
	assert.InDelta(t, 0, mat.Inner(c, omega, c), 1e-6)
}

func TestDifferencePenalty(t *testing.T) {
	p := differencePenalty(5)
	assert.Equal(t, 1.0, p.At(0, 0))
	assert.Equal(t, 6.0, p.At(2, 2))
	assert.Equal(t, -2.0, p.At(0, 1))

	lin := mat.NewVecDense(5, []float64{1, 2, 3, 4, 5})
	assert.InDelta(t, 0, mat.Inner(lin, p, lin), 1e-12)
}

func TestSplineSmoothers_ReproduceLinear(t *testing.T) {
	x := uniformX(120, 3)
	z := make([]float64, len(x))
	for i, xi := range x {
		z[i] = 2 + 0.3*xi
	}

	for _, method := range []Method{PenalizedSpline, SmoothingSpline} {
		t.Run(string(method), func(t *testing.T) {
			s, err := NewSmoother(method, x, 5000, 0)
			require.NoError(t, err)

			fitted, edf, err := s.Fit(z, ones(len(x)))
			require.NoError(t, err)
			for i := range z {
				assert.InDelta(t, z[i], fitted[i], 1e-6)
			}
			assert.Greater(t, edf, 1.9)
		})
	}
}

func TestSplineSmoothers_EDF(t *testing.T) {
	x := uniformX(150, 4)
	rng := rand.New(rand.NewSource(5))
	z := make([]float64, len(x))
	for i, xi := range x {
		z[i] = math.Sin(xi/3) + 0.1*rng.NormFloat64()
	}

	for _, method := range []Method{PenalizedSpline, SmoothingSpline} {
		t.Run(string(method), func(t *testing.T) {
			loose, err := NewSmoother(method, x, 0.01, 0)
			require.NoError(t, err)
			tight, err := NewSmoother(method, x, 1e6, 0)
			require.NoError(t, err)

			_, edfLoose, err := loose.Fit(z, ones(len(x)))
			require.NoError(t, err)
			_, edfTight, err := tight.Fit(z, ones(len(x)))
			require.NoError(t, err)

			assert.Greater(t, edfLoose, edfTight)
			assert.GreaterOrEqual(t, edfTight, 2.0-1e-6)

			for _, df := range []int{1, 2, 3} {
				limited, err := NewSmoother(method, x, 0.01, df)
				require.NoError(t, err)
				_, edf, err := limited.Fit(z, ones(len(x)))
				require.NoError(t, err)
				assert.LessOrEqual(t, edf, float64(df)+2+1e-3, "df=%d", df)
			}
		})
	}
}

func TestLocalSmoother(t *testing.T) {
	x := uniformX(80, 6)
	z := make([]float64, len(x))
	for i, xi := range x {
		z[i] = -1 + 0.5*xi
	}

	s, err := NewSmoother(LocalRegression, x, 0.3, 1)
	require.NoError(t, err)
	fitted, edf, err := s.Fit(z, ones(len(x)))
	require.NoError(t, err)
	for i := range z {
		assert.InDelta(t, z[i], fitted[i], 1e-8)
	}
	assert.Greater(t, edf, 2.0)
	assert.Less(t, edf, float64(len(x)))

	quad, err := NewSmoother(LocalRegression, x, 0.3, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, quad.(*localSmoother).degree)
}

func TestLocalSmoother_SpanTooSmall(t *testing.T) {
	x := uniformX(50, 7)
	_, err := NewSmoother(LocalRegression, x, 1.0/50, 1)
	assert.Error(t, err)
}

func TestNewSmoother_Errors(t *testing.T) {
	_, err := NewSmoother(PenalizedSpline, []float64{3, 3, 3}, 10, 0)
	assert.Error(t, err)

	_, err = NewSmoother(Method("gam"), uniformX(10, 1), 10, 0)
	assert.Error(t, err)

	_, err = NewSmoother(PenalizedSpline, uniformX(10, 1), 0, 0)
	assert.Error(t, err)
}

func TestConstantSmoother(t *testing.T) {
	fitted, edf, err := constantSmoother{}.Fit([]float64{1, 2, 4}, []float64{1, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, 1.0, edf)
	assert.InDelta(t, 11.0/4, fitted[0], 1e-12)
	assert.Equal(t, fitted[0], fitted[2])

	_, _, err = constantSmoother{}.Fit([]float64{1}, []float64{0})
	assert.ErrorIs(t, err, ErrSingularSystem)
}

package gamlss

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Method identifies a smoothing method for the location and scale predictors
type Method string

const (
	PenalizedSpline Method = "pb"
	SmoothingSpline Method = "cs"
	LocalRegression Method = "lo"
)

// String returns the method identifier
func (m Method) String() string { return string(m) }

// Description returns a readable method name
func (m Method) Description() string {
	switch m {
	case PenalizedSpline:
		return "penalized B-spline"
	case SmoothingSpline:
		return "cubic smoothing spline"
	case LocalRegression:
		return "local regression"
	default:
		return string(m)
	}
}

// Valid reports whether m is a known method
func (m Method) Valid() bool {
	return m == PenalizedSpline || m == SmoothingSpline || m == LocalRegression
}

const (
	splineDegree       = 3
	pSplineSegments    = 20
	smoothingMaxKnots  = 20
	maxLambdaDoublings = 40.0
)

// ErrSingularSystem is returned when a weighted smoothing system cannot be
// factorised.
var ErrSingularSystem = errors.New("singular smoothing system")

// Smoother fits a working response against the covariate with prior weights
// and reports the effective degrees of freedom of the fit.
type Smoother interface {
	Fit(z, w []float64) (fitted []float64, edf float64, err error)
}

// NewSmoother builds the smoother for one predictor. strength is λ for the
// spline methods and the span for local regression.
func NewSmoother(method Method, x []float64, strength float64, df int) (Smoother, error) {
	if len(x) == 0 {
		return nil, errors.New("no covariate values")
	}
	lo, hi := floats.Min(x), floats.Max(x)
	if !(hi > lo) {
		return nil, errors.New("covariate has no spread")
	}

	switch method {
	case PenalizedSpline:
		knots := equalKnots(lo, hi, pSplineSegments, splineDegree)
		basis, spans := designMatrix(x, knots, splineDegree)
		return newSplineSmoother(basis, spans, differencePenalty(basis.RawMatrix().Cols), strength, df)
	case SmoothingSpline:
		if len(distinctSorted(x)) < 4 {
			return nil, errors.New("smoothing spline needs at least four distinct covariate values")
		}
		knots := quantileKnots(x, smoothingMaxKnots, splineDegree)
		basis, spans := designMatrix(x, knots, splineDegree)
		return newSplineSmoother(basis, spans, curvaturePenalty(knots, splineDegree), strength, df)
	case LocalRegression:
		return newLocalSmoother(x, strength, df)
	default:
		return nil, fmt.Errorf("unknown smoothing method %q", method)
	}
}

// splineSmoother solves (B'WB + λP)β = B'Wz.
type splineSmoother struct {
	basis   *mat.Dense
	spans   [][2]int
	penalty *mat.SymDense
	lambda  float64
}

func newSplineSmoother(basis *mat.Dense, spans [][2]int, penalty *mat.SymDense, strength float64, df int) (*splineSmoother, error) {
	if !(strength > 0) {
		return nil, fmt.Errorf("smoothing strength must be positive, got %g", strength)
	}
	s := &splineSmoother{basis: basis, spans: spans, penalty: penalty, lambda: strength}
	if df > 0 {
		if err := s.limitDF(float64(df) + 2); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// limitDF raises λ until the unit-weight fit uses at most target degrees of
// freedom. The linear part is unpenalised, so the target must exceed 2.
func (s *splineSmoother) limitDF(target float64) error {
	n, _ := s.basis.Dims()
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	btwb, _ := s.crossProducts(ones, ones)

	edfAt := func(lambda float64) (float64, error) {
		_, edf, err := s.solve(btwb, mat.NewVecDense(btwb.SymmetricDim(), nil), lambda)
		return edf, err
	}

	edf, err := edfAt(s.lambda)
	if err != nil {
		return err
	}
	if edf <= target {
		return nil
	}

	lo, hi := math.Log(s.lambda), math.Log(s.lambda)+maxLambdaDoublings
	for i := 0; i < 60; i++ {
		mid := 0.5 * (lo + hi)
		edf, err := edfAt(math.Exp(mid))
		if err != nil {
			return err
		}
		if edf > target {
			lo = mid
		} else {
			hi = mid
		}
	}
	s.lambda = math.Exp(hi)
	return nil
}

func (s *splineSmoother) crossProducts(z, w []float64) (*mat.SymDense, *mat.VecDense) {
	n, k := s.basis.Dims()
	btwb := mat.NewSymDense(k, nil)
	btwz := mat.NewVecDense(k, nil)
	for i := 0; i < n; i++ {
		row := s.basis.RawRowView(i)
		lo, hi := s.spans[i][0], s.spans[i][1]
		for a := lo; a < hi; a++ {
			wa := w[i] * row[a]
			btwz.SetVec(a, btwz.AtVec(a)+wa*z[i])
			for b := a; b < hi; b++ {
				btwb.SetSym(a, b, btwb.At(a, b)+wa*row[b])
			}
		}
	}
	return btwb, btwz
}

func (s *splineSmoother) solve(btwb *mat.SymDense, btwz *mat.VecDense, lambda float64) (*mat.VecDense, float64, error) {
	k := btwb.SymmetricDim()
	a := mat.NewSymDense(k, nil)
	a.ScaleSym(lambda, s.penalty)
	a.AddSym(a, btwb)

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, 0, ErrSingularSystem
	}

	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, btwz); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrSingularSystem, err)
	}

	var hat mat.Dense
	if err := chol.SolveTo(&hat, btwb); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrSingularSystem, err)
	}
	return &beta, mat.Trace(&hat), nil
}

// Fit implements Smoother
func (s *splineSmoother) Fit(z, w []float64) ([]float64, float64, error) {
	btwb, btwz := s.crossProducts(z, w)
	beta, edf, err := s.solve(btwb, btwz, s.lambda)
	if err != nil {
		return nil, 0, err
	}
	n, _ := s.basis.Dims()
	fitted := mat.NewVecDense(n, nil)
	fitted.MulVec(s.basis, beta)
	return fitted.RawVector().Data, edf, nil
}

// localSmoother is a tricube-weighted local polynomial fit with a nearest
// neighbour bandwidth.
type localSmoother struct {
	x         []float64
	degree    int
	neighbors [][]int
	kernel    [][]float64
}

func newLocalSmoother(x []float64, span float64, df int) (*localSmoother, error) {
	if !(span > 0) {
		return nil, fmt.Errorf("span must be positive, got %g", span)
	}
	degree := df
	if degree < 1 {
		degree = 1
	}
	if degree > 2 {
		degree = 2
	}

	n := len(x)
	q := int(math.Ceil(span*float64(n) - 1e-9))
	if q > n {
		q = n
	}
	if q < degree+1 {
		return nil, fmt.Errorf("span %g covers %d points, degree %d needs %d", span, q, degree, degree+1)
	}

	s := &localSmoother{
		x:         x,
		degree:    degree,
		neighbors: make([][]int, n),
		kernel:    make([][]float64, n),
	}

	order := make([]int, n)
	for i := range x {
		for j := range order {
			order[j] = j
		}
		xi := x[i]
		sort.SliceStable(order, func(a, b int) bool {
			return math.Abs(x[order[a]]-xi) < math.Abs(x[order[b]]-xi)
		})
		h := math.Abs(x[order[q-1]] - xi)

		idx := make([]int, 0, q)
		kw := make([]float64, 0, q)
		distinct := map[float64]struct{}{}
		for _, j := range order[:q] {
			var k float64
			if h > 0 {
				u := math.Abs(x[j]-xi) / h
				k = math.Pow(1-u*u*u, 3)
			} else {
				k = 1
			}
			if k <= 0 {
				continue
			}
			idx = append(idx, j)
			kw = append(kw, k)
			distinct[x[j]] = struct{}{}
		}
		if len(distinct) < degree+1 {
			return nil, fmt.Errorf("local fit at x=%g has %d distinct neighbours, degree %d needs %d",
				xi, len(distinct), degree, degree+1)
		}
		s.neighbors[i] = idx
		s.kernel[i] = kw
	}
	return s, nil
}

// Fit implements Smoother
func (s *localSmoother) Fit(z, w []float64) ([]float64, float64, error) {
	p := s.degree + 1
	fitted := make([]float64, len(s.x))
	var edf float64

	xtwx := mat.NewSymDense(p, nil)
	xtwz := mat.NewVecDense(p, nil)
	row := make([]float64, p)
	for i, xi := range s.x {
		xtwx.Zero()
		xtwz.Zero()
		var selfWeight float64
		for m, j := range s.neighbors[i] {
			wj := s.kernel[i][m] * w[j]
			if j == i {
				selfWeight = wj
			}
			d := s.x[j] - xi
			row[0] = 1
			for c := 1; c < p; c++ {
				row[c] = row[c-1] * d
			}
			for a := 0; a < p; a++ {
				xtwz.SetVec(a, xtwz.AtVec(a)+wj*row[a]*z[j])
				for b := a; b < p; b++ {
					xtwx.SetSym(a, b, xtwx.At(a, b)+wj*row[a]*row[b])
				}
			}
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(xtwx); !ok {
			return nil, 0, fmt.Errorf("%w at x=%g", ErrSingularSystem, xi)
		}
		var beta mat.VecDense
		if err := chol.SolveVecTo(&beta, xtwz); err != nil {
			return nil, 0, fmt.Errorf("%w at x=%g: %v", ErrSingularSystem, xi, err)
		}
		fitted[i] = beta.AtVec(0)

		// the row of observation i is (1, 0, ...), so its hat value is the
		// (0,0) element of the inverse scaled by its own weight
		var inv mat.SymDense
		if err := chol.InverseTo(&inv); err != nil {
			return nil, 0, fmt.Errorf("%w at x=%g: %v", ErrSingularSystem, xi, err)
		}
		edf += selfWeight * inv.At(0, 0)
	}
	return fitted, edf, nil
}

// constantSmoother fits a weighted mean; used for shape parameters.
type constantSmoother struct{}

// Fit implements Smoother
func (constantSmoother) Fit(z, w []float64) ([]float64, float64, error) {
	sw := floats.Sum(w)
	if !(sw > 0) {
		return nil, 0, ErrSingularSystem
	}
	mean := floats.Dot(z, w) / sw
	fitted := make([]float64, len(z))
	for i := range fitted {
		fitted[i] = mean
	}
	return fitted, 1, nil
}

package gamlss

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	apperrors "growthcurves/internal/errors"
)

const (
	minObservations = 5
	maxHalvings     = 5
	minWeight       = 1e-10
	maxWeight       = 1e10
)

// Spec identifies one candidate fit
type Spec struct {
	Family   string  `json:"family"`
	Method   Method  `json:"method"`
	Strength float64 `json:"strength"`
	DF       int     `json:"df"`
}

// String renders the spec compactly, e.g. "BCCG/pb(3000,df=0)"
func (s Spec) String() string {
	return fmt.Sprintf("%s/%s(%g,df=%d)", s.Family, s.Method, s.Strength, s.DF)
}

// Data is the read-only view of the observations a fit works on
type Data struct {
	X     []float64
	Y     []float64
	XName string
}

// Options bounds the RS iterations
type Options struct {
	MaxCycles int
	// Tolerance is the relative change in global deviance that ends the
	// iterations.
	Tolerance float64
}

// DefaultOptions returns a generous iteration budget and a 0.001 tolerance
func DefaultOptions() Options {
	return Options{MaxCycles: 200, Tolerance: 0.001}
}

// FailureReason says why a candidate did not converge
type FailureReason string

const (
	FailureNone            FailureReason = ""
	FailureSetup           FailureReason = "setup"
	FailureSupport         FailureReason = "outside_support"
	FailureDegenerate      FailureReason = "degenerate_response"
	FailureNonFinite       FailureReason = "non_finite"
	FailureNumerical       FailureReason = "numerical"
	FailureIterationBudget FailureReason = "iteration_budget"
	FailureNoProgress      FailureReason = "no_progress"
	FailureTimeout         FailureReason = "timeout"
)

// Result is the outcome of one candidate fit. A result that did not
// converge carries no fitted curves and an infinite AIC.
type Result struct {
	Spec           Spec
	Family         *Family
	Converged      bool
	Failure        FailureReason
	Err            error
	Cycles         int
	GlobalDeviance float64
	AIC            float64
	EDF            [NumParams]float64
	X              []float64
	// Fitted holds per-observation parameter values; nil for parameters
	// the family does not define.
	Fitted       [NumParams][]float64
	Coefficients map[string]float64

	gridX   []float64
	gridEta [NumParams][]float64
}

// TotalEDF sums the effective degrees of freedom over all parameters
func (r *Result) TotalEDF() float64 {
	return floats.Sum(r.EDF[:])
}

// ThetaAt returns the fitted parameters of observation i
func (r *Result) ThetaAt(i int) Theta {
	var th Theta
	for p, v := range r.Fitted {
		if v != nil {
			th[p] = v[i]
		}
	}
	return th
}

func (r *Result) fail(reason FailureReason, cause error) *Result {
	r.Converged = false
	r.Failure = reason
	r.Err = apperrors.NewFitConvergence(r.Spec.String(), string(reason), cause)
	r.AIC = math.Inf(1)
	r.Fitted = [NumParams][]float64{}
	r.Coefficients = nil
	r.gridX = nil
	return r
}

// Fit runs the RS algorithm for one candidate. It never returns an error:
// any failure, including a recovered panic or an expired context, is
// reported through Converged, Failure and Err.
func Fit(ctx context.Context, data Data, spec Spec, opts Options) (res *Result) {
	res = &Result{Spec: spec, GlobalDeviance: math.NaN(), AIC: math.Inf(1), X: data.X}
	defer func() {
		if r := recover(); r != nil {
			res.fail(FailureNumerical, fmt.Errorf("panic: %v", r))
		}
	}()

	if opts.MaxCycles <= 0 {
		opts.MaxCycles = DefaultOptions().MaxCycles
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultOptions().Tolerance
	}

	fam, err := Lookup(spec.Family)
	if err != nil {
		return res.fail(FailureSetup, err)
	}
	res.Family = fam

	if len(data.X) != len(data.Y) {
		return res.fail(FailureSetup, fmt.Errorf("covariate has %d values, response %d", len(data.X), len(data.Y)))
	}
	if len(data.Y) < minObservations {
		return res.fail(FailureSetup, fmt.Errorf("need at least %d observations, have %d", minObservations, len(data.Y)))
	}
	if !fam.Supports(data.Y) {
		return res.fail(FailureSupport, fmt.Errorf("%s requires finite positive responses", fam.Name))
	}
	if floats.Min(data.Y) == floats.Max(data.Y) {
		return res.fail(FailureDegenerate, errors.New("response is constant"))
	}

	st, err := newRSState(fam, data, spec)
	if err != nil {
		return res.fail(FailureSetup, err)
	}
	if reason, err := st.init(); err != nil {
		return res.fail(reason, err)
	}

	return res.run(ctx, st, opts, data.XName)
}

// run iterates RS cycles from the starting predictors in st. A cycle in
// which every parameter step is rejected ends the fit as no_progress, as
// does a fit that never accepts a step for some parameter.
func (r *Result) run(ctx context.Context, st *rsState, opts Options, xName string) *Result {
	fam := st.fam
	dev := st.deviance(st.theta)
	if !isFinite(dev) {
		return r.fail(FailureNonFinite, errors.New("initial deviance is not finite"))
	}

	var moved [NumParams]bool
	for cycle := 1; cycle <= opts.MaxCycles; cycle++ {
		if err := ctx.Err(); err != nil {
			return r.fail(FailureTimeout, err)
		}
		r.Cycles = cycle

		prev := dev
		accepted := 0
		for _, p := range fam.Params {
			next, ok, err := st.update(p, dev)
			if err != nil {
				if errors.Is(err, errNonFinite) {
					return r.fail(FailureNonFinite, err)
				}
				return r.fail(FailureNumerical, err)
			}
			if ok {
				accepted++
				moved[p] = true
				dev = next
			}
		}
		if accepted == 0 {
			return r.fail(FailureNoProgress, fmt.Errorf("no parameter step improved the deviance in cycle %d", cycle))
		}

		if math.Abs(prev-dev)/math.Max(math.Abs(dev), 1) < opts.Tolerance {
			r.Converged = true
			break
		}
	}

	if !r.Converged {
		return r.fail(FailureIterationBudget, fmt.Errorf("no convergence after %d cycles", opts.MaxCycles))
	}

	for _, p := range fam.Params {
		if !moved[p] {
			return r.fail(FailureNoProgress, fmt.Errorf("%s never left its starting value", p))
		}
		if !allFinite(st.theta[p]) {
			return r.fail(FailureNonFinite, fmt.Errorf("fitted %s is not finite", p))
		}
	}

	r.GlobalDeviance = dev
	r.EDF = st.edf
	r.AIC = dev + 2*r.TotalEDF()
	for _, p := range fam.Params {
		r.Fitted[p] = st.theta[p]
	}
	r.Coefficients = st.coefficients(xName)
	r.buildGrid(st.eta)
	return r
}

var errNonFinite = errors.New("non-finite working values")

// rsState carries the predictors of one fit between RS cycles.
type rsState struct {
	fam       *Family
	y         []float64
	x         []float64
	smoothers [NumParams]Smoother
	eta       [NumParams][]float64
	theta     [NumParams][]float64
	edf       [NumParams]float64
}

func newRSState(fam *Family, data Data, spec Spec) (*rsState, error) {
	st := &rsState{fam: fam, y: data.Y, x: data.X}

	smooth, err := NewSmoother(spec.Method, data.X, spec.Strength, spec.DF)
	if err != nil {
		return nil, fmt.Errorf("build %s smoother: %w", spec.Method, err)
	}
	for _, p := range fam.Params {
		if p == Mu || p == Sigma {
			st.smoothers[p] = smooth
		} else {
			st.smoothers[p] = constantSmoother{}
		}
	}
	return st, nil
}

func (st *rsState) init() (FailureReason, error) {
	start := st.fam.Start(st.y)
	n := len(st.y)
	for _, p := range st.fam.Params {
		v := start[p]
		link := st.fam.Links[p]
		if !isFinite(v) || (link == LogLink && v <= 0) {
			return FailureDegenerate, fmt.Errorf("invalid starting value %g for %s", v, p)
		}
		e := link.Eta(v)
		st.eta[p] = make([]float64, n)
		st.theta[p] = make([]float64, n)
		for i := 0; i < n; i++ {
			st.eta[p][i] = e
			st.theta[p][i] = v
		}
	}
	return FailureNone, nil
}

func (st *rsState) thetaAt(theta [NumParams][]float64, i int) Theta {
	var th Theta
	for _, p := range st.fam.Params {
		th[p] = theta[p][i]
	}
	return th
}

func (st *rsState) deviance(theta [NumParams][]float64) float64 {
	var ll float64
	for i, y := range st.y {
		ll += st.fam.LogPDF(y, st.thetaAt(theta, i))
	}
	return -2 * ll
}

// update performs one local scoring step for p with step halving. It
// reports the new global deviance and whether a step was accepted; a
// rejected step leaves the predictor and its edf untouched.
func (st *rsState) update(p Param, dev float64) (float64, bool, error) {
	link := st.fam.Links[p]
	n := len(st.y)
	z := make([]float64, n)
	w := make([]float64, n)

	for i, y := range st.y {
		th := st.thetaAt(st.theta, i)
		e := st.eta[p][i]
		h := 1e-3 * math.Max(1, math.Abs(e))

		up, down := th, th
		up[p] = link.Inverse(e + h)
		down[p] = link.Inverse(e - h)

		l0 := st.fam.LogPDF(y, th)
		lu := st.fam.LogPDF(y, up)
		ld := st.fam.LogPDF(y, down)
		d1 := (lu - ld) / (2 * h)
		d2 := (lu - 2*l0 + ld) / (h * h)
		if !isFinite(d1) || !isFinite(d2) {
			return dev, false, fmt.Errorf("%w: score for %s at observation %d", errNonFinite, p, i)
		}

		wi := -d2
		if !(wi > minWeight) {
			wi = math.Max(d1*d1, minWeight)
		}
		wi = math.Min(wi, maxWeight)
		w[i] = wi
		z[i] = e + d1/wi
	}

	fitted, edf, err := st.smoothers[p].Fit(z, w)
	if err != nil {
		return dev, false, fmt.Errorf("smooth %s: %w", p, err)
	}

	old := st.eta[p]
	cand := fitted
	trial := st.theta
	for halving := 0; halving <= maxHalvings; halving++ {
		values := make([]float64, n)
		for i, e := range cand {
			values[i] = link.Inverse(e)
		}
		trial[p] = values
		newDev := st.deviance(trial)
		if isFinite(newDev) && newDev <= dev+1e-9*math.Abs(dev) {
			st.eta[p] = cand
			st.theta[p] = values
			st.edf[p] = edf
			return newDev, true, nil
		}
		next := make([]float64, n)
		for i := range next {
			next[i] = 0.5 * (old[i] + cand[i])
		}
		cand = next
	}
	return dev, false, nil
}

func (st *rsState) coefficients(xName string) map[string]float64 {
	if xName == "" {
		xName = "x"
	}
	coef := make(map[string]float64)
	for _, p := range st.fam.Params {
		if _, ok := st.smoothers[p].(constantSmoother); ok {
			coef[p.String()+".(Intercept)"] = st.eta[p][0]
			continue
		}
		alpha, beta := stat.LinearRegression(st.x, st.eta[p], nil, false)
		coef[p.String()+".(Intercept)"] = alpha
		coef[p.String()+"."+xName] = beta
		coef[p.String()+".edf"] = st.edf[p]
	}
	return coef
}

// buildGrid records the predictors at each distinct covariate value for
// interpolation.
func (r *Result) buildGrid(eta [NumParams][]float64) {
	order := make([]int, len(r.X))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return r.X[order[a]] < r.X[order[b]] })

	r.gridX = r.gridX[:0]
	for p := range r.gridEta {
		r.gridEta[p] = nil
	}
	for _, i := range order {
		if len(r.gridX) > 0 && r.X[i] == r.gridX[len(r.gridX)-1] {
			continue
		}
		r.gridX = append(r.gridX, r.X[i])
		for _, p := range r.Family.Params {
			r.gridEta[p] = append(r.gridEta[p], eta[p][i])
		}
	}
}

// DistinctX returns the distinct covariate values in ascending order
func (r *Result) DistinctX() []float64 {
	return append([]float64(nil), r.gridX...)
}

// Predict returns the fitted parameters at x, interpolating linearly on
// the predictor scale between distinct covariate values and holding the
// end values outside the observed range.
func (r *Result) Predict(x float64) (Theta, error) {
	var th Theta
	if !r.Converged || len(r.gridX) == 0 {
		return th, errors.New("model has no fitted curves")
	}
	g := r.gridX
	j := sort.SearchFloat64s(g, x)
	for _, p := range r.Family.Params {
		e := r.gridEta[p]
		var v float64
		switch {
		case j == 0:
			v = e[0]
		case j >= len(g):
			v = e[len(g)-1]
		case g[j] == x:
			v = e[j]
		default:
			t := (x - g[j-1]) / (g[j] - g[j-1])
			v = e[j-1] + t*(e[j]-e[j-1])
		}
		th[p] = r.Family.Links[p].Inverse(v)
	}
	return th, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if !isFinite(x) {
			return false
		}
	}
	return true
}

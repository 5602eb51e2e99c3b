package gamlss

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Family is a parametric response distribution with up to four parameters.
// Densities, CDFs and quantiles are evaluated at a single parameter vector;
// covariate dependence lives in the fitter.
type Family struct {
	Name        string
	Description string
	Params      []Param
	Links       [NumParams]Link
	// Positive families only accept strictly positive responses.
	Positive bool

	logPDF   func(y float64, th Theta) float64
	cdf      func(y float64, th Theta) float64
	quantile func(p float64, th Theta) float64
	start    func(y []float64) Theta
}

// HasParam reports whether the family defines p
func (f *Family) HasParam(p Param) bool {
	for _, q := range f.Params {
		if q == p {
			return true
		}
	}
	return false
}

// LogPDF returns the log density of y
func (f *Family) LogPDF(y float64, th Theta) float64 { return f.logPDF(y, th) }

// CDF returns P(Y <= y)
func (f *Family) CDF(y float64, th Theta) float64 { return f.cdf(y, th) }

// Quantile returns the response value with cumulative probability p
func (f *Family) Quantile(p float64, th Theta) float64 { return f.quantile(p, th) }

// Start returns initial parameter values for response y
func (f *Family) Start(y []float64) Theta { return f.start(y) }

// Supports reports whether every response lies inside the family support
func (f *Family) Supports(y []float64) bool {
	for _, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
		if f.Positive && v <= 0 {
			return false
		}
	}
	return true
}

var families = map[string]*Family{}

func register(f *Family) {
	families[f.Name] = f
}

// Lookup returns the family registered under name
func Lookup(name string) (*Family, error) {
	f, ok := families[name]
	if !ok {
		return nil, fmt.Errorf("unknown distribution family %q", name)
	}
	return f, nil
}

// FamilyNames lists the registered families in name order
func FamilyNames() []string {
	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	register(normalFamily())
	register(gammaFamily())
	register(inverseGaussianFamily())
	register(weibullFamily())
	register(boxCoxFamily("BCCG", "Box-Cox Cole and Green", normalKernel{}, false))
	register(boxCoxFamily("BCT", "Box-Cox t", studentKernel{}, true))
	register(boxCoxFamily("BCPE", "Box-Cox power exponential", powerExpKernel{}, true))
}

// meanCV returns the sample mean and coefficient of variation
func meanCV(y []float64) (float64, float64) {
	mean, sd := stat.MeanStdDev(y, nil)
	if mean == 0 {
		return mean, math.NaN()
	}
	return mean, sd / math.Abs(mean)
}

func normalFamily() *Family {
	return &Family{
		Name:        "NO",
		Description: "Normal",
		Params:      []Param{Mu, Sigma},
		Links:       [NumParams]Link{IdentityLink, LogLink},
		logPDF: func(y float64, th Theta) float64 {
			return distuv.Normal{Mu: th[Mu], Sigma: th[Sigma]}.LogProb(y)
		},
		cdf: func(y float64, th Theta) float64 {
			return distuv.Normal{Mu: th[Mu], Sigma: th[Sigma]}.CDF(y)
		},
		quantile: func(p float64, th Theta) float64 {
			return distuv.Normal{Mu: th[Mu], Sigma: th[Sigma]}.Quantile(p)
		},
		start: func(y []float64) Theta {
			mean, sd := stat.MeanStdDev(y, nil)
			return Theta{mean, sd, 0, 0}
		},
	}
}

// gammaFamily uses the mean/CV parametrisation: shape 1/σ², scale μσ².
func gammaFamily() *Family {
	dist := func(th Theta) distuv.Gamma {
		s2 := th[Sigma] * th[Sigma]
		return distuv.Gamma{Alpha: 1 / s2, Beta: 1 / (th[Mu] * s2)}
	}
	return &Family{
		Name:        "GA",
		Description: "Gamma",
		Params:      []Param{Mu, Sigma},
		Links:       [NumParams]Link{LogLink, LogLink},
		Positive:    true,
		logPDF:      func(y float64, th Theta) float64 { return dist(th).LogProb(y) },
		cdf:         func(y float64, th Theta) float64 { return dist(th).CDF(y) },
		quantile:    func(p float64, th Theta) float64 { return dist(th).Quantile(p) },
		start: func(y []float64) Theta {
			mean, cv := meanCV(y)
			return Theta{mean, cv, 0, 0}
		},
	}
}

// inverseGaussianFamily has variance σ²μ³.
func inverseGaussianFamily() *Family {
	cdf := func(y float64, th Theta) float64 {
		if y <= 0 {
			return 0
		}
		mu, sigma := th[Mu], th[Sigma]
		r := 1 / (sigma * math.Sqrt(y))
		lower := distuv.UnitNormal.CDF(r * (y/mu - 1))
		// exp(2/(μσ²)) Φ(-r(y/μ+1)) computed on the log scale to avoid overflow
		upper := math.Exp(2/(mu*sigma*sigma) + logNormalUpperTail(r*(y/mu+1)))
		return clamp01(lower + upper)
	}
	return &Family{
		Name:        "IG",
		Description: "Inverse Gaussian",
		Params:      []Param{Mu, Sigma},
		Links:       [NumParams]Link{LogLink, LogLink},
		Positive:    true,
		logPDF: func(y float64, th Theta) float64 {
			if y <= 0 {
				return math.Inf(-1)
			}
			mu, sigma := th[Mu], th[Sigma]
			d := y - mu
			return -0.5*math.Log(2*math.Pi) - math.Log(sigma) - 1.5*math.Log(y) -
				d*d/(2*mu*mu*sigma*sigma*y)
		},
		cdf: cdf,
		quantile: func(p float64, th Theta) float64 {
			return invertCDF(func(y float64) float64 { return cdf(y, th) }, p, th[Mu])
		},
		start: func(y []float64) Theta {
			mean, sd := stat.MeanStdDev(y, nil)
			return Theta{mean, sd / math.Sqrt(mean*mean*mean), 0, 0}
		},
	}
}

// weibullFamily uses μ as the scale and σ as the shape.
func weibullFamily() *Family {
	dist := func(th Theta) distuv.Weibull {
		return distuv.Weibull{K: th[Sigma], Lambda: th[Mu]}
	}
	return &Family{
		Name:        "WEI",
		Description: "Weibull",
		Params:      []Param{Mu, Sigma},
		Links:       [NumParams]Link{LogLink, LogLink},
		Positive:    true,
		logPDF: func(y float64, th Theta) float64 {
			if y <= 0 {
				return math.Inf(-1)
			}
			return dist(th).LogProb(y)
		},
		cdf:      func(y float64, th Theta) float64 { return dist(th).CDF(y) },
		quantile: func(p float64, th Theta) float64 { return dist(th).Quantile(p) },
		start: func(y []float64) Theta {
			mean, cv := meanCV(y)
			shape := 1.2 / cv
			if math.IsNaN(shape) || math.IsInf(shape, 0) {
				shape = math.NaN()
			} else {
				shape = math.Min(math.Max(shape, 0.2), 50)
			}
			return Theta{mean, shape, 0, 0}
		},
	}
}

// logNormalUpperTail returns log Φ(-a) with an asymptotic expansion far in
// the tail where the CDF underflows.
func logNormalUpperTail(a float64) float64 {
	if a < 30 {
		return math.Log(distuv.UnitNormal.CDF(-a))
	}
	return -0.5*a*a - math.Log(a) - 0.5*math.Log(2*math.Pi) + math.Log1p(-1/(a*a))
}

// invertCDF finds y > 0 with cdf(y) = p by bracketing on the log scale and
// bisecting.
func invertCDF(cdf func(float64) float64, p, guess float64) float64 {
	if p <= 0 {
		return 0
	}
	if p >= 1 {
		return math.Inf(1)
	}
	if guess <= 0 || math.IsNaN(guess) {
		guess = 1
	}
	lo, hi := math.Log(guess), math.Log(guess)
	for i := 0; i < 200 && cdf(math.Exp(lo)) > p; i++ {
		lo -= 1
	}
	for i := 0; i < 200 && cdf(math.Exp(hi)) < p; i++ {
		hi += 1
	}
	for i := 0; i < 200 && hi-lo > 1e-12; i++ {
		mid := 0.5 * (lo + hi)
		if cdf(math.Exp(mid)) < p {
			lo = mid
		} else {
			hi = mid
		}
	}
	return math.Exp(0.5 * (lo + hi))
}

func clamp01(p float64) float64 {
	return math.Min(math.Max(p, 0), 1)
}

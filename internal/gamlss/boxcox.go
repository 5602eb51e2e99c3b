package gamlss

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// nuZero is the |ν| below which the Box-Cox transform is taken as the log.
const nuZero = 1e-7

// kernel is the standardised symmetric distribution of the Box-Cox z score.
// tau is ignored by kernels without a shape parameter.
type kernel interface {
	logPDF(z, tau float64) float64
	cdf(z, tau float64) float64
	quantile(p, tau float64) float64
}

type normalKernel struct{}

func (normalKernel) logPDF(z, _ float64) float64   { return distuv.UnitNormal.LogProb(z) }
func (normalKernel) cdf(z, _ float64) float64      { return distuv.UnitNormal.CDF(z) }
func (normalKernel) quantile(p, _ float64) float64 { return distuv.UnitNormal.Quantile(p) }

// studentKernel is a standard t with τ degrees of freedom.
type studentKernel struct{}

func (studentKernel) dist(tau float64) distuv.StudentsT {
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: tau}
}

func (k studentKernel) logPDF(z, tau float64) float64 {
	if tau > 1e6 {
		return distuv.UnitNormal.LogProb(z)
	}
	return k.dist(tau).LogProb(z)
}

func (k studentKernel) cdf(z, tau float64) float64 {
	if tau > 1e6 {
		return distuv.UnitNormal.CDF(z)
	}
	return k.dist(tau).CDF(z)
}

func (k studentKernel) quantile(p, tau float64) float64 {
	if tau > 1e6 {
		return distuv.UnitNormal.Quantile(p)
	}
	return k.dist(tau).Quantile(p)
}

// powerExpKernel is the power exponential distribution standardised to unit
// variance; τ = 2 gives the normal.
type powerExpKernel struct{}

func (powerExpKernel) logC(tau float64) float64 {
	lg1, _ := math.Lgamma(1 / tau)
	lg3, _ := math.Lgamma(3 / tau)
	return 0.5 * (-2/tau*math.Ln2 + lg1 - lg3)
}

func (k powerExpKernel) logPDF(z, tau float64) float64 {
	logC := k.logC(tau)
	lg1, _ := math.Lgamma(1 / tau)
	return math.Log(tau) - logC - (1+1/tau)*math.Ln2 - lg1 -
		0.5*math.Pow(math.Abs(z)/math.Exp(logC), tau)
}

func (k powerExpKernel) cdf(z, tau float64) float64 {
	s := 0.5 * math.Pow(math.Abs(z)/math.Exp(k.logC(tau)), tau)
	g := distuv.Gamma{Alpha: 1 / tau, Beta: 1}.CDF(s)
	if z < 0 {
		return 0.5 * (1 - g)
	}
	return 0.5 * (1 + g)
}

func (k powerExpKernel) quantile(p, tau float64) float64 {
	if p == 0.5 {
		return 0
	}
	s := distuv.Gamma{Alpha: 1 / tau, Beta: 1}.Quantile(math.Abs(2*p - 1))
	z := math.Exp(k.logC(tau)) * math.Pow(2*s, 1/tau)
	if p < 0.5 {
		return -z
	}
	return z
}

// boxCoxFamily builds a family whose Box-Cox transformed response
// z = ((y/μ)^ν - 1)/(νσ) follows the kernel, truncated so y stays positive.
func boxCoxFamily(name, description string, k kernel, withTau bool) *Family {
	params := []Param{Mu, Sigma, Nu}
	if withTau {
		params = append(params, Tau)
	}

	zScore := func(y float64, th Theta) float64 {
		mu, sigma, nu := th[Mu], th[Sigma], th[Nu]
		if math.Abs(nu) < nuZero {
			return math.Log(y/mu) / sigma
		}
		return (math.Pow(y/mu, nu) - 1) / (nu * sigma)
	}
	// truncation bound a = 1/(σ|ν|); F(a) is 1 when ν is zero
	kernelMass := func(th Theta) float64 {
		if math.Abs(th[Nu]) < nuZero {
			return 1
		}
		return k.cdf(1/(th[Sigma]*math.Abs(th[Nu])), th[Tau])
	}

	f := &Family{
		Name:        name,
		Description: description,
		Params:      params,
		Links:       [NumParams]Link{LogLink, LogLink, IdentityLink, LogLink},
		Positive:    true,
	}

	f.logPDF = func(y float64, th Theta) float64 {
		if y <= 0 {
			return math.Inf(-1)
		}
		mu, sigma, nu := th[Mu], th[Sigma], th[Nu]
		z := zScore(y, th)
		return (nu-1)*math.Log(y) - nu*math.Log(mu) - math.Log(sigma) +
			k.logPDF(z, th[Tau]) - math.Log(kernelMass(th))
	}

	f.cdf = func(y float64, th Theta) float64 {
		if y <= 0 {
			return 0
		}
		z := zScore(y, th)
		mass := kernelMass(th)
		switch {
		case th[Nu] > nuZero:
			return clamp01((k.cdf(z, th[Tau]) - (1 - mass)) / mass)
		case th[Nu] < -nuZero:
			return clamp01(k.cdf(z, th[Tau]) / mass)
		default:
			return k.cdf(z, th[Tau])
		}
	}

	f.quantile = func(p float64, th Theta) float64 {
		mu, sigma, nu := th[Mu], th[Sigma], th[Nu]
		mass := kernelMass(th)
		var z float64
		if nu <= 0 {
			z = k.quantile(p*mass, th[Tau])
		} else {
			z = k.quantile(1-(1-p)*mass, th[Tau])
		}
		if math.Abs(nu) < nuZero {
			return mu * math.Exp(sigma*z)
		}
		return mu * math.Pow(1+sigma*nu*z, 1/nu)
	}

	f.start = func(y []float64) Theta {
		mean, cv := meanCV(y)
		th := Theta{mean, cv, 1, 0}
		switch name {
		case "BCT":
			th[Tau] = 10
		case "BCPE":
			th[Tau] = 2
		}
		return th
	}

	return f
}

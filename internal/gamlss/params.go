package gamlss

import "math"

// Param identifies one distribution parameter
type Param int

const (
	Mu Param = iota
	Sigma
	Nu
	Tau
)

// NumParams is the largest number of parameters a family can carry
const NumParams = 4

// AllParams lists parameters in RS update order
var AllParams = [NumParams]Param{Mu, Sigma, Nu, Tau}

// String returns the conventional parameter name
func (p Param) String() string {
	switch p {
	case Mu:
		return "mu"
	case Sigma:
		return "sigma"
	case Nu:
		return "nu"
	case Tau:
		return "tau"
	default:
		return "unknown"
	}
}

// Theta holds one value per parameter; unused slots are ignored
type Theta [NumParams]float64

// Link maps a parameter onto the linear predictor scale
type Link int

const (
	IdentityLink Link = iota
	LogLink
)

// String returns the link name
func (l Link) String() string {
	if l == LogLink {
		return "log"
	}
	return "identity"
}

// Eta maps a parameter value onto the predictor scale
func (l Link) Eta(theta float64) float64 {
	if l == LogLink {
		return math.Log(theta)
	}
	return theta
}

// Inverse maps a predictor value back onto the parameter scale
func (l Link) Inverse(eta float64) float64 {
	if l == LogLink {
		return math.Exp(eta)
	}
	return eta
}

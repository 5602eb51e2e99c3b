// Package gamlss fits location-scale-shape regression models in which the
// location and scale of a response distribution are smooth functions of a
// single covariate and the shape parameters are constants.
//
// # Families
//
// Seven families are registered, each exposing a log-density, CDF and
// quantile function over its parameters:
//
//   - NO: normal (mu identity, sigma log)
//   - GA: gamma with mean mu and coefficient of variation sigma
//   - IG: inverse Gaussian with variance sigma^2 mu^3
//   - WEI: Weibull with scale mu and shape sigma
//   - BCCG, BCT, BCPE: Box-Cox transformed normal, t and power exponential
//     kernels, truncated to the positive half line
//
// # Smoothers
//
//   - pb: cubic B-splines on equal segments with a difference penalty
//   - cs: cubic B-splines on quantile knots with a curvature penalty
//   - lo: tricube weighted local polynomial regression
//
// # Fitting
//
// Fit runs the RS algorithm: each cycle updates every parameter in turn
// with a local scoring step, halving the step when the global deviance
// rises. A fit that cannot finish returns a Result whose Converged flag is
// false and whose Failure names the reason; Fit itself never fails.
//
//	res := gamlss.Fit(ctx, gamlss.Data{X: age, Y: value, XName: "age"},
//	    gamlss.Spec{Family: "BCCG", Method: gamlss.PenalizedSpline, Strength: 3000},
//	    gamlss.DefaultOptions())
//	if !res.Converged {
//	    return res.Err
//	}
//	q97 := res.Family.Quantile(0.97, res.ThetaAt(0))
package gamlss

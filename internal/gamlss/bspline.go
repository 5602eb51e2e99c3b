package gamlss

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// bsplineBasis evaluates the deriv-th derivative of every B-spline of the
// given degree on knots at x. The result has len(knots)-degree-1 entries.
func bsplineBasis(x float64, knots []float64, degree, deriv int) []float64 {
	base := degree - deriv
	b := make([]float64, len(knots)-1)
	last := -1
	for i := 0; i < len(knots)-1; i++ {
		if knots[i] < knots[i+1] {
			last = i
			if x >= knots[i] && x < knots[i+1] {
				b[i] = 1
			}
		}
	}
	// close the final non-empty interval on the right
	if last >= 0 && x == knots[last+1] {
		b[last] = 1
	}

	for d := 1; d <= base; d++ {
		for i := 0; i < len(knots)-1-d; i++ {
			var v float64
			if den := knots[i+d] - knots[i]; den > 0 {
				v += (x - knots[i]) / den * b[i]
			}
			if den := knots[i+d+1] - knots[i+1]; den > 0 {
				v += (knots[i+d+1] - x) / den * b[i+1]
			}
			b[i] = v
		}
	}
	b = b[:len(knots)-base-1]

	for p := base + 1; p <= degree; p++ {
		nb := make([]float64, len(knots)-p-1)
		for i := range nb {
			var v float64
			if den := knots[i+p] - knots[i]; den > 0 {
				v += b[i] / den
			}
			if den := knots[i+p+1] - knots[i+1]; den > 0 {
				v -= b[i+1] / den
			}
			nb[i] = float64(p) * v
		}
		b = nb
	}
	return b
}

// equalKnots returns knots for nseg equal segments on [lo, hi] extended by
// degree segments on each side.
func equalKnots(lo, hi float64, nseg, degree int) []float64 {
	dx := (hi - lo) / float64(nseg)
	knots := make([]float64, nseg+2*degree+1)
	for j := range knots {
		knots[j] = lo + float64(j-degree)*dx
	}
	return knots
}

// quantileKnots returns clamped knots with interior knots at quantiles of
// the distinct values of x.
func quantileKnots(x []float64, maxInterior, degree int) []float64 {
	u := distinctSorted(x)
	m := len(u) - 2
	if m > maxInterior {
		m = maxInterior
	}
	if m < 0 {
		m = 0
	}
	lo, hi := u[0], u[len(u)-1]

	knots := make([]float64, 0, m+2*(degree+1))
	for i := 0; i <= degree; i++ {
		knots = append(knots, lo)
	}
	for i := 1; i <= m; i++ {
		pos := float64(i) / float64(m+1) * float64(len(u)-1)
		j := int(math.Floor(pos))
		frac := pos - float64(j)
		k := u[j]
		if j+1 < len(u) {
			k += frac * (u[j+1] - u[j])
		}
		knots = append(knots, k)
	}
	for i := 0; i <= degree; i++ {
		knots = append(knots, hi)
	}
	return knots
}

// designMatrix evaluates the basis at every x and records the span of
// non-zero columns of each row.
func designMatrix(x, knots []float64, degree int) (*mat.Dense, [][2]int) {
	k := len(knots) - degree - 1
	basis := mat.NewDense(len(x), k, nil)
	spans := make([][2]int, len(x))
	for i, xi := range x {
		row := bsplineBasis(xi, knots, degree, 0)
		lo, hi := k, 0
		for j, v := range row {
			if v != 0 {
				if j < lo {
					lo = j
				}
				hi = j + 1
			}
		}
		if hi < lo {
			lo, hi = 0, 0
		}
		basis.SetRow(i, row)
		spans[i] = [2]int{lo, hi}
	}
	return basis, spans
}

// differencePenalty returns D'D for the second-order difference matrix D.
func differencePenalty(k int) *mat.SymDense {
	d := mat.NewDense(k-2, k, nil)
	for i := 0; i < k-2; i++ {
		d.Set(i, i, 1)
		d.Set(i, i+1, -2)
		d.Set(i, i+2, 1)
	}
	p := mat.NewSymDense(k, nil)
	p.SymOuterK(1, d.T())
	return p
}

// curvaturePenalty returns the integrated product of basis second
// derivatives. For cubic bases the second derivative is linear on each
// knot interval, so Simpson's rule per interval is exact.
func curvaturePenalty(knots []float64, degree int) *mat.SymDense {
	k := len(knots) - degree - 1
	omega := mat.NewSymDense(k, nil)
	for j := 0; j < len(knots)-1; j++ {
		a, b := knots[j], knots[j+1]
		h := b - a
		if h <= 0 {
			continue
		}
		eps := 1e-9 * h
		pts := [3]float64{a + eps, 0.5 * (a + b), b - eps}
		wts := [3]float64{h / 6, 4 * h / 6, h / 6}
		for q, t := range pts {
			d2 := bsplineBasis(t, knots, degree, 2)
			for r := 0; r < k; r++ {
				if d2[r] == 0 {
					continue
				}
				for c := r; c < k; c++ {
					if d2[c] != 0 {
						omega.SetSym(r, c, omega.At(r, c)+wts[q]*d2[r]*d2[c])
					}
				}
			}
		}
	}
	return omega
}

func distinctSorted(x []float64) []float64 {
	s := append([]float64(nil), x...)
	sort.Float64s(s)
	out := s[:0]
	for i, v := range s {
		if i == 0 || v != s[i-1] {
			out = append(out, v)
		}
	}
	return out
}

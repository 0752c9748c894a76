// Package smoothing fits a locally weighted regression (LOWESS) through the
// close series, falling back to a simple moving average when the fit fails.
package smoothing

import (
	"errors"
	"fmt"
	"math"
)

// ErrSmoothingFailed is returned when LOWESS cannot produce a finite fit.
var ErrSmoothingFailed = errors.New("smoothing failed")

// DefaultFrac is the share of points used in each local regression.
const DefaultFrac = 0.1

// Lowess fits y against x with a single pass (no robustness iterations)
// and returns the fitted values in input order. x must be sorted ascending.
//
// Each point's neighbourhood is its k = floor(frac·n) nearest neighbours,
// weighted with the tricube kernel over the neighbourhood radius.
func Lowess(x, y []float64, frac float64) ([]float64, error) {
	n := len(x)
	if n != len(y) {
		return nil, fmt.Errorf("%w: x has %d points, y has %d", ErrSmoothingFailed, n, len(y))
	}
	if frac <= 0 || frac > 1 {
		return nil, fmt.Errorf("%w: frac %.4f out of (0,1]", ErrSmoothingFailed, frac)
	}
	k := int(frac*float64(n) + 1e-10)
	if k < 2 {
		return nil, fmt.Errorf("%w: neighbourhood of %d points from n=%d", ErrSmoothingFailed, k, n)
	}

	fit := make([]float64, n)
	w := make([]float64, k)
	span := x[n-1] - x[0]
	left, right := 0, k // neighbourhood is x[left:right]

	for i := 0; i < n; i++ {
		// Slide the window right while the far-left point is farther away
		// than the next point on the right.
		for right < n && x[i]-x[left] > x[right]-x[i] {
			left++
			right++
		}
		radius := math.Max(x[i]-x[left], x[right-1]-x[i])

		sumW := 0.0
		for j := left; j < right; j++ {
			w[j-left] = tricube(x[j], x[i], radius)
			sumW += w[j-left]
		}
		if sumW <= 0 {
			fit[i] = y[i]
			continue
		}
		for j := range w {
			w[j] /= sumW
		}

		fit[i] = localFit(x[left:right], y[left:right], w, x[i], span)
		if math.IsNaN(fit[i]) || math.IsInf(fit[i], 0) {
			return nil, fmt.Errorf("%w: non-finite fit at index %d", ErrSmoothingFailed, i)
		}
	}
	return fit, nil
}

func tricube(xj, xi, radius float64) float64 {
	if radius <= 0 {
		return 1
	}
	d := math.Abs(xj-xi) / radius
	switch {
	case d <= 0.001:
		return 1
	case d >= 0.999:
		return 0
	}
	c := 1 - d*d*d
	return c * c * c
}

// localFit evaluates the weighted linear regression at xi. Weights sum to 1.
// When the weighted spread of x is negligible relative to span, it returns
// the weighted mean of y instead.
func localFit(xs, ys, w []float64, xi, span float64) float64 {
	meanX := 0.0
	for j, xv := range xs {
		meanX += w[j] * xv
	}
	sqDev := 0.0
	for j, xv := range xs {
		d := xv - meanX
		sqDev += w[j] * d * d
	}

	out := 0.0
	tol := 0.001 * span
	if sqDev > tol*tol {
		b := xi - meanX
		for j, xv := range xs {
			out += w[j] * (1 + b*(xv-meanX)/sqDev) * ys[j]
		}
		return out
	}
	for j, yv := range ys {
		out += w[j] * yv
	}
	return out
}

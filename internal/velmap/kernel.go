package velmap

import "math"

// Projected SPH deposition uses the 2D M4 cubic spline with support 2h,
// normalized so its integral over the plane is one. Both the quantity and
// the weight image use the same kernel, so the normalization cancels in the
// velocity ratio but keeps the weight image a true surface-density map.

// kernel2DNorm is 10 / (7 pi), the 2D cubic spline normalization.
const kernel2DNorm = 10.0 / (7.0 * math.Pi)

// cubicSpline2D evaluates the projected kernel at distance r for smoothing
// length h. Zero outside r >= 2h.
func cubicSpline2D(r, h float64) float64 {
	q := r / h
	switch {
	case q < 1:
		return kernel2DNorm / (h * h) * (1 - 1.5*q*q + 0.75*q*q*q)
	case q < 2:
		d := 2 - q
		return kernel2DNorm / (h * h) * 0.25 * d * d * d
	}
	return 0
}

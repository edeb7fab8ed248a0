// Package pafit fits the kinematic position angle of a velocity map by
// grid search: for each trial angle the field is bi-antisymmetrized about
// the corresponding axes and the best angle minimizes the residuals, the
// method of Krajnovic et al. (2006), Appendix C.
package pafit

import (
	"errors"
	"math"
	"sort"

	"github.com/astrokit/velmaps/internal/velmap"
)

// ErrTooFewPixels indicates the map has too few valid pixels to fit.
var ErrTooFewPixels = errors.New("pafit: too few valid pixels")

const (
	// angStep is the grid-search resolution in degrees.
	angStep = 0.5

	// minPixels is the smallest usable number of valid map pixels.
	minPixels = 16
)

// Result is the fitted kinematic position angle. AngBest is measured
// counterclockwise from the image +y axis to the kinematic major axis,
// in [0, 180); equivalently it is the angle of the zero-velocity line
// from the +x axis. VSyst is the systemic velocity subtracted before the
// fit, and AngErr the 3-sigma angular uncertainty.
type Result struct {
	AngBest float64 // degrees
	AngErr  float64 // degrees
	VSyst   float64 // km/s
}

// Fit runs the grid search over the map's valid (masked-in, finite) pixels.
func Fit(m *velmap.VelocityMap) (Result, error) {
	f := newField(m)
	if len(f.xs) < minPixels {
		return Result{}, ErrTooFewPixels
	}

	vsyst := median(f.vs)
	for i := range f.vs {
		f.vs[i] -= vsyst
	}
	f.centerValues = vsyst

	nAng := int(180 / angStep)
	chi2 := make([]float64, nAng)
	best := 0
	for i := 0; i < nAng; i++ {
		chi2[i] = f.chi2(float64(i) * angStep * math.Pi / 180)
		if chi2[i] < chi2[best] {
			best = i
		}
	}

	// 3-sigma error: the half-width of the contiguous angle range with
	// chi2 below the minimum + 9, never below the step resolution.
	limit := chi2[best] + 9
	lo, hi := best, best
	for lo > 0 && chi2[lo-1] < limit {
		lo--
	}
	for hi < nAng-1 && chi2[hi+1] < limit {
		hi++
	}
	angErr := float64(hi-lo) * angStep / 2
	if angErr < angStep/2 {
		angErr = angStep / 2
	}
	if angErr > 45 {
		angErr = 45
	}

	return Result{
		AngBest: float64(best) * angStep,
		AngErr:  angErr,
		VSyst:   vsyst,
	}, nil
}

// field is a sampled view of a velocity map: the valid pixel coordinates
// in kpc and a bilinear interpolator over the raw grid.
type field struct {
	m            *velmap.VelocityMap
	xs, ys, vs   []float64
	centerValues float64
}

func newField(m *velmap.VelocityMap) *field {
	f := &field{m: m}
	for iy := 0; iy < m.NPixels; iy++ {
		for ix := 0; ix < m.NPixels; ix++ {
			if !m.Mask[iy][ix] || math.IsNaN(m.Data[iy][ix]) {
				continue
			}
			x, y := m.PixelToKpc(ix, iy)
			f.xs = append(f.xs, x)
			f.ys = append(f.ys, y)
			f.vs = append(f.vs, m.Data[iy][ix])
		}
	}
	return f
}

// chi2 evaluates the residual between the field and its bi-antisymmetrized
// model for a major axis at angle a (radians, from +y).
func (f *field) chi2(a float64) float64 {
	sin, cos := math.Sin(a), math.Cos(a)

	sum := 0.0
	n := 0
	for i := range f.xs {
		x, y, v := f.xs[i], f.ys[i], f.vs[i]

		// Rotate into the frame with x' along the major axis.
		xp := -x*sin + y*cos
		yp := x*cos + y*sin

		model, ok := f.symmetrized(xp, yp, sin, cos)
		if !ok {
			continue
		}
		d := v - model
		sum += d * d
		n++
	}
	if n == 0 {
		return math.Inf(1)
	}
	return sum
}

// symmetrized averages the four mirror samples of a bi-antisymmetric disk:
// v(x', y') = v(x', -y') = -v(-x', y') = -v(-x', -y').
func (f *field) symmetrized(xp, yp, sin, cos float64) (float64, bool) {
	mirrors := [4][3]float64{
		{xp, yp, 1},
		{xp, -yp, 1},
		{-xp, yp, -1},
		{-xp, -yp, -1},
	}

	sum := 0.0
	n := 0
	for _, mr := range mirrors {
		// Back to sky-plane coordinates.
		x := -mr[0]*sin + mr[1]*cos
		y := mr[0]*cos + mr[1]*sin
		if v, ok := f.sample(x, y); ok {
			sum += mr[2] * v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// sample bilinearly interpolates the raw grid at sky coordinates in kpc,
// subtracting the systemic velocity. Fails near masked or empty pixels.
func (f *field) sample(x, y float64) (float64, bool) {
	m := f.m
	px, py := m.KpcToPixel(x, y)
	px -= 0.5
	py -= 0.5

	ix, iy := int(math.Floor(px)), int(math.Floor(py))
	tx, ty := px-float64(ix), py-float64(iy)

	var vals [2][2]float64
	for dy := 0; dy < 2; dy++ {
		for dx := 0; dx < 2; dx++ {
			jx, jy := ix+dx, iy+dy
			if jx < 0 || jx >= m.NPixels || jy < 0 || jy >= m.NPixels {
				return 0, false
			}
			if !m.Mask[jy][jx] || math.IsNaN(m.Data[jy][jx]) {
				return 0, false
			}
			vals[dy][dx] = m.Data[jy][jx] - f.centerValues
		}
	}

	top := vals[0][0]*(1-tx) + vals[0][1]*tx
	bot := vals[1][0]*(1-tx) + vals[1][1]*tx
	return top*(1-ty) + bot*ty, true
}

func median(xs []float64) float64 {
	s := append([]float64{}, xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return 0.5 * (s[n/2-1] + s[n/2])
}

// ZeroVelocityLine returns the endpoints, in kpc, of the zero-velocity
// line across the map for a fitted angle, for overlay drawing.
func ZeroVelocityLine(m *velmap.VelocityMap, angDeg float64) (x0, y0, x1, y1 float64) {
	rad := maxRadius(m)
	a := angDeg * math.Pi / 180
	return rad * math.Cos(a), rad * math.Sin(a), -rad * math.Cos(a), -rad * math.Sin(a)
}

// MajorAxisLine returns the endpoints of the kinematic major axis, the
// zero-velocity line rotated by 90 degrees.
func MajorAxisLine(m *velmap.VelocityMap, angDeg float64) (x0, y0, x1, y1 float64) {
	rad := maxRadius(m)
	a := angDeg * math.Pi / 180
	return -rad * math.Sin(a), rad * math.Cos(a), rad * math.Sin(a), -rad * math.Cos(a)
}

// maxRadius is the largest distance of any map coordinate from the center.
func maxRadius(m *velmap.VelocityMap) float64 {
	half := m.ImageWidthKpc / 2
	return math.Sqrt(2) * half
}

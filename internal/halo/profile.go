package halo

import (
	"math"

	"github.com/astrokit/velmaps/internal/snapshot"
)

// halfMassBinWidth is the radial bin width, in kpc, of the cumulative mass
// profile used for the half-mass radius.
const halfMassBinWidth = 0.1

// HalfMassRadius returns the projected (ndim = 2) or spherical (ndim = 3)
// radius enclosing half the family's mass, from a cumulative profile in
// 0.1 kpc bins. The aperture convention downstream is 1.5 times this value.
func HalfMassRadius(p *snapshot.Particles, ndim int) (float64, error) {
	if p.Len() == 0 {
		return 0, ErrEmpty
	}

	rmax := 0.0
	rs := make([]float64, p.Len())
	for i, x := range p.Pos {
		r2 := x[0]*x[0] + x[1]*x[1]
		if ndim == 3 {
			r2 += x[2] * x[2]
		}
		rs[i] = math.Sqrt(r2)
		if rs[i] > rmax {
			rmax = rs[i]
		}
	}

	nbins := int(rmax/halfMassBinWidth) + 1
	enclosed := make([]float64, nbins)
	for i, r := range rs {
		bin := int(r / halfMassBinWidth)
		if bin >= nbins {
			bin = nbins - 1
		}
		enclosed[bin] += p.Mass[i]
	}
	for i := 1; i < nbins; i++ {
		enclosed[i] += enclosed[i-1]
	}

	half := 0.5 * enclosed[nbins-1]
	best, bestDiff := 0, math.Inf(1)
	for i, m := range enclosed {
		if d := math.Abs(m - half); d < bestDiff {
			best, bestDiff = i, d
		}
	}
	return (float64(best) + 0.5) * halfMassBinWidth, nil
}

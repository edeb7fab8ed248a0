// Package analysis derives radial profiles and summary statistics from
// velocity maps.
package analysis

import (
	"math"

	"github.com/astrokit/velmaps/internal/velmap"
)

// Profile is a radial binning of a map quantity. Radius holds the bin
// centers in kpc; bins with no pixels have zero Count and NaN values.
type Profile struct {
	Radius     []float64
	Mean       []float64 // mean |v| per bin, km/s
	Dispersion []float64 // standard deviation per bin, km/s
	Count      []int
}

// RotationCurve bins the map's valid pixels by projected radius and
// averages the absolute line-of-sight velocity in each bin, a crude
// rotation curve for an edge-on system.
func RotationCurve(m *velmap.VelocityMap, nbins int) *Profile {
	if nbins <= 0 {
		nbins = 20
	}

	rmax := m.ApertureRadius
	if rmax <= 0 {
		rmax = m.ImageWidthKpc / 2
	}
	dr := rmax / float64(nbins)

	p := &Profile{
		Radius:     make([]float64, nbins),
		Mean:       make([]float64, nbins),
		Dispersion: make([]float64, nbins),
		Count:      make([]int, nbins),
	}
	sum := make([]float64, nbins)
	sum2 := make([]float64, nbins)

	for iy := 0; iy < m.NPixels; iy++ {
		for ix := 0; ix < m.NPixels; ix++ {
			if !m.Mask[iy][ix] || math.IsNaN(m.Data[iy][ix]) {
				continue
			}
			x, y := m.PixelToKpc(ix, iy)
			b := int(math.Hypot(x, y) / dr)
			if b >= nbins {
				continue
			}
			v := math.Abs(m.Data[iy][ix])
			sum[b] += v
			sum2[b] += v * v
			p.Count[b]++
		}
	}

	for b := 0; b < nbins; b++ {
		p.Radius[b] = (float64(b) + 0.5) * dr
		if p.Count[b] == 0 {
			p.Mean[b] = math.NaN()
			p.Dispersion[b] = math.NaN()
			continue
		}
		n := float64(p.Count[b])
		p.Mean[b] = sum[b] / n
		variance := sum2[b]/n - p.Mean[b]*p.Mean[b]
		if variance < 0 {
			variance = 0
		}
		p.Dispersion[b] = math.Sqrt(variance)
	}
	return p
}

// Filled returns the profile's mean values with empty bins interpolated
// to zero, the form plotting helpers expect.
func (p *Profile) Filled() []float64 {
	out := make([]float64, len(p.Mean))
	for i, v := range p.Mean {
		if !math.IsNaN(v) {
			out[i] = v
		}
	}
	return out
}

// Stats summarizes the valid pixels of a velocity map.
type Stats struct {
	ValidPixels int
	VMin        float64
	VMax        float64
	VMean       float64
}

// Summarize computes map statistics over masked-in, finite pixels.
func Summarize(m *velmap.VelocityMap) Stats {
	s := Stats{VMin: math.Inf(1), VMax: math.Inf(-1)}
	sum := 0.0
	for iy := 0; iy < m.NPixels; iy++ {
		for ix := 0; ix < m.NPixels; ix++ {
			if !m.Mask[iy][ix] || math.IsNaN(m.Data[iy][ix]) {
				continue
			}
			v := m.Data[iy][ix]
			if v < s.VMin {
				s.VMin = v
			}
			if v > s.VMax {
				s.VMax = v
			}
			sum += v
			s.ValidPixels++
		}
	}
	if s.ValidPixels == 0 {
		return Stats{}
	}
	s.VMean = sum / float64(s.ValidPixels)
	return s
}

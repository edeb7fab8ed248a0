package analysis

import (
	"math"
	"testing"

	"github.com/astrokit/velmaps/internal/velmap"
)

// solidBodyMap builds a map with |v| = omega * r inside a circular mask.
func solidBodyMap(npix int, widthKpc, omega float64) *velmap.VelocityMap {
	m := &velmap.VelocityMap{
		NPixels:        npix,
		ImageWidthKpc:  widthKpc,
		KpcPerPixel:    widthKpc / float64(npix),
		ApertureRadius: widthKpc / 2 * 0.9,
	}
	m.Data = make([][]float64, npix)
	m.Mask = make([][]bool, npix)
	for iy := 0; iy < npix; iy++ {
		m.Data[iy] = make([]float64, npix)
		m.Mask[iy] = make([]bool, npix)
		for ix := 0; ix < npix; ix++ {
			x, y := m.PixelToKpc(ix, iy)
			r := math.Hypot(x, y)
			if r > m.ApertureRadius {
				m.Data[iy][ix] = math.NaN()
				continue
			}
			m.Mask[iy][ix] = true
			sign := 1.0
			if x < 0 {
				sign = -1
			}
			m.Data[iy][ix] = sign * omega * r
		}
	}
	return m
}

func TestRotationCurveLinearRise(t *testing.T) {
	const omega = 15.0
	p := RotationCurve(solidBodyMap(80, 20, omega), 10)

	for b := range p.Radius {
		if p.Count[b] == 0 {
			continue
		}
		want := omega * p.Radius[b]
		// Bin averaging of |v|=omega*r over an annulus sits close to the
		// bin-center value; allow a pixelization margin.
		if math.Abs(p.Mean[b]-want) > 0.15*want+2 {
			t.Errorf("bin %d (r=%.2f): mean = %.2f, expected ~%.2f", b, p.Radius[b], p.Mean[b], want)
		}
	}
}

func TestRotationCurveEmptyBins(t *testing.T) {
	m := solidBodyMap(40, 20, 10)
	// Widen the nominal aperture so the outer bins fall past the mask.
	m.ApertureRadius = 20

	p := RotationCurve(m, 10)
	last := p.Mean[len(p.Mean)-1]
	if !math.IsNaN(last) {
		t.Errorf("outermost bin should be empty, got %g", last)
	}
	if p.Count[len(p.Count)-1] != 0 {
		t.Errorf("outermost bin count = %d", p.Count[len(p.Count)-1])
	}

	filled := p.Filled()
	if filled[len(filled)-1] != 0 {
		t.Errorf("Filled did not zero the empty bin: %g", filled[len(filled)-1])
	}
}

func TestSummarize(t *testing.T) {
	m := solidBodyMap(40, 20, 10)
	s := Summarize(m)

	if s.ValidPixels == 0 {
		t.Fatal("no valid pixels")
	}
	if s.VMin >= 0 || s.VMax <= 0 {
		t.Errorf("antisymmetric field: vmin=%.1f vmax=%.1f", s.VMin, s.VMax)
	}
	if math.Abs(s.VMean) > 2 {
		t.Errorf("mean of antisymmetric field = %.2f, expected ~0", s.VMean)
	}
	if math.Abs(s.VMax+s.VMin) > 2 {
		t.Errorf("limits not symmetric: %.1f vs %.1f", s.VMin, s.VMax)
	}
}

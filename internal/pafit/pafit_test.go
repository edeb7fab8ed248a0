package pafit

import (
	"math"
	"testing"

	"github.com/astrokit/velmaps/internal/velmap"
)

// diskMap builds a synthetic map of a solid-body disk whose major axis
// points along (cos theta, sin theta) in the sky plane, with a systemic
// offset added on top.
func diskMap(npix int, widthKpc, thetaDeg, vsyst float64) *velmap.VelocityMap {
	m := &velmap.VelocityMap{
		NPixels:       npix,
		ImageWidthKpc: widthKpc,
		KpcPerPixel:   widthKpc / float64(npix),
	}

	const omega = 20.0 // km/s per kpc
	th := thetaDeg * math.Pi / 180
	rmax := widthKpc / 2 * 0.9

	m.Data = make([][]float64, npix)
	m.Mask = make([][]bool, npix)
	for iy := 0; iy < npix; iy++ {
		m.Data[iy] = make([]float64, npix)
		m.Mask[iy] = make([]bool, npix)
		for ix := 0; ix < npix; ix++ {
			x, y := m.PixelToKpc(ix, iy)
			if math.Hypot(x, y) > rmax {
				m.Data[iy][ix] = math.NaN()
				continue
			}
			m.Mask[iy][ix] = true
			m.Data[iy][ix] = omega*(x*math.Cos(th)+y*math.Sin(th)) + vsyst
		}
	}
	return m
}

func angDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 180)
	if d > 90 {
		d = 180 - d
	}
	return d
}

func TestFitRecoversAxisAlignedDisk(t *testing.T) {
	// v = omega * x: the zero-velocity line is the y axis, so the fitted
	// angle (zero-velocity line from +x) should be 90 degrees.
	r, err := Fit(diskMap(50, 20, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if angDiff(r.AngBest, 90) > 2 {
		t.Errorf("AngBest = %.1f, expected 90", r.AngBest)
	}
	if math.Abs(r.VSyst) > 1 {
		t.Errorf("VSyst = %.2f, expected 0", r.VSyst)
	}
}

func TestFitRecoversRotatedDisk(t *testing.T) {
	for _, theta := range []float64{20, 45, 120} {
		r, err := Fit(diskMap(50, 20, theta, 0))
		if err != nil {
			t.Fatal(err)
		}
		want := math.Mod(theta+90, 180)
		if angDiff(r.AngBest, want) > 3 {
			t.Errorf("theta=%.0f: AngBest = %.1f, expected %.1f", theta, r.AngBest, want)
		}
	}
}

func TestFitSubtractsSystemicVelocity(t *testing.T) {
	r, err := Fit(diskMap(50, 20, 30, 250))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(r.VSyst-250) > 5 {
		t.Errorf("VSyst = %.1f, expected 250", r.VSyst)
	}
	if angDiff(r.AngBest, 120) > 3 {
		t.Errorf("AngBest = %.1f, expected 120", r.AngBest)
	}
}

func TestFitTooFewPixels(t *testing.T) {
	m := &velmap.VelocityMap{
		NPixels:       4,
		ImageWidthKpc: 2,
		KpcPerPixel:   0.5,
		Data:          [][]float64{{1, 1, 1, 1}, {1, 1, 1, 1}, {1, 1, 1, 1}, {1, 1, 1, 1}},
		Mask:          make([][]bool, 4),
	}
	for i := range m.Mask {
		m.Mask[i] = make([]bool, 4)
	}
	if _, err := Fit(m); err != ErrTooFewPixels {
		t.Errorf("expected ErrTooFewPixels, got %v", err)
	}
}

func TestOverlayLinesPerpendicular(t *testing.T) {
	m := diskMap(50, 20, 0, 0)
	zx0, zy0, zx1, zy1 := ZeroVelocityLine(m, 37)
	mx0, my0, mx1, my1 := MajorAxisLine(m, 37)

	dot := (zx1-zx0)*(mx1-mx0) + (zy1-zy0)*(my1-my0)
	if math.Abs(dot) > 1e-9 {
		t.Errorf("overlay lines not perpendicular: dot = %g", dot)
	}
	if math.Hypot(zx0, zy0) < m.ImageWidthKpc/2 {
		t.Errorf("zero-velocity line does not span the map: (%g,%g)", zx0, zy0)
	}
}

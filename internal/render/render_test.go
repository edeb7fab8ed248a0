package render

import (
	"image/color"
	"math"
	"testing"

	"github.com/astrokit/velmaps/internal/velmap"
)

func gradientMap(npix int) *velmap.VelocityMap {
	m := &velmap.VelocityMap{
		NPixels:        npix,
		ImageWidthKpc:  20,
		KpcPerPixel:    20 / float64(npix),
		ApertureRadius: 8,
	}
	m.Data = make([][]float64, npix)
	m.Mask = make([][]bool, npix)
	for iy := 0; iy < npix; iy++ {
		m.Data[iy] = make([]float64, npix)
		m.Mask[iy] = make([]bool, npix)
		for ix := 0; ix < npix; ix++ {
			x, y := m.PixelToKpc(ix, iy)
			if math.Hypot(x, y) > m.ApertureRadius {
				m.Data[iy][ix] = math.NaN()
				continue
			}
			m.Mask[iy][ix] = true
			m.Data[iy][ix] = 10 * x
		}
	}
	return m
}

func TestColormapEndpoints(t *testing.T) {
	for _, cm := range []*Colormap{PuOr, RdBu} {
		mid := cm.At(0.5)
		if mid != (color.RGBA{247, 247, 247, 255}) {
			t.Errorf("%s midpoint = %v, expected near-white", cm.Name, mid)
		}
		if cm.At(0) != cm.stops[0] {
			t.Errorf("%s At(0) != first stop", cm.Name)
		}
		if cm.At(1) != cm.stops[len(cm.stops)-1] {
			t.Errorf("%s At(1) != last stop", cm.Name)
		}
		if cm.At(-5) != cm.At(0) || cm.At(5) != cm.At(1) {
			t.Errorf("%s does not clamp out-of-range input", cm.Name)
		}
	}
}

func TestColormapByName(t *testing.T) {
	cm, err := ColormapByName("rdbu")
	if err != nil || cm.Name != "RdBu" {
		t.Fatalf("lookup failed: %v %v", cm, err)
	}

	rev, err := ColormapByName("RdBu_r")
	if err != nil {
		t.Fatal(err)
	}
	if rev.At(0) != cm.At(1) || rev.At(1) != cm.At(0) {
		t.Error("reversed colormap does not mirror the original")
	}

	if _, err := ColormapByName("viridis"); err == nil {
		t.Error("expected an error for an unregistered colormap")
	}
}

func TestFigureDimensions(t *testing.T) {
	m := gradientMap(40)
	img := Figure(m, Options{Scale: 3, Colorbar: true})

	b := img.Bounds()
	wantW := marginPx + 40*3 + marginPx + colorbarPx + labelPx
	wantH := marginPx + 40*3 + marginPx
	if b.Dx() != wantW || b.Dy() != wantH {
		t.Errorf("figure is %dx%d, expected %dx%d", b.Dx(), b.Dy(), wantW, wantH)
	}
}

func TestFigureMaskedPixelsAreBackground(t *testing.T) {
	m := gradientMap(40)
	img := Figure(m, Options{Scale: 2})

	// A corner of the map area lies well outside the aperture.
	c := img.RGBAAt(marginPx+1, marginPx+1)
	if c != background {
		t.Errorf("corner pixel = %v, expected background", c)
	}

	// The center is inside the mask and near v=0, so close to the
	// colormap midpoint.
	center := img.RGBAAt(marginPx+40, marginPx+40)
	if center == background {
		t.Error("map center not painted")
	}
}

func TestFigureSymmetricLimits(t *testing.T) {
	m := gradientMap(40)
	img := Figure(m, Options{Scale: 2, Cmap: RdBu})

	// v = 10x is antisymmetric, so with auto limits the left and right
	// sides should take colors from opposite ends of the scale.
	y := marginPx + 40
	left := img.RGBAAt(marginPx+14, y)
	right := img.RGBAAt(marginPx+2*40-14, y)
	if left == right {
		t.Error("antisymmetric map rendered symmetric colors")
	}
	// Red end (low v) has R > B, blue end has B > R.
	if !(left.R > left.B && right.B > right.R) && !(left.B > left.R && right.R > right.B) {
		t.Errorf("sides not on opposite ends of the diverging scale: %v vs %v", left, right)
	}
}

func TestSavePNG(t *testing.T) {
	path := t.TempDir() + "/map.png"
	err := SavePNG(path, gradientMap(24), Options{
		Scale:       2,
		Colorbar:    true,
		ScalebarKpc: 5,
		PAShow:      true,
		PAAngle:     90,
		Title:       "star",
		BHPositions: [][2]float64{{0, 0}},
	})
	if err != nil {
		t.Fatal(err)
	}
}

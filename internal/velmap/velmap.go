package velmap

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/astrokit/velmaps/internal/snapshot"
)

// Params fixes a map before construction. Zero FWHM skips the PSF; zero
// HaloMaxSize defaults to the aperture radius.
type Params struct {
	ImageWidthKpc    float64
	ApertureKpc      float64
	PixelScaleArcsec float64
	FWHMArcsec       float64
	KpcPerArcsec     float64
	HaloMaxSize      float64
}

// VelocityMap is the derived artifact: a pixel grid of mass-weighted
// line-of-sight velocity plus the aperture mask and the scale factors tying
// pixels back to physical and angular sizes. Immutable after New.
type VelocityMap struct {
	Data [][]float64 // km/s, NaN where the weight image is empty
	Raw  [][]float64 // pre-PSF map
	Mask [][]bool    // true inside the aperture

	NPixels          int
	ImageWidthKpc    float64
	PixelScaleArcsec float64
	FWHMArcsec       float64
	ApertureRadius   float64 // kpc
	KpcPerArcsec     float64
	KpcPerPixel      float64

	// Particles is the aperture-restricted subset the map was built from.
	Particles *snapshot.Particles
}

// NPixels converts an image width and pixel scale into a pixel count:
// int(width_arcsec / scale_arcsec).
func NPixels(imageWidthKpc, pixelScaleArcsec, kpcPerArcsec float64) int {
	imageWidthArcsec := imageWidthKpc / kpcPerArcsec
	return int(imageWidthArcsec / pixelScaleArcsec)
}

// New builds a velocity map for one particle family, already centered and
// aligned. The pipeline is: restrict to the aperture, project mass and
// mass-weighted LOS velocity with the SPH kernel, divide, then convolve
// with the PSF when requested.
func New(p *snapshot.Particles, par Params) (*VelocityMap, error) {
	npix := NPixels(par.ImageWidthKpc, par.PixelScaleArcsec, par.KpcPerArcsec)
	if npix <= 0 {
		return nil, ErrResolution
	}

	haloMax := par.HaloMaxSize
	if haloMax == 0 {
		haloMax = par.ApertureKpc
	}

	m := &VelocityMap{
		NPixels:          npix,
		ImageWidthKpc:    par.ImageWidthKpc,
		PixelScaleArcsec: par.PixelScaleArcsec,
		FWHMArcsec:       par.FWHMArcsec,
		ApertureRadius:   par.ApertureKpc,
		KpcPerArcsec:     par.KpcPerArcsec,
		KpcPerPixel:      par.ImageWidthKpc / float64(npix),
	}

	m.Particles = NewAperture(haloMax, [2]float64{}).Filter(p)
	if m.Particles.Len() == 0 {
		return nil, ErrNoParticles
	}

	m.Mask = m.maskAperture()
	m.Raw = m.project()

	m.Data = m.Raw
	if par.FWHMArcsec > 0 {
		m.Data = m.convolveFWHM()
	}

	log.Debug().
		Int("npixels", npix).
		Int("particles", m.Particles.Len()).
		Float64("kpc_per_pixel", m.KpcPerPixel).
		Msg("built velocity map")

	return m, nil
}

// maskAperture marks the pixels whose Euclidean distance from the grid
// center is within the aperture radius. A zero radius keeps everything.
func (m *VelocityMap) maskAperture() [][]bool {
	mask := make([][]bool, m.NPixels)
	if m.ApertureRadius <= 0 {
		for i := range mask {
			mask[i] = make([]bool, m.NPixels)
			for j := range mask[i] {
				mask[i][j] = true
			}
		}
		return mask
	}

	cx := float64(m.NPixels / 2)
	cy := float64(m.NPixels / 2)
	radius := m.ApertureRadius / m.KpcPerArcsec / m.PixelScaleArcsec

	for iy := range mask {
		mask[iy] = make([]bool, m.NPixels)
		for ix := range mask[iy] {
			dx, dy := float64(ix)-cx, float64(iy)-cy
			mask[iy][ix] = math.Sqrt(dx*dx+dy*dy) <= radius
		}
	}
	return mask
}

// project deposits mass and mass-weighted v_z onto the grid with the 2D
// cubic spline and returns their per-pixel ratio. Particles whose kernel
// support is below the pixel size collapse to nearest-grid-point deposits.
func (m *VelocityMap) project() [][]float64 {
	npix := m.NPixels
	weight := makeGrid(npix)
	qty := makeGrid(npix)

	hs := SmoothingLengths(m.Particles)
	half := m.ImageWidthKpc / 2
	dx := m.KpcPerPixel
	pixArea := dx * dx

	for i, x := range m.Particles.Pos {
		mass := m.Particles.Mass[i]
		vz := m.Particles.Vel[i][2]
		h := hs[i]

		// Pixel-space position; pixel (0,0) spans [-half, -half+dx).
		px := (x[0] + half) / dx
		py := (x[1] + half) / dx

		if 2*h <= dx {
			ix, iy := int(px), int(py)
			if ix >= 0 && ix < npix && iy >= 0 && iy < npix {
				weight[iy][ix] += mass / pixArea
				qty[iy][ix] += mass * vz / pixArea
			}
			continue
		}

		support := 2 * h / dx
		lox, hix := clamp(int(px-support), npix), clamp(int(px+support)+1, npix)
		loy, hiy := clamp(int(py-support), npix), clamp(int(py+support)+1, npix)

		for iy := loy; iy < hiy; iy++ {
			for ix := lox; ix < hix; ix++ {
				cx := (float64(ix)+0.5)*dx - half
				cy := (float64(iy)+0.5)*dx - half
				r := math.Hypot(x[0]-cx, x[1]-cy)
				w := cubicSpline2D(r, h)
				if w == 0 {
					continue
				}
				weight[iy][ix] += mass * w
				qty[iy][ix] += mass * vz * w
			}
		}
	}

	v := makeGrid(npix)
	for iy := 0; iy < npix; iy++ {
		for ix := 0; ix < npix; ix++ {
			if weight[iy][ix] == 0 {
				v[iy][ix] = math.NaN()
				continue
			}
			v[iy][ix] = qty[iy][ix] / weight[iy][ix]
		}
	}
	return v
}

// MaskedData returns the map with rows flipped so +y is up and pixels
// outside the aperture zeroed, the orientation figures are drawn in.
func (m *VelocityMap) MaskedData() [][]float64 {
	out := makeGrid(m.NPixels)
	for iy := 0; iy < m.NPixels; iy++ {
		src := m.NPixels - 1 - iy
		for ix := 0; ix < m.NPixels; ix++ {
			if m.Mask[src][ix] {
				out[iy][ix] = m.Data[src][ix]
			}
		}
	}
	return out
}

// Extent returns the half-width of the map in kpc, for axis labeling.
func (m *VelocityMap) Extent() float64 { return m.ImageWidthKpc / 2 }

// PixelToKpc converts a pixel index pair to sky-plane kpc coordinates.
func (m *VelocityMap) PixelToKpc(ix, iy int) (x, y float64) {
	half := m.ImageWidthKpc / 2
	x = (float64(ix)+0.5)*m.KpcPerPixel - half
	y = (float64(iy)+0.5)*m.KpcPerPixel - half
	return x, y
}

// KpcToPixel is the inverse of PixelToKpc, without rounding.
func (m *VelocityMap) KpcToPixel(x, y float64) (px, py float64) {
	half := m.ImageWidthKpc / 2
	return (x + half) / m.KpcPerPixel, (y + half) / m.KpcPerPixel
}

// Limits returns the finite min and max of the masked map.
func (m *VelocityMap) Limits() (vmin, vmax float64) {
	vmin, vmax = math.Inf(1), math.Inf(-1)
	for iy := 0; iy < m.NPixels; iy++ {
		for ix := 0; ix < m.NPixels; ix++ {
			if !m.Mask[iy][ix] || math.IsNaN(m.Data[iy][ix]) {
				continue
			}
			v := m.Data[iy][ix]
			if v < vmin {
				vmin = v
			}
			if v > vmax {
				vmax = v
			}
		}
	}
	if vmin > vmax {
		return 0, 0
	}
	return vmin, vmax
}

func makeGrid(n int) [][]float64 {
	g := make([][]float64, n)
	for i := range g {
		g[i] = make([]float64, n)
	}
	return g
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

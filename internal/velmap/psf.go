package velmap

import "math"

// GaussianFwhmToSigma converts a full-width-half-maximum to a standard
// deviation: 1 / (2 sqrt(2 ln 2)).
const GaussianFwhmToSigma = 0.42466090014400953

// convolveFWHM applies the observational PSF: a Gaussian blur whose sigma,
// in pixels, derives from the FWHM in arcsec and the pixel scale. Empty
// pixels contribute zero; the aperture mask is applied at render time, so
// the blur operates on the full grid like the raw map does.
func (m *VelocityMap) convolveFWHM() [][]float64 {
	sigmaArcsec := m.FWHMArcsec * GaussianFwhmToSigma
	sigmaPixels := sigmaArcsec / m.PixelScaleArcsec
	return gaussianFilter(m.Raw, sigmaPixels)
}

// gaussianFilter blurs a square grid with a separable Gaussian, truncated
// at four sigma, reflecting at the edges. NaN cells are treated as zero.
func gaussianFilter(grid [][]float64, sigma float64) [][]float64 {
	n := len(grid)
	if sigma <= 0 || n == 0 {
		return grid
	}

	radius := int(math.Ceil(4 * sigma))
	kernel := make([]float64, 2*radius+1)
	sum := 0.0
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	src := makeGrid(n)
	for iy := range grid {
		for ix, v := range grid[iy] {
			if !math.IsNaN(v) {
				src[iy][ix] = v
			}
		}
	}

	// Horizontal pass, then vertical.
	tmp := makeGrid(n)
	for iy := 0; iy < n; iy++ {
		for ix := 0; ix < n; ix++ {
			acc := 0.0
			for k := -radius; k <= radius; k++ {
				acc += kernel[k+radius] * src[iy][reflect(ix+k, n)]
			}
			tmp[iy][ix] = acc
		}
	}

	out := makeGrid(n)
	for iy := 0; iy < n; iy++ {
		for ix := 0; ix < n; ix++ {
			acc := 0.0
			for k := -radius; k <= radius; k++ {
				acc += kernel[k+radius] * tmp[reflect(iy+k, n)][ix]
			}
			out[iy][ix] = acc
		}
	}
	return out
}

// reflect maps an out-of-range index back into [0, n) by mirroring at the
// boundaries, matching scipy's default mode.
func reflect(i, n int) int {
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - i - 1
		}
	}
	return i
}

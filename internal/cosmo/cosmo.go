// Package cosmo provides the small slice of flat-LCDM cosmology needed to
// convert physical sizes at a redshift into angles on the sky.
package cosmo

import (
	"math"
	"strings"
)

const (
	// CMks is the speed of light in km/s.
	CMks = 299792.458

	// ArcsecPerRad converts radians to arcseconds.
	ArcsecPerRad = 180.0 * 3600.0 / math.Pi
)

// FlatLCDM is a flat Lambda-CDM cosmology. OmegaL is fixed by flatness,
// OmegaL = 1 - OmegaM, and radiation is neglected.
type FlatLCDM struct {
	Name   string
	H0     float64 // Hubble constant at z = 0, in km/s/Mpc.
	OmegaM float64 // Matter density parameter at z = 0.
}

// Planck13 matches the parameters used for MANGA-style mock observations.
var Planck13 = FlatLCDM{Name: "Planck13", H0: 67.77, OmegaM: 0.30712}

// Planck18 is provided for newer simulation suites.
var Planck18 = FlatLCDM{Name: "Planck18", H0: 67.66, OmegaM: 0.30966}

// ByName returns a named cosmology, defaulting to Planck13. Matching is
// case-insensitive.
func ByName(name string) FlatLCDM {
	switch strings.ToLower(name) {
	case "planck18":
		return Planck18
	default:
		return Planck13
	}
}

// HubbleFrac calculates h(z) = H(z)/H0. Here H(z) is from Hubble's Law,
// H(z)**2 = H0**2 (OmegaM (1+z)**3 + OmegaL). Assumes k, r = 0.
func (c FlatLCDM) HubbleFrac(z float64) float64 {
	return math.Sqrt(c.OmegaM*math.Pow(1+z, 3) + (1 - c.OmegaM))
}

// hubbleDistance is c/H0 in Mpc.
func (c FlatLCDM) hubbleDistance() float64 {
	return CMks / c.H0
}

// ComovingDistance returns the line-of-sight comoving distance to redshift
// z in Mpc, integrating dz'/E(z') with Simpson's rule.
func (c FlatLCDM) ComovingDistance(z float64) float64 {
	if z <= 0 {
		return 0
	}

	const n = 1024 // even
	h := z / n

	sum := 1.0 + 1.0/c.HubbleFrac(z)
	for i := 1; i < n; i++ {
		w := 2.0
		if i%2 == 1 {
			w = 4.0
		}
		sum += w / c.HubbleFrac(float64(i)*h)
	}

	return c.hubbleDistance() * sum * h / 3.0
}

// AngularDiameterDistance returns the angular diameter distance to redshift
// z in Mpc. For a flat universe this is the comoving distance over (1+z).
func (c FlatLCDM) AngularDiameterDistance(z float64) float64 {
	return c.ComovingDistance(z) / (1 + z)
}

// KpcProperPerArcsec returns the proper transverse size, in kpc, subtended
// by one arcsecond at redshift z.
func (c FlatLCDM) KpcProperPerArcsec(z float64) float64 {
	return c.AngularDiameterDistance(z) * 1000.0 / ArcsecPerRad
}

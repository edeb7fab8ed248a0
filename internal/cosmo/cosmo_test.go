package cosmo

import (
	"math"
	"testing"
)

func TestHubbleFracAtZero(t *testing.T) {
	if e := Planck13.HubbleFrac(0); math.Abs(e-1) > 1e-12 {
		t.Errorf("E(0) = %g, expected 1", e)
	}
}

func TestComovingDistanceLowZLimit(t *testing.T) {
	// For z << 1, D_C -> c z / H0.
	z := 1e-4
	got := Planck13.ComovingDistance(z)
	expected := CMks * z / Planck13.H0
	if math.Abs(got-expected)/expected > 1e-3 {
		t.Errorf("D_C(%g) = %g Mpc, expected ~%g Mpc", z, got, expected)
	}
}

func TestKpcProperPerArcsecPlanck13(t *testing.T) {
	// Reference value computed with astropy's Planck13 at z = 0.03:
	// kpc_proper_per_arcmin(0.03) = 37.29 kpc/arcmin -> 0.6215 kpc/arcsec.
	got := Planck13.KpcProperPerArcsec(0.03)
	expected := 0.6215
	if math.Abs(got-expected)/expected > 0.01 {
		t.Errorf("kpc/arcsec at z=0.03 = %.4f, expected %.4f +/- 1%%", got, expected)
	}
}

func TestAngularDiameterDistanceMonotonicAtLowZ(t *testing.T) {
	prev := 0.0
	for _, z := range []float64{0.01, 0.05, 0.1, 0.3, 0.5} {
		d := Planck13.AngularDiameterDistance(z)
		if d <= prev {
			t.Errorf("D_A not increasing at z=%g: %g <= %g", z, d, prev)
		}
		prev = d
	}
}

func TestByName(t *testing.T) {
	if c := ByName("Planck18"); c.H0 != Planck18.H0 {
		t.Errorf("ByName(Planck18) returned H0 = %g", c.H0)
	}
	if c := ByName("anything"); c.H0 != Planck13.H0 {
		t.Errorf("ByName default returned H0 = %g", c.H0)
	}
}

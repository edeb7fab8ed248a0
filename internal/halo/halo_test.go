package halo

import (
	"math"
	"math/rand"
	"testing"

	"github.com/astrokit/velmaps/internal/snapshot"
)

// testDisk builds a cold rotating disk of n stars at the given center, with
// angular momentum along axis (unit vector) and circular speed vc.
func testDisk(n int, cen, axis [3]float64, vc float64, seed int64) *snapshot.Snapshot {
	rng := rand.New(rand.NewSource(seed))
	snap := &snapshot.Snapshot{}

	// Orthonormal basis with axis as the spin direction.
	var e1 [3]float64
	if math.Abs(axis[0]) < 0.9 {
		e1 = unit(cross([3]float64{1, 0, 0}, axis))
	} else {
		e1 = unit(cross([3]float64{0, 1, 0}, axis))
	}
	e2 := cross(axis, e1)

	for i := 0; i < n; i++ {
		r := 0.5 + 7.5*rng.Float64()
		phi := 2 * math.Pi * rng.Float64()
		c, s := math.Cos(phi), math.Sin(phi)

		var pos, vel [3]float64
		for j := 0; j < 3; j++ {
			pos[j] = cen[j] + r*(c*e1[j]+s*e2[j])
			// Tangential velocity: v = vc * (axis x rhat).
			vel[j] = vc * (-s*e1[j] + c*e2[j])
		}
		snap.Star.Pos = append(snap.Star.Pos, pos)
		snap.Star.Vel = append(snap.Star.Vel, vel)
		snap.Star.Mass = append(snap.Star.Mass, 1e6)
	}
	return snap
}

func TestCenterRecoversOffset(t *testing.T) {
	cen := [3]float64{500, -300, 120}
	snap := testDisk(2000, cen, [3]float64{0, 0, 1}, 200, 1)

	if err := Center(snap); err != nil {
		t.Fatal(err)
	}

	com := centerOfMass(snap.Star.Pos, snap.Star.Mass, [3]float64{}, math.Inf(1))
	for j := 0; j < 3; j++ {
		if math.Abs(com[j]) > 0.5 {
			t.Errorf("center of mass component %d = %g kpc, expected ~0", j, com[j])
		}
	}
}

func TestAlignSideOnPutsAngularMomentumAlongY(t *testing.T) {
	axis := unit([3]float64{1, 2, 3})
	snap := testDisk(3000, [3]float64{}, axis, 150, 2)

	if err := Align(snap, SideOn); err != nil {
		t.Fatal(err)
	}

	l := unit(AngularMomentum(&snap.Star, math.Inf(1)))
	if math.Abs(l[1]-1) > 1e-6 {
		t.Errorf("aligned L = %v, expected along +y", l)
	}
}

func TestAlignFaceOnPutsAngularMomentumAlongZ(t *testing.T) {
	axis := unit([3]float64{-2, 1, 0.5})
	snap := testDisk(3000, [3]float64{}, axis, 150, 3)

	if err := Align(snap, FaceOn); err != nil {
		t.Fatal(err)
	}

	l := unit(AngularMomentum(&snap.Star, math.Inf(1)))
	if math.Abs(l[2]-1) > 1e-6 {
		t.Errorf("aligned L = %v, expected along +z", l)
	}
}

func TestAlignPreservesPairwiseDistances(t *testing.T) {
	// Align recenters before rotating, so absolute radii shift with the
	// center estimate; pairwise separations are invariant under both.
	snap := testDisk(500, [3]float64{}, [3]float64{0, 0, 1}, 100, 4)
	n := snap.Star.Len()
	d0 := make([]float64, n-1)
	for i := 1; i < n; i++ {
		d0[i-1] = dist(snap.Star.Pos[0], snap.Star.Pos[i])
	}

	if err := Align(snap, SideOn); err != nil {
		t.Fatal(err)
	}

	for i := 1; i < n; i++ {
		d := dist(snap.Star.Pos[0], snap.Star.Pos[i])
		if math.Abs(d-d0[i-1]) > 1e-6 {
			t.Fatalf("alignment changed separation of pair (0,%d): %g -> %g",
				i, d0[i-1], d)
		}
	}
}

func TestHalfMassRadiusUniformDisk(t *testing.T) {
	// A uniform-surface-density disk of radius R has r_half = R/sqrt(2).
	rng := rand.New(rand.NewSource(5))
	p := &snapshot.Particles{}
	R := 10.0
	for i := 0; i < 40000; i++ {
		r := R * math.Sqrt(rng.Float64())
		phi := 2 * math.Pi * rng.Float64()
		p.Pos = append(p.Pos, [3]float64{r * math.Cos(phi), r * math.Sin(phi), 0})
		p.Vel = append(p.Vel, [3]float64{})
		p.Mass = append(p.Mass, 1)
	}

	rh, err := HalfMassRadius(p, 2)
	if err != nil {
		t.Fatal(err)
	}
	expected := R / math.Sqrt2
	if math.Abs(rh-expected) > 0.2 {
		t.Errorf("half-mass radius = %g, expected %g +/- 0.2", rh, expected)
	}
}

func TestHalfMassRadiusEmpty(t *testing.T) {
	if _, err := HalfMassRadius(&snapshot.Particles{}, 2); err == nil {
		t.Error("expected error for empty family")
	}
}

func TestParseOrientation(t *testing.T) {
	if _, err := ParseOrientation("sideon"); err != nil {
		t.Errorf("sideon should parse: %v", err)
	}
	if _, err := ParseOrientation("upside-down"); err == nil {
		t.Error("invalid orientation should fail")
	}
}

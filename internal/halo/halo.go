// Package halo centers and orients a loaded halo so that the map pipeline
// can treat it as already aligned: position and velocity origin at the
// galaxy center, angular momentum along a chosen axis.
package halo

import (
	"errors"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/astrokit/velmaps/internal/snapshot"
)

var (
	// ErrEmpty indicates an operation on a halo with no particles.
	ErrEmpty = errors.New("halo: no particles")

	// ErrOrientation indicates an unknown orientation name.
	ErrOrientation = errors.New("halo: unknown orientation")
)

// Orientation selects how the halo is rotated before projection.
type Orientation string

const (
	// SideOn rotates the angular momentum into the image y-axis, so the
	// line of sight (z) sees the full rotation signal.
	SideOn Orientation = "sideon"

	// FaceOn rotates the angular momentum into the line of sight.
	FaceOn Orientation = "faceon"
)

// ParseOrientation validates an orientation name.
func ParseOrientation(s string) (Orientation, error) {
	switch Orientation(s) {
	case SideOn, FaceOn:
		return Orientation(s), nil
	}
	return "", ErrOrientation
}

// Center translates the snapshot so the densest region sits at the origin
// and the inner bulk velocity is zero. The position center comes from a
// shrinking-sphere iteration over all particles; the velocity center is the
// mass-weighted mean velocity inside a small central sphere.
func Center(snap *snapshot.Snapshot) error {
	all := snap.All()
	if all.Len() == 0 {
		return ErrEmpty
	}

	cen := shrinkingSphereCenter(all)
	translate(snap, cen)

	vcen := velocityCenter(snap.All())
	boost(snap, vcen)

	log.Debug().
		Floats64("pos", cen[:]).
		Floats64("vel", vcen[:]).
		Msg("centered halo")
	return nil
}

// shrinkingSphereCenter iterates a center-of-mass calculation on spheres of
// shrinking radius until few particles remain.
func shrinkingSphereCenter(p *snapshot.Particles) [3]float64 {
	cen := centerOfMass(p.Pos, p.Mass, [3]float64{}, math.Inf(1))

	r := 0.0
	for i, x := range p.Pos {
		d := dist(x, cen)
		if i == 0 || d > r {
			r = d
		}
	}

	minN := p.Len() / 100
	if minN < 100 {
		minN = 100
	}

	for {
		r *= 0.7
		n := 0
		for _, x := range p.Pos {
			if dist(x, cen) < r {
				n++
			}
		}
		if n < minN || n < 2 {
			break
		}
		cen = centerOfMass(p.Pos, p.Mass, cen, r)
	}
	return cen
}

func centerOfMass(pos [][3]float64, mass []float64, cen [3]float64, r float64) [3]float64 {
	var sum [3]float64
	m := 0.0
	for i, x := range pos {
		if dist(x, cen) >= r {
			continue
		}
		for j := 0; j < 3; j++ {
			sum[j] += mass[i] * x[j]
		}
		m += mass[i]
	}
	if m == 0 {
		return cen
	}
	for j := 0; j < 3; j++ {
		sum[j] /= m
	}
	return sum
}

// velocityCenter computes the mass-weighted mean velocity inside a 1 kpc
// sphere, doubling the radius until at least five particles contribute.
func velocityCenter(p *snapshot.Particles) [3]float64 {
	r := 1.0
	for {
		var sum [3]float64
		m := 0.0
		n := 0
		for i, x := range p.Pos {
			if dist(x, [3]float64{}) >= r {
				continue
			}
			for j := 0; j < 3; j++ {
				sum[j] += p.Mass[i] * p.Vel[i][j]
			}
			m += p.Mass[i]
			n++
		}
		if n >= 5 && m > 0 {
			for j := 0; j < 3; j++ {
				sum[j] /= m
			}
			return sum
		}
		if n >= p.Len() {
			if m > 0 {
				for j := 0; j < 3; j++ {
					sum[j] /= m
				}
			}
			return sum
		}
		r *= 2
	}
}

func translate(snap *snapshot.Snapshot, cen [3]float64) {
	forEachFamily(snap, func(p *snapshot.Particles) {
		for i := range p.Pos {
			for j := 0; j < 3; j++ {
				p.Pos[i][j] -= cen[j]
			}
		}
	})
}

func boost(snap *snapshot.Snapshot, vcen [3]float64) {
	forEachFamily(snap, func(p *snapshot.Particles) {
		for i := range p.Vel {
			for j := 0; j < 3; j++ {
				p.Vel[i][j] -= vcen[j]
			}
		}
	})
}

func forEachFamily(snap *snapshot.Snapshot, f func(*snapshot.Particles)) {
	f(&snap.Gas)
	f(&snap.DM)
	f(&snap.Star)
	f(&snap.BH)
}

// AngularMomentum sums m (r x v) over particles within rmax of the origin.
func AngularMomentum(p *snapshot.Particles, rmax float64) [3]float64 {
	var l [3]float64
	r2max := rmax * rmax
	for i, x := range p.Pos {
		if x[0]*x[0]+x[1]*x[1]+x[2]*x[2] >= r2max {
			continue
		}
		v := p.Vel[i]
		m := p.Mass[i]
		l[0] += m * (x[1]*v[2] - x[2]*v[1])
		l[1] += m * (x[2]*v[0] - x[0]*v[2])
		l[2] += m * (x[0]*v[1] - x[1]*v[0])
	}
	return l
}

// Align centers the snapshot and rotates it into the requested orientation.
// The angular momentum is measured from star particles inside 10 kpc when
// stars exist, otherwise from everything.
func Align(snap *snapshot.Snapshot, o Orientation) error {
	if err := Center(snap); err != nil {
		return err
	}

	src := &snap.Star
	if src.Len() == 0 {
		src = snap.All()
	}
	l := AngularMomentum(src, 10.0)
	if norm(l) == 0 {
		l = AngularMomentum(src, math.Inf(1))
	}
	if norm(l) == 0 {
		return ErrEmpty
	}

	var m [3][3]float64
	switch o {
	case SideOn:
		m = sideOnMatrix(l)
	case FaceOn:
		m = faceOnMatrix(l)
	default:
		return ErrOrientation
	}

	forEachFamily(snap, func(p *snapshot.Particles) {
		for i := range p.Pos {
			p.Pos[i] = matVec(m, p.Pos[i])
			p.Vel[i] = matVec(m, p.Vel[i])
		}
	})
	return nil
}

// sideOnMatrix builds the rotation that sends the angular momentum to the
// +y axis, leaving the disk edge-on along the line of sight.
func sideOnMatrix(l [3]float64) [3][3]float64 {
	j := unit(l)
	seed := [3]float64{1, 0, 0}
	if norm(cross(seed, j)) == 0 {
		seed = [3]float64{0, 0, 1}
	}
	p1 := unit(cross(seed, j))
	p2 := cross(j, p1)
	return [3][3]float64{p2, j, p1}
}

// faceOnMatrix sends the angular momentum to the +z axis (the line of
// sight), showing the disk face-on.
func faceOnMatrix(l [3]float64) [3][3]float64 {
	j := unit(l)
	seed := [3]float64{0, 1, 0}
	if norm(cross(seed, j)) == 0 {
		seed = [3]float64{1, 0, 0}
	}
	p1 := unit(cross(seed, j))
	p2 := cross(j, p1)
	return [3][3]float64{p1, p2, j}
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func norm(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

func unit(v [3]float64) [3]float64 {
	n := norm(v)
	if n == 0 {
		return v
	}
	return [3]float64{v[0] / n, v[1] / n, v[2] / n}
}

func matVec(m [3][3]float64, v [3]float64) [3]float64 {
	var out [3]float64
	for i := 0; i < 3; i++ {
		out[i] = m[i][0]*v[0] + m[i][1]*v[1] + m[i][2]*v[2]
	}
	return out
}

func dist(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

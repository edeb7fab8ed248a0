// Package velmap builds line-of-sight velocity maps: an SPH projection of
// particle velocities onto a pixel grid, restricted to a circular aperture
// and optionally convolved with a Gaussian PSF.
package velmap

import (
	"errors"
	"fmt"

	"github.com/astrokit/velmaps/internal/snapshot"
)

var (
	// ErrNoParticles indicates the aperture contains no particles.
	ErrNoParticles = errors.New("velmap: no particles inside aperture")

	// ErrResolution indicates the requested pixel grid is degenerate.
	ErrResolution = errors.New("velmap: image resolves to zero pixels")
)

// Aperture is a circular region in the x-y projection plane. It filters
// input particles and, in pixel space, masks output pixels.
type Aperture struct {
	Radius float64    // kpc
	Cen    [2]float64 // kpc, usually the origin
}

// NewAperture builds an aperture centered on cen.
func NewAperture(radius float64, cen [2]float64) Aperture {
	return Aperture{Radius: radius, Cen: cen}
}

// Contains reports whether the projected point (x, y) lies inside.
func (a Aperture) Contains(x, y float64) bool {
	dx, dy := x-a.Cen[0], y-a.Cen[1]
	return dx*dx+dy*dy < a.Radius*a.Radius
}

// Filter returns the subset of particles whose projected x-y distance from
// the aperture center is below the radius. The z coordinate is ignored, as
// the aperture is a cylinder along the line of sight.
func (a Aperture) Filter(p *snapshot.Particles) *snapshot.Particles {
	out := &snapshot.Particles{}
	for i, x := range p.Pos {
		if !a.Contains(x[0], x[1]) {
			continue
		}
		out.Pos = append(out.Pos, x)
		out.Vel = append(out.Vel, p.Vel[i])
		out.Mass = append(out.Mass, p.Mass[i])
		if p.Hsml != nil {
			out.Hsml = append(out.Hsml, p.Hsml[i])
		}
		if p.Tform != nil {
			out.Tform = append(out.Tform, p.Tform[i])
		}
	}
	return out
}

func (a Aperture) String() string {
	return fmt.Sprintf("Aperture(%.2e, (%g, %g))", a.Radius, a.Cen[0], a.Cen[1])
}

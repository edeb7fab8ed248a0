// Package snapshot loads GADGET-2 simulation snapshots and exposes their
// particles grouped by family (gas, dm, star, bh) in physical units.
package snapshot

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
)

// Domain errors for snapshot loading.
var (
	// ErrCorrupt indicates a block size that disagrees with the header.
	ErrCorrupt = errors.New("snapshot: block size disagrees with header")

	// ErrNoFamily indicates a requested particle family is absent.
	ErrNoFamily = errors.New("snapshot: particle family not present")
)

// Header holds the snapshot metadata needed downstream. Lengths are
// physical (not comoving, not /h) after Open.
type Header struct {
	NPart    [6]int
	Redshift float64
	Time     float64 // scale factor a
	BoxSize  float64 // physical kpc
	OmegaM   float64
	OmegaL   float64
	H100     float64 // H0 / (100 km/s/Mpc)
}

// Particles is a structure-of-arrays view of one particle family.
// Positions are in kpc, velocities in km/s, masses in Msun. Hsml and Tform
// are nil when the snapshot does not carry them.
type Particles struct {
	Pos   [][3]float64
	Vel   [][3]float64
	Mass  []float64
	Hsml  []float64 // SPH smoothing lengths, kpc (gas only)
	Tform []float64 // formation time; negative marks black holes (star block)
}

// Len returns the particle count.
func (p *Particles) Len() int { return len(p.Pos) }

// Snapshot is an in-memory halo: all particle families, already in
// physical units. Centering and alignment mutate positions and velocities
// in place (see the halo package); the map pipeline treats it as fixed.
type Snapshot struct {
	Header Header

	Gas  Particles
	DM   Particles
	Star Particles
	BH   Particles
}

// Family returns the named family. Valid names are gas, dm, star and bh.
func (s *Snapshot) Family(name string) (*Particles, error) {
	switch name {
	case "gas":
		return &s.Gas, nil
	case "dm":
		return &s.DM, nil
	case "star":
		return &s.Star, nil
	case "bh":
		return &s.BH, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoFamily, name)
}

// Families lists the non-empty families in a fixed order.
func (s *Snapshot) Families() []string {
	names := []string{}
	for _, n := range []string{"gas", "dm", "star", "bh"} {
		p, _ := s.Family(n)
		if p.Len() > 0 {
			names = append(names, n)
		}
	}
	return names
}

// All returns every particle in the snapshot as a single family. Hsml and
// Tform are dropped; the result aliases nothing.
func (s *Snapshot) All() *Particles {
	n := s.Gas.Len() + s.DM.Len() + s.Star.Len() + s.BH.Len()
	out := &Particles{
		Pos:  make([][3]float64, 0, n),
		Vel:  make([][3]float64, 0, n),
		Mass: make([]float64, 0, n),
	}
	for _, p := range []*Particles{&s.Gas, &s.DM, &s.Star, &s.BH} {
		out.Pos = append(out.Pos, p.Pos...)
		out.Vel = append(out.Vel, p.Vel...)
		out.Mass = append(out.Mass, p.Mass...)
	}
	return out
}

// recoverBlackHoles populates the bh family from star particles with a
// negative formation time, the convention used by runs that store sink
// particles in the star block. Missing data is logged and skipped.
func (s *Snapshot) recoverBlackHoles() {
	if s.BH.Len() > 0 {
		return
	}
	if s.Star.Tform == nil {
		log.Warn().Msg("cannot find bh: no bh family and stars carry no formation times")
		return
	}

	for i, tf := range s.Star.Tform {
		if tf < 0 {
			s.BH.Pos = append(s.BH.Pos, s.Star.Pos[i])
			s.BH.Vel = append(s.BH.Vel, s.Star.Vel[i])
			s.BH.Mass = append(s.BH.Mass, s.Star.Mass[i])
			s.BH.Tform = append(s.BH.Tform, tf)
		}
	}
	if s.BH.Len() == 0 {
		log.Warn().Msg("cannot find bh: no star particle has tform < 0")
	} else {
		log.Debug().Int("n", s.BH.Len()).Msg("recovered black holes from star block")
	}
}

// TotalMass sums the family's masses in Msun.
func (p *Particles) TotalMass() float64 {
	m := 0.0
	for _, mi := range p.Mass {
		m += mi
	}
	return m
}

// MaxRadius returns the largest 3D distance from the origin.
func (p *Particles) MaxRadius() float64 {
	r2max := 0.0
	for _, x := range p.Pos {
		r2 := x[0]*x[0] + x[1]*x[1] + x[2]*x[2]
		if r2 > r2max {
			r2max = r2
		}
	}
	return math.Sqrt(r2max)
}

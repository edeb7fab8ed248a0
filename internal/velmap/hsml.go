package velmap

import (
	"math"
	"sort"

	"github.com/astrokit/velmaps/internal/snapshot"
)

// hsmlNeighbors is the neighbour count defining adaptive smoothing lengths:
// h is half the distance to the 32nd nearest neighbour.
const hsmlNeighbors = 32

// SmoothingLengths returns per-particle smoothing lengths in kpc. Stored
// lengths (the snapshot's SPH block) win; otherwise they are estimated
// from a k-nearest-neighbour search over a spatial cell hash.
func SmoothingLengths(p *snapshot.Particles) []float64 {
	if p.Hsml != nil && len(p.Hsml) == p.Len() {
		return p.Hsml
	}
	return estimateHsml(p.Pos, hsmlNeighbors)
}

type cellKey [3]int

// estimateHsml computes half the k-th neighbour distance for every
// position using a uniform cell hash sized to hold ~k particles per cell.
func estimateHsml(pos [][3]float64, k int) []float64 {
	n := len(pos)
	hs := make([]float64, n)
	if n == 0 {
		return hs
	}
	if n <= k {
		// Too few particles for a neighbour estimate; fall back to the
		// bounding-sphere scale.
		r := boundingRadius(pos)
		if r == 0 {
			r = 1
		}
		for i := range hs {
			hs[i] = r / 2
		}
		return hs
	}

	lo, hi := bounds(pos)
	volume := 1.0
	for j := 0; j < 3; j++ {
		w := hi[j] - lo[j]
		if w <= 0 {
			w = 1e-6
		}
		volume *= w
	}
	cell := math.Cbrt(volume * float64(k) / float64(n))

	grid := make(map[cellKey][]int, n/k+1)
	key := func(x [3]float64) cellKey {
		return cellKey{
			int(math.Floor(x[0] / cell)),
			int(math.Floor(x[1] / cell)),
			int(math.Floor(x[2] / cell)),
		}
	}
	for i, x := range pos {
		grid[key(x)] = append(grid[key(x)], i)
	}

	d2s := make([]float64, 0, 8*k)
	for i, x := range pos {
		c := key(x)
		d2s = d2s[:0]

		for ring := 0; ; ring++ {
			// Gather the cells on the surface of the ring.
			for dx := -ring; dx <= ring; dx++ {
				for dy := -ring; dy <= ring; dy++ {
					for dz := -ring; dz <= ring; dz++ {
						if maxAbs(dx, dy, dz) != ring {
							continue
						}
						for _, j := range grid[cellKey{c[0] + dx, c[1] + dy, c[2] + dz}] {
							if j == i {
								continue
							}
							d2s = append(d2s, dist2(x, pos[j]))
						}
					}
				}
			}

			if len(d2s) < k {
				continue
			}
			sort.Float64s(d2s)
			dk := math.Sqrt(d2s[k-1])

			// Any closer neighbour in an unvisited cell would be at least
			// ring*cell away; once the k-th distance beats that, stop.
			if dk <= float64(ring)*cell {
				hs[i] = dk / 2
				break
			}
		}
	}
	return hs
}

func bounds(pos [][3]float64) (lo, hi [3]float64) {
	lo, hi = pos[0], pos[0]
	for _, x := range pos {
		for j := 0; j < 3; j++ {
			if x[j] < lo[j] {
				lo[j] = x[j]
			}
			if x[j] > hi[j] {
				hi[j] = x[j]
			}
		}
	}
	return lo, hi
}

func boundingRadius(pos [][3]float64) float64 {
	lo, hi := bounds(pos)
	r := 0.0
	for j := 0; j < 3; j++ {
		if w := hi[j] - lo[j]; w > r {
			r = w
		}
	}
	return r / 2
}

func dist2(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return dx*dx + dy*dy + dz*dz
}

func maxAbs(a, b, c int) int {
	m := a
	if a < 0 {
		m = -a
	}
	if b < 0 {
		b = -b
	}
	if c < 0 {
		c = -c
	}
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

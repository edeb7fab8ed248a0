package snapshot

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/rs/zerolog/log"
)

// gadget2Header is the 256-byte on-disk header of a GADGET-2 snapshot.
type gadget2Header struct {
	NPart                      [6]uint32
	Mass                       [6]float64
	Time, Redshift             float64
	FlagSfr, FlagFeedback      int32
	NPartTotal                 [6]uint32
	FlagCooling, NumFiles      int32
	BoxSize, Omega0            float64
	OmegaLambda, HubbleParam   float64
	FlagStellarAge, FlagMetals int32
	NPartTotalHW               [6]uint32
	FlagEntropyICs             int32

	Padding [56]byte
}

// GADGET-2 particle type indices. The disk and bulge types are folded
// into dm.
const (
	typeGas   = 0
	typeHalo  = 1
	typeDisk  = 2
	typeBulge = 3
	typeStar  = 4
	typeBH    = 5
)

// Open reads a single-file GADGET-2 snapshot and converts it to physical
// units: comoving kpc/h -> kpc, internal velocities -> peculiar km/s,
// 1e10 Msun/h -> Msun. Black holes missing from the bh block are recovered
// from stars with tform < 0 where possible.
func Open(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	order := binary.ByteOrder(binary.LittleEndian)

	gh := &gadget2Header{}
	if err := readBlock(f, order, gh, 256); err != nil {
		return nil, fmt.Errorf("reading gadget header from %s: %w", path, err)
	}

	n := 0
	for _, np := range gh.NPart {
		n += int(np)
	}

	xs := make([][3]float32, n)
	vs := make([][3]float32, n)

	// Positions and velocities are mandatory blocks; their Fortran sizes
	// double as corruption checks.
	if err := readBlock(f, order, xs, 12*n); err != nil {
		return nil, fmt.Errorf("position block of %s: %w", path, err)
	}
	if err := readBlock(f, order, vs, 12*n); err != nil {
		return nil, fmt.Errorf("velocity block of %s: %w", path, err)
	}

	// IDs are 4 or 8 bytes wide depending on the run; either way they are
	// not needed downstream, so the block is skipped by size.
	idSize := readInt32(f, order)
	if int(idSize) != 4*n && int(idSize) != 8*n {
		return nil, fmt.Errorf("%w: id block is %d bytes for %d particles", ErrCorrupt, idSize, n)
	}
	if _, err := f.Seek(int64(idSize), io.SeekCurrent); err != nil {
		return nil, err
	}
	_ = readInt32(f, order)

	ms, err := readMasses(f, order, gh)
	if err != nil {
		return nil, fmt.Errorf("mass block of %s: %w", path, err)
	}

	hsml, tform := readOptionalBlocks(f, order, gh)

	snap := assemble(gh, xs, vs, ms, hsml, tform)
	if err := snap.toPhysical(gh); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	snap.recoverBlackHoles()

	log.Info().
		Str("file", path).
		Float64("z", snap.Header.Redshift).
		Ints("npart", []int{snap.Gas.Len(), snap.DM.Len(), snap.Star.Len(), snap.BH.Len()}).
		Msg("loaded snapshot")

	return snap, nil
}

func readInt32(r io.Reader, order binary.ByteOrder) int32 {
	var v int32
	binary.Read(r, order, &v)
	return v
}

// readBlock reads one Fortran-style record, checking the leading size
// marker against the expected payload size.
func readBlock(r io.Reader, order binary.ByteOrder, data interface{}, expected int) error {
	size := readInt32(r, order)
	if int(size) != expected {
		return fmt.Errorf("%w: got %d bytes, expected %d", ErrCorrupt, size, expected)
	}
	if err := binary.Read(r, order, data); err != nil {
		return err
	}
	_ = readInt32(r, order)
	return nil
}

// readMasses expands the variable-mass block (present only for types whose
// header mass entry is zero) into one mass per particle.
func readMasses(r io.Reader, order binary.ByteOrder, gh *gadget2Header) ([]float32, error) {
	variable := 0
	total := 0
	for i := 0; i < 6; i++ {
		total += int(gh.NPart[i])
		if gh.Mass[i] == 0 {
			variable += int(gh.NPart[i])
		}
	}

	block := make([]float32, variable)
	if variable > 0 {
		if err := readBlock(r, order, block, 4*variable); err != nil {
			return nil, err
		}
	}

	ms := make([]float32, total)
	at, blockAt := 0, 0
	for i := 0; i < 6; i++ {
		np := int(gh.NPart[i])
		if gh.Mass[i] == 0 {
			copy(ms[at:at+np], block[blockAt:blockAt+np])
			blockAt += np
		} else {
			for j := at; j < at+np; j++ {
				ms[j] = float32(gh.Mass[i])
			}
		}
		at += np
	}
	return ms, nil
}

// readOptionalBlocks scans the SPH and star blocks that may follow the
// masses. Gas-sized blocks arrive in the order U, RHO, [NE, NH,] HSML; the
// first star-sized block is the formation time. Anything unrecognized is
// skipped. Truncated files simply yield fewer optional arrays.
func readOptionalBlocks(r io.ReadSeeker, order binary.ByteOrder, gh *gadget2Header) (hsml, tform []float32) {
	nGas := int(gh.NPart[typeGas])
	nStar := int(gh.NPart[typeStar])

	hsmlIndex := 2 // U, RHO, HSML
	if gh.FlagCooling != 0 {
		hsmlIndex = 4 // U, RHO, NE, NH, HSML
	}

	gasSeen := 0
	for {
		var size int32
		if err := binary.Read(r, order, &size); err != nil {
			return hsml, tform
		}

		switch {
		case nGas > 0 && int(size) == 4*nGas && gasSeen <= hsmlIndex:
			if gasSeen == hsmlIndex {
				buf := make([]float32, nGas)
				if err := binary.Read(r, order, buf); err != nil {
					return hsml, tform
				}
				hsml = buf
			} else if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
				return hsml, tform
			}
			gasSeen++
		case nStar > 0 && int(size) == 4*nStar && tform == nil:
			buf := make([]float32, nStar)
			if err := binary.Read(r, order, buf); err != nil {
				return hsml, tform
			}
			tform = buf
		default:
			if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
				return hsml, tform
			}
		}
		_ = readInt32(r, order)

		if hsml != nil && tform != nil {
			return hsml, tform
		}
	}
}

// assemble splits the flat per-type arrays into families.
func assemble(gh *gadget2Header, xs, vs [][3]float32, ms, hsml, tform []float32) *Snapshot {
	snap := &Snapshot{}

	at := 0
	for i := 0; i < 6; i++ {
		np := int(gh.NPart[i])
		var fam *Particles
		switch i {
		case typeGas:
			fam = &snap.Gas
		case typeHalo, typeDisk, typeBulge:
			fam = &snap.DM
		case typeStar:
			fam = &snap.Star
		case typeBH:
			fam = &snap.BH
		}

		for j := at; j < at+np; j++ {
			fam.Pos = append(fam.Pos, [3]float64{
				float64(xs[j][0]), float64(xs[j][1]), float64(xs[j][2]),
			})
			fam.Vel = append(fam.Vel, [3]float64{
				float64(vs[j][0]), float64(vs[j][1]), float64(vs[j][2]),
			})
			fam.Mass = append(fam.Mass, float64(ms[j]))
		}
		at += np
	}

	if hsml != nil {
		snap.Gas.Hsml = make([]float64, len(hsml))
		for i, h := range hsml {
			snap.Gas.Hsml[i] = float64(h)
		}
	}
	if tform != nil {
		snap.Star.Tform = make([]float64, len(tform))
		for i, tf := range tform {
			snap.Star.Tform[i] = float64(tf)
		}
	}

	snap.Header = Header{
		Redshift: gh.Redshift,
		Time:     gh.Time,
		OmegaM:   gh.Omega0,
		OmegaL:   gh.OmegaLambda,
		H100:     gh.HubbleParam,
	}
	for i := 0; i < 6; i++ {
		snap.Header.NPart[i] = int(gh.NPart[i])
	}

	return snap
}

// toPhysical converts GADGET internal units in place: comoving kpc/h to
// proper kpc, internal velocity u = v/sqrt(a) to peculiar km/s, and
// 1e10 Msun/h to Msun. Corrupt values abort the load.
func (s *Snapshot) toPhysical(gh *gadget2Header) error {
	a := gh.Time
	if a <= 0 {
		a = 1 // non-cosmological run
	}
	h := gh.HubbleParam
	if h <= 0 {
		h = 1
	}
	rootA := math.Sqrt(a)

	s.Header.BoxSize = gh.BoxSize * a / h

	for _, fam := range []*Particles{&s.Gas, &s.DM, &s.Star, &s.BH} {
		for i := range fam.Pos {
			for j := 0; j < 3; j++ {
				fam.Pos[i][j] *= a / h
				fam.Vel[i][j] *= rootA

				if math.IsNaN(fam.Pos[i][j]) || math.IsInf(fam.Pos[i][j], 0) {
					return fmt.Errorf("%w: non-finite position", ErrCorrupt)
				}
			}
			fam.Mass[i] *= 1e10 / h
		}
		for i := range fam.Hsml {
			fam.Hsml[i] *= a / h
		}
	}
	return nil
}

package storage

import (
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astrokit/velmaps/internal/velmap"
)

func sampleMap() *velmap.VelocityMap {
	const npix = 10
	m := &velmap.VelocityMap{
		NPixels:          npix,
		ImageWidthKpc:    20,
		PixelScaleArcsec: 0.5,
		ApertureRadius:   6,
		KpcPerArcsec:     0.62,
		KpcPerPixel:      2,
	}
	radius := m.ApertureRadius / m.KpcPerArcsec / m.PixelScaleArcsec
	c := float64(npix / 2)

	m.Data = make([][]float64, npix)
	m.Mask = make([][]bool, npix)
	for iy := 0; iy < npix; iy++ {
		m.Data[iy] = make([]float64, npix)
		m.Mask[iy] = make([]bool, npix)
		for ix := 0; ix < npix; ix++ {
			dx, dy := float64(ix)-c, float64(iy)-c
			m.Mask[iy][ix] = math.Sqrt(dx*dx+dy*dy) <= radius
			if !m.Mask[iy][ix] {
				m.Data[iy][ix] = math.NaN()
				continue
			}
			m.Data[iy][ix] = float64(10*iy + ix)
		}
	}
	return m
}

func sampleMeta() RunMetadata {
	return RunMetadata{
		Snapshot:         "snap_063",
		Family:           "star",
		Orientation:      "sideon",
		Redshift:         0.03,
		ImageWidthKpc:    20,
		PixelScaleArcsec: 0.5,
		ApertureKpc:      6,
		KpcPerArcsec:     0.62,
		Results:          map[string]float64{"pa_deg": 92.5},
	}
}

func TestSaveAndLoad(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.Init())

	runID, err := s.Save(sampleMeta(), sampleMap())
	require.NoError(t, err)
	assert.Contains(t, runID, "star_")

	meta, err := s.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, runID, meta.ID)
	assert.Equal(t, "sideon", meta.Orientation)
	assert.Equal(t, 92.5, meta.Results["pa_deg"])
	assert.False(t, meta.Timestamp.IsZero())
}

func TestLoadMapRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.Init())

	orig := sampleMap()
	runID, err := s.Save(sampleMeta(), orig)
	require.NoError(t, err)

	got, err := s.LoadMap(runID)
	require.NoError(t, err)
	require.Equal(t, orig.NPixels, got.NPixels)
	assert.Equal(t, orig.KpcPerPixel, got.KpcPerPixel)

	for iy := 0; iy < orig.NPixels; iy++ {
		for ix := 0; ix < orig.NPixels; ix++ {
			assert.Equal(t, orig.Mask[iy][ix], got.Mask[iy][ix], "mask (%d,%d)", ix, iy)
			if orig.Mask[iy][ix] {
				assert.Equal(t, orig.Data[iy][ix], got.Data[iy][ix], "data (%d,%d)", ix, iy)
			} else {
				assert.True(t, math.IsNaN(got.Data[iy][ix]), "masked cell (%d,%d) not NaN", ix, iy)
			}
		}
	}
}

func TestListSkipsJunk(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.Init())

	_, err := s.Save(sampleMeta(), sampleMap())
	require.NoError(t, err)
	_, err = s.Save(sampleMeta(), sampleMap())
	require.NoError(t, err)

	// Directories without metadata are ignored.
	require.NoError(t, os.MkdirAll(dir+"/not-a-run", 0755))

	runs, err := s.List()
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestListMissingDir(t *testing.T) {
	s := New(t.TempDir() + "/nope")
	runs, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

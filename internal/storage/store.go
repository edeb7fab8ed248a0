// Package storage keeps rendered runs on disk so they can be listed,
// re-exported and re-viewed without reprocessing the snapshot. Each run
// gets its own directory with a metadata document and the map grid.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/astrokit/velmaps/internal/velmap"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata describes one stored map run.
type RunMetadata struct {
	ID               string             `json:"id"`
	Snapshot         string             `json:"snapshot"`
	Family           string             `json:"family"`
	Orientation      string             `json:"orientation"`
	Timestamp        time.Time          `json:"timestamp"`
	Redshift         float64            `json:"redshift"`
	ImageWidthKpc    float64            `json:"image_width_kpc"`
	PixelScaleArcsec float64            `json:"pixel_scale_arcsec"`
	FWHMArcsec       float64            `json:"fwhm_arcsec"`
	ApertureKpc      float64            `json:"aperture_kpc"`
	KpcPerArcsec     float64            `json:"kpc_per_arcsec"`
	Results          map[string]float64 `json:"results,omitempty"`
}

// Save writes the metadata and the map grid under a fresh run directory
// and returns the run ID.
func (s *Store) Save(meta RunMetadata, m *velmap.VelocityMap) (string, error) {
	runID := fmt.Sprintf("%s_%d", meta.Family, time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = time.Now()

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "map.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	// Grid form, one CSV row per pixel row; masked or empty pixels
	// become "nan".
	for iy := 0; iy < m.NPixels; iy++ {
		row := make([]string, m.NPixels)
		for ix := 0; ix < m.NPixels; ix++ {
			if !m.Mask[iy][ix] || math.IsNaN(m.Data[iy][ix]) {
				row[ix] = "nan"
				continue
			}
			row[ix] = strconv.FormatFloat(m.Data[iy][ix], 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	return runID, w.Error()
}

// List returns the metadata of every stored run, skipping unreadable
// entries. A missing base directory yields an empty list.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadMap reconstructs the stored velocity map of a run. The mask is
// rebuilt from the stored aperture geometry; grid cells saved as "nan"
// come back as NaN.
func (s *Store) LoadMap(runID string) (*velmap.VelocityMap, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.baseDir, runID, "map.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	npix := len(records)
	if npix == 0 {
		return nil, fmt.Errorf("storage: run %s has an empty map", runID)
	}

	m := &velmap.VelocityMap{
		NPixels:          npix,
		ImageWidthKpc:    meta.ImageWidthKpc,
		PixelScaleArcsec: meta.PixelScaleArcsec,
		FWHMArcsec:       meta.FWHMArcsec,
		ApertureRadius:   meta.ApertureKpc,
		KpcPerArcsec:     meta.KpcPerArcsec,
		KpcPerPixel:      meta.ImageWidthKpc / float64(npix),
	}

	radius := math.Inf(1)
	if meta.ApertureKpc > 0 && meta.KpcPerArcsec > 0 && meta.PixelScaleArcsec > 0 {
		radius = meta.ApertureKpc / meta.KpcPerArcsec / meta.PixelScaleArcsec
	}
	c := float64(npix / 2)

	m.Data = make([][]float64, npix)
	m.Mask = make([][]bool, npix)
	for iy, rec := range records {
		if len(rec) != npix {
			return nil, fmt.Errorf("storage: run %s row %d has %d cells, expected %d", runID, iy, len(rec), npix)
		}
		m.Data[iy] = make([]float64, npix)
		m.Mask[iy] = make([]bool, npix)
		for ix, cell := range rec {
			dx, dy := float64(ix)-c, float64(iy)-c
			m.Mask[iy][ix] = math.Sqrt(dx*dx+dy*dy) <= radius
			if cell == "nan" {
				m.Data[iy][ix] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("storage: run %s cell (%d,%d): %w", runID, ix, iy, err)
			}
			m.Data[iy][ix] = v
		}
	}
	m.Raw = m.Data
	return m, nil
}

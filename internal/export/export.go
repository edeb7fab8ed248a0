// Package export writes velocity maps to interchange formats: long-form
// CSV, a self-describing JSON document, and a standalone SVG figure.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/astrokit/velmaps/internal/velmap"
)

// WriteCSV writes the map's valid pixels in long form, one row per pixel:
// sky coordinates in kpc and the line-of-sight velocity.
func WriteCSV(path string, m *velmap.VelocityMap) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"x_kpc", "y_kpc", "v_los_km_s"}); err != nil {
		return err
	}

	for iy := 0; iy < m.NPixels; iy++ {
		for ix := 0; ix < m.NPixels; ix++ {
			if !m.Mask[iy][ix] || math.IsNaN(m.Data[iy][ix]) {
				continue
			}
			x, y := m.PixelToKpc(ix, iy)
			row := []string{
				strconv.FormatFloat(x, 'f', 4, 64),
				strconv.FormatFloat(y, 'f', 4, 64),
				strconv.FormatFloat(m.Data[iy][ix], 'f', 4, 64),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return w.Error()
}

// MapDocument is the JSON form of a velocity map. Pixels outside the
// aperture or without deposited mass are null.
type MapDocument struct {
	NPixels          int          `json:"npixels"`
	ImageWidthKpc    float64      `json:"image_width_kpc"`
	PixelScaleArcsec float64      `json:"pixel_scale_arcsec"`
	FWHMArcsec       float64      `json:"fwhm_arcsec"`
	ApertureKpc      float64      `json:"aperture_kpc"`
	KpcPerArcsec     float64      `json:"kpc_per_arcsec"`
	Data             [][]*float64 `json:"data"`
}

// NewMapDocument converts a map into its JSON form.
func NewMapDocument(m *velmap.VelocityMap) *MapDocument {
	doc := &MapDocument{
		NPixels:          m.NPixels,
		ImageWidthKpc:    m.ImageWidthKpc,
		PixelScaleArcsec: m.PixelScaleArcsec,
		FWHMArcsec:       m.FWHMArcsec,
		ApertureKpc:      m.ApertureRadius,
		KpcPerArcsec:     m.KpcPerArcsec,
		Data:             make([][]*float64, m.NPixels),
	}
	for iy := 0; iy < m.NPixels; iy++ {
		doc.Data[iy] = make([]*float64, m.NPixels)
		for ix := 0; ix < m.NPixels; ix++ {
			if !m.Mask[iy][ix] || math.IsNaN(m.Data[iy][ix]) {
				continue
			}
			v := m.Data[iy][ix]
			doc.Data[iy][ix] = &v
		}
	}
	return doc
}

// WriteJSON writes the map as an indented JSON document.
func WriteJSON(path string, m *velmap.VelocityMap) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewMapDocument(m)); err != nil {
		return fmt.Errorf("export: encode %s: %w", path, err)
	}
	return nil
}

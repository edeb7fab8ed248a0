package export

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/astrokit/velmaps/internal/render"
	"github.com/astrokit/velmaps/internal/velmap"
)

// MapToSVG renders the map as a standalone SVG: one rect per valid pixel
// colored by the diverging scale, with the aperture drawn as a dashed
// circle. The cell edge length in SVG units is given by scale.
func MapToSVG(m *velmap.VelocityMap, cmap *render.Colormap, scale float64) string {
	return mapToSVG(m, cmap, scale, nil)
}

// MapToSVGWithPA is MapToSVG plus the kinematic overlay: the dashed
// zero-velocity line at the given angle and the major axis at 90 degrees
// to it.
func MapToSVGWithPA(m *velmap.VelocityMap, cmap *render.Colormap, scale, paAngleDeg float64) string {
	return mapToSVG(m, cmap, scale, &paAngleDeg)
}

func mapToSVG(m *velmap.VelocityMap, cmap *render.Colormap, scale float64, paAngleDeg *float64) string {
	if cmap == nil {
		cmap = render.RdBu
	}
	if scale <= 0 {
		scale = 4
	}

	side := float64(m.NPixels) * scale
	lo, hi := m.Limits()
	span := math.Max(math.Abs(lo), math.Abs(hi))
	if span == 0 {
		span = 1
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#ffffff"/>
`, side, side, side, side))

	for iy := 0; iy < m.NPixels; iy++ {
		// SVG y runs downward; flip so +y is up.
		row := m.NPixels - 1 - iy
		for ix := 0; ix < m.NPixels; ix++ {
			if !m.Mask[row][ix] || math.IsNaN(m.Data[row][ix]) {
				continue
			}
			c := cmap.At((m.Data[row][ix] + span) / (2 * span))
			sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="#%02x%02x%02x"/>
`, float64(ix)*scale, float64(iy)*scale, scale, scale, c.R, c.G, c.B))
		}
	}

	if m.ApertureRadius > 0 {
		r := m.ApertureRadius / m.ImageWidthKpc * side
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="none" stroke="#141414" stroke-dasharray="6,4"/>
`, side/2, side/2, r))
	}

	if paAngleDeg != nil {
		rad := m.ApertureRadius
		if rad <= 0 {
			rad = m.ImageWidthKpc / 2
		}
		r := rad / m.ImageWidthKpc * side
		a := *paAngleDeg * math.Pi / 180
		// SVG y points down, so the sky +y component is negated.
		zx, zy := r*math.Cos(a), -r*math.Sin(a)
		mx, my := -r*math.Sin(a), -r*math.Cos(a)
		c := side / 2
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#141414" stroke-dasharray="6,4"/>
`, c-zx, c-zy, c+zx, c+zy))
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#008c3c"/>
`, c-mx, c-my, c+mx, c+my))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// WriteSVG writes the SVG figure to a file.
func WriteSVG(path string, m *velmap.VelocityMap, cmap *render.Colormap, scale float64) error {
	return os.WriteFile(path, []byte(MapToSVG(m, cmap, scale)), 0644)
}

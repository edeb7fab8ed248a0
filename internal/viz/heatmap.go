// Package viz renders velocity maps in the terminal: a truecolor
// half-block heatmap and an interactive viewer.
package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/astrokit/velmaps/internal/render"
	"github.com/astrokit/velmaps/internal/velmap"
)

// Heatmap renders the map as colored half-block characters, two map rows
// per terminal line. Width caps the character width; the map is
// downsampled by integer strides to fit. Zero vmin and vmax mean
// symmetric limits from the data.
func Heatmap(m *velmap.VelocityMap, cmap *render.Colormap, width int, vmin, vmax float64) string {
	if cmap == nil {
		cmap = render.RdBu
	}
	if width <= 0 {
		width = 72
	}

	if vmin == 0 && vmax == 0 {
		lo, hi := m.Limits()
		v := math.Max(math.Abs(lo), math.Abs(hi))
		vmin, vmax = -v, v
	}
	if vmax <= vmin {
		vmax = vmin + 1
	}

	stride := 1
	for m.NPixels/stride > width {
		stride++
	}
	cols := m.NPixels / stride
	rows := cols / 2

	var b strings.Builder
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			// Top half-block cell above the bottom one; +y is up, so
			// terminal row 0 samples the top of the map.
			top := m.NPixels - 1 - (2*row)*stride
			bot := m.NPixels - 1 - (2*row+1)*stride
			ix := col * stride

			style := lipgloss.NewStyle()
			tc, tok := cellColor(m, cmap, ix, top, vmin, vmax)
			bc, bok := cellColor(m, cmap, ix, bot, vmin, vmax)
			switch {
			case !tok && !bok:
				b.WriteString(" ")
				continue
			case tok:
				style = style.Foreground(lipgloss.Color(tc))
				if bok {
					style = style.Background(lipgloss.Color(bc))
				}
				b.WriteString(style.Render("▀"))
			default:
				style = style.Foreground(lipgloss.Color(bc))
				b.WriteString(style.Render("▄"))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func cellColor(m *velmap.VelocityMap, cmap *render.Colormap, ix, iy int, vmin, vmax float64) (string, bool) {
	if iy < 0 || iy >= m.NPixels {
		return "", false
	}
	if !m.Mask[iy][ix] || math.IsNaN(m.Data[iy][ix]) {
		return "", false
	}
	c := cmap.At((m.Data[iy][ix] - vmin) / (vmax - vmin))
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B), true
}

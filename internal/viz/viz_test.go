package viz

import (
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/astrokit/velmaps/internal/velmap"
)

func tinyMap() *velmap.VelocityMap {
	const npix = 16
	m := &velmap.VelocityMap{
		NPixels:        npix,
		ImageWidthKpc:  16,
		KpcPerPixel:    1,
		ApertureRadius: 6,
	}
	m.Data = make([][]float64, npix)
	m.Mask = make([][]bool, npix)
	for iy := 0; iy < npix; iy++ {
		m.Data[iy] = make([]float64, npix)
		m.Mask[iy] = make([]bool, npix)
		for ix := 0; ix < npix; ix++ {
			x, y := m.PixelToKpc(ix, iy)
			if math.Hypot(x, y) > m.ApertureRadius {
				m.Data[iy][ix] = math.NaN()
				continue
			}
			m.Mask[iy][ix] = true
			m.Data[iy][ix] = 8 * x
		}
	}
	return m
}

func TestHeatmapShape(t *testing.T) {
	out := Heatmap(tinyMap(), nil, 80, 0, 0)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 8 {
		t.Errorf("16-pixel map should give 8 half-block lines, got %d", len(lines))
	}
	if !strings.Contains(out, "▀") && !strings.Contains(out, "▄") {
		t.Error("no half-block cells rendered")
	}
}

func TestHeatmapDownsamples(t *testing.T) {
	out := Heatmap(tinyMap(), nil, 8, 0, 0)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) > 4 {
		t.Errorf("width-8 render should downsample to <=4 lines, got %d", len(lines))
	}
}

func TestViewerKeyHandling(t *testing.T) {
	maps := map[string]*velmap.VelocityMap{"star": tinyMap(), "gas": tinyMap()}
	v := NewViewer([]string{"star", "gas"}, maps)

	if !strings.Contains(v.View(), "star velocity map") {
		t.Error("initial view missing family title")
	}

	model, _ := v.Update(tea.KeyMsg{Type: tea.KeyTab})
	v = model.(*Viewer)
	if !strings.Contains(v.View(), "gas velocity map") {
		t.Error("tab did not switch family")
	}

	before := v.cmaps[v.cmap].Name
	model, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}})
	v = model.(*Viewer)
	if v.cmaps[v.cmap].Name == before {
		t.Error("c did not cycle the colormap")
	}

	model, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'+'}})
	v = model.(*Viewer)
	if v.span == 0 {
		t.Error("+ did not pin the velocity span")
	}
	narrowed := v.span
	model, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'-'}})
	v = model.(*Viewer)
	if v.span <= narrowed {
		t.Error("- did not widen the span")
	}

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Error("q should quit")
	}
}

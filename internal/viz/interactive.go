package viz

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/astrokit/velmaps/internal/render"
	"github.com/astrokit/velmaps/internal/velmap"
)

// Viewer is an interactive terminal browser over one or more maps.
type Viewer struct {
	names  []string
	maps   map[string]*velmap.VelocityMap
	cmaps  []*render.Colormap
	family int
	cmap   int
	span   float64 // current half-range in km/s; 0 means auto
	width  int
}

// NewViewer builds the viewer; names fixes the family cycling order.
func NewViewer(names []string, maps map[string]*velmap.VelocityMap) *Viewer {
	return &Viewer{
		names: names,
		maps:  maps,
		cmaps: []*render.Colormap{render.PuOr, render.RdBu},
		width: 80,
	}
}

func (v *Viewer) current() *velmap.VelocityMap {
	return v.maps[v.names[v.family]]
}

func (v *Viewer) autoSpan() float64 {
	lo, hi := v.current().Limits()
	s := math.Max(math.Abs(lo), math.Abs(hi))
	if s == 0 {
		s = 1
	}
	return s
}

func (v *Viewer) Init() tea.Cmd { return nil }

func (v *Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		return v, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return v, tea.Quit
		case "tab":
			v.family = (v.family + 1) % len(v.names)
			v.span = 0
		case "c":
			v.cmap = (v.cmap + 1) % len(v.cmaps)
		case "+", "=":
			if v.span == 0 {
				v.span = v.autoSpan()
			}
			v.span *= 0.8
		case "-", "_":
			if v.span == 0 {
				v.span = v.autoSpan()
			}
			v.span *= 1.25
		case "r":
			v.span = 0
		}
	}
	return v, nil
}

func (v *Viewer) View() string {
	m := v.current()
	cm := v.cmaps[v.cmap]

	span := v.span
	if span == 0 {
		span = v.autoSpan()
	}

	var b strings.Builder
	b.WriteString("\n " + Title(fmt.Sprintf("%s velocity map", v.names[v.family])) + "\n\n")

	hm := Heatmap(m, cm, v.width-4, -span, span)
	for _, line := range strings.Split(strings.TrimRight(hm, "\n"), "\n") {
		b.WriteString("  " + line + "\n")
	}

	b.WriteString("\n")
	b.WriteString(Metric("limits", fmt.Sprintf("±%.0f km/s", span)) + "\n")
	b.WriteString(Metric("colormap", cm.Name) + "\n")
	b.WriteString(Metric("pixels", fmt.Sprintf("%dx%d (%.2f kpc/px)", m.NPixels, m.NPixels, m.KpcPerPixel)) + "\n")
	b.WriteString("\n  " + Keys("tab", "family", "c", "colormap", "+/-", "limits", "r", "reset", "q", "quit") + "\n")
	return b.String()
}

// RunInteractive starts the viewer in the alternate screen.
func RunInteractive(names []string, maps map[string]*velmap.VelocityMap) error {
	if len(names) == 0 {
		return fmt.Errorf("viz: no maps to view")
	}
	_, err := tea.NewProgram(NewViewer(names, maps), tea.WithAltScreen()).Run()
	return err
}

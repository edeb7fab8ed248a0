package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00cccc"))

	Subtle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688"))

	MetricLabel = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899"))

	MetricValue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ccff")).
			Bold(true)

	KeyHint = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#00aaaa")).
		Bold(true)

	WarnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffaa00")).
			Bold(true)
)

// Metric renders a label/value pair on one line.
func Metric(label string, value interface{}) string {
	return fmt.Sprintf("  %s %s", MetricLabel.Render(fmt.Sprintf("%-18s", label)), MetricValue.Render(fmt.Sprint(value)))
}

// Title renders a section header with an underline.
func Title(s string) string {
	return Header.Render(s) + "\n" + Subtle.Render(strings.Repeat("─", len(s)))
}

// Keys renders a key-hint line from alternating key, description pairs.
func Keys(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		if i > 0 {
			b.WriteString(Subtle.Render("  "))
		}
		b.WriteString(KeyHint.Render(pairs[i]))
		b.WriteString(Subtle.Render(" " + pairs[i+1]))
	}
	return b.String()
}

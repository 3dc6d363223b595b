package cmd

import (
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"spectra/internal/wave"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Width(18)

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E8A33D"))
)

// renderHeader lays out the header fields of f as a titled key/value list.
func renderHeader(path string, f wave.Format) string {
	rows := []string{titleStyle.Render(filepath.Base(path))}
	for _, line := range strings.Split(f.String(), "\n") {
		name, value, _ := strings.Cut(line, " ")
		rows = append(rows, keyStyle.Render(name)+highlightStyle.Render(value))
	}
	rows = append(rows, keyStyle.Render("duration")+highlightStyle.Render(f.Duration().String()))

	if err := f.Supported(); err != nil {
		rows = append(rows, warnStyle.Render(err.Error()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

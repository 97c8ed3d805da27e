package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/domain"
)

const (
	colorText    lipgloss.Color = "#cdd6f4"
	colorSubtle  lipgloss.Color = "#6c7086"
	colorBorder  lipgloss.Color = "#1e1e2e"
	colorError   lipgloss.Color = "#f38ba8"
	colorSuccess lipgloss.Color = "#a6e3a1"

	cellWidth = 4
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	statusStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	subtleStyle = lipgloss.NewStyle().Foreground(colorSubtle)

	filledCellStyle = lipgloss.NewStyle().
			Width(cellWidth).
			Border(lipgloss.NormalBorder()).
			BorderForeground(colorBorder)
	emptyCellStyle = lipgloss.NewStyle().
			Width(cellWidth).
			Border(lipgloss.HiddenBorder())
)

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Quarter spiral"))
	b.WriteString(subtleStyle.Render(sizeLabel(m.state)))
	b.WriteString("\n\n")
	b.WriteString(RenderGrid(m.state))
	b.WriteString("\n\n")

	switch {
	case m.errMsg != "":
		b.WriteString(errorStyle.Render(m.errMsg))
	case m.status != "":
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

// RenderGrid draws a dimension x dimension board. Filled cells get their color and a
// visible border; empty cells are blank space of the same size.
func RenderGrid(state domain.GridState) string {
	dim := state.Dimension
	if dim < 1 {
		dim = 1
	}
	byCoord := make(map[domain.Coord]domain.Cell, len(state.Cells))
	for _, cell := range state.Cells {
		byCoord[cell.Coord()] = cell
	}
	rows := make([]string, 0, dim)
	for r := 0; r < dim; r++ {
		cols := make([]string, 0, dim)
		for c := 0; c < dim; c++ {
			if cell, ok := byCoord[domain.Coord{Row: r, Col: c}]; ok {
				cols = append(cols, filledCellStyle.Background(lipgloss.Color(cell.Color)).Render(""))
			} else {
				cols = append(cols, emptyCellStyle.Render(""))
			}
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func sizeLabel(state domain.GridState) string {
	return fmt.Sprintf("  %dx%d, %d filled", state.Dimension, state.Dimension, len(state.Cells))
}

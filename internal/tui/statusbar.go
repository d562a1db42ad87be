package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/altin/flakescan/internal/ui"
)

// RenderStatusBar draws the bottom bar: status text on the left, key hints
// on the right. Errors render in the failure color so an interrupted or
// degraded scan is visible at a glance.
func RenderStatusBar(status string, isErr bool, hints string, width int) string {
	statusStyle := lipgloss.NewStyle().Foreground(ui.ColorMuted)
	if isErr {
		statusStyle = lipgloss.NewStyle().Foreground(ui.ColorFailure)
	}
	left := statusStyle.Render("  " + status)

	help := lipgloss.NewStyle().Foreground(ui.ColorMuted).
		Render(hints + " ")

	gap := width - lipgloss.Width(left) - lipgloss.Width(help)
	if gap < 0 {
		gap = 0
	}
	padding := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.NewStyle().
		Background(lipgloss.Color("#111827")).
		Width(width).
		Render(left + padding + help)
}

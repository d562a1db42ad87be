package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/altin/flakescan/internal/model"
	"github.com/altin/flakescan/internal/ui"
)

// RenderHeader draws the top bar: the pipeline being scanned on the left and
// the running counters on the right once the scan has produced a summary.
func RenderHeader(pipeline string, summary *model.ScanSummary, width int) string {
	left := lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.Color("#F9FAFB")).
		Render(fmt.Sprintf(" flakescan | %s", pipeline))

	right := ""
	if summary != nil {
		color := ui.ColorSuccess
		if summary.MatchesFound > 0 {
			color = ui.ColorWarning
		}
		right = lipgloss.NewStyle().Foreground(color).
			Render(fmt.Sprintf("%d builds  %d jobs  %d matches ",
				summary.BuildsScanned, summary.JobsScanned, summary.MatchesFound))
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	padding := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.NewStyle().
		Background(lipgloss.Color("#1F2937")).
		Width(width).
		Render(left + padding + right)
}

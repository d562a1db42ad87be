package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/altin/flakescan/internal/model"
	"github.com/altin/flakescan/internal/ui"
)

var (
	styleBuild   = lipgloss.NewStyle().Bold(true)
	styleBranch  = lipgloss.NewStyle().Foreground(ui.ColorInfo)
	styleLabel   = lipgloss.NewStyle().Foreground(ui.ColorMuted)
	stylePattern = lipgloss.NewStyle().Foreground(ui.ColorWarning)
	styleURL     = lipgloss.NewStyle().Foreground(ui.ColorInfo).Underline(true)
)

// WriteHuman renders one block per match followed by the one-line summary
// footer. Match order is the scan order: most recent build first, then job
// order within the build, then pattern order.
func WriteHuman(w io.Writer, rep *model.ScanReport) error {
	var b strings.Builder

	if len(rep.Matches) == 0 {
		b.WriteString("\nNo matching patterns found in the scanned builds.\n\n")
	} else {
		fmt.Fprintf(&b, "\nFound %d matching failure(s):\n\n", len(rep.Matches))
		for _, m := range rep.Matches {
			writeMatch(&b, m)
		}
	}

	fmt.Fprintf(&b, "Scanned %d builds, %d jobs, %d matches found.\n",
		rep.Summary.BuildsScanned, rep.Summary.JobsScanned, rep.Summary.MatchesFound)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeMatch(b *strings.Builder, m model.MatchRecord) {
	state := ui.StateStyle(string(m.State)).Render(string(m.State))
	fmt.Fprintf(b, "%s %s %s %s\n",
		styleBuild.Render(fmt.Sprintf("#%d", m.BuildNumber)),
		styleBranch.Render("["+m.Branch+"]"),
		state,
		styleLabel.Render(m.StepLabel))
	fmt.Fprintf(b, "  Pattern: %s\n", stylePattern.Render(m.Pattern))
	for _, line := range strings.Split(m.Snippet, "\n") {
		fmt.Fprintf(b, "  %s\n", line)
	}
	fmt.Fprintf(b, "  %s\n\n", styleURL.Render(m.WebURL))
}

package ui

import "github.com/charmbracelet/lipgloss"

var (
	ColorPrimary   = lipgloss.Color("#7C3AED")
	ColorSuccess   = lipgloss.Color("#10B981")
	ColorFailure   = lipgloss.Color("#EF4444")
	ColorWarning   = lipgloss.Color("#F59E0B")
	ColorInfo      = lipgloss.Color("#3B82F6")
	ColorMuted     = lipgloss.Color("#6B7280")
	ColorBorder    = lipgloss.Color("#374151")
	ColorHighlight = lipgloss.Color("#1F2937")

	StylePane = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StylePaneFocused = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorPrimary)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F9FAFB")).
			Background(ColorPrimary).
			Padding(0, 1)

	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleFailure = lipgloss.NewStyle().Foreground(ColorFailure)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning)
	StyleInfo    = lipgloss.NewStyle().Foreground(ColorInfo)
	StyleMuted   = lipgloss.NewStyle().Foreground(ColorMuted)

	StyleMatch = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FCD34D")).
			Background(lipgloss.Color("#78350F"))
)

func StateStyle(state string) lipgloss.Style {
	switch state {
	case "passed":
		return StyleSuccess
	case "failed", "broken":
		return StyleFailure
	case "canceled", "canceling", "blocked":
		return StyleWarning
	case "skipped", "not_run":
		return StyleMuted
	default:
		return StyleInfo
	}
}

func StateIcon(state string) string {
	switch state {
	case "passed":
		return StyleSuccess.Render("V")
	case "failed", "broken":
		return StyleFailure.Render("X")
	case "canceled", "canceling":
		return StyleWarning.Render("!")
	case "skipped", "not_run":
		return StyleMuted.Render("-")
	case "running":
		return StyleInfo.Render("*")
	case "scheduled", "blocked", "waiting", "assigned", "accepted":
		return StyleMuted.Render("o")
	default:
		return StyleMuted.Render("?")
	}
}

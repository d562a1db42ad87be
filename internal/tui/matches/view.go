package matches

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/altin/flakescan/internal/model"
	"github.com/altin/flakescan/internal/ui"
)

// --- Custom delegate (avoids DefaultDelegate ANSI corruption during filtering) ---

type matchDelegate struct{}

func (d matchDelegate) Height() int                             { return 2 }
func (d matchDelegate) Spacing() int                            { return 0 }
func (d matchDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d matchDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	mi, ok := item.(matchItem)
	if !ok {
		return
	}

	icon := ui.StateIcon(string(mi.match.State))
	ago := ui.StyleMuted.Render(formatAge(time.Since(mi.match.CreatedAt)) + " ago")
	branch := ui.StyleInfo.Render(mi.match.Branch)
	label := ui.StyleMuted.Render(mi.match.StepLabel)

	line1 := fmt.Sprintf(" %s #%d %s  %s  %s", icon, mi.match.BuildNumber, branch, ago, label)
	line2 := fmt.Sprintf("    %s", mi.match.Pattern)

	if index == m.Index() {
		hl := lipgloss.NewStyle().Background(ui.ColorHighlight).Width(m.Width())
		line1 = hl.Render(line1)
		line2 = hl.Render(line2)
	}

	fmt.Fprintf(w, "%s\n%s", line1, line2)
}

// --- Item ---

type matchItem struct {
	match model.MatchRecord
}

func (m matchItem) FilterValue() string {
	return m.match.Branch + " " + m.match.StepLabel + " " + m.match.Pattern
}

func formatAge(d time.Duration) string {
	if d < time.Minute {
		return "<1m"
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}

// --- Model ---

type Model struct {
	list     list.Model
	matches  []model.MatchRecord
	width    int
	height   int
	scanning bool
	err      error
}

func New() Model {
	l := list.New(nil, matchDelegate{}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowFilter(true)
	l.SetShowHelp(false)
	l.SetShowStatusBar(true)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(true)
	l.KeyMap.Filter = key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter"))
	// The app reserves tab/enter/esc for pane control; the list's built-in
	// page keys stay on pgup/pgdown only.
	l.KeyMap.NextPage = key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "next page"))
	l.KeyMap.PrevPage = key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "prev page"))
	l.DisableQuitKeybindings()

	return Model{
		list:     l,
		scanning: true,
	}
}

func (m Model) SelectedMatch() *model.MatchRecord {
	if item, ok := m.list.SelectedItem().(matchItem); ok {
		return &item.match
	}
	return nil
}

func (m Model) Count() int {
	return len(m.matches)
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ui.ScanDoneMsg:
		m.scanning = false
		if msg.Err != nil {
			m.err = msg.Err
		}
		if msg.Report == nil {
			return m, nil
		}
		m.matches = msg.Report.Matches
		items := make([]list.Item, len(m.matches))
		for i, rec := range m.matches {
			items[i] = matchItem{match: rec}
		}
		cmd := m.list.SetItems(items)
		m.list.Select(0)
		return m, cmd

	case tea.KeyMsg:
		// The filter binding can be disabled by the list's own key handling
		// after a resize with zero items; re-enable it whenever items exist.
		if msg.String() == "f" && !m.IsFiltering() && len(m.list.Items()) > 0 {
			m.list.KeyMap.Filter.SetEnabled(true)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.scanning {
		return "\n  Scanning builds..."
	}
	if m.err != nil && len(m.matches) == 0 {
		return fmt.Sprintf("\n  Error: %v", m.err)
	}
	if len(m.matches) == 0 {
		return "\n  No matching patterns found in the scanned builds."
	}
	return m.list.View()
}

func (m Model) IsFiltering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m Model) HasActiveFilter() bool {
	return m.list.FilterState() != list.Unfiltered
}

func (m Model) ShortHelp() []key.Binding {
	return []key.Binding{
		ui.Keys.Enter,
		ui.Keys.Filter,
		ui.Keys.Quit,
	}
}

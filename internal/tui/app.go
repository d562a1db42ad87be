// Package tui is the interactive results browser: it runs the scan once on
// startup, then lets the user walk the match list with the selected match's
// snippet in a side pane.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/altin/flakescan/internal/model"
	"github.com/altin/flakescan/internal/scan"
	"github.com/altin/flakescan/internal/tui/matches"
	"github.com/altin/flakescan/internal/ui"
)

type Pane int

const (
	PaneList Pane = iota
	PaneSnippet
)

type App struct {
	ctx      context.Context
	engine   *scan.Engine
	pipeline string

	matchesView matches.Model
	snippet     viewport.Model

	report      *model.ScanReport
	scanErr     error
	scanning    bool
	focusedPane Pane
	width       int
	height      int
	ready       bool
}

func NewApp(ctx context.Context, engine *scan.Engine, pipeline string) App {
	return App{
		ctx:         ctx,
		engine:      engine,
		pipeline:    pipeline,
		matchesView: matches.New(),
		scanning:    true,
	}
}

// Run launches the browser and blocks until the user quits. An external
// interrupt surfaces as the context's error so the caller can map it to the
// interrupt exit status.
func Run(ctx context.Context, engine *scan.Engine, pipeline string) error {
	p := tea.NewProgram(NewApp(ctx, engine, pipeline),
		tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (a App) Init() tea.Cmd {
	return a.runScan()
}

func (a App) runScan() tea.Cmd {
	return func() tea.Msg {
		rep, err := a.engine.Run(a.ctx)
		return ui.ScanDoneMsg{Report: rep, Err: err}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.propagateSize()
		a.refreshSnippet()
		return a, nil

	case ui.ScanDoneMsg:
		a.scanning = false
		a.report = msg.Report
		a.scanErr = msg.Err
		var cmd tea.Cmd
		a.matchesView, cmd = a.matchesView.Update(msg)
		a.refreshSnippet()
		return a, cmd

	case tea.KeyMsg:
		// While typing a filter every key belongs to the list.
		if a.matchesView.IsFiltering() {
			var cmd tea.Cmd
			a.matchesView, cmd = a.matchesView.Update(msg)
			a.refreshSnippet()
			return a, cmd
		}

		switch {
		case key.Matches(msg, ui.Keys.Quit):
			return a, tea.Quit

		case key.Matches(msg, ui.Keys.Tab):
			if a.focusedPane == PaneList {
				a.focusedPane = PaneSnippet
			} else {
				a.focusedPane = PaneList
			}
			return a, nil

		case key.Matches(msg, ui.Keys.Enter):
			if a.focusedPane == PaneList && a.matchesView.SelectedMatch() != nil {
				a.focusedPane = PaneSnippet
				return a, nil
			}

		case key.Matches(msg, ui.Keys.Back):
			if a.focusedPane == PaneSnippet {
				a.focusedPane = PaneList
				return a, nil
			}
			// esc on the list clears an active filter; the list handles it.
		}

		if a.focusedPane == PaneSnippet {
			var cmd tea.Cmd
			a.snippet, cmd = a.snippet.Update(msg)
			return a, cmd
		}
		var cmd tea.Cmd
		a.matchesView, cmd = a.matchesView.Update(msg)
		a.refreshSnippet()
		return a, cmd
	}

	var cmd tea.Cmd
	a.matchesView, cmd = a.matchesView.Update(msg)
	return a, cmd
}

// propagateSize resizes the panes. Vertical chrome is header(1) + status(1)
// + pane borders(2); horizontal border overhead is 2 chars per pane.
func (a *App) propagateSize() {
	contentH := a.height - 4
	if contentH < 1 {
		contentH = 1
	}
	leftW := a.width * 45 / 100
	rightW := a.width - leftW - 4
	if rightW < 1 {
		rightW = 1
	}

	a.matchesView, _ = a.matchesView.Update(
		tea.WindowSizeMsg{Width: leftW, Height: contentH})

	if !a.ready {
		a.snippet = viewport.New(rightW, contentH)
		a.ready = true
	} else {
		a.snippet.Width = rightW
		a.snippet.Height = contentH
	}
}

func (a *App) refreshSnippet() {
	if !a.ready {
		return
	}
	sel := a.matchesView.SelectedMatch()
	if sel == nil {
		a.snippet.SetContent(ui.StyleMuted.Render("  No match selected"))
		return
	}
	a.snippet.SetContent(renderMatch(*sel))
	a.snippet.GotoTop()
}

func renderMatch(m model.MatchRecord) string {
	bold := lipgloss.NewStyle().Bold(true)

	var b strings.Builder
	b.WriteString(bold.Render(fmt.Sprintf("Build #%d", m.BuildNumber)) + "\n\n")
	b.WriteString(fmt.Sprintf("Branch:  %s\n", ui.StyleInfo.Render(m.Branch)))
	b.WriteString(fmt.Sprintf("State:   %s\n", ui.StateStyle(string(m.State)).Render(string(m.State))))
	b.WriteString(fmt.Sprintf("Step:    %s\n", m.StepLabel))
	b.WriteString(fmt.Sprintf("Created: %s\n", m.CreatedAt.Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("URL:     %s\n", ui.StyleInfo.Render(m.WebURL)))
	b.WriteString("\n" + bold.Render("Pattern") + "\n")
	b.WriteString(ui.StyleMatch.Render(m.Pattern) + "\n")
	b.WriteString("\n" + bold.Render("Snippet") + "\n")
	b.WriteString(m.Snippet + "\n")
	return b.String()
}

func (a App) View() string {
	if a.width == 0 || !a.ready {
		return "Loading..."
	}

	var summary *model.ScanSummary
	if a.report != nil {
		summary = &a.report.Summary
	}
	header := RenderHeader(a.pipeline, summary, a.width)

	contentH := a.height - 4
	if contentH < 1 {
		contentH = 1
	}
	leftW := a.width * 45 / 100
	rightW := a.width - leftW - 4
	if rightW < 1 {
		rightW = 1
	}

	leftStyle := ui.StylePane.Width(leftW).Height(contentH)
	rightStyle := ui.StylePane.Width(rightW).Height(contentH)
	if a.focusedPane == PaneList {
		leftStyle = ui.StylePaneFocused.Width(leftW).Height(contentH)
	} else {
		rightStyle = ui.StylePaneFocused.Width(rightW).Height(contentH)
	}

	content := lipgloss.JoinHorizontal(lipgloss.Top,
		leftStyle.Render(a.matchesView.View()),
		rightStyle.Render(a.snippet.View()))

	status, isErr := a.statusLine()
	bar := RenderStatusBar(status, isErr, a.statusHints(), a.width)

	return header + "\n" + content + "\n" + bar
}

func (a App) statusLine() (string, bool) {
	switch {
	case a.scanning:
		return "Scanning builds...", false
	case a.scanErr != nil:
		return fmt.Sprintf("Scan incomplete: %v", a.scanErr), true
	case a.report != nil:
		s := a.report.Summary
		return fmt.Sprintf("Scanned %d builds, %d jobs, %d matches found.",
			s.BuildsScanned, s.JobsScanned, s.MatchesFound), false
	}
	return "", false
}

func (a App) statusHints() string {
	if a.matchesView.IsFiltering() {
		return "enter:apply  esc:cancel"
	}
	if a.focusedPane == PaneSnippet {
		return "j/k:scroll  tab:pane  esc:back  q:quit"
	}
	return "j/k:navigate  enter:view snippet  f:filter  tab:pane  q:quit"
}

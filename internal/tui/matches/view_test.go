package matches

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/altin/flakescan/internal/model"
	"github.com/altin/flakescan/internal/ui"
)

// runFilterCmds executes commands returned by Update and redelivers the
// list's filter results; bubbles computes filter matches in a tea.Cmd, so
// without this the applied filter never reaches the model in tests.
func runFilterCmds(m Model, cmd tea.Cmd) Model {
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = runFilterCmds(m, c)
		}
	case list.FilterMatchesMsg:
		m, _ = m.Update(msg)
	}
	return m
}

func sampleMatches() []model.MatchRecord {
	return []model.MatchRecord{
		{
			BuildNumber: 120,
			Branch:      "pull/9182",
			State:       "failed",
			CreatedAt:   time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
			StepLabel:   "v1 Test others",
			Pattern:     "get_num_new_matched_tokens 96",
			Snippet:     "get_num_new_matched_tokens 96",
		},
		{
			BuildNumber: 118,
			Branch:      "pull/9000",
			State:       "failed",
			CreatedAt:   time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
			StepLabel:   "v1 Test storage",
			Pattern:     `FAILED .*::test_storage\b`,
			Snippet:     "FAILED tests/conn.py::test_storage",
		},
	}
}

func scanDone(matches []model.MatchRecord) ui.ScanDoneMsg {
	return ui.ScanDoneMsg{Report: &model.ScanReport{
		Summary: model.ScanSummary{MatchesFound: len(matches)},
		Matches: matches,
	}}
}

func loadedModel(t *testing.T, matches []model.MatchRecord) Model {
	t.Helper()
	m := New()
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m, _ = m.Update(scanDone(matches))
	return m
}

func TestViewWhileScanning(t *testing.T) {
	m := New()
	if view := m.View(); !strings.Contains(view, "Scanning builds...") {
		t.Errorf("View() = %q, want scanning message", view)
	}
}

func TestViewShowsMatches(t *testing.T) {
	m := loadedModel(t, sampleMatches())

	if got := m.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}

	view := m.View()
	for _, want := range []string{"#120", "pull/9182", "get_num_new_matched_tokens 96", "#118"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() does not contain %q:\n%s", want, view)
		}
	}

	sel := m.SelectedMatch()
	if sel == nil {
		t.Fatal("SelectedMatch() = nil, want first match selected")
	}
	if sel.BuildNumber != 120 {
		t.Errorf("SelectedMatch().BuildNumber = %d, want 120", sel.BuildNumber)
	}
}

func TestViewZeroMatches(t *testing.T) {
	m := loadedModel(t, []model.MatchRecord{})

	if view := m.View(); !strings.Contains(view, "No matching patterns found in the scanned builds.") {
		t.Errorf("View() = %q, want zero-match message", view)
	}
	if m.SelectedMatch() != nil {
		t.Error("SelectedMatch() != nil, want nil with no matches")
	}
}

func TestViewScanError(t *testing.T) {
	m := New()
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m, _ = m.Update(ui.ScanDoneMsg{Err: errors.New("listing builds: boom")})

	if view := m.View(); !strings.Contains(view, "listing builds: boom") {
		t.Errorf("View() = %q, want the scan error", view)
	}
}

func TestSelectionFollowsNavigation(t *testing.T) {
	m := loadedModel(t, sampleMatches())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	sel := m.SelectedMatch()
	if sel == nil {
		t.Fatal("SelectedMatch() = nil after moving down")
	}
	if sel.BuildNumber != 118 {
		t.Errorf("SelectedMatch().BuildNumber = %d, want 118", sel.BuildNumber)
	}
}

func TestFilterLifecycle(t *testing.T) {
	m := loadedModel(t, sampleMatches())
	// A blinking cursor makes the filter input emit timer commands that
	// block runFilterCmds for the blink interval on every keystroke.
	m.list.FilterInput.Cursor.SetMode(cursor.CursorStatic)

	if m.IsFiltering() {
		t.Fatal("IsFiltering() = true before pressing the filter key")
	}

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	m = runFilterCmds(m, cmd)
	if !m.IsFiltering() {
		t.Fatal("IsFiltering() = false after pressing f")
	}

	for _, r := range "storage" {
		m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = runFilterCmds(m, cmd)
	}
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = runFilterCmds(m, cmd)

	if m.IsFiltering() {
		t.Error("IsFiltering() = true after applying the filter")
	}
	if !m.HasActiveFilter() {
		t.Error("HasActiveFilter() = false after applying the filter")
	}

	sel := m.SelectedMatch()
	if sel == nil {
		t.Fatal("SelectedMatch() = nil with an applied filter")
	}
	if sel.BuildNumber != 118 {
		t.Errorf("SelectedMatch().BuildNumber = %d, want the storage job's build 118", sel.BuildNumber)
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.HasActiveFilter() {
		t.Error("HasActiveFilter() = true after clearing the filter")
	}
}

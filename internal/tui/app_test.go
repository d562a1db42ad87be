package tui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/altin/flakescan/internal/api"
	"github.com/altin/flakescan/internal/model"
	"github.com/altin/flakescan/internal/scan"
	"github.com/altin/flakescan/internal/ui"
)

// stubAPI satisfies scan.API for tests that never execute the scan command.
type stubAPI struct{}

func (stubAPI) ListBuilds(context.Context, api.BuildsPage) ([]model.Build, bool, error) {
	return nil, false, nil
}

func (stubAPI) ListJobs(context.Context, int) ([]model.Job, error) { return nil, nil }

func (stubAPI) JobLog(context.Context, int, string) (io.ReadCloser, error) {
	return nil, &api.NotFoundError{URL: "stub"}
}

func newTestApp(t *testing.T) App {
	t.Helper()
	engine := scan.New(stubAPI{}, scan.Options{MaxBuilds: 1}, nil)
	return NewApp(context.Background(), engine, "acme/ci")
}

func update(t *testing.T, a App, msg tea.Msg) App {
	t.Helper()
	m, _ := a.Update(msg)
	got, ok := m.(App)
	if !ok {
		t.Fatalf("Update() returned %T, want App", m)
	}
	return got
}

func testReport() *model.ScanReport {
	return &model.ScanReport{
		Summary: model.ScanSummary{BuildsScanned: 2, JobsScanned: 3, MatchesFound: 2},
		Matches: []model.MatchRecord{
			{
				BuildNumber: 120,
				Branch:      "pull/9182",
				State:       "failed",
				CreatedAt:   time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
				StepLabel:   "v1 Test others",
				WebURL:      "https://buildkite.com/acme/ci/builds/120",
				Pattern:     "get_num_new_matched_tokens 96",
				Snippet:     "get_num_new_matched_tokens 96",
			},
			{
				BuildNumber: 118,
				Branch:      "pull/9000",
				State:       "failed",
				CreatedAt:   time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
				StepLabel:   "v1 Test storage",
				WebURL:      "https://buildkite.com/acme/ci/builds/118",
				Pattern:     `FAILED .*::test_storage\b`,
				Snippet:     "FAILED tests/conn.py::test_storage",
			},
		},
	}
}

func loadedApp(t *testing.T) App {
	t.Helper()
	a := newTestApp(t)
	a = update(t, a, tea.WindowSizeMsg{Width: 120, Height: 40})
	a = update(t, a, ui.ScanDoneMsg{Report: testReport()})
	return a
}

func TestAppLoadingView(t *testing.T) {
	a := newTestApp(t)
	if got := a.View(); got != "Loading..." {
		t.Errorf("View() = %q, want %q before the first resize", got, "Loading...")
	}
}

func TestAppViewAfterScan(t *testing.T) {
	a := loadedApp(t)

	view := a.View()
	for _, want := range []string{
		"flakescan | acme/ci",
		"#120",
		"Build #120",
		"Scanned 2 builds, 3 jobs, 2 matches found.",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("View() does not contain %q", want)
		}
	}
}

func TestAppPaneFocus(t *testing.T) {
	a := loadedApp(t)
	if a.focusedPane != PaneList {
		t.Fatalf("focusedPane = %v, want PaneList initially", a.focusedPane)
	}

	a = update(t, a, tea.KeyMsg{Type: tea.KeyTab})
	if a.focusedPane != PaneSnippet {
		t.Errorf("focusedPane = %v after tab, want PaneSnippet", a.focusedPane)
	}

	a = update(t, a, tea.KeyMsg{Type: tea.KeyTab})
	if a.focusedPane != PaneList {
		t.Errorf("focusedPane = %v after second tab, want PaneList", a.focusedPane)
	}

	a = update(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	if a.focusedPane != PaneSnippet {
		t.Errorf("focusedPane = %v after enter on a selection, want PaneSnippet", a.focusedPane)
	}

	a = update(t, a, tea.KeyMsg{Type: tea.KeyEsc})
	if a.focusedPane != PaneList {
		t.Errorf("focusedPane = %v after esc, want PaneList", a.focusedPane)
	}
}

func TestAppQuitKey(t *testing.T) {
	a := loadedApp(t)

	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("Update(q) cmd = nil, want tea.Quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Update(q) cmd did not produce tea.QuitMsg")
	}
}

func TestAppFilterCapturesKeys(t *testing.T) {
	a := loadedApp(t)

	a = update(t, a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	if !a.matchesView.IsFiltering() {
		t.Fatal("list did not enter filtering after f")
	}

	// While typing a filter, q is input rather than quit.
	m, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	a = m.(App)
	if cmd != nil {
		if _, isQuit := cmd().(tea.QuitMsg); isQuit {
			t.Error("q while filtering quit the app")
		}
	}
	if !a.matchesView.IsFiltering() {
		t.Error("list left filtering after a typed rune")
	}
}

func TestAppStatusLine(t *testing.T) {
	a := loadedApp(t)

	status, isErr := a.statusLine()
	if isErr {
		t.Error("statusLine() isErr = true for a clean scan")
	}
	if want := "Scanned 2 builds, 3 jobs, 2 matches found."; status != want {
		t.Errorf("statusLine() = %q, want %q", status, want)
	}

	a.scanErr = errors.New("context canceled")
	status, isErr = a.statusLine()
	if !isErr {
		t.Error("statusLine() isErr = false with a scan error")
	}
	if !strings.Contains(status, "Scan incomplete") {
		t.Errorf("statusLine() = %q, want incomplete-scan notice", status)
	}
}

func TestRenderHeader(t *testing.T) {
	summary := &model.ScanSummary{BuildsScanned: 2, JobsScanned: 3, MatchesFound: 1}

	out := RenderHeader("acme/ci", summary, 80)
	if !strings.Contains(out, "flakescan | acme/ci") {
		t.Errorf("header does not contain the pipeline: %q", out)
	}
	if !strings.Contains(out, "1 matches") {
		t.Errorf("header does not contain the counters: %q", out)
	}

	if out := RenderHeader("acme/ci", nil, 80); strings.Contains(out, "matches") {
		t.Errorf("header shows counters before a summary exists: %q", out)
	}
}

func TestRenderStatusBar(t *testing.T) {
	out := RenderStatusBar("Scanning builds...", false, "q:quit", 80)
	if !strings.Contains(out, "Scanning builds...") {
		t.Errorf("status bar does not contain the status: %q", out)
	}
	if !strings.Contains(out, "q:quit") {
		t.Errorf("status bar does not contain the hints: %q", out)
	}
}

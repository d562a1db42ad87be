package scan

import (
	"errors"
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/altin/flakescan/internal/model"
)

func mustPattern(t *testing.T, text string, isRegex bool) model.Pattern {
	t.Helper()
	p, err := model.NewPattern(text, isRegex)
	if err != nil {
		t.Fatalf("NewPattern(%q) error = %v", text, err)
	}
	return p
}

func TestExtractSnippet(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		match  string
		window int
		want   string
	}{
		{
			name:   "window covers whole log",
			text:   "short failure line",
			match:  "failure",
			window: 200,
			want:   "short failure line",
		},
		{
			name:   "clipped both sides",
			text:   "aaaaaaaaaa FAIL bbbbbbbbbb",
			match:  "FAIL",
			window: 3,
			want:   "...aa FAIL bb...",
		},
		{
			name:   "clipped leading only",
			text:   "aaaaaaaaaa FAIL",
			match:  "FAIL",
			window: 3,
			want:   "...aa FAIL",
		},
		{
			name:   "clipped trailing only",
			text:   "FAIL bbbbbbbbbb",
			match:  "FAIL",
			window: 3,
			want:   "FAIL bb...",
		},
		{
			name:   "zero window keeps just the match",
			text:   "xxFAILyy",
			match:  "FAIL",
			window: 0,
			want:   "...FAIL...",
		},
		{
			name:   "blank runs collapse",
			text:   "line one\n\n\n  \nline two FAIL line\n\nline three",
			match:  "FAIL",
			window: 200,
			want:   "line one\nline two FAIL line\nline three",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := strings.Index(tt.text, tt.match)
			if start < 0 {
				t.Fatalf("fixture text does not contain %q", tt.match)
			}
			got := extractSnippet(tt.text, start, start+len(tt.match), tt.window)
			if got != tt.want {
				t.Errorf("extractSnippet() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractSnippetLineCap(t *testing.T) {
	lines := make([]string, 14)
	for i := range lines {
		lines[i] = strings.Repeat("x", 5)
	}
	lines[0] = "FAIL line"
	text := strings.Join(lines, "\n")

	got := extractSnippet(text, 0, 4, len(text))
	want := strings.Join(lines[:maxSnippetLines], "\n") + "\n..."
	if got != want {
		t.Errorf("extractSnippet() = %q, want %q", got, want)
	}
}

func TestExtractSnippetUTF8Boundaries(t *testing.T) {
	text := strings.Repeat("é", 20) + "FAIL" + strings.Repeat("é", 20)
	start := strings.Index(text, "FAIL")

	got := extractSnippet(text, start, start+4, 3)
	if !utf8.ValidString(got) {
		t.Errorf("extractSnippet() = %q is not valid UTF-8", got)
	}
	if want := "...ééFAILéé..."; got != want {
		t.Errorf("extractSnippet() = %q, want %q", got, want)
	}
}

func TestSearchText(t *testing.T) {
	log := "boot\n" +
		"get_num_new_matched_tokens 96\n" +
		"FAILED tests/conn.py::test_storage - assert False\n" +
		"get_num_new_matched_tokens 96 again\n"

	patterns := []model.Pattern{
		mustPattern(t, "get_num_new_matched_tokens 96", false),
		mustPattern(t, `FAILED .*::test_storage\b`, true),
		mustPattern(t, "never present", false),
	}

	hits := searchText(log, patterns, 10)
	if len(hits) != 2 {
		t.Fatalf("len(hits) = %d, want 2", len(hits))
	}

	// One hit per pattern, in pattern order, at the first occurrence.
	if hits[0].pattern != "get_num_new_matched_tokens 96" {
		t.Errorf("hits[0].pattern = %q, want literal pattern", hits[0].pattern)
	}
	if !strings.Contains(hits[0].snippet, "get_num_new_matched_tokens 96") {
		t.Errorf("hits[0].snippet = %q, want it to contain the match", hits[0].snippet)
	}
	if strings.Contains(hits[0].snippet, "again") {
		t.Errorf("hits[0].snippet = %q anchored on the second occurrence", hits[0].snippet)
	}
	if hits[1].pattern != `FAILED .*::test_storage\b` {
		t.Errorf("hits[1].pattern = %q, want regex pattern", hits[1].pattern)
	}
}

func TestSearchTextNoPatterns(t *testing.T) {
	if hits := searchText("some log", nil, 10); len(hits) != 0 {
		t.Errorf("len(hits) = %d, want 0", len(hits))
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("read: connection reset") }

func TestReadLog(t *testing.T) {
	t.Run("reads and closes", func(t *testing.T) {
		got, err := readLog(io.NopCloser(strings.NewReader("log body")))
		if err != nil {
			t.Fatalf("readLog() error = %v", err)
		}
		if got != "log body" {
			t.Errorf("readLog() = %q, want %q", got, "log body")
		}
	})

	t.Run("truncates oversized logs", func(t *testing.T) {
		long := strings.Repeat("x", maxLogBytes+1024)
		got, err := readLog(io.NopCloser(strings.NewReader(long)))
		if err != nil {
			t.Fatalf("readLog() error = %v", err)
		}
		if len(got) != maxLogBytes {
			t.Errorf("len(readLog()) = %d, want %d", len(got), maxLogBytes)
		}
	})

	t.Run("propagates read errors", func(t *testing.T) {
		if _, err := readLog(io.NopCloser(failingReader{})); err == nil {
			t.Fatal("readLog() error = nil, want read error")
		}
	})
}

package scan

import (
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/altin/flakescan/internal/model"
)

// maxLogBytes bounds a single log payload; anything past it is truncated
// rather than growing the scan's memory footprint.
const maxLogBytes = 8 << 20

// maxSnippetLines caps how many lines of context a snippet may carry.
const maxSnippetLines = 10

// patternHit is one pattern's first occurrence in a log, with its context
// snippet.
type patternHit struct {
	pattern string
	snippet string
}

// readLog drains one log body up to maxLogBytes and closes it.
func readLog(body io.ReadCloser) (string, error) {
	defer body.Close()
	data, err := io.ReadAll(io.LimitReader(body, maxLogBytes))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// searchText evaluates every pattern against one log, reporting the first
// occurrence per pattern. Callers drop text as soon as this returns.
func searchText(text string, patterns []model.Pattern, window int) []patternHit {
	var hits []patternHit
	for _, p := range patterns {
		start, end, ok := p.FindIn(text)
		if !ok {
			continue
		}
		hits = append(hits, patternHit{
			pattern: p.Text,
			snippet: extractSnippet(text, start, end, window),
		})
	}
	return hits
}

var blankRuns = regexp.MustCompile(`\n\s*\n+`)

// extractSnippet returns the log text around one match: window bytes either
// side clipped to the log, trimmed, blank runs collapsed, line-capped, with
// ellipses marking clipped edges.
func extractSnippet(text string, start, end, window int) string {
	lo := start - window
	if lo < 0 {
		lo = 0
	}
	hi := end + window
	if hi > len(text) {
		hi = len(text)
	}
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi++
	}

	snippet := strings.TrimSpace(text[lo:hi])
	snippet = blankRuns.ReplaceAllString(snippet, "\n")

	if lines := strings.Split(snippet, "\n"); len(lines) > maxSnippetLines {
		snippet = strings.Join(lines[:maxSnippetLines], "\n") + "\n..."
	} else if hi < len(text) {
		snippet += "..."
	}
	if lo > 0 {
		snippet = "..." + snippet
	}

	// Clone so the snippet cannot pin the whole log buffer in memory.
	return strings.Clone(snippet)
}

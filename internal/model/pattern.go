package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is a single search target, compiled once and reused across every
// job log in a scan.
type Pattern struct {
	Text    string
	IsRegex bool

	re *regexp.Regexp
}

// NewPattern builds a pattern from its source text. Regex patterns compile
// with multiline anchors so ^ and $ match at line boundaries inside a log.
func NewPattern(text string, isRegex bool) (Pattern, error) {
	p := Pattern{Text: text, IsRegex: isRegex}
	if !isRegex {
		return p, nil
	}
	re, err := regexp.Compile("(?m)" + text)
	if err != nil {
		return Pattern{}, fmt.Errorf("compile pattern %q: %w", text, err)
	}
	p.re = re
	return p, nil
}

// FindIn reports the byte offsets of the first occurrence of the pattern in
// text, or ok=false when it does not occur. Literal patterns use substring
// containment; regex patterns use unanchored search.
func (p Pattern) FindIn(text string) (start, end int, ok bool) {
	if p.IsRegex {
		loc := p.re.FindStringIndex(text)
		if loc == nil {
			return 0, 0, false
		}
		return loc[0], loc[1], true
	}
	idx := strings.Index(text, p.Text)
	if idx < 0 {
		return 0, 0, false
	}
	return idx, idx + len(p.Text), true
}

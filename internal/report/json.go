// Package report renders a finished scan as human-readable blocks or as one
// structured JSON object.
package report

import (
	"encoding/json"
	"io"

	"github.com/altin/flakescan/internal/model"
)

// WriteJSON emits the report as a single indented JSON object. The matches
// array is always present, even when empty, so the output is valid on every
// run.
func WriteJSON(w io.Writer, rep *model.ScanReport) error {
	out := *rep
	if out.Matches == nil {
		out.Matches = []model.MatchRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

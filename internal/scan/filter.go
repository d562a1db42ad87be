package scan

import (
	"strings"

	"github.com/altin/flakescan/internal/model"
)

// filterJobs keeps the jobs whose label (name as fallback) contains substr.
// An empty substr keeps every job. Matching is case-sensitive unless
// ignoreCase is set.
func filterJobs(jobs []model.Job, substr string, ignoreCase bool) []model.Job {
	if ignoreCase {
		substr = strings.ToLower(substr)
	}
	var kept []model.Job
	for _, j := range jobs {
		label := j.DisplayLabel()
		if ignoreCase {
			label = strings.ToLower(label)
		}
		if !strings.Contains(label, substr) {
			continue
		}
		kept = append(kept, j)
	}
	return kept
}

package model

import "time"

// MatchRecord is one confirmed occurrence of a pattern in a job log.
// Field names are the report's wire format.
type MatchRecord struct {
	BuildNumber int        `json:"build_number"`
	Branch      string     `json:"branch"`
	State       BuildState `json:"state"`
	CreatedAt   time.Time  `json:"created_at"`
	StepLabel   string     `json:"step_label"`
	WebURL      string     `json:"web_url"`
	Pattern     string     `json:"pattern"`
	Snippet     string     `json:"snippet"`
}

// ScanSummary carries the per-run counters. The three exported fields are
// part of the report; the skip counters surface only on the diagnostic log.
type ScanSummary struct {
	BuildsScanned int `json:"builds_scanned"`
	JobsScanned   int `json:"jobs_scanned"`
	MatchesFound  int `json:"matches_found"`

	BuildsSkipped    int `json:"-"`
	LogsMissing      int `json:"-"`
	LogFetchesFailed int `json:"-"`
}

// ScanReport is the complete result of one scan invocation.
type ScanReport struct {
	Summary ScanSummary   `json:"summary"`
	Matches []MatchRecord `json:"matches"`
}

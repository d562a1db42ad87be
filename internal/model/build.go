package model

import "time"

type BuildState string

const (
	BuildStateRunning   BuildState = "running"
	BuildStateScheduled BuildState = "scheduled"
	BuildStatePassed    BuildState = "passed"
	BuildStateFailed    BuildState = "failed"
	BuildStateBlocked   BuildState = "blocked"
	BuildStateCanceled  BuildState = "canceled"
	BuildStateSkipped   BuildState = "skipped"
	BuildStateNotRun    BuildState = "not_run"
)

type Build struct {
	ID        string     `json:"id"`
	Number    int        `json:"number"`
	State     BuildState `json:"state"`
	Branch    string     `json:"branch"`
	Commit    string     `json:"commit"`
	Message   string     `json:"message"`
	WebURL    string     `json:"web_url"`
	CreatedAt time.Time  `json:"created_at"`
}

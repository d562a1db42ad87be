package model

type JobState string

const (
	JobStateRunning  JobState = "running"
	JobStatePassed   JobState = "passed"
	JobStateFailed   JobState = "failed"
	JobStateCanceled JobState = "canceled"
	JobStateSkipped  JobState = "skipped"
	JobStateBroken   JobState = "broken"
)

type Job struct {
	ID     string   `json:"id"`
	Type   string   `json:"type"`
	Label  string   `json:"label"`
	Name   string   `json:"name"`
	State  JobState `json:"state"`
	WebURL string   `json:"web_url"`
}

// DisplayLabel returns the job's label, falling back to its name for job
// types that carry no label.
func (j Job) DisplayLabel() string {
	if j.Label != "" {
		return j.Label
	}
	return j.Name
}

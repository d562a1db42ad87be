package api

import (
	"context"
	"fmt"

	"github.com/altin/flakescan/internal/model"
)

// ListJobs fetches the job list for one build in a single request. Callers
// treat a failure here as grounds to skip the build, not to abort the scan.
func (c *Client) ListJobs(ctx context.Context, buildNumber int) ([]model.Job, error) {
	var jobs []model.Job
	path := c.pipelinePath(fmt.Sprintf("builds/%d/jobs", buildNumber))
	if _, err := c.getJSON(ctx, path, nil, &jobs); err != nil {
		return nil, fmt.Errorf("fetching jobs for build %d: %w", buildNumber, err)
	}
	return jobs, nil
}

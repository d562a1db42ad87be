package api

import (
	"context"
	"fmt"
	"io"
	"net/url"
)

// JobLog fetches a job's log in its plain-text form. The caller owns the
// returned reader and must close it; holding at most one open log at a time
// is what bounds the scanner's memory. A missing log surfaces as
// *NotFoundError so callers can skip it silently.
func (c *Client) JobLog(ctx context.Context, buildNumber int, jobID string) (io.ReadCloser, error) {
	path := c.pipelinePath(fmt.Sprintf("builds/%d/jobs/%s/log", buildNumber, url.PathEscape(jobID)))
	params := url.Values{"format": {"txt"}}
	resp, err := c.do(ctx, path, params, "text/plain")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

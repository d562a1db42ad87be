package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/altin/flakescan/internal/model"
)

// BuildsPage selects one page of the builds listing. The provider returns
// builds most-recent-first.
type BuildsPage struct {
	Page    int
	PerPage int
}

func (p BuildsPage) QueryString() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(p.PerPage))
	} else {
		v.Set("per_page", "50")
	}
	return v
}

// ListBuilds fetches one page of the pipeline's builds. hasNext reports
// whether the provider advertises a further page.
func (c *Client) ListBuilds(ctx context.Context, page BuildsPage) (builds []model.Build, hasNext bool, err error) {
	hdr, err := c.getJSON(ctx, c.pipelinePath("builds"), page.QueryString(), &builds)
	if err != nil {
		return nil, false, fmt.Errorf("list builds page %d: %w", page.Page, err)
	}
	return builds, hasNextPage(hdr), nil
}

package scan

import (
	"context"
	"regexp"

	"github.com/altin/flakescan/internal/api"
	"github.com/altin/flakescan/internal/model"
)

// lister is a forward-only producer of branch-matching builds. It examines
// at most max builds across pages, counting every build against the cap
// before the branch filter runs, and cannot be rewound; each scan gets a
// fresh lister.
type lister struct {
	api      API
	branch   *regexp.Regexp
	max      int
	pageSize int

	page      int
	buffered  []model.Build
	examined  int
	morePages bool
}

func newLister(client API, opts Options) *lister {
	return &lister{
		api:       client,
		branch:    opts.BranchRegex,
		max:       opts.MaxBuilds,
		pageSize:  opts.PageSize,
		page:      1,
		morePages: true,
	}
}

// next yields the next build whose branch passes the filter, or ok=false
// once the cap is reached or the listing is exhausted.
func (l *lister) next(ctx context.Context) (model.Build, bool, error) {
	for {
		if l.examined >= l.max {
			return model.Build{}, false, nil
		}
		if len(l.buffered) == 0 {
			if !l.morePages {
				return model.Build{}, false, nil
			}
			builds, hasNext, err := l.api.ListBuilds(ctx, api.BuildsPage{Page: l.page, PerPage: l.pageSize})
			if err != nil {
				return model.Build{}, false, err
			}
			if len(builds) == 0 {
				return model.Build{}, false, nil
			}
			l.buffered = builds
			l.morePages = hasNext
			l.page++
		}
		b := l.buffered[0]
		l.buffered = l.buffered[1:]
		l.examined++
		if l.branch != nil && !l.branch.MatchString(b.Branch) {
			continue
		}
		return b, true, nil
	}
}

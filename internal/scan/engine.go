// Package scan implements the flake scan pipeline: enumerate a pipeline's
// builds most-recent-first, filter them by branch, filter each build's jobs
// by step label, search the retained jobs' logs for the configured patterns,
// and aggregate match records with summary counters.
package scan

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"

	"golang.org/x/sync/errgroup"

	"github.com/altin/flakescan/internal/api"
	"github.com/altin/flakescan/internal/model"
)

// API is the provider surface the engine consumes. *api.Client satisfies it;
// tests substitute instrumented doubles.
type API interface {
	ListBuilds(ctx context.Context, page api.BuildsPage) ([]model.Build, bool, error)
	ListJobs(ctx context.Context, buildNumber int) ([]model.Job, error)
	JobLog(ctx context.Context, buildNumber int, jobID string) (io.ReadCloser, error)
}

// Options configure one scan invocation.
type Options struct {
	BranchRegex    *regexp.Regexp // nil matches every branch
	StepSubstr     string         // empty matches every job
	IgnoreCase     bool
	MaxBuilds      int // builds examined before filtering; <=0 yields nothing
	Patterns       []model.Pattern
	PageSize       int
	Concurrency    int // parallel log fetches within one build
	SnippetContext int // bytes of context either side of a match
}

// Engine drives one scan. Counters and matches are engine-local, so each
// invocation constructs a fresh Engine and needs no reset logic.
type Engine struct {
	api    API
	opts   Options
	logger *slog.Logger
}

func New(client API, opts Options, logger *slog.Logger) *Engine {
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.SnippetContext < 0 {
		opts.SnippetContext = 0
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{api: client, opts: opts, logger: logger.With("component", "scan")}
}

// Run executes the scan. On cancellation it returns the partial report
// alongside the context error so the caller can still flush what was found.
func (e *Engine) Run(ctx context.Context) (*model.ScanReport, error) {
	report := &model.ScanReport{Matches: []model.MatchRecord{}}

	e.logger.Info("scan started",
		"max_builds", e.opts.MaxBuilds,
		"step_substr", e.opts.StepSubstr,
		"patterns", len(e.opts.Patterns))

	builds := newLister(e.api, e.opts)
	for {
		build, ok, err := builds.next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			return report, fmt.Errorf("enumerating builds: %w", err)
		}
		if !ok {
			break
		}

		report.Summary.BuildsScanned++
		e.logger.Info("scanning build",
			"build", build.Number, "branch", build.Branch, "state", build.State)

		if err := e.scanBuild(ctx, build, report); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			if api.IsAuth(err) {
				return report, err
			}
			report.Summary.BuildsSkipped++
			e.logger.Warn("build skipped", "build", build.Number, "error", err)
		}
	}

	e.logger.Info("scan finished",
		"builds_scanned", report.Summary.BuildsScanned,
		"jobs_scanned", report.Summary.JobsScanned,
		"matches_found", report.Summary.MatchesFound,
		"builds_skipped", report.Summary.BuildsSkipped,
		"logs_missing", report.Summary.LogsMissing,
		"log_fetches_failed", report.Summary.LogFetchesFailed)

	return report, nil
}

// jobResult carries one job's outcome out of the fetch pool. Exactly one of
// hits/missing/failed is meaningful.
type jobResult struct {
	job     model.Job
	hits    []patternHit
	missing bool // log absent upstream
	failed  bool // log fetch or read failed after retries
}

// scanBuild lists one build's jobs, applies the step filter, and searches
// the retained jobs' logs. Fetches may run in parallel; results land in an
// indexed slice so report order never depends on completion order, and all
// counter and match mutation happens on this goroutine after the pool
// drains.
func (e *Engine) scanBuild(ctx context.Context, build model.Build, report *model.ScanReport) error {
	jobs, err := e.api.ListJobs(ctx, build.Number)
	if err != nil {
		return err
	}

	kept := filterJobs(jobs, e.opts.StepSubstr, e.opts.IgnoreCase)
	if len(kept) == 0 {
		return nil
	}

	results := make([]jobResult, len(kept))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i, job := range kept {
		g.Go(func() error {
			e.logger.Info("checking job",
				"build", build.Number, "job", job.DisplayLabel(), "state", job.State)
			res, err := e.searchJob(gctx, build.Number, job)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, r := range results {
		if r.failed {
			report.Summary.LogFetchesFailed++
			continue
		}
		report.Summary.JobsScanned++
		if r.missing {
			report.Summary.LogsMissing++
			continue
		}
		if len(r.hits) > 0 {
			e.logger.Info("match found",
				"build", build.Number, "job", r.job.DisplayLabel(), "patterns", len(r.hits))
		}
		for _, h := range r.hits {
			report.Matches = append(report.Matches, model.MatchRecord{
				BuildNumber: build.Number,
				Branch:      build.Branch,
				State:       build.State,
				CreatedAt:   build.CreatedAt,
				StepLabel:   r.job.DisplayLabel(),
				WebURL:      build.WebURL,
				Pattern:     h.pattern,
				Snippet:     h.snippet,
			})
			report.Summary.MatchesFound++
		}
	}
	return nil
}

// searchJob fetches and searches one job's log. A missing or unfetchable log
// is reported through the result, not the error: only credential rejection
// and cancellation abort the scan from here.
func (e *Engine) searchJob(ctx context.Context, buildNumber int, job model.Job) (jobResult, error) {
	res := jobResult{job: job}

	body, err := e.api.JobLog(ctx, buildNumber, job.ID)
	if err != nil {
		switch {
		case api.IsNotFound(err):
			res.missing = true
			e.logger.Debug("log absent", "build", buildNumber, "job", job.DisplayLabel())
			return res, nil
		case api.IsAuth(err):
			return res, err
		case ctx.Err() != nil:
			return res, ctx.Err()
		default:
			res.failed = true
			e.logger.Warn("log fetch failed",
				"build", buildNumber, "job", job.DisplayLabel(), "error", err)
			return res, nil
		}
	}

	text, err := readLog(body)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.failed = true
		e.logger.Warn("log read failed",
			"build", buildNumber, "job", job.DisplayLabel(), "error", err)
		return res, nil
	}

	res.hits = searchText(text, e.opts.Patterns, e.opts.SnippetContext)
	return res, nil
}

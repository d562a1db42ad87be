package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"github.com/spf13/cobra"

	"github.com/altin/flakescan/internal/api"
	"github.com/altin/flakescan/internal/config"
	"github.com/altin/flakescan/internal/logging"
	"github.com/altin/flakescan/internal/model"
	"github.com/altin/flakescan/internal/report"
	"github.com/altin/flakescan/internal/scan"
	"github.com/altin/flakescan/internal/tui"
)

var (
	flagConfig          string
	flagEnvFile         string
	flagToken           string
	flagOrg             string
	flagPipeline        string
	flagBranchRegex     string
	flagStepSubstr      string
	flagIgnoreCase      bool
	flagMaxBuilds       int
	flagPatternsFile    string
	flagRegex           bool
	flagJSON            bool
	flagTUI             bool
	flagAPIURL          string
	flagTimeout         time.Duration
	flagRetries         int
	flagRequestInterval time.Duration
	flagConcurrency     int
	flagSnippetContext  int
	flagLogLevel        string
	flagLogFormat       string
	flagLogFile         string

	rootCmd = &cobra.Command{
		Use:   "flakescan",
		Short: "Scan a Buildkite pipeline's build history for flaky failure signatures",
		Long: `flakescan walks a pipeline's recent builds, picks out the jobs whose step
label matches a substring, fetches their logs, and reports every build where
one of the configured failure patterns appears. Progress and diagnostics go
to stderr; the report goes to stdout.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runScan,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the flakescan version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("flakescan", version)
		},
	}
)

func init() {
	def := config.Default()
	f := rootCmd.Flags()

	f.StringVar(&flagConfig, "config", "", "YAML config file (default "+config.DefaultConfigFile+" when present)")
	f.StringVar(&flagEnvFile, "env-file", "", "dotenv file (default "+config.DefaultEnvFile+" when present)")
	f.StringVar(&flagToken, "token", "", "Buildkite API token (env: BK_TOKEN)")
	f.StringVar(&flagOrg, "org", def.Buildkite.Org, "organization slug (env: BK_ORG)")
	f.StringVar(&flagPipeline, "pipeline", def.Buildkite.Pipeline, "pipeline slug (env: BK_PIPELINE)")
	f.StringVar(&flagBranchRegex, "branch-regex", def.Scan.BranchRegex, "regex to filter branches (env: BK_BRANCH_REGEX)")
	f.StringVar(&flagStepSubstr, "step-substr", def.Scan.StepSubstr, "substring of the job label to match (env: BK_STEP_SUBSTR)")
	f.BoolVar(&flagIgnoreCase, "ignore-case", def.Scan.IgnoreCase, "match the step substring case-insensitively (env: BK_IGNORE_CASE)")
	f.IntVar(&flagMaxBuilds, "max-builds", def.Scan.MaxBuilds, "maximum builds to examine (env: BK_MAX_BUILDS)")
	f.StringVar(&flagPatternsFile, "patterns-file", "", "file with one search pattern per line, # comments (env: BK_PATTERNS_FILE)")
	f.BoolVar(&flagRegex, "regex", def.Scan.Regex, "treat patterns as regular expressions (env: BK_REGEX)")
	f.BoolVar(&flagJSON, "json", def.Output.JSON, "emit the report as JSON (env: BK_JSON)")
	f.BoolVar(&flagTUI, "tui", false, "browse results interactively")
	f.StringVar(&flagAPIURL, "api-url", def.Buildkite.APIURL, "API base URL (env: BK_API_URL)")
	f.DurationVar(&flagTimeout, "timeout", time.Duration(def.HTTP.Timeout), "per-request timeout (env: BK_TIMEOUT)")
	f.IntVar(&flagRetries, "retries", def.HTTP.Retries, "attempts per request on 429/5xx (env: BK_RETRIES)")
	f.DurationVar(&flagRequestInterval, "request-interval", time.Duration(def.HTTP.RequestInterval), "minimum spacing between requests (env: BK_REQUEST_INTERVAL)")
	f.IntVar(&flagConcurrency, "concurrency", def.Scan.Concurrency, "parallel log fetches per build, max "+fmt.Sprint(config.MaxConcurrency)+" (env: BK_CONCURRENCY)")
	f.IntVar(&flagSnippetContext, "snippet-context", def.Scan.SnippetContext, "bytes of context around a match (env: BK_SNIPPET_CONTEXT)")
	f.StringVar(&flagLogLevel, "log-level", def.Logging.Level, "log level: debug, info, warn, error (env: BK_LOG_LEVEL)")
	f.StringVar(&flagLogFormat, "log-format", def.Logging.Format, "log format: text, json (env: BK_LOG_FORMAT)")
	f.StringVar(&flagLogFile, "log-file", "", "also write logs to this rotating file (env: BK_LOG_FILE)")

	rootCmd.Version = version
	rootCmd.AddCommand(versionCmd)
}

// applyFlags overlays explicitly set flags onto cfg. A flag the user touched
// wins over every other configuration source, even at its default value.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	fl := cmd.Flags()
	if fl.Changed("token") {
		cfg.Buildkite.Token = flagToken
	}
	if fl.Changed("org") {
		cfg.Buildkite.Org = flagOrg
	}
	if fl.Changed("pipeline") {
		cfg.Buildkite.Pipeline = flagPipeline
	}
	if fl.Changed("api-url") {
		cfg.Buildkite.APIURL = flagAPIURL
	}
	if fl.Changed("branch-regex") {
		cfg.Scan.BranchRegex = flagBranchRegex
	}
	if fl.Changed("step-substr") {
		cfg.Scan.StepSubstr = flagStepSubstr
	}
	if fl.Changed("ignore-case") {
		cfg.Scan.IgnoreCase = flagIgnoreCase
	}
	if fl.Changed("max-builds") {
		cfg.Scan.MaxBuilds = flagMaxBuilds
	}
	if fl.Changed("patterns-file") {
		cfg.Scan.PatternsFile = flagPatternsFile
	}
	if fl.Changed("regex") {
		cfg.Scan.Regex = flagRegex
	}
	if fl.Changed("concurrency") {
		cfg.Scan.Concurrency = flagConcurrency
	}
	if fl.Changed("snippet-context") {
		cfg.Scan.SnippetContext = flagSnippetContext
	}
	if fl.Changed("timeout") {
		cfg.HTTP.Timeout = config.Duration(flagTimeout)
	}
	if fl.Changed("retries") {
		cfg.HTTP.Retries = flagRetries
	}
	if fl.Changed("request-interval") {
		cfg.HTTP.RequestInterval = config.Duration(flagRequestInterval)
	}
	if fl.Changed("json") {
		cfg.Output.JSON = flagJSON
	}
	if fl.Changed("tui") {
		cfg.Output.TUI = flagTUI
	}
	if fl.Changed("log-level") {
		cfg.Logging.Level = flagLogLevel
	}
	if fl.Changed("log-format") {
		cfg.Logging.Format = flagLogFormat
	}
	if fl.Changed("log-file") {
		cfg.Logging.File = flagLogFile
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig, flagEnvFile)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closer := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
		Quiet:  cfg.Output.TUI,
	})
	defer closer.Close()

	patterns, err := loadPatterns(cfg, logger)
	if err != nil {
		return err
	}

	branchRegex, err := regexp.Compile(cfg.Scan.BranchRegex)
	if err != nil {
		return fmt.Errorf("invalid branch regex %q: %w", cfg.Scan.BranchRegex, err)
	}

	retry := api.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.HTTP.Retries

	client := api.NewClient(api.Config{
		BaseURL:         cfg.Buildkite.APIURL,
		Token:           cfg.Buildkite.Token,
		Org:             cfg.Buildkite.Org,
		Pipeline:        cfg.Buildkite.Pipeline,
		Timeout:         time.Duration(cfg.HTTP.Timeout),
		Retry:           retry,
		RequestInterval: time.Duration(cfg.HTTP.RequestInterval),
		Logger:          logger,
	})

	engine := scan.New(client, scan.Options{
		BranchRegex:    branchRegex,
		StepSubstr:     cfg.Scan.StepSubstr,
		IgnoreCase:     cfg.Scan.IgnoreCase,
		MaxBuilds:      cfg.Scan.MaxBuilds,
		Patterns:       patterns,
		PageSize:       cfg.Scan.PageSize,
		Concurrency:    cfg.Scan.Concurrency,
		SnippetContext: cfg.Scan.SnippetContext,
	}, logger)

	if cfg.Output.TUI {
		return tui.Run(cmd.Context(), engine, cfg.Buildkite.Org+"/"+cfg.Buildkite.Pipeline)
	}

	rep, runErr := engine.Run(cmd.Context())
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if err := writeReport(cfg, rep); err != nil {
		return err
	}
	if runErr != nil {
		fmt.Fprintln(os.Stderr, "Scan interrupted by user.")
		return runErr
	}
	return nil
}

// loadPatterns reads the configured pattern set and compiles it. Invalid
// regex patterns are dropped with a warning; an empty compiled set is fatal
// because the scan would have nothing to look for.
func loadPatterns(cfg *config.Config, logger *slog.Logger) ([]model.Pattern, error) {
	texts, err := config.LoadPatterns(cfg.Scan.PatternsFile)
	if err != nil {
		return nil, err
	}
	patterns := make([]model.Pattern, 0, len(texts))
	for _, text := range texts {
		p, err := model.NewPattern(text, cfg.Scan.Regex)
		if err != nil {
			logger.Warn("invalid pattern dropped", "pattern", text, "error", err)
			continue
		}
		patterns = append(patterns, p)
	}
	if len(patterns) == 0 {
		return nil, fmt.Errorf("no valid search patterns configured")
	}
	return patterns, nil
}

func writeReport(cfg *config.Config, rep *model.ScanReport) error {
	if cfg.Output.JSON {
		return report.WriteJSON(os.Stdout, rep)
	}
	return report.WriteHuman(os.Stdout, rep)
}

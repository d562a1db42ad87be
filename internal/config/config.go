// Package config builds the effective scanner configuration from defaults,
// an optional YAML file, an optional .env file, BK_* environment variables,
// and command-line overrides, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is consulted when no --config flag is given.
	DefaultConfigFile = "flakescan.yaml"
	// DefaultEnvFile is consulted when no --env-file flag is given.
	DefaultEnvFile = ".env"
	// MaxConcurrency caps the number of parallel log fetches.
	MaxConcurrency = 16
)

// DefaultPatterns are searched when no patterns file is supplied.
var DefaultPatterns = []string{
	`FAILED .*::test_multi_shared_storage_connector_consistency\b`,
	`At index 2 diff: 'get_num_new_matched_tokens 96' != 'build_connector_meta'`,
	`get_num_new_matched_tokens 96`,
}

// Config holds all scanner configuration.
type Config struct {
	Buildkite BuildkiteConfig `yaml:"buildkite"`
	Scan      ScanConfig      `yaml:"scan"`
	HTTP      HTTPConfig      `yaml:"http"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BuildkiteConfig identifies the pipeline to scan and how to reach it.
type BuildkiteConfig struct {
	Token    string `yaml:"token"`
	Org      string `yaml:"org"`
	Pipeline string `yaml:"pipeline"`
	APIURL   string `yaml:"api_url"`
}

// ScanConfig holds build selection and pattern matching settings.
type ScanConfig struct {
	BranchRegex    string `yaml:"branch_regex"`
	StepSubstr     string `yaml:"step_substr"`
	IgnoreCase     bool   `yaml:"ignore_case"`
	MaxBuilds      int    `yaml:"max_builds"`
	PatternsFile   string `yaml:"patterns_file"`
	Regex          bool   `yaml:"regex"`
	Concurrency    int    `yaml:"concurrency"`
	SnippetContext int    `yaml:"snippet_context"`
	PageSize       int    `yaml:"page_size"`
}

// HTTPConfig holds request pacing and resilience settings.
type HTTPConfig struct {
	Timeout         Duration `yaml:"timeout"`
	Retries         int      `yaml:"retries"`
	RequestInterval Duration `yaml:"request_interval"`
}

// OutputConfig selects the report format.
type OutputConfig struct {
	JSON bool `yaml:"json"`
	TUI  bool `yaml:"tui"`
}

// LoggingConfig holds diagnostic logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) String() string { return time.Duration(d).String() }

// Default returns a Config with every documented default filled in.
func Default() *Config {
	return &Config{
		Buildkite: BuildkiteConfig{
			Org:      "vllm",
			Pipeline: "ci",
			APIURL:   "https://api.buildkite.com/v2",
		},
		Scan: ScanConfig{
			BranchRegex:    `^pull/|^pr/`,
			StepSubstr:     "v1 Test others",
			MaxBuilds:      200,
			Concurrency:    1,
			SnippetContext: 200,
			PageSize:       50,
		},
		HTTP: HTTPConfig{
			Timeout:         Duration(30 * time.Second),
			Retries:         3,
			RequestInterval: Duration(300 * time.Millisecond),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds a Config from defaults, then the YAML config file, then the
// .env file, then BK_* environment variables. Later sources win. Passing ""
// for either path consults the default location and skips it silently when
// absent; an explicitly named file that cannot be read is an error.
//
// Flag overrides and validation are the caller's responsibility: apply any
// explicitly set flags on the result, then call Validate.
func Load(configFile, envFile string) (*Config, error) {
	cfg := Default()

	explicit := configFile != ""
	if !explicit {
		configFile = DefaultConfigFile
	}
	if err := cfg.loadFromFile(configFile, explicit); err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}

	if err := loadEnvFile(envFile); err != nil {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	cfg.loadFromEnv()
	return cfg, nil
}

func (c *Config) loadFromFile(path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// loadEnvFile merges a dotenv file into the process environment. Variables
// already present in the environment are not overwritten, so real environment
// variables take precedence over .env entries.
func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return nil
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("BK_TOKEN"); v != "" {
		c.Buildkite.Token = v
	}
	if v := os.Getenv("BK_ORG"); v != "" {
		c.Buildkite.Org = v
	}
	if v := os.Getenv("BK_PIPELINE"); v != "" {
		c.Buildkite.Pipeline = v
	}
	if v := os.Getenv("BK_API_URL"); v != "" {
		c.Buildkite.APIURL = v
	}
	if v := os.Getenv("BK_BRANCH_REGEX"); v != "" {
		c.Scan.BranchRegex = v
	}
	if v := os.Getenv("BK_STEP_SUBSTR"); v != "" {
		c.Scan.StepSubstr = v
	}
	if v := os.Getenv("BK_IGNORE_CASE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Scan.IgnoreCase = b
		}
	}
	if v := os.Getenv("BK_MAX_BUILDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scan.MaxBuilds = n
		}
	}
	if v := os.Getenv("BK_PATTERNS_FILE"); v != "" {
		c.Scan.PatternsFile = v
	}
	if v := os.Getenv("BK_REGEX"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Scan.Regex = b
		}
	}
	if v := os.Getenv("BK_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scan.Concurrency = n
		}
	}
	if v := os.Getenv("BK_SNIPPET_CONTEXT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scan.SnippetContext = n
		}
	}
	if v := os.Getenv("BK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.HTTP.Timeout = Duration(d)
		}
	}
	if v := os.Getenv("BK_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.HTTP.Retries = n
		}
	}
	if v := os.Getenv("BK_REQUEST_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.HTTP.RequestInterval = Duration(d)
		}
	}
	if v := os.Getenv("BK_JSON"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Output.JSON = b
		}
	}
	if v := os.Getenv("BK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("BK_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("BK_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}

// Validate checks the fully assembled configuration. It is called after flag
// overrides have been applied, so every source has had its say.
func (c *Config) Validate() error {
	if c.Buildkite.Token == "" {
		return fmt.Errorf("API token is required (set BK_TOKEN or --token)")
	}
	if c.Buildkite.Org == "" {
		return fmt.Errorf("organization slug is required")
	}
	if c.Buildkite.Pipeline == "" {
		return fmt.Errorf("pipeline slug is required")
	}
	if c.Buildkite.APIURL == "" {
		return fmt.Errorf("API base URL is required")
	}
	if _, err := regexp.Compile(c.Scan.BranchRegex); err != nil {
		return fmt.Errorf("invalid branch regex %q: %w", c.Scan.BranchRegex, err)
	}
	if c.Scan.Concurrency < 1 || c.Scan.Concurrency > MaxConcurrency {
		return fmt.Errorf("concurrency must be between 1 and %d, got %d", MaxConcurrency, c.Scan.Concurrency)
	}
	if c.Scan.SnippetContext < 0 {
		return fmt.Errorf("snippet context must not be negative, got %d", c.Scan.SnippetContext)
	}
	if c.Scan.PageSize < 1 || c.Scan.PageSize > 100 {
		return fmt.Errorf("page size must be between 1 and 100, got %d", c.Scan.PageSize)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.HTTP.Timeout)
	}
	if c.HTTP.Retries < 1 {
		return fmt.Errorf("retries must be at least 1, got %d", c.HTTP.Retries)
	}
	if c.HTTP.RequestInterval < 0 {
		return fmt.Errorf("request interval must not be negative, got %s", c.HTTP.RequestInterval)
	}
	if c.Output.JSON && c.Output.TUI {
		return fmt.Errorf("--json and --tui are mutually exclusive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q (want debug, info, warn or error)", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (want text or json)", c.Logging.Format)
	}
	return nil
}

// LoadPatterns reads newline-separated search patterns from path, skipping
// blank lines and '#' comment lines. An empty path, a missing file, or a file
// with no usable lines all fall back to DefaultPatterns.
func LoadPatterns(path string) ([]string, error) {
	if path == "" {
		return DefaultPatterns, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPatterns, nil
		}
		return nil, fmt.Errorf("reading patterns file: %w", err)
	}
	var patterns []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if len(patterns) == 0 {
		return DefaultPatterns, nil
	}
	return patterns, nil
}

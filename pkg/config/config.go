package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for a discovery run
type Config struct {
	// What to search for
	Search SearchConfig `yaml:"search" json:"search"`

	// Follower band accepted by the normalizer
	Followers FollowerConfig `yaml:"followers" json:"followers"`

	// Request pacing between page fetches
	Pacing PacingConfig `yaml:"pacing" json:"pacing"`

	// Final quality gate applied by the aggregator
	Quality QualityConfig `yaml:"quality" json:"quality"`

	// Confidence score weights
	Scoring ScoringConfig `yaml:"scoring" json:"scoring"`

	// Headless browser session used to render result pages
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Output files
	Output OutputConfig `yaml:"output" json:"output"`

	// Optional external stores
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Job API server
	Server ServerConfig `yaml:"server" json:"server"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SearchConfig lists the keywords and target companies that drive query planning
type SearchConfig struct {
	Keywords  []string `yaml:"keywords" json:"keywords"`
	Companies []string `yaml:"companies" json:"companies"`
}

// FollowerConfig bounds the accepted follower counts
type FollowerConfig struct {
	Min          int  `yaml:"min" json:"min"`
	Max          int  `yaml:"max" json:"max"`
	AllowUnknown bool `yaml:"allow_unknown" json:"allow_unknown"`
}

// PacingConfig holds the inter-request delay settings
type PacingConfig struct {
	BaseDelay         time.Duration `yaml:"base_delay" json:"base_delay"`
	Jitter            time.Duration `yaml:"jitter" json:"jitter"`
	MaxRequestsPerRun int           `yaml:"max_requests_per_run" json:"max_requests_per_run"`

	// Rolling one hour cap. Zero disables it.
	MaxRequestsPerHour int `yaml:"max_requests_per_hour" json:"max_requests_per_hour"`
}

// QualityConfig holds the minimum scores a profile needs to be kept
type QualityConfig struct {
	MinConfidence   float64 `yaml:"min_confidence" json:"min_confidence"`
	MinCompleteness float64 `yaml:"min_completeness" json:"min_completeness"`
}

// ScoringConfig holds the confidence weights. All weights must be non-negative.
type ScoringConfig struct {
	Base       float64 `yaml:"base" json:"base"`
	Keyword    float64 `yaml:"keyword" json:"keyword"`
	Centrality float64 `yaml:"centrality" json:"centrality"`
	Company    float64 `yaml:"company" json:"company"`
}

// BrowserConfig holds settings for the page fetcher
type BrowserConfig struct {
	Headless           bool          `yaml:"headless" json:"headless"`
	UserAgent          string        `yaml:"user_agent" json:"user_agent"`
	ExecPath           string        `yaml:"exec_path" json:"exec_path"`
	PageTimeout        time.Duration `yaml:"page_timeout" json:"page_timeout"`
	MaxResultsPerPage  int           `yaml:"max_results_per_page" json:"max_results_per_page"`
	Account            string        `yaml:"account" json:"account"`
	CookiesFromBrowser bool          `yaml:"cookies_from_browser" json:"cookies_from_browser"`

	// Fixtures replaces the browser with recorded result pages when set
	Fixtures string `yaml:"fixtures" json:"fixtures"`
}

// OutputConfig holds output file configuration
type OutputConfig struct {
	Directory     string `yaml:"directory" json:"directory"`
	CSVFile       string `yaml:"csv_file" json:"csv_file"`
	SummaryFile   string `yaml:"summary_file" json:"summary_file"`
	SummaryDOCX   string `yaml:"summary_docx" json:"summary_docx"`
	MergeExisting bool   `yaml:"merge_existing" json:"merge_existing"`
	Checkpoint    bool   `yaml:"checkpoint" json:"checkpoint"`
}

// StorageConfig holds connection settings for the optional stores
type StorageConfig struct {
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `yaml:"redis_password" json:"-"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db"`
	RedisKey      string `yaml:"redis_key" json:"redis_key"`
	PostgresDSN   string `yaml:"postgres_dsn" json:"-"`
	WriteAttempts int    `yaml:"write_attempts" json:"write_attempts"`
}

// ServerConfig holds the job API settings
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	File   string `yaml:"file" json:"file"`
	Format string `yaml:"format" json:"format"`
}

// DefaultKeywords is the topical vocabulary searched by default
var DefaultKeywords = []string{
	"AI agent",
	"automation specialist",
	"workflow automation",
	"RPA",
	"process automation",
	"business automation",
	"Zapier",
	"Make.com",
	"n8n",
	"automation consultant",
	"AI automation",
	"workflow optimization",
	"automation expert",
	"no-code automation",
	"low-code automation",
	"automation engineer",
	"workflow specialist",
	"process optimization",
	"business process automation",
	"digital transformation",
	"automation architect",
	"workflow consultant",
}

// DefaultCompanies is the target company list searched by default
var DefaultCompanies = []string{
	"Zapier", "Make.com", "n8n", "Microsoft", "Google", "Amazon",
	"Salesforce", "HubSpot", "Notion", "Airtable", "Monday.com",
	"Asana", "Trello", "Slack", "Discord", "Figma", "Canva",
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			Keywords:  append([]string(nil), DefaultKeywords...),
			Companies: append([]string(nil), DefaultCompanies...),
		},
		Followers: FollowerConfig{
			Min: 1000,
			Max: 10000,
		},
		Pacing: PacingConfig{
			BaseDelay:          30 * time.Second,
			Jitter:             10 * time.Second,
			MaxRequestsPerRun:  100,
			MaxRequestsPerHour: 100,
		},
		Quality: QualityConfig{
			MinConfidence:   0.5,
			MinCompleteness: 0.6,
		},
		Scoring: ScoringConfig{
			Base:       0.2,
			Keyword:    0.4,
			Centrality: 0.2,
			Company:    0.2,
		},
		Browser: BrowserConfig{
			Headless:          true,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			PageTimeout:       45 * time.Second,
			MaxResultsPerPage: 50,
		},
		Output: OutputConfig{
			Directory:     ".",
			CSVFile:       "linkedin_profiles.csv",
			SummaryFile:   "summary_report.txt",
			MergeExisting: true,
			Checkpoint:    true,
		},
		Storage: StorageConfig{
			RedisKey:      "profilescout:seen",
			WriteAttempts: 3,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	// Search terms
	if keywords := os.Getenv("PROFILESCOUT_KEYWORDS"); keywords != "" {
		c.Search.Keywords = splitList(keywords)
	}
	if companies := os.Getenv("PROFILESCOUT_COMPANIES"); companies != "" {
		c.Search.Companies = splitList(companies)
	}

	// Follower band
	if v := os.Getenv("PROFILESCOUT_MIN_FOLLOWERS"); v != "" {
		var val int
		if _, err := fmt.Sscanf(v, "%d", &val); err != nil {
			errs = append(errs, fmt.Errorf("PROFILESCOUT_MIN_FOLLOWERS: %w", err))
		} else {
			c.Followers.Min = val
		}
	}
	if v := os.Getenv("PROFILESCOUT_MAX_FOLLOWERS"); v != "" {
		var val int
		if _, err := fmt.Sscanf(v, "%d", &val); err != nil {
			errs = append(errs, fmt.Errorf("PROFILESCOUT_MAX_FOLLOWERS: %w", err))
		} else {
			c.Followers.Max = val
		}
	}
	if v := os.Getenv("PROFILESCOUT_ALLOW_UNKNOWN_FOLLOWERS"); v != "" {
		c.Followers.AllowUnknown = strings.ToLower(v) == "true"
	}

	// Pacing
	if v := os.Getenv("PROFILESCOUT_BASE_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PROFILESCOUT_BASE_DELAY: %w", err))
		} else {
			c.Pacing.BaseDelay = d
		}
	}
	if v := os.Getenv("PROFILESCOUT_JITTER"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PROFILESCOUT_JITTER: %w", err))
		} else {
			c.Pacing.Jitter = d
		}
	}
	if v := os.Getenv("PROFILESCOUT_MAX_REQUESTS"); v != "" {
		var val int
		fmt.Sscanf(v, "%d", &val)
		if val > 0 {
			c.Pacing.MaxRequestsPerRun = val
		}
	}
	if v := os.Getenv("PROFILESCOUT_MAX_REQUESTS_PER_HOUR"); v != "" {
		var val int
		if _, err := fmt.Sscanf(v, "%d", &val); err != nil {
			errs = append(errs, fmt.Errorf("PROFILESCOUT_MAX_REQUESTS_PER_HOUR: %w", err))
		} else {
			c.Pacing.MaxRequestsPerHour = val
		}
	}

	// Quality gate
	if v := os.Getenv("PROFILESCOUT_MIN_CONFIDENCE"); v != "" {
		var val float64
		if _, err := fmt.Sscanf(v, "%g", &val); err != nil {
			errs = append(errs, fmt.Errorf("PROFILESCOUT_MIN_CONFIDENCE: %w", err))
		} else {
			c.Quality.MinConfidence = val
		}
	}
	if v := os.Getenv("PROFILESCOUT_MIN_COMPLETENESS"); v != "" {
		var val float64
		if _, err := fmt.Sscanf(v, "%g", &val); err != nil {
			errs = append(errs, fmt.Errorf("PROFILESCOUT_MIN_COMPLETENESS: %w", err))
		} else {
			c.Quality.MinCompleteness = val
		}
	}

	// Browser
	if v := os.Getenv("PROFILESCOUT_HEADLESS"); v != "" {
		c.Browser.Headless = strings.ToLower(v) != "false"
	}
	if v := os.Getenv("PROFILESCOUT_USER_AGENT"); v != "" {
		c.Browser.UserAgent = v
	}
	if v := os.Getenv("PROFILESCOUT_CHROME_PATH"); v != "" {
		c.Browser.ExecPath = v
	}
	if v := os.Getenv("PROFILESCOUT_ACCOUNT"); v != "" {
		c.Browser.Account = v
	}
	if v := os.Getenv("PROFILESCOUT_FIXTURES"); v != "" {
		c.Browser.Fixtures = v
	}

	// Output
	if v := os.Getenv("PROFILESCOUT_OUTPUT_DIR"); v != "" {
		c.Output.Directory = v
	}
	if v := os.Getenv("PROFILESCOUT_CSV_FILE"); v != "" {
		c.Output.CSVFile = v
	}

	// Storage
	if v := os.Getenv("PROFILESCOUT_REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := os.Getenv("PROFILESCOUT_REDIS_PASSWORD"); v != "" {
		c.Storage.RedisPassword = v
	}
	if v := os.Getenv("PROFILESCOUT_POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}

	if v := os.Getenv("PROFILESCOUT_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}

	// Logging level
	if logLevel := os.Getenv("PROFILESCOUT_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("PROFILESCOUT_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".profilescout.yaml",
		".profilescout.yml",
		filepath.Join(home, ".config", "profilescout", "config.yaml"),
		filepath.Join(home, ".config", "profilescout", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Follower band
	if c.Followers.Min < 0 {
		errs = append(errs, errors.New("min followers cannot be negative"))
	}
	if c.Followers.Max < c.Followers.Min {
		errs = append(errs, errors.New("max followers must not be below min followers"))
	}

	// Pacing
	if c.Pacing.BaseDelay < 0 {
		errs = append(errs, errors.New("base delay cannot be negative"))
	}
	if c.Pacing.Jitter < 0 {
		errs = append(errs, errors.New("jitter cannot be negative"))
	}
	if c.Pacing.MaxRequestsPerRun <= 0 {
		errs = append(errs, errors.New("max requests per run must be positive"))
	}
	if c.Pacing.MaxRequestsPerHour < 0 {
		errs = append(errs, errors.New("max requests per hour cannot be negative"))
	}

	// Quality gate
	if c.Quality.MinConfidence < 0 || c.Quality.MinConfidence > 1 {
		errs = append(errs, errors.New("min confidence must be within [0, 1]"))
	}
	if c.Quality.MinCompleteness < 0 || c.Quality.MinCompleteness > 1 {
		errs = append(errs, errors.New("min completeness must be within [0, 1]"))
	}

	// Scoring weights
	if c.Scoring.Base < 0 || c.Scoring.Keyword < 0 || c.Scoring.Centrality < 0 || c.Scoring.Company < 0 {
		errs = append(errs, errors.New("scoring weights cannot be negative"))
	}

	// Browser
	if c.Browser.PageTimeout <= 0 {
		errs = append(errs, errors.New("page timeout must be positive"))
	}
	if c.Browser.MaxResultsPerPage <= 0 {
		errs = append(errs, errors.New("max results per page must be positive"))
	}

	// Output
	if c.Output.CSVFile == "" {
		errs = append(errs, errors.New("csv file is required"))
	}
	if c.Output.SummaryFile == "" {
		errs = append(errs, errors.New("summary file is required"))
	}

	if c.Storage.WriteAttempts < 1 {
		errs = append(errs, errors.New("storage write attempts must be at least 1"))
	}

	// Logging
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, errors.New("invalid log format"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// CSVPath returns the CSV output path inside the output directory
func (c *Config) CSVPath() string {
	return c.outputPath(c.Output.CSVFile)
}

// SummaryPath returns the text summary path inside the output directory
func (c *Config) SummaryPath() string {
	return c.outputPath(c.Output.SummaryFile)
}

// SummaryDOCXPath returns the DOCX summary path, or "" when disabled
func (c *Config) SummaryDOCXPath() string {
	if c.Output.SummaryDOCX == "" {
		return ""
	}
	return c.outputPath(c.Output.SummaryDOCX)
}

func (c *Config) outputPath(name string) string {
	if filepath.IsAbs(name) || c.Output.Directory == "" {
		return name
	}
	return filepath.Join(c.Output.Directory, name)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Callers only pass flags the user actually set.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if keywords, ok := flags["keywords"].([]string); ok && len(keywords) > 0 {
		c.Search.Keywords = keywords
	}
	if companies, ok := flags["companies"].([]string); ok {
		c.Search.Companies = companies
	}
	if min, ok := flags["min-followers"].(int); ok {
		c.Followers.Min = min
	}
	if max, ok := flags["max-followers"].(int); ok {
		c.Followers.Max = max
	}
	if allow, ok := flags["allow-unknown"].(bool); ok {
		c.Followers.AllowUnknown = allow
	}
	if delay, ok := flags["base-delay"].(time.Duration); ok {
		c.Pacing.BaseDelay = delay
	}
	if jitter, ok := flags["jitter"].(time.Duration); ok {
		c.Pacing.Jitter = jitter
	}
	if maxRequests, ok := flags["max-requests"].(int); ok && maxRequests > 0 {
		c.Pacing.MaxRequestsPerRun = maxRequests
	}
	if minConfidence, ok := flags["min-confidence"].(float64); ok {
		c.Quality.MinConfidence = minConfidence
	}
	if minCompleteness, ok := flags["min-completeness"].(float64); ok {
		c.Quality.MinCompleteness = minCompleteness
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if account, ok := flags["account"].(string); ok && account != "" {
		c.Browser.Account = account
	}
	if fixtures, ok := flags["fixtures"].(string); ok && fixtures != "" {
		c.Browser.Fixtures = fixtures
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.Directory = outputDir
	}
	if docx, ok := flags["summary-docx"].(string); ok && docx != "" {
		c.Output.SummaryDOCX = docx
	}
	if addr, ok := flags["addr"].(string); ok && addr != "" {
		c.Server.Addr = addr
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".profilescout.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

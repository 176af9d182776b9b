// Package config resolves the tool's settings from built-in defaults, an optional
// YAML file and the environment (including a .env file). Command-line flags are
// applied on top by the cmd package.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultBaseURL       = "https://api.github.com/"
	DefaultUserAgent     = "SRE-Health-Monitor/1.0"
	DefaultTimeout       = 10 * time.Second
	DefaultRetries       = 3
	DefaultBackoffFactor = 300 * time.Millisecond
	DefaultBackoffMax    = 120 * time.Second
	DefaultOutputPath    = "repo_health_report.json"
	DefaultEnvFile       = ".env"

	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Environment variables read by Load.
const (
	EnvAPIURL    = "REPO_HEALTH_API_URL"
	EnvTimeout   = "REPO_HEALTH_TIMEOUT"
	EnvRetries   = "REPO_HEALTH_RETRIES"
	EnvBackoff   = "REPO_HEALTH_BACKOFF"
	EnvOutput    = "REPO_HEALTH_OUTPUT"
	EnvLogFormat = "REPO_HEALTH_LOG_FORMAT"
)

// Config is the full settings tree. Fields map 1:1 to the YAML file.
type Config struct {
	API    APIConfig    `yaml:"api"`
	Output OutputConfig `yaml:"output"`
	Log    LogConfig    `yaml:"log"`
}

// APIConfig controls the GitHub client.
type APIConfig struct {
	BaseURL   string `yaml:"base_url"`
	UserAgent string `yaml:"user_agent"`

	// Timeout bounds each attempt.
	Timeout time.Duration `yaml:"timeout"`

	// Retries is the number of retries after the first attempt.
	Retries int `yaml:"retries"`

	// BackoffFactor is the wait before the first retry; it doubles per retry.
	BackoffFactor time.Duration `yaml:"backoff_factor"`

	// BackoffMax caps a single wait, including Retry-After hints.
	BackoffMax time.Duration `yaml:"backoff_max"`
}

// OutputConfig controls snapshot persistence.
type OutputConfig struct {
	// Path is the snapshot destination. Its extension selects the format.
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

// LogConfig controls the diagnostic log stream.
type LogConfig struct {
	Verbose bool   `yaml:"verbose"`
	Format  string `yaml:"format"`
}

// Options selects the sources Load reads besides the defaults.
type Options struct {
	// File is a YAML config file. Empty means none; a named file must exist.
	File string

	// EnvFile is a dotenv file. A missing file is ignored.
	EnvFile string
}

// Default returns a Config populated with built-in defaults.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:       DefaultBaseURL,
			UserAgent:     DefaultUserAgent,
			Timeout:       DefaultTimeout,
			Retries:       DefaultRetries,
			BackoffFactor: DefaultBackoffFactor,
			BackoffMax:    DefaultBackoffMax,
		},
		Output: OutputConfig{Path: DefaultOutputPath},
		Log:    LogConfig{Format: LogFormatText},
	}
}

// Load layers defaults, the YAML file and the environment, then validates.
// Process environment variables take precedence over the dotenv file.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	if opts.File != "" {
		if err := cfg.loadFile(opts.File); err != nil {
			return nil, err
		}
	}

	dotenv, err := readEnvFile(opts.EnvFile)
	if err != nil {
		return nil, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse yaml: %w", err)
	}
	return nil
}

func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return values, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		c.API.BaseURL = v
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvTimeout, err)
		}
		c.API.Timeout = d
	}
	if v, ok := lookup(EnvRetries); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvRetries, err)
		}
		c.API.Retries = n
	}
	if v, ok := lookup(EnvBackoff); ok && v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvBackoff, err)
		}
		c.API.BackoffFactor = d
	}
	if v, ok := lookup(EnvOutput); ok && v != "" {
		c.Output.Path = v
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		c.Log.Format = strings.ToLower(v)
	}
	return nil
}

// parseSeconds accepts a Go duration ("1.5s", "300ms") or a plain number of seconds ("10", "0.3").
func parseSeconds(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// Validate checks structural constraints.
func (c *Config) Validate() error {
	if c.API.Timeout <= 0 {
		return fmt.Errorf("config: api.timeout must be positive")
	}
	if c.API.Retries < 0 {
		return fmt.Errorf("config: api.retries must not be negative")
	}
	if c.API.BackoffFactor < 0 {
		return fmt.Errorf("config: api.backoff_factor must not be negative")
	}
	if c.API.BackoffMax <= 0 {
		return fmt.Errorf("config: api.backoff_max must be positive")
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("config: api.base_url is required")
	}
	if !c.Output.Disabled && c.Output.Path == "" {
		return fmt.Errorf("config: output.path is required unless output is disabled")
	}
	switch c.Log.Format {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

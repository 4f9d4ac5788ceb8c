// Package config manages the adoreport YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// APIConfig holds Azure DevOps API endpoint and throttling settings.
type APIConfig struct {
	BaseURL      string  `yaml:"base_url"`
	VsspsBaseURL string  `yaml:"vssps_base_url"`
	VsaexBaseURL string  `yaml:"vsaex_base_url"`
	TimeoutSecs  int     `yaml:"timeout"`
	MaxRetries   int     `yaml:"max_retries"`
	RetryDelay   int     `yaml:"retry_delay"`
	RequestsPerS float64 `yaml:"requests_per_second"`
}

// OutputConfig holds report output settings.
type OutputConfig struct {
	Formats          []string `yaml:"formats"`
	Directory        string   `yaml:"directory"`
	IncludeTimestamp bool     `yaml:"include_timestamp"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
	File   string `yaml:"file,omitempty"`
}

// ReportsConfig holds analysis filtering options.
type ReportsConfig struct {
	IncludeEmptyGroups   bool `yaml:"include_empty_groups"`
	UserDetails          bool `yaml:"user_details"`
	GroupDetails         bool `yaml:"group_details"`
	ExcludeBuiltInUsers  bool `yaml:"exclude_builtin_users"`
	ExcludeBuiltInGroups bool `yaml:"exclude_builtin_groups"`
}

// Config is the full application configuration.
type Config struct {
	Organizations []string      `yaml:"organizations"`
	API           APIConfig     `yaml:"api"`
	Output        OutputConfig  `yaml:"output"`
	Logging       LoggingConfig `yaml:"logging"`
	Reports       ReportsConfig `yaml:"reports"`
}

// SupportedFormats are the report output formats the writer understands.
var SupportedFormats = []string{"csv", "json", "excel"}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:      "https://dev.azure.com",
			VsspsBaseURL: "https://vssps.dev.azure.com",
			VsaexBaseURL: "https://vsaex.dev.azure.com",
			TimeoutSecs:  30,
			MaxRetries:   3,
			RetryDelay:   1,
			RequestsPerS: 10,
		},
		Output: OutputConfig{
			Formats:          []string{"csv", "json"},
			Directory:        "./reports",
			IncludeTimestamp: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Reports: ReportsConfig{
			UserDetails:          true,
			GroupDetails:         true,
			ExcludeBuiltInUsers:  true,
			ExcludeBuiltInGroups: true,
		},
	}
}

// Load reads a config file from the given path. If the file does not exist,
// it returns the default config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes a config to the given path, creating parent directories as
// needed.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks URL schemes, output formats and the log level.
func (c *Config) Validate() error {
	for _, u := range []string{c.API.BaseURL, c.API.VsspsBaseURL, c.API.VsaexBaseURL} {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return fmt.Errorf("api url %q must start with http:// or https://", u)
		}
	}

	for _, f := range c.Output.Formats {
		if !isSupportedFormat(f) {
			return fmt.Errorf("unsupported output format %q, supported: %s", f, strings.Join(SupportedFormats, ", "))
		}
	}
	if c.Output.Directory == "" {
		return fmt.Errorf("output directory cannot be empty")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}

	return nil
}

func isSupportedFormat(f string) bool {
	for _, s := range SupportedFormats {
		if strings.EqualFold(f, s) {
			return true
		}
	}
	return false
}

// ConfigDir returns the default config directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".adoreport"), nil
}

// ConfigPath returns the config file path, respecting the ADOREPORT_CONFIG
// env var.
func ConfigPath() (string, error) {
	if p := os.Getenv("ADOREPORT_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// WriteDefault writes a commented default configuration file at path.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o600)
}

const defaultConfigYAML = `# adoreport configuration

# Organizations to process (can be overridden with --organization)
organizations:
  - "your-org-name"

# Azure DevOps API settings
api:
  base_url: "https://dev.azure.com"
  vssps_base_url: "https://vssps.dev.azure.com"
  vsaex_base_url: "https://vsaex.dev.azure.com"
  timeout: 30
  max_retries: 3
  retry_delay: 1
  requests_per_second: 10

# Report output settings
output:
  formats:
    - csv
    - json
  directory: "./reports"
  include_timestamp: true

# Logging settings
logging:
  level: "info"
  format: "text"

# Analysis settings
reports:
  include_empty_groups: false
  user_details: true
  group_details: true
  exclude_builtin_users: true
  exclude_builtin_groups: true
`

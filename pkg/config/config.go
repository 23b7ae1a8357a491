package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for storyfetch.
type Config struct {
	// Cache settings
	Cache CacheConfig `yaml:"cache" json:"cache"`

	// Fetch orchestration settings
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// Browser backend settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// HTTP probe backend settings
	Probe ProbeConfig `yaml:"probe" json:"probe"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// CacheConfig holds on-disk cache configuration.
type CacheConfig struct {
	Directory string `yaml:"directory" json:"directory"`
	TTLHours  int    `yaml:"ttl_hours" json:"ttl_hours"`
}

// FetchConfig holds fetch orchestration configuration.
type FetchConfig struct {
	DefaultBackend string `yaml:"default_backend" json:"default_backend"`
}

// BrowserConfig holds headless-browser backend configuration.
type BrowserConfig struct {
	MirrorURL       string        `yaml:"mirror_url" json:"mirror_url"`
	PageLoadTimeout time.Duration `yaml:"page_load_timeout" json:"page_load_timeout"`
	UserAgent       string        `yaml:"user_agent" json:"user_agent"`
	Headless        bool          `yaml:"headless" json:"headless"`
}

// ProbeConfig holds HTTP probe backend configuration.
type ProbeConfig struct {
	URL               string        `yaml:"url" json:"url"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	SampleImageLimit  int           `yaml:"sample_image_limit" json:"sample_image_limit"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultCacheDir returns the per-user cache location used when no override
// is configured.
func DefaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return filepath.Join(".", ".storyfetch-cache")
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "storyfetch")
}

// DefaultConfig returns a Config instance with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			Directory: DefaultCacheDir(),
			TTLHours:  12,
		},
		Fetch: FetchConfig{
			DefaultBackend: "browser",
		},
		Browser: BrowserConfig{
			MirrorURL:       "https://storiesig.info/en/",
			PageLoadTimeout: 30 * time.Second,
			UserAgent:       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			Headless:        true,
		},
		Probe: ProbeConfig{
			URL:               "https://storiesig.info/en/",
			Timeout:           15 * time.Second,
			MaxRetries:        3,
			RequestsPerMinute: 30,
			SampleImageLimit:  5,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
func (c *Config) LoadFromEnv() error {
	if dir := os.Getenv("STORYFETCH_CACHE_DIR"); dir != "" {
		c.Cache.Directory = dir
	}
	if ttl := os.Getenv("STORYFETCH_CACHE_TTL_HOURS"); ttl != "" {
		if val, err := strconv.Atoi(ttl); err == nil && val > 0 {
			c.Cache.TTLHours = val
		}
	}
	if backend := os.Getenv("STORYFETCH_BACKEND"); backend != "" {
		c.Fetch.DefaultBackend = backend
	}
	if url := os.Getenv("STORYFETCH_MIRROR_URL"); url != "" {
		c.Browser.MirrorURL = url
	}
	if ua := os.Getenv("STORYFETCH_USER_AGENT"); ua != "" {
		c.Browser.UserAgent = ua
	}
	if url := os.Getenv("STORYFETCH_PROBE_URL"); url != "" {
		c.Probe.URL = url
	}
	if rpm := os.Getenv("STORYFETCH_REQUESTS_PER_MINUTE"); rpm != "" {
		if val, err := strconv.Atoi(rpm); err == nil && val > 0 {
			c.Probe.RequestsPerMinute = val
		}
	}
	if logLevel := os.Getenv("STORYFETCH_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
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

// findConfigFile searches for config file in standard locations.
func (c *Config) findConfigFile() string {
	locations := []string{
		".storyfetch.yaml",
		".storyfetch.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "storyfetch", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "storyfetch", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".storyfetch.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if c.Cache.Directory == "" {
		errs = append(errs, errors.New("cache directory is required"))
	}
	if c.Cache.TTLHours <= 0 {
		errs = append(errs, errors.New("cache TTL must be positive"))
	}

	switch strings.ToLower(c.Fetch.DefaultBackend) {
	case "browser", "http":
	default:
		errs = append(errs, fmt.Errorf("unknown default backend %q", c.Fetch.DefaultBackend))
	}

	if c.Browser.MirrorURL == "" {
		errs = append(errs, errors.New("mirror URL is required"))
	}
	if c.Browser.PageLoadTimeout <= 0 {
		errs = append(errs, errors.New("page load timeout must be positive"))
	}

	if c.Probe.URL == "" {
		errs = append(errs, errors.New("probe URL is required"))
	}
	if c.Probe.Timeout <= 0 {
		errs = append(errs, errors.New("probe timeout must be positive"))
	}
	if c.Probe.MaxRetries < 0 {
		errs = append(errs, errors.New("probe max retries cannot be negative"))
	}
	if c.Probe.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

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
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if dir, ok := flags["cache-dir"].(string); ok && dir != "" {
		c.Cache.Directory = dir
	}
	if ttl, ok := flags["ttl"].(int); ok && ttl > 0 {
		c.Cache.TTLHours = ttl
	}
	if backend, ok := flags["backend"].(string); ok && backend != "" {
		c.Fetch.DefaultBackend = backend
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".storyfetch.env"))

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

// Package config loads the command line tool's settings from a YAML file and the environment
package config

// config.go defines the settings and how they are loaded

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/andrewwphillips/linearql/internal/transport"
)

// EnvAPIKey is the environment variable holding the API key (overrides the file)
const EnvAPIKey = "LINEAR_API_KEY"

// EnvEndpoint overrides the GraphQL endpoint
const EnvEndpoint = "LINEAR_ENDPOINT"

// Config holds all the settings
type Config struct {
	APIKey       string                `yaml:"api_key"`
	Endpoint     string                `yaml:"endpoint"`
	WSEndpoint   string                `yaml:"ws_endpoint"`
	Transport    string                `yaml:"transport"` // "http" or "ws"
	CacheTTL     time.Duration         `yaml:"cache_ttl"`
	StorePath    string                `yaml:"store_path"` // empty = no persistent name cache
	StoreTTL     time.Duration         `yaml:"store_ttl"`
	LogLevel     string                `yaml:"log_level"`
	MaxDepth     int                   `yaml:"max_depth"`
	MaxPages     int                   `yaml:"max_pages"`
	Concurrency  int                   `yaml:"concurrency"`
	QueryCursors bool                  `yaml:"query_cursors"`
	Unwrap       bool                  `yaml:"unwrap"`
	Retry        transport.RetryConfig `yaml:"retry"`
}

// Default returns the settings used for anything not in the file
func Default() Config {
	return Config{
		Endpoint:   transport.DefaultEndpoint,
		WSEndpoint: transport.DefaultWebSocketEndpoint,
		Transport:  "http",
		CacheTTL:   5 * time.Minute,
		StoreTTL:   24 * time.Hour,
		LogLevel:   "warn",
		MaxDepth:   5,
		Unwrap:     true,
		Retry:      transport.DefaultRetry(),
	}
}

// DefaultPath is where the config file is looked for if not given, eg ~/.config/linearql/config.yaml
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "linearql", "config.yaml")
}

// Load reads the file at path over the defaults.  If path is empty DefaultPath is used and it
// is not an error if that file does not exist.  Environment variables are applied last.
func Load(path string) (Config, error) {
	cfg := Default()
	optional := path == ""
	if optional {
		path = DefaultPath()
	}

	if path != "" {
		buf, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(buf, &cfg); err != nil {
				return cfg, fmt.Errorf("%w parsing config file %q", err, path)
			}
		case optional && errors.Is(err, fs.ErrNotExist):
			// use the defaults
		default:
			return cfg, fmt.Errorf("%w reading config file", err)
		}
	}

	cfg.ApplyEnv(os.Getenv)
	return cfg, cfg.Validate()
}

// ApplyEnv overrides settings from environment variables
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	}
	if v := getenv(EnvEndpoint); v != "" {
		c.Endpoint = v
	}
}

// Validate checks for settings that cannot work
func (c *Config) Validate() error {
	var errs []error
	if c.Transport != "http" && c.Transport != "ws" {
		errs = append(errs, fmt.Errorf("transport must be \"http\" or \"ws\", not %q", c.Transport))
	}
	if c.MaxDepth < 0 {
		errs = append(errs, errors.New("max_depth cannot be negative"))
	}
	if c.MaxPages < 0 {
		errs = append(errs, errors.New("max_pages cannot be negative"))
	}
	if c.Concurrency < 0 {
		errs = append(errs, errors.New("concurrency cannot be negative"))
	}
	if c.CacheTTL < 0 || c.StoreTTL < 0 {
		errs = append(errs, errors.New("cache TTLs cannot be negative"))
	}
	return errors.Join(errs...)
}

// Save writes the settings to path (creating the directory), readable only by the user
// since it may contain the API key
func (c *Config) Save(path string) error {
	buf, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o600)
}

// Package config loads ope's process configuration.
//
// Sources, highest precedence first:
//  1. Environment variables (OPE_*, ANTHROPIC_API_KEY)
//  2. The file named by --config
//  3. ~/.config/ope/config.yaml
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/srdjan/ope"
	"github.com/srdjan/ope/providers/anthropic"
	"github.com/srdjan/ope/providers/openai"
	"gopkg.in/yaml.v3"
)

// Defaults applied before the file and environment are read.
const (
	DefaultAddr       = ":8787"
	DefaultLogLevel   = "info"
	DefaultLocalModel = "llama3.1"
	DefaultRetryDelay = 250 * time.Millisecond
)

// CloudConfig configures the Anthropic adapter.
type CloudConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// LocalConfig configures the OpenAI-compatible local adapter.
type LocalConfig struct {
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	JSONMode bool   `yaml:"json_mode"`
}

// AdapterConfig holds the reliability settings wrapped around every adapter call.
type AdapterConfig struct {
	// Timeout bounds a single call; zero means no timeout.
	Timeout time.Duration `yaml:"timeout"`

	// Retries is the number of extra attempts after a failure.
	Retries int `yaml:"retries"`
}

// Config is the complete process configuration.
type Config struct {
	Addr           string        `yaml:"addr"`
	MockMode       bool          `yaml:"mock_mode"`
	DisplaySummary bool          `yaml:"display_summary"`
	LogLevel       string        `yaml:"log_level"`
	ContextsFile   string        `yaml:"contexts_file"`
	Cloud          CloudConfig   `yaml:"cloud"`
	Local          LocalConfig   `yaml:"local"`
	Adapter        AdapterConfig `yaml:"adapter"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:     DefaultAddr,
		LogLevel: DefaultLogLevel,
		Cloud:    CloudConfig{Model: anthropic.DefaultModel},
		Local:    LocalConfig{Model: DefaultLocalModel},
	}
}

// Load reads the config file and applies environment overrides. An empty
// path falls back to ~/.config/ope/config.yaml, which may be absent; an
// explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".config", "ope", "config.yaml")
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("invalid config file %s: %w", path, err)
			}
		case explicit || !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the environment or file may have set badly.
func (c *Config) Validate() error {
	if c.Adapter.Timeout < 0 {
		return fmt.Errorf("adapter timeout must not be negative, got %s", c.Adapter.Timeout)
	}
	if c.Adapter.Retries < 0 {
		return fmt.Errorf("adapter retries must not be negative, got %d", c.Adapter.Retries)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	stringVars := map[string]*string{
		"ANTHROPIC_API_KEY": &cfg.Cloud.APIKey,
		"OPE_CLOUD_MODEL":   &cfg.Cloud.Model,
		"OPE_LOCAL_URL":     &cfg.Local.BaseURL,
		"OPE_LOCAL_MODEL":   &cfg.Local.Model,
		"OPE_LOCAL_API_KEY": &cfg.Local.APIKey,
		"OPE_ADDR":          &cfg.Addr,
		"OPE_CONTEXTS_FILE": &cfg.ContextsFile,
		"OPE_LOG_LEVEL":     &cfg.LogLevel,
	}
	for name, dst := range stringVars {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"OPE_MOCK_MODE":       &cfg.MockMode,
		"OPE_DISPLAY_SUMMARY": &cfg.DisplaySummary,
	}
	for name, dst := range bools {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", name, err)
			}
			*dst = b
		}
	}

	if v := os.Getenv("OPE_ADAPTER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid OPE_ADAPTER_TIMEOUT: %w", err)
		}
		cfg.Adapter.Timeout = d
	}
	if v := os.Getenv("OPE_ADAPTER_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid OPE_ADAPTER_RETRIES: %w", err)
		}
		cfg.Adapter.Retries = n
	}
	return nil
}

// IsMockMode reports whether every request is served by the mock adapter.
func (c *Config) IsMockMode() bool {
	return c.MockMode
}

// HasCloud reports whether the cloud adapter has credentials.
func (c *Config) HasCloud() bool {
	return c.Cloud.APIKey != ""
}

// HasLocalHTTP reports whether a local endpoint is configured.
func (c *Config) HasLocalHTTP() bool {
	return c.Local.BaseURL != "" && c.Local.Model != ""
}

// Overlays loads the overlay table from ContextsFile, or the embedded
// default when none is set.
func (c *Config) Overlays() (*ope.OverlayTable, error) {
	if c.ContextsFile == "" {
		return ope.DefaultOverlays()
	}
	data, err := os.ReadFile(c.ContextsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read contexts file: %w", err)
	}
	return ope.LoadOverlays(data)
}

// Adapters builds the real adapters the configuration enables. Unconfigured
// adapters are left nil so the router never selects them.
func (c *Config) Adapters() ope.Adapters {
	var adapters ope.Adapters
	if c.HasCloud() {
		adapters.Cloud = anthropic.New(anthropic.Config{
			APIKey:  c.Cloud.APIKey,
			Model:   c.Cloud.Model,
			BaseURL: c.Cloud.BaseURL,
		})
	}
	if c.HasLocalHTTP() {
		adapters.LocalHTTP = openai.New(openai.Config{
			BaseURL:  c.Local.BaseURL,
			Model:    c.Local.Model,
			APIKey:   c.Local.APIKey,
			JSONMode: c.Local.JSONMode,
		})
	}
	return adapters
}

// Options translates the adapter settings into service options.
func (c *Config) Options() []ope.Option {
	var opts []ope.Option
	if c.Adapter.Retries > 0 {
		opts = append(opts, ope.WithBackoff(c.Adapter.Retries+1, DefaultRetryDelay))
	}
	if c.Adapter.Timeout > 0 {
		opts = append(opts, ope.WithTimeout(c.Adapter.Timeout))
	}
	return opts
}

// Service builds a fully wired service from the configuration.
func (c *Config) Service() (*ope.Service, *ope.OverlayTable, error) {
	overlays, err := c.Overlays()
	if err != nil {
		return nil, nil, err
	}
	svc := ope.NewService(ope.ServiceConfig{
		Overlays:       overlays,
		Capabilities:   c,
		Adapters:       c.Adapters(),
		DisplaySummary: c.DisplaySummary,
	}, c.Options()...)
	return svc, overlays, nil
}

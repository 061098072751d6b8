// Package config holds the miner's settings. Defaults are compiled in; the
// only runtime input is the credential pair read from the environment.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AOShei/go-image-miner/pkg/model"
)

const (
	EnvEmail    = "SUCCEED_EMAIL"
	EnvPassword = "SUCCEED_PASSWORD"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds the miner configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Mining  MiningConfig  `yaml:"mining"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig holds the backend endpoints.
type APIConfig struct {
	LoginURL   string `yaml:"login_url"`
	UploadURL  string `yaml:"upload_url"`
	TimeoutSec int    `yaml:"timeout_sec"`
	UserAgent  string `yaml:"user_agent"`
}

func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// MiningConfig holds the record fields and the matching limits.
type MiningConfig struct {
	FlagField     string  `yaml:"flag_field"`
	QuestionField string  `yaml:"question_field"`
	Threshold     int     `yaml:"threshold"`     // fragment score must exceed this, 0-100
	QueryPrefix   int     `yaml:"query_prefix"`  // characters of the question used as query
	SamePageCap   float64 `yaml:"same_page_cap"` // layout units below the text, exclusive
	NextPageCap   float64 `yaml:"next_page_cap"` // layout units from the next page top, exclusive
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level    string `yaml:"level"`    // debug, info, warn, error
	Encoding string `yaml:"encoding"` // console, json
}

// Default returns the compiled-in configuration.
func Default() (Config, error) {
	return Parse(defaultsYAML)
}

// Parse reads a YAML document, fills what it leaves empty and validates
// the result.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.API.TimeoutSec <= 0 {
		c.API.TimeoutSec = 60
	}
	if c.API.UserAgent == "" {
		c.API.UserAgent = "go-image-miner/1.0"
	}
	if c.Mining.FlagField == "" {
		c.Mining.FlagField = "has_image"
	}
	if c.Mining.QuestionField == "" {
		c.Mining.QuestionField = "Question"
	}
	if c.Mining.Threshold <= 0 {
		c.Mining.Threshold = 85
	}
	if c.Mining.QueryPrefix <= 0 {
		c.Mining.QueryPrefix = 100
	}
	if c.Mining.SamePageCap <= 0 {
		c.Mining.SamePageCap = 800
	}
	if c.Mining.NextPageCap <= 0 {
		c.Mining.NextPageCap = 300
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Encoding == "" {
		c.Logging.Encoding = "console"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.API.LoginURL == "" {
		return fmt.Errorf("api.login_url is required")
	}
	if c.API.UploadURL == "" {
		return fmt.Errorf("api.upload_url is required")
	}
	if c.Mining.Threshold >= 100 {
		return fmt.Errorf("mining.threshold must be below 100, got %d", c.Mining.Threshold)
	}
	switch c.Logging.Encoding {
	case "console", "json":
		// ok
	default:
		return fmt.Errorf("logging.encoding must be \"console\" or \"json\", got %q", c.Logging.Encoding)
	}
	return nil
}

// CredentialsFromEnv reads the login pair. Missing values are left empty;
// the login step reports them.
func CredentialsFromEnv() model.Credentials {
	return model.Credentials{
		Email:    os.Getenv(EnvEmail),
		Password: os.Getenv(EnvPassword),
	}
}

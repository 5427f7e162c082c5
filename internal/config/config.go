// Package config loads Smartdog settings from defaults, an optional YAML
// file, SMARTDOG_* environment variables and command-line flags, in that
// order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "SMARTDOG"

// Default values. The base URL is the campaign backend the original
// front-end was hard-wired to.
const (
	DefaultBaseURL        = "https://smartdog-backend-vlm0.onrender.com"
	DefaultSubmitPath     = "/transform-pet"
	DefaultCountPath      = "/api/pet-human-count"
	DefaultIncrementPath  = "/api/pet-human-count/increment"
	DefaultHTTPTimeout    = 3 * time.Minute
	DefaultCounterDefault = 2847
	DefaultTheme          = "classic"
	DefaultVariant        = "contribute"
	DefaultPort           = 8080
)

// Config holds every setting the Smartdog binaries understand.
type Config struct {
	BaseURL         string        `mapstructure:"base_url"`
	SubmitPath      string        `mapstructure:"submit_path"`
	CountPath       string        `mapstructure:"count_path"`
	IncrementPath   string        `mapstructure:"increment_path"`
	HTTPTimeout     time.Duration `mapstructure:"http_timeout"`
	CounterDefault  int           `mapstructure:"counter_default"`
	DataDir         string        `mapstructure:"data_dir"`
	Theme           string        `mapstructure:"theme"`
	Variant         string        `mapstructure:"variant"`
	LogLevel        string        `mapstructure:"log_level"`
	Port            int           `mapstructure:"port"`
	DynamoTable     string        `mapstructure:"dynamo_table"`
	ArchiveBucket   string        `mapstructure:"archive_bucket"`
	SSMBaseURLParam string        `mapstructure:"ssm_base_url_param"`
}

// New returns a viper instance with Smartdog defaults and environment
// binding applied. Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("submit_path", DefaultSubmitPath)
	v.SetDefault("count_path", DefaultCountPath)
	v.SetDefault("increment_path", DefaultIncrementPath)
	v.SetDefault("http_timeout", DefaultHTTPTimeout)
	v.SetDefault("counter_default", DefaultCounterDefault)
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("theme", DefaultTheme)
	v.SetDefault("variant", DefaultVariant)
	v.SetDefault("log_level", "info")
	v.SetDefault("port", DefaultPort)
	v.SetDefault("dynamo_table", "")
	v.SetDefault("archive_bucket", "")
	v.SetDefault("ssm_base_url_param", "")
	return v
}

// Load reads the optional config file and unmarshals the merged settings.
// An explicit file that cannot be read is an error; the implicit
// $HOME/.smartdog/config.yaml is skipped when absent.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else if home, err := os.UserHomeDir(); err == nil {
		implicit := filepath.Join(home, ".smartdog", "config.yaml")
		if _, err := os.Stat(implicit); err == nil {
			v.SetConfigFile(implicit)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", implicit, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("config.base_url is required")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("config.base_url must be an http(s) URL, got %q", c.BaseURL)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("config.http_timeout must not be negative")
	}
	if c.CounterDefault < 0 {
		return fmt.Errorf("config.counter_default must not be negative")
	}
	return nil
}

// DBPath returns the path of the local SQLite database.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "smartdog.db")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".smartdog"
	}
	return filepath.Join(home, ".smartdog")
}

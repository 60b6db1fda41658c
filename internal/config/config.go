// Package config loads the snaketrade YAML configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tordrt/snaketrade/internal/auth"
)

// EnvConfigPath names the environment variable that points to the config file
const EnvConfigPath = "SNAKETRADE_CONFIG"

type Config struct {
	Env            string         `yaml:"env"`
	ConsumerKey    string         `yaml:"consumer_key,omitempty"`
	ConsumerSecret string         `yaml:"consumer_secret,omitempty"`
	SessionFile    string         `yaml:"session_file,omitempty"`
	Output         OutputConfig   `yaml:"output"`
	Database       DatabaseConfig `yaml:"database"`
}

type OutputConfig struct {
	Format string `yaml:"format"`
	Dir    string `yaml:"dir,omitempty"`
}

type DatabaseConfig struct {
	URL  string `yaml:"url,omitempty"`
	Mode string `yaml:"mode,omitempty"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Env:    string(auth.Sandbox),
		Output: OutputConfig{Format: "text"},
	}
}

// Load reads the config file at path. An empty path falls back to
// $SNAKETRADE_CONFIG; when that is unset too the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		path = GetEnvOrDefault(EnvConfigPath, "")
	}
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the enumerated fields
func (c *Config) Validate() error {
	if _, err := auth.ParseEnv(c.Env); err != nil {
		return err
	}
	switch c.Output.Format {
	case "", "text", "markdown", "csv":
	default:
		return fmt.Errorf("unknown output format %q (must be text, markdown or csv)", c.Output.Format)
	}
	switch c.Database.Mode {
	case "", "replace", "append":
	default:
		return fmt.Errorf("unknown database mode %q (must be replace or append)", c.Database.Mode)
	}
	return nil
}

// Credentials returns the consumer key pair for env. Values from the file
// take precedence over ETRADE_<ENV>_KEY and ETRADE_<ENV>_SECRET.
func (c *Config) Credentials(env auth.Env, lookup auth.LookupFunc) (key, secret string, err error) {
	if c.ConsumerKey != "" && c.ConsumerSecret != "" {
		return c.ConsumerKey, c.ConsumerSecret, nil
	}
	return auth.ConsumerKey(env, lookup)
}

// SessionPath returns where the session of env is stored
func (c *Config) SessionPath(env auth.Env) (string, error) {
	if c.SessionFile != "" {
		return c.SessionFile, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "snaketrade", "session-"+string(env)+".yaml"), nil
}

// GetEnvOrDefault returns environment variable value or default if not set
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

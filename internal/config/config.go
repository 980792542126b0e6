// ABOUTME: Configuration loading and parsing for the sidebar store
// ABOUTME: Supports YAML files with environment variable expansion and defaults

package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config represents the complete sidebar configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Encryption EncryptionConfig `yaml:"encryption"`
	History    HistoryConfig    `yaml:"history"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// EncryptionConfig holds key material settings for sensitive item content.
// Either a key file (32 raw bytes) or a passphrase+salt pair must be set.
type EncryptionConfig struct {
	KeyFile    string `yaml:"key_file"`
	Passphrase string `yaml:"passphrase"`
	Salt       string `yaml:"salt"`
}

// HistoryConfig holds clipboard history retention settings.
type HistoryConfig struct {
	// MaxEntries caps clipboard history; it seeds the max_history
	// setting on first run. 0 means use the default.
	MaxEntries int `yaml:"max_entries"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultMaxHistory is the clipboard history cap used when neither the
// config file nor the max_history setting provides one.
const DefaultMaxHistory = 20

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.History.MaxEntries == 0 {
		c.History.MaxEntries = DefaultMaxHistory
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Encryption.KeyFile == "" {
		if c.Encryption.Passphrase == "" {
			return fmt.Errorf("encryption.key_file or encryption.passphrase is required")
		}
		if c.Encryption.Salt == "" {
			return fmt.Errorf("encryption.salt is required when using a passphrase")
		}
	}

	if c.History.MaxEntries < 0 {
		return fmt.Errorf("history.max_entries must not be negative")
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be %q or %q, got %q", "text", "json", c.Logging.Format)
	}

	return nil
}

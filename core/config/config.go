// Package config loads the Trello credentials and board settings used by a session.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/opensdd/osdd-trello/core/trello"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding values read from the config file.
const (
	EnvKey           = "TRELLO_API_KEY"
	EnvToken         = "TRELLO_API_TOKEN"
	EnvBoardID       = "TRELLO_BOARD_ID"
	EnvIssueKeyField = "TRELLO_ISSUE_KEY_FIELD"
)

// Config holds the settings needed to read a board.
type Config struct {
	Key     string `yaml:"key" toml:"key"`
	Token   string `yaml:"token" toml:"token"`
	BoardID string `yaml:"board_id" toml:"board_id"`
	// IssueKeyField is the Custom Fields code of the field holding the issue key.
	IssueKeyField string `yaml:"issue_key_field" toml:"issue_key_field"`
}

// GetXDGConfigHome returns XDG_CONFIG_HOME or default path
func GetXDGConfigHome() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return xdgConfig
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config")
}

// DefaultPath returns the path of the config file used when none is given.
func DefaultPath() string {
	return filepath.Join(GetXDGConfigHome(), "osdd-trello", "config.yaml")
}

// Load reads the config file at path and applies environment overrides.
// A missing file is not an error: the config is then built from the
// environment alone. Files ending in .toml are decoded as TOML, anything else
// as YAML.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := &Config{}
	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Debug("Config file not found, using environment only", "path", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	default:
		if err := decode(path, content, cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func decode(path string, content []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(content), cfg); err != nil {
			return fmt.Errorf("failed to parse TOML config %s: %w", path, err)
		}
		return nil
	}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		env string
		dst *string
	}{
		{EnvKey, &c.Key},
		{EnvToken, &c.Token},
		{EnvBoardID, &c.BoardID},
		{EnvIssueKeyField, &c.IssueKeyField},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.dst = v
		}
	}
}

// Validate reports every missing setting.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Key) == "" {
		errs = append(errs, fmt.Errorf("trello API key is not set (key or %s)", EnvKey))
	}
	if strings.TrimSpace(c.Token) == "" {
		errs = append(errs, fmt.Errorf("trello API token is not set (token or %s)", EnvToken))
	}
	if strings.TrimSpace(c.BoardID) == "" {
		errs = append(errs, fmt.Errorf("board id is not set (board_id or %s)", EnvBoardID))
	}
	if strings.TrimSpace(c.IssueKeyField) == "" {
		errs = append(errs, fmt.Errorf("issue key field is not set (issue_key_field or %s)", EnvIssueKeyField))
	}
	return errors.Join(errs...)
}

// Session returns the session settings for this config.
func (c *Config) Session() trello.Config {
	return trello.Config{
		Key:           c.Key,
		Token:         c.Token,
		BoardID:       c.BoardID,
		IssueKeyField: c.IssueKeyField,
	}
}

// WriteTemplate writes a config file with empty values to path. It refuses to
// overwrite an existing file.
func WriteTemplate(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.NewEncoder(f).Encode(Config{}); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return nil
	}
	enc := yaml.NewEncoder(f)
	defer func() { _ = enc.Close() }()
	if err := enc.Encode(Config{}); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

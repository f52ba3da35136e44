package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".osmsandbox"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the YAML configuration file format. Every field is optional;
// unset fields keep their defaults.
//
// The production and sandbox API endpoints deliberately have no place in
// this file. See the package documentation.
type File struct {
	// OverpassURL overrides the Overpass API instance.
	OverpassURL string `yaml:"overpass_url"`

	// Timeout overrides the per-request timeout, e.g. "120s".
	Timeout time.Duration `yaml:"timeout"`

	// UserAgent overrides the HTTP User-Agent header.
	UserAgent string `yaml:"user_agent"`

	// ChangesetComment overrides the changeset comment tag.
	ChangesetComment string `yaml:"changeset_comment"`
}

// LoadConfigFile loads settings from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	return &cf, nil
}

// Apply copies the non-zero file settings onto the config.
// CLI flags are applied after the file, so flags win over the file.
func (f *File) Apply(cfg *Config) {
	if f.OverpassURL != "" {
		cfg.OverpassBaseURL = f.OverpassURL
	}
	if f.Timeout > 0 {
		cfg.Timeout = f.Timeout
	}
	if f.UserAgent != "" {
		cfg.UserAgent = f.UserAgent
	}
	if f.ChangesetComment != "" {
		cfg.ChangesetComment = f.ChangesetComment
	}
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .osmsandbox in the current directory
// 3. Look for config.yaml in the XDG config directory
// 4. Look for .osmsandbox in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if
// not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	// Check current directory
	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	// Check XDG config directory
	xdgConfig := filepath.Join(XDGConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	// Check home directory
	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all gitbatch settings. It is loaded once at startup and
// saved back at exit so session state (language, last root) survives
// between invocations.
type Config struct {
	// Parallelism is the maximum number of repositories operated on
	// concurrently during a batch run
	Parallelism int `yaml:"parallelism"`

	// Timeout bounds each git invocation, as a Go duration string
	Timeout string `yaml:"timeout"`

	// ScanDepth is how many directory levels below the root to search
	// for repositories
	ScanDepth int `yaml:"scan_depth"`

	// Remote is the remote passed to pull/push ("" lets git decide)
	Remote string `yaml:"remote,omitempty"`

	// Branch is the branch passed to pull/push (requires Remote)
	Branch string `yaml:"branch,omitempty"`

	// Language selects the message catalog (en, zh-Hans, zh-Hant, de)
	Language string `yaml:"language"`

	// LastRoot is the most recently scanned root directory, offered as
	// the default when no root argument is given
	LastRoot string `yaml:"last_root,omitempty"`

	// History contains run history storage settings
	History HistoryConfig `yaml:"history"`

	// MaxOutputBytes caps captured stdout/stderr per git invocation
	MaxOutputBytes int `yaml:"max_output_bytes"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	// Path is the SQLite database file. Relative paths are resolved
	// from the state directory.
	Path string `yaml:"path"`
}

// TimeoutDuration parses the per-invocation timeout as a Duration.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	return time.ParseDuration(c.Timeout)
}

// HistoryPath returns the absolute path of the history database.
func (c *Config) HistoryPath() (string, error) {
	if filepath.IsAbs(c.History.Path) {
		return c.History.Path, nil
	}
	dir, err := EnsureStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.History.Path), nil
}

// DefaultPath returns the user-wide config file location,
// ~/.gitbatch/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".gitbatch", "config.yaml"), nil
}

// EnsureStateDir creates ~/.gitbatch if needed and returns its path.
func EnsureStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	dir := filepath.Join(home, ".gitbatch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// Load reads configuration from the given path. It applies defaults,
// then file values, then environment overrides, then validates.
//
// A missing config file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Save writes the config back to the given path, creating parent
// directories as needed. The write goes through a temp file and rename
// so a crash never leaves a half-written config.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Package config loads and validates the optional .warden YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for execution configuration.
const (
	DefaultTimeout   = time.Minute
	DefaultMaxOutput = 1 << 20 // 1 MB
	DefaultShell     = "/bin/sh"
)

// Config holds the parsed .warden configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int          `yaml:"version"`
	RawTimeout   string       `yaml:"timeout"`    // e.g. "90s", "2m"
	RawMaxOutput int          `yaml:"max_output"` // bytes
	RawShell     string       `yaml:"shell"`      // command interpreter
	Policy       PolicyConfig `yaml:"policy"`
	Redact       []string     `yaml:"redact"` // extra sensitivity markers
}

// PolicyConfig extends the built-in deny tables. Entries are additive;
// built-ins cannot be removed through configuration.
type PolicyConfig struct {
	BannedCommands  []string        `yaml:"banned_commands"`
	NetworkCommands []string        `yaml:"network_commands"`
	Patterns        []PatternConfig `yaml:"patterns"`
}

// PatternConfig is a user-supplied dangerous pattern.
type PatternConfig struct {
	Name  string `yaml:"name"`
	Regex string `yaml:"regex"`
}

// Timeout returns the configured default timeout or the default.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// MaxOutputBytes returns the configured output cap or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// Shell returns the configured command interpreter or the default.
func (c *Config) Shell() string {
	if c.RawShell != "" {
		return c.RawShell
	}
	return DefaultShell
}

// LoadResult holds the parsed config and the directory it was found in.
type LoadResult struct {
	Config *Config
	Root   string // directory containing .warden; falls back to workspace
}

// Load reads the .warden file, walking upward from workspace so the
// server picks up the same file regardless of which subdirectory it is
// started from. A missing file yields a default Config.
func Load(workspace string) (*LoadResult, error) {
	root, path, err := findConfig(workspace)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return &LoadResult{Config: &Config{}, Root: workspace}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading .warden: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing .warden: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid .warden: %w", err)
	}
	return &LoadResult{Config: cfg, Root: root}, nil
}

// validate rejects config values that would fail later, so a bad policy
// extension surfaces at startup rather than on the first denied call.
func validate(cfg *Config) error {
	if cfg.RawTimeout != "" {
		if _, err := time.ParseDuration(cfg.RawTimeout); err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
	}
	for _, p := range cfg.Policy.Patterns {
		if p.Name == "" {
			return fmt.Errorf("policy pattern %q: name is required", p.Regex)
		}
		if _, err := regexp.Compile(p.Regex); err != nil {
			return fmt.Errorf("policy pattern %q: %w", p.Name, err)
		}
	}
	return nil
}

// findConfig walks upward from dir looking for a .warden file.
func findConfig(dir string) (root, path string, err error) {
	dir, err = filepath.Abs(dir)
	if err != nil {
		return "", "", err
	}
	for {
		candidate := filepath.Join(dir, ".warden")
		if _, statErr := os.Stat(candidate); statErr == nil {
			return dir, candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", "", nil
		}
		dir = parent
	}
}

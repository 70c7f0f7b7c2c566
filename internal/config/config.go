package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BadgerOps/pipsync/internal/mirror"
	"github.com/BadgerOps/pipsync/internal/safety"
	"gopkg.in/yaml.v3"
)

// DefaultIndexURL is the public, non-mirrored package index.
const DefaultIndexURL = mirror.DefaultIndexURL

// Config is the top-level configuration
type Config struct {
	Mirrors      []string      `yaml:"mirrors"`
	DefaultIndex string        `yaml:"default_index"`
	Probe        ProbeConfig   `yaml:"probe"`
	Install      InstallConfig `yaml:"install"`
	History      HistoryConfig `yaml:"history"`
}

// ProbeConfig holds mirror reachability check settings
type ProbeConfig struct {
	Path    string        `yaml:"path"`
	Timeout time.Duration `yaml:"timeout"`
}

// InstallConfig holds package manager invocation settings
type InstallConfig struct {
	Requirements string `yaml:"requirements"`
	Interpreter  string `yaml:"interpreter"`
	Upgrade      bool   `yaml:"upgrade"`
}

// HistoryConfig holds run history settings
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// DefaultMirrors lists the candidate mirrors in priority order.
var DefaultMirrors = []string{
	"https://pypi.tuna.tsinghua.edu.cn/simple",
	"https://mirrors.aliyun.com/pypi/simple/",
	"https://pypi.mirrors.ustc.edu.cn/simple/",
	"https://mirrors.cloud.tencent.com/pypi/simple",
	"https://repo.huaweicloud.com/repository/pypi/simple",
	"https://pypi.douban.com/simple/",
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	mirrors := make([]string, len(DefaultMirrors))
	copy(mirrors, DefaultMirrors)

	return &Config{
		Mirrors:      mirrors,
		DefaultIndex: DefaultIndexURL,
		Probe: ProbeConfig{
			Path:    mirror.DefaultProbePath,
			Timeout: mirror.DefaultProbeTimeout,
		},
		Install: InstallConfig{
			Requirements: "requirements-pure.txt",
			Interpreter:  "python3",
			Upgrade:      true,
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  "",
		},
	}
}

// Load reads a config file from the given path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() (string, error) {
	searchPaths := []string{
		"pipsync.yaml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(home, ".config", "pipsync", "pipsync.yaml"),
		)
	}
	searchPaths = append(searchPaths, "/etc/pipsync/pipsync.yaml")

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", searchPaths)
}

// Validate checks the config for values that would make a run impossible.
// An empty mirror list is allowed: selection then falls back to the default index.
func (c *Config) Validate() error {
	if _, err := safety.ValidateHTTPURL(c.DefaultIndex); err != nil {
		return fmt.Errorf("default_index: %w", err)
	}
	if c.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be positive, got %s", c.Probe.Timeout)
	}
	if !strings.HasPrefix(c.Probe.Path, "/") {
		return fmt.Errorf("probe.path must start with '/', got %q", c.Probe.Path)
	}
	if strings.TrimSpace(c.Install.Interpreter) == "" {
		return fmt.Errorf("install.interpreter is required")
	}
	if strings.TrimSpace(c.Install.Requirements) == "" {
		return fmt.Errorf("install.requirements is required")
	}
	return nil
}

// HistoryDBPath returns the configured history database path, or the
// per-user default when none is set.
func (c *Config) HistoryDBPath() string {
	if c.History.DBPath != "" {
		return c.History.DBPath
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "pipsync", "history.db")
	}
	return filepath.Join(".pipsync", "history.db")
}

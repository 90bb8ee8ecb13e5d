package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/footprint/internal/scorer"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is the default configuration file name.
	DefaultConfigFile = ".footprint"

	// XDGConfigFile is the configuration file name inside XDGConfigDir.
	XDGConfigFile = "config.yaml"
)

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the structure of the .footprint configuration file.
// Every field is optional.
type File struct {
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	CheckTimeout time.Duration `yaml:"check_timeout,omitempty"`

	UserAgent string            `yaml:"user_agent,omitempty"`
	Headers   map[string]string `yaml:"headers,omitempty"`

	GitHubAPI   string `yaml:"github_api,omitempty"`
	GitHubToken string `yaml:"github_token,omitempty"`
	GravatarURL string `yaml:"gravatar_url,omitempty"`

	Simulation        string `yaml:"simulation,omitempty"`
	SimulationDivisor int    `yaml:"simulation_divisor,omitempty"`
	FailurePolicy     string `yaml:"failure_policy,omitempty"`
	Seed              uint64 `yaml:"seed,omitempty"`

	Proxy string `yaml:"proxy,omitempty"`
	DBDir string `yaml:"db_dir,omitempty"`

	// Weights overrides individual entries of the scoring table.
	// Entries that are not mentioned keep their defaults.
	Weights scorer.Weights `yaml:"weights,omitempty"`
}

// LoadConfigFile loads a configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	cf := File{Weights: scorer.DefaultWeights()}
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if cf.Headers == nil {
		cf.Headers = make(map[string]string)
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .footprint in the current directory
// 3. Look for .footprint in the user's home directory
// 4. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}
	return firstExisting(configCandidates())
}

// configCandidates returns the implicit configuration file locations.
func configCandidates() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, DefaultConfigFile))
	}
	return append(paths, filepath.Join(XDGConfigDir(), XDGConfigFile))
}

func firstExisting(paths []string) string {
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

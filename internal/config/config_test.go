package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/footprint/internal/aggregator"
	"github.com/nao1215/footprint/internal/checker"
	"github.com/nao1215/footprint/internal/model"
	"github.com/nao1215/footprint/internal/scorer"
)

// TestNewConfig verifies the default values of NewConfig.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout to be 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("default CheckTimeout is 5 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.CheckTimeout != 5*time.Second {
			t.Errorf("expected CheckTimeout to be 5s, got %v", cfg.CheckTimeout)
		}
	})

	t.Run("default simulation mode is always", func(t *testing.T) {
		t.Parallel()
		if cfg.Simulation != checker.SimulationAlways {
			t.Errorf("got %q", cfg.Simulation)
		}
	})

	t.Run("default failure policy is error", func(t *testing.T) {
		t.Parallel()
		if cfg.FailurePolicy != aggregator.FailureAsError {
			t.Errorf("got %q", cfg.FailurePolicy)
		}
	})

	t.Run("default weights", func(t *testing.T) {
		t.Parallel()
		if cfg.Weights != scorer.DefaultWeights() {
			t.Error("expected default weights")
		}
	})

	t.Run("history enabled", func(t *testing.T) {
		t.Parallel()
		if !cfg.SaveToDB || cfg.DBDir == "" {
			t.Error("expected history to be enabled with an XDG directory")
		}
	})
}

// TestConfigValidate tests each validation rule in isolation.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.Target = model.AnalysisInput{Username: "octocat"}
		return cfg
	}

	testCases := []struct {
		name     string
		mutate   func(*Config)
		expected error
	}{
		{"valid", func(*Config) {}, nil},
		{"no identifier", func(c *Config) { c.Target = model.AnalysisInput{CountryCode: "+91"} }, ErrNoIdentifier},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative check timeout", func(c *Config) { c.CheckTimeout = -time.Second }, ErrInvalidCheckTimeout},
		{"json and markdown", func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, ErrConflictingReportFormats},
		{"authorization header", func(c *Config) { c.Headers["authorization"] = "Bearer ghp_x" }, ErrCredentialHeader},
		{"cookie header", func(c *Config) { c.Headers["Cookie"] = "session=1" }, ErrCredentialHeader},
		{"harmless header", func(c *Config) { c.Headers["Accept-Language"] = "en" }, nil},
		{"proxy and tor", func(c *Config) { c.UseTor, c.ProxyAddress = true, "127.0.0.1:9050" }, ErrConflictingTransports},
		{"tor without startup timeout", func(c *Config) { c.UseTor, c.TorStartupTimeout = true, 0 }, ErrInvalidTorStartupTimeout},
		{"unknown simulation", func(c *Config) { c.Simulation = "sometimes" }, ErrInvalidSimulationMode},
		{"zero divisor", func(c *Config) { c.SimulationDivisor = 0 }, ErrInvalidSimulationDivisor},
		{"unknown failure policy", func(c *Config) { c.FailurePolicy = "ignore" }, ErrInvalidFailurePolicy},
		{"negative weight", func(c *Config) { c.Weights.EmailExact = -1 }, scorer.ErrNegativeWeight},
		{"infinite weight", func(c *Config) { c.Weights.SimulatedPlatform = math.Inf(1) }, scorer.ErrNonFiniteWeight},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.expected == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.expected) {
				t.Errorf("expected %v, got %v", tc.expected, err)
			}
		})
	}
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.footprint")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()
		configPath := filepath.Join(t.TempDir(), ".footprint")

		content := `timeout: 10s
check_timeout: 2s
user_agent: "custom-agent"
headers:
  X-Request-Source: "footprint"
github_api: "http://127.0.0.1:8080"
github_token: "ghp_token"
simulation: deterministic
simulation_divisor: 3
failure_policy: missing
seed: 42
weights:
  username_exact: 30
  breach_presence: 0
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		f, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if f.Timeout != 10*time.Second || f.CheckTimeout != 2*time.Second {
			t.Errorf("unexpected timeouts: %v, %v", f.Timeout, f.CheckTimeout)
		}
		if f.Headers["X-Request-Source"] != "footprint" {
			t.Error("expected X-Request-Source header")
		}
		if f.Weights.UsernameExact != 30 {
			t.Errorf("expected overridden username_exact, got %v", f.Weights.UsernameExact)
		}
		if f.Weights.BreachPresence != 0 {
			t.Errorf("expected breach_presence 0, got %v", f.Weights.BreachPresence)
		}
		if f.Weights.EmailExact != 40 {
			t.Errorf("expected untouched email_exact to keep default, got %v", f.Weights.EmailExact)
		}

		cfg := NewConfig()
		cfg.ApplyFile(f)
		if cfg.Simulation != checker.SimulationDeterministic || cfg.SimulationDivisor != 3 {
			t.Errorf("unexpected simulation settings: %q/%d", cfg.Simulation, cfg.SimulationDivisor)
		}
		if cfg.FailurePolicy != aggregator.FailureAsMissing {
			t.Errorf("got failure policy %q", cfg.FailurePolicy)
		}
		if cfg.Seed != 42 || cfg.UserAgent != "custom-agent" || cfg.GitHubAPI != "http://127.0.0.1:8080" || cfg.GitHubToken != "ghp_token" {
			t.Errorf("unexpected config: %+v", cfg)
		}
		if cfg.GravatarURL != checker.DefaultGravatarURL {
			t.Errorf("expected default Gravatar URL, got %q", cfg.GravatarURL)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()
		configPath := filepath.Join(t.TempDir(), ".footprint")

		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("empty file keeps defaults", func(t *testing.T) {
		t.Parallel()
		configPath := filepath.Join(t.TempDir(), ".footprint")

		if err := os.WriteFile(configPath, []byte("# nothing\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		f, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Weights != scorer.DefaultWeights() {
			t.Error("expected default weights")
		}
		if f.Headers == nil {
			t.Error("expected Headers map to be initialized")
		}
	})
}

// TestLoadConfigFileNonFiniteWeight ensures YAML infinities are rejected on validation.
func TestLoadConfigFileNonFiniteWeight(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), ".footprint")
	if err := os.WriteFile(configPath, []byte("weights:\n  simulated_platform: .inf\n"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	f, err := LoadConfigFile(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := NewConfig()
	cfg.Target = model.AnalysisInput{Username: "octocat"}
	cfg.ApplyFile(f)

	if err := cfg.Validate(); !errors.Is(err, scorer.ErrNonFiniteWeight) {
		t.Errorf("expected ErrNonFiniteWeight, got %v", err)
	}
}

// TestApplyFileFailurePolicy tests failure policy parsing from the file.
func TestApplyFileFailurePolicy(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		value    string
		expected aggregator.FailurePolicy
		wantErr  error
	}{
		{"upper case", "ERROR", aggregator.FailureAsError, nil},
		{"padded", " missing ", aggregator.FailureAsMissing, nil},
		{"unknown", "ignore", aggregator.FailurePolicy("ignore"), ErrInvalidFailurePolicy},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewConfig()
			cfg.Target = model.AnalysisInput{Username: "octocat"}
			cfg.ApplyFile(&File{FailurePolicy: tc.value, Weights: scorer.DefaultWeights()})
			if cfg.FailurePolicy != tc.expected {
				t.Errorf("got %q, expected %q", cfg.FailurePolicy, tc.expected)
			}
			if err := cfg.Validate(); !errors.Is(err, tc.wantErr) {
				t.Errorf("got %v, expected %v", err, tc.wantErr)
			}
		})
	}
}

// TestApplyFileNil ensures a nil file is ignored.
func TestApplyFileNil(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.ApplyFile(nil)
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %v", cfg.Timeout)
	}
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()
		configPath := filepath.Join(t.TempDir(), "custom.yaml")

		if err := os.WriteFile(configPath, []byte("seed: 1"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("first existing candidate wins", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		missing := filepath.Join(dir, "missing", DefaultConfigFile)
		xdgPath := filepath.Join(dir, XDGConfigFile)
		if err := os.WriteFile(xdgPath, []byte("seed: 1"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if got := firstExisting([]string{missing, dir, xdgPath}); got != xdgPath {
			t.Errorf("expected %q, got %q", xdgPath, got)
		}
		if got := firstExisting([]string{missing}); got != "" {
			t.Errorf("expected no match, got %q", got)
		}
	})

	t.Run("XDG config file is the last candidate", func(t *testing.T) {
		t.Parallel()
		candidates := configCandidates()
		expected := filepath.Join(XDGConfigDir(), XDGConfigFile)
		if len(candidates) == 0 || candidates[len(candidates)-1] != expected {
			t.Errorf("expected %q last, got %v", expected, candidates)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()
		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if filepath.Base(XDGDataDir()) != AppName {
		t.Errorf("unexpected data dir %q", XDGDataDir())
	}
	if filepath.Base(XDGConfigDir()) != AppName {
		t.Errorf("unexpected config dir %q", XDGConfigDir())
	}
}

// TestCheckerOptions ensures the options build working checkers.
func TestCheckerOptions(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	opts := cfg.CheckerOptions()
	if len(opts) == 0 {
		t.Fatal("expected options")
	}
	if c := checker.NewPhoneChecker(opts...); c.Name() != "phone" {
		t.Errorf("got %q", c.Name())
	}
}

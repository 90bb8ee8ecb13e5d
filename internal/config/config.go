package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/footprint/internal/aggregator"
	"github.com/nao1215/footprint/internal/checker"
	"github.com/nao1215/footprint/internal/model"
	"github.com/nao1215/footprint/internal/scorer"
	"github.com/nao1215/footprint/internal/transport"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "footprint"

	// DefaultTimeout bounds a single outbound HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultCheckTimeout is the time budget of one checker.
	DefaultCheckTimeout = aggregator.DefaultCheckTimeout

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultUserAgent identifies footprint in HTTP requests. The GitHub
	// API rejects requests without a User-Agent.
	DefaultUserAgent = "footprint/1.0 (+https://github.com/nao1215/footprint)"
)

// Config holds every option of a footprint run. It is populated from
// defaults, the configuration file and CLI flags, in that order.
type Config struct {
	// Target is the identity to analyze.
	Target model.AnalysisInput

	// Timeout bounds each outbound HTTP request.
	Timeout time.Duration

	// CheckTimeout bounds each checker as a whole.
	CheckTimeout time.Duration

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is an explicit configuration file path. When empty,
	// .footprint is searched in the current and home directories.
	ConfigFilePath string

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output.
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// ProxyAddress routes lookups through an external SOCKS5 proxy
	// ("host:port"). Empty means direct connections.
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and routes lookups through it.
	UseTor bool

	// TorStartupTimeout bounds the embedded Tor bootstrap.
	TorStartupTimeout time.Duration

	// DBDir is the directory of the run history database.
	DBDir string

	// SaveToDB stores completed runs in the history database.
	SaveToDB bool

	// UserAgent is sent with every outbound request.
	UserAgent string

	// Headers are extra headers sent with every outbound request, whatever
	// the host. They must not carry credentials.
	Headers map[string]string

	// GitHubToken is sent to the GitHub API only, for a higher rate limit.
	GitHubToken string

	// GitHubAPI and GravatarURL are the base URLs of the live lookups.
	GitHubAPI   string
	GravatarURL string

	// Simulation decides how simulated platforms report hits.
	Simulation checker.SimulationMode

	// SimulationDivisor is the modulus of the deterministic simulation.
	SimulationDivisor int

	// FailurePolicy decides how failed source checks are rendered.
	FailurePolicy aggregator.FailurePolicy

	// Seed seeds the random source. Zero picks a time-based seed.
	Seed uint64

	// Weights is the scoring table.
	Weights scorer.Weights
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:           DefaultTimeout,
		CheckTimeout:      DefaultCheckTimeout,
		TorStartupTimeout: DefaultTorStartupTimeout,
		DBDir:             XDGDataDir(),
		SaveToDB:          true,
		UserAgent:         DefaultUserAgent,
		Headers:           make(map[string]string),
		GitHubAPI:         checker.DefaultGitHubAPI,
		GravatarURL:       checker.DefaultGravatarURL,
		Simulation:        checker.SimulationAlways,
		SimulationDivisor: checker.DefaultSimulationDivisor,
		FailurePolicy:     aggregator.FailureAsError,
		Weights:           scorer.DefaultWeights(),
	}
}

// XDGDataDir returns the XDG data directory for footprint.
// On Linux: ~/.local/share/footprint
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for footprint.
// On Linux: ~/.config/footprint
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Target.IsEmpty() {
		return ErrNoIdentifier
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.CheckTimeout <= 0 {
		return ErrInvalidCheckTimeout
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if name := credentialHeader(c.Headers); name != "" {
		return fmt.Errorf("%w: %s", ErrCredentialHeader, name)
	}
	if c.UseTor && c.ProxyAddress != "" {
		return ErrConflictingTransports
	}
	if c.UseTor && c.TorStartupTimeout <= 0 {
		return ErrInvalidTorStartupTimeout
	}
	switch c.Simulation {
	case checker.SimulationAlways, checker.SimulationDeterministic:
	default:
		return ErrInvalidSimulationMode
	}
	if c.SimulationDivisor <= 0 {
		return ErrInvalidSimulationDivisor
	}
	switch c.FailurePolicy {
	case aggregator.FailureAsError, aggregator.FailureAsMissing:
	default:
		return ErrInvalidFailurePolicy
	}
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("invalid weights: %w", err)
	}
	return nil
}

// ApplyFile copies the values set in a configuration file onto c.
// Zero values in the file leave c unchanged, except for weights, which the
// loader pre-populates with defaults.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	if f.Timeout > 0 {
		c.Timeout = f.Timeout
	}
	if f.CheckTimeout > 0 {
		c.CheckTimeout = f.CheckTimeout
	}
	if f.UserAgent != "" {
		c.UserAgent = f.UserAgent
	}
	for k, v := range f.Headers {
		c.Headers[k] = v
	}
	if f.GitHubAPI != "" {
		c.GitHubAPI = f.GitHubAPI
	}
	if f.GitHubToken != "" {
		c.GitHubToken = f.GitHubToken
	}
	if f.GravatarURL != "" {
		c.GravatarURL = f.GravatarURL
	}
	if f.Simulation != "" {
		c.Simulation = checker.SimulationMode(f.Simulation)
	}
	if f.SimulationDivisor != 0 {
		c.SimulationDivisor = f.SimulationDivisor
	}
	if f.FailurePolicy != "" {
		// An unknown value is kept so that Validate reports it.
		policy, err := aggregator.ParseFailurePolicy(f.FailurePolicy)
		if err != nil {
			policy = aggregator.FailurePolicy(f.FailurePolicy)
		}
		c.FailurePolicy = policy
	}
	if f.Seed != 0 {
		c.Seed = f.Seed
	}
	if f.Proxy != "" {
		c.ProxyAddress = f.Proxy
	}
	if f.DBDir != "" {
		c.DBDir = f.DBDir
	}
	c.Weights = f.Weights
}

// CheckerOptions returns the checker options derived from c.
// The HTTP client is supplied separately because building it may start
// a Tor daemon.
func (c *Config) CheckerOptions() []checker.Option {
	return []checker.Option{
		checker.WithWeights(c.Weights),
		checker.WithUserAgent(c.UserAgent),
		checker.WithGitHubAPI(c.GitHubAPI),
		checker.WithGitHubToken(c.GitHubToken),
		checker.WithGravatarURL(c.GravatarURL),
		checker.WithSimulationMode(c.Simulation),
		checker.WithSimulationDivisor(c.SimulationDivisor),
		checker.WithRandomSource(checker.NewRandomSource(c.Seed)),
	}
}

// credentialHeader returns the first header, in sorted order, that would
// send a credential to every host.
func credentialHeader(headers map[string]string) string {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if transport.IsCredentialHeader(name) {
			return name
		}
	}
	return ""
}

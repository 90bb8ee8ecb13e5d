package checker

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/footprint/internal/scorer"
)

// SimulationMode decides whether a simulated platform reports a hit.
type SimulationMode string

const (
	// SimulationAlways reports every simulated platform as a hit.
	SimulationAlways SimulationMode = "always"

	// SimulationDeterministic derives the decision from the username and
	// platform name, so the same username always yields the same roster.
	SimulationDeterministic SimulationMode = "deterministic"
)

// Default endpoints and settings.
const (
	DefaultGitHubAPI         = "https://api.github.com"
	DefaultGravatarURL       = "https://www.gravatar.com"
	DefaultUserAgent         = "footprint"
	DefaultSimulationDivisor = 2
)

// Option configures a checker.
// Options that do not apply to a checker are ignored by it.
type Option func(*settings)

type settings struct {
	client            *http.Client
	random            RandomSource
	clock             func() time.Time
	weights           scorer.Weights
	logger            *slog.Logger
	userAgent         string
	githubAPI         string
	githubToken       string
	gravatarURL       string
	simulation        SimulationMode
	simulationDivisor int
}

func newSettings(opts []Option) settings {
	s := settings{
		client:            &http.Client{},
		clock:             time.Now,
		weights:           scorer.DefaultWeights(),
		logger:            slog.Default(),
		userAgent:         DefaultUserAgent,
		githubAPI:         DefaultGitHubAPI,
		gravatarURL:       DefaultGravatarURL,
		simulation:        SimulationAlways,
		simulationDivisor: DefaultSimulationDivisor,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.random == nil {
		s.random = NewRandomSource(0)
	}
	return s
}

// WithHTTPClient sets the client used for live lookups.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) {
		if client != nil {
			s.client = client
		}
	}
}

// WithRandomSource sets the random source.
func WithRandomSource(r RandomSource) Option {
	return func(s *settings) {
		s.random = r
	}
}

// WithClock sets the clock used for timestamps and probe durations.
func WithClock(clock func() time.Time) Option {
	return func(s *settings) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithWeights sets the scoring table.
func WithWeights(w scorer.Weights) Option {
	return func(s *settings) {
		s.weights = w
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithUserAgent sets the User-Agent header of live lookups.
func WithUserAgent(ua string) Option {
	return func(s *settings) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithGitHubAPI sets the GitHub API base URL.
func WithGitHubAPI(baseURL string) Option {
	return func(s *settings) {
		if baseURL != "" {
			s.githubAPI = baseURL
		}
	}
}

// WithGitHubToken sets the token sent as a bearer credential to the GitHub
// API only. Other lookups never see it.
func WithGitHubToken(token string) Option {
	return func(s *settings) {
		s.githubToken = token
	}
}

// WithGravatarURL sets the Gravatar base URL.
func WithGravatarURL(baseURL string) Option {
	return func(s *settings) {
		if baseURL != "" {
			s.gravatarURL = baseURL
		}
	}
}

// WithSimulationMode sets how simulated platforms decide on a hit.
func WithSimulationMode(mode SimulationMode) Option {
	return func(s *settings) {
		if mode != "" {
			s.simulation = mode
		}
	}
}

// WithSimulationDivisor sets the modulus of the deterministic mode.
func WithSimulationDivisor(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.simulationDivisor = n
		}
	}
}

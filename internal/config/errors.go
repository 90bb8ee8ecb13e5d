package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoIdentifier is returned when none of username, email, full name
	// or phone number was supplied.
	ErrNoIdentifier = errors.New("no identifier specified: provide at least one of --username, --email, --name or --phone")

	// ErrInvalidTimeout is returned when the HTTP timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidCheckTimeout is returned when the per-checker timeout is not positive.
	ErrInvalidCheckTimeout = errors.New("invalid check timeout: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrConflictingTransports is returned when both an external proxy and
	// the embedded Tor daemon are requested.
	ErrConflictingTransports = errors.New("conflicting transports: --proxy and --tor cannot be used together")

	// ErrCredentialHeader is returned when the extra headers, which go to
	// every host, include a credential. Use github_token instead.
	ErrCredentialHeader = errors.New("credential headers are sent to every host: use github_token for the GitHub API")

	// ErrInvalidSimulationMode is returned for an unknown simulation mode.
	ErrInvalidSimulationMode = errors.New("invalid simulation mode: must be \"always\" or \"deterministic\"")

	// ErrInvalidSimulationDivisor is returned when the deterministic
	// simulation divisor is not positive.
	ErrInvalidSimulationDivisor = errors.New("invalid simulation divisor: must be positive")

	// ErrInvalidFailurePolicy is returned for an unknown failure policy.
	ErrInvalidFailurePolicy = errors.New("invalid failure policy: must be \"error\" or \"missing\"")

	// ErrInvalidTorStartupTimeout is returned when --tor is set with a
	// non-positive startup timeout.
	ErrInvalidTorStartupTimeout = errors.New("invalid Tor startup timeout: must be positive")
)

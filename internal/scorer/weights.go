package scorer

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNegativeWeight is returned when a weight in the table is negative.
	ErrNegativeWeight = errors.New("signal weight must not be negative")

	// ErrNonFiniteWeight is returned when a weight is NaN or infinite.
	ErrNonFiniteWeight = errors.New("signal weight must be a finite number")
)

// Weights is the central scoring table. Checkers read every weight they
// assign from here instead of inlining literals.
//
// The yaml tags allow individual entries to be overridden from the
// configuration file; entries that are not mentioned keep their defaults.
type Weights struct {
	// EmailExact is assigned when an email address is confirmed verbatim.
	EmailExact float64 `yaml:"email_exact"`

	// UsernameExact is assigned when a username exists exactly on a platform.
	UsernameExact float64 `yaml:"username_exact"`

	// UsernameSimilar is reserved for near-miss username matches.
	UsernameSimilar float64 `yaml:"username_similar"`

	// PhoneMatch is a general phone-number match.
	PhoneMatch float64 `yaml:"phone_match"`

	// BreachPresence is assigned when an identifier appears in breach data.
	BreachPresence float64 `yaml:"breach_presence"`

	// NameCorroboration is assigned when a profile exposes a display name.
	NameCorroboration float64 `yaml:"name_corroboration"`

	// PlatformConfirmation is assigned when an associated account is confirmed.
	PlatformConfirmation float64 `yaml:"platform_confirmation"`

	// DomainLiveness is assigned to every email domain that resolves.
	DomainLiveness float64 `yaml:"domain_liveness"`

	// DomainReputation is a bonus for high-reputation email providers.
	DomainReputation float64 `yaml:"domain_reputation"`

	// SimulatedPlatform is assigned to simulated platform hits.
	SimulatedPlatform float64 `yaml:"simulated_platform"`

	// PhoneWhatsApp through PhoneWebSearch express link validity of the
	// phone lookup vectors rather than identity confirmation.
	PhoneWhatsApp  float64 `yaml:"phone_whatsapp"`
	PhoneTelegram  float64 `yaml:"phone_telegram"`
	PhoneDirectory float64 `yaml:"phone_directory"`
	PhoneWebSearch float64 `yaml:"phone_web_search"`
}

// DefaultWeights returns the built-in scoring table.
func DefaultWeights() Weights {
	return Weights{
		EmailExact:           40,
		UsernameExact:        25,
		UsernameSimilar:      10,
		PhoneMatch:           20,
		BreachPresence:       20,
		NameCorroboration:    10,
		PlatformConfirmation: 5,
		DomainLiveness:       10,
		DomainReputation:     15,
		SimulatedPlatform:    85,
		PhoneWhatsApp:        90,
		PhoneTelegram:        85,
		PhoneDirectory:       95,
		PhoneWebSearch:       60,
	}
}

// Validate checks that every weight is finite and non-negative. The first
// offending entry, in table order, is reported.
func (w Weights) Validate() error {
	for _, e := range w.entries() {
		switch {
		case math.IsNaN(e.value) || math.IsInf(e.value, 0):
			return fmt.Errorf("%w: %s=%g", ErrNonFiniteWeight, e.name, e.value)
		case e.value < 0:
			return fmt.Errorf("%w: %s=%g", ErrNegativeWeight, e.name, e.value)
		}
	}
	return nil
}

type weightEntry struct {
	name  string
	value float64
}

// entries returns the table in declaration order, keyed by configuration name.
func (w Weights) entries() []weightEntry {
	return []weightEntry{
		{"email_exact", w.EmailExact},
		{"username_exact", w.UsernameExact},
		{"username_similar", w.UsernameSimilar},
		{"phone_match", w.PhoneMatch},
		{"breach_presence", w.BreachPresence},
		{"name_corroboration", w.NameCorroboration},
		{"platform_confirmation", w.PlatformConfirmation},
		{"domain_liveness", w.DomainLiveness},
		{"domain_reputation", w.DomainReputation},
		{"simulated_platform", w.SimulatedPlatform},
		{"phone_whatsapp", w.PhoneWhatsApp},
		{"phone_telegram", w.PhoneTelegram},
		{"phone_directory", w.PhoneDirectory},
		{"phone_web_search", w.PhoneWebSearch},
	}
}

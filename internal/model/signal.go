package model

import "math"

// SignalKind identifies which fragment of an identity a signal pertains to.
type SignalKind string

const (
	// KindEmail marks observations about an email address.
	KindEmail SignalKind = "email"
	// KindUsername marks observations about a username or handle.
	KindUsername SignalKind = "username"
	// KindPhone marks observations about a phone number.
	KindPhone SignalKind = "phone"
	// KindName marks observations about a real or display name.
	KindName SignalKind = "name"
	// KindPlatform marks observations about a platform or provider itself.
	KindPlatform SignalKind = "platform"
)

// Signal is one weighted observation about an identity fragment.
//
// Weight is on a 0-100 scale and contributes additively to the confidence
// of the PlatformResult that carries it. A single signal has no upper bound;
// capping happens when the signals of a platform are folded together.
type Signal struct {
	// Kind is the identity fragment this observation is about.
	Kind SignalKind `json:"kind"`

	// Value is the observed string. It may differ from the input,
	// e.g. a display name resolved from a profile.
	Value string `json:"value"`

	// Weight is the contribution to confidence. Never negative.
	Weight float64 `json:"weight"`

	// Description is a human-readable explanation of the observation.
	Description string `json:"description"`

	// Source names where the observation came from.
	Source string `json:"source"`

	// RawCapture is an opaque payload for display only.
	RawCapture map[string]any `json:"raw_capture,omitempty"`
}

// NewSignal creates a Signal. Negative and NaN weights become zero so that
// every Signal in the system satisfies the non-negative weight invariant.
func NewSignal(kind SignalKind, value string, weight float64, description, source string) Signal {
	if weight < 0 || math.IsNaN(weight) {
		weight = 0
	}
	return Signal{
		Kind:        kind,
		Value:       value,
		Weight:      weight,
		Description: description,
		Source:      source,
	}
}

// DistinctKinds returns the distinct kinds of the given signals in the
// order they were first seen.
func DistinctKinds(signals []Signal) []SignalKind {
	seen := make(map[SignalKind]bool, len(signals))
	kinds := make([]SignalKind, 0, len(signals))
	for _, s := range signals {
		if seen[s.Kind] {
			continue
		}
		seen[s.Kind] = true
		kinds = append(kinds, s.Kind)
	}
	return kinds
}

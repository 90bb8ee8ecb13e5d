package model

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// AnalysisInput holds the optional identity fragments supplied by the caller.
// Every field is optional. An all-empty input is valid at the core level and
// simply produces no results; rejecting it is up to the boundary.
type AnalysisInput struct {
	// Email is an email address such as "user@example.com".
	Email string `json:"email,omitempty"`

	// Username is a handle used across platforms.
	Username string `json:"username,omitempty"`

	// FullName is a real name. No source checker consumes it yet.
	FullName string `json:"full_name,omitempty"`

	// PhoneNumber is the plain national number, e.g. "9876543210".
	PhoneNumber string `json:"phone_number,omitempty"`

	// CountryCode is the dialling prefix, e.g. "+91".
	CountryCode string `json:"country_code,omitempty"`
}

// Normalize returns a copy with surrounding whitespace removed from every field.
func (in AnalysisInput) Normalize() AnalysisInput {
	return AnalysisInput{
		Email:       strings.TrimSpace(in.Email),
		Username:    strings.TrimSpace(in.Username),
		FullName:    strings.TrimSpace(in.FullName),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		CountryCode: strings.TrimSpace(in.CountryCode),
	}
}

// IsEmpty reports whether no identity fragment is present.
// The country code alone does not count as a fragment.
func (in AnalysisInput) IsEmpty() bool {
	n := in.Normalize()
	return n.Email == "" && n.Username == "" && n.FullName == "" && n.PhoneNumber == ""
}

// Label returns a short display label for the target.
func (in AnalysisInput) Label() string {
	n := in.Normalize()
	switch {
	case n.Username != "":
		return n.Username
	case n.Email != "":
		return strings.ToLower(n.Email)
	case n.PhoneNumber != "":
		return strings.TrimSpace(n.CountryCode + " " + n.PhoneNumber)
	default:
		return n.FullName
	}
}

// TargetKey returns a stable fingerprint of the normalized input.
// Two inputs that differ only in whitespace or email case share a key,
// which lets run history group repeated analyses of the same target.
func (in AnalysisInput) TargetKey() string {
	n := in.Normalize()
	parts := []string{
		"email=" + strings.ToLower(n.Email),
		"username=" + n.Username,
		"name=" + n.FullName,
		"phone=" + strings.TrimPrefix(n.CountryCode, "+") + n.PhoneNumber,
	}
	sum := sha3.Sum256([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(sum[:])
}

package checker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/footprint/internal/model"
)

// Failure reasons carried by OutcomeFailed.
var (
	// ErrRequestFailed is returned when the request could not be sent or
	// no response was received, including timeouts.
	ErrRequestFailed = errors.New("request failed")

	// ErrUnexpectedStatus is returned for a response status the checker
	// does not know how to interpret.
	ErrUnexpectedStatus = errors.New("unexpected response status")

	// ErrDecodeResponse is returned when a response body cannot be decoded.
	ErrDecodeResponse = errors.New("failed to decode response")
)

// Checker queries one family of sources for a single kind of identity fragment.
type Checker interface {
	// Name returns the checker name, e.g. "username".
	Name() string

	// Applicable reports whether the input carries the fragment this
	// checker consumes.
	Applicable(in model.AnalysisInput) bool

	// Check runs every source of the checker. Outcomes are returned in the
	// checker's fixed platform order.
	Check(ctx context.Context, in model.AnalysisInput) []Outcome
}

// OutcomeKind tags an Outcome.
type OutcomeKind int

const (
	// OutcomeFound means the platform yielded signals.
	OutcomeFound OutcomeKind = iota
	// OutcomeNotFound means the platform was queried and the identity is absent.
	OutcomeNotFound
	// OutcomeFailed means the platform could not be queried meaningfully.
	OutcomeFailed
)

// String returns the outcome kind name.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeFound:
		return "found"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of checking a single platform.
type Outcome struct {
	Kind     OutcomeKind
	Platform string

	// Status is the status to render for OutcomeFound.
	Status model.Status

	Signals     []model.Signal
	ProfileURL  string
	SearchQuery string
	RawCapture  map[string]any

	// ReportAbsence controls whether absence is rendered as a missing
	// placeholder or dropped.
	ReportAbsence bool

	// Reason is set for OutcomeFailed.
	Reason error

	// Probes lists the network calls made while checking this platform.
	Probes []Probe
}

// Probe records one outbound network call for the trace.
type Probe struct {
	Method     string
	Target     string
	StatusCode int
	Duration   time.Duration
	Err        error
}

// String formats the probe as a trace line.
func (p Probe) String() string {
	status := fmt.Sprintf("%d", p.StatusCode)
	if p.Err != nil {
		status = "ERR"
	}
	return fmt.Sprintf("[HTTP] %s %s... %s (%dms)", p.Method, p.Target, status, p.Duration.Milliseconds())
}

func found(platform string, status model.Status, signals []model.Signal) Outcome {
	return Outcome{
		Kind:     OutcomeFound,
		Platform: platform,
		Status:   status,
		Signals:  signals,
	}
}

func notFound(platform string, reportAbsence bool) Outcome {
	return Outcome{
		Kind:          OutcomeNotFound,
		Platform:      platform,
		ReportAbsence: reportAbsence,
	}
}

func failed(platform string, reason error, reportAbsence bool) Outcome {
	return Outcome{
		Kind:          OutcomeFailed,
		Platform:      platform,
		Reason:        reason,
		ReportAbsence: reportAbsence,
	}
}

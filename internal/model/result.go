package model

// Status describes the outcome of checking one platform.
type Status string

const (
	// StatusFound means a strong positive signal set was observed.
	StatusFound Status = "found"
	// StatusPotential means a weak or simulated positive.
	StatusPotential Status = "potential"
	// StatusMissing means the platform was checked and the identity is absent.
	StatusMissing Status = "missing"
	// StatusError means the check could not be executed meaningfully.
	StatusError Status = "error"
)

// RiskLevel is a coarse three-tier bucket derived from confidence.
type RiskLevel string

const (
	// RiskLow is used for confidence below 40.
	RiskLow RiskLevel = "LOW"
	// RiskMedium is used for confidence from 40 up to 69.
	RiskMedium RiskLevel = "MEDIUM"
	// RiskHigh is used for confidence of 70 and above.
	RiskHigh RiskLevel = "HIGH"
)

// PlatformResult is the scored finding for one platform.
//
// Confidence, RiskLevel and Summary are derived from Signals. Build values
// with scorer.NewPlatformResult rather than by hand, so that these fields can
// never disagree with the signals they summarize.
type PlatformResult struct {
	Platform    string         `json:"platform"`
	Status      Status         `json:"status"`
	Signals     []Signal       `json:"signals"`
	Confidence  int            `json:"confidence"`
	RiskLevel   RiskLevel      `json:"risk_level"`
	Summary     string         `json:"summary"`
	ProfileURL  string         `json:"profile_url,omitempty"`
	SearchQuery string         `json:"search_query,omitempty"`
	RawCapture  map[string]any `json:"raw_capture,omitempty"`

	// Note carries extra context for error results, such as the reason
	// a check failed.
	Note string `json:"note,omitempty"`
}

// HasSignals reports whether the result carries at least one signal.
func (r PlatformResult) HasSignals() bool {
	return len(r.Signals) > 0
}

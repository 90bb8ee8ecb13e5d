package model

import "time"

// Run is the output of one analysis: a confidence-sorted result list plus
// a human-readable trace. A Run is built fresh per invocation and is not
// modified after the aggregator returns it.
type Run struct {
	// Target is the normalized input that was analyzed.
	Target AnalysisInput `json:"target"`

	// TargetKey groups runs of the same target in the history database.
	TargetKey string `json:"target_key"`

	// DateScanned is when the run started.
	DateScanned time.Time `json:"date_scanned"`

	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration `json:"elapsed"`

	// Results is sorted by confidence descending. Ties keep emission order.
	Results []PlatformResult `json:"results"`

	// Trace lists progress lines for display. It has no semantic role.
	Trace []string `json:"trace"`

	// Error is set when orchestration itself failed. Results is empty then.
	Error string `json:"error,omitempty"`
}

// NewRun creates an empty Run for the given input.
func NewRun(target AnalysisInput, startedAt time.Time) *Run {
	n := target.Normalize()
	return &Run{
		Target:      n,
		TargetKey:   n.TargetKey(),
		DateScanned: startedAt,
		Results:     make([]PlatformResult, 0),
		Trace:       make([]string, 0),
	}
}

// HasResults reports whether the run produced any platform result.
func (r *Run) HasResults() bool {
	return len(r.Results) > 0
}

// RiskCounts returns how many results fall into each risk level.
func (r *Run) RiskCounts() map[RiskLevel]int {
	counts := map[RiskLevel]int{
		RiskHigh:   0,
		RiskMedium: 0,
		RiskLow:    0,
	}
	for _, res := range r.Results {
		counts[res.RiskLevel]++
	}
	return counts
}

// ResultsByStatus returns the results with the given status, in order.
func (r *Run) ResultsByStatus(status Status) []PlatformResult {
	out := make([]PlatformResult, 0)
	for _, res := range r.Results {
		if res.Status == status {
			out = append(out, res)
		}
	}
	return out
}

// Platforms returns the platform names of all results, in order.
func (r *Run) Platforms() []string {
	names := make([]string, len(r.Results))
	for i, res := range r.Results {
		names[i] = res.Platform
	}
	return names
}

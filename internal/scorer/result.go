package scorer

import "github.com/nao1215/footprint/internal/model"

// ResultOption configures optional, non-derived fields of a PlatformResult.
type ResultOption func(*model.PlatformResult)

// WithProfileURL sets a direct link to the profile or resource.
func WithProfileURL(url string) ResultOption {
	return func(r *model.PlatformResult) {
		r.ProfileURL = url
	}
}

// WithSearchQuery sets a search-engine dork for manual verification.
func WithSearchQuery(query string) ResultOption {
	return func(r *model.PlatformResult) {
		r.SearchQuery = query
	}
}

// WithRawCapture attaches a display-only payload.
func WithRawCapture(capture map[string]any) ResultOption {
	return func(r *model.PlatformResult) {
		r.RawCapture = capture
	}
}

// WithNote attaches a free-text note, typically the reason a check failed.
func WithNote(note string) ResultOption {
	return func(r *model.PlatformResult) {
		r.Note = note
	}
}

// NewPlatformResult is the only supported way to build a PlatformResult.
// Confidence, RiskLevel and Summary are always derived from signals; options
// can set links and display payloads but never the derived fields.
func NewPlatformResult(platform string, status model.Status, signals []model.Signal, opts ...ResultOption) model.PlatformResult {
	if signals == nil {
		signals = []model.Signal{}
	}

	r := model.PlatformResult{
		Platform: platform,
		Status:   status,
		Signals:  signals,
	}
	for _, opt := range opts {
		opt(&r)
	}

	confidence := CalculateConfidence(signals)
	r.Confidence = confidence
	r.RiskLevel = DetermineRisk(confidence)
	r.Summary = GenerateSummary(platform, signals, confidence)

	return r
}

package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/nao1215/footprint/internal/model"
)

// Confidence bounds and tier thresholds.
const (
	// MaxConfidence is the cap applied after summing signal weights.
	MaxConfidence = 100

	// HighRiskThreshold is the lowest confidence classified as HIGH.
	HighRiskThreshold = 70

	// MediumRiskThreshold is the lowest confidence classified as MEDIUM.
	MediumRiskThreshold = 40

	// positiveSummaryThreshold and probableSummaryThreshold select the
	// phrasing band of GenerateSummary.
	positiveSummaryThreshold = 80
	probableSummaryThreshold = 50
)

// CalculateConfidence sums the weights of the signals, rounds to the nearest
// integer and clamps the result to [0, 100]. An empty slice yields 0.
//
// Weights are non-negative by construction (see model.NewSignal), so the
// lower clamp only matters for hand-built signals. A NaN sum counts as 0.
func CalculateConfidence(signals []model.Signal) int {
	var total float64
	for _, s := range signals {
		total += s.Weight
	}

	// Clamp before converting: int() of a huge or infinite float is undefined.
	total = math.Round(total)
	switch {
	case math.IsNaN(total) || total <= 0:
		return 0
	case total >= MaxConfidence:
		return MaxConfidence
	}
	return int(total)
}

// DetermineRisk maps a confidence value to a risk tier.
// 70 and 40 belong to the higher tier.
func DetermineRisk(confidence int) model.RiskLevel {
	switch {
	case confidence >= HighRiskThreshold:
		return model.RiskHigh
	case confidence >= MediumRiskThreshold:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

// GenerateSummary returns a one-sentence summary for a platform finding.
// The phrasing depends on the confidence band; the two upper bands also
// mention the distinct signal kinds that were observed.
func GenerateSummary(platform string, signals []model.Signal, confidence int) string {
	kinds := joinKinds(model.DistinctKinds(signals))

	switch {
	case confidence >= positiveSummaryThreshold:
		return fmt.Sprintf(
			"Positive identification on %s. multiple high-fidelity signals (%s) confirm identity association.",
			platform, kinds)
	case confidence >= probableSummaryThreshold:
		return fmt.Sprintf("Probable match on %s. Correlation of %s suggests presence.", platform, kinds)
	default:
		return fmt.Sprintf("Weak signal detected on %s. Insufficient data for positive attribution.", platform)
	}
}

func joinKinds(kinds []model.SignalKind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}

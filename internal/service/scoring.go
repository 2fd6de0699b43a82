// internal/service/scoring.go
// Trust score aggregation
package service

import (
	"math"

	"snowrail/internal/checks"
	"snowrail/internal/models"
)

// ScoringAggregator combines completed check results into a single trust
// score, confidence, and risk classification. Checks that failed to run
// are excluded from aggregation, not treated as zero.
type ScoringAggregator struct {
	registry *checks.Registry
}

func NewScoringAggregator(registry *checks.Registry) *ScoringAggregator {
	return &ScoringAggregator{registry: registry}
}

// Aggregate computes the weighted trust score and mean confidence over the
// completed checks. An empty set fails closed: score 0, confidence 0,
// risk critical.
func (a *ScoringAggregator) Aggregate(completed []models.CheckResult) (trustScore int, confidence float64, risk models.RiskLevel) {
	if len(completed) == 0 {
		return 0, 0, models.RiskCritical
	}

	var weightedSum, weightTotal, confidenceSum float64
	for _, check := range completed {
		weight := a.registry.Weight(check.Type)
		weightedSum += float64(check.Score) * weight
		weightTotal += weight
		confidenceSum += check.Confidence
	}

	trustScore = int(math.Round(weightedSum / weightTotal))
	if trustScore < 0 {
		trustScore = 0
	}
	if trustScore > 100 {
		trustScore = 100
	}
	confidence = confidenceSum / float64(len(completed))

	return trustScore, confidence, classifyRisk(trustScore, completed)
}

// classifyRisk applies the classification ladder in priority order.
func classifyRisk(trustScore int, completed []models.CheckResult) models.RiskLevel {
	failedHigh := 0
	for _, check := range completed {
		if !check.Passed && check.Risk == models.RiskCritical {
			return models.RiskCritical
		}
		if !check.Passed && check.Risk == models.RiskHigh {
			failedHigh++
		}
	}

	switch {
	case trustScore < 20:
		return models.RiskCritical
	case failedHigh >= 2 || trustScore < 40:
		return models.RiskHigh
	case trustScore < 60:
		return models.RiskMedium
	case trustScore < 80:
		return models.RiskLow
	default:
		return models.RiskNone
	}
}

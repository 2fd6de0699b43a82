// internal/service/policy.go
// Trust decision rules
package service

import (
	"fmt"

	"snowrail/internal/models"
)

const (
	DefaultMinScore = 60
)

// DefaultMaxRisk is the default ceiling on acceptable risk.
const DefaultMaxRisk = models.RiskMedium

// Trust tiers mapping score floors to maximum safe transfer amounts,
// highest tier first. Currency-unit agnostic.
var trustTiers = []struct {
	minScore  int
	maxAmount float64
}{
	{90, 100000},
	{80, 50000},
	{70, 10000},
	{60, 5000},
}

const baseTierAmount = 1000

// DecisionPolicy maps a trust score and risk classification onto the
// final verdict, honoring caller-supplied thresholds.
type DecisionPolicy struct{}

func NewDecisionPolicy() *DecisionPolicy {
	return &DecisionPolicy{}
}

// Decide evaluates the policy rules in order. A critical risk always
// denies, regardless of score.
func (p *DecisionPolicy) Decide(trustScore int, risk models.RiskLevel, minScore int, maxRisk models.RiskLevel) models.Decision {
	if risk == models.RiskCritical {
		return models.DecisionDeny
	}

	severity := risk.Severity()
	maxSeverity := maxRisk.Severity()

	switch {
	case trustScore >= minScore && severity <= maxSeverity:
		return models.DecisionApprove
	case trustScore >= minScore-10 && severity <= maxSeverity+1:
		return models.DecisionConditional
	case severity <= maxSeverity:
		return models.DecisionReview
	default:
		return models.DecisionDeny
	}
}

// MaxAmount derives the maximum safe transfer amount from the trust tier,
// scaled by confidence, then clamped to the agent's remaining budget when
// supplied, else to twice the requested amount.
func (p *DecisionPolicy) MaxAmount(trustScore int, confidence float64, requested float64, agent *models.AgentContext) float64 {
	amount := float64(baseTierAmount)
	for _, tier := range trustTiers {
		if trustScore >= tier.minScore {
			amount = tier.maxAmount
			break
		}
	}

	amount *= confidence

	if agent != nil && agent.Budget != nil {
		if remaining := agent.Budget.Remaining(); remaining >= 0 && remaining < amount {
			amount = remaining
		}
	} else if requested > 0 && requested*2 < amount {
		amount = requested * 2
	}

	return amount
}

// Reasoning produces the human-readable justification strings returned to
// agent callers. maxAmount is the budget-clamped maximum for this caller.
func (p *DecisionPolicy) Reasoning(result *models.ValidationResult, requested, maxAmount float64) []string {
	reasons := []string{
		fmt.Sprintf("trust score %d/100 with %.0f%% confidence", result.TrustScore, result.Confidence*100),
		fmt.Sprintf("risk classified as %s", result.Risk),
	}

	switch result.Decision {
	case models.DecisionApprove:
		reasons = append(reasons, fmt.Sprintf("approved for amounts up to %.2f", maxAmount))
		if requested > maxAmount {
			reasons = append(reasons, fmt.Sprintf("requested amount %.2f exceeds the safe maximum", requested))
		}
	case models.DecisionConditional:
		reasons = append(reasons, "conditionally approved: thresholds met only within tolerance, human review recommended")
	case models.DecisionReview:
		reasons = append(reasons, "trust score below threshold, manual review required before paying")
	case models.DecisionDeny:
		reasons = append(reasons, "destination failed trust validation, do not pay")
		reasons = append(reasons, result.BlockedReasons...)
	}

	return reasons
}

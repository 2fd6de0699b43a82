// internal/models/validation.go
package models

import "time"

type RiskLevel string
type Decision string

const (
	RiskNone     RiskLevel = "none"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"

	DecisionApprove     Decision = "approve"
	DecisionDeny        Decision = "deny"
	DecisionReview      Decision = "review"
	DecisionConditional Decision = "conditional"
)

// Severity maps a risk level onto an ordinal scale for threshold comparison.
// Unknown values map to critical so a malformed level can never loosen policy.
func (r RiskLevel) Severity() int {
	switch r {
	case RiskNone:
		return 0
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	default:
		return 4
	}
}

// RiskFromSeverity is the inverse of Severity, clamped to the valid range.
func RiskFromSeverity(s int) RiskLevel {
	switch {
	case s <= 0:
		return RiskNone
	case s == 1:
		return RiskLow
	case s == 2:
		return RiskMedium
	case s == 3:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// CheckCategory groups checks by the trust dimension they score.
type CheckCategory string

const (
	CategoryIdentity       CheckCategory = "identity"
	CategoryInfrastructure CheckCategory = "infrastructure"
	CategoryCompliance     CheckCategory = "compliance"
)

type ValidationRequest struct {
	URL       string             `json:"url" binding:"required"`
	Amount    float64            `json:"amount,omitempty"`
	Currency  string             `json:"currency,omitempty"`
	Sender    string             `json:"sender,omitempty"`
	Recipient string             `json:"recipient,omitempty"`
	Options   *ValidationOptions `json:"options,omitempty"`
}

// ValidationOptions carries per-call overrides. Zero values mean
// "use the engine defaults".
type ValidationOptions struct {
	TimeoutMS      int        `json:"timeoutMs,omitempty"`
	EnabledChecks  []string   `json:"enabledChecks,omitempty"`
	DisabledChecks []string   `json:"disabledChecks,omitempty"`
	MinScore       *int       `json:"minScore,omitempty"`
	MaxRisk        *RiskLevel `json:"maxRisk,omitempty"`
	NoCache        bool       `json:"noCache,omitempty"`
}

type CheckResult struct {
	Type       string                 `json:"type"`
	Category   CheckCategory          `json:"category"`
	Name       string                 `json:"name"`
	Passed     bool                   `json:"passed"`
	Score      int                    `json:"score"`
	Confidence float64                `json:"confidence"`
	Risk       RiskLevel              `json:"risk"`
	Details    map[string]interface{} `json:"details,omitempty"`
	DurationMS int64                  `json:"duration"`
}

type ValidationResult struct {
	ID             string        `json:"id"`
	URL            string        `json:"url"`
	Timestamp      time.Time     `json:"timestamp"`
	DurationMS     int64         `json:"duration"`
	CanPay         bool          `json:"canPay"`
	TrustScore     int           `json:"trustScore"`
	Confidence     float64       `json:"confidence"`
	Risk           RiskLevel     `json:"risk"`
	Decision       Decision      `json:"decision"`
	Checks         []CheckResult `json:"checks"`
	MaxAmount      float64       `json:"maxAmount,omitempty"`
	Warnings       []string      `json:"warnings,omitempty"`
	BlockedReasons []string      `json:"blockedReasons,omitempty"`
	Hash           string        `json:"hash"`
}

// AgentContext identifies the agent requesting a payment decision along
// with its optional spend ceilings.
type AgentContext struct {
	AgentID string             `json:"agentId,omitempty"`
	Budget  *BudgetConstraints `json:"budget,omitempty"`
}

// BudgetConstraints only ever tighten a computed maximum amount.
// A zero cap means the cap is not set.
type BudgetConstraints struct {
	PerTransaction float64 `json:"perTransaction,omitempty"`
	Daily          float64 `json:"daily,omitempty"`
	Monthly        float64 `json:"monthly,omitempty"`
	SpentToday     float64 `json:"spentToday,omitempty"`
	SpentThisMonth float64 `json:"spentThisMonth,omitempty"`
}

// Remaining returns the tightest spendable amount across the configured
// caps, or a negative value when no cap is configured.
func (b *BudgetConstraints) Remaining() float64 {
	remaining := -1.0

	apply := func(v float64) {
		if v < 0 {
			v = 0
		}
		if remaining < 0 || v < remaining {
			remaining = v
		}
	}

	if b.PerTransaction > 0 {
		apply(b.PerTransaction)
	}
	if b.Daily > 0 {
		apply(b.Daily - b.SpentToday)
	}
	if b.Monthly > 0 {
		apply(b.Monthly - b.SpentThisMonth)
	}

	return remaining
}

// AgentDecision is the agent-facing verdict with human-readable reasoning.
type AgentDecision struct {
	Pay       bool     `json:"pay"`
	MaxAmount float64  `json:"maxAmount"`
	Reasoning []string `json:"reasoning"`
}

// internal/service/policy_test.go
package service

import (
	"testing"

	"snowrail/internal/models"
)

func TestDecide(t *testing.T) {
	policy := NewDecisionPolicy()

	tests := []struct {
		name     string
		score    int
		risk     models.RiskLevel
		minScore int
		maxRisk  models.RiskLevel
		want     models.Decision
	}{
		{
			name:  "critical risk always denies",
			score: 95, risk: models.RiskCritical,
			minScore: 60, maxRisk: models.RiskMedium,
			want: models.DecisionDeny,
		},
		{
			name:  "score and risk within thresholds",
			score: 85, risk: models.RiskLow,
			minScore: 60, maxRisk: models.RiskMedium,
			want: models.DecisionApprove,
		},
		{
			name:  "exactly at thresholds",
			score: 60, risk: models.RiskMedium,
			minScore: 60, maxRisk: models.RiskMedium,
			want: models.DecisionApprove,
		},
		{
			name:  "within tolerance band",
			score: 52, risk: models.RiskHigh,
			minScore: 60, maxRisk: models.RiskMedium,
			want: models.DecisionConditional,
		},
		{
			name:  "score too low but risk acceptable",
			score: 30, risk: models.RiskLow,
			minScore: 60, maxRisk: models.RiskMedium,
			want: models.DecisionReview,
		},
		{
			name:  "score and risk both out of range",
			score: 30, risk: models.RiskHigh,
			minScore: 60, maxRisk: models.RiskLow,
			want: models.DecisionDeny,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.Decide(tt.score, tt.risk, tt.minScore, tt.maxRisk)
			if got != tt.want {
				t.Errorf("Decide(%d, %s) = %s, want %s", tt.score, tt.risk, got, tt.want)
			}
		})
	}
}

func TestMaxAmountTiers(t *testing.T) {
	policy := NewDecisionPolicy()

	tests := []struct {
		name  string
		score int
		want  float64
	}{
		{"top tier", 95, 100000},
		{"tier 80", 85, 50000},
		{"tier 70", 72, 10000},
		{"tier 60", 60, 5000},
		{"base tier", 45, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Confidence 1.0 and no requested amount: the raw tier value.
			got := policy.MaxAmount(tt.score, 1.0, 0, nil)
			if got != tt.want {
				t.Errorf("MaxAmount(score=%d) = %f, want %f", tt.score, got, tt.want)
			}
		})
	}
}

func TestMaxAmountConfidenceScaling(t *testing.T) {
	policy := NewDecisionPolicy()

	got := policy.MaxAmount(95, 0.8, 0, nil)
	if got != 80000 {
		t.Errorf("MaxAmount(95, 0.8) = %f, want 80000", got)
	}
}

func TestMaxAmountRequestedClamp(t *testing.T) {
	policy := NewDecisionPolicy()

	// Without an agent budget the maximum is clamped to twice the request.
	got := policy.MaxAmount(95, 1.0, 150, nil)
	if got != 300 {
		t.Errorf("MaxAmount with requested 150 = %f, want 300", got)
	}
}

func TestMaxAmountBudgetClamp(t *testing.T) {
	policy := NewDecisionPolicy()

	tests := []struct {
		name   string
		budget *models.BudgetConstraints
		want   float64
	}{
		{
			name:   "per transaction cap",
			budget: &models.BudgetConstraints{PerTransaction: 200},
			want:   200,
		},
		{
			name:   "daily remainder tighter than per transaction",
			budget: &models.BudgetConstraints{PerTransaction: 500, Daily: 1000, SpentToday: 900},
			want:   100,
		},
		{
			name:   "monthly exhausted",
			budget: &models.BudgetConstraints{Monthly: 1000, SpentThisMonth: 1000},
			want:   0,
		},
		{
			name:   "budget looser than tier does not loosen",
			budget: &models.BudgetConstraints{PerTransaction: 999999},
			want:   100000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := &models.AgentContext{AgentID: "agent-1", Budget: tt.budget}
			got := policy.MaxAmount(95, 1.0, 150, agent)
			if got != tt.want {
				t.Errorf("MaxAmount with budget = %f, want %f", got, tt.want)
			}
		})
	}
}

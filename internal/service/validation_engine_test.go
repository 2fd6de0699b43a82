// internal/service/validation_engine_test.go
package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"snowrail/internal/checks"
	"snowrail/internal/config"
	"snowrail/internal/models"
)

// staticCheck is a no-op check used where only registration matters.
type staticCheck struct{ typ string }

func (c *staticCheck) Type() string { return c.typ }
func (c *staticCheck) Category() models.CheckCategory { return models.CategoryIdentity }
func (c *staticCheck) Evaluate(ctx context.Context, req *models.ValidationRequest) (*models.CheckResult, error) {
	return &models.CheckResult{Type: c.typ, Passed: true}, nil
}

// stubCheck returns a canned result and counts invocations.
type stubCheck struct {
	typ    string
	result models.CheckResult
	err    error
	delay  time.Duration
	calls  int32
}

func (c *stubCheck) Type() string { return c.typ }
func (c *stubCheck) Category() models.CheckCategory { return models.CategoryIdentity }

func (c *stubCheck) Evaluate(ctx context.Context, req *models.ValidationRequest) (*models.CheckResult, error) {
	atomic.AddInt32(&c.calls, 1)
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	result := c.result
	result.Type = c.typ
	return &result, nil
}

func (c *stubCheck) callCount() int {
	return int(atomic.LoadInt32(&c.calls))
}

func testConfig() *config.Config {
	return &config.Config{
		MinTrustScore:      60,
		MaxRisk:            models.RiskMedium,
		CacheTTL:           time.Minute,
		CacheCapacity:      100,
		RateLimitWindow:    time.Minute,
		RateLimitThreshold: 1000,
		CheckTimeout:       100 * time.Millisecond,
		ValidationTimeout:  time.Second,
		ParallelChecks:     true,
		CheckConcurrency:   4,
		IntentLifetime:     5 * time.Minute,
		GasMarginPercent:   20,
		Chain:              "base",
		ChainID:            8453,
		AssetSymbol:        "USDC",
		AssetName:          "USD Coin",
		AssetVersion:       "2",
		AssetDecimals:      6,
		AssetAddresses:     map[string]string{"base": "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"},
	}
}

func newTestEngine(cfg *config.Config, stubs []*stubCheck, weights []float64) (*ValidationEngine, CacheStore) {
	registry := checks.NewRegistry()
	for i, stub := range stubs {
		registry.Register(stub, weights[i])
	}
	cache := NewMemoryCacheStore(cfg.CacheTTL, cfg.CacheCapacity)
	return NewValidationEngine(cfg, registry, cache, zap.NewNop()), cache
}

func passingStubs(score int, confidence float64) []*stubCheck {
	return []*stubCheck{
		{typ: "tls", result: models.CheckResult{Passed: true, Score: score, Confidence: confidence, Risk: models.RiskNone}},
		{typ: "dns", result: models.CheckResult{Passed: true, Score: score, Confidence: confidence, Risk: models.RiskNone}},
		{typ: "compliance", result: models.CheckResult{Passed: true, Score: score, Confidence: confidence, Risk: models.RiskNone}},
	}
}

func TestValidateAllPassing(t *testing.T) {
	// Weights summing to 1, every check at 95: trust score must be exactly
	// 95 with risk none, decision approve, and the top-tier max amount
	// scaled by confidence.
	stubs := passingStubs(95, 0.9)
	engine, _ := newTestEngine(testConfig(), stubs, []float64{0.5, 0.25, 0.25})

	result, err := engine.Validate(context.Background(), &models.ValidationRequest{URL: "https://api.example.com"})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if result.TrustScore != 95 {
		t.Errorf("TrustScore = %d, want 95", result.TrustScore)
	}
	if result.Risk != models.RiskNone {
		t.Errorf("Risk = %s, want none", result.Risk)
	}
	if result.Decision != models.DecisionApprove {
		t.Errorf("Decision = %s, want approve", result.Decision)
	}
	if !result.CanPay {
		t.Error("CanPay = false, want true")
	}
	want := 100000 * result.Confidence
	if result.MaxAmount != want {
		t.Errorf("MaxAmount = %f, want %f", result.MaxAmount, want)
	}
}

func TestValidateCriticalCheckForcesDeny(t *testing.T) {
	// A critical-and-failed TLS check denies even though the weighted
	// average is high.
	stubs := []*stubCheck{
		{typ: "tls", result: models.CheckResult{Passed: false, Score: 5, Confidence: 1, Risk: models.RiskCritical}},
		{typ: "dns", result: models.CheckResult{Passed: true, Score: 90, Confidence: 1, Risk: models.RiskNone}},
		{typ: "compliance", result: models.CheckResult{Passed: true, Score: 90, Confidence: 1, Risk: models.RiskNone}},
	}
	engine, _ := newTestEngine(testConfig(), stubs, []float64{0.1, 0.45, 0.45})

	result, err := engine.Validate(context.Background(), &models.ValidationRequest{URL: "https://api.example.com"})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if result.Decision != models.DecisionDeny {
		t.Errorf("Decision = %s, want deny", result.Decision)
	}
	if result.Risk != models.RiskCritical {
		t.Errorf("Risk = %s, want critical", result.Risk)
	}
	if len(result.BlockedReasons) == 0 {
		t.Error("expected blocked reasons on a denied result")
	}
}

func TestValidateCacheIdempotence(t *testing.T) {
	stubs := passingStubs(95, 0.9)
	engine, _ := newTestEngine(testConfig(), stubs, []float64{1, 1, 1})

	req := &models.ValidationRequest{URL: "https://api.example.com"}
	first, err := engine.Validate(context.Background(), req)
	if err != nil {
		t.Fatalf("first Validate() error = %v", err)
	}
	second, err := engine.Validate(context.Background(), req)
	if err != nil {
		t.Fatalf("second Validate() error = %v", err)
	}

	if first.Hash != second.Hash {
		t.Errorf("cached result hash %s != fresh hash %s", second.Hash, first.Hash)
	}
	if first.ID != second.ID {
		t.Error("cached result must be the identical result, not a recomputation")
	}
	for _, stub := range stubs {
		if stub.callCount() != 1 {
			t.Errorf("check %s ran %d times, want 1 (second call must be served from cache)", stub.typ, stub.callCount())
		}
	}
}

func TestValidateNoCacheOption(t *testing.T) {
	stubs := passingStubs(95, 0.9)
	engine, _ := newTestEngine(testConfig(), stubs, []float64{1, 1, 1})

	req := &models.ValidationRequest{URL: "https://api.example.com", Options: &models.ValidationOptions{NoCache: true}}
	engine.Validate(context.Background(), req)
	engine.Validate(context.Background(), req)

	for _, stub := range stubs {
		if stub.callCount() != 2 {
			t.Errorf("check %s ran %d times, want 2 with caching disabled", stub.typ, stub.callCount())
		}
	}
}

func TestValidateTimedOutCheckIsExcluded(t *testing.T) {
	stubs := []*stubCheck{
		{typ: "tls", result: models.CheckResult{Passed: true, Score: 90, Confidence: 1, Risk: models.RiskNone}},
		{typ: "slow", delay: 500 * time.Millisecond, result: models.CheckResult{Passed: true, Score: 10, Confidence: 1}},
	}
	cfg := testConfig()
	cfg.CheckTimeout = 50 * time.Millisecond
	engine, _ := newTestEngine(cfg, stubs, []float64{1, 1})

	result, err := engine.Validate(context.Background(), &models.ValidationRequest{URL: "https://api.example.com"})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if len(result.Checks) != 1 {
		t.Fatalf("completed checks = %d, want 1 (slow check excluded)", len(result.Checks))
	}
	if result.Checks[0].Type != "tls" {
		t.Errorf("surviving check = %s, want tls", result.Checks[0].Type)
	}
	if result.TrustScore != 90 {
		t.Errorf("TrustScore = %d, want 90 (timed-out check not treated as zero)", result.TrustScore)
	}
}

func TestValidateFailingCheckDoesNotAbort(t *testing.T) {
	stubs := []*stubCheck{
		{typ: "broken", err: context.DeadlineExceeded},
		{typ: "dns", result: models.CheckResult{Passed: true, Score: 85, Confidence: 0.9, Risk: models.RiskNone}},
	}
	engine, _ := newTestEngine(testConfig(), stubs, []float64{1, 1})

	result, err := engine.Validate(context.Background(), &models.ValidationRequest{URL: "https://api.example.com"})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(result.Checks) != 1 {
		t.Errorf("completed checks = %d, want 1", len(result.Checks))
	}
}

func TestValidateAllChecksFailClosed(t *testing.T) {
	stubs := []*stubCheck{
		{typ: "a", err: context.DeadlineExceeded},
		{typ: "b", err: context.DeadlineExceeded},
	}
	engine, _ := newTestEngine(testConfig(), stubs, []float64{1, 1})

	result, err := engine.Validate(context.Background(), &models.ValidationRequest{URL: "https://api.example.com"})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if result.TrustScore != 0 || result.Confidence != 0 {
		t.Errorf("TrustScore = %d, Confidence = %f, want 0 and 0", result.TrustScore, result.Confidence)
	}
	if result.Risk != models.RiskCritical {
		t.Errorf("Risk = %s, want critical", result.Risk)
	}
	if result.Decision != models.DecisionDeny {
		t.Errorf("Decision = %s, want deny", result.Decision)
	}
}

func TestValidateMalformedDestination(t *testing.T) {
	stubs := passingStubs(95, 1)
	engine, _ := newTestEngine(testConfig(), stubs, []float64{1, 1, 1})

	result, err := engine.Validate(context.Background(), &models.ValidationRequest{URL: "not a url"})
	if err != nil {
		t.Fatalf("malformed destination must not abort validation, got error %v", err)
	}
	if result.Decision != models.DecisionDeny {
		t.Errorf("Decision = %s, want deny", result.Decision)
	}
	for _, stub := range stubs {
		if stub.callCount() != 0 {
			t.Errorf("check %s must not run for a malformed destination", stub.typ)
		}
	}
}

func TestValidateRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitThreshold = 1
	stubs := passingStubs(95, 1)
	engine, _ := newTestEngine(cfg, stubs, []float64{1, 1, 1})

	req := &models.ValidationRequest{URL: "https://api.example.com", Options: &models.ValidationOptions{NoCache: true}}
	if _, err := engine.Validate(context.Background(), req); err != nil {
		t.Fatalf("first Validate() error = %v", err)
	}

	_, err := engine.Validate(context.Background(), req)
	if ErrorCode(err) != ErrCodeRateLimited {
		t.Errorf("second Validate() error code = %s, want %s", ErrorCode(err), ErrCodeRateLimited)
	}
	// The rejection happens before any check runs.
	for _, stub := range stubs {
		if stub.callCount() != 1 {
			t.Errorf("check %s ran %d times, want 1", stub.typ, stub.callCount())
		}
	}
}

func TestCanPayMatchesValidate(t *testing.T) {
	tests := []struct {
		name  string
		score int
	}{
		{"approving destination", 95},
		{"denied destination", 10},
		{"review destination", 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubs := passingStubs(tt.score, 1)
			engine, _ := newTestEngine(testConfig(), stubs, []float64{1, 1, 1})

			canPay, err := engine.CanPay(context.Background(), "https://api.example.com")
			if err != nil {
				t.Fatalf("CanPay() error = %v", err)
			}
			result, err := engine.Validate(context.Background(), &models.ValidationRequest{URL: "https://api.example.com"})
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if canPay != (result.Decision == models.DecisionApprove) {
				t.Errorf("CanPay() = %t, but decision = %s", canPay, result.Decision)
			}
		})
	}
}

func TestTrustNormalization(t *testing.T) {
	stubs := passingStubs(80, 1)
	engine, _ := newTestEngine(testConfig(), stubs, []float64{1, 1, 1})

	trust, err := engine.Trust(context.Background(), "https://api.example.com")
	if err != nil {
		t.Fatalf("Trust() error = %v", err)
	}
	if trust != 0.8 {
		t.Errorf("Trust() = %f, want 0.8", trust)
	}
}

func TestDecideWithBudget(t *testing.T) {
	stubs := passingStubs(95, 1)
	engine, _ := newTestEngine(testConfig(), stubs, []float64{1, 1, 1})

	agent := &models.AgentContext{
		AgentID: "agent-1",
		Budget:  &models.BudgetConstraints{Daily: 100, SpentToday: 80},
	}

	decision, err := engine.Decide(context.Background(), "https://api.example.com", 50, agent)
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}

	if decision.Pay {
		t.Error("Pay = true, want false (requested 50 exceeds remaining budget 20)")
	}
	if decision.MaxAmount != 20 {
		t.Errorf("MaxAmount = %f, want 20", decision.MaxAmount)
	}
	if len(decision.Reasoning) == 0 {
		t.Error("expected reasoning strings")
	}
}

func TestDecideApproves(t *testing.T) {
	stubs := passingStubs(95, 1)
	engine, _ := newTestEngine(testConfig(), stubs, []float64{1, 1, 1})

	decision, err := engine.Decide(context.Background(), "https://api.example.com", 50, nil)
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if !decision.Pay {
		t.Errorf("Pay = false, want true (max %f)", decision.MaxAmount)
	}
}

func TestValidateSequentialMode(t *testing.T) {
	cfg := testConfig()
	cfg.ParallelChecks = false
	stubs := []*stubCheck{
		{typ: "broken", err: context.DeadlineExceeded},
		{typ: "dns", result: models.CheckResult{Passed: true, Score: 85, Confidence: 0.9, Risk: models.RiskNone}},
	}
	engine, _ := newTestEngine(cfg, stubs, []float64{1, 1})

	result, err := engine.Validate(context.Background(), &models.ValidationRequest{URL: "https://api.example.com"})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	// The failing check is skipped and execution continues.
	if len(result.Checks) != 1 || result.Checks[0].Type != "dns" {
		t.Errorf("completed checks = %v, want only dns", result.Checks)
	}
}

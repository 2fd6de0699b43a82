// internal/service/validation_engine.go
// Validation orchestration
package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"snowrail/internal/checks"
	"snowrail/internal/config"
	"snowrail/internal/metrics"
	"snowrail/internal/models"
)

// ValidationEngine orchestrates the trust checks, scoring aggregator,
// decision policy, cache, and admission control behind one contract.
// All shared state is owned by the instance; there are no package-level
// singletons.
type ValidationEngine struct {
	cfg        *config.Config
	registry   *checks.Registry
	aggregator *ScoringAggregator
	policy     *DecisionPolicy
	cache      CacheStore
	limiter    *DestinationLimiter
	logger     *zap.Logger
}

func NewValidationEngine(cfg *config.Config, registry *checks.Registry, cache CacheStore, logger *zap.Logger) *ValidationEngine {
	return &ValidationEngine{
		cfg:        cfg,
		registry:   registry,
		aggregator: NewScoringAggregator(registry),
		policy:     NewDecisionPolicy(),
		cache:      cache,
		limiter:    NewDestinationLimiter(cfg.RateLimitWindow, cfg.RateLimitThreshold),
		logger:     logger,
	}
}

// Validate runs the full trust pipeline for one destination. A malformed
// destination never aborts with an error: it fails closed with a denied
// result. Only admission control rejects before any check runs.
func (e *ValidationEngine) Validate(ctx context.Context, req *models.ValidationRequest) (*models.ValidationResult, error) {
	start := time.Now()

	if !e.limiter.Allow(req.URL) {
		metrics.RateLimitedTotal.Inc()
		return nil, NewPaymentError(ErrCodeRateLimited, fmt.Sprintf("validation budget for %s exhausted", req.URL), nil)
	}

	enabled := e.registry.Enabled(req.Options)
	enabledTypes := make([]string, 0, len(enabled))
	for _, c := range enabled {
		enabledTypes = append(enabledTypes, c.Type())
	}

	cacheKey := CacheKey(req.URL, enabledTypes)
	useCache := req.Options == nil || !req.Options.NoCache
	if useCache {
		if cached, ok := e.cache.Get(ctx, cacheKey); ok {
			metrics.CacheHitsTotal.Inc()
			e.logger.Debug("validation served from cache", zap.String("url", req.URL))
			return cached, nil
		}
		metrics.CacheMissesTotal.Inc()
	}

	result := &models.ValidationResult{
		ID:        uuid.New().String(),
		URL:       req.URL,
		Timestamp: time.Now().UTC(),
	}

	if u, err := url.Parse(req.URL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		result.Risk = models.RiskCritical
		result.Decision = models.DecisionDeny
		result.BlockedReasons = []string{"destination is not a valid http(s) url"}
		result.Hash = ChecksHash(nil)
		result.DurationMS = time.Since(start).Milliseconds()
		return result, nil
	}

	timeout := e.cfg.ValidationTimeout
	if req.Options != nil && req.Options.TimeoutMS > 0 {
		timeout = time.Duration(req.Options.TimeoutMS) * time.Millisecond
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var completed []models.CheckResult
	if e.cfg.ParallelChecks {
		completed = e.runParallel(runCtx, req, enabled)
	} else {
		completed = e.runSequential(runCtx, req, enabled)
	}

	e.assemble(result, req, completed)
	result.DurationMS = time.Since(start).Milliseconds()

	if useCache {
		e.cache.Set(ctx, cacheKey, result)
	}

	metrics.ValidationsTotal.WithLabelValues(string(result.Decision)).Inc()
	e.logger.Info("validation completed",
		zap.String("url", req.URL),
		zap.Int("trust_score", result.TrustScore),
		zap.String("risk", string(result.Risk)),
		zap.String("decision", string(result.Decision)),
		zap.Int("checks_completed", len(completed)),
		zap.Int64("duration_ms", result.DurationMS))

	return result, nil
}

// runParallel fans the checks out over a bounded worker pool with a
// per-check timeout. A check that times out or errors is excluded from
// aggregation without disturbing its siblings; stragglers are abandoned,
// not cancelled.
func (e *ValidationEngine) runParallel(ctx context.Context, req *models.ValidationRequest, enabled []checks.Check) []models.CheckResult {
	slots := make([]*models.CheckResult, len(enabled))

	var g errgroup.Group
	g.SetLimit(e.cfg.CheckConcurrency)

	for i, c := range enabled {
		i, c := i, c
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, e.cfg.CheckTimeout)
			defer cancel()

			type outcome struct {
				result *models.CheckResult
				err    error
			}
			done := make(chan outcome, 1)
			go func() {
				result, err := c.Evaluate(checkCtx, req)
				done <- outcome{result, err}
			}()

			select {
			case o := <-done:
				if o.err != nil {
					e.logger.Warn("check failed to run",
						zap.String("check", c.Type()),
						zap.String("url", req.URL),
						zap.Error(o.err))
					return nil
				}
				slots[i] = o.result
				metrics.CheckDuration.WithLabelValues(c.Type()).Observe(float64(o.result.DurationMS) / 1000)
			case <-checkCtx.Done():
				e.logger.Warn("check timed out",
					zap.String("check", c.Type()),
					zap.String("url", req.URL))
			}
			return nil
		})
	}
	g.Wait()

	completed := make([]models.CheckResult, 0, len(enabled))
	for _, slot := range slots {
		if slot != nil {
			completed = append(completed, *slot)
		}
	}
	return completed
}

// runSequential runs the checks one at a time in registration order,
// skipping any that fail.
func (e *ValidationEngine) runSequential(ctx context.Context, req *models.ValidationRequest, enabled []checks.Check) []models.CheckResult {
	completed := make([]models.CheckResult, 0, len(enabled))
	for _, c := range enabled {
		checkCtx, cancel := context.WithTimeout(ctx, e.cfg.CheckTimeout)
		result, err := c.Evaluate(checkCtx, req)
		cancel()
		if err != nil {
			e.logger.Warn("check failed to run",
				zap.String("check", c.Type()),
				zap.String("url", req.URL),
				zap.Error(err))
			continue
		}
		completed = append(completed, *result)
		metrics.CheckDuration.WithLabelValues(c.Type()).Observe(float64(result.DurationMS) / 1000)
	}
	return completed
}

// assemble folds the completed checks into the final result.
func (e *ValidationEngine) assemble(result *models.ValidationResult, req *models.ValidationRequest, completed []models.CheckResult) {
	trustScore, confidence, risk := e.aggregator.Aggregate(completed)

	minScore := e.cfg.MinTrustScore
	maxRisk := e.cfg.MaxRisk
	if req.Options != nil {
		if req.Options.MinScore != nil {
			minScore = *req.Options.MinScore
		}
		if req.Options.MaxRisk != nil {
			maxRisk = *req.Options.MaxRisk
		}
	}

	result.TrustScore = trustScore
	result.Confidence = confidence
	result.Risk = risk
	result.Checks = completed
	result.Hash = ChecksHash(completed)
	result.Decision = e.policy.Decide(trustScore, risk, minScore, maxRisk)
	result.CanPay = result.Decision == models.DecisionApprove

	if result.Decision == models.DecisionApprove || result.Decision == models.DecisionConditional {
		result.MaxAmount = e.policy.MaxAmount(trustScore, confidence, req.Amount, nil)
	}

	for _, check := range completed {
		if check.Passed {
			continue
		}
		reason := fmt.Sprintf("%s check failed (score %d, risk %s)", check.Type, check.Score, check.Risk)
		if result.Decision == models.DecisionDeny {
			result.BlockedReasons = append(result.BlockedReasons, reason)
		} else {
			result.Warnings = append(result.Warnings, reason)
		}
	}
	if len(completed) == 0 {
		result.BlockedReasons = append(result.BlockedReasons, "no trust check completed")
	}
}

// CanPay is the boolean shorthand for Validate.
func (e *ValidationEngine) CanPay(ctx context.Context, destination string) (bool, error) {
	result, err := e.Validate(ctx, &models.ValidationRequest{URL: destination})
	if err != nil {
		return false, err
	}
	return result.Decision == models.DecisionApprove, nil
}

// Trust returns the destination's trust score normalized to [0, 1].
func (e *ValidationEngine) Trust(ctx context.Context, destination string) (float64, error) {
	result, err := e.Validate(ctx, &models.ValidationRequest{URL: destination})
	if err != nil {
		return 0, err
	}
	return float64(result.TrustScore) / 100, nil
}

// Decide produces the agent-facing verdict for paying a specific amount,
// tightening the maximum by the agent's budget when supplied.
func (e *ValidationEngine) Decide(ctx context.Context, destination string, amount float64, agent *models.AgentContext) (*models.AgentDecision, error) {
	result, err := e.Validate(ctx, &models.ValidationRequest{URL: destination, Amount: amount})
	if err != nil {
		return nil, err
	}

	maxAmount := 0.0
	if result.Decision == models.DecisionApprove || result.Decision == models.DecisionConditional {
		maxAmount = e.policy.MaxAmount(result.TrustScore, result.Confidence, amount, agent)
	}

	decision := &models.AgentDecision{
		Pay:       result.Decision == models.DecisionApprove && amount <= maxAmount,
		MaxAmount: maxAmount,
		Reasoning: e.policy.Reasoning(result, amount, maxAmount),
	}
	if result.Decision == models.DecisionApprove && amount > maxAmount {
		decision.Reasoning = append(decision.Reasoning,
			fmt.Sprintf("reduce the amount to %.2f or below to proceed", maxAmount))
	}

	return decision, nil
}

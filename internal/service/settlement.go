// internal/service/settlement.go
// Settlement execution and failure mapping
package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"snowrail/internal/config"
	"snowrail/internal/ledger"
	"snowrail/internal/metrics"
	"snowrail/internal/models"
)

// LedgerClient is the outbound contract to the settlement ledger.
// The HTTP implementation lives in internal/ledger; tests use fakes.
type LedgerClient interface {
	ExecuteTransfer(ctx context.Context, auth *models.AuthorizationPayload, signature string, gasLimit uint64) (*ledger.TransferResult, error)
	DirectTransfer(ctx context.Context, to, value, reference string) (*ledger.TransferResult, error)
	EstimateCost(ctx context.Context, auth *models.AuthorizationPayload) (uint64, error)
	Allowance(ctx context.Context, owner string) (string, error)
}

// SettlementExecutor submits signed authorizations to the ledger and
// folds every raw failure into the canonical error taxonomy. Submission
// is blocking and never retried automatically: a failed submission means
// the nonce is possibly consumed, so the caller must create a new intent.
type SettlementExecutor struct {
	cfg    *config.Config
	client LedgerClient
	logger *zap.Logger
}

func NewSettlementExecutor(cfg *config.Config, client LedgerClient, logger *zap.Logger) *SettlementExecutor {
	return &SettlementExecutor{cfg: cfg, client: client, logger: logger}
}

// Submit estimates execution cost, adds the configured safety margin,
// submits the signed authorization, and blocks until the ledger confirms
// or the call fails.
func (e *SettlementExecutor) Submit(ctx context.Context, intent *models.PaymentIntent, signature string) (*models.PaymentReceipt, error) {
	if intent.Authorization == nil {
		return nil, NewPaymentError(ErrCodeInvalidAuthorization, "intent has no authorization payload", nil)
	}
	if signature == "" {
		return nil, NewPaymentError(ErrCodeInvalidAuthorization, "missing signature", nil)
	}
	if intent.Expired(time.Now()) {
		return nil, NewPaymentError(ErrCodeIntentExpired,
			fmt.Sprintf("intent %s expired before submission", intent.ID), nil)
	}

	estimate, err := e.client.EstimateCost(ctx, intent.Authorization)
	if err != nil {
		mapped := MapLedgerError(err)
		metrics.SettlementsTotal.WithLabelValues(ErrorCode(mapped)).Inc()
		return nil, mapped
	}
	gasLimit := estimate + estimate*uint64(e.cfg.GasMarginPercent)/100

	result, err := e.client.ExecuteTransfer(ctx, intent.Authorization, signature, gasLimit)
	if err != nil {
		mapped := MapLedgerError(err)
		metrics.SettlementsTotal.WithLabelValues(ErrorCode(mapped)).Inc()
		e.logger.Error("settlement submission failed",
			zap.String("intent_id", intent.ID),
			zap.String("code", ErrorCode(mapped)),
			zap.Error(err))
		return nil, mapped
	}

	receipt := &models.PaymentReceipt{
		IntentID:    intent.ID,
		TxHash:      result.TxHash,
		Status:      models.SettlementConfirmed,
		Amount:      intent.Amount,
		Token:       intent.Token,
		Chain:       intent.Chain,
		BlockNumber: result.BlockNumber,
		Timestamp:   time.Now().UTC(),
	}
	if !result.Confirmed {
		receipt.Status = models.SettlementPending
	}

	metrics.SettlementsTotal.WithLabelValues(string(receipt.Status)).Inc()
	e.logger.Info("settlement submitted",
		zap.String("intent_id", intent.ID),
		zap.String("tx_hash", result.TxHash),
		zap.Uint64("block", result.BlockNumber),
		zap.Uint64("gas_limit", gasLimit))

	return receipt, nil
}

// DirectTransfer settles without an authorization payload, relying on a
// pre-existing spending approval from the treasury on the asset contract.
func (e *SettlementExecutor) DirectTransfer(ctx context.Context, to string, amount float64, reference string) (*models.PaymentReceipt, error) {
	if amount <= 0 {
		return nil, NewPaymentError(ErrCodeValidation, "amount must be positive", nil)
	}

	value := e.toBaseUnits(amount)

	allowance, err := e.client.Allowance(ctx, e.cfg.TreasuryAddress)
	if err != nil {
		mapped := MapLedgerError(err)
		metrics.SettlementsTotal.WithLabelValues(ErrorCode(mapped)).Inc()
		return nil, mapped
	}
	if allowanceTooLow(allowance, value) {
		err := NewPaymentError(ErrCodeInsufficientAllowance,
			fmt.Sprintf("allowance %s below required %s", allowance, value), nil)
		metrics.SettlementsTotal.WithLabelValues(ErrCodeInsufficientAllowance).Inc()
		return nil, err
	}

	result, err := e.client.DirectTransfer(ctx, to, value, reference)
	if err != nil {
		mapped := MapLedgerError(err)
		metrics.SettlementsTotal.WithLabelValues(ErrorCode(mapped)).Inc()
		e.logger.Error("direct transfer failed",
			zap.String("to", to),
			zap.String("code", ErrorCode(mapped)),
			zap.Error(err))
		return nil, mapped
	}

	receipt := &models.PaymentReceipt{
		TxHash:      result.TxHash,
		Status:      models.SettlementConfirmed,
		Amount:      amount,
		Token:       e.cfg.AssetSymbol,
		Chain:       e.cfg.Chain,
		BlockNumber: result.BlockNumber,
		Timestamp:   time.Now().UTC(),
	}
	if !result.Confirmed {
		receipt.Status = models.SettlementPending
	}

	metrics.SettlementsTotal.WithLabelValues(string(receipt.Status)).Inc()
	e.logger.Info("direct transfer settled",
		zap.String("to", to),
		zap.String("tx_hash", result.TxHash))

	return receipt, nil
}

func (e *SettlementExecutor) toBaseUnits(amount float64) string {
	scaled := amount * math.Pow10(e.cfg.AssetDecimals)
	return strconv.FormatInt(int64(math.Round(scaled)), 10)
}

// allowanceTooLow compares two base-unit decimal strings numerically.
// Unparseable allowances are treated as zero.
func allowanceTooLow(allowance, required string) bool {
	a, err := strconv.ParseUint(allowance, 10, 64)
	if err != nil {
		return true
	}
	r, err := strconv.ParseUint(required, 10, 64)
	if err != nil {
		return false
	}
	return a < r
}

// internal/service/intent_facilitator.go
// Payment intent lifecycle
package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"snowrail/internal/config"
	"snowrail/internal/metrics"
	"snowrail/internal/models"
)

// IntentFacilitator owns the payment intent state machine:
// pending -> ready -> expired, or pending -> expired, with a caller-driven
// settled terminal. Intents live in process memory only; expiry is
// computed lazily on every read, never only by a timer.
type IntentFacilitator struct {
	cfg    *config.Config
	logger *zap.Logger

	mu      sync.Mutex
	intents map[string]*models.PaymentIntent
}

func NewIntentFacilitator(cfg *config.Config, logger *zap.Logger) *IntentFacilitator {
	return &IntentFacilitator{
		cfg:     cfg,
		logger:  logger,
		intents: make(map[string]*models.PaymentIntent),
	}
}

// CreateIntent creates a time-bound transfer intent. The settlement asset
// must match the single configured asset for the target chain.
func (f *IntentFacilitator) CreateIntent(destination string, amount float64, token, sender, recipient string) (*models.PaymentIntent, error) {
	if amount <= 0 {
		return nil, NewPaymentError(ErrCodeValidation, "amount must be positive", nil)
	}
	if token == "" {
		token = f.cfg.AssetSymbol
	}
	if !strings.EqualFold(token, f.cfg.AssetSymbol) {
		return nil, NewPaymentError(ErrCodeValidation,
			fmt.Sprintf("settlement asset %s is not accepted on %s, only %s", token, f.cfg.Chain, f.cfg.AssetSymbol), nil)
	}

	now := time.Now().UTC()
	intent := &models.PaymentIntent{
		ID:        uuid.New().String(),
		Status:    models.IntentStatusPending,
		Amount:    amount,
		Currency:  "USD",
		Token:     f.cfg.AssetSymbol,
		Chain:     f.cfg.Chain,
		Sender:    sender,
		Recipient: recipient,
		CreatedAt: now,
		ExpiresAt: now.Add(f.cfg.IntentLifetime),
	}

	f.mu.Lock()
	f.intents[intent.ID] = intent
	f.mu.Unlock()

	metrics.IntentsTotal.WithLabelValues("created").Inc()
	f.logger.Info("payment intent created",
		zap.String("intent_id", intent.ID),
		zap.String("destination", destination),
		zap.Float64("amount", amount),
		zap.Time("expires_at", intent.ExpiresAt))

	return intent, nil
}

// GetIntent returns the intent with its lazily computed status.
func (f *IntentFacilitator) GetIntent(id string) (*models.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	intent, ok := f.intents[id]
	if !ok {
		return nil, NewPaymentError(ErrCodeValidation, fmt.Sprintf("intent %s not found", id), nil)
	}
	f.applyExpiry(intent)
	return intent, nil
}

// applyExpiry advances a pending/ready intent to expired once its
// lifetime has elapsed. Callers must hold f.mu.
func (f *IntentFacilitator) applyExpiry(intent *models.PaymentIntent) {
	if intent.Status != models.IntentStatusPending && intent.Status != models.IntentStatusReady {
		return
	}
	if intent.Expired(time.Now()) {
		intent.Status = models.IntentStatusExpired
		metrics.IntentsTotal.WithLabelValues("expired").Inc()
	}
}

// BuildAuthorization attaches the signable authorization payload to the
// intent. The payload is produced at most once per intent; a second call
// returns the same payload. Fails if the intent has expired.
func (f *IntentFacilitator) BuildAuthorization(intentID string) (*models.AuthorizationPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	intent, ok := f.intents[intentID]
	if !ok {
		return nil, NewPaymentError(ErrCodeValidation, fmt.Sprintf("intent %s not found", intentID), nil)
	}
	f.applyExpiry(intent)

	if intent.Status == models.IntentStatusExpired {
		return nil, NewPaymentError(ErrCodeIntentExpired,
			fmt.Sprintf("intent %s expired at %s", intentID, intent.ExpiresAt.Format(time.RFC3339)), nil)
	}
	if intent.Authorization != nil {
		return intent.Authorization, nil
	}

	nonce, err := newNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := time.Now().UTC()
	intent.Authorization = &models.AuthorizationPayload{
		Domain: models.AuthorizationDomain{
			Name:              f.cfg.AssetName,
			Version:           f.cfg.AssetVersion,
			ChainID:           f.cfg.ChainID,
			VerifyingContract: f.cfg.AssetAddress(),
		},
		Message: models.AuthorizationMessage{
			From:        intent.Sender,
			To:          intent.Recipient,
			Value:       f.toBaseUnits(intent.Amount),
			ValidAfter:  now.Unix(),
			ValidBefore: intent.ExpiresAt.Unix(),
			Nonce:       nonce,
		},
		PrimaryType: "TransferWithAuthorization",
	}
	intent.Status = models.IntentStatusReady

	metrics.IntentsTotal.WithLabelValues("authorized").Inc()
	f.logger.Info("authorization payload built",
		zap.String("intent_id", intent.ID),
		zap.Int64("valid_before", intent.Authorization.Message.ValidBefore))

	return intent.Authorization, nil
}

// VerifyReceipt structurally checks an externally supplied receipt against
// the intent it references: existence, amount, asset, and chain. It does
// not re-verify signatures or on-chain state. A confirmed receipt settles
// the intent.
func (f *IntentFacilitator) VerifyReceipt(receipt *models.PaymentReceipt) bool {
	if receipt == nil {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	intent, ok := f.intents[receipt.IntentID]
	if !ok {
		return false
	}
	if receipt.Amount != intent.Amount {
		return false
	}
	if !strings.EqualFold(receipt.Token, intent.Token) {
		return false
	}
	if receipt.Chain != "" && receipt.Chain != intent.Chain {
		return false
	}

	if receipt.Status == models.SettlementConfirmed {
		intent.Status = models.IntentStatusSettled
		metrics.IntentsTotal.WithLabelValues("settled").Inc()
	}
	return true
}

// toBaseUnits converts a decimal amount into the asset's base units.
func (f *IntentFacilitator) toBaseUnits(amount float64) string {
	scaled := amount * math.Pow10(f.cfg.AssetDecimals)
	return strconv.FormatInt(int64(math.Round(scaled)), 10)
}

// newNonce returns a fresh 32-byte hex nonce for a single authorization.
func newNonce() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(buf), nil
}

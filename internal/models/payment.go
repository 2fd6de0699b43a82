// internal/models/payment.go
package models

import "time"

type IntentStatus string

const (
	IntentStatusPending IntentStatus = "pending"
	IntentStatusReady   IntentStatus = "ready"
	IntentStatusExpired IntentStatus = "expired"
	IntentStatusSettled IntentStatus = "settled"
)

// PaymentIntent is a time-bound record of an approved, not-yet-settled
// transfer. Expiry is computed lazily on read; the stored Status field is
// only advanced by the facilitator that owns the intent.
type PaymentIntent struct {
	ID            string                `json:"id"`
	Status        IntentStatus          `json:"status"`
	Amount        float64               `json:"amount"`
	Currency      string                `json:"currency"`
	Token         string                `json:"token"`
	Chain         string                `json:"chain"`
	Sender        string                `json:"sender"`
	Recipient     string                `json:"recipient"`
	CreatedAt     time.Time             `json:"createdAt"`
	ExpiresAt     time.Time             `json:"expiresAt"`
	Authorization *AuthorizationPayload `json:"authorization,omitempty"`
}

// Expired reports whether the intent's lifetime has elapsed at t.
func (p *PaymentIntent) Expired(t time.Time) bool {
	return !t.Before(p.ExpiresAt)
}

// AuthorizationDomain describes the EIP-712 signing domain of the
// settlement asset contract.
type AuthorizationDomain struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	ChainID           int64  `json:"chainId"`
	VerifyingContract string `json:"verifyingContract"`
}

// AuthorizationMessage carries the EIP-3009 transferWithAuthorization
// fields. Value is the transfer amount in the asset's base units.
type AuthorizationMessage struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	ValidAfter  int64  `json:"validAfter"`
	ValidBefore int64  `json:"validBefore"`
	Nonce       string `json:"nonce"`
}

// AuthorizationPayload is the signable description of a single-use,
// time-windowed transfer. It is immutable once a signature is attached
// out-of-band.
type AuthorizationPayload struct {
	Domain      AuthorizationDomain  `json:"domain"`
	Message     AuthorizationMessage `json:"message"`
	PrimaryType string               `json:"primaryType"`
}

type SettlementStatus string

const (
	SettlementConfirmed SettlementStatus = "confirmed"
	SettlementFailed    SettlementStatus = "failed"
	SettlementPending   SettlementStatus = "pending"
)

// PaymentReceipt is write-once. It is either produced by the settlement
// executor after a submission, or supplied by a caller that settled
// externally and only reports back.
type PaymentReceipt struct {
	IntentID    string           `json:"intentId"`
	TxHash      string           `json:"txHash"`
	Status      SettlementStatus `json:"status"`
	Amount      float64          `json:"amount"`
	Token       string           `json:"token"`
	Chain       string           `json:"chain"`
	BlockNumber uint64           `json:"blockNumber,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

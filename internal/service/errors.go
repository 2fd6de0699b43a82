// internal/service/errors.go
package service

import (
	"fmt"
	"strings"
)

// Canonical failure codes for the validation and settlement layers.
const (
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeRateLimited           = "RATE_LIMITED"
	ErrCodeIntentExpired         = "INTENT_EXPIRED"
	ErrCodeInvalidAuthorization  = "INVALID_AUTHORIZATION"
	ErrCodeInsufficientFunds     = "INSUFFICIENT_FUNDS"
	ErrCodeInsufficientAllowance = "INSUFFICIENT_ALLOWANCE"
	ErrCodeLedgerUnavailable     = "LEDGER_UNAVAILABLE"
	ErrCodeUnknown               = "UNKNOWN"
)

// PaymentError is the typed error carried across the validation and
// settlement layers. Code is always one of the canonical codes above.
type PaymentError struct {
	Code    string
	Message string
	Cause   error
}

func (e *PaymentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PaymentError) Unwrap() error {
	return e.Cause
}

// NewPaymentError creates a new PaymentError.
func NewPaymentError(code, message string, cause error) *PaymentError {
	return &PaymentError{Code: code, Message: message, Cause: cause}
}

// ErrorCode extracts the canonical code from an error, or UNKNOWN.
func ErrorCode(err error) string {
	if pe, ok := err.(*PaymentError); ok {
		return pe.Code
	}
	return ErrCodeUnknown
}

// Substring patterns observed in raw ledger/RPC failures, in match
// priority order. Unmatched errors fall through to UNKNOWN; nothing here
// may panic or crash the process.
var ledgerErrorPatterns = []struct {
	substrings []string
	code       string
	message    string
}{
	{[]string{"insufficient allowance", "transfer amount exceeds allowance"}, ErrCodeInsufficientAllowance, "spender allowance too low"},
	{[]string{"insufficient funds", "transfer amount exceeds balance", "exceeds balance"}, ErrCodeInsufficientFunds, "sender balance too low"},
	{[]string{"invalid signature", "authorization is not yet valid", "authorization is expired", "authorization is used", "nonce already used"}, ErrCodeInvalidAuthorization, "authorization rejected by ledger"},
	{[]string{"connection refused", "no such host", "timeout", "deadline exceeded", "502", "503", "service unavailable", "too many requests"}, ErrCodeLedgerUnavailable, "ledger endpoint unavailable"},
}

// MapLedgerError folds a raw ledger/network failure into the canonical
// taxonomy. A nil error maps to nil.
func MapLedgerError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*PaymentError); ok {
		return err
	}

	raw := strings.ToLower(err.Error())
	for _, pattern := range ledgerErrorPatterns {
		for _, sub := range pattern.substrings {
			if strings.Contains(raw, sub) {
				return NewPaymentError(pattern.code, pattern.message, err)
			}
		}
	}

	return NewPaymentError(ErrCodeUnknown, "unclassified ledger failure", err)
}

// internal/checks/tls_test.go
package checks

import (
	"context"
	"testing"

	"snowrail/internal/models"
)

func TestTLSCheckPlainHTTPIsCritical(t *testing.T) {
	check := NewTLSCheck()

	result, err := check.Evaluate(context.Background(), &models.ValidationRequest{URL: "http://pay.example.com"})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if result.Passed {
		t.Error("plain http must not pass the certificate check")
	}
	if result.Risk != models.RiskCritical {
		t.Errorf("Risk = %s, want critical", result.Risk)
	}
	if result.Score != 0 {
		t.Errorf("Score = %d, want 0", result.Score)
	}
}

func TestTLSCheckInvalidURL(t *testing.T) {
	check := NewTLSCheck()

	if _, err := check.Evaluate(context.Background(), &models.ValidationRequest{URL: ""}); err == nil {
		t.Error("expected error for empty url")
	}
}

func TestDNSCheckRawIPIsHighRisk(t *testing.T) {
	check := NewDNSCheck()

	result, err := check.Evaluate(context.Background(), &models.ValidationRequest{URL: "https://203.0.113.10/pay"})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if result.Passed {
		t.Error("raw ip destination must not pass")
	}
	if result.Risk != models.RiskHigh {
		t.Errorf("Risk = %s, want high", result.Risk)
	}
}

// internal/checks/compliance.go
// Known processor and protocol markers
package checks

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"snowrail/internal/models"
)

// ComplianceCheck scores static compliance markers of the destination:
// known payment processor domains, suspicious TLDs, and phishing-style
// hostname patterns. It performs no network calls.
type ComplianceCheck struct{}

func NewComplianceCheck() *ComplianceCheck {
	return &ComplianceCheck{}
}

func (c *ComplianceCheck) Type() string { return "compliance" }
func (c *ComplianceCheck) Category() models.CheckCategory { return models.CategoryCompliance }

// Domains operated by established payment processors or protocol
// facilitators. Matching a suffix here is a strong positive signal.
var knownProcessors = []string{
	"stripe.com",
	"paypal.com",
	"squareup.com",
	"adyen.com",
	"coinbase.com",
	"circle.com",
	"x402.org",
}

// TLDs disproportionately used by throwaway payment scams.
var suspiciousTLDs = []string{".xyz", ".tk", ".ml", ".ga", ".cf", ".gq", ".top", ".click"}

// Hostname fragments common in payment phishing.
var phishingMarkers = []string{"free-money", "airdrop", "double-your", "giveaway", "claim-reward"}

func (c *ComplianceCheck) Evaluate(ctx context.Context, req *models.ValidationRequest) (*models.CheckResult, error) {
	start := time.Now()

	result := &models.CheckResult{
		Type:     c.Type(),
		Category: c.Category(),
		Name:     "Compliance Markers",
		Details:  make(map[string]interface{}),
	}

	u, err := url.Parse(req.URL)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid destination url: %q", req.URL)
	}
	host := strings.ToLower(u.Hostname())

	for _, processor := range knownProcessors {
		if host == processor || strings.HasSuffix(host, "."+processor) {
			result.Passed = true
			result.Score = 98
			result.Confidence = 1.0
			result.Risk = models.RiskNone
			result.Details["knownProcessor"] = processor
			result.DurationMS = time.Since(start).Milliseconds()
			return result, nil
		}
	}

	score := 65
	risk := models.RiskLow

	for _, tld := range suspiciousTLDs {
		if strings.HasSuffix(host, tld) {
			score -= 35
			risk = models.RiskHigh
			result.Details["suspiciousTLD"] = tld
			break
		}
	}

	for _, marker := range phishingMarkers {
		if strings.Contains(host, marker) {
			score -= 50
			risk = models.RiskCritical
			result.Details["phishingMarker"] = marker
			break
		}
	}

	// Deep subdomain chains are a weak negative signal.
	if strings.Count(host, ".") >= 4 {
		score -= 10
		result.Details["deepSubdomain"] = true
	}

	if score < 0 {
		score = 0
	}

	result.Score = score
	result.Passed = score >= 50
	result.Confidence = 0.75
	result.Risk = risk
	result.DurationMS = time.Since(start).Milliseconds()
	return result, nil
}

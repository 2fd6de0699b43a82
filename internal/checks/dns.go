// internal/checks/dns.go
// Name-resolution security check
package checks

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"snowrail/internal/models"
)

// DNSCheck verifies that the destination host resolves and looks at
// resolution signals that correlate with throwaway or hijacked domains.
type DNSCheck struct {
	resolver *net.Resolver
}

func NewDNSCheck() *DNSCheck {
	return &DNSCheck{resolver: net.DefaultResolver}
}

func (c *DNSCheck) Type() string { return "dns" }
func (c *DNSCheck) Category() models.CheckCategory { return models.CategoryIdentity }

func (c *DNSCheck) Evaluate(ctx context.Context, req *models.ValidationRequest) (*models.CheckResult, error) {
	start := time.Now()

	result := &models.CheckResult{
		Type:     c.Type(),
		Category: c.Category(),
		Name:     "DNS Resolution",
		Details:  make(map[string]interface{}),
	}

	u, err := url.Parse(req.URL)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid destination url: %q", req.URL)
	}
	host := u.Hostname()

	// A bare IP destination bypasses name-based trust entirely.
	if net.ParseIP(host) != nil {
		result.Passed = false
		result.Score = 20
		result.Confidence = 1.0
		result.Risk = models.RiskHigh
		result.Details["reason"] = "destination is a raw ip address"
		result.DurationMS = time.Since(start).Milliseconds()
		return result, nil
	}

	addrs, err := c.resolver.LookupHost(ctx, host)
	if err != nil {
		result.Passed = false
		result.Score = 0
		result.Confidence = 0.9
		result.Risk = models.RiskCritical
		result.Details["error"] = err.Error()
		result.Details["reason"] = "host does not resolve"
		result.DurationMS = time.Since(start).Milliseconds()
		return result, nil
	}

	result.Details["addresses"] = addrs
	result.Details["addressCount"] = len(addrs)

	// MX and TXT records are weak positive signals of an operated domain.
	if mx, err := c.resolver.LookupMX(ctx, host); err == nil && len(mx) > 0 {
		result.Details["hasMX"] = true
	}
	if txt, err := c.resolver.LookupTXT(ctx, host); err == nil {
		for _, record := range txt {
			if strings.HasPrefix(record, "v=spf1") {
				result.Details["hasSPF"] = true
				break
			}
		}
	}

	score := 70
	if len(addrs) > 1 {
		score += 10
	}
	if result.Details["hasMX"] == true {
		score += 10
	}
	if result.Details["hasSPF"] == true {
		score += 10
	}
	if score > 100 {
		score = 100
	}

	result.Passed = true
	result.Score = score
	result.Confidence = 0.85
	result.Risk = models.RiskNone
	if score < 80 {
		result.Risk = models.RiskLow
	}
	result.DurationMS = time.Since(start).Milliseconds()
	return result, nil
}

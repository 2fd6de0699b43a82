// internal/checks/infrastructure.go
// Hosting and security-header signals
package checks

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"snowrail/internal/models"
)

// InfrastructureCheck probes the destination over HTTP and scores hosting
// and security-header signals.
type InfrastructureCheck struct {
	client *http.Client
}

func NewInfrastructureCheck() *InfrastructureCheck {
	return &InfrastructureCheck{
		client: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

func (c *InfrastructureCheck) Type() string { return "infrastructure" }
func (c *InfrastructureCheck) Category() models.CheckCategory { return models.CategoryInfrastructure }

// Response headers that indicate a hardened deployment, with the score
// contribution of each.
var securityHeaders = map[string]int{
	"Strict-Transport-Security": 15,
	"Content-Security-Policy":   10,
	"X-Content-Type-Options":    5,
	"X-Frame-Options":           5,
}

// Server/CDN fingerprints of established hosting providers.
var knownProviders = []string{"cloudflare", "cloudfront", "fastly", "akamai", "vercel", "netlify", "gws", "awselb"}

func (c *InfrastructureCheck) Evaluate(ctx context.Context, req *models.ValidationRequest) (*models.CheckResult, error) {
	start := time.Now()

	result := &models.CheckResult{
		Type:     c.Type(),
		Category: c.Category(),
		Name:     "Infrastructure",
		Details:  make(map[string]interface{}),
	}

	u, err := url.Parse(req.URL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid destination url: %q", req.URL)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodHead, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build probe request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		result.Passed = false
		result.Score = 15
		result.Confidence = 0.7
		result.Risk = models.RiskHigh
		result.Details["error"] = err.Error()
		result.Details["reason"] = "destination unreachable"
		result.DurationMS = time.Since(start).Milliseconds()
		return result, nil
	}
	defer resp.Body.Close()

	score := 50
	var present []string
	for header, points := range securityHeaders {
		if resp.Header.Get(header) != "" {
			score += points
			present = append(present, header)
		}
	}
	result.Details["securityHeaders"] = present
	result.Details["statusCode"] = resp.StatusCode

	server := strings.ToLower(resp.Header.Get("Server"))
	for _, provider := range knownProviders {
		if strings.Contains(server, provider) {
			score += 15
			result.Details["provider"] = provider
			break
		}
	}

	if resp.StatusCode >= 500 {
		score -= 20
		result.Details["reason"] = "destination returning server errors"
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	result.Score = score
	result.Passed = score >= 50
	result.Confidence = 0.8
	switch {
	case score >= 80:
		result.Risk = models.RiskNone
	case score >= 60:
		result.Risk = models.RiskLow
	case score >= 40:
		result.Risk = models.RiskMedium
	default:
		result.Risk = models.RiskHigh
	}
	result.DurationMS = time.Since(start).Milliseconds()
	return result, nil
}

// internal/checks/tls.go
// Certificate validity check
package checks

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"time"

	"snowrail/internal/models"
)

const tlsDialTimeout = 5 * time.Second

// TLSCheck inspects the destination's certificate chain. A plain-HTTP
// destination or an invalid chain is a critical failure because payment
// credentials must never travel over an unauthenticated channel.
type TLSCheck struct{}

func NewTLSCheck() *TLSCheck {
	return &TLSCheck{}
}

func (c *TLSCheck) Type() string { return "tls" }
func (c *TLSCheck) Category() models.CheckCategory { return models.CategoryIdentity }

func (c *TLSCheck) Evaluate(ctx context.Context, req *models.ValidationRequest) (*models.CheckResult, error) {
	start := time.Now()

	result := &models.CheckResult{
		Type:     c.Type(),
		Category: c.Category(),
		Name:     "TLS Certificate",
		Details:  make(map[string]interface{}),
	}

	u, err := url.Parse(req.URL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid destination url: %q", req.URL)
	}

	if u.Scheme != "https" {
		result.Passed = false
		result.Score = 0
		result.Confidence = 1.0
		result.Risk = models.RiskCritical
		result.Details["reason"] = "destination does not use https"
		result.DurationMS = time.Since(start).Milliseconds()
		return result, nil
	}

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "443"
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: tlsDialTimeout},
		Config:    &tls.Config{ServerName: host},
	}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		result.Passed = false
		result.Score = 10
		result.Confidence = 0.8
		result.Risk = models.RiskCritical
		result.Details["error"] = err.Error()
		result.DurationMS = time.Since(start).Milliseconds()
		return result, nil
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	cert := state.PeerCertificates[0]
	now := time.Now()
	daysLeft := int(cert.NotAfter.Sub(now).Hours() / 24)

	result.Details["issuer"] = cert.Issuer.CommonName
	result.Details["subject"] = cert.Subject.CommonName
	result.Details["notAfter"] = cert.NotAfter.UTC().Format(time.RFC3339)
	result.Details["daysUntilExpiry"] = daysLeft
	result.Details["tlsVersion"] = state.Version

	switch {
	case now.After(cert.NotAfter):
		result.Passed = false
		result.Score = 5
		result.Risk = models.RiskCritical
		result.Details["reason"] = "certificate expired"
	case daysLeft < 14:
		result.Passed = true
		result.Score = 60
		result.Risk = models.RiskMedium
		result.Details["reason"] = "certificate expires soon"
	case state.Version < tls.VersionTLS12:
		result.Passed = false
		result.Score = 30
		result.Risk = models.RiskHigh
		result.Details["reason"] = "legacy tls version"
	default:
		result.Passed = true
		result.Score = 95
		result.Risk = models.RiskNone
	}

	result.Confidence = 0.95
	result.DurationMS = time.Since(start).Milliseconds()
	return result, nil
}

// internal/ledger/client.go
// HTTP client for the settlement ledger facilitator
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"snowrail/internal/models"
)

// TransferResult is the ledger's answer to a transfer submission.
type TransferResult struct {
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
	Confirmed   bool   `json:"confirmed"`
}

// CostEstimate is the ledger's execution cost quote in base units.
type CostEstimate struct {
	Cost uint64 `json:"cost"`
}

// Client talks to the ledger facilitator over HTTP. Calls block until the
// ledger confirms or fails; retry policy belongs to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type executeTransferRequest struct {
	Authorization *models.AuthorizationPayload `json:"authorization"`
	Signature     string                       `json:"signature"`
	GasLimit      uint64                       `json:"gasLimit,omitempty"`
}

// ExecuteTransfer submits a signed transferWithAuthorization and blocks
// until the ledger confirms or the call fails.
func (c *Client) ExecuteTransfer(ctx context.Context, auth *models.AuthorizationPayload, signature string, gasLimit uint64) (*TransferResult, error) {
	var result TransferResult
	err := c.post(ctx, "/v1/ledger/transfer/authorized", &executeTransferRequest{
		Authorization: auth,
		Signature:     signature,
		GasLimit:      gasLimit,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

type directTransferRequest struct {
	To        string `json:"to"`
	Value     string `json:"value"`
	Reference string `json:"reference,omitempty"`
}

// DirectTransfer moves funds via transferFrom, relying on a pre-existing
// spending approval on the asset.
func (c *Client) DirectTransfer(ctx context.Context, to, value, reference string) (*TransferResult, error) {
	var result TransferResult
	err := c.post(ctx, "/v1/ledger/transfer/direct", &directTransferRequest{
		To:        to,
		Value:     value,
		Reference: reference,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// EstimateCost quotes the execution cost of an authorized transfer.
func (c *Client) EstimateCost(ctx context.Context, auth *models.AuthorizationPayload) (uint64, error) {
	var estimate CostEstimate
	err := c.post(ctx, "/v1/ledger/estimate", &executeTransferRequest{Authorization: auth}, &estimate)
	if err != nil {
		return 0, err
	}
	return estimate.Cost, nil
}

type allowanceResponse struct {
	Allowance string `json:"allowance"`
	Nonce     uint64 `json:"nonce"`
}

// Allowance reads the remaining spending approval for the treasury.
func (c *Client) Allowance(ctx context.Context, owner string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/ledger/allowance?owner=%s", c.baseURL, owner), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create allowance request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call ledger allowance endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ledger allowance returned status %d: %s", resp.StatusCode, string(body))
	}

	var allowance allowanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&allowance); err != nil {
		return "", fmt.Errorf("failed to decode allowance response: %w", err)
	}
	return allowance.Allowance, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call ledger endpoint %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ledger %s returned status %d: %s", path, resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode ledger response: %w", err)
	}
	return nil
}

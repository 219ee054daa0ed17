// Package httpapi implements a settlement ledger backed by the token
// settlement layer's HTTP API.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/roadwars/roadwars/internal/arbiter/settlement"
	apperrors "github.com/roadwars/roadwars/internal/platform/errors"
)

type burnRequest struct {
	OwnerRef string `json:"owner_ref"`
	Amount   int64  `json:"amount"`
}

type burnResponse struct {
	Receipt string `json:"receipt"`
}

type balanceResponse struct {
	Balance int64 `json:"balance"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Client calls the settlement layer over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a settlement client for the given base URL.
func NewClient(baseURL, apiKey string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  client,
	}
}

// Burn requests an irreversible token burn and returns the signed receipt.
func (c *Client) Burn(ctx context.Context, ownerRef string, amount int64) (settlement.Receipt, error) {
	body, err := json.Marshal(burnRequest{OwnerRef: ownerRef, Amount: amount})
	if err != nil {
		return settlement.Receipt{}, fmt.Errorf("encode burn request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/burns", bytes.NewReader(body))
	if err != nil {
		return settlement.Receipt{}, fmt.Errorf("build burn request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return settlement.Receipt{}, apperrors.Wrap(apperrors.CodeSettlementFailed, "burn request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusUnprocessableEntity, http.StatusPaymentRequired:
		return settlement.Receipt{}, settlement.ErrInsufficientBalance
	default:
		return settlement.Receipt{}, statusError("burn", resp)
	}

	var result burnResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return settlement.Receipt{}, apperrors.Wrap(apperrors.CodeSettlementFailed, "decode burn response", err)
	}
	if result.Receipt == "" {
		return settlement.Receipt{}, apperrors.New(apperrors.CodeSettlementFailed, "burn response has no receipt")
	}
	return settlement.Receipt{Token: result.Receipt}, nil
}

// Balance reports the owner's spendable token balance.
func (c *Client) Balance(ctx context.Context, ownerRef string) (int64, error) {
	endpoint := c.baseURL + "/v1/balances/" + url.PathEscape(ownerRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build balance request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeSettlementFailed, "balance request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, statusError("balance", resp)
	}

	var result balanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, apperrors.Wrap(apperrors.CodeSettlementFailed, "decode balance response", err)
	}
	return result.Balance, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// statusError reads the error body, if any, and wraps the failure with the
// settlement unavailable code so callers surface it uniformly.
func statusError(op string, resp *http.Response) error {
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return apperrors.WithMetadata(
			apperrors.CodeSettlementFailed,
			fmt.Sprintf("%s returned %s", op, resp.Status),
			map[string]string{"RemoteError": body.Error},
		)
	}
	return apperrors.New(apperrors.CodeSettlementFailed, fmt.Sprintf("%s returned %s", op, resp.Status))
}

var _ settlement.Ledger = (*Client)(nil)

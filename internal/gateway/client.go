// Package gateway talks to the hosted-checkout payment gateway: an outbound
// charge-creation call and verification of the signed notifications it posts
// back. The gateway itself is a black box; only the token and the status
// vocabulary matter to the ledger.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client struct {
	BaseURL    string
	ServerKey  string
	HTTPClient *http.Client
}

func NewClient(baseURL, serverKey string) *Client {
	return &Client{
		BaseURL:    baseURL,
		ServerKey:  serverKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type ChargeItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type ChargeCustomer struct {
	Name  string `json:"first_name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type ChargeRequest struct {
	OrderID     string         `json:"order_id"`
	GrossAmount int64          `json:"gross_amount"`
	Customer    ChargeCustomer `json:"customer_details"`
	Items       []ChargeItem   `json:"item_details,omitempty"`
}

// ChargeResponse carries the opaque checkout token. The ledger stores it for
// client consumption and derives no logic from it.
type ChargeResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// CreateCharge asks the gateway for a hosted-checkout token. OrderID doubles
// as the idempotency key on the gateway side.
func (c *Client) CreateCharge(ctx context.Context, req ChargeRequest) (*ChargeResponse, error) {
	payload := map[string]interface{}{
		"transaction_details": map[string]interface{}{
			"order_id":     req.OrderID,
			"gross_amount": req.GrossAmount,
		},
		"customer_details": req.Customer,
	}
	if len(req.Items) > 0 {
		payload["item_details"] = req.Items
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/snap/v1/transactions", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(c.ServerKey, "")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("create charge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("create charge: gateway returned %d: %s", resp.StatusCode, string(raw))
	}

	var res ChargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode charge response: %w", err)
	}
	return &res, nil
}

// Package sadad implements the gateway client for the Sadad payment
// gateway (https://sadad.shaparak.ir/).
package sadad

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/yourorg/payment-core/internal/config"
)

// resCodeOK is Sadad's success result code.
const resCodeOK = 0

// Client talks to the Sadad HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	merchantID string
	apiKey     string
	callback   string
}

// NewClient creates a Sadad client with the configured endpoint,
// credentials and a connect/read timeout split.
func NewClient(pc config.ProviderConfig, connectTimeout, readTimeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: readTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		},
		baseURL:    pc.BaseURL,
		merchantID: pc.MerchantID,
		apiKey:     pc.APIKey,
		callback:   pc.CallbackURL,
	}
}

type sadadRequest struct {
	MerchantID string `json:"MerchantId"`
	OrderID    string `json:"OrderId"`
	Amount     string `json:"Amount,omitempty"`
	ReturnURL  string `json:"ReturnUrl,omitempty"`
}

type sadadResponse struct {
	ResCode     int    `json:"ResCode"`
	Description string `json:"Description"`
	Token       string `json:"Token"`
}

// Initiate begins a payment for the order.
func (c *Client) Initiate(ctx context.Context, amount, orderRef string) (bool, error) {
	res, err := c.post(ctx, "/request", sadadRequest{
		MerchantID: c.merchantID,
		OrderID:    orderRef,
		Amount:     amount,
		ReturnURL:  c.callback,
	})
	if err != nil {
		return false, err
	}
	return res.ResCode == resCodeOK, nil
}

// Refund returns funds for the order.
func (c *Client) Refund(ctx context.Context, amount, orderRef string) (bool, error) {
	res, err := c.post(ctx, "/refund", sadadRequest{
		MerchantID: c.merchantID,
		OrderID:    orderRef,
		Amount:     amount,
	})
	if err != nil {
		return false, err
	}
	return res.ResCode == resCodeOK, nil
}

// CheckStatus reports whether Sadad confirms completion.
func (c *Client) CheckStatus(ctx context.Context, orderRef string) (bool, error) {
	res, err := c.post(ctx, "/verify", sadadRequest{MerchantID: c.merchantID, OrderID: orderRef})
	if err != nil {
		return false, err
	}
	return res.ResCode == resCodeOK, nil
}

// Cancel voids an initiated payment.
func (c *Client) Cancel(ctx context.Context, orderRef string) (bool, error) {
	res, err := c.post(ctx, "/cancel", sadadRequest{MerchantID: c.merchantID, OrderID: orderRef})
	if err != nil {
		return false, err
	}
	return res.ResCode == resCodeOK, nil
}

// Extend prolongs an authorization hold.
func (c *Client) Extend(ctx context.Context, orderRef string) (bool, error) {
	res, err := c.post(ctx, "/extend", sadadRequest{MerchantID: c.merchantID, OrderID: orderRef})
	if err != nil {
		return false, err
	}
	return res.ResCode == resCodeOK, nil
}

// Inquire returns Sadad's status text for the order.
func (c *Client) Inquire(ctx context.Context, orderRef string) (string, error) {
	res, err := c.post(ctx, "/inquiry", sadadRequest{MerchantID: c.merchantID, OrderID: orderRef})
	if err != nil {
		return "", err
	}
	return res.Description, nil
}

func (c *Client) post(ctx context.Context, path string, payload sadadRequest) (sadadResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return sadadResponse{}, fmt.Errorf("sadad: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return sadadResponse{}, fmt.Errorf("sadad: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return sadadResponse{}, fmt.Errorf("sadad: %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return sadadResponse{}, fmt.Errorf("sadad: reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return sadadResponse{}, fmt.Errorf("sadad: %s returned HTTP %d: %s", path, resp.StatusCode, raw)
	}

	var decoded sadadResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return sadadResponse{}, fmt.Errorf("sadad: malformed response: %w", err)
	}
	return decoded, nil
}

// Package sep implements the gateway client for the Sep payment
// gateway (https://sep.shaparak.ir/). Sep reports outcomes through a
// textual State field rather than Sadad's numeric result codes.
package sep

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yourorg/payment-core/internal/config"
)

const stateOK = "OK"

// Client talks to the Sep HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	terminalID string
	apiKey     string
	redirect   string
}

// NewClient creates a Sep client with the configured endpoint,
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
		terminalID: pc.MerchantID,
		apiKey:     pc.APIKey,
		redirect:   pc.CallbackURL,
	}
}

type sepRequest struct {
	TerminalID  string `json:"TerminalId"`
	ResNum      string `json:"ResNum"`
	Amount      string `json:"Amount,omitempty"`
	RedirectURL string `json:"RedirectUrl,omitempty"`
	Action      string `json:"Action"`
}

type sepResponse struct {
	State   string `json:"State"`
	Status  string `json:"Status"`
	RefNum  string `json:"RefNum"`
	Message string `json:"Message"`
}

func (r sepResponse) ok() bool {
	return strings.EqualFold(r.State, stateOK)
}

// Initiate begins a payment for the order.
func (c *Client) Initiate(ctx context.Context, amount, orderRef string) (bool, error) {
	res, err := c.post(ctx, sepRequest{
		TerminalID:  c.terminalID,
		ResNum:      orderRef,
		Amount:      amount,
		RedirectURL: c.redirect,
		Action:      "token",
	})
	if err != nil {
		return false, err
	}
	return res.ok(), nil
}

// Refund returns funds for the order.
func (c *Client) Refund(ctx context.Context, amount, orderRef string) (bool, error) {
	res, err := c.post(ctx, sepRequest{
		TerminalID: c.terminalID,
		ResNum:     orderRef,
		Amount:     amount,
		Action:     "refund",
	})
	if err != nil {
		return false, err
	}
	return res.ok(), nil
}

// CheckStatus reports whether Sep confirms completion.
func (c *Client) CheckStatus(ctx context.Context, orderRef string) (bool, error) {
	res, err := c.post(ctx, sepRequest{TerminalID: c.terminalID, ResNum: orderRef, Action: "verify"})
	if err != nil {
		return false, err
	}
	return res.ok(), nil
}

// Cancel voids an initiated payment.
func (c *Client) Cancel(ctx context.Context, orderRef string) (bool, error) {
	res, err := c.post(ctx, sepRequest{TerminalID: c.terminalID, ResNum: orderRef, Action: "reverse"})
	if err != nil {
		return false, err
	}
	return res.ok(), nil
}

// Extend prolongs an authorization hold.
func (c *Client) Extend(ctx context.Context, orderRef string) (bool, error) {
	res, err := c.post(ctx, sepRequest{TerminalID: c.terminalID, ResNum: orderRef, Action: "extend"})
	if err != nil {
		return false, err
	}
	return res.ok(), nil
}

// Inquire returns Sep's status text for the order.
func (c *Client) Inquire(ctx context.Context, orderRef string) (string, error) {
	res, err := c.post(ctx, sepRequest{TerminalID: c.terminalID, ResNum: orderRef, Action: "inquiry"})
	if err != nil {
		return "", err
	}
	if res.Message != "" {
		return res.Message, nil
	}
	return res.Status, nil
}

func (c *Client) post(ctx context.Context, payload sepRequest) (sepResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return sepResponse{}, fmt.Errorf("sep: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return sepResponse{}, fmt.Errorf("sep: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return sepResponse{}, fmt.Errorf("sep: %s: %w", payload.Action, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return sepResponse{}, fmt.Errorf("sep: reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return sepResponse{}, fmt.Errorf("sep: %s returned HTTP %d: %s", payload.Action, resp.StatusCode, raw)
	}

	var decoded sepResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return sepResponse{}, fmt.Errorf("sep: malformed response: %w", err)
	}
	return decoded, nil
}

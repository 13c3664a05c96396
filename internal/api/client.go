package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxReplySize bounds how much of a gateway reply is read.
const maxReplySize = 1 << 20

// APIError is returned when the gateway answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway error %d: %s", e.StatusCode, e.Message)
}

// Client talks to a running gateway over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the gateway at baseURL. Submit waits for
// confirmation, so the timeout should cover a full confirmation window.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Balance calls POST /balance.
func (c *Client) Balance(ctx context.Context, req BalanceRequest) (*BalanceResponse, error) {
	var out BalanceResponse
	if err := c.do(ctx, http.MethodPost, "/balance", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Shield calls POST /shield.
func (c *Client) Shield(ctx context.Context, req ShieldRequest) (*ShieldResponse, error) {
	var out ShieldResponse
	if err := c.do(ctx, http.MethodPost, "/shield", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Withdraw calls POST /withdraw.
func (c *Client) Withdraw(ctx context.Context, req WithdrawRequest) (*WithdrawResponse, error) {
	var out WithdrawResponse
	if err := c.do(ctx, http.MethodPost, "/withdraw", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Submit calls POST /submit.
func (c *Client) Submit(ctx context.Context, signedTx string) (*SubmitResponse, error) {
	var out SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/submit", SubmitRequest{SignedTx: signedTx}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status calls GET /status. An unhealthy gateway is not an error: the
// reply carries Healthy=false and the reason.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	err := c.do(ctx, http.MethodGet, "/status", nil, &out)
	if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusServiceUnavailable {
		return &StatusResponse{Healthy: false, Error: apiErr.Message}, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e ErrorResponse
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

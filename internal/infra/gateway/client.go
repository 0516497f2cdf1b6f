package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"elearning-platform/internal/domain/ports/adapter"
	"elearning-platform/internal/infra/metrics"
)

const secretKeyPrefix = "sk_"
const publicKeyPrefix = "pk_"

// Ensure compile-time conformance
var _ adapter.PaymentGateway = (*Client)(nil)

// Client talks to the external payment provider's transaction API.
// It is a pure translation layer: no side effects beyond the HTTP call.
type Client struct {
	secretKey string
	baseURL   string
	http      *http.Client
	retry     RetryPolicy
}

func NewClient(secretKey, baseURL string, timeout time.Duration, retry RetryPolicy) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: timeout},
		retry:     retry,
	}
}

func (c *Client) Name() string { return "gateway" }

// checkCredential is the fast local validation run before any round trip.
func (c *Client) checkCredential() error {
	if c.secretKey == "" {
		return ErrConfig
	}
	if strings.HasPrefix(c.secretKey, publicKeyPrefix) {
		return ErrUnauthorized
	}
	return nil
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string                 `json:"status"`
		Amount    int64                  `json:"amount"`
		Reference string                 `json:"reference"`
		Metadata  map[string]interface{} `json:"metadata"`
	} `json:"data"`
}

// Initialize creates a transaction on the provider side and returns the
// redirect target. Retried per policy on transport failures and 5xx only.
func (c *Client) Initialize(ctx context.Context, email string, amountMinor int64, currency, callbackURL string, meta map[string]interface{}) (*adapter.InitializeResult, error) {
	if err := c.checkCredential(); err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"email":        email,
		"amount":       amountMinor,
		"currency":     currency,
		"callback_url": callbackURL,
	}
	if meta != nil {
		payload["metadata"] = meta
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal initialize request: %w", err)
	}

	var out *adapter.InitializeResult
	err = c.retry.do(ctx, func() error {
		start := time.Now()
		res, err := c.roundTrip(ctx, "initialize", http.MethodPost, "/transaction/initialize", body)
		metrics.ObserveGatewayRequest("initialize", err == nil, time.Since(start))
		if err != nil {
			return err
		}
		var parsed initializeResponse
		if err := json.Unmarshal(res, &parsed); err != nil {
			return permanent("initialize", 0, fmt.Sprintf("unmarshal response: %v", err))
		}
		if !parsed.Status {
			return permanent("initialize", 0, parsed.Message)
		}
		out = &adapter.InitializeResult{
			AuthorizationURL: parsed.Data.AuthorizationURL,
			AccessCode:       parsed.Data.AccessCode,
			Reference:        parsed.Data.Reference,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Verify asks the provider for the final state of a transaction. A
// reported failure is a normal result, not an error. Verify is not
// retried internally; the caller (webhook redelivery, browser re-poll,
// reconciler) is the retry loop.
func (c *Client) Verify(ctx context.Context, reference string) (*adapter.VerifyResult, error) {
	if err := c.checkCredential(); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := c.roundTrip(ctx, "verify", http.MethodGet, "/transaction/verify/"+reference, nil)
	metrics.ObserveGatewayRequest("verify", err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}
	var parsed verifyResponse
	if err := json.Unmarshal(res, &parsed); err != nil {
		return nil, permanent("verify", 0, fmt.Sprintf("unmarshal response: %v", err))
	}
	if !parsed.Status {
		return nil, permanent("verify", 0, parsed.Message)
	}
	return &adapter.VerifyResult{
		Success:          parsed.Data.Status == "success",
		AmountMinor:      parsed.Data.Amount,
		GatewayReference: parsed.Data.Reference,
		Metadata:         parsed.Data.Metadata,
	}, nil
}

// roundTrip performs one HTTP exchange and classifies the outcome:
// transport errors and 5xx are transient, 4xx is permanent.
func (c *Client) roundTrip(ctx context.Context, call, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, permanent(call, 0, fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transient(call, err, fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transient(call, err, fmt.Sprintf("read response: %v", err))
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, &Error{Call: call, StatusCode: resp.StatusCode, Message: providerMessage(data), Transient: true}
	case resp.StatusCode >= 400:
		return nil, permanent(call, resp.StatusCode, providerMessage(data))
	}
	return data, nil
}

// providerMessage pulls the human-readable message out of an error body
// for operator diagnosis. Falls back to a truncated raw body.
func providerMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Message != "" {
		return envelope.Message
	}
	s := string(body)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

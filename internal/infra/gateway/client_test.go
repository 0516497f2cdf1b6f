//go:build !integration

package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// instantRetry retries without sleeping so tests stay fast.
func instantRetry(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries: maxRetries,
		Backoff:    func(int) time.Duration { return 0 },
	}
}

func TestClient_CredentialChecks(t *testing.T) {
	ctx := context.Background()

	t.Run("missing secret key fails locally", func(t *testing.T) {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
		}))
		defer srv.Close()

		c := NewClient("", srv.URL, time.Second, instantRetry(2))
		if _, err := c.Initialize(ctx, "a@b.c", 1000, "NGN", "https://cb", nil); !errors.Is(err, ErrConfig) {
			t.Fatalf("expected ErrConfig, got %v", err)
		}
		if _, err := c.Verify(ctx, "ref-1"); !errors.Is(err, ErrConfig) {
			t.Fatalf("expected ErrConfig, got %v", err)
		}
		if atomic.LoadInt32(&hits) != 0 {
			t.Error("no request may leave the process without a secret key")
		}
	})

	t.Run("public key is rejected without a round trip", func(t *testing.T) {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
		}))
		defer srv.Close()

		c := NewClient("pk_test_123", srv.URL, time.Second, instantRetry(2))
		if _, err := c.Verify(ctx, "ref-1"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if atomic.LoadInt32(&hits) != 0 {
			t.Error("a public key must be rejected before any request")
		}
	})
}

func TestClient_Initialize(t *testing.T) {
	ctx := context.Background()

	t.Run("retries transient failures then succeeds", func(t *testing.T) {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&hits, 1) <= 2 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			if got := r.Header.Get("Authorization"); got != "Bearer sk_test_abc" {
				t.Errorf("unexpected auth header %q", got)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{"authorization_url":"https://pay/x","access_code":"ac_1","reference":"ref_1"}}`))
		}))
		defer srv.Close()

		c := NewClient("sk_test_abc", srv.URL, time.Second, instantRetry(2))
		out, err := c.Initialize(ctx, "a@b.c", 1000, "NGN", "https://cb", map[string]interface{}{"plan_id": "p1"})
		if err != nil {
			t.Fatalf("expected success after retries, got: %v", err)
		}
		if out.Reference != "ref_1" || out.AuthorizationURL != "https://pay/x" {
			t.Errorf("unexpected result %+v", out)
		}
		if atomic.LoadInt32(&hits) != 3 {
			t.Errorf("expected 3 attempts, got %d", hits)
		}
	})

	t.Run("4xx is terminal and not retried", func(t *testing.T) {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":false,"message":"Invalid amount"}`))
		}))
		defer srv.Close()

		c := NewClient("sk_test_abc", srv.URL, time.Second, instantRetry(3))
		_, err := c.Initialize(ctx, "a@b.c", -5, "NGN", "https://cb", nil)
		var ge *Error
		if !errors.As(err, &ge) {
			t.Fatalf("expected *Error, got %v", err)
		}
		if ge.Temporary() {
			t.Error("4xx must be permanent")
		}
		if ge.Message != "Invalid amount" {
			t.Errorf("expected provider message, got %q", ge.Message)
		}
		if atomic.LoadInt32(&hits) != 1 {
			t.Errorf("expected a single attempt, got %d", hits)
		}
	})

	t.Run("exhausted retries surface the transient error", func(t *testing.T) {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		c := NewClient("sk_test_abc", srv.URL, time.Second, instantRetry(2))
		_, err := c.Initialize(ctx, "a@b.c", 1000, "NGN", "https://cb", nil)
		var ge *Error
		if !errors.As(err, &ge) || !ge.Temporary() {
			t.Fatalf("expected transient *Error, got %v", err)
		}
		if atomic.LoadInt32(&hits) != 3 {
			t.Errorf("expected 3 attempts, got %d", hits)
		}
	})
}

func TestClient_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("maps provider success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/transaction/verify/ref_9" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{"status":"success","amount":500000,"reference":"gw_9","metadata":{"plan_id":"p1"}}}`))
		}))
		defer srv.Close()

		c := NewClient("sk_test_abc", srv.URL, time.Second, instantRetry(0))
		out, err := c.Verify(ctx, "ref_9")
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if !out.Success || out.AmountMinor != 500000 || out.GatewayReference != "gw_9" {
			t.Errorf("unexpected result %+v", out)
		}
		if out.Metadata["plan_id"] != "p1" {
			t.Errorf("metadata not carried through: %v", out.Metadata)
		}
	})

	t.Run("provider-reported failure is a result, not an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{"status":"failed","amount":0,"reference":"gw_9"}}`))
		}))
		defer srv.Close()

		c := NewClient("sk_test_abc", srv.URL, time.Second, instantRetry(0))
		out, err := c.Verify(ctx, "ref_9")
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if out.Success {
			t.Error("failed transaction must not report success")
		}
	})

	t.Run("5xx surfaces as a transient error for the caller to retry", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := NewClient("sk_test_abc", srv.URL, time.Second, instantRetry(0))
		_, err := c.Verify(ctx, "ref_9")
		var ge *Error
		if !errors.As(err, &ge) || !ge.Temporary() {
			t.Fatalf("expected transient *Error, got %v", err)
		}
	})
}

func TestRetryPolicy_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := RetryPolicy{MaxRetries: 5, Backoff: func(int) time.Duration { return time.Hour }}
	calls := 0
	err := p.do(ctx, func() error {
		calls++
		return transient("verify", nil, "down")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("cancelled context must stop retries, got %d calls", calls)
	}
}

package adapter

import "context"

// InitializeResult is the provider's answer to a transaction-initialize
// call: where to send the browser, plus the reference both sides will use
// for the rest of the transaction's life.
type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// VerifyResult is the provider's answer to a verify call. Success=false
// is a normal business outcome, not an error.
type VerifyResult struct {
	Success          bool
	AmountMinor      int64
	GatewayReference string
	Metadata         map[string]interface{}
}

// PaymentGateway is the hex port for the external payment provider.
// Implementations own timeout and retry policy; callers see either a
// result or a terminal error.
type PaymentGateway interface {
	Name() string
	Initialize(ctx context.Context, email string, amountMinor int64, currency, callbackURL string, metadata map[string]interface{}) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
}

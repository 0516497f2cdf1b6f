package adapter

import "context"

// Notifier delivers best-effort user-facing messages (welcome, payment
// receipt). Failures are logged by callers and never affect the
// transaction that triggered them.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

package notify

import (
	"context"

	"github.com/rs/zerolog"

	"elearning-platform/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*LogNotifier)(nil)

// LogNotifier writes notifications to the log instead of delivering
// them. Stands in for a mail or SMS provider in development and tests.
type LogNotifier struct {
	log *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: logger}
}

func (n *LogNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	n.log.Info().
		Str("recipient", recipient).
		Str("subject", subject).
		Str("body", body).
		Msg("notification")
	return nil
}

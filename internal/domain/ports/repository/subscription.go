package repository

import (
	"context"

	"elearning-platform/internal/domain/model"
)

type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	// FindActiveByUser returns domain.ErrNotFound when the user has no
	// active subscription.
	FindActiveByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
	// DeactivateByUser flips every active row for the user to inactive.
	// Called unconditionally before inserting a new active row so the
	// single-active invariant holds even if earlier state was dirty.
	DeactivateByUser(ctx context.Context, tx Tx, userID string) error
}

package model

import (
	"time"

	"elearning-platform/internal/domain"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
)

// Subscription is one entitlement window for a user. At most one row per
// user is active at any time; activating a new one deactivates the old
// row instead of deleting it.
type Subscription struct {
	ID               string
	UserID           string
	PlanID           string // empty when the plan could not be resolved
	AmountMinor      int64
	Status           SubscriptionStatus
	StartsAt         time.Time
	ExpiresAt        time.Time
	PaymentReference string
	CreatedAt        time.Time
}

// NewSubscription creates an active subscription starting now and running
// for durationDays.
func NewSubscription(userID, planID string, amountMinor int64, durationDays int, paymentReference string) (*Subscription, error) {
	if userID == "" || durationDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Subscription{
		ID:               uuid.NewString(),
		UserID:           userID,
		PlanID:           planID,
		AmountMinor:      amountMinor,
		Status:           SubscriptionStatusActive,
		StartsAt:         now,
		ExpiresAt:        now.Add(time.Duration(durationDays) * 24 * time.Hour),
		PaymentReference: paymentReference,
		CreatedAt:        now,
	}, nil
}

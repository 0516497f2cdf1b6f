package model

import (
	"time"

	"elearning-platform/internal/domain"

	"github.com/google/uuid"
)

// SubscriptionPlan is a purchasable plan with a fixed duration and a price
// in minor currency units.
type SubscriptionPlan struct {
	ID           string
	Name         string
	DurationDays int
	AmountMinor  int64
	Currency     string
	CreatedAt    time.Time
}

func (p *SubscriptionPlan) IsZero() bool { return p == nil || p.ID == "" }

// NewSubscriptionPlan validates and constructs a plan.
func NewSubscriptionPlan(id, name string, durationDays int, amountMinor int64, currency string) (*SubscriptionPlan, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if name == "" || durationDays <= 0 || amountMinor <= 0 || currency == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &SubscriptionPlan{
		ID:           id,
		Name:         name,
		DurationDays: durationDays,
		AmountMinor:  amountMinor,
		Currency:     currency,
		CreatedAt:    time.Now(),
	}, nil
}

// ValidPlanID reports whether s is a canonical UUID. Plan ids taken from
// gateway metadata or the ledger pass through here before any lookup;
// anything else is treated as "no plan", never as a query argument.
func ValidPlanID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

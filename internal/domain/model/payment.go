package model

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending" // redirected to gateway; awaiting verification
	PaymentStatusSuccess PaymentStatus = "success" // verified OK at provider
	PaymentStatusFailed  PaymentStatus = "failed"  // verification failed or provider reported failure
)

// Payment records one external gateway transaction. Reference is the
// gateway-assigned identifier and is unique across the table; there is at
// most one Payment per reference.
type Payment struct {
	ID          string
	UserID      *string // nil until the owning user exists (registration flow)
	AmountMinor int64
	Currency    string
	Status      PaymentStatus
	Reference   string
	// GatewayReference is the provider-side transaction id reported on
	// verification, distinct from our Reference.
	GatewayReference string
	Metadata         map[string]interface{} // JSONB; carries plan_id for later lookup
	CreatedAt        time.Time
	UpdatedAt        time.Time
	PaidAt           *time.Time
}

func NewPayment(userID *string, amountMinor int64, currency, reference string, metadata map[string]interface{}) *Payment {
	now := time.Now()
	return &Payment{
		ID:          uuid.NewString(),
		UserID:      userID,
		AmountMinor: amountMinor,
		Currency:    currency,
		Status:      PaymentStatusPending,
		Reference:   reference,
		Metadata:    metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// PlanID extracts a plan id from metadata, if one was attached at
// initiation. Callers must still run it through ValidPlanID.
func (p *Payment) PlanID() string {
	if p.Metadata == nil {
		return ""
	}
	if v, ok := p.Metadata["plan_id"].(string); ok {
		return v
	}
	return ""
}

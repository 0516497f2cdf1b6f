package model

import (
	"time"

	"elearning-platform/internal/domain"

	"github.com/google/uuid"
)

type RegistrationStatus string

const (
	RegistrationStatusPending   RegistrationStatus = "pending"
	RegistrationStatusCompleted RegistrationStatus = "completed"
	RegistrationStatusFailed    RegistrationStatus = "failed"
)

// WardPayload describes an optional dependent account created together
// with the primary one. Password may be empty; a configured default is
// used then. SubjectIDs that are not canonical UUIDs are skipped during
// enrollment, not rejected.
type WardPayload struct {
	FullName   string   `json:"full_name"`
	Phone      string   `json:"phone,omitempty"`
	Password   string   `json:"password,omitempty"`
	SubjectIDs []string `json:"subject_ids,omitempty"`
}

// RegistrationPayload is everything needed to materialize accounts once
// the payment clears. It is validated when the ledger row is written, so
// a malformed payload is rejected before any money moves.
type RegistrationPayload struct {
	FullName string       `json:"full_name"`
	Password string       `json:"password"`
	Phone    string       `json:"phone,omitempty"`
	Ward     *WardPayload `json:"ward,omitempty"`
}

// Validate enforces the required fields. The password check is repeated
// under the row lock at materialization time as defense in depth.
func (p *RegistrationPayload) Validate() error {
	if p == nil || p.FullName == "" {
		return domain.ErrInvalidArgument
	}
	if p.Password == "" {
		return domain.ErrMissingPassword
	}
	if p.Ward != nil && p.Ward.FullName == "" {
		return domain.ErrInvalidArgument
	}
	return nil
}

// PendingRegistration is one row of the registration ledger: registration
// requested, payment outstanding, payload captured. Rows are never
// deleted; they double as an audit trail.
type PendingRegistration struct {
	ID          string
	Reference   string // gateway-assigned, globally unique
	Email       string
	Role        Role
	PlanID      string
	AmountMinor int64
	Currency    string
	Status      RegistrationStatus
	AccessCode  string
	Payload     RegistrationPayload
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewPendingRegistration(reference, email string, role Role, plan *SubscriptionPlan, accessCode string, payload RegistrationPayload) (*PendingRegistration, error) {
	if reference == "" || email == "" || plan.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	if !role.SelfRegisterable() {
		return nil, domain.ErrRoleNotAllowed
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	now := time.Now()
	return &PendingRegistration{
		ID:          uuid.NewString(),
		Reference:   reference,
		Email:       email,
		Role:        role,
		PlanID:      plan.ID,
		AmountMinor: plan.AmountMinor,
		Currency:    plan.Currency,
		Status:      RegistrationStatusPending,
		AccessCode:  accessCode,
		Payload:     payload,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

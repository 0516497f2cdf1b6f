package model

import (
	"time"

	"elearning-platform/internal/domain"

	"github.com/google/uuid"
)

type Role string

const (
	RoleStudent  Role = "student"
	RoleGuardian Role = "guardian"
	RoleTeacher  Role = "teacher"
	RoleAdmin    Role = "admin"
)

// SelfRegisterable reports whether a role may create its own account
// through the payment-gated registration flow. Teacher and admin accounts
// are provisioned out of band.
func (r Role) SelfRegisterable() bool {
	return r == RoleStudent || r == RoleGuardian
}

// User is a platform account. Guardians may own ward accounts linked via
// guardian_links; wards are ordinary student users. Email is the login
// identifier for self-registered accounts; ward accounts may carry only a
// phone. Either way the identifier is unique across the whole user space.
type User struct {
	ID           string
	FullName     string
	Email        string
	Phone        string
	PasswordHash string
	Role         Role
	Approved     bool
	Onboarded    bool
	XP           int64

	// Denormalized subscription state, kept in sync on activation.
	SubscriptionStatus    SubscriptionStatus
	SubscriptionExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewUser(id, fullName, email, phone, passwordHash string, role Role) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if fullName == "" || passwordHash == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &User{
		ID:                 id,
		FullName:           fullName,
		Email:              email,
		Phone:              phone,
		PasswordHash:       passwordHash,
		Role:               role,
		Approved:           true,
		Onboarded:          true,
		SubscriptionStatus: SubscriptionStatusInactive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

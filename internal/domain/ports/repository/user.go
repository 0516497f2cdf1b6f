package repository

import (
	"context"
	"time"

	"elearning-platform/internal/domain/model"
)

// UserRepository persists platform accounts plus the guardian/ward link
// and subject enrollment relations the materializer writes.
type UserRepository interface {
	// Save inserts a user. A duplicate email or phone surfaces as
	// domain.ErrEmailTaken so the enclosing transaction aborts.
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.User, error)
	// LinkGuardian records ownership of a ward account by a guardian.
	LinkGuardian(ctx context.Context, tx Tx, guardianID, wardID string) error
	// Enroll adds the user to a subject; duplicate enrollment is a no-op.
	Enroll(ctx context.Context, tx Tx, userID, subjectID string) error
	// UpdateSubscriptionState syncs the denormalized subscription fields.
	UpdateSubscriptionState(ctx context.Context, tx Tx, userID string, status model.SubscriptionStatus, expiresAt *time.Time) error
}

package repository

import (
	"context"
	"time"

	"elearning-platform/internal/domain/model"
)

// RegistrationLedgerRepository stores PendingRegistration rows keyed by
// payment reference. Rows are append-and-update only, never deleted.
type RegistrationLedgerRepository interface {
	Save(ctx context.Context, tx Tx, reg *model.PendingRegistration) error
	// FindByReference loads the ledger row. When tx is a live pgx
	// transaction the row is selected FOR UPDATE, serializing concurrent
	// verifiers of the same reference.
	FindByReference(ctx context.Context, tx Tx, reference string) (*model.PendingRegistration, error)
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.RegistrationStatus) error
	// ListPendingOlderThan feeds the reconciler.
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.PendingRegistration, error)
}

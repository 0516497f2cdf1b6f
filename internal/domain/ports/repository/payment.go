package repository

import (
	"context"
	"time"

	"elearning-platform/internal/domain/model"
)

type PaymentRepository interface {
	// Save inserts a payment; the unique reference constraint makes a
	// second insert for the same reference fail with domain.ErrAlreadyExists.
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByReference(ctx context.Context, tx Tx, reference string) (*model.Payment, error)
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.PaymentStatus, gatewayRef *string, paidAt *time.Time) error
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Payment, error)
}

package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"elearning-platform/internal/domain"
	"elearning-platform/internal/domain/model"
	"elearning-platform/internal/domain/ports/repository"
)

var _ repository.RegistrationLedgerRepository = (*registrationRepo)(nil)

type registrationRepo struct{ pool *pgxpool.Pool }

func NewRegistrationRepo(pool *pgxpool.Pool) *registrationRepo {
	return &registrationRepo{pool: pool}
}

const regColumns = `id, reference, email, role, plan_id, amount_minor, currency, status, access_code, payload, created_at, updated_at`

func (r *registrationRepo) Save(ctx context.Context, tx repository.Tx, reg *model.PendingRegistration) error {
	payload, err := json.Marshal(reg.Payload)
	if err != nil {
		return domain.ErrInvalidArgument
	}

	const q = `
INSERT INTO pending_registrations (
  id, reference, email, role, plan_id, amount_minor, currency, status, access_code, payload, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12);`

	_, err = execSQL(ctx, r.pool, tx, q, reg.ID, reg.Reference, reg.Email, reg.Role, reg.PlanID, reg.AmountMinor, reg.Currency, reg.Status, reg.AccessCode, payload, reg.CreatedAt, reg.UpdatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			if isUniqueViolation(err) {
				return domain.ErrAlreadyExists
			}
			return domain.ErrOperationFailed
		}
	}
	return nil
}

// FindByReference loads the ledger row for a reference. Inside a live tx
// the row is taken FOR UPDATE, which is what serializes concurrent
// verifiers of the same reference.
func (r *registrationRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.PendingRegistration, error) {
	q := `SELECT ` + regColumns + ` FROM pending_registrations WHERE reference=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, reference)
	if err != nil {
		return nil, err
	}
	return scanRegistration(row)
}

// UpdateStatus moves a pending row to completed or failed. Rows already
// out of pending are left untouched, which keeps repeat verifications
// idempotent at the storage layer too.
func (r *registrationRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.RegistrationStatus) error {
	const q = `UPDATE pending_registrations SET status=$2, updated_at=NOW() WHERE id=$1 AND status='pending';`
	_, err := execSQL(ctx, r.pool, tx, q, id, status)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *registrationRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PendingRegistration, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + regColumns + ` FROM pending_registrations WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.PendingRegistration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, nil
}

func scanRegistration(row pgx.Row) (*model.PendingRegistration, error) {
	reg := &model.PendingRegistration{}
	var payload []byte
	if err := row.Scan(&reg.ID, &reg.Reference, &reg.Email, &reg.Role, &reg.PlanID, &reg.AmountMinor, &reg.Currency, &reg.Status, &reg.AccessCode, &payload, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &reg.Payload); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return reg, nil
}

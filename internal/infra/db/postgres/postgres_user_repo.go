package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"elearning-platform/internal/domain"
	"elearning-platform/internal/domain/model"
	"elearning-platform/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

const userColumns = `id, full_name, email, phone, password_hash, role, approved, onboarded, xp, subscription_status, subscription_expires_at, created_at, updated_at`

// Save inserts a user. The unique indexes on email and phone are the
// second defense line against double materialization: a logic bug that
// slips past the row lock still cannot create the same account twice.
func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (
  id, full_name, email, phone, password_hash, role, approved, onboarded, xp, subscription_status, subscription_expires_at, created_at, updated_at
) VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),$5,$6,$7,$8,$9,$10,$11,$12,$13);`

	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.FullName, u.Email, u.Phone, u.PasswordHash, u.Role, u.Approved, u.Onboarded, u.XP, u.SubscriptionStatus, u.SubscriptionExpiresAt, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			if isUniqueViolation(err) {
				return domain.ErrEmailTaken
			}
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, email)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) LinkGuardian(ctx context.Context, tx repository.Tx, guardianID, wardID string) error {
	const q = `INSERT INTO guardian_links (guardian_id, ward_id, created_at) VALUES ($1,$2,NOW());`
	_, err := execSQL(ctx, r.pool, tx, q, guardianID, wardID)
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

// Enroll adds the user to a subject. Unknown subjects insert nothing and
// duplicates are ignored, so enrollment never fails the materialization.
func (r *userRepo) Enroll(ctx context.Context, tx repository.Tx, userID, subjectID string) error {
	const q = `
INSERT INTO enrollments (user_id, subject_id, created_at)
SELECT $1, s.id, NOW() FROM subjects s WHERE s.id=$2
ON CONFLICT (user_id, subject_id) DO NOTHING;`
	_, err := execSQL(ctx, r.pool, tx, q, userID, subjectID)
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

func (r *userRepo) UpdateSubscriptionState(ctx context.Context, tx repository.Tx, userID string, status model.SubscriptionStatus, expiresAt *time.Time) error {
	const q = `UPDATE users SET subscription_status=$2, subscription_expires_at=$3, updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, userID, status, expiresAt)
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

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	var email, phone *string
	if err := row.Scan(&u.ID, &u.FullName, &email, &phone, &u.PasswordHash, &u.Role, &u.Approved, &u.Onboarded, &u.XP, &u.SubscriptionStatus, &u.SubscriptionExpiresAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if email != nil {
		u.Email = *email
	}
	if phone != nil {
		u.Phone = *phone
	}
	return u, nil
}

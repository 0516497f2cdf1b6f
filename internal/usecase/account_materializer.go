// File: internal/usecase/account_materializer.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"elearning-platform/internal/domain"
	"elearning-platform/internal/domain/model"
	"elearning-platform/internal/domain/ports/repository"
)

// PasswordHasher is the slice of the security package the materializer
// needs. Satisfied by security.PasswordHasher.
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// AccountMaterializer turns a validated pending registration into real
// user rows. It only ever runs inside the Activation Engine's
// transaction; every write goes through the provided tx handle so a
// failure anywhere rolls back the whole materialization.
type AccountMaterializer struct {
	users               repository.UserRepository
	hasher              PasswordHasher
	defaultWardPassword string
	log                 *zerolog.Logger
}

func NewAccountMaterializer(users repository.UserRepository, hasher PasswordHasher, defaultWardPassword string, logger *zerolog.Logger) *AccountMaterializer {
	return &AccountMaterializer{
		users:               users,
		hasher:              hasher,
		defaultWardPassword: defaultWardPassword,
		log:                 logger,
	}
}

// Materialize creates the primary user and, when the payload describes
// one, a linked ward account. A uniqueness violation on either account
// propagates and aborts the transaction: this is the second defense line
// beneath the ledger row lock.
func (m *AccountMaterializer) Materialize(ctx context.Context, tx repository.Tx, reg *model.PendingRegistration) (*model.User, *model.User, error) {
	if !reg.Role.SelfRegisterable() {
		return nil, nil, domain.ErrRoleNotAllowed
	}
	if reg.Payload.Password == "" {
		return nil, nil, domain.ErrMissingPassword
	}

	hash, err := m.hasher.Hash(reg.Payload.Password)
	if err != nil {
		return nil, nil, err
	}
	primary, err := model.NewUser("", reg.Payload.FullName, reg.Email, reg.Payload.Phone, hash, reg.Role)
	if err != nil {
		return nil, nil, err
	}
	if err := m.users.Save(ctx, tx, primary); err != nil {
		return nil, nil, err
	}

	if reg.Payload.Ward == nil {
		return primary, nil, nil
	}

	ward, err := m.materializeWard(ctx, tx, primary, reg.Payload.Ward)
	if err != nil {
		return nil, nil, err
	}
	return primary, ward, nil
}

func (m *AccountMaterializer) materializeWard(ctx context.Context, tx repository.Tx, guardian *model.User, wp *model.WardPayload) (*model.User, error) {
	password := wp.Password
	if password == "" {
		password = m.defaultWardPassword
	}
	hash, err := m.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	// Ward role is fixed: a guardian cannot register another guardian.
	ward, err := model.NewUser("", wp.FullName, "", wp.Phone, hash, model.RoleStudent)
	if err != nil {
		return nil, err
	}
	ward.XP = 0
	if err := m.users.Save(ctx, tx, ward); err != nil {
		return nil, err
	}
	if err := m.users.LinkGuardian(ctx, tx, guardian.ID, ward.ID); err != nil {
		return nil, err
	}

	for _, subjectID := range wp.SubjectIDs {
		if !model.ValidPlanID(subjectID) {
			// malformed ids are skipped, not fatal
			m.log.Debug().Str("subject_id", subjectID).Msg("skipping malformed subject id during enrollment")
			continue
		}
		if err := m.users.Enroll(ctx, tx, ward.ID, subjectID); err != nil {
			return nil, err
		}
	}
	return ward, nil
}

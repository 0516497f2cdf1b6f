// File: internal/usecase/activation_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"elearning-platform/internal/domain"
	"elearning-platform/internal/domain/model"
	"elearning-platform/internal/domain/ports/adapter"
	"elearning-platform/internal/domain/ports/repository"
	"elearning-platform/internal/infra/logging"
	"elearning-platform/internal/infra/metrics"
)

// Compile-time check
var _ ActivationUseCase = (*activationUC)(nil)

// TokenMinter is the slice of the security package the engine needs.
// Satisfied by security.TokenIssuer.
type TokenMinter interface {
	Mint(u *model.User) (string, error)
}

// TaskRunner accepts fire-and-forget work (welcome notifications and the
// like). Satisfied by worker.Pool.
type TaskRunner interface {
	Submit(task func(ctx context.Context) error) error
}

type VerifyStatus string

const (
	VerifyStatusSuccess VerifyStatus = "success"
	VerifyStatusFailed  VerifyStatus = "failed"
)

// InitializeOutcome is what the route layer hands back to the browser:
// where to pay, and the reference to verify with afterwards.
type InitializeOutcome struct {
	AuthorizationURL string
	Reference        string
}

// VerifyOutcome is the single coherent answer every verifier receives,
// no matter whether it raced, replayed or materialized. User and Token
// are set on the registration path only.
type VerifyOutcome struct {
	Status       VerifyStatus
	User         *model.User
	Token        string
	Subscription *model.Subscription
}

// ActivationUseCase is the payment-gated registration and
// subscription-activation state machine.
type ActivationUseCase interface {
	// InitializeRegistration starts the registration flow: validates
	// everything locally, creates a transaction at the gateway and writes
	// the pending ledger row. No account exists until the payment clears.
	InitializeRegistration(ctx context.Context, email string, role model.Role, planID string, payload model.RegistrationPayload) (*InitializeOutcome, error)
	// InitializePayment starts the upgrade flow for an existing user.
	InitializePayment(ctx context.Context, userID, planID string) (*InitializeOutcome, error)
	// VerifyPayment finalizes a reference. Safe to call concurrently and
	// repeatedly; exactly one call materializes, all callers get a
	// coherent response.
	VerifyPayment(ctx context.Context, reference string) (*VerifyOutcome, error)
}

// ActivationConfig carries the handful of tunables the engine needs.
type ActivationConfig struct {
	CallbackURL         string
	DefaultDurationDays int
}

type activationUC struct {
	regs         repository.RegistrationLedgerRepository
	payments     repository.PaymentRepository
	subs         repository.SubscriptionRepository
	plans        repository.SubscriptionPlanRepository
	users        repository.UserRepository
	gateway      adapter.PaymentGateway
	tm           repository.TransactionManager
	materializer *AccountMaterializer
	tokens       TokenMinter
	notifier     adapter.Notifier
	tasks        TaskRunner
	cfg          ActivationConfig
	log          *zerolog.Logger
}

func NewActivationUseCase(
	regs repository.RegistrationLedgerRepository,
	payments repository.PaymentRepository,
	subs repository.SubscriptionRepository,
	plans repository.SubscriptionPlanRepository,
	users repository.UserRepository,
	gw adapter.PaymentGateway,
	tm repository.TransactionManager,
	materializer *AccountMaterializer,
	tokens TokenMinter,
	notifier adapter.Notifier,
	tasks TaskRunner,
	cfg ActivationConfig,
	logger *zerolog.Logger,
) *activationUC {
	if cfg.DefaultDurationDays <= 0 {
		cfg.DefaultDurationDays = 30
	}
	return &activationUC{
		regs: regs, payments: payments, subs: subs, plans: plans, users: users,
		gateway: gw, tm: tm, materializer: materializer, tokens: tokens,
		notifier: notifier, tasks: tasks, cfg: cfg, log: logger,
	}
}

func (u *activationUC) InitializeRegistration(ctx context.Context, email string, role model.Role, planID string, payload model.RegistrationPayload) (*InitializeOutcome, error) {
	log := logging.With(ctx, u.log)
	defer logging.TraceDuration(log, "ActivationUC.InitializeRegistration")()

	if !role.SelfRegisterable() {
		return nil, domain.ErrRoleNotAllowed
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if !model.ValidPlanID(planID) {
		return nil, domain.ErrInvalidPlanID
	}

	// Fail fast on a taken email, before any money moves.
	if _, err := u.users.FindByEmail(ctx, repository.NoTX, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	plan, err := u.plans.FindByID(ctx, repository.NoTX, planID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, err
	}

	init, err := u.gateway.Initialize(ctx, email, plan.AmountMinor, plan.Currency, u.cfg.CallbackURL, map[string]interface{}{
		"plan_id": plan.ID,
		"kind":    "registration",
	})
	if err != nil {
		return nil, fmt.Errorf("initialize transaction: %w", err)
	}

	reg, err := model.NewPendingRegistration(init.Reference, email, role, plan, init.AccessCode, payload)
	if err != nil {
		return nil, err
	}
	if err := u.regs.Save(ctx, repository.NoTX, reg); err != nil {
		return nil, err
	}

	log.Info().Str("reference", reg.Reference).Str("role", string(role)).Msg("registration initialized")
	return &InitializeOutcome{AuthorizationURL: init.AuthorizationURL, Reference: init.Reference}, nil
}

func (u *activationUC) InitializePayment(ctx context.Context, userID, planID string) (*InitializeOutcome, error) {
	log := logging.With(ctx, u.log)
	defer logging.TraceDuration(log, "ActivationUC.InitializePayment")()

	user, err := u.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	if !model.ValidPlanID(planID) {
		return nil, domain.ErrInvalidPlanID
	}
	plan, err := u.plans.FindByID(ctx, repository.NoTX, planID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, err
	}

	init, err := u.gateway.Initialize(ctx, user.Email, plan.AmountMinor, plan.Currency, u.cfg.CallbackURL, map[string]interface{}{
		"plan_id": plan.ID,
		"kind":    "upgrade",
	})
	if err != nil {
		return nil, fmt.Errorf("initialize transaction: %w", err)
	}

	p := model.NewPayment(&user.ID, plan.AmountMinor, plan.Currency, init.Reference, map[string]interface{}{"plan_id": plan.ID})
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	metrics.IncPayment(string(model.PaymentStatusPending))

	log.Info().Str("reference", init.Reference).Str("user_id", userID).Msg("upgrade payment initialized")
	return &InitializeOutcome{AuthorizationURL: init.AuthorizationURL, Reference: init.Reference}, nil
}

func (u *activationUC) VerifyPayment(ctx context.Context, reference string) (*VerifyOutcome, error) {
	log := logging.With(logging.WithReference(ctx, reference), u.log)
	defer logging.TraceDuration(log, "ActivationUC.VerifyPayment")()

	res, err := u.gateway.Verify(ctx, reference)
	if err != nil {
		// transport/config errors surface to the caller; the webhook
		// redelivery or the browser re-poll is the retry loop
		return nil, fmt.Errorf("verify transaction: %w", err)
	}
	if !res.Success {
		return u.markFailed(ctx, reference, log)
	}

	payment, err := u.payments.FindByReference(ctx, repository.NoTX, reference)
	switch {
	case err == nil:
		return u.verifyUpgrade(ctx, payment, res, log)
	case errors.Is(err, domain.ErrNotFound):
		return u.verifyRegistration(ctx, reference, res, log)
	default:
		return nil, err
	}
}

// markFailed records a gateway-reported business failure. Repeat calls
// find nothing left in pending and change nothing.
func (u *activationUC) markFailed(ctx context.Context, reference string, log *zerolog.Logger) (*VerifyOutcome, error) {
	if p, err := u.payments.FindByReference(ctx, repository.NoTX, reference); err == nil && p.Status == model.PaymentStatusPending {
		if err := u.payments.UpdateStatus(ctx, repository.NoTX, p.ID, model.PaymentStatusFailed, nil, nil); err != nil {
			return nil, err
		}
		metrics.IncPayment(string(model.PaymentStatusFailed))
	}
	if reg, err := u.regs.FindByReference(ctx, repository.NoTX, reference); err == nil && reg.Status == model.RegistrationStatusPending {
		if err := u.regs.UpdateStatus(ctx, repository.NoTX, reg.ID, model.RegistrationStatusFailed); err != nil {
			return nil, err
		}
		metrics.IncRegistration("failed")
	}
	log.Info().Msg("gateway reported transaction failure")
	return &VerifyOutcome{Status: VerifyStatusFailed}, nil
}

// verifyRegistration finalizes the registration path: exactly one caller
// materializes under the ledger row lock, every other caller replays the
// already-created identity.
func (u *activationUC) verifyRegistration(ctx context.Context, reference string, res *adapter.VerifyResult, log *zerolog.Logger) (*VerifyOutcome, error) {
	reg, err := u.regs.FindByReference(ctx, repository.NoTX, reference)
	if errors.Is(err, domain.ErrNotFound) {
		// The gateway took money for a reference we have no record of.
		// Acknowledge the payment, flag the anomaly for reconciliation.
		log.Error().Msg("gateway success for unknown reference, acknowledging without identity")
		metrics.IncRegistration("orphaned")
		return &VerifyOutcome{Status: VerifyStatusSuccess}, nil
	}
	if err != nil {
		return nil, err
	}

	var (
		created *model.User
		ward    *model.User
		sub     *model.Subscription
		amount  = res.AmountMinor
		replay  bool
		refused bool
	)
	if amount == 0 {
		amount = reg.AmountMinor
	}

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		// The FOR UPDATE re-select is the serialization point for every
		// concurrent verifier of this reference.
		locked, err := u.regs.FindByReference(ctx, tx, reference)
		if err != nil {
			return err
		}
		switch locked.Status {
		case model.RegistrationStatusCompleted:
			replay = true
			return nil
		case model.RegistrationStatusFailed:
			refused = true
			return nil
		}

		primary, w, err := u.materializer.Materialize(ctx, tx, locked)
		if err != nil {
			return err
		}

		p := model.NewPayment(&primary.ID, amount, locked.Currency, reference, map[string]interface{}{"plan_id": locked.PlanID})
		p.Status = model.PaymentStatusSuccess
		p.GatewayReference = res.GatewayReference
		now := time.Now()
		p.PaidAt = &now
		if err := u.payments.Save(ctx, tx, p); err != nil {
			return err
		}

		s, err := u.activateSubscription(ctx, tx, primary.ID, locked.PlanID, amount, reference)
		if err != nil {
			return err
		}
		if err := u.regs.UpdateStatus(ctx, tx, locked.ID, model.RegistrationStatusCompleted); err != nil {
			return err
		}
		created, ward, sub = primary, w, s
		return nil
	})
	if err != nil {
		return nil, err
	}

	if refused {
		// Ledger already failed this reference; a later success report
		// from the gateway does not resurrect it.
		log.Warn().Msg("gateway success for a reference already marked failed")
		return &VerifyOutcome{Status: VerifyStatusFailed}, nil
	}
	if replay {
		return u.replayCompleted(ctx, reg.Email, "replayed", log)
	}

	token, err := u.tokens.Mint(created)
	if err != nil {
		return nil, err
	}
	metrics.IncRegistration("materialized")
	metrics.IncPayment(string(model.PaymentStatusSuccess))
	metrics.AddPaymentRevenue(reg.Currency, amount)
	u.enqueueNotification(created.Email, "Welcome aboard", "Your account is ready and your subscription is active.")
	log.Info().Str("user_id", created.ID).Bool("ward_created", ward != nil).Msg("registration materialized")
	return &VerifyOutcome{Status: VerifyStatusSuccess, User: created, Token: token, Subscription: sub}, nil
}

// replayCompleted reconstructs the success response for a caller who lost
// the race (or arrived late): same user, fresh token.
func (u *activationUC) replayCompleted(ctx context.Context, email, outcome string, log *zerolog.Logger) (*VerifyOutcome, error) {
	user, err := u.users.FindByEmail(ctx, repository.NoTX, email)
	if err != nil {
		return nil, err
	}
	token, err := u.tokens.Mint(user)
	if err != nil {
		return nil, err
	}
	sub, err := u.subs.FindActiveByUser(ctx, repository.NoTX, user.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	metrics.IncRegistration(outcome)
	log.Info().Str("user_id", user.ID).Msg("verification replayed for completed registration")
	return &VerifyOutcome{Status: VerifyStatusSuccess, User: user, Token: token, Subscription: sub}, nil
}

// verifyUpgrade finalizes a payment whose row already exists: either an
// authenticated user's plan purchase, or a late re-verification of a
// reference the registration path already completed.
func (u *activationUC) verifyUpgrade(ctx context.Context, payment *model.Payment, res *adapter.VerifyResult, log *zerolog.Logger) (*VerifyOutcome, error) {
	if payment.Status == model.PaymentStatusSuccess {
		return u.finalizedUpgradeOutcome(ctx, payment, log)
	}

	var (
		sub    *model.Subscription
		userID string
		replay bool
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		locked, err := u.payments.FindByReference(ctx, tx, payment.Reference)
		if err != nil {
			return err
		}
		if locked.Status != model.PaymentStatusPending {
			replay = true
			return nil
		}
		if locked.UserID == nil {
			// upgrade payments are always owned at initiation
			return domain.ErrInvalidArgument
		}
		userID = *locked.UserID

		now := time.Now()
		gref := res.GatewayReference
		if err := u.payments.UpdateStatus(ctx, tx, locked.ID, model.PaymentStatusSuccess, &gref, &now); err != nil {
			return err
		}

		planID := locked.PlanID()
		if planID == "" && res.Metadata != nil {
			if v, ok := res.Metadata["plan_id"].(string); ok {
				planID = v
			}
		}
		amount := res.AmountMinor
		if amount == 0 {
			amount = locked.AmountMinor
		}
		sub, err = u.activateSubscription(ctx, tx, userID, planID, amount, locked.Reference)
		return err
	})
	if err != nil {
		return nil, err
	}

	if replay {
		return u.finalizedUpgradeOutcome(ctx, payment, log)
	}

	metrics.IncPayment(string(model.PaymentStatusSuccess))
	metrics.AddPaymentRevenue(payment.Currency, payment.AmountMinor)
	if user, err := u.users.FindByID(ctx, repository.NoTX, userID); err == nil {
		u.enqueueNotification(user.Email, "Payment received", "Your subscription has been extended.")
	}
	log.Info().Str("user_id", userID).Msg("subscription upgraded")
	return &VerifyOutcome{Status: VerifyStatusSuccess, Subscription: sub}, nil
}

// activateSubscription is the single shared path for granting
// entitlement, used by both registration and upgrade. The deactivation is
// unconditional so the one-active-row invariant holds even if prior
// state was dirty.
func (u *activationUC) activateSubscription(ctx context.Context, tx repository.Tx, userID, planID string, amountMinor int64, reference string) (*model.Subscription, error) {
	durationDays := u.cfg.DefaultDurationDays
	resolvedPlanID := ""
	if model.ValidPlanID(planID) {
		plan, err := u.plans.FindByID(ctx, tx, planID)
		switch {
		case err == nil:
			durationDays = plan.DurationDays
			resolvedPlanID = plan.ID
		case errors.Is(err, domain.ErrNotFound):
			// fall through to the default duration
		default:
			return nil, err
		}
	}

	if err := u.subs.DeactivateByUser(ctx, tx, userID); err != nil {
		return nil, err
	}
	sub, err := model.NewSubscription(userID, resolvedPlanID, amountMinor, durationDays, reference)
	if err != nil {
		return nil, err
	}
	if err := u.subs.Save(ctx, tx, sub); err != nil {
		return nil, err
	}
	if err := u.users.UpdateSubscriptionState(ctx, tx, userID, model.SubscriptionStatusActive, &sub.ExpiresAt); err != nil {
		return nil, err
	}
	return sub, nil
}

// finalizedUpgradeOutcome reconstructs the response for a reference whose
// payment row is already success. If the reference belonged to a
// registration the late caller still gets the identity it expects.
func (u *activationUC) finalizedUpgradeOutcome(ctx context.Context, payment *model.Payment, log *zerolog.Logger) (*VerifyOutcome, error) {
	if reg, err := u.regs.FindByReference(ctx, repository.NoTX, payment.Reference); err == nil && reg.Status == model.RegistrationStatusCompleted {
		return u.replayCompleted(ctx, reg.Email, "replayed", log)
	}
	var sub *model.Subscription
	if payment.UserID != nil {
		s, err := u.subs.FindActiveByUser(ctx, repository.NoTX, *payment.UserID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		sub = s
	}
	return &VerifyOutcome{Status: VerifyStatusSuccess, Subscription: sub}, nil
}

// enqueueNotification hands a best-effort message to the worker pool.
// Delivery failure is logged by the pool and never affects verification.
func (u *activationUC) enqueueNotification(recipient, subject, body string) {
	if u.notifier == nil || u.tasks == nil || recipient == "" {
		return
	}
	_ = u.tasks.Submit(func(ctx context.Context) error {
		return u.notifier.Send(ctx, recipient, subject, body)
	})
}

//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"elearning-platform/internal/domain"
	"elearning-platform/internal/domain/model"
	"elearning-platform/internal/domain/ports/adapter"
	"elearning-platform/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger so test output stays
// readable.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// =============================
// Repositories
// =============================

// ---- Registration ledger ----

type MockRegistrationRepo struct {
	mu    sync.Mutex
	store map[string]*model.PendingRegistration // by reference

	SaveFunc            func(ctx context.Context, tx repository.Tx, reg *model.PendingRegistration) error
	FindByReferenceFunc func(ctx context.Context, tx repository.Tx, reference string) (*model.PendingRegistration, error)
	UpdateStatusFunc    func(ctx context.Context, tx repository.Tx, id string, status model.RegistrationStatus) error
}

var _ repository.RegistrationLedgerRepository = (*MockRegistrationRepo)(nil)

func NewMockRegistrationRepo() *MockRegistrationRepo {
	return &MockRegistrationRepo{store: map[string]*model.PendingRegistration{}}
}

func (m *MockRegistrationRepo) Save(ctx context.Context, tx repository.Tx, reg *model.PendingRegistration) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, reg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[reg.Reference]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *reg
	m.store[reg.Reference] = &cp
	return nil
}

func (m *MockRegistrationRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.PendingRegistration, error) {
	if m.FindByReferenceFunc != nil {
		return m.FindByReferenceFunc(ctx, tx, reference)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.store[reference]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *reg
	return &cp, nil
}

// UpdateStatus mirrors the real repo: rows already out of pending are
// left untouched.
func (m *MockRegistrationRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.RegistrationStatus) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, id, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, reg := range m.store {
		if reg.ID == id && reg.Status == model.RegistrationStatusPending {
			reg.Status = status
			reg.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (m *MockRegistrationRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PendingRegistration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PendingRegistration
	for _, reg := range m.store {
		if reg.Status == model.RegistrationStatusPending && reg.CreatedAt.Before(olderThan) {
			cp := *reg
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Payments ----

type MockPaymentRepo struct {
	mu    sync.Mutex
	store map[string]*model.Payment // by reference

	SaveFunc         func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	UpdateStatusFunc func(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, gatewayRef *string, paidAt *time.Time) error
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{store: map[string]*model.Payment{}}
}

func (m *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[p.Reference]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *p
	m.store[p.Reference] = &cp
	return nil
}

func (m *MockPaymentRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[reference]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPaymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, gatewayRef *string, paidAt *time.Time) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, id, status, gatewayRef, paidAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.store {
		if p.ID == id {
			p.Status = status
			if gatewayRef != nil {
				p.GatewayReference = *gatewayRef
			}
			if paidAt != nil {
				p.PaidAt = paidAt
			}
			p.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (m *MockPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Payment
	for _, p := range m.store {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Subscriptions ----

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	subs []*model.Subscription

	SaveFunc func(ctx context.Context, tx repository.Tx, s *model.Subscription) error
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{}
}

func (m *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.subs = append(m.subs, &cp)
	return nil
}

func (m *MockSubscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.subs) - 1; i >= 0; i-- {
		if m.subs[i].UserID == userID && m.subs[i].Status == model.SubscriptionStatusActive {
			cp := *m.subs[i]
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriptionRepo) DeactivateByUser(ctx context.Context, tx repository.Tx, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.UserID == userID && s.Status == model.SubscriptionStatusActive {
			s.Status = model.SubscriptionStatusInactive
		}
	}
	return nil
}

// ActiveCount reports how many active rows a user holds; used to assert
// the single-active invariant.
func (m *MockSubscriptionRepo) ActiveCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.subs {
		if s.UserID == userID && s.Status == model.SubscriptionStatusActive {
			n++
		}
	}
	return n
}

// ---- Plans ----

type MockPlanRepo struct {
	mu    sync.Mutex
	store map[string]*model.SubscriptionPlan
}

var _ repository.SubscriptionPlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{store: map[string]*model.SubscriptionPlan{}}
}

func (m *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.SubscriptionPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *plan
	m.store[plan.ID] = &cp
	return nil
}

func (m *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	plan, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *plan
	return &cp, nil
}

func (m *MockPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.SubscriptionPlan, 0, len(m.store))
	for _, p := range m.store {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

// ---- Users ----

type MockUserRepo struct {
	mu    sync.Mutex
	store map[string]*model.User // by id

	GuardianLinks map[string]string   // ward -> guardian
	Enrollments   map[string][]string // user -> subject ids

	SaveFunc func(ctx context.Context, tx repository.Tx, u *model.User) error
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{
		store:         map[string]*model.User{},
		GuardianLinks: map[string]string{},
		Enrollments:   map[string][]string{},
	}
}

// Save mirrors the real repo's unique indexes on email and phone.
func (m *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.store {
		if other.ID == u.ID {
			continue
		}
		if u.Email != "" && other.Email == u.Email {
			return domain.ErrEmailTaken
		}
		if u.Phone != "" && other.Phone == u.Phone {
			return domain.ErrEmailTaken
		}
	}
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.store {
		if u.Email != "" && u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepo) LinkGuardian(ctx context.Context, tx repository.Tx, guardianID, wardID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GuardianLinks[wardID] = guardianID
	return nil
}

func (m *MockUserRepo) Enroll(ctx context.Context, tx repository.Tx, userID, subjectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Enrollments[userID] = append(m.Enrollments[userID], subjectID)
	return nil
}

func (m *MockUserRepo) UpdateSubscriptionState(ctx context.Context, tx repository.Tx, userID string, status model.SubscriptionStatus, expiresAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.store[userID]; ok {
		u.SubscriptionStatus = status
		u.SubscriptionExpiresAt = expiresAt
	}
	return nil
}

// Count reports the number of stored users.
func (m *MockUserRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store)
}

// =============================
// Adapters & infrastructure
// =============================

// ---- Payment gateway ----

type MockPaymentGateway struct {
	mu sync.Mutex

	InitializeFunc func(ctx context.Context, email string, amountMinor int64, currency, callbackURL string, metadata map[string]interface{}) (*adapter.InitializeResult, error)
	VerifyFunc     func(ctx context.Context, reference string) (*adapter.VerifyResult, error)

	Calls struct {
		Initialize int
		Verify     int
	}
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string { return "mock" }

func (m *MockPaymentGateway) Initialize(ctx context.Context, email string, amountMinor int64, currency, callbackURL string, metadata map[string]interface{}) (*adapter.InitializeResult, error) {
	m.mu.Lock()
	m.Calls.Initialize++
	m.mu.Unlock()
	if m.InitializeFunc != nil {
		return m.InitializeFunc(ctx, email, amountMinor, currency, callbackURL, metadata)
	}
	ref := "ref-" + uuid.NewString()
	return &adapter.InitializeResult{
		AuthorizationURL: "https://checkout.example/" + ref,
		AccessCode:       "ac-" + ref,
		Reference:        ref,
	}, nil
}

func (m *MockPaymentGateway) Verify(ctx context.Context, reference string) (*adapter.VerifyResult, error) {
	m.mu.Lock()
	m.Calls.Verify++
	m.mu.Unlock()
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, reference)
	}
	return &adapter.VerifyResult{Success: true, GatewayReference: "gw-" + reference}, nil
}

// ---- Transaction manager ----

// MockTxManager runs the callback immediately. With Serialize set it
// holds a mutex for the whole callback, which stands in for the row lock
// the real repos take.
type MockTxManager struct {
	mu        sync.Mutex
	Serialize bool

	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	if m.Serialize {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	return fn(ctx, repository.NoTX)
}

// ---- Password hashing ----

type stubHasher struct{}

func (stubHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

// ---- Token minting ----

type stubTokenMinter struct {
	mu    sync.Mutex
	seq   int
	Mints []string // user ids in mint order
}

func (s *stubTokenMinter) Mint(u *model.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.Mints = append(s.Mints, u.ID)
	return fmt.Sprintf("token-%s-%d", u.ID, s.seq), nil
}

// ---- Notifier ----

type MockNotifier struct {
	mu   sync.Mutex
	Sent []string // recipients
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, recipient)
	return nil
}

// syncRunner executes submitted tasks inline so tests see their effects
// immediately.
type syncRunner struct{}

func (syncRunner) Submit(task func(ctx context.Context) error) error {
	return task(context.Background())
}

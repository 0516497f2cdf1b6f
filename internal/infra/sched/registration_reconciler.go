package sched

import (
	"context"
	"log"
	"time"

	"elearning-platform/internal/domain/ports/repository"
	"elearning-platform/internal/usecase"
)

// RegistrationReconciler periodically scans for stale pending
// registrations and payments and re-runs verification for them. This
// covers the cases where the browser never came back and the webhook was
// lost, or the process crashed mid-activation.
type RegistrationReconciler struct {
	uc         usecase.ActivationUseCase
	regs       repository.RegistrationLedgerRepository
	payments   repository.PaymentRepository
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending row must be to retry
}

func NewRegistrationReconciler(uc usecase.ActivationUseCase, regs repository.RegistrationLedgerRepository, payments repository.PaymentRepository, interval, staleAfter time.Duration) *RegistrationReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &RegistrationReconciler{uc: uc, regs: regs, payments: payments, interval: interval, staleAfter: staleAfter}
}

func (w *RegistrationReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *RegistrationReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)

	pendingRegs, err := w.regs.ListPendingOlderThan(ctx, repository.NoTX, cutoff, 200)
	if err != nil {
		log.Printf("registration-reconciler: list pending registrations error: %v", err)
	} else {
		for _, reg := range pendingRegs {
			if _, err := w.uc.VerifyPayment(ctx, reg.Reference); err != nil {
				log.Printf("registration-reconciler: verify failed reference=%s err=%v", reg.Reference, err)
				continue
			}
			log.Printf("registration-reconciler: reconciled reference=%s", reg.Reference)
		}
	}

	pendingPayments, err := w.payments.ListPendingOlderThan(ctx, repository.NoTX, cutoff, 200)
	if err != nil {
		log.Printf("registration-reconciler: list pending payments error: %v", err)
		return
	}
	for _, p := range pendingPayments {
		if _, err := w.uc.VerifyPayment(ctx, p.Reference); err != nil {
			log.Printf("registration-reconciler: verify failed reference=%s err=%v", p.Reference, err)
			continue
		}
		log.Printf("registration-reconciler: reconciled payment=%s", p.ID)
	}
}

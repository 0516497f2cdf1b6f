package usecase

import (
	"context"

	"elearning-platform/internal/domain"
	"elearning-platform/internal/domain/model"
	"elearning-platform/internal/domain/ports/repository"
)

// PlanUseCase manages the subscription plan catalogue.
type PlanUseCase struct {
	repo repository.SubscriptionPlanRepository
}

func NewPlanUseCase(repo repository.SubscriptionPlanRepository) *PlanUseCase {
	return &PlanUseCase{repo: repo}
}

// Create saves or updates a plan.
func (uc *PlanUseCase) Create(ctx context.Context, name string, durationDays int, amountMinor int64, currency string) (*model.SubscriptionPlan, error) {
	plan, err := model.NewSubscriptionPlan("", name, durationDays, amountMinor, currency)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.Save(ctx, repository.NoTX, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// Get retrieves a plan by ID.
func (uc *PlanUseCase) Get(ctx context.Context, id string) (*model.SubscriptionPlan, error) {
	if !model.ValidPlanID(id) {
		return nil, domain.ErrInvalidPlanID
	}
	return uc.repo.FindByID(ctx, repository.NoTX, id)
}

// List returns all plans, cheapest first.
func (uc *PlanUseCase) List(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	return uc.repo.ListAll(ctx, repository.NoTX)
}

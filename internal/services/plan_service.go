package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gymcore_backend/internal/models"
	"gymcore_backend/internal/repositories"
	"gymcore_backend/pkg/utils"
)

var (
	ErrPlanNotFound = errors.New("membership plan not found")
	ErrPlanInactive = errors.New("membership plan is not active")
)

// CreatePlanRequest DTO
type CreatePlanRequest struct {
	Name         string  `json:"name" binding:"required"`
	Description  *string `json:"description"`
	Price        float64 `json:"price" binding:"gte=0"`
	DurationDays int     `json:"durationDays" binding:"required,gt=0"`
	IsActive     *bool   `json:"isActive"`
}

// UpdatePlanRequest DTO
type UpdatePlanRequest struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	Price        *float64 `json:"price"`
	DurationDays *int     `json:"durationDays"`
	IsActive     *bool    `json:"isActive"`
}

// PlanService manages the membership plan catalog.
type PlanService interface {
	CreatePlan(ctx context.Context, req CreatePlanRequest) (*models.MembershipPlan, error)
	GetPlanByID(ctx context.Context, id int64) (*models.MembershipPlan, error)
	GetPlans(ctx context.Context, activeOnly bool) ([]models.MembershipPlan, error)
	UpdatePlan(ctx context.Context, id int64, req UpdatePlanRequest) (*models.MembershipPlan, error)
	DeletePlan(ctx context.Context, id int64) error
}

type planService struct {
	planRepo repositories.PlanRepository
}

// NewPlanService creates a new instance of PlanService.
func NewPlanService(planRepo repositories.PlanRepository) PlanService {
	return &planService{planRepo: planRepo}
}

func validatePlan(p *models.MembershipPlan) error {
	if utils.IsEmpty(p.Name) {
		return fmt.Errorf("%w: plan name cannot be empty", ErrValidation)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrValidation)
	}
	if p.DurationDays <= 0 {
		return fmt.Errorf("%w: durationDays must be positive", ErrValidation)
	}
	return nil
}

func (s *planService) CreatePlan(ctx context.Context, req CreatePlanRequest) (*models.MembershipPlan, error) {
	plan := &models.MembershipPlan{
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Price:        req.Price,
		DurationDays: req.DurationDays,
		IsActive:     true,
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}
	if err := validatePlan(plan); err != nil {
		return nil, err
	}
	if _, err := s.planRepo.CreatePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to create membership plan: %w", err)
	}
	return plan, nil
}

func (s *planService) GetPlanByID(ctx context.Context, id int64) (*models.MembershipPlan, error) {
	plan, err := s.planRepo.GetPlanByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get membership plan: %w", err)
	}
	return plan, nil
}

func (s *planService) GetPlans(ctx context.Context, activeOnly bool) ([]models.MembershipPlan, error) {
	plans, err := s.planRepo.GetPlans(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list membership plans: %w", err)
	}
	return plans, nil
}

func (s *planService) UpdatePlan(ctx context.Context, id int64, req UpdatePlanRequest) (*models.MembershipPlan, error) {
	plan, err := s.GetPlanByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		plan.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		plan.Description = utils.NewNullString(*req.Description)
	}
	if req.Price != nil {
		plan.Price = *req.Price
	}
	if req.DurationDays != nil {
		plan.DurationDays = *req.DurationDays
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}
	if err := validatePlan(plan); err != nil {
		return nil, err
	}
	if err := s.planRepo.UpdatePlan(ctx, plan); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to update membership plan: %w", err)
	}
	return plan, nil
}

// DeletePlan deactivates the plan. Memberships already sold are unaffected.
func (s *planService) DeletePlan(ctx context.Context, id int64) error {
	if err := s.planRepo.DeactivatePlan(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrPlanNotFound
		}
		return fmt.Errorf("failed to deactivate membership plan: %w", err)
	}
	return nil
}

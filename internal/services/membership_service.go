package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gymcore_backend/internal/models"
	"gymcore_backend/internal/repositories"
	"gymcore_backend/pkg/utils"

	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrMembershipNotFound      = errors.New("membership not found")
	ErrInvalidMembershipState  = fmt.Errorf("%w: membership", ErrInvalidState)
	ErrMembershipAlreadyQueued = fmt.Errorf("%w: client already has a queued membership", ErrInvalidState)
)

// AssignMembershipRequest DTO. StartDate accepts YYYY-MM-DD or RFC 3339;
// Mode is "replace" (default) or "queue".
type AssignMembershipRequest struct {
	ClientID   int64   `json:"clientId" binding:"required"`
	PlanID     int64   `json:"planId" binding:"required"`
	AmountPaid float64 `json:"amountPaid"`
	StartDate  *string `json:"startDate"`
	Mode       string  `json:"mode"`
}

// MembershipService owns the membership lifecycle.
type MembershipService interface {
	AssignMembership(ctx context.Context, req AssignMembershipRequest, createdBy int64) (*models.Membership, error)
	FreezeMembership(ctx context.Context, id int64) (*models.Membership, error)
	UnfreezeMembership(ctx context.Context, id int64) (*models.Membership, error)
	CancelMembership(ctx context.Context, id int64) (*models.Membership, error)
	// ResolveActive returns the membership granting access at the given
	// instant, or nil when there is none.
	ResolveActive(ctx context.Context, clientID int64, at time.Time) (*models.Membership, error)
	// ResolveUpcoming returns the next queued membership, or nil.
	ResolveUpcoming(ctx context.Context, clientID int64, at time.Time) (*models.Membership, error)
	GetExpiring(ctx context.Context, days int) ([]models.Membership, error)
	GetClientMemberships(ctx context.Context, clientID int64) ([]models.Membership, error)
	ExpireLapsed(ctx context.Context, at time.Time) (int64, error)
	ExpireLapsedForClient(ctx context.Context, clientID int64, at time.Time) (int64, error)
}

type membershipService struct {
	membershipRepo repositories.MembershipRepository
	planRepo       repositories.PlanRepository
	clientRepo     repositories.ClientRepository
	tx             TxRunner
	cal            Calendar
}

// NewMembershipService creates a new instance of MembershipService.
func NewMembershipService(
	mr repositories.MembershipRepository,
	pr repositories.PlanRepository,
	cr repositories.ClientRepository,
	tx TxRunner,
	cal Calendar,
) MembershipService {
	return &membershipService{
		membershipRepo: mr,
		planRepo:       pr,
		clientRepo:     cr,
		tx:             tx,
		cal:            cal,
	}
}

func notFoundAsNil(m *models.Membership, err error) (*models.Membership, error) {
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	return m, err
}

// AssignMembership sells a plan to a client. In replace mode the current
// membership is expired at now and any queued one is cancelled; in queue
// mode the new membership starts when the current one ends.
func (s *membershipService) AssignMembership(ctx context.Context, req AssignMembershipRequest, createdBy int64) (*models.Membership, error) {
	ctx, span := tracer.Start(ctx, "MembershipService.AssignMembership")
	defer span.End()
	span.SetAttributes(attribute.Int64("client.id", req.ClientID), attribute.Int64("plan.id", req.PlanID))

	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = models.AssignModeReplace
	}
	if mode != models.AssignModeReplace && mode != models.AssignModeQueue {
		return nil, fmt.Errorf("%w: mode must be %q or %q", ErrValidation, models.AssignModeReplace, models.AssignModeQueue)
	}
	span.SetAttributes(attribute.String("assign.mode", mode))
	if req.AmountPaid < 0 {
		return nil, fmt.Errorf("%w: amountPaid cannot be negative", ErrValidation)
	}

	var explicitStart *time.Time
	if req.StartDate != nil && !utils.IsEmpty(*req.StartDate) {
		t, err := utils.ParseDateOrTime(*req.StartDate, s.cal.Location())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		explicitStart = &t
	}

	plan, err := s.planRepo.GetPlanByID(ctx, req.PlanID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get membership plan: %w", err)
	}
	if !plan.IsActive {
		return nil, ErrPlanInactive
	}
	if _, err := s.clientRepo.GetClientByID(ctx, req.ClientID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	now := s.cal.Now()
	var created *models.Membership
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		active, err := notFoundAsNil(s.membershipRepo.FindActive(ctx, exec, req.ClientID, now))
		if err != nil {
			return fmt.Errorf("failed to resolve active membership: %w", err)
		}
		upcoming, err := notFoundAsNil(s.membershipRepo.FindUpcoming(ctx, exec, req.ClientID, now))
		if err != nil {
			return fmt.Errorf("failed to resolve upcoming membership: %w", err)
		}

		start := now
		if mode == models.AssignModeQueue && upcoming != nil {
			return ErrMembershipAlreadyQueued
		}
		if mode == models.AssignModeQueue && active != nil {
			start = active.EndDate
		} else {
			if explicitStart != nil {
				start = *explicitStart
			}
			if active != nil {
				if err := s.membershipRepo.ExpireMembership(ctx, exec, active.ID, now); err != nil {
					return fmt.Errorf("failed to expire membership %d: %w", active.ID, err)
				}
			}
			if upcoming != nil {
				if _, err := s.membershipRepo.CancelUpcoming(ctx, exec, req.ClientID, now); err != nil {
					return fmt.Errorf("failed to cancel queued membership: %w", err)
				}
			}
		}

		m := &models.Membership{
			ClientID:   req.ClientID,
			PlanID:     plan.ID,
			StartDate:  start,
			EndDate:    start.AddDate(0, 0, plan.DurationDays),
			AmountPaid: req.AmountPaid,
			Status:     models.MembershipActive,
		}
		if createdBy > 0 {
			m.CreatedBy = int64Ptr(createdBy)
		}
		id, err := s.membershipRepo.CreateMembership(ctx, exec, m)
		if err != nil {
			return fmt.Errorf("failed to create membership: %w", err)
		}
		created, err = s.membershipRepo.GetMembershipByID(ctx, exec, id)
		if err != nil {
			return fmt.Errorf("failed to reload membership %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	utils.LogInfo("Membership assigned", map[string]interface{}{
		"membership_id": created.ID, "client_id": created.ClientID, "plan_id": created.PlanID, "mode": mode,
	})
	return created, nil
}

func (s *membershipService) getMembership(ctx context.Context, id int64) (*models.Membership, error) {
	m, err := s.membershipRepo.GetMembershipByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, nil
}

func (s *membershipService) setStatus(ctx context.Context, m *models.Membership, status string) (*models.Membership, error) {
	if err := s.membershipRepo.UpdateStatus(ctx, nil, m.ID, status); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to update membership status: %w", err)
	}
	m.Status = status
	m.UpdatedAt = s.cal.Now()
	return m, nil
}

// FreezeMembership suspends an ACTIVE membership. Its dates are not moved.
func (s *membershipService) FreezeMembership(ctx context.Context, id int64) (*models.Membership, error) {
	m, err := s.getMembership(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Status != models.MembershipActive {
		return nil, fmt.Errorf("%w: only ACTIVE memberships can be frozen, status is %s", ErrInvalidMembershipState, m.Status)
	}
	return s.setStatus(ctx, m, models.MembershipFrozen)
}

// UnfreezeMembership reactivates a FROZEN membership unless the client has
// since been given another one overlapping its period, or another queued one.
func (s *membershipService) UnfreezeMembership(ctx context.Context, id int64) (*models.Membership, error) {
	m, err := s.getMembership(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Status != models.MembershipFrozen {
		return nil, fmt.Errorf("%w: only FROZEN memberships can be unfrozen, status is %s", ErrInvalidMembershipState, m.Status)
	}
	others, err := s.membershipRepo.GetByClient(ctx, m.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list client memberships: %w", err)
	}
	now := s.cal.Now()
	for _, other := range others {
		if other.ID == m.ID || other.Status != models.MembershipActive {
			continue
		}
		if other.StartDate.Before(m.EndDate) && m.StartDate.Before(other.EndDate) {
			return nil, fmt.Errorf("%w: membership %d overlaps its period", ErrInvalidMembershipState, other.ID)
		}
		if m.StartDate.After(now) && other.StartDate.After(now) {
			return nil, fmt.Errorf("%w: membership %d is already queued", ErrInvalidMembershipState, other.ID)
		}
	}
	return s.setStatus(ctx, m, models.MembershipActive)
}

func (s *membershipService) CancelMembership(ctx context.Context, id int64) (*models.Membership, error) {
	m, err := s.getMembership(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.setStatus(ctx, m, models.MembershipCancelled)
}

func (s *membershipService) ResolveActive(ctx context.Context, clientID int64, at time.Time) (*models.Membership, error) {
	m, err := notFoundAsNil(s.membershipRepo.FindActive(ctx, nil, clientID, at))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve active membership: %w", err)
	}
	return m, nil
}

func (s *membershipService) ResolveUpcoming(ctx context.Context, clientID int64, at time.Time) (*models.Membership, error) {
	m, err := notFoundAsNil(s.membershipRepo.FindUpcoming(ctx, nil, clientID, at))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upcoming membership: %w", err)
	}
	return m, nil
}

// GetExpiring lists started ACTIVE memberships ending within days.
func (s *membershipService) GetExpiring(ctx context.Context, days int) ([]models.Membership, error) {
	if days < 0 {
		return nil, fmt.Errorf("%w: days cannot be negative", ErrValidation)
	}
	now := s.cal.Now()
	list, err := s.membershipRepo.GetExpiring(ctx, now, now.AddDate(0, 0, days))
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring memberships: %w", err)
	}
	return list, nil
}

func (s *membershipService) GetClientMemberships(ctx context.Context, clientID int64) ([]models.Membership, error) {
	if _, err := s.clientRepo.GetClientByID(ctx, clientID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	list, err := s.membershipRepo.GetByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list client memberships: %w", err)
	}
	return list, nil
}

func (s *membershipService) ExpireLapsed(ctx context.Context, at time.Time) (int64, error) {
	n, err := s.membershipRepo.ExpireLapsed(ctx, at)
	if err != nil {
		return 0, fmt.Errorf("failed to expire lapsed memberships: %w", err)
	}
	return n, nil
}

func (s *membershipService) ExpireLapsedForClient(ctx context.Context, clientID int64, at time.Time) (int64, error) {
	n, err := s.membershipRepo.ExpireLapsedForClient(ctx, clientID, at)
	if err != nil {
		return 0, fmt.Errorf("failed to expire lapsed memberships for client %d: %w", clientID, err)
	}
	return n, nil
}

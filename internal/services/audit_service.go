package services

import (
	"context"
	"fmt"

	"gymcore_backend/internal/models"
	"gymcore_backend/internal/repositories"
)

// AuditService appends and lists audit entries.
type AuditService interface {
	Record(ctx context.Context, entry *models.AuditLog) error
	GetAuditLogs(ctx context.Context, filters models.AuditFilters) ([]models.AuditLog, int, error)
}

type auditService struct {
	auditRepo repositories.AuditRepository
	cal       Calendar
}

// NewAuditService creates a new instance of AuditService.
func NewAuditService(ar repositories.AuditRepository, cal Calendar) AuditService {
	return &auditService{auditRepo: ar, cal: cal}
}

func (s *auditService) Record(ctx context.Context, entry *models.AuditLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.cal.Now()
	}
	if entry.IPAddress == "" {
		entry.IPAddress = "unknown"
	}
	if _, err := s.auditRepo.CreateAuditLog(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *auditService) GetAuditLogs(ctx context.Context, filters models.AuditFilters) ([]models.AuditLog, int, error) {
	logs, total, err := s.auditRepo.GetAuditLogs(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, total, nil
}

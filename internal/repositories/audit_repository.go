package repositories

import (
	"context"
	"database/sql"

	"gymcore_backend/internal/models"
)

// AuditRepository stores and lists audit log entries.
type AuditRepository interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) (int64, error)
	GetAuditLogs(ctx context.Context, filters models.AuditFilters) ([]models.AuditLog, int, error)
}

type auditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new instance of AuditRepository.
func NewAuditRepository(db *sql.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) CreateAuditLog(ctx context.Context, entry *models.AuditLog) (int64, error) {
	var newValues interface{}
	if len(entry.NewValues) > 0 {
		newValues = []byte(entry.NewValues)
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO audit_logs (user_id, action, entity_type, entity_id, new_values, ip_address, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		entry.UserID, entry.Action, entry.EntityType, entry.EntityID, newValues, entry.IPAddress, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return 0, mapError(err, "creating audit log")
	}
	return entry.ID, nil
}

func (r *auditRepository) GetAuditLogs(ctx context.Context, filters models.AuditFilters) ([]models.AuditLog, int, error) {
	var where whereBuilder
	if filters.UserID != nil {
		where.add("l.user_id = $%d", *filters.UserID)
	}
	if filters.EntityType != "" {
		where.add("l.entity_type = $%d", filters.EntityType)
	}
	if filters.Action != "" {
		where.add("l.action ILIKE $%d", "%"+filters.Action+"%")
	}
	if filters.From != nil {
		where.add("l.created_at >= $%d", *filters.From)
	}
	if filters.To != nil {
		where.add("l.created_at <= $%d", *filters.To)
	}
	query := `SELECT l.id, l.user_id, l.action, l.entity_type, l.entity_id, l.new_values, l.ip_address, l.created_at,
	                 u.name, COUNT(*) OVER() AS total_count
	          FROM audit_logs l LEFT JOIN users u ON u.id = l.user_id` +
		where.String() + ` ORDER BY l.created_at DESC, l.id DESC` + where.paginate(filters.Page, filters.Limit)

	rows, err := r.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, 0, mapError(err, "querying audit logs")
	}
	defer rows.Close()

	logs := []models.AuditLog{}
	total := 0
	for rows.Next() {
		var l models.AuditLog
		var userID sql.NullInt64
		var entityID, userName sql.NullString
		var newValues []byte
		if err := rows.Scan(&l.ID, &userID, &l.Action, &l.EntityType, &entityID, &newValues, &l.IPAddress, &l.CreatedAt, &userName, &total); err != nil {
			return nil, 0, mapError(err, "scanning audit log")
		}
		l.UserID = nullInt64Ptr(userID)
		l.EntityID = nullStringPtr(entityID)
		l.UserName = nullStringPtr(userName)
		l.NewValues = newValues
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError(err, "iterating audit log rows")
	}
	return logs, total, nil
}

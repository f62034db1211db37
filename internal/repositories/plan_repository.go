package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gymcore_backend/internal/models"
)

// PlanRepository defines database operations on membership plans.
type PlanRepository interface {
	CreatePlan(ctx context.Context, plan *models.MembershipPlan) (int64, error)
	GetPlanByID(ctx context.Context, id int64) (*models.MembershipPlan, error)
	GetPlans(ctx context.Context, activeOnly bool) ([]models.MembershipPlan, error)
	UpdatePlan(ctx context.Context, plan *models.MembershipPlan) error
	DeactivatePlan(ctx context.Context, id int64) error
}

type planRepository struct {
	db *sql.DB
}

// NewPlanRepository creates a new instance of PlanRepository.
func NewPlanRepository(db *sql.DB) PlanRepository {
	return &planRepository{db: db}
}

const planColumns = `id, name, description, price, duration_days, is_active, created_at, updated_at`

func scanPlan(row scanner) (*models.MembershipPlan, error) {
	p := &models.MembershipPlan{}
	var desc sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &desc, &p.Price, &p.DurationDays, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Description = nullStringPtr(desc)
	return p, nil
}

func (r *planRepository) CreatePlan(ctx context.Context, plan *models.MembershipPlan) (int64, error) {
	query := `INSERT INTO membership_plans (name, description, price, duration_days, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`
	now := time.Now()
	plan.CreatedAt, plan.UpdatedAt = now, now
	err := r.db.QueryRowContext(ctx, query,
		plan.Name, plan.Description, plan.Price, plan.DurationDays, plan.IsActive, now, now,
	).Scan(&plan.ID)
	if err != nil {
		return 0, mapError(err, "creating membership plan")
	}
	return plan.ID, nil
}

func (r *planRepository) GetPlanByID(ctx context.Context, id int64) (*models.MembershipPlan, error) {
	p, err := scanPlan(r.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM membership_plans WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("getting membership plan %d", id))
	}
	return p, nil
}

// GetPlans lists plans by price; activeOnly hides deactivated plans.
func (r *planRepository) GetPlans(ctx context.Context, activeOnly bool) ([]models.MembershipPlan, error) {
	query := `SELECT ` + planColumns + ` FROM membership_plans`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY price ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err, "querying membership plans")
	}
	defer rows.Close()

	plans := []models.MembershipPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, mapError(err, "scanning membership plan")
		}
		plans = append(plans, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "iterating membership plan rows")
	}
	return plans, nil
}

func (r *planRepository) UpdatePlan(ctx context.Context, plan *models.MembershipPlan) error {
	query := `UPDATE membership_plans SET name = $1, description = $2, price = $3, duration_days = $4,
	            is_active = $5, updated_at = $6
	          WHERE id = $7`
	plan.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, query,
		plan.Name, plan.Description, plan.Price, plan.DurationDays, plan.IsActive, plan.UpdatedAt, plan.ID,
	)
	if err != nil {
		return mapError(err, "updating membership plan")
	}
	return rowsAffectedOrNotFound(res, "updating membership plan")
}

// DeactivatePlan is the soft delete for plans; existing memberships keep their plan.
func (r *planRepository) DeactivatePlan(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE membership_plans SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "deactivating membership plan")
	}
	return rowsAffectedOrNotFound(res, "deactivating membership plan")
}

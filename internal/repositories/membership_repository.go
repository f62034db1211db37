package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gymcore_backend/internal/models"

	"github.com/lib/pq"
)

// MembershipRepository defines database operations on memberships. Methods
// taking an SQLExecutor run on it when non-nil so they can join a transaction.
type MembershipRepository interface {
	CreateMembership(ctx context.Context, exec SQLExecutor, m *models.Membership) (int64, error)
	GetMembershipByID(ctx context.Context, exec SQLExecutor, id int64) (*models.Membership, error)
	// FindActive returns the ACTIVE membership covering at, latest end date first.
	FindActive(ctx context.Context, exec SQLExecutor, clientID int64, at time.Time) (*models.Membership, error)
	// FindUpcoming returns the earliest ACTIVE membership starting after at.
	FindUpcoming(ctx context.Context, exec SQLExecutor, clientID int64, at time.Time) (*models.Membership, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int64, status string) error
	ExpireMembership(ctx context.Context, exec SQLExecutor, id int64, endDate time.Time) error
	CancelUpcoming(ctx context.Context, exec SQLExecutor, clientID int64, at time.Time) (int64, error)
	GetByClient(ctx context.Context, clientID int64) ([]models.Membership, error)
	// GetCurrentForClients returns ACTIVE memberships ending at or after at
	// for the given clients: both current and queued ones.
	GetCurrentForClients(ctx context.Context, clientIDs []int64, at time.Time) ([]models.Membership, error)
	GetExpiring(ctx context.Context, now, until time.Time) ([]models.Membership, error)
	ExpireLapsed(ctx context.Context, at time.Time) (int64, error)
	ExpireLapsedForClient(ctx context.Context, clientID int64, at time.Time) (int64, error)
}

type membershipRepository struct {
	db *sql.DB
}

// NewMembershipRepository creates a new instance of MembershipRepository.
func NewMembershipRepository(db *sql.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

const membershipSelect = `SELECT m.id, m.client_id, m.plan_id, m.start_date, m.end_date, m.amount_paid, m.status,
	       m.created_by, m.created_at, m.updated_at,
	       p.id, p.name, p.description, p.price, p.duration_days, p.is_active, p.created_at, p.updated_at,
	       c.name, c.qr_code, c.photo_url
	FROM memberships m
	JOIN membership_plans p ON p.id = m.plan_id
	JOIN clients c ON c.id = m.client_id`

func scanMembership(row scanner) (*models.Membership, error) {
	m := &models.Membership{Plan: &models.MembershipPlan{}, Client: &models.Client{}}
	var createdBy sql.NullInt64
	var planDesc, photo sql.NullString
	err := row.Scan(
		&m.ID, &m.ClientID, &m.PlanID, &m.StartDate, &m.EndDate, &m.AmountPaid, &m.Status,
		&createdBy, &m.CreatedAt, &m.UpdatedAt,
		&m.Plan.ID, &m.Plan.Name, &planDesc, &m.Plan.Price, &m.Plan.DurationDays, &m.Plan.IsActive, &m.Plan.CreatedAt, &m.Plan.UpdatedAt,
		&m.Client.Name, &m.Client.QRCode, &photo,
	)
	if err != nil {
		return nil, err
	}
	m.CreatedBy = nullInt64Ptr(createdBy)
	m.Plan.Description = nullStringPtr(planDesc)
	m.Client.ID = m.ClientID
	m.Client.PhotoURL = nullStringPtr(photo)
	return m, nil
}

func (r *membershipRepository) queryMemberships(ctx context.Context, exec SQLExecutor, op, query string, args ...interface{}) ([]models.Membership, error) {
	rows, err := executorOr(r.db, exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, op)
	}
	defer rows.Close()

	list := []models.Membership{}
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, mapError(err, op+": scanning membership")
		}
		list = append(list, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, op+": iterating membership rows")
	}
	return list, nil
}

func (r *membershipRepository) CreateMembership(ctx context.Context, exec SQLExecutor, m *models.Membership) (int64, error) {
	query := `INSERT INTO memberships (client_id, plan_id, start_date, end_date, amount_paid, status, created_by, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING id`
	now := time.Now()
	m.CreatedAt, m.UpdatedAt = now, now
	err := executorOr(r.db, exec).QueryRowContext(ctx, query,
		m.ClientID, m.PlanID, m.StartDate, m.EndDate, m.AmountPaid, m.Status, m.CreatedBy, now, now,
	).Scan(&m.ID)
	if err != nil {
		return 0, mapError(err, "creating membership")
	}
	return m.ID, nil
}

func (r *membershipRepository) GetMembershipByID(ctx context.Context, exec SQLExecutor, id int64) (*models.Membership, error) {
	m, err := scanMembership(executorOr(r.db, exec).QueryRowContext(ctx, membershipSelect+` WHERE m.id = $1`, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("getting membership %d", id))
	}
	return m, nil
}

func (r *membershipRepository) FindActive(ctx context.Context, exec SQLExecutor, clientID int64, at time.Time) (*models.Membership, error) {
	query := membershipSelect + `
	WHERE m.client_id = $1 AND m.status = 'ACTIVE' AND m.start_date <= $2 AND m.end_date >= $2
	ORDER BY m.end_date DESC LIMIT 1`
	m, err := scanMembership(executorOr(r.db, exec).QueryRowContext(ctx, query, clientID, at))
	if err != nil {
		return nil, mapError(err, "finding active membership")
	}
	return m, nil
}

func (r *membershipRepository) FindUpcoming(ctx context.Context, exec SQLExecutor, clientID int64, at time.Time) (*models.Membership, error) {
	query := membershipSelect + `
	WHERE m.client_id = $1 AND m.status = 'ACTIVE' AND m.start_date > $2
	ORDER BY m.start_date ASC LIMIT 1`
	m, err := scanMembership(executorOr(r.db, exec).QueryRowContext(ctx, query, clientID, at))
	if err != nil {
		return nil, mapError(err, "finding upcoming membership")
	}
	return m, nil
}

func (r *membershipRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int64, status string) error {
	res, err := executorOr(r.db, exec).ExecContext(ctx,
		`UPDATE memberships SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return mapError(err, "updating membership status")
	}
	return rowsAffectedOrNotFound(res, "updating membership status")
}

// ExpireMembership marks a membership EXPIRED and cuts its end date.
func (r *membershipRepository) ExpireMembership(ctx context.Context, exec SQLExecutor, id int64, endDate time.Time) error {
	res, err := executorOr(r.db, exec).ExecContext(ctx,
		`UPDATE memberships SET status = 'EXPIRED', end_date = $1, updated_at = NOW() WHERE id = $2`, endDate, id)
	if err != nil {
		return mapError(err, "expiring membership")
	}
	return rowsAffectedOrNotFound(res, "expiring membership")
}

// CancelUpcoming cancels every queued membership of a client.
func (r *membershipRepository) CancelUpcoming(ctx context.Context, exec SQLExecutor, clientID int64, at time.Time) (int64, error) {
	res, err := executorOr(r.db, exec).ExecContext(ctx,
		`UPDATE memberships SET status = 'CANCELLED', updated_at = NOW()
		 WHERE client_id = $1 AND status = 'ACTIVE' AND start_date > $2`, clientID, at)
	if err != nil {
		return 0, mapError(err, "cancelling upcoming memberships")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// GetByClient returns the full membership history of a client, newest first.
func (r *membershipRepository) GetByClient(ctx context.Context, clientID int64) ([]models.Membership, error) {
	return r.queryMemberships(ctx, nil, "listing client memberships",
		membershipSelect+` WHERE m.client_id = $1 ORDER BY m.created_at DESC, m.id DESC`, clientID)
}

func (r *membershipRepository) GetCurrentForClients(ctx context.Context, clientIDs []int64, at time.Time) ([]models.Membership, error) {
	if len(clientIDs) == 0 {
		return []models.Membership{}, nil
	}
	return r.queryMemberships(ctx, nil, "listing current memberships",
		membershipSelect+` WHERE m.client_id = ANY($1) AND m.status = 'ACTIVE' AND m.end_date >= $2
		ORDER BY m.client_id, m.start_date ASC`, pq.Array(clientIDs), at)
}

// GetExpiring lists started ACTIVE memberships ending by until, soonest first.
func (r *membershipRepository) GetExpiring(ctx context.Context, now, until time.Time) ([]models.Membership, error) {
	return r.queryMemberships(ctx, nil, "listing expiring memberships",
		membershipSelect+` WHERE m.status = 'ACTIVE' AND m.start_date <= $1 AND m.end_date <= $2
		ORDER BY m.end_date ASC`, now, until)
}

// ExpireLapsed transitions every ACTIVE membership that ended before at.
func (r *membershipRepository) ExpireLapsed(ctx context.Context, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE memberships SET status = 'EXPIRED', updated_at = NOW() WHERE status = 'ACTIVE' AND end_date < $1`, at)
	if err != nil {
		return 0, mapError(err, "expiring lapsed memberships")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *membershipRepository) ExpireLapsedForClient(ctx context.Context, clientID int64, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE memberships SET status = 'EXPIRED', updated_at = NOW()
		 WHERE client_id = $1 AND status = 'ACTIVE' AND end_date < $2`, clientID, at)
	if err != nil {
		return 0, mapError(err, "expiring lapsed client memberships")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

package repositories

import (
	"context"
	"database/sql"
	"time"

	"gymcore_backend/internal/models"
)

// AttendanceRepository defines database operations on gym visits.
type AttendanceRepository interface {
	CreateAttendance(ctx context.Context, a *models.Attendance) (int64, error)
	// FindOpenSince returns the most recent open visit of a client that started at or after since.
	FindOpenSince(ctx context.Context, clientID int64, since time.Time) (*models.Attendance, error)
	CloseAttendance(ctx context.Context, id int64, at time.Time) error
	// GetOpenBefore lists open visits that started before the given instant.
	GetOpenBefore(ctx context.Context, before time.Time) ([]models.Attendance, error)
	GetSince(ctx context.Context, since time.Time) ([]models.Attendance, error)
	GetHistory(ctx context.Context, from, to *time.Time, page, limit int) ([]models.Attendance, int, error)
	GetRecentByClient(ctx context.Context, clientID int64, limit int) ([]models.Attendance, error)
	CountByClientSince(ctx context.Context, clientID int64, since *time.Time) (int, error)
}

type attendanceRepository struct {
	db *sql.DB
}

// NewAttendanceRepository creates a new instance of AttendanceRepository.
func NewAttendanceRepository(db *sql.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

const attendanceSelect = `SELECT a.id, a.client_id, a.check_in, a.check_in_day, a.check_out, a.method, a.validated_by, c.name
	FROM attendances a
	JOIN clients c ON c.id = a.client_id`

func scanAttendance(row scanner, extra ...interface{}) (*models.Attendance, error) {
	a := &models.Attendance{}
	var checkOut sql.NullTime
	var validatedBy sql.NullInt64
	dest := []interface{}{&a.ID, &a.ClientID, &a.CheckIn, &a.CheckInDay, &checkOut, &a.Method, &validatedBy, &a.ClientName}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	a.CheckOut = nullTimePtr(checkOut)
	a.ValidatedBy = nullInt64Ptr(validatedBy)
	return a, nil
}

func (r *attendanceRepository) queryAttendances(ctx context.Context, op, query string, args ...interface{}) ([]models.Attendance, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, op)
	}
	defer rows.Close()

	list := []models.Attendance{}
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, mapError(err, op+": scanning attendance")
		}
		list = append(list, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, op+": iterating attendance rows")
	}
	return list, nil
}

// CreateAttendance inserts an open visit. A second open visit for the same
// client and day violates attendances_one_open_per_day and yields ErrDuplicateKey.
func (r *attendanceRepository) CreateAttendance(ctx context.Context, a *models.Attendance) (int64, error) {
	query := `INSERT INTO attendances (client_id, check_in, check_in_day, method, validated_by)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		a.ClientID, a.CheckIn, a.CheckInDay.Format("2006-01-02"), a.Method, a.ValidatedBy,
	).Scan(&a.ID)
	if err != nil {
		return 0, mapError(err, "creating attendance")
	}
	return a.ID, nil
}

func (r *attendanceRepository) FindOpenSince(ctx context.Context, clientID int64, since time.Time) (*models.Attendance, error) {
	query := attendanceSelect + `
	WHERE a.client_id = $1 AND a.check_in >= $2 AND a.check_out IS NULL
	ORDER BY a.check_in DESC LIMIT 1`
	a, err := scanAttendance(r.db.QueryRowContext(ctx, query, clientID, since))
	if err != nil {
		return nil, mapError(err, "finding open attendance")
	}
	return a, nil
}

// CloseAttendance sets check_out on an open visit; closed visits yield ErrNotFound.
func (r *attendanceRepository) CloseAttendance(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE attendances SET check_out = $1 WHERE id = $2 AND check_out IS NULL`, at, id)
	if err != nil {
		return mapError(err, "closing attendance")
	}
	return rowsAffectedOrNotFound(res, "closing attendance")
}

func (r *attendanceRepository) GetOpenBefore(ctx context.Context, before time.Time) ([]models.Attendance, error) {
	return r.queryAttendances(ctx, "listing stale attendances",
		attendanceSelect+` WHERE a.check_out IS NULL AND a.check_in < $1 ORDER BY a.check_in ASC`, before)
}

func (r *attendanceRepository) GetSince(ctx context.Context, since time.Time) ([]models.Attendance, error) {
	return r.queryAttendances(ctx, "listing attendances",
		attendanceSelect+` WHERE a.check_in >= $1 ORDER BY a.check_in DESC`, since)
}

// GetHistory pages through visits in [from, to], newest first. Nil bounds are open.
func (r *attendanceRepository) GetHistory(ctx context.Context, from, to *time.Time, page, limit int) ([]models.Attendance, int, error) {
	var where whereBuilder
	if from != nil {
		where.add("a.check_in >= $%d", *from)
	}
	if to != nil {
		where.add("a.check_in <= $%d", *to)
	}
	query := `SELECT a.id, a.client_id, a.check_in, a.check_in_day, a.check_out, a.method, a.validated_by, c.name,
	                 COUNT(*) OVER() AS total_count
	          FROM attendances a JOIN clients c ON c.id = a.client_id` +
		where.String() + ` ORDER BY a.check_in DESC, a.id DESC` + where.paginate(page, limit)

	rows, err := r.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, 0, mapError(err, "querying attendance history")
	}
	defer rows.Close()

	list := []models.Attendance{}
	total := 0
	for rows.Next() {
		a, err := scanAttendance(rows, &total)
		if err != nil {
			return nil, 0, mapError(err, "scanning attendance")
		}
		list = append(list, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError(err, "iterating attendance rows")
	}
	return list, total, nil
}

func (r *attendanceRepository) GetRecentByClient(ctx context.Context, clientID int64, limit int) ([]models.Attendance, error) {
	return r.queryAttendances(ctx, "listing client attendances",
		attendanceSelect+` WHERE a.client_id = $1 ORDER BY a.check_in DESC LIMIT $2`, clientID, limit)
}

// CountByClientSince counts a client's visits; a nil since counts all of them.
func (r *attendanceRepository) CountByClientSince(ctx context.Context, clientID int64, since *time.Time) (int, error) {
	var where whereBuilder
	where.add("client_id = $%d", clientID)
	if since != nil {
		where.add("check_in >= $%d", *since)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendances`+where.String(), where.args...).Scan(&n); err != nil {
		return 0, mapError(err, "counting client attendances")
	}
	return n, nil
}

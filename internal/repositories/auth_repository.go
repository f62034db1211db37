package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gymcore_backend/internal/models"
)

// UserRepository defines the interface for staff user database operations.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) (int64, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, userID int64) (*models.User, error)
	FindFirstAdmin(ctx context.Context) (*models.User, error)
	GetUsers(ctx context.Context, filters models.UserFilters) ([]models.User, int, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeactivateUser(ctx context.Context, userID int64) error
}

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, password_hash, name, phone, role, is_active, created_at, updated_at`

func scanUser(row scanner, extra ...interface{}) (*models.User, error) {
	u := &models.User{}
	var phone sql.NullString
	dest := []interface{}{&u.ID, &u.Email, &u.PasswordHash, &u.Name, &phone, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	u.Phone = nullStringPtr(phone)
	return u, nil
}

// CreateUser inserts a new user. The email is stored lower-cased.
func (r *userRepository) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	query := `INSERT INTO users (email, password_hash, name, phone, role, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id`

	now := time.Now()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt, user.UpdatedAt = now, now

	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.Name, user.Phone, user.Role, user.IsActive, now, now,
	).Scan(&user.ID)
	if err != nil {
		return 0, mapError(err, "creating user")
	}
	return user.ID, nil
}

// FindUserByEmail retrieves a user by email, case-insensitively.
func (r *userRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return nil, mapError(err, "finding user by email")
	}
	return u, nil
}

// FindUserByID retrieves a user by ID.
func (r *userRepository) FindUserByID(ctx context.Context, userID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("finding user by ID %d", userID))
	}
	return u, nil
}

// FindFirstAdmin returns the oldest active ADMIN or OWNER account. It is the
// identity used for check-ins registered by unattended scanners.
func (r *userRepository) FindFirstAdmin(ctx context.Context) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
	          WHERE role IN ('ADMIN', 'OWNER') AND is_active = TRUE
	          ORDER BY id ASC LIMIT 1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query))
	if err != nil {
		return nil, mapError(err, "finding first admin")
	}
	return u, nil
}

// GetUsers lists users with pagination and an optional name/email search.
func (r *userRepository) GetUsers(ctx context.Context, filters models.UserFilters) ([]models.User, int, error) {
	var where whereBuilder
	if s := strings.TrimSpace(filters.Search); s != "" {
		where.add("(name ILIKE $%[1]d OR email ILIKE $%[1]d)", "%"+s+"%")
	}
	query := `SELECT ` + userColumns + `, COUNT(*) OVER() AS total_count FROM users` +
		where.String() + ` ORDER BY name ASC` + where.paginate(filters.Page, filters.Limit)

	rows, err := r.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, 0, mapError(err, "querying users")
	}
	defer rows.Close()

	users := []models.User{}
	total := 0
	for rows.Next() {
		u, err := scanUser(rows, &total)
		if err != nil {
			return nil, 0, mapError(err, "scanning user")
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError(err, "iterating user rows")
	}
	return users, total, nil
}

// UpdateUser writes the mutable profile fields of user.
func (r *userRepository) UpdateUser(ctx context.Context, user *models.User) error {
	query := `UPDATE users SET name = $1, phone = $2, role = $3, is_active = $4, updated_at = $5 WHERE id = $6`
	user.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, query, user.Name, user.Phone, user.Role, user.IsActive, user.UpdatedAt, user.ID)
	if err != nil {
		return mapError(err, "updating user")
	}
	return rowsAffectedOrNotFound(res, "updating user")
}

// DeactivateUser disables a login without deleting the row.
func (r *userRepository) DeactivateUser(ctx context.Context, userID int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, userID)
	if err != nil {
		return mapError(err, "deactivating user")
	}
	return rowsAffectedOrNotFound(res, "deactivating user")
}

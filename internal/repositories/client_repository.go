package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gymcore_backend/internal/models"
)

// ClientRepository defines the interface for client-related database operations.
type ClientRepository interface {
	CreateClient(ctx context.Context, client *models.Client) (int64, error)
	GetClientByID(ctx context.Context, id int64) (*models.Client, error)
	GetClientByQRCode(ctx context.Context, qrCode string) (*models.Client, error)
	GetClients(ctx context.Context, page, limit int, search string) ([]models.Client, int, error)
	UpdateClient(ctx context.Context, client *models.Client) error
	UpdateMedicalNotes(ctx context.Context, id int64, notes *string) error
	DeleteClient(ctx context.Context, id int64) error
}

type clientRepository struct {
	db *sql.DB
}

// NewClientRepository creates a new instance of ClientRepository.
func NewClientRepository(db *sql.DB) ClientRepository {
	return &clientRepository{db: db}
}

const clientColumns = `id, name, email, phone, emergency_contact, birth_date, medical_notes, photo_url, qr_code, created_at, updated_at`

func scanClient(row scanner, extra ...interface{}) (*models.Client, error) {
	c := &models.Client{}
	var email, phone, emergency, notes, photo sql.NullString
	var birth sql.NullTime
	dest := []interface{}{&c.ID, &c.Name, &email, &phone, &emergency, &birth, &notes, &photo, &c.QRCode, &c.CreatedAt, &c.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	c.Email = nullStringPtr(email)
	c.Phone = nullStringPtr(phone)
	c.EmergencyContact = nullStringPtr(emergency)
	c.BirthDate = nullTimePtr(birth)
	c.MedicalNotes = nullStringPtr(notes)
	c.PhotoURL = nullStringPtr(photo)
	return c, nil
}

// CreateClient inserts a new client into the database.
func (r *clientRepository) CreateClient(ctx context.Context, client *models.Client) (int64, error) {
	query := `INSERT INTO clients (name, email, phone, emergency_contact, birth_date, medical_notes, photo_url, qr_code, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING id`

	now := time.Now()
	client.CreatedAt, client.UpdatedAt = now, now

	var birth sql.NullTime
	if client.BirthDate != nil {
		birth = sql.NullTime{Time: *client.BirthDate, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		client.Name, client.Email, client.Phone, client.EmergencyContact, birth,
		client.MedicalNotes, client.PhotoURL, client.QRCode, now, now,
	).Scan(&client.ID)
	if err != nil {
		return 0, mapError(err, "creating client")
	}
	return client.ID, nil
}

// GetClientByID retrieves a client by their ID.
func (r *clientRepository) GetClientByID(ctx context.Context, id int64) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	c, err := scanClient(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("getting client by ID %d", id))
	}
	return c, nil
}

// GetClientByQRCode retrieves a client by the code printed on their card.
func (r *clientRepository) GetClientByQRCode(ctx context.Context, qrCode string) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE qr_code = $1`
	c, err := scanClient(r.db.QueryRowContext(ctx, query, strings.TrimSpace(qrCode)))
	if err != nil {
		return nil, mapError(err, "getting client by QR code")
	}
	return c, nil
}

// GetClients retrieves a list of clients with pagination and optional search
// over name, email, phone and QR code.
func (r *clientRepository) GetClients(ctx context.Context, page, limit int, search string) ([]models.Client, int, error) {
	var where whereBuilder
	if s := strings.TrimSpace(search); s != "" {
		where.add("(name ILIKE $%[1]d OR email ILIKE $%[1]d OR phone ILIKE $%[1]d OR qr_code ILIKE $%[1]d)", "%"+s+"%")
	}
	query := `SELECT ` + clientColumns + `, COUNT(*) OVER() AS total_count FROM clients` +
		where.String() + ` ORDER BY created_at DESC, id DESC` + where.paginate(page, limit)

	rows, err := r.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, 0, mapError(err, "querying clients")
	}
	defer rows.Close()

	clients := []models.Client{}
	total := 0
	for rows.Next() {
		c, err := scanClient(rows, &total)
		if err != nil {
			return nil, 0, mapError(err, "scanning client")
		}
		clients = append(clients, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError(err, "iterating client rows")
	}
	return clients, total, nil
}

// UpdateClient updates an existing client in the database. The QR code is immutable.
func (r *clientRepository) UpdateClient(ctx context.Context, client *models.Client) error {
	query := `UPDATE clients SET
	            name = $1, email = $2, phone = $3, emergency_contact = $4, birth_date = $5,
	            medical_notes = $6, photo_url = $7, updated_at = $8
	          WHERE id = $9`

	client.UpdatedAt = time.Now()
	var birth sql.NullTime
	if client.BirthDate != nil {
		birth = sql.NullTime{Time: *client.BirthDate, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, query,
		client.Name, client.Email, client.Phone, client.EmergencyContact, birth,
		client.MedicalNotes, client.PhotoURL, client.UpdatedAt, client.ID,
	)
	if err != nil {
		return mapError(err, "updating client")
	}
	return rowsAffectedOrNotFound(res, "updating client")
}

// UpdateMedicalNotes replaces the medical notes of a client; nil clears them.
func (r *clientRepository) UpdateMedicalNotes(ctx context.Context, id int64, notes *string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE clients SET medical_notes = $1, updated_at = NOW() WHERE id = $2`, notes, id)
	if err != nil {
		return mapError(err, "updating medical notes")
	}
	return rowsAffectedOrNotFound(res, "updating medical notes")
}

// DeleteClient removes a client. Clients with memberships, visits or sales
// fail with ErrForeignKey.
func (r *clientRepository) DeleteClient(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "deleting client")
	}
	return rowsAffectedOrNotFound(res, "deleting client")
}

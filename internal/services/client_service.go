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

	"github.com/google/uuid"
)

// --- Custom Service Errors for Client ---
var (
	ErrClientNotFound   = errors.New("client not found")
	ErrClientValidation = errors.New("client data validation error")
	ErrDateFormat       = errors.New("invalid date format, please use YYYY-MM-DD")
	ErrClientInUse      = errors.New("client cannot be deleted as they are referenced in other records")
)

const (
	qrCodePrefix       = "GYM-"
	qrCodeAttempts     = 3
	clientRecentVisits = 10
)

// --- Client DTOs ---
type CreateClientRequest struct {
	Name             string  `json:"name" binding:"required"`
	Email            *string `json:"email"`
	Phone            *string `json:"phone"`
	EmergencyContact *string `json:"emergencyContact"`
	BirthDate        *string `json:"birthDate"` // Format YYYY-MM-DD
	MedicalNotes     *string `json:"medicalNotes"`
	PhotoURL         *string `json:"photoUrl"`
}

type UpdateClientRequest struct {
	Name             *string `json:"name"`
	Email            *string `json:"email"`
	Phone            *string `json:"phone"`
	EmergencyContact *string `json:"emergencyContact"`
	BirthDate        *string `json:"birthDate"`
	MedicalNotes     *string `json:"medicalNotes"`
	PhotoURL         *string `json:"photoUrl"`
}

// UpdateMedicalNotesRequest DTO. A null or blank value clears the notes.
type UpdateMedicalNotesRequest struct {
	MedicalNotes *string `json:"medicalNotes"`
}

// --- ClientService Interface ---
type ClientService interface {
	CreateClient(ctx context.Context, req CreateClientRequest) (*models.Client, error)
	GetClientByID(ctx context.Context, clientID int64) (*models.ClientDetail, error)
	GetClientByQRCode(ctx context.Context, qrCode string) (*models.Client, error)
	GetClients(ctx context.Context, page, limit int, search string) ([]models.ClientSummary, int, error)
	UpdateClient(ctx context.Context, clientID int64, req UpdateClientRequest) (*models.Client, error)
	UpdateMedicalNotes(ctx context.Context, clientID int64, notes *string) (*models.Client, error)
	DeleteClient(ctx context.Context, clientID int64) error
	GetClientCard(ctx context.Context, clientID int64) (*models.ClientCard, error)
}

// --- clientService Implementation ---
type clientService struct {
	clientRepo     repositories.ClientRepository
	membershipRepo repositories.MembershipRepository
	attendanceRepo repositories.AttendanceRepository
	cal            Calendar
	newCode        func() string
}

// NewClientService creates a new instance of ClientService.
func NewClientService(
	cr repositories.ClientRepository,
	mr repositories.MembershipRepository,
	ar repositories.AttendanceRepository,
	cal Calendar,
) ClientService {
	return &clientService{
		clientRepo:     cr,
		membershipRepo: mr,
		attendanceRepo: ar,
		cal:            cal,
		newCode:        NewQRCode,
	}
}

// NewQRCode returns a fresh card code: "GYM-" followed by eight upper-case
// hex characters of a random UUID.
func NewQRCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return qrCodePrefix + strings.ToUpper(raw[:8])
}

func (s *clientService) validateClientData(name string, email *string) error {
	if utils.IsEmpty(name) {
		return fmt.Errorf("%w: name cannot be empty", ErrClientValidation)
	}
	if email != nil && !utils.IsEmpty(*email) && !utils.IsValidEmail(*email) {
		return fmt.Errorf("%w: email format is invalid", ErrClientValidation)
	}
	return nil
}

func (s *clientService) parseBirthDate(raw *string) (*time.Time, error) {
	if raw == nil || utils.IsEmpty(*raw) {
		return nil, nil
	}
	dob, err := time.ParseInLocation(utils.DateLayout, strings.TrimSpace(*raw), s.cal.Location())
	if err != nil {
		return nil, ErrDateFormat
	}
	if dob.After(s.cal.Now()) {
		return nil, fmt.Errorf("%w: birth date cannot be in the future", ErrClientValidation)
	}
	return &dob, nil
}

func (s *clientService) CreateClient(ctx context.Context, req CreateClientRequest) (*models.Client, error) {
	if err := s.validateClientData(req.Name, req.Email); err != nil {
		return nil, err
	}
	dob, err := s.parseBirthDate(req.BirthDate)
	if err != nil {
		return nil, err
	}

	client := &models.Client{
		Name:             strings.TrimSpace(req.Name),
		Email:            trimmedOrNil(req.Email),
		Phone:            trimmedOrNil(req.Phone),
		EmergencyContact: trimmedOrNil(req.EmergencyContact),
		BirthDate:        dob,
		MedicalNotes:     trimmedOrNil(req.MedicalNotes),
		PhotoURL:         trimmedOrNil(req.PhotoURL),
	}

	// A code collision is retried with a fresh code.
	for attempt := 1; ; attempt++ {
		client.QRCode = s.newCode()
		_, err = s.clientRepo.CreateClient(ctx, client)
		if err == nil {
			break
		}
		if !errors.Is(err, repositories.ErrDuplicateKey) || attempt == qrCodeAttempts {
			return nil, fmt.Errorf("failed to create client: %w", err)
		}
		utils.LogWarn(err, "QR code collision, retrying", map[string]interface{}{"attempt": attempt})
	}
	return client, nil
}

func (s *clientService) getClient(ctx context.Context, clientID int64) (*models.Client, error) {
	client, err := s.clientRepo.GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return client, nil
}

// GetClientByID returns the client with its membership history and latest visits.
func (s *clientService) GetClientByID(ctx context.Context, clientID int64) (*models.ClientDetail, error) {
	client, err := s.getClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	memberships, err := s.membershipRepo.GetByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list client memberships: %w", err)
	}
	visits, err := s.attendanceRepo.GetRecentByClient(ctx, clientID, clientRecentVisits)
	if err != nil {
		return nil, fmt.Errorf("failed to list client attendances: %w", err)
	}
	return &models.ClientDetail{Client: *client, Memberships: memberships, Attendances: visits}, nil
}

func (s *clientService) GetClientByQRCode(ctx context.Context, qrCode string) (*models.Client, error) {
	client, err := s.clientRepo.GetClientByQRCode(ctx, qrCode)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to get client by QR code: %w", err)
	}
	return client, nil
}

// GetClients pages through clients, annotating each with its current and
// queued membership.
func (s *clientService) GetClients(ctx context.Context, page, limit int, search string) ([]models.ClientSummary, int, error) {
	clients, total, err := s.clientRepo.GetClients(ctx, page, limit, search)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list clients: %w", err)
	}

	ids := make([]int64, len(clients))
	for i, c := range clients {
		ids[i] = c.ID
	}
	now := s.cal.Now()
	current, err := s.membershipRepo.GetCurrentForClients(ctx, ids, now)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load client memberships: %w", err)
	}

	active := make(map[int64]*models.Membership)
	upcoming := make(map[int64]*models.Membership)
	for i := range current {
		m := &current[i]
		switch {
		case m.IsCurrentAt(now):
			if prev, ok := active[m.ClientID]; !ok || m.EndDate.After(prev.EndDate) {
				active[m.ClientID] = m
			}
		case m.StartDate.After(now):
			if prev, ok := upcoming[m.ClientID]; !ok || m.StartDate.Before(prev.StartDate) {
				upcoming[m.ClientID] = m
			}
		}
	}

	summaries := make([]models.ClientSummary, len(clients))
	for i, c := range clients {
		summaries[i] = models.ClientSummary{
			Client:             c,
			ActiveMembership:   active[c.ID],
			UpcomingMembership: upcoming[c.ID],
		}
	}
	return summaries, total, nil
}

func (s *clientService) UpdateClient(ctx context.Context, clientID int64, req UpdateClientRequest) (*models.Client, error) {
	client, err := s.getClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		client.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		client.Email = trimmedOrNil(req.Email)
	}
	if req.Phone != nil {
		client.Phone = trimmedOrNil(req.Phone)
	}
	if req.EmergencyContact != nil {
		client.EmergencyContact = trimmedOrNil(req.EmergencyContact)
	}
	if req.BirthDate != nil {
		if client.BirthDate, err = s.parseBirthDate(req.BirthDate); err != nil {
			return nil, err
		}
	}
	if req.MedicalNotes != nil {
		client.MedicalNotes = trimmedOrNil(req.MedicalNotes)
	}
	if req.PhotoURL != nil {
		client.PhotoURL = trimmedOrNil(req.PhotoURL)
	}
	if err := s.validateClientData(client.Name, client.Email); err != nil {
		return nil, err
	}

	if err := s.clientRepo.UpdateClient(ctx, client); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to update client: %w", err)
	}
	return client, nil
}

func (s *clientService) UpdateMedicalNotes(ctx context.Context, clientID int64, notes *string) (*models.Client, error) {
	notes = trimmedOrNil(notes)
	if err := s.clientRepo.UpdateMedicalNotes(ctx, clientID, notes); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to update medical notes: %w", err)
	}
	return s.getClient(ctx, clientID)
}

func (s *clientService) DeleteClient(ctx context.Context, clientID int64) error {
	if err := s.clientRepo.DeleteClient(ctx, clientID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return ErrClientNotFound
		case errors.Is(err, repositories.ErrForeignKey):
			return ErrClientInUse
		}
		return fmt.Errorf("failed to delete client: %w", err)
	}
	return nil
}

// GetClientCard builds the member card: QR payload plus membership state.
func (s *clientService) GetClientCard(ctx context.Context, clientID int64) (*models.ClientCard, error) {
	client, err := s.getClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	now := s.cal.Now()
	active, err := notFoundAsNil(s.membershipRepo.FindActive(ctx, nil, clientID, now))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve active membership: %w", err)
	}
	upcoming, err := notFoundAsNil(s.membershipRepo.FindUpcoming(ctx, nil, clientID, now))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upcoming membership: %w", err)
	}

	card := &models.ClientCard{
		ClientID:           client.ID,
		Name:               client.Name,
		QRCode:             client.QRCode,
		PhotoURL:           client.PhotoURL,
		Membership:         active,
		UpcomingMembership: upcoming,
		IsValid:            active != nil,
	}
	if active != nil {
		card.DaysLeft = daysLeft(active.EndDate, now)
	}
	return card, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	return utils.NewNullString(strings.TrimSpace(*s))
}

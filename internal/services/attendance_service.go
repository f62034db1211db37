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
	ErrNoOpenAttendance  = errors.New("no open attendance for client today")
	ErrInvalidDateFilter = errors.New("invalid date filter")
)

const (
	msgCheckInOK        = "Check-in successful"
	msgUnknownQR        = "Invalid QR code: client not found"
	msgNoMembership     = "No active membership"
	msgAlreadyCheckedIn = "Client already checked in today"
	msgNoSystemUser     = "No staff account available to record the check-in"

	// displayDateLayout renders dates in denial messages, e.g. "01 Feb 2024".
	displayDateLayout = "02 Jan 2006"

	autoCheckOutHour    = 23
	historyDefaultLimit = 50
	historyMaxLimit     = 200
	statsRecentVisits   = 20
)

// CheckInRequest DTO
type CheckInRequest struct {
	QRCode string `json:"qrCode" binding:"required"`
	Method string `json:"method"`
}

// ScanRequest DTO for the unattended scanner.
type ScanRequest struct {
	QRCode          string `json:"qrCode" binding:"required"`
	RegisterCheckIn bool   `json:"registerCheckIn"`
}

// AttendanceService gates entry and records visits.
type AttendanceService interface {
	CheckIn(ctx context.Context, qrCode string, validatedBy int64, method string) (*models.CheckInResult, error)
	ValidateQR(ctx context.Context, qrCode string, registerCheckIn bool) (*models.QRValidation, error)
	CheckOut(ctx context.Context, clientID int64) (*models.Attendance, error)
	AutoCheckOutAll(ctx context.Context) (*models.AutoCheckOutResult, error)
	GetToday(ctx context.Context) ([]models.Attendance, error)
	GetHistory(ctx context.Context, filters models.AttendanceFilters) (*models.AttendancePage, error)
	GetClientStats(ctx context.Context, clientID int64) (*models.ClientAttendanceStats, error)
}

type attendanceService struct {
	attendanceRepo repositories.AttendanceRepository
	clientRepo     repositories.ClientRepository
	memberships    MembershipService
	users          UserService
	cal            Calendar
	locks          *keyedMutex
}

// NewAttendanceService creates a new instance of AttendanceService.
func NewAttendanceService(
	ar repositories.AttendanceRepository,
	cr repositories.ClientRepository,
	ms MembershipService,
	us UserService,
	cal Calendar,
) AttendanceService {
	return &attendanceService{
		attendanceRepo: ar,
		clientRepo:     cr,
		memberships:    ms,
		users:          us,
		cal:            cal,
		locks:          newKeyedMutex(),
	}
}

type denial int

const (
	admitted denial = iota
	deniedUnknownClient
	deniedQueued
	deniedNoMembership
	deniedDuplicate
)

func startsOnMessage(m *models.Membership, loc *time.Location) string {
	return "Membership starts on " + m.StartDate.In(loc).Format(displayDateLayout)
}

// CheckIn admits a client by QR code. Every refusal is a result with
// Success=false, never an error.
func (s *attendanceService) CheckIn(ctx context.Context, qrCode string, validatedBy int64, method string) (*models.CheckInResult, error) {
	res, _, err := s.checkIn(ctx, qrCode, validatedBy, method)
	return res, err
}

func (s *attendanceService) checkIn(ctx context.Context, qrCode string, validatedBy int64, method string) (*models.CheckInResult, denial, error) {
	ctx, span := tracer.Start(ctx, "AttendanceService.CheckIn")
	defer span.End()

	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = models.CheckInMethodQR
	}
	if method != models.CheckInMethodQR && method != models.CheckInMethodManual {
		return nil, admitted, fmt.Errorf("%w: method must be QR or MANUAL", ErrValidation)
	}

	client, err := s.clientRepo.GetClientByQRCode(ctx, qrCode)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return &models.CheckInResult{Success: false, Message: msgUnknownQR}, deniedUnknownClient, nil
		}
		return nil, admitted, fmt.Errorf("failed to resolve client: %w", err)
	}
	span.SetAttributes(attribute.Int64("client.id", client.ID))

	now := s.cal.Now()
	active, err := s.memberships.ResolveActive(ctx, client.ID, now)
	if err != nil {
		return nil, admitted, err
	}
	if active == nil {
		upcoming, err := s.memberships.ResolveUpcoming(ctx, client.ID, now)
		if err != nil {
			return nil, admitted, err
		}
		if upcoming != nil {
			return &models.CheckInResult{Success: false, Message: startsOnMessage(upcoming, s.cal.Location()), Client: client}, deniedQueued, nil
		}
		if n, err := s.memberships.ExpireLapsedForClient(ctx, client.ID, now); err != nil {
			utils.LogWarn(err, "Lazy membership expiry failed", map[string]interface{}{"client_id": client.ID})
		} else if n > 0 {
			utils.LogDebug("Expired lapsed memberships on check-in", map[string]interface{}{"client_id": client.ID, "count": n})
		}
		return &models.CheckInResult{Success: false, Message: msgNoMembership, Client: client}, deniedNoMembership, nil
	}

	result := &models.CheckInResult{
		Client:     client,
		Membership: activeStatus(active, now),
	}

	unlock := s.locks.Lock(client.ID)
	defer unlock()

	open, err := s.attendanceRepo.FindOpenSince(ctx, client.ID, s.cal.StartOfDay(now))
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, admitted, fmt.Errorf("failed to check open attendance: %w", err)
	}
	if open != nil {
		result.Message = msgAlreadyCheckedIn
		result.AttendanceID = open.ID
		return result, deniedDuplicate, nil
	}

	a := &models.Attendance{
		ClientID:   client.ID,
		CheckIn:    now,
		CheckInDay: s.cal.StartOfDay(now),
		Method:     method,
	}
	if validatedBy > 0 {
		a.ValidatedBy = int64Ptr(validatedBy)
	}
	if _, err := s.attendanceRepo.CreateAttendance(ctx, a); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			result.Message = msgAlreadyCheckedIn
			return result, deniedDuplicate, nil
		}
		span.RecordError(err)
		return nil, admitted, fmt.Errorf("failed to record attendance: %w", err)
	}

	result.Success = true
	result.Message = msgCheckInOK
	result.AttendanceID = a.ID
	return result, admitted, nil
}

// ValidateQR reports whether the holder of qrCode may enter. With
// registerCheckIn it also records the visit under the system identity.
func (s *attendanceService) ValidateQR(ctx context.Context, qrCode string, registerCheckIn bool) (*models.QRValidation, error) {
	client, err := s.clientRepo.GetClientByQRCode(ctx, qrCode)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return &models.QRValidation{Valid: false, CanEnter: false, Message: msgUnknownQR}, nil
		}
		return nil, fmt.Errorf("failed to resolve client: %w", err)
	}

	now := s.cal.Now()
	active, err := s.memberships.ResolveActive(ctx, client.ID, now)
	if err != nil {
		return nil, err
	}
	upcoming, err := s.memberships.ResolveUpcoming(ctx, client.ID, now)
	if err != nil {
		return nil, err
	}

	v := &models.QRValidation{
		Valid:              true,
		CanEnter:           active != nil,
		Client:             models.NewScannerClient(client),
		Membership:         activeStatus(active, now),
		UpcomingMembership: upcomingStatus(upcoming),
	}
	switch {
	case active != nil:
	case upcoming != nil:
		v.Message = startsOnMessage(upcoming, s.cal.Location())
	default:
		v.Message = msgNoMembership
	}

	if !registerCheckIn {
		return v, nil
	}
	if !v.CanEnter {
		v.CheckIn = &models.ScanCheckIn{Registered: false, Reason: v.Message}
		return v, nil
	}

	system, err := s.users.SystemUser(ctx)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			v.CheckIn = &models.ScanCheckIn{Registered: false, Reason: msgNoSystemUser}
			return v, nil
		}
		return nil, err
	}

	res, why, err := s.checkIn(ctx, qrCode, system.ID, models.CheckInMethodQR)
	if err != nil {
		return nil, err
	}
	switch why {
	case admitted:
		v.CheckIn = &models.ScanCheckIn{Registered: true, AttendanceID: res.AttendanceID}
	case deniedDuplicate:
		v.CheckIn = &models.ScanCheckIn{Registered: false, AlreadyCheckedIn: true, AttendanceID: res.AttendanceID, Reason: res.Message}
	default:
		v.CheckIn = &models.ScanCheckIn{Registered: false, Reason: res.Message}
	}
	return v, nil
}

func activeStatus(m *models.Membership, now time.Time) *models.MembershipStatus {
	if m == nil {
		return nil
	}
	left := daysLeft(m.EndDate, now)
	return &models.MembershipStatus{Active: true, Plan: m.PlanName(), StartDate: m.StartDate, EndDate: m.EndDate, DaysLeft: &left}
}

func upcomingStatus(m *models.Membership) *models.MembershipStatus {
	if m == nil {
		return nil
	}
	return &models.MembershipStatus{Plan: m.PlanName(), StartDate: m.StartDate, EndDate: m.EndDate}
}

// CheckOut closes the client's most recent open visit of today.
func (s *attendanceService) CheckOut(ctx context.Context, clientID int64) (*models.Attendance, error) {
	unlock := s.locks.Lock(clientID)
	defer unlock()

	open, err := s.attendanceRepo.FindOpenSince(ctx, clientID, s.cal.StartOfToday())
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNoOpenAttendance
		}
		return nil, fmt.Errorf("failed to find open attendance: %w", err)
	}

	now := s.cal.Now()
	if err := s.attendanceRepo.CloseAttendance(ctx, open.ID, now); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNoOpenAttendance
		}
		return nil, fmt.Errorf("failed to close attendance: %w", err)
	}
	open.CheckOut = &now
	return open, nil
}

// AutoCheckOutAll closes every visit left open on a previous day at 23:00 of
// the day it started.
func (s *attendanceService) AutoCheckOutAll(ctx context.Context) (*models.AutoCheckOutResult, error) {
	ctx, span := tracer.Start(ctx, "AttendanceService.AutoCheckOutAll")
	defer span.End()

	stale, err := s.attendanceRepo.GetOpenBefore(ctx, s.cal.StartOfToday())
	if err != nil {
		return nil, fmt.Errorf("failed to list stale attendances: %w", err)
	}

	var closed int64
	for _, a := range stale {
		y, m, d := a.CheckIn.In(s.cal.Location()).Date()
		at := time.Date(y, m, d, autoCheckOutHour, 0, 0, 0, s.cal.Location())
		if at.Before(a.CheckIn) {
			at = a.CheckIn
		}
		if err := s.attendanceRepo.CloseAttendance(ctx, a.ID, at); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to close attendance %d: %w", a.ID, err)
		}
		closed++
	}
	span.SetAttributes(attribute.Int64("attendance.closed", closed))

	msg := "No open attendances to close"
	if closed > 0 {
		msg = fmt.Sprintf("Closed %d open attendance(s) from previous days", closed)
	}
	return &models.AutoCheckOutResult{Closed: closed, Message: msg}, nil
}

func (s *attendanceService) GetToday(ctx context.Context) ([]models.Attendance, error) {
	list, err := s.attendanceRepo.GetSince(ctx, s.cal.StartOfToday())
	if err != nil {
		return nil, fmt.Errorf("failed to list today's attendances: %w", err)
	}
	return list, nil
}

// GetHistory pages through visits. A Date filter selects one calendar day;
// otherwise From and To bound the range by whole days.
func (s *attendanceService) GetHistory(ctx context.Context, filters models.AttendanceFilters) (*models.AttendancePage, error) {
	page, limit := filters.Page, filters.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = historyDefaultLimit
	}
	if limit > historyMaxLimit {
		limit = historyMaxLimit
	}

	var from, to *time.Time
	switch {
	case filters.Date != nil:
		start := s.cal.StartOfDay(*filters.Date)
		end := utils.EndOfDay(start)
		from, to = &start, &end
	default:
		if filters.From != nil {
			start := s.cal.StartOfDay(*filters.From)
			from = &start
		}
		if filters.To != nil {
			end := utils.EndOfDay(s.cal.StartOfDay(*filters.To))
			to = &end
		}
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, fmt.Errorf("%w: from is after to", ErrInvalidDateFilter)
	}

	list, total, err := s.attendanceRepo.GetHistory(ctx, from, to, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance history: %w", err)
	}
	return &models.AttendancePage{
		Data:       list,
		Total:      total,
		Page:       page,
		TotalPages: utils.TotalPages(total, limit),
	}, nil
}

func (s *attendanceService) GetClientStats(ctx context.Context, clientID int64) (*models.ClientAttendanceStats, error) {
	if _, err := s.clientRepo.GetClientByID(ctx, clientID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	now := s.cal.Now()
	y, m, _ := now.Date()
	monthStart := time.Date(y, m, 1, 0, 0, 0, 0, s.cal.Location())
	weekStart := now.AddDate(0, 0, -7)

	stats := &models.ClientAttendanceStats{}
	var err error
	if stats.TotalVisits, err = s.attendanceRepo.CountByClientSince(ctx, clientID, nil); err != nil {
		return nil, fmt.Errorf("failed to count visits: %w", err)
	}
	if stats.MonthVisits, err = s.attendanceRepo.CountByClientSince(ctx, clientID, &monthStart); err != nil {
		return nil, fmt.Errorf("failed to count month visits: %w", err)
	}
	if stats.WeekVisits, err = s.attendanceRepo.CountByClientSince(ctx, clientID, &weekStart); err != nil {
		return nil, fmt.Errorf("failed to count week visits: %w", err)
	}
	if stats.RecentVisits, err = s.attendanceRepo.GetRecentByClient(ctx, clientID, statsRecentVisits); err != nil {
		return nil, fmt.Errorf("failed to list recent visits: %w", err)
	}

	var total time.Duration
	completed := 0
	for _, v := range stats.RecentVisits {
		if v.CheckOut == nil {
			continue
		}
		total += v.CheckOut.Sub(v.CheckIn)
		completed++
	}
	if completed > 0 {
		stats.AvgDurationMinutes = int((total / time.Duration(completed)).Round(time.Minute) / time.Minute)
	}
	return stats, nil
}

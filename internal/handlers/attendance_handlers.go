package handlers

import (
	"errors"
	"net/http"
	"time"

	"gymcore_backend/internal/models"
	"gymcore_backend/internal/services"
	"gymcore_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AttendanceHandler exposes the entry gate and visit history.
type AttendanceHandler struct {
	attendanceService services.AttendanceService
	loc               *time.Location
}

// NewAttendanceHandler creates a new AttendanceHandler. Date filters are
// interpreted in loc.
func NewAttendanceHandler(as services.AttendanceService, loc *time.Location) *AttendanceHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceHandler{attendanceService: as, loc: loc}
}

func (h *AttendanceHandler) respondError(c *gin.Context, err error, op, fallback string) {
	utils.LogError(err, op)
	switch {
	case errors.Is(err, services.ErrNoOpenAttendance):
		respondNotFound(c, "No open attendance for this client today.", err)
	case errors.Is(err, services.ErrClientNotFound):
		respondNotFound(c, "Client not found.", err)
	case errors.Is(err, services.ErrInvalidDateFilter), errors.Is(err, services.ErrValidation):
		respondBadRequest(c, "Validation failed: "+err.Error(), err)
	default:
		utils.RespondInternalError(c, fallback)
	}
}

// CheckIn validates a card at the front desk. Denials are 200 with success=false.
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.CheckInRequest
	if !bindJSON(c, &req, "CheckIn") {
		return
	}
	result, err := h.attendanceService.CheckIn(c.Request.Context(), req.QRCode, userID, req.Method)
	if err != nil {
		h.respondError(c, err, "CheckIn: Error from attendanceService.CheckIn", "Failed to register check-in.")
		return
	}
	c.JSON(http.StatusOK, result)
}

// MobileCheckIn is the trainer app variant; the method is always QR.
func (h *AttendanceHandler) MobileCheckIn(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.CheckInRequest
	if !bindJSON(c, &req, "MobileCheckIn") {
		return
	}
	result, err := h.attendanceService.CheckIn(c.Request.Context(), req.QRCode, userID, models.CheckInMethodQR)
	if err != nil {
		h.respondError(c, err, "MobileCheckIn: Error from attendanceService.CheckIn", "Failed to register check-in.")
		return
	}
	c.JSON(http.StatusOK, result)
}

// Scan serves the unattended turnstile scanner.
func (h *AttendanceHandler) Scan(c *gin.Context) {
	var req services.ScanRequest
	if !bindJSON(c, &req, "Scan") {
		return
	}
	result, err := h.attendanceService.ValidateQR(c.Request.Context(), req.QRCode, req.RegisterCheckIn)
	if err != nil {
		h.respondError(c, err, "Scan: Error from attendanceService.ValidateQR", "Failed to validate QR code.")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AttendanceHandler) CheckOut(c *gin.Context) {
	clientID, ok := utils.ParseIDParam(c, "clientId")
	if !ok {
		return
	}
	attendance, err := h.attendanceService.CheckOut(c.Request.Context(), clientID)
	if err != nil {
		h.respondError(c, err, "CheckOut: Error from attendanceService.CheckOut for client "+utils.Int64ToStr(clientID), "Failed to register check-out.")
		return
	}
	c.JSON(http.StatusOK, attendance)
}

func (h *AttendanceHandler) AutoCheckOut(c *gin.Context) {
	result, err := h.attendanceService.AutoCheckOutAll(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "AutoCheckOut: Error from attendanceService.AutoCheckOutAll", "Failed to close open attendances.")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AttendanceHandler) GetToday(c *gin.Context) {
	list, err := h.attendanceService.GetToday(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "GetToday: Error from attendanceService.GetToday", "Failed to fetch today's attendance.")
		return
	}
	if list == nil {
		list = []models.Attendance{}
	}
	c.JSON(http.StatusOK, list)
}

// GetHistory filters by a single ?date or a ?from/?to range.
func (h *AttendanceHandler) GetHistory(c *gin.Context) {
	page, limit := utils.ParsePagination(c, 50, 200)
	filters := models.AttendanceFilters{Page: page, Limit: limit}
	var ok bool
	if filters.Date, ok = dateQuery(c, "date", h.loc); !ok {
		return
	}
	if filters.From, ok = dateQuery(c, "from", h.loc); !ok {
		return
	}
	if filters.To, ok = dateQuery(c, "to", h.loc); !ok {
		return
	}

	result, err := h.attendanceService.GetHistory(c.Request.Context(), filters)
	if err != nil {
		h.respondError(c, err, "GetHistory: Error from attendanceService.GetHistory", "Failed to fetch attendance history.")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AttendanceHandler) GetClientStats(c *gin.Context) {
	clientID, ok := utils.ParseIDParam(c, "clientId")
	if !ok {
		return
	}
	stats, err := h.attendanceService.GetClientStats(c.Request.Context(), clientID)
	if err != nil {
		h.respondError(c, err, "GetClientStats: Error from attendanceService.GetClientStats", "Failed to fetch client statistics.")
		return
	}
	c.JSON(http.StatusOK, stats)
}

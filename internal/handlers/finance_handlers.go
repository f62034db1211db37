package handlers

import (
	"errors"
	"net/http"
	"time"

	"gymcore_backend/internal/services"
	"gymcore_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// FinanceHandler serves the dashboard, reports and cash register.
type FinanceHandler struct {
	financeService services.FinanceService
	loc            *time.Location
}

// NewFinanceHandler creates a new FinanceHandler.
func NewFinanceHandler(fs services.FinanceService, loc *time.Location) *FinanceHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &FinanceHandler{financeService: fs, loc: loc}
}

func (h *FinanceHandler) respondError(c *gin.Context, err error, op, fallback string) {
	utils.LogError(err, op)
	switch {
	case errors.Is(err, services.ErrCashRegisterNotFound):
		respondNotFound(c, "Cash register not found.", err)
	case errors.Is(err, services.ErrInvalidState):
		respondInvalidState(c, "Cash register is already closed.", err)
	case errors.Is(err, services.ErrValidation):
		respondBadRequest(c, "Validation failed: "+err.Error(), err)
	default:
		utils.RespondInternalError(c, fallback)
	}
}

func (h *FinanceHandler) GetDashboard(c *gin.Context) {
	dashboard, err := h.financeService.GetDashboard(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "GetDashboard: Error from financeService.GetDashboard", "Failed to build dashboard.")
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// GetDailyReport reports on ?date, defaulting to today.
func (h *FinanceHandler) GetDailyReport(c *gin.Context) {
	date, ok := dateQuery(c, "date", h.loc)
	if !ok {
		return
	}
	report, err := h.financeService.GetDailyReport(c.Request.Context(), date)
	if err != nil {
		h.respondError(c, err, "GetDailyReport: Error from financeService.GetDailyReport", "Failed to build daily report.")
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *FinanceHandler) GetSalesReport(c *gin.Context) {
	from, ok := dateQuery(c, "from", h.loc)
	if !ok {
		return
	}
	to, ok := dateQuery(c, "to", h.loc)
	if !ok {
		return
	}
	report, err := h.financeService.GetSalesReport(c.Request.Context(), from, to)
	if err != nil {
		h.respondError(c, err, "GetSalesReport: Error from financeService.GetSalesReport", "Failed to build sales report.")
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *FinanceHandler) GetIncomeChart(c *gin.Context) {
	chart, err := h.financeService.GetIncomeChart(c.Request.Context(), c.Query("period"))
	if err != nil {
		h.respondError(c, err, "GetIncomeChart: Error from financeService.GetIncomeChart", "Failed to build income chart.")
		return
	}
	c.JSON(http.StatusOK, chart)
}

func (h *FinanceHandler) OpenCashRegister(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.OpenCashRegisterRequest
	if !bindJSON(c, &req, "OpenCashRegister") {
		return
	}
	register, err := h.financeService.OpenCashRegister(c.Request.Context(), userID, req)
	if err != nil {
		h.respondError(c, err, "OpenCashRegister: Error from financeService.OpenCashRegister", "Failed to open cash register.")
		return
	}
	c.JSON(http.StatusCreated, register)
}

// CloseCashRegister counts the drawer and stores the expected amount.
func (h *FinanceHandler) CloseCashRegister(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.CloseCashRegisterRequest
	if !bindJSON(c, &req, "CloseCashRegister") {
		return
	}
	register, err := h.financeService.CloseCashRegister(c.Request.Context(), id, userID, req)
	if err != nil {
		h.respondError(c, err, "CloseCashRegister: Error from financeService.CloseCashRegister for ID "+utils.Int64ToStr(id), "Failed to close cash register.")
		return
	}
	c.JSON(http.StatusOK, register)
}

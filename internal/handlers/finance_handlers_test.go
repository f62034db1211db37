package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"gymcore_backend/internal/models"
	"gymcore_backend/internal/services"
	"gymcore_backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type financeServiceStub struct {
	services.FinanceService
	daily  func(date *time.Time) (*models.DailyReport, error)
	chart  func(period string) (*models.IncomeChart, error)
	closer func(id, userID int64, req services.CloseCashRegisterRequest) (*models.CashRegister, error)
}

func (s *financeServiceStub) GetDailyReport(_ context.Context, date *time.Time) (*models.DailyReport, error) {
	return s.daily(date)
}

func (s *financeServiceStub) GetIncomeChart(_ context.Context, period string) (*models.IncomeChart, error) {
	return s.chart(period)
}

func (s *financeServiceStub) CloseCashRegister(_ context.Context, id, userID int64, req services.CloseCashRegisterRequest) (*models.CashRegister, error) {
	return s.closer(id, userID, req)
}

func financeEngine(stub *financeServiceStub) *gin.Engine {
	h := NewFinanceHandler(stub, time.UTC)
	engine := newEngine(2)
	engine.GET("/finance/daily", h.GetDailyReport)
	engine.GET("/finance/income-chart", h.GetIncomeChart)
	engine.POST("/finance/cash-register/:id/close", h.CloseCashRegister)
	return engine
}

func TestDailyReportDefaultsToToday(t *testing.T) {
	calls := 0
	stub := &financeServiceStub{daily: func(date *time.Time) (*models.DailyReport, error) {
		calls++
		if calls == 1 {
			assert.Nil(t, date)
		} else {
			require.NotNil(t, date)
		}
		return &models.DailyReport{}, nil
	}}
	engine := financeEngine(stub)

	assert.Equal(t, http.StatusOK, do(t, engine, http.MethodGet, "/finance/daily", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, engine, http.MethodGet, "/finance/daily?date=2024-01-25", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, engine, http.MethodGet, "/finance/daily?date=25/01/2024", nil).Code)
}

func TestIncomeChartInvalidPeriod(t *testing.T) {
	stub := &financeServiceStub{chart: func(string) (*models.IncomeChart, error) { return nil, services.ErrInvalidPeriod }}

	rec := do(t, financeEngine(stub), http.MethodGet, "/finance/income-chart?period=decade", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, utils.ErrCodeValidationFailed, decodeError(t, rec).Error.Code)
}

func TestCloseCashRegister(t *testing.T) {
	stub := &financeServiceStub{closer: func(id, userID int64, req services.CloseCashRegisterRequest) (*models.CashRegister, error) {
		if id == 99 {
			return nil, services.ErrCashRegisterNotFound
		}
		if id == 2 {
			return nil, services.ErrCashRegisterClosed
		}
		assert.Equal(t, int64(2), userID)
		assert.InDelta(t, 130.0, req.ClosingAmount, 0.001)
		return &models.CashRegister{ID: id}, nil
	}}
	engine := financeEngine(stub)

	assert.Equal(t, http.StatusOK, do(t, engine, http.MethodPost, "/finance/cash-register/1/close", map[string]float64{"closingAmount": 130}).Code)

	rec := do(t, engine, http.MethodPost, "/finance/cash-register/2/close", map[string]float64{"closingAmount": 130})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, utils.ErrCodeInvalidState, decodeError(t, rec).Error.Code)

	rec = do(t, engine, http.MethodPost, "/finance/cash-register/99/close", map[string]float64{"closingAmount": 130})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

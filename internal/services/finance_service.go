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

	"golang.org/x/sync/errgroup"
)

var (
	ErrCashRegisterNotFound = errors.New("cash register not found")
	ErrCashRegisterClosed   = fmt.Errorf("%w: cash register already closed", ErrInvalidState)
	ErrInvalidPeriod        = fmt.Errorf("%w: period must be week, month or year", ErrValidation)
)

const (
	dashboardRecentSales = 10
	expiringWindowDays   = 7
	peakHourFirst        = 5
	peakHourLast         = 22
	peakHourAlwaysFrom   = 6
	peakHourAlwaysTo     = 21
)

// OpenCashRegisterRequest DTO
type OpenCashRegisterRequest struct {
	OpeningAmount float64 `json:"openingAmount" binding:"gte=0"`
}

// CloseCashRegisterRequest DTO
type CloseCashRegisterRequest struct {
	ClosingAmount float64 `json:"closingAmount" binding:"gte=0"`
	Notes         *string `json:"notes"`
}

// FinanceService rolls sales and attendance up into reports.
type FinanceService interface {
	GetDashboard(ctx context.Context) (*models.Dashboard, error)
	GetDailyReport(ctx context.Context, date *time.Time) (*models.DailyReport, error)
	GetSalesReport(ctx context.Context, from, to *time.Time) (*models.SalesReport, error)
	GetIncomeChart(ctx context.Context, period string) (*models.IncomeChart, error)
	OpenCashRegister(ctx context.Context, userID int64, req OpenCashRegisterRequest) (*models.CashRegister, error)
	CloseCashRegister(ctx context.Context, id, userID int64, req CloseCashRegisterRequest) (*models.CashRegister, error)
}

type financeService struct {
	financeRepo repositories.FinanceRepository
	saleRepo    repositories.SaleRepository
	cashRepo    repositories.CashRegisterRepository
	cal         Calendar
}

// NewFinanceService creates a new instance of FinanceService.
func NewFinanceService(
	fr repositories.FinanceRepository,
	sr repositories.SaleRepository,
	cr repositories.CashRegisterRepository,
	cal Calendar,
) FinanceService {
	return &financeService{financeRepo: fr, saleRepo: sr, cashRepo: cr, cal: cal}
}

func sumSales(amounts []models.SaleAmount, from, to time.Time) (total float64, count int, byMethod models.PaymentBreakdown) {
	for _, a := range amounts {
		if a.CreatedAt.Before(from) || !a.CreatedAt.Before(to) {
			continue
		}
		total += a.Total
		count++
		byMethod.Add(a.PaymentMethod, a.Total)
	}
	return roundCents(total), count, byMethod
}

func countBetween(times []time.Time, from, to time.Time) int {
	n := 0
	for _, t := range times {
		if !t.Before(from) && t.Before(to) {
			n++
		}
	}
	return n
}

// GetDashboard gathers the dashboard aggregates. Independent queries run concurrently.
func (s *financeService) GetDashboard(ctx context.Context) (*models.Dashboard, error) {
	ctx, span := tracer.Start(ctx, "FinanceService.GetDashboard")
	defer span.End()

	now := s.cal.Now()
	today := s.cal.StartOfToday()
	tomorrow := today.AddDate(0, 0, 1)
	yesterday := today.AddDate(0, 0, -1)
	weekStart := today.AddDate(0, 0, -6)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, s.cal.Location())
	salesFrom := monthStart
	if weekStart.Before(salesFrom) {
		salesFrom = weekStart
	}
	if yesterday.Before(salesFrom) {
		salesFrom = yesterday
	}

	d := &models.Dashboard{}
	var amounts []models.SaleAmount
	var checkIns []time.Time

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		amounts, err = s.financeRepo.GetSaleAmounts(gctx, salesFrom, tomorrow)
		return err
	})
	g.Go(func() (err error) {
		checkIns, err = s.financeRepo.GetCheckInTimes(gctx, weekStart, tomorrow)
		return err
	})
	g.Go(func() (err error) {
		d.ActiveMembers, err = s.financeRepo.CountActiveMemberships(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.ExpiringMemberships, err = s.financeRepo.CountExpiringMemberships(gctx, now, now.AddDate(0, 0, expiringWindowDays))
		return err
	})
	g.Go(func() (err error) {
		d.LowStockProducts, err = s.financeRepo.CountLowStockProducts(gctx, DefaultLowStockThreshold)
		return err
	})
	g.Go(func() (err error) {
		d.TotalClients, err = s.financeRepo.CountClients(gctx, nil)
		return err
	})
	g.Go(func() (err error) {
		d.NewClientsMonth, err = s.financeRepo.CountClients(gctx, &monthStart)
		return err
	})
	g.Go(func() (err error) {
		d.RecentSales, _, err = s.saleRepo.GetSales(gctx, models.SaleFilters{Page: 1, Limit: dashboardRecentSales})
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to build dashboard: %w", err)
	}

	d.TodayIncome, d.TodaySales, d.TodayByPaymentMethod = sumSales(amounts, today, tomorrow)
	d.YesterdayIncome, _, _ = sumSales(amounts, yesterday, today)
	d.WeekIncome, _, _ = sumSales(amounts, weekStart, tomorrow)
	d.MonthIncome, _, _ = sumSales(amounts, monthStart, tomorrow)

	d.TodayAttendance = countBetween(checkIns, today, tomorrow)
	d.YesterdayAttendance = countBetween(checkIns, yesterday, today)
	d.AttendanceTrend = make([]models.DailyPoint, 0, 7)
	for day := weekStart; day.Before(tomorrow); day = day.AddDate(0, 0, 1) {
		d.AttendanceTrend = append(d.AttendanceTrend, models.DailyPoint{
			Date:  day.Format(utils.DateLayout),
			Value: float64(countBetween(checkIns, day, day.AddDate(0, 0, 1))),
		})
	}
	d.PeakHours = peakHours(checkIns, today, tomorrow, s.cal.Location())
	if d.RecentSales == nil {
		d.RecentSales = []models.Sale{}
	}
	return d, nil
}

// peakHours counts check-ins per hour between 05:00 and 22:59. Hours 06-21
// are always listed; the edge hours only when they saw traffic.
func peakHours(checkIns []time.Time, from, to time.Time, loc *time.Location) []models.HourCount {
	var counts [24]int
	for _, t := range checkIns {
		if t.Before(from) || !t.Before(to) {
			continue
		}
		counts[t.In(loc).Hour()]++
	}
	hours := []models.HourCount{}
	for h := peakHourFirst; h <= peakHourLast; h++ {
		if counts[h] == 0 && (h < peakHourAlwaysFrom || h > peakHourAlwaysTo) {
			continue
		}
		hours = append(hours, models.HourCount{Hour: h, Count: counts[h]})
	}
	return hours
}

// GetDailyReport summarises one day; nil means today.
func (s *financeService) GetDailyReport(ctx context.Context, date *time.Time) (*models.DailyReport, error) {
	day := s.cal.StartOfToday()
	if date != nil {
		day = s.cal.StartOfDay(*date)
	}
	next := day.AddDate(0, 0, 1)

	var amounts []models.SaleAmount
	var checkIns []time.Time
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		amounts, err = s.financeRepo.GetSaleAmounts(gctx, day, next)
		return err
	})
	g.Go(func() (err error) {
		checkIns, err = s.financeRepo.GetCheckInTimes(gctx, day, next)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build daily report: %w", err)
	}

	total, count, byMethod := sumSales(amounts, day, next)
	return &models.DailyReport{
		Date:            day.Format(utils.DateLayout),
		TotalIncome:     total,
		TotalSales:      count,
		TotalAttendance: len(checkIns),
		CashAmount:      roundCents(byMethod.Cash),
		CardAmount:      roundCents(byMethod.Card),
		TransferAmount:  roundCents(byMethod.Transfer),
	}, nil
}

// GetSalesReport lists sales between whole days; missing bounds default to today.
func (s *financeService) GetSalesReport(ctx context.Context, from, to *time.Time) (*models.SalesReport, error) {
	start := s.cal.StartOfToday()
	if from != nil {
		start = s.cal.StartOfDay(*from)
	}
	endDay := s.cal.StartOfToday()
	if to != nil {
		endDay = s.cal.StartOfDay(*to)
	}
	end := utils.EndOfDay(endDay)
	if start.After(end) {
		return nil, fmt.Errorf("%w: from is after to", ErrValidation)
	}

	sales, _, err := s.saleRepo.GetSales(ctx, models.SaleFilters{From: &start, To: &end})
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}

	report := &models.SalesReport{From: start, To: end, Sales: sales}
	for _, sale := range sales {
		report.Summary.TotalSales++
		report.Summary.TotalAmount += sale.Total
		report.Summary.ByMethod.Add(sale.PaymentMethod, sale.Total)
	}
	report.Summary.TotalAmount = roundCents(report.Summary.TotalAmount)
	return report, nil
}

// GetIncomeChart returns daily income for the trailing week, month (30 days)
// or year (365 days), zero-filled.
func (s *financeService) GetIncomeChart(ctx context.Context, period string) (*models.IncomeChart, error) {
	period = strings.ToLower(strings.TrimSpace(period))
	if period == "" {
		period = models.PeriodWeek
	}
	var days int
	switch period {
	case models.PeriodWeek:
		days = 7
	case models.PeriodMonth:
		days = 30
	case models.PeriodYear:
		days = 365
	default:
		return nil, ErrInvalidPeriod
	}

	tomorrow := s.cal.StartOfToday().AddDate(0, 0, 1)
	from := tomorrow.AddDate(0, 0, -days)
	amounts, err := s.financeRepo.GetSaleAmounts(ctx, from, tomorrow)
	if err != nil {
		return nil, fmt.Errorf("failed to load income: %w", err)
	}

	byDay := make(map[string]float64, days)
	for _, a := range amounts {
		byDay[a.CreatedAt.In(s.cal.Location()).Format(utils.DateLayout)] += a.Total
	}
	chart := &models.IncomeChart{Period: period, Points: make([]models.DailyPoint, 0, days)}
	for day := from; day.Before(tomorrow); day = day.AddDate(0, 0, 1) {
		key := day.Format(utils.DateLayout)
		chart.Points = append(chart.Points, models.DailyPoint{Date: key, Value: roundCents(byDay[key])})
	}
	return chart, nil
}

func (s *financeService) OpenCashRegister(ctx context.Context, userID int64, req OpenCashRegisterRequest) (*models.CashRegister, error) {
	if req.OpeningAmount < 0 {
		return nil, fmt.Errorf("%w: opening amount cannot be negative", ErrValidation)
	}
	reg := &models.CashRegister{
		OpenedBy:      userID,
		OpenedAt:      s.cal.Now(),
		OpeningAmount: roundCents(req.OpeningAmount),
	}
	if _, err := s.cashRepo.OpenRegister(ctx, reg); err != nil {
		return nil, fmt.Errorf("failed to open cash register: %w", err)
	}
	return reg, nil
}

// CloseCashRegister reconciles the drawer: expected is the opening amount
// plus cash sales since the register was opened.
func (s *financeService) CloseCashRegister(ctx context.Context, id, userID int64, req CloseCashRegisterRequest) (*models.CashRegister, error) {
	if req.ClosingAmount < 0 {
		return nil, fmt.Errorf("%w: closing amount cannot be negative", ErrValidation)
	}
	reg, err := s.cashRepo.GetRegisterByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCashRegisterNotFound
		}
		return nil, fmt.Errorf("failed to get cash register: %w", err)
	}
	if reg.ClosedAt != nil {
		return nil, ErrCashRegisterClosed
	}

	now := s.cal.Now()
	amounts, err := s.financeRepo.GetSaleAmounts(ctx, reg.OpenedAt, now.Add(time.Nanosecond))
	if err != nil {
		return nil, fmt.Errorf("failed to load sales for register %d: %w", id, err)
	}
	var cash float64
	for _, a := range amounts {
		if a.PaymentMethod == models.PaymentCash {
			cash += a.Total
		}
	}

	expected := roundCents(reg.OpeningAmount + cash)
	closing := roundCents(req.ClosingAmount)
	reg.ClosedBy = int64Ptr(userID)
	reg.ClosedAt = &now
	reg.ClosingAmount = &closing
	reg.ExpectedAmount = &expected
	reg.Notes = trimmedOrNil(req.Notes)

	if err := s.cashRepo.CloseRegister(ctx, reg); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCashRegisterClosed
		}
		return nil, fmt.Errorf("failed to close cash register: %w", err)
	}
	if diff := reg.Difference(); diff != 0 {
		utils.LogWarn(nil, "Cash register closed with a difference", map[string]interface{}{
			"register_id": reg.ID, "expected": expected, "closing": closing, "difference": roundCents(diff),
		})
	}
	return reg, nil
}

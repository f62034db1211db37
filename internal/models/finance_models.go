package models

import "time"

// DailyPoint is one day of a time series.
type DailyPoint struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Value float64 `json:"value"`
}

// HourCount is the number of check-ins in one hour of the day.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// PaymentBreakdown splits income by payment method.
type PaymentBreakdown struct {
	Cash     float64 `json:"CASH"`
	Card     float64 `json:"CARD"`
	Transfer float64 `json:"TRANSFER"`
}

// Add credits amount to method.
func (p *PaymentBreakdown) Add(method string, amount float64) {
	switch method {
	case PaymentCash:
		p.Cash += amount
	case PaymentCard:
		p.Card += amount
	case PaymentTransfer:
		p.Transfer += amount
	}
}

// Dashboard holds key metrics for the admin dashboard.
type Dashboard struct {
	TodayIncome          float64          `json:"todayIncome"`
	TodaySales           int              `json:"todaySales"`
	YesterdayIncome      float64          `json:"yesterdayIncome"`
	WeekIncome           float64          `json:"weekIncome"`
	MonthIncome          float64          `json:"monthIncome"`
	TodayAttendance      int              `json:"todayAttendance"`
	YesterdayAttendance  int              `json:"yesterdayAttendance"`
	ActiveMembers        int              `json:"activeMembers"`
	ExpiringMemberships  int              `json:"expiringMemberships"`
	LowStockProducts     int              `json:"lowStockProducts"`
	TotalClients         int              `json:"totalClients"`
	NewClientsMonth      int              `json:"newClientsMonth"`
	RecentSales          []Sale           `json:"recentSales"`
	AttendanceTrend      []DailyPoint     `json:"attendanceTrend"`
	PeakHours            []HourCount      `json:"peakHours"`
	TodayByPaymentMethod PaymentBreakdown `json:"todayByPaymentMethod"`
}

// DailyReport summarises one calendar day.
type DailyReport struct {
	Date            string  `json:"date"`
	TotalIncome     float64 `json:"totalIncome"`
	TotalSales      int     `json:"totalSales"`
	TotalAttendance int     `json:"totalAttendance"`
	CashAmount      float64 `json:"cashAmount"`
	CardAmount      float64 `json:"cardAmount"`
	TransferAmount  float64 `json:"transferAmount"`
}

// SalesSummary totals a sales report.
type SalesSummary struct {
	TotalSales  int              `json:"totalSales"`
	TotalAmount float64          `json:"totalAmount"`
	ByMethod    PaymentBreakdown `json:"byMethod"`
}

// SalesReport lists the sales of a window with a summary.
type SalesReport struct {
	From    time.Time    `json:"from"`
	To      time.Time    `json:"to"`
	Sales   []Sale       `json:"sales"`
	Summary SalesSummary `json:"summary"`
}

// Income chart periods.
const (
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

// IncomeChart is income grouped by day.
type IncomeChart struct {
	Period string       `json:"period"`
	Points []DailyPoint `json:"points"`
}

// CashRegister is one cash drawer shift.
type CashRegister struct {
	ID             int64      `json:"id" db:"id"`
	OpenedBy       int64      `json:"openedBy" db:"opened_by"`
	OpenedAt       time.Time  `json:"openedAt" db:"opened_at"`
	OpeningAmount  float64    `json:"openingAmount" db:"opening_amount"`
	ClosedBy       *int64     `json:"closedBy,omitempty" db:"closed_by"`
	ClosedAt       *time.Time `json:"closedAt,omitempty" db:"closed_at"`
	ClosingAmount  *float64   `json:"closingAmount,omitempty" db:"closing_amount"`
	ExpectedAmount *float64   `json:"expectedAmount,omitempty" db:"expected_amount"`
	Notes          *string    `json:"notes,omitempty" db:"notes"`
}

// Difference is closing minus expected; zero while the register is open.
func (r *CashRegister) Difference() float64 {
	if r.ClosingAmount == nil || r.ExpectedAmount == nil {
		return 0
	}
	return *r.ClosingAmount - *r.ExpectedAmount
}

// SaleAmount is the slice of a sale the finance rollups need.
type SaleAmount struct {
	CreatedAt     time.Time
	Total         float64
	PaymentMethod string
}

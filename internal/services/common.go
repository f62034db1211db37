package services

import (
	"context"
	"errors"
	"math"
	"time"

	"gymcore_backend/internal/repositories"

	"go.opentelemetry.io/otel"
)

var (
	// ErrValidation is the generic input validation failure.
	ErrValidation = errors.New("validation error")
	// ErrInvalidState is returned when an operation does not apply to the
	// current state of a record.
	ErrInvalidState = errors.New("invalid state for operation")
)

var tracer = otel.Tracer("gymcore_backend/internal/services")

// TxRunner runs fn inside a database transaction, committing when it returns nil.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error
}

// Calendar anchors "now" and day boundaries to the gym's time zone.
type Calendar struct {
	now func() time.Time
	loc *time.Location
}

// NewCalendar builds a Calendar. A nil now uses time.Now; a nil loc uses time.Local.
func NewCalendar(loc *time.Location, now func() time.Time) Calendar {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return Calendar{now: now, loc: loc}
}

// Now returns the current instant in the gym's zone.
func (c Calendar) Now() time.Time { return c.now().In(c.loc) }

// Location is the gym's time zone.
func (c Calendar) Location() *time.Location { return c.loc }

// StartOfDay returns local midnight of t's calendar day.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	y, m, d := t.In(c.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.loc)
}

// StartOfToday is StartOfDay(Now()).
func (c Calendar) StartOfToday() time.Time { return c.StartOfDay(c.Now()) }

// daysLeft rounds the remaining time up to whole days, never below zero.
func daysLeft(end, now time.Time) int {
	remaining := end.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Hours() / 24))
}

func int64Ptr(v int64) *int64 { return &v }

package models

import "time"

// Membership statuses.
const (
	MembershipActive    = "ACTIVE"
	MembershipExpired   = "EXPIRED"
	MembershipFrozen    = "FROZEN"
	MembershipCancelled = "CANCELLED"
)

// Assignment modes.
const (
	AssignModeReplace = "replace"
	AssignModeQueue   = "queue"
)

// MembershipPlan is a sellable membership product.
type MembershipPlan struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Description  *string   `json:"description,omitempty" db:"description"`
	Price        float64   `json:"price" db:"price"`
	DurationDays int       `json:"durationDays" db:"duration_days"`
	IsActive     bool      `json:"isActive" db:"is_active"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// Membership grants a client access between StartDate and EndDate.
type Membership struct {
	ID         int64     `json:"id" db:"id"`
	ClientID   int64     `json:"clientId" db:"client_id"`
	PlanID     int64     `json:"planId" db:"plan_id"`
	StartDate  time.Time `json:"startDate" db:"start_date"`
	EndDate    time.Time `json:"endDate" db:"end_date"`
	AmountPaid float64   `json:"amountPaid" db:"amount_paid"`
	Status     string    `json:"status" db:"status"`
	CreatedBy  *int64    `json:"createdBy,omitempty" db:"created_by"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`

	Plan   *MembershipPlan `json:"plan,omitempty"`
	Client *Client         `json:"client,omitempty"`
}

// IsCurrentAt reports whether m grants access at t.
func (m *Membership) IsCurrentAt(t time.Time) bool {
	return m.Status == MembershipActive && !m.StartDate.After(t) && !m.EndDate.Before(t)
}

// PlanName returns the joined plan's name, or "" when the plan was not loaded.
func (m *Membership) PlanName() string {
	if m == nil || m.Plan == nil {
		return ""
	}
	return m.Plan.Name
}

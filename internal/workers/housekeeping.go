package workers

import (
	"context"
	"time"

	"gymcore_backend/internal/models"
	"gymcore_backend/pkg/utils"
)

// DefaultHousekeepingInterval is used when no positive interval is configured.
const DefaultHousekeepingInterval = 15 * time.Minute

// MembershipExpirer flips lapsed ACTIVE memberships to EXPIRED.
type MembershipExpirer interface {
	ExpireLapsed(ctx context.Context, at time.Time) (int64, error)
}

// AttendanceCloser closes attendances left open on previous days.
type AttendanceCloser interface {
	AutoCheckOutAll(ctx context.Context) (*models.AutoCheckOutResult, error)
}

// Housekeeper periodically persists membership expiry and runs the
// end-of-day attendance closeout.
type Housekeeper struct {
	memberships MembershipExpirer
	attendance  AttendanceCloser
	interval    time.Duration
	now         func() time.Time
}

// NewHousekeeper creates a Housekeeper ticking every interval.
func NewHousekeeper(ms MembershipExpirer, ac AttendanceCloser, interval time.Duration) *Housekeeper {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}
	return &Housekeeper{memberships: ms, attendance: ac, interval: interval, now: time.Now}
}

// Start runs the sweep once immediately and then on every tick until ctx is
// cancelled. It blocks.
func (h *Housekeeper) Start(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	utils.LogInfo("Housekeeping worker started", map[string]interface{}{"interval": h.interval.String()})

	h.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			utils.LogInfo("Housekeeping worker stopped")
			return
		case <-ticker.C:
			h.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. Failures are logged; the next tick retries.
func (h *Housekeeper) RunOnce(ctx context.Context) {
	expired, err := h.memberships.ExpireLapsed(ctx, h.now())
	if err != nil {
		utils.LogError(err, "Housekeeping: failed to expire lapsed memberships")
	} else if expired > 0 {
		utils.LogInfo("Housekeeping: memberships expired", map[string]interface{}{"count": expired})
	}

	result, err := h.attendance.AutoCheckOutAll(ctx)
	if err != nil {
		utils.LogError(err, "Housekeeping: auto checkout failed")
		return
	}
	if result != nil && result.Closed > 0 {
		utils.LogInfo("Housekeeping: open attendances closed", map[string]interface{}{"count": result.Closed})
	}
}

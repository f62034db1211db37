package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gymcore_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func strPtr(s string) *string { return &s }

func assertInstant(t *testing.T, want, got time.Time) {
	t.Helper()
	assert.True(t, want.Equal(got), "want %s, got %s", want, got)
}

func TestAssignMembership_Replace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(date(2024, 1, 1, 9, 0))
	client := f.db.addClient("Ann", "GYM-00000001")
	plan := f.db.addPlan("Monthly", 30, 30, true)

	m, err := f.memberships.AssignMembership(ctx, AssignMembershipRequest{
		ClientID: client.ID, PlanID: plan.ID, AmountPaid: 30, StartDate: strPtr("2024-01-01"),
	}, 7)
	require.NoError(t, err)
	assertInstant(t, date(2024, 1, 1, 0, 0), m.StartDate)
	assertInstant(t, date(2024, 1, 31, 0, 0), m.EndDate)
	assert.Equal(t, models.MembershipActive, m.Status)
	assert.Equal(t, "Monthly", m.PlanName())
	require.NotNil(t, m.CreatedBy)
	assert.Equal(t, int64(7), *m.CreatedBy)

	f.clock.Set(date(2024, 1, 25, 0, 0))
	assert.Equal(t, 6, daysLeft(m.EndDate, f.cal.Now()))

	t.Run("second assignment expires the first", func(t *testing.T) {
		second, err := f.memberships.AssignMembership(ctx, AssignMembershipRequest{ClientID: client.ID, PlanID: plan.ID}, 0)
		require.NoError(t, err)
		assert.Nil(t, second.CreatedBy)

		all := f.db.membershipsOf(client.ID)
		require.Len(t, all, 2)
		assert.Equal(t, models.MembershipExpired, all[0].Status)
		assertInstant(t, f.cal.Now(), all[0].EndDate)
		assertInstant(t, f.cal.Now(), all[1].StartDate)
	})
}

func TestAssignMembership_Queue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(date(2024, 1, 1, 0, 0))
	client := f.db.addClient("Ben", "GYM-00000002")
	plan := f.db.addPlan("Monthly", 30, 30, true)

	_, err := f.memberships.AssignMembership(ctx, AssignMembershipRequest{ClientID: client.ID, PlanID: plan.ID}, 0)
	require.NoError(t, err)

	f.clock.Set(date(2024, 1, 20, 12, 0))
	queued, err := f.memberships.AssignMembership(ctx, AssignMembershipRequest{ClientID: client.ID, PlanID: plan.ID, Mode: "queue"}, 0)
	require.NoError(t, err)
	assertInstant(t, date(2024, 1, 31, 0, 0), queued.StartDate)
	assertInstant(t, date(2024, 3, 1, 0, 0), queued.EndDate)

	active, err := f.memberships.ResolveActive(ctx, client.ID, f.cal.Now())
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.NotEqual(t, queued.ID, active.ID, "the current membership stays in force")

	upcoming, err := f.memberships.ResolveUpcoming(ctx, client.ID, f.cal.Now())
	require.NoError(t, err)
	require.NotNil(t, upcoming)
	assert.Equal(t, queued.ID, upcoming.ID)

	_, err = f.memberships.AssignMembership(ctx, AssignMembershipRequest{ClientID: client.ID, PlanID: plan.ID, Mode: "queue"}, 0)
	assert.ErrorIs(t, err, ErrMembershipAlreadyQueued)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Len(t, f.db.membershipsOf(client.ID), 2, "failed transaction leaves no row behind")

	t.Run("replace cancels the queued membership", func(t *testing.T) {
		_, err := f.memberships.AssignMembership(ctx, AssignMembershipRequest{ClientID: client.ID, PlanID: plan.ID}, 0)
		require.NoError(t, err)
		for _, m := range f.db.membershipsOf(client.ID) {
			if m.ID == queued.ID {
				assert.Equal(t, models.MembershipCancelled, m.Status)
			}
		}
	})
}

func TestAssignMembership_QueueWithoutActiveStartsNow(t *testing.T) {
	f := newFixture(date(2024, 5, 10, 8, 30))
	client := f.db.addClient("Cy", "GYM-00000003")
	plan := f.db.addPlan("Week", 10, 7, true)

	m, err := f.memberships.AssignMembership(context.Background(), AssignMembershipRequest{ClientID: client.ID, PlanID: plan.ID, Mode: "QUEUE"}, 0)
	require.NoError(t, err)
	assertInstant(t, f.cal.Now(), m.StartDate)
	assertInstant(t, date(2024, 5, 17, 8, 30), m.EndDate)
}

func TestAssignMembership_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(date(2024, 1, 1, 0, 0))
	client := f.db.addClient("Dee", "GYM-00000004")
	plan := f.db.addPlan("Monthly", 30, 30, true)
	retired := f.db.addPlan("Old", 20, 30, false)

	tests := []struct {
		name string
		req  AssignMembershipRequest
		want error
	}{
		{"unknown mode", AssignMembershipRequest{ClientID: client.ID, PlanID: plan.ID, Mode: "stack"}, ErrValidation},
		{"negative amount", AssignMembershipRequest{ClientID: client.ID, PlanID: plan.ID, AmountPaid: -1}, ErrValidation},
		{"bad start date", AssignMembershipRequest{ClientID: client.ID, PlanID: plan.ID, StartDate: strPtr("01/02/2024")}, ErrValidation},
		{"unknown plan", AssignMembershipRequest{ClientID: client.ID, PlanID: 999}, ErrPlanNotFound},
		{"inactive plan", AssignMembershipRequest{ClientID: client.ID, PlanID: retired.ID}, ErrPlanInactive},
		{"unknown client", AssignMembershipRequest{ClientID: 999, PlanID: plan.ID}, ErrClientNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.memberships.AssignMembership(ctx, tt.req, 0)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.db.membershipsOf(client.ID))
}

func TestAssignMembership_RollsBackOnCreateFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(date(2024, 1, 10, 0, 0))
	client := f.db.addClient("Eve", "GYM-00000005")
	plan := f.db.addPlan("Monthly", 30, 30, true)
	current := f.db.addMembership(client.ID, plan.ID, date(2024, 1, 1, 0, 0), date(2024, 1, 31, 0, 0), models.MembershipActive)

	f.db.errs["CreateMembership"] = errors.New("connection reset")
	_, err := f.memberships.AssignMembership(ctx, AssignMembershipRequest{ClientID: client.ID, PlanID: plan.ID}, 0)
	require.Error(t, err)

	all := f.db.membershipsOf(client.ID)
	require.Len(t, all, 1)
	assert.Equal(t, current.ID, all[0].ID)
	assert.Equal(t, models.MembershipActive, all[0].Status, "expiry is rolled back")
	assertInstant(t, date(2024, 1, 31, 0, 0), all[0].EndDate)
}

func TestFreezeUnfreezeCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(date(2024, 1, 10, 0, 0))
	client := f.db.addClient("Fay", "GYM-00000006")
	plan := f.db.addPlan("Monthly", 30, 30, true)
	m := f.db.addMembership(client.ID, plan.ID, date(2024, 1, 1, 0, 0), date(2024, 1, 31, 0, 0), models.MembershipActive)

	frozen, err := f.memberships.FreezeMembership(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipFrozen, frozen.Status)
	assertInstant(t, m.EndDate, frozen.EndDate)

	active, err := f.memberships.ResolveActive(ctx, client.ID, f.cal.Now())
	require.NoError(t, err)
	assert.Nil(t, active)

	_, err = f.memberships.FreezeMembership(ctx, m.ID)
	assert.ErrorIs(t, err, ErrInvalidMembershipState)

	unfrozen, err := f.memberships.UnfreezeMembership(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipActive, unfrozen.Status)

	_, err = f.memberships.UnfreezeMembership(ctx, m.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	cancelled, err := f.memberships.CancelMembership(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipCancelled, cancelled.Status)

	_, err = f.memberships.CancelMembership(ctx, 404)
	assert.ErrorIs(t, err, ErrMembershipNotFound)
}

func TestUnfreezeRefusedWhenAnotherMembershipIsCurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(date(2024, 1, 10, 0, 0))
	client := f.db.addClient("Gus", "GYM-00000007")
	plan := f.db.addPlan("Monthly", 30, 30, true)
	old := f.db.addMembership(client.ID, plan.ID, date(2024, 1, 1, 0, 0), date(2024, 1, 31, 0, 0), models.MembershipFrozen)
	f.db.addMembership(client.ID, plan.ID, date(2024, 1, 5, 0, 0), date(2024, 2, 4, 0, 0), models.MembershipActive)

	_, err := f.memberships.UnfreezeMembership(ctx, old.ID)
	assert.ErrorIs(t, err, ErrInvalidMembershipState)
}

func TestGetExpiring(t *testing.T) {
	ctx := context.Background()
	f := newFixture(date(2024, 1, 25, 0, 0))
	client := f.db.addClient("Hal", "GYM-00000008")
	plan := f.db.addPlan("Monthly", 30, 30, true)
	soon := f.db.addMembership(client.ID, plan.ID, date(2024, 1, 1, 0, 0), date(2024, 1, 31, 0, 0), models.MembershipActive)
	f.db.addMembership(client.ID, plan.ID, date(2024, 1, 31, 0, 0), date(2024, 3, 1, 0, 0), models.MembershipActive)

	list, err := f.memberships.GetExpiring(ctx, 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, soon.ID, list[0].ID)

	_, err = f.memberships.GetExpiring(ctx, -1)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetClientMemberships_UnknownClient(t *testing.T) {
	f := newFixture(date(2024, 1, 1, 0, 0))
	_, err := f.memberships.GetClientMemberships(context.Background(), 1)
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestExpireLapsed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(date(2024, 2, 1, 0, 0))
	client := f.db.addClient("Ida", "GYM-00000009")
	plan := f.db.addPlan("Monthly", 30, 30, true)
	f.db.addMembership(client.ID, plan.ID, date(2023, 12, 1, 0, 0), date(2023, 12, 31, 0, 0), models.MembershipActive)
	f.db.addMembership(client.ID, plan.ID, date(2024, 1, 15, 0, 0), date(2024, 2, 14, 0, 0), models.MembershipActive)

	n, err := f.memberships.ExpireLapsed(ctx, f.cal.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = f.memberships.ExpireLapsed(ctx, f.cal.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

// At most one membership per client grants access at any instant, whatever
// sequence of lifecycle operations staff perform. A queued membership starts
// exactly when its predecessor ends, so the handoff instant belongs to the
// successor.
func TestMembershipLifecycle_AtMostOneCurrent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		f := newFixture(date(2024, 1, 1, 6, 0))
		client := f.db.addClient("Prop", "GYM-PROP0001")
		plans := []*models.MembershipPlan{
			f.db.addPlan("Day", 5, 1, true),
			f.db.addPlan("Week", 15, 7, true),
			f.db.addPlan("Month", 30, 30, true),
		}

		steps := rapid.IntRange(1, 25).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 4).Draw(rt, "op") {
			case 0:
				plan := rapid.SampledFrom(plans).Draw(rt, "plan")
				mode := rapid.SampledFrom([]string{models.AssignModeReplace, models.AssignModeQueue}).Draw(rt, "mode")
				_, _ = f.memberships.AssignMembership(ctx, AssignMembershipRequest{ClientID: client.ID, PlanID: plan.ID, Mode: mode}, 0)
			case 1, 2, 3:
				all := f.db.membershipsOf(client.ID)
				if len(all) == 0 {
					continue
				}
				target := rapid.SampledFrom(all).Draw(rt, "target")
				switch rapid.IntRange(1, 3).Draw(rt, "lifecycle") {
				case 1:
					_, _ = f.memberships.FreezeMembership(ctx, target.ID)
				case 2:
					_, _ = f.memberships.UnfreezeMembership(ctx, target.ID)
				case 3:
					_, _ = f.memberships.CancelMembership(ctx, target.ID)
				}
			case 4:
				f.clock.Advance(time.Duration(rapid.IntRange(1, 72).Draw(rt, "hours")) * time.Hour)
			}

			now := f.cal.Now()
			current := 0
			queued := 0
			for _, m := range f.db.membershipsOf(client.ID) {
				if m.IsCurrentAt(now) && now.Before(m.EndDate) {
					current++
				}
				if m.Status == models.MembershipActive && m.StartDate.After(now) {
					queued++
				}
			}
			if current > 1 {
				rt.Fatalf("%d memberships current at %s", current, now)
			}
			if queued > 1 {
				rt.Fatalf("%d memberships queued at %s", queued, now)
			}
		}
	})
}

func TestUnfreezeRefusedWhenItWouldOverlapALaterAssignment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(date(2024, 1, 10, 0, 0))
	client := f.db.addClient("Jo", "GYM-0000000A")
	plan := f.db.addPlan("Monthly", 30, 30, true)
	queued := f.db.addMembership(client.ID, plan.ID, date(2024, 2, 1, 0, 0), date(2024, 3, 2, 0, 0), models.MembershipFrozen)

	_, err := f.memberships.AssignMembership(ctx, AssignMembershipRequest{ClientID: client.ID, PlanID: plan.ID}, 0)
	require.NoError(t, err)

	_, err = f.memberships.UnfreezeMembership(ctx, queued.ID)
	assert.ErrorIs(t, err, ErrInvalidMembershipState)
}

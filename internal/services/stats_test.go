package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventhub/internal/domain"
)

func TestEventStats_AttendanceScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, RegistrationPolicy{})
	ev := h.seedEvent(t)

	var regs []*domain.Registration
	for i, qty := range []int{2, 1, 1} {
		reg, err := h.register(ctx, "user-"+string(rune('a'+i)), ev, qty)
		require.NoError(t, err)
		regs = append(regs, reg)
	}
	_, err := h.svc.UpdateStatus(ctx, organizer, regs[2].ID, domain.StatusCheckedIn, domain.StatusContext{Location: "Main hall"})
	require.NoError(t, err)

	stats := NewStatsService(h.events, h.regs, time.Second)
	out, err := stats.EventStats(ctx, organizer, ev.ID)
	require.NoError(t, err)
	require.Len(t, out, 1)

	s := out[0]
	assert.Equal(t, ev.ID, s.EventID)
	assert.Equal(t, "GopherCon", s.EventTitle)
	assert.Equal(t, 4, s.TotalAttendees)
	assert.Equal(t, 1, s.CheckedIn)
	assert.Equal(t, 25.0, s.AttendanceRate)
	assert.Equal(t, 100.0, s.TotalRevenue)
	assert.Equal(t, 3, s.TicketsSold)
}

func TestEventStats_CancelledExcluded(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, RegistrationPolicy{})
	ev := h.seedEvent(t)

	reg, err := h.register(ctx, "user-a", ev, 2)
	require.NoError(t, err)
	_, err = h.svc.Cancel(ctx, attendee("user-a"), reg.ID)
	require.NoError(t, err)

	out, err := NewStatsService(h.events, h.regs, time.Second).EventStats(ctx, organizer, ev.ID)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0].TotalAttendees)
	assert.Equal(t, 0.0, out[0].AttendanceRate)
	assert.Equal(t, 0.0, out[0].TotalRevenue)
	assert.Equal(t, 1, out[0].TicketsSold)
}

func TestEventStats_NoRegistrations(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, RegistrationPolicy{})
	ev := h.seedEvent(t)
	stats := NewStatsService(h.events, h.regs, time.Second)

	out, err := stats.EventStats(ctx, organizer, ev.ID)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0].TotalAttendees)
	assert.Equal(t, 0.0, out[0].AttendanceRate)

	_, err = stats.EventStats(ctx, organizer, "missing")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)

	all, err := stats.EventStats(ctx, organizer, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestEventStats_Ordering(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, RegistrationPolicy{})
	small := h.seedEvent(t)
	big := h.seedEvent(t)
	tieA := h.seedEvent(t)
	tieB := h.seedEvent(t)

	_, err := h.register(ctx, "user-1", small, 1)
	require.NoError(t, err)
	_, err = h.register(ctx, "user-1", big, 5)
	require.NoError(t, err)
	_, err = h.register(ctx, "user-1", tieA, 2)
	require.NoError(t, err)
	_, err = h.register(ctx, "user-1", tieB, 2)
	require.NoError(t, err)

	out, err := NewStatsService(h.events, h.regs, time.Second).EventStats(ctx, organizer, "")
	require.NoError(t, err)
	require.Len(t, out, 4)

	assert.Equal(t, big.ID, out[0].EventID)
	first, second := tieA.ID, tieB.ID
	if second < first {
		first, second = second, first
	}
	assert.Equal(t, first, out[1].EventID)
	assert.Equal(t, second, out[2].EventID)
	assert.Equal(t, small.ID, out[3].EventID)
}

func TestEventStats_ScopedToManagedEvents(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, RegistrationPolicy{})
	mine := h.seedEvent(t)
	now := time.Now()
	theirs := domain.NewEvent("RustConf", now.Add(48*time.Hour), "org-2", []domain.TicketTier{{Name: "General", Price: 40, Capacity: 10}}, now, now)
	require.NoError(t, h.events.Create(ctx, theirs))

	_, err := h.register(ctx, "user-1", mine, 1)
	require.NoError(t, err)
	_, err = h.register(ctx, "user-1", theirs, 3)
	require.NoError(t, err)

	stats := NewStatsService(h.events, h.regs, time.Second)

	_, err = stats.EventStats(ctx, organizer, theirs.ID)
	assert.ErrorIs(t, err, domain.ErrNotPermitted)

	_, err = stats.EventStats(ctx, attendee("user-1"), mine.ID)
	assert.ErrorIs(t, err, domain.ErrNotPermitted)

	own, err := stats.EventStats(ctx, organizer, "")
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, mine.ID, own[0].EventID)

	all, err := stats.EventStats(ctx, admin, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, theirs.ID, all[0].EventID)
	assert.Equal(t, 120.0, all[0].TotalRevenue)
}

func TestAttendanceRate(t *testing.T) {
	assert.Equal(t, 0.0, attendanceRate(0, 0))
	assert.Equal(t, 100.0, attendanceRate(3, 3))
	assert.Equal(t, 33.33, attendanceRate(1, 3))
}

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventhub/internal/domain"
)

func newReg(attendeeID string, ev *domain.Event, qty int, status domain.RegistrationStatus, amount float64, at time.Time) *domain.Registration {
	return domain.NewRegistration(attendeeID, ev.ID, ev.Tiers[0].ID, qty, status,
		domain.Payment{Amount: amount, Status: domain.PaymentCompleted, Date: at}, at, at)
}

func TestRegistrationRepository_ActiveUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	regs := NewRegistrationRepository(s)
	ev := seedEvent(t, s, 10)
	now := time.Now()

	first := newReg("user-1", ev, 1, domain.StatusConfirmed, 50, now)
	require.NoError(t, regs.Create(ctx, nil, first))

	second := newReg("user-1", ev, 1, domain.StatusConfirmed, 50, now)
	assert.ErrorIs(t, regs.Create(ctx, nil, second), domain.ErrDuplicateActive)

	// Cancelling frees the logical key.
	from := first.Status
	require.NoError(t, first.TransitionTo(domain.StatusCancelled, now))
	require.NoError(t, regs.UpdateStatus(ctx, nil, first, from))
	require.NoError(t, regs.Create(ctx, nil, second))

	active, err := regs.FindActiveByAttendeeAndEvent(ctx, "user-1", ev.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
}

func TestRegistrationRepository_UpdateStatusCAS(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	regs := NewRegistrationRepository(s)
	ev := seedEvent(t, s, 10)
	now := time.Now()

	reg := newReg("user-1", ev, 1, domain.StatusConfirmed, 50, now)
	require.NoError(t, regs.Create(ctx, nil, reg))

	reg.Status = domain.StatusCheckedIn
	err := regs.UpdateStatus(ctx, nil, reg, domain.StatusPending)
	assert.ErrorIs(t, err, domain.ErrTransactionAborted)

	stored, err := regs.GetByID(ctx, nil, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, stored.Status)
}

func TestRegistrationRepository_AppendCheckInRollback(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	regs := NewRegistrationRepository(s)
	ev := seedEvent(t, s, 10)
	now := time.Now()

	reg := newReg("user-1", ev, 1, domain.StatusConfirmed, 50, now)
	require.NoError(t, regs.Create(ctx, nil, reg))
	require.NoError(t, regs.AppendCheckIn(ctx, nil, reg.ID, domain.CheckIn{At: now, Location: "Hall A", StaffID: "staff-1"}))

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, regs.AppendCheckIn(ctx, tx, reg.ID, domain.CheckIn{At: now, Location: "Hall B", StaffID: "staff-1"}))
	require.NoError(t, tx.Rollback())

	stored, err := regs.GetByID(ctx, nil, reg.ID)
	require.NoError(t, err)
	require.Len(t, stored.CheckIns, 1)
	assert.Equal(t, "Hall A", stored.CheckIns[0].Location)

	assert.ErrorIs(t, regs.AppendCheckIn(ctx, nil, "missing", domain.CheckIn{}), domain.ErrRegistrationNotFound)
}

func TestRegistrationRepository_ListByEvent(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	regs := NewRegistrationRepository(s)
	ev := seedEvent(t, s, 10)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, st := range []domain.RegistrationStatus{domain.StatusConfirmed, domain.StatusPending, domain.StatusConfirmed} {
		reg := newReg("user-"+string(rune('a'+i)), ev, 1, st, 10, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, regs.Create(ctx, nil, reg))
	}

	all, total, err := regs.ListByEvent(ctx, ev.ID, domain.RegistrationFilter{}, domain.PaginationParams{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, all, 2)
	assert.Equal(t, "user-a", all[0].AttendeeID)
	assert.Equal(t, "user-b", all[1].AttendeeID)

	confirmed, total, err := regs.ListByEvent(ctx, ev.ID, domain.RegistrationFilter{Status: domain.StatusConfirmed}, domain.PaginationParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, confirmed, 2)
}

func TestRegistrationRepository_TallyByEvent(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	regs := NewRegistrationRepository(s)
	ev := seedEvent(t, s, 10)
	now := time.Now()

	for i, qty := range []int{2, 1, 1} {
		require.NoError(t, regs.Create(ctx, nil, newReg("user-"+string(rune('a'+i)), ev, qty, domain.StatusConfirmed, float64(qty)*50, now)))
	}
	checkedIn := newReg("user-d", ev, 1, domain.StatusCheckedIn, 50, now)
	require.NoError(t, regs.Create(ctx, nil, checkedIn))
	cancelled := newReg("user-e", ev, 3, domain.StatusCancelled, 150, now)
	require.NoError(t, regs.Create(ctx, nil, cancelled))

	tallies, err := regs.TallyByEvent(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, tallies, 1)
	assert.Equal(t, domain.RegistrationTally{
		EventID:        ev.ID,
		TotalAttendees: 5,
		CheckedIn:      1,
		TotalRevenue:   250,
		TicketsSold:    5,
	}, *tallies[0])

	none, err := regs.TallyByEvent(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

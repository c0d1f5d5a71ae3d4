package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"eventhub/internal/domain"
)

type registrationRepository struct {
	s *Store
}

// NewRegistrationRepository returns a RegistrationRepository backed by s.
func NewRegistrationRepository(s *Store) domain.RegistrationRepository {
	return &registrationRepository{s: s}
}

func (r *registrationRepository) Create(ctx context.Context, tx domain.Tx, reg *domain.Registration) error {
	return r.s.withTx(ctx, tx, reg.EventID, func(mt *memTx) error {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		key := activeKey{attendeeID: reg.AttendeeID, eventID: reg.EventID}
		if reg.Status.Active() {
			if _, exists := r.s.active[key]; exists {
				return domain.ErrDuplicateActive
			}
		}
		reg.ID = uuid.NewString()
		if reg.CheckIns == nil {
			reg.CheckIns = []domain.CheckIn{}
		}
		id := reg.ID
		r.s.registrations[id] = copyRegistration(reg)
		if reg.Status.Active() {
			r.s.active[key] = id
		}
		mt.record(func() {
			delete(r.s.registrations, id)
			if r.s.active[key] == id {
				delete(r.s.active, key)
			}
		})
		return nil
	})
}

func (r *registrationRepository) GetByID(ctx context.Context, tx domain.Tx, id string) (*domain.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	stored, ok := r.s.registrations[id]
	var eventID string
	if ok {
		eventID = stored.EventID
	}
	r.s.mu.Unlock()
	if !ok {
		return nil, domain.ErrRegistrationNotFound
	}
	if tx == nil {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		return copyRegistration(r.s.registrations[id]), nil
	}

	var out *domain.Registration
	err := r.s.withTx(ctx, tx, eventID, func(*memTx) error {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		out = copyRegistration(r.s.registrations[id])
		return nil
	})
	return out, err
}

func (r *registrationRepository) FindActiveByAttendeeAndEvent(ctx context.Context, attendeeID, eventID string) (*domain.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.active[activeKey{attendeeID: attendeeID, eventID: eventID}]
	if !ok {
		return nil, domain.ErrRegistrationNotFound
	}
	return copyRegistration(r.s.registrations[id]), nil
}

func (r *registrationRepository) UpdateStatus(ctx context.Context, tx domain.Tx, reg *domain.Registration, from domain.RegistrationStatus) error {
	return r.s.withTx(ctx, tx, reg.EventID, func(mt *memTx) error {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		stored, ok := r.s.registrations[reg.ID]
		if !ok {
			return domain.ErrRegistrationNotFound
		}
		if stored.Status != from {
			return domain.ErrTransactionAborted
		}
		prevStatus, prevPayment, prevUpdated := stored.Status, stored.Payment.Status, stored.UpdatedAt
		key := activeKey{attendeeID: stored.AttendeeID, eventID: stored.EventID}

		stored.Status = reg.Status
		stored.Payment.Status = reg.Payment.Status
		stored.UpdatedAt = reg.UpdatedAt
		if !reg.Status.Active() && r.s.active[key] == stored.ID {
			delete(r.s.active, key)
		}
		mt.record(func() {
			stored.Status, stored.Payment.Status, stored.UpdatedAt = prevStatus, prevPayment, prevUpdated
			if prevStatus.Active() {
				r.s.active[key] = stored.ID
			}
		})
		return nil
	})
}

func (r *registrationRepository) AppendCheckIn(ctx context.Context, tx domain.Tx, id string, entry domain.CheckIn) error {
	r.s.mu.Lock()
	stored, ok := r.s.registrations[id]
	r.s.mu.Unlock()
	if !ok {
		return domain.ErrRegistrationNotFound
	}
	return r.s.withTx(ctx, tx, stored.EventID, func(mt *memTx) error {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		n := len(stored.CheckIns)
		stored.CheckIns = append(stored.CheckIns, entry)
		mt.record(func() { stored.CheckIns = stored.CheckIns[:n] })
		return nil
	})
}

func (r *registrationRepository) ListByEvent(ctx context.Context, eventID string, f domain.RegistrationFilter, p domain.PaginationParams) ([]*domain.Registration, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	regs := r.collect(func(reg *domain.Registration) bool {
		return reg.EventID == eventID && (f.Status == "" || reg.Status == f.Status)
	})
	sort.Slice(regs, func(i, j int) bool {
		if !regs[i].CreatedAt.Equal(regs[j].CreatedAt) {
			return regs[i].CreatedAt.Before(regs[j].CreatedAt)
		}
		return regs[i].ID < regs[j].ID
	})
	start, end := p.Window(len(regs))
	return regs[start:end], len(regs), nil
}

func (r *registrationRepository) ListByAttendee(ctx context.Context, attendeeID string) ([]*domain.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	regs := r.collect(func(reg *domain.Registration) bool { return reg.AttendeeID == attendeeID })
	sort.Slice(regs, func(i, j int) bool {
		if !regs[i].CreatedAt.Equal(regs[j].CreatedAt) {
			return regs[i].CreatedAt.After(regs[j].CreatedAt)
		}
		return regs[i].ID < regs[j].ID
	})
	return regs, nil
}

func (r *registrationRepository) TallyByEvent(ctx context.Context, eventID string) ([]*domain.RegistrationTally, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byEvent := make(map[string]*domain.RegistrationTally)
	for _, reg := range r.s.registrations {
		if eventID != "" && reg.EventID != eventID {
			continue
		}
		t, ok := byEvent[reg.EventID]
		if !ok {
			t = &domain.RegistrationTally{EventID: reg.EventID}
			byEvent[reg.EventID] = t
		}
		t.TicketsSold++
		switch reg.Status {
		case domain.StatusConfirmed:
			t.TotalAttendees += reg.Quantity
		case domain.StatusCheckedIn:
			t.TotalAttendees += reg.Quantity
			t.CheckedIn += reg.Quantity
		}
		if reg.Status != domain.StatusCancelled {
			t.TotalRevenue += reg.Payment.Amount
		}
	}
	out := make([]*domain.RegistrationTally, 0, len(byEvent))
	for _, t := range byEvent {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	return out, nil
}

func (r *registrationRepository) collect(match func(*domain.Registration) bool) []*domain.Registration {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.Registration{}
	for _, reg := range r.s.registrations {
		if match(reg) {
			out = append(out, copyRegistration(reg))
		}
	}
	return out
}

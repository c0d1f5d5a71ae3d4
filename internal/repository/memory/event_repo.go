package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"eventhub/internal/domain"
)

type eventRepository struct {
	s *Store
}

func NewEventRepository(s *Store) domain.EventRepository {
	return &eventRepository{s: s}
}

func (r *eventRepository) Create(ctx context.Context, event *domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	event.ID = uuid.NewString()
	for i := range event.Tiers {
		event.Tiers[i].ID = uuid.NewString()
		event.Tiers[i].EventID = event.ID
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.events[event.ID] = copyEvent(event)
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	return copyEvent(e), nil
}

func (r *eventRepository) List(ctx context.Context, p domain.PaginationParams) ([]*domain.Event, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.s.mu.Lock()
	all := make([]*domain.Event, 0, len(r.s.events))
	for _, e := range r.s.events {
		all = append(all, copyEvent(e))
	}
	r.s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].Date.Equal(all[j].Date) {
			return all[i].Date.Before(all[j].Date)
		}
		return all[i].ID < all[j].ID
	})
	start, end := p.Window(len(all))
	return all[start:end], len(all), nil
}

func (r *eventRepository) GetTier(ctx context.Context, tx domain.Tx, eventID, tierID string) (*domain.TicketTier, error) {
	var tier *domain.TicketTier
	err := r.s.withTx(ctx, tx, eventID, func(*memTx) error {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		e, ok := r.s.events[eventID]
		if !ok {
			return domain.ErrEventNotFound
		}
		t := e.Tier(tierID)
		if t == nil {
			return domain.ErrTierNotFound
		}
		cp := *t
		tier = &cp
		return nil
	})
	return tier, err
}

func (r *eventRepository) ApplyCapacityDelta(ctx context.Context, tx domain.Tx, eventID, tierID string, delta int) error {
	return r.s.withTx(ctx, tx, eventID, func(mt *memTx) error {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		e, ok := r.s.events[eventID]
		if !ok {
			return domain.ErrEventNotFound
		}
		t := e.Tier(tierID)
		if t == nil {
			return domain.ErrTierNotFound
		}
		next := t.Remaining + delta
		switch {
		case next < 0:
			return domain.ErrInsufficientCapacity
		case next > t.Capacity:
			return domain.ErrCapacityOverflow
		}
		t.Remaining = next
		e.RegisteredCount -= delta
		mt.record(func() {
			t.Remaining -= delta
			e.RegisteredCount += delta
		})
		return nil
	})
}

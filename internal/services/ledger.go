package services

import (
	"context"
	"time"

	"eventhub/internal/domain"
)

type capacityLedger struct {
	eventRepo domain.EventRepository
	now       func() time.Time
}

// NewCapacityLedger returns a CapacityLedger that keeps remaining counts on the event
// catalog's tier rows and writes them through ApplyCapacityDelta.
func NewCapacityLedger(eventRepo domain.EventRepository) domain.CapacityLedger {
	return &capacityLedger{eventRepo: eventRepo, now: time.Now}
}

func (l *capacityLedger) TryReserve(ctx context.Context, tx domain.Tx, eventID, tierID string, quantity int) (*domain.TicketTier, error) {
	if quantity < 1 {
		return nil, domain.InvalidInput("quantity must be at least 1")
	}
	// Locks the tier row for the rest of tx.
	tier, err := l.eventRepo.GetTier(ctx, tx, eventID, tierID)
	if err != nil {
		return nil, err
	}
	if !tier.SalesOpen(l.now()) {
		return nil, domain.ErrSalesClosed
	}
	if tier.Remaining < quantity {
		return nil, domain.ErrInsufficientCapacity
	}
	// The write re-checks remaining >= quantity itself, so a stale read cannot oversell.
	if err := l.eventRepo.ApplyCapacityDelta(ctx, tx, eventID, tierID, -quantity); err != nil {
		return nil, err
	}
	tier.Remaining -= quantity
	return tier, nil
}

func (l *capacityLedger) Release(ctx context.Context, tx domain.Tx, eventID, tierID string, quantity int) error {
	if quantity < 1 {
		return domain.InvalidInput("quantity must be at least 1")
	}
	return l.eventRepo.ApplyCapacityDelta(ctx, tx, eventID, tierID, quantity)
}

package domain

import (
	"context"
	"time"
)

// TicketTier is a named price/quantity bucket within an event.
// swagger:model TicketTier
type TicketTier struct {
	ID         string     `json:"id"`
	EventID    string     `json:"event_id"`
	Name       string     `json:"name"`
	Price      float64    `json:"price"`
	Capacity   int        `json:"capacity"`
	Remaining  int        `json:"remaining"`
	SalesStart *time.Time `json:"sales_start,omitempty"`
	SalesEnd   *time.Time `json:"sales_end,omitempty"`
}

// SalesOpen reports whether at falls within the tier's sales window. Unset bounds are open.
func (t *TicketTier) SalesOpen(at time.Time) bool {
	if t.SalesStart != nil && at.Before(*t.SalesStart) {
		return false
	}
	if t.SalesEnd != nil && at.After(*t.SalesEnd) {
		return false
	}
	return true
}

// Event represents an organizer's event with its ticket tiers.
// swagger:model Event
type Event struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Description     *string      `json:"description,omitempty"`
	Date            time.Time    `json:"date"`
	OrganizerID     string       `json:"organizer_id"`
	Tags            []string     `json:"tags"`
	RegisteredCount int          `json:"registered_count"`
	Tiers           []TicketTier `json:"tiers"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// NewEvent returns a new Event with the given fields. IDs are typically set by the repository on create.
func NewEvent(title string, date time.Time, organizerID string, tiers []TicketTier, createdAt, updatedAt time.Time) *Event {
	for i := range tiers {
		tiers[i].Remaining = tiers[i].Capacity
	}
	return &Event{
		Title:       title,
		Date:        date,
		OrganizerID: organizerID,
		Tags:        []string{},
		Tiers:       tiers,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
}

// Tier returns the tier with the given ID, or nil.
func (e *Event) Tier(tierID string) *TicketTier {
	for i := range e.Tiers {
		if e.Tiers[i].ID == tierID {
			return &e.Tiers[i]
		}
	}
	return nil
}

// EventRepository is the event catalog. Capacity is stored on the tier rows and is only
// changed through ApplyCapacityDelta inside a registration transaction.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, p PaginationParams) ([]*Event, int, error)
	// GetTier reads one tier. With a non-nil tx the row stays locked until the tx ends.
	GetTier(ctx context.Context, tx Tx, eventID, tierID string) (*TicketTier, error)
	// ApplyCapacityDelta adds delta to the tier's remaining count and subtracts it from the
	// event's registered count. It fails with ErrInsufficientCapacity rather than go negative.
	ApplyCapacityDelta(ctx context.Context, tx Tx, eventID, tierID string, delta int) error
}

// CreateEventInput is the validated input for creating an event.
type CreateEventInput struct {
	Title       string
	Description *string
	Date        time.Time
	Tags        []string
	Tiers       []TicketTier
}

// EventService defines organizer-facing event catalog operations.
type EventService interface {
	CreateEvent(ctx context.Context, actor Identity, in CreateEventInput) (*Event, error)
	GetEvent(ctx context.Context, eventID string) (*Event, error)
	ListEvents(ctx context.Context, p PaginationParams) ([]*Event, int, error)
}

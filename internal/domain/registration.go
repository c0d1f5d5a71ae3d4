package domain

import (
	"context"
	"time"
)

// RegistrationStatus is the lifecycle state of a registration.
type RegistrationStatus string

const (
	StatusPending    RegistrationStatus = "pending"
	StatusConfirmed  RegistrationStatus = "confirmed"
	StatusWaitlisted RegistrationStatus = "waitlisted"
	StatusCheckedIn  RegistrationStatus = "checked_in"
	StatusCancelled  RegistrationStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusWaitlisted, StatusCheckedIn, StatusCancelled:
		return true
	}
	return false
}

// Active reports whether a registration in this status holds capacity.
func (s RegistrationStatus) Active() bool {
	return s != StatusCancelled
}

var transitions = map[RegistrationStatus][]RegistrationStatus{
	StatusPending:    {StatusConfirmed, StatusWaitlisted, StatusCancelled},
	StatusWaitlisted: {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusCheckedIn, StatusCancelled},
	StatusCheckedIn:  {StatusCancelled},
}

// CanTransition reports whether a registration may move from one status to another.
// Cancelled is terminal.
func CanTransition(from, to RegistrationStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// PaymentStatus is the settlement state of a registration's payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// Payment is the already-settled payment attached to a registration.
// swagger:model Payment
type Payment struct {
	Amount        float64       `json:"amount"`
	TransactionID string        `json:"transaction_id,omitempty"`
	Status        PaymentStatus `json:"status"`
	Date          time.Time     `json:"date"`
}

// CheckIn is one entry in a registration's append-only check-in history.
// swagger:model CheckIn
type CheckIn struct {
	At       time.Time `json:"at"`
	Location string    `json:"location,omitempty"`
	StaffID  string    `json:"staff_id"`
}

// Registration is an attendee's claim on a quantity of tickets in one tier of an event.
// swagger:model Registration
type Registration struct {
	ID         string             `json:"id"`
	AttendeeID string             `json:"attendee_id"`
	EventID    string             `json:"event_id"`
	TierID     string             `json:"ticket_tier_id"`
	Quantity   int                `json:"quantity"`
	Status     RegistrationStatus `json:"status"`
	Payment    Payment            `json:"payment"`
	CheckIns   []CheckIn          `json:"check_ins"`
	TicketCode string             `json:"ticket_code"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// NewRegistration creates a new Registration. ID is typically set by the repository on create.
func NewRegistration(attendeeID, eventID, tierID string, quantity int, status RegistrationStatus, payment Payment, createdAt, updatedAt time.Time) *Registration {
	return &Registration{
		AttendeeID: attendeeID,
		EventID:    eventID,
		TierID:     tierID,
		Quantity:   quantity,
		Status:     status,
		Payment:    payment,
		CheckIns:   []CheckIn{},
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}
}

// TransitionTo moves the registration to status to, or returns a rejection.
func (r *Registration) TransitionTo(to RegistrationStatus, at time.Time) error {
	if r.Status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	if !CanTransition(r.Status, to) {
		return ErrStatusTransition
	}
	r.Status = to
	r.UpdatedAt = at
	return nil
}

// RegistrationTally holds per-event sums read from the registration store.
type RegistrationTally struct {
	EventID        string
	TotalAttendees int
	CheckedIn      int
	TotalRevenue   float64
	TicketsSold    int
}

// RegistrationFilter narrows ListByEvent. An empty Status matches every status.
type RegistrationFilter struct {
	Status RegistrationStatus
}

// RegistrationRepository is the registration store.
type RegistrationRepository interface {
	// Create inserts reg and sets its ID. It returns ErrDuplicateActive when the attendee
	// already holds an active registration for the event.
	Create(ctx context.Context, tx Tx, reg *Registration) error
	// GetByID loads a registration with its check-in history. With a non-nil tx the row
	// stays locked until the tx ends.
	GetByID(ctx context.Context, tx Tx, id string) (*Registration, error)
	FindActiveByAttendeeAndEvent(ctx context.Context, attendeeID, eventID string) (*Registration, error)
	// UpdateStatus persists reg.Status, reg.Payment.Status and reg.UpdatedAt only if the stored
	// status still equals from.
	UpdateStatus(ctx context.Context, tx Tx, reg *Registration, from RegistrationStatus) error
	AppendCheckIn(ctx context.Context, tx Tx, id string, entry CheckIn) error
	ListByEvent(ctx context.Context, eventID string, f RegistrationFilter, p PaginationParams) ([]*Registration, int, error)
	ListByAttendee(ctx context.Context, attendeeID string) ([]*Registration, error)
	// TallyByEvent sums registrations per event. An empty eventID tallies every event.
	TallyByEvent(ctx context.Context, eventID string) ([]*RegistrationTally, error)
}

// RegisterInput is the validated input for a registration request.
type RegisterInput struct {
	AttendeeID    string
	EventID       string
	TierID        string
	Quantity      int
	PaymentAmount *float64
	PaymentStatus PaymentStatus
	TransactionID string
}

// StatusContext carries the extra data a status change may record.
type StatusContext struct {
	Location string
}

// RegistrationWithEvent bundles a registration with its related event.
type RegistrationWithEvent struct {
	Registration *Registration `json:"registration"`
	Event        *Event        `json:"event"`
}

// RegistrationService is the registration workflow.
type RegistrationService interface {
	Register(ctx context.Context, actor Identity, in RegisterInput) (*Registration, error)
	Cancel(ctx context.Context, actor Identity, registrationID string) (*Registration, error)
	UpdateStatus(ctx context.Context, actor Identity, registrationID string, to RegistrationStatus, sc StatusContext) (*Registration, error)
	Get(ctx context.Context, actor Identity, registrationID string) (*Registration, error)
	ListByEvent(ctx context.Context, actor Identity, eventID string, f RegistrationFilter, p PaginationParams) ([]*Registration, int, error)
	ListMine(ctx context.Context, actor Identity) ([]*RegistrationWithEvent, error)
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"eventhub/internal/domain"
)

// RegistrationPolicy decides the status a newly admitted registration starts in.
type RegistrationPolicy struct {
	RequireApproval bool
}

func (p RegistrationPolicy) initialStatus() domain.RegistrationStatus {
	if p.RequireApproval {
		return domain.StatusPending
	}
	return domain.StatusConfirmed
}

type registrationService struct {
	transactor       domain.Transactor
	eventRepo        domain.EventRepository
	registrationRepo domain.RegistrationRepository
	ledger           domain.CapacityLedger
	policy           RegistrationPolicy
	contextTimeout   time.Duration
	logger           *slog.Logger
	now              func() time.Time
}

// NewRegistrationService creates the registration workflow.
func NewRegistrationService(
	transactor domain.Transactor,
	eventRepo domain.EventRepository,
	registrationRepo domain.RegistrationRepository,
	ledger domain.CapacityLedger,
	policy RegistrationPolicy,
	timeout time.Duration,
	logger *slog.Logger,
) domain.RegistrationService {
	return &registrationService{
		transactor:       transactor,
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		ledger:           ledger,
		policy:           policy,
		contextTimeout:   timeout,
		logger:           logger,
		now:              time.Now,
	}
}

func (s *registrationService) Register(ctx context.Context, actor domain.Identity, in domain.RegisterInput) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 0 {
		return nil, domain.InvalidInput("quantity must be at least 1")
	}
	if in.AttendeeID == "" {
		in.AttendeeID = actor.UserID
	}
	onBehalf := in.AttendeeID != actor.UserID
	if onBehalf && !actor.CanManage() {
		return nil, domain.ErrNotPermitted
	}

	event, err := s.eventRepo.GetByID(ctx, in.EventID)
	if err != nil {
		return nil, storageError(ctx, "get event", err)
	}
	if onBehalf && !canManageEvent(actor, event) {
		return nil, domain.ErrNotPermitted
	}
	tier := event.Tier(in.TierID)
	if tier == nil {
		return nil, domain.ErrTierNotFound
	}

	// Fast path only; the store's uniqueness constraint is what actually holds under races.
	if _, err := s.registrationRepo.FindActiveByAttendeeAndEvent(ctx, in.AttendeeID, event.ID); err == nil {
		return nil, domain.ErrAlreadyRegistered
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, storageError(ctx, "find active registration", err)
	}

	now := s.now()
	payment := domain.Payment{
		Amount:        tier.Price * float64(in.Quantity),
		TransactionID: in.TransactionID,
		Status:        domain.PaymentCompleted,
		Date:          now,
	}
	if in.PaymentAmount != nil {
		payment.Amount = *in.PaymentAmount
	}
	if in.PaymentStatus != "" {
		payment.Status = in.PaymentStatus
	}
	reg := domain.NewRegistration(in.AttendeeID, event.ID, tier.ID, in.Quantity, s.policy.initialStatus(), payment, now, now)
	reg.TicketCode = uuid.NewString()

	err = s.withinTx(ctx, func(tx domain.Tx) error {
		if _, err := s.ledger.TryReserve(ctx, tx, event.ID, tier.ID, reg.Quantity); err != nil {
			return err
		}
		return s.registrationRepo.Create(ctx, tx, reg)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "registration admitted",
		"registration_id", reg.ID,
		"event_id", reg.EventID,
		"tier_id", reg.TierID,
		"quantity", reg.Quantity,
		"status", reg.Status,
	)
	return reg, nil
}

func (s *registrationService) Cancel(ctx context.Context, actor domain.Identity, registrationID string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var reg *domain.Registration
	err := s.withinTx(ctx, func(tx domain.Tx) error {
		var err error
		reg, err = s.cancelWithin(ctx, tx, actor, registrationID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "registration cancelled",
		"registration_id", reg.ID,
		"event_id", reg.EventID,
		"released", reg.Quantity,
		"actor_id", actor.UserID,
	)
	return reg, nil
}

// cancelWithin marks the registration cancelled and releases its quantity, both inside tx.
// The row lock taken by GetByID makes the AlreadyCancelled check and the release a single step,
// so a registration's capacity can only be returned once.
func (s *registrationService) cancelWithin(ctx context.Context, tx domain.Tx, actor domain.Identity, registrationID string) (*domain.Registration, error) {
	reg, err := s.registrationRepo.GetByID(ctx, tx, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.AttendeeID != actor.UserID {
		if err := s.authorizeManage(ctx, actor, reg.EventID); err != nil {
			return nil, err
		}
	}

	from := reg.Status
	if err := reg.TransitionTo(domain.StatusCancelled, s.now()); err != nil {
		return nil, err
	}
	if reg.Payment.Status == domain.PaymentCompleted {
		reg.Payment.Status = domain.PaymentRefunded
	}
	if err := s.registrationRepo.UpdateStatus(ctx, tx, reg, from); err != nil {
		return nil, err
	}
	if err := s.ledger.Release(ctx, tx, reg.EventID, reg.TierID, reg.Quantity); err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *registrationService) UpdateStatus(ctx context.Context, actor domain.Identity, registrationID string, to domain.RegistrationStatus, sc domain.StatusContext) (*domain.Registration, error) {
	if !to.Valid() {
		return nil, domain.InvalidInput("unknown status %q", to)
	}
	if to == domain.StatusCancelled {
		return s.Cancel(ctx, actor, registrationID)
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var reg *domain.Registration
	err := s.withinTx(ctx, func(tx domain.Tx) error {
		var err error
		reg, err = s.registrationRepo.GetByID(ctx, tx, registrationID)
		if err != nil {
			return err
		}
		if err := s.authorizeManage(ctx, actor, reg.EventID); err != nil {
			return err
		}

		now := s.now()
		from := reg.Status
		if err := reg.TransitionTo(to, now); err != nil {
			return err
		}
		if err := s.registrationRepo.UpdateStatus(ctx, tx, reg, from); err != nil {
			return err
		}
		if to == domain.StatusCheckedIn {
			entry := domain.CheckIn{At: now, Location: sc.Location, StaffID: actor.UserID}
			if err := s.registrationRepo.AppendCheckIn(ctx, tx, reg.ID, entry); err != nil {
				return err
			}
			reg.CheckIns = append(reg.CheckIns, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *registrationService) Get(ctx context.Context, actor domain.Identity, registrationID string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, err := s.registrationRepo.GetByID(ctx, nil, registrationID)
	if err != nil {
		return nil, storageError(ctx, "get registration", err)
	}
	if reg.AttendeeID != actor.UserID {
		if err := s.authorizeManage(ctx, actor, reg.EventID); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (s *registrationService) ListByEvent(ctx context.Context, actor domain.Identity, eventID string, f domain.RegistrationFilter, p domain.PaginationParams) ([]*domain.Registration, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, domain.InvalidInput("unknown status %q", f.Status)
	}
	if err := s.authorizeManage(ctx, actor, eventID); err != nil {
		return nil, 0, err
	}
	regs, total, err := s.registrationRepo.ListByEvent(ctx, eventID, f, p)
	if err != nil {
		return nil, 0, storageError(ctx, "list registrations", err)
	}
	return regs, total, nil
}

func (s *registrationService) ListMine(ctx context.Context, actor domain.Identity) ([]*domain.RegistrationWithEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	regs, err := s.registrationRepo.ListByAttendee(ctx, actor.UserID)
	if err != nil {
		return nil, storageError(ctx, "list registrations", err)
	}
	if len(regs) == 0 {
		return []*domain.RegistrationWithEvent{}, nil
	}

	// Fetch events one by one (N+1), cached per event.
	eventsByID := make(map[string]*domain.Event)
	result := make([]*domain.RegistrationWithEvent, 0, len(regs))
	for _, reg := range regs {
		ev, ok := eventsByID[reg.EventID]
		if !ok {
			ev, err = s.eventRepo.GetByID(ctx, reg.EventID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				return nil, storageError(ctx, "get event for registration", err)
			}
			eventsByID[reg.EventID] = ev
		}
		result = append(result, &domain.RegistrationWithEvent{Registration: reg, Event: ev})
	}
	return result, nil
}

// authorizeManage allows admins, and organizers acting on their own event.
// The event must exist for either role.
func (s *registrationService) authorizeManage(ctx context.Context, actor domain.Identity, eventID string) error {
	if !actor.CanManage() {
		return domain.ErrNotPermitted
	}
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return storageError(ctx, "get event", err)
	}
	if !canManageEvent(actor, event) {
		return domain.ErrNotPermitted
	}
	return nil
}

func canManageEvent(actor domain.Identity, event *domain.Event) bool {
	return actor.Role == domain.RoleAdmin || (actor.Role == domain.RoleOrganizer && event.OrganizerID == actor.UserID)
}

// withinTx runs fn in a transaction that is committed only when fn succeeds and rolled back
// on every other exit path, including panics.
func (s *registrationService) withinTx(ctx context.Context, fn func(tx domain.Tx) error) (err error) {
	tx, err := s.transactor.BeginTx(ctx)
	if err != nil {
		return storageError(ctx, "begin transaction", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.WarnContext(ctx, "rollback failed", "err", rbErr)
		}
	}()

	if err := fn(tx); err != nil {
		return storageError(ctx, "transaction", err)
	}
	if err := tx.Commit(); err != nil {
		return storageError(ctx, "commit transaction", err)
	}
	committed = true
	return nil
}

// storageError keeps domain rejections as they are and turns everything else into a
// wrapped error, classifying deadline expiry as ErrStorageTimeout.
func storageError(ctx context.Context, op string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.Wrap(domain.ErrStorageTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

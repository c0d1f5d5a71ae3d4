package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"eventhub/internal/domain"
)

const (
	registrationColumns = `id, attendee_id, event_id, tier_id, quantity, status,
		payment_amount, payment_transaction_id, payment_status, payment_date,
		ticket_code, created_at, updated_at`

	activeRegistrationKey = "registrations_active_attendee_event_key"
)

type registrationRepository struct {
	DB *sql.DB
}

func NewRegistrationRepository(db *sql.DB) domain.RegistrationRepository {
	return &registrationRepository{
		DB: db,
	}
}

func (r *registrationRepository) Create(ctx context.Context, tx domain.Tx, reg *domain.Registration) error {
	cmd, err := command(r.DB, tx)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO registrations (attendee_id, event_id, tier_id, quantity, status,
			payment_amount, payment_transaction_id, payment_status, payment_date,
			ticket_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	err = cmd.QueryRowContext(ctx, query,
		reg.AttendeeID, reg.EventID, reg.TierID, reg.Quantity, reg.Status,
		reg.Payment.Amount, reg.Payment.TransactionID, reg.Payment.Status, reg.Payment.Date,
		reg.TicketCode, reg.CreatedAt, reg.UpdatedAt,
	).Scan(&reg.ID)
	if err != nil {
		if isUniqueViolation(err, activeRegistrationKey) {
			return domain.ErrDuplicateActive
		}
		return classify(err)
	}
	if reg.CheckIns == nil {
		reg.CheckIns = []domain.CheckIn{}
	}
	return nil
}

func (r *registrationRepository) GetByID(ctx context.Context, tx domain.Tx, id string) (*domain.Registration, error) {
	cmd, err := command(r.DB, tx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	if tx != nil {
		query += ` FOR UPDATE`
	}
	reg, err := scanRegistration(cmd.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return nil, domain.ErrRegistrationNotFound
		}
		return nil, classify(err)
	}
	if err := loadCheckIns(ctx, cmd, []*domain.Registration{reg}); err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) FindActiveByAttendeeAndEvent(ctx context.Context, attendeeID, eventID string) (*domain.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE attendee_id = $1 AND event_id = $2 AND status <> 'cancelled'
	`
	reg, err := scanRegistration(r.DB.QueryRowContext(ctx, query, attendeeID, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return nil, domain.ErrRegistrationNotFound
		}
		return nil, classify(err)
	}
	if err := loadCheckIns(ctx, r.DB, []*domain.Registration{reg}); err != nil {
		return nil, err
	}
	return reg, nil
}

// UpdateStatus is a compare-and-swap on status. A lost race surfaces as ErrTransactionAborted.
func (r *registrationRepository) UpdateStatus(ctx context.Context, tx domain.Tx, reg *domain.Registration, from domain.RegistrationStatus) error {
	cmd, err := command(r.DB, tx)
	if err != nil {
		return err
	}
	query := `
		UPDATE registrations
		SET status = $1, payment_status = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`
	res, err := cmd.ExecContext(ctx, query, reg.Status, reg.Payment.Status, reg.UpdatedAt, reg.ID, from)
	if err != nil {
		if isUniqueViolation(err, activeRegistrationKey) {
			return domain.ErrDuplicateActive
		}
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return domain.ErrTransactionAborted
	}
	return nil
}

func (r *registrationRepository) AppendCheckIn(ctx context.Context, tx domain.Tx, id string, entry domain.CheckIn) error {
	cmd, err := command(r.DB, tx)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO registration_check_ins (registration_id, checked_in_at, location, staff_id)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := cmd.ExecContext(ctx, query, id, entry.At, entry.Location, entry.StaffID); err != nil {
		return classify(err)
	}
	return nil
}

func (r *registrationRepository) ListByEvent(ctx context.Context, eventID string, f domain.RegistrationFilter, p domain.PaginationParams) ([]*domain.Registration, int, error) {
	var total int
	countQuery := `
		SELECT COUNT(*)
		FROM registrations
		WHERE event_id = $1 AND ($2::text = '' OR status = $2::text)
	`
	if err := r.DB.QueryRowContext(ctx, countQuery, eventID, string(f.Status)).Scan(&total); err != nil {
		if isInvalidText(err) {
			return []*domain.Registration{}, 0, nil
		}
		return nil, 0, classify(err)
	}

	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1 AND ($2::text = '' OR status = $2::text)
		ORDER BY created_at ASC, id ASC
		LIMIT $3 OFFSET $4
	`
	regs, err := r.query(ctx, query, eventID, string(f.Status), limitArg(p), p.Offset())
	if err != nil {
		return nil, 0, err
	}
	return regs, total, nil
}

func (r *registrationRepository) ListByAttendee(ctx context.Context, attendeeID string) ([]*domain.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE attendee_id = $1
		ORDER BY created_at DESC, id ASC
	`
	return r.query(ctx, query, attendeeID)
}

func (r *registrationRepository) TallyByEvent(ctx context.Context, eventID string) ([]*domain.RegistrationTally, error) {
	query := `
		SELECT event_id,
			COALESCE(SUM(quantity) FILTER (WHERE status IN ('confirmed', 'checked_in')), 0),
			COALESCE(SUM(quantity) FILTER (WHERE status = 'checked_in'), 0),
			COALESCE(SUM(payment_amount) FILTER (WHERE status <> 'cancelled'), 0),
			COUNT(*)
		FROM registrations
		WHERE $1::text = '' OR event_id::text = $1::text
		GROUP BY event_id
		ORDER BY event_id
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	tallies := make([]*domain.RegistrationTally, 0)
	for rows.Next() {
		t := &domain.RegistrationTally{}
		if err := rows.Scan(&t.EventID, &t.TotalAttendees, &t.CheckedIn, &t.TotalRevenue, &t.TicketsSold); err != nil {
			return nil, classify(err)
		}
		tallies = append(tallies, t)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return tallies, nil
}

func (r *registrationRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.Registration, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		if isInvalidText(err) {
			return []*domain.Registration{}, nil
		}
		return nil, classify(err)
	}
	defer rows.Close()

	regs := make([]*domain.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, classify(err)
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	if err := loadCheckIns(ctx, r.DB, regs); err != nil {
		return nil, err
	}
	return regs, nil
}

// loadCheckIns fills CheckIns for every registration with one query, oldest first.
func loadCheckIns(ctx context.Context, cmd sqlCommand, regs []*domain.Registration) error {
	if len(regs) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Registration, len(regs))
	ids := make([]string, 0, len(regs))
	for _, reg := range regs {
		reg.CheckIns = []domain.CheckIn{}
		byID[reg.ID] = reg
		ids = append(ids, reg.ID)
	}

	query := `
		SELECT registration_id, checked_in_at, location, staff_id
		FROM registration_check_ins
		WHERE registration_id = ANY($1)
		ORDER BY registration_id, checked_in_at, id
	`
	rows, err := cmd.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return classify(err)
	}
	defer rows.Close()
	for rows.Next() {
		var regID string
		var c domain.CheckIn
		if err := rows.Scan(&regID, &c.At, &c.Location, &c.StaffID); err != nil {
			return classify(err)
		}
		if reg, ok := byID[regID]; ok {
			reg.CheckIns = append(reg.CheckIns, c)
		}
	}
	return classify(rows.Err())
}

func scanRegistration(row rowScanner) (*domain.Registration, error) {
	reg := &domain.Registration{}
	err := row.Scan(
		&reg.ID, &reg.AttendeeID, &reg.EventID, &reg.TierID, &reg.Quantity, &reg.Status,
		&reg.Payment.Amount, &reg.Payment.TransactionID, &reg.Payment.Status, &reg.Payment.Date,
		&reg.TicketCode, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

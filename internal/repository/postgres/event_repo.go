package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"eventhub/internal/domain"
)

const (
	eventColumns = `id, title, description, date, organizer_id, tags, registered_count, created_at, updated_at`
	tierColumns  = `id, event_id, name, price, capacity, remaining, sales_start, sales_end`
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

// Create inserts the event and its tiers in one transaction.
func (r *eventRepository) Create(ctx context.Context, e *domain.Event) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	query := `
		INSERT INTO events (title, description, date, organizer_id, tags, registered_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	if err = tx.QueryRowContext(ctx, query, e.Title, e.Description, e.Date, e.OrganizerID, pq.Array(tags), e.RegisteredCount, e.CreatedAt, e.UpdatedAt).
		Scan(&e.ID); err != nil {
		return classify(err)
	}

	tierQuery := `
		INSERT INTO ticket_tiers (event_id, position, name, price, capacity, remaining, sales_start, sales_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	for i := range e.Tiers {
		t := &e.Tiers[i]
		t.EventID = e.ID
		if err = tx.QueryRowContext(ctx, tierQuery, e.ID, i, t.Name, t.Price, t.Capacity, t.Remaining, t.SalesStart, t.SalesEnd).
			Scan(&t.ID); err != nil {
			if isUniqueViolation(err, "ticket_tiers_event_name_key") {
				return domain.InvalidInput("duplicate tier name %q", t.Name)
			}
			return classify(err)
		}
	}

	if err = tx.Commit(); err != nil {
		return classify(err)
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return nil, domain.ErrEventNotFound
		}
		return nil, classify(err)
	}
	if err := r.loadTiers(ctx, []*domain.Event{e}); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) List(ctx context.Context, p domain.PaginationParams) ([]*domain.Event, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&total); err != nil {
		return nil, 0, classify(err)
	}

	query := `
		SELECT ` + eventColumns + `
		FROM events
		ORDER BY date ASC, id ASC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.DB.QueryContext(ctx, query, limitArg(p), p.Offset())
	if err != nil {
		return nil, 0, classify(err)
	}
	defer rows.Close()

	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, classify(err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify(err)
	}
	if err := r.loadTiers(ctx, events); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *eventRepository) GetTier(ctx context.Context, tx domain.Tx, eventID, tierID string) (*domain.TicketTier, error) {
	cmd, err := command(r.DB, tx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + tierColumns + ` FROM ticket_tiers WHERE event_id = $1 AND id = $2`
	if tx != nil {
		query += ` FOR UPDATE`
	}
	t, err := scanTier(cmd.QueryRowContext(ctx, query, eventID, tierID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return nil, domain.ErrTierNotFound
		}
		return nil, classify(err)
	}
	return t, nil
}

// ApplyCapacityDelta moves remaining and registered_count in one statement. The WHERE clause
// is the compare-and-swap guard: the row only changes if the result stays within [0, capacity].
func (r *eventRepository) ApplyCapacityDelta(ctx context.Context, tx domain.Tx, eventID, tierID string, delta int) error {
	cmd, err := command(r.DB, tx)
	if err != nil {
		return err
	}
	query := `
		WITH tier AS (
			UPDATE ticket_tiers
			SET remaining = remaining + $3
			WHERE event_id = $1 AND id = $2 AND remaining + $3 BETWEEN 0 AND capacity
			RETURNING event_id
		)
		UPDATE events
		SET registered_count = registered_count - $3, updated_at = NOW()
		WHERE id = (SELECT event_id FROM tier)
	`
	res, err := cmd.ExecContext(ctx, query, eventID, tierID, delta)
	if err != nil {
		if isInvalidText(err) {
			return domain.ErrTierNotFound
		}
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 1 {
		return nil
	}

	// Nothing moved: tell a missing tier apart from a guard rejection.
	var remaining, capacity int
	err = cmd.QueryRowContext(ctx, `SELECT remaining, capacity FROM ticket_tiers WHERE event_id = $1 AND id = $2`, eventID, tierID).
		Scan(&remaining, &capacity)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrTierNotFound
	case err != nil:
		return classify(err)
	case delta < 0:
		return domain.ErrInsufficientCapacity
	default:
		return domain.ErrCapacityOverflow
	}
}

// loadTiers fills Tiers for every event with one query.
func (r *eventRepository) loadTiers(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Event, len(events))
	ids := make([]string, 0, len(events))
	for _, e := range events {
		e.Tiers = []domain.TicketTier{}
		byID[e.ID] = e
		ids = append(ids, e.ID)
	}

	query := `
		SELECT ` + tierColumns + `
		FROM ticket_tiers
		WHERE event_id = ANY($1)
		ORDER BY event_id, position
	`
	rows, err := r.DB.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return classify(err)
	}
	defer rows.Close()
	for rows.Next() {
		t, err := scanTier(rows)
		if err != nil {
			return classify(err)
		}
		if e, ok := byID[t.EventID]; ok {
			e.Tiers = append(e.Tiers, *t)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load tiers: %w", classify(err))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var descNull sql.NullString
	var tags pq.StringArray
	if err := row.Scan(&e.ID, &e.Title, &descNull, &e.Date, &e.OrganizerID, &tags, &e.RegisteredCount, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if descNull.Valid {
		e.Description = &descNull.String
	}
	e.Tags = []string(tags)
	if e.Tags == nil {
		e.Tags = []string{}
	}
	return e, nil
}

func scanTier(row rowScanner) (*domain.TicketTier, error) {
	t := &domain.TicketTier{}
	var start, end sql.NullTime
	if err := row.Scan(&t.ID, &t.EventID, &t.Name, &t.Price, &t.Capacity, &t.Remaining, &start, &end); err != nil {
		return nil, err
	}
	if start.Valid {
		t.SalesStart = &start.Time
	}
	if end.Valid {
		t.SalesEnd = &end.Time
	}
	return t, nil
}

// limitArg returns the LIMIT parameter; NULL means no limit.
func limitArg(p domain.PaginationParams) interface{} {
	if p.PageSize <= 0 {
		return nil
	}
	return p.PageSize
}

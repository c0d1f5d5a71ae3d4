// Package memory is an in-process storage driver. It keeps the same transactional
// contract as the postgres driver: one lock per event held for the life of a tx,
// and an undo log replayed on rollback.
package memory

import (
	"context"
	"errors"
	"sync"

	"eventhub/internal/domain"
)

var errTxDone = errors.New("memory: transaction has already been committed or rolled back")

type activeKey struct {
	attendeeID string
	eventID    string
}

// Store holds every table of the in-memory driver.
type Store struct {
	mu            sync.Mutex
	events        map[string]*domain.Event
	registrations map[string]*domain.Registration
	active        map[activeKey]string
	users         map[string]*domain.User
	usersByEmail  map[string]string
	locks         map[string]chan struct{}
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		events:        make(map[string]*domain.Event),
		registrations: make(map[string]*domain.Registration),
		active:        make(map[activeKey]string),
		users:         make(map[string]*domain.User),
		usersByEmail:  make(map[string]string),
		locks:         make(map[string]chan struct{}),
	}
}

// BeginTx starts a transaction. Locks are taken lazily as the tx touches events.
func (s *Store) BeginTx(ctx context.Context) (domain.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memTx{store: s, held: make(map[string]chan struct{})}, nil
}

func (s *Store) eventLock(eventID string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[eventID]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[eventID] = l
	}
	return l
}

type memTx struct {
	store *Store
	held  map[string]chan struct{}
	undo  []func()
	done  bool
}

// lock acquires the event lock for the rest of the tx, waiting no longer than ctx allows.
func (tx *memTx) lock(ctx context.Context, eventID string) error {
	if tx.done {
		return errTxDone
	}
	if _, ok := tx.held[eventID]; ok {
		return nil
	}
	l := tx.store.eventLock(eventID)
	select {
	case l <- struct{}{}:
		tx.held[eventID] = l
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// record registers fn to run on rollback. Callers hold store.mu.
func (tx *memTx) record(fn func()) {
	tx.undo = append(tx.undo, fn)
}

func (tx *memTx) Commit() error {
	if tx.done {
		return errTxDone
	}
	tx.finish()
	return nil
}

func (tx *memTx) Rollback() error {
	if tx.done {
		return errTxDone
	}
	tx.store.mu.Lock()
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.store.mu.Unlock()
	tx.finish()
	return nil
}

func (tx *memTx) finish() {
	tx.done = true
	tx.undo = nil
	for id, l := range tx.held {
		<-l
		delete(tx.held, id)
	}
}

// withTx runs fn inside tx, or inside a short autocommit tx when tx is nil.
func (s *Store) withTx(ctx context.Context, tx domain.Tx, eventID string, fn func(mt *memTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var (
		mt  *memTx
		own bool
	)
	switch t := tx.(type) {
	case nil:
		mt, own = &memTx{store: s, held: make(map[string]chan struct{})}, true
	case *memTx:
		mt = t
	default:
		return errors.New("memory: foreign transaction")
	}
	if err := mt.lock(ctx, eventID); err != nil {
		if own {
			_ = mt.Rollback()
		}
		return err
	}
	if err := fn(mt); err != nil {
		if own {
			_ = mt.Rollback()
		}
		return err
	}
	if own {
		return mt.Commit()
	}
	return nil
}

func copyEvent(e *domain.Event) *domain.Event {
	cp := *e
	cp.Tags = append([]string{}, e.Tags...)
	cp.Tiers = append([]domain.TicketTier{}, e.Tiers...)
	return &cp
}

func copyRegistration(r *domain.Registration) *domain.Registration {
	cp := *r
	cp.CheckIns = append([]domain.CheckIn{}, r.CheckIns...)
	return &cp
}

package domain

import "context"

// Tx is a unit of work shared by the capacity ledger and the registration store for the
// lifetime of one workflow operation. Repositories accept a nil Tx to run outside a transaction.
type Tx interface {
	Commit() error
	Rollback() error
}

// Transactor starts transactions on the underlying storage.
type Transactor interface {
	BeginTx(ctx context.Context) (Tx, error)
}

// CapacityLedger admits and releases ticket quantities against a tier's remaining count.
type CapacityLedger interface {
	// TryReserve decrements the tier's remaining count by quantity inside tx.
	TryReserve(ctx context.Context, tx Tx, eventID, tierID string, quantity int) (*TicketTier, error)
	// Release returns quantity to the tier inside tx. Callers invoke it once per reservation.
	Release(ctx context.Context, tx Tx, eventID, tierID string, quantity int) error
}

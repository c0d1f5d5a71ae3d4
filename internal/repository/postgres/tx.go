package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventhub/internal/domain"
)

var errForeignTx = errors.New("postgres: transaction was not started by this driver")

// sqlCommand is the subset of *sql.DB and *sql.Tx the repositories use.
type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// command returns tx when set, db otherwise.
func command(db *sql.DB, tx domain.Tx) (sqlCommand, error) {
	if tx == nil {
		return db, nil
	}
	sqlTx, ok := tx.(*sql.Tx)
	if !ok {
		return nil, errForeignTx
	}
	return sqlTx, nil
}

type transactor struct {
	DB *sql.DB
}

// NewTransactor returns a Transactor that starts read-committed transactions on db.
func NewTransactor(db *sql.DB) domain.Transactor {
	return &transactor{DB: db}
}

func (t *transactor) BeginTx(ctx context.Context) (domain.Tx, error) {
	tx, err := t.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(err)
	}
	return tx, nil
}

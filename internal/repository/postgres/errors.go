package postgres

import (
	"context"
	"errors"

	"github.com/lib/pq"

	"eventhub/internal/domain"
)

// Postgres error codes the driver reacts to.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeQueryCanceled        = "57014"
	codeInvalidText          = "22P02"
)

// classify maps driver errors onto domain rejections. Unrecognized errors pass through.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var perr *pq.Error
	if errors.As(err, &perr) {
		switch perr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return domain.Wrap(domain.ErrTransactionAborted, err)
		case codeQueryCanceled:
			return domain.Wrap(domain.ErrStorageTimeout, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.Wrap(domain.ErrStorageTimeout, err)
	}
	return err
}

func isUniqueViolation(err error, constraint string) bool {
	var perr *pq.Error
	if !errors.As(err, &perr) || perr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || perr.Constraint == constraint
}

// isInvalidText reports a malformed literal, such as a non-UUID id.
func isInvalidText(err error) bool {
	var perr *pq.Error
	return errors.As(err, &perr) && perr.Code == codeInvalidText
}

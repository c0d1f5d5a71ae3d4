package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"eventhub/internal/domain"
)

func TestClassify(t *testing.T) {
	plain := errors.New("boom")

	assert.NoError(t, classify(nil))
	assert.Same(t, plain, classify(plain))
	assert.ErrorIs(t, classify(&pq.Error{Code: "40001"}), domain.ErrTransactionAborted)
	assert.ErrorIs(t, classify(&pq.Error{Code: "40P01"}), domain.ErrTransactionAborted)
	assert.ErrorIs(t, classify(&pq.Error{Code: "57014"}), domain.ErrStorageTimeout)
	assert.ErrorIs(t, classify(context.DeadlineExceeded), domain.ErrStorageTimeout)
	assert.ErrorIs(t, classify(context.DeadlineExceeded), context.DeadlineExceeded)

	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505", Constraint: "users_email_key"}, "users_email_key"))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23505", Constraint: "other"}, "users_email_key"))
	assert.False(t, isUniqueViolation(plain, ""))
}

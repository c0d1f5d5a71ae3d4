package helpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventhub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{domain.InvalidInput("bad"), http.StatusBadRequest},
		{domain.ErrTierNotFound, http.StatusNotFound},
		{fmt.Errorf("reserve: %w", domain.ErrInsufficientCapacity), http.StatusConflict},
		{domain.ErrStatusTransition, http.StatusConflict},
		{domain.ErrSalesClosed, http.StatusUnprocessableEntity},
		{domain.ErrNotPermitted, http.StatusForbidden},
		{domain.ErrTransactionAborted, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestWriteServiceError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	req := httptest.NewRequest(http.MethodPost, "/registrations", nil)

	rr := httptest.NewRecorder()
	WriteServiceError(rr, req, logger, fmt.Errorf("transaction: %w", domain.ErrDuplicateActive))
	require.Equal(t, http.StatusConflict, rr.Code)
	var env APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	require.NotNil(t, env.Error)
	assert.Equal(t, "duplicate_active", env.Error.Code)
	assert.Equal(t, domain.ErrDuplicateActive.Message, env.Error.Message)
	assert.Nil(t, env.Data)

	rr = httptest.NewRecorder()
	WriteServiceError(rr, req, logger, errors.New("pq: password authentication failed"))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password authentication")
}

package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventhub/internal/domain"
)

type fakeUserService struct {
	users  []*domain.User
	total  int
	err    error
	params domain.PaginationParams
}

func (f *fakeUserService) ListUsers(_ context.Context, _ domain.Identity, p domain.PaginationParams) ([]*domain.User, int, error) {
	f.params = p
	return f.users, f.total, f.err
}

func TestUserController_ListUsers(t *testing.T) {
	admin := domain.Identity{UserID: "6f1c2a44-5555-4b5e-9d2a-7c1f00000009", Role: domain.RoleAdmin}

	t.Run("success", func(t *testing.T) {
		svc := &fakeUserService{users: []*domain.User{{ID: "u-1", Email: "alice@example.com", PasswordHash: "secret"}}, total: 21}
		rr := httptest.NewRecorder()
		NewUserController(testLogger, svc).ListUsers(rr, newRequest(t, http.MethodGet, "/users?page=2&limit=10", nil, &admin, nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, domain.PaginationParams{Page: 2, PageSize: 10}, svc.params)
		assert.NotContains(t, rr.Body.String(), "secret")
		var got ListUsersResponse
		require.Nil(t, decodeEnvelope(t, rr, &got))
		require.Len(t, got.Items, 1)
		assert.Equal(t, 3, got.Pagination.TotalPages)
	})

	t.Run("forbidden", func(t *testing.T) {
		svc := &fakeUserService{err: domain.ErrNotPermitted}
		rr := httptest.NewRecorder()
		NewUserController(testLogger, svc).ListUsers(rr, newRequest(t, http.MethodGet, "/users", nil, &organizerIdentity, nil))
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		svc := &fakeUserService{err: errors.New("db down")}
		rr := httptest.NewRecorder()
		NewUserController(testLogger, svc).ListUsers(rr, newRequest(t, http.MethodGet, "/users", nil, &admin, nil))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("no identity", func(t *testing.T) {
		rr := httptest.NewRecorder()
		NewUserController(testLogger, &fakeUserService{}).ListUsers(rr, newRequest(t, http.MethodGet, "/users", nil, nil, nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

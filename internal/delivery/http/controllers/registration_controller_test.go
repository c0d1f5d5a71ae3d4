package controllers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventhub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationController_Register(t *testing.T) {
	valid := map[string]any{"event_id": eventUUID, "ticket_tier_id": tierUUID, "quantity": 2}

	tests := []struct {
		name       string
		body       any
		identity   *domain.Identity
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{"created", valid, &attendeeIdentity, nil, http.StatusCreated, ""},
		{"malformed json", `{"event_id":`, &attendeeIdentity, nil, http.StatusBadRequest, "bad_request"},
		{"unknown field", `{"event_id":"` + eventUUID + `","ticket_tier_id":"` + tierUUID + `","seat":"A1"}`, &attendeeIdentity, nil, http.StatusBadRequest, "bad_request"},
		{"event id not a uuid", map[string]any{"event_id": "abc", "ticket_tier_id": tierUUID}, &attendeeIdentity, nil, http.StatusBadRequest, "bad_request"},
		{"missing tier", map[string]any{"event_id": eventUUID}, &attendeeIdentity, nil, http.StatusBadRequest, "bad_request"},
		{"negative quantity", map[string]any{"event_id": eventUUID, "ticket_tier_id": tierUUID, "quantity": -1}, &attendeeIdentity, nil, http.StatusBadRequest, "bad_request"},
		{"bad payment status", map[string]any{"event_id": eventUUID, "ticket_tier_id": tierUUID, "payment_status": "paid"}, &attendeeIdentity, nil, http.StatusBadRequest, "bad_request"},
		{"no identity", valid, nil, nil, http.StatusUnauthorized, "unauthorized"},
		{"event not found", valid, &attendeeIdentity, domain.ErrEventNotFound, http.StatusNotFound, "event_not_found"},
		{"tier not found", valid, &attendeeIdentity, domain.ErrTierNotFound, http.StatusNotFound, "tier_not_found"},
		{"already registered", valid, &attendeeIdentity, domain.ErrAlreadyRegistered, http.StatusConflict, "already_registered"},
		{"duplicate active", valid, &attendeeIdentity, domain.ErrDuplicateActive, http.StatusConflict, "duplicate_active"},
		{"sold out", valid, &attendeeIdentity, domain.ErrInsufficientCapacity, http.StatusConflict, "insufficient_capacity"},
		{"sales closed", valid, &attendeeIdentity, domain.ErrSalesClosed, http.StatusUnprocessableEntity, "sales_window_closed"},
		{"not permitted", valid, &attendeeIdentity, domain.ErrNotPermitted, http.StatusForbidden, "forbidden"},
		{"storage timeout", valid, &attendeeIdentity, domain.Wrap(domain.ErrStorageTimeout, errors.New("context deadline exceeded")), http.StatusServiceUnavailable, "storage_timeout"},
		{"unexpected", valid, &attendeeIdentity, errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeRegistrationService{
				reg: &domain.Registration{ID: regUUID, EventID: eventUUID, TierID: tierUUID, Quantity: 2, Status: domain.StatusConfirmed},
				err: tt.svcErr,
			}
			c := NewRegistrationController(testLogger, svc)
			rr := httptest.NewRecorder()
			c.Register(rr, newRequest(t, http.MethodPost, "/registrations", tt.body, tt.identity, nil))

			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			var got domain.Registration
			apiErr := decodeEnvelope(t, rr, &got)
			if tt.wantCode != "" {
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}
			require.Nil(t, apiErr)
			assert.Equal(t, regUUID, got.ID)
			assert.Equal(t, attendeeIdentity, svc.gotActor)
			assert.Equal(t, domain.RegisterInput{EventID: eventUUID, TierID: tierUUID, Quantity: 2}, svc.gotInput)
		})
	}
}

func TestRegistrationController_InternalErrorHidesDetails(t *testing.T) {
	svc := &fakeRegistrationService{err: errors.New("pq: connection refused to 10.0.0.5")}
	c := NewRegistrationController(testLogger, svc)
	rr := httptest.NewRecorder()
	c.Register(rr, newRequest(t, http.MethodPost, "/registrations", map[string]any{"event_id": eventUUID, "ticket_tier_id": tierUUID}, &attendeeIdentity, nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "10.0.0.5")
}

func TestRegistrationController_Unavailable_SetsRetryAfter(t *testing.T) {
	svc := &fakeRegistrationService{err: domain.ErrTransactionAborted}
	c := NewRegistrationController(testLogger, svc)
	rr := httptest.NewRecorder()
	c.Cancel(rr, newRequest(t, http.MethodDelete, "/registrations/"+regUUID, nil, &attendeeIdentity, map[string]string{"registrationID": regUUID}))

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
}

func TestRegistrationController_Cancel(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{"cancelled", regUUID, nil, http.StatusOK, ""},
		{"bad id", "42", nil, http.StatusBadRequest, "bad_request"},
		{"not found", regUUID, domain.ErrRegistrationNotFound, http.StatusNotFound, "registration_not_found"},
		{"already cancelled", regUUID, domain.ErrAlreadyCancelled, http.StatusConflict, "already_cancelled"},
		{"not owner", regUUID, domain.ErrNotPermitted, http.StatusForbidden, "forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeRegistrationService{reg: &domain.Registration{ID: regUUID, Status: domain.StatusCancelled}, err: tt.svcErr}
			c := NewRegistrationController(testLogger, svc)
			rr := httptest.NewRecorder()
			c.Cancel(rr, newRequest(t, http.MethodDelete, "/registrations/"+tt.id, nil, &attendeeIdentity, map[string]string{"registrationID": tt.id}))

			require.Equal(t, tt.wantStatus, rr.Code)
			apiErr := decodeEnvelope(t, rr, nil)
			if tt.wantCode != "" {
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}
			require.Nil(t, apiErr)
			assert.Equal(t, regUUID, svc.gotID)
		})
	}
}

func TestRegistrationController_UpdateStatus(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{"check in", map[string]any{"status": "checked_in", "location": "Gate A"}, nil, http.StatusOK, ""},
		{"missing status", map[string]any{"location": "Gate A"}, nil, http.StatusBadRequest, "bad_request"},
		{"unknown status", map[string]any{"status": "refunded"}, nil, http.StatusBadRequest, "bad_request"},
		{"invalid transition", map[string]any{"status": "pending"}, domain.ErrStatusTransition, http.StatusConflict, "invalid_transition"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeRegistrationService{reg: &domain.Registration{ID: regUUID, Status: domain.StatusCheckedIn}, err: tt.svcErr}
			c := NewRegistrationController(testLogger, svc)
			rr := httptest.NewRecorder()
			c.UpdateStatus(rr, newRequest(t, http.MethodPut, "/registrations/"+regUUID, tt.body, &organizerIdentity, map[string]string{"registrationID": regUUID}))

			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			apiErr := decodeEnvelope(t, rr, nil)
			if tt.wantCode != "" {
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}
			assert.Equal(t, domain.StatusCheckedIn, svc.gotTo)
			assert.Equal(t, domain.StatusContext{Location: "Gate A"}, svc.gotSC)
			assert.Equal(t, organizerIdentity, svc.gotActor)
		})
	}
}

func TestRegistrationController_GetRegistration(t *testing.T) {
	svc := &fakeRegistrationService{reg: &domain.Registration{ID: regUUID, AttendeeID: userUUID, Status: domain.StatusConfirmed}}
	c := NewRegistrationController(testLogger, svc)
	rr := httptest.NewRecorder()
	c.GetRegistration(rr, newRequest(t, http.MethodGet, "/registrations/"+regUUID, nil, &attendeeIdentity, map[string]string{"registrationID": regUUID}))

	require.Equal(t, http.StatusOK, rr.Code)
	var got domain.Registration
	require.Nil(t, decodeEnvelope(t, rr, &got))
	assert.Equal(t, userUUID, got.AttendeeID)
}

func TestRegistrationController_ListMyRegistrations(t *testing.T) {
	svc := &fakeRegistrationService{mine: []*domain.RegistrationWithEvent{
		{Registration: &domain.Registration{ID: regUUID}, Event: &domain.Event{ID: eventUUID, Title: "GopherCon"}},
	}}
	c := NewRegistrationController(testLogger, svc)
	rr := httptest.NewRecorder()
	c.ListMyRegistrations(rr, newRequest(t, http.MethodGet, "/registrations/me", nil, &attendeeIdentity, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var got []domain.RegistrationWithEvent
	require.Nil(t, decodeEnvelope(t, rr, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "GopherCon", got[0].Event.Title)
}

func TestRegistrationController_ListEventRegistrations(t *testing.T) {
	svc := &fakeRegistrationService{regs: []*domain.Registration{{ID: regUUID}}, total: 41}
	c := NewRegistrationController(testLogger, svc)
	rr := httptest.NewRecorder()
	target := "/events/" + eventUUID + "/registrations?status=confirmed&page=2&limit=20"
	c.ListEventRegistrations(rr, newRequest(t, http.MethodGet, target, nil, &organizerIdentity, map[string]string{"eventID": eventUUID}))

	require.Equal(t, http.StatusOK, rr.Code)
	var got ListEventRegistrationsResponse
	require.Nil(t, decodeEnvelope(t, rr, &got))
	assert.Len(t, got.Items, 1)
	assert.Equal(t, 41, got.Pagination.Total)
	assert.Equal(t, 3, got.Pagination.TotalPages)
	assert.Equal(t, domain.RegistrationFilter{Status: domain.StatusConfirmed}, svc.gotF)
	assert.Equal(t, domain.PaginationParams{Page: 2, PageSize: 20}, svc.gotP)
	assert.Equal(t, eventUUID, svc.gotID)
}

package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eventhub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	event     *domain.Event
	events    []*domain.Event
	total     int
	err       error
	lastActor domain.Identity
	lastInput domain.CreateEventInput
	lastID    string
	lastP     domain.PaginationParams
}

func (f *fakeEventService) CreateEvent(_ context.Context, actor domain.Identity, in domain.CreateEventInput) (*domain.Event, error) {
	f.lastActor, f.lastInput = actor, in
	return f.event, f.err
}

func (f *fakeEventService) GetEvent(_ context.Context, eventID string) (*domain.Event, error) {
	f.lastID = eventID
	return f.event, f.err
}

func (f *fakeEventService) ListEvents(_ context.Context, p domain.PaginationParams) ([]*domain.Event, int, error) {
	f.lastP = p
	return f.events, f.total, f.err
}

func TestEventController_CreateEvent(t *testing.T) {
	date := time.Date(2026, 11, 20, 18, 0, 0, 0, time.UTC)
	valid := map[string]any{
		"title": "GopherCon",
		"date":  date,
		"tags":  []string{"go"},
		"tiers": []map[string]any{{"name": "General", "price": 25, "capacity": 100}},
	}

	tests := []struct {
		name       string
		body       any
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{"created", valid, nil, http.StatusCreated, ""},
		{"missing title", map[string]any{"date": date, "tiers": valid["tiers"]}, nil, http.StatusBadRequest, "bad_request"},
		{"no tiers", map[string]any{"title": "x", "date": date, "tiers": []any{}}, nil, http.StatusBadRequest, "bad_request"},
		{"negative capacity", map[string]any{"title": "x", "date": date, "tiers": []map[string]any{{"name": "VIP", "capacity": -1}}}, nil, http.StatusBadRequest, "bad_request"},
		{"duplicate tier rejected by service", valid, domain.InvalidInput("duplicate tier name %q", "General"), http.StatusBadRequest, "invalid_input"},
		{"not permitted", valid, domain.ErrNotPermitted, http.StatusForbidden, "forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeEventService{event: &domain.Event{ID: eventUUID, Title: "GopherCon"}, err: tt.svcErr}
			c := NewEventController(testLogger, svc)
			rr := httptest.NewRecorder()
			c.CreateEvent(rr, newRequest(t, http.MethodPost, "/events", tt.body, &organizerIdentity, nil))

			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			var got domain.Event
			apiErr := decodeEnvelope(t, rr, &got)
			if tt.wantCode != "" {
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}
			assert.Equal(t, eventUUID, got.ID)
			assert.Equal(t, organizerIdentity, svc.lastActor)
			require.Len(t, svc.lastInput.Tiers, 1)
			assert.Equal(t, "General", svc.lastInput.Tiers[0].Name)
			assert.Equal(t, 100, svc.lastInput.Tiers[0].Capacity)
			assert.True(t, svc.lastInput.Date.Equal(date))
		})
	}
}

func TestEventController_GetEvent(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		svcErr     error
		wantStatus int
	}{
		{"found", eventUUID, nil, http.StatusOK},
		{"not a uuid", "not-a-uuid", nil, http.StatusBadRequest},
		{"not found", eventUUID, domain.ErrEventNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeEventService{event: &domain.Event{ID: eventUUID}, err: tt.svcErr}
			c := NewEventController(testLogger, svc)
			rr := httptest.NewRecorder()
			c.GetEvent(rr, newRequest(t, http.MethodGet, "/events/"+tt.id, nil, nil, map[string]string{"eventID": tt.id}))

			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestEventController_ListEvents(t *testing.T) {
	svc := &fakeEventService{events: []*domain.Event{{ID: eventUUID}}, total: 1}
	c := NewEventController(testLogger, svc)
	rr := httptest.NewRecorder()
	c.ListEvents(rr, newRequest(t, http.MethodGet, "/events?page_size=500", nil, nil, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var got ListEventsResponse
	require.Nil(t, decodeEnvelope(t, rr, &got))
	assert.Len(t, got.Items, 1)
	assert.Equal(t, domain.PaginationParams{Page: 1, PageSize: 100}, svc.lastP)
}

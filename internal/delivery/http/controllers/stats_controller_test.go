package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventhub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatsService struct {
	stats   []*domain.EventStatSummary
	err     error
	eventID string
	actor   domain.Identity
}

func (f *fakeStatsService) EventStats(_ context.Context, actor domain.Identity, eventID string) ([]*domain.EventStatSummary, error) {
	f.actor = actor
	f.eventID = eventID
	return f.stats, f.err
}

func TestStatsController_EventStats(t *testing.T) {
	summary := &domain.EventStatSummary{EventID: eventUUID, EventTitle: "GopherCon", TotalAttendees: 4, CheckedIn: 1, AttendanceRate: 25, TotalRevenue: 100, TicketsSold: 3}

	tests := []struct {
		name       string
		query      string
		svcErr     error
		wantStatus int
		wantID     string
	}{
		{"all events", "", nil, http.StatusOK, ""},
		{"one event", "?event_id=" + eventUUID, nil, http.StatusOK, eventUUID},
		{"bad event id", "?event_id=42", nil, http.StatusBadRequest, ""},
		{"unknown event", "?event_id=" + eventUUID, domain.ErrEventNotFound, http.StatusNotFound, eventUUID},
		{"foreign event", "?event_id=" + eventUUID, domain.ErrNotPermitted, http.StatusForbidden, eventUUID},
		{"storage failure", "", errors.New("db down"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeStatsService{stats: []*domain.EventStatSummary{summary}, err: tt.svcErr}
			c := NewStatsController(testLogger, svc)
			rr := httptest.NewRecorder()
			c.EventStats(rr, newRequest(t, http.MethodGet, "/events/stats"+tt.query, nil, &organizerIdentity, nil))

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantID, svc.eventID)
			if tt.wantStatus != http.StatusBadRequest {
				assert.Equal(t, organizerIdentity, svc.actor)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var got []domain.EventStatSummary
			require.Nil(t, decodeEnvelope(t, rr, &got))
			require.Len(t, got, 1)
			assert.Equal(t, *summary, got[0])
		})
	}
}

func TestStatsController_EventStatsRequiresIdentity(t *testing.T) {
	svc := &fakeStatsService{}
	rr := httptest.NewRecorder()
	NewStatsController(testLogger, svc).EventStats(rr, newRequest(t, http.MethodGet, "/events/stats", nil, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

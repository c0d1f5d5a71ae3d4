package controllers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

// EventStatsSuccessResponse is the success response envelope for GET /events/stats (200).
type EventStatsSuccessResponse struct {
	Data  []*domain.EventStatSummary `json:"data"`
	Error *helpers.APIError          `json:"error"`
}

type StatsController struct {
	Logger  *slog.Logger
	Service domain.StatsService
}

func NewStatsController(logger *slog.Logger, svc domain.StatsService) *StatsController {
	return &StatsController{Logger: logger, Service: svc}
}

// EventStats godoc
// @Summary Event registration statistics
// @Description Per-event attendee, check-in, revenue and ticket totals, ordered by total attendees. Omit event_id for every event with registrations the caller manages (all events for admins).
// @Tags stats
// @Produce json
// @Security BearerAuth
// @Param event_id query string false "Event ID (UUID)"
// @Success 200 {object} controllers.EventStatsSuccessResponse "data contains the summaries"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: event_not_found"
// @Router /events/stats [get]
func (c *StatsController) EventStats(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("event_id")
	if eventID != "" {
		if _, err := uuid.Parse(eventID); err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "event_id must be a UUID")
			return
		}
	}
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	stats, err := c.Service.EventStats(r.Context(), actor, eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, stats)
}

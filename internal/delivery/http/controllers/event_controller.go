package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

// TicketTierRequest is one tier in a CreateEventRequest.
type TicketTierRequest struct {
	Name       string     `json:"name" validate:"required,max=100"`
	Price      float64    `json:"price" validate:"gte=0"`
	Capacity   int        `json:"capacity" validate:"gte=0"`
	SalesStart *time.Time `json:"sales_start"`
	SalesEnd   *time.Time `json:"sales_end"`
}

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Title       string              `json:"title" validate:"required,max=200"`
	Description *string             `json:"description"`
	Date        time.Time           `json:"date" validate:"required"`
	Tags        []string            `json:"tags" validate:"max=20"`
	Tiers       []TicketTierRequest `json:"tiers" validate:"required,min=1,dive"`
}

// Validate implements Validator.
func (c CreateEventRequest) Validate() []string {
	return helpers.ValidateStruct(c)
}

func (c CreateEventRequest) toInput() domain.CreateEventInput {
	tiers := make([]domain.TicketTier, len(c.Tiers))
	for i, t := range c.Tiers {
		tiers[i] = domain.TicketTier{
			Name:       t.Name,
			Price:      t.Price,
			Capacity:   t.Capacity,
			SalesStart: t.SalesStart,
			SalesEnd:   t.SalesEnd,
		}
	}
	return domain.CreateEventInput{
		Title:       c.Title,
		Description: c.Description,
		Date:        c.Date,
		Tags:        c.Tags,
		Tiers:       tiers,
	}
}

// EventSuccessResponse is the success response envelope for a single event.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListEventsResponse is the data payload for GET /events.
type ListEventsResponse struct {
	Items      []*domain.Event        `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListEventsSuccessResponse is the success response envelope for GET /events (200).
type ListEventsSuccessResponse struct {
	Data  ListEventsResponse `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateEvent godoc
// @Summary Create a new event
// @Description Create an event with its ticket tiers. Each tier starts with remaining equal to its capacity. The authenticated organizer becomes the event organizer.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request, invalid_input"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	event, err := c.Service.CreateEvent(r.Context(), actor, req.toInput())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// GetEvent godoc
// @Summary Get an event by ID
// @Description Returns the event with its ticket tiers and their remaining counts.
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: event_not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	event, err := c.Service.GetEvent(r.Context(), eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// ListEvents godoc
// @Summary List events
// @Description Returns events ordered by date. Supports page and limit (alias page_size) query parameters.
// @Tags events
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListEventsSuccessResponse "data contains items and pagination"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	params := helpers.ParsePagination(r)
	events, total, err := c.Service.ListEvents(r.Context(), params)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ListEventsResponse{
		Items:      events,
		Pagination: helpers.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

package controllers

import (
	"log/slog"
	"net/http"

	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

// RegisterRequest is the request body for POST /registrations.
// attendee_id defaults to the caller; organizers and admins may register someone else.
type RegisterRequest struct {
	AttendeeID    string   `json:"attendee_id" validate:"omitempty,uuid"`
	EventID       string   `json:"event_id" validate:"required,uuid"`
	TierID        string   `json:"ticket_tier_id" validate:"required,uuid"`
	Quantity      int      `json:"quantity" validate:"gte=0,lte=100"`
	PaymentAmount *float64 `json:"payment_amount" validate:"omitempty,gte=0"`
	PaymentStatus string   `json:"payment_status" validate:"omitempty,oneof=pending completed failed refunded"`
	TransactionID string   `json:"transaction_id" validate:"max=200"`
}

// Validate implements Validator.
func (req RegisterRequest) Validate() []string {
	return helpers.ValidateStruct(req)
}

func (req RegisterRequest) toInput() domain.RegisterInput {
	return domain.RegisterInput{
		AttendeeID:    req.AttendeeID,
		EventID:       req.EventID,
		TierID:        req.TierID,
		Quantity:      req.Quantity,
		PaymentAmount: req.PaymentAmount,
		PaymentStatus: domain.PaymentStatus(req.PaymentStatus),
		TransactionID: req.TransactionID,
	}
}

// UpdateStatusRequest is the request body for PUT /registrations/{registrationID}.
type UpdateStatusRequest struct {
	Status   string `json:"status" validate:"required,oneof=pending confirmed waitlisted checked_in cancelled"`
	Location string `json:"location" validate:"max=200"`
}

// Validate implements Validator.
func (req UpdateStatusRequest) Validate() []string {
	return helpers.ValidateStruct(req)
}

// RegistrationSuccessResponse is the success response envelope for a single registration.
type RegistrationSuccessResponse struct {
	Data  *domain.Registration `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// ListMyRegistrationsSuccessResponse is the success response envelope for GET /registrations/me (200).
type ListMyRegistrationsSuccessResponse struct {
	Data  []*domain.RegistrationWithEvent `json:"data"`
	Error *helpers.APIError               `json:"error"`
}

// ListEventRegistrationsResponse is the data payload for GET /events/{eventID}/registrations.
type ListEventRegistrationsResponse struct {
	Items      []*domain.Registration `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListEventRegistrationsSuccessResponse is the success response envelope for GET /events/{eventID}/registrations (200).
type ListEventRegistrationsSuccessResponse struct {
	Data  ListEventRegistrationsResponse `json:"data"`
	Error *helpers.APIError              `json:"error"`
}

type RegistrationController struct {
	Logger  *slog.Logger
	Service domain.RegistrationService
}

func NewRegistrationController(logger *slog.Logger, svc domain.RegistrationService) *RegistrationController {
	return &RegistrationController{
		Logger:  logger,
		Service: svc,
	}
}

// Register godoc
// @Summary Register for an event
// @Description Reserves quantity tickets in a tier and records the registration in one transaction. Quantity defaults to 1. Payment amount defaults to tier price times quantity.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body RegisterRequest true "Registration data"
// @Success 201 {object} controllers.RegistrationSuccessResponse "data contains the registration"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request, invalid_input"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: event_not_found, tier_not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: already_registered, duplicate_active, insufficient_capacity"
// @Failure 422 {object} helpers.APIResponse "error.code: sales_window_closed"
// @Failure 503 {object} helpers.APIResponse "error.code: storage_timeout, transaction_aborted"
// @Router /registrations [post]
func (c *RegistrationController) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	reg, err := c.Service.Register(r.Context(), actor, req.toInput())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, reg)
}

// GetRegistration godoc
// @Summary Get a registration
// @Description Returns a registration with its check-in history. Attendees see their own; organizers of the event and admins see any.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID (UUID)"
// @Success 200 {object} controllers.RegistrationSuccessResponse "data contains the registration"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: registration_not_found"
// @Router /registrations/{registrationID} [get]
func (c *RegistrationController) GetRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "registrationID")
	if !ok {
		return
	}
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	reg, err := c.Service.Get(r.Context(), actor, id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// UpdateStatus godoc
// @Summary Change a registration's status
// @Description Applies a status transition. checked_in appends a check-in entry; cancelled releases the reserved quantity.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID (UUID)"
// @Param body body UpdateStatusRequest true "Target status"
// @Success 200 {object} controllers.RegistrationSuccessResponse "data contains the updated registration"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: registration_not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: invalid_transition, already_cancelled"
// @Router /registrations/{registrationID} [put]
func (c *RegistrationController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "registrationID")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	reg, err := c.Service.UpdateStatus(r.Context(), actor, id, domain.RegistrationStatus(req.Status), domain.StatusContext{Location: req.Location})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// Cancel godoc
// @Summary Cancel a registration
// @Description Marks the registration cancelled and returns its quantity to the tier. A second cancel is rejected.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID (UUID)"
// @Success 200 {object} controllers.RegistrationSuccessResponse "data contains the cancelled registration"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: registration_not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: already_cancelled"
// @Router /registrations/{registrationID} [delete]
func (c *RegistrationController) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "registrationID")
	if !ok {
		return
	}
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	reg, err := c.Service.Cancel(r.Context(), actor, id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// ListMyRegistrations godoc
// @Summary List my registrations
// @Description Returns the caller's registrations, newest first, each with its event.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ListMyRegistrationsSuccessResponse "data contains registrations with events"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /registrations/me [get]
func (c *RegistrationController) ListMyRegistrations(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	list, err := c.Service.ListMine(r.Context(), actor)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, list)
}

// ListEventRegistrations godoc
// @Summary List an event's registrations
// @Description Organizer of the event or admin only. Optional status filter; paginated with page and limit.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param status query string false "Filter by status"
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListEventRegistrationsSuccessResponse "data contains items and pagination"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request, invalid_input"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: event_not_found"
// @Router /events/{eventID}/registrations [get]
func (c *RegistrationController) ListEventRegistrations(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	params := helpers.ParsePagination(r)
	filter := domain.RegistrationFilter{Status: domain.RegistrationStatus(r.URL.Query().Get("status"))}
	regs, total, err := c.Service.ListByEvent(r.Context(), actor, eventID, filter, params)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ListEventRegistrationsResponse{
		Items:      regs,
		Pagination: helpers.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

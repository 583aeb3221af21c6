package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"gatherly/internal/delivery/http/helpers"
	"gatherly/internal/delivery/http/middleware"
	"gatherly/internal/domain"
)

type InvitationController struct {
	Logger  *slog.Logger
	Service domain.InvitationService
}

func NewInvitationController(logger *slog.Logger, svc domain.InvitationService) *InvitationController {
	return &InvitationController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateInvitationsRequest is the request body for POST /events/{eventID}/invitations.
// Either email (single) or emails (batch) must be set.
type CreateInvitationsRequest struct {
	Email    string            `json:"email"`
	Emails   []string          `json:"emails"`
	Metadata map[string]string `json:"metadata"`
}

// Validate implements Validator.
func (c CreateInvitationsRequest) Validate() []string {
	if strings.TrimSpace(c.Email) == "" && len(c.Emails) == 0 {
		return []string{"email or emails is required"}
	}
	return nil
}

// CreateInvitationSuccessResponse is the single-invite success envelope for POST /events/{eventID}/invitations.
type CreateInvitationSuccessResponse struct {
	Data  *domain.CreateInvitationResult `json:"data"`
	Error *helpers.APIError              `json:"error"`
}

// CreateInvitationsBatchSuccessResponse is the batch success envelope for POST /events/{eventID}/invitations (200).
type CreateInvitationsBatchSuccessResponse struct {
	Data  *domain.BatchInvitationResult `json:"data"`
	Error *helpers.APIError             `json:"error"`
}

// CreateInvitations godoc
// @Summary Invite one or more emails to an event
// @Description With email, creates a single invitation: 201 when new, 200 with is_new=false when the pair already exists. With emails, processes each address independently and returns created, duplicates, and failed buckets. Invitation emails are dispatched with tracking links. Only the organizer can invite. Requires authentication.
// @Tags invitations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body CreateInvitationsRequest true "Single email or batch of emails"
// @Success 200 {object} controllers.CreateInvitationsBatchSuccessResponse "batch result, or existing single invitation"
// @Success 201 {object} controllers.CreateInvitationSuccessResponse "data contains the new invitation"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (invalid email)"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not organizer)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/invitations [post]
func (c *InvitationController) CreateInvitations(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req CreateInvitationsRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}

	if len(req.Emails) > 0 {
		result, err := c.Service.CreateBatch(r.Context(), eventID, req.Emails, callerID)
		if err != nil {
			c.writeError(w, r, err)
			return
		}
		helpers.WriteJSONSuccess(w, http.StatusOK, result)
		return
	}

	result, err := c.Service.Create(r.Context(), domain.CreateInvitationInput{
		EventID:  eventID,
		Email:    req.Email,
		Metadata: req.Metadata,
	}, callerID)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if result.IsNew {
		status = http.StatusCreated
	}
	helpers.WriteJSONSuccess(w, status, result)
}

// ListInvitationsResponse is the data payload for GET /events/{eventID}/invitations (200).
type ListInvitationsResponse struct {
	Items      []*domain.Invitation   `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListInvitationsSuccessResponse is the success response envelope for GET /events/{eventID}/invitations (200).
type ListInvitationsSuccessResponse struct {
	Data  ListInvitationsResponse `json:"data"`
	Error *helpers.APIError       `json:"error"`
}

// ListInvitations godoc
// @Summary List invitations for an event
// @Description Returns a paginated list of the event's invitations. Optional status filter; use page and page_size query params. Requires authentication.
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param status query string false "Filter by status (pending, sent, opened, clicked, accepted, declined, bounced)"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListInvitationsSuccessResponse "data contains items and pagination"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (unknown status)"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/invitations [get]
func (c *InvitationController) ListInvitations(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	if _, ok := middleware.UserIDFromContext(r.Context()); !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}

	var filter domain.InvitationFilter
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.InvitationStatus(s)
		filter.Status = &status
	}
	params := helpers.ParsePagination(r)
	filter.Limit = params.PageSize
	filter.Offset = params.Offset()

	items, total, err := c.Service.ListByEvent(r.Context(), eventID, filter)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []*domain.Invitation{}
	}
	meta := helpers.NewPaginationMeta(params.Page, params.PageSize, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListInvitationsResponse{Items: items, Pagination: meta})
}

// GetInvitationSuccessResponse is the success response envelope for GET /invitations/{invitationID} (200).
type GetInvitationSuccessResponse struct {
	Data  *domain.Invitation `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// GetInvitation godoc
// @Summary Get an invitation by ID
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param invitationID path string true "Invitation ID (UUID)"
// @Success 200 {object} controllers.GetInvitationSuccessResponse "data contains the invitation"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitations/{invitationID} [get]
func (c *InvitationController) GetInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID := r.PathValue("invitationID")
	if invitationID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing invitationID")
		return
	}
	if _, ok := middleware.UserIDFromContext(r.Context()); !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	inv, err := c.Service.GetByID(r.Context(), invitationID)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, inv)
}

// UpdateInvitationStatusRequest is the request body for PATCH /invitations/{invitationID}/status.
type UpdateInvitationStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// Validate implements Validator.
func (u UpdateInvitationStatusRequest) Validate() []string {
	if strings.TrimSpace(u.Status) == "" {
		return []string{"status is required"}
	}
	return nil
}

// UpdateInvitationStatusSuccessResponse is the success response envelope for PATCH /invitations/{invitationID}/status (200).
type UpdateInvitationStatusSuccessResponse struct {
	Data  *domain.Invitation `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// UpdateInvitationStatus godoc
// @Summary Update an invitation's status
// @Description Applies a lifecycle transition (e.g. accepted, declined, bounced). Transitions outside the allowed graph are rejected with 409 and nothing is written. An optional reason is recorded in metadata. Requires authentication.
// @Tags invitations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param invitationID path string true "Invitation ID (UUID)"
// @Param body body UpdateInvitationStatusRequest true "Target status and optional reason"
// @Success 200 {object} controllers.UpdateInvitationStatusSuccessResponse "data contains the updated invitation"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (unknown status)"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (invalid transition)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitations/{invitationID}/status [patch]
func (c *InvitationController) UpdateInvitationStatus(w http.ResponseWriter, r *http.Request) {
	invitationID := r.PathValue("invitationID")
	if invitationID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing invitationID")
		return
	}
	var req UpdateInvitationStatusRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	if _, ok := middleware.UserIDFromContext(r.Context()); !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	inv, err := c.Service.UpdateStatus(r.Context(), invitationID, domain.InvitationStatus(req.Status), domain.UpdateStatusOptions{Reason: req.Reason})
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, inv)
}

// DeleteInvitationResponse is the data payload for DELETE /invitations/{invitationID} (200).
type DeleteInvitationResponse struct {
	Removed bool `json:"removed"`
}

// DeleteInvitationSuccessResponse is the success response envelope for DELETE /invitations/{invitationID} (200).
type DeleteInvitationSuccessResponse struct {
	Data  DeleteInvitationResponse `json:"data"`
	Error *helpers.APIError        `json:"error"`
}

// DeleteInvitation godoc
// @Summary Delete an invitation
// @Description Only pending or bounced invitations are removed; deleting one that has progressed is a no-op with removed=false, preserving tracking history. Requires authentication.
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param invitationID path string true "Invitation ID (UUID)"
// @Success 200 {object} controllers.DeleteInvitationSuccessResponse "data reports whether a row was removed"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitations/{invitationID} [delete]
func (c *InvitationController) DeleteInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID := r.PathValue("invitationID")
	if invitationID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing invitationID")
		return
	}
	if _, ok := middleware.UserIDFromContext(r.Context()); !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	removed, err := c.Service.Remove(r.Context(), invitationID)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteInvitationResponse{Removed: removed})
}

// InvitationStatsResponse is the data payload for GET /events/{eventID}/invitations/stats (200).
type InvitationStatsResponse struct {
	Stats  *domain.InvitationStats         `json:"stats"`
	Counts map[domain.InvitationStatus]int `json:"counts"`
}

// InvitationStatsSuccessResponse is the success response envelope for GET /events/{eventID}/invitations/stats (200).
type InvitationStatsSuccessResponse struct {
	Data  InvitationStatsResponse `json:"data"`
	Error *helpers.APIError       `json:"error"`
}

// GetInvitationStats godoc
// @Summary Invitation statistics for an event
// @Description Returns the funnel aggregate (totals and open/click/accept rates as percentages) plus a per-status count map covering all seven statuses, zero counts included. Requires authentication.
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.InvitationStatsSuccessResponse "data contains stats and counts"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/invitations/stats [get]
func (c *InvitationController) GetInvitationStats(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	if _, ok := middleware.UserIDFromContext(r.Context()); !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	stats, err := c.Service.GetStats(r.Context(), eventID)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	counts, err := c.Service.GetCountsByStatus(r.Context(), eventID)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, InvitationStatsResponse{Stats: stats, Counts: counts})
}

func (c *InvitationController) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "not found")
	case errors.Is(err, domain.ErrForbidden):
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "forbidden")
	case errors.Is(err, domain.ErrInvalidEmail), errors.Is(err, domain.ErrInvalidInput):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
	}
}

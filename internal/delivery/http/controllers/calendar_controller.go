package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"gatherly/internal/delivery/http/helpers"
	"gatherly/internal/delivery/http/middleware"
	"gatherly/internal/domain"
)

// CreateCalendarRequest is the request body for POST /calendars.
type CreateCalendarRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Color       string `json:"color"`
	CoverImage  string `json:"cover_image"`
	IsPrivate   bool   `json:"is_private"`
	IsGlobal    bool   `json:"is_global"`
}

// Validate implements Validator.
func (c CreateCalendarRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	if !domain.IsValidSlug(c.Slug) {
		errs = append(errs, "slug must be lowercase letters, digits, and hyphens")
	}
	return errs
}

// CreateCalendarSuccessResponse is the success response envelope for POST /calendars (201).
type CreateCalendarSuccessResponse struct {
	Data  *domain.Calendar  `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type CalendarController struct {
	Logger  *slog.Logger
	Service domain.CalendarService
}

func NewCalendarController(logger *slog.Logger, svc domain.CalendarService) *CalendarController {
	return &CalendarController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateCalendar godoc
// @Summary Create a calendar
// @Description Create a calendar with a unique URL-safe slug. The authenticated user becomes the owner. Returns 409 when the slug is taken.
// @Tags calendars
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param calendar body CreateCalendarRequest true "Calendar data"
// @Success 201 {object} controllers.CreateCalendarSuccessResponse "data contains the created calendar"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (slug taken)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /calendars [post]
func (c *CalendarController) CreateCalendar(w http.ResponseWriter, r *http.Request) {
	var req CreateCalendarRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	cal := &domain.Calendar{
		OwnerID:     userID,
		Name:        strings.TrimSpace(req.Name),
		Slug:        req.Slug,
		Description: req.Description,
		Color:       req.Color,
		CoverImage:  req.CoverImage,
		IsPrivate:   req.IsPrivate,
		IsGlobal:    req.IsGlobal,
	}
	if err := c.Service.CreateCalendar(r.Context(), cal); err != nil {
		if errors.Is(err, domain.ErrSlugTaken) {
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "slug is already taken")
			return
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, cal)
}

// GetCalendarSuccessResponse is the success response envelope for calendar reads (200).
type GetCalendarSuccessResponse struct {
	Data  *domain.Calendar  `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// GetCalendarByID godoc
// @Summary Get a calendar by ID
// @Tags calendars
// @Produce json
// @Param calendarID path string true "Calendar ID (UUID)"
// @Success 200 {object} controllers.GetCalendarSuccessResponse "data contains the calendar"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /calendars/{calendarID} [get]
func (c *CalendarController) GetCalendarByID(w http.ResponseWriter, r *http.Request) {
	calendarID := r.PathValue("calendarID")
	if calendarID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing calendarID")
		return
	}
	cal, meta, err := c.Service.GetCalendarByID(r.Context(), calendarID)
	if err != nil {
		c.writeReadError(w, r, err, "calendar not found")
		return
	}
	setSourceHeader(w, meta)
	helpers.WriteJSONSuccess(w, http.StatusOK, cal)
}

// GetCalendarBySlug godoc
// @Summary Get a calendar by slug
// @Tags calendars
// @Produce json
// @Param slug path string true "Calendar slug"
// @Success 200 {object} controllers.GetCalendarSuccessResponse "data contains the calendar"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /calendars/slug/{slug} [get]
func (c *CalendarController) GetCalendarBySlug(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing slug")
		return
	}
	cal, meta, err := c.Service.GetCalendarBySlug(r.Context(), slug)
	if err != nil {
		c.writeReadError(w, r, err, "calendar not found")
		return
	}
	setSourceHeader(w, meta)
	helpers.WriteJSONSuccess(w, http.StatusOK, cal)
}

// SlugAvailabilityResponse is the data payload for GET /calendars/slug/{slug}/availability (200).
type SlugAvailabilityResponse struct {
	Slug      string `json:"slug"`
	Available bool   `json:"available"`
}

// SlugAvailabilitySuccessResponse is the success response envelope for slug availability (200).
type SlugAvailabilitySuccessResponse struct {
	Data  SlugAvailabilityResponse `json:"data"`
	Error *helpers.APIError        `json:"error"`
}

// CheckSlugAvailability godoc
// @Summary Check whether a calendar slug is free
// @Description Advisory availability check; the unique constraint in the store is the real arbiter at create time. A malformed slug is reported as unavailable.
// @Tags calendars
// @Produce json
// @Param slug path string true "Calendar slug"
// @Success 200 {object} controllers.SlugAvailabilitySuccessResponse "data contains slug and available"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /calendars/slug/{slug}/availability [get]
func (c *CalendarController) CheckSlugAvailability(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing slug")
		return
	}
	available, err := c.Service.IsSlugAvailable(r.Context(), slug)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			helpers.WriteJSONError(w, http.StatusServiceUnavailable, helpers.ErrCodeInternalError, "no data source available")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, SlugAvailabilityResponse{Slug: slug, Available: available})
}

// ListCalendarsSuccessResponse is the success response envelope for calendar lists (200).
type ListCalendarsSuccessResponse struct {
	Data  []*domain.Calendar `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// ListCalendars godoc
// @Summary List calendars
// @Description With owner_id, lists that owner's calendars. Otherwise returns popular public calendars ordered by subscriber count; limit defaults to 10, max 50.
// @Tags calendars
// @Produce json
// @Param owner_id query string false "Filter by owner"
// @Param limit query int false "Max popular calendars to return (default 10, max 50)"
// @Success 200 {object} controllers.ListCalendarsSuccessResponse "data is an array of calendars"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /calendars [get]
func (c *CalendarController) ListCalendars(w http.ResponseWriter, r *http.Request) {
	var (
		cals []*domain.Calendar
		meta domain.ReadMeta
		err  error
	)
	if ownerID := r.URL.Query().Get("owner_id"); ownerID != "" {
		cals, meta, err = c.Service.ListCalendarsByOwner(r.Context(), ownerID)
	} else {
		limit := 10
		if s := r.URL.Query().Get("limit"); s != "" {
			if v, convErr := strconv.Atoi(s); convErr == nil && v >= 1 {
				limit = v
				if limit > 50 {
					limit = 50
				}
			}
		}
		cals, meta, err = c.Service.ListPopularCalendars(r.Context(), limit)
	}
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			helpers.WriteJSONError(w, http.StatusServiceUnavailable, helpers.ErrCodeInternalError, "no data source available")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	if cals == nil {
		cals = []*domain.Calendar{}
	}
	setSourceHeader(w, meta)
	helpers.WriteJSONSuccess(w, http.StatusOK, cals)
}

// UpdateCalendarSuccessResponse is the success response envelope for PATCH /calendars/{calendarID} (200).
type UpdateCalendarSuccessResponse struct {
	Data  *domain.Calendar  `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// UpdateCalendar godoc
// @Summary Update calendar details
// @Description Partially updates a calendar. Slug and counters are not updatable. Only the owner can update. Requires authentication.
// @Tags calendars
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param calendarID path string true "Calendar ID (UUID)"
// @Param body body domain.CalendarUpdate true "Fields to update (all optional)"
// @Success 200 {object} controllers.UpdateCalendarSuccessResponse "data contains the updated calendar"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not owner)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /calendars/{calendarID} [patch]
func (c *CalendarController) UpdateCalendar(w http.ResponseWriter, r *http.Request) {
	calendarID := r.PathValue("calendarID")
	if calendarID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing calendarID")
		return
	}
	var update domain.CalendarUpdate
	if !helpers.DecodeAndValidate(w, r, &update) {
		return
	}
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	cal, err := c.Service.UpdateCalendar(r.Context(), calendarID, callerID, &update)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "calendar not found")
			return
		}
		if errors.Is(err, domain.ErrForbidden) {
			helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "forbidden")
			return
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, cal)
}

// DeleteCalendarSuccessResponse is the success response envelope for DELETE /calendars/{calendarID} (200).
type DeleteCalendarSuccessResponse struct {
	Data  DeleteEventResponse `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// DeleteCalendar godoc
// @Summary Delete a calendar
// @Description Deletes a calendar. Events referencing it keep existing with the reference cleared. Only the owner can delete. Requires authentication.
// @Tags calendars
// @Produce json
// @Security BearerAuth
// @Param calendarID path string true "Calendar ID (UUID)"
// @Success 200 {object} controllers.DeleteCalendarSuccessResponse "data contains status"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not owner)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /calendars/{calendarID} [delete]
func (c *CalendarController) DeleteCalendar(w http.ResponseWriter, r *http.Request) {
	calendarID := r.PathValue("calendarID")
	if calendarID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing calendarID")
		return
	}
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if err := c.Service.DeleteCalendar(r.Context(), calendarID, callerID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "calendar not found")
			return
		}
		if errors.Is(err, domain.ErrForbidden) {
			helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "forbidden")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteEventResponse{Status: "deleted"})
}

// SubscribeRequest is the request body for POST /calendars/{calendarID}/subscriptions.
type SubscribeRequest struct {
	NotifyNewEvents bool `json:"notify_new_events"`
	NotifyReminders bool `json:"notify_reminders"`
}

// Validate implements Validator.
func (s SubscribeRequest) Validate() []string { return nil }

// SubscribeSuccessResponse is the success response envelope for POST /calendars/{calendarID}/subscriptions (200).
type SubscribeSuccessResponse struct {
	Data  *domain.CalendarSubscription `json:"data"`
	Error *helpers.APIError            `json:"error"`
}

// Subscribe godoc
// @Summary Subscribe to a calendar
// @Description Idempotent: subscribing twice returns the existing subscription. Subscriber counters are maintained by the store. Requires authentication.
// @Tags calendars
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param calendarID path string true "Calendar ID (UUID)"
// @Param body body SubscribeRequest true "Notification preferences"
// @Success 200 {object} controllers.SubscribeSuccessResponse "data contains the subscription"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /calendars/{calendarID}/subscriptions [post]
func (c *CalendarController) Subscribe(w http.ResponseWriter, r *http.Request) {
	calendarID := r.PathValue("calendarID")
	if calendarID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing calendarID")
		return
	}
	var req SubscribeRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	sub, err := c.Service.Subscribe(r.Context(), calendarID, userID, req.NotifyNewEvents, req.NotifyReminders)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "calendar not found")
			return
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, sub)
}

// Unsubscribe godoc
// @Summary Unsubscribe from a calendar
// @Description Idempotent: unsubscribing when not subscribed is not an error. Requires authentication.
// @Tags calendars
// @Produce json
// @Security BearerAuth
// @Param calendarID path string true "Calendar ID (UUID)"
// @Success 200 {object} controllers.DeleteCalendarSuccessResponse "data contains status"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /calendars/{calendarID}/subscriptions [delete]
func (c *CalendarController) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	calendarID := r.PathValue("calendarID")
	if calendarID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing calendarID")
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if err := c.Service.Unsubscribe(r.Context(), calendarID, userID); err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteEventResponse{Status: "unsubscribed"})
}

// ListSubscriptionsSuccessResponse is the success response envelope for GET /subscriptions (200).
type ListSubscriptionsSuccessResponse struct {
	Data  []*domain.CalendarSubscription `json:"data"`
	Error *helpers.APIError              `json:"error"`
}

// ListMySubscriptions godoc
// @Summary List the current user's calendar subscriptions
// @Tags calendars
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ListSubscriptionsSuccessResponse "data is an array of subscriptions"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /subscriptions [get]
func (c *CalendarController) ListMySubscriptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	subs, err := c.Service.ListSubscriptions(r.Context(), userID)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	if subs == nil {
		subs = []*domain.CalendarSubscription{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, subs)
}

func (c *CalendarController) writeReadError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	if errors.Is(err, domain.ErrNotFound) {
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, notFoundMsg)
		return
	}
	if errors.Is(err, domain.ErrStoreUnavailable) {
		helpers.WriteJSONError(w, http.StatusServiceUnavailable, helpers.ErrCodeInternalError, "no data source available")
		return
	}
	c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
	helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
}

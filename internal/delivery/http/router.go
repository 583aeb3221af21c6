package http

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"gatherly/internal/delivery/http/controllers"
	"gatherly/internal/delivery/http/helpers"
)

// NewRouter initializes the HTTP router with all application routes.
// auth is the RequireAuth wrapper; tracking and public read routes bypass it.
func NewRouter(
	eventController *controllers.EventController,
	calendarController *controllers.CalendarController,
	invitationController *controllers.InvitationController,
	trackingController *controllers.TrackingController,
	auth func(http.HandlerFunc) http.HandlerFunc,
) *http.ServeMux {
	mux := http.NewServeMux()

	// Events
	mux.HandleFunc("POST /events", auth(eventController.CreateEvent))
	mux.HandleFunc("GET /events", eventController.ListEvents)
	mux.HandleFunc("GET /events/{eventID}", eventController.GetEventByID)
	mux.HandleFunc("PATCH /events/{eventID}", auth(eventController.UpdateEvent))
	mux.HandleFunc("DELETE /events/{eventID}", auth(eventController.DeleteEvent))

	// Invitations
	mux.HandleFunc("POST /events/{eventID}/invitations", auth(invitationController.CreateInvitations))
	mux.HandleFunc("GET /events/{eventID}/invitations", auth(invitationController.ListInvitations))
	mux.HandleFunc("GET /events/{eventID}/invitations/stats", auth(invitationController.GetInvitationStats))
	mux.HandleFunc("GET /invitations/{invitationID}", auth(invitationController.GetInvitation))
	mux.HandleFunc("PATCH /invitations/{invitationID}/status", auth(invitationController.UpdateInvitationStatus))
	mux.HandleFunc("DELETE /invitations/{invitationID}", auth(invitationController.DeleteInvitation))

	// Calendars
	mux.HandleFunc("POST /calendars", auth(calendarController.CreateCalendar))
	mux.HandleFunc("GET /calendars", calendarController.ListCalendars)
	mux.HandleFunc("GET /calendars/{calendarID}", calendarController.GetCalendarByID)
	mux.HandleFunc("PATCH /calendars/{calendarID}", auth(calendarController.UpdateCalendar))
	mux.HandleFunc("DELETE /calendars/{calendarID}", auth(calendarController.DeleteCalendar))
	mux.HandleFunc("GET /calendars/slug/{slug}", calendarController.GetCalendarBySlug)
	mux.HandleFunc("GET /calendars/slug/{slug}/availability", calendarController.CheckSlugAvailability)

	// Subscriptions
	mux.HandleFunc("POST /calendars/{calendarID}/subscriptions", auth(calendarController.Subscribe))
	mux.HandleFunc("DELETE /calendars/{calendarID}/subscriptions", auth(calendarController.Unsubscribe))
	mux.HandleFunc("GET /subscriptions", auth(calendarController.ListMySubscriptions))

	// Email tracking. Unauthenticated: these URLs land in recipient inboxes.
	mux.HandleFunc("GET /t/o/{token}", trackingController.TrackOpen)
	mux.HandleFunc("GET /t/c/{token}", trackingController.TrackClick)

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

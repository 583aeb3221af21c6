package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"gatherly/internal/domain"
)

// trackingPixel is a 1x1 transparent GIF served by the open-tracking endpoint.
var trackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// TrackingController serves the unauthenticated endpoints embedded in
// invitation emails: the open pixel and the click-through redirect. Both are
// idempotent and never error toward the email client; a bad token still gets
// a pixel or a redirect so broken links don't leak internals to recipients.
type TrackingController struct {
	Logger      *slog.Logger
	Service     domain.InvitationService
	RedirectURL string
}

func NewTrackingController(logger *slog.Logger, svc domain.InvitationService, redirectURL string) *TrackingController {
	return &TrackingController{
		Logger:      logger,
		Service:     svc,
		RedirectURL: redirectURL,
	}
}

// TrackOpen godoc
// @Summary Record an email open
// @Description Records the first open for the invitation identified by the tracking token and returns a 1x1 transparent GIF. Repeats and unknown tokens still get the pixel.
// @Tags tracking
// @Produce image/gif
// @Param token path string true "Tracking token"
// @Success 200 {string} string "GIF bytes"
// @Router /t/o/{token} [get]
func (c *TrackingController) TrackOpen(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token != "" {
		if _, err := c.Service.RecordOpen(r.Context(), token); err != nil && !errors.Is(err, domain.ErrNotFound) {
			c.Logger.WarnContext(r.Context(), "record open failed", "err", err)
		}
	}
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(trackingPixel)
}

// TrackClick godoc
// @Summary Record a link click
// @Description Records the first click for the invitation identified by the tracking token (an open is implied and backfilled) and redirects to the event page. Repeats and unknown tokens still redirect.
// @Tags tracking
// @Param token path string true "Tracking token"
// @Success 302 {string} string "redirect"
// @Router /t/c/{token} [get]
func (c *TrackingController) TrackClick(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	target := c.RedirectURL
	if token != "" {
		result, err := c.Service.RecordClick(r.Context(), token)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				c.Logger.WarnContext(r.Context(), "record click failed", "err", err)
			}
		} else if result.Invitation != nil {
			target = c.RedirectURL + "/events/" + result.Invitation.EventID
		}
	}
	http.Redirect(w, r, target, http.StatusFound)
}

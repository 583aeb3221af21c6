package controllers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatherly/internal/domain"
)

func TestTrackingController_TrackOpen(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeInvitationService
	}{
		{
			name: "first open",
			fake: &fakeInvitationService{
				recordOpenResult: &domain.TrackingResult{
					Invitation: &domain.Invitation{ID: "inv-1", EventID: "ev-1", Status: domain.InvitationOpened},
				},
			},
		},
		{
			name: "repeat open",
			fake: &fakeInvitationService{
				recordOpenResult: &domain.TrackingResult{
					Invitation: &domain.Invitation{ID: "inv-1", EventID: "ev-1", Status: domain.InvitationOpened},
					Already:    true,
				},
			},
		},
		{
			name: "unknown token still gets the pixel",
			fake: &fakeInvitationService{recordOpenErr: domain.ErrNotFound},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewTrackingController(testLogger, tt.fake, "https://gatherly.example.com")
			req := httptest.NewRequest(http.MethodGet, "http://test/t/o/tok-1", nil)
			req.SetPathValue("token", "tok-1")
			rr := httptest.NewRecorder()

			ctrl.TrackOpen(rr, req)

			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, "image/gif", rr.Header().Get("Content-Type"))
			assert.Contains(t, rr.Header().Get("Cache-Control"), "no-store")
			assert.True(t, bytes.Equal(trackingPixel, rr.Body.Bytes()), "body is the 1x1 pixel")
			assert.Equal(t, "tok-1", tt.fake.lastOpenToken)
		})
	}
}

func TestTrackingController_TrackClick(t *testing.T) {
	tests := []struct {
		name         string
		fake         *fakeInvitationService
		wantLocation string
	}{
		{
			name: "known token redirects to the event page",
			fake: &fakeInvitationService{
				recordClickResult: &domain.TrackingResult{
					Invitation: &domain.Invitation{ID: "inv-1", EventID: "ev-42", Status: domain.InvitationClicked},
				},
			},
			wantLocation: "https://gatherly.example.com/events/ev-42",
		},
		{
			name:         "unknown token falls back to the site root",
			fake:         &fakeInvitationService{recordClickErr: domain.ErrNotFound},
			wantLocation: "https://gatherly.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewTrackingController(testLogger, tt.fake, "https://gatherly.example.com")
			req := httptest.NewRequest(http.MethodGet, "http://test/t/c/tok-1", nil)
			req.SetPathValue("token", "tok-1")
			rr := httptest.NewRecorder()

			ctrl.TrackClick(rr, req)

			require.Equal(t, http.StatusFound, rr.Code)
			assert.Equal(t, tt.wantLocation, rr.Header().Get("Location"))
			assert.Equal(t, "tok-1", tt.fake.lastClickToken)
		})
	}
}

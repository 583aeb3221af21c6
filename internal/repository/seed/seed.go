// Package seed provides the built-in fallback dataset served when neither
// backing store is reachable, so the UI renders something instead of a hard
// error for missing backing configuration.
package seed

import (
	"time"

	"gatherly/internal/domain"
)

// Provider is an explicitly-scoped, immutable seed dataset. It is injected
// into the dual-write repositories at construction; nothing mutates it after
// New returns copies on every call, so tests and callers cannot interfere
// with each other through shared slices.
type Provider struct {
	events    []*domain.Event
	calendars []*domain.Calendar
}

// New returns a provider with a small demo dataset.
func New() *Provider {
	date := time.Date(2026, 9, 12, 18, 0, 0, 0, time.UTC)
	created := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	calendars := []*domain.Calendar{
		{
			ID:              "5f8d2c0a-9c3b-4b6e-8a1d-0e4f6b2a7c91",
			OwnerID:         "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d",
			Name:            "City Tech Meetups",
			Slug:            "city-tech-meetups",
			Description:     "Monthly technology meetups around town.",
			SubscriberCount: 120,
			EventCount:      2,
			CreatedAt:       created,
			UpdatedAt:       created,
		},
		{
			ID:              "aa6534e0-7f2e-4c43-9f5b-6d9c1a0b8e37",
			OwnerID:         "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d",
			Name:            "Live Music",
			Slug:            "live-music",
			Description:     "Concerts and open-mic nights.",
			SubscriberCount: 45,
			EventCount:      1,
			CreatedAt:       created,
			UpdatedAt:       created,
		},
	}

	events := []*domain.Event{
		{
			ID:          "1c7e9d5b-2a48-4f3c-b65d-8e0a1f4c9d27",
			Title:       "Go Meetup: Concurrency Patterns",
			Description: "Talks and hallway track about practical Go.",
			Date:        &date,
			Location:    "Hack Hall",
			City:        "Lisbon",
			OrganizerID: "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d",
			CalendarID:  "5f8d2c0a-9c3b-4b6e-8a1d-0e4f6b2a7c91",
			Status:      domain.EventStatusPublished,
			Visibility:  domain.VisibilityPublic,
			Capacity:    80,
			CreatedAt:   created,
			UpdatedAt:   created,
		},
		{
			ID:          "3e2b8f61-4d0c-45a9-97e3-5c6d2b1a0f48",
			Title:       "Open-Air Jazz Evening",
			Description: "Bring a blanket.",
			Date:        &date,
			Location:    "Riverside Park",
			City:        "Lisbon",
			OrganizerID: "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d",
			CalendarID:  "aa6534e0-7f2e-4c43-9f5b-6d9c1a0b8e37",
			Status:      domain.EventStatusPublished,
			Visibility:  domain.VisibilityPublic,
			Capacity:    200,
			CreatedAt:   created,
			UpdatedAt:   created,
		},
	}

	return &Provider{events: events, calendars: calendars}
}

// SeedEvents returns a fresh copy of the seed events.
func (p *Provider) SeedEvents() []*domain.Event {
	out := make([]*domain.Event, len(p.events))
	for i, e := range p.events {
		copied := *e
		out[i] = &copied
	}
	return out
}

// SeedCalendars returns a fresh copy of the seed calendars.
func (p *Provider) SeedCalendars() []*domain.Calendar {
	out := make([]*domain.Calendar, len(p.calendars))
	for i, c := range p.calendars {
		copied := *c
		out[i] = &copied
	}
	return out
}

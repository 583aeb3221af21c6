package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatherly/internal/domain"
)

// fakeEventRepo is a mutable in-memory EventRepository for the event service
// tests; fakeEventReader in invitation_test.go only serves reads.
type fakeEventRepo struct {
	byID map[string]*domain.Event
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{byID: map[string]*domain.Event{}}
}

func (r *fakeEventRepo) add(e *domain.Event) *domain.Event {
	r.byID[e.ID] = e
	return e
}

func (r *fakeEventRepo) Create(_ context.Context, e *domain.Event) error {
	r.byID[e.ID] = e
	return nil
}

func (r *fakeEventRepo) GetByID(_ context.Context, id string) (*domain.Event, domain.ReadMeta, error) {
	e, ok := r.byID[id]
	if !ok {
		return nil, domain.ReadMeta{}, domain.ErrNotFound
	}
	return e, domain.ReadMeta{Source: domain.SourcePrimary}, nil
}

func (r *fakeEventRepo) List(_ context.Context) ([]*domain.Event, domain.ReadMeta, error) {
	out := []*domain.Event{}
	for _, e := range r.byID {
		out = append(out, e)
	}
	return out, domain.ReadMeta{Source: domain.SourcePrimary}, nil
}

func (r *fakeEventRepo) ListByOrganizerID(_ context.Context, organizerID string) ([]*domain.Event, domain.ReadMeta, error) {
	out := []*domain.Event{}
	for _, e := range r.byID {
		if e.OrganizerID == organizerID {
			out = append(out, e)
		}
	}
	return out, domain.ReadMeta{Source: domain.SourcePrimary}, nil
}

func (r *fakeEventRepo) ListByCalendarID(_ context.Context, calendarID string) ([]*domain.Event, domain.ReadMeta, error) {
	out := []*domain.Event{}
	for _, e := range r.byID {
		if e.CalendarID == calendarID {
			out = append(out, e)
		}
	}
	return out, domain.ReadMeta{Source: domain.SourcePrimary}, nil
}

func (r *fakeEventRepo) Search(_ context.Context, query string) ([]*domain.Event, domain.ReadMeta, error) {
	out := []*domain.Event{}
	for _, e := range r.byID {
		if e.Title == query {
			out = append(out, e)
		}
	}
	return out, domain.ReadMeta{Source: domain.SourcePrimary}, nil
}

func (r *fakeEventRepo) Update(_ context.Context, id string, update *domain.EventUpdate) (*domain.Event, error) {
	e, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	updated := update.Apply(e, time.Now())
	r.byID[id] = updated
	return updated, nil
}

func (r *fakeEventRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func newEventFixture() (domain.EventService, *fakeEventRepo, *fakeInvitationRepo) {
	events := newFakeEventRepo()
	invitations := newFakeInvitationRepo()
	return NewEventService(events, invitations, time.Second), events, invitations
}

func TestEventServiceCreateEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults status and visibility", func(t *testing.T) {
		svc, repo, _ := newEventFixture()

		e := &domain.Event{Title: "Launch Party", OrganizerID: organizerID}
		require.NoError(t, svc.CreateEvent(ctx, e))
		assert.NotEmpty(t, e.ID)
		assert.Equal(t, domain.EventStatusDraft, e.Status)
		assert.Equal(t, domain.VisibilityPublic, e.Visibility)
		assert.False(t, e.CreatedAt.IsZero())
		assert.Len(t, repo.byID, 1)
	})

	t.Run("supplied status and visibility are kept", func(t *testing.T) {
		svc, _, _ := newEventFixture()

		e := &domain.Event{
			Title:       "Private Dinner",
			OrganizerID: organizerID,
			Status:      domain.EventStatusPublished,
			Visibility:  domain.VisibilityPrivate,
		}
		require.NoError(t, svc.CreateEvent(ctx, e))
		assert.Equal(t, domain.EventStatusPublished, e.Status)
		assert.Equal(t, domain.VisibilityPrivate, e.Visibility)
	})

	t.Run("validation failures are invalid input", func(t *testing.T) {
		svc, repo, _ := newEventFixture()

		err := svc.CreateEvent(ctx, &domain.Event{OrganizerID: "not-a-uuid"})
		require.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Empty(t, repo.byID)
	})
}

func TestEventServiceUpdateEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("organizer updates fields", func(t *testing.T) {
		svc, repo, _ := newEventFixture()
		repo.add(&domain.Event{ID: "ev-1", Title: "Old Title", OrganizerID: organizerID})

		title := "New Title"
		updated, err := svc.UpdateEvent(ctx, "ev-1", organizerID, &domain.EventUpdate{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "New Title", updated.Title)
	})

	t.Run("non-organizer is forbidden", func(t *testing.T) {
		svc, repo, _ := newEventFixture()
		repo.add(&domain.Event{ID: "ev-1", Title: "Mine", OrganizerID: organizerID})

		title := "Hijacked"
		_, err := svc.UpdateEvent(ctx, "ev-1", "someone-else", &domain.EventUpdate{Title: &title})
		require.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("unknown event is not found", func(t *testing.T) {
		svc, _, _ := newEventFixture()

		title := "Anything"
		_, err := svc.UpdateEvent(ctx, "ev-missing", organizerID, &domain.EventUpdate{Title: &title})
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("empty update returns the current event", func(t *testing.T) {
		svc, repo, _ := newEventFixture()
		repo.add(&domain.Event{ID: "ev-1", Title: "Unchanged", OrganizerID: organizerID})

		updated, err := svc.UpdateEvent(ctx, "ev-1", organizerID, &domain.EventUpdate{})
		require.NoError(t, err)
		assert.Equal(t, "Unchanged", updated.Title)
	})
}

func TestEventServiceDeleteEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("delete cascades to invitations", func(t *testing.T) {
		svc, events, invitations := newEventFixture()
		events.add(&domain.Event{ID: "ev-1", Title: "Doomed", OrganizerID: organizerID})
		invitations.add(&domain.Invitation{ID: "inv-1", EventID: "ev-1", Email: "a@example.com", Status: domain.InvitationSent})
		invitations.add(&domain.Invitation{ID: "inv-2", EventID: "ev-2", Email: "b@example.com", Status: domain.InvitationSent})

		require.NoError(t, svc.DeleteEvent(ctx, "ev-1", organizerID))
		assert.Empty(t, events.byID)
		require.Len(t, invitations.byID, 1, "other events' invitations survive")
		assert.NotNil(t, invitations.byID["inv-2"])
	})

	t.Run("non-organizer is forbidden", func(t *testing.T) {
		svc, events, invitations := newEventFixture()
		events.add(&domain.Event{ID: "ev-1", Title: "Mine", OrganizerID: organizerID})
		invitations.add(&domain.Invitation{ID: "inv-1", EventID: "ev-1", Email: "a@example.com", Status: domain.InvitationSent})

		require.ErrorIs(t, svc.DeleteEvent(ctx, "ev-1", "someone-else"), domain.ErrForbidden)
		assert.Len(t, invitations.byID, 1)
	})
}

func TestEventServiceReadsSurfaceMeta(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newEventFixture()
	repo.add(&domain.Event{ID: "ev-1", Title: "Visible", OrganizerID: organizerID})

	_, meta, err := svc.GetEventByID(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SourcePrimary, meta.Source)
	assert.False(t, meta.Degraded)
}

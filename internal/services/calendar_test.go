package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatherly/internal/domain"
)

// fakeCalendarRepo is an in-memory CalendarRepository keyed by id with a slug
// index, mirroring the dual-write repository's contract.
type fakeCalendarRepo struct {
	byID map[string]*domain.Calendar
}

func newFakeCalendarRepo() *fakeCalendarRepo {
	return &fakeCalendarRepo{byID: map[string]*domain.Calendar{}}
}

func (r *fakeCalendarRepo) add(c *domain.Calendar) *domain.Calendar {
	r.byID[c.ID] = c
	return c
}

func (r *fakeCalendarRepo) Create(_ context.Context, c *domain.Calendar) error {
	for _, existing := range r.byID {
		if existing.Slug == c.Slug {
			return domain.ErrSlugTaken
		}
	}
	r.byID[c.ID] = c
	return nil
}

func (r *fakeCalendarRepo) GetByID(_ context.Context, id string) (*domain.Calendar, domain.ReadMeta, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, domain.ReadMeta{}, domain.ErrNotFound
	}
	return c, domain.ReadMeta{Source: domain.SourcePrimary}, nil
}

func (r *fakeCalendarRepo) GetBySlug(_ context.Context, slug string) (*domain.Calendar, domain.ReadMeta, error) {
	for _, c := range r.byID {
		if c.Slug == slug {
			return c, domain.ReadMeta{Source: domain.SourcePrimary}, nil
		}
	}
	return nil, domain.ReadMeta{}, domain.ErrNotFound
}

func (r *fakeCalendarRepo) ListByOwnerID(_ context.Context, ownerID string) ([]*domain.Calendar, domain.ReadMeta, error) {
	out := []*domain.Calendar{}
	for _, c := range r.byID {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, domain.ReadMeta{Source: domain.SourcePrimary}, nil
}

func (r *fakeCalendarRepo) ListPopular(_ context.Context, limit int) ([]*domain.Calendar, domain.ReadMeta, error) {
	out := []*domain.Calendar{}
	for _, c := range r.byID {
		if len(out) == limit {
			break
		}
		out = append(out, c)
	}
	return out, domain.ReadMeta{Source: domain.SourcePrimary}, nil
}

func (r *fakeCalendarRepo) Update(_ context.Context, id string, update *domain.CalendarUpdate) (*domain.Calendar, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	updated := update.Apply(c, time.Now())
	r.byID[id] = updated
	return updated, nil
}

func (r *fakeCalendarRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// fakeSubscriptionRepo enforces the same one-row-per-pair idempotency as the
// relational implementation.
type fakeSubscriptionRepo struct {
	subs []*domain.CalendarSubscription
}

func (r *fakeSubscriptionRepo) Subscribe(_ context.Context, sub *domain.CalendarSubscription) (*domain.CalendarSubscription, error) {
	for _, existing := range r.subs {
		if existing.CalendarID == sub.CalendarID && existing.UserID == sub.UserID {
			return existing, nil
		}
	}
	r.subs = append(r.subs, sub)
	return sub, nil
}

func (r *fakeSubscriptionRepo) Unsubscribe(_ context.Context, calendarID, userID string) error {
	for i, sub := range r.subs {
		if sub.CalendarID == calendarID && sub.UserID == userID {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeSubscriptionRepo) ListByUserID(_ context.Context, userID string) ([]*domain.CalendarSubscription, error) {
	out := []*domain.CalendarSubscription{}
	for _, sub := range r.subs {
		if sub.UserID == userID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) IsSubscribed(_ context.Context, calendarID, userID string) (bool, error) {
	for _, sub := range r.subs {
		if sub.CalendarID == calendarID && sub.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

const (
	ownerID      = "3f9d2c44-7b5a-4e1f-8c6d-2a0b4e6f8d12"
	subscriberID = "aa11bb22-cc33-4d44-9e55-ff6677889900"
)

func newCalendarFixture() (domain.CalendarService, *fakeCalendarRepo, *fakeSubscriptionRepo) {
	calendars := newFakeCalendarRepo()
	subs := &fakeSubscriptionRepo{}
	return NewCalendarService(calendars, subs, time.Second), calendars, subs
}

func TestCalendarServiceCreateCalendar(t *testing.T) {
	ctx := context.Background()

	t.Run("creates with a fresh slug", func(t *testing.T) {
		svc, repo, _ := newCalendarFixture()

		c := &domain.Calendar{OwnerID: ownerID, Name: "Tech Talks", Slug: "tech-talks"}
		require.NoError(t, svc.CreateCalendar(ctx, c))
		assert.NotEmpty(t, c.ID)
		assert.Zero(t, c.SubscriberCount)
		assert.Len(t, repo.byID, 1)
	})

	t.Run("taken slug is rejected", func(t *testing.T) {
		svc, repo, _ := newCalendarFixture()
		repo.add(&domain.Calendar{ID: "cal-1", OwnerID: ownerID, Name: "First", Slug: "tech-talks"})

		err := svc.CreateCalendar(ctx, &domain.Calendar{OwnerID: ownerID, Name: "Second", Slug: "tech-talks"})
		require.ErrorIs(t, err, domain.ErrSlugTaken)
	})

	t.Run("malformed slug is invalid input", func(t *testing.T) {
		svc, _, _ := newCalendarFixture()

		err := svc.CreateCalendar(ctx, &domain.Calendar{OwnerID: ownerID, Name: "Bad", Slug: "Not A Slug"})
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestCalendarServiceIsSlugAvailable(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newCalendarFixture()
	repo.add(&domain.Calendar{ID: "cal-1", OwnerID: ownerID, Name: "Taken", Slug: "taken-slug"})

	available, err := svc.IsSlugAvailable(ctx, "fresh-slug")
	require.NoError(t, err)
	assert.True(t, available)

	available, err = svc.IsSlugAvailable(ctx, "taken-slug")
	require.NoError(t, err)
	assert.False(t, available)

	_, err = svc.IsSlugAvailable(ctx, "UPPER-case")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCalendarServiceUpdateCalendar(t *testing.T) {
	ctx := context.Background()

	t.Run("owner updates mutable fields", func(t *testing.T) {
		svc, repo, _ := newCalendarFixture()
		repo.add(&domain.Calendar{ID: "cal-1", OwnerID: ownerID, Name: "Old", Slug: "old", SubscriberCount: 9})

		name := "New Name"
		updated, err := svc.UpdateCalendar(ctx, "cal-1", ownerID, &domain.CalendarUpdate{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "New Name", updated.Name)
		assert.Equal(t, 9, updated.SubscriberCount, "counters are never touched by updates")
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		svc, repo, _ := newCalendarFixture()
		repo.add(&domain.Calendar{ID: "cal-1", OwnerID: ownerID, Name: "Mine", Slug: "mine"})

		name := "Hijacked"
		_, err := svc.UpdateCalendar(ctx, "cal-1", subscriberID, &domain.CalendarUpdate{Name: &name})
		require.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("empty update is a no-op", func(t *testing.T) {
		svc, repo, _ := newCalendarFixture()
		repo.add(&domain.Calendar{ID: "cal-1", OwnerID: ownerID, Name: "Same", Slug: "same"})

		updated, err := svc.UpdateCalendar(ctx, "cal-1", ownerID, &domain.CalendarUpdate{})
		require.NoError(t, err)
		assert.Equal(t, "Same", updated.Name)
	})
}

func TestCalendarServiceDeleteCalendar(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newCalendarFixture()
	repo.add(&domain.Calendar{ID: "cal-1", OwnerID: ownerID, Name: "Mine", Slug: "mine"})

	require.ErrorIs(t, svc.DeleteCalendar(ctx, "cal-1", subscriberID), domain.ErrForbidden)
	require.NoError(t, svc.DeleteCalendar(ctx, "cal-1", ownerID))
	require.ErrorIs(t, svc.DeleteCalendar(ctx, "cal-1", ownerID), domain.ErrNotFound)
}

func TestCalendarServiceSubscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("subscribing twice keeps one row", func(t *testing.T) {
		svc, repo, subs := newCalendarFixture()
		repo.add(&domain.Calendar{ID: "cal-1", OwnerID: ownerID, Name: "Talks", Slug: "talks"})

		first, err := svc.Subscribe(ctx, "cal-1", subscriberID, true, false)
		require.NoError(t, err)

		second, err := svc.Subscribe(ctx, "cal-1", subscriberID, true, true)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Len(t, subs.subs, 1)
	})

	t.Run("unknown calendar is not found", func(t *testing.T) {
		svc, _, _ := newCalendarFixture()

		_, err := svc.Subscribe(ctx, "cal-missing", subscriberID, true, true)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("malformed user id is invalid input", func(t *testing.T) {
		svc, repo, _ := newCalendarFixture()
		repo.add(&domain.Calendar{ID: "cal-1", OwnerID: ownerID, Name: "Talks", Slug: "talks"})

		_, err := svc.Subscribe(ctx, "cal-1", "not-a-uuid", true, true)
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestCalendarServiceUnsubscribe(t *testing.T) {
	ctx := context.Background()
	svc, repo, subs := newCalendarFixture()
	repo.add(&domain.Calendar{ID: "cal-1", OwnerID: ownerID, Name: "Talks", Slug: "talks"})

	_, err := svc.Subscribe(ctx, "cal-1", subscriberID, true, true)
	require.NoError(t, err)

	require.NoError(t, svc.Unsubscribe(ctx, "cal-1", subscriberID))
	assert.Empty(t, subs.subs)

	// Unsubscribing when not subscribed is not an error.
	require.NoError(t, svc.Unsubscribe(ctx, "cal-1", subscriberID))

	subscribed, err := svc.IsSubscribed(ctx, "cal-1", subscriberID)
	require.NoError(t, err)
	assert.False(t, subscribed)
}

func TestCalendarServiceListPopularClampsLimit(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newCalendarFixture()
	for i := 0; i < 15; i++ {
		repo.add(&domain.Calendar{ID: string(rune('a' + i)), OwnerID: ownerID, Name: "C", Slug: "c"})
	}

	calendars, _, err := svc.ListPopularCalendars(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, calendars, 10, "out-of-range limits fall back to the default")
}

package dualwrite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatherly/internal/domain"
)

// fakeCalendarStore is an in-memory domain.CalendarStore with failure injection.
type fakeCalendarStore struct {
	calendars map[string]*domain.Calendar
	err       error

	createCalls int
}

func newFakeCalendarStore(calendars ...*domain.Calendar) *fakeCalendarStore {
	s := &fakeCalendarStore{calendars: make(map[string]*domain.Calendar)}
	for _, c := range calendars {
		s.calendars[c.ID] = c
	}
	return s
}

func (s *fakeCalendarStore) Create(_ context.Context, c *domain.Calendar) error {
	s.createCalls++
	if s.err != nil {
		return s.err
	}
	for _, existing := range s.calendars {
		if existing.Slug == c.Slug {
			return domain.ErrSlugTaken
		}
	}
	s.calendars[c.ID] = c
	return nil
}

func (s *fakeCalendarStore) GetByID(_ context.Context, id string) (*domain.Calendar, error) {
	if s.err != nil {
		return nil, s.err
	}
	c, ok := s.calendars[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (s *fakeCalendarStore) GetBySlug(_ context.Context, slug string) (*domain.Calendar, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, c := range s.calendars {
		if c.Slug == slug {
			return c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *fakeCalendarStore) ListByOwnerID(_ context.Context, ownerID string) ([]*domain.Calendar, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*domain.Calendar
	for _, c := range s.calendars {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeCalendarStore) ListPopular(_ context.Context, limit int) ([]*domain.Calendar, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*domain.Calendar, 0, len(s.calendars))
	for _, c := range s.calendars {
		out = append(out, c)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeCalendarStore) Update(_ context.Context, id string, update *domain.CalendarUpdate, updatedAt time.Time) error {
	if s.err != nil {
		return s.err
	}
	c, ok := s.calendars[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.calendars[id] = update.Apply(c, updatedAt)
	return nil
}

func (s *fakeCalendarStore) Delete(_ context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	delete(s.calendars, id)
	return nil
}

func TestCalendarRepositoryCreatePropagatesSlugConflict(t *testing.T) {
	existing := &domain.Calendar{ID: "c1", Slug: "tech-meetups"}
	primary := newFakeCalendarStore(existing)
	secondary := newFakeCalendarStore(existing)
	repo := NewCalendarRepository(primary, secondary, &fakeSeed{}, testLogger())

	err := repo.Create(context.Background(), &domain.Calendar{ID: "c2", Slug: "tech-meetups"})
	require.ErrorIs(t, err, domain.ErrSlugTaken)
	assert.Equal(t, 0, secondary.createCalls, "conflict on primary stops the dual write")
}

func TestCalendarRepositoryGetBySlugFallback(t *testing.T) {
	stored := &domain.Calendar{ID: "c1", Slug: "tech-meetups", Name: "Tech Meetups"}
	seeded := &domain.Calendar{ID: "seed-c1", Slug: "city-guide", Name: "City Guide"}
	seed := &fakeSeed{calendars: []*domain.Calendar{seeded}}

	t.Run("primary answers", func(t *testing.T) {
		repo := NewCalendarRepository(newFakeCalendarStore(stored), newFakeCalendarStore(), seed, testLogger())
		got, meta, err := repo.GetBySlug(context.Background(), "tech-meetups")
		require.NoError(t, err)
		assert.Equal(t, "Tech Meetups", got.Name)
		assert.False(t, meta.Degraded)
	})

	t.Run("everything down falls to seed", func(t *testing.T) {
		primary := newFakeCalendarStore()
		primary.err = errDown
		secondary := newFakeCalendarStore()
		secondary.err = errDown
		repo := NewCalendarRepository(primary, secondary, seed, testLogger())

		got, meta, err := repo.GetBySlug(context.Background(), "city-guide")
		require.NoError(t, err)
		assert.Equal(t, "City Guide", got.Name)
		assert.Equal(t, domain.SourceSeed, meta.Source)
		assert.True(t, meta.Degraded)
	})

	t.Run("miss on a healthy primary does not consult seed", func(t *testing.T) {
		repo := NewCalendarRepository(newFakeCalendarStore(), newFakeCalendarStore(), seed, testLogger())
		_, _, err := repo.GetBySlug(context.Background(), "city-guide")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestCalendarRepositoryListPopularSeedTruncation(t *testing.T) {
	seed := &fakeSeed{calendars: []*domain.Calendar{
		{ID: "s1", Slug: "one"},
		{ID: "s2", Slug: "two"},
		{ID: "s3", Slug: "three"},
	}}
	primary := newFakeCalendarStore()
	primary.err = errDown
	secondary := newFakeCalendarStore()
	secondary.err = errDown
	repo := NewCalendarRepository(primary, secondary, seed, testLogger())

	got, meta, err := repo.ListPopular(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, domain.SourceSeed, meta.Source)
}

func TestCalendarRepositoryUpdateNeverTouchesCounters(t *testing.T) {
	stored := &domain.Calendar{ID: "c1", Slug: "tech-meetups", Name: "Old", SubscriberCount: 42, EventCount: 7}
	primary := newFakeCalendarStore(stored)
	repo := NewCalendarRepository(primary, newFakeCalendarStore(stored), &fakeSeed{}, testLogger())

	name := "New"
	got, err := repo.Update(context.Background(), "c1", &domain.CalendarUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)
	assert.Equal(t, 42, got.SubscriberCount)
	assert.Equal(t, 7, got.EventCount)
	assert.Equal(t, "tech-meetups", got.Slug)
}

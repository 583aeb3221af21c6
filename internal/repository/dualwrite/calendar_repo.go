package dualwrite

import (
	"context"
	"log/slog"
	"time"

	"gatherly/internal/domain"
)

type calendarRepository struct {
	primary   domain.CalendarStore
	secondary domain.CalendarStore
	seed      domain.SeedProvider
	logger    *slog.Logger
}

// NewCalendarRepository composes the primary and secondary calendar stores
// with the same asymmetric write and fallback-read contracts as events.
func NewCalendarRepository(primary, secondary domain.CalendarStore, seed domain.SeedProvider, logger *slog.Logger) domain.CalendarRepository {
	return &calendarRepository{primary: primary, secondary: secondary, seed: seed, logger: logger}
}

func (r *calendarRepository) writeBoth(op string, primary, secondary func(domain.CalendarStore) error) domain.WriteOutcome {
	outcome := domain.WriteOutcome{Op: op}
	if r.primary == nil {
		outcome.Primary = errNoStore
	} else {
		outcome.Primary = primary(r.primary)
	}
	if outcome.Primary == nil {
		if r.secondary == nil {
			outcome.Secondary = errNoStore
		} else {
			outcome.Secondary = secondary(r.secondary)
		}
	}
	reportWrite(r.logger, outcome)
	return outcome
}

func (r *calendarRepository) Create(ctx context.Context, c *domain.Calendar) error {
	outcome := r.writeBoth("calendar.create",
		func(s domain.CalendarStore) error { return s.Create(ctx, c) },
		func(s domain.CalendarStore) error { return s.Create(ctx, c) },
	)
	return outcome.Primary
}

func (r *calendarRepository) getSources(fetch func(domain.CalendarStore, context.Context) (*domain.Calendar, error), seeded func() (*domain.Calendar, error)) []source[*domain.Calendar] {
	sources := make([]source[*domain.Calendar], 0, 3)
	if r.primary != nil {
		sources = append(sources, source[*domain.Calendar]{domain.SourcePrimary, func(ctx context.Context) (*domain.Calendar, error) {
			return fetch(r.primary, ctx)
		}})
	}
	if r.secondary != nil {
		sources = append(sources, source[*domain.Calendar]{domain.SourceSecondary, func(ctx context.Context) (*domain.Calendar, error) {
			return fetch(r.secondary, ctx)
		}})
	}
	sources = append(sources, source[*domain.Calendar]{domain.SourceSeed, func(context.Context) (*domain.Calendar, error) {
		return seeded()
	}})
	return sources
}

func (r *calendarRepository) listSources(fetch func(domain.CalendarStore, context.Context) ([]*domain.Calendar, error), seeded func() []*domain.Calendar) []source[[]*domain.Calendar] {
	sources := make([]source[[]*domain.Calendar], 0, 3)
	if r.primary != nil {
		sources = append(sources, source[[]*domain.Calendar]{domain.SourcePrimary, func(ctx context.Context) ([]*domain.Calendar, error) {
			return fetch(r.primary, ctx)
		}})
	}
	if r.secondary != nil {
		sources = append(sources, source[[]*domain.Calendar]{domain.SourceSecondary, func(ctx context.Context) ([]*domain.Calendar, error) {
			return fetch(r.secondary, ctx)
		}})
	}
	sources = append(sources, source[[]*domain.Calendar]{domain.SourceSeed, func(context.Context) ([]*domain.Calendar, error) {
		return seeded(), nil
	}})
	return sources
}

func (r *calendarRepository) GetByID(ctx context.Context, id string) (*domain.Calendar, domain.ReadMeta, error) {
	return resolve(ctx, r.logger, "calendar.get", r.getSources(
		func(s domain.CalendarStore, ctx context.Context) (*domain.Calendar, error) { return s.GetByID(ctx, id) },
		func() (*domain.Calendar, error) { return r.seedFind(func(c *domain.Calendar) bool { return c.ID == id }) },
	))
}

func (r *calendarRepository) GetBySlug(ctx context.Context, slug string) (*domain.Calendar, domain.ReadMeta, error) {
	return resolve(ctx, r.logger, "calendar.get_by_slug", r.getSources(
		func(s domain.CalendarStore, ctx context.Context) (*domain.Calendar, error) { return s.GetBySlug(ctx, slug) },
		func() (*domain.Calendar, error) { return r.seedFind(func(c *domain.Calendar) bool { return c.Slug == slug }) },
	))
}

func (r *calendarRepository) seedFind(match func(*domain.Calendar) bool) (*domain.Calendar, error) {
	for _, c := range r.seed.SeedCalendars() {
		if match(c) {
			return c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *calendarRepository) ListByOwnerID(ctx context.Context, ownerID string) ([]*domain.Calendar, domain.ReadMeta, error) {
	return resolve(ctx, r.logger, "calendar.list_by_owner", r.listSources(
		func(s domain.CalendarStore, ctx context.Context) ([]*domain.Calendar, error) {
			return s.ListByOwnerID(ctx, ownerID)
		},
		func() []*domain.Calendar {
			out := make([]*domain.Calendar, 0)
			for _, c := range r.seed.SeedCalendars() {
				if c.OwnerID == ownerID {
					out = append(out, c)
				}
			}
			return out
		},
	))
}

func (r *calendarRepository) ListPopular(ctx context.Context, limit int) ([]*domain.Calendar, domain.ReadMeta, error) {
	return resolve(ctx, r.logger, "calendar.list_popular", r.listSources(
		func(s domain.CalendarStore, ctx context.Context) ([]*domain.Calendar, error) {
			return s.ListPopular(ctx, limit)
		},
		func() []*domain.Calendar {
			seeds := r.seed.SeedCalendars()
			if len(seeds) > limit {
				seeds = seeds[:limit]
			}
			return seeds
		},
	))
}

func (r *calendarRepository) Update(ctx context.Context, id string, update *domain.CalendarUpdate) (*domain.Calendar, error) {
	before, _, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	outcome := r.writeBoth("calendar.update",
		func(s domain.CalendarStore) error { return s.Update(ctx, id, update, now) },
		func(s domain.CalendarStore) error { return s.Update(ctx, id, update, now) },
	)
	if outcome.Primary != nil {
		return nil, outcome.Primary
	}
	return update.Apply(before, now), nil
}

func (r *calendarRepository) Delete(ctx context.Context, id string) error {
	outcome := r.writeBoth("calendar.delete",
		func(s domain.CalendarStore) error { return s.Delete(ctx, id) },
		func(s domain.CalendarStore) error { return s.Delete(ctx, id) },
	)
	return outcome.Primary
}

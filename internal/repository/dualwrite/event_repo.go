package dualwrite

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gatherly/internal/domain"
)

type eventRepository struct {
	primary   domain.EventStore
	secondary domain.EventStore
	seed      domain.SeedProvider
	logger    *slog.Logger
}

// NewEventRepository composes the primary and secondary event stores.
// Either store may be nil (unconfigured); a nil store is treated as
// permanently unavailable. The seed provider serves reads only when every
// real source is down.
func NewEventRepository(primary, secondary domain.EventStore, seed domain.SeedProvider, logger *slog.Logger) domain.EventRepository {
	return &eventRepository{primary: primary, secondary: secondary, seed: seed, logger: logger}
}

var errNoStore = fmt.Errorf("%w: store not configured", domain.ErrStoreUnavailable)

func (r *eventRepository) writeBoth(op string, primary, secondary func(domain.EventStore) error) domain.WriteOutcome {
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

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	outcome := r.writeBoth("event.create",
		func(s domain.EventStore) error { return s.Create(ctx, e) },
		func(s domain.EventStore) error { return s.Create(ctx, e) },
	)
	return outcome.Primary
}

func (r *eventRepository) getSources(fetch func(domain.EventStore, context.Context) (*domain.Event, error), seeded func() (*domain.Event, error)) []source[*domain.Event] {
	sources := make([]source[*domain.Event], 0, 3)
	if r.primary != nil {
		sources = append(sources, source[*domain.Event]{domain.SourcePrimary, func(ctx context.Context) (*domain.Event, error) {
			return fetch(r.primary, ctx)
		}})
	}
	if r.secondary != nil {
		sources = append(sources, source[*domain.Event]{domain.SourceSecondary, func(ctx context.Context) (*domain.Event, error) {
			return fetch(r.secondary, ctx)
		}})
	}
	sources = append(sources, source[*domain.Event]{domain.SourceSeed, func(context.Context) (*domain.Event, error) {
		return seeded()
	}})
	return sources
}

func (r *eventRepository) listSources(fetch func(domain.EventStore, context.Context) ([]*domain.Event, error), seeded func() []*domain.Event) []source[[]*domain.Event] {
	sources := make([]source[[]*domain.Event], 0, 3)
	if r.primary != nil {
		sources = append(sources, source[[]*domain.Event]{domain.SourcePrimary, func(ctx context.Context) ([]*domain.Event, error) {
			return fetch(r.primary, ctx)
		}})
	}
	if r.secondary != nil {
		sources = append(sources, source[[]*domain.Event]{domain.SourceSecondary, func(ctx context.Context) ([]*domain.Event, error) {
			return fetch(r.secondary, ctx)
		}})
	}
	sources = append(sources, source[[]*domain.Event]{domain.SourceSeed, func(context.Context) ([]*domain.Event, error) {
		return seeded(), nil
	}})
	return sources
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, domain.ReadMeta, error) {
	return resolve(ctx, r.logger, "event.get", r.getSources(
		func(s domain.EventStore, ctx context.Context) (*domain.Event, error) { return s.GetByID(ctx, id) },
		func() (*domain.Event, error) {
			for _, e := range r.seed.SeedEvents() {
				if e.ID == id {
					return e, nil
				}
			}
			return nil, domain.ErrNotFound
		},
	))
}

func (r *eventRepository) List(ctx context.Context) ([]*domain.Event, domain.ReadMeta, error) {
	return resolve(ctx, r.logger, "event.list", r.listSources(
		func(s domain.EventStore, ctx context.Context) ([]*domain.Event, error) { return s.List(ctx) },
		func() []*domain.Event { return r.seed.SeedEvents() },
	))
}

func (r *eventRepository) ListByOrganizerID(ctx context.Context, organizerID string) ([]*domain.Event, domain.ReadMeta, error) {
	return resolve(ctx, r.logger, "event.list_by_organizer", r.listSources(
		func(s domain.EventStore, ctx context.Context) ([]*domain.Event, error) {
			return s.ListByOrganizerID(ctx, organizerID)
		},
		func() []*domain.Event { return filterEvents(r.seed.SeedEvents(), func(e *domain.Event) bool { return e.OrganizerID == organizerID }) },
	))
}

func (r *eventRepository) ListByCalendarID(ctx context.Context, calendarID string) ([]*domain.Event, domain.ReadMeta, error) {
	return resolve(ctx, r.logger, "event.list_by_calendar", r.listSources(
		func(s domain.EventStore, ctx context.Context) ([]*domain.Event, error) {
			return s.ListByCalendarID(ctx, calendarID)
		},
		func() []*domain.Event { return filterEvents(r.seed.SeedEvents(), func(e *domain.Event) bool { return e.CalendarID == calendarID }) },
	))
}

func (r *eventRepository) Search(ctx context.Context, query string) ([]*domain.Event, domain.ReadMeta, error) {
	return resolve(ctx, r.logger, "event.search", r.listSources(
		func(s domain.EventStore, ctx context.Context) ([]*domain.Event, error) { return s.Search(ctx, query) },
		func() []*domain.Event { return filterEvents(r.seed.SeedEvents(), matchesQuery(query)) },
	))
}

func filterEvents(events []*domain.Event, keep func(*domain.Event) bool) []*domain.Event {
	out := make([]*domain.Event, 0)
	for _, e := range events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func matchesQuery(query string) func(*domain.Event) bool {
	return func(e *domain.Event) bool {
		return containsFold(e.Title, query) || containsFold(e.Description, query) ||
			containsFold(e.City, query) || containsFold(e.Location, query)
	}
}

// Update applies the partial update to both stores and returns the
// pre-update record merged with the supplied fields. The secondary store may
// be ahead or behind on trigger-maintained data; the merge is not promised
// to be byte-identical to a subsequent read.
func (r *eventRepository) Update(ctx context.Context, id string, update *domain.EventUpdate) (*domain.Event, error) {
	before, _, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	outcome := r.writeBoth("event.update",
		func(s domain.EventStore) error { return s.Update(ctx, id, update, now) },
		func(s domain.EventStore) error { return s.Update(ctx, id, update, now) },
	)
	if outcome.Primary != nil {
		return nil, outcome.Primary
	}
	return update.Apply(before, now), nil
}

// Delete removes from the primary first; a primary failure stops the
// operation before the secondary is touched.
func (r *eventRepository) Delete(ctx context.Context, id string) error {
	outcome := r.writeBoth("event.delete",
		func(s domain.EventStore) error { return s.Delete(ctx, id) },
		func(s domain.EventStore) error { return s.Delete(ctx, id) },
	)
	return outcome.Primary
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gatherly/internal/domain"
	"gatherly/internal/idgen"
)

type eventService struct {
	eventRepo      domain.EventRepository
	invitationRepo domain.InvitationRepository
	contextTimeout time.Duration
}

// NewEventService wires the dual-write event repository with the invitation
// repository needed for cascade removal on delete.
func NewEventService(eventRepo domain.EventRepository, invitationRepo domain.InvitationRepository, timeout time.Duration) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		invitationRepo: invitationRepo,
		contextTimeout: timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if errs := event.Validate(); len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(errs, "; "))
	}

	if event.ID == "" {
		event.ID = idgen.NewID()
	}
	if event.Status == "" {
		event.Status = domain.EventStatusDraft
	}
	if event.Visibility == "" {
		event.Visibility = domain.VisibilityPublic
	}
	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now

	return s.eventRepo.Create(ctx, event)
}

func (s *eventService) GetEventByID(ctx context.Context, id string) (*domain.Event, domain.ReadMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.eventRepo.GetByID(ctx, id)
}

func (s *eventService) ListEvents(ctx context.Context) ([]*domain.Event, domain.ReadMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.eventRepo.List(ctx)
}

func (s *eventService) ListEventsByOrganizer(ctx context.Context, organizerID string) ([]*domain.Event, domain.ReadMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.eventRepo.ListByOrganizerID(ctx, organizerID)
}

func (s *eventService) ListEventsByCalendar(ctx context.Context, calendarID string) ([]*domain.Event, domain.ReadMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.eventRepo.ListByCalendarID(ctx, calendarID)
}

func (s *eventService) SearchEvents(ctx context.Context, query string) ([]*domain.Event, domain.ReadMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.eventRepo.Search(ctx, query)
}

func (s *eventService) UpdateEvent(ctx context.Context, id, callerID string, update *domain.EventUpdate) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, _, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.OrganizerID != callerID {
		return nil, domain.ErrForbidden
	}
	if update.IsEmpty() {
		return event, nil
	}
	return s.eventRepo.Update(ctx, id, update)
}

// DeleteEvent removes the event and cascades removal of its invitations.
// The event is never hard-deleted while dependent invitations would be
// orphaned, so invitations go first.
func (s *eventService) DeleteEvent(ctx context.Context, id, callerID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, _, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get event: %w", err)
	}
	if event.OrganizerID != callerID {
		return domain.ErrForbidden
	}

	if _, err := s.invitationRepo.DeleteAllForEvent(ctx, id); err != nil {
		return fmt.Errorf("remove event invitations: %w", err)
	}
	return s.eventRepo.Delete(ctx, id)
}

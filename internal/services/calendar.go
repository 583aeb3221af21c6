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

type calendarService struct {
	calendarRepo     domain.CalendarRepository
	subscriptionRepo domain.SubscriptionRepository
	contextTimeout   time.Duration
}

// NewCalendarService wires the dual-write calendar repository with the
// relational subscription repository.
func NewCalendarService(calendarRepo domain.CalendarRepository, subscriptionRepo domain.SubscriptionRepository, timeout time.Duration) domain.CalendarService {
	return &calendarService{
		calendarRepo:     calendarRepo,
		subscriptionRepo: subscriptionRepo,
		contextTimeout:   timeout,
	}
}

// CreateCalendar pre-checks slug availability, then creates. The pre-check
// is advisory: a concurrent create can still win, in which case the store's
// unique constraint surfaces as ErrSlugTaken from the write itself.
func (s *calendarService) CreateCalendar(ctx context.Context, c *domain.Calendar) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if errs := c.Validate(); len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(errs, "; "))
	}

	available, err := s.IsSlugAvailable(ctx, c.Slug)
	if err != nil {
		return fmt.Errorf("check slug: %w", err)
	}
	if !available {
		return domain.ErrSlugTaken
	}

	if c.ID == "" {
		c.ID = idgen.NewID()
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	c.SubscriberCount = 0
	c.EventCount = 0

	return s.calendarRepo.Create(ctx, c)
}

func (s *calendarService) GetCalendarByID(ctx context.Context, id string) (*domain.Calendar, domain.ReadMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.calendarRepo.GetByID(ctx, id)
}

func (s *calendarService) GetCalendarBySlug(ctx context.Context, slug string) (*domain.Calendar, domain.ReadMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.calendarRepo.GetBySlug(ctx, slug)
}

func (s *calendarService) ListCalendarsByOwner(ctx context.Context, ownerID string) ([]*domain.Calendar, domain.ReadMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.calendarRepo.ListByOwnerID(ctx, ownerID)
}

func (s *calendarService) ListPopularCalendars(ctx context.Context, limit int) ([]*domain.Calendar, domain.ReadMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.calendarRepo.ListPopular(ctx, limit)
}

func (s *calendarService) UpdateCalendar(ctx context.Context, id, callerID string, update *domain.CalendarUpdate) (*domain.Calendar, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	calendar, _, err := s.calendarRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get calendar: %w", err)
	}
	if calendar.OwnerID != callerID {
		return nil, domain.ErrForbidden
	}
	if update.IsEmpty() {
		return calendar, nil
	}
	return s.calendarRepo.Update(ctx, id, update)
}

func (s *calendarService) DeleteCalendar(ctx context.Context, id, callerID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	calendar, _, err := s.calendarRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get calendar: %w", err)
	}
	if calendar.OwnerID != callerID {
		return domain.ErrForbidden
	}
	return s.calendarRepo.Delete(ctx, id)
}

// IsSlugAvailable is a point-in-time check with no locking; the store's
// unique constraint remains the authority.
func (s *calendarService) IsSlugAvailable(ctx context.Context, slug string) (bool, error) {
	if !domain.IsValidSlug(slug) {
		return false, fmt.Errorf("%w: slug must be lowercase letters, digits, and hyphens", domain.ErrInvalidInput)
	}
	_, _, err := s.calendarRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("check slug: %w", err)
	}
	return false, nil
}

func (s *calendarService) Subscribe(ctx context.Context, calendarID, userID string, notifyNewEvents, notifyReminders bool) (*domain.CalendarSubscription, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !domain.IsWellFormedID(userID) {
		return nil, fmt.Errorf("%w: user_id is not a well-formed identifier", domain.ErrInvalidInput)
	}
	if _, _, err := s.calendarRepo.GetByID(ctx, calendarID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get calendar: %w", err)
	}

	// Subscriber counters are adjusted by the store's triggers as a side
	// effect of the insert; recomputing them here would race other writers.
	sub := &domain.CalendarSubscription{
		ID:              idgen.NewID(),
		CalendarID:      calendarID,
		UserID:          userID,
		NotifyNewEvents: notifyNewEvents,
		NotifyReminders: notifyReminders,
		CreatedAt:       time.Now(),
	}
	return s.subscriptionRepo.Subscribe(ctx, sub)
}

func (s *calendarService) Unsubscribe(ctx context.Context, calendarID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.subscriptionRepo.Unsubscribe(ctx, calendarID, userID)
}

func (s *calendarService) ListSubscriptions(ctx context.Context, userID string) ([]*domain.CalendarSubscription, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.subscriptionRepo.ListByUserID(ctx, userID)
}

func (s *calendarService) IsSubscribed(ctx context.Context, calendarID, userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.subscriptionRepo.IsSubscribed(ctx, calendarID, userID)
}

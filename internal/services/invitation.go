package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gatherly/internal/domain"
	"gatherly/internal/idgen"
)

type invitationService struct {
	invitationRepo domain.InvitationRepository
	eventRepo      domain.EventRepository
	emailService   domain.EmailService
	baseURL        string
	contextTimeout time.Duration
	logger         *slog.Logger
}

// NewInvitationService wires the invitation repository with the event
// repository (for event lookups) and the email service used to dispatch
// invitations after they are stored.
func NewInvitationService(
	invitationRepo domain.InvitationRepository,
	eventRepo domain.EventRepository,
	emailService domain.EmailService,
	baseURL string,
	timeout time.Duration,
	logger *slog.Logger,
) domain.InvitationService {
	return &invitationService{
		invitationRepo: invitationRepo,
		eventRepo:      eventRepo,
		emailService:   emailService,
		baseURL:        baseURL,
		contextTimeout: timeout,
		logger:         logger,
	}
}

// Create is idempotent by (eventID, normalized email): an existing pair
// returns the stored invitation with IsNew = false. A brand-new invitation
// gets its email dispatched and is marked sent; a failed dispatch leaves the
// invitation stored in pending for later retry.
func (s *invitationService) Create(ctx context.Context, input domain.CreateInvitationInput, invitedBy string) (*domain.CreateInvitationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, _, err := s.eventRepo.GetByID(ctx, input.EventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.OrganizerID != invitedBy {
		return nil, domain.ErrForbidden
	}

	result, err := s.createOne(ctx, event, input, invitedBy)
	if err != nil {
		return nil, err
	}
	if result.IsNew {
		s.dispatch(ctx, event, result.Invitation)
	}
	return result, nil
}

// createOne validates, checks for an existing pair, and inserts. Both the
// pre-check and the constraint-race path resolve to the existing record; the
// store's unique constraint is what actually guarantees the invariant.
func (s *invitationService) createOne(ctx context.Context, event *domain.Event, input domain.CreateInvitationInput, invitedBy string) (*domain.CreateInvitationResult, error) {
	email := domain.NormalizeEmail(input.Email)
	if !domain.IsValidEmail(email) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidEmail, input.Email)
	}

	existing, err := s.invitationRepo.GetByEmailAndEvent(ctx, event.ID, email)
	if err == nil {
		return &domain.CreateInvitationResult{Invitation: existing, IsNew: false}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check existing invitation: %w", err)
	}

	now := time.Now()
	inv := &domain.Invitation{
		ID:            idgen.NewID(),
		EventID:       event.ID,
		Email:         email,
		Status:        domain.InvitationPending,
		TrackingToken: idgen.NewTrackingToken(),
		InvitedBy:     invitedBy,
		Metadata:      input.Metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	created, stored, err := s.invitationRepo.Create(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}
	return &domain.CreateInvitationResult{Invitation: stored, IsNew: created}, nil
}

// dispatch sends the invitation email and conditionally marks the invitation
// sent. MarkAsSent no-ops if a concurrent dispatch already advanced the
// status.
func (s *invitationService) dispatch(ctx context.Context, event *domain.Event, inv *domain.Invitation) bool {
	data := &domain.InvitationEmailData{
		Email:      inv.Email,
		EventTitle: event.Title,
		OpenURL:    fmt.Sprintf("%s/t/o/%s", s.baseURL, inv.TrackingToken),
		ClickURL:   fmt.Sprintf("%s/t/c/%s", s.baseURL, inv.TrackingToken),
	}
	if event.Date != nil {
		data.EventDate = event.Date.Format("Monday, January 2, 2006 15:04 MST")
	}
	if err := s.emailService.SendInvitation(ctx, data); err != nil {
		s.logger.Warn("invitation email dispatch failed", "invitation_id", inv.ID, "err", err)
		return false
	}
	if _, err := s.invitationRepo.MarkAsSent(ctx, inv.ID); err != nil {
		s.logger.Warn("mark invitation sent failed", "invitation_id", inv.ID, "err", err)
	}
	return true
}

// CreateBatch processes every candidate independently and buckets each email
// into created, duplicate, or failed. One bad address never aborts the rest.
func (s *invitationService) CreateBatch(ctx context.Context, eventID string, emails []string, invitedBy string) (*domain.BatchInvitationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, _, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.OrganizerID != invitedBy {
		return nil, domain.ErrForbidden
	}

	result := &domain.BatchInvitationResult{
		Created:     []*domain.Invitation{},
		Duplicates:  []string{},
		Failed:      []string{},
		Invitations: []*domain.Invitation{},
	}
	for _, email := range emails {
		one, err := s.createOne(ctx, event, domain.CreateInvitationInput{EventID: eventID, Email: email}, invitedBy)
		if err != nil {
			result.Failed = append(result.Failed, email)
			continue
		}
		result.Invitations = append(result.Invitations, one.Invitation)
		if !one.IsNew {
			result.Duplicates = append(result.Duplicates, one.Invitation.Email)
			continue
		}
		if !s.dispatch(ctx, event, one.Invitation) {
			result.Failed = append(result.Failed, one.Invitation.Email)
			continue
		}
		result.Created = append(result.Created, one.Invitation)
	}
	return result, nil
}

func (s *invitationService) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.invitationRepo.GetByID(ctx, id)
}

func (s *invitationService) GetByTrackingToken(ctx context.Context, token string) (*domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.invitationRepo.GetByTrackingToken(ctx, token)
}

func (s *invitationService) GetByEmailAndEvent(ctx context.Context, eventID, email string) (*domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.invitationRepo.GetByEmailAndEvent(ctx, eventID, email)
}

func (s *invitationService) ListByEvent(ctx context.Context, eventID string, filter domain.InvitationFilter) ([]*domain.Invitation, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if filter.Status != nil && !domain.IsKnownStatus(*filter.Status) {
		return nil, 0, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, *filter.Status)
	}
	return s.invitationRepo.ListByEventID(ctx, eventID, filter)
}

// UpdateStatus validates the transition against the graph before persisting;
// an invalid transition is rejected with no write.
func (s *invitationService) UpdateStatus(ctx context.Context, id string, to domain.InvitationStatus, opts domain.UpdateStatusOptions) (*domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !domain.IsKnownStatus(to) {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, to)
	}
	inv, err := s.invitationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.IsValidTransition(inv.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, inv.Status, to)
	}
	return s.invitationRepo.UpdateStatus(ctx, id, inv.Status, to, opts)
}

func (s *invitationService) MarkAsSent(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.invitationRepo.MarkAsSent(ctx, id)
}

// MarkAsBounced moves the invitation into the terminal bounced state and
// records the reason in metadata. Bounced is only reachable from pending or
// sent; anything else is an invalid transition.
func (s *invitationService) MarkAsBounced(ctx context.Context, id, reason string) (*domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	inv, err := s.invitationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.IsValidTransition(inv.Status, domain.InvitationBounced) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, inv.Status, domain.InvitationBounced)
	}
	return s.invitationRepo.UpdateStatus(ctx, id, inv.Status, domain.InvitationBounced, domain.UpdateStatusOptions{Reason: reason})
}

func (s *invitationService) RecordOpen(ctx context.Context, token string) (*domain.TrackingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	inv, already, err := s.invitationRepo.RecordOpen(ctx, token)
	if err != nil {
		return nil, err
	}
	return &domain.TrackingResult{Invitation: inv, Already: already}, nil
}

func (s *invitationService) RecordClick(ctx context.Context, token string) (*domain.TrackingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	inv, already, err := s.invitationRepo.RecordClick(ctx, token)
	if err != nil {
		return nil, err
	}
	return &domain.TrackingResult{Invitation: inv, Already: already}, nil
}

func (s *invitationService) GetStats(ctx context.Context, eventID string) (*domain.InvitationStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.invitationRepo.Stats(ctx, eventID)
}

func (s *invitationService) GetCountsByStatus(ctx context.Context, eventID string) (map[domain.InvitationStatus]int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.invitationRepo.CountsByStatus(ctx, eventID)
}

func (s *invitationService) Remove(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.invitationRepo.Delete(ctx, id)
}

func (s *invitationService) RemoveAllForEvent(ctx context.Context, eventID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.invitationRepo.DeleteAllForEvent(ctx, eventID)
}

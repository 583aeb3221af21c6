package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatherly/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeInvitationRepo is an in-memory InvitationRepository with the same
// idempotency semantics as the relational implementation.
type fakeInvitationRepo struct {
	byID        map[string]*domain.Invitation
	markedSent  []string
	updateCalls int
}

func newFakeInvitationRepo() *fakeInvitationRepo {
	return &fakeInvitationRepo{byID: map[string]*domain.Invitation{}}
}

func (r *fakeInvitationRepo) add(inv *domain.Invitation) *domain.Invitation {
	r.byID[inv.ID] = inv
	return inv
}

func (r *fakeInvitationRepo) Create(_ context.Context, inv *domain.Invitation) (bool, *domain.Invitation, error) {
	for _, existing := range r.byID {
		if existing.EventID == inv.EventID && existing.Email == inv.Email {
			return false, existing, nil
		}
	}
	r.byID[inv.ID] = inv
	return true, inv, nil
}

func (r *fakeInvitationRepo) GetByID(_ context.Context, id string) (*domain.Invitation, error) {
	inv, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return inv, nil
}

func (r *fakeInvitationRepo) GetByTrackingToken(_ context.Context, token string) (*domain.Invitation, error) {
	for _, inv := range r.byID {
		if inv.TrackingToken == token {
			return inv, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeInvitationRepo) GetByEmailAndEvent(_ context.Context, eventID, email string) (*domain.Invitation, error) {
	for _, inv := range r.byID {
		if inv.EventID == eventID && inv.Email == domain.NormalizeEmail(email) {
			return inv, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeInvitationRepo) ListByEventID(_ context.Context, eventID string, filter domain.InvitationFilter) ([]*domain.Invitation, int, error) {
	out := []*domain.Invitation{}
	for _, inv := range r.byID {
		if inv.EventID != eventID {
			continue
		}
		if filter.Status != nil && inv.Status != *filter.Status {
			continue
		}
		out = append(out, inv)
	}
	return out, len(out), nil
}

func (r *fakeInvitationRepo) UpdateStatus(_ context.Context, id string, from, to domain.InvitationStatus, opts domain.UpdateStatusOptions) (*domain.Invitation, error) {
	r.updateCalls++
	inv, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if inv.Status != from || !domain.IsValidTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, inv.Status, to)
	}
	inv.Status = to
	if opts.Reason != "" {
		if inv.Metadata == nil {
			inv.Metadata = map[string]string{}
		}
		inv.Metadata["reason"] = opts.Reason
	}
	return inv, nil
}

func (r *fakeInvitationRepo) MarkAsSent(_ context.Context, id string) (bool, error) {
	inv, ok := r.byID[id]
	if !ok || inv.Status != domain.InvitationPending {
		return false, nil
	}
	inv.Status = domain.InvitationSent
	r.markedSent = append(r.markedSent, id)
	return true, nil
}

func (r *fakeInvitationRepo) RecordOpen(_ context.Context, token string) (*domain.Invitation, bool, error) {
	inv, err := r.GetByTrackingToken(context.Background(), token)
	if err != nil {
		return nil, false, err
	}
	if inv.OpenedAt != nil {
		return inv, true, nil
	}
	now := time.Now()
	inv.OpenedAt = &now
	if inv.Status == domain.InvitationSent {
		inv.Status = domain.InvitationOpened
	}
	return inv, false, nil
}

func (r *fakeInvitationRepo) RecordClick(_ context.Context, token string) (*domain.Invitation, bool, error) {
	inv, err := r.GetByTrackingToken(context.Background(), token)
	if err != nil {
		return nil, false, err
	}
	if inv.ClickedAt != nil {
		return inv, true, nil
	}
	now := time.Now()
	inv.ClickedAt = &now
	if inv.OpenedAt == nil {
		inv.OpenedAt = &now
	}
	if inv.Status == domain.InvitationSent || inv.Status == domain.InvitationOpened {
		inv.Status = domain.InvitationClicked
	}
	return inv, false, nil
}

func (r *fakeInvitationRepo) CountsByStatus(_ context.Context, eventID string) (map[domain.InvitationStatus]int, error) {
	counts := make(map[domain.InvitationStatus]int, len(domain.AllInvitationStatuses))
	for _, s := range domain.AllInvitationStatuses {
		counts[s] = 0
	}
	for _, inv := range r.byID {
		if inv.EventID == eventID {
			counts[inv.Status]++
		}
	}
	return counts, nil
}

func (r *fakeInvitationRepo) Stats(_ context.Context, eventID string) (*domain.InvitationStats, error) {
	stats := &domain.InvitationStats{}
	for _, inv := range r.byID {
		if inv.EventID != eventID {
			continue
		}
		stats.Total++
		if inv.SentAt != nil || inv.Status != domain.InvitationPending {
			stats.Sent++
		}
		if inv.OpenedAt != nil {
			stats.Opened++
		}
		if inv.ClickedAt != nil {
			stats.Clicked++
		}
	}
	stats.ComputeRates()
	return stats, nil
}

func (r *fakeInvitationRepo) Delete(_ context.Context, id string) (bool, error) {
	inv, ok := r.byID[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if inv.Status != domain.InvitationPending && inv.Status != domain.InvitationBounced {
		return false, nil
	}
	delete(r.byID, id)
	return true, nil
}

func (r *fakeInvitationRepo) DeleteAllForEvent(_ context.Context, eventID string) (int, error) {
	n := 0
	for id, inv := range r.byID {
		if inv.EventID == eventID {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

// fakeEventReader serves GetByID for the invitation service; the invitation
// flow never touches the other event operations.
type fakeEventReader struct {
	events map[string]*domain.Event
}

func (r *fakeEventReader) Create(context.Context, *domain.Event) error { return nil }

func (r *fakeEventReader) GetByID(_ context.Context, id string) (*domain.Event, domain.ReadMeta, error) {
	e, ok := r.events[id]
	if !ok {
		return nil, domain.ReadMeta{}, domain.ErrNotFound
	}
	return e, domain.ReadMeta{Source: domain.SourcePrimary}, nil
}

func (r *fakeEventReader) List(context.Context) ([]*domain.Event, domain.ReadMeta, error) {
	return nil, domain.ReadMeta{}, nil
}

func (r *fakeEventReader) ListByOrganizerID(context.Context, string) ([]*domain.Event, domain.ReadMeta, error) {
	return nil, domain.ReadMeta{}, nil
}

func (r *fakeEventReader) ListByCalendarID(context.Context, string) ([]*domain.Event, domain.ReadMeta, error) {
	return nil, domain.ReadMeta{}, nil
}

func (r *fakeEventReader) Search(context.Context, string) ([]*domain.Event, domain.ReadMeta, error) {
	return nil, domain.ReadMeta{}, nil
}

func (r *fakeEventReader) Update(context.Context, string, *domain.EventUpdate) (*domain.Event, error) {
	return nil, domain.ErrNotFound
}

func (r *fakeEventReader) Delete(context.Context, string) error { return nil }

type fakeEmailSender struct {
	sent    []*domain.InvitationEmailData
	failFor map[string]bool
}

func (f *fakeEmailSender) SendInvitation(_ context.Context, data *domain.InvitationEmailData) error {
	if f.failFor[data.Email] {
		return errors.New("smtp: relay unavailable")
	}
	f.sent = append(f.sent, data)
	return nil
}

const organizerID = "8d5b1f66-3a1d-4f5e-9b1c-0a2e4d6f8a10"

func testEvent() *domain.Event {
	date := time.Date(2025, 6, 14, 18, 0, 0, 0, time.UTC)
	return &domain.Event{
		ID:          "ev-1",
		Title:       "Summer Meetup",
		Date:        &date,
		OrganizerID: organizerID,
		Status:      domain.EventStatusPublished,
	}
}

func newInvitationFixture() (domain.InvitationService, *fakeInvitationRepo, *fakeEmailSender) {
	repo := newFakeInvitationRepo()
	email := &fakeEmailSender{failFor: map[string]bool{}}
	events := &fakeEventReader{events: map[string]*domain.Event{"ev-1": testEvent()}}
	svc := NewInvitationService(repo, events, email, "https://gatherly.example.com", time.Second, testLogger())
	return svc, repo, email
}

func TestInvitationServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates, dispatches, and marks sent", func(t *testing.T) {
		svc, repo, email := newInvitationFixture()

		result, err := svc.Create(ctx, domain.CreateInvitationInput{EventID: "ev-1", Email: "Guest@Example.COM"}, organizerID)
		require.NoError(t, err)
		require.True(t, result.IsNew)
		assert.Equal(t, "guest@example.com", result.Invitation.Email)
		assert.Equal(t, domain.InvitationSent, result.Invitation.Status)

		require.Len(t, email.sent, 1)
		assert.Contains(t, email.sent[0].OpenURL, "/t/o/"+result.Invitation.TrackingToken)
		assert.Contains(t, email.sent[0].ClickURL, "/t/c/"+result.Invitation.TrackingToken)
		assert.Equal(t, []string{result.Invitation.ID}, repo.markedSent)
	})

	t.Run("duplicate email returns the existing invitation without re-sending", func(t *testing.T) {
		svc, _, email := newInvitationFixture()

		first, err := svc.Create(ctx, domain.CreateInvitationInput{EventID: "ev-1", Email: "guest@example.com"}, organizerID)
		require.NoError(t, err)

		second, err := svc.Create(ctx, domain.CreateInvitationInput{EventID: "ev-1", Email: "  GUEST@example.com "}, organizerID)
		require.NoError(t, err)
		require.False(t, second.IsNew)
		assert.Equal(t, first.Invitation.ID, second.Invitation.ID)
		assert.Len(t, email.sent, 1)
	})

	t.Run("only the organizer may invite", func(t *testing.T) {
		svc, _, _ := newInvitationFixture()

		_, err := svc.Create(ctx, domain.CreateInvitationInput{EventID: "ev-1", Email: "guest@example.com"}, "someone-else")
		require.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("invalid email is rejected before any store call", func(t *testing.T) {
		svc, repo, _ := newInvitationFixture()

		_, err := svc.Create(ctx, domain.CreateInvitationInput{EventID: "ev-1", Email: "not-an-email"}, organizerID)
		require.ErrorIs(t, err, domain.ErrInvalidEmail)
		assert.Empty(t, repo.byID)
	})

	t.Run("unknown event is not found", func(t *testing.T) {
		svc, _, _ := newInvitationFixture()

		_, err := svc.Create(ctx, domain.CreateInvitationInput{EventID: "ev-missing", Email: "guest@example.com"}, organizerID)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("email dispatch failure leaves the invitation pending", func(t *testing.T) {
		svc, repo, email := newInvitationFixture()
		email.failFor["guest@example.com"] = true

		result, err := svc.Create(ctx, domain.CreateInvitationInput{EventID: "ev-1", Email: "guest@example.com"}, organizerID)
		require.NoError(t, err, "a failed dispatch is not a failed create")
		require.True(t, result.IsNew)

		stored := repo.byID[result.Invitation.ID]
		require.NotNil(t, stored)
		assert.Equal(t, domain.InvitationPending, stored.Status)
		assert.Empty(t, repo.markedSent)
	})
}

func TestInvitationServiceCreateBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("buckets created, duplicates, and failed independently", func(t *testing.T) {
		svc, _, email := newInvitationFixture()
		email.failFor["flaky@example.com"] = true

		_, err := svc.Create(ctx, domain.CreateInvitationInput{EventID: "ev-1", Email: "repeat@example.com"}, organizerID)
		require.NoError(t, err)

		result, err := svc.CreateBatch(ctx, "ev-1", []string{
			"new@example.com",
			"REPEAT@example.com",
			"bogus-address",
			"flaky@example.com",
		}, organizerID)
		require.NoError(t, err)

		require.Len(t, result.Created, 1)
		assert.Equal(t, "new@example.com", result.Created[0].Email)
		assert.Equal(t, []string{"repeat@example.com"}, result.Duplicates)
		assert.ElementsMatch(t, []string{"bogus-address", "flaky@example.com"}, result.Failed)
		// created + pre-existing + stored-but-undelivered
		assert.Len(t, result.Invitations, 3)
	})

	t.Run("only the organizer may batch invite", func(t *testing.T) {
		svc, _, _ := newInvitationFixture()

		_, err := svc.CreateBatch(ctx, "ev-1", []string{"a@example.com"}, "someone-else")
		require.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestInvitationServiceUpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("valid transition is persisted", func(t *testing.T) {
		svc, repo, _ := newInvitationFixture()
		repo.add(&domain.Invitation{ID: "inv-1", EventID: "ev-1", Email: "a@example.com", Status: domain.InvitationSent})

		inv, err := svc.UpdateStatus(ctx, "inv-1", domain.InvitationAccepted, domain.UpdateStatusOptions{})
		require.NoError(t, err)
		assert.Equal(t, domain.InvitationAccepted, inv.Status)
	})

	t.Run("invalid transition is rejected without a write", func(t *testing.T) {
		svc, repo, _ := newInvitationFixture()
		repo.add(&domain.Invitation{ID: "inv-1", EventID: "ev-1", Email: "a@example.com", Status: domain.InvitationAccepted})

		_, err := svc.UpdateStatus(ctx, "inv-1", domain.InvitationDeclined, domain.UpdateStatusOptions{})
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Zero(t, repo.updateCalls)
	})

	t.Run("unknown status is invalid input", func(t *testing.T) {
		svc, repo, _ := newInvitationFixture()
		repo.add(&domain.Invitation{ID: "inv-1", EventID: "ev-1", Email: "a@example.com", Status: domain.InvitationSent})

		_, err := svc.UpdateStatus(ctx, "inv-1", domain.InvitationStatus("archived"), domain.UpdateStatusOptions{})
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestInvitationServiceMarkAsBounced(t *testing.T) {
	ctx := context.Background()

	t.Run("bounces a sent invitation with a reason", func(t *testing.T) {
		svc, repo, _ := newInvitationFixture()
		repo.add(&domain.Invitation{ID: "inv-1", EventID: "ev-1", Email: "a@example.com", Status: domain.InvitationSent})

		inv, err := svc.MarkAsBounced(ctx, "inv-1", "mailbox full")
		require.NoError(t, err)
		assert.Equal(t, domain.InvitationBounced, inv.Status)
		assert.Equal(t, "mailbox full", inv.Metadata["reason"])
	})

	t.Run("cannot bounce an accepted invitation", func(t *testing.T) {
		svc, repo, _ := newInvitationFixture()
		repo.add(&domain.Invitation{ID: "inv-1", EventID: "ev-1", Email: "a@example.com", Status: domain.InvitationAccepted})

		_, err := svc.MarkAsBounced(ctx, "inv-1", "late bounce")
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestInvitationServiceTracking(t *testing.T) {
	ctx := context.Background()

	t.Run("open then repeat open", func(t *testing.T) {
		svc, repo, _ := newInvitationFixture()
		repo.add(&domain.Invitation{ID: "inv-1", EventID: "ev-1", Email: "a@example.com", Status: domain.InvitationSent, TrackingToken: "tok-1"})

		first, err := svc.RecordOpen(ctx, "tok-1")
		require.NoError(t, err)
		assert.False(t, first.Already)
		assert.Equal(t, domain.InvitationOpened, first.Invitation.Status)

		second, err := svc.RecordOpen(ctx, "tok-1")
		require.NoError(t, err)
		assert.True(t, second.Already)
	})

	t.Run("click stamps open too", func(t *testing.T) {
		svc, repo, _ := newInvitationFixture()
		repo.add(&domain.Invitation{ID: "inv-1", EventID: "ev-1", Email: "a@example.com", Status: domain.InvitationSent, TrackingToken: "tok-1"})

		result, err := svc.RecordClick(ctx, "tok-1")
		require.NoError(t, err)
		assert.False(t, result.Already)
		assert.Equal(t, domain.InvitationClicked, result.Invitation.Status)
		assert.NotNil(t, result.Invitation.OpenedAt)
	})

	t.Run("unknown token is not found", func(t *testing.T) {
		svc, _, _ := newInvitationFixture()

		_, err := svc.RecordOpen(ctx, "tok-unknown")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestInvitationServiceListByEvent(t *testing.T) {
	svc, repo, _ := newInvitationFixture()
	repo.add(&domain.Invitation{ID: "inv-1", EventID: "ev-1", Email: "a@example.com", Status: domain.InvitationSent})
	repo.add(&domain.Invitation{ID: "inv-2", EventID: "ev-1", Email: "b@example.com", Status: domain.InvitationPending})

	status := domain.InvitationSent
	invs, total, err := svc.ListByEvent(context.Background(), "ev-1", domain.InvitationFilter{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, invs, 1)
	assert.Equal(t, "inv-1", invs[0].ID)

	bad := domain.InvitationStatus("mystery")
	_, _, err = svc.ListByEvent(context.Background(), "ev-1", domain.InvitationFilter{Status: &bad})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestInvitationServiceRemove(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newInvitationFixture()
	repo.add(&domain.Invitation{ID: "inv-pending", EventID: "ev-1", Email: "a@example.com", Status: domain.InvitationPending})
	repo.add(&domain.Invitation{ID: "inv-accepted", EventID: "ev-1", Email: "b@example.com", Status: domain.InvitationAccepted})

	removed, err := svc.Remove(ctx, "inv-pending")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.Remove(ctx, "inv-accepted")
	require.NoError(t, err)
	assert.False(t, removed, "responded invitations are retained")
}

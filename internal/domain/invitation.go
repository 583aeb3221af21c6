package domain

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// InvitationStatus is the lifecycle state of an invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationSent     InvitationStatus = "sent"
	InvitationOpened   InvitationStatus = "opened"
	InvitationClicked  InvitationStatus = "clicked"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationBounced  InvitationStatus = "bounced"
)

// AllInvitationStatuses lists every status in lifecycle order. Counts keyed
// by status always cover this full set, zero counts included.
var AllInvitationStatuses = []InvitationStatus{
	InvitationPending,
	InvitationSent,
	InvitationOpened,
	InvitationClicked,
	InvitationAccepted,
	InvitationDeclined,
	InvitationBounced,
}

// invitationTransitions is the single source of truth for allowed status
// changes: pending → sent → opened → clicked → {accepted | declined}, with
// bounced reachable from pending or sent. Accepted, declined, and bounced
// are terminal. Every status-mutating operation consults this table; it is
// never re-implemented inline at call sites.
var invitationTransitions = map[InvitationStatus][]InvitationStatus{
	InvitationPending:  {InvitationSent, InvitationBounced},
	InvitationSent:     {InvitationOpened, InvitationClicked, InvitationAccepted, InvitationDeclined, InvitationBounced},
	InvitationOpened:   {InvitationClicked, InvitationAccepted, InvitationDeclined},
	InvitationClicked:  {InvitationAccepted, InvitationDeclined},
	InvitationAccepted: {},
	InvitationDeclined: {},
	InvitationBounced:  {},
}

// IsValidTransition reports whether an invitation may move from one status
// to another.
func IsValidTransition(from, to InvitationStatus) bool {
	for _, next := range invitationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether no further transitions are allowed.
func IsTerminalStatus(s InvitationStatus) bool {
	return len(invitationTransitions[s]) == 0
}

// IsKnownStatus reports whether s is one of the seven invitation statuses.
func IsKnownStatus(s InvitationStatus) bool {
	_, ok := invitationTransitions[s]
	return ok
}

// emailRegex matches a simple email format (local@domain with at least one
// dot in the domain). Deliverability is the mailer's problem; this only
// rejects obvious garbage before any store interaction.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// NormalizeEmail lowercases and trims an address. Invitation uniqueness is
// keyed on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail reports whether the normalized address has a plausible format.
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(NormalizeEmail(email))
}

// Invitation is an email invited to an event. At most one row exists per
// (EventID, normalized Email) pair; the unique constraint lives in the
// relational store and a violation is resolved to "return the existing
// record", never surfaced.
// swagger:model Invitation
type Invitation struct {
	ID            string            `json:"id"`
	EventID       string            `json:"event_id"`
	Email         string            `json:"email"`
	Status        InvitationStatus  `json:"status"`
	TrackingToken string            `json:"tracking_token"`
	InvitedBy     string            `json:"invited_by,omitempty"`
	SentAt        *time.Time        `json:"sent_at,omitempty"`
	OpenedAt      *time.Time        `json:"opened_at,omitempty"`
	ClickedAt     *time.Time        `json:"clicked_at,omitempty"`
	RespondedAt   *time.Time        `json:"responded_at,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// CreateInvitationInput is a single invitation candidate.
type CreateInvitationInput struct {
	EventID  string            `json:"event_id"`
	Email    string            `json:"email"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CreateInvitationResult reports whether the invitation was created by this
// call or already existed for the (event, email) pair.
type CreateInvitationResult struct {
	Invitation *Invitation `json:"invitation"`
	IsNew      bool        `json:"is_new"`
}

// BatchInvitationResult accumulates per-recipient outcomes of a batch
// create. Each candidate lands in exactly one of three buckets so callers
// can render per-recipient feedback; one failure never aborts the others.
type BatchInvitationResult struct {
	Created     []*Invitation `json:"created"`
	Duplicates  []string      `json:"duplicates"`
	Failed      []string      `json:"failed"`
	Invitations []*Invitation `json:"invitations"` // created + pre-existing, in input order
}

// TrackingResult is the outcome of recording an open or click. Already is
// true on repeats so callers can count unique events; the recorded
// timestamps never move forward on a repeat.
type TrackingResult struct {
	Invitation *Invitation `json:"invitation"`
	Already    bool        `json:"already"`
}

// InvitationFilter narrows and pages ListByEventID.
type InvitationFilter struct {
	Status *InvitationStatus
	Limit  int
	Offset int
}

// InvitationStats aggregates an event's invitation funnel. Rates are
// percentages with a zero denominator yielding zero. Sent/Opened/Clicked
// count invitations whose corresponding timestamp is set, so terminal states
// still count toward the funnel stages they passed through.
type InvitationStats struct {
	Total      int     `json:"total"`
	Sent       int     `json:"sent"`
	Opened     int     `json:"opened"`
	Clicked    int     `json:"clicked"`
	Accepted   int     `json:"accepted"`
	Declined   int     `json:"declined"`
	Bounced    int     `json:"bounced"`
	OpenRate   float64 `json:"open_rate"`
	ClickRate  float64 `json:"click_rate"`
	AcceptRate float64 `json:"accept_rate"`
}

// ComputeRates fills the derived rate fields from the counts.
func (s *InvitationStats) ComputeRates() {
	s.OpenRate = percentage(s.Opened, s.Sent)
	s.ClickRate = percentage(s.Clicked, s.Sent)
	s.AcceptRate = percentage(s.Accepted, s.Sent)
}

func percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// UpdateStatusOptions carries optional side data for a status change.
type UpdateStatusOptions struct {
	// Reason is recorded in metadata, e.g. a bounce reason.
	Reason string
}

// InvitationRepository stores invitations in the relational store, which
// owns the (event_id, email) unique constraint. Semantics:
//
//   - Create resolves a uniqueness race by re-fetching the existing row.
//   - UpdateStatus persists only transitions allowed by IsValidTransition.
//   - MarkAsSent is conditional: it no-ops when status is no longer pending.
//   - RecordOpen/RecordClick are keyed by tracking token and idempotent.
//   - Delete only removes pending or bounced rows; others are a no-op with
//     removed = false.
type InvitationRepository interface {
	Create(ctx context.Context, inv *Invitation) (created bool, existing *Invitation, err error)
	GetByID(ctx context.Context, id string) (*Invitation, error)
	GetByTrackingToken(ctx context.Context, token string) (*Invitation, error)
	GetByEmailAndEvent(ctx context.Context, eventID, email string) (*Invitation, error)
	ListByEventID(ctx context.Context, eventID string, filter InvitationFilter) ([]*Invitation, int, error)
	UpdateStatus(ctx context.Context, id string, from, to InvitationStatus, opts UpdateStatusOptions) (*Invitation, error)
	MarkAsSent(ctx context.Context, id string) (updated bool, err error)
	RecordOpen(ctx context.Context, token string) (*Invitation, bool, error)
	RecordClick(ctx context.Context, token string) (*Invitation, bool, error)
	CountsByStatus(ctx context.Context, eventID string) (map[InvitationStatus]int, error)
	Stats(ctx context.Context, eventID string) (*InvitationStats, error)
	Delete(ctx context.Context, id string) (removed bool, err error)
	DeleteAllForEvent(ctx context.Context, eventID string) (int, error)
}

// InvitationService is the application-facing surface for the invitation
// lifecycle. Create and CreateBatch dispatch the invitation email after the
// row is stored, then mark it sent.
type InvitationService interface {
	Create(ctx context.Context, input CreateInvitationInput, invitedBy string) (*CreateInvitationResult, error)
	CreateBatch(ctx context.Context, eventID string, emails []string, invitedBy string) (*BatchInvitationResult, error)
	GetByID(ctx context.Context, id string) (*Invitation, error)
	GetByTrackingToken(ctx context.Context, token string) (*Invitation, error)
	GetByEmailAndEvent(ctx context.Context, eventID, email string) (*Invitation, error)
	ListByEvent(ctx context.Context, eventID string, filter InvitationFilter) ([]*Invitation, int, error)
	UpdateStatus(ctx context.Context, id string, to InvitationStatus, opts UpdateStatusOptions) (*Invitation, error)
	MarkAsSent(ctx context.Context, id string) (bool, error)
	MarkAsBounced(ctx context.Context, id, reason string) (*Invitation, error)
	RecordOpen(ctx context.Context, token string) (*TrackingResult, error)
	RecordClick(ctx context.Context, token string) (*TrackingResult, error)
	GetStats(ctx context.Context, eventID string) (*InvitationStats, error)
	GetCountsByStatus(ctx context.Context, eventID string) (map[InvitationStatus]int, error)
	Remove(ctx context.Context, id string) (bool, error)
	RemoveAllForEvent(ctx context.Context, eventID string) (int, error)
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"gatherly/internal/domain"
)

type invitationRepository struct {
	DB *sql.DB
}

// NewInvitationRepository returns the InvitationRepository backed by the
// invitations table, which carries the UNIQUE (event_id, email) and
// UNIQUE (tracking_token) constraints.
func NewInvitationRepository(db *sql.DB) domain.InvitationRepository {
	return &invitationRepository{DB: db}
}

const invitationColumns = `id, event_id, email, status, tracking_token, invited_by,
		sent_at, opened_at, clicked_at, responded_at, metadata, created_at, updated_at`

func scanInvitation(row rowScanner) (*domain.Invitation, error) {
	inv := &domain.Invitation{}
	var (
		invitedBy sql.NullString
		sentAt    sql.NullTime
		openedAt  sql.NullTime
		clickedAt sql.NullTime
		respondAt sql.NullTime
		metadata  []byte
	)
	err := row.Scan(
		&inv.ID, &inv.EventID, &inv.Email, &inv.Status, &inv.TrackingToken, &invitedBy,
		&sentAt, &openedAt, &clickedAt, &respondAt, &metadata, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if invitedBy.Valid {
		inv.InvitedBy = invitedBy.String
	}
	if sentAt.Valid {
		inv.SentAt = &sentAt.Time
	}
	if openedAt.Valid {
		inv.OpenedAt = &openedAt.Time
	}
	if clickedAt.Valid {
		inv.ClickedAt = &clickedAt.Time
	}
	if respondAt.Valid {
		inv.RespondedAt = &respondAt.Time
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &inv.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal invitation metadata: %w", err)
		}
	}
	return inv, nil
}

// Create inserts the invitation. Two concurrent creates for the same
// (event_id, email) pair may both pass the caller's existence check; the
// unique constraint decides the winner and the loser re-fetches the existing
// row instead of surfacing the violation.
func (r *invitationRepository) Create(ctx context.Context, inv *domain.Invitation) (bool, *domain.Invitation, error) {
	metadata, err := json.Marshal(inv.Metadata)
	if err != nil {
		return false, nil, fmt.Errorf("marshal invitation metadata: %w", err)
	}
	query := `
		INSERT INTO invitations (id, event_id, email, status, tracking_token, invited_by, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.DB.ExecContext(ctx, query,
		inv.ID, inv.EventID, inv.Email, inv.Status, inv.TrackingToken,
		nullIfEmpty(inv.InvitedBy), metadata, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			existing, ferr := r.GetByEmailAndEvent(ctx, inv.EventID, inv.Email)
			if ferr != nil {
				return false, nil, fmt.Errorf("resolve duplicate invitation: %w", ferr)
			}
			return false, existing, nil
		}
		return false, nil, fmt.Errorf("insert invitation: %w", err)
	}
	return true, inv, nil
}

func (r *invitationRepository) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE id = $1`
	inv, err := scanInvitation(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapReadErr("get invitation", err)
	}
	return inv, nil
}

func (r *invitationRepository) GetByTrackingToken(ctx context.Context, token string) (*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE tracking_token = $1`
	inv, err := scanInvitation(r.DB.QueryRowContext(ctx, query, token))
	if err != nil {
		return nil, mapReadErr("get invitation by token", err)
	}
	return inv, nil
}

func (r *invitationRepository) GetByEmailAndEvent(ctx context.Context, eventID, email string) (*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE event_id = $1 AND email = $2`
	inv, err := scanInvitation(r.DB.QueryRowContext(ctx, query, eventID, domain.NormalizeEmail(email)))
	if err != nil {
		return nil, mapReadErr("get invitation by email", err)
	}
	return inv, nil
}

func (r *invitationRepository) ListByEventID(ctx context.Context, eventID string, filter domain.InvitationFilter) ([]*domain.Invitation, int, error) {
	where := `event_id = $1`
	args := []any{eventID}
	if filter.Status != nil {
		where += ` AND status = $2`
		args = append(args, *filter.Status)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM invitations WHERE ` + where
	if err := r.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invitations: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT `+invitationColumns+`
		FROM invitations
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, limit, filter.Offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	invs := make([]*domain.Invitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, 0, err
		}
		invs = append(invs, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return invs, total, nil
}

// UpdateStatus persists a validated transition. The WHERE clause re-checks
// the expected current status; losing a concurrent race surfaces as an
// invalid transition against the fresh status rather than a silent overwrite.
func (r *invitationRepository) UpdateStatus(ctx context.Context, id string, from, to domain.InvitationStatus, opts domain.UpdateStatusOptions) (*domain.Invitation, error) {
	if !domain.IsValidTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}
	query := `
		UPDATE invitations
		SET status = $1,
			sent_at = CASE WHEN $1 = 'sent' THEN COALESCE(sent_at, NOW()) ELSE sent_at END,
			opened_at = CASE WHEN $1 IN ('opened', 'clicked') THEN COALESCE(opened_at, NOW()) ELSE opened_at END,
			clicked_at = CASE WHEN $1 = 'clicked' THEN COALESCE(clicked_at, NOW()) ELSE clicked_at END,
			responded_at = CASE WHEN $1 IN ('accepted', 'declined') THEN COALESCE(responded_at, NOW()) ELSE responded_at END,
			metadata = CASE WHEN $2 <> '' THEN metadata || jsonb_build_object('reason', $2::text) ELSE metadata END,
			updated_at = NOW()
		WHERE id = $3 AND status = $4
		RETURNING ` + invitationColumns
	inv, err := scanInvitation(r.DB.QueryRowContext(ctx, query, to, opts.Reason, id, from))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The row moved out from under us (or never existed). Re-read so
			// the caller gets an accurate error.
			current, gerr := r.GetByID(ctx, id)
			if gerr != nil {
				return nil, gerr
			}
			return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current.Status, to)
		}
		return nil, fmt.Errorf("update invitation status: %w", err)
	}
	return inv, nil
}

// MarkAsSent is a conditional pending → sent update. A zero-row result means
// a concurrent dispatch got there first; that is a no-op, not an error.
func (r *invitationRepository) MarkAsSent(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE invitations
		SET status = 'sent', sent_at = COALESCE(sent_at, NOW()), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`
	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("mark invitation sent: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// RecordOpen stamps opened_at once per invitation. Repeats (and races
// between two pixel loads) resolve by re-reading the row and reporting
// already = true; opened_at never moves forward.
func (r *invitationRepository) RecordOpen(ctx context.Context, token string) (*domain.Invitation, bool, error) {
	query := `
		UPDATE invitations
		SET opened_at = NOW(),
			status = CASE WHEN status = 'sent' THEN 'opened' ELSE status END,
			updated_at = NOW()
		WHERE tracking_token = $1 AND opened_at IS NULL
		RETURNING ` + invitationColumns
	inv, err := scanInvitation(r.DB.QueryRowContext(ctx, query, token))
	if err == nil {
		return inv, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("record open: %w", err)
	}
	existing, err := r.GetByTrackingToken(ctx, token)
	if err != nil {
		return nil, false, err
	}
	return existing, true, nil
}

// RecordClick stamps clicked_at once; a click on a merely-sent invitation
// implies the open, so opened_at is backfilled when missing.
func (r *invitationRepository) RecordClick(ctx context.Context, token string) (*domain.Invitation, bool, error) {
	query := `
		UPDATE invitations
		SET clicked_at = NOW(),
			opened_at = COALESCE(opened_at, NOW()),
			status = CASE WHEN status IN ('sent', 'opened') THEN 'clicked' ELSE status END,
			updated_at = NOW()
		WHERE tracking_token = $1 AND clicked_at IS NULL
		RETURNING ` + invitationColumns
	inv, err := scanInvitation(r.DB.QueryRowContext(ctx, query, token))
	if err == nil {
		return inv, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("record click: %w", err)
	}
	existing, err := r.GetByTrackingToken(ctx, token)
	if err != nil {
		return nil, false, err
	}
	return existing, true, nil
}

func (r *invitationRepository) CountsByStatus(ctx context.Context, eventID string) (map[domain.InvitationStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM invitations WHERE event_id = $1 GROUP BY status`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("count invitations by status: %w", err)
	}
	defer rows.Close()

	// Every status is present in the result, zero counts included, so
	// callers can render a stable set of badges.
	counts := make(map[domain.InvitationStatus]int, len(domain.AllInvitationStatuses))
	for _, s := range domain.AllInvitationStatuses {
		counts[s] = 0
	}
	for rows.Next() {
		var status domain.InvitationStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// Stats derives funnel counts from the lifecycle timestamps, which survive
// terminal transitions, so an accepted invitation still counts as sent,
// opened, and clicked.
func (r *invitationRepository) Stats(ctx context.Context, eventID string) (*domain.InvitationStats, error) {
	query := `
		SELECT COUNT(*),
			COUNT(sent_at),
			COUNT(opened_at),
			COUNT(clicked_at),
			COUNT(*) FILTER (WHERE status = 'accepted'),
			COUNT(*) FILTER (WHERE status = 'declined'),
			COUNT(*) FILTER (WHERE status = 'bounced')
		FROM invitations
		WHERE event_id = $1
	`
	stats := &domain.InvitationStats{}
	err := r.DB.QueryRowContext(ctx, query, eventID).Scan(
		&stats.Total, &stats.Sent, &stats.Opened, &stats.Clicked,
		&stats.Accepted, &stats.Declined, &stats.Bounced,
	)
	if err != nil {
		return nil, fmt.Errorf("invitation stats: %w", err)
	}
	stats.ComputeRates()
	return stats, nil
}

// Delete removes only pending or bounced invitations. Anything already
// communicated to a recipient is retained for audit and analytics; the
// attempt reports removed = false instead of pretending to succeed.
func (r *invitationRepository) Delete(ctx context.Context, id string) (bool, error) {
	query := `DELETE FROM invitations WHERE id = $1 AND status IN ('pending', 'bounced')`
	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete invitation: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows > 0 {
		return true, nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *invitationRepository) DeleteAllForEvent(ctx context.Context, eventID string) (int, error) {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM invitations WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, fmt.Errorf("delete invitations for event: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

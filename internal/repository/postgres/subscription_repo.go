package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"gatherly/internal/domain"
)

type subscriptionRepository struct {
	DB *sql.DB
}

// NewSubscriptionRepository returns the SubscriptionRepository backed by the
// calendar_subscriptions table. The table carries UNIQUE (calendar_id,
// user_id); insert and delete triggers adjust calendars.subscriber_count, so
// this repository never touches the counter itself.
func NewSubscriptionRepository(db *sql.DB) domain.SubscriptionRepository {
	return &subscriptionRepository{DB: db}
}

const subscriptionColumns = `id, calendar_id, user_id, notify_new_events, notify_reminders, created_at`

func scanSubscription(row rowScanner) (*domain.CalendarSubscription, error) {
	sub := &domain.CalendarSubscription{}
	err := row.Scan(&sub.ID, &sub.CalendarID, &sub.UserID, &sub.NotifyNewEvents, &sub.NotifyReminders, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Subscribe is idempotent: ON CONFLICT DO NOTHING keeps the pair unique and
// the follow-up read returns whichever row exists, created by us or not.
func (r *subscriptionRepository) Subscribe(ctx context.Context, sub *domain.CalendarSubscription) (*domain.CalendarSubscription, error) {
	query := `
		INSERT INTO calendar_subscriptions (id, calendar_id, user_id, notify_new_events, notify_reminders, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (calendar_id, user_id) DO NOTHING
	`
	_, err := r.DB.ExecContext(ctx, query,
		sub.ID, sub.CalendarID, sub.UserID, sub.NotifyNewEvents, sub.NotifyReminders, sub.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert subscription: %w", err)
	}

	existing, err := r.getByPair(ctx, sub.CalendarID, sub.UserID)
	if err != nil {
		return nil, fmt.Errorf("read back subscription: %w", err)
	}
	return existing, nil
}

func (r *subscriptionRepository) getByPair(ctx context.Context, calendarID, userID string) (*domain.CalendarSubscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM calendar_subscriptions WHERE calendar_id = $1 AND user_id = $2`
	sub, err := scanSubscription(r.DB.QueryRowContext(ctx, query, calendarID, userID))
	if err != nil {
		return nil, mapReadErr("get subscription", err)
	}
	return sub, nil
}

// Unsubscribe when not subscribed is deliberately not an error.
func (r *subscriptionRepository) Unsubscribe(ctx context.Context, calendarID, userID string) error {
	query := `DELETE FROM calendar_subscriptions WHERE calendar_id = $1 AND user_id = $2`
	if _, err := r.DB.ExecContext(ctx, query, calendarID, userID); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.CalendarSubscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM calendar_subscriptions WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := make([]*domain.CalendarSubscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (r *subscriptionRepository) IsSubscribed(ctx context.Context, calendarID, userID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM calendar_subscriptions WHERE calendar_id = $1 AND user_id = $2)`
	if err := r.DB.QueryRowContext(ctx, query, calendarID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check subscription: %w", err)
	}
	return exists, nil
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gatherly/internal/domain"
)

type calendarMirrorRepository struct {
	DB *sql.DB
}

// NewCalendarMirrorRepository returns the secondary CalendarStore. The
// subscriber_count and event_count columns are maintained by store triggers
// on the subscriptions and events tables; this repository only ever reads them.
func NewCalendarMirrorRepository(db *sql.DB) domain.CalendarStore {
	return &calendarMirrorRepository{DB: db}
}

const calendarColumns = `id, owner_id, name, slug, description, color, cover_image,
		subscriber_count, event_count, is_private, is_global, created_at, updated_at`

func (r *calendarMirrorRepository) Create(ctx context.Context, c *domain.Calendar) error {
	query := `
		INSERT INTO calendars (id, owner_id, name, slug, description, color, cover_image, is_private, is_global, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.DB.ExecContext(ctx, query,
		c.ID, c.OwnerID, c.Name, c.Slug, c.Description, c.Color, c.CoverImage,
		c.IsPrivate, c.IsGlobal, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugTaken
		}
		return fmt.Errorf("insert calendar mirror: %w", err)
	}
	return nil
}

func (r *calendarMirrorRepository) GetByID(ctx context.Context, id string) (*domain.Calendar, error) {
	query := `SELECT ` + calendarColumns + ` FROM calendars WHERE id = $1`
	c, err := scanCalendar(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapReadErr("get calendar", err)
	}
	return c, nil
}

func (r *calendarMirrorRepository) GetBySlug(ctx context.Context, slug string) (*domain.Calendar, error) {
	query := `SELECT ` + calendarColumns + ` FROM calendars WHERE slug = $1`
	c, err := scanCalendar(r.DB.QueryRowContext(ctx, query, slug))
	if err != nil {
		return nil, mapReadErr("get calendar by slug", err)
	}
	return c, nil
}

func scanCalendar(row rowScanner) (*domain.Calendar, error) {
	c := &domain.Calendar{}
	err := row.Scan(
		&c.ID, &c.OwnerID, &c.Name, &c.Slug, &c.Description, &c.Color, &c.CoverImage,
		&c.SubscriberCount, &c.EventCount, &c.IsPrivate, &c.IsGlobal, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *calendarMirrorRepository) ListByOwnerID(ctx context.Context, ownerID string) ([]*domain.Calendar, error) {
	query := `SELECT ` + calendarColumns + ` FROM calendars WHERE owner_id = $1 ORDER BY created_at DESC`
	return r.queryCalendars(ctx, query, ownerID)
}

func (r *calendarMirrorRepository) ListPopular(ctx context.Context, limit int) ([]*domain.Calendar, error) {
	query := `
		SELECT ` + calendarColumns + `
		FROM calendars
		WHERE is_private = FALSE
		ORDER BY subscriber_count DESC
		LIMIT $1
	`
	return r.queryCalendars(ctx, query, limit)
}

func (r *calendarMirrorRepository) queryCalendars(ctx context.Context, query string, args ...any) ([]*domain.Calendar, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query calendars: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	calendars := make([]*domain.Calendar, 0)
	for rows.Next() {
		c, err := scanCalendar(rows)
		if err != nil {
			return nil, err
		}
		calendars = append(calendars, c)
	}
	return calendars, rows.Err()
}

func (r *calendarMirrorRepository) Update(ctx context.Context, id string, update *domain.CalendarUpdate, updatedAt time.Time) error {
	setClauses := []string{"updated_at = $1"}
	args := []any{updatedAt}
	n := 2

	add := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, n))
		args = append(args, value)
		n++
	}
	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.Color != nil {
		add("color", *update.Color)
	}
	if update.CoverImage != nil {
		add("cover_image", *update.CoverImage)
	}
	if update.IsPrivate != nil {
		add("is_private", *update.IsPrivate)
	}
	if update.IsGlobal != nil {
		add("is_global", *update.IsGlobal)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE calendars SET %s WHERE id = $%d`, strings.Join(setClauses, ", "), n)
	result, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update calendar mirror: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *calendarMirrorRepository) Delete(ctx context.Context, id string) error {
	// Subscriptions cascade via the foreign key.
	result, err := r.DB.ExecContext(ctx, `DELETE FROM calendars WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete calendar mirror: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

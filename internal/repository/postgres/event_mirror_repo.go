package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gatherly/internal/domain"
)

type eventMirrorRepository struct {
	DB *sql.DB
}

// NewEventMirrorRepository returns the secondary EventStore. Writes here are
// issued best-effort by the dual-write layer after the primary succeeds.
func NewEventMirrorRepository(db *sql.DB) domain.EventStore {
	return &eventMirrorRepository{DB: db}
}

const eventColumns = `id, title, description, date, location, city, lat, lng,
		organizer_id, calendar_id, status, visibility, capacity, price, currency, stake_amount,
		social_links, agenda, hosts, about, registration_questions, created_at, updated_at`

func (r *eventMirrorRepository) Create(ctx context.Context, e *domain.Event) error {
	social, agenda, hosts, about, questions, err := marshalEventDocs(e)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = r.DB.ExecContext(ctx, query,
		e.ID, e.Title, e.Description, e.Date, e.Location, e.City, e.Lat, e.Lng,
		e.OrganizerID, nullIfEmpty(e.CalendarID), e.Status, e.Visibility, e.Capacity, e.Price, e.Currency, e.StakeAmount,
		social, agenda, hosts, about, questions, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event mirror: %w", err)
	}
	return nil
}

func marshalEventDocs(e *domain.Event) (social, agenda, hosts, about, questions []byte, err error) {
	if social, err = json.Marshal(e.SocialLinks); err == nil {
		if agenda, err = json.Marshal(e.Agenda); err == nil {
			if hosts, err = json.Marshal(e.Hosts); err == nil {
				if about, err = json.Marshal(e.About); err == nil {
					questions, err = json.Marshal(e.RegistrationQuestions)
				}
			}
		}
	}
	if err != nil {
		err = fmt.Errorf("marshal event fields: %w", err)
	}
	return
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *eventMirrorRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapReadErr("get event", err)
	}
	return e, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var (
		date       sql.NullTime
		lat, lng   sql.NullFloat64
		calendarID sql.NullString
	)
	var social, agenda, hosts, about, questions []byte
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &date, &e.Location, &e.City, &lat, &lng,
		&e.OrganizerID, &calendarID, &e.Status, &e.Visibility, &e.Capacity, &e.Price, &e.Currency, &e.StakeAmount,
		&social, &agenda, &hosts, &about, &questions, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if date.Valid {
		e.Date = &date.Time
	}
	if lat.Valid {
		e.Lat = &lat.Float64
	}
	if lng.Valid {
		e.Lng = &lng.Float64
	}
	if calendarID.Valid {
		e.CalendarID = calendarID.String
	}
	for _, pair := range []struct {
		raw []byte
		dst any
	}{
		{social, &e.SocialLinks},
		{agenda, &e.Agenda},
		{hosts, &e.Hosts},
		{about, &e.About},
		{questions, &e.RegistrationQuestions},
	} {
		if len(pair.raw) > 0 {
			if err := json.Unmarshal(pair.raw, pair.dst); err != nil {
				return nil, fmt.Errorf("unmarshal event fields: %w", err)
			}
		}
	}
	return e, nil
}

func (r *eventMirrorRepository) List(ctx context.Context) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY created_at DESC`
	return r.queryEvents(ctx, query)
}

func (r *eventMirrorRepository) ListByOrganizerID(ctx context.Context, organizerID string) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE organizer_id = $1 ORDER BY created_at DESC`
	return r.queryEvents(ctx, query, organizerID)
}

func (r *eventMirrorRepository) ListByCalendarID(ctx context.Context, calendarID string) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE calendar_id = $1 ORDER BY created_at DESC`
	return r.queryEvents(ctx, query, calendarID)
}

func (r *eventMirrorRepository) Search(ctx context.Context, q string) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE title ILIKE $1 OR description ILIKE $1 OR city ILIKE $1 OR location ILIKE $1
		ORDER BY created_at DESC
	`
	return r.queryEvents(ctx, query, "%"+q+"%")
}

func (r *eventMirrorRepository) queryEvents(ctx context.Context, query string, args ...any) ([]*domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query events: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventMirrorRepository) Update(ctx context.Context, id string, update *domain.EventUpdate, updatedAt time.Time) error {
	setClauses := []string{"updated_at = $1"}
	args := []any{updatedAt}
	n := 2

	add := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, n))
		args = append(args, value)
		n++
	}
	addJSON := func(column string, value any) error {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", column, err)
		}
		add(column, raw)
		return nil
	}

	if update.Title != nil {
		add("title", *update.Title)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.Date != nil {
		add("date", *update.Date)
	}
	if update.Location != nil {
		add("location", *update.Location)
	}
	if update.City != nil {
		add("city", *update.City)
	}
	if update.Lat != nil {
		add("lat", *update.Lat)
	}
	if update.Lng != nil {
		add("lng", *update.Lng)
	}
	if update.CalendarID != nil {
		add("calendar_id", nullIfEmpty(*update.CalendarID))
	}
	if update.Status != nil {
		add("status", *update.Status)
	}
	if update.Visibility != nil {
		add("visibility", *update.Visibility)
	}
	if update.Capacity != nil {
		add("capacity", *update.Capacity)
	}
	if update.Price != nil {
		add("price", *update.Price)
	}
	if update.Currency != nil {
		add("currency", *update.Currency)
	}
	if update.StakeAmount != nil {
		add("stake_amount", *update.StakeAmount)
	}
	if update.SocialLinks != nil {
		if err := addJSON("social_links", *update.SocialLinks); err != nil {
			return err
		}
	}
	if update.Agenda != nil {
		if err := addJSON("agenda", *update.Agenda); err != nil {
			return err
		}
	}
	if update.Hosts != nil {
		if err := addJSON("hosts", *update.Hosts); err != nil {
			return err
		}
	}
	if update.About != nil {
		if err := addJSON("about", *update.About); err != nil {
			return err
		}
	}
	if update.RegistrationQuestions != nil {
		if err := addJSON("registration_questions", *update.RegistrationQuestions); err != nil {
			return err
		}
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE events SET %s WHERE id = $%d`, strings.Join(setClauses, ", "), n)
	result, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update event mirror: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventMirrorRepository) Delete(ctx context.Context, id string) error {
	// Invitations cascade via the events_id foreign key.
	result, err := r.DB.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event mirror: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

package domain

import (
	"context"
	"regexp"
	"time"
)

// Calendar groups events under an owner with a URL-safe slug.
// SubscriberCount and EventCount are denormalized counters maintained by
// triggers in the relational store; application code never read-modify-writes
// them.
// swagger:model Calendar
type Calendar struct {
	ID              string    `json:"id" bson:"_id"`
	OwnerID         string    `json:"owner_id" bson:"owner_id"`
	Name            string    `json:"name" bson:"name"`
	Slug            string    `json:"slug" bson:"slug"`
	Description     string    `json:"description,omitempty" bson:"description,omitempty"`
	Color           string    `json:"color,omitempty" bson:"color,omitempty"`
	CoverImage      string    `json:"cover_image,omitempty" bson:"cover_image,omitempty"`
	SubscriberCount int       `json:"subscriber_count" bson:"subscriber_count"`
	EventCount      int       `json:"event_count" bson:"event_count"`
	IsPrivate       bool      `json:"is_private" bson:"is_private"`
	IsGlobal        bool      `json:"is_global" bson:"is_global"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

// slugRegex matches lowercase URL-safe slugs: letters, digits, hyphens,
// no leading/trailing hyphen.
var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// IsValidSlug reports whether slug is URL-safe.
func IsValidSlug(slug string) bool {
	return slug != "" && len(slug) <= 64 && slugRegex.MatchString(slug)
}

// Validate checks the invariants that must hold before a calendar is persisted.
func (c *Calendar) Validate() []string {
	var errs []string
	if c.Name == "" {
		errs = append(errs, "name is required")
	}
	if c.OwnerID == "" {
		errs = append(errs, "owner_id is required")
	} else if !IsWellFormedID(c.OwnerID) {
		errs = append(errs, "owner_id is not a well-formed identifier")
	}
	if !IsValidSlug(c.Slug) {
		errs = append(errs, "slug must be lowercase letters, digits, and hyphens")
	}
	return errs
}

// CalendarUpdate is a partial update; nil fields are left untouched.
// Counters and slug are deliberately not updatable here: counters belong to
// store triggers, and slug changes would break published URLs.
type CalendarUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
	CoverImage  *string `json:"cover_image,omitempty"`
	IsPrivate   *bool   `json:"is_private,omitempty"`
	IsGlobal    *bool   `json:"is_global,omitempty"`
}

// IsEmpty reports whether the update contains no fields.
func (u *CalendarUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.Color == nil &&
		u.CoverImage == nil && u.IsPrivate == nil && u.IsGlobal == nil
}

// Apply merges the update into a copy of c and refreshes UpdatedAt.
func (u *CalendarUpdate) Apply(c *Calendar, now time.Time) *Calendar {
	out := *c
	if u.Name != nil {
		out.Name = *u.Name
	}
	if u.Description != nil {
		out.Description = *u.Description
	}
	if u.Color != nil {
		out.Color = *u.Color
	}
	if u.CoverImage != nil {
		out.CoverImage = *u.CoverImage
	}
	if u.IsPrivate != nil {
		out.IsPrivate = *u.IsPrivate
	}
	if u.IsGlobal != nil {
		out.IsGlobal = *u.IsGlobal
	}
	out.UpdatedAt = now
	return &out
}

// CalendarSubscription links a user to a calendar. At most one row exists
// per (CalendarID, UserID) pair; the unique constraint lives in the
// relational store, and subscriber counters are updated by its triggers as a
// side effect of this entity's lifecycle.
// swagger:model CalendarSubscription
type CalendarSubscription struct {
	ID              string    `json:"id"`
	CalendarID      string    `json:"calendar_id"`
	UserID          string    `json:"user_id"`
	NotifyNewEvents bool      `json:"notify_new_events"`
	NotifyReminders bool      `json:"notify_reminders"`
	CreatedAt       time.Time `json:"created_at"`
}

// CalendarStore is the contract a single backing store implements for
// calendars. Same error conventions as EventStore.
type CalendarStore interface {
	Create(ctx context.Context, c *Calendar) error
	GetByID(ctx context.Context, id string) (*Calendar, error)
	GetBySlug(ctx context.Context, slug string) (*Calendar, error)
	ListByOwnerID(ctx context.Context, ownerID string) ([]*Calendar, error)
	ListPopular(ctx context.Context, limit int) ([]*Calendar, error)
	Update(ctx context.Context, id string, update *CalendarUpdate, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// CalendarRepository is the caller-facing dual-write contract for calendars.
type CalendarRepository interface {
	Create(ctx context.Context, c *Calendar) error
	GetByID(ctx context.Context, id string) (*Calendar, ReadMeta, error)
	GetBySlug(ctx context.Context, slug string) (*Calendar, ReadMeta, error)
	ListByOwnerID(ctx context.Context, ownerID string) ([]*Calendar, ReadMeta, error)
	ListPopular(ctx context.Context, limit int) ([]*Calendar, ReadMeta, error)
	Update(ctx context.Context, id string, update *CalendarUpdate) (*Calendar, error)
	Delete(ctx context.Context, id string) error
}

// SubscriptionRepository stores calendar subscriptions in the relational
// store. Subscribe and Unsubscribe are idempotent: subscribing twice never
// creates two rows, unsubscribing when not subscribed is not an error.
type SubscriptionRepository interface {
	Subscribe(ctx context.Context, sub *CalendarSubscription) (*CalendarSubscription, error)
	Unsubscribe(ctx context.Context, calendarID, userID string) error
	ListByUserID(ctx context.Context, userID string) ([]*CalendarSubscription, error)
	IsSubscribed(ctx context.Context, calendarID, userID string) (bool, error)
}

// CalendarService is the application-facing surface for calendar operations.
type CalendarService interface {
	CreateCalendar(ctx context.Context, c *Calendar) error
	GetCalendarByID(ctx context.Context, id string) (*Calendar, ReadMeta, error)
	GetCalendarBySlug(ctx context.Context, slug string) (*Calendar, ReadMeta, error)
	ListCalendarsByOwner(ctx context.Context, ownerID string) ([]*Calendar, ReadMeta, error)
	ListPopularCalendars(ctx context.Context, limit int) ([]*Calendar, ReadMeta, error)
	UpdateCalendar(ctx context.Context, id, callerID string, update *CalendarUpdate) (*Calendar, error)
	DeleteCalendar(ctx context.Context, id, callerID string) error
	IsSlugAvailable(ctx context.Context, slug string) (bool, error)
	Subscribe(ctx context.Context, calendarID, userID string, notifyNewEvents, notifyReminders bool) (*CalendarSubscription, error)
	Unsubscribe(ctx context.Context, calendarID, userID string) error
	ListSubscriptions(ctx context.Context, userID string) ([]*CalendarSubscription, error)
	IsSubscribed(ctx context.Context, calendarID, userID string) (bool, error)
}

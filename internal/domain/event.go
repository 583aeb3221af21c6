package domain

import (
	"context"
	"regexp"
	"time"
)

// EventStatus is the publication state of an event.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusArchived  EventStatus = "archived"
	EventStatusLive      EventStatus = "live"
	EventStatusEnded     EventStatus = "ended"
)

// EventVisibility controls who can see an event.
type EventVisibility string

const (
	VisibilityPublic  EventVisibility = "public"
	VisibilityPrivate EventVisibility = "private"
)

// SocialLink is a labeled external link attached to an event.
type SocialLink struct {
	Platform string `json:"platform" bson:"platform"`
	URL      string `json:"url" bson:"url"`
}

// AgendaItem is one entry of an event's schedule, ordered by Position.
type AgendaItem struct {
	Position    int    `json:"position" bson:"position"`
	Time        string `json:"time" bson:"time"`
	Title       string `json:"title" bson:"title"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
}

// Host is a person presenting or organizing the event.
type Host struct {
	Position int    `json:"position" bson:"position"`
	Name     string `json:"name" bson:"name"`
	Role     string `json:"role,omitempty" bson:"role,omitempty"`
	Avatar   string `json:"avatar,omitempty" bson:"avatar,omitempty"`
}

// AboutSection is a block of descriptive event content, ordered by Position.
type AboutSection struct {
	Position int    `json:"position" bson:"position"`
	Heading  string `json:"heading" bson:"heading"`
	Body     string `json:"body" bson:"body"`
}

// RegistrationQuestion is a custom question asked at registration time.
type RegistrationQuestion struct {
	Position int    `json:"position" bson:"position"`
	Label    string `json:"label" bson:"label"`
	Kind     string `json:"kind" bson:"kind"` // text, select, checkbox
	Required bool   `json:"required" bson:"required"`
}

// Event represents a hosted event.
// swagger:model Event
type Event struct {
	ID          string          `json:"id" bson:"_id"`
	Title       string          `json:"title" bson:"title"`
	Description string          `json:"description,omitempty" bson:"description,omitempty"`
	Date        *time.Time      `json:"date,omitempty" bson:"date,omitempty"`
	Location    string          `json:"location,omitempty" bson:"location,omitempty"`
	City        string          `json:"city,omitempty" bson:"city,omitempty"`
	Lat         *float64        `json:"lat,omitempty" bson:"lat,omitempty"`
	Lng         *float64        `json:"lng,omitempty" bson:"lng,omitempty"`
	OrganizerID string          `json:"organizer_id" bson:"organizer_id"`
	CalendarID  string          `json:"calendar_id,omitempty" bson:"calendar_id,omitempty"`
	Status      EventStatus     `json:"status" bson:"status"`
	Visibility  EventVisibility `json:"visibility" bson:"visibility"`
	Capacity    int             `json:"capacity" bson:"capacity"`
	Price       float64         `json:"price" bson:"price"`
	Currency    string          `json:"currency,omitempty" bson:"currency,omitempty"`
	StakeAmount float64         `json:"stake_amount" bson:"stake_amount"`

	SocialLinks           []SocialLink           `json:"social_links,omitempty" bson:"social_links,omitempty"`
	Agenda                []AgendaItem           `json:"agenda,omitempty" bson:"agenda,omitempty"`
	Hosts                 []Host                 `json:"hosts,omitempty" bson:"hosts,omitempty"`
	About                 []AboutSection         `json:"about,omitempty" bson:"about,omitempty"`
	RegistrationQuestions []RegistrationQuestion `json:"registration_questions,omitempty" bson:"registration_questions,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// uuidRegex matches a canonical UUID string (8-4-4-4-12 hex).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsWellFormedID reports whether id is a canonical UUID. Records are never
// persisted with a malformed organizer or owner id.
func IsWellFormedID(id string) bool {
	return uuidRegex.MatchString(id)
}

// Validate checks the invariants that must hold before an event is persisted.
func (e *Event) Validate() []string {
	var errs []string
	if e.Title == "" {
		errs = append(errs, "title is required")
	}
	if e.OrganizerID == "" {
		errs = append(errs, "organizer_id is required")
	} else if !IsWellFormedID(e.OrganizerID) {
		errs = append(errs, "organizer_id is not a well-formed identifier")
	}
	if e.CalendarID != "" && !IsWellFormedID(e.CalendarID) {
		errs = append(errs, "calendar_id is not a well-formed identifier")
	}
	return errs
}

// EventUpdate is a partial update. Nil fields are left untouched in both
// stores; there is no implicit nulling.
type EventUpdate struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Date        *time.Time       `json:"date,omitempty"`
	Location    *string          `json:"location,omitempty"`
	City        *string          `json:"city,omitempty"`
	Lat         *float64         `json:"lat,omitempty"`
	Lng         *float64         `json:"lng,omitempty"`
	CalendarID  *string          `json:"calendar_id,omitempty"`
	Status      *EventStatus     `json:"status,omitempty"`
	Visibility  *EventVisibility `json:"visibility,omitempty"`
	Capacity    *int             `json:"capacity,omitempty"`
	Price       *float64         `json:"price,omitempty"`
	Currency    *string          `json:"currency,omitempty"`
	StakeAmount *float64         `json:"stake_amount,omitempty"`

	SocialLinks           *[]SocialLink           `json:"social_links,omitempty"`
	Agenda                *[]AgendaItem           `json:"agenda,omitempty"`
	Hosts                 *[]Host                 `json:"hosts,omitempty"`
	About                 *[]AboutSection         `json:"about,omitempty"`
	RegistrationQuestions *[]RegistrationQuestion `json:"registration_questions,omitempty"`
}

// IsEmpty reports whether the update contains no fields.
func (u *EventUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Date == nil &&
		u.Location == nil && u.City == nil && u.Lat == nil && u.Lng == nil &&
		u.CalendarID == nil && u.Status == nil && u.Visibility == nil &&
		u.Capacity == nil && u.Price == nil && u.Currency == nil &&
		u.StakeAmount == nil && u.SocialLinks == nil && u.Agenda == nil &&
		u.Hosts == nil && u.About == nil && u.RegistrationQuestions == nil
}

// Apply merges the update into a copy of e and refreshes UpdatedAt. The
// result is the pre-update object plus the supplied fields; it is not
// guaranteed to match a subsequent read byte for byte, since secondary-store
// triggers may alter counters independently.
func (u *EventUpdate) Apply(e *Event, now time.Time) *Event {
	out := *e
	if u.Title != nil {
		out.Title = *u.Title
	}
	if u.Description != nil {
		out.Description = *u.Description
	}
	if u.Date != nil {
		out.Date = u.Date
	}
	if u.Location != nil {
		out.Location = *u.Location
	}
	if u.City != nil {
		out.City = *u.City
	}
	if u.Lat != nil {
		out.Lat = u.Lat
	}
	if u.Lng != nil {
		out.Lng = u.Lng
	}
	if u.CalendarID != nil {
		out.CalendarID = *u.CalendarID
	}
	if u.Status != nil {
		out.Status = *u.Status
	}
	if u.Visibility != nil {
		out.Visibility = *u.Visibility
	}
	if u.Capacity != nil {
		out.Capacity = *u.Capacity
	}
	if u.Price != nil {
		out.Price = *u.Price
	}
	if u.Currency != nil {
		out.Currency = *u.Currency
	}
	if u.StakeAmount != nil {
		out.StakeAmount = *u.StakeAmount
	}
	if u.SocialLinks != nil {
		out.SocialLinks = *u.SocialLinks
	}
	if u.Agenda != nil {
		out.Agenda = *u.Agenda
	}
	if u.Hosts != nil {
		out.Hosts = *u.Hosts
	}
	if u.About != nil {
		out.About = *u.About
	}
	if u.RegistrationQuestions != nil {
		out.RegistrationQuestions = *u.RegistrationQuestions
	}
	out.UpdatedAt = now
	return &out
}

// EventStore is the contract a single backing store (primary or secondary)
// implements for events. A store returns ErrNotFound for a genuinely missing
// record and ErrStoreUnavailable (wrapped) when it cannot be reached, so the
// dual-write layer can tell absence from degradation.
type EventStore interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context) ([]*Event, error)
	ListByOrganizerID(ctx context.Context, organizerID string) ([]*Event, error)
	ListByCalendarID(ctx context.Context, calendarID string) ([]*Event, error)
	Search(ctx context.Context, query string) ([]*Event, error)
	Update(ctx context.Context, id string, update *EventUpdate, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// EventRepository is the caller-facing contract: dual writes with a primary
// system of record and a best-effort secondary, reads with fallback. List
// reads carry a ReadMeta so callers can distinguish an empty result from a
// degraded one.
type EventRepository interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id string) (*Event, ReadMeta, error)
	List(ctx context.Context) ([]*Event, ReadMeta, error)
	ListByOrganizerID(ctx context.Context, organizerID string) ([]*Event, ReadMeta, error)
	ListByCalendarID(ctx context.Context, calendarID string) ([]*Event, ReadMeta, error)
	Search(ctx context.Context, query string) ([]*Event, ReadMeta, error)
	Update(ctx context.Context, id string, update *EventUpdate) (*Event, error)
	Delete(ctx context.Context, id string) error
}

// EventService is the application-facing surface for event operations.
type EventService interface {
	CreateEvent(ctx context.Context, e *Event) error
	GetEventByID(ctx context.Context, id string) (*Event, ReadMeta, error)
	ListEvents(ctx context.Context) ([]*Event, ReadMeta, error)
	ListEventsByOrganizer(ctx context.Context, organizerID string) ([]*Event, ReadMeta, error)
	ListEventsByCalendar(ctx context.Context, calendarID string) ([]*Event, ReadMeta, error)
	SearchEvents(ctx context.Context, query string) ([]*Event, ReadMeta, error)
	UpdateEvent(ctx context.Context, id, callerID string, update *EventUpdate) (*Event, error)
	DeleteEvent(ctx context.Context, id, callerID string) error
}

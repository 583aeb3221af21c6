package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gatherly/internal/domain"
)

const eventsCollection = "events"

type eventStore struct {
	col *mongo.Collection
}

// NewEventStore returns the primary EventStore backed by the events collection.
func NewEventStore(db *mongo.Database) domain.EventStore {
	return &eventStore{col: db.Collection(eventsCollection)}
}

// EnsureEventIndexes creates the query indexes the event store relies on.
func EnsureEventIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(eventsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "organizer_id", Value: 1}},
			Options: options.Index().SetName("events_organizer"),
		},
		{
			Keys:    bson.D{{Key: "calendar_id", Value: 1}},
			Options: options.Index().SetName("events_calendar"),
		},
		{
			Keys:    bson.D{{Key: "date", Value: 1}},
			Options: options.Index().SetName("events_date"),
		},
	})
	if err != nil {
		return fmt.Errorf("events indexes: %w", err)
	}
	return nil
}

func (s *eventStore) Create(ctx context.Context, e *domain.Event) error {
	if _, err := s.col.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *eventStore) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	var e domain.Event
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		return nil, mapReadErr("get event", err)
	}
	return &e, nil
}

func (s *eventStore) List(ctx context.Context) ([]*domain.Event, error) {
	return s.find(ctx, bson.M{})
}

func (s *eventStore) ListByOrganizerID(ctx context.Context, organizerID string) ([]*domain.Event, error) {
	return s.find(ctx, bson.M{"organizer_id": organizerID})
}

func (s *eventStore) ListByCalendarID(ctx context.Context, calendarID string) ([]*domain.Event, error) {
	return s.find(ctx, bson.M{"calendar_id": calendarID})
}

func (s *eventStore) Search(ctx context.Context, query string) ([]*domain.Event, error) {
	pattern := primitiveRegex(query)
	return s.find(ctx, bson.M{"$or": bson.A{
		bson.M{"title": pattern},
		bson.M{"description": pattern},
		bson.M{"city": pattern},
		bson.M{"location": pattern},
	}})
}

func primitiveRegex(query string) bson.M {
	return bson.M{"$regex": query, "$options": "i"}
}

func (s *eventStore) find(ctx context.Context, filter bson.M) ([]*domain.Event, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.col.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: find events: %v", domain.ErrStoreUnavailable, err)
	}
	defer cur.Close(ctx)

	events := make([]*domain.Event, 0)
	for cur.Next(ctx) {
		var e domain.Event
		if err := cur.Decode(&e); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, &e)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%w: events cursor: %v", domain.ErrStoreUnavailable, err)
	}
	return events, nil
}

func (s *eventStore) Update(ctx context.Context, id string, update *domain.EventUpdate, updatedAt time.Time) error {
	set := bson.M{"updated_at": updatedAt}
	setField(set, "title", update.Title)
	setField(set, "description", update.Description)
	setField(set, "date", update.Date)
	setField(set, "location", update.Location)
	setField(set, "city", update.City)
	setField(set, "lat", update.Lat)
	setField(set, "lng", update.Lng)
	setField(set, "calendar_id", update.CalendarID)
	setField(set, "status", update.Status)
	setField(set, "visibility", update.Visibility)
	setField(set, "capacity", update.Capacity)
	setField(set, "price", update.Price)
	setField(set, "currency", update.Currency)
	setField(set, "stake_amount", update.StakeAmount)
	setField(set, "social_links", update.SocialLinks)
	setField(set, "agenda", update.Agenda)
	setField(set, "hosts", update.Hosts)
	setField(set, "about", update.About)
	setField(set, "registration_questions", update.RegistrationQuestions)

	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// setField adds a $set entry only when the pointer is non-nil, so absent
// fields in a partial update are left untouched.
func setField[T any](set bson.M, key string, v *T) {
	if v != nil {
		set[key] = *v
	}
}

func (s *eventStore) Delete(ctx context.Context, id string) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

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

const calendarsCollection = "calendars"

type calendarStore struct {
	col *mongo.Collection
}

// NewCalendarStore returns the primary CalendarStore backed by the calendars collection.
func NewCalendarStore(db *mongo.Database) domain.CalendarStore {
	return &calendarStore{col: db.Collection(calendarsCollection)}
}

// EnsureCalendarIndexes creates the unique slug index. The index is the
// authoritative slug-uniqueness guarantee; IsSlugAvailable is advisory only.
func EnsureCalendarIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(calendarsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("calendars_slug_unique"),
		},
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}},
			Options: options.Index().SetName("calendars_owner"),
		},
	})
	if err != nil {
		return fmt.Errorf("calendars indexes: %w", err)
	}
	return nil
}

func (s *calendarStore) Create(ctx context.Context, c *domain.Calendar) error {
	if _, err := s.col.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// The advisory pre-check can pass and still lose the race; the
			// constraint is what actually guarantees slug uniqueness.
			return domain.ErrSlugTaken
		}
		return fmt.Errorf("insert calendar: %w", err)
	}
	return nil
}

func (s *calendarStore) GetByID(ctx context.Context, id string) (*domain.Calendar, error) {
	var c domain.Calendar
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, mapReadErr("get calendar", err)
	}
	return &c, nil
}

func (s *calendarStore) GetBySlug(ctx context.Context, slug string) (*domain.Calendar, error) {
	var c domain.Calendar
	if err := s.col.FindOne(ctx, bson.M{"slug": slug}).Decode(&c); err != nil {
		return nil, mapReadErr("get calendar by slug", err)
	}
	return &c, nil
}

func (s *calendarStore) ListByOwnerID(ctx context.Context, ownerID string) ([]*domain.Calendar, error) {
	return s.find(ctx, bson.M{"owner_id": ownerID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (s *calendarStore) ListPopular(ctx context.Context, limit int) ([]*domain.Calendar, error) {
	findOpts := options.Find().
		SetSort(bson.D{{Key: "subscriber_count", Value: -1}}).
		SetLimit(int64(limit))
	return s.find(ctx, bson.M{"is_private": false}, findOpts)
}

func (s *calendarStore) find(ctx context.Context, filter bson.M, findOpts *options.FindOptions) ([]*domain.Calendar, error) {
	cur, err := s.col.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: find calendars: %v", domain.ErrStoreUnavailable, err)
	}
	defer cur.Close(ctx)

	calendars := make([]*domain.Calendar, 0)
	for cur.Next(ctx) {
		var c domain.Calendar
		if err := cur.Decode(&c); err != nil {
			return nil, fmt.Errorf("decode calendar: %w", err)
		}
		calendars = append(calendars, &c)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%w: calendars cursor: %v", domain.ErrStoreUnavailable, err)
	}
	return calendars, nil
}

func (s *calendarStore) Update(ctx context.Context, id string, update *domain.CalendarUpdate, updatedAt time.Time) error {
	set := bson.M{"updated_at": updatedAt}
	setField(set, "name", update.Name)
	setField(set, "description", update.Description)
	setField(set, "color", update.Color)
	setField(set, "cover_image", update.CoverImage)
	setField(set, "is_private", update.IsPrivate)
	setField(set, "is_global", update.IsGlobal)

	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update calendar: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *calendarStore) Delete(ctx context.Context, id string) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete calendar: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

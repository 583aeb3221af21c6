// Package mongo implements the primary document-store repositories.
// The document store is the system of record for events and calendars:
// a failed write here fails the whole operation.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gatherly/internal/domain"
)

const connectTimeout = 10 * time.Second

// Connect opens and pings a Mongo client. An empty URI is reported as
// ErrStoreUnavailable so callers can run degraded instead of failing startup.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: no mongo uri configured", domain.ErrStoreUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return client, nil
}

// mapReadErr converts driver errors to the domain error conventions:
// ErrNoDocuments means a genuine miss, anything else means the store did not
// answer and the fallback chain may advance.
func mapReadErr(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, err)
}

// Package postgres implements the secondary relational repositories.
// For events and calendars it is an eventually-consistent mirror used for
// search and analytics; its write failures are tolerated. It is also the
// authoritative home of invitations and calendar subscriptions, whose unique
// constraints and counter triggers live here.
package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"gatherly/internal/domain"
)

// uniqueViolation is the Postgres error code raised by a unique constraint.
const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique-constraint violation.
// Repositories resolve these to "already exists" rather than surfacing them.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// Open connects to Postgres. An empty URL is reported as ErrStoreUnavailable
// so the service can run degraded instead of failing startup.
func Open(url string) (*sql.DB, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: no database url configured", domain.ErrStoreUnavailable)
	}
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return db, nil
}

// mapReadErr converts sql errors to the domain conventions: ErrNoRows is a
// genuine miss, anything else means the store did not answer.
func mapReadErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, err)
}

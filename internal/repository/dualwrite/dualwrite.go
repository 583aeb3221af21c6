// Package dualwrite composes a primary document store and a secondary
// relational store into the caller-facing repositories for events and
// calendars.
//
// Write contract: the primary store is the system of record; if its write
// fails the operation fails. On primary success the same mutation is issued
// to the secondary store best-effort: a secondary failure is logged at a
// single policy point and never fails the operation or rolls back the
// primary write.
//
// Read contract: sources are consulted in order (primary, secondary, seed),
// each answering with a tagged status. Found and NotFound terminate the
// chain; only SourceUnavailable advances it, so a genuinely empty result is
// never silently replaced with seed data.
package dualwrite

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gatherly/internal/domain"
)

// containsFold is a case-insensitive substring match used by the seed
// source to mimic store-side search.
func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// source is one step of a read-fallback chain.
type source[T any] struct {
	name  domain.SourceName
	fetch func(ctx context.Context) (T, error)
}

// tagged converts a store error into the tagged status the chain dispatches
// on: nil is Found, ErrNotFound is NotFound, everything else counts as the
// source being unavailable.
func tagged(err error) domain.SourceStatus {
	switch {
	case err == nil:
		return domain.StatusFound
	case errors.Is(err, domain.ErrNotFound):
		return domain.StatusNotFound
	default:
		return domain.StatusUnavailable
	}
}

// resolve walks the chain. The returned ReadMeta names the answering source
// and flags degradation whenever that source is not the primary.
func resolve[T any](ctx context.Context, logger *slog.Logger, op string, sources []source[T]) (T, domain.ReadMeta, error) {
	var zero T
	for i, s := range sources {
		v, err := s.fetch(ctx)
		meta := domain.ReadMeta{Source: s.name, Degraded: s.name != domain.SourcePrimary}
		switch tagged(err) {
		case domain.StatusFound:
			return v, meta, nil
		case domain.StatusNotFound:
			return zero, meta, domain.ErrNotFound
		default:
			logger.Warn("data source unavailable, falling back",
				"op", op, "source", string(s.name), "err", err)
			if i == len(sources)-1 {
				return zero, meta, err
			}
		}
	}
	return zero, domain.ReadMeta{}, domain.ErrNotFound
}

// reportWrite is the single policy point for dual-write outcomes. Secondary
// failures are observable here and nowhere else.
func reportWrite(logger *slog.Logger, outcome domain.WriteOutcome) {
	if outcome.Primary != nil {
		logger.Error("primary store write failed", "op", outcome.Op, "err", outcome.Primary)
		return
	}
	if outcome.Secondary != nil {
		logger.Warn("secondary store write failed, primary committed",
			"op", outcome.Op, "err", outcome.Secondary)
	}
}

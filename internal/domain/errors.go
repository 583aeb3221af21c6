package domain

import "errors"

// Sentinel errors shared across repositories and services.
var (
	// ErrNotFound is returned when a read legitimately finds nothing.
	// It is distinct from a store being unreachable (ErrStoreUnavailable).
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable is returned when a store cannot be reached or is
	// not configured. Read paths use it to advance the fallback chain.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrForbidden is returned when the caller does not own the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput is returned when a request fails validation before
	// any store interaction.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidEmail is returned for malformed email addresses.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrSlugTaken is returned when a calendar slug is already in use,
	// either by the advisory pre-check or by the store's unique constraint.
	ErrSlugTaken = errors.New("slug already taken")

	// ErrInvalidTransition is returned when an invitation status change
	// is not allowed by the transition graph.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Package idgen generates entity identifiers and tracking tokens.
package idgen

import "github.com/google/uuid"

// NewID returns a canonical UUIDv4 for entity identity.
func NewID() string {
	return uuid.NewString()
}

// NewTrackingToken returns an opaque token correlating unauthenticated pixel
// and link requests back to an invitation. Tokens are unique per invitation
// and carry no meaning beyond that lookup.
func NewTrackingToken() string {
	return uuid.NewString()
}

package domain

// SourceName identifies which data source satisfied a read.
type SourceName string

const (
	SourcePrimary   SourceName = "primary"
	SourceSecondary SourceName = "secondary"
	SourceSeed      SourceName = "seed"
)

// SourceStatus is the tagged outcome of asking one data source for a record.
// A chain of sources advances past a source only on SourceUnavailable; Found
// and NotFound both terminate the chain, so a configured store returning
// zero rows is never papered over with seed data.
type SourceStatus int

const (
	StatusFound SourceStatus = iota
	StatusNotFound
	StatusUnavailable
)

// ReadMeta describes where a read was served from. Degraded is true when the
// primary store did not answer and the result came from the secondary store
// or the injected seed dataset.
type ReadMeta struct {
	Source   SourceName
	Degraded bool
}

// WriteOutcome is the structured result of a dual write. Primary is
// authoritative: a non-nil Primary fails the operation. Secondary is
// best-effort; a non-nil Secondary is reported at a single logging policy
// point and never surfaced to the caller.
type WriteOutcome struct {
	Op        string
	Primary   error
	Secondary error
}

// Failed reports whether the operation as a whole failed.
func (o WriteOutcome) Failed() bool { return o.Primary != nil }

// SeedProvider supplies the built-in fallback dataset served when every real
// data source is unavailable. It is injected at repository construction so
// fallback behavior is deterministic and testable, never a module-level
// mutable slice.
type SeedProvider interface {
	SeedEvents() []*Event
	SeedCalendars() []*Calendar
}

// Package signal provides the cross-process channel a resolver uses to tell a
// separate process, with no shared memory, that a session's pending decision
// has been resolved.
package signal

// Channel records and observes per-session resolution marks. Implementations
// must keep Consume atomic: when several callers race after one Mark, exactly
// one observes true. Check and Consume racing a Mark from another process
// report false rather than failing; the caller falls back to its slow path.
type Channel interface {
	// Mark records that the session's pending decision is resolved. Marking
	// an already-marked session is a no-op.
	Mark(sessionID string) error
	// Check reports whether a mark is present without clearing it.
	Check(sessionID string) (bool, error)
	// Consume atomically checks and clears the mark, reporting whether this
	// caller observed it.
	Consume(sessionID string) (bool, error)
}

package models

// SessionState is the coarse-grained status of a session, derived from prompt
// queue occupancy and agent-run liveness. It is never set directly by
// callers.
type SessionState string

const (
	// SessionInactive means no agent run is in flight and no prompts are
	// pending.
	SessionInactive SessionState = "inactive"
	// SessionActive means an agent run is in flight with an empty queue.
	SessionActive SessionState = "active"
	// SessionHasPending means at least one prompt is awaiting a decision.
	SessionHasPending SessionState = "has-pending"
)

// SessionInfo is the read surface exposed to UI layers.
type SessionInfo struct {
	ID           string       `json:"id"`
	State        SessionState `json:"state"`
	PendingCount int          `json:"pendingCount"`
}

// Package resolver owns the per-session prompt registry and the suspended
// waits of in-flight interception calls. Each request id goes through
// pending -> resolved or pending -> timed_out, terminal either way, and its
// waiter is woken exactly once.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/queue"
	"github.com/wardenhq/warden/internal/signal"
)

// Outcome is the state of a request.
type Outcome string

const (
	OutcomePending  Outcome = "pending"
	OutcomeResolved Outcome = "resolved"
	OutcomeTimedOut Outcome = "timed_out"
)

var (
	// ErrUnknownRequest means the request id was never submitted or has been
	// swept after its retention window.
	ErrUnknownRequest = errors.New("resolver: unknown request id")
	// ErrDuplicateRequest means the submitted id is already in use; ids are
	// never reused.
	ErrDuplicateRequest = errors.New("resolver: request id already in use")
	// ErrAlreadyWaiting means a second concurrent Await was attempted on the
	// same request id. One logical waiter per request is a caller contract.
	ErrAlreadyWaiting = errors.New("resolver: a waiter is already attached")
)

// AuditLog records prompts and their terminal outcomes. Implementations must
// tolerate being called from multiple goroutines.
type AuditLog interface {
	InsertPrompt(p *models.Prompt) error
	RecordOutcome(requestID string, outcome string, resp *models.PromptResponse) error
}

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	// MaxWait caps how long an outstanding wait may stay pending. A dead
	// caller has no cancel signal, so this deadline is the only cleanup path.
	MaxWait time.Duration
	// Retention keeps terminal records around so late duplicate resolutions
	// still report the original outcome.
	Retention time.Duration
	// Signals, when set, is marked on approved resolutions so a separate
	// process can observe the approval and retry the gated action.
	Signals signal.Channel
	// Audit, when set, receives every prompt and terminal outcome.
	Audit AuditLog
	Logger *slog.Logger
}

const (
	defaultMaxWait   = 10 * time.Minute
	defaultRetention = time.Hour
)

type request struct {
	prompt     *models.Prompt
	outcome    Outcome
	response   *models.PromptResponse
	done       chan struct{} // closed exactly once, at the terminal transition
	waiting    bool
	timer      *time.Timer
	terminalAt time.Time
}

type session struct {
	queue     *queue.Queue
	agentLive bool
}

// Service is the resolution core. Requests on different ids proceed in
// parallel; the service mutex guards only the registry maps and terminal
// transitions, never a suspended wait.
type Service struct {
	mu       sync.Mutex
	requests map[string]*request
	sessions map[string]*session

	maxWait   time.Duration
	retention time.Duration
	signals   signal.Channel
	audit     AuditLog
	log       *slog.Logger
}

// New creates a Service from opts.
func New(opts Options) *Service {
	if opts.MaxWait <= 0 {
		opts.MaxWait = defaultMaxWait
	}
	if opts.Retention <= 0 {
		opts.Retention = defaultRetention
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		requests:  make(map[string]*request),
		sessions:  make(map[string]*session),
		maxWait:   opts.MaxWait,
		retention: opts.Retention,
		signals:   opts.Signals,
		audit:     opts.Audit,
		log:       opts.Logger,
	}
}

// ensureSession returns the session entry, creating it on first use. Caller
// holds s.mu.
func (s *Service) ensureSession(id string) *session {
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{queue: queue.New()}
		s.sessions[id] = sess
	}
	return sess
}

// Submit registers the prompt, enqueues it on its session's queue, and arms
// the deadline for its outstanding wait. Returns the request id (the prompt
// id, generated when the caller did not supply one).
func (s *Service) Submit(p *models.Prompt) (string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if err := p.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	if _, exists := s.requests[p.ID]; exists {
		s.mu.Unlock()
		return "", ErrDuplicateRequest
	}
	r := &request{
		prompt:  p,
		outcome: OutcomePending,
		done:    make(chan struct{}),
	}
	r.timer = time.AfterFunc(s.maxWait, func() { s.timeout(p.ID) })
	s.requests[p.ID] = r
	sess := s.ensureSession(p.SessionID)
	sess.queue.Enqueue(p)
	s.mu.Unlock()

	if s.audit != nil {
		if err := s.audit.InsertPrompt(p); err != nil {
			s.log.Warn("audit insert failed", "requestId", p.ID, "error", err)
		}
	}
	s.log.Info("prompt submitted",
		"requestId", p.ID,
		"sessionId", p.SessionID,
		"type", p.Type,
	)
	return p.ID, nil
}

// Await suspends until the request reaches a terminal state, then returns its
// response. The deadline belongs to the service: on expiry the caller
// receives a synthesized denial, not an error. At most one waiter may be
// attached at a time; a second concurrent Await fails with ErrAlreadyWaiting.
// Cancelling ctx detaches the waiter without affecting the request, so a
// reconnecting caller may Await again.
func (s *Service) Await(ctx context.Context, requestID string) (*models.PromptResponse, error) {
	s.mu.Lock()
	r, ok := s.requests[requestID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrUnknownRequest
	}
	if r.outcome != OutcomePending {
		resp := r.response
		s.mu.Unlock()
		return resp, nil
	}
	if r.waiting {
		s.mu.Unlock()
		return nil, ErrAlreadyWaiting
	}
	r.waiting = true
	done := r.done
	s.mu.Unlock()

	select {
	case <-done:
		s.mu.Lock()
		resp := r.response
		r.waiting = false
		s.mu.Unlock()
		return resp, nil
	case <-ctx.Done():
		s.mu.Lock()
		r.waiting = false
		s.mu.Unlock()
		return nil, ctx.Err()
	}
}

// Resolve records the human decision for the request and wakes its waiter.
// Safe to call from any goroutine, including one handling a different inbound
// request than the submit. Resolving an already-terminal request is a logged
// no-op that reports the outcome already reached.
func (s *Service) Resolve(requestID string, resp *models.PromptResponse) (Outcome, error) {
	outcome, prompt, applied := s.terminate(requestID, OutcomeResolved, resp)
	if prompt == nil {
		return "", ErrUnknownRequest
	}
	if !applied {
		s.log.Info("duplicate resolution ignored", "requestId", requestID, "outcome", outcome)
		return outcome, nil
	}

	// Only approvals are marked: a consumer of the sentinel retries the
	// gated action, which must never happen on a denial. Denials reach the
	// caller through its own wait.
	if s.signals != nil && resp.Approved {
		if err := s.signals.Mark(prompt.SessionID); err != nil {
			s.log.Warn("signal mark failed", "sessionId", prompt.SessionID, "error", err)
		}
	}
	s.recordOutcome(requestID, OutcomeResolved, resp)
	s.log.Info("prompt resolved",
		"requestId", requestID,
		"sessionId", prompt.SessionID,
		"approved", resp.Approved,
	)
	return OutcomeResolved, nil
}

// timeout is the deadline path: synthesize a denial and terminate. An expired
// wait is an expected outcome, not a fault.
func (s *Service) timeout(requestID string) {
	resp := &models.PromptResponse{Approved: false, Reason: "timeout"}
	_, prompt, applied := s.terminate(requestID, OutcomeTimedOut, resp)
	if prompt == nil || !applied {
		return
	}
	s.recordOutcome(requestID, OutcomeTimedOut, resp)
	s.log.Info("prompt timed out", "requestId", requestID, "sessionId", prompt.SessionID)
}

// terminate performs the single pending -> terminal transition. The prompt is
// removed from its queue and the waiter woken under the same critical
// section, so "resolved" and "still queued" are never observable together.
// Returns the outcome now in effect, the prompt (nil when the id is unknown),
// and whether this call performed the transition.
func (s *Service) terminate(requestID string, outcome Outcome, resp *models.PromptResponse) (Outcome, *models.Prompt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[requestID]
	if !ok {
		return "", nil, false
	}
	if r.outcome != OutcomePending {
		return r.outcome, r.prompt, false
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	if resp.Type == "" {
		resp.Type = r.prompt.Type
	}
	r.outcome = outcome
	r.response = resp
	r.terminalAt = time.Now()
	if sess, ok := s.sessions[r.prompt.SessionID]; ok {
		sess.queue.Remove(requestID)
	}
	close(r.done)
	return outcome, r.prompt, true
}

func (s *Service) recordOutcome(requestID string, outcome Outcome, resp *models.PromptResponse) {
	if s.audit == nil {
		return
	}
	if err := s.audit.RecordOutcome(requestID, string(outcome), resp); err != nil {
		s.log.Warn("audit outcome failed", "requestId", requestID, "error", err)
	}
}

// Outcome reports the current state of a request id.
func (s *Service) Outcome(requestID string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[requestID]
	if !ok {
		return "", ErrUnknownRequest
	}
	return r.outcome, nil
}

// AgentStarted records that an agent run is in flight for the session.
func (s *Service) AgentStarted(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureSession(sessionID).agentLive = true
}

// AgentStopped records that the session's agent run has ended.
func (s *Service) AgentStopped(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureSession(sessionID).agentLive = false
}

// SessionState derives the session's coarse state from queue occupancy and
// agent liveness.
func (s *Service) SessionState(sessionID string) models.SessionState {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return models.SessionInactive
	}
	return sessionState(sess)
}

func sessionState(sess *session) models.SessionState {
	switch {
	case sess.queue.Len() > 0:
		return models.SessionHasPending
	case sess.agentLive:
		return models.SessionActive
	default:
		return models.SessionInactive
	}
}

// PeekTop returns the prompt a UI should surface first for the session, or
// nil when nothing is pending.
func (s *Service) PeekTop(sessionID string) *models.Prompt {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return sess.queue.PeekTop()
}

// PendingPrompts returns the session's pending prompts in surfacing order.
func (s *Service) PendingPrompts(sessionID string) []*models.Prompt {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return sess.queue.Pending()
}

// Sessions lists known sessions with their derived states.
func (s *Service) Sessions() []models.SessionInfo {
	s.mu.Lock()
	out := make([]models.SessionInfo, 0, len(s.sessions))
	for id, sess := range s.sessions {
		out = append(out, models.SessionInfo{
			ID:           id,
			State:        sessionState(sess),
			PendingCount: sess.queue.Len(),
		})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Sweep drops terminal requests older than the retention window and returns
// how many were removed. Pending requests are never swept; their deadline is
// the only cleanup path. Sessions that are left with no live agent and an
// empty queue go too; the durable store keeps their trace.
func (s *Service) Sweep() int {
	cutoff := time.Now().Add(-s.retention)
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, r := range s.requests {
		if r.outcome != OutcomePending && r.terminalAt.Before(cutoff) {
			delete(s.requests, id)
			removed++
		}
	}
	for id, sess := range s.sessions {
		if !sess.agentLive && sess.queue.Len() == 0 {
			delete(s.sessions, id)
		}
	}
	return removed
}

// StartSweeper runs Sweep on the given interval until ctx is cancelled.
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					s.log.Debug("swept terminal requests", "count", n)
				}
			}
		}
	}()
}

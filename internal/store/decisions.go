package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wardenhq/warden/internal/models"
)

// Decision is one audited prompt with its terminal outcome, when reached.
// The live wait state stays in memory; this table is the durable record of
// what was asked and what was decided.
type Decision struct {
	RequestID  string                 `json:"requestId"`
	SessionID  string                 `json:"sessionId"`
	PromptType models.PromptType      `json:"promptType"`
	Prompt     *models.Prompt         `json:"prompt,omitempty"`
	Outcome    string                 `json:"outcome,omitempty"`
	Approved   *bool                  `json:"approved,omitempty"`
	Reason     string                 `json:"reason,omitempty"`
	Response   *models.PromptResponse `json:"response,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
	ResolvedAt *time.Time             `json:"resolvedAt,omitempty"`
}

// DecisionStore persists the prompt/decision audit log.
type DecisionStore struct {
	db       *DB
	sessions *SessionStore
}

func NewDecisionStore(db *DB) *DecisionStore {
	return &DecisionStore{db: db, sessions: NewSessionStore(db)}
}

// InsertPrompt records a newly submitted prompt and touches its session row.
func (s *DecisionStore) InsertPrompt(p *models.Prompt) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prompt: %w", err)
	}

	if err := s.sessions.Touch(p.SessionID); err != nil {
		return err
	}

	if _, err := s.db.Exec(`
		INSERT INTO decisions (request_id, session_id, prompt_type, prompt_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.SessionID, string(p.Type), string(raw), p.CreatedAt.Unix()); err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// RecordOutcome stores the terminal outcome for a request. The guard on a
// NULL outcome keeps the first terminal write authoritative; a duplicate
// resolution changes nothing.
func (s *DecisionStore) RecordOutcome(requestID string, outcome string, resp *models.PromptResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	_, err = s.db.Exec(`
		UPDATE decisions
		SET outcome = ?, approved = ?, reason = ?, response_json = ?, resolved_at = ?
		WHERE request_id = ? AND outcome IS NULL
	`, outcome, boolToInt(resp.Approved), resp.Reason, string(raw), time.Now().Unix(), requestID)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// Get returns one decision by request id, or nil when unknown.
func (s *DecisionStore) Get(requestID string) (*Decision, error) {
	row := s.db.QueryRow(`
		SELECT request_id, session_id, prompt_type, prompt_json, outcome, approved, reason, response_json, created_at, resolved_at
		FROM decisions WHERE request_id = ?
	`, requestID)
	d, err := scanDecision(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get decision: %w", err)
	}
	return d, nil
}

// ListBySession returns a session's decisions, newest first.
func (s *DecisionStore) ListBySession(sessionID string, limit int) ([]*Decision, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT request_id, session_id, prompt_type, prompt_json, outcome, approved, reason, response_json, created_at, resolved_at
		FROM decisions WHERE session_id = ?
		ORDER BY created_at DESC LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []*Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDecision(row rowScanner) (*Decision, error) {
	var (
		d            Decision
		promptType   string
		promptJSON   string
		outcome      sql.NullString
		approved     sql.NullInt64
		reason       sql.NullString
		responseJSON sql.NullString
		createdAt    int64
		resolvedAt   sql.NullInt64
	)
	if err := row.Scan(&d.RequestID, &d.SessionID, &promptType, &promptJSON,
		&outcome, &approved, &reason, &responseJSON, &createdAt, &resolvedAt); err != nil {
		return nil, err
	}

	d.PromptType = models.PromptType(promptType)
	d.CreatedAt = time.Unix(createdAt, 0).UTC()
	if outcome.Valid {
		d.Outcome = outcome.String
	}
	if approved.Valid {
		b := approved.Int64 != 0
		d.Approved = &b
	}
	if reason.Valid {
		d.Reason = reason.String
	}
	if resolvedAt.Valid {
		t := time.Unix(resolvedAt.Int64, 0).UTC()
		d.ResolvedAt = &t
	}
	if promptJSON != "" {
		var p models.Prompt
		if err := json.Unmarshal([]byte(promptJSON), &p); err == nil {
			d.Prompt = &p
		}
	}
	if responseJSON.Valid && responseJSON.String != "" {
		var r models.PromptResponse
		if err := json.Unmarshal([]byte(responseJSON.String), &r); err == nil {
			d.Response = &r
		}
	}
	return &d, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// PromptType discriminates the kind of decision a prompt asks for.
type PromptType string

const (
	PromptPermission     PromptType = "permission"
	PromptPlanApproval   PromptType = "plan_approval"
	PromptUserQuestion   PromptType = "user_question"
	PromptCommitApproval PromptType = "commit_approval"
)

// IsValid reports whether t is one of the known prompt types.
func (t PromptType) IsValid() bool {
	switch t {
	case PromptPermission, PromptPlanApproval, PromptUserQuestion, PromptCommitApproval:
		return true
	}
	return false
}

// Priority returns the surfacing rank for t. Lower ranks are shown first when
// several prompts are pending on one session. The rank only affects which
// prompt a UI surfaces; resolution is always keyed by prompt id.
func (t PromptType) Priority() int {
	switch t {
	case PromptPermission:
		return 0
	case PromptUserQuestion:
		return 1
	case PromptPlanApproval:
		return 2
	case PromptCommitApproval:
		return 3
	}
	return 4
}

// PermissionPayload describes a tool invocation awaiting permission.
type PermissionPayload struct {
	ToolName          string          `json:"toolName"`
	ToolInput         json.RawMessage `json:"toolInput,omitempty"`
	SuggestedPatterns []string        `json:"suggestedPatterns,omitempty"`
}

// PlanApprovalPayload carries the plan text the agent wants to exit
// planning mode with.
type PlanApprovalPayload struct {
	Plan string `json:"plan"`
}

// Question is a single multiple-choice question posed to the user.
type Question struct {
	Header      string   `json:"header,omitempty"`
	Question    string   `json:"question"`
	Options     []string `json:"options,omitempty"`
	MultiSelect bool     `json:"multiSelect,omitempty"`
}

// UserQuestionPayload carries one or more questions the agent is blocked on.
type UserQuestionPayload struct {
	Questions []Question `json:"questions"`
}

// CommitApprovalPayload describes a commit the agent wants to make.
type CommitApprovalPayload struct {
	Message string `json:"message"`
	Push    bool   `json:"push,omitempty"`
}

// Prompt is a single outstanding decision request scoped to a session.
// Exactly one payload field matching Type is set. A prompt is immutable once
// created and is removed from its queue only on resolution or timeout. The id
// doubles as the request id for the outstanding wait and is never reused.
type Prompt struct {
	ID        string     `json:"id"`
	SessionID string     `json:"sessionId"`
	Type      PromptType `json:"type"`
	CreatedAt time.Time  `json:"createdAt"`

	Permission *PermissionPayload     `json:"permission,omitempty"`
	Plan       *PlanApprovalPayload   `json:"plan,omitempty"`
	Questions  *UserQuestionPayload   `json:"questions,omitempty"`
	Commit     *CommitApprovalPayload `json:"commit,omitempty"`
}

// Validate checks that the prompt carries exactly the payload its type
// declares.
func (p *Prompt) Validate() error {
	if p.SessionID == "" {
		return fmt.Errorf("prompt: sessionId is required")
	}
	if !p.Type.IsValid() {
		return fmt.Errorf("prompt: invalid type %q", p.Type)
	}
	payloads := 0
	for _, set := range []bool{p.Permission != nil, p.Plan != nil, p.Questions != nil, p.Commit != nil} {
		if set {
			payloads++
		}
	}
	switch p.Type {
	case PromptPermission:
		if p.Permission == nil {
			return fmt.Errorf("prompt: type %s requires permission payload", p.Type)
		}
	case PromptPlanApproval:
		if p.Plan == nil {
			return fmt.Errorf("prompt: type %s requires plan payload", p.Type)
		}
	case PromptUserQuestion:
		if p.Questions == nil {
			return fmt.Errorf("prompt: type %s requires questions payload", p.Type)
		}
	case PromptCommitApproval:
		if p.Commit == nil {
			return fmt.Errorf("prompt: type %s requires commit payload", p.Type)
		}
	}
	if payloads != 1 {
		return fmt.Errorf("prompt: type %s carries %d payloads, want exactly 1", p.Type, payloads)
	}
	return nil
}

// PromptResponse answers the prompt with the same type tag. Type-specific
// fields are only meaningful for their own type and are omitted otherwise.
type PromptResponse struct {
	Type     PromptType `json:"type"`
	Approved bool       `json:"approved"`
	Reason   string     `json:"reason,omitempty"`
	Error    string     `json:"error,omitempty"`

	// AllowedPatterns optionally widens a permission grant beyond the single
	// invocation (permission prompts only).
	AllowedPatterns []string `json:"allowedPatterns,omitempty"`
	// Push overrides the requested push flag (commit_approval prompts only).
	Push *bool `json:"push,omitempty"`
	// Answers maps question headers to the selected options (user_question
	// prompts only).
	Answers map[string][]string `json:"answers,omitempty"`
}

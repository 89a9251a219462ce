// Package hook implements the interception adapter that runs inside the
// agent's short-lived tool invocation. It reads one tool-call descriptor from
// stdin, consults the gateway, and writes one allow/deny decision to stdout.
// Diagnostics go to the logger only; stdout carries nothing but the decision.
package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/signal"
)

// defaultDenyReason is used when a reviewer denies without a reason.
const defaultDenyReason = "Denied by reviewer. Revise your approach and try again."

// Input is the tool-call descriptor the host runtime pipes to the hook.
type Input struct {
	SessionID     string          `json:"session_id"`
	HookEventName string          `json:"hook_event_name,omitempty"`
	ToolName      string          `json:"tool_name"`
	ToolInput     json.RawMessage `json:"tool_input,omitempty"`
}

type specificOutput struct {
	HookEventName            string `json:"hookEventName"`
	PermissionDecision       string `json:"permissionDecision"`
	PermissionDecisionReason string `json:"permissionDecisionReason"`
}

// Output is the hook's stdout contract: an empty object allows the tool call,
// a deny decision carries the reason.
type Output struct {
	HookSpecificOutput *specificOutput `json:"hookSpecificOutput,omitempty"`
}

// Allow passes the tool call through.
func Allow() Output {
	return Output{}
}

// Deny blocks the tool call with a human-readable reason.
func Deny(reason string) Output {
	return Output{HookSpecificOutput: &specificOutput{
		HookEventName:            "PreToolUse",
		PermissionDecision:       "deny",
		PermissionDecisionReason: reason,
	}}
}

// Gateway is the resolution-service contract both adapter strategies run
// over.
type Gateway interface {
	Submit(ctx context.Context, p *models.Prompt) (string, error)
	Await(ctx context.Context, requestID string) (*models.PromptResponse, error)
}

// Runner holds one configured adapter.
type Runner struct {
	Rules       *Rules
	Gateway     Gateway
	Signals     signal.Channel
	Mode        config.HookMode
	ConfirmTool string
	Log         *slog.Logger
}

// Run executes one interception: read stdin, decide, write stdout. It never
// panics out to the caller; a failure after the call was recognized as gated
// degrades to deny, before that to allow.
func (r *Runner) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	out := func() (out Output) {
		gated := false
		defer func() {
			if rec := recover(); rec != nil {
				r.Log.Error("hook panic recovered", "panic", rec)
				if gated {
					out = Deny(fmt.Sprintf("approval hook internal failure: %v", rec))
				} else {
					out = Allow()
				}
			}
		}()

		raw, err := io.ReadAll(stdin)
		if err != nil {
			r.Log.Warn("read hook input failed", "error", err)
			return Allow()
		}
		return r.decide(ctx, raw, &gated)
	}()
	return json.NewEncoder(stdout).Encode(out)
}

// Decide classifies and gates a raw tool-call descriptor. Exposed for tests;
// Run adds the panic guard around it.
func (r *Runner) Decide(ctx context.Context, raw []byte) Output {
	gated := false
	return r.decide(ctx, raw, &gated)
}

func (r *Runner) decide(ctx context.Context, raw []byte, gated *bool) Output {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Allow()
	}
	var in Input
	if err := json.Unmarshal(raw, &in); err != nil {
		// Malformed input defaults to pass-through; the hook must never
		// break tools it cannot attribute.
		r.Log.Warn("malformed hook input, allowing", "error", err)
		return Allow()
	}

	if r.Mode == config.HookModeTwoPhase && in.ToolName == r.ConfirmTool {
		*gated = true
		return r.confirm(ctx, in)
	}

	typ, isGated := r.Rules.Classify(in.ToolName, in.ToolInput)
	if !isGated {
		return Allow()
	}
	*gated = true

	if in.SessionID == "" {
		return Deny("cannot attribute session: hook input carries no session id")
	}

	if r.Mode == config.HookModeTwoPhase {
		return r.redirect(in)
	}
	return r.longPoll(ctx, typ, in)
}

// longPoll is the primary strategy: submit the prompt, then block on the
// gateway until the human decides or the service-side deadline denies.
func (r *Runner) longPoll(ctx context.Context, typ models.PromptType, in Input) Output {
	p := buildPrompt(typ, in)

	requestID, err := r.Gateway.Submit(ctx, p)
	if err != nil {
		r.Log.Error("prompt submission failed", "tool", in.ToolName, "error", err)
		return Deny("approval gateway unreachable: " + err.Error())
	}
	r.Log.Info("awaiting decision", "requestId", requestID, "tool", in.ToolName, "type", typ)

	resp, err := r.Gateway.Await(ctx, requestID)
	if err != nil {
		r.Log.Error("decision poll failed", "requestId", requestID, "error", err)
		return Deny("approval gateway poll failed: " + err.Error())
	}
	return decisionOutput(resp)
}

func decisionOutput(resp *models.PromptResponse) Output {
	if resp.Approved {
		return Allow()
	}
	reason := resp.Reason
	if reason == "" {
		reason = defaultDenyReason
	}
	return Deny(reason)
}

// buildPrompt shapes the type-specific payload from the raw tool input.
func buildPrompt(typ models.PromptType, in Input) *models.Prompt {
	p := &models.Prompt{SessionID: in.SessionID, Type: typ}
	switch typ {
	case models.PromptPermission:
		p.Permission = &models.PermissionPayload{ToolName: in.ToolName, ToolInput: in.ToolInput}
	case models.PromptPlanApproval:
		var pi struct {
			Plan string `json:"plan"`
		}
		_ = json.Unmarshal(in.ToolInput, &pi)
		p.Plan = &models.PlanApprovalPayload{Plan: pi.Plan}
	case models.PromptUserQuestion:
		var qi models.UserQuestionPayload
		_ = json.Unmarshal(in.ToolInput, &qi)
		p.Questions = &qi
	case models.PromptCommitApproval:
		var ci struct {
			Command string `json:"command"`
		}
		_ = json.Unmarshal(in.ToolInput, &ci)
		p.Commit = &models.CommitApprovalPayload{
			Message: ci.Command,
			Push:    bytes.Contains([]byte(ci.Command), []byte("git push")),
		}
	}
	return p
}

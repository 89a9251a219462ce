package hook

import (
	"context"
	"encoding/json"
	"fmt"
)

// The two-phase strategy exists for host runtimes that cap hook execution
// time too tightly for a long poll. The first interception of a gated tool
// denies with an instruction to invoke the confirmation tool; the
// confirmation invocation performs the real submit/wait. An approved decision
// leaves a sentinel on the signal channel, so the retried original call --
// possibly in a different process -- can observe it.

// redirect handles a gated tool call in two-phase mode: consume a sentinel
// left by an earlier approved confirmation, otherwise deny and point the
// agent at the confirmation tool.
func (r *Runner) redirect(in Input) Output {
	if r.Signals != nil {
		consumed, err := r.Signals.Consume(in.SessionID)
		if err != nil {
			// A racing mark that has not landed reports false, not an error;
			// an actual channel failure falls back to the slow path too.
			r.Log.Warn("sentinel consume failed", "sessionId", in.SessionID, "error", err)
		} else if consumed {
			r.Log.Info("sentinel consumed, allowing", "sessionId", in.SessionID, "tool", in.ToolName)
			return Allow()
		}
	}
	return Deny(fmt.Sprintf(
		"Approval required for %s. Invoke the %q tool with the original tool call, wait for the decision, then retry.",
		in.ToolName, r.ConfirmTool,
	))
}

// confirm handles an invocation of the confirmation tool: unwrap the original
// tool call from the tool input, submit it, and wait without a caller-side
// timeout. The gateway marks the session's sentinel when the decision is an
// approval.
func (r *Runner) confirm(ctx context.Context, in Input) Output {
	if in.SessionID == "" {
		return Deny("cannot attribute session: hook input carries no session id")
	}

	var original Input
	if err := json.Unmarshal(in.ToolInput, &original); err != nil || original.ToolName == "" {
		return Deny(fmt.Sprintf("the %q tool requires the original tool call as {tool_name, tool_input}", r.ConfirmTool))
	}
	original.SessionID = in.SessionID

	typ, isGated := r.Rules.Classify(original.ToolName, original.ToolInput)
	if !isGated {
		// Nothing to confirm; the retried call will pass through anyway.
		return Allow()
	}
	return r.longPoll(ctx, typ, original)
}

package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/signal"
)

type fakeGateway struct {
	submitErr error
	awaitErr  error
	response  *models.PromptResponse
	submitted *models.Prompt
}

func (f *fakeGateway) Submit(_ context.Context, p *models.Prompt) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = p
	return "req-1", nil
}

func (f *fakeGateway) Await(_ context.Context, _ string) (*models.PromptResponse, error) {
	if f.awaitErr != nil {
		return nil, f.awaitErr
	}
	return f.response, nil
}

func newRunner(t *testing.T, gw Gateway, mode config.HookMode) *Runner {
	t.Helper()
	return &Runner{
		Rules:       DefaultRules(),
		Gateway:     gw,
		Signals:     signal.NewMemoryChannel(),
		Mode:        mode,
		ConfirmTool: "warden_confirm",
		Log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func isAllow(out Output) bool {
	return out.HookSpecificOutput == nil
}

func denyReason(t *testing.T, out Output) string {
	t.Helper()
	if out.HookSpecificOutput == nil {
		t.Fatal("expected a deny decision, got allow")
	}
	if out.HookSpecificOutput.PermissionDecision != "deny" {
		t.Fatalf("unexpected decision %q", out.HookSpecificOutput.PermissionDecision)
	}
	return out.HookSpecificOutput.PermissionDecisionReason
}

func TestDecidePassThrough(t *testing.T) {
	r := newRunner(t, &fakeGateway{}, config.HookModeLongPoll)

	t.Run("empty input allows", func(t *testing.T) {
		if !isAllow(r.Decide(context.Background(), nil)) {
			t.Fatal("empty stdin must allow")
		}
	})

	t.Run("malformed json allows", func(t *testing.T) {
		if !isAllow(r.Decide(context.Background(), []byte("{not json"))) {
			t.Fatal("malformed input must allow")
		}
	})

	t.Run("ungated tool allows", func(t *testing.T) {
		in := `{"session_id":"s1","tool_name":"Read","tool_input":{"file_path":"/tmp/x"}}`
		if !isAllow(r.Decide(context.Background(), []byte(in))) {
			t.Fatal("ungated tool must allow")
		}
	})

	t.Run("ungated bash allows", func(t *testing.T) {
		in := `{"session_id":"s1","tool_name":"Bash","tool_input":{"command":"go test ./..."}}`
		if !isAllow(r.Decide(context.Background(), []byte(in))) {
			t.Fatal("non-commit bash must allow")
		}
	})
}

func TestDecideNoSessionDenies(t *testing.T) {
	r := newRunner(t, &fakeGateway{}, config.HookModeLongPoll)
	in := `{"tool_name":"ExitPlanMode","tool_input":{"plan":"the plan"}}`
	reason := denyReason(t, r.Decide(context.Background(), []byte(in)))
	if !strings.Contains(reason, "session") {
		t.Fatalf("deny reason should mention the missing session, got %q", reason)
	}
}

func TestDecideLongPoll(t *testing.T) {
	in := `{"session_id":"s1","tool_name":"ExitPlanMode","tool_input":{"plan":"the plan"}}`

	t.Run("approved decision allows", func(t *testing.T) {
		gw := &fakeGateway{response: &models.PromptResponse{Approved: true}}
		r := newRunner(t, gw, config.HookModeLongPoll)
		if !isAllow(r.Decide(context.Background(), []byte(in))) {
			t.Fatal("approved decision must allow")
		}
		if gw.submitted == nil || gw.submitted.Type != models.PromptPlanApproval {
			t.Fatalf("submitted wrong prompt: %+v", gw.submitted)
		}
		if gw.submitted.Plan == nil || gw.submitted.Plan.Plan != "the plan" {
			t.Fatalf("plan text not extracted: %+v", gw.submitted.Plan)
		}
	})

	t.Run("denied decision carries reason", func(t *testing.T) {
		gw := &fakeGateway{response: &models.PromptResponse{Approved: false, Reason: "rework the plan"}}
		r := newRunner(t, gw, config.HookModeLongPoll)
		if got := denyReason(t, r.Decide(context.Background(), []byte(in))); got != "rework the plan" {
			t.Fatalf("reason = %q", got)
		}
	})

	t.Run("denied decision without reason gets default", func(t *testing.T) {
		gw := &fakeGateway{response: &models.PromptResponse{Approved: false}}
		r := newRunner(t, gw, config.HookModeLongPoll)
		if got := denyReason(t, r.Decide(context.Background(), []byte(in))); got != defaultDenyReason {
			t.Fatalf("reason = %q", got)
		}
	})

	t.Run("submit failure denies, never allows", func(t *testing.T) {
		gw := &fakeGateway{submitErr: errors.New("connection refused")}
		r := newRunner(t, gw, config.HookModeLongPoll)
		if got := denyReason(t, r.Decide(context.Background(), []byte(in))); !strings.Contains(got, "unreachable") {
			t.Fatalf("reason = %q", got)
		}
	})

	t.Run("poll failure denies", func(t *testing.T) {
		gw := &fakeGateway{awaitErr: errors.New("connection reset")}
		r := newRunner(t, gw, config.HookModeLongPoll)
		if got := denyReason(t, r.Decide(context.Background(), []byte(in))); !strings.Contains(got, "poll failed") {
			t.Fatalf("reason = %q", got)
		}
	})
}

func TestDecideCommitApproval(t *testing.T) {
	gw := &fakeGateway{response: &models.PromptResponse{Approved: true}}
	r := newRunner(t, gw, config.HookModeLongPoll)

	in := `{"session_id":"s1","tool_name":"Bash","tool_input":{"command":"git commit -m 'x' && git push"}}`
	if !isAllow(r.Decide(context.Background(), []byte(in))) {
		t.Fatal("approved commit must allow")
	}
	if gw.submitted.Type != models.PromptCommitApproval {
		t.Fatalf("expected commit_approval prompt, got %s", gw.submitted.Type)
	}
	if gw.submitted.Commit == nil || !gw.submitted.Commit.Push {
		t.Fatalf("push flag not detected: %+v", gw.submitted.Commit)
	}
}

func TestTwoPhase(t *testing.T) {
	in := `{"session_id":"s1","tool_name":"ExitPlanMode","tool_input":{"plan":"p"}}`

	t.Run("first attempt denies with redirect instruction", func(t *testing.T) {
		r := newRunner(t, &fakeGateway{}, config.HookModeTwoPhase)
		reason := denyReason(t, r.Decide(context.Background(), []byte(in)))
		if !strings.Contains(reason, "warden_confirm") {
			t.Fatalf("redirect should name the confirmation tool, got %q", reason)
		}
	})

	t.Run("sentinel consumed allows the retry", func(t *testing.T) {
		r := newRunner(t, &fakeGateway{}, config.HookModeTwoPhase)
		if err := r.Signals.Mark("s1"); err != nil {
			t.Fatalf("mark: %v", err)
		}
		if !isAllow(r.Decide(context.Background(), []byte(in))) {
			t.Fatal("marked session should allow the retried call")
		}
		// The mark is consumed; the next attempt redirects again.
		reason := denyReason(t, r.Decide(context.Background(), []byte(in)))
		if !strings.Contains(reason, "warden_confirm") {
			t.Fatalf("expected redirect after consume, got %q", reason)
		}
	})

	t.Run("confirm tool submits and waits", func(t *testing.T) {
		gw := &fakeGateway{response: &models.PromptResponse{Approved: true}}
		r := newRunner(t, gw, config.HookModeTwoPhase)
		confirm := `{"session_id":"s1","tool_name":"warden_confirm","tool_input":{"tool_name":"ExitPlanMode","tool_input":{"plan":"p"}}}`
		if !isAllow(r.Decide(context.Background(), []byte(confirm))) {
			t.Fatal("approved confirmation must allow")
		}
		if gw.submitted == nil || gw.submitted.Type != models.PromptPlanApproval {
			t.Fatalf("confirmation submitted wrong prompt: %+v", gw.submitted)
		}
		if gw.submitted.SessionID != "s1" {
			t.Fatalf("session not carried into the unwrapped call: %q", gw.submitted.SessionID)
		}
	})

	t.Run("confirm tool without original call denies", func(t *testing.T) {
		r := newRunner(t, &fakeGateway{}, config.HookModeTwoPhase)
		confirm := `{"session_id":"s1","tool_name":"warden_confirm","tool_input":{"note":"hi"}}`
		reason := denyReason(t, r.Decide(context.Background(), []byte(confirm)))
		if !strings.Contains(reason, "original tool call") {
			t.Fatalf("reason = %q", reason)
		}
	})
}

func TestRunWritesSingleJSONObject(t *testing.T) {
	gw := &fakeGateway{response: &models.PromptResponse{Approved: false, Reason: "no"}}
	r := newRunner(t, gw, config.HookModeLongPoll)

	stdin := strings.NewReader(`{"session_id":"s1","tool_name":"ExitPlanMode","tool_input":{"plan":"p"}}`)
	var stdout bytes.Buffer
	if err := r.Run(context.Background(), stdin, &stdout); err != nil {
		t.Fatalf("run: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("stdout is not a single JSON object: %v\n%s", err, stdout.String())
	}
	if _, ok := out["hookSpecificOutput"]; !ok {
		t.Fatal("deny decision missing hookSpecificOutput")
	}
}

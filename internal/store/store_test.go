package store_test

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/store"
)

func setupTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func samplePrompt(id, session string) *models.Prompt {
	return &models.Prompt{
		ID:        id,
		SessionID: session,
		Type:      models.PromptPermission,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Permission: &models.PermissionPayload{
			ToolName:  "Bash",
			ToolInput: json.RawMessage(`{"command":"rm -rf build"}`),
		},
	}
}

func TestDecisionStore(t *testing.T) {
	db := setupTestDB(t)
	ds := store.NewDecisionStore(db)

	t.Run("InsertPrompt records prompt and session", func(t *testing.T) {
		if err := ds.InsertPrompt(samplePrompt("r1", "s1")); err != nil {
			t.Fatalf("insert: %v", err)
		}

		d, err := ds.Get("r1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if d == nil {
			t.Fatal("decision not found")
		}
		if d.Outcome != "" || d.Approved != nil {
			t.Fatalf("fresh decision should have no outcome: %+v", d)
		}
		if d.Prompt == nil || d.Prompt.Permission == nil || d.Prompt.Permission.ToolName != "Bash" {
			t.Fatalf("prompt payload not preserved: %+v", d.Prompt)
		}

		sessions, err := store.NewSessionStore(db).List(10)
		if err != nil {
			t.Fatalf("list sessions: %v", err)
		}
		if len(sessions) != 1 || sessions[0].ID != "s1" {
			t.Fatalf("session not recorded: %+v", sessions)
		}
	})

	t.Run("RecordOutcome is first-write-wins", func(t *testing.T) {
		resp := &models.PromptResponse{Type: models.PromptPermission, Approved: true}
		if err := ds.RecordOutcome("r1", "resolved", resp); err != nil {
			t.Fatalf("record: %v", err)
		}

		late := &models.PromptResponse{Type: models.PromptPermission, Approved: false, Reason: "late"}
		if err := ds.RecordOutcome("r1", "timed_out", late); err != nil {
			t.Fatalf("late record: %v", err)
		}

		d, err := ds.Get("r1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if d.Outcome != "resolved" {
			t.Fatalf("outcome overwritten: %s", d.Outcome)
		}
		if d.Approved == nil || !*d.Approved {
			t.Fatalf("approved flag overwritten: %+v", d.Approved)
		}
		if d.ResolvedAt == nil {
			t.Fatal("resolved_at not set")
		}
	})

	t.Run("ListBySession newest first", func(t *testing.T) {
		p2 := samplePrompt("r2", "s1")
		p2.CreatedAt = p2.CreatedAt.Add(time.Minute)
		if err := ds.InsertPrompt(p2); err != nil {
			t.Fatalf("insert: %v", err)
		}

		decisions, err := ds.ListBySession("s1", 0)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(decisions) != 2 {
			t.Fatalf("expected 2 decisions, got %d", len(decisions))
		}
		if decisions[0].RequestID != "r2" {
			t.Fatalf("expected newest first, got %s", decisions[0].RequestID)
		}
	})

	t.Run("Get unknown id returns nil", func(t *testing.T) {
		d, err := ds.Get("nope")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if d != nil {
			t.Fatalf("expected nil, got %+v", d)
		}
	})
}

func TestDecisionCount(t *testing.T) {
	db := setupTestDB(t)
	ds := store.NewDecisionStore(db)

	if n, err := db.DecisionCount(); err != nil || n != 0 {
		t.Fatalf("empty count: n=%d err=%v", n, err)
	}
	if err := ds.InsertPrompt(samplePrompt("r1", "s1")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n, err := db.DecisionCount(); err != nil || n != 1 {
		t.Fatalf("count after insert: n=%d err=%v", n, err)
	}
}

package queue

import (
	"testing"
	"time"

	"github.com/wardenhq/warden/internal/models"
)

func prompt(id string, typ models.PromptType) *models.Prompt {
	return &models.Prompt{ID: id, SessionID: "s1", Type: typ, CreatedAt: time.Now()}
}

func TestPeekTopPriorityPreemptsInsertionOrder(t *testing.T) {
	q := New()
	q.Enqueue(prompt("plan", models.PromptPlanApproval))
	q.Enqueue(prompt("perm", models.PromptPermission))

	top := q.PeekTop()
	if top == nil || top.ID != "perm" {
		t.Fatalf("expected permission prompt on top, got %+v", top)
	}
}

func TestPeekTopTieBreaksByInsertionOrder(t *testing.T) {
	q := New()
	q.Enqueue(prompt("first", models.PromptPermission))
	q.Enqueue(prompt("second", models.PromptPermission))

	top := q.PeekTop()
	if top == nil || top.ID != "first" {
		t.Fatalf("expected earlier permission prompt on top, got %+v", top)
	}
}

func TestPeekTopEmpty(t *testing.T) {
	q := New()
	if top := q.PeekTop(); top != nil {
		t.Fatalf("expected nil on empty queue, got %+v", top)
	}
}

func TestRemove(t *testing.T) {
	q := New()
	q.Enqueue(prompt("a", models.PromptPlanApproval))
	q.Enqueue(prompt("b", models.PromptUserQuestion))

	t.Run("removes by id regardless of position", func(t *testing.T) {
		if !q.Remove("b") {
			t.Fatal("expected remove to report presence")
		}
		if q.Len() != 1 {
			t.Fatalf("expected len 1, got %d", q.Len())
		}
	})

	t.Run("nonexistent id is a no-op", func(t *testing.T) {
		if q.Remove("b") {
			t.Fatal("second remove should report absence")
		}
		if q.Len() != 1 {
			t.Fatalf("no-op remove changed length: %d", q.Len())
		}
	})
}

func TestPendingOrder(t *testing.T) {
	q := New()
	q.Enqueue(prompt("commit", models.PromptCommitApproval))
	q.Enqueue(prompt("q1", models.PromptUserQuestion))
	q.Enqueue(prompt("perm", models.PromptPermission))
	q.Enqueue(prompt("q2", models.PromptUserQuestion))

	got := q.Pending()
	want := []string{"perm", "q1", "q2", "commit"}
	if len(got) != len(want) {
		t.Fatalf("expected %d prompts, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: got %s want %s", i, got[i].ID, id)
		}
	}
}

// Package queue holds the per-session ordered collection of pending prompts.
package queue

import (
	"sort"
	"sync"

	"github.com/wardenhq/warden/internal/models"
)

// Queue is one session's pending prompts. All operations are mutually
// exclusive per queue; unrelated sessions never contend.
type Queue struct {
	mu      sync.Mutex
	prompts []*models.Prompt // insertion order
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue appends p. Insertion order is preserved so same-priority prompts
// surface oldest first.
func (q *Queue) Enqueue(p *models.Prompt) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.prompts = append(q.prompts, p)
}

// PeekTop returns the pending prompt with the lowest priority rank, ties
// broken by insertion order. Returns nil when the queue is empty.
func (q *Queue) PeekTop() *models.Prompt {
	q.mu.Lock()
	defer q.mu.Unlock()

	var top *models.Prompt
	for _, p := range q.prompts {
		if top == nil || p.Type.Priority() < top.Type.Priority() {
			top = p
		}
	}
	return top
}

// Remove deletes the prompt with the given id regardless of position and
// reports whether it was present. Removing an unknown id is a no-op so
// duplicate resolutions stay safe.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, p := range q.prompts {
		if p.ID == id {
			q.prompts = append(q.prompts[:i], q.prompts[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of pending prompts.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.prompts)
}

// Pending returns a copy of the queue in surfacing order: priority rank
// first, then insertion order within a rank.
func (q *Queue) Pending() []*models.Prompt {
	q.mu.Lock()
	out := make([]*models.Prompt, len(q.prompts))
	copy(out, q.prompts)
	q.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Type.Priority() < out[j].Type.Priority()
	})
	return out
}

package signal

import "sync"

// MemoryChannel is the in-process backend used by the gateway service itself
// and by tests. It satisfies the same check-and-consume atomicity contract as
// the durable backends.
type MemoryChannel struct {
	mu    sync.Mutex
	marks map[string]struct{}
}

// NewMemoryChannel returns an empty in-memory channel.
func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{marks: make(map[string]struct{})}
}

func (c *MemoryChannel) Mark(sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.marks[sessionID] = struct{}{}
	return nil
}

func (c *MemoryChannel) Check(sessionID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.marks[sessionID]
	return ok, nil
}

func (c *MemoryChannel) Consume(sessionID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.marks[sessionID]
	if ok {
		delete(c.marks, sessionID)
	}
	return ok, nil
}

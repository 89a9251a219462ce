package signal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileChannel marks sessions with sentinel files under a shared directory.
// Durable across process boundaries: a process started after the mark still
// sees it. Consume relies on os.Remove being atomic, so exactly one of two
// racing consumers wins.
type FileChannel struct {
	dir string
}

// NewFileChannel returns a channel rooted at dir. The directory is created
// lazily on first Mark.
func NewFileChannel(dir string) *FileChannel {
	return &FileChannel{dir: dir}
}

func (c *FileChannel) path(sessionID string) string {
	return filepath.Join(c.dir, sanitizeID(sessionID)+".resolved")
}

// Mark writes the sentinel file for the session.
func (c *FileChannel) Mark(sessionID string) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create sentinel dir: %w", err)
	}
	payload := []byte(time.Now().UTC().Format(time.RFC3339) + "\n")
	if err := os.WriteFile(c.path(sessionID), payload, 0o644); err != nil {
		return fmt.Errorf("write sentinel: %w", err)
	}
	return nil
}

// Check reports whether the sentinel exists without consuming it.
func (c *FileChannel) Check(sessionID string) (bool, error) {
	_, err := os.Stat(c.path(sessionID))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat sentinel: %w", err)
}

// Consume removes the sentinel. The remove either succeeds for exactly one
// caller or reports not-exist, so a second racing consumer observes false.
func (c *FileChannel) Consume(sessionID string) (bool, error) {
	err := os.Remove(c.path(sessionID))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("remove sentinel: %w", err)
}

// sanitizeID keeps session ids filesystem-safe. Anything outside
// [A-Za-z0-9._-] becomes an underscore.
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, id)
}

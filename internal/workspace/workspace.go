// Package workspace manages per-request scratch directories under a single
// root, keyed by fresh UUIDs, with a TTL sweeper for two-step retrieval.
package workspace

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Dir for ids with no scratch directory.
type ErrNotFound struct {
	RequestID string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("no workspace for request id %q", e.RequestID)
}

// Manager owns the scratch root. Directories created in streaming mode are
// removed by the request itself; two-step directories persist until the
// sweeper reaps them after TTL.
type Manager struct {
	root string
	ttl  time.Duration

	stopOnce sync.Once
	started  bool
	stop     chan struct{}
	done     chan struct{}
}

// NewManager creates the scratch root if needed.
func NewManager(root string, ttl time.Duration) (*Manager, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scratch root %s: %w", root, err)
	}
	return &Manager{
		root: root,
		ttl:  ttl,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}, nil
}

// Root returns the scratch root path.
func (m *Manager) Root() string {
	return m.root
}

// NewScratch allocates a fresh request-scoped directory and returns its id
// and path.
func (m *Manager) NewScratch() (id string, dir string, err error) {
	id = uuid.New().String()
	dir = filepath.Join(m.root, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create scratch directory %s: %w", dir, err)
	}
	return id, dir, nil
}

// Dir resolves a request id to its scratch directory. The id must parse
// as a UUID, which also keeps path traversal out of the scratch root.
func (m *Manager) Dir(requestID string) (string, error) {
	if _, err := uuid.Parse(requestID); err != nil {
		return "", &ErrNotFound{RequestID: requestID}
	}
	dir := filepath.Join(m.root, requestID)
	if _, err := os.Stat(dir); err != nil {
		return "", &ErrNotFound{RequestID: requestID}
	}
	return dir, nil
}

// Remove deletes a scratch directory. Failures are logged, never
// escalated: housekeeping must not outrank the request's primary result.
func (m *Manager) Remove(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		log.Printf("failed to remove scratch directory %s: %v", dir, err)
	}
}

// StartSweeper reaps scratch directories older than the TTL every
// interval until Stop is called.
func (m *Manager) StartSweeper(interval time.Duration) {
	m.started = true
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.sweep()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop terminates the sweeper goroutine.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		if m.started {
			<-m.done
		}
	})
}

// sweep removes request directories whose mtime is older than the TTL.
func (m *Manager) sweep() {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		log.Printf("scratch sweep failed to read %s: %v", m.root, err)
		return
	}
	cutoff := time.Now().Add(-m.ttl)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			dir := filepath.Join(m.root, entry.Name())
			log.Printf("reaping expired scratch directory %s", dir)
			m.Remove(dir)
		}
	}
}

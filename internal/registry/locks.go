package registry

import (
	"errors"
	"fmt"
	"sync"
)

// ErrProjectBusy indicates a collaboration run is already in progress for
// the project. Callers should queue or reject, never merge two runs.
var ErrProjectBusy = errors.New("project run already in progress")

// RunLocks is the process-wide table of per-project run locks.
// Runs on different projects are independent; a second run on the same
// project fails fast instead of blocking.
type RunLocks struct {
	mu     sync.Mutex
	active map[string]bool
}

// NewRunLocks creates an empty lock table.
func NewRunLocks() *RunLocks {
	return &RunLocks{active: make(map[string]bool)}
}

// Acquire takes the exclusive run lock for a project.
// Fails with ErrProjectBusy if the project is already mid-run.
func (l *RunLocks) Acquire(projectID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active[projectID] {
		return fmt.Errorf("%w: %s", ErrProjectBusy, projectID)
	}
	l.active[projectID] = true
	return nil
}

// Release frees the run lock for a project. Safe to call when not held.
func (l *RunLocks) Release(projectID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, projectID)
}

// Held reports whether a run is in progress for the project.
func (l *RunLocks) Held(projectID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active[projectID]
}

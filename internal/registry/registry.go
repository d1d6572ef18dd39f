// Package registry holds the process-wide set of AI workers and the
// per-project run locks. It is populated at startup and passed by
// reference to the components that need it.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ecrowe/quorum/pkg/models"
)

// ErrDuplicateWorker indicates a Register call for a key that already exists.
// Re-registering must be explicit via Replace; silent overwrites are not allowed.
var ErrDuplicateWorker = errors.New("worker already registered")

// ErrUnknownWorker indicates a lookup for a key that was never registered.
var ErrUnknownWorker = errors.New("unknown worker")

// Registry is the process-wide worker registry.
// Registration order is preserved so listings are deterministic.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	workers map[string]*models.Worker
	// failures counts permanent task failures per worker. Crossing
	// failureLimit trips the availability flag.
	failures     map[string]int
	failureLimit int
}

// New creates an empty registry. failureLimit is the number of permanent
// task failures after which a worker is marked unavailable; zero disables
// the policy.
func New(failureLimit int) *Registry {
	return &Registry{
		workers:      make(map[string]*models.Worker),
		failures:     make(map[string]int),
		failureLimit: failureLimit,
	}
}

// Register adds a new worker definition. Fails with ErrDuplicateWorker if
// the key is already registered.
func (r *Registry) Register(w *models.Worker) error {
	if w.Key == "" {
		return fmt.Errorf("worker key is empty")
	}
	if !w.Role.Valid() {
		return fmt.Errorf("worker %s has invalid role %q", w.Key, w.Role)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.workers[w.Key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateWorker, w.Key)
	}

	cp := *w
	cp.Available = true
	r.workers[w.Key] = &cp
	r.order = append(r.order, w.Key)
	return nil
}

// Replace installs a worker definition, overwriting any existing one with
// the same key. The availability flag and failure count are reset.
func (r *Registry) Replace(w *models.Worker) error {
	if w.Key == "" {
		return fmt.Errorf("worker key is empty")
	}
	if !w.Role.Valid() {
		return fmt.Errorf("worker %s has invalid role %q", w.Key, w.Role)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.workers[w.Key]; !exists {
		r.order = append(r.order, w.Key)
	}
	cp := *w
	cp.Available = true
	r.workers[w.Key] = &cp
	delete(r.failures, w.Key)
	return nil
}

// Get returns the worker for a key, or ErrUnknownWorker.
func (r *Registry) Get(key string) (*models.Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.workers[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWorker, key)
	}
	cp := *w
	return &cp, nil
}

// ListAvailable returns available workers in registration order,
// optionally filtered by role. Pass an empty role for no filter.
func (r *Registry) ListAvailable(role models.Role) []*models.Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Worker
	for _, key := range r.order {
		w := r.workers[key]
		if !w.Available {
			continue
		}
		if role != "" && w.Role != role {
			continue
		}
		cp := *w
		out = append(out, &cp)
	}
	return out
}

// MarkUnavailable takes a worker out of rotation.
func (r *Registry) MarkUnavailable(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.workers[key]; ok {
		w.Available = false
	}
}

// MarkAvailable returns a worker to rotation and resets its failure count.
func (r *Registry) MarkAvailable(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.workers[key]; ok {
		w.Available = true
		delete(r.failures, key)
	}
}

// RecordFailure counts one permanent task failure against a worker.
// Returns true if the worker was marked unavailable as a result.
func (r *Registry) RecordFailure(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.workers[key]
	if !ok {
		return false
	}
	r.failures[key]++
	if r.failureLimit > 0 && r.failures[key] >= r.failureLimit && w.Available {
		w.Available = false
		return true
	}
	return false
}

// Size returns the number of registered workers.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workers)
}

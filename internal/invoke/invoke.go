// Package invoke sends task prompts to AI workers and returns their
// contributions. The Anthropic API is the production backend; the
// Invoker interface keeps the scheduler testable without network calls.
package invoke

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecrowe/quorum/pkg/models"
)

// Result is a single worker contribution.
type Result struct {
	// Text is the worker's output.
	Text string
	// Confidence is the worker's self-assessed score in [0,1].
	Confidence float64
}

// Invoker runs one worker against one prompt.
type Invoker interface {
	Invoke(ctx context.Context, worker *models.Worker, prompt string) (*Result, error)
}

// WorkerError is a failed worker invocation. Transient errors (rate
// limits, timeouts, 5xx) are retried; permanent ones are not.
type WorkerError struct {
	WorkerKey string
	Transient bool
	Err       error
}

func (e *WorkerError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("worker %s: %s failure: %v", e.WorkerKey, kind, e.Err)
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable worker failure.
func IsTransient(err error) bool {
	var we *WorkerError
	if !errors.As(err, &we) {
		return false
	}
	return we.Transient
}

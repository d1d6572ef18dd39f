package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ecrowe/quorum/internal/config"
	"github.com/ecrowe/quorum/internal/graph"
	"github.com/ecrowe/quorum/internal/invoke"
	"github.com/ecrowe/quorum/internal/registry"
	"github.com/ecrowe/quorum/pkg/models"
)

// Store is the persistence surface the scheduler needs: whole-project
// saves at wave boundaries and ledger appends on task completion.
type Store interface {
	SaveProject(p *models.Project) error
	AppendLedgerEntry(e *models.LedgerEntry) error
}

// Scheduler executes a project's task graph wave by wave.
// Tasks inside a wave run concurrently; a wave does not start until the
// previous one has fully finished and been persisted.
type Scheduler struct {
	registry *registry.Registry
	locks    *registry.RunLocks
	store    Store
	invoker  invoke.Invoker
	cfg      config.SchedulerConfig
	logger   *DebugLogger
}

// New creates a scheduler. logger may be NopLogger().
func New(reg *registry.Registry, locks *registry.RunLocks, st Store, inv invoke.Invoker, cfg config.SchedulerConfig, logger *DebugLogger) *Scheduler {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Scheduler{
		registry: reg,
		locks:    locks,
		store:    st,
		invoker:  inv,
		cfg:      cfg,
		logger:   logger,
	}
}

// RunResult summarizes one collaboration run.
type RunResult struct {
	Waves     int
	Completed int
	Failed    int
	Blocked   int
	Entries   []*models.LedgerEntry
}

// Run executes every runnable task in the project and returns the run
// summary. The project is saved after each wave, so a crash or
// cancellation loses at most one wave of work; rerunning the same
// project skips tasks that are already done.
//
// Fails fast with registry.ErrProjectBusy when a run is already in
// progress for this project.
func (s *Scheduler) Run(ctx context.Context, project *models.Project) (*RunResult, error) {
	if err := s.locks.Acquire(project.ID); err != nil {
		return nil, err
	}
	defer s.locks.Release(project.ID)

	g := graph.New()
	if err := g.Build(project.Tasks); err != nil {
		return nil, fmt.Errorf("building task graph: %w", err)
	}
	waves, err := g.Waves()
	if err != nil {
		return nil, fmt.Errorf("ordering task graph: %w", err)
	}

	s.logger.Log("[scheduler] project %s: %d tasks in %d waves", project.ID, len(project.Tasks), len(waves))

	// Persist the plan now that the lock is held: a crash mid-run can
	// resume from it, and a busy rejection has touched nothing durable.
	project.LastActive = time.Now().UTC()
	if err := s.store.SaveProject(project); err != nil {
		return nil, fmt.Errorf("saving plan: %w", err)
	}

	result := &RunResult{Waves: len(waves)}

	for i, wave := range waves {
		if err := ctx.Err(); err != nil {
			s.logger.Log("[scheduler] project %s: cancelled before wave %d", project.ID, i+1)
			return result, err
		}

		runnable := s.prepareWave(g, wave, i+1)

		var wg sync.WaitGroup
		var mu sync.Mutex
		for _, task := range runnable {
			wg.Add(1)
			go func(task *models.Task) {
				defer wg.Done()
				entry := s.runTask(ctx, project, g, task)
				if entry != nil {
					mu.Lock()
					result.Entries = append(result.Entries, entry)
					mu.Unlock()
				}
			}(task)
		}
		wg.Wait()

		// Failures block every transitive dependent before the next
		// wave is prepared.
		for _, task := range wave {
			if task.Status == models.TaskStatusFailed {
				s.blockDependents(g, task.ID)
			}
		}

		project.LastActive = time.Now().UTC()
		if err := s.store.SaveProject(project); err != nil {
			return result, fmt.Errorf("saving project after wave %d: %w", i+1, err)
		}
		s.logger.Log("[scheduler] project %s: wave %d/%d persisted", project.ID, i+1, len(waves))
	}

	for _, task := range project.Tasks {
		switch task.Status {
		case models.TaskStatusDone:
			result.Completed++
		case models.TaskStatusFailed:
			result.Failed++
		case models.TaskStatusBlocked:
			result.Blocked++
		}
	}

	s.logger.Log("[scheduler] project %s: run finished, %d done / %d failed / %d blocked",
		project.ID, result.Completed, result.Failed, result.Blocked)

	return result, nil
}

// prepareWave marks the wave's tasks ready or blocked and returns the
// ones to dispatch. Terminal tasks (done, failed, blocked) are skipped,
// so a rerun is idempotent and only picks up pending work.
func (s *Scheduler) prepareWave(g *graph.DependencyGraph, wave []*models.Task, n int) []*models.Task {
	var runnable []*models.Task
	for _, task := range wave {
		if task.Status.Terminal() {
			if task.Status == models.TaskStatusDone {
				s.logger.Log("[scheduler] wave %d: task %s already done, skipping", n, task.ID)
			}
			continue
		}

		blockedBy := ""
		for _, depID := range task.DependsOn {
			dep := g.Task(depID)
			if dep != nil && dep.Status != models.TaskStatusDone {
				blockedBy = depID
				break
			}
		}
		if blockedBy != "" {
			now := time.Now().UTC()
			task.Status = models.TaskStatusBlocked
			task.StatusReason = "dependency_failed:" + blockedBy
			task.CompletedAt = &now
			s.logger.Log("[scheduler] wave %d: task %s blocked on %s", n, task.ID, blockedBy)
			continue
		}

		task.Status = models.TaskStatusReady
		runnable = append(runnable, task)
	}
	return runnable
}

// runTask invokes a worker for one task, retrying transient failures
// with exponential backoff. Returns the ledger entry on success.
func (s *Scheduler) runTask(ctx context.Context, project *models.Project, g *graph.DependencyGraph, task *models.Task) *models.LedgerEntry {
	worker := s.pickWorker(task.Role)
	if worker == nil {
		now := time.Now().UTC()
		task.Status = models.TaskStatusFailed
		task.StatusReason = fmt.Sprintf("no available worker for role %s", task.Role)
		task.CompletedAt = &now
		s.logger.Log("[scheduler] task %s: no available worker for role %s", task.ID, task.Role)
		return nil
	}

	now := time.Now().UTC()
	task.Status = models.TaskStatusRunning
	task.StartedAt = &now

	prompt := s.buildPrompt(project, g, task)

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			task.RetryCount++
			backoff := s.cfg.BackoffBase << (attempt - 2)
			s.logger.Log("[scheduler] task %s: attempt %d after %v backoff", task.ID, attempt, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				lastErr = ctx.Err()
				break
			}
		}

		started := time.Now()
		result, err := s.invokeOnce(ctx, worker, prompt)
		if err == nil {
			done := time.Now().UTC()
			task.Status = models.TaskStatusDone
			task.Result = result.Text
			confidence := result.Confidence
			task.Confidence = &confidence
			task.CompletedAt = &done

			entry := &models.LedgerEntry{
				ProjectID:  task.ProjectID,
				TaskID:     task.ID,
				WorkerKey:  worker.Key,
				Output:     result.Text,
				Confidence: confidence,
				Duration:   time.Since(started),
				CreatedAt:  done,
			}
			if err := s.store.AppendLedgerEntry(entry); err != nil {
				s.logger.Log("[scheduler] task %s: ledger append failed: %v", task.ID, err)
			}
			s.logger.Log("[scheduler] task %s: done by %s (confidence %.2f, attempt %d)",
				task.ID, worker.Key, confidence, attempt)
			return entry
		}

		lastErr = err
		if !invoke.IsTransient(err) {
			s.logger.Log("[scheduler] task %s: permanent failure from %s: %v", task.ID, worker.Key, err)
			break
		}
		s.logger.Log("[scheduler] task %s: transient failure from %s: %v", task.ID, worker.Key, err)
	}

	if ctx.Err() != nil {
		// Cancelled mid-flight: the task stays pending for the next run
		// and the worker's failure account is untouched.
		task.Status = models.TaskStatusPending
		task.StartedAt = nil
		s.logger.Log("[scheduler] task %s: cancelled, left pending", task.ID)
		return nil
	}

	failedAt := time.Now().UTC()
	task.Status = models.TaskStatusFailed
	task.StatusReason = fmt.Sprintf("worker %s failed: %v", worker.Key, lastErr)
	task.CompletedAt = &failedAt
	if tripped := s.registry.RecordFailure(worker.Key); tripped {
		s.logger.Log("[scheduler] worker %s marked unavailable after repeated failures", worker.Key)
	}
	return nil
}

// invokeOnce runs a single attempt under the per-invocation timeout.
func (s *Scheduler) invokeOnce(ctx context.Context, worker *models.Worker, prompt string) (*invoke.Result, error) {
	if s.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.TaskTimeout)
		defer cancel()
	}
	return s.invoker.Invoke(ctx, worker, prompt)
}

// pickWorker chooses the first available worker for the role, falling
// back to a general worker when the role has none.
func (s *Scheduler) pickWorker(role models.Role) *models.Worker {
	if workers := s.registry.ListAvailable(role); len(workers) > 0 {
		return workers[0]
	}
	if role != models.RoleGeneral {
		if workers := s.registry.ListAvailable(models.RoleGeneral); len(workers) > 0 {
			return workers[0]
		}
	}
	return nil
}

// buildPrompt assembles the task prompt: the task description, the
// project context with earlier requests, and the outputs of completed
// dependencies so later waves build on earlier ones.
func (s *Scheduler) buildPrompt(project *models.Project, g *graph.DependencyGraph, task *models.Task) string {
	var b strings.Builder
	b.WriteString(task.Description)

	fmt.Fprintf(&b, "\n\nProject: %s", project.Name)
	if project.Description != "" && project.Description != project.Name {
		fmt.Fprintf(&b, "\n%s", project.Description)
	}
	// The last history entry is the request this task came from.
	if len(project.History) > 1 {
		b.WriteString("\n\nEarlier requests in this project:\n")
		for _, req := range project.History[:len(project.History)-1] {
			fmt.Fprintf(&b, "- %s\n", req)
		}
	}

	var deps []*models.Task
	for _, depID := range task.DependsOn {
		if dep := g.Task(depID); dep != nil && dep.Status == models.TaskStatusDone && dep.Result != "" {
			deps = append(deps, dep)
		}
	}
	if len(deps) > 0 {
		b.WriteString("\n\nOutputs from prerequisite tasks:\n")
		for _, dep := range deps {
			fmt.Fprintf(&b, "\n--- %s ---\n%s\n", dep.Description, dep.Result)
		}
	}
	return b.String()
}

// blockDependents marks every transitive dependent of a failed task as
// blocked, recording which failure caused it.
func (s *Scheduler) blockDependents(g *graph.DependencyGraph, failedID string) {
	for _, depID := range g.TransitiveDependents(failedID) {
		task := g.Task(depID)
		if task == nil {
			continue
		}
		switch task.Status {
		case models.TaskStatusPending, models.TaskStatusReady:
			now := time.Now().UTC()
			task.Status = models.TaskStatusBlocked
			task.StatusReason = "dependency_failed:" + failedID
			task.CompletedAt = &now
			s.logger.Log("[scheduler] task %s blocked (depends on failed task %s)", depID, failedID)
		}
	}
}

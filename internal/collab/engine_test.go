package collab

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ecrowe/quorum/internal/config"
	"github.com/ecrowe/quorum/internal/invoke"
	"github.com/ecrowe/quorum/internal/planner"
	"github.com/ecrowe/quorum/internal/registry"
	"github.com/ecrowe/quorum/internal/scheduler"
	"github.com/ecrowe/quorum/internal/store"
	"github.com/ecrowe/quorum/internal/synthesis"
	"github.com/ecrowe/quorum/pkg/models"
)

// echoInvoker answers every prompt with a role-flavored response.
type echoInvoker struct{}

func (echoInvoker) Invoke(_ context.Context, w *models.Worker, prompt string) (*invoke.Result, error) {
	line := prompt
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return &invoke.Result{Text: w.Name + " says: " + line, Confidence: 0.8}, nil
}

// failingInvoker always fails permanently.
type failingInvoker struct{}

func (failingInvoker) Invoke(_ context.Context, w *models.Worker, _ string) (*invoke.Result, error) {
	return nil, &invoke.WorkerError{WorkerKey: w.Key, Transient: false, Err: errors.New("model down")}
}

func newEngine(t *testing.T, inv invoke.Invoker) (*Engine, *store.DB, *registry.RunLocks) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "quorum.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()

	reg := registry.New(cfg.Workers.FailureLimit)
	for _, w := range config.DefaultWorkers() {
		if err := reg.Register(w); err != nil {
			t.Fatalf("register %s: %v", w.Key, err)
		}
	}

	dec := planner.NewTemplateDecomposer(reg, cfg.Planner.MaxWorkersPerProject)
	locks := registry.NewRunLocks()
	sched := scheduler.New(reg, locks, db, inv, cfg.Scheduler, scheduler.NopLogger())

	var priority []models.Role
	for _, r := range cfg.Synthesis.RolePriority {
		priority = append(priority, models.Role(r))
	}
	syn := synthesis.New(priority)

	return New(db, dec, sched, syn, cfg), db, locks
}

func TestHandleRequestNewProject(t *testing.T) {
	e, db, _ := newEngine(t, echoInvoker{})

	resp, project, err := e.HandleRequest(context.Background(), "alice", "", "compare two caching strategies")
	if err != nil {
		t.Fatalf("handle request: %v", err)
	}

	if project.ID == "" || project.Owner != "alice" {
		t.Errorf("project = %+v", project)
	}
	if project.Status != models.ProjectCompleted {
		t.Errorf("status = %s, want completed", project.Status)
	}
	if len(project.History) != 1 {
		t.Errorf("history = %v", project.History)
	}

	// Every default role contributed a section.
	if len(resp.Confidences) != 5 {
		t.Errorf("confidences = %v", resp.Confidences)
	}
	if !strings.Contains(resp.Text, "## Overview") {
		t.Errorf("response missing overview section:\n%s", resp.Text)
	}
	if len(resp.Incomplete) != 0 {
		t.Errorf("incomplete = %v", resp.Incomplete)
	}

	// The run was persisted: a fresh load sees the completed tasks.
	loaded, err := db.LoadProject(project.ID, "alice")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, task := range loaded.Tasks {
		if task.Status != models.TaskStatusDone {
			t.Errorf("persisted task %s status = %s", task.ID, task.Status)
		}
	}
}

func TestHandleRequestContinuesProject(t *testing.T) {
	e, _, _ := newEngine(t, echoInvoker{})

	_, project, err := e.HandleRequest(context.Background(), "alice", "", "first question")
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	firstCount := len(project.Tasks)

	_, again, err := e.HandleRequest(context.Background(), "alice", project.ID, "follow-up question")
	if err != nil {
		t.Fatalf("second request: %v", err)
	}

	if again.ID != project.ID {
		t.Errorf("expected same project, got %s", again.ID)
	}
	if len(again.Tasks) <= firstCount {
		t.Errorf("follow-up should append tasks: %d -> %d", firstCount, len(again.Tasks))
	}
	if len(again.History) != 2 {
		t.Errorf("history = %v", again.History)
	}
}

func TestHandleRequestOwnerIsolation(t *testing.T) {
	e, _, _ := newEngine(t, echoInvoker{})

	_, project, err := e.HandleRequest(context.Background(), "alice", "", "private question")
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	_, _, err = e.HandleRequest(context.Background(), "mallory", project.ID, "reading someone else's project")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign owner, got %v", err)
	}
}

func TestHandleRequestBusyProjectUnchanged(t *testing.T) {
	e, db, locks := newEngine(t, echoInvoker{})

	_, project, err := e.HandleRequest(context.Background(), "alice", "", "first question")
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	taskCount := len(project.Tasks)

	// Simulate a run in progress, then issue a concurrent request.
	if err := locks.Acquire(project.ID); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer locks.Release(project.ID)

	_, _, err = e.HandleRequest(context.Background(), "alice", project.ID, "concurrent question")
	if !errors.Is(err, registry.ErrProjectBusy) {
		t.Fatalf("expected ErrProjectBusy, got %v", err)
	}

	// The rejected request left no trace: same tasks, same history.
	loaded, err := db.LoadProject(project.ID, "alice")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Tasks) != taskCount {
		t.Errorf("persisted tasks = %d, want %d", len(loaded.Tasks), taskCount)
	}
	for _, task := range loaded.Tasks {
		if !task.Status.Terminal() {
			t.Errorf("task %s left in status %s", task.ID, task.Status)
		}
	}
	if len(loaded.History) != 1 || loaded.History[0] != "first question" {
		t.Errorf("history = %v", loaded.History)
	}
}

func TestHandleRequestEmptyText(t *testing.T) {
	e, _, _ := newEngine(t, echoInvoker{})

	_, _, err := e.HandleRequest(context.Background(), "alice", "", "   ")
	if !errors.Is(err, store.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestHandleRequestAllWorkersFail(t *testing.T) {
	e, _, _ := newEngine(t, failingInvoker{})

	_, project, err := e.HandleRequest(context.Background(), "alice", "", "doomed question")
	if !errors.Is(err, synthesis.ErrNoContributions) {
		t.Fatalf("expected ErrNoContributions, got %v", err)
	}
	// The failed run is still persisted and the project stays active.
	if project == nil || project.Status != models.ProjectActive {
		t.Errorf("project = %+v", project)
	}
}

func TestHandleRequestHistoryBound(t *testing.T) {
	e, _, _ := newEngine(t, echoInvoker{})
	e.cfg.Projects.HistoryLimit = 2

	_, project, err := e.HandleRequest(context.Background(), "alice", "", "one")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	for _, req := range []string{"two", "three"} {
		if _, project, err = e.HandleRequest(context.Background(), "alice", project.ID, req); err != nil {
			t.Fatalf("request %s: %v", req, err)
		}
	}

	if len(project.History) != 2 {
		t.Fatalf("history = %v, want last 2", project.History)
	}
	if project.History[0] != "two" || project.History[1] != "three" {
		t.Errorf("history = %v", project.History)
	}
}

func TestArchiveSweep(t *testing.T) {
	e, db, _ := newEngine(t, echoInvoker{})

	_, project, err := e.HandleRequest(context.Background(), "alice", "", "old question")
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	// Nothing is old enough yet.
	n, err := e.ArchiveSweep()
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 0 {
		t.Errorf("archived %d projects, want 0", n)
	}

	// Backdate the project and sweep again.
	if _, err := db.Exec(`UPDATE projects SET last_active = '2020-01-01T00:00:00Z' WHERE id = ?`, project.ID); err != nil {
		t.Fatalf("backdate: %v", err)
	}
	n, err = e.ArchiveSweep()
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("archived %d projects, want 1", n)
	}
}

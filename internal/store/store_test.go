package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ecrowe/quorum/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "quorum.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestCreateProject(t *testing.T) {
	db := openTestDB(t)

	p, err := db.CreateProject("user-1", "docs", "write the docs")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == "" {
		t.Error("expected generated project id")
	}
	if p.Status != models.ProjectActive {
		t.Errorf("status = %s, want active", p.Status)
	}

	loaded, err := db.LoadProject(p.ID, "user-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Name != "docs" || loaded.Description != "write the docs" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestCreateProjectEmptyName(t *testing.T) {
	db := openTestDB(t)

	_, err := db.CreateProject("user-1", "  ", "desc")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestLoadProjectOwnerIsolation(t *testing.T) {
	db := openTestDB(t)

	p, err := db.CreateProject("alice", "private", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := db.LoadProject(p.ID, "mallory"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for wrong owner, got %v", err)
	}
	if _, err := db.LoadProject("no-such-id", "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing project, got %v", err)
	}
}

func TestSaveProjectRoundTrip(t *testing.T) {
	db := openTestDB(t)

	p, err := db.CreateProject("user-1", "plan", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	now := time.Now()
	started := now.Add(time.Second)
	completed := now.Add(2 * time.Second)
	conf := 0.85
	p.History = []string{"first request"}
	p.Tasks = []*models.Task{
		{
			ID: "t1", ProjectID: p.ID, Description: "analyze", Role: models.RoleGeneral,
			Status: models.TaskStatusDone, Result: "analysis text", Confidence: &conf,
			CreatedAt: now, StartedAt: &started, CompletedAt: &completed,
		},
		{
			ID: "t2", ProjectID: p.ID, Description: "implement", Role: models.RoleCode,
			Status: models.TaskStatusPending, DependsOn: []string{"t1"}, CreatedAt: now,
		},
	}
	p.LastActive = now

	if err := db.SaveProject(p); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := db.LoadProject(p.ID, "user-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(loaded.Tasks))
	}
	// Task order must survive the round trip.
	if loaded.Tasks[0].ID != "t1" || loaded.Tasks[1].ID != "t2" {
		t.Errorf("task order = %s, %s", loaded.Tasks[0].ID, loaded.Tasks[1].ID)
	}
	t1 := loaded.Tasks[0]
	if t1.Confidence == nil || *t1.Confidence != 0.85 {
		t.Errorf("confidence = %v, want 0.85", t1.Confidence)
	}
	if t1.StartedAt == nil || t1.CompletedAt == nil {
		t.Error("expected timestamps to survive the round trip")
	}
	t2 := loaded.Tasks[1]
	if t2.Confidence != nil {
		t.Error("pending task must have nil confidence")
	}
	if len(t2.DependsOn) != 1 || t2.DependsOn[0] != "t1" {
		t.Errorf("depends_on = %v", t2.DependsOn)
	}
	if len(loaded.History) != 1 || loaded.History[0] != "first request" {
		t.Errorf("history = %v", loaded.History)
	}
}

func TestSaveProjectReplacesTasks(t *testing.T) {
	db := openTestDB(t)

	p, _ := db.CreateProject("user-1", "p", "")
	p.Tasks = []*models.Task{{ID: "t1", Description: "a", Role: models.RoleGeneral, Status: models.TaskStatusPending, CreatedAt: time.Now()}}
	if err := db.SaveProject(p); err != nil {
		t.Fatalf("save 1: %v", err)
	}

	p.Tasks = []*models.Task{{ID: "t2", Description: "b", Role: models.RoleCode, Status: models.TaskStatusPending, CreatedAt: time.Now()}}
	if err := db.SaveProject(p); err != nil {
		t.Fatalf("save 2: %v", err)
	}

	loaded, _ := db.LoadProject(p.ID, "user-1")
	if len(loaded.Tasks) != 1 || loaded.Tasks[0].ID != "t2" {
		t.Errorf("expected save to replace the task list, got %v", loaded.Tasks)
	}
}

func TestLedgerAppendAndList(t *testing.T) {
	db := openTestDB(t)
	p, _ := db.CreateProject("user-1", "p", "")

	e1 := &models.LedgerEntry{ProjectID: p.ID, TaskID: "t1", WorkerKey: "general", Output: "out1", Confidence: 0.8, Duration: 1200 * time.Millisecond}
	e2 := &models.LedgerEntry{ProjectID: p.ID, TaskID: "t2", WorkerKey: "coder", Output: "out2", Confidence: 0.9}
	if err := db.AppendLedgerEntry(e1); err != nil {
		t.Fatalf("append 1: %v", err)
	}
	if err := db.AppendLedgerEntry(e2); err != nil {
		t.Fatalf("append 2: %v", err)
	}
	if e1.ID == 0 || e2.ID <= e1.ID {
		t.Errorf("expected increasing ids, got %d then %d", e1.ID, e2.ID)
	}

	entries, err := db.LedgerEntries(p.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Output != "out1" || entries[0].Duration != 1200*time.Millisecond {
		t.Errorf("entry 0 = %+v", entries[0])
	}
}

func TestLedgerEntryValidation(t *testing.T) {
	db := openTestDB(t)

	err := db.AppendLedgerEntry(&models.LedgerEntry{ProjectID: "p", TaskID: "", WorkerKey: "w"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestCollaborationStats(t *testing.T) {
	db := openTestDB(t)
	p, _ := db.CreateProject("user-1", "p", "")

	for _, e := range []*models.LedgerEntry{
		{ProjectID: p.ID, TaskID: "t1", WorkerKey: "general", Output: "a", Confidence: 0.8},
		{ProjectID: p.ID, TaskID: "t2", WorkerKey: "general", Output: "b", Confidence: 0.6},
		{ProjectID: p.ID, TaskID: "t3", WorkerKey: "coder", Output: "c", Confidence: 0.9},
	} {
		if err := db.AppendLedgerEntry(e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	stats, err := db.CollaborationStatsFor(p.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalContributions != 3 || stats.UniqueWorkers != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Workers[0].WorkerKey != "general" || stats.Workers[0].Contributions != 2 {
		t.Errorf("worker 0 = %+v", stats.Workers[0])
	}
	if got := stats.Workers[0].AvgConfidence; got < 0.69 || got > 0.71 {
		t.Errorf("avg confidence = %v, want 0.7", got)
	}
}

func TestArchiveProject(t *testing.T) {
	db := openTestDB(t)
	p, _ := db.CreateProject("user-1", "p", "")

	if err := db.ArchiveProject(p.ID, "someone-else"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for wrong owner, got %v", err)
	}
	if err := db.ArchiveProject(p.ID, "user-1"); err != nil {
		t.Fatalf("archive: %v", err)
	}

	loaded, _ := db.LoadProject(p.ID, "user-1")
	if loaded.Status != models.ProjectArchived {
		t.Errorf("status = %s, want archived", loaded.Status)
	}
}

func TestArchiveInactive(t *testing.T) {
	db := openTestDB(t)

	stale, _ := db.CreateProject("user-1", "stale", "")
	stale.LastActive = time.Now().Add(-60 * 24 * time.Hour)
	if err := db.SaveProject(stale); err != nil {
		t.Fatalf("save: %v", err)
	}
	fresh, _ := db.CreateProject("user-1", "fresh", "")

	n, err := db.ArchiveInactive(30 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("archive inactive: %v", err)
	}
	if n != 1 {
		t.Errorf("archived %d projects, want 1", n)
	}

	got, _ := db.LoadProject(fresh.ID, "user-1")
	if got.Status != models.ProjectActive {
		t.Errorf("fresh project status = %s, want active", got.Status)
	}
}

func TestListProjects(t *testing.T) {
	db := openTestDB(t)

	db.CreateProject("alice", "one", "")
	db.CreateProject("alice", "two", "")
	db.CreateProject("bob", "other", "")

	projects, err := db.ListProjects("alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(projects) != 2 {
		t.Errorf("expected 2 projects for alice, got %d", len(projects))
	}
}

package graph

import (
	"errors"
	"testing"
	"time"

	"github.com/ecrowe/quorum/pkg/models"
)

func makeTasks(specs ...struct {
	id   string
	deps []string
}) []*models.Task {
	now := time.Now()
	tasks := make([]*models.Task, len(specs))
	for i, s := range specs {
		tasks[i] = &models.Task{
			ID:        s.id,
			Status:    models.TaskStatusPending,
			DependsOn: s.deps,
			CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
		}
	}
	return tasks
}

type spec = struct {
	id   string
	deps []string
}

func TestBuildSimple(t *testing.T) {
	g := New()
	err := g.Build(makeTasks(spec{"a", nil}, spec{"b", nil}, spec{"c", []string{"a", "b"}}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Size() != 3 {
		t.Errorf("expected size 3, got %d", g.Size())
	}
	if deps := g.Dependencies("c"); len(deps) != 2 {
		t.Errorf("expected 2 dependencies for c, got %v", deps)
	}
	if deps := g.Dependents("a"); len(deps) != 1 || deps[0] != "c" {
		t.Errorf("expected dependents of a = [c], got %v", deps)
	}
}

func TestBuildDanglingDependency(t *testing.T) {
	g := New()
	err := g.Build(makeTasks(spec{"a", []string{"ghost"}}))
	var dangling *DanglingDependencyError
	if !errors.As(err, &dangling) {
		t.Fatalf("expected DanglingDependencyError, got %v", err)
	}
	if dangling.TaskID != "a" || dangling.DepID != "ghost" {
		t.Errorf("unexpected error detail: %+v", dangling)
	}
}

func TestBuildCycleNamed(t *testing.T) {
	g := New()
	err := g.Build(makeTasks(spec{"a", []string{"b"}}, spec{"b", []string{"c"}}, spec{"c", []string{"a"}}))
	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	// The cycle path must name all three tasks and close on itself.
	if len(cycle.Cycle) != 4 || cycle.Cycle[0] != cycle.Cycle[len(cycle.Cycle)-1] {
		t.Errorf("expected closed 3-cycle, got %v", cycle.Cycle)
	}
}

func TestBuildSelfCycle(t *testing.T) {
	g := New()
	err := g.Build(makeTasks(spec{"a", []string{"a"}}))
	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected CycleError for self-dependency, got %v", err)
	}
}

func TestWavesScenario(t *testing.T) {
	// A (general), B (research), C (code, depends_on=[A,B]) -> [{A,B}, {C}]
	g := New()
	if err := g.Build(makeTasks(spec{"A", nil}, spec{"B", nil}, spec{"C", []string{"A", "B"}})); err != nil {
		t.Fatalf("build: %v", err)
	}

	waves, err := g.Waves()
	if err != nil {
		t.Fatalf("waves: %v", err)
	}
	if len(waves) != 2 {
		t.Fatalf("expected 2 waves, got %d", len(waves))
	}
	if len(waves[0]) != 2 || waves[0][0].ID != "A" || waves[0][1].ID != "B" {
		t.Errorf("wave 0 = %v", ids(waves[0]))
	}
	if len(waves[1]) != 1 || waves[1][0].ID != "C" {
		t.Errorf("wave 1 = %v", ids(waves[1]))
	}
}

func TestWavesEveryTaskExactlyOnce(t *testing.T) {
	g := New()
	tasks := makeTasks(
		spec{"a", nil},
		spec{"b", []string{"a"}},
		spec{"c", []string{"a"}},
		spec{"d", []string{"b", "c"}},
		spec{"e", nil},
		spec{"f", []string{"d", "e"}},
	)
	if err := g.Build(tasks); err != nil {
		t.Fatalf("build: %v", err)
	}

	waves, err := g.Waves()
	if err != nil {
		t.Fatalf("waves: %v", err)
	}

	seen := make(map[string]int)
	waveOf := make(map[string]int)
	for i, wave := range waves {
		for _, task := range wave {
			seen[task.ID]++
			waveOf[task.ID] = i
		}
	}
	if len(seen) != len(tasks) {
		t.Fatalf("expected %d tasks placed, got %d", len(tasks), len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("task %s placed %d times", id, n)
		}
	}
	// Every dependency must sit in a strictly earlier wave.
	for _, task := range tasks {
		for _, dep := range task.DependsOn {
			if waveOf[dep] >= waveOf[task.ID] {
				t.Errorf("task %s (wave %d) depends on %s (wave %d)", task.ID, waveOf[task.ID], dep, waveOf[dep])
			}
		}
	}
}

func TestWavesDeterministicOrder(t *testing.T) {
	build := func() [][]*models.Task {
		g := New()
		if err := g.Build(makeTasks(spec{"z", nil}, spec{"m", nil}, spec{"a", nil})); err != nil {
			t.Fatalf("build: %v", err)
		}
		waves, err := g.Waves()
		if err != nil {
			t.Fatalf("waves: %v", err)
		}
		return waves
	}

	for i := 0; i < 10; i++ {
		waves := build()
		got := ids(waves[0])
		if got[0] != "z" || got[1] != "m" || got[2] != "a" {
			t.Fatalf("wave order not creation order: %v", got)
		}
	}
}

func TestTransitiveDependents(t *testing.T) {
	g := New()
	err := g.Build(makeTasks(
		spec{"a", nil},
		spec{"b", []string{"a"}},
		spec{"c", []string{"b"}},
		spec{"d", nil},
	))
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	got := g.TransitiveDependents("a")
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("transitive dependents of a = %v, want [b c]", got)
	}
	if got := g.TransitiveDependents("d"); len(got) != 0 {
		t.Errorf("expected no dependents for d, got %v", got)
	}
}

func ids(tasks []*models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

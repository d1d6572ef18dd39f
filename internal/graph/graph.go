// Package graph validates task dependency graphs and computes wave execution order.
package graph

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ecrowe/quorum/pkg/models"
)

// CycleError indicates a circular dependency in the task graph.
// Cycle holds the offending path, first and last element equal.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return "circular dependency detected: " + strings.Join(e.Cycle, " -> ")
}

// DanglingDependencyError indicates a depends_on reference to a task
// that does not exist in the same build.
type DanglingDependencyError struct {
	TaskID string
	DepID  string
}

func (e *DanglingDependencyError) Error() string {
	return fmt.Sprintf("task %s depends on unknown task %s", e.TaskID, e.DepID)
}

// DependencyGraph represents a directed acyclic graph of task dependencies.
// Tasks are nodes, and edges represent "blocked by" relationships.
type DependencyGraph struct {
	mu sync.RWMutex
	// order preserves task creation order for deterministic tie-breaks.
	order []string
	// nodes maps task ID to the task itself.
	nodes map[string]*models.Task
	// edges maps task ID to IDs of tasks it depends on (is blocked by).
	edges map[string][]string
}

// New creates a new empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[string]*models.Task),
		edges: make(map[string][]string),
	}
}

// Build constructs the dependency graph from a slice of tasks in creation order.
// Returns a DanglingDependencyError if a dependency references an unknown task,
// or a CycleError naming the offending cycle.
func (g *DependencyGraph) Build(tasks []*models.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	// First pass: register all tasks as nodes.
	for _, task := range tasks {
		if _, dup := g.nodes[task.ID]; !dup {
			g.order = append(g.order, task.ID)
		}
		g.nodes[task.ID] = task
		g.edges[task.ID] = nil
	}

	// Second pass: build edges from DependsOn fields.
	for _, task := range tasks {
		for _, depID := range task.DependsOn {
			if _, exists := g.nodes[depID]; !exists {
				return &DanglingDependencyError{TaskID: task.ID, DepID: depID}
			}
			g.edges[task.ID] = append(g.edges[task.ID], depID)
		}
	}

	if cycle := g.findCycleLocked(); cycle != nil {
		return &CycleError{Cycle: cycle}
	}

	return nil
}

// findCycleLocked returns a cycle path if one exists, nil otherwise.
// Depth-first search with coloring; the path is reconstructed so the
// error can name the cycle rather than just report its existence.
func (g *DependencyGraph) findCycleLocked() []string {
	// 0 = unvisited, 1 = visiting, 2 = visited.
	state := make(map[string]int)

	var found []string
	var visit func(id string, path []string) bool
	visit = func(id string, path []string) bool {
		if state[id] == 2 {
			return false
		}
		if state[id] == 1 {
			start := 0
			for i, p := range path {
				if p == id {
					start = i
					break
				}
			}
			found = append(append([]string{}, path[start:]...), id)
			return true
		}

		state[id] = 1
		for _, depID := range g.edges[id] {
			if visit(depID, append(path, id)) {
				return true
			}
		}
		state[id] = 2
		return false
	}

	for _, id := range g.order {
		if state[id] == 0 {
			if visit(id, nil) {
				return found
			}
		}
	}
	return nil
}

// Waves groups tasks into ordered batches where every task in a batch has
// all dependencies satisfied by strictly earlier batches. This is Kahn's
// algorithm: repeatedly extract the zero-indegree set, remove it, repeat.
// Within a batch, tasks keep creation order. Returns a CycleError if
// extraction stalls before all tasks are placed.
func (g *DependencyGraph) Waves() ([][]*models.Task, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	unresolved := make(map[string]int, len(g.nodes))
	for _, id := range g.order {
		unresolved[id] = len(g.edges[id])
	}

	placed := make(map[string]bool, len(g.nodes))
	var waves [][]*models.Task

	for len(placed) < len(g.nodes) {
		var wave []*models.Task
		for _, id := range g.order {
			if !placed[id] && unresolved[id] == 0 {
				wave = append(wave, g.nodes[id])
			}
		}
		if len(wave) == 0 {
			// Extraction stalled: every remaining task waits on another
			// remaining task, so a cycle must exist.
			if cycle := g.findCycleLocked(); cycle != nil {
				return nil, &CycleError{Cycle: cycle}
			}
			return nil, &CycleError{Cycle: g.remainingLocked(placed)}
		}

		for _, task := range wave {
			placed[task.ID] = true
		}
		// Recompute unresolved counts against the placed set.
		for _, id := range g.order {
			if placed[id] {
				continue
			}
			n := 0
			for _, depID := range g.edges[id] {
				if !placed[depID] {
					n++
				}
			}
			unresolved[id] = n
		}

		waves = append(waves, wave)
	}

	return waves, nil
}

// remainingLocked returns IDs not yet placed, in creation order.
func (g *DependencyGraph) remainingLocked(placed map[string]bool) []string {
	var ids []string
	for _, id := range g.order {
		if !placed[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

// Task returns the task for a given ID, or nil if not found.
func (g *DependencyGraph) Task(taskID string) *models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[taskID]
}

// Size returns the number of tasks in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Dependencies returns the IDs of tasks that the given task depends on.
func (g *DependencyGraph) Dependencies(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges[taskID]
}

// Dependents returns the IDs of tasks that depend on the given task,
// directly only, in creation order.
func (g *DependencyGraph) Dependents(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for _, id := range g.order {
		for _, depID := range g.edges[id] {
			if depID == taskID {
				dependents = append(dependents, id)
				break
			}
		}
	}
	return dependents
}

// TransitiveDependents returns every task downstream of the given task,
// in creation order. Used to mark dependents blocked when a task fails.
func (g *DependencyGraph) TransitiveDependents(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	affected := map[string]bool{taskID: true}
	// Creation order guarantees dependencies precede dependents within a
	// valid build only wave-wise, not slice-wise, so iterate to fixpoint.
	for changed := true; changed; {
		changed = false
		for _, id := range g.order {
			if affected[id] {
				continue
			}
			for _, depID := range g.edges[id] {
				if affected[depID] {
					affected[id] = true
					changed = true
					break
				}
			}
		}
	}

	var result []string
	for _, id := range g.order {
		if id != taskID && affected[id] {
			result = append(result, id)
		}
	}
	return result
}

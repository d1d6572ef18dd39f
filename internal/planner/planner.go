// Package planner turns a user request into a task graph.
// Two strategies exist: a template fan-out over the available roles, and
// a planning worker that emits the graph as JSON.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ecrowe/quorum/internal/invoke"
	"github.com/ecrowe/quorum/internal/registry"
	"github.com/ecrowe/quorum/pkg/models"
)

// Decomposer produces the tasks for one collaboration request.
type Decomposer interface {
	Decompose(ctx context.Context, project *models.Project, request string) ([]*models.Task, error)
}

// TemplateDecomposer fans a request out to one task per role that has an
// available worker. Tasks are independent, so they all land in the first
// wave.
type TemplateDecomposer struct {
	registry *registry.Registry
	// maxRoles caps the fan-out. Zero means no cap.
	maxRoles int
}

// NewTemplateDecomposer creates a template decomposer over the registry.
func NewTemplateDecomposer(reg *registry.Registry, maxRoles int) *TemplateDecomposer {
	return &TemplateDecomposer{registry: reg, maxRoles: maxRoles}
}

// Decompose creates one analysis task per distinct available role, in
// role priority order. Fails if no workers are available at all.
func (t *TemplateDecomposer) Decompose(_ context.Context, project *models.Project, request string) ([]*models.Task, error) {
	available := t.registry.ListAvailable("")
	if len(available) == 0 {
		return nil, fmt.Errorf("no available workers to plan request")
	}

	present := make(map[models.Role]bool)
	for _, w := range available {
		present[w.Role] = true
	}

	now := time.Now().UTC()
	var tasks []*models.Task
	for _, role := range models.DefaultRolePriority {
		if !present[role] {
			continue
		}
		if t.maxRoles > 0 && len(tasks) >= t.maxRoles {
			break
		}
		tasks = append(tasks, &models.Task{
			ID:          uuid.New().String(),
			ProjectID:   project.ID,
			Description: fmt.Sprintf("Address from a %s perspective: %s", role, request),
			Role:        role,
			Status:      models.TaskStatusPending,
			CreatedAt:   now,
		})
	}

	return tasks, nil
}

// plannedTask is the JSON structure a planning worker returns per task.
type plannedTask struct {
	Description string   `json:"description"`
	Role        string   `json:"role"`
	DependsOn   []string `json:"depends_on"`
}

// PlannerDecomposer asks a planning worker to emit the task graph.
type PlannerDecomposer struct {
	invoker   invoke.Invoker
	registry  *registry.Registry
	workerKey string
}

// NewPlannerDecomposer creates a planner-mode decomposer. workerKey names
// the registered worker that does the planning.
func NewPlannerDecomposer(inv invoke.Invoker, reg *registry.Registry, workerKey string) *PlannerDecomposer {
	return &PlannerDecomposer{invoker: inv, registry: reg, workerKey: workerKey}
}

// Decompose runs the planning worker and parses its JSON task list.
// Dependencies are given by task description and resolved to generated
// IDs; unknown references and invalid roles are rejected here so the
// graph build never sees them.
func (p *PlannerDecomposer) Decompose(ctx context.Context, project *models.Project, request string) ([]*models.Task, error) {
	worker, err := p.registry.Get(p.workerKey)
	if err != nil {
		return nil, fmt.Errorf("planning worker: %w", err)
	}

	result, err := p.invoker.Invoke(ctx, worker, fmt.Sprintf(planningPrompt, request))
	if err != nil {
		return nil, fmt.Errorf("planning request: %w", err)
	}

	tasks, err := ParsePlan(result.Text, project.ID)
	if err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	return tasks, nil
}

// ParsePlan extracts the JSON task array from a planning response and
// builds the task list.
func ParsePlan(response, projectID string) ([]*models.Task, error) {
	jsonStart := strings.Index(response, "[")
	jsonEnd := strings.LastIndex(response, "]")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd <= jsonStart {
		return nil, fmt.Errorf("no JSON array found in planning response (%d chars)", len(response))
	}

	var planned []plannedTask
	if err := json.Unmarshal([]byte(response[jsonStart:jsonEnd+1]), &planned); err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w", err)
	}
	if len(planned) == 0 {
		return nil, fmt.Errorf("planning response contains no tasks")
	}

	descToID := make(map[string]string)
	now := time.Now().UTC()
	tasks := make([]*models.Task, len(planned))

	for i, pt := range planned {
		if strings.TrimSpace(pt.Description) == "" {
			return nil, fmt.Errorf("planned task %d has no description", i)
		}
		role := models.Role(strings.ToLower(strings.TrimSpace(pt.Role)))
		if !role.Valid() {
			return nil, fmt.Errorf("planned task %q has invalid role %q", pt.Description, pt.Role)
		}
		if _, dup := descToID[pt.Description]; dup {
			return nil, fmt.Errorf("duplicate planned task description %q", pt.Description)
		}

		id := uuid.New().String()
		descToID[pt.Description] = id
		tasks[i] = &models.Task{
			ID:          id,
			ProjectID:   projectID,
			Description: pt.Description,
			Role:        role,
			Status:      models.TaskStatusPending,
			CreatedAt:   now,
		}
	}

	for i, pt := range planned {
		for _, dep := range pt.DependsOn {
			depID, ok := descToID[dep]
			if !ok {
				return nil, fmt.Errorf("unknown dependency %q for task %q", dep, pt.Description)
			}
			tasks[i].DependsOn = append(tasks[i].DependsOn, depID)
		}
	}

	return tasks, nil
}

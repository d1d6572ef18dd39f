// Package collab is the top-level collaboration engine. It owns the
// request lifecycle: resolve the project, plan tasks, run the waves,
// and synthesize the final response.
package collab

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ecrowe/quorum/internal/config"
	"github.com/ecrowe/quorum/internal/planner"
	"github.com/ecrowe/quorum/internal/scheduler"
	"github.com/ecrowe/quorum/internal/store"
	"github.com/ecrowe/quorum/internal/synthesis"
	"github.com/ecrowe/quorum/pkg/models"
)

// Engine coordinates one collaboration request end to end.
type Engine struct {
	store       *store.DB
	decomposer  planner.Decomposer
	scheduler   *scheduler.Scheduler
	synthesizer *synthesis.Synthesizer
	cfg         *config.Config
}

// New wires an engine from its parts.
func New(st *store.DB, dec planner.Decomposer, sched *scheduler.Scheduler, syn *synthesis.Synthesizer, cfg *config.Config) *Engine {
	return &Engine{
		store:       st,
		decomposer:  dec,
		scheduler:   sched,
		synthesizer: syn,
		cfg:         cfg,
	}
}

// HandleRequest runs one collaboration request for an owner. An empty
// projectID starts a fresh project; otherwise the request continues the
// named project, and its tasks are appended to the existing graph.
func (e *Engine) HandleRequest(ctx context.Context, owner, projectID, request string) (*models.SynthesizedResponse, *models.Project, error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return nil, nil, fmt.Errorf("%w: request text is empty", store.ErrValidation)
	}

	project, err := e.resolveProject(owner, projectID, request)
	if err != nil {
		return nil, nil, err
	}

	e.recordRequest(project, request)

	tasks, err := e.decomposer.Decompose(ctx, project, request)
	if err != nil {
		return nil, nil, fmt.Errorf("planning request: %w", err)
	}
	project.Tasks = append(project.Tasks, tasks...)

	// The scheduler persists the plan once it holds the run lock, so a
	// busy rejection leaves the stored project untouched.
	result, err := e.scheduler.Run(ctx, project)
	if err != nil {
		return nil, project, err
	}
	log.Printf("[collab] project %s: %d waves, %d done, %d failed, %d blocked",
		project.ID, result.Waves, result.Completed, result.Failed, result.Blocked)

	e.updateStatus(project)
	if err := e.store.SaveProject(project); err != nil {
		return nil, project, fmt.Errorf("saving project: %w", err)
	}

	entries, err := e.store.LedgerEntries(project.ID)
	if err != nil {
		return nil, project, fmt.Errorf("loading ledger: %w", err)
	}

	response, err := e.synthesizer.Synthesize(project, entries)
	if err != nil {
		return nil, project, err
	}
	return response, project, nil
}

// resolveProject loads the named project or creates a fresh one.
func (e *Engine) resolveProject(owner, projectID, request string) (*models.Project, error) {
	if projectID != "" {
		return e.store.LoadProject(projectID, owner)
	}
	return e.store.CreateProject(owner, deriveName(request), request)
}

// recordRequest appends the request to the bounded project history.
func (e *Engine) recordRequest(project *models.Project, request string) {
	project.History = append(project.History, request)
	if limit := e.cfg.Projects.HistoryLimit; limit > 0 && len(project.History) > limit {
		project.History = project.History[len(project.History)-limit:]
	}
	project.LastActive = time.Now().UTC()
}

// updateStatus marks the project completed once every task is done.
// Archived projects stay archived.
func (e *Engine) updateStatus(project *models.Project) {
	if project.Status == models.ProjectArchived {
		return
	}
	for _, task := range project.Tasks {
		if task.Status != models.TaskStatusDone {
			project.Status = models.ProjectActive
			return
		}
	}
	project.Status = models.ProjectCompleted
}

// ArchiveSweep archives projects inactive for longer than the
// configured threshold. Returns the number archived.
func (e *Engine) ArchiveSweep() (int64, error) {
	threshold := e.cfg.Projects.ArchiveAfter
	if threshold <= 0 {
		return 0, nil
	}
	return e.store.ArchiveInactive(threshold)
}

// deriveName builds a short project name from the first request.
func deriveName(request string) string {
	name := strings.Join(strings.Fields(request), " ")
	if len(name) > 60 {
		name = strings.TrimSpace(name[:60]) + "..."
	}
	return name
}

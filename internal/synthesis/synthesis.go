// Package synthesis merges worker contributions into one response.
// Contributions are grouped by role; within a role the most confident
// contribution wins, and the winning sections are assembled in role
// priority order.
package synthesis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ecrowe/quorum/pkg/models"
)

// ErrNoContributions indicates a synthesis request with no completed
// contributions to merge.
var ErrNoContributions = errors.New("no contributions to synthesize")

// Synthesizer merges ledger entries into a single response.
type Synthesizer struct {
	priority []models.Role
}

// New creates a synthesizer with the given role priority. An empty
// priority falls back to the default role order.
func New(priority []models.Role) *Synthesizer {
	if len(priority) == 0 {
		priority = models.DefaultRolePriority
	}
	return &Synthesizer{priority: priority}
}

// sectionTitles maps roles to their response section headings.
var sectionTitles = map[models.Role]string{
	models.RoleGeneral:    "Overview",
	models.RoleResearch:   "Research",
	models.RoleSpecialist: "Analysis",
	models.RoleCode:       "Implementation",
	models.RoleCreative:   "Draft",
}

// Synthesize merges the contributions recorded for the project's done
// tasks. Entries for tasks that are not done are ignored; a role's
// section comes from its highest-confidence contribution, with ties
// going to the earliest entry. Failed or blocked tasks are reported in
// the Incomplete list rather than silently dropped.
func (s *Synthesizer) Synthesize(project *models.Project, entries []*models.LedgerEntry) (*models.SynthesizedResponse, error) {
	done := make(map[string]*models.Task)
	for _, task := range project.Tasks {
		if task.Status == models.TaskStatusDone {
			done[task.ID] = task
		}
	}

	// Best contribution per role. Entries arrive in append order, so a
	// strict > keeps the earliest entry on ties.
	best := make(map[models.Role]*models.LedgerEntry)
	for _, e := range entries {
		task, ok := done[e.TaskID]
		if !ok {
			continue
		}
		cur, exists := best[task.Role]
		if !exists || e.Confidence > cur.Confidence {
			best[task.Role] = e
		}
	}

	if len(best) == 0 {
		return nil, fmt.Errorf("%w: project %s", ErrNoContributions, project.ID)
	}

	// Roles missing from a custom priority still get a section, after
	// the prioritized ones.
	order := make([]models.Role, 0, len(s.priority))
	seen := make(map[models.Role]bool)
	for _, role := range s.priority {
		order = append(order, role)
		seen[role] = true
	}
	for _, role := range models.DefaultRolePriority {
		if !seen[role] {
			order = append(order, role)
		}
	}

	var b strings.Builder
	confidences := make(map[models.Role]float64)
	for _, role := range order {
		e, ok := best[role]
		if !ok {
			continue
		}
		confidences[role] = e.Confidence

		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		title := sectionTitles[role]
		if title == "" {
			title = capitalize(string(role))
		}
		fmt.Fprintf(&b, "## %s\n\n%s", title, strings.TrimSpace(e.Output))
	}

	var incomplete []string
	for _, task := range project.Tasks {
		switch task.Status {
		case models.TaskStatusFailed, models.TaskStatusBlocked:
			incomplete = append(incomplete, task.Description)
		}
	}

	return &models.SynthesizedResponse{
		Text:          b.String(),
		Confidences:   confidences,
		ProjectStatus: project.Status,
		Incomplete:    incomplete,
	}, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

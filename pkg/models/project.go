package models

import "time"

// ProjectStatus represents the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
)

// Valid returns true if the status is a known value.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectCompleted, ProjectArchived:
		return true
	default:
		return false
	}
}

// Project is the durable unit of multi-session collaboration state.
// A project is owned exclusively by its creator; there is no sharing.
type Project struct {
	// ID is the unique, stable project identifier.
	ID string `json:"id"`
	// Owner is the user the project belongs to. Loads by any other user fail.
	Owner string `json:"owner"`
	// Name is the user-facing project name. Never empty.
	Name string `json:"name"`
	// Description is free-form context included in worker prompts.
	Description string `json:"description,omitempty"`
	// Status is the lifecycle state.
	Status ProjectStatus `json:"status"`
	// Tasks is the ordered task list. Order is creation order.
	Tasks []*Task `json:"tasks,omitempty"`
	// History holds recent user requests, newest last, bounded by config.
	History []string `json:"history,omitempty"`
	// CreatedAt is when the project was created.
	CreatedAt time.Time `json:"created_at"`
	// LastActive is updated on every graph build and scheduler completion.
	LastActive time.Time `json:"last_active"`
}

// Task returns the task with the given ID, or nil if absent.
func (p *Project) Task(id string) *Task {
	for _, t := range p.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// ProjectStats summarizes a project for status displays.
type ProjectStats struct {
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	FailedTasks    int     `json:"failed_tasks"`
	BlockedTasks   int     `json:"blocked_tasks"`
	CompletionRate float64 `json:"completion_rate"`
	Requests       int     `json:"requests"`
	DaysActive     int     `json:"days_active"`
}

// Stats computes summary statistics for the project.
func (p *Project) Stats(now time.Time) ProjectStats {
	s := ProjectStats{
		TotalTasks: len(p.Tasks),
		Requests:   len(p.History),
		DaysActive: int(now.Sub(p.CreatedAt).Hours() / 24),
	}
	for _, t := range p.Tasks {
		switch t.Status {
		case TaskStatusDone:
			s.CompletedTasks++
		case TaskStatusFailed:
			s.FailedTasks++
		case TaskStatusBlocked:
			s.BlockedTasks++
		}
	}
	if s.TotalTasks > 0 {
		s.CompletionRate = float64(s.CompletedTasks) / float64(s.TotalTasks) * 100
	}
	return s
}

package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has unmet dependencies.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusReady indicates all dependencies are done and the task is eligible for dispatch.
	TaskStatusReady TaskStatus = "ready"
	// TaskStatusRunning indicates the task has been dispatched to a worker.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusDone indicates the task completed successfully.
	TaskStatusDone TaskStatus = "done"
	// TaskStatusFailed indicates the task's own execution failed permanently.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusBlocked indicates a dependency failed permanently. Terminal, never retried.
	TaskStatusBlocked TaskStatus = "blocked"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusReady, TaskStatusRunning,
		TaskStatusDone, TaskStatusFailed, TaskStatusBlocked:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is final and the task will not run again.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusDone || s == TaskStatusFailed || s == TaskStatusBlocked
}

// Task represents one unit of work inside a project.
type Task struct {
	// ID is unique within the owning project.
	ID string `json:"id"`
	// ProjectID is the owning project.
	ProjectID string `json:"project_id"`
	// Description is the unit of work, e.g. "analyze requirements".
	Description string `json:"description"`
	// Role is the worker role this task is assigned to.
	Role Role `json:"role"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// DependsOn lists task IDs that must be done before this task runs.
	DependsOn []string `json:"depends_on,omitempty"`
	// Result holds the worker output once the task is done.
	Result string `json:"result,omitempty"`
	// Confidence is set if and only if the task is done.
	Confidence *float64 `json:"confidence,omitempty"`
	// StatusReason records why the task stopped: the failed dependency
	// for blocked tasks, the failure cause for failed tasks.
	StatusReason string `json:"status_reason,omitempty"`
	// RetryCount is the number of dispatch attempts consumed so far.
	RetryCount int `json:"retry_count,omitempty"`
	// CreatedAt orders tasks within a wave deterministically.
	CreatedAt time.Time `json:"created_at"`
	// StartedAt is when the task was first dispatched.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// CompletedAt is when the task reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

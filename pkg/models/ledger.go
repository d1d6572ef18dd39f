package models

import "time"

// LedgerEntry is an immutable record of one worker's output for one task.
// Entries are append-only; corrections require a new entry, never an edit.
type LedgerEntry struct {
	// ID is the append sequence number assigned by the store.
	ID int64 `json:"id"`
	// ProjectID is the owning project.
	ProjectID string `json:"project_id"`
	// TaskID is the task this contribution completed.
	TaskID string `json:"task_id"`
	// WorkerKey identifies the contributing worker.
	WorkerKey string `json:"worker_key"`
	// Output is the worker's full output text.
	Output string `json:"output"`
	// Confidence is the worker-reported score in [0, 1].
	Confidence float64 `json:"confidence"`
	// Duration is how long the invocation took.
	Duration time.Duration `json:"duration"`
	// CreatedAt is when the entry was appended.
	CreatedAt time.Time `json:"created_at"`
}

// SynthesizedResponse is the final merged answer returned to the transport layer.
type SynthesizedResponse struct {
	// Text is the stitched, role-labeled response body.
	Text string `json:"text"`
	// Confidences reports, per role, the confidence of the contributing entry.
	Confidences map[Role]float64 `json:"confidences"`
	// ProjectStatus is the project status after the run.
	ProjectStatus ProjectStatus `json:"project_status"`
	// Incomplete lists descriptions of tasks that ended failed or blocked,
	// so the caller can tell the user which parts of the plan did not complete.
	Incomplete []string `json:"incomplete,omitempty"`
}

package store

import (
	"fmt"
	"time"

	"github.com/ecrowe/quorum/pkg/models"
)

// AppendLedgerEntry appends one contribution record. The append is atomic
// and independent of whole-project saves, so completed work is never lost
// to a later failed save. Sets the entry's ID and CreatedAt.
func (db *DB) AppendLedgerEntry(e *models.LedgerEntry) error {
	if e.ProjectID == "" || e.TaskID == "" || e.WorkerKey == "" {
		return fmt.Errorf("%w: ledger entry missing identity", ErrValidation)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	res, err := db.Exec(`
		INSERT INTO ledger (project_id, task_id, worker_key, output, confidence, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ProjectID, e.TaskID, e.WorkerKey, e.Output, e.Confidence, e.Duration.Milliseconds(), formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}

	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("ledger entry id: %w", err)
	}
	return nil
}

// LedgerEntries returns all entries for a project in append order.
func (db *DB) LedgerEntries(projectID string) ([]*models.LedgerEntry, error) {
	rows, err := db.Query(`
		SELECT id, project_id, task_id, worker_key, output, confidence, duration_ms, created_at
		FROM ledger WHERE project_id = ? ORDER BY id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		var durationMS int64
		var createdAt string
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.TaskID, &e.WorkerKey, &e.Output, &e.Confidence, &durationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.CreatedAt, _ = parseTime(createdAt)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// WorkerStats summarizes one worker's contributions to a project.
type WorkerStats struct {
	WorkerKey     string  `json:"worker_key"`
	Contributions int     `json:"contributions"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// CollaborationStats summarizes the contribution ledger for a project.
type CollaborationStats struct {
	TotalContributions int           `json:"total_contributions"`
	UniqueWorkers      int           `json:"unique_workers"`
	Workers            []WorkerStats `json:"workers"`
	// Duration spans the first to the last ledger entry.
	Duration time.Duration `json:"duration"`
}

// CollaborationStatsFor computes ledger statistics for a project.
func (db *DB) CollaborationStatsFor(projectID string) (*CollaborationStats, error) {
	entries, err := db.LedgerEntries(projectID)
	if err != nil {
		return nil, err
	}

	stats := &CollaborationStats{TotalContributions: len(entries)}
	if len(entries) == 0 {
		return stats, nil
	}

	counts := make(map[string]int)
	confidence := make(map[string]float64)
	var order []string
	for _, e := range entries {
		if counts[e.WorkerKey] == 0 {
			order = append(order, e.WorkerKey)
		}
		counts[e.WorkerKey]++
		confidence[e.WorkerKey] += e.Confidence
	}

	for _, key := range order {
		stats.Workers = append(stats.Workers, WorkerStats{
			WorkerKey:     key,
			Contributions: counts[key],
			AvgConfidence: confidence[key] / float64(counts[key]),
		})
	}
	stats.UniqueWorkers = len(order)
	if len(entries) > 1 {
		stats.Duration = entries[len(entries)-1].CreatedAt.Sub(entries[0].CreatedAt)
	}
	return stats, nil
}

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ecrowe/quorum/pkg/models"
)

// CreateProject creates and persists a new active project.
// Fails with ErrValidation if the name is empty.
func (db *DB) CreateProject(owner, name, description string) (*models.Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: project name is empty", ErrValidation)
	}
	if strings.TrimSpace(owner) == "" {
		return nil, fmt.Errorf("%w: project owner is empty", ErrValidation)
	}

	now := time.Now()
	p := &models.Project{
		ID:          uuid.New().String(),
		Owner:       owner,
		Name:        name,
		Description: description,
		Status:      models.ProjectActive,
		CreatedAt:   now,
		LastActive:  now,
	}

	_, err := db.Exec(`
		INSERT INTO projects (id, owner, name, description, status, history, created_at, last_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Owner, p.Name, p.Description, string(p.Status), "[]", formatTime(p.CreatedAt), formatTime(p.LastActive))
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	return p, nil
}

// LoadProject loads a project and its full task list.
// Fails with ErrNotFound if the project is absent or owned by another user;
// the two cases are indistinguishable to the caller by design.
func (db *DB) LoadProject(projectID, owner string) (*models.Project, error) {
	row := db.QueryRow(`
		SELECT id, owner, name, description, status, history, created_at, last_active
		FROM projects WHERE id = ?
	`, projectID)

	var p models.Project
	var description, history sql.NullString
	var createdAt, lastActive string
	err := row.Scan(&p.ID, &p.Owner, &p.Name, &description, &p.Status, &history, &createdAt, &lastActive)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if p.Owner != owner {
		return nil, ErrNotFound
	}

	if description.Valid {
		p.Description = description.String
	}
	if history.Valid && history.String != "" {
		json.Unmarshal([]byte(history.String), &p.History)
	}
	p.CreatedAt, _ = parseTime(createdAt)
	p.LastActive, _ = parseTime(lastActive)

	tasks, err := db.loadTasks(p.ID)
	if err != nil {
		return nil, err
	}
	p.Tasks = tasks

	return &p, nil
}

// SaveProject persists the full project state atomically: the project row
// and the complete task list either all become visible or none do.
func (db *DB) SaveProject(p *models.Project) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("%w: project has no id", ErrValidation)
	}

	history, _ := json.Marshal(p.History)

	return db.Transaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			UPDATE projects SET name = ?, description = ?, status = ?, history = ?, last_active = ?
			WHERE id = ? AND owner = ?
		`, p.Name, p.Description, string(p.Status), string(history), formatTime(p.LastActive), p.ID, p.Owner)
		if err != nil {
			return fmt.Errorf("update project: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}

		if _, err := tx.Exec("DELETE FROM tasks WHERE project_id = ?", p.ID); err != nil {
			return fmt.Errorf("clear tasks: %w", err)
		}

		for i, t := range p.Tasks {
			dependsOn, _ := json.Marshal(t.DependsOn)
			_, err := tx.Exec(`
				INSERT INTO tasks (id, project_id, ordinal, description, role, status, depends_on,
					result, confidence, status_reason, retry_count, created_at, started_at, completed_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, t.ID, p.ID, i, t.Description, string(t.Role), string(t.Status), string(dependsOn),
				t.Result, t.Confidence, t.StatusReason, t.RetryCount,
				formatTime(t.CreatedAt), formatNullableTime(t.StartedAt), formatNullableTime(t.CompletedAt))
			if err != nil {
				return fmt.Errorf("insert task %s: %w", t.ID, err)
			}
		}

		return nil
	})
}

// loadTasks loads the task list for a project in creation (ordinal) order.
func (db *DB) loadTasks(projectID string) ([]*models.Task, error) {
	rows, err := db.Query(`
		SELECT id, description, role, status, depends_on, result, confidence,
			status_reason, retry_count, created_at, started_at, completed_at
		FROM tasks WHERE project_id = ? ORDER BY ordinal
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t := &models.Task{ProjectID: projectID}
		var dependsOn, result, statusReason sql.NullString
		var confidence sql.NullFloat64
		var createdAt string
		var startedAt, completedAt sql.NullString
		err := rows.Scan(&t.ID, &t.Description, &t.Role, &t.Status, &dependsOn, &result,
			&confidence, &statusReason, &t.RetryCount, &createdAt, &startedAt, &completedAt)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		if dependsOn.Valid && dependsOn.String != "" {
			json.Unmarshal([]byte(dependsOn.String), &t.DependsOn)
		}
		if result.Valid {
			t.Result = result.String
		}
		if confidence.Valid {
			c := confidence.Float64
			t.Confidence = &c
		}
		if statusReason.Valid {
			t.StatusReason = statusReason.String
		}
		t.CreatedAt, _ = parseTime(createdAt)
		t.StartedAt = parseNullableTime(startedAt)
		t.CompletedAt = parseNullableTime(completedAt)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ListProjects returns all projects for a user, newest first, without task lists.
func (db *DB) ListProjects(owner string) ([]*models.Project, error) {
	rows, err := db.Query(`
		SELECT id, owner, name, description, status, created_at, last_active
		FROM projects WHERE owner = ? ORDER BY last_active DESC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		var p models.Project
		var description sql.NullString
		var createdAt, lastActive string
		if err := rows.Scan(&p.ID, &p.Owner, &p.Name, &description, &p.Status, &createdAt, &lastActive); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		if description.Valid {
			p.Description = description.String
		}
		p.CreatedAt, _ = parseTime(createdAt)
		p.LastActive, _ = parseTime(lastActive)
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

// ArchiveProject marks a project archived. Owner must match.
func (db *DB) ArchiveProject(projectID, owner string) error {
	res, err := db.Exec(`
		UPDATE projects SET status = ? WHERE id = ? AND owner = ?
	`, string(models.ProjectArchived), projectID, owner)
	if err != nil {
		return fmt.Errorf("archive project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ArchiveInactive archives active projects whose last activity is older
// than the given duration. Returns the number of projects archived.
// The inactivity threshold itself is policy owned by the caller.
func (db *DB) ArchiveInactive(olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))
	res, err := db.Exec(`
		UPDATE projects SET status = ? WHERE status = ? AND last_active < ?
	`, string(models.ProjectArchived), string(models.ProjectActive), cutoff)
	if err != nil {
		return 0, fmt.Errorf("archive inactive: %w", err)
	}
	return res.RowsAffected()
}

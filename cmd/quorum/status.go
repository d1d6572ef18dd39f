package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ecrowe/quorum/internal/config"
	"github.com/ecrowe/quorum/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status <project-id>",
	Short: "Show a project's task and contribution status",
	Long: `Display the state of a project.

Shows:
  - Project name, status, and request history
  - Every task with its status, role, and confidence
  - Contribution statistics per worker`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	blockedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	project, err := db.LoadProject(args[0], owner)
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}

	stats := project.Stats(time.Now())

	fmt.Println(titleStyle.Render(project.Name))
	fmt.Printf("  %s %s\n", labelStyle.Render("Status:"), project.Status)
	fmt.Printf("  %s %d/%d tasks done (%.0f%%)\n",
		labelStyle.Render("Progress:"), stats.CompletedTasks, stats.TotalTasks, stats.CompletionRate)
	fmt.Printf("  %s %d requests over %d day(s)\n",
		labelStyle.Render("Activity:"), stats.Requests, stats.DaysActive)

	if len(project.Tasks) > 0 {
		fmt.Println()
		fmt.Println(titleStyle.Render("Tasks"))
		for _, task := range project.Tasks {
			fmt.Printf("  %s %-8s %s%s\n",
				taskGlyph(task.Status), task.Role, task.Description, taskDetail(task))
		}
	}

	collabStats, err := db.CollaborationStatsFor(project.ID)
	if err != nil {
		return fmt.Errorf("collaboration stats: %w", err)
	}
	if collabStats.TotalContributions > 0 {
		fmt.Println()
		fmt.Println(titleStyle.Render("Contributions"))
		fmt.Printf("  %d contribution(s) from %d worker(s) over %s\n",
			collabStats.TotalContributions, collabStats.UniqueWorkers, collabStats.Duration.Round(time.Millisecond))
		for _, w := range collabStats.Workers {
			fmt.Printf("  %-12s %d contribution(s), avg confidence %.0f%%\n",
				w.WorkerKey, w.Contributions, w.AvgConfidence*100)
		}
	}

	if len(project.History) > 0 {
		fmt.Println()
		fmt.Println(titleStyle.Render("Recent requests"))
		for _, req := range project.History {
			fmt.Printf("  - %s\n", req)
		}
	}

	return nil
}

func taskGlyph(s models.TaskStatus) string {
	switch s {
	case models.TaskStatusDone:
		return doneStyle.Render("✓")
	case models.TaskStatusFailed:
		return failedStyle.Render("✗")
	case models.TaskStatusBlocked:
		return blockedStyle.Render("⊘")
	case models.TaskStatusRunning:
		return "…"
	default:
		return "·"
	}
}

func taskDetail(t *models.Task) string {
	switch t.Status {
	case models.TaskStatusDone:
		if t.Confidence != nil {
			return fmt.Sprintf(" (%.0f%%)", *t.Confidence*100)
		}
	case models.TaskStatusFailed, models.TaskStatusBlocked:
		if t.StatusReason != "" {
			return fmt.Sprintf(" (%s)", t.StatusReason)
		}
	}
	if t.RetryCount > 0 {
		return fmt.Sprintf(" (%d retries)", t.RetryCount)
	}
	return ""
}

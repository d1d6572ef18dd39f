package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ecrowe/quorum/internal/config"
	"github.com/ecrowe/quorum/pkg/models"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage collaboration projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your projects, newest first",
	RunE:  runProjectsList,
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an empty project to build on with 'ask -p'",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsCreate,
}

var createDescription string

var projectsArchiveCmd = &cobra.Command{
	Use:   "archive <project-id>",
	Short: "Archive a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsArchive,
}

var projectsSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Archive projects that have been inactive too long",
	RunE:  runProjectsSweep,
}

func init() {
	projectsCreateCmd.Flags().StringVarP(&createDescription, "description", "d", "", "project description")
	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsCreateCmd)
	projectsCmd.AddCommand(projectsArchiveCmd)
	projectsCmd.AddCommand(projectsSweepCmd)
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	projects, err := db.ListProjects(owner)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	if len(projects) == 0 {
		fmt.Println("No projects yet. Run 'quorum ask \"your request\"' to start one.")
		return nil
	}

	for _, p := range projects {
		fmt.Printf("%s  %s  %s  (last active %s ago)\n",
			p.ID, statusBadge(p.Status), p.Name, formatDuration(time.Since(p.LastActive)))
	}
	return nil
}

func runProjectsCreate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := db.CreateProject(owner, args[0], createDescription)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	fmt.Printf("%s Created project %s (%s)\n", color.GreenString("✓"), p.ID, p.Name)
	return nil
}

func runProjectsArchive(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.ArchiveProject(args[0], owner); err != nil {
		return fmt.Errorf("archive project: %w", err)
	}
	fmt.Printf("%s Archived project %s\n", color.GreenString("✓"), args[0])
	return nil
}

func runProjectsSweep(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.ArchiveInactive(cfg.Projects.ArchiveAfter)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	fmt.Printf("Archived %d inactive project(s)\n", n)
	return nil
}

func statusBadge(s models.ProjectStatus) string {
	switch s {
	case models.ProjectActive:
		return color.CyanString("[active]   ")
	case models.ProjectCompleted:
		return color.GreenString("[completed]")
	case models.ProjectArchived:
		return color.HiBlackString("[archived] ")
	default:
		return string(s)
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}

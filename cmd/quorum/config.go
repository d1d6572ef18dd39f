package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ecrowe/quorum/internal/config"
	"github.com/ecrowe/quorum/internal/store"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	storagePath := cfg.Storage.Path
	if storagePath == "" {
		storagePath = store.DefaultPath()
	}

	apiKey := "(not set)"
	if cfg.Anthropic.APIKey != "" {
		apiKey = "(set)"
	}
	backend := "anthropic"
	if cfg.Anthropic.UseAWSBedrock {
		backend = "aws bedrock"
	}

	fmt.Printf("Config file:     %s\n", config.GetUserConfigPath())
	fmt.Printf("Storage:         %s\n", storagePath)
	fmt.Printf("Backend:         %s (api key %s)\n", backend, apiKey)
	fmt.Printf("Planner:         %s", cfg.Planner.Mode)
	if cfg.Planner.Mode == "planner" {
		fmt.Printf(" (worker %s)", cfg.Planner.Worker)
	}
	fmt.Println()
	fmt.Printf("Scheduler:       %d attempt(s), %v backoff, %v timeout\n",
		cfg.Scheduler.MaxAttempts, cfg.Scheduler.BackoffBase, cfg.Scheduler.TaskTimeout)
	fmt.Printf("Worker file:     %s (watch: %v, failure limit: %d)\n",
		orDefault(cfg.Workers.File, "built-in defaults"), cfg.Workers.Watch, cfg.Workers.FailureLimit)
	fmt.Printf("Role priority:   %v\n", cfg.Synthesis.RolePriority)
	fmt.Printf("History limit:   %d\n", cfg.Projects.HistoryLimit)
	fmt.Printf("Archive after:   %v\n", cfg.Projects.ArchiveAfter)
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

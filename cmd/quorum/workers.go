package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ecrowe/quorum/internal/config"
)

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "List the configured workers",
	Long: `List the worker definitions Quorum will use.

Workers come from the file named by workers.file in the config, or from
the built-in defaults when no file is configured.`,
	RunE: runWorkers,
}

func runWorkers(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	workers, err := loadWorkerDefinitions(cfg)
	if err != nil {
		return err
	}

	source := cfg.Workers.File
	if source == "" {
		source = "built-in defaults"
	}
	fmt.Printf("%d worker(s) from %s:\n\n", len(workers), source)

	for _, w := range workers {
		fmt.Printf("  %-12s %-10s %s (temp %.1f)\n", w.Key, w.Role, w.Model, w.Temperature)
		if w.SystemPrompt != "" {
			fmt.Printf("               %s\n", truncate(w.SystemPrompt, 70))
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

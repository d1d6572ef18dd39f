package main

import (
	"os"

	"github.com/spf13/cobra"
)

// owner identifies the requesting user. Projects are private per owner.
var owner string

var rootCmd = &cobra.Command{
	Use:   "quorum",
	Short: "Multi-worker AI collaboration engine",
	Long: `Quorum coordinates a team of AI workers on your requests.

A request is planned into a dependency graph of tasks, each task is
assigned to a worker by role, independent tasks run in parallel, and
the contributions are merged into a single response. Projects persist
across sessions, so follow-up requests build on earlier work.

Core capabilities:
- Plans requests into parallelizable task graphs
- Dispatches tasks to role-matched workers wave by wave
- Retries transient failures and routes around broken workers
- Merges contributions by confidence, grouped per role
- Keeps per-project history and a full contribution ledger`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func defaultOwner() string {
	if u := os.Getenv("QUORUM_OWNER"); u != "" {
		return u
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "default"
}

func init() {
	rootCmd.PersistentFlags().StringVar(&owner, "owner", defaultOwner(), "Owner of the projects being accessed")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(workersCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

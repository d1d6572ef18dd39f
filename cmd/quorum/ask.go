package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ecrowe/quorum/pkg/models"
)

var askProject string

var askCmd = &cobra.Command{
	Use:   "ask <request>",
	Short: "Send a request to the worker team",
	Long: `Send a request to the worker team and print the synthesized response.

Without --project a new project is created for the request. With
--project the request continues an existing project, and its tasks see
the outputs of earlier work.

Examples:
  quorum ask "compare redis and memcached for session storage"
  quorum ask --project 4f1c9a "now estimate the migration effort"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askProject, "project", "p", "", "Continue an existing project by ID")
}

func runAsk(cmd *cobra.Command, args []string) error {
	request := strings.Join(args, " ")

	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resp, project, err := rt.engine.HandleRequest(ctx, owner, askProject, request)
	if err != nil {
		return err
	}

	fmt.Println(resp.Text)
	fmt.Println()

	fmt.Printf("Project: %s (%s)\n", project.ID, project.Status)
	if len(resp.Confidences) > 0 {
		var parts []string
		for _, role := range models.DefaultRolePriority {
			if c, ok := resp.Confidences[role]; ok {
				parts = append(parts, fmt.Sprintf("%s %.0f%%", role, c*100))
			}
		}
		fmt.Printf("Confidence: %s\n", strings.Join(parts, ", "))
	}
	if len(resp.Incomplete) > 0 {
		fmt.Printf("%s %d task(s) did not complete:\n", color.YellowString("⚠"), len(resp.Incomplete))
		for _, desc := range resp.Incomplete {
			fmt.Printf("  - %s\n", desc)
		}
	}

	return nil
}

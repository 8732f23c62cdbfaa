package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thebtf/trailhead/internal/config"
	"github.com/thebtf/trailhead/internal/db/sqlite"
	"github.com/thebtf/trailhead/internal/provenance"
)

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session's prompts, files and tool usage",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(_ *cobra.Command, args []string) error {
	return withEngine(func(ctx context.Context, engine *provenance.Engine, _ *config.Config) error {
		summary, err := engine.SessionSummary(ctx, args[0])
		if err != nil {
			if errors.Is(err, sqlite.ErrNotFound) {
				return fmt.Errorf("no session %s", args[0])
			}
			return err
		}

		fmt.Printf("Session %s  (%s)\n", summary.ID, summary.State)
		fmt.Printf("Repository: %s\n", summary.RepoPath)
		if summary.BranchName != "" {
			fmt.Printf("Branch:     %s\n", summary.BranchName)
		}
		fmt.Printf("Started:    %s\n", fmtLocal(summary.StartedAt))
		fmt.Printf("Last seen:  %s\n", fmtLocal(summary.LastActive))
		fmt.Println()

		fmt.Printf("Prompts (%d):\n", len(summary.Prompts))
		for _, p := range summary.Prompts {
			marker := " "
			if p.Committed {
				marker = "✓"
			}
			fmt.Printf("  %s %s  %s\n", marker, fmtLocal(p.CreatedAt), clip(p.Text, 100))
			if hash := p.ShortCommit(); hash != "" {
				fmt.Printf("      committed in %s\n", hash)
			}
		}

		if len(summary.Files) > 0 {
			fmt.Printf("\nFiles (%d):\n", len(summary.Files))
			for _, f := range summary.Files {
				fmt.Printf("  %s\n", f)
			}
		}

		if len(summary.Tools) > 0 {
			tools := make([]string, 0, len(summary.Tools))
			for tool := range summary.Tools {
				tools = append(tools, tool)
			}
			sort.Strings(tools)
			parts := make([]string, 0, len(tools))
			for _, tool := range tools {
				parts = append(parts, fmt.Sprintf("%s ×%d", tool, summary.Tools[tool]))
			}
			fmt.Printf("\nTools: %s\n", strings.Join(parts, ", "))
		}
		return nil
	})
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/thebtf/trailhead/internal/config"
	"github.com/thebtf/trailhead/internal/provenance"
)

var (
	sessionsLimit int
	sessionsRepo  string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List this repository's recent sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "l", 10, "Number of sessions to show")
	sessionsCmd.Flags().StringVar(&sessionsRepo, "repo", "", "Repository path (default: current repository)")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(_ *cobra.Command, _ []string) error {
	root := sessionsRepo
	if root == "" {
		var err error
		root, err = repoRoot()
		if err != nil {
			return err
		}
	}

	return withEngine(func(ctx context.Context, engine *provenance.Engine, _ *config.Config) error {
		engine.CloseIdleSessions(ctx, root, time.Now())

		histories, err := engine.ListSessions(ctx, root, sessionsLimit)
		if err != nil {
			return err
		}
		if len(histories) == 0 {
			fmt.Println("No sessions recorded for this repository.")
			return nil
		}

		for _, h := range histories {
			branch := ""
			if h.BranchName != "" {
				branch = "  [" + h.BranchName + "]"
			}
			fmt.Printf("%s  %s  %-6s  %d prompt%s (%d uncommitted)%s\n",
				h.ShortID(), fmtLocal(h.StartedAt), h.State,
				h.TotalPrompts, plural(h.TotalPrompts), h.UncommittedPrompts, branch)
			for _, p := range h.Prompts {
				fmt.Printf("    • %s\n", clip(p.Text, 100))
			}
		}
		return nil
	})
}

// fmtLocal formats a stored RFC3339 timestamp for terminal display.
func fmtLocal(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04")
}

func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

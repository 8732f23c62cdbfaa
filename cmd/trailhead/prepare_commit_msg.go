package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thebtf/trailhead/internal/config"
	"github.com/thebtf/trailhead/internal/provenance"
)

var prepareCommitMsgCmd = &cobra.Command{
	Use:    "prepare-commit-msg <msg-file> [source] [sha]",
	Short:  "Append the provenance trailer to a commit message (git hook)",
	Hidden: true,
	Args:   cobra.RangeArgs(1, 3),
	RunE:   runPrepareCommitMsg,
}

func init() {
	rootCmd.AddCommand(prepareCommitMsgCmd)
}

// runPrepareCommitMsg never fails the commit: any internal error is
// reported on stderr and swallowed.
func runPrepareCommitMsg(_ *cobra.Command, args []string) error {
	if err := prepareCommitMsg(args); err != nil {
		fmt.Fprintf(os.Stderr, "trailhead: %v\n", err)
	}
	return nil
}

func prepareCommitMsg(args []string) error {
	msgFile := args[0]
	source := ""
	if len(args) > 1 {
		source = args[1]
	}
	// Merge and squash commits carry generated messages; provenance
	// for the merged work already sits on the original commits.
	if source == "merge" || source == "squash" {
		return nil
	}

	root, err := repoRoot()
	if err != nil {
		return err
	}

	return withEngine(func(ctx context.Context, engine *provenance.Engine, _ *config.Config) error {
		rendered, promptIDs, err := engine.PrepareTrailer(ctx, root)
		if err != nil {
			return err
		}
		if rendered == "" {
			// Nothing uncommitted; drop any stale snapshot so post-commit
			// has nothing to reconcile.
			return provenance.RemoveSnapshot(root)
		}

		message, err := os.ReadFile(msgFile) // #nosec G304 -- path comes from git
		if err != nil {
			return fmt.Errorf("read commit message: %w", err)
		}
		if provenance.HasTrailer(string(message)) {
			return nil
		}

		out := strings.TrimRight(string(message), "\n") + "\n\n" + rendered + "\n"
		if err := os.WriteFile(msgFile, []byte(out), 0o644); err != nil {
			return fmt.Errorf("write commit message: %w", err)
		}
		return provenance.WriteSnapshot(root, promptIDs, rendered)
	})
}

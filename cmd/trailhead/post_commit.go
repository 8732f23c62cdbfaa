package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thebtf/trailhead/internal/config"
	"github.com/thebtf/trailhead/internal/gitx"
	"github.com/thebtf/trailhead/internal/provenance"
)

var postCommitCmd = &cobra.Command{
	Use:    "post-commit",
	Short:  "Reconcile the rendered prompt snapshot against HEAD (git hook)",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE:   runPostCommit,
}

func init() {
	rootCmd.AddCommand(postCommitCmd)
}

// runPostCommit never fails: the commit already happened.
func runPostCommit(_ *cobra.Command, _ []string) error {
	if err := postCommit(); err != nil {
		fmt.Fprintf(os.Stderr, "trailhead: %v\n", err)
	}
	return nil
}

func postCommit() error {
	root, err := repoRoot()
	if err != nil {
		return err
	}

	snap, err := provenance.ReadSnapshot(root)
	if err != nil {
		return err
	}
	if snap == nil || len(snap.PromptIDs) == 0 {
		return nil
	}

	head, err := gitx.Head(root)
	if err != nil {
		return err
	}

	return withEngine(func(ctx context.Context, engine *provenance.Engine, _ *config.Config) error {
		if err := engine.ReconcileCommit(ctx, root, head, snap.PromptIDs); err != nil {
			return err
		}
		return provenance.RemoveSnapshot(root)
	})
}

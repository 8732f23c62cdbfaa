package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/thebtf/trailhead/internal/config"
	"github.com/thebtf/trailhead/internal/gitx"
	"github.com/thebtf/trailhead/internal/provenance"
)

var (
	prBase   string
	prDryRun bool
)

var prCmd = &cobra.Command{
	Use:   "pr [-- gh-args...]",
	Short: "Create a pull request with a provenance body via gh",
	Long: "Renders the provenance section for every commit on this branch since\n" +
		"--base and runs `gh pr create` with it. Arguments after -- are passed\n" +
		"through to gh.",
	RunE: runPR,
}

func init() {
	prCmd.Flags().StringVar(&prBase, "base", "main", "Base branch the PR targets")
	prCmd.Flags().BoolVar(&prDryRun, "dry-run", false, "Print the body instead of invoking gh")
	rootCmd.AddCommand(prCmd)
}

func runPR(cmd *cobra.Command, args []string) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}

	hashes, err := gitx.CommitsBetween(root, prBase)
	if err != nil {
		return fmt.Errorf("resolve commit range %s..HEAD: %w", prBase, err)
	}

	var body string
	err = withEngine(func(ctx context.Context, engine *provenance.Engine, _ *config.Config) error {
		body, err = engine.RenderPRBody(ctx, root, hashes)
		return err
	})
	if err != nil {
		return err
	}

	if body == "" {
		fmt.Fprintln(os.Stderr, "No tracked prompts on this branch; creating PR without a provenance body.")
	}
	if prDryRun {
		fmt.Println(body)
		return nil
	}

	ghArgs := []string{"pr", "create", "--base", prBase}
	if body != "" {
		ghArgs = append(ghArgs, "--body", body)
	}
	ghArgs = append(ghArgs, args...)

	gh := exec.Command("gh", ghArgs...)
	gh.Dir = root
	gh.Stdin = os.Stdin
	gh.Stdout = os.Stdout
	gh.Stderr = os.Stderr
	if err := gh.Run(); err != nil {
		return fmt.Errorf("gh pr create: %w", err)
	}
	return nil
}

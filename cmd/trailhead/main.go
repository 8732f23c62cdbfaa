// Package main is the trailhead CLI: git hook plumbing
// (prepare-commit-msg, post-commit), the pr renderer, history
// inspection, config, hook installation and the long-running surfaces
// (serve, watch).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thebtf/trailhead/internal/config"
	"github.com/thebtf/trailhead/internal/db/sqlite"
	"github.com/thebtf/trailhead/internal/gitx"
	"github.com/thebtf/trailhead/internal/provenance"
)

const version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:          "trailhead",
	Short:        "AI provenance tracking for git repositories",
	Long:         "Trailhead captures AI-assistant prompts, groups them into sessions,\nand stamps commits and pull requests with where the changes came from.",
	Version:      version,
	SilenceUsage: true,
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("TRAILHEAD_DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withEngine opens the shared store for the duration of one command.
func withEngine(fn func(ctx context.Context, engine *provenance.Engine, cfg *config.Config) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := sqlite.Open(config.DBPath())
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(context.Background(), provenance.New(store, cfg), cfg)
}

// repoRoot resolves the working directory to its git worktree root.
func repoRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	root, err := gitx.ResolveRoot(cwd)
	if errors.Is(err, gitx.ErrNotRepository) {
		return "", fmt.Errorf("not inside a git repository")
	}
	return root, err
}

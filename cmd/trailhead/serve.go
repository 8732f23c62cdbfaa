package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/thebtf/trailhead/internal/config"
	"github.com/thebtf/trailhead/internal/provenance"
	"github.com/thebtf/trailhead/internal/server"
	"github.com/thebtf/trailhead/internal/watcher"
)

var serveWithWatcher bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the localhost introspection API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Tail Claude Code transcripts and record prompts",
	Long: "Watches the transcript directory and records new user prompts.\n" +
		"This is the capture path for setups without hooks; do not run it\n" +
		"alongside the user-prompt-submit hook or prompts double-record.",
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	serveCmd.Flags().BoolVar(&serveWithWatcher, "watch", false, "Also tail transcripts while serving")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
}

// watchRoot resolves the transcript directory: config override, else
// the default Claude Code projects directory.
func watchRoot(cfg *config.Config) (string, error) {
	if cfg.WatchDir != "" {
		return cfg.WatchDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".claude", "projects"), nil
}

func runServe(_ *cobra.Command, _ []string) error {
	return withEngine(func(ctx context.Context, engine *provenance.Engine, cfg *config.Config) error {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.New(engine, cfg, version).Run(ctx)
		})

		if serveWithWatcher {
			dir, err := watchRoot(cfg)
			if err != nil {
				return err
			}
			w, err := watcher.New(dir, engine)
			if err != nil {
				return err
			}
			if err := w.Start(); err != nil {
				return err
			}
			g.Go(func() error {
				<-ctx.Done()
				return w.Stop()
			})
		}

		return g.Wait()
	})
}

func runWatch(_ *cobra.Command, _ []string) error {
	return withEngine(func(ctx context.Context, engine *provenance.Engine, cfg *config.Config) error {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		dir, err := watchRoot(cfg)
		if err != nil {
			return err
		}
		w, err := watcher.New(dir, engine)
		if err != nil {
			return err
		}
		if err := w.Start(); err != nil {
			return err
		}
		<-ctx.Done()
		return w.Stop()
	})
}

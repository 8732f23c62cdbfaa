package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thebtf/trailhead/internal/gitx"
)

// hookMarker identifies shims we wrote, so install and uninstall never
// touch a hook someone else owns.
const hookMarker = "# trailhead provenance hook"

var hookNames = []string{"prepare-commit-msg", "post-commit"}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the git hook shims into this repository",
	Args:  cobra.NoArgs,
	RunE:  runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the git hook shims from this repository",
	Args:  cobra.NoArgs,
	RunE:  runUninstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
}

func hooksDir() (string, error) {
	root, err := repoRoot()
	if err != nil {
		return "", err
	}
	dir, err := gitx.GitDir(root)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "hooks"), nil
}

func shimFor(hook string) string {
	return fmt.Sprintf("#!/bin/sh\n%s\ntrailhead %s \"$@\" || true\n", hookMarker, hook)
}

func runInstall(_ *cobra.Command, _ []string) error {
	dir, err := hooksDir()
	if err != nil {
		return err
	}
	return installHooks(dir)
}

func runUninstall(_ *cobra.Command, _ []string) error {
	dir, err := hooksDir()
	if err != nil {
		return err
	}
	return uninstallHooks(dir)
}

func installHooks(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create hooks dir: %w", err)
	}

	for _, hook := range hookNames {
		path := filepath.Join(dir, hook)
		existing, err := os.ReadFile(path) // #nosec G304 -- path is inside .git/hooks
		if err == nil && !strings.Contains(string(existing), hookMarker) {
			return fmt.Errorf("%s already has a %s hook; add `trailhead %s \"$@\"` to it manually",
				dir, hook, hook)
		}
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("read %s hook: %w", hook, err)
		}
		if err := os.WriteFile(path, []byte(shimFor(hook)), 0o755); err != nil { // #nosec G306 -- hooks must be executable
			return fmt.Errorf("write %s hook: %w", hook, err)
		}
		fmt.Printf("Installed %s\n", path)
	}
	return nil
}

func uninstallHooks(dir string) error {
	for _, hook := range hookNames {
		path := filepath.Join(dir, hook)
		existing, err := os.ReadFile(path) // #nosec G304 -- path is inside .git/hooks
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s hook: %w", hook, err)
		}
		if !strings.Contains(string(existing), hookMarker) {
			fmt.Printf("Skipping %s: not a trailhead hook\n", path)
			continue
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove %s hook: %w", hook, err)
		}
		fmt.Printf("Removed %s\n", path)
	}
	return nil
}

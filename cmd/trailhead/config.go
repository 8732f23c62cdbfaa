package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thebtf/trailhead/internal/config"
)

// configKeys is the display order for `trailhead config` with no args.
var configKeys = []string{
	"verbose_threshold",
	"inactivity_window_minutes",
	"max_trailer_files",
	"server_port",
	"watch_dir",
}

var configCmd = &cobra.Command{
	Use:   "config [key [value]]",
	Short: "Show or change trailhead settings",
	Args:  cobra.MaximumNArgs(2),
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	switch len(args) {
	case 0:
		for _, key := range configKeys {
			value, err := cfg.Value(key)
			if err != nil {
				return err
			}
			fmt.Printf("%-27s %s\n", key, value)
		}
		return nil

	case 1:
		value, err := cfg.Value(args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil

	default:
		if err := cfg.SetValue(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("%s = %s\n", args[0], args[1])
		return nil
	}
}

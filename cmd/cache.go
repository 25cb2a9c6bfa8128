package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// cacheCmd groups cache maintenance subcommands.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the compilation cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry counts and hit/miss counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		rt, _, err := buildRuntime(cfg, newLogger(cfg))
		if err != nil {
			return err
		}

		stats := rt.Cache().Stats()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "memory entries:  %d\n", stats.MemoryEntries)
		fmt.Fprintf(out, "memory hits:     %d\n", stats.MemoryHits)
		fmt.Fprintf(out, "memory misses:   %d\n", stats.MemoryMisses)
		fmt.Fprintf(out, "disk entries:    %d\n", stats.DiskEntries)
		if cfg.Cache.Enabled {
			fmt.Fprintf(out, "disk dir:        %s\n", cfg.Cache.Dir)
		} else {
			fmt.Fprintln(out, "disk cache:      disabled")
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached fragment",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		rt, _, err := buildRuntime(cfg, newLogger(cfg))
		if err != nil {
			return err
		}

		removed := rt.Cache().Clear()
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached fragments\n", removed)
		return nil
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate <template>...",
	Short: "Drop cached fragments for the named templates",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		rt, _, err := buildRuntime(cfg, newLogger(cfg))
		if err != nil {
			return err
		}

		for _, name := range args {
			removed := rt.Invalidate(name)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: removed %d fragments\n", name, removed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
}

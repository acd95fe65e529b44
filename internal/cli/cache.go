package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

// newCacheCmd creates the cache command with its subcommands.
func newCacheCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the package metadata cache",
	}

	cmd.AddCommand(newCachePathCmd(configFile))
	cmd.AddCommand(newCacheInfoCmd(configFile))
	cmd.AddCommand(newCacheClearCmd(configFile))

	return cmd
}

func newCachePathCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the file cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			dir, err := cacheDir(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}

func newCacheInfoCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache backend, size and entry count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile)
			if err != nil {
				return err
			}

			backend := cfg.Cache.Backend
			if backend == "" {
				backend = "file"
			}
			printInfo("backend: %s", backend)
			printDetail("max age: %s", time.Duration(cfg.Cache.MaxAge))

			if backend != "file" {
				return nil
			}

			dir, err := cacheDir(cfg)
			if err != nil {
				return err
			}
			count, size, err := measureDir(dir)
			if err != nil {
				return err
			}
			printDetail("dir: %s", dir)
			printDetail("entries: %d (%.1f MB of %.1f MB)",
				count, float64(size)/(1<<20), float64(cfg.Cache.MaxBytes)/(1<<20))
			return nil
		},
	}
}

func newCacheClearCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached metadata entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			if cfg.Cache.Backend != "" && cfg.Cache.Backend != "file" {
				return fmt.Errorf("cache clear only supports the file backend (configured: %s)", cfg.Cache.Backend)
			}

			dir, err := cacheDir(cfg)
			if err != nil {
				return err
			}

			removed, err := clearDir(dir)
			if err != nil {
				return err
			}
			printSuccess("removed %d cache entries", removed)
			return nil
		},
	}
}

// measureDir counts the regular files in dir and sums their sizes. A missing
// directory is an empty cache.
func measureDir(dir string) (count int, size int64, err error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("read cache dir: %w", err)
	}
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		count++
		size += info.Size()
	}
	return count, size, nil
}

// clearDir removes the regular files in dir, leaving the directory itself and
// any subdirectories in place.
func clearDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read cache dir: %w", err)
	}

	removed := 0
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, de.Name())); err != nil {
			return removed, fmt.Errorf("remove %s: %w", de.Name(), err)
		}
		removed++
	}
	return removed, nil
}

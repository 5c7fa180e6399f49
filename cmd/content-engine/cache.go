// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/content-engine/internal/cache"
	"github.com/pdiddy/content-engine/pkg/types"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and purge the document cache (stats, purge)",
	Long: `Cache operates on the persistent document cache. Only the sqlite backend
outlives a single process; the memory backend is always empty here.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the number of cached documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closeFn, err := openCacheFromConfig(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		stats := c.Stats(cmd.Context())
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}
		fmt.Printf("Entries: %d\n", stats.Entries)
		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove expired documents from the cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closeFn, err := openCacheFromConfig(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		n, err := c.PurgeExpired(cmd.Context())
		if err != nil {
			return fmt.Errorf("purging cache: %w", err)
		}
		fmt.Printf("Purged %d expired entries\n", n)
		return nil
	},
}

// openCacheFromConfig opens only the configured cache backend.
func openCacheFromConfig(cmd *cobra.Command) (*cache.Cache, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cmd)
	if cfg.Cache.Backend != types.CacheSQLite {
		fmt.Fprintf(os.Stderr, "cache backend is %q; nothing persists between runs\n", cfg.Cache.Backend)
		return cache.New(nil, logger), func() {}, nil
	}
	backend, err := cache.OpenSQLite(cfg.Cache.Path)
	if err != nil {
		return nil, nil, err
	}
	return cache.New(backend, logger), func() { backend.Close() }, nil
}

func init() {
	cacheStatsCmd.Flags().Bool("json", false, "output stats as JSON")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePurgeCmd)

	rootCmd.AddCommand(cacheCmd)
}

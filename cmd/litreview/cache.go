// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litreview/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the collaborator response cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge [namespace]",
	Short: "Remove cached responses, optionally only one namespace",
	Long: `Purge removes cached collaborator responses. With no argument the whole
cache is cleared; pass "search" or "llm" to clear one namespace.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		namespace := ""
		if len(args) == 1 {
			namespace = args[0]
			if namespace != cache.NamespaceSearch && namespace != cache.NamespaceLLM {
				return fmt.Errorf("unknown namespace %q (want %q or %q)", namespace, cache.NamespaceSearch, cache.NamespaceLLM)
			}
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Purge(namespace); err != nil {
			return err
		}
		if namespace == "" {
			fmt.Fprintln(os.Stderr, "cache cleared")
		} else {
			fmt.Fprintf(os.Stderr, "cache namespace %q cleared\n", namespace)
		}
		return nil
	},
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		removed, err := store.Sweep()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "removed %d expired entries\n", removed)
		return nil
	},
}

func openStore() (*cache.Store, error) {
	cfg := pipelineConfig()
	store, err := cache.Open(cfg.Cache.Dir, cfg.Cache.MaxAge)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return store, nil
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
	cacheCmd.AddCommand(cacheSweepCmd)
	rootCmd.AddCommand(cacheCmd)
}

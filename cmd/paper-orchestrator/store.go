// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-orchestrator/internal/store"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the local paper index",
	Long: `Store manages the SQLite paper index that backs hybrid and keyword
retrieval. Use subcommands to initialize it, inspect it, or export its
contents.`,
}

// --- init subcommand ---

var storeInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the paper index and its schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		st, err := store.New(cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		fmt.Printf("Paper index ready at %s\n", cfg.Store.Path)
		return nil
	},
}

// --- stats subcommand ---

var storeStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show paper index statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		st, err := store.New(cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		count, err := st.Count(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("Papers indexed: %d\n", count)
		fmt.Printf("Database: %s\n", cfg.Store.Path)
		return nil
	},
}

// --- export subcommand ---

var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all indexed papers as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		st, err := store.New(cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		return st.ExportYAML(context.Background(), os.Stdout)
	},
}

func init() {
	storeCmd.AddCommand(storeInitCmd)
	storeCmd.AddCommand(storeStatsCmd)
	storeCmd.AddCommand(storeExportCmd)

	rootCmd.AddCommand(storeCmd)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-orchestrator CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-orchestrator/internal/secrets"
	"github.com/pdiddy/paper-orchestrator/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when set, else the loaded secret for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the paper-orchestrator CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-orchestrator",
	Short: "Multi-source academic paper search orchestrator",
	Long: `paper-orchestrator searches several academic metadata providers (OpenAlex,
Crossref, Semantic Scholar, arXiv) alongside a local hybrid index, then
merges, deduplicates, and ranks the results into one list.

Source failures degrade gracefully: a slow or broken provider contributes
nothing but never fails the search. Discovered papers can be ingested into
the local index for later hybrid and keyword retrieval.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-orchestrator.yaml or ~/.config/paper-orchestrator/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-orchestrator")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-orchestrator"))
		}
	}

	viper.SetEnvPrefix("PAPER_ORCHESTRATOR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the CLI's slog logger, debug-level when --verbose is set.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig assembles the full configuration from viper, with built-in
// defaults for anything unset.
func loadConfig() types.Config {
	viper.SetDefault("store.path", filepath.Join("papers", "index", "papers.db"))
	viper.SetDefault("store.max_results", 20)
	viper.SetDefault("http.timeout", 10*time.Second)
	viper.SetDefault("adapters.openalex.enabled", true)
	viper.SetDefault("adapters.crossref.enabled", true)
	viper.SetDefault("adapters.semantic_scholar.enabled", true)
	viper.SetDefault("adapters.arxiv.enabled", true)
	viper.SetDefault("orchestrator.max_results", 20)
	viper.SetDefault("orchestrator.min_results", 3)
	viper.SetDefault("orchestrator.source_timeout", 8*time.Second)
	viper.SetDefault("orchestrator.concurrency", 4)
	viper.SetDefault("orchestrator.cache_ttl", 60*time.Second)
	viper.SetDefault("ingest.workers", 2)
	viper.SetDefault("ingest.queue_size", 256)
	viper.SetDefault("ingest.max_batch", 50)

	return types.Config{
		Adapters: types.AdapterConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("http.timeout"),
				UserAgent: "paper-orchestrator/" + version,
			},
			EnableOpenAlex:        viper.GetBool("adapters.openalex.enabled"),
			EnableCrossref:        viper.GetBool("adapters.crossref.enabled"),
			EnableSemanticScholar: viper.GetBool("adapters.semantic_scholar.enabled"),
			EnableArxiv:           viper.GetBool("adapters.arxiv.enabled"),
			SemanticScholarAPIKey: secretDefault("semantic-scholar-api-key", viper.GetString("adapters.semantic_scholar.api_key")),
			OpenAlexEmail:         secretDefault("openalex-email", viper.GetString("adapters.openalex.email")),
			CrossrefMailto:        secretDefault("crossref-mailto", viper.GetString("adapters.crossref.mailto")),
		},
		Store: types.StoreConfig{
			Path:       viper.GetString("store.path"),
			MaxResults: viper.GetInt("store.max_results"),
		},
		Orchestrator: types.OrchestratorConfig{
			MaxResults:    viper.GetInt("orchestrator.max_results"),
			MinResults:    viper.GetInt("orchestrator.min_results"),
			SourceTimeout: viper.GetDuration("orchestrator.source_timeout"),
			Concurrency:   viper.GetInt("orchestrator.concurrency"),
			CacheTTL:      viper.GetDuration("orchestrator.cache_ttl"),
		},
		Ingest: types.IngestConfig{
			Workers:   viper.GetInt("ingest.workers"),
			QueueSize: viper.GetInt("ingest.queue_size"),
			MaxBatch:  viper.GetInt("ingest.max_batch"),
		},
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

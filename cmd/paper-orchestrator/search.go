// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-orchestrator/internal/adapter"
	"github.com/pdiddy/paper-orchestrator/internal/cache"
	"github.com/pdiddy/paper-orchestrator/internal/orchestrate"
	"github.com/pdiddy/paper-orchestrator/internal/store"
	"github.com/pdiddy/paper-orchestrator/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search academic sources and the local index for papers",
	Long: `Search queries the local hybrid index and the enabled academic providers
(OpenAlex, Crossref, Semantic Scholar, arXiv) concurrently, then merges,
deduplicates, and ranks the results. Sources that fail or time out are
reported in the diagnostics without failing the search.

When direct results fall short of --min-results, keyword and broader-query
fallbacks run against the local index.`,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")
	if query == "" && len(args) > 0 {
		query = strings.Join(args, " ")
	}
	if query == "" {
		return fmt.Errorf("query required: pass it as an argument or via --query")
	}

	cfg := loadConfig()
	logger := newLogger(cmd)

	st, err := store.New(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	orch, err := orchestrate.New(orchestrate.Params{
		Store:           st,
		Adapters:        buildAdapters(cfg.Adapters),
		DisabledSources: envDenyList(),
		Config:          cfg.Orchestrator,
		Ingest:          cfg.Ingest,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	defer orch.Close()

	opts, err := searchOptsFromFlags(cmd)
	if err != nil {
		return err
	}

	ctx := cache.NewRequestScope(context.Background())
	result, err := orch.Search(ctx, query, opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	formatSearchTable(result)
	return nil
}

// buildAdapters assembles the enabled source adapters. They are handed to
// the orchestrator unordered; it sorts by reliability itself.
func buildAdapters(cfg types.AdapterConfig) []adapter.SourceAdapter {
	client := &http.Client{Timeout: cfg.Timeout}

	var adapters []adapter.SourceAdapter
	if cfg.EnableOpenAlex {
		adapters = append(adapters, adapter.NewOpenAlex(client, cfg.HTTPConfig, cfg.OpenAlexEmail))
	}
	if cfg.EnableCrossref {
		adapters = append(adapters, adapter.NewCrossref(client, cfg.HTTPConfig, cfg.CrossrefMailto))
	}
	if cfg.EnableSemanticScholar {
		adapters = append(adapters, adapter.NewSemanticScholar(client, cfg.HTTPConfig, cfg.SemanticScholarAPIKey))
	}
	if cfg.EnableArxiv {
		adapters = append(adapters, adapter.NewArxiv(client, cfg.HTTPConfig))
	}
	return adapters
}

// envDenyList reads the comma-separated source deny-list from the
// PAPER_ORCHESTRATOR_DISABLED_SOURCES environment variable (or config key).
func envDenyList() []string {
	return adapter.ParseDenyList(viper.GetString("disabled_sources"))
}

func searchOptsFromFlags(cmd *cobra.Command) (types.SearchOptions, error) {
	maxResults, _ := cmd.Flags().GetInt("max-results")
	minResults, _ := cmd.Flags().GetInt("min-results")
	fromYear, _ := cmd.Flags().GetInt("from-year")
	toYear, _ := cmd.Flags().GetInt("to-year")
	region, _ := cmd.Flags().GetString("region")
	exclude, _ := cmd.Flags().GetString("exclude")
	disabled, _ := cmd.Flags().GetString("exclude-sources")
	weights, _ := cmd.Flags().GetString("weights")
	noKeyword, _ := cmd.Flags().GetBool("no-keyword-fallback")
	noBroader, _ := cmd.Flags().GetBool("no-broader-fallback")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	fast, _ := cmd.Flags().GetBool("fast")
	forceIngest, _ := cmd.Flags().GetBool("force-ingest")

	parsedWeights, err := parseWeights(weights)
	if err != nil {
		return types.SearchOptions{}, err
	}

	return types.SearchOptions{
		MaxResults:             maxResults,
		MinResults:             minResults,
		FromYear:               fromYear,
		ToYear:                 toYear,
		ExcludeIDs:             adapter.ParseDenyList(exclude),
		Region:                 region,
		DisabledSources:        adapter.ParseDenyList(disabled),
		SourceWeights:          parsedWeights,
		DisableKeywordFallback: noKeyword,
		DisableBroaderFallback: noBroader,
		Timeout:                timeout,
		Concurrency:            concurrency,
		FastMode:               fast,
		ForceIngest:            forceIngest,
	}, nil
}

// parseWeights parses "source=multiplier" pairs, e.g.
// "openalex=2.0,arxiv=0.5".
func parseWeights(s string) (map[string]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	weights := make(map[string]float64)
	for _, pair := range strings.Split(s, ",") {
		id, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("invalid weight %q: want source=multiplier", pair)
		}
		w, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q: %w", pair, err)
		}
		weights[strings.ToLower(strings.TrimSpace(id))] = w
	}
	return weights, nil
}

func formatSearchTable(result types.SearchResult) {
	if len(result.Papers) == 0 {
		fmt.Println("No papers found.")
	} else {
		fmt.Fprintf(os.Stdout, "%-4s  %-52s  %-6s  %-9s  %-10s  %s\n",
			"Rank", "Title", "Year", "Citations", "Source", "Score")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))

		for i, p := range result.Papers {
			title := p.Title
			if len(title) > 52 {
				title = title[:49] + "..."
			}
			fmt.Fprintf(os.Stdout, "%-4d  %-52s  %-6d  %-9d  %-10s  %.2f\n",
				i+1, title, p.Year, p.CitationCount, p.Source, p.Score)
		}
	}

	fmt.Fprintf(os.Stdout, "\n%d papers in %s (strategies: %s)\n",
		len(result.Papers),
		(time.Duration(result.ElapsedMS) * time.Millisecond).String(),
		strings.Join(result.Strategies, ", "))
	if result.PrimaryIndexEmpty {
		fmt.Fprintln(os.Stderr, "note: local index returned nothing; run 'paper-orchestrator ingest' to populate it")
	}
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "warning: %s\n", e)
	}
}

func init() {
	searchCmd.Flags().String("query", "", "free-text search query")
	searchCmd.Flags().Int("max-results", 0, "maximum papers to return (0 = config default)")
	searchCmd.Flags().Int("min-results", 0, "fallback threshold (0 = config default)")
	searchCmd.Flags().Int("from-year", 0, "earliest publication year")
	searchCmd.Flags().Int("to-year", 0, "latest publication year")
	searchCmd.Flags().String("region", "", "move papers from this region to the front")
	searchCmd.Flags().String("exclude", "", "paper IDs to drop (comma-separated)")
	searchCmd.Flags().String("exclude-sources", "", "source IDs to skip (comma-separated)")
	searchCmd.Flags().String("weights", "", "per-source score multipliers, e.g. openalex=2.0,arxiv=0.5")
	searchCmd.Flags().Bool("no-keyword-fallback", false, "disable the keyword fallback stage")
	searchCmd.Flags().Bool("no-broader-fallback", false, "disable the broader-query fallback stage")
	searchCmd.Flags().Duration("timeout", 0, "per-source timeout (0 = config default)")
	searchCmd.Flags().Int("concurrency", 0, "simultaneous source calls (0 = config default)")
	searchCmd.Flags().Bool("fast", false, "halve timeouts and concurrency for interactive use")
	searchCmd.Flags().Bool("force-ingest", false, "ingest discovered papers into the local index")
	searchCmd.Flags().Bool("json", false, "output the full result as JSON")

	rootCmd.AddCommand(searchCmd)
}

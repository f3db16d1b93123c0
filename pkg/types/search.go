// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-orchestrator
// pipeline: raw and canonical paper records, search options and results,
// and per-component configuration.
package types

import "time"

// SearchOptions is the bag of options accompanying one search call. It is
// immutable per call; the orchestrator works on a normalized copy.
type SearchOptions struct {
	// MaxResults caps the final result list (default 20).
	MaxResults int `json:"max_results,omitempty" yaml:"max_results,omitempty"`

	// MinResults is the threshold below which the fallback chain fires
	// (default 3).
	MinResults int `json:"min_results,omitempty" yaml:"min_results,omitempty"`

	// FromYear and ToYear bound the publication year range, zero means open.
	FromYear int `json:"from_year,omitempty" yaml:"from_year,omitempty"`
	ToYear   int `json:"to_year,omitempty" yaml:"to_year,omitempty"`

	// ExcludeIDs lists canonical paper IDs to drop from the result.
	ExcludeIDs []string `json:"exclude_ids,omitempty" yaml:"exclude_ids,omitempty"`

	// Region requests regional boosting: papers tagged with this region are
	// moved to the front after scoring. Reordering only, never filtering.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// DisabledSources lists adapter IDs to skip, merged with the
	// environment deny-list.
	DisabledSources []string `json:"disabled_sources,omitempty" yaml:"disabled_sources,omitempty"`

	// SourceWeights multiplies the score of papers from the given source ID.
	// Unlisted sources weigh 1.0.
	SourceWeights map[string]float64 `json:"source_weights,omitempty" yaml:"source_weights,omitempty"`

	// DisableKeywordFallback and DisableBroaderFallback switch off the
	// corresponding fallback stages. Zero value leaves them enabled.
	DisableKeywordFallback bool `json:"disable_keyword_fallback,omitempty" yaml:"disable_keyword_fallback,omitempty"`
	DisableBroaderFallback bool `json:"disable_broader_fallback,omitempty" yaml:"disable_broader_fallback,omitempty"`

	// Timeout is the per-source call budget (default 8s). Execution-only:
	// it does not affect which papers a query can return.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Concurrency bounds simultaneous source calls (default 4). Execution-only.
	Concurrency int `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`

	// FastMode halves per-source timeouts and concurrency for interactive
	// as-you-type contexts. Execution-only.
	FastMode bool `json:"fast_mode,omitempty" yaml:"fast_mode,omitempty"`

	// ForceIngest enqueues discovered papers for background ingestion into
	// the paper store, subject to the cost policy.
	ForceIngest bool `json:"force_ingest,omitempty" yaml:"force_ingest,omitempty"`
}

// Strategy names recorded in SearchResult.Strategies.
const (
	StrategyCache    = "cache"
	StrategyHybrid   = "hybrid"
	StrategyAcademic = "academic"
	StrategyKeyword  = "keyword"
	StrategyBroader  = "broader"
)

// SearchResult is the final payload of one orchestrated search. An empty
// Papers slice with a populated Errors list is a valid outcome meaning
// "nothing found, here is why".
type SearchResult struct {
	// Papers is the ranked, deduplicated result list.
	Papers []Paper `json:"papers" yaml:"papers"`

	// Strategies lists the stages that contributed at least one new paper,
	// in execution order.
	Strategies []string `json:"strategies" yaml:"strategies"`

	// StrategyCounts maps each contributing strategy to the number of new
	// papers it added.
	StrategyCounts map[string]int `json:"strategy_counts" yaml:"strategy_counts"`

	// CacheHits is 1 when the result was served from cache, else 0.
	CacheHits int `json:"cache_hits" yaml:"cache_hits"`

	// ElapsedMS is the wall-clock duration of the search call.
	ElapsedMS int64 `json:"elapsed_ms" yaml:"elapsed_ms"`

	// Errors collects non-fatal failures: source errors, timeouts, and
	// ingestion-cost vetoes. Never causes the call itself to fail.
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`

	// PrimaryIndexEmpty flags that the hybrid index returned zero results
	// without erroring, a possible cold start or permission issue.
	// Operational signal, distinct from an ordinary empty result.
	PrimaryIndexEmpty bool `json:"primary_index_empty,omitempty" yaml:"primary_index_empty,omitempty"`
}

// IngestResult reports the outcome of an idempotent paper upsert.
type IngestResult struct {
	// PaperID is the canonical identity the paper was stored under.
	PaperID string `json:"paper_id" yaml:"paper_id"`

	// IsNewPaper is false when the upsert matched an existing record.
	IsNewPaper bool `json:"is_new_paper" yaml:"is_new_paper"`
}

// CostDecision is the outcome of an ingestion cost check. A veto is an
// ordinary value, not an error: search results still flow to the caller.
type CostDecision struct {
	Allowed       bool    `json:"allowed" yaml:"allowed"`
	Reason        string  `json:"reason,omitempty" yaml:"reason,omitempty"`
	EstimatedCost float64 `json:"estimated_cost" yaml:"estimated_cost"`
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by adapters that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-orchestrator/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AdapterConfig holds settings for the academic source adapters.
type AdapterConfig struct {
	HTTPConfig `yaml:",inline"`

	// EnableOpenAlex controls whether the OpenAlex adapter is used.
	EnableOpenAlex bool `json:"enable_openalex" yaml:"enable_openalex"`

	// EnableCrossref controls whether the Crossref adapter is used.
	EnableCrossref bool `json:"enable_crossref" yaml:"enable_crossref"`

	// EnableSemanticScholar controls whether the Semantic Scholar adapter is used.
	EnableSemanticScholar bool `json:"enable_semantic_scholar" yaml:"enable_semantic_scholar"`

	// EnableArxiv controls whether the arXiv adapter is used.
	EnableArxiv bool `json:"enable_arxiv" yaml:"enable_arxiv"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty"`

	// OpenAlexEmail is sent as the mailto parameter for polite pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty"`

	// CrossrefMailto is appended to the Crossref User-Agent for the polite pool.
	CrossrefMailto string `json:"crossref_mailto,omitempty" yaml:"crossref_mailto,omitempty"`

	// DisabledSources lists adapter IDs that must never be invoked, merged
	// with the PAPER_ORCHESTRATOR_DISABLED_SOURCES environment deny-list.
	DisabledSources []string `json:"disabled_sources,omitempty" yaml:"disabled_sources,omitempty"`
}

// StoreConfig holds settings for the SQLite paper store.
type StoreConfig struct {
	// Path is the database file location (default "papers/index/papers.db").
	Path string `json:"path" yaml:"path"`

	// MaxResults is the default maximum number of store query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// OrchestratorConfig holds coordinator defaults, overridable per call
// through SearchOptions.
type OrchestratorConfig struct {
	// MaxResults caps the final result list (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// MinResults is the fallback-chain threshold (default 3).
	MinResults int `json:"min_results" yaml:"min_results"`

	// SourceTimeout is the per-source call budget (default 8s).
	SourceTimeout time.Duration `json:"source_timeout" yaml:"source_timeout"`

	// Concurrency bounds simultaneous source calls (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// CacheTTL is how long cached result sets stay fresh (default 60s).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

// IngestConfig holds settings for the background ingestion queue.
type IngestConfig struct {
	// Workers is the number of background ingestion goroutines (default 2).
	Workers int `json:"workers" yaml:"workers"`

	// QueueSize is the job buffer; a full queue drops new jobs (default 64).
	QueueSize int `json:"queue_size" yaml:"queue_size"`

	// MaxBatch is the largest paper batch the default cost policy accepts
	// per search call (default 50).
	MaxBatch int `json:"max_batch" yaml:"max_batch"`
}

// Config groups all component configurations.
type Config struct {
	Adapters     AdapterConfig      `json:"adapters" yaml:"adapters"`
	Store        StoreConfig        `json:"store" yaml:"store"`
	Orchestrator OrchestratorConfig `json:"orchestrator" yaml:"orchestrator"`
	Ingest       IngestConfig       `json:"ingest" yaml:"ingest"`
}

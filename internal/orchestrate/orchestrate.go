// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orchestrate coordinates paper search across the internal hybrid
// index and the external source adapters: bounded-concurrency fan-out,
// per-source timeouts, fallback stages, dedup, scoring, and optional
// background ingestion.
package orchestrate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pdiddy/paper-orchestrator/internal/adapter"
	"github.com/pdiddy/paper-orchestrator/internal/cache"
	"github.com/pdiddy/paper-orchestrator/pkg/types"
)

// PaperStore is the persistence collaborator: hybrid retrieval, keyword
// fallback retrieval, and idempotent ingestion.
type PaperStore interface {
	HybridSearch(ctx context.Context, query string, opts types.SearchOptions) ([]types.AcademicPaper, error)
	KeywordSearch(ctx context.Context, query string, limit int, excludeIDs []string) ([]types.AcademicPaper, error)
	IngestPaper(ctx context.Context, paper types.AcademicPaper) (types.IngestResult, error)
}

// CostPolicy vets background ingestion batches. A veto is a value, not an
// error; search results still flow to the caller.
type CostPolicy interface {
	ValidateIngestCost(batchSize int) types.CostDecision
}

// hybridSourceID tags results and errors from the internal index in
// diagnostics, alongside the external adapter ids.
const hybridSourceID = "hybrid"

// Params collects the orchestrator's collaborators and configuration.
type Params struct {
	Store    PaperStore
	Adapters []adapter.SourceAdapter

	// Policy may be nil; a batch-size policy derived from Ingest.MaxBatch
	// is used then.
	Policy CostPolicy

	// DisabledSources is the environment-level deny-list, merged with the
	// per-call one from SearchOptions.
	DisabledSources []string

	Config types.OrchestratorConfig
	Ingest types.IngestConfig
	Logger *slog.Logger
}

// Orchestrator drives the search pipeline. Safe for concurrent use.
type Orchestrator struct {
	store    PaperStore
	adapters []adapter.SourceAdapter
	policy   CostPolicy
	disabled []string
	cfg      types.OrchestratorConfig
	global   *cache.Store
	queue    *ingestQueue
	logger   *slog.Logger
}

// New builds an Orchestrator and starts its background ingest workers.
// Close must be called to drain them.
func New(p Params) (*Orchestrator, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("orchestrate: nil paper store")
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := p.Policy
	if policy == nil {
		policy = NewBatchCostPolicy(p.Ingest.MaxBatch)
	}

	ttl := p.Config.CacheTTL
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}

	return &Orchestrator{
		store:    p.Store,
		adapters: adapter.Order(p.Adapters),
		policy:   policy,
		disabled: p.DisabledSources,
		cfg:      p.Config,
		global:   cache.New(cache.DefaultCapacity, ttl),
		queue:    newIngestQueue(p.Store, p.Ingest, logger),
		logger:   logger,
	}, nil
}

// Close drains the background ingest queue.
func (o *Orchestrator) Close() {
	o.queue.Close()
}

// Search runs the full pipeline for one query. It never fails for source
// errors or timeouts; those degrade to entries in SearchResult.Errors. The
// only error returns are contract violations caught up front.
func (o *Orchestrator) Search(ctx context.Context, query string, opts types.SearchOptions) (types.SearchResult, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return types.SearchResult{}, ErrEmptyQuery
	}
	norm, err := o.normalize(opts)
	if err != nil {
		return types.SearchResult{}, err
	}

	result := types.SearchResult{
		StrategyCounts: make(map[string]int),
	}

	key := cache.Key(query, norm)
	if papers, ok := o.cacheFor(ctx).Get(key); ok {
		result.Papers = papers
		result.Strategies = []string{types.StrategyCache}
		result.StrategyCounts[types.StrategyCache] = len(papers)
		result.CacheHits = 1
		result.ElapsedMS = time.Since(start).Milliseconds()
		return result, nil
	}

	run := &searchRun{
		orch:  o,
		query: query,
		opts:  norm,
		seen:  newDedupSet(norm.ExcludeIDs),
		sem:   semaphore.NewWeighted(int64(norm.Concurrency)),
	}

	run.primary(ctx, &result)

	if run.seen.Len() < norm.MinResults && !norm.DisableKeywordFallback && ctx.Err() == nil {
		run.keywordFallback(ctx, &result)
	}
	if run.seen.Len() < norm.MinResults && !norm.DisableBroaderFallback && ctx.Err() == nil {
		run.broaderFallback(ctx, &result)
	}

	result.Papers = rank(run.seen.Papers(), norm)
	result.Errors = append(result.Errors, run.errs...)

	if norm.ForceIngest {
		o.enqueueIngest(result.Papers, &result)
	}

	o.cacheFor(ctx).Set(key, result.Papers)
	result.ElapsedMS = time.Since(start).Milliseconds()

	o.logger.Debug("search complete",
		"query", query,
		"papers", len(result.Papers),
		"strategies", result.Strategies,
		"errors", len(result.Errors),
		"elapsed_ms", result.ElapsedMS)
	return result, nil
}

// cacheFor returns the request-scoped cache when one is attached to ctx,
// else the shared global cache.
func (o *Orchestrator) cacheFor(ctx context.Context) *cache.Store {
	if rs := cache.FromContext(ctx); rs != nil {
		return rs
	}
	return o.global
}

// searchRun carries the mutable state of one Search call.
type searchRun struct {
	orch  *Orchestrator
	query string
	opts  types.SearchOptions
	sem   *semaphore.Weighted

	mu           sync.Mutex
	seen         *dedupSet
	errs         []string
	primaryEmpty bool
}

// source pairs an id with a search invocation so the hybrid index and the
// external adapters share one fan-out path.
type source struct {
	id   string
	call func(ctx context.Context) ([]types.AcademicPaper, error)
}

// primary fans out to the hybrid index and the ordered adapters under the
// concurrency limiter. Sources are launched in priority order; once the
// accumulated count reaches MaxResults, remaining sources are skipped
// without being invoked.
func (r *searchRun) primary(ctx context.Context, result *types.SearchResult) {
	sources := []source{{
		id: hybridSourceID,
		call: func(ctx context.Context) ([]types.AcademicPaper, error) {
			return r.orch.store.HybridSearch(ctx, r.query, r.opts)
		},
	}}
	deny := append(append([]string{}, r.orch.disabled...), r.opts.DisabledSources...)
	for _, a := range adapter.Filter(r.orch.adapters, deny) {
		a := a
		sources = append(sources, source{
			id: a.ID(),
			call: func(ctx context.Context) ([]types.AcademicPaper, error) {
				return a.Search(ctx, r.query, r.opts)
			},
		})
	}

	added := map[string]int{}
	var wg sync.WaitGroup
	for _, src := range sources {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			break
		}
		if r.seen.Len() >= r.opts.MaxResults {
			r.sem.Release(1)
			break
		}
		wg.Add(1)
		go func(src source) {
			defer wg.Done()
			defer r.sem.Release(1)
			papers, err := r.callWithTimeout(ctx, src, r.opts.Timeout)
			r.mu.Lock()
			defer r.mu.Unlock()
			if err != nil {
				r.errs = append(r.errs, fmt.Sprintf("%s: %v", src.id, err))
				return
			}
			if src.id == hybridSourceID {
				if len(papers) == 0 {
					r.primaryEmpty = true
				}
				added[hybridSourceID] += r.seen.AddAll(papers)
			} else {
				added["academic"] += r.seen.AddAll(papers)
			}
		}(src)
	}
	wg.Wait()

	result.PrimaryIndexEmpty = r.primaryEmpty
	if n := added[hybridSourceID]; n > 0 {
		result.Strategies = append(result.Strategies, types.StrategyHybrid)
		result.StrategyCounts[types.StrategyHybrid] = n
	}
	if n := added["academic"]; n > 0 {
		result.Strategies = append(result.Strategies, types.StrategyAcademic)
		result.StrategyCounts[types.StrategyAcademic] = n
	}
}

// callWithTimeout bounds one source call. The deadline both cancels the
// call's context and caps how long we wait for it: a source that ignores
// cancellation keeps running orphaned while the pipeline moves on.
func (r *searchRun) callWithTimeout(ctx context.Context, src source, timeout time.Duration) ([]types.AcademicPaper, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		papers []types.AcademicPaper
		err    error
	}
	ch := make(chan outcome, 1)
	go func() {
		papers, err := src.call(callCtx)
		ch <- outcome{papers, err}
	}()

	select {
	case out := <-ch:
		return out.papers, out.err
	case <-callCtx.Done():
		return nil, fmt.Errorf("timed out after %s", timeout)
	}
}

// keywordFallback queries the store's full-text index, excluding papers
// already found.
func (r *searchRun) keywordFallback(ctx context.Context, result *types.SearchResult) {
	papers, err := r.callWithTimeout(ctx, source{
		id: types.StrategyKeyword,
		call: func(ctx context.Context) ([]types.AcademicPaper, error) {
			return r.orch.store.KeywordSearch(ctx, r.query, r.opts.MaxResults, r.seen.IDs())
		},
	}, r.opts.Timeout)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("keyword: %v", err))
		return
	}
	if n := r.seen.AddAll(papers); n > 0 {
		result.Strategies = append(result.Strategies, types.StrategyKeyword)
		result.StrategyCounts[types.StrategyKeyword] = n
	}
}

// broaderFallback expands the query into term-pair sub-queries and runs
// each as its own hybrid search with a halved timeout. Combinations run
// concurrently under the same limiter; launching stops as soon as the
// minimum count is satisfied.
func (r *searchRun) broaderFallback(ctx context.Context, result *types.SearchResult) {
	queries := broaderQueries(r.query)
	if len(queries) == 0 {
		return
	}
	timeout := r.opts.Timeout / 2

	var (
		wg    sync.WaitGroup
		added int
	)
	for _, q := range queries {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			break
		}
		if r.seen.Len() >= r.opts.MinResults {
			r.sem.Release(1)
			break
		}
		wg.Add(1)
		go func(q string) {
			defer wg.Done()
			defer r.sem.Release(1)
			papers, err := r.callWithTimeout(ctx, source{
				id: types.StrategyBroader,
				call: func(ctx context.Context) ([]types.AcademicPaper, error) {
					return r.orch.store.HybridSearch(ctx, q, r.opts)
				},
			}, timeout)
			r.mu.Lock()
			defer r.mu.Unlock()
			if err != nil {
				r.errs = append(r.errs, fmt.Sprintf("broader %q: %v", q, err))
				return
			}
			added += r.seen.AddAll(papers)
		}(q)
	}
	wg.Wait()

	if added > 0 {
		result.Strategies = append(result.Strategies, types.StrategyBroader)
		result.StrategyCounts[types.StrategyBroader] = added
	}
}

// enqueueIngest submits the final papers to the background queue, subject
// to the cost policy. Vetoes are recorded, never fatal.
func (o *Orchestrator) enqueueIngest(papers []types.Paper, result *types.SearchResult) {
	decision := o.policy.ValidateIngestCost(len(papers))
	if !decision.Allowed {
		result.Errors = append(result.Errors,
			fmt.Sprintf("ingestion vetoed: %s (estimated cost %.2f)", decision.Reason, decision.EstimatedCost))
		return
	}
	for _, p := range papers {
		o.queue.Enqueue(p.AcademicPaper)
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache provides short-lived result-set caching for the search
// orchestrator: a request-scoped store threaded through context, and a
// bounded process-wide fallback used when no request scope is active.
package cache

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/paper-orchestrator/pkg/types"
)

const (
	// DefaultTTL is how long a cached result set stays fresh. Expiry is
	// checked lazily at read time; there is no background sweep.
	DefaultTTL = 60 * time.Second

	// DefaultCapacity bounds the global fallback cache. On overflow the
	// single oldest-inserted entry is evicted (FIFO, not true LRU).
	DefaultCapacity = 100
)

type entry struct {
	papers   []types.Paper
	storedAt time.Time
}

// Store is a mutex-guarded TTL cache mapping normalized search keys to
// result sets. Entries are all-or-nothing per key.
type Store struct {
	mu       sync.Mutex
	entries  map[string]entry
	order    []string // insertion order, oldest first
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// New returns a Store with the given capacity and TTL. Non-positive
// arguments fall back to the defaults.
func New(capacity int, ttl time.Duration) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		entries:  make(map[string]entry),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the cached result set for key, or ok=false on a miss.
// Expired entries are evicted on lookup.
func (s *Store) Get(key string) ([]types.Paper, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if s.now().Sub(e.storedAt) > s.ttl {
		s.removeLocked(key)
		return nil, false
	}
	return clonePapers(e.papers), true
}

// Set stores papers under key, evicting the oldest entry when full.
// Re-setting an existing key refreshes its timestamp but keeps its
// original insertion position.
func (s *Store) Set(key string, papers []types.Paper) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists {
		if len(s.entries) >= s.capacity && len(s.order) > 0 {
			s.removeLocked(s.order[0])
		}
		s.order = append(s.order, key)
	}
	s.entries[key] = entry{papers: clonePapers(papers), storedAt: s.now()}
}

// Len reports the number of live entries, including any not yet evicted
// expired ones.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) removeLocked(key string) {
	delete(s.entries, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func clonePapers(papers []types.Paper) []types.Paper {
	if papers == nil {
		return nil
	}
	cloned := make([]types.Paper, len(papers))
	copy(cloned, papers)
	return cloned
}

type scopeKey struct{}

// NewRequestScope attaches a fresh request-scoped cache to ctx. The scope
// lives exactly as long as the outer request: callers create it at the top
// of a request and discard it with the context, so entries never leak
// across requests.
func NewRequestScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeKey{}, New(DefaultCapacity, DefaultTTL))
}

// FromContext returns the request-scoped cache attached to ctx, or nil when
// no request scope is active.
func FromContext(ctx context.Context) *Store {
	s, _ := ctx.Value(scopeKey{}).(*Store)
	return s
}

// Key builds the cache key from the normalized query text plus the subset
// of options that affect result content. Execution-only options (timeout,
// concurrency, fast mode) and side-effect options (force ingest) are
// excluded so equivalent searches collide. Field order is fixed.
func Key(query string, opts types.SearchOptions) string {
	return strings.Join([]string{
		"q=" + strings.ToLower(strings.TrimSpace(query)),
		"max=" + strconv.Itoa(opts.MaxResults),
		"min=" + strconv.Itoa(opts.MinResults),
		"fy=" + strconv.Itoa(opts.FromYear),
		"ty=" + strconv.Itoa(opts.ToYear),
		"ex=" + strings.Join(sortedLower(opts.ExcludeIDs), ","),
		"r=" + strings.ToLower(strings.TrimSpace(opts.Region)),
		"ds=" + strings.Join(sortedLower(opts.DisabledSources), ","),
		"w=" + weightsKey(opts.SourceWeights),
		"nk=" + strconv.FormatBool(opts.DisableKeywordFallback),
		"nb=" + strconv.FormatBool(opts.DisableBroaderFallback),
	}, "|")
}

func sortedLower(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func weightsKey(weights map[string]float64) string {
	if len(weights) == 0 {
		return ""
	}
	keys := make([]string, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+":"+strconv.FormatFloat(weights[k], 'f', 3, 64))
	}
	return strings.Join(parts, ",")
}

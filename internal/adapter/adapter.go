// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package adapter wraps external paper-metadata providers behind a uniform
// search capability. Each adapter declares an identity, a reliability tier,
// and a rate-limit budget; the orchestrator decides invocation order and
// isolates failures.
package adapter

import (
	"context"
	"sort"
	"strings"

	"github.com/pdiddy/paper-orchestrator/pkg/types"
	"golang.org/x/time/rate"
)

// Tier classifies an adapter's reliability and controls invocation order.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// rank maps tiers to sort order, high first. Unknown tiers sort last.
func (t Tier) rank() int {
	switch t {
	case TierHigh:
		return 0
	case TierMedium:
		return 1
	case TierLow:
		return 2
	}
	return 3
}

// SourceAdapter is one external paper-metadata provider. Implementations
// are stateless with respect to a single search call; any internal rate
// limiting is adapter-private. Search fails by returning an error; the
// orchestrator converts that into an empty contribution, never an abort.
type SourceAdapter interface {
	ID() string
	Reliability() Tier
	RateLimit() float64

	Search(ctx context.Context, query string, opts types.SearchOptions) ([]types.AcademicPaper, error)
}

// Order returns adapters sorted by reliability tier (high first), ties
// broken by descending rate-limit budget so faster providers go first.
// The input slice is not modified.
func Order(adapters []SourceAdapter) []SourceAdapter {
	ordered := make([]SourceAdapter, len(adapters))
	copy(ordered, adapters)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := ordered[i].Reliability().rank(), ordered[j].Reliability().rank()
		if ri != rj {
			return ri < rj
		}
		return ordered[i].RateLimit() > ordered[j].RateLimit()
	})
	return ordered
}

// Filter removes adapters whose ID appears in the deny-list.
func Filter(adapters []SourceAdapter, denyList []string) []SourceAdapter {
	if len(denyList) == 0 {
		return adapters
	}
	denied := make(map[string]struct{}, len(denyList))
	for _, id := range denyList {
		id = strings.ToLower(strings.TrimSpace(id))
		if id != "" {
			denied[id] = struct{}{}
		}
	}
	kept := make([]SourceAdapter, 0, len(adapters))
	for _, a := range adapters {
		if _, ok := denied[strings.ToLower(a.ID())]; ok {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

// ParseDenyList splits a comma-separated deny-list string (the
// environment-configuration form) into adapter IDs.
func ParseDenyList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var ids []string
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

// newLimiter builds the adapter-private rate limiter for an rps budget.
// Sub-1 budgets get a burst of one so the first call is never delayed twice.
func newLimiter(rps float64) *rate.Limiter {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// positionScore assigns a position-based relevance score in [0.1, 1.0] for
// providers that return relevance-ordered results without a numeric score.
func positionScore(index, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - float64(index)/float64(total-1)*0.9
}

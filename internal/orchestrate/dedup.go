// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrate

import (
	"strings"
	"sync"

	"github.com/pdiddy/paper-orchestrator/pkg/types"
)

// dedupSet accumulates papers across pipeline stages while collapsing
// records that share a canonical identity. First seen wins; later arrivals
// with the same identity are dropped without field-level merging. Lookup is
// a set membership check, so accumulation stays O(n) over the whole run.
// Safe for concurrent use.
type dedupSet struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	order  []types.AcademicPaper
	banned map[string]struct{}
}

// newDedupSet returns an empty set. Papers whose canonical id appears in
// excludeIDs are rejected as if already seen.
func newDedupSet(excludeIDs []string) *dedupSet {
	banned := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		id = strings.ToLower(strings.TrimSpace(id))
		if id != "" {
			banned[id] = struct{}{}
		}
	}
	return &dedupSet{
		seen:   make(map[string]struct{}),
		banned: banned,
	}
}

// Add inserts p unless its identity was already seen or excluded. Reports
// whether the paper was kept.
func (d *dedupSet) Add(p types.AcademicPaper) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addLocked(p)
}

// AddAll inserts each paper in order and returns how many were new.
func (d *dedupSet) AddAll(papers []types.AcademicPaper) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	added := 0
	for _, p := range papers {
		if d.addLocked(p) {
			added++
		}
	}
	return added
}

func (d *dedupSet) addLocked(p types.AcademicPaper) bool {
	id := p.CanonicalID()
	if _, ok := d.banned[id]; ok {
		return false
	}
	if _, ok := d.seen[id]; ok {
		return false
	}
	d.seen[id] = struct{}{}
	d.order = append(d.order, p)
	return true
}

// Len reports the number of distinct papers accumulated so far.
func (d *dedupSet) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}

// IDs returns the canonical ids seen so far, in insertion order.
func (d *dedupSet) IDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, len(d.order))
	for i, p := range d.order {
		ids[i] = p.CanonicalID()
	}
	return ids
}

// Papers returns a copy of the accumulated papers in insertion order.
func (d *dedupSet) Papers() []types.AcademicPaper {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]types.AcademicPaper, len(d.order))
	copy(out, d.order)
	return out
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrate

import (
	"math"
	"sort"
	"strings"

	"github.com/pdiddy/paper-orchestrator/pkg/types"
)

// recencyBaselineYear anchors the recency component: publication years
// after it add linearly, years at or before it contribute zero.
const recencyBaselineYear = 2015

// rawScore combines log-damped citation count with a linear recency boost.
// Citations alone over-favor old heavily-cited work and recency alone
// over-favors new unvalidated work, so when both components are positive
// they are blended with a harmonic mean, which stays low unless both are
// healthy. When either component is zero the score degrades to their sum,
// sidestepping the undefined harmonic mean.
func rawScore(p types.AcademicPaper) float64 {
	citeZ := math.Log1p(float64(p.CitationCount))
	var yearZ float64
	if p.Year > recencyBaselineYear {
		yearZ = float64(p.Year - recencyBaselineYear)
	}
	if citeZ > 0 && yearZ > 0 {
		return 2 * citeZ * yearZ / (citeZ + yearZ)
	}
	return citeZ + yearZ
}

// sourceWeight looks up the multiplier for a source id, defaulting to 1.
func sourceWeight(weights map[string]float64, sourceID string) float64 {
	if len(weights) == 0 {
		return 1
	}
	if w, ok := weights[sourceID]; ok {
		return w
	}
	if w, ok := weights[strings.ToLower(sourceID)]; ok {
		return w
	}
	return 1
}

// rank scores, sorts, optionally region-boosts, and truncates the
// deduplicated papers into the final result list.
func rank(papers []types.AcademicPaper, opts types.SearchOptions) []types.Paper {
	ranked := make([]types.Paper, len(papers))
	for i, p := range papers {
		ranked[i] = types.Paper{
			ID:            p.CanonicalID(),
			AcademicPaper: p,
			Score:         rawScore(p) * sourceWeight(opts.SourceWeights, p.Source),
		}
	}

	// Stable so equal scores keep their arrival order.
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	if opts.Region != "" {
		ranked = boostRegion(ranked, opts.Region)
	}

	if len(ranked) > opts.MaxResults {
		ranked = ranked[:opts.MaxResults]
	}
	return ranked
}

// boostRegion moves papers tagged with the requested region to the front.
// Pure reordering: both the boosted group and the remainder keep their
// internal score order, and nothing is filtered out.
func boostRegion(papers []types.Paper, region string) []types.Paper {
	matched := make([]types.Paper, 0, len(papers))
	rest := make([]types.Paper, 0, len(papers))
	for _, p := range papers {
		if strings.EqualFold(p.Region, region) {
			matched = append(matched, p)
		} else {
			rest = append(rest, p)
		}
	}
	return append(matched, rest...)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrate

import (
	"github.com/pdiddy/paper-orchestrator/internal/textutil"
)

// maxBroaderCombos caps how many term-pair sub-queries a broader search
// generates from one query.
const maxBroaderCombos = 4

// broaderQueries expands a query into up to four two-term sub-queries
// built from its significant tokens, pairing earlier (more prominent)
// terms first. With fewer than two combinations the top single term is
// appended so the fallback still has something to run.
func broaderQueries(query string) []string {
	tokens := textutil.Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	var combos []string
	for i := 0; i < len(tokens) && len(combos) < maxBroaderCombos; i++ {
		for j := i + 1; j < len(tokens) && len(combos) < maxBroaderCombos; j++ {
			combos = append(combos, tokens[i]+" "+tokens[j])
		}
	}

	if len(combos) < 2 {
		combos = append(combos, tokens[0])
	}
	return combos
}

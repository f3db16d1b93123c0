// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package textutil normalizes free-text queries into stemmed search tokens
// for fallback query construction.
package textutil

import (
	"strings"
	"unicode"
)

// stopwords are short function words dropped during tokenization. Tokens
// under three runes are dropped regardless, so only longer ones are listed.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "into": {},
	"that": {}, "this": {}, "are": {}, "was": {}, "were": {}, "been": {},
	"have": {}, "has": {}, "had": {}, "not": {}, "but": {}, "about": {},
	"over": {}, "under": {}, "between": {}, "their": {}, "its": {},
	"using": {}, "based": {}, "toward": {}, "towards": {}, "via": {},
}

// Tokenize lower-cases the query, splits camelCase and hyphenated words,
// and drops stopwords and tokens shorter than three runes. Tokens keep
// their surface form; duplicates that stem to the same root are removed,
// first appearance wins.
func Tokenize(query string) []string {
	expanded := splitCamel(query)

	fields := strings.FieldsFunc(strings.ToLower(expanded), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	var tokens []string
	for _, f := range fields {
		if len([]rune(f)) < 3 {
			continue
		}
		if _, ok := stopwords[f]; ok {
			continue
		}
		stemmed := Stem(f)
		if _, ok := seen[stemmed]; ok {
			continue
		}
		seen[stemmed] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}

// Stem applies lightweight suffix stripping: plurals, -ing, -ed, -ly,
// -ation/-tion endings. Not a full Porter stemmer; just enough that
// "networks", "networking" and "network" collide.
func Stem(token string) string {
	t := token

	switch {
	case strings.HasSuffix(t, "ies") && len(t) > 4:
		t = t[:len(t)-3] + "y"
	case strings.HasSuffix(t, "sses"):
		t = t[:len(t)-2]
	case strings.HasSuffix(t, "ses") && len(t) > 4:
		t = t[:len(t)-2]
	case strings.HasSuffix(t, "s") && !strings.HasSuffix(t, "ss") && len(t) > 3:
		t = t[:len(t)-1]
	}

	switch {
	case strings.HasSuffix(t, "ization") && len(t) > 8:
		t = t[:len(t)-7] + "ize"
	case strings.HasSuffix(t, "ation") && len(t) > 6:
		t = t[:len(t)-5] + "ate"
	case strings.HasSuffix(t, "tion") && len(t) > 5:
		t = t[:len(t)-4] + "t"
	case strings.HasSuffix(t, "ing") && len(t) > 5:
		t = t[:len(t)-3]
	case strings.HasSuffix(t, "ed") && len(t) > 4:
		t = t[:len(t)-2]
	case strings.HasSuffix(t, "ly") && len(t) > 4:
		t = t[:len(t)-2]
	}

	// Collapse doubled trailing consonants left by -ing/-ed stripping
	// ("running" → "runn" → "run").
	if len(t) > 3 && t[len(t)-1] == t[len(t)-2] && !isVowel(rune(t[len(t)-1])) {
		t = t[:len(t)-1]
	}

	return t
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

// splitCamel inserts spaces at lower-to-upper transitions so camelCase
// identifiers tokenize into their parts.
func splitCamel(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

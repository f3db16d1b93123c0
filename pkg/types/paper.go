// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
	"unicode"
)

// Author is a paper author. Sources disagree on shape: some return plain
// names, others name/affiliation pairs, so Affiliation is frequently empty.
type Author struct {
	Name        string `json:"name" yaml:"name"`
	Affiliation string `json:"affiliation,omitempty" yaml:"affiliation,omitempty"`
}

// AcademicPaper is a raw paper record as returned by a single source. It is
// never mutated after creation; the merge step transforms it into a Paper.
type AcademicPaper struct {
	// Title is the paper title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract or summary, when the source provides one.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Authors lists the paper authors in source order.
	Authors []Author `json:"authors" yaml:"authors"`

	// Year is the publication year, zero when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Venue is the journal, conference, or repository name.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// DOI is the bare DOI without the https://doi.org/ prefix.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// URL is the landing page for the paper.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// PDFURL is a direct link to the full text, when available.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// CitationCount is the source-reported citation count, zero when unknown.
	CitationCount int `json:"citation_count,omitempty" yaml:"citation_count,omitempty"`

	// Source identifies which source produced this record
	// (e.g. "openalex", "crossref", "semantic_scholar", "arxiv", "hybrid").
	Source string `json:"source" yaml:"source"`

	// Region is an optional region metadata tag used for regional boosting.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// Relevance is a provider-specific relevance sub-score in [0, 1],
	// zero when the source does not report one.
	Relevance float64 `json:"relevance,omitempty" yaml:"relevance,omitempty"`
}

// FirstAuthor returns the name of the first listed author, or "".
func (p AcademicPaper) FirstAuthor() string {
	if len(p.Authors) == 0 {
		return ""
	}
	return p.Authors[0].Name
}

// CanonicalID derives the deterministic identity used for deduplication and
// idempotent ingestion. DOI wins when present; otherwise the identity is the
// normalized (title, first author, year) tuple, so the same real-world paper
// collapses to one record across sources and across separate search calls.
func (p AcademicPaper) CanonicalID() string {
	if doi := strings.ToLower(strings.TrimSpace(p.DOI)); doi != "" {
		return "doi:" + doi
	}
	return fmt.Sprintf("work:%s|%s|%d",
		NormalizeTitle(p.Title),
		strings.ToLower(strings.TrimSpace(p.FirstAuthor())),
		p.Year)
}

// Paper is the unified post-merge representation: a canonical record with a
// deterministic identity and a combined ranking score. Exactly one Paper
// exists per distinct identity within a single search result.
type Paper struct {
	// ID is the canonical identity (see AcademicPaper.CanonicalID).
	ID string `json:"id" yaml:"id"`

	AcademicPaper `yaml:",inline"`

	// Score is the combined relevance/authority/recency score used for
	// the final ordering.
	Score float64 `json:"score" yaml:"score"`
}

// NormalizeTitle returns a lowercased, punctuation-stripped,
// whitespace-collapsed version of title for identity comparison.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

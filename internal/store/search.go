// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"

	"github.com/pdiddy/paper-orchestrator/internal/textutil"
	"github.com/pdiddy/paper-orchestrator/pkg/types"
)

const (
	embedDim = 64

	// Weights for blending lexical and vector scores in hybrid search.
	lexicalWeight = 0.6
	vectorWeight  = 0.4
)

// HybridSearch combines FTS5 lexical matching with hashed-embedding cosine
// similarity over the stored corpus. Results carry a blended Relevance in
// [0,1]. An empty result with nil error means the index simply has no match.
func (s *Store) HybridSearch(ctx context.Context, query string, opts types.SearchOptions) ([]types.AcademicPaper, error) {
	limit := opts.MaxResults
	if limit <= 0 || limit > s.maxResults {
		limit = s.maxResults
	}

	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}

	lexical, err := s.lexicalCandidates(ctx, match, limit*3, opts)
	if err != nil {
		return nil, err
	}

	queryVec := embed(query)
	type scored struct {
		paper types.AcademicPaper
		score float64
	}
	results := make([]scored, 0, len(lexical))
	for _, cand := range lexical {
		sim, err := s.cosineToStored(ctx, cand.id, queryVec)
		if err != nil {
			return nil, err
		}
		blended := lexicalWeight*cand.rank + vectorWeight*sim
		p := cand.paper
		p.Relevance = blended
		results = append(results, scored{paper: p, score: blended})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })
	if len(results) > limit {
		results = results[:limit]
	}

	papers := make([]types.AcademicPaper, len(results))
	for i, r := range results {
		papers[i] = r.paper
	}
	return papers, nil
}

// KeywordSearch runs a pure lexical FTS query, excluding already-seen
// canonical ids. Used by the orchestrator's fallback stages.
func (s *Store) KeywordSearch(ctx context.Context, query string, limit int, excludeIDs []string) ([]types.AcademicPaper, error) {
	if limit <= 0 || limit > s.maxResults {
		limit = s.maxResults
	}
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}

	excluded := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}

	cands, err := s.lexicalCandidates(ctx, match, limit+len(excludeIDs), types.SearchOptions{})
	if err != nil {
		return nil, err
	}

	papers := make([]types.AcademicPaper, 0, limit)
	for _, c := range cands {
		if excluded[c.id] {
			continue
		}
		p := c.paper
		p.Relevance = c.rank
		papers = append(papers, p)
		if len(papers) == limit {
			break
		}
	}
	return papers, nil
}

type candidate struct {
	id    string
	rank  float64
	paper types.AcademicPaper
}

// lexicalCandidates runs the FTS MATCH and normalizes bm25 ranks into (0,1].
func (s *Store) lexicalCandidates(ctx context.Context, match string, limit int, opts types.SearchOptions) ([]candidate, error) {
	q := `SELECT p.id, p.title, p.abstract, p.authors, p.year, p.venue, p.doi, p.url,
			p.pdf_url, p.citation_count, p.source, p.region, bm25(papers_fts) AS rank
		 FROM papers_fts JOIN papers p ON p.rowid = papers_fts.rowid
		 WHERE papers_fts MATCH ?`
	args := []any{match}
	if opts.FromYear > 0 {
		q += ` AND p.year >= ?`
		args = append(args, opts.FromYear)
	}
	if opts.ToYear > 0 {
		q += ` AND p.year <= ?`
		args = append(args, opts.ToYear)
	}
	q += ` ORDER BY rank LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	defer rows.Close()

	var cands []candidate
	for rows.Next() {
		var (
			p           types.AcademicPaper
			id          string
			rank        float64
			authorsJSON sql.NullString
			abstract    sql.NullString
			venue       sql.NullString
			doi         sql.NullString
			url         sql.NullString
			pdfURL      sql.NullString
			source      sql.NullString
			region      sql.NullString
			year        sql.NullInt64
			citations   sql.NullInt64
		)
		if err := rows.Scan(&id, &p.Title, &abstract, &authorsJSON, &year, &venue,
			&doi, &url, &pdfURL, &citations, &source, &region, &rank); err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}
		p.Abstract = abstract.String
		p.Venue = venue.String
		p.DOI = doi.String
		p.URL = url.String
		p.PDFURL = pdfURL.String
		p.Source = source.String
		p.Region = region.String
		p.Year = int(year.Int64)
		p.CitationCount = int(citations.Int64)
		if authorsJSON.Valid && authorsJSON.String != "" {
			if err := json.Unmarshal([]byte(authorsJSON.String), &p.Authors); err != nil {
				return nil, fmt.Errorf("decoding authors for %s: %w", id, err)
			}
		}
		// bm25 returns lower-is-better negative scores; map to (0,1].
		cands = append(cands, candidate{id: id, rank: 1.0 / (1.0 - rank), paper: p})
	}
	return cands, rows.Err()
}

func (s *Store) cosineToStored(ctx context.Context, id string, queryVec []float64) (float64, error) {
	var vectorJSON string
	err := s.db.QueryRowContext(ctx, `SELECT vector FROM embeddings WHERE paper_id = ?`, id).Scan(&vectorJSON)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("loading embedding for %s: %w", id, err)
	}
	var vec []float64
	if err := json.Unmarshal([]byte(vectorJSON), &vec); err != nil {
		return 0, fmt.Errorf("decoding embedding for %s: %w", id, err)
	}
	return cosine(queryVec, vec), nil
}

// ftsQuery builds a safe FTS5 MATCH expression from free text: each token is
// double-quoted and tokens are OR-joined so partial matches still rank.
func ftsQuery(query string) string {
	tokens := textutil.Tokenize(query)
	if len(tokens) == 0 {
		return ""
	}
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, ``) + `"`
	}
	return strings.Join(quoted, " OR ")
}

// embed maps text to a fixed-dimension term-frequency vector via feature
// hashing. Deterministic across processes, which keeps stored vectors and
// query vectors comparable without an external model.
func embed(text string) []float64 {
	vec := make([]float64, embedDim)
	tokens := textutil.Tokenize(text)
	if len(tokens) == 0 {
		return vec
	}
	for _, t := range tokens {
		h := fnv.New32a()
		h.Write([]byte(t))
		vec[h.Sum32()%embedDim]++
	}
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

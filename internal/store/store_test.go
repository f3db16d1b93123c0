// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-orchestrator/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	tmpDir := t.TempDir()
	s, err := New(types.StoreConfig{
		Path:       filepath.Join(tmpDir, "papers.db"),
		MaxResults: 20,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func samplePaper(doi, title string) types.AcademicPaper {
	return types.AcademicPaper{
		Title:         title,
		Abstract:      "We study transformer attention mechanisms for neural machine translation.",
		Authors:       []types.Author{{Name: "Jane Smith"}, {Name: "Arjun Rao"}},
		Year:          2021,
		Venue:         "NeurIPS",
		DOI:           doi,
		URL:           "https://example.org/" + doi,
		CitationCount: 42,
		Source:        "openalex",
	}
}

func mustIngest(t *testing.T, s *Store, p types.AcademicPaper) types.IngestResult {
	t.Helper()
	res, err := s.IngestPaper(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

// --- schema tests ---

func TestNewCreatesSchema(t *testing.T) {
	s := testStore(t)

	tables := []string{"papers", "papers_fts", "embeddings"}
	for _, table := range tables {
		var count int
		err := s.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type IN ('table','view') AND name = ?`, table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("checking table %s: %v", table, err)
		}
		if count == 0 {
			t.Errorf("table %s does not exist", table)
		}
	}
}

func TestNewCreatesDBFile(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "index", "papers.db")

	s, err := New(types.StoreConfig{Path: dbPath})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file not created at %s", dbPath)
	}
}

// --- ingest tests ---

func TestIngestPaperNew(t *testing.T) {
	s := testStore(t)

	res := mustIngest(t, s, samplePaper("10.1000/abc123", "Attention Is All You Need"))
	if !res.IsNewPaper {
		t.Error("first ingest should report IsNewPaper = true")
	}
	if res.PaperID != "doi:10.1000/abc123" {
		t.Errorf("PaperID = %q, want %q", res.PaperID, "doi:10.1000/abc123")
	}

	n, err := s.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestIngestPaperIdempotent(t *testing.T) {
	s := testStore(t)
	p := samplePaper("10.1000/abc123", "Attention Is All You Need")

	mustIngest(t, s, p)

	// Same work from a different provider with fresher citation data.
	p.Source = "crossref"
	p.CitationCount = 99
	res := mustIngest(t, s, p)
	if res.IsNewPaper {
		t.Error("re-ingest should report IsNewPaper = false")
	}

	n, _ := s.Count(context.Background())
	if n != 1 {
		t.Errorf("Count = %d, want 1 after re-ingest", n)
	}

	var citations int
	if err := s.db.QueryRow(`SELECT citation_count FROM papers WHERE id = ?`, res.PaperID).Scan(&citations); err != nil {
		t.Fatal(err)
	}
	if citations != 99 {
		t.Errorf("citation_count = %d, want 99 (update in place)", citations)
	}
}

func TestIngestPaperTitleIdentity(t *testing.T) {
	s := testStore(t)

	// No DOI: identity falls back to normalized title, first author, year.
	p := samplePaper("", "Efficient Transformers: A Survey")
	r1 := mustIngest(t, s, p)
	if !strings.HasPrefix(r1.PaperID, "work:") {
		t.Errorf("PaperID = %q, want work: prefix", r1.PaperID)
	}

	// Case and punctuation variants collapse to the same record.
	p.Title = "EFFICIENT transformers -- a survey"
	r2 := mustIngest(t, s, p)
	if r2.IsNewPaper {
		t.Error("title variant should not create a second record")
	}
	if r1.PaperID != r2.PaperID {
		t.Errorf("ids differ: %q vs %q", r1.PaperID, r2.PaperID)
	}
}

func TestIngestPaperRejectsUntitled(t *testing.T) {
	s := testStore(t)

	_, err := s.IngestPaper(context.Background(), types.AcademicPaper{DOI: "10.1/x"})
	if err == nil {
		t.Fatal("expected error for untitled paper")
	}
}

func TestIngestPaperWritesEmbedding(t *testing.T) {
	s := testStore(t)
	res := mustIngest(t, s, samplePaper("10.1/emb", "Vector Databases in Practice"))

	var vectorJSON string
	if err := s.db.QueryRow(`SELECT vector FROM embeddings WHERE paper_id = ?`, res.PaperID).Scan(&vectorJSON); err != nil {
		t.Fatal(err)
	}
	if vectorJSON == "" {
		t.Error("embedding vector not stored")
	}
}

// --- hybrid search tests ---

func TestHybridSearch(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	mustIngest(t, s, types.AcademicPaper{
		Title:    "Neural Machine Translation with Attention",
		Abstract: "Attention mechanisms improve translation quality.",
		Year:     2020, DOI: "10.1/nmt",
	})
	mustIngest(t, s, types.AcademicPaper{
		Title:    "Graph Databases for Knowledge Representation",
		Abstract: "We survey graph storage engines.",
		Year:     2019, DOI: "10.1/graph",
	})

	results, err := s.HybridSearch(ctx, "attention translation", types.SearchOptions{MaxResults: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected results for matching query")
	}
	if results[0].Title != "Neural Machine Translation with Attention" {
		t.Errorf("top result = %q, want the attention paper", results[0].Title)
	}
	if results[0].Relevance <= 0 {
		t.Errorf("Relevance = %f, want > 0", results[0].Relevance)
	}
}

func TestHybridSearchEmptyIndex(t *testing.T) {
	s := testStore(t)

	results, err := s.HybridSearch(context.Background(), "anything at all", types.SearchOptions{})
	if err != nil {
		t.Fatalf("empty index should not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results from empty index", len(results))
	}
}

func TestHybridSearchYearFilter(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for year := 2018; year <= 2022; year++ {
		mustIngest(t, s, types.AcademicPaper{
			Title: fmt.Sprintf("Federated Learning Advances %d", year),
			Year:  year,
			DOI:   fmt.Sprintf("10.1/fl%d", year),
		})
	}

	results, err := s.HybridSearch(ctx, "federated learning", types.SearchOptions{
		MaxResults: 10, FromYear: 2020, ToYear: 2021,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.Year < 2020 || r.Year > 2021 {
			t.Errorf("year %d outside [2020,2021]", r.Year)
		}
	}
}

func TestHybridSearchRespectsLimit(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		mustIngest(t, s, types.AcademicPaper{
			Title: fmt.Sprintf("Reinforcement Learning Study %d", i),
			Year:  2020,
			DOI:   fmt.Sprintf("10.1/rl%d", i),
		})
	}

	results, err := s.HybridSearch(ctx, "reinforcement learning", types.SearchOptions{MaxResults: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) > 3 {
		t.Errorf("got %d results, want <= 3", len(results))
	}
}

// --- keyword search tests ---

func TestKeywordSearch(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	mustIngest(t, s, types.AcademicPaper{
		Title: "Quantum Error Correction Codes", Year: 2021, DOI: "10.1/qec",
	})
	mustIngest(t, s, types.AcademicPaper{
		Title: "Classical Compression Algorithms", Year: 2021, DOI: "10.1/cc",
	})

	results, err := s.KeywordSearch(ctx, "quantum correction", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].DOI != "10.1/qec" {
		t.Errorf("DOI = %q, want 10.1/qec", results[0].DOI)
	}
}

func TestKeywordSearchExcludesIDs(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	r1 := mustIngest(t, s, types.AcademicPaper{
		Title: "Distributed Consensus Protocols", Year: 2020, DOI: "10.1/raft",
	})
	mustIngest(t, s, types.AcademicPaper{
		Title: "Distributed Hash Tables", Year: 2020, DOI: "10.1/dht",
	})

	results, err := s.KeywordSearch(ctx, "distributed", 10, []string{r1.PaperID})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 after exclusion", len(results))
	}
	if results[0].DOI == "10.1/raft" {
		t.Error("excluded paper returned")
	}
}

func TestKeywordSearchEmptyQuery(t *testing.T) {
	s := testStore(t)

	results, err := s.KeywordSearch(context.Background(), "   ", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if results != nil {
		t.Errorf("got %v, want nil for stopword-only query", results)
	}
}

// --- export tests ---

func TestExportYAML(t *testing.T) {
	s := testStore(t)
	mustIngest(t, s, samplePaper("10.1/exp1", "First Export Paper"))
	mustIngest(t, s, samplePaper("10.1/exp2", "Second Export Paper"))

	var buf strings.Builder
	if err := s.ExportYAML(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}

	var papers []types.Paper
	if err := yaml.Unmarshal([]byte(buf.String()), &papers); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if len(papers) != 2 {
		t.Fatalf("got %d papers, want 2", len(papers))
	}
	if papers[0].ID == "" || papers[0].Title == "" {
		t.Error("exported paper missing id or title")
	}
	if len(papers[0].Authors) != 2 {
		t.Errorf("authors = %v, want 2 entries", papers[0].Authors)
	}
}

// --- embedding tests ---

func TestEmbedDeterministic(t *testing.T) {
	a := embed("transformer attention mechanisms")
	b := embed("transformer attention mechanisms")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at %d: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestEmbedNormalized(t *testing.T) {
	v := embed("graph neural networks for molecules")
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	if math.Abs(math.Sqrt(norm)-1.0) > 1e-9 {
		t.Errorf("norm = %f, want 1", math.Sqrt(norm))
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 0}, []float64{1, 0}, 1.0},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0.0},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0.0},
		{"length mismatch", []float64{1}, []float64{1, 0}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosine = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestFTSQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"two terms", "quantum computing", `"quantum" OR "computing"`},
		{"stopwords only", "the and of", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ftsQuery(tt.query); got != tt.want {
				t.Errorf("ftsQuery(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pdiddy/paper-orchestrator/pkg/types"
)

const sampleSemanticJSON = `{
  "total": 2,
  "offset": 0,
  "data": [
    {
      "paperId": "abc123",
      "title": "Attention Is All You Need",
      "abstract": "We propose a new architecture.",
      "year": 2017,
      "venue": "NeurIPS",
      "url": "https://www.semanticscholar.org/paper/abc123",
      "citationCount": 91000,
      "authors": [
        {"authorId": "1", "name": "Ashish Vaswani"},
        {"authorId": "2", "name": "Noam Shazeer"}
      ],
      "externalIds": {"ArXiv": "1706.03762", "DOI": "10.5555/3295222.3295349"},
      "openAccessPdf": {"url": "https://arxiv.org/pdf/1706.03762"}
    },
    {
      "paperId": "def456",
      "title": "GPT-4 Technical Report",
      "abstract": "We report the development of GPT-4.",
      "year": 2023,
      "venue": "",
      "citationCount": 12000,
      "authors": [{"authorId": "3", "name": "OpenAI"}],
      "externalIds": {"DOI": "10.48550/ARXIV.2303.08774"}
    }
  ]
}`

func TestSemanticScholarSearch(t *testing.T) {
	var gotKey string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, sampleSemanticJSON)
	}))
	defer ts.Close()

	old := semanticAPIBase
	semanticAPIBase = ts.URL
	defer func() { semanticAPIBase = old }()

	a := NewSemanticScholar(ts.Client(), testHTTPConfig(), "secret")
	papers, err := a.Search(context.Background(), "attention", types.SearchOptions{})
	if err != nil {
		t.Fatalf("SemanticScholar.Search: %v", err)
	}
	if gotKey != "secret" {
		t.Errorf("x-api-key = %q, want %q", gotKey, "secret")
	}
	if len(papers) != 2 {
		t.Fatalf("len(papers) = %d, want 2", len(papers))
	}

	p := papers[0]
	if p.DOI != "10.5555/3295222.3295349" {
		t.Errorf("DOI = %q", p.DOI)
	}
	if p.CitationCount != 91000 {
		t.Errorf("CitationCount = %d", p.CitationCount)
	}
	if p.PDFURL != "https://arxiv.org/pdf/1706.03762" {
		t.Errorf("PDFURL = %q", p.PDFURL)
	}
	if p.Source != "semantic_scholar" {
		t.Errorf("Source = %q", p.Source)
	}

	// DOIs are normalized to lower case for identity stability.
	if papers[1].DOI != "10.48550/arxiv.2303.08774" {
		t.Errorf("DOI = %q, want lowercased", papers[1].DOI)
	}
}

func TestBuildYearRange(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     string
	}{
		{"both", 2020, 2023, "2020-2023"},
		{"from only", 2020, 0, "2020-"},
		{"to only", 0, 2023, "-2023"},
		{"neither", 0, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildYearRange(tt.from, tt.to); got != tt.want {
				t.Errorf("buildYearRange = %q, want %q", got, tt.want)
			}
		})
	}
}

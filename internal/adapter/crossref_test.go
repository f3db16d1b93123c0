package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pdiddy/paper-orchestrator/pkg/types"
)

const sampleCrossrefJSON = `{
  "status": "ok",
  "message": {
    "total-results": 2,
    "items": [
      {
        "DOI": "10.1038/NATURE14539",
        "title": ["Deep learning"],
        "container-title": ["Nature"],
        "abstract": "<jats:p>Deep learning allows computational models.</jats:p>",
        "URL": "https://doi.org/10.1038/nature14539",
        "is-referenced-by-count": 60000,
        "author": [
          {"given": "Yann", "family": "LeCun", "affiliation": [{"name": "NYU"}]},
          {"given": "Yoshua", "family": "Bengio", "affiliation": []}
        ],
        "issued": {"date-parts": [[2015, 5, 28]]},
        "link": [
          {"URL": "https://example.org/fulltext.pdf", "content-type": "application/pdf"}
        ]
      },
      {
        "DOI": "10.9999/untitled",
        "title": [],
        "author": [],
        "issued": {"date-parts": []}
      }
    ]
  }
}`

func TestCrossrefSearch(t *testing.T) {
	var gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, sampleCrossrefJSON)
	}))
	defer ts.Close()

	old := crossrefAPIBase
	crossrefAPIBase = ts.URL
	defer func() { crossrefAPIBase = old }()

	a := NewCrossref(ts.Client(), testHTTPConfig(), "dev@example.org")
	papers, err := a.Search(context.Background(), "deep learning", types.SearchOptions{})
	if err != nil {
		t.Fatalf("Crossref.Search: %v", err)
	}

	// Untitled records are skipped.
	if len(papers) != 1 {
		t.Fatalf("len(papers) = %d, want 1", len(papers))
	}

	p := papers[0]
	if p.DOI != "10.1038/nature14539" {
		t.Errorf("DOI = %q, want lowercased DOI", p.DOI)
	}
	if p.Abstract != "Deep learning allows computational models." {
		t.Errorf("Abstract = %q, JATS tags not stripped", p.Abstract)
	}
	if p.Year != 2015 {
		t.Errorf("Year = %d, want 2015", p.Year)
	}
	if p.Venue != "Nature" {
		t.Errorf("Venue = %q, want Nature", p.Venue)
	}
	if p.CitationCount != 60000 {
		t.Errorf("CitationCount = %d, want 60000", p.CitationCount)
	}
	if p.PDFURL != "https://example.org/fulltext.pdf" {
		t.Errorf("PDFURL = %q", p.PDFURL)
	}
	if len(p.Authors) != 2 || p.Authors[0].Name != "Yann LeCun" || p.Authors[0].Affiliation != "NYU" {
		t.Errorf("Authors = %+v", p.Authors)
	}
	if gotUA == "" || gotUA == "test/0.1" {
		t.Errorf("User-Agent = %q, want mailto appended for polite pool", gotUA)
	}
}

func TestCrossrefYearFilter(t *testing.T) {
	var gotFilter string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFilter = r.URL.Query().Get("filter")
		fmt.Fprint(w, `{"status":"ok","message":{"items":[]}}`)
	}))
	defer ts.Close()

	old := crossrefAPIBase
	crossrefAPIBase = ts.URL
	defer func() { crossrefAPIBase = old }()

	a := NewCrossref(ts.Client(), testHTTPConfig(), "")
	if _, err := a.Search(context.Background(), "q", types.SearchOptions{FromYear: 2018}); err != nil {
		t.Fatalf("Crossref.Search: %v", err)
	}
	if gotFilter != "from-pub-date:2018-01-01" {
		t.Errorf("filter = %q", gotFilter)
	}
}

func TestStripJATS(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{"<jats:p>Hello  world</jats:p>", "Hello world"},
		{"<jats:title>Abstract</jats:title><jats:p>Body.</jats:p>", "Abstract Body."},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := stripJATS(tt.input); got != tt.want {
				t.Errorf("stripJATS(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

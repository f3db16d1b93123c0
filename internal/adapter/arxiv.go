// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-orchestrator/internal/httputil"
	"github.com/pdiddy/paper-orchestrator/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// arXiv asks for no more than one request every three seconds.
const arxivRPS = 0.33

// Arxiv queries the arXiv Atom API. Low reliability tier: the endpoint is
// best-effort, throttled hard, and has no citation data.
type Arxiv struct {
	Client *http.Client

	cfg     types.HTTPConfig
	limiter *rate.Limiter
}

// NewArxiv returns an arXiv adapter with its private rate limiter.
func NewArxiv(client *http.Client, cfg types.HTTPConfig) *Arxiv {
	return &Arxiv{
		Client:  client,
		cfg:     cfg,
		limiter: newLimiter(arxivRPS),
	}
}

func (a *Arxiv) ID() string         { return "arxiv" }
func (a *Arxiv) Reliability() Tier  { return TierLow }
func (a *Arxiv) RateLimit() float64 { return arxivRPS }

// Search queries the arXiv API and returns raw paper records. arXiv has no
// server-side year filter, so the year range is applied client-side.
func (a *Arxiv) Search(ctx context.Context, query string, opts types.SearchOptions) ([]types.AcademicPaper, error) {
	q := buildArxivQuery(query)
	if q == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("arXiv rate limit wait: %w", err)
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	reqURL := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d&sortBy=relevance&sortOrder=descending",
		arxivAPIBase, q, maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	total := len(feed.Entries)
	var papers []types.AcademicPaper
	for i, entry := range feed.Entries {
		arxivID := extractArxivID(entry.ID)
		if arxivID == "" {
			continue
		}

		p := types.AcademicPaper{
			Title:     strings.TrimSpace(entry.Title),
			Abstract:  strings.TrimSpace(entry.Summary),
			Venue:     "arXiv",
			URL:       "https://arxiv.org/abs/" + arxivID,
			PDFURL:    "https://arxiv.org/pdf/" + arxivID,
			Source:    a.ID(),
			Relevance: positionScore(i, total),
		}

		for _, au := range entry.Authors {
			name := strings.TrimSpace(au.Name)
			if name != "" {
				p.Authors = append(p.Authors, types.Author{Name: name})
			}
		}

		if t, parseErr := time.Parse(time.RFC3339, entry.Published); parseErr == nil {
			p.Year = t.Year()
		}

		if opts.FromYear > 0 && p.Year > 0 && p.Year < opts.FromYear {
			continue
		}
		if opts.ToYear > 0 && p.Year > 0 && p.Year > opts.ToYear {
			continue
		}

		papers = append(papers, p)
	}
	return papers, nil
}

// buildArxivQuery constructs the search_query parameter from free text.
func buildArxivQuery(query string) string {
	terms := strings.Fields(strings.TrimSpace(query))
	if len(terms) == 0 {
		return ""
	}
	return "all:" + strings.Join(terms, "+")
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}

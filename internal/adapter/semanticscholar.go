// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-orchestrator/internal/httputil"
	"github.com/pdiddy/paper-orchestrator/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,abstract,authors,externalIds,year,venue,citationCount,openAccessPdf,url"

// Unauthenticated clients share a pool of roughly one request per second.
const semanticRPS = 1.0

// SemanticScholar queries the Semantic Scholar Graph API. Medium
// reliability: rich metadata but aggressive throttling without an API key.
type SemanticScholar struct {
	Client *http.Client
	APIKey string

	cfg     types.HTTPConfig
	limiter *rate.Limiter
}

// NewSemanticScholar returns a Semantic Scholar adapter with its private
// rate limiter.
func NewSemanticScholar(client *http.Client, cfg types.HTTPConfig, apiKey string) *SemanticScholar {
	return &SemanticScholar{
		Client:  client,
		APIKey:  apiKey,
		cfg:     cfg,
		limiter: newLimiter(semanticRPS),
	}
}

func (a *SemanticScholar) ID() string         { return "semantic_scholar" }
func (a *SemanticScholar) Reliability() Tier  { return TierMedium }
func (a *SemanticScholar) RateLimit() float64 { return semanticRPS }

// Search queries the Semantic Scholar API and returns raw paper records.
func (a *SemanticScholar) Search(ctx context.Context, query string, opts types.SearchOptions) ([]types.AcademicPaper, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty Semantic Scholar query")
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("Semantic Scholar rate limit wait: %w", err)
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	params := url.Values{
		"query":  {query},
		"limit":  {fmt.Sprintf("%d", maxResults)},
		"fields": {semanticFields},
	}

	if yearRange := buildYearRange(opts.FromYear, opts.ToYear); yearRange != "" {
		params.Set("year", yearRange)
	}

	reqURL := semanticAPIBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.cfg.UserAgent)
	if a.APIKey != "" {
		req.Header.Set("x-api-key", a.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	total := len(sr.Data)
	var papers []types.AcademicPaper
	for i, paper := range sr.Data {
		p := types.AcademicPaper{
			Title:         paper.Title,
			Abstract:      paper.Abstract,
			Year:          paper.Year,
			Venue:         paper.Venue,
			DOI:           strings.ToLower(strings.TrimSpace(paper.ExternalIDs.DOI)),
			URL:           paper.URL,
			PDFURL:        paper.OpenAccessPdf.URL,
			CitationCount: paper.CitationCount,
			Source:        a.ID(),
			Relevance:     positionScore(i, total),
		}

		for _, au := range paper.Authors {
			if au.Name != "" {
				p.Authors = append(p.Authors, types.Author{Name: au.Name})
			}
		}

		papers = append(papers, p)
	}
	return papers, nil
}

// buildYearRange returns a Semantic Scholar year filter string
// (e.g. "2020-2023", "2020-", "-2023").
func buildYearRange(from, to int) string {
	switch {
	case from > 0 && to > 0:
		return fmt.Sprintf("%d-%d", from, to)
	case from > 0:
		return fmt.Sprintf("%d-", from)
	case to > 0:
		return fmt.Sprintf("-%d", to)
	default:
		return ""
	}
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID       string              `json:"paperId"`
	Title         string              `json:"title"`
	Abstract      string              `json:"abstract"`
	Year          int                 `json:"year"`
	Venue         string              `json:"venue"`
	URL           string              `json:"url"`
	CitationCount int                 `json:"citationCount"`
	Authors       []semanticAuthor    `json:"authors"`
	ExternalIDs   semanticExternalIDs `json:"externalIds"`
	OpenAccessPdf semanticOpenAccess  `json:"openAccessPdf"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI      string `json:"DOI"`
	ArXiv    string `json:"ArXiv"`
	CorpusID int    `json:"CorpusId"`
}

type semanticOpenAccess struct {
	URL string `json:"url"`
}

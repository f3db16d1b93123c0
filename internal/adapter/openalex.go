// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-orchestrator/internal/httputil"
	"github.com/pdiddy/paper-orchestrator/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

const openAlexRPS = 10.0

// OpenAlex queries the OpenAlex API. High reliability tier: the API is
// stable, generous with rate limits, and DOI-centric.
type OpenAlex struct {
	Client *http.Client
	// Email is sent as the mailto parameter for polite pool access.
	Email string

	cfg     types.HTTPConfig
	limiter *rate.Limiter
}

// NewOpenAlex returns an OpenAlex adapter with its private rate limiter.
func NewOpenAlex(client *http.Client, cfg types.HTTPConfig, email string) *OpenAlex {
	return &OpenAlex{
		Client:  client,
		Email:   email,
		cfg:     cfg,
		limiter: newLimiter(openAlexRPS),
	}
}

func (a *OpenAlex) ID() string        { return "openalex" }
func (a *OpenAlex) Reliability() Tier { return TierHigh }
func (a *OpenAlex) RateLimit() float64 {
	return openAlexRPS
}

// Search queries the OpenAlex API and returns raw paper records.
func (a *OpenAlex) Search(ctx context.Context, query string, opts types.SearchOptions) ([]types.AcademicPaper, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty OpenAlex query")
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("OpenAlex rate limit wait: %w", err)
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}
	if maxResults > 200 {
		maxResults = 200
	}

	params := url.Values{
		"search":   {query},
		"per_page": {fmt.Sprintf("%d", maxResults)},
		"page":     {"1"},
	}

	var filters []string
	if opts.FromYear > 0 {
		filters = append(filters, fmt.Sprintf("from_publication_date:%d-01-01", opts.FromYear))
	}
	if opts.ToYear > 0 {
		filters = append(filters, fmt.Sprintf("to_publication_date:%d-12-31", opts.ToYear))
	}
	if len(filters) > 0 {
		params.Set("filter", strings.Join(filters, ","))
	}

	if a.Email != "" {
		params.Set("mailto", a.Email)
	}

	reqURL := openAlexSearchBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	total := len(oar.Results)
	var papers []types.AcademicPaper
	for i, work := range oar.Results {
		p := types.AcademicPaper{
			Title:         work.Title,
			Abstract:      reconstructAbstract(work.AbstractInvertedIndex),
			Year:          work.PublicationYear,
			Venue:         work.PrimaryLocation.Source.DisplayName,
			URL:           work.ID,
			CitationCount: work.CitedByCount,
			Source:        a.ID(),
			Relevance:     positionScore(i, total),
		}

		for _, authorship := range work.Authorships {
			if authorship.Author.DisplayName == "" {
				continue
			}
			author := types.Author{Name: authorship.Author.DisplayName}
			if len(authorship.Institutions) > 0 {
				author.Affiliation = authorship.Institutions[0].DisplayName
				if p.Region == "" {
					p.Region = authorship.Institutions[0].CountryCode
				}
			}
			p.Authors = append(p.Authors, author)
		}

		// OpenAlex reports DOIs as full URLs; strip to the bare DOI.
		if work.DOI != "" {
			p.DOI = strings.ToLower(strings.TrimPrefix(work.DOI, "https://doi.org/"))
		}
		if work.OpenAccess.OAURL != "" {
			p.PDFURL = work.OpenAccess.OAURL
		}

		papers = append(papers, p)
	}
	return papers, nil
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to a list of positions
// where that word appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
	Page    int `json:"page"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationYear       int                  `json:"publication_year"`
	CitedByCount          int                  `json:"cited_by_count"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	OpenAccess            openAlexOpenAccess   `json:"open_access"`
	PrimaryLocation       openAlexLocation     `json:"primary_location"`
}

type openAlexAuthorship struct {
	Author       openAlexAuthor        `json:"author"`
	Institutions []openAlexInstitution `json:"institutions"`
}

type openAlexAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type openAlexInstitution struct {
	DisplayName string `json:"display_name"`
	CountryCode string `json:"country_code"`
}

type openAlexOpenAccess struct {
	IsOA     bool   `json:"is_oa"`
	OAStatus string `json:"oa_status"`
	OAURL    string `json:"oa_url"`
}

type openAlexLocation struct {
	Source openAlexSource `json:"source"`
}

type openAlexSource struct {
	DisplayName string `json:"display_name"`
}

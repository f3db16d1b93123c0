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

// crossrefAPIBase is the Crossref works endpoint. Declared as a var so
// tests can substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org/works"

const crossrefRPS = 5.0

// Crossref queries the Crossref REST API. Medium reliability: broad DOI
// coverage but spotty abstracts and occasional slow responses.
type Crossref struct {
	Client *http.Client
	// Mailto joins the polite pool when set; Crossref asks for a contact
	// address in the User-Agent.
	Mailto string

	cfg     types.HTTPConfig
	limiter *rate.Limiter
}

// NewCrossref returns a Crossref adapter with its private rate limiter.
func NewCrossref(client *http.Client, cfg types.HTTPConfig, mailto string) *Crossref {
	return &Crossref{
		Client:  client,
		Mailto:  mailto,
		cfg:     cfg,
		limiter: newLimiter(crossrefRPS),
	}
}

func (a *Crossref) ID() string         { return "crossref" }
func (a *Crossref) Reliability() Tier  { return TierMedium }
func (a *Crossref) RateLimit() float64 { return crossrefRPS }

// Search queries the Crossref API and returns raw paper records.
func (a *Crossref) Search(ctx context.Context, query string, opts types.SearchOptions) ([]types.AcademicPaper, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty Crossref query")
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("Crossref rate limit wait: %w", err)
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}
	if maxResults > 100 {
		maxResults = 100
	}

	params := url.Values{
		"query": {query},
		"rows":  {fmt.Sprintf("%d", maxResults)},
	}

	var filters []string
	if opts.FromYear > 0 {
		filters = append(filters, fmt.Sprintf("from-pub-date:%d-01-01", opts.FromYear))
	}
	if opts.ToYear > 0 {
		filters = append(filters, fmt.Sprintf("until-pub-date:%d-12-31", opts.ToYear))
	}
	if len(filters) > 0 {
		params.Set("filter", strings.Join(filters, ","))
	}

	reqURL := crossrefAPIBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	userAgent := a.cfg.UserAgent
	if a.Mailto != "" {
		userAgent = fmt.Sprintf("%s (mailto:%s)", userAgent, a.Mailto)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Crossref API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Crossref API returned HTTP %d", resp.StatusCode)
	}

	var cr crossrefResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("parsing Crossref response: %w", err)
	}

	total := len(cr.Message.Items)
	var papers []types.AcademicPaper
	for i, item := range cr.Message.Items {
		if len(item.Title) == 0 || item.Title[0] == "" {
			continue
		}

		p := types.AcademicPaper{
			Title:         item.Title[0],
			Abstract:      stripJATS(item.Abstract),
			DOI:           strings.ToLower(strings.TrimSpace(item.DOI)),
			URL:           item.URL,
			CitationCount: item.IsReferencedByCount,
			Source:        a.ID(),
			Relevance:     positionScore(i, total),
		}

		if len(item.ContainerTitle) > 0 {
			p.Venue = item.ContainerTitle[0]
		}

		for _, au := range item.Author {
			name := strings.TrimSpace(strings.TrimSpace(au.Given) + " " + strings.TrimSpace(au.Family))
			if name == "" {
				continue
			}
			author := types.Author{Name: name}
			if len(au.Affiliation) > 0 {
				author.Affiliation = au.Affiliation[0].Name
			}
			p.Authors = append(p.Authors, author)
		}

		if len(item.Issued.DateParts) > 0 && len(item.Issued.DateParts[0]) > 0 {
			p.Year = item.Issued.DateParts[0][0]
		}

		for _, link := range item.Link {
			if link.ContentType == "application/pdf" {
				p.PDFURL = link.URL
				break
			}
		}

		papers = append(papers, p)
	}
	return papers, nil
}

// stripJATS removes the JATS XML tags Crossref embeds in abstracts.
func stripJATS(abstract string) string {
	if abstract == "" {
		return ""
	}
	var b strings.Builder
	inTag := false
	for _, r := range abstract {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Crossref API JSON structures.
type crossrefResponse struct {
	Status  string          `json:"status"`
	Message crossrefMessage `json:"message"`
}

type crossrefMessage struct {
	TotalResults int            `json:"total-results"`
	Items        []crossrefItem `json:"items"`
}

type crossrefItem struct {
	DOI                 string           `json:"DOI"`
	Title               []string         `json:"title"`
	ContainerTitle      []string         `json:"container-title"`
	Abstract            string           `json:"abstract"`
	URL                 string           `json:"URL"`
	IsReferencedByCount int              `json:"is-referenced-by-count"`
	Author              []crossrefAuthor `json:"author"`
	Issued              crossrefDate     `json:"issued"`
	Link                []crossrefLink   `json:"link"`
}

type crossrefAuthor struct {
	Given       string                `json:"given"`
	Family      string                `json:"family"`
	Affiliation []crossrefAffiliation `json:"affiliation"`
}

type crossrefAffiliation struct {
	Name string `json:"name"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

type crossrefLink struct {
	URL         string `json:"URL"`
	ContentType string `json:"content-type"`
}

package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"exasignal/internal/models"
)

// ArxivClient queries the arXiv Atom export API. Useful for technology and
// science markets where preprints move ahead of press coverage.
type ArxivClient struct {
	baseURL    string
	maxResults int
	httpClient *http.Client
}

func NewArxivClient(httpClient *http.Client, baseURL string, maxResults int) *ArxivClient {
	if baseURL == "" {
		baseURL = "https://export.arxiv.org/api/query"
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	return &ArxivClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxResults: maxResults,
		httpClient: httpClient,
	}
}

func (c *ArxivClient) Name() string    { return models.SourceArxiv }
func (c *ArxivClient) Metered() bool   { return false }
func (c *ArxivClient) Available() bool { return c != nil }

type arxivFeed struct {
	Entries []struct {
		Title     string `xml:"title"`
		Summary   string `xml:"summary"`
		Published string `xml:"published"`
		Links     []struct {
			Href string `xml:"href,attr"`
			Rel  string `xml:"rel,attr"`
		} `xml:"link"`
	} `xml:"entry"`
}

func (c *ArxivClient) Search(ctx context.Context, query string, limit int) ([]models.ResearchResult, error) {
	if limit <= 0 || limit > c.maxResults {
		limit = c.maxResults
	}
	params := url.Values{}
	params.Set("search_query", "all:"+query)
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")
	params.Set("max_results", strconv.Itoa(limit))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv http %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("arxiv returned invalid xml: %w", err)
	}
	results := make([]models.ResearchResult, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		r := models.ResearchResult{
			Title:   strings.TrimSpace(entry.Title),
			Snippet: strings.TrimSpace(entry.Summary),
			Source:  models.SourceArxiv,
		}
		for _, link := range entry.Links {
			if link.Rel == "" || link.Rel == "alternate" {
				r.URL = link.Href
				break
			}
		}
		if ts, err := time.Parse(time.RFC3339, entry.Published); err == nil {
			r.PublishedAt = ts
		}
		results = append(results, r)
	}
	return results, nil
}

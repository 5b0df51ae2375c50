package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"exasignal/internal/models"
)

// BraveClient queries the Brave web search API. The free tier allows one
// request per second, so calls go through a shared limiter.
type BraveClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewBraveClient(httpClient *http.Client, baseURL, apiKey string, rps float64) *BraveClient {
	if baseURL == "" {
		baseURL = "https://api.search.brave.com/res/v1/web/search"
	}
	if rps <= 0 {
		rps = 0.9
	}
	return &BraveClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (c *BraveClient) Name() string    { return "brave" }
func (c *BraveClient) Metered() bool   { return false }
func (c *BraveClient) Available() bool { return c != nil && c.apiKey != "" }

func (c *BraveClient) Search(ctx context.Context, query string, limit int) ([]models.ResearchResult, error) {
	if !c.Available() {
		return nil, fmt.Errorf("brave api key is empty (provider not configured)")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 20 {
		limit = 10
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(limit))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)
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
		return nil, fmt.Errorf("brave http %d: %s", resp.StatusCode, string(body))
	}

	var decoded struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
				PageAge     string `json:"page_age"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("brave returned invalid json: %w", err)
	}
	results := make([]models.ResearchResult, 0, len(decoded.Web.Results))
	for _, item := range decoded.Web.Results {
		r := models.ResearchResult{
			Title:   item.Title,
			Snippet: item.Description,
			URL:     item.URL,
			Source:  models.SourceBrave,
		}
		if ts, err := time.Parse(time.RFC3339, item.PageAge); err == nil {
			r.PublishedAt = ts
		}
		results = append(results, r)
	}
	return results, nil
}

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

	"exasignal/internal/models"
)

// NewsAPIClient queries the NewsAPI /v2/everything endpoint. It is a metered
// provider: the orchestrator checks the daily quota before every call.
type NewsAPIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewNewsAPIClient(httpClient *http.Client, baseURL, apiKey string) *NewsAPIClient {
	if baseURL == "" {
		baseURL = "https://newsapi.org/v2/everything"
	}
	return &NewsAPIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

func (c *NewsAPIClient) Name() string    { return models.SourceNewsAPI }
func (c *NewsAPIClient) Metered() bool   { return true }
func (c *NewsAPIClient) Available() bool { return c != nil && c.apiKey != "" }

func (c *NewsAPIClient) Search(ctx context.Context, query string, limit int) ([]models.ResearchResult, error) {
	if !c.Available() {
		return nil, fmt.Errorf("newsapi key is empty (provider not configured)")
	}
	if limit <= 0 || limit > 20 {
		limit = 10
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(limit))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
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
		return nil, fmt.Errorf("newsapi http %d: %s", resp.StatusCode, string(body))
	}

	var decoded struct {
		Status   string `json:"status"`
		Articles []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			URL         string `json:"url"`
			PublishedAt string `json:"publishedAt"`
		} `json:"articles"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("newsapi returned invalid json: %w", err)
	}
	if decoded.Status != "ok" {
		return nil, fmt.Errorf("newsapi status %q", decoded.Status)
	}
	results := make([]models.ResearchResult, 0, len(decoded.Articles))
	for _, item := range decoded.Articles {
		r := models.ResearchResult{
			Title:   item.Title,
			Snippet: item.Description,
			URL:     item.URL,
			Source:  models.SourceNewsAPI,
		}
		if ts, err := time.Parse(time.RFC3339, item.PublishedAt); err == nil {
			r.PublishedAt = ts
		}
		results = append(results, r)
	}
	return results, nil
}

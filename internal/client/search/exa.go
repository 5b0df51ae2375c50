package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"exasignal/internal/models"
)

// ExaClient queries the Exa neural search API. Exa calls cost money, so the
// orchestrator only escalates to it when free sources come up short.
type ExaClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewExaClient(httpClient *http.Client, baseURL, apiKey string) *ExaClient {
	if baseURL == "" {
		baseURL = "https://api.exa.ai/search"
	}
	return &ExaClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

func (c *ExaClient) Name() string    { return models.SourceExa }
func (c *ExaClient) Metered() bool   { return true }
func (c *ExaClient) Available() bool { return c != nil && c.apiKey != "" }

func (c *ExaClient) Search(ctx context.Context, query string, limit int) ([]models.ResearchResult, error) {
	if !c.Available() {
		return nil, fmt.Errorf("exa api key is empty (provider not configured)")
	}
	if limit <= 0 || limit > 10 {
		limit = 5
	}
	payload, err := json.Marshal(map[string]any{
		"query":      query,
		"numResults": limit,
		"type":       "auto",
		"contents":   map[string]any{"text": map[string]any{"maxCharacters": 500}},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
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
		return nil, fmt.Errorf("exa http %d: %s", resp.StatusCode, string(body))
	}

	var decoded struct {
		Results []struct {
			Title         string `json:"title"`
			URL           string `json:"url"`
			Text          string `json:"text"`
			PublishedDate string `json:"publishedDate"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("exa returned invalid json: %w", err)
	}
	results := make([]models.ResearchResult, 0, len(decoded.Results))
	for _, item := range decoded.Results {
		r := models.ResearchResult{
			Title:   item.Title,
			Snippet: item.Text,
			URL:     item.URL,
			Source:  models.SourceExa,
		}
		if ts, err := time.Parse(time.RFC3339, item.PublishedDate); err == nil {
			r.PublishedAt = ts
		}
		results = append(results, r)
	}
	return results, nil
}

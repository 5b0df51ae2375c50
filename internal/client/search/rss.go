package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"exasignal/internal/models"
)

// RSSClient pulls headlines from query-templated RSS feeds (Google News by
// default). Free and unmetered, so it runs on every research pass.
type RSSClient struct {
	feeds      []string
	httpClient *http.Client
}

func NewRSSClient(httpClient *http.Client, feeds []string) *RSSClient {
	if len(feeds) == 0 {
		feeds = []string{"https://news.google.com/rss/search?q=%s&hl=en-US&gl=US&ceid=US:en"}
	}
	return &RSSClient{feeds: feeds, httpClient: httpClient}
}

func (c *RSSClient) Name() string    { return models.SourceRSS }
func (c *RSSClient) Metered() bool   { return false }
func (c *RSSClient) Available() bool { return c != nil && len(c.feeds) > 0 }

type rssDoc struct {
	Channel struct {
		Items []struct {
			Title   string `xml:"title"`
			Link    string `xml:"link"`
			PubDate string `xml:"pubDate"`
			Desc    string `xml:"description"`
		} `xml:"item"`
	} `xml:"channel"`
}

func (c *RSSClient) Search(ctx context.Context, query string, limit int) ([]models.ResearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	var results []models.ResearchResult
	var lastErr error
	for _, feed := range c.feeds {
		feedURL := feed
		if strings.Contains(feed, "%s") {
			feedURL = fmt.Sprintf(feed, url.QueryEscape(query))
		}
		items, err := c.fetch(ctx, feedURL)
		if err != nil {
			lastErr = err
			continue
		}
		results = append(results, items...)
		if len(results) >= limit {
			break
		}
	}
	if len(results) == 0 && lastErr != nil {
		return nil, lastErr
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (c *RSSClient) fetch(ctx context.Context, feedURL string) ([]models.ResearchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
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
		return nil, fmt.Errorf("rss http %d", resp.StatusCode)
	}
	var doc rssDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("rss returned invalid xml: %w", err)
	}
	results := make([]models.ResearchResult, 0, len(doc.Channel.Items))
	for _, item := range doc.Channel.Items {
		r := models.ResearchResult{
			Title:   strings.TrimSpace(item.Title),
			Snippet: strings.TrimSpace(item.Desc),
			URL:     item.Link,
			Source:  models.SourceRSS,
		}
		if ts, err := time.Parse(time.RFC1123Z, item.PubDate); err == nil {
			r.PublishedAt = ts
		} else if ts, err := time.Parse(time.RFC1123, item.PubDate); err == nil {
			r.PublishedAt = ts
		}
		results = append(results, r)
	}
	return results, nil
}

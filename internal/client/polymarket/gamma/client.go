package polymarketgamma

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
)

type Client struct {
	host       string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gamma API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host string) *Client {
	if host == "" {
		host = "https://gamma-api.polymarket.com"
	}
	host = strings.TrimRight(host, "/")
	return &Client{host: host, httpClient: httpClient}
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
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
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// Market is the subset of Gamma market fields the pipeline reads. Gamma
// serializes numbers inconsistently, so prices and liquidity are parsed
// leniently.
type Market struct {
	ID           string
	Question     string
	Slug         string
	Category     string
	Active       bool
	Closed       bool
	YesPrice     float64
	NoPrice      float64
	LiquidityUSD float64
	VolumeUSD    float64
	ClobTokenIDs []string
	EndDate      *time.Time
}

func (c *Client) GetMarket(ctx context.Context, marketID string) (*Market, error) {
	if marketID == "" {
		return nil, fmt.Errorf("market_id is required")
	}
	body, err := c.doRequest(ctx, "/markets/"+url.PathEscape(marketID), nil)
	if err != nil {
		return nil, err
	}
	return parseMarket(body)
}

// GetLiquidity resolves a market's total liquidity in USD.
func (c *Client) GetLiquidity(ctx context.Context, marketID string) (float64, error) {
	m, err := c.GetMarket(ctx, marketID)
	if err != nil {
		return 0, err
	}
	return m.LiquidityUSD, nil
}

func parseMarket(body []byte) (*Market, error) {
	var raw struct {
		ID            string          `json:"id"`
		Question      string          `json:"question"`
		Slug          string          `json:"slug"`
		Category      string          `json:"category"`
		Active        bool            `json:"active"`
		Closed        bool            `json:"closed"`
		OutcomePrices json.RawMessage `json:"outcomePrices"`
		Liquidity     json.RawMessage `json:"liquidity"`
		LiquidityNum  json.RawMessage `json:"liquidityNum"`
		Volume        json.RawMessage `json:"volume"`
		ClobTokenIDs  json.RawMessage `json:"clobTokenIds"`
		EndDate       string          `json:"endDate"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("gamma returned invalid json: %w", err)
	}
	m := &Market{
		ID:       raw.ID,
		Question: raw.Question,
		Slug:     raw.Slug,
		Category: raw.Category,
		Active:   raw.Active,
		Closed:   raw.Closed,
	}
	prices := parseStringList(raw.OutcomePrices)
	if len(prices) >= 1 {
		m.YesPrice, _ = strconv.ParseFloat(prices[0], 64)
	}
	if len(prices) >= 2 {
		m.NoPrice, _ = strconv.ParseFloat(prices[1], 64)
	}
	m.LiquidityUSD = parseLooseFloat(raw.LiquidityNum)
	if m.LiquidityUSD == 0 {
		m.LiquidityUSD = parseLooseFloat(raw.Liquidity)
	}
	m.VolumeUSD = parseLooseFloat(raw.Volume)
	m.ClobTokenIDs = parseStringList(raw.ClobTokenIDs)
	if raw.EndDate != "" {
		if t, err := time.Parse(time.RFC3339, raw.EndDate); err == nil {
			m.EndDate = &t
		}
	}
	return m, nil
}

// parseStringList handles both a JSON array and Gamma's stringified array
// form ("[\"0.4\",\"0.6\"]").
func parseStringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		if err := json.Unmarshal([]byte(s), &list); err == nil {
			return list
		}
	}
	return nil
}

func parseLooseFloat(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		val, _ := strconv.ParseFloat(s, 64)
		return val
	}
	return 0
}

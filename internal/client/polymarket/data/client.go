package polymarketdata

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

	"github.com/shopspring/decimal"
)

// Client talks to the Polymarket data API, which serves the public trade
// tape the whale detector scans.
type Client struct {
	host       string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("data API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host string) *Client {
	if host == "" {
		host = "https://data-api.polymarket.com"
	}
	host = strings.TrimRight(host, "/")
	return &Client{host: host, httpClient: httpClient}
}

// Trade is one fill from the public trade tape.
type Trade struct {
	MarketID      string
	AssetID       string
	WalletAddress string
	Side          string // BUY or SELL
	Outcome       string // Yes or No
	Price         decimal.Decimal
	Size          decimal.Decimal
	Timestamp     time.Time
}

// SizeUSD is price times share count.
func (t *Trade) SizeUSD() decimal.Decimal {
	return t.Price.Mul(t.Size)
}

// Direction maps the fill to a market direction: buying Yes and selling No
// both express a YES view.
func (t *Trade) Direction() string {
	outcomeYes := strings.EqualFold(t.Outcome, "yes")
	buying := strings.EqualFold(t.Side, "buy")
	if outcomeYes == buying {
		return "YES"
	}
	return "NO"
}

// GetTrades returns recent trades for a market, newest first.
func (c *Client) GetTrades(ctx context.Context, marketID string, limit int) ([]Trade, error) {
	if marketID == "" {
		return nil, fmt.Errorf("market is required")
	}
	if limit <= 0 {
		limit = 100
	}
	query := url.Values{}
	query.Set("market", marketID)
	query.Set("limit", strconv.Itoa(limit))
	fullURL := c.host + "/trades?" + query.Encode()
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
	return parseTrades(body)
}

func parseTrades(body []byte) ([]Trade, error) {
	var items []struct {
		ConditionID     string          `json:"conditionId"`
		Asset           string          `json:"asset"`
		ProxyWallet     string          `json:"proxyWallet"`
		Side            string          `json:"side"`
		Outcome         string          `json:"outcome"`
		Price           json.RawMessage `json:"price"`
		Size            json.RawMessage `json:"size"`
		TimestampEpochs json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("data API returned invalid json: %w", err)
	}
	trades := make([]Trade, 0, len(items))
	for _, item := range items {
		t := Trade{
			MarketID:      item.ConditionID,
			AssetID:       item.Asset,
			WalletAddress: item.ProxyWallet,
			Side:          strings.ToUpper(item.Side),
			Outcome:       item.Outcome,
		}
		t.Price = parseLooseDecimal(item.Price)
		t.Size = parseLooseDecimal(item.Size)
		t.Timestamp = parseEpoch(item.TimestampEpochs)
		trades = append(trades, t)
	}
	return trades, nil
}

func parseLooseDecimal(raw json.RawMessage) decimal.Decimal {
	if len(raw) == 0 {
		return decimal.Zero
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		val, err := decimal.NewFromString(s)
		if err == nil {
			return val
		}
		return decimal.Zero
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return decimal.NewFromFloat(f)
	}
	return decimal.Zero
}

func parseEpoch(raw json.RawMessage) time.Time {
	if len(raw) == 0 {
		return time.Time{}
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
		return time.Unix(n, 0).UTC()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
			return time.Unix(n, 0).UTC()
		}
	}
	return time.Time{}
}

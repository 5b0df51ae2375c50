// Package clob reads odds data from the Polymarket CLOB: historical prices
// over REST for seeding the momentum tracker, live trades over websocket.
package clob

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

const defaultHost = "https://clob.polymarket.com"

// PricePoint is one sample of a token's traded price (0-1).
type PricePoint struct {
	TS    time.Time
	Price float64
}

type Client struct {
	host       string
	httpClient *http.Client
}

func NewClient(httpClient *http.Client, host string) *Client {
	if host == "" {
		host = defaultHost
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		host:       strings.TrimRight(host, "/"),
		httpClient: httpClient,
	}
}

// GetPriceHistory fetches the price series for a token. Interval follows the
// API's shorthand ("1h", "1d", "1w"); start and end narrow the window when
// set. Points come back oldest first.
func (c *Client) GetPriceHistory(ctx context.Context, tokenID, interval string, startTs, endTs *int64) ([]PricePoint, error) {
	if tokenID == "" {
		return nil, fmt.Errorf("token_id is required")
	}
	query := url.Values{}
	query.Set("market", tokenID)
	if interval != "" {
		query.Set("interval", interval)
	}
	if startTs != nil {
		query.Set("startTs", strconv.FormatInt(*startTs, 10))
	}
	if endTs != nil {
		query.Set("endTs", strconv.FormatInt(*endTs, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/prices-history?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prices-history status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return parseHistory(body)
}

// parseHistory accepts the documented {"history":[...]} envelope and the
// older prices/data envelopes some mirrors still serve.
func parseHistory(body []byte) ([]PricePoint, error) {
	var envelope struct {
		History []historyPoint `json:"history"`
		Prices  []historyPoint `json:"prices"`
		Data    []historyPoint `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		for _, list := range [][]historyPoint{envelope.History, envelope.Prices, envelope.Data} {
			if len(list) > 0 {
				return toPricePoints(list), nil
			}
		}
	}
	var bare []historyPoint
	if err := json.Unmarshal(body, &bare); err == nil {
		return toPricePoints(bare), nil
	}
	return nil, fmt.Errorf("unrecognized price history payload")
}

type historyPoint struct {
	T flexTime  `json:"t"`
	P flexFloat `json:"p"`
}

func toPricePoints(items []historyPoint) []PricePoint {
	points := make([]PricePoint, 0, len(items))
	for _, it := range items {
		if it.T.IsZero() || it.P <= 0 {
			continue
		}
		points = append(points, PricePoint{TS: time.Time(it.T), Price: float64(it.P)})
	}
	return points
}

// flexTime unmarshals unix seconds, unix milliseconds or RFC3339.
type flexTime time.Time

func (ft *flexTime) IsZero() bool { return time.Time(*ft).IsZero() }

func (ft *flexTime) UnmarshalJSON(b []byte) error {
	var v int64
	if err := json.Unmarshal(b, &v); err == nil {
		if v <= 0 {
			*ft = flexTime(time.Time{})
		} else if v > 1_000_000_000_000 {
			*ft = flexTime(time.UnixMilli(v).UTC())
		} else {
			*ft = flexTime(time.Unix(v, 0).UTC())
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return err
		}
		*ft = flexTime(ts.UTC())
		return nil
	}
	return fmt.Errorf("invalid timestamp: %s", string(b))
}

// flexFloat unmarshals a JSON number or a numeric string.
type flexFloat float64

func (ff *flexFloat) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*ff = flexFloat(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*ff = flexFloat(f)
		return nil
	}
	return fmt.Errorf("invalid price: %s", string(b))
}

// Package smartmoney tracks top traders from the Polymarket leaderboard
// and scores wallets by rank, realized PnL and win rate.
package smartmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultLeaderboardURL = "https://data-api.polymarket.com/v1/leaderboard"
	defaultCacheTTL       = time.Hour
	defaultTopN           = 100
)

// Trader tiers by smart score.
const (
	TierShark   = "SHARK"
	TierWhale   = "WHALE"
	TierDolphin = "DOLPHIN"
	TierFish    = "FISH"
)

// SmartTrader is a leaderboard entry with derived scoring.
type SmartTrader struct {
	Address       string  `json:"address"`
	Rank          int     `json:"rank"`
	PnL           float64 `json:"pnl"`
	Volume        float64 `json:"volume"`
	WinRate       float64 `json:"win_rate"`
	MarketsTraded int     `json:"markets_traded"`
}

// SmartScore returns a 0..100 score from leaderboard rank, PnL and win rate.
func (t *SmartTrader) SmartScore() int {
	if t == nil {
		return 0
	}
	score := 0

	switch {
	case t.Rank <= 10:
		score += 40
	case t.Rank <= 25:
		score += 30
	case t.Rank <= 50:
		score += 20
	case t.Rank <= 100:
		score += 10
	}

	switch {
	case t.PnL >= 100_000:
		score += 30
	case t.PnL >= 50_000:
		score += 25
	case t.PnL >= 10_000:
		score += 20
	case t.PnL >= 1_000:
		score += 10
	case t.PnL > 0:
		score += 5
	}

	switch {
	case t.WinRate >= 70:
		score += 30
	case t.WinRate >= 60:
		score += 20
	case t.WinRate >= 50:
		score += 10
	}

	if score > 100 {
		score = 100
	}
	return score
}

// Tier buckets the smart score.
func (t *SmartTrader) Tier() string {
	s := t.SmartScore()
	switch {
	case s >= 80:
		return TierShark
	case s >= 60:
		return TierWhale
	case s >= 40:
		return TierDolphin
	default:
		return TierFish
	}
}

// Options configures the Service.
type Options struct {
	BaseURL  string
	TopN     int
	CacheTTL time.Duration
	Client   *http.Client
}

// Service keeps an in-memory copy of the leaderboard and refreshes it
// lazily when the cached copy goes stale.
type Service struct {
	baseURL  string
	topN     int
	cacheTTL time.Duration
	client   *http.Client
	logger   *zap.Logger

	mu          sync.RWMutex
	traders     map[string]*SmartTrader
	lastRefresh time.Time
}

func NewService(opts Options, logger *zap.Logger) *Service {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultLeaderboardURL
	}
	if opts.TopN <= 0 {
		opts.TopN = defaultTopN
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		baseURL:  opts.BaseURL,
		topN:     opts.TopN,
		cacheTTL: opts.CacheTTL,
		client:   opts.Client,
		logger:   logger,
		traders:  make(map[string]*SmartTrader),
	}
}

// Refresh fetches the leaderboard unless the cached copy is still fresh.
// On fetch failure the previous copy is kept. Returns the tracked count.
func (s *Service) Refresh(ctx context.Context, force bool) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("smartmoney: nil service")
	}
	s.mu.RLock()
	fresh := !force && !s.lastRefresh.IsZero() && time.Since(s.lastRefresh) < s.cacheTTL
	count := len(s.traders)
	s.mu.RUnlock()
	if fresh {
		return count, nil
	}

	traders, err := s.fetchLeaderboard(ctx)
	if err != nil {
		s.logger.Warn("leaderboard refresh failed, keeping cached copy", zap.Error(err))
		return count, err
	}

	s.mu.Lock()
	s.traders = traders
	s.lastRefresh = time.Now()
	count = len(s.traders)
	s.mu.Unlock()

	s.logger.Info("leaderboard refreshed", zap.Int("traders", count))
	return count, nil
}

func (s *Service) fetchLeaderboard(ctx context.Context) (map[string]*SmartTrader, error) {
	q := url.Values{}
	q.Set("timePeriod", "ALL")
	q.Set("orderBy", "PNL")
	q.Set("limit", fmt.Sprintf("%d", s.topN))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("leaderboard status %d", resp.StatusCode)
	}
	return parseLeaderboard(body)
}

type leaderboardEntry struct {
	Address       string   `json:"address"`
	PnL           *float64 `json:"pnl"`
	Volume        *float64 `json:"volume"`
	WinRate       *float64 `json:"winRate"`
	MarketsTraded *int     `json:"marketsTraded"`
}

func parseLeaderboard(body []byte) (map[string]*SmartTrader, error) {
	var entries []leaderboardEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		// Some deployments wrap the list in an envelope.
		var envelope struct {
			Traders []leaderboardEntry `json:"traders"`
		}
		if err2 := json.Unmarshal(body, &envelope); err2 != nil {
			return nil, fmt.Errorf("parse leaderboard: %w", err)
		}
		entries = envelope.Traders
	}

	out := make(map[string]*SmartTrader, len(entries))
	for i, e := range entries {
		addr := strings.ToLower(strings.TrimSpace(e.Address))
		if addr == "" {
			continue
		}
		t := &SmartTrader{
			Address: addr,
			Rank:    i + 1,
		}
		if e.PnL != nil {
			t.PnL = *e.PnL
		}
		if e.Volume != nil {
			t.Volume = *e.Volume
		}
		if e.WinRate != nil {
			// API reports a 0..1 fraction.
			t.WinRate = *e.WinRate * 100
		}
		if e.MarketsTraded != nil {
			t.MarketsTraded = *e.MarketsTraded
		}
		out[addr] = t
	}
	return out, nil
}

// IsSmartMoney reports whether the wallet is on the tracked leaderboard.
func (s *Service) IsSmartMoney(address string) bool {
	return s.Trader(address) != nil
}

// Score returns the smart score for the wallet, 0 when untracked.
func (s *Service) Score(address string) int {
	return s.Trader(address).SmartScore()
}

// Trader returns the leaderboard entry for the wallet, nil when untracked.
func (s *Service) Trader(address string) *SmartTrader {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.traders[strings.ToLower(address)]
}

// TopTraders returns the best-ranked traders, at most limit entries.
func (s *Service) TopTraders(limit int) []*SmartTrader {
	if s == nil || limit <= 0 {
		return nil
	}
	s.mu.RLock()
	all := make([]*SmartTrader, 0, len(s.traders))
	for _, t := range s.traders {
		all = append(all, t)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Rank < all[j].Rank })
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

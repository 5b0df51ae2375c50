package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"exasignal/internal/client/search"
	"exasignal/internal/models"
	"exasignal/internal/repository"
)

const (
	headlinesPerCategory = 10
	minNewsRelevance     = 0.1
	seenNewsLimit        = 2000
)

// NewsMonitor polls headline feeds for the watchlist's categories and
// matches fresh items to watched markets by keyword relevance. Each match
// becomes a news trigger for the signal pipeline.
type NewsMonitor struct {
	Feed   search.Provider
	Repo   repository.Repository
	MaxAge time.Duration
	Logger *zap.Logger

	mu       sync.Mutex
	seen     map[string]time.Time
	lastPoll time.Time
}

func NewNewsMonitor(feed search.Provider, repo repository.Repository, maxAge time.Duration, logger *zap.Logger) *NewsMonitor {
	if maxAge <= 0 {
		maxAge = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NewsMonitor{
		Feed:   feed,
		Repo:   repo,
		MaxAge: maxAge,
		Logger: logger,
		seen:   make(map[string]time.Time),
	}
}

// ScanOnce fetches headlines for every distinct watchlist category and
// returns the market-matched news items, strongest matches first.
func (m *NewsMonitor) ScanOnce(ctx context.Context) ([]models.NewsItem, error) {
	if m == nil || m.Feed == nil || m.Repo == nil {
		return nil, nil
	}
	markets, err := m.Repo.ListActiveMarkets(ctx)
	if err != nil {
		return nil, err
	}
	if len(markets) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	type match struct {
		item  models.NewsItem
		score float64
	}
	var matches []match

	for _, category := range distinctCategories(markets) {
		results, err := m.Feed.Search(ctx, category, headlinesPerCategory)
		if err != nil {
			m.Logger.Warn("headline fetch failed",
				zap.String("category", category), zap.Error(err))
			continue
		}
		for _, r := range results {
			if r.Title == "" || m.alreadySeen(r.URL+r.Title, now) {
				continue
			}
			if !r.PublishedAt.IsZero() && now.Sub(r.PublishedAt) > m.MaxAge {
				continue
			}
			keywords := extractKeywords(r.Title)
			for i := range markets {
				mk := &markets[i]
				if mk.Category != category {
					continue
				}
				score, matched := relevance(mk, keywords)
				if score < minNewsRelevance {
					continue
				}
				matches = append(matches, match{
					score: score,
					item: models.NewsItem{
						MarketID:    mk.ID,
						Title:       r.Title,
						URL:         r.URL,
						Source:      r.Source,
						PublishedAt: r.PublishedAt,
						MatchedTerm: matched[0],
					},
				})
			}
		}
	}

	m.mu.Lock()
	m.lastPoll = now
	m.mu.Unlock()

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	items := make([]models.NewsItem, 0, len(matches))
	for _, mt := range matches {
		items = append(items, mt.item)
	}
	m.Logger.Info("news scan complete", zap.Int("matches", len(items)))
	return items, nil
}

// LastPoll reports when the previous scan ran, zero before the first scan.
func (m *NewsMonitor) LastPoll() time.Time {
	if m == nil {
		return time.Time{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPoll
}

func (m *NewsMonitor) alreadySeen(key string, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[key]; ok {
		return true
	}
	m.seen[key] = now
	if len(m.seen) > seenNewsLimit {
		cutoff := now.Add(-24 * time.Hour)
		for k, at := range m.seen {
			if at.Before(cutoff) {
				delete(m.seen, k)
			}
		}
	}
	return false
}

func distinctCategories(markets []models.Market) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, mk := range markets {
		if mk.Category == "" {
			continue
		}
		if _, ok := seen[mk.Category]; ok {
			continue
		}
		seen[mk.Category] = struct{}{}
		out = append(out, mk.Category)
	}
	return out
}

package whale

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"exasignal/internal/models"
	"exasignal/internal/repository"
	"exasignal/internal/smartmoney"
)

const profileCacheSize = 2000

// ProfileBuilder assembles wallet profiles lazily: durable history gives
// trade counts and market spread, in-process observation accumulates volume,
// direction bias and timing. The cache is size-bounded.
type ProfileBuilder struct {
	Repo       repository.Repository
	SmartMoney *smartmoney.Service
	Logger     *zap.Logger

	mu    sync.Mutex
	cache map[string]*models.WhaleProfile
	order []string
}

func NewProfileBuilder(repo repository.Repository, sm *smartmoney.Service, logger *zap.Logger) *ProfileBuilder {
	return &ProfileBuilder{
		Repo:       repo,
		SmartMoney: sm,
		Logger:     logger,
		cache:      map[string]*models.WhaleProfile{},
	}
}

// Build returns the profile for a wallet, loading durable history on first
// use. A history read failure yields a nil profile, never a fabricated one.
func (b *ProfileBuilder) Build(ctx context.Context, wallet string) *models.WhaleProfile {
	if b == nil || wallet == "" {
		return nil
	}
	b.mu.Lock()
	if p, ok := b.cache[wallet]; ok {
		b.mu.Unlock()
		return p
	}
	b.mu.Unlock()

	records, err := b.Repo.ListWalletRecords(ctx, wallet)
	if err != nil {
		if b.Logger != nil {
			b.Logger.Warn("profile history read failed", zap.String("wallet", wallet), zap.Error(err))
		}
		return nil
	}
	p := &models.WhaleProfile{
		WalletAddress: wallet,
		CategoryStats: map[string]*models.CategoryPerformance{},
	}
	for _, rec := range records {
		p.TotalTrades += rec.TradeCount
		p.MarketsTraded++
		last := rec.LastSeen
		if p.LastSeen == nil || last.After(*p.LastSeen) {
			t := last
			p.LastSeen = &t
		}
		if p.FirstSeen == nil || last.Before(*p.FirstSeen) {
			t := last
			p.FirstSeen = &t
		}
	}
	if t := b.SmartMoney.Trader(wallet); t != nil {
		p.SmartScore = t.SmartScore()
		p.LeaderboardRank = t.Rank
		p.IsSmartMoney = true
	}
	b.store(wallet, p)
	return p
}

// ObserveTrade updates the profile incrementally from a newly seen trade.
func (b *ProfileBuilder) ObserveTrade(ctx context.Context, wallet, direction string, sizeUSD float64, daysBeforeClose float64) {
	p := b.Build(ctx, wallet)
	if p == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p.TotalVolumeUSD += sizeUSD
	switch direction {
	case models.DirectionYes:
		p.YesBets++
	case models.DirectionNo:
		p.NoBets++
	}
	if daysBeforeClose > 0 {
		if p.Timing == nil {
			p.Timing = &models.BetTimingProfile{}
		}
		n := float64(p.Timing.TotalBetsAnalyzed)
		p.Timing.AvgDaysBeforeClose = (p.Timing.AvgDaysBeforeClose*n + daysBeforeClose) / (n + 1)
		p.Timing.TotalBetsAnalyzed++
	}
}

// RecordOutcome feeds a resolved bet into the category win-rate map.
func (b *ProfileBuilder) RecordOutcome(ctx context.Context, wallet, category string, won bool) {
	p := b.Build(ctx, wallet)
	if p == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p.AddCategoryResult(category, won)
	var wins, total int
	for _, cat := range p.CategoryStats {
		wins += cat.Wins
		total += cat.TotalBets
	}
	if total > 0 {
		p.WinRate = float64(wins) / float64(total) * 100
	}
}

// Cleanup removes wallet history rows inactive beyond the retention window.
func (b *ProfileBuilder) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if b == nil || b.Repo == nil {
		return 0, nil
	}
	if retentionDays <= 0 {
		retentionDays = 90
	}
	cutoff := time.Now().UTC().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	return b.Repo.DeleteWalletRecordsBefore(ctx, cutoff)
}

func (b *ProfileBuilder) store(wallet string, p *models.WhaleProfile) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.cache[wallet]; !ok {
		b.order = append(b.order, wallet)
		if len(b.order) > profileCacheSize {
			evict := b.order[0]
			b.order = b.order[1:]
			delete(b.cache, evict)
		}
	}
	b.cache[wallet] = p
}

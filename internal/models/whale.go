package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// WhaleEvent is an immutable fact: a large, new, directional position taken by
// a wallet judged likely to carry private information. Events are created by
// the detector and never mutated afterwards.
type WhaleEvent struct {
	MarketID      string
	Direction     string // YES or NO
	SizeUSD       decimal.Decimal
	WalletAddress string

	// WalletInactiveDays is days since the wallet last traded this market
	// at detection time (0 when never seen before).
	WalletInactiveDays int

	// LiquidityRatio is SizeUSD divided by the market's total liquidity.
	LiquidityRatio float64

	Timestamp            time.Time
	IsNewPosition        bool
	PreviousPositionSize decimal.Decimal

	// Profile is attached lazily when wallet history is available.
	Profile *WhaleProfile
}

// ID is a stable identifier used to key per-trigger request caps.
func (e *WhaleEvent) ID() string {
	wallet := e.WalletAddress
	if len(wallet) > 10 {
		wallet = wallet[:10]
	}
	return fmt.Sprintf("%s_%s", wallet, e.Timestamp.UTC().Format(time.RFC3339))
}

// SizeFormatted renders the position size for humans ($25k, $1.5M).
func (e *WhaleEvent) SizeFormatted() string {
	return FormatUSD(e.SizeUSD.InexactFloat64())
}

// FormatUSD renders a dollar amount compactly.
func FormatUSD(amount float64) string {
	switch {
	case amount >= 1_000_000:
		return fmt.Sprintf("$%.1fM", amount/1_000_000)
	case amount >= 1_000:
		return fmt.Sprintf("$%.0fk", amount/1_000)
	default:
		return fmt.Sprintf("$%.0f", amount)
	}
}

// WalletRecord is the durable per-(wallet, market) history row behind the
// dormancy check. Rows older than the retention window are purged by cron.
type WalletRecord struct {
	WalletAddress string    `gorm:"primaryKey;type:varchar(100)"`
	MarketID      string    `gorm:"primaryKey;type:varchar(100);index:idx_wallet_market,priority:1"`
	LastSeen      time.Time `gorm:"type:timestamptz;not null;index:idx_wallet_market,priority:2"`
	TradeCount    int       `gorm:"not null;default:1"`
}

func (WalletRecord) TableName() string {
	return "wallet_history"
}

// Timing classification buckets, derived from mean days-before-close.
const (
	TimingEarlyBird = "EARLY_BIRD"
	TimingMomentum  = "MOMENTUM"
	TimingSniper    = "SNIPER"
)

// BetTimingProfile classifies when a whale tends to enter relative to market
// close.
type BetTimingProfile struct {
	AvgDaysBeforeClose float64
	TotalBetsAnalyzed  int
}

func (p BetTimingProfile) TimingType() string {
	switch {
	case p.AvgDaysBeforeClose > 30:
		return TimingEarlyBird
	case p.AvgDaysBeforeClose > 7:
		return TimingMomentum
	default:
		return TimingSniper
	}
}

// CategoryPerformance tracks resolved-bet outcomes within one market category.
type CategoryPerformance struct {
	Category  string
	TotalBets int
	Wins      int
}

// WinRate returns the category win rate in percent.
func (c CategoryPerformance) WinRate() float64 {
	if c.TotalBets == 0 {
		return 0
	}
	return float64(c.Wins) / float64(c.TotalBets) * 100
}

// WhaleProfile aggregates wallet statistics built lazily from durable history.
// It is a secondary relevance signal for the scorer and UI, never a hard block.
type WhaleProfile struct {
	WalletAddress  string
	TotalTrades    int
	TotalVolumeUSD float64
	WinRate        float64 // 0-100
	MarketsTraded  int
	FirstSeen      *time.Time
	LastSeen       *time.Time

	Timing        *BetTimingProfile
	CategoryStats map[string]*CategoryPerformance

	YesBets int
	NoBets  int

	// Leaderboard-derived smart money fields.
	SmartScore      int
	LeaderboardRank int
	IsSmartMoney    bool
}

// Profile tiers, volume- and activity-based.
const (
	TierShark     = "SHARK"
	TierMegaWhale = "MEGA_WHALE"
	TierWhale     = "WHALE"
	TierDolphin   = "DOLPHIN"
	TierNewTrader = "NEW_TRADER"
)

func (p *WhaleProfile) Tier() string {
	switch {
	case p.TotalTrades >= 50 && p.WinRate >= 70:
		return TierShark
	case p.TotalVolumeUSD >= 500_000:
		return TierMegaWhale
	case p.TotalVolumeUSD >= 100_000:
		return TierWhale
	case p.TotalTrades >= 20:
		return TierDolphin
	default:
		return TierNewTrader
	}
}

// DirectionalBias returns -1 (all NO) to +1 (all YES). Between -0.6 and 0.6
// is considered balanced.
func (p *WhaleProfile) DirectionalBias() float64 {
	total := p.YesBets + p.NoBets
	if total == 0 {
		return 0
	}
	return float64(p.YesBets-p.NoBets) / float64(total)
}

// IsOneSided reports a wallet that only ever bets one direction.
func (p *WhaleProfile) IsOneSided() bool {
	bias := p.DirectionalBias()
	return bias > 0.8 || bias < -0.8
}

// SpecialtyCategory returns the category where the whale has the best win
// rate, requiring at least 5 resolved bets and a 60% win rate to qualify.
// Empty string means no statistically supported specialty.
func (p *WhaleProfile) SpecialtyCategory() string {
	var best *CategoryPerformance
	for _, cat := range p.CategoryStats {
		if cat.TotalBets < 5 {
			continue
		}
		if best == nil || cat.WinRate() > best.WinRate() {
			best = cat
		}
	}
	if best == nil || best.WinRate() < 60 {
		return ""
	}
	return best.Category
}

// IsRelevantForCategory reports whether the whale's track record fits the
// market's category. A wallet with no specialty gets the benefit of the
// doubt; a mega whale with a 75%+ overall win rate bypasses the check.
func (p *WhaleProfile) IsRelevantForCategory(marketCategory string) bool {
	specialty := p.SpecialtyCategory()
	if specialty == "" {
		return true
	}
	if strings.EqualFold(specialty, marketCategory) {
		return true
	}
	if p.Tier() == TierMegaWhale && p.WinRate >= 75 {
		return true
	}
	return false
}

// AddCategoryResult records one resolved bet for category tracking.
func (p *WhaleProfile) AddCategoryResult(category string, won bool) {
	if p.CategoryStats == nil {
		p.CategoryStats = map[string]*CategoryPerformance{}
	}
	cat, ok := p.CategoryStats[category]
	if !ok {
		cat = &CategoryPerformance{Category: category}
		p.CategoryStats[category] = cat
	}
	cat.TotalBets++
	if won {
		cat.Wins++
	}
}

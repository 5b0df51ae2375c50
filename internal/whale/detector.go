package whale

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	polymarketdata "exasignal/internal/client/polymarket/data"
	"exasignal/internal/config"
	"exasignal/internal/models"
	"exasignal/internal/repository"
)

// Market name patterns with no informational edge (continuous price
// markets). A whale position there says nothing about real-world events.
var excludedMarketPatterns = []string{
	"up/down", "up or down", "above", "below", "price",
}

// TradeFeed is the trade tape the detector scans.
type TradeFeed interface {
	GetTrades(ctx context.Context, marketID string, limit int) ([]polymarketdata.Trade, error)
}

// LiquiditySource resolves a market's total liquidity in USD.
type LiquiditySource interface {
	GetLiquidity(ctx context.Context, marketID string) (float64, error)
}

// Detector applies the whale rules to the trade tape. It only ever emits an
// event for a new, concentrated, directional, non-mechanical position; any
// fetch failure skips the market rather than fabricating an event.
type Detector struct {
	Repo      repository.Repository
	Feed      TradeFeed
	Liquidity LiquiditySource
	Filter    *Filter
	Profiles  *ProfileBuilder
	Cfg       config.WhaleConfig
	Logger    *zap.Logger
}

// MarketExcluded reports whether the market name matches an excluded
// pattern.
func MarketExcluded(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range excludedMarketPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Scan evaluates the market's recent trades and returns whale events.
func (d *Detector) Scan(ctx context.Context, market models.Market) ([]models.WhaleEvent, error) {
	if d == nil || d.Repo == nil || d.Feed == nil {
		return nil, nil
	}
	if MarketExcluded(market.Name) {
		return nil, nil
	}
	liquidity, err := d.Liquidity.GetLiquidity(ctx, market.ID)
	if err != nil {
		if d.Logger != nil {
			d.Logger.Warn("liquidity fetch failed, skipping market",
				zap.String("market_id", market.ID), zap.Error(err))
		}
		return nil, err
	}
	trades, err := d.Feed.GetTrades(ctx, market.ID, 100)
	if err != nil {
		if d.Logger != nil {
			d.Logger.Warn("trade fetch failed, skipping market",
				zap.String("market_id", market.ID), zap.Error(err))
		}
		return nil, err
	}

	now := time.Now().UTC()
	for _, t := range trades {
		d.Filter.Observe(t.WalletAddress, t.MarketID, t.Direction(), t.Timestamp)
	}

	threshold := decimal.NewFromFloat(d.Cfg.MinSizeUSD)
	if ratioFloor := decimal.NewFromFloat(d.Cfg.LiquidityPercent * liquidity); ratioFloor.GreaterThan(threshold) {
		threshold = ratioFloor
	}

	daysBeforeClose := 0.0
	if market.EndDate != nil && market.EndDate.After(now) {
		daysBeforeClose = market.EndDate.Sub(now).Hours() / 24
	}

	var events []models.WhaleEvent
	for _, t := range trades {
		sizeUSD := t.SizeUSD()
		if sizeUSD.LessThan(threshold) {
			continue
		}
		event, ok := d.evaluate(ctx, market, t, sizeUSD, liquidity, daysBeforeClose, now)
		if !ok {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// evaluate applies the wallet-level rules to one whale-size trade. Wallet
// history is touched on every evaluated trade, emitted or not, so dormancy
// stays accurate.
func (d *Detector) evaluate(ctx context.Context, market models.Market, t polymarketdata.Trade, sizeUSD decimal.Decimal, liquidity float64, daysBeforeClose float64, now time.Time) (models.WhaleEvent, bool) {
	if t.WalletAddress == "" {
		return models.WhaleEvent{}, false
	}
	marketID := market.ID

	rec, err := d.Repo.GetWalletRecord(ctx, t.WalletAddress, marketID)
	if err != nil {
		// Scoring integrity depends on wallet history; skip this trigger
		// and retry next cycle.
		if d.Logger != nil {
			d.Logger.Warn("wallet history read failed, skipping trade",
				zap.String("wallet", t.WalletAddress), zap.Error(err))
		}
		return models.WhaleEvent{}, false
	}

	inactiveDays := 0
	dormant := true
	if rec != nil {
		inactiveDays = int(now.Sub(rec.LastSeen).Hours() / 24)
		dormant = inactiveDays >= d.Cfg.InactivityDays
	}

	touch := func() {
		if err := d.Repo.TouchWalletRecord(ctx, t.WalletAddress, marketID, now); err != nil && d.Logger != nil {
			d.Logger.Warn("wallet history write failed",
				zap.String("wallet", t.WalletAddress), zap.Error(err))
		}
	}

	if !dormant {
		touch()
		return models.WhaleEvent{}, false
	}
	if reason, excluded := d.Filter.Check(t.WalletAddress, now); excluded {
		if d.Logger != nil {
			d.Logger.Debug("whale candidate filtered",
				zap.String("wallet", t.WalletAddress), zap.String("reason", reason))
		}
		touch()
		return models.WhaleEvent{}, false
	}
	// The in-process filter only sees trades observed since startup; the
	// durable history catches a high-frequency wallet across restarts.
	if d.Cfg.MaxDailyTrades > 0 {
		n, err := d.Repo.CountWalletTradesToday(ctx, t.WalletAddress, now)
		if err != nil {
			if d.Logger != nil {
				d.Logger.Warn("wallet frequency read failed",
					zap.String("wallet", t.WalletAddress), zap.Error(err))
			}
		} else if n >= int64(d.Cfg.MaxDailyTrades) {
			if d.Logger != nil {
				d.Logger.Debug("whale candidate filtered",
					zap.String("wallet", t.WalletAddress),
					zap.String("reason", ReasonHighFrequencyDaily))
			}
			touch()
			return models.WhaleEvent{}, false
		}
	}

	ratio := 0.0
	if liquidity > 0 {
		ratio = sizeUSD.InexactFloat64() / liquidity
	}
	event := models.WhaleEvent{
		MarketID:             marketID,
		Direction:            t.Direction(),
		SizeUSD:              sizeUSD,
		WalletAddress:        t.WalletAddress,
		WalletInactiveDays:   inactiveDays,
		LiquidityRatio:       ratio,
		Timestamp:            now,
		IsNewPosition:        true,
		PreviousPositionSize: decimal.Zero,
	}
	if d.Profiles != nil {
		d.Profiles.ObserveTrade(ctx, t.WalletAddress, event.Direction, sizeUSD.InexactFloat64(), daysBeforeClose)
		if p := d.Profiles.Build(ctx, t.WalletAddress); p != nil {
			if !p.IsRelevantForCategory(market.Category) {
				if d.Logger != nil {
					d.Logger.Debug("whale candidate off specialty",
						zap.String("wallet", t.WalletAddress),
						zap.String("category", market.Category),
						zap.String("specialty", p.SpecialtyCategory()))
				}
				touch()
				return models.WhaleEvent{}, false
			}
			event.Profile = p
		}
	}
	touch()
	if d.Logger != nil {
		d.Logger.Info("whale event detected",
			zap.String("market_id", marketID),
			zap.String("wallet", t.WalletAddress),
			zap.String("direction", event.Direction),
			zap.String("size_usd", sizeUSD.StringFixed(0)),
			zap.Float64("liquidity_ratio", ratio))
	}
	return event, true
}

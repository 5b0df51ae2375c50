// Package scheduler drives the detection pipeline on market-hours-aware
// intervals: fast polling while US markets can move, slow polling overnight.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"exasignal/internal/alert"
	polymarketgamma "exasignal/internal/client/polymarket/gamma"
	"exasignal/internal/config"
	"exasignal/internal/models"
	"exasignal/internal/repository"
	"exasignal/internal/scoring"
	"exasignal/internal/signalgen"
	"exasignal/internal/smartmoney"
	"exasignal/internal/whale"
)

// Stats are cumulative counters since Run started.
type Stats struct {
	ScansTotal       int64     `json:"scans_total"`
	ScansMarketHours int64     `json:"scans_market_hours"`
	ScansOffHours    int64     `json:"scans_off_hours"`
	NewsScans        int64     `json:"news_scans"`
	SignalsGenerated int64     `json:"signals_generated"`
	AlertsSent       int64     `json:"alerts_sent"`
	AlertsRejected   int64     `json:"alerts_rejected"`
	Errors           int64     `json:"errors"`
	StartedAt        time.Time `json:"started_at"`
}

// Status is the snapshot served by the status API.
type Status struct {
	Running         bool  `json:"running"`
	IsMarketHours   bool  `json:"is_market_hours"`
	IntervalSeconds int   `json:"current_interval_seconds"`
	SignalsThisHour int   `json:"signals_this_hour"`
	Stats           Stats `json:"stats"`
}

// MarketSource resolves market snapshots for odds, liquidity and resolution
// sweeps.
type MarketSource interface {
	GetMarket(ctx context.Context, marketID string) (*polymarketgamma.Market, error)
}

// openPosition is a tracked whale bet awaiting market resolution.
type openPosition struct {
	wallet    string
	marketID  string
	category  string
	direction string
}

const maxTrackedPositions = 1000

// Scheduler owns the two poll loops: whale scans over the watchlist and the
// news monitor. Every trigger flows through the same processing path.
type Scheduler struct {
	Repo       repository.Repository
	Detector   *whale.Detector
	News       *NewsMonitor
	Generator  *signalgen.Generator
	Alerts     *alert.Generator
	Gamma      MarketSource
	Momentum   *scoring.MomentumTracker
	SmartMoney *smartmoney.Service
	Profiles   *whale.ProfileBuilder
	Cfg        config.SchedulerConfig
	SignalCfg  config.SignalConfig
	Logger     *zap.Logger

	mu              sync.Mutex
	stats           Stats
	recent          []*models.Signal
	positions       []openPosition
	signalsThisHour int
	lastHour        int
	running         bool
}

func New(cfg config.SchedulerConfig, signalCfg config.SignalConfig, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		Cfg:       cfg,
		SignalCfg: signalCfg,
		Logger:    logger,
		lastHour:  -1,
	}
}

// IsMarketHours reports whether now falls in the expanded US trading window.
// The window wraps midnight when open hour is after close hour.
func (s *Scheduler) IsMarketHours(now time.Time) bool {
	h := now.UTC().Hour()
	open, close := s.Cfg.MarketOpenHourUTC, s.Cfg.MarketCloseHourUTC
	if open > close {
		return h >= open || h < close
	}
	return h >= open && h < close
}

// CurrentInterval returns the whale-scan cadence for the given time.
func (s *Scheduler) CurrentInterval(now time.Time) time.Duration {
	if s.IsMarketHours(now) {
		return s.Cfg.WhaleScanActive
	}
	return s.Cfg.WhaleScanOffHours
}

// Run starts both poll loops and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	s.running = true
	s.stats.StartedAt = time.Now().UTC()
	s.mu.Unlock()

	s.Logger.Info("scheduler started",
		zap.Duration("whale_scan_active", s.Cfg.WhaleScanActive),
		zap.Duration("whale_scan_off_hours", s.Cfg.WhaleScanOffHours),
		zap.Duration("news_scan_interval", s.Cfg.NewsScanInterval),
		zap.Int("market_open_utc", s.Cfg.MarketOpenHourUTC),
		zap.Int("market_close_utc", s.Cfg.MarketCloseHourUTC))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.whaleLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.newsLoop(ctx)
	}()
	wg.Wait()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.Logger.Info("scheduler stopped")
}

func (s *Scheduler) whaleLoop(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		s.resetHourlyCounter(time.Now().UTC())
		s.scanWhales(ctx)
		timer.Reset(s.CurrentInterval(time.Now()))
	}
}

func (s *Scheduler) newsLoop(ctx context.Context) {
	if s.News == nil {
		return
	}
	interval := s.Cfg.NewsScanInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		s.resetHourlyCounter(time.Now().UTC())
		s.scanNews(ctx)
	}
}

func (s *Scheduler) scanWhales(ctx context.Context) {
	markets, err := s.Repo.ListActiveMarkets(ctx)
	if err != nil {
		s.Logger.Error("watchlist read failed", zap.Error(err))
		s.countError()
		return
	}

	if s.SmartMoney != nil {
		// Best effort, the stale copy stays usable.
		if _, err := s.SmartMoney.Refresh(ctx, false); err != nil {
			s.Logger.Debug("smart money refresh failed", zap.Error(err))
		}
	}
	s.sweepResolutions(ctx)

	s.mu.Lock()
	s.stats.ScansTotal++
	if s.IsMarketHours(time.Now()) {
		s.stats.ScansMarketHours++
	} else {
		s.stats.ScansOffHours++
	}
	s.mu.Unlock()

	for i := range markets {
		if ctx.Err() != nil {
			return
		}
		market := markets[i]
		odds, liquidity := s.snapshotMarket(ctx, market.ID)

		events, err := s.Detector.Scan(ctx, market)
		if err != nil {
			s.Logger.Warn("whale scan failed",
				zap.String("market", market.ID), zap.Error(err))
			s.countError()
			continue
		}
		for j := range events {
			s.trackPosition(&events[j], &market)
			trigger := &models.Trigger{Type: models.TriggerWhale, Whale: &events[j]}
			s.process(ctx, trigger, &market, odds, liquidity)
		}
	}
}

func (s *Scheduler) scanNews(ctx context.Context) {
	items, err := s.News.ScanOnce(ctx)
	if err != nil {
		s.Logger.Warn("news scan failed", zap.Error(err))
		s.countError()
		return
	}
	s.mu.Lock()
	s.stats.NewsScans++
	s.mu.Unlock()

	for i := range items {
		if ctx.Err() != nil {
			return
		}
		item := items[i]
		market, err := s.Repo.GetMarket(ctx, item.MarketID)
		if err != nil || market == nil {
			continue
		}
		odds, liquidity := s.snapshotMarket(ctx, market.ID)
		trigger := &models.Trigger{Type: models.TriggerNews, News: &item}
		s.process(ctx, trigger, market, odds, liquidity)
	}
}

// trackPosition remembers a whale bet so its outcome can be settled into the
// wallet's win-rate profile when the market closes.
func (s *Scheduler) trackPosition(ev *models.WhaleEvent, market *models.Market) {
	if s.Profiles == nil || ev.WalletAddress == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.positions {
		if p.wallet == ev.WalletAddress && p.marketID == ev.MarketID {
			return
		}
	}
	if len(s.positions) >= maxTrackedPositions {
		s.positions = s.positions[1:]
	}
	s.positions = append(s.positions, openPosition{
		wallet:    ev.WalletAddress,
		marketID:  ev.MarketID,
		category:  market.Category,
		direction: ev.Direction,
	})
}

// sweepResolutions settles tracked positions against closed markets. A
// market counts as resolved YES when its final YES price is at or above 0.5.
func (s *Scheduler) sweepResolutions(ctx context.Context) {
	if s.Profiles == nil || s.Gamma == nil {
		return
	}
	s.mu.Lock()
	tracked := make([]openPosition, len(s.positions))
	copy(tracked, s.positions)
	s.mu.Unlock()
	if len(tracked) == 0 {
		return
	}

	// "" means still open or unreadable this pass.
	outcomes := map[string]string{}
	for _, pos := range tracked {
		if _, ok := outcomes[pos.marketID]; ok {
			continue
		}
		outcomes[pos.marketID] = ""
		gm, err := s.Gamma.GetMarket(ctx, pos.marketID)
		if err != nil || gm == nil || !gm.Closed {
			continue
		}
		if gm.YesPrice >= 0.5 {
			outcomes[pos.marketID] = models.DirectionYes
		} else {
			outcomes[pos.marketID] = models.DirectionNo
		}
	}

	open := tracked[:0]
	settled := 0
	for _, pos := range tracked {
		outcome := outcomes[pos.marketID]
		if outcome == "" {
			open = append(open, pos)
			continue
		}
		s.Profiles.RecordOutcome(ctx, pos.wallet, pos.category, pos.direction == outcome)
		settled++
	}
	s.mu.Lock()
	s.positions = open
	s.mu.Unlock()
	if settled > 0 {
		s.Logger.Info("whale positions settled", zap.Int("count", settled))
	}
}

// snapshotMarket fetches current YES odds (percent) and liquidity, feeding
// the momentum tracker as a side effect. Zero values mean unavailable.
func (s *Scheduler) snapshotMarket(ctx context.Context, marketID string) (float64, float64) {
	if s.Gamma == nil {
		return 0, 0
	}
	gm, err := s.Gamma.GetMarket(ctx, marketID)
	if err != nil || gm == nil {
		s.Logger.Debug("market snapshot failed", zap.String("market", marketID), zap.Error(err))
		return 0, 0
	}
	odds := gm.YesPrice * 100
	if odds > 0 && s.Momentum != nil {
		s.Momentum.Track(marketID, odds)
	}
	return odds, gm.LiquidityUSD
}

// process runs one trigger through signal generation, persistence and the
// alert gates. After a dispatched alert it pauses for the pacing delay.
func (s *Scheduler) process(ctx context.Context, trigger *models.Trigger, market *models.Market, odds, liquidity float64) {
	// A market inside its alert cooldown cannot dispatch anyway; skipping
	// here saves the research quota the trigger would have spent.
	if s.Alerts != nil && s.Alerts.Cfg.Cooldown > 0 {
		since := time.Now().UTC().Add(-s.Alerts.Cfg.Cooldown)
		if n, err := s.Repo.CountAlertsSince(ctx, market.ID, since); err == nil && n > 0 {
			s.Logger.Debug("market inside alert cooldown, trigger skipped",
				zap.String("market", market.ID), zap.String("trigger", trigger.Type))
			return
		}
	}

	sig, err := s.Generator.GenerateEnriched(ctx, trigger, market, odds, liquidity)
	if err != nil {
		s.Logger.Warn("signal generation failed",
			zap.String("market", market.ID),
			zap.String("trigger", trigger.Type),
			zap.Error(err))
		s.countError()
		return
	}
	if sig == nil {
		return
	}

	s.mu.Lock()
	s.stats.SignalsGenerated++
	s.signalsThisHour++
	overHourlyCap := s.Cfg.MaxSignalsPerHour > 0 && s.signalsThisHour > s.Cfg.MaxSignalsPerHour
	s.mu.Unlock()
	s.keepRecent(sig)

	// Persist before the alert gates so the feed keeps every signal; the
	// row is flipped to dispatched only after a successful send.
	rec := s.persistSignal(ctx, sig)

	dispatched := false
	if sig.ShouldAlert && !overHourlyCap {
		a, reason, err := s.Alerts.Generate(ctx, sig)
		switch {
		case err != nil && !errors.Is(err, alert.ErrNotAlertable):
			s.Logger.Error("alert generation failed", zap.String("market", market.ID), zap.Error(err))
			s.countError()
		case a != nil:
			dispatched = true
			s.mu.Lock()
			s.stats.AlertsSent++
			s.mu.Unlock()
		case reason != "":
			s.mu.Lock()
			s.stats.AlertsRejected++
			s.mu.Unlock()
			s.Logger.Info("alert rejected",
				zap.String("market", market.ID), zap.String("reason", reason))
		}
	} else if sig.ShouldAlert && overHourlyCap {
		s.Logger.Warn("hourly signal cap reached, alert suppressed",
			zap.String("market", market.ID),
			zap.Int("max_per_hour", s.Cfg.MaxSignalsPerHour))
	}

	if dispatched && rec != nil && rec.ID != 0 {
		if err := s.Repo.MarkSignalDispatched(ctx, rec.ID); err != nil {
			s.Logger.Error("signal dispatch mark failed",
				zap.Uint("signal_id", rec.ID), zap.Error(err))
			s.countError()
		}
	}

	if dispatched && s.Cfg.TriggerPacing > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(s.Cfg.TriggerPacing):
		}
	}
}

func (s *Scheduler) persistSignal(ctx context.Context, sig *models.Signal) *models.SignalRecord {
	rec := &models.SignalRecord{
		MarketID:    sig.MarketID,
		MarketName:  sig.MarketName,
		Direction:   sig.Direction,
		Confidence:  sig.Verdict.Confidence,
		Composite:   sig.Composite(),
		TriggerType: sig.Trigger.Type,
		Reasoning:   sig.Verdict.Reasoning,
		ExpiresAt:   time.Now().UTC().Add(s.SignalCfg.TTL),
	}
	if sig.Score != nil {
		rec.Score = sig.Score.Total
		rec.MomentumScore = sig.MomentumScore
		if b, err := json.Marshal(sig.Score); err == nil {
			rec.Breakdown = b
		}
	}
	if err := s.Repo.InsertSignal(ctx, rec); err != nil {
		s.Logger.Error("signal persist failed",
			zap.String("market", sig.MarketID), zap.Error(err))
		s.countError()
		return nil
	}
	return rec
}

func (s *Scheduler) keepRecent(sig *models.Signal) {
	keep := s.SignalCfg.KeepRecent
	if keep <= 0 {
		keep = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, sig)
	if len(s.recent) > keep {
		s.recent = s.recent[len(s.recent)-keep:]
	}
}

// RecentSignals returns the newest in-memory signals, newest first.
func (s *Scheduler) RecentSignals(limit int) []*models.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.recent) {
		limit = len(s.recent)
	}
	out := make([]*models.Signal, 0, limit)
	for i := len(s.recent) - 1; i >= len(s.recent)-limit; i-- {
		out = append(out, s.recent[i])
	}
	return out
}

// GetStatus snapshots the scheduler for the status API.
func (s *Scheduler) GetStatus() Status {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:         s.running,
		IsMarketHours:   s.IsMarketHours(now),
		IntervalSeconds: int(s.CurrentInterval(now) / time.Second),
		SignalsThisHour: s.signalsThisHour,
		Stats:           s.stats,
	}
}

// Running reports whether Run is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) resetHourlyCounter(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Hour() != s.lastHour {
		s.signalsThisHour = 0
		s.lastHour = now.Hour()
	}
}

func (s *Scheduler) countError() {
	s.mu.Lock()
	s.stats.Errors++
	s.mu.Unlock()
}

package whale

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Exclusion reasons.
const (
	ReasonHighFrequencyDaily   = "high_frequency_daily"
	ReasonHighFrequencyMonthly = "high_frequency_monthly"
	ReasonHedging              = "hedging"
)

const defaultMaxWallets = 10000

type walletStats struct {
	tradeTimes  []time.Time
	sides       map[string]map[string]struct{} // market -> directions seen
	lastTouched time.Time
}

// Filter classifies wallets as informational vs mechanical. It keeps an
// in-process stats cache (size-bounded, least-recently-touched eviction) and
// a permanent blacklist: a wallet excluded once stays excluded for the
// process lifetime.
type Filter struct {
	MaxDailyTrades   int
	MaxMonthlyTrades int
	MaxWallets       int
	Logger           *zap.Logger

	mu        sync.Mutex
	stats     map[string]*walletStats
	blacklist map[string]string
}

func NewFilter(maxDaily, maxMonthly int, logger *zap.Logger) *Filter {
	if maxDaily <= 0 {
		maxDaily = 50
	}
	if maxMonthly <= 0 {
		maxMonthly = 500
	}
	return &Filter{
		MaxDailyTrades:   maxDaily,
		MaxMonthlyTrades: maxMonthly,
		MaxWallets:       defaultMaxWallets,
		Logger:           logger,
		stats:            map[string]*walletStats{},
		blacklist:        map[string]string{},
	}
}

// Observe feeds one trade into the wallet's rolling stats.
func (f *Filter) Observe(wallet, marketID, direction string, ts time.Time) {
	if f == nil || wallet == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.stats[wallet]
	if !ok {
		f.evictLocked()
		s = &walletStats{sides: map[string]map[string]struct{}{}}
		f.stats[wallet] = s
	}
	s.tradeTimes = append(s.tradeTimes, ts)
	s.lastTouched = time.Now()
	if marketID != "" && direction != "" {
		if s.sides[marketID] == nil {
			s.sides[marketID] = map[string]struct{}{}
		}
		s.sides[marketID][direction] = struct{}{}
	}
	s.pruneLocked(time.Now().UTC())
}

// Check applies the exclusion rules, first match wins. An excluded wallet is
// blacklisted and never re-evaluated.
func (f *Filter) Check(wallet string, now time.Time) (string, bool) {
	if f == nil || wallet == "" {
		return "", false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if reason, ok := f.blacklist[wallet]; ok {
		return reason, true
	}
	s, ok := f.stats[wallet]
	if !ok {
		return "", false
	}
	s.pruneLocked(now)

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var today, month int
	for _, ts := range s.tradeTimes {
		month++
		if !ts.Before(dayStart) {
			today++
		}
	}
	if today > f.MaxDailyTrades {
		return f.blacklistLocked(wallet, ReasonHighFrequencyDaily), true
	}
	if month > f.MaxMonthlyTrades {
		return f.blacklistLocked(wallet, ReasonHighFrequencyMonthly), true
	}
	for _, dirs := range s.sides {
		if len(dirs) > 1 {
			return f.blacklistLocked(wallet, ReasonHedging), true
		}
	}
	return "", false
}

// Blacklisted reports whether the wallet was previously excluded.
func (f *Filter) Blacklisted(wallet string) (string, bool) {
	if f == nil {
		return "", false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	reason, ok := f.blacklist[wallet]
	return reason, ok
}

// BlacklistSize returns how many wallets are permanently excluded.
func (f *Filter) BlacklistSize() int {
	if f == nil {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.blacklist)
}

func (f *Filter) blacklistLocked(wallet, reason string) string {
	f.blacklist[wallet] = reason
	delete(f.stats, wallet)
	if f.Logger != nil {
		f.Logger.Info("wallet excluded", zap.String("wallet", wallet), zap.String("reason", reason))
	}
	return reason
}

func (s *walletStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-30 * 24 * time.Hour)
	kept := s.tradeTimes[:0]
	for _, ts := range s.tradeTimes {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	s.tradeTimes = kept
}

func (f *Filter) evictLocked() {
	max := f.MaxWallets
	if max <= 0 {
		max = defaultMaxWallets
	}
	if len(f.stats) < max {
		return
	}
	var oldest string
	var oldestAt time.Time
	for wallet, s := range f.stats {
		if oldest == "" || s.lastTouched.Before(oldestAt) {
			oldest, oldestAt = wallet, s.lastTouched
		}
	}
	if oldest != "" {
		delete(f.stats, oldest)
	}
}

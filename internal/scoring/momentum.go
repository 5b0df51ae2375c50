package scoring

import (
	"math"
	"sync"
	"time"
)

type oddsSample struct {
	ts   time.Time
	odds float64 // YES probability, 0-100
}

// MomentumTracker keeps a bounded 24h odds history per market and turns
// velocity into a 0-10 score. Fast-moving odds corroborate a signal; a
// static market is a weak-signal warning. The score never blocks a signal.
type MomentumTracker struct {
	MaxHistory time.Duration
	MaxSamples int

	mu      sync.Mutex
	history map[string][]oddsSample
}

func NewMomentumTracker(maxSamples int) *MomentumTracker {
	if maxSamples <= 0 {
		maxSamples = 50
	}
	return &MomentumTracker{
		MaxHistory: 24 * time.Hour,
		MaxSamples: maxSamples,
		history:    map[string][]oddsSample{},
	}
}

// Track records an odds sample for a market.
func (m *MomentumTracker) Track(marketID string, odds float64) {
	m.trackAt(marketID, odds, time.Now().UTC())
}

// TrackAt records a backdated sample, used to seed history from a price
// series. Samples must arrive oldest first.
func (m *MomentumTracker) TrackAt(marketID string, odds float64, at time.Time) {
	m.trackAt(marketID, odds, at)
}

func (m *MomentumTracker) trackAt(marketID string, odds float64, now time.Time) {
	if m == nil || marketID == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	samples := append(m.history[marketID], oddsSample{ts: now, odds: odds})
	cutoff := now.Add(-m.MaxHistory)
	kept := samples[:0]
	for _, s := range samples {
		if s.ts.After(cutoff) {
			kept = append(kept, s)
		}
	}
	if len(kept) > m.MaxSamples {
		kept = kept[len(kept)-m.MaxSamples:]
	}
	m.history[marketID] = kept
}

// Score returns the momentum score in [0,10]. Fewer than two samples scores
// 0: velocity needs history.
func (m *MomentumTracker) Score(marketID string) float64 {
	return m.scoreAt(marketID, time.Now().UTC())
}

func (m *MomentumTracker) scoreAt(marketID string, now time.Time) float64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	samples := m.history[marketID]
	if len(samples) < 2 {
		return 0
	}
	weighted := math.Abs(m.changeLocked(samples, now, time.Hour))*10 +
		math.Abs(m.changeLocked(samples, now, 6*time.Hour))*5 +
		math.Abs(m.changeLocked(samples, now, 24*time.Hour))*2
	score := weighted / 10
	if score > 10 {
		score = 10
	}
	return score
}

// changeLocked returns the odds delta from the newest sample at or before
// the window start to the current sample.
func (m *MomentumTracker) changeLocked(samples []oddsSample, now time.Time, window time.Duration) float64 {
	cutoff := now.Add(-window)
	current := samples[len(samples)-1].odds
	var past *float64
	for i := range samples {
		if !samples[i].ts.After(cutoff) {
			past = &samples[i].odds
		}
	}
	if past == nil {
		return 0
	}
	return current - *past
}

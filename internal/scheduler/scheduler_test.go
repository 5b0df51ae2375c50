package scheduler

import (
	"context"
	"testing"
	"time"

	"exasignal/internal/alert"
	polymarketgamma "exasignal/internal/client/polymarket/gamma"
	"exasignal/internal/config"
	"exasignal/internal/models"
	"exasignal/internal/whale"
)

func overnightScheduler() *Scheduler {
	return New(config.SchedulerConfig{
		MarketOpenHourUTC:  13,
		MarketCloseHourUTC: 2,
		WhaleScanActive:    300 * time.Second,
		WhaleScanOffHours:  1800 * time.Second,
		MaxSignalsPerHour:  10,
	}, config.SignalConfig{KeepRecent: 3}, nil)
}

func atHour(h int) time.Time {
	return time.Date(2026, 3, 2, h, 30, 0, 0, time.UTC)
}

func TestIsMarketHours_OvernightWindow(t *testing.T) {
	s := overnightScheduler()
	cases := []struct {
		hour int
		want bool
	}{
		{13, true},  // opens
		{18, true},  // evening US
		{23, true},  // late US
		{0, true},   // past midnight UTC, still US evening
		{1, true},   // last hour of the window
		{2, false},  // closes
		{7, false},  // overnight
		{12, false}, // just before open
	}
	for _, tc := range cases {
		if got := s.IsMarketHours(atHour(tc.hour)); got != tc.want {
			t.Errorf("hour=%02d: market hours=%v want=%v", tc.hour, got, tc.want)
		}
	}
}

func TestIsMarketHours_PlainWindow(t *testing.T) {
	s := New(config.SchedulerConfig{MarketOpenHourUTC: 9, MarketCloseHourUTC: 17}, config.SignalConfig{}, nil)
	if !s.IsMarketHours(atHour(12)) {
		t.Fatal("noon inside a 9-17 window")
	}
	if s.IsMarketHours(atHour(18)) {
		t.Fatal("evening outside a 9-17 window")
	}
}

func TestCurrentInterval(t *testing.T) {
	s := overnightScheduler()
	if got := s.CurrentInterval(atHour(15)); got != 300*time.Second {
		t.Fatalf("active interval=%v want=300s", got)
	}
	if got := s.CurrentInterval(atHour(7)); got != 1800*time.Second {
		t.Fatalf("off-hours interval=%v want=1800s", got)
	}
}

func TestRecentSignalsRing(t *testing.T) {
	s := overnightScheduler()
	for i := 0; i < 5; i++ {
		s.keepRecent(&models.Signal{MarketID: string(rune('a' + i))})
	}

	recent := s.RecentSignals(0)
	if len(recent) != 3 {
		t.Fatalf("len=%d want=3 (KeepRecent)", len(recent))
	}
	// Newest first.
	if recent[0].MarketID != "e" || recent[2].MarketID != "c" {
		t.Fatalf("order=%s,%s,%s want=e,d,c",
			recent[0].MarketID, recent[1].MarketID, recent[2].MarketID)
	}

	limited := s.RecentSignals(1)
	if len(limited) != 1 || limited[0].MarketID != "e" {
		t.Fatalf("limited=%v", limited)
	}
}

func TestHourlyCounterResets(t *testing.T) {
	s := overnightScheduler()
	s.signalsThisHour = 7

	s.resetHourlyCounter(atHour(14))
	if s.signalsThisHour != 0 {
		t.Fatalf("first tick of a new hour must reset, got %d", s.signalsThisHour)
	}

	s.signalsThisHour = 4
	s.resetHourlyCounter(atHour(14).Add(10 * time.Minute))
	if s.signalsThisHour != 4 {
		t.Fatalf("same hour must not reset, got %d", s.signalsThisHour)
	}

	s.resetHourlyCounter(atHour(15))
	if s.signalsThisHour != 0 {
		t.Fatalf("hour rollover must reset, got %d", s.signalsThisHour)
	}
}

func TestGetStatus(t *testing.T) {
	s := overnightScheduler()
	s.stats.SignalsGenerated = 12
	s.signalsThisHour = 2

	st := s.GetStatus()
	if st.Running {
		t.Fatal("scheduler not started")
	}
	if st.SignalsThisHour != 2 {
		t.Fatalf("signals_this_hour=%d want=2", st.SignalsThisHour)
	}
	if st.Stats.SignalsGenerated != 12 {
		t.Fatalf("stats=%+v", st.Stats)
	}
	if st.IntervalSeconds != 300 && st.IntervalSeconds != 1800 {
		t.Fatalf("interval=%d want one of the configured cadences", st.IntervalSeconds)
	}
}

func TestProcessSkipsMarketInsideCooldown(t *testing.T) {
	repo := &stubRepo{alertsSince: 1}
	s := overnightScheduler()
	s.Repo = repo
	s.Alerts = &alert.Generator{Repo: repo, Cfg: config.AlertConfig{Cooldown: time.Hour}}

	market := &models.Market{ID: "m1", Name: "Will X happen"}
	trigger := &models.Trigger{Type: models.TriggerWhale, Whale: &models.WhaleEvent{MarketID: "m1"}}

	// A nil Generator would panic if the cooldown gate let this through.
	s.process(context.Background(), trigger, market, 50, 100000)

	if len(repo.signals) != 0 {
		t.Fatalf("signals=%d want=0, trigger should stop before generation", len(repo.signals))
	}
}

func TestPersistSignalReturnsStoredRecord(t *testing.T) {
	repo := &stubRepo{}
	s := overnightScheduler()
	s.Repo = repo

	sig := &models.Signal{
		MarketID:   "m1",
		MarketName: "Will X happen",
		Direction:  models.DirectionYes,
		Verdict:    models.Verdict{Direction: models.DirectionYes, Confidence: 70},
		Trigger:    &models.Trigger{Type: models.TriggerWhale},
	}
	rec := s.persistSignal(context.Background(), sig)
	if rec == nil || rec.ID == 0 {
		t.Fatalf("rec=%+v want stored row with id", rec)
	}
	if rec.Dispatched {
		t.Fatal("rows start undispatched, the flag flips only after a send")
	}
}

func TestSweepResolutionsSettlesClosedMarkets(t *testing.T) {
	repo := &stubRepo{}
	s := overnightScheduler()
	s.Repo = repo
	s.Profiles = whale.NewProfileBuilder(repo, nil, nil)
	s.Gamma = &stubGamma{markets: map[string]*polymarketgamma.Market{
		"m-closed": {ID: "m-closed", Closed: true, YesPrice: 0.97},
		"m-open":   {ID: "m-open", Closed: false, YesPrice: 0.40},
	}}
	ctx := context.Background()

	politics := &models.Market{ID: "m-closed", Category: "politics"}
	s.trackPosition(&models.WhaleEvent{MarketID: "m-closed", WalletAddress: "0xwin", Direction: models.DirectionYes}, politics)
	s.trackPosition(&models.WhaleEvent{MarketID: "m-closed", WalletAddress: "0xlose", Direction: models.DirectionNo}, politics)
	s.trackPosition(&models.WhaleEvent{MarketID: "m-open", WalletAddress: "0xwait", Direction: models.DirectionYes},
		&models.Market{ID: "m-open", Category: "politics"})

	s.sweepResolutions(ctx)

	win := s.Profiles.Build(ctx, "0xwin")
	if win == nil || win.WinRate != 100 {
		t.Fatalf("winner profile=%+v want 100%% win rate", win)
	}
	lose := s.Profiles.Build(ctx, "0xlose")
	if lose == nil || lose.CategoryStats["politics"] == nil || lose.CategoryStats["politics"].Wins != 0 {
		t.Fatalf("loser profile=%+v want a recorded loss", lose)
	}
	if len(s.positions) != 1 || s.positions[0].marketID != "m-open" {
		t.Fatalf("positions=%+v want only the open market left", s.positions)
	}
}

func TestTrackPositionDedupes(t *testing.T) {
	repo := &stubRepo{}
	s := overnightScheduler()
	s.Repo = repo
	s.Profiles = whale.NewProfileBuilder(repo, nil, nil)

	market := &models.Market{ID: "m1", Category: "sports"}
	ev := &models.WhaleEvent{MarketID: "m1", WalletAddress: "0xw", Direction: models.DirectionYes}
	s.trackPosition(ev, market)
	s.trackPosition(ev, market)

	if len(s.positions) != 1 {
		t.Fatalf("positions=%d want=1", len(s.positions))
	}
}

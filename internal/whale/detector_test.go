package whale

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	polymarketdata "exasignal/internal/client/polymarket/data"
	"exasignal/internal/config"
	"exasignal/internal/models"
)

type stubFeed struct {
	trades []polymarketdata.Trade
	err    error
}

func (s *stubFeed) GetTrades(ctx context.Context, marketID string, limit int) ([]polymarketdata.Trade, error) {
	return s.trades, s.err
}

type stubLiquidity struct {
	liquidity float64
	err       error
}

func (s *stubLiquidity) GetLiquidity(ctx context.Context, marketID string) (float64, error) {
	return s.liquidity, s.err
}

func whaleCfg() config.WhaleConfig {
	return config.WhaleConfig{
		MinSizeUSD:       10000,
		LiquidityPercent: 0.02,
		InactivityDays:   14,
		MaxDailyTrades:   50,
		MaxMonthlyTrades: 500,
	}
}

func buyYes(wallet string, usd float64, ts time.Time) polymarketdata.Trade {
	return polymarketdata.Trade{
		MarketID:      "m1",
		WalletAddress: wallet,
		Side:          "BUY",
		Outcome:       "Yes",
		Price:         decimal.NewFromFloat(0.5),
		Size:          decimal.NewFromFloat(usd / 0.5),
		Timestamp:     ts,
	}
}

func newDetector(repo *stubRepo, feed *stubFeed, liq *stubLiquidity) *Detector {
	return &Detector{
		Repo:      repo,
		Feed:      feed,
		Liquidity: liq,
		Filter:    NewFilter(50, 500, nil),
		Cfg:       whaleCfg(),
	}
}

func TestDetector_BelowAbsoluteFloorNoEvent(t *testing.T) {
	// $9,999 into a $10M market: 2% of liquidity is $200k, absolute floor
	// $10k, trade clears neither.
	feed := &stubFeed{trades: []polymarketdata.Trade{buyYes("0xa", 9999, time.Now().UTC())}}
	d := newDetector(newStubRepo(), feed, &stubLiquidity{liquidity: 10_000_000})

	events, err := d.Scan(context.Background(), models.Market{ID: "m1", Name: "Will X happen"})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("events=%d want=0", len(events))
	}
}

func TestDetector_DormantWhaleEmitsEvent(t *testing.T) {
	repo := newStubRepo()
	repo.wallets[walletKey("0xwhale", "m1")] = &models.WalletRecord{
		WalletAddress: "0xwhale",
		MarketID:      "m1",
		LastSeen:      time.Now().UTC().Add(-20 * 24 * time.Hour),
		TradeCount:    3,
	}
	feed := &stubFeed{trades: []polymarketdata.Trade{buyYes("0xwhale", 250_000, time.Now().UTC())}}
	d := newDetector(repo, feed, &stubLiquidity{liquidity: 5_000_000})

	events, err := d.Scan(context.Background(), models.Market{ID: "m1", Name: "Will X happen"})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events=%d want=1", len(events))
	}
	ev := events[0]
	if ev.Direction != models.DirectionYes {
		t.Fatalf("direction=%s want=YES", ev.Direction)
	}
	if !ev.IsNewPosition {
		t.Fatalf("expected new position flag")
	}
	if ev.LiquidityRatio < 0.049 || ev.LiquidityRatio > 0.051 {
		t.Fatalf("liquidity ratio=%f want~0.05", ev.LiquidityRatio)
	}
	if len(repo.touched) == 0 {
		t.Fatalf("wallet history not touched")
	}
}

func TestDetector_ActiveWalletNoEvent(t *testing.T) {
	repo := newStubRepo()
	repo.wallets[walletKey("0xactive", "m1")] = &models.WalletRecord{
		WalletAddress: "0xactive",
		MarketID:      "m1",
		LastSeen:      time.Now().UTC().Add(-2 * 24 * time.Hour),
		TradeCount:    8,
	}
	feed := &stubFeed{trades: []polymarketdata.Trade{buyYes("0xactive", 250_000, time.Now().UTC())}}
	d := newDetector(repo, feed, &stubLiquidity{liquidity: 5_000_000})

	events, err := d.Scan(context.Background(), models.Market{ID: "m1", Name: "Will X happen"})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("events=%d want=0", len(events))
	}
	// Seen-again trades still refresh dormancy tracking.
	if len(repo.touched) == 0 {
		t.Fatalf("wallet history not touched")
	}
}

func TestDetector_ExcludedMarketPattern(t *testing.T) {
	feed := &stubFeed{trades: []polymarketdata.Trade{buyYes("0xwhale", 250_000, time.Now().UTC())}}
	d := newDetector(newStubRepo(), feed, &stubLiquidity{liquidity: 5_000_000})

	for _, name := range []string{
		"Bitcoin Up or Down - March 7",
		"Will ETH price be above $5000",
	} {
		events, err := d.Scan(context.Background(), models.Market{ID: "m1", Name: name})
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		if len(events) != 0 {
			t.Fatalf("market %q should be excluded", name)
		}
	}
}

func TestDetector_LiquidityFetchFailureSkips(t *testing.T) {
	feed := &stubFeed{trades: []polymarketdata.Trade{buyYes("0xwhale", 250_000, time.Now().UTC())}}
	d := newDetector(newStubRepo(), feed, &stubLiquidity{err: context.DeadlineExceeded})

	events, err := d.Scan(context.Background(), models.Market{ID: "m1", Name: "Will X happen"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(events) != 0 {
		t.Fatalf("no events on failed liquidity fetch")
	}
}

func TestDetector_DurableFrequencySkips(t *testing.T) {
	repo := newStubRepo()
	repo.todayTrades = 50
	feed := &stubFeed{trades: []polymarketdata.Trade{buyYes("0xbot", 250_000, time.Now().UTC())}}
	d := newDetector(repo, feed, &stubLiquidity{liquidity: 5_000_000})

	events, err := d.Scan(context.Background(), models.Market{ID: "m1", Name: "Will X happen"})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("events=%d want=0, wallet over the daily trade ceiling", len(events))
	}
	if len(repo.touched) == 0 {
		t.Fatal("history must still be touched for skipped wallets")
	}
}

func TestDetector_ProfileAttachedToEvent(t *testing.T) {
	repo := newStubRepo()
	end := time.Now().UTC().Add(10 * 24 * time.Hour)
	feed := &stubFeed{trades: []polymarketdata.Trade{buyYes("0xwhale", 250_000, time.Now().UTC())}}
	d := newDetector(repo, feed, &stubLiquidity{liquidity: 5_000_000})
	d.Profiles = NewProfileBuilder(repo, nil, nil)

	events, err := d.Scan(context.Background(), models.Market{ID: "m1", Name: "Will X happen", Category: "politics", EndDate: &end})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events=%d want=1", len(events))
	}
	p := events[0].Profile
	if p == nil {
		t.Fatal("profile not attached")
	}
	if p.TotalVolumeUSD < 249_000 {
		t.Fatalf("volume=%f, observed trade not accumulated", p.TotalVolumeUSD)
	}
	if p.YesBets != 1 {
		t.Fatalf("yes_bets=%d want=1", p.YesBets)
	}
	if p.Timing == nil || p.Timing.AvgDaysBeforeClose < 9.9 || p.Timing.AvgDaysBeforeClose > 10.1 {
		t.Fatalf("timing=%+v want avg ~10 days", p.Timing)
	}
}

func TestDetector_OffSpecialtyWhaleSkipped(t *testing.T) {
	repo := newStubRepo()
	feed := &stubFeed{trades: []polymarketdata.Trade{buyYes("0xcrypto", 250_000, time.Now().UTC())}}
	d := newDetector(repo, feed, &stubLiquidity{liquidity: 5_000_000})
	d.Profiles = NewProfileBuilder(repo, nil, nil)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		d.Profiles.RecordOutcome(ctx, "0xcrypto", "crypto", true)
	}

	events, err := d.Scan(ctx, models.Market{ID: "m1", Name: "Will X happen", Category: "politics"})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("events=%d want=0, crypto specialist in a politics market", len(events))
	}
}

func TestMarketExcluded(t *testing.T) {
	cases := map[string]bool{
		"Will the Fed cut rates in March": false,
		"Bitcoin up/down daily":           true,
		"Will SOL be below $100":          true,
		"Presidential election winner":    false,
		"Gold price at end of year":       true,
	}
	for name, want := range cases {
		if got := MarketExcluded(name); got != want {
			t.Fatalf("MarketExcluded(%q)=%v want=%v", name, got, want)
		}
	}
}

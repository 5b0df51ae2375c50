package models

import "testing"

func TestFormatUSD(t *testing.T) {
	cases := []struct {
		amount float64
		want   string
	}{
		{500, "$500"},
		{999, "$999"},
		{1_000, "$1k"},
		{25_000, "$25k"},
		{999_999, "$1000k"},
		{1_000_000, "$1.0M"},
		{1_500_000, "$1.5M"},
	}
	for _, tc := range cases {
		if got := FormatUSD(tc.amount); got != tc.want {
			t.Errorf("FormatUSD(%v)=%q want=%q", tc.amount, got, tc.want)
		}
	}
}

func TestWhaleProfileTier(t *testing.T) {
	cases := []struct {
		name    string
		profile WhaleProfile
		want    string
	}{
		{"shark", WhaleProfile{TotalTrades: 60, WinRate: 72}, TierShark},
		{"mega whale", WhaleProfile{TotalTrades: 10, TotalVolumeUSD: 600_000}, TierMegaWhale},
		{"whale", WhaleProfile{TotalTrades: 10, TotalVolumeUSD: 150_000}, TierWhale},
		{"dolphin", WhaleProfile{TotalTrades: 25, TotalVolumeUSD: 50_000}, TierDolphin},
		{"new trader", WhaleProfile{TotalTrades: 3}, TierNewTrader},
		{"active but losing", WhaleProfile{TotalTrades: 60, WinRate: 40}, TierDolphin},
	}
	for _, tc := range cases {
		if got := tc.profile.Tier(); got != tc.want {
			t.Errorf("%s: tier=%q want=%q", tc.name, got, tc.want)
		}
	}
}

func TestDirectionalBias(t *testing.T) {
	p := &WhaleProfile{YesBets: 9, NoBets: 1}
	if bias := p.DirectionalBias(); bias != 0.8 {
		t.Fatalf("bias=%v want=0.8", bias)
	}
	if p.IsOneSided() {
		t.Fatal("0.8 bias is the boundary, not one-sided")
	}
	p = &WhaleProfile{YesBets: 10}
	if !p.IsOneSided() {
		t.Fatal("all-YES wallet is one-sided")
	}
	p = &WhaleProfile{}
	if p.DirectionalBias() != 0 {
		t.Fatal("no bets means no bias")
	}
}

func TestSpecialtyCategory(t *testing.T) {
	p := &WhaleProfile{}
	for i := 0; i < 8; i++ {
		p.AddCategoryResult("politics", i < 6) // 6 of 8
	}
	for i := 0; i < 10; i++ {
		p.AddCategoryResult("crypto", i < 4) // 4 of 10
	}
	p.AddCategoryResult("sports", true) // too few to qualify

	if got := p.SpecialtyCategory(); got != "politics" {
		t.Fatalf("specialty=%q want=politics", got)
	}

	// Best qualifying category below 60% means no specialty.
	p = &WhaleProfile{}
	for i := 0; i < 10; i++ {
		p.AddCategoryResult("crypto", i < 5)
	}
	if got := p.SpecialtyCategory(); got != "" {
		t.Fatalf("specialty=%q want empty", got)
	}
}

func TestIsRelevantForCategory(t *testing.T) {
	specialist := &WhaleProfile{}
	for i := 0; i < 10; i++ {
		specialist.AddCategoryResult("politics", i < 7)
	}
	if !specialist.IsRelevantForCategory("Politics") {
		t.Fatal("specialty match is case-insensitive")
	}
	if specialist.IsRelevantForCategory("crypto") {
		t.Fatal("specialist outside their category is not relevant")
	}

	// No track record gets the benefit of the doubt.
	novice := &WhaleProfile{}
	if !novice.IsRelevantForCategory("crypto") {
		t.Fatal("wallet without a specialty is always relevant")
	}

	// A high win-rate mega whale bypasses the specialty check.
	mega := &WhaleProfile{TotalVolumeUSD: 600_000, WinRate: 80}
	for i := 0; i < 10; i++ {
		mega.AddCategoryResult("politics", i < 7)
	}
	if !mega.IsRelevantForCategory("crypto") {
		t.Fatal("mega whale with 75%+ win rate bypasses specialty")
	}
}

func TestBetTimingType(t *testing.T) {
	cases := []struct {
		days float64
		want string
	}{
		{45, TimingEarlyBird},
		{30, TimingMomentum},
		{10, TimingMomentum},
		{7, TimingSniper},
		{1, TimingSniper},
	}
	for _, tc := range cases {
		p := BetTimingProfile{AvgDaysBeforeClose: tc.days, TotalBetsAnalyzed: 10}
		if got := p.TimingType(); got != tc.want {
			t.Errorf("days=%v: type=%q want=%q", tc.days, got, tc.want)
		}
	}
}

func TestCategoryWinRate(t *testing.T) {
	c := CategoryPerformance{TotalBets: 8, Wins: 6}
	if got := c.WinRate(); got != 75 {
		t.Fatalf("win rate=%v want=75", got)
	}
	if (CategoryPerformance{}).WinRate() != 0 {
		t.Fatal("no bets means zero win rate")
	}
}

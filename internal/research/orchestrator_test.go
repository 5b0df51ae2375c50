package research

import (
	"context"
	"errors"
	"testing"
	"time"

	"exasignal/internal/client/search"
	"exasignal/internal/config"
	"exasignal/internal/models"
)

func researchCfg() config.ResearchConfig {
	return config.ResearchConfig{
		CacheTTL:          24 * time.Hour,
		NewsAPIDailyLimit: 100,
		NewsAPIReserve:    0.2,
		NewsAPIPerTrigger: 3,
		ExaDailyLimit:     25,
		MinFreeResults:    5,
	}
}

func electionMarket() *models.Market {
	return &models.Market{
		ID:            "mkt-1",
		Name:          "Will candidate X win the election",
		Category:      "politics",
		YesDefinition: "candidate wins declared victory elected",
		NoDefinition:  "candidate loses concedes defeated",
		Tags:          []byte(`["election","politics","2026"]`),
		Active:        true,
	}
}

func docs(source string, n int) []models.ResearchResult {
	out := make([]models.ResearchResult, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.ResearchResult{
			Title:       "headline",
			Source:      source,
			PublishedAt: time.Now().UTC().Add(-time.Hour),
		})
	}
	return out
}

func newOrchestrator(repo *stubRepo, free []search.Provider, newsapi, exa search.Provider) *Orchestrator {
	return &Orchestrator{
		Free:    free,
		NewsAPI: newsapi,
		Exa:     exa,
		Cache:   &Cache{Repo: repo, TTL: time.Hour},
		Repo:    repo,
		Cfg:     researchCfg(),
	}
}

func TestBuildQueries(t *testing.T) {
	queries := BuildQueries(electionMarket())
	if len(queries) != 2 {
		t.Fatalf("queries=%d want=2", len(queries))
	}
	if queries[0] != "Will candidate X win the election" {
		t.Fatalf("primary query=%q", queries[0])
	}
	if queries[1] != "election politics 2026" {
		t.Fatalf("tag query=%q", queries[1])
	}
	if BuildQueries(nil) != nil {
		t.Fatal("nil market should produce no queries")
	}
}

func TestBuildQueries_TagQueryEqualToNameSkipped(t *testing.T) {
	m := &models.Market{ID: "m", Name: "bitcoin etf", Tags: []byte(`["bitcoin","etf"]`)}
	queries := BuildQueries(m)
	if len(queries) != 1 {
		t.Fatalf("queries=%d want=1 (%v)", len(queries), queries)
	}
}

func TestResearch_MergesFreeProviders(t *testing.T) {
	repo := newStubRepo()
	brave := &stubProvider{name: models.SourceBrave, available: true, results: docs(models.SourceBrave, 2)}
	rss := &stubProvider{name: models.SourceRSS, available: true, results: docs(models.SourceRSS, 3)}
	o := newOrchestrator(repo, []search.Provider{brave, rss}, nil, nil)

	out, err := o.Research(context.Background(), Request{
		Market:  electionMarket(),
		Queries: []string{"election"},
	})
	if err != nil {
		t.Fatalf("research: %v", err)
	}
	if len(out.Results) != 5 {
		t.Fatalf("results=%d want=5", len(out.Results))
	}
	if len(out.DegradedSources) != 0 {
		t.Fatalf("degraded=%v want none", out.DegradedSources)
	}
	if out.MarketID != "mkt-1" {
		t.Fatalf("market_id=%q", out.MarketID)
	}
}

func TestResearch_FreeProviderFailureDegrades(t *testing.T) {
	repo := newStubRepo()
	brave := &stubProvider{name: models.SourceBrave, available: true, err: errors.New("http 500")}
	rss := &stubProvider{name: models.SourceRSS, available: true, results: docs(models.SourceRSS, 2)}
	o := newOrchestrator(repo, []search.Provider{brave, rss}, nil, nil)

	out, err := o.Research(context.Background(), Request{Queries: []string{"election"}})
	if err != nil {
		t.Fatalf("a provider failure must not fail the pass: %v", err)
	}
	if len(out.Results) != 2 {
		t.Fatalf("results=%d want=2", len(out.Results))
	}
	var degradedBrave bool
	for _, s := range out.DegradedSources {
		if s == models.SourceBrave {
			degradedBrave = true
		}
	}
	if !degradedBrave {
		t.Fatalf("degraded=%v want brave listed", out.DegradedSources)
	}
}

func TestResearch_FailedProviderNotRetriedWhileNegativeCached(t *testing.T) {
	repo := newStubRepo()
	rss := &stubProvider{name: models.SourceRSS, available: true, err: errors.New("feed timeout")}
	o := newOrchestrator(repo, []search.Provider{rss}, nil, nil)
	ctx := context.Background()

	if _, err := o.Research(ctx, Request{Queries: []string{"election"}}); err != nil {
		t.Fatalf("research: %v", err)
	}
	if rss.calls != 1 {
		t.Fatalf("calls=%d want=1", rss.calls)
	}

	out, err := o.Research(ctx, Request{Queries: []string{"election"}})
	if err != nil {
		t.Fatalf("second research: %v", err)
	}
	if rss.calls != 1 {
		t.Fatalf("calls=%d want=1, failure should be held by the cache", rss.calls)
	}
	if len(out.Results) != 0 {
		t.Fatalf("results=%d want=0", len(out.Results))
	}
}

func TestResearch_FreeProviderCacheHitSkipsCall(t *testing.T) {
	repo := newStubRepo()
	rss := &stubProvider{name: models.SourceRSS, available: true, results: docs(models.SourceRSS, 2)}
	o := newOrchestrator(repo, []search.Provider{rss}, nil, nil)
	ctx := context.Background()

	o.Cache.Put(ctx, models.SourceRSS, "election", docs(models.SourceRSS, 4))

	out, err := o.Research(ctx, Request{Queries: []string{"election"}})
	if err != nil {
		t.Fatalf("research: %v", err)
	}
	if rss.calls != 0 {
		t.Fatalf("provider called %d times despite cache hit", rss.calls)
	}
	if len(out.Results) != 4 {
		t.Fatalf("results=%d want=4 from cache", len(out.Results))
	}
}

func TestResearch_NewsAPICacheHitSkipsQuota(t *testing.T) {
	repo := newStubRepo()
	newsapi := &stubProvider{name: models.SourceNewsAPI, metered: true, available: true, results: docs(models.SourceNewsAPI, 1)}
	o := newOrchestrator(repo, nil, newsapi, nil)
	ctx := context.Background()

	o.Cache.Put(ctx, models.SourceNewsAPI, "election", docs(models.SourceNewsAPI, 2))

	out, err := o.Research(ctx, Request{TriggerID: "trig-1", Queries: []string{"election"}})
	if err != nil {
		t.Fatalf("research: %v", err)
	}
	if newsapi.calls != 0 {
		t.Fatal("cache hit must not spend a request")
	}
	used, _ := repo.GetQuotaUsed(ctx, models.SourceNewsAPI, models.QuotaDay(time.Now()))
	if used != 0 {
		t.Fatalf("quota used=%d want=0", used)
	}
	if len(out.Results) != 2 {
		t.Fatalf("results=%d want=2", len(out.Results))
	}
}

func TestResearch_NewsAPIPerTriggerCap(t *testing.T) {
	repo := newStubRepo()
	newsapi := &stubProvider{name: models.SourceNewsAPI, metered: true, available: true, results: docs(models.SourceNewsAPI, 1)}
	o := newOrchestrator(repo, nil, newsapi, nil)
	ctx := context.Background()

	repo.triggers["trig-1|"+models.SourceNewsAPI] = 3

	out, err := o.Research(ctx, Request{TriggerID: "trig-1", Queries: []string{"election"}})
	if err != nil {
		t.Fatalf("research: %v", err)
	}
	if newsapi.calls != 0 {
		t.Fatal("per-trigger cap must block the request")
	}
	if len(out.DegradedSources) == 0 || out.DegradedSources[len(out.DegradedSources)-1] != models.SourceNewsAPI {
		t.Fatalf("degraded=%v want newsapi listed", out.DegradedSources)
	}
}

func TestResearch_NewsAPIQuotaReserveFloor(t *testing.T) {
	repo := newStubRepo()
	ctx := context.Background()
	day := models.QuotaDay(time.Now())

	// One request short of the floor: the pass may still spend.
	repo.quota[models.SourceNewsAPI+"|"+day] = 79

	newsapi := &stubProvider{name: models.SourceNewsAPI, metered: true, available: true, results: docs(models.SourceNewsAPI, 1)}
	o := newOrchestrator(repo, nil, newsapi, nil)

	if _, err := o.Research(ctx, Request{Queries: []string{"below floor"}}); err != nil {
		t.Fatalf("research: %v", err)
	}
	if newsapi.calls != 1 {
		t.Fatalf("calls=%d want=1 below the floor", newsapi.calls)
	}
	used, _ := repo.GetQuotaUsed(ctx, models.SourceNewsAPI, day)
	if used != 80 {
		t.Fatalf("quota used=%d want=80", used)
	}

	// At 80 of 100 only the 20% reserve remains; every pass stops here,
	// breaking-news triggers included.
	if _, err := o.Research(ctx, Request{Queries: []string{"breaking: at the floor"}}); err != nil {
		t.Fatalf("research: %v", err)
	}
	if newsapi.calls != 1 {
		t.Fatalf("calls=%d want=1, the reserve floor admits no pass", newsapi.calls)
	}
	used, _ = repo.GetQuotaUsed(ctx, models.SourceNewsAPI, day)
	if used != 80 {
		t.Fatalf("quota used=%d want=80 after refused pass", used)
	}
}

func TestResearch_ExaQuotaExhaustedDegrades(t *testing.T) {
	repo := newStubRepo()
	ctx := context.Background()
	repo.quota[models.SourceExa+"|"+models.QuotaDay(time.Now())] = 25

	exa := &stubProvider{name: models.SourceExa, metered: true, available: true, results: docs(models.SourceExa, 1)}
	o := newOrchestrator(repo, nil, nil, exa)

	out, err := o.Research(ctx, Request{Queries: []string{"election"}, ForceExa: true})
	if err != nil {
		t.Fatalf("research: %v", err)
	}
	if exa.calls != 0 {
		t.Fatal("exhausted quota must block the request")
	}
	var degradedExa bool
	for _, s := range out.DegradedSources {
		if s == models.SourceExa {
			degradedExa = true
		}
	}
	if !degradedExa {
		t.Fatalf("degraded=%v want exa listed", out.DegradedSources)
	}
}

func TestShouldUseExa(t *testing.T) {
	exa := &stubProvider{name: models.SourceExa, metered: true, available: true}
	o := newOrchestrator(newStubRepo(), nil, nil, exa)
	plenty := docs(models.SourceRSS, 6)

	cases := []struct {
		name     string
		req      Request
		query    string
		gathered []models.ResearchResult
		want     bool
	}{
		{"forced", Request{ForceExa: true, OddsYes: 0.9}, "q", plenty, true},
		{"thin coverage", Request{OddsYes: 0.9}, "q", docs(models.SourceRSS, 2), true},
		{"toss-up odds", Request{OddsYes: 0.50}, "q", plenty, true},
		{"odds at lower bound", Request{OddsYes: 0.40}, "q", plenty, true},
		{"urgency in query", Request{OddsYes: 0.9}, "breaking: markets move", plenty, true},
		{"urgency in gathered title", Request{OddsYes: 0.9}, "q",
			append(docs(models.SourceRSS, 5), models.ResearchResult{Title: "Deal just announced"}), true},
		{"calm market with coverage", Request{OddsYes: 0.9}, "q", plenty, false},
	}
	for _, tc := range cases {
		if got := o.shouldUseExa(tc.req, tc.query, tc.gathered); got != tc.want {
			t.Errorf("%s: got=%v want=%v", tc.name, got, tc.want)
		}
	}

	o.Exa = nil
	if o.shouldUseExa(Request{ForceExa: true}, "q", nil) {
		t.Error("no exa provider configured must never escalate")
	}
}

func TestResearch_DirectionTagging(t *testing.T) {
	repo := newStubRepo()
	rss := &stubProvider{name: models.SourceRSS, available: true, results: []models.ResearchResult{
		{Title: "Victory confirmed: campaign success achieved in first returns", Source: models.SourceRSS},
		{Title: "Quiet day on the trail", Source: models.SourceRSS},
	}}
	o := newOrchestrator(repo, []search.Provider{rss}, nil, nil)

	out, err := o.Research(context.Background(), Request{
		Market:  electionMarket(),
		Queries: []string{"election"},
	})
	if err != nil {
		t.Fatalf("research: %v", err)
	}
	if len(out.Results) != 2 {
		t.Fatalf("results=%d want=2", len(out.Results))
	}
	if out.Results[0].SupportsDirection != models.DirectionYes {
		t.Fatalf("direction=%q want=YES", out.Results[0].SupportsDirection)
	}
	if out.Results[1].SupportsDirection != models.DirectionNeutral {
		t.Fatalf("direction=%q want=NEUTRAL", out.Results[1].SupportsDirection)
	}
}

package research

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"exasignal/internal/client/search"
	"exasignal/internal/config"
	"exasignal/internal/models"
	"exasignal/internal/repository"
)

// urgencyKeywords escalate a research pass to paid search when they appear
// in the evidence gathered so far.
var urgencyKeywords = []string{"breaking", "urgent", "just announced", "confirmed"}

// Request describes one research pass for a market question. Queries are
// derived from the market when empty: the market name first, then a
// tag-derived query.
type Request struct {
	Market    *models.Market
	TriggerID string
	Queries   []string

	// OddsYes is the current YES price (0-1). Mid-range odds mean the
	// market itself is uncertain, which justifies paid search.
	OddsYes float64

	// ForceExa skips the fallback conditions and always queries Exa,
	// subject to quota.
	ForceExa bool
}

// Orchestrator fans a query across the free providers, spends metered quota
// only under guardrails, and merges everything into one evidence set. A
// provider failure degrades the result, it never fails the pass.
type Orchestrator struct {
	Free    []search.Provider
	NewsAPI search.Provider
	Exa     search.Provider
	Cache   *Cache
	Repo    repository.Repository
	Cfg     config.ResearchConfig
	Logger  *zap.Logger
}

func (o *Orchestrator) Research(ctx context.Context, req Request) (*models.ResearchResults, error) {
	started := time.Now()
	queries := req.Queries
	if len(queries) == 0 {
		queries = BuildQueries(req.Market)
	}
	out := &models.ResearchResults{
		TriggerID: req.TriggerID,
		FetchedAt: started.UTC(),
	}
	if req.Market != nil {
		out.MarketID = req.Market.ID
	}
	if len(queries) == 0 {
		return out, nil
	}

	for _, query := range queries {
		free, degraded := o.searchFree(ctx, query)
		out.Results = append(out.Results, free...)
		out.DegradedSources = append(out.DegradedSources, degraded...)
		out.QueriesExecuted = append(out.QueriesExecuted, query)
	}

	// Metered providers only see the primary query.
	primary := queries[0]
	if newsResults, ok := o.searchNewsAPI(ctx, req, primary); ok {
		out.Results = append(out.Results, newsResults...)
	} else {
		out.DegradedSources = append(out.DegradedSources, models.SourceNewsAPI)
	}

	if o.shouldUseExa(req, primary, out.Results) {
		if exaResults, ok := o.searchExa(ctx, primary); ok {
			out.Results = append(out.Results, exaResults...)
		} else {
			out.DegradedSources = append(out.DegradedSources, models.SourceExa)
		}
	}

	o.tag(out.Results)
	out.ExecutionTimeMs = time.Since(started).Milliseconds()
	return out, nil
}

// BuildQueries derives up to three research queries from a market: the
// market name, then a tag-derived query.
func BuildQueries(market *models.Market) []string {
	if market == nil {
		return nil
	}
	var queries []string
	if name := strings.TrimSpace(market.Name); name != "" {
		queries = append(queries, name)
	}
	if tags := market.TagList(); len(tags) > 0 {
		n := len(tags)
		if n > 3 {
			n = 3
		}
		tagQuery := strings.Join(tags[:n], " ")
		if tagQuery != "" && !strings.EqualFold(tagQuery, market.Name) {
			queries = append(queries, tagQuery)
		}
	}
	return queries
}

func (o *Orchestrator) searchFree(ctx context.Context, query string) ([]models.ResearchResult, []string) {
	var mu sync.Mutex
	var results []models.ResearchResult
	var degraded []string
	var wg sync.WaitGroup
	for _, p := range o.Free {
		if p == nil || !p.Available() {
			continue
		}
		wg.Add(1)
		go func(p search.Provider) {
			defer wg.Done()
			if cached := o.Cache.Get(ctx, p.Name(), query); cached != nil {
				mu.Lock()
				results = append(results, cached...)
				mu.Unlock()
				return
			}
			items, err := p.Search(ctx, query, 10)
			if err != nil {
				if o.Logger != nil {
					o.Logger.Warn("research provider failed",
						zap.String("provider", p.Name()), zap.Error(err))
				}
				o.Cache.PutNegative(ctx, p.Name(), query)
				mu.Lock()
				degraded = append(degraded, p.Name())
				mu.Unlock()
				return
			}
			o.Cache.Put(ctx, p.Name(), query, items)
			mu.Lock()
			results = append(results, items...)
			mu.Unlock()
		}(p)
	}
	wg.Wait()
	return results, degraded
}

// searchNewsAPI enforces three guardrails before spending a request: the
// cache, the per-trigger cap, and the daily quota. The quota stops at the
// reserve floor, so a fifth of the daily budget always stays unspent.
func (o *Orchestrator) searchNewsAPI(ctx context.Context, req Request, query string) ([]models.ResearchResult, bool) {
	if o.NewsAPI == nil || !o.NewsAPI.Available() {
		return nil, true
	}
	if cached := o.Cache.Get(ctx, o.NewsAPI.Name(), query); cached != nil {
		return cached, true
	}
	if req.TriggerID != "" {
		_, ok, err := o.Repo.IncrementTriggerCount(ctx, req.TriggerID, o.NewsAPI.Name(), o.Cfg.NewsAPIPerTrigger)
		if err != nil || !ok {
			if o.Logger != nil {
				o.Logger.Debug("newsapi per-trigger cap reached", zap.String("trigger_id", req.TriggerID))
			}
			return nil, false
		}
	}
	limit := int(float64(o.Cfg.NewsAPIDailyLimit) * (1 - o.Cfg.NewsAPIReserve))
	day := models.QuotaDay(time.Now())
	used, ok, err := o.Repo.IncrementQuota(ctx, o.NewsAPI.Name(), day, limit)
	if err != nil || !ok {
		if o.Logger != nil {
			o.Logger.Info("newsapi quota exhausted", zap.Int("used", used), zap.Int("limit", limit))
		}
		return nil, false
	}
	items, err := o.NewsAPI.Search(ctx, query, 10)
	if err != nil {
		if o.Logger != nil {
			o.Logger.Warn("newsapi search failed", zap.Error(err))
		}
		o.Cache.PutNegative(ctx, o.NewsAPI.Name(), query)
		return nil, false
	}
	o.Cache.Put(ctx, o.NewsAPI.Name(), query, items)
	return items, true
}

// shouldUseExa decides whether the pass escalates to paid neural search:
// forced, thin free coverage, toss-up odds, or urgent language in the
// evidence.
func (o *Orchestrator) shouldUseExa(req Request, query string, gathered []models.ResearchResult) bool {
	if o.Exa == nil || !o.Exa.Available() {
		return false
	}
	if req.ForceExa {
		return true
	}
	if len(gathered) < o.Cfg.MinFreeResults {
		return true
	}
	if req.OddsYes >= 0.40 && req.OddsYes <= 0.60 {
		return true
	}
	text := strings.ToLower(query)
	for _, r := range gathered {
		text += " " + strings.ToLower(r.Title)
	}
	for _, kw := range urgencyKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func (o *Orchestrator) searchExa(ctx context.Context, query string) ([]models.ResearchResult, bool) {
	if cached := o.Cache.Get(ctx, o.Exa.Name(), query); cached != nil {
		return cached, true
	}
	day := models.QuotaDay(time.Now())
	used, ok, err := o.Repo.IncrementQuota(ctx, o.Exa.Name(), day, o.Cfg.ExaDailyLimit)
	if err != nil || !ok {
		if o.Logger != nil {
			o.Logger.Info("exa quota exhausted", zap.Int("used", used))
		}
		return nil, false
	}
	items, err := o.Exa.Search(ctx, query, 5)
	if err != nil {
		if o.Logger != nil {
			o.Logger.Warn("exa search failed", zap.Error(err))
		}
		o.Cache.PutNegative(ctx, o.Exa.Name(), query)
		return nil, false
	}
	o.Cache.Put(ctx, o.Exa.Name(), query, items)
	return items, true
}

func (o *Orchestrator) tag(results []models.ResearchResult) {
	for i := range results {
		TagDirection(&results[i])
	}
}

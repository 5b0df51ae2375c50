package signalgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"exasignal/internal/config"
	"exasignal/internal/models"
	"exasignal/internal/research"
	"exasignal/internal/scoring"
)

const systemPrompt = `You are a prediction-market analyst. Respond with a single JSON object only, no prose, no markdown:
{"direction":"YES|NO|HOLD","confidence":0-100,"reasoning":"one paragraph","key_points":["..."]}
Numbers in the prompt (score, odds, liquidity, sizes) are authoritative; never recompute or invent them.`

// LanguageModel is the completion capability the generator depends on.
type LanguageModel interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Available() bool
}

// Generator turns a trigger into a signal. The enriched path runs research
// and deterministic scoring first; the model only ever supplies the textual
// judgment, every contract-bearing number is computed in code.
type Generator struct {
	Orchestrator *research.Orchestrator
	Scorer       *scoring.Scorer
	Momentum     *scoring.MomentumTracker
	Model        LanguageModel
	SignalCfg    config.SignalConfig
	ScoringCfg   config.ScoringConfig
	Logger       *zap.Logger
}

// Generate is the simple path: one model call, no research, no alignment
// score. currentOdds is the YES probability in percent.
func (g *Generator) Generate(ctx context.Context, trigger *models.Trigger, market *models.Market, currentOdds float64) (*models.Signal, error) {
	if g == nil || trigger == nil || market == nil {
		return nil, fmt.Errorf("generator requires trigger and market")
	}
	verdict := g.judge(ctx, trigger, market, currentOdds, nil, nil)
	sig := &models.Signal{
		MarketID:    market.ID,
		MarketName:  market.Name,
		Direction:   verdict.Direction,
		Verdict:     verdict,
		Trigger:     trigger,
		CurrentOdds: currentOdds,
		CreatedAt:   time.Now().UTC(),
	}
	sig.ShouldAlert = sig.Actionable(0, g.SignalCfg.MinConfidence)
	return sig, nil
}

// GenerateEnriched runs the full pipeline: research orchestration,
// deterministic alignment scoring, momentum, model judgment with the
// research summary as grounding, and the liquidity gate.
func (g *Generator) GenerateEnriched(ctx context.Context, trigger *models.Trigger, market *models.Market, currentOdds, liquidity float64) (*models.Signal, error) {
	if g == nil || trigger == nil || market == nil {
		return nil, fmt.Errorf("generator requires trigger and market")
	}
	req := research.Request{
		Market:    market,
		TriggerID: trigger.ID(),
		OddsYes:   currentOdds / 100,
	}
	results, err := g.Orchestrator.Research(ctx, req)
	if err != nil {
		return nil, err
	}
	score := g.Scorer.Score(trigger.Direction(), results, currentOdds)
	score.MomentumScore = g.Momentum.Score(market.ID)

	verdict := g.judge(ctx, trigger, market, currentOdds, &score, results)
	sig := &models.Signal{
		MarketID:        market.ID,
		MarketName:      market.Name,
		Direction:       verdict.Direction,
		Score:           &score,
		Verdict:         verdict,
		Trigger:         trigger,
		Research:        results,
		CurrentOdds:     currentOdds,
		MarketLiquidity: liquidity,
		MomentumScore:   score.MomentumScore,
		CreatedAt:       time.Now().UTC(),
	}

	shouldAlert := g.Scorer.ShouldAlert(score) &&
		sig.Actionable(g.Scorer.Threshold, g.SignalCfg.MinConfidence)
	// Liquidity gate fails open: unknown liquidity never blocks.
	if liquidity > 0 && liquidity < g.ScoringCfg.MinLiquidityUSD {
		shouldAlert = false
	}
	sig.ShouldAlert = shouldAlert
	if g.Logger != nil {
		g.Logger.Info("signal generated",
			zap.String("market_id", market.ID),
			zap.String("direction", verdict.Direction),
			zap.Float64("score", score.Total),
			zap.Int("confidence", verdict.Confidence),
			zap.Bool("should_alert", shouldAlert))
	}
	return sig, nil
}

// judge asks the model for a verdict; any failure degrades to a
// zero-confidence HOLD and never crashes the pipeline.
func (g *Generator) judge(ctx context.Context, trigger *models.Trigger, market *models.Market, currentOdds float64, score *models.ScoreResult, results *models.ResearchResults) models.Verdict {
	if g.Model == nil || !g.Model.Available() {
		return models.HoldVerdict("language model unavailable")
	}
	prompt := buildPrompt(trigger, market, currentOdds, score, results)
	raw, err := g.Model.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		if g.Logger != nil {
			g.Logger.Error("model completion failed", zap.Error(err))
		}
		return models.HoldVerdict("model completion failed")
	}
	verdict, err := ParseVerdict(raw)
	if err != nil && g.Logger != nil {
		// Parse failures indicate prompt/contract drift worth a look.
		g.Logger.Error("model verdict unparseable", zap.Error(err))
	}
	return verdict
}

func buildPrompt(trigger *models.Trigger, market *models.Market, currentOdds float64, score *models.ScoreResult, results *models.ResearchResults) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Market: %s\n", market.Name)
	fmt.Fprintf(&b, "Category: %s\n", market.Category)
	fmt.Fprintf(&b, "Current YES odds: %.1f%%\n", currentOdds)
	switch trigger.Type {
	case models.TriggerWhale:
		w := trigger.Whale
		fmt.Fprintf(&b, "Trigger: whale position %s %s (%.1f%% of market liquidity, wallet dormant %d days)\n",
			w.SizeFormatted(), w.Direction, w.LiquidityRatio*100, w.WalletInactiveDays)
		if p := w.Profile; p != nil {
			fmt.Fprintf(&b, "Wallet profile: %s tier, %d trades, %.0f%% win rate",
				p.Tier(), p.TotalTrades, p.WinRate)
			if p.IsSmartMoney {
				fmt.Fprintf(&b, ", leaderboard rank %d", p.LeaderboardRank)
			}
			if p.IsOneSided() {
				b.WriteString(", one-sided bettor")
			}
			if p.Timing != nil && p.Timing.TotalBetsAnalyzed > 0 {
				fmt.Fprintf(&b, ", %s entry pattern", p.Timing.TimingType())
			}
			if spec := p.SpecialtyCategory(); spec != "" {
				fmt.Fprintf(&b, ", specialty %s", spec)
			}
			b.WriteString("\n")
		}
	case models.TriggerNews:
		n := trigger.News
		fmt.Fprintf(&b, "Trigger: breaking news %q (%s)\n", n.Title, n.Source)
	}
	if score != nil {
		fmt.Fprintf(&b, "Alignment score (deterministic): %.0f/100\n", score.Total)
		for _, c := range score.Components {
			fmt.Fprintf(&b, "  %s: %.0f/%.0f (%s)\n", c.Name, c.Points, c.Max, c.Detail)
		}
		fmt.Fprintf(&b, "Momentum: %.1f/10\n", score.MomentumScore)
	}
	if results != nil && len(results.Results) > 0 {
		fmt.Fprintf(&b, "Research (%d results):\n", len(results.Results))
		max := len(results.Results)
		if max > 8 {
			max = 8
		}
		for _, r := range results.Results[:max] {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", r.Source, r.Title, truncate(r.Snippet, 200))
		}
	}
	b.WriteString("Given this evidence, should a trader take YES, NO, or HOLD on this market?")
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

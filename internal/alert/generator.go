package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"exasignal/internal/config"
	"exasignal/internal/models"
	"exasignal/internal/repository"
)

// ErrNotAlertable marks a signal that never reached the rate gates.
var ErrNotAlertable = fmt.Errorf("signal does not warrant an alert")

// Notifier receives generated alerts. Dispatch is fire-and-forget from the
// generator's perspective; delivery failures belong to the collaborator.
type Notifier interface {
	Dispatch(ctx context.Context, a *models.Alert)
}

// Generator is the terminal pipeline stage: it applies the global daily cap
// and per-market cooldown against the durable ledger, records the alert, and
// hands it to the notifier. Once recorded an alert is immutable.
type Generator struct {
	Repo     repository.Repository
	Notifier Notifier
	Cfg      config.AlertConfig
	Logger   *zap.Logger
}

// Generate builds, records and dispatches an alert for a signal. It returns
// the alert, or ErrNotAlertable / a rejection reason when a gate refuses.
func (g *Generator) Generate(ctx context.Context, sig *models.Signal) (*models.Alert, string, error) {
	if g == nil || g.Repo == nil || sig == nil {
		return nil, "", ErrNotAlertable
	}
	if !sig.ShouldAlert {
		return nil, "", ErrNotAlertable
	}
	now := time.Now().UTC()
	// Cheap cooldown read before building anything. The transactional gate
	// in InsertAlertGuarded stays authoritative under concurrency.
	if g.Cfg.Cooldown > 0 {
		last, err := g.Repo.LastAlertAt(ctx, sig.MarketID)
		if err == nil && last != nil && now.Sub(*last) < g.Cfg.Cooldown {
			if g.Logger != nil {
				g.Logger.Info("alert rejected",
					zap.String("market_id", sig.MarketID),
					zap.String("reason", repository.AlertRejectCooldown))
			}
			return nil, repository.AlertRejectCooldown, nil
		}
	}
	a := &models.Alert{
		ID:         uuid.NewString(),
		MarketID:   sig.MarketID,
		MarketName: sig.MarketName,
		Direction:  sig.Verdict.Direction,
		Confidence: sig.Verdict.Confidence,
		Composite:  sig.Composite(),
		CreatedAt:  now,
	}
	if sig.Score != nil {
		a.Score = sig.Score.Total
	}
	a.Render(sig)

	record := &models.AlertRecord{
		ID:         a.ID,
		MarketID:   a.MarketID,
		Direction:  a.Direction,
		Score:      a.Score,
		Confidence: a.Confidence,
		Summary:    a.Summary,
		SentAt:     now,
	}
	ok, reason, err := g.Repo.InsertAlertGuarded(ctx, record, g.Cfg.MaxPerDay, g.Cfg.Cooldown)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		if g.Logger != nil {
			g.Logger.Info("alert rejected",
				zap.String("market_id", sig.MarketID), zap.String("reason", reason))
		}
		return nil, reason, nil
	}
	if g.Notifier != nil {
		g.Notifier.Dispatch(ctx, a)
	}
	if g.Logger != nil {
		g.Logger.Info("alert dispatched",
			zap.String("alert_id", a.ID),
			zap.String("market_id", a.MarketID),
			zap.String("direction", a.Direction),
			zap.Float64("score", a.Score))
	}
	return a, "", nil
}

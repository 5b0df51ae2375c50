package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"exasignal/internal/models"
)

// LogNotifier writes alerts to the structured log. It is the default sink
// when no webhook is configured.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n *LogNotifier) Dispatch(_ context.Context, a *models.Alert) {
	if n == nil || n.Logger == nil || a == nil {
		return
	}
	n.Logger.Info("alert",
		zap.String("alert_id", a.ID),
		zap.String("market", a.MarketID),
		zap.String("direction", a.Direction),
		zap.Float64("score", a.Score),
		zap.Int("confidence", a.Confidence),
		zap.String("summary", a.Summary))
}

// WebhookNotifier POSTs the alert as JSON to a configured endpoint.
// Delivery is best effort; failures are logged, never retried here.
type WebhookNotifier struct {
	URL    string
	Client *http.Client
	Logger *zap.Logger
}

func (n *WebhookNotifier) Dispatch(ctx context.Context, a *models.Alert) {
	if n == nil || n.URL == "" || a == nil {
		return
	}
	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		if n.Logger != nil {
			n.Logger.Warn("alert webhook delivery failed", zap.String("alert_id", a.ID), zap.Error(err))
		}
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && n.Logger != nil {
		n.Logger.Warn("alert webhook rejected",
			zap.String("alert_id", a.ID), zap.Int("status", resp.StatusCode))
	}
}

package models

import (
	"fmt"
	"strings"
	"time"
)

// Alert is the rendered, dispatchable form of an actionable signal.
type Alert struct {
	ID         string    `json:"id"`
	MarketID   string    `json:"market_id"`
	MarketName string    `json:"market_name"`
	Direction  string    `json:"direction"`
	Score      float64   `json:"score"`
	Confidence int       `json:"confidence"`
	Composite  float64   `json:"composite"`
	Summary    string    `json:"summary"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// Render builds the human-readable alert body from a signal.
func (a *Alert) Render(sig *Signal) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", sig.Verdict.Direction, sig.MarketName)
	if sig.Score != nil {
		fmt.Fprintf(&b, "Score %.0f/100, confidence %d%%\n", sig.Score.Total, sig.Verdict.Confidence)
		for _, c := range sig.Score.TopReasons() {
			fmt.Fprintf(&b, "  %s: %.0f/%.0f (%s)\n", c.Name, c.Points, c.Max, c.Detail)
		}
	} else {
		fmt.Fprintf(&b, "Confidence %d%%\n", sig.Verdict.Confidence)
	}
	if sig.Trigger != nil && sig.Trigger.Type == TriggerWhale && sig.Trigger.Whale != nil {
		w := sig.Trigger.Whale
		fmt.Fprintf(&b, "Whale: %s %s, %.1f%% of liquidity\n",
			w.SizeFormatted(), w.Direction, w.LiquidityRatio*100)
	}
	if sig.Verdict.Reasoning != "" {
		fmt.Fprintf(&b, "Reasoning: %s\n", sig.Verdict.Reasoning)
	}
	a.Body = b.String()
	total := 0.0
	if sig.Score != nil {
		total = sig.Score.Total
	}
	a.Summary = fmt.Sprintf("%s %s (score %.0f)", sig.Verdict.Direction, sig.MarketName, total)
}

// AlertRecord is the durable alert ledger row. The ledger is the sole
// authority for per-market rate limiting.
type AlertRecord struct {
	ID         string    `gorm:"primaryKey;type:varchar(64)"`
	MarketID   string    `gorm:"type:varchar(100);not null;index:idx_alert_market_sent,priority:1"`
	Direction  string    `gorm:"type:varchar(10);not null"`
	Score      float64   `gorm:"not null"`
	Confidence int       `gorm:"not null"`
	Summary    string    `gorm:"type:varchar(300)"`
	SentAt     time.Time `gorm:"type:timestamptz;not null;index:idx_alert_market_sent,priority:2"`
}

func (AlertRecord) TableName() string {
	return "alerts"
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// Verdict is the structured output of the language model stage.
type Verdict struct {
	Direction  string   `json:"direction"`  // YES, NO or HOLD
	Confidence int      `json:"confidence"` // 0-100
	Reasoning  string   `json:"reasoning"`
	KeyPoints  []string `json:"key_points,omitempty"`
}

// HoldVerdict is the safe default substituted when the model output cannot
// be parsed.
func HoldVerdict(reason string) Verdict {
	return Verdict{Direction: DirectionHold, Confidence: 0, Reasoning: reason}
}

// Signal is a scored, reasoned trade recommendation. The simple path leaves
// Score and Research nil; the enriched path fills everything.
type Signal struct {
	MarketID        string           `json:"market_id"`
	MarketName      string           `json:"market_name"`
	Direction       string           `json:"direction"`
	Score           *ScoreResult     `json:"score,omitempty"`
	Verdict         Verdict          `json:"verdict"`
	Trigger         *Trigger         `json:"-"`
	Research        *ResearchResults `json:"research,omitempty"`
	CurrentOdds     float64          `json:"current_odds"`     // YES price in percent, 0-100
	MarketLiquidity float64          `json:"market_liquidity"` // USD, 0 when unknown
	MomentumScore   float64          `json:"momentum_score"`

	// ShouldAlert is the final dispatch decision including the liquidity
	// gate; Actionable alone does not imply it.
	ShouldAlert bool      `json:"should_alert"`
	CreatedAt   time.Time `json:"created_at"`
}

// Composite blends deterministic score and model confidence for ranking.
// A simple-path signal has no score, so composite is just confidence.
func (s *Signal) Composite() float64 {
	if s.Score == nil {
		return float64(s.Verdict.Confidence)
	}
	return 0.6*s.Score.Total + 0.4*float64(s.Verdict.Confidence)
}

// Actionable reports whether the signal clears the score threshold and the
// confidence floor with a tradable direction. The liquidity gate is separate
// and lives in ShouldAlert.
func (s *Signal) Actionable(scoreThreshold float64, minConfidence int) bool {
	if !IsTradable(s.Verdict.Direction) {
		return false
	}
	if s.Verdict.Confidence < minConfidence {
		return false
	}
	if s.Score != nil && s.Score.Total < scoreThreshold {
		return false
	}
	return true
}

// SignalRecord is the durable signal row kept for the dashboard and for
// post-hoc accuracy review.
type SignalRecord struct {
	ID            uint           `gorm:"primaryKey;autoIncrement"`
	MarketID      string         `gorm:"type:varchar(100);not null;index"`
	MarketName    string         `gorm:"type:varchar(200)"`
	Direction     string         `gorm:"type:varchar(10);not null"`
	Score         float64        `gorm:"not null"`
	Confidence    int            `gorm:"not null"`
	Composite     float64        `gorm:"not null;index"`
	TriggerType   string         `gorm:"type:varchar(10);not null"`
	Reasoning     string         `gorm:"type:text"`
	Breakdown     datatypes.JSON `gorm:"type:jsonb"`
	Dispatched    bool           `gorm:"not null;default:false"`
	CreatedAt     time.Time      `gorm:"type:timestamptz;autoCreateTime;index"`
	ExpiresAt     time.Time      `gorm:"type:timestamptz;index"`
	MomentumScore float64        `gorm:"not null;default:0"`
}

func (SignalRecord) TableName() string {
	return "signals"
}

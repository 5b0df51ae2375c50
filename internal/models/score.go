package models

// Score dimension names. The five components always sum to the total.
const (
	ComponentSourceCredibility = "source_credibility"
	ComponentInfoRecency       = "information_recency"
	ComponentCrossConsensus    = "cross_source_consensus"
	ComponentTechSpecificity   = "technical_specificity"
	ComponentMarketDivergence  = "market_divergence"
)

// ScoreComponent is one scored dimension with its explanation.
type ScoreComponent struct {
	Name   string  `json:"name"`
	Points float64 `json:"points"`
	Max    float64 `json:"max"`
	Detail string  `json:"detail"`
}

// ScoreResult is the deterministic alignment score for one trigger.
type ScoreResult struct {
	Total      float64          `json:"total"`
	Components []ScoreComponent `json:"components"`

	// Direction is the hypothesis that was scored (YES or NO).
	Direction string `json:"direction"`

	// MomentumScore is reported alongside but not part of Total.
	MomentumScore float64 `json:"momentum_score"`
}

// Component returns the named component, or nil when absent.
func (s *ScoreResult) Component(name string) *ScoreComponent {
	for i := range s.Components {
		if s.Components[i].Name == name {
			return &s.Components[i]
		}
	}
	return nil
}

// Meets reports whether the score clears the actionability threshold.
func (s *ScoreResult) Meets(threshold float64) bool {
	return s.Total >= threshold
}

// TopReasons returns the two components with the highest score-to-max
// ratio, for the human-readable alert body.
func (s *ScoreResult) TopReasons() []ScoreComponent {
	sorted := make([]ScoreComponent, len(s.Components))
	copy(sorted, s.Components)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if ratio(sorted[j]) > ratio(sorted[i]) {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	if len(sorted) > 2 {
		sorted = sorted[:2]
	}
	return sorted
}

func ratio(c ScoreComponent) float64 {
	if c.Max == 0 {
		return 0
	}
	return c.Points / c.Max
}

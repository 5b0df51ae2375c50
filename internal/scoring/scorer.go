package scoring

import (
	"fmt"
	"time"

	"exasignal/internal/models"
)

// Per-source credibility. Metered generic news is deliberately penalized:
// it is never a primary signal.
var sourceCredibility = map[string]float64{
	models.SourceArxiv:   30,
	models.SourceExa:     28,
	models.SourceRSS:     20,
	models.SourceNewsAPI: 12,
}

const unknownSourceCredibility = 10

// Recency trust multiplier per source. Generic news carries inherent
// reporting delay; preprints are allowed to be slightly older.
var sourceRecencyTrust = map[string]float64{
	models.SourceNewsAPI: 0.5,
	models.SourceRSS:     1.0,
	models.SourceArxiv:   0.9,
	models.SourceExa:     1.0,
}

// Scorer computes the deterministic 0-100 alignment score. Same inputs,
// same output: no randomness, no model calls.
type Scorer struct {
	Threshold float64
}

func NewScorer(threshold float64) *Scorer {
	if threshold <= 0 {
		threshold = 70
	}
	return &Scorer{Threshold: threshold}
}

// Score combines a trigger direction, the research evidence and current
// odds (YES probability in percent) into the five-component result.
func (s *Scorer) Score(direction string, research *models.ResearchResults, currentOdds float64) models.ScoreResult {
	if !models.IsTradable(direction) {
		direction = models.DirectionYes
	}
	if currentOdds <= 0 {
		currentOdds = 50
	}
	components := []models.ScoreComponent{
		calcCredibility(research),
		calcRecency(research, time.Now().UTC()),
		calcConsensus(direction, research),
		calcSpecificity(research),
		calcDivergence(direction, currentOdds),
	}
	var total float64
	for _, c := range components {
		total += c.Points
	}
	return models.ScoreResult{
		Total:      total,
		Components: components,
		Direction:  direction,
	}
}

// ShouldAlert reports whether a score clears the alert threshold.
func (s *Scorer) ShouldAlert(result models.ScoreResult) bool {
	return result.Total >= s.Threshold
}

func calcCredibility(research *models.ResearchResults) models.ScoreComponent {
	c := models.ScoreComponent{Name: models.ComponentSourceCredibility, Max: 30}
	if research == nil || len(research.Results) == 0 {
		c.Detail = "no results"
		return c
	}
	var total float64
	best := ""
	bestScore := 0.0
	for _, r := range research.Results {
		score, ok := sourceCredibility[r.Source]
		if !ok {
			score = unknownSourceCredibility
		}
		total += score
		if score > bestScore {
			bestScore, best = score, r.Source
		}
	}
	c.Points = total / float64(len(research.Results))
	if c.Points > c.Max {
		c.Points = c.Max
	}
	c.Detail = "best source: " + best
	return c
}

func calcRecency(research *models.ResearchResults, now time.Time) models.ScoreComponent {
	c := models.ScoreComponent{Name: models.ComponentInfoRecency, Max: 20}
	if research == nil || len(research.Results) == 0 {
		c.Detail = "no results"
		return c
	}
	var total float64
	var count int
	for _, r := range research.Results {
		if r.PublishedAt.IsZero() {
			continue
		}
		days := int(now.Sub(r.PublishedAt).Hours() / 24)
		var base float64
		switch {
		case days <= 1:
			base = 20
		case days <= 3:
			base = 17
		case days <= 7:
			base = 14
		case days <= 14:
			base = 10
		case days <= 30:
			base = 5
		default:
			base = 2
		}
		trust, ok := sourceRecencyTrust[r.Source]
		if !ok {
			trust = 1.0
		}
		total += base * trust
		count++
	}
	if count > 0 {
		c.Points = total / float64(count)
	}
	if c.Points > c.Max {
		c.Points = c.Max
	}
	c.Detail = fmt.Sprintf("%d dated sources", count)
	return c
}

func calcConsensus(direction string, research *models.ResearchResults) models.ScoreComponent {
	c := models.ScoreComponent{Name: models.ComponentCrossConsensus, Max: 25}
	if research == nil || len(research.Results) == 0 {
		c.Detail = "no results"
		return c
	}
	pct, ok := research.ConsensusPercent(direction)
	if !ok {
		c.Points = 5
		c.Detail = "no directional results"
		return c
	}
	switch {
	case pct >= 80:
		c.Points = 25
		c.Detail = fmt.Sprintf("%.0f%% aligned, strong", pct)
	case pct >= 60:
		c.Points = 18
		c.Detail = fmt.Sprintf("%.0f%% aligned, moderate", pct)
	case pct >= 40:
		c.Points = 10
		c.Detail = fmt.Sprintf("%.0f%% aligned, mixed", pct)
	default:
		c.Points = 3
		c.Detail = fmt.Sprintf("%.0f%% aligned, against", pct)
	}
	return c
}

func calcSpecificity(research *models.ResearchResults) models.ScoreComponent {
	c := models.ScoreComponent{Name: models.ComponentTechSpecificity, Max: 15}
	if research == nil || len(research.Results) == 0 {
		c.Detail = "no results"
		return c
	}
	var high, medium int
	for _, r := range research.Results {
		switch r.Source {
		case models.SourceArxiv:
			high++
		case models.SourceExa, models.SourceRSS:
			medium++
		}
	}
	switch {
	case high >= 2:
		c.Points = 15
		c.Detail = fmt.Sprintf("%d high-specificity sources", high)
	case high >= 1:
		c.Points = 12
		c.Detail = "1 technical source"
	case medium >= 2:
		c.Points = 8
		c.Detail = "medium-specificity sources"
	default:
		c.Points = 4
		c.Detail = "generic sources only"
	}
	return c
}

// calcDivergence rewards a trigger that stands apart from the crowd's
// current odds. Betting YES into low odds (or NO into high odds) is where
// unpriced information lives.
func calcDivergence(direction string, currentOdds float64) models.ScoreComponent {
	c := models.ScoreComponent{Name: models.ComponentMarketDivergence, Max: 10}
	var gap float64
	if direction == models.DirectionYes {
		gap = 100 - currentOdds
	} else {
		gap = currentOdds
	}
	switch {
	case gap >= 40:
		c.Points = 10
		c.Detail = fmt.Sprintf("high divergence (%.0f%%)", gap)
	case gap >= 25:
		c.Points = 7
		c.Detail = fmt.Sprintf("moderate divergence (%.0f%%)", gap)
	case gap >= 15:
		c.Points = 4
		c.Detail = fmt.Sprintf("low divergence (%.0f%%)", gap)
	default:
		c.Points = 1
		c.Detail = "trigger follows consensus"
	}
	return c
}

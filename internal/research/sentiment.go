package research

import (
	"strings"

	"exasignal/internal/models"
)

// Keyword sets for the direction heuristic. Matching is substring-based so a
// keyword also hits inside longer words ("successful" counts for "success").
var bullishWords = []string{
	"breakthrough", "success", "approved", "confirmed", "achieved",
	"launches", "releases", "partnership", "funding", "raised",
	"positive", "growth", "exceeds", "surpasses", "first",
}

var bearishWords = []string{
	"fails", "delayed", "cancelled", "rejected", "denied",
	"lawsuit", "investigation", "concerns", "risks", "warns",
	"layoffs", "downsizing", "negative", "struggles", "behind",
}

// TagDirection labels a result from bullish vs bearish keyword counts over
// title and snippet. Bullish evidence supports YES, bearish supports NO; the
// winning side needs a margin of at least two keyword hits, a narrow margin
// stays NEUTRAL rather than guessing. Sentiment is set from the same counts.
func TagDirection(r *models.ResearchResult) {
	text := strings.ToLower(r.Title + " " + r.Snippet)
	var bullish, bearish int
	for _, w := range bullishWords {
		if strings.Contains(text, w) {
			bullish++
		}
	}
	for _, w := range bearishWords {
		if strings.Contains(text, w) {
			bearish++
		}
	}

	switch {
	case bullish > bearish:
		r.Sentiment = models.SentimentPositive
	case bearish > bullish:
		r.Sentiment = models.SentimentNegative
	default:
		r.Sentiment = models.SentimentNeutral
	}

	switch {
	case bullish >= bearish+2:
		r.SupportsDirection = models.DirectionYes
	case bearish >= bullish+2:
		r.SupportsDirection = models.DirectionNo
	default:
		r.SupportsDirection = models.DirectionNeutral
	}
}

package scheduler

import (
	"strings"
	"unicode"

	"exasignal/internal/models"
)

// Words carrying no matching value in headlines or market names.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "was": {}, "will": {}, "with": {},
	"this": {}, "that": {}, "from": {}, "have": {}, "has": {}, "had": {},
	"its": {}, "his": {}, "her": {}, "they": {}, "them": {}, "been": {},
	"more": {}, "than": {}, "into": {}, "after": {}, "over": {}, "under": {},
	"about": {}, "says": {}, "said": {}, "new": {}, "how": {}, "why": {},
	"what": {}, "when": {}, "who": {}, "out": {}, "off": {}, "amid": {},
}

// Headline terms that tend to move prediction markets. Matches on these
// are weighted ahead of ordinary keywords.
var priorityKeywords = map[string]struct{}{
	"election": {}, "wins": {}, "loses": {}, "confirmed": {}, "announced": {},
	"approved": {}, "rejected": {}, "resigns": {}, "breaking": {}, "official": {},
	"fed": {}, "rate": {}, "inflation": {}, "recession": {}, "verdict": {},
	"indicted": {}, "launches": {}, "acquires": {}, "merger": {}, "bankruptcy": {},
}

const maxKeywords = 10

// extractKeywords lowercases, strips punctuation and drops stopwords.
// Priority keywords sort to the front.
func extractKeywords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var priority, regular []string
	seen := map[string]struct{}{}
	for _, w := range fields {
		if len(w) < 3 {
			continue
		}
		if _, skip := stopwords[w]; skip {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := priorityKeywords[w]; ok {
			priority = append(priority, w)
		} else {
			regular = append(regular, w)
		}
	}

	keywords := append(priority, regular...)
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}

// relevance scores how well a headline's keywords match a watched market,
// 0..1. Matching is substring-based against the market name and tags.
func relevance(market *models.Market, keywords []string) (float64, []string) {
	if market == nil || len(keywords) == 0 {
		return 0, nil
	}
	haystack := strings.ToLower(market.Name)
	for _, tag := range market.TagList() {
		haystack += " " + strings.ToLower(tag)
	}

	var matched []string
	priorityHit := false
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			matched = append(matched, kw)
			if _, ok := priorityKeywords[kw]; ok {
				priorityHit = true
			}
		}
	}
	if len(matched) == 0 {
		return 0, nil
	}

	score := float64(len(matched)) / float64(len(keywords))
	if priorityHit {
		score += 0.2
	}
	if score > 1 {
		score = 1
	}
	return score, matched
}

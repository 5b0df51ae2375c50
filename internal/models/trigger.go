package models

import "time"

// Trigger types.
const (
	TriggerWhale = "WHALE"
	TriggerNews  = "NEWS"
)

// NewsItem is a breaking-news trigger payload matched to a watched market.
type NewsItem struct {
	MarketID    string
	Title       string
	URL         string
	Source      string
	PublishedAt time.Time
	MatchedTerm string
}

// Trigger is the tagged union feeding the pipeline: exactly one of Whale or
// News is set, matching Type.
type Trigger struct {
	Type  string
	Whale *WhaleEvent
	News  *NewsItem
}

// MarketID returns the market the trigger concerns regardless of type.
func (t *Trigger) MarketID() string {
	switch t.Type {
	case TriggerWhale:
		if t.Whale != nil {
			return t.Whale.MarketID
		}
	case TriggerNews:
		if t.News != nil {
			return t.News.MarketID
		}
	}
	return ""
}

// ID keys per-trigger provider caps.
func (t *Trigger) ID() string {
	switch t.Type {
	case TriggerWhale:
		if t.Whale != nil {
			return t.Whale.ID()
		}
	case TriggerNews:
		if t.News != nil {
			return t.News.MarketID + "_" + t.News.PublishedAt.UTC().Format(time.RFC3339)
		}
	}
	return ""
}

// Direction returns the hypothesized direction for scoring. Whale triggers
// carry the whale's direction; news triggers default to YES and let research
// consensus correct the hypothesis downstream.
func (t *Trigger) Direction() string {
	if t.Type == TriggerWhale && t.Whale != nil {
		return t.Whale.Direction
	}
	return DirectionYes
}

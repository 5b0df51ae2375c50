package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Sentiment labels attached to research results by keyword tagging.
const (
	SentimentPositive = "POSITIVE"
	SentimentNegative = "NEGATIVE"
	SentimentNeutral  = "NEUTRAL"
)

// Research source names as emitted by the providers. Credibility and recency
// weighting key off these.
const (
	SourceArxiv   = "arxiv"
	SourceExa     = "exa"
	SourceRSS     = "rss"
	SourceNewsAPI = "newsapi"
	SourceBrave   = "brave"
)

// ResearchResult is one retrieved document from any provider.
type ResearchResult struct {
	Title       string    `json:"title"`
	Snippet     string    `json:"snippet"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Sentiment   string    `json:"sentiment"`

	// SupportsDirection is YES, NO or NEUTRAL. It is a recomputable
	// keyword heuristic, never authoritative.
	SupportsDirection string `json:"supports_direction"`
}

// AgeHours returns the document age relative to now, clamped at zero.
func (r *ResearchResult) AgeHours(now time.Time) float64 {
	if r.PublishedAt.IsZero() {
		return 999999
	}
	age := now.Sub(r.PublishedAt).Hours()
	if age < 0 {
		return 0
	}
	return age
}

// ResearchResults is the merged evidence set for one market question.
type ResearchResults struct {
	MarketID        string           `json:"market_id"`
	TriggerID       string           `json:"trigger_id"`
	QueriesExecuted []string         `json:"queries_executed"`
	Results         []ResearchResult `json:"results"`
	ExecutionTimeMs int64            `json:"execution_time_ms"`
	FetchedAt       time.Time        `json:"fetched_at"`

	// DegradedSources lists providers that failed or were skipped so the
	// caller can tell a thin evidence set from a quiet news day.
	DegradedSources []string `json:"degraded_sources,omitempty"`
}

// CountBySource returns per-source result counts.
func (rr *ResearchResults) CountBySource() map[string]int {
	counts := map[string]int{}
	for _, r := range rr.Results {
		counts[strings.ToLower(r.Source)]++
	}
	return counts
}

// ConsensusPercent returns the share (0-100) of directional results agreeing
// with the given direction. Second return is false when no result carries a
// directional reading at all.
func (rr *ResearchResults) ConsensusPercent(direction string) (float64, bool) {
	var directional, agreeing int
	for _, r := range rr.Results {
		if r.SupportsDirection != DirectionYes && r.SupportsDirection != DirectionNo {
			continue
		}
		directional++
		if r.SupportsDirection == direction {
			agreeing++
		}
	}
	if directional == 0 {
		return 0, false
	}
	return float64(agreeing) / float64(directional) * 100, true
}

// ResearchCacheEntry is the durable research cache row. Key is
// md5("source:query"); entries expire on TTL and are purged by cron.
type ResearchCacheEntry struct {
	CacheKey  string         `gorm:"primaryKey;type:varchar(32)"`
	Source    string         `gorm:"type:varchar(30);not null;index"`
	Query     string         `gorm:"type:varchar(500);not null"`
	Results   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"type:timestamptz;autoCreateTime"`
	ExpiresAt time.Time      `gorm:"type:timestamptz;not null;index"`
}

func (ResearchCacheEntry) TableName() string {
	return "research_cache"
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e *ResearchCacheEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// ProviderQuota is the per-(provider, day) durable request counter. Day is a
// UTC date string so counters reset at midnight UTC without a job.
type ProviderQuota struct {
	Provider string `gorm:"primaryKey;type:varchar(30)"`
	Day      string `gorm:"primaryKey;type:varchar(10)"` // YYYY-MM-DD, UTC
	Used     int    `gorm:"not null;default:0"`
}

func (ProviderQuota) TableName() string {
	return "provider_quotas"
}

// QuotaDay formats the UTC quota day key for an instant.
func QuotaDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// TriggerRequestCount caps metered provider calls per trigger so a single
// noisy event cannot drain a daily quota.
type TriggerRequestCount struct {
	TriggerID string    `gorm:"primaryKey;type:varchar(120)"`
	Provider  string    `gorm:"primaryKey;type:varchar(30)"`
	Used      int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (TriggerRequestCount) TableName() string {
	return "trigger_request_counts"
}

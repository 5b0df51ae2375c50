package research

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"exasignal/internal/models"
	"exasignal/internal/repository"
)

// Cache is the durable research cache. Entries are keyed by source and
// normalized query and expire on TTL; a hit skips the provider call entirely,
// which is what keeps metered quotas alive through the day.
type Cache struct {
	Repo repository.Repository
	TTL  time.Duration

	// NegativeTTL bounds how long a failed call suppresses retries.
	NegativeTTL time.Duration

	Logger *zap.Logger
}

// CacheKey hashes the normalized (source, query) pair so case and whitespace
// variants of one query share an entry instead of double-spending quota.
func CacheKey(source, query string) string {
	sum := md5.Sum([]byte(normalizeKey(source) + ":" + normalizeKey(query)))
	return hex.EncodeToString(sum[:])
}

func normalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Get returns cached results, or nil on miss or expiry. Cache failures are
// treated as misses.
func (c *Cache) Get(ctx context.Context, source, query string) []models.ResearchResult {
	if c == nil || c.Repo == nil {
		return nil
	}
	entry, err := c.Repo.GetCacheEntry(ctx, CacheKey(source, query))
	if err != nil {
		if c.Logger != nil {
			c.Logger.Warn("cache read failed", zap.String("source", source), zap.Error(err))
		}
		return nil
	}
	if entry == nil || entry.Expired(time.Now().UTC()) {
		return nil
	}
	var results []models.ResearchResult
	if err := json.Unmarshal(entry.Results, &results); err != nil {
		return nil
	}
	return results
}

func (c *Cache) Put(ctx context.Context, source, query string, results []models.ResearchResult) {
	ttl := c.ttl()
	c.put(ctx, source, query, results, ttl)
}

// PutNegative records a failed call as an empty result set with a short TTL,
// so a flapping source is not retried on every trigger.
func (c *Cache) PutNegative(ctx context.Context, source, query string) {
	ttl := c.NegativeTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	c.put(ctx, source, query, []models.ResearchResult{}, ttl)
}

func (c *Cache) put(ctx context.Context, source, query string, results []models.ResearchResult, ttl time.Duration) {
	if c == nil || c.Repo == nil {
		return
	}
	if results == nil {
		results = []models.ResearchResult{}
	}
	payload, err := json.Marshal(results)
	if err != nil {
		return
	}
	entry := &models.ResearchCacheEntry{
		CacheKey:  CacheKey(source, query),
		Source:    source,
		Query:     query,
		Results:   payload,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	if err := c.Repo.PutCacheEntry(ctx, entry); err != nil && c.Logger != nil {
		c.Logger.Warn("cache write failed", zap.String("source", source), zap.Error(err))
	}
}

func (c *Cache) ttl() time.Duration {
	if c == nil || c.TTL <= 0 {
		return 24 * time.Hour
	}
	return c.TTL
}

// Purge removes expired entries. Run from cron.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	if c == nil || c.Repo == nil {
		return 0, nil
	}
	return c.Repo.DeleteExpiredCacheEntries(ctx, time.Now().UTC())
}

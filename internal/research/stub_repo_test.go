package research

import (
	"context"
	"time"

	"exasignal/internal/models"
	"exasignal/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// Cache entries and quota counters behave like the real store; everything
// else is a no-op.
type stubRepo struct {
	entries     map[string]*models.ResearchCacheEntry
	quota       map[string]int // provider|day -> used
	triggers    map[string]int // trigger|provider -> used
	cacheGetErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		entries:  map[string]*models.ResearchCacheEntry{},
		quota:    map[string]int{},
		triggers: map[string]int{},
	}
}

func (s *stubRepo) UpsertMarkets(ctx context.Context, items []models.Market) error { return nil }
func (s *stubRepo) ListActiveMarkets(ctx context.Context) ([]models.Market, error) {
	return nil, nil
}
func (s *stubRepo) GetMarket(ctx context.Context, id string) (*models.Market, error) {
	return nil, nil
}

func (s *stubRepo) GetWalletRecord(ctx context.Context, wallet, marketID string) (*models.WalletRecord, error) {
	return nil, nil
}
func (s *stubRepo) ListWalletRecords(ctx context.Context, wallet string) ([]models.WalletRecord, error) {
	return nil, nil
}
func (s *stubRepo) TouchWalletRecord(ctx context.Context, wallet, marketID string, seenAt time.Time) error {
	return nil
}
func (s *stubRepo) CountWalletTradesToday(ctx context.Context, wallet string, now time.Time) (int64, error) {
	return 0, nil
}
func (s *stubRepo) DeleteWalletRecordsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (s *stubRepo) GetCacheEntry(ctx context.Context, key string) (*models.ResearchCacheEntry, error) {
	if s.cacheGetErr != nil {
		return nil, s.cacheGetErr
	}
	return s.entries[key], nil
}

func (s *stubRepo) PutCacheEntry(ctx context.Context, entry *models.ResearchCacheEntry) error {
	s.entries[entry.CacheKey] = entry
	return nil
}

func (s *stubRepo) DeleteExpiredCacheEntries(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for key, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, key)
			n++
		}
	}
	return n, nil
}

func (s *stubRepo) IncrementQuota(ctx context.Context, provider, day string, limit int) (int, bool, error) {
	key := provider + "|" + day
	if s.quota[key] >= limit {
		return s.quota[key], false, nil
	}
	s.quota[key]++
	return s.quota[key], true, nil
}

func (s *stubRepo) GetQuotaUsed(ctx context.Context, provider, day string) (int, error) {
	return s.quota[provider+"|"+day], nil
}

func (s *stubRepo) IncrementTriggerCount(ctx context.Context, triggerID, provider string, limit int) (int, bool, error) {
	key := triggerID + "|" + provider
	if s.triggers[key] >= limit {
		return s.triggers[key], false, nil
	}
	s.triggers[key]++
	return s.triggers[key], true, nil
}

func (s *stubRepo) InsertAlertGuarded(ctx context.Context, item *models.AlertRecord, maxPerDay int, cooldown time.Duration) (bool, string, error) {
	return true, "", nil
}
func (s *stubRepo) CountAlertsSince(ctx context.Context, marketID string, since time.Time) (int64, error) {
	return 0, nil
}
func (s *stubRepo) LastAlertAt(ctx context.Context, marketID string) (*time.Time, error) {
	return nil, nil
}
func (s *stubRepo) ListAlerts(ctx context.Context, limit, offset int) ([]models.AlertRecord, error) {
	return nil, nil
}

func (s *stubRepo) InsertSignal(ctx context.Context, item *models.SignalRecord) error { return nil }
func (s *stubRepo) ListSignals(ctx context.Context, params repository.ListSignalsParams) ([]models.SignalRecord, error) {
	return nil, nil
}
func (s *stubRepo) DeleteExpiredSignals(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}
func (s *stubRepo) MarkSignalDispatched(ctx context.Context, id uint) error { return nil }

var _ repository.Repository = (*stubRepo)(nil)

// stubProvider is a scripted search.Provider.
type stubProvider struct {
	name      string
	metered   bool
	available bool
	results   []models.ResearchResult
	err       error
	calls     int
}

func (p *stubProvider) Name() string  { return p.name }
func (p *stubProvider) Metered() bool { return p.metered }
func (p *stubProvider) Available() bool {
	return p.available
}

func (p *stubProvider) Search(ctx context.Context, query string, limit int) ([]models.ResearchResult, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.results, nil
}

package whale

import (
	"context"
	"time"

	"exasignal/internal/models"
	"exasignal/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// Only the wallet-history methods matter here; the rest are no-ops.
type stubRepo struct {
	wallets     map[string]*models.WalletRecord // wallet|market -> record
	walletErr   error
	touched     []string
	marketList  []models.Market
	todayTrades int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{wallets: map[string]*models.WalletRecord{}}
}

func walletKey(wallet, marketID string) string { return wallet + "|" + marketID }

func (s *stubRepo) UpsertMarkets(ctx context.Context, items []models.Market) error { return nil }
func (s *stubRepo) ListActiveMarkets(ctx context.Context) ([]models.Market, error) {
	return s.marketList, nil
}
func (s *stubRepo) GetMarket(ctx context.Context, id string) (*models.Market, error) {
	return nil, nil
}

func (s *stubRepo) GetWalletRecord(ctx context.Context, wallet, marketID string) (*models.WalletRecord, error) {
	if s.walletErr != nil {
		return nil, s.walletErr
	}
	return s.wallets[walletKey(wallet, marketID)], nil
}

func (s *stubRepo) ListWalletRecords(ctx context.Context, wallet string) ([]models.WalletRecord, error) {
	var out []models.WalletRecord
	for _, rec := range s.wallets {
		if rec.WalletAddress == wallet {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *stubRepo) TouchWalletRecord(ctx context.Context, wallet, marketID string, seenAt time.Time) error {
	key := walletKey(wallet, marketID)
	s.touched = append(s.touched, key)
	rec, ok := s.wallets[key]
	if !ok {
		s.wallets[key] = &models.WalletRecord{
			WalletAddress: wallet,
			MarketID:      marketID,
			LastSeen:      seenAt,
			TradeCount:    1,
		}
		return nil
	}
	rec.LastSeen = seenAt
	rec.TradeCount++
	return nil
}

func (s *stubRepo) CountWalletTradesToday(ctx context.Context, wallet string, now time.Time) (int64, error) {
	return s.todayTrades, nil
}
func (s *stubRepo) DeleteWalletRecordsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for key, rec := range s.wallets {
		if rec.LastSeen.Before(cutoff) {
			delete(s.wallets, key)
			n++
		}
	}
	return n, nil
}

func (s *stubRepo) GetCacheEntry(ctx context.Context, key string) (*models.ResearchCacheEntry, error) {
	return nil, nil
}
func (s *stubRepo) PutCacheEntry(ctx context.Context, entry *models.ResearchCacheEntry) error {
	return nil
}
func (s *stubRepo) DeleteExpiredCacheEntries(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (s *stubRepo) IncrementQuota(ctx context.Context, provider, day string, limit int) (int, bool, error) {
	return 0, true, nil
}
func (s *stubRepo) GetQuotaUsed(ctx context.Context, provider, day string) (int, error) {
	return 0, nil
}
func (s *stubRepo) IncrementTriggerCount(ctx context.Context, triggerID, provider string, limit int) (int, bool, error) {
	return 0, true, nil
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

package scheduler

import (
	"context"
	"errors"
	"time"

	polymarketgamma "exasignal/internal/client/polymarket/gamma"
	"exasignal/internal/models"
	"exasignal/internal/repository"
)

// stubRepo serves a fixed watchlist and records signal inserts; the rest of
// the interface is a no-op.
type stubRepo struct {
	markets     []models.Market
	marketsErr  error
	signals     []*models.SignalRecord
	alertsSince int64
	dispatched  []uint
}

func (s *stubRepo) UpsertMarkets(ctx context.Context, items []models.Market) error { return nil }

func (s *stubRepo) ListActiveMarkets(ctx context.Context) ([]models.Market, error) {
	return s.markets, s.marketsErr
}

func (s *stubRepo) GetMarket(ctx context.Context, id string) (*models.Market, error) {
	for i := range s.markets {
		if s.markets[i].ID == id {
			return &s.markets[i], nil
		}
	}
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
	return s.alertsSince, nil
}
func (s *stubRepo) LastAlertAt(ctx context.Context, marketID string) (*time.Time, error) {
	return nil, nil
}
func (s *stubRepo) ListAlerts(ctx context.Context, limit, offset int) ([]models.AlertRecord, error) {
	return nil, nil
}

func (s *stubRepo) InsertSignal(ctx context.Context, item *models.SignalRecord) error {
	s.signals = append(s.signals, item)
	item.ID = uint(len(s.signals))
	return nil
}
func (s *stubRepo) ListSignals(ctx context.Context, params repository.ListSignalsParams) ([]models.SignalRecord, error) {
	return nil, nil
}
func (s *stubRepo) DeleteExpiredSignals(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}
func (s *stubRepo) MarkSignalDispatched(ctx context.Context, id uint) error {
	s.dispatched = append(s.dispatched, id)
	return nil
}

var _ repository.Repository = (*stubRepo)(nil)

// stubGamma serves canned market snapshots for resolution sweeps.
type stubGamma struct {
	markets map[string]*polymarketgamma.Market
}

func (s *stubGamma) GetMarket(ctx context.Context, marketID string) (*polymarketgamma.Market, error) {
	if m, ok := s.markets[marketID]; ok {
		return m, nil
	}
	return nil, errors.New("market not found")
}

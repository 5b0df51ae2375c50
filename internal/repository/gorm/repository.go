package gormrepository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"exasignal/internal/models"
	"exasignal/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- markets ----------------------------------------------------------------

func (s *Store) UpsertMarkets(ctx context.Context, items []models.Market) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "slug", "category", "yes_definition", "no_definition", "tags", "active", "updated_at",
		}),
	}).Create(&items).Error
}

func (s *Store) ListActiveMarkets(ctx context.Context) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Market
	err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetMarket(ctx context.Context, id string) (*models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Market
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- wallet history ---------------------------------------------------------

func (s *Store) GetWalletRecord(ctx context.Context, wallet, marketID string) (*models.WalletRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.WalletRecord
	err := s.db.WithContext(ctx).
		Where("wallet_address = ? AND market_id = ?", wallet, marketID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListWalletRecords(ctx context.Context, wallet string) ([]models.WalletRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.WalletRecord
	err := s.db.WithContext(ctx).
		Where("wallet_address = ?", wallet).
		Order("last_seen desc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) TouchWalletRecord(ctx context.Context, wallet, marketID string, seenAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	item := models.WalletRecord{
		WalletAddress: wallet,
		MarketID:      marketID,
		LastSeen:      seenAt,
		TradeCount:    1,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "wallet_address"}, {Name: "market_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"last_seen":   seenAt,
			"trade_count": gorm.Expr("wallet_history.trade_count + 1"),
		}),
	}).Create(&item).Error
}

func (s *Store) CountWalletTradesToday(ctx context.Context, wallet string, now time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	dayStart := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC)
	var count int64
	err := s.db.WithContext(ctx).Model(&models.WalletRecord{}).
		Where("wallet_address = ? AND last_seen >= ?", wallet, dayStart).
		Count(&count).Error
	return count, err
}

func (s *Store) DeleteWalletRecordsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("last_seen < ?", cutoff).
		Delete(&models.WalletRecord{})
	return res.RowsAffected, res.Error
}

// --- research cache ---------------------------------------------------------

func (s *Store) GetCacheEntry(ctx context.Context, key string) (*models.ResearchCacheEntry, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.ResearchCacheEntry
	err := s.db.WithContext(ctx).Where("cache_key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) PutCacheEntry(ctx context.Context, entry *models.ResearchCacheEntry) error {
	if s == nil || s.db == nil || entry == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"source", "query", "results", "expires_at",
		}),
	}).Create(entry).Error
}

func (s *Store) DeleteExpiredCacheEntries(ctx context.Context, now time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.ResearchCacheEntry{})
	return res.RowsAffected, res.Error
}

// --- provider quotas --------------------------------------------------------

// IncrementQuota bumps the per-day counter inside a transaction with a row
// lock so concurrent triggers cannot overshoot the daily limit. limit <= 0
// means unlimited.
func (s *Store) IncrementQuota(ctx context.Context, provider string, day string, limit int) (int, bool, error) {
	if s == nil || s.db == nil {
		return 0, false, nil
	}
	var used int
	var ok bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.ProviderQuota
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("provider = ? AND day = ?", provider, day).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = models.ProviderQuota{Provider: provider, Day: day, Used: 0}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		if limit > 0 && row.Used >= limit {
			used, ok = row.Used, false
			return nil
		}
		row.Used++
		if err := tx.Model(&models.ProviderQuota{}).
			Where("provider = ? AND day = ?", provider, day).
			Update("used", row.Used).Error; err != nil {
			return err
		}
		used, ok = row.Used, true
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return used, ok, nil
}

func (s *Store) GetQuotaUsed(ctx context.Context, provider string, day string) (int, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var row models.ProviderQuota
	err := s.db.WithContext(ctx).
		Where("provider = ? AND day = ?", provider, day).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Used, nil
}

func (s *Store) IncrementTriggerCount(ctx context.Context, triggerID, provider string, limit int) (int, bool, error) {
	if s == nil || s.db == nil {
		return 0, false, nil
	}
	var used int
	var ok bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.TriggerRequestCount
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("trigger_id = ? AND provider = ?", triggerID, provider).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = models.TriggerRequestCount{TriggerID: triggerID, Provider: provider, Used: 0}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		if limit > 0 && row.Used >= limit {
			used, ok = row.Used, false
			return nil
		}
		row.Used++
		if err := tx.Model(&models.TriggerRequestCount{}).
			Where("trigger_id = ? AND provider = ?", triggerID, provider).
			Update("used", row.Used).Error; err != nil {
			return err
		}
		used, ok = row.Used, true
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return used, ok, nil
}

// --- alert ledger -----------------------------------------------------------

// Rejection reasons returned by InsertAlertGuarded.
const (
	AlertRejectDailyLimit = repository.AlertRejectDailyLimit
	AlertRejectCooldown   = repository.AlertRejectCooldown
)

// alertGate decides whether an alert may be written given today's count and
// the market's last alert time. The daily cap is checked before the cooldown
// so a full day reports as such even when both limits bind.
func alertGate(now time.Time, todayCount int, maxPerDay int, last *time.Time, cooldown time.Duration) (bool, string) {
	if maxPerDay > 0 && todayCount >= maxPerDay {
		return false, AlertRejectDailyLimit
	}
	if cooldown > 0 && last != nil && now.Sub(*last) < cooldown {
		return false, AlertRejectCooldown
	}
	return true, ""
}

func (s *Store) InsertAlertGuarded(ctx context.Context, item *models.AlertRecord, maxPerDay int, cooldown time.Duration) (bool, string, error) {
	if s == nil || s.db == nil || item == nil {
		return false, "", nil
	}
	var ok bool
	var reason string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := item.SentAt
		if now.IsZero() {
			now = time.Now().UTC()
			item.SentAt = now
		}
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

		// Lock today's rows so a concurrent attempt serializes behind us.
		var todays []models.AlertRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("sent_at >= ?", dayStart).
			Find(&todays).Error; err != nil {
			return err
		}
		var lastAt *time.Time
		if cooldown > 0 {
			var last models.AlertRecord
			err := tx.Where("market_id = ?", item.MarketID).
				Order("sent_at desc").
				First(&last).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if err == nil {
				lastAt = &last.SentAt
			}
		}
		var pass bool
		if pass, reason = alertGate(now, len(todays), maxPerDay, lastAt, cooldown); !pass {
			return nil
		}
		if err := tx.Create(item).Error; err != nil {
			return err
		}
		ok = true
		return nil
	})
	if err != nil {
		return false, "", err
	}
	return ok, reason, nil
}

func (s *Store) CountAlertsSince(ctx context.Context, marketID string, since time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.AlertRecord{}).
		Where("market_id = ? AND sent_at >= ?", marketID, since).
		Count(&count).Error
	return count, err
}

func (s *Store) LastAlertAt(ctx context.Context, marketID string) (*time.Time, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.AlertRecord
	err := s.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("sent_at desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t := item.SentAt
	return &t, nil
}

func (s *Store) ListAlerts(ctx context.Context, limit, offset int) ([]models.AlertRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var items []models.AlertRecord
	err := s.db.WithContext(ctx).
		Order("sent_at desc").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	return items, err
}

// --- signal feed ------------------------------------------------------------

func (s *Store) InsertSignal(ctx context.Context, item *models.SignalRecord) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListSignals(ctx context.Context, params repository.ListSignalsParams) ([]models.SignalRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SignalRecord{})
	if params.MarketID != "" {
		query = query.Where("market_id = ?", params.MarketID)
	}
	if params.TriggerType != "" {
		query = query.Where("trigger_type = ?", params.TriggerType)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	if params.MinScore != nil {
		query = query.Where("score >= ?", *params.MinScore)
	}
	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	var items []models.SignalRecord
	err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeleteExpiredSignals(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if before.IsZero() {
		before = time.Now().UTC()
	}
	res := s.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&models.SignalRecord{})
	return res.RowsAffected, res.Error
}

func (s *Store) MarkSignalDispatched(ctx context.Context, id uint) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.SignalRecord{}).
		Where("id = ?", id).
		Update("dispatched", true).Error
}

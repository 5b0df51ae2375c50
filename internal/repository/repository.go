package repository

import (
	"context"
	"time"

	"exasignal/internal/models"
)

// Rejection reasons returned by InsertAlertGuarded.
const (
	AlertRejectDailyLimit = "daily_limit"
	AlertRejectCooldown   = "cooldown"
)

// ListSignalsParams filters the stored signal feed.
type ListSignalsParams struct {
	MarketID    string
	TriggerType string
	Since       *time.Time
	MinScore    *float64
	Limit       int
	Offset      int
}

// Repository is the durable state behind the pipeline: wallet history,
// research cache, provider quotas, the alert ledger and the signal feed.
type Repository interface {
	// Markets (watchlist).
	UpsertMarkets(ctx context.Context, items []models.Market) error
	ListActiveMarkets(ctx context.Context) ([]models.Market, error)
	GetMarket(ctx context.Context, id string) (*models.Market, error)

	// Wallet history.
	GetWalletRecord(ctx context.Context, wallet, marketID string) (*models.WalletRecord, error)
	ListWalletRecords(ctx context.Context, wallet string) ([]models.WalletRecord, error)
	TouchWalletRecord(ctx context.Context, wallet, marketID string, seenAt time.Time) error
	CountWalletTradesToday(ctx context.Context, wallet string, now time.Time) (int64, error)
	DeleteWalletRecordsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Research cache.
	GetCacheEntry(ctx context.Context, key string) (*models.ResearchCacheEntry, error)
	PutCacheEntry(ctx context.Context, entry *models.ResearchCacheEntry) error
	DeleteExpiredCacheEntries(ctx context.Context, now time.Time) (int64, error)

	// Provider quotas. IncrementQuota is atomic: it returns the used count
	// after the increment, or refuses without side effects when the limit
	// would be exceeded.
	IncrementQuota(ctx context.Context, provider string, day string, limit int) (int, bool, error)
	GetQuotaUsed(ctx context.Context, provider string, day string) (int, error)
	IncrementTriggerCount(ctx context.Context, triggerID, provider string, limit int) (int, bool, error)

	// Alert ledger. InsertAlertGuarded applies the global daily cap and
	// the per-market cooldown and records the alert in one transaction,
	// so two concurrent attempts cannot both pass the gates. A rejected
	// attempt returns ok=false with a reason and no side effects.
	InsertAlertGuarded(ctx context.Context, item *models.AlertRecord, maxPerDay int, cooldown time.Duration) (ok bool, reason string, err error)
	CountAlertsSince(ctx context.Context, marketID string, since time.Time) (int64, error)
	LastAlertAt(ctx context.Context, marketID string) (*time.Time, error)
	ListAlerts(ctx context.Context, limit, offset int) ([]models.AlertRecord, error)

	// Signal feed.
	InsertSignal(ctx context.Context, item *models.SignalRecord) error
	ListSignals(ctx context.Context, params ListSignalsParams) ([]models.SignalRecord, error)
	DeleteExpiredSignals(ctx context.Context, before time.Time) (int64, error)
	MarkSignalDispatched(ctx context.Context, id uint) error
}

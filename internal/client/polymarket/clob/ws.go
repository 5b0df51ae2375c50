package clob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const DefaultMarketWSSURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"

// PriceUpdate is a last-trade-price tick for one asset.
type PriceUpdate struct {
	AssetID   string
	Market    string
	Price     float64
	Timestamp time.Time
}

// AssetIDProvider lists the token ids the stream should follow. It is called
// on every (re)connect and on the refresh cadence so subscriptions track the
// watchlist.
type AssetIDProvider func(context.Context) ([]string, error)

// PriceStreamOptions configures the reconnecting last-trade-price stream.
type PriceStreamOptions struct {
	URL               string
	AssetIDProvider   AssetIDProvider
	RefreshInterval   time.Duration
	HeartbeatInterval time.Duration
	PingTimeout       time.Duration
	BackoffMin        time.Duration
	BackoffMax        time.Duration
	Logger            *zap.Logger
}

// PriceStream keeps a market websocket alive and emits price ticks for the
// momentum tracker. Disconnects reconnect with jittered backoff.
type PriceStream struct {
	opts      PriceStreamOptions
	seenFirst bool
}

func NewPriceStream(opts PriceStreamOptions) *PriceStream {
	if opts.URL == "" {
		opts.URL = DefaultMarketWSSURL
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 20 * time.Second
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 5 * time.Second
	}
	if opts.BackoffMin <= 0 {
		opts.BackoffMin = time.Second
	}
	if opts.BackoffMax <= 0 {
		opts.BackoffMax = 30 * time.Second
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &PriceStream{opts: opts}
}

// Run blocks until ctx is cancelled, invoking onPrice for every trade tick.
func (s *PriceStream) Run(ctx context.Context, onPrice func(PriceUpdate)) error {
	if s == nil {
		return fmt.Errorf("stream is nil")
	}
	backoff := s.opts.BackoffMin
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := s.runOnce(ctx, onPrice)
		if err == nil || errors.Is(err, context.Canceled) {
			return err
		}
		s.opts.Logger.Warn("price stream session ended", zap.Error(err))
		if err := sleepJittered(ctx, backoff); err != nil {
			return err
		}
		backoff *= 2
		if backoff > s.opts.BackoffMax {
			backoff = s.opts.BackoffMax
		}
	}
}

// runOnce dials, subscribes and consumes one websocket session.
func (s *PriceStream) runOnce(ctx context.Context, onPrice func(PriceUpdate)) error {
	assets, err := s.currentAssets(ctx)
	if err != nil {
		return fmt.Errorf("asset listing: %w", err)
	}
	if len(assets) == 0 {
		return fmt.Errorf("no assets to subscribe")
	}

	conn, _, err := websocket.Dial(ctx, s.opts.URL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	// Subscription snapshots can be large.
	conn.SetReadLimit(2 << 20)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	if err := writeJSON(ctx, conn, map[string]any{"type": "market", "assets_ids": keys(assets)}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	s.opts.Logger.Info("price stream subscribed", zap.Int("assets", len(assets)))

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	failed := make(chan error, 2)
	go s.heartbeat(sessionCtx, conn, failed)
	go s.refreshSubscriptions(sessionCtx, conn, assets, failed)

	for {
		select {
		case err := <-failed:
			return err
		default:
		}
		_, raw, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if isPing(raw) {
			_ = conn.Write(ctx, websocket.MessageText, []byte(`{"event_type":"pong"}`))
			continue
		}
		for _, update := range parsePriceUpdates(raw) {
			if !s.seenFirst {
				s.seenFirst = true
				s.opts.Logger.Info("price stream first tick", zap.String("asset_id", update.AssetID))
			}
			if onPrice != nil {
				onPrice(update)
			}
		}
	}
}

func (s *PriceStream) currentAssets(ctx context.Context) (map[string]struct{}, error) {
	if s.opts.AssetIDProvider == nil {
		return nil, nil
	}
	ids, err := s.opts.AssetIDProvider(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (s *PriceStream) heartbeat(ctx context.Context, conn *websocket.Conn, failed chan<- error) {
	ticker := time.NewTicker(s.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancelPing := context.WithTimeout(ctx, s.opts.PingTimeout)
			err := conn.Ping(pingCtx)
			cancelPing()
			if err != nil {
				select {
				case failed <- fmt.Errorf("heartbeat: %w", err):
				default:
				}
				return
			}
		}
	}
}

// refreshSubscriptions reconciles the subscription set against the provider
// on the refresh cadence, subscribing new assets and dropping stale ones.
func (s *PriceStream) refreshSubscriptions(ctx context.Context, conn *websocket.Conn, current map[string]struct{}, failed chan<- error) {
	if s.opts.AssetIDProvider == nil {
		return
	}
	ticker := time.NewTicker(s.opts.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			next, err := s.currentAssets(ctx)
			if err != nil {
				continue
			}
			var added, removed []string
			for id := range next {
				if _, ok := current[id]; !ok {
					added = append(added, id)
				}
			}
			for id := range current {
				if _, ok := next[id]; !ok {
					removed = append(removed, id)
				}
			}
			if len(added) > 0 {
				if err := writeJSON(ctx, conn, map[string]any{"assets_ids": added, "operation": "subscribe"}); err != nil {
					select {
					case failed <- fmt.Errorf("resubscribe: %w", err):
					default:
					}
					return
				}
			}
			if len(removed) > 0 {
				_ = writeJSON(ctx, conn, map[string]any{"assets_ids": removed, "operation": "unsubscribe"})
			}
			current = next
		}
	}
}

// parsePriceUpdates extracts last_trade_price events; the feed delivers both
// single objects and batches.
func parsePriceUpdates(raw []byte) []PriceUpdate {
	var batch []json.RawMessage
	if err := json.Unmarshal(raw, &batch); err != nil {
		batch = []json.RawMessage{raw}
	}
	var out []PriceUpdate
	for _, item := range batch {
		var env struct {
			EventType string `json:"event_type"`
			AssetID   string `json:"asset_id"`
			Market    string `json:"market"`
			Price     string `json:"price"`
			Timestamp string `json:"timestamp"`
		}
		if err := json.Unmarshal(item, &env); err != nil {
			continue
		}
		if !strings.EqualFold(env.EventType, "last_trade_price") || env.AssetID == "" {
			continue
		}
		price, err := strconv.ParseFloat(env.Price, 64)
		if err != nil || price <= 0 {
			continue
		}
		update := PriceUpdate{AssetID: env.AssetID, Market: env.Market, Price: price}
		if ms, err := strconv.ParseInt(env.Timestamp, 10, 64); err == nil && ms > 0 {
			update.Timestamp = time.UnixMilli(ms).UTC()
		} else {
			update.Timestamp = time.Now().UTC()
		}
		out = append(out, update)
	}
	return out
}

func isPing(raw []byte) bool {
	if len(raw) == 0 {
		return false
	}
	if strings.TrimSpace(string(raw)) == "ping" {
		return true
	}
	var probe struct {
		Type      string `json:"type"`
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(raw, &probe); err == nil {
		return strings.EqualFold(probe.Type, "ping") || strings.EqualFold(probe.EventType, "ping")
	}
	return false
}

func writeJSON(ctx context.Context, conn *websocket.Conn, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}

func sleepJittered(ctx context.Context, base time.Duration) error {
	if base <= 0 {
		return nil
	}
	jitter := time.Duration(rand.Int63n(int64(base/2) + 1))
	timer := time.NewTimer(base + jitter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"exasignal/internal/alert"
	"exasignal/internal/client/llm"
	"exasignal/internal/client/polymarket/clob"
	polymarketdata "exasignal/internal/client/polymarket/data"
	polymarketgamma "exasignal/internal/client/polymarket/gamma"
	"exasignal/internal/client/search"
	"exasignal/internal/config"
	cronrunner "exasignal/internal/cron"
	"exasignal/internal/db"
	"exasignal/internal/handler"
	"exasignal/internal/logger"
	gormrepository "exasignal/internal/repository/gorm"
	"exasignal/internal/research"
	"exasignal/internal/scheduler"
	"exasignal/internal/scoring"
	"exasignal/internal/signalgen"
	"exasignal/internal/smartmoney"
	"exasignal/internal/whale"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("ES_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("ES_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(context.Background(), cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer dbConn.Close()

	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}
	store := gormrepository.New(dbConn.Gorm)

	gammaClient := polymarketgamma.NewClient(&http.Client{Timeout: cfg.Gamma.Timeout}, cfg.Gamma.BaseURL)
	dataClient := polymarketdata.NewClient(&http.Client{Timeout: cfg.DataAPI.Timeout}, cfg.DataAPI.BaseURL)
	clobClient := clob.NewClient(&http.Client{Timeout: cfg.ClobREST.Timeout}, cfg.ClobREST.BaseURL)

	smartMoney := smartmoney.NewService(smartmoney.Options{
		BaseURL:  strings.TrimRight(cfg.DataAPI.BaseURL, "/") + "/v1/leaderboard",
		TopN:     cfg.DataAPI.LeaderboardTopN,
		CacheTTL: cfg.DataAPI.LeaderboardRefresh,
		Client:   &http.Client{Timeout: cfg.DataAPI.Timeout},
	}, logger)

	filter := whale.NewFilter(cfg.Whale.MaxDailyTrades, cfg.Whale.MaxMonthlyTrades, logger)
	profiles := whale.NewProfileBuilder(store, smartMoney, logger)
	detector := &whale.Detector{
		Repo:      store,
		Feed:      dataClient,
		Liquidity: gammaClient,
		Filter:    filter,
		Profiles:  profiles,
		Cfg:       cfg.Whale,
		Logger:    logger,
	}

	cache := &research.Cache{Repo: store, TTL: cfg.Research.CacheTTL, Logger: logger}
	braveClient := search.NewBraveClient(
		&http.Client{Timeout: cfg.Providers.Brave.Timeout},
		cfg.Providers.Brave.BaseURL, cfg.Providers.Brave.APIKey, cfg.Providers.Brave.RPS)
	arxivClient := search.NewArxivClient(
		&http.Client{Timeout: cfg.Providers.Arxiv.Timeout},
		cfg.Providers.Arxiv.BaseURL, cfg.Providers.Arxiv.MaxResults)
	rssClient := search.NewRSSClient(
		&http.Client{Timeout: cfg.Providers.RSS.Timeout}, cfg.Providers.RSS.Feeds)
	newsapiClient := search.NewNewsAPIClient(
		&http.Client{Timeout: cfg.Providers.NewsAPI.Timeout},
		cfg.Providers.NewsAPI.BaseURL, cfg.Providers.NewsAPI.APIKey)
	exaClient := search.NewExaClient(
		&http.Client{Timeout: cfg.Providers.Exa.Timeout},
		cfg.Providers.Exa.BaseURL, cfg.Providers.Exa.APIKey)

	orchestrator := &research.Orchestrator{
		Free:    []search.Provider{braveClient, arxivClient, rssClient},
		NewsAPI: newsapiClient,
		Exa:     exaClient,
		Cache:   cache,
		Repo:    store,
		Cfg:     cfg.Research,
		Logger:  logger,
	}

	scorer := scoring.NewScorer(cfg.Scoring.Threshold)
	momentum := scoring.NewMomentumTracker(cfg.Scoring.MomentumMaxSamples)

	model := llm.NewClient(&http.Client{Timeout: cfg.LLM.Timeout}, llm.Options{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	generator := &signalgen.Generator{
		Orchestrator: orchestrator,
		Scorer:       scorer,
		Momentum:     momentum,
		Model:        model,
		SignalCfg:    cfg.Signal,
		ScoringCfg:   cfg.Scoring,
		Logger:       logger,
	}

	var notifier alert.Notifier = &alert.LogNotifier{Logger: logger}
	if cfg.Alert.WebhookURL != "" {
		notifier = &alert.WebhookNotifier{
			URL:    cfg.Alert.WebhookURL,
			Client: &http.Client{Timeout: 10 * time.Second},
			Logger: logger,
		}
	}
	alerts := &alert.Generator{Repo: store, Notifier: notifier, Cfg: cfg.Alert, Logger: logger}

	newsMonitor := scheduler.NewNewsMonitor(rssClient, store, cfg.Scheduler.NewsMaxAge, logger)
	sched := scheduler.New(cfg.Scheduler, cfg.Signal, logger)
	sched.Repo = store
	sched.Detector = detector
	sched.News = newsMonitor
	sched.Generator = generator
	sched.Alerts = alerts
	sched.Gamma = gammaClient
	sched.Momentum = momentum
	sched.SmartMoney = smartMoney
	sched.Profiles = profiles

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm, Scheduler: sched}
	healthHandler.Register(engine)
	signalHandler := &handler.SignalHandler{Repo: store, Scheduler: sched}
	signalHandler.Register(engine)
	alertHandler := &handler.AlertHandler{Repo: store}
	alertHandler.Register(engine)
	marketHandler := &handler.MarketHandler{Repo: store}
	marketHandler.Register(engine)
	statusHandler := &handler.StatusHandler{
		Repo:        store,
		Scheduler:   sched,
		Filter:      filter,
		ResearchCfg: cfg.Research,
	}
	statusHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		registerCronJobs(cronRunner, cfg, store, cache, profiles, logger)
		cronRunner.Start()
		defer cronRunner.Stop()
	} else {
		logger.Warn("cron disabled, retention and purge jobs will not run")
	}

	if _, err := smartMoney.Refresh(ctx, true); err != nil {
		logger.Warn("initial leaderboard fetch failed (continuing)", zap.Error(err))
	}
	seedMomentum(ctx, store, gammaClient, clobClient, momentum, logger)

	if cfg.ClobWS.Enabled {
		go runPriceStream(ctx, cfg.ClobWS, store, gammaClient, momentum, logger)
	}

	if cfg.Scheduler.Enabled {
		go sched.Run(ctx)
	} else {
		logger.Warn("scheduler disabled, serving API only")
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func registerCronJobs(cronRunner *cronrunner.Runner, cfg config.Config, store *gormrepository.Store, cache *research.Cache, profiles *whale.ProfileBuilder, logger *zap.Logger) {
	_, err := cronRunner.Add("wallet-retention", cfg.Cron.WalletRetention, func(ctx context.Context) {
		n, err := profiles.Cleanup(ctx, cfg.Whale.RetentionDays)
		if err != nil {
			logger.Warn("wallet retention purge failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("purged stale wallet records", zap.Int64("count", n))
		}
	})
	if err != nil {
		logger.Warn("cron register wallet retention failed", zap.Error(err))
	}
	_, err = cronRunner.Add("cache-purge", cfg.Cron.CachePurge, func(ctx context.Context) {
		n, err := cache.Purge(ctx)
		if err != nil {
			logger.Warn("research cache purge failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("purged expired research cache entries", zap.Int64("count", n))
		}
	})
	if err != nil {
		logger.Warn("cron register cache purge failed", zap.Error(err))
	}
	_, err = cronRunner.Add("signal-expiry", cfg.Cron.SignalExpiry, func(ctx context.Context) {
		n, err := store.DeleteExpiredSignals(ctx, time.Now().UTC())
		if err != nil {
			logger.Warn("delete expired signals failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("deleted expired signals", zap.Int64("count", n))
		}
	})
	if err != nil {
		logger.Warn("cron register signal expiry failed", zap.Error(err))
	}
}

// seedMomentum backfills the momentum tracker from the last day of hourly
// prices so the first scans don't score zero for lack of history.
func seedMomentum(ctx context.Context, store *gormrepository.Store, gammaClient *polymarketgamma.Client, clobClient *clob.Client, momentum *scoring.MomentumTracker, logger *zap.Logger) {
	markets, err := store.ListActiveMarkets(ctx)
	if err != nil {
		logger.Warn("momentum seed skipped, watchlist read failed", zap.Error(err))
		return
	}
	for _, market := range markets {
		gm, err := gammaClient.GetMarket(ctx, market.ID)
		if err != nil || gm == nil || len(gm.ClobTokenIDs) == 0 {
			continue
		}
		points, err := clobClient.GetPriceHistory(ctx, gm.ClobTokenIDs[0], "1d", nil, nil)
		if err != nil {
			logger.Debug("price history fetch failed",
				zap.String("market", market.ID), zap.Error(err))
			continue
		}
		for _, p := range points {
			momentum.TrackAt(market.ID, p.Price*100, p.TS)
		}
	}
	logger.Info("momentum history seeded", zap.Int("markets", len(markets)))
}

// runPriceStream feeds live trade prices into the momentum tracker. Asset
// subscriptions follow the watchlist; each asset maps back to its market.
func runPriceStream(ctx context.Context, cfg config.ClobWSConfig, store *gormrepository.Store, gammaClient *polymarketgamma.Client, momentum *scoring.MomentumTracker, logger *zap.Logger) {
	var mu sync.Mutex
	assetToMarket := map[string]string{}

	provider := func(ctx context.Context) ([]string, error) {
		markets, err := store.ListActiveMarkets(ctx)
		if err != nil {
			return nil, err
		}
		var ids []string
		mu.Lock()
		defer mu.Unlock()
		for _, market := range markets {
			if cfg.MaxAssets > 0 && len(ids) >= cfg.MaxAssets {
				break
			}
			gm, err := gammaClient.GetMarket(ctx, market.ID)
			if err != nil || gm == nil || len(gm.ClobTokenIDs) == 0 {
				continue
			}
			// YES token only, odds are one-sided anyway.
			asset := gm.ClobTokenIDs[0]
			assetToMarket[asset] = market.ID
			ids = append(ids, asset)
		}
		return ids, nil
	}

	stream := clob.NewPriceStream(clob.PriceStreamOptions{
		URL:             cfg.URL,
		AssetIDProvider: provider,
		RefreshInterval: cfg.RefreshInterval,
		Logger:          logger,
	})
	err := stream.Run(ctx, func(u clob.PriceUpdate) {
		mu.Lock()
		marketID, ok := assetToMarket[u.AssetID]
		mu.Unlock()
		if !ok || u.Price <= 0 {
			return
		}
		momentum.Track(marketID, u.Price*100)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("price stream stopped", zap.Error(err))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Cron      CronConfig      `mapstructure:"cron"`
	Gamma     GammaConfig     `mapstructure:"gamma"`
	DataAPI   DataAPIConfig   `mapstructure:"data_api"`
	ClobREST  ClobRESTConfig  `mapstructure:"clob_rest"`
	ClobWS    ClobWSConfig    `mapstructure:"clob_ws"`
	Whale     WhaleConfig     `mapstructure:"whale"`
	Research  ResearchConfig  `mapstructure:"research"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Signal    SignalConfig    `mapstructure:"signal"`
	Alert     AlertConfig     `mapstructure:"alert"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Providers ProvidersConfig `mapstructure:"providers"`
	LLM       LLMConfig       `mapstructure:"llm"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	WalletRetention string `mapstructure:"wallet_retention"`
	CachePurge      string `mapstructure:"cache_purge"`
	SignalExpiry    string `mapstructure:"signal_expiry"`
}

type GammaConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DataAPIConfig struct {
	BaseURL            string        `mapstructure:"base_url"`
	Timeout            time.Duration `mapstructure:"timeout"`
	TradeFetchLimit    int           `mapstructure:"trade_fetch_limit"`
	LeaderboardTopN    int           `mapstructure:"leaderboard_top_n"`
	LeaderboardRefresh time.Duration `mapstructure:"leaderboard_refresh"`
}

type ClobRESTConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ClobWSConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	URL             string        `mapstructure:"url"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	MaxAssets       int           `mapstructure:"max_assets"`
}

type WhaleConfig struct {
	MinSizeUSD       float64 `mapstructure:"min_size_usd"`
	LiquidityPercent float64 `mapstructure:"liquidity_percent"`
	InactivityDays   int     `mapstructure:"inactivity_days"`
	MaxDailyTrades   int     `mapstructure:"max_daily_trades"`
	MaxMonthlyTrades int     `mapstructure:"max_monthly_trades"`
	RetentionDays    int     `mapstructure:"retention_days"`
}

type ResearchConfig struct {
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	NewsAPIDailyLimit int           `mapstructure:"newsapi_daily_limit"`
	NewsAPIReserve    float64       `mapstructure:"newsapi_reserve"`
	NewsAPIPerTrigger int           `mapstructure:"newsapi_per_trigger"`
	ExaDailyLimit     int           `mapstructure:"exa_daily_limit"`
	MinFreeResults    int           `mapstructure:"min_free_results"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

type ScoringConfig struct {
	Threshold          float64 `mapstructure:"threshold"`
	MinLiquidityUSD    float64 `mapstructure:"min_liquidity_usd"`
	MomentumMaxSamples int     `mapstructure:"momentum_max_samples"`
}

type SignalConfig struct {
	MinConfidence int           `mapstructure:"min_confidence"`
	TTL           time.Duration `mapstructure:"ttl"`
	KeepRecent    int           `mapstructure:"keep_recent"`
}

type AlertConfig struct {
	MaxPerDay  int           `mapstructure:"max_per_day"`
	Cooldown   time.Duration `mapstructure:"cooldown"`
	WebhookURL string        `mapstructure:"webhook_url"`
}

type SchedulerConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	WhaleScanActive    time.Duration `mapstructure:"whale_scan_active"`
	WhaleScanOffHours  time.Duration `mapstructure:"whale_scan_off_hours"`
	NewsScanInterval   time.Duration `mapstructure:"news_scan_interval"`
	MarketOpenHourUTC  int           `mapstructure:"market_open_hour_utc"`
	MarketCloseHourUTC int           `mapstructure:"market_close_hour_utc"`
	TriggerPacing      time.Duration `mapstructure:"trigger_pacing"`
	MaxSignalsPerHour  int           `mapstructure:"max_signals_per_hour"`
	NewsMaxAge         time.Duration `mapstructure:"news_max_age"`
}

type ProvidersConfig struct {
	Brave   BraveConfig   `mapstructure:"brave"`
	NewsAPI NewsAPIConfig `mapstructure:"newsapi"`
	Exa     ExaConfig     `mapstructure:"exa"`
	Arxiv   ArxivConfig   `mapstructure:"arxiv"`
	RSS     RSSConfig     `mapstructure:"rss"`
}

type BraveConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	RPS     float64       `mapstructure:"rps"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type NewsAPIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ExaConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ArxivConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type RSSConfig struct {
	Feeds   []string      `mapstructure:"feeds"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.wallet_retention", "@every 6h")
	v.SetDefault("cron.cache_purge", "@every 1h")
	v.SetDefault("cron.signal_expiry", "@every 30m")
	v.SetDefault("gamma.base_url", "https://gamma-api.polymarket.com")
	v.SetDefault("gamma.timeout", "15s")
	v.SetDefault("data_api.base_url", "https://data-api.polymarket.com")
	v.SetDefault("data_api.timeout", "15s")
	v.SetDefault("data_api.trade_fetch_limit", 100)
	v.SetDefault("data_api.leaderboard_top_n", 100)
	v.SetDefault("data_api.leaderboard_refresh", "1h")
	v.SetDefault("clob_rest.base_url", "https://clob.polymarket.com")
	v.SetDefault("clob_rest.timeout", "15s")
	v.SetDefault("clob_ws.enabled", false)
	v.SetDefault("clob_ws.url", "")
	v.SetDefault("clob_ws.refresh_interval", "30s")
	v.SetDefault("clob_ws.max_assets", 200)

	v.SetDefault("whale.min_size_usd", 10000)
	v.SetDefault("whale.liquidity_percent", 0.02)
	v.SetDefault("whale.inactivity_days", 14)
	v.SetDefault("whale.max_daily_trades", 50)
	v.SetDefault("whale.max_monthly_trades", 500)
	v.SetDefault("whale.retention_days", 90)

	v.SetDefault("research.cache_ttl", "24h")
	v.SetDefault("research.newsapi_daily_limit", 100)
	v.SetDefault("research.newsapi_reserve", 0.2)
	v.SetDefault("research.newsapi_per_trigger", 3)
	v.SetDefault("research.exa_daily_limit", 50)
	v.SetDefault("research.min_free_results", 5)
	v.SetDefault("research.timeout", "30s")

	v.SetDefault("scoring.threshold", 70)
	v.SetDefault("scoring.min_liquidity_usd", 10000)
	v.SetDefault("scoring.momentum_max_samples", 50)

	v.SetDefault("signal.min_confidence", 60)
	v.SetDefault("signal.ttl", "24h")
	v.SetDefault("signal.keep_recent", 50)

	v.SetDefault("alert.max_per_day", 2)
	v.SetDefault("alert.cooldown", "24h")
	v.SetDefault("alert.webhook_url", "")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.whale_scan_active", "300s")
	v.SetDefault("scheduler.whale_scan_off_hours", "1800s")
	v.SetDefault("scheduler.news_scan_interval", "60s")
	v.SetDefault("scheduler.market_open_hour_utc", 13)
	v.SetDefault("scheduler.market_close_hour_utc", 2)
	v.SetDefault("scheduler.trigger_pacing", "2s")
	v.SetDefault("scheduler.max_signals_per_hour", 10)
	v.SetDefault("scheduler.news_max_age", "30m")

	v.SetDefault("providers.brave.base_url", "https://api.search.brave.com/res/v1/web/search")
	v.SetDefault("providers.brave.rps", 0.9)
	v.SetDefault("providers.brave.timeout", "30s")
	v.SetDefault("providers.newsapi.base_url", "https://newsapi.org/v2/everything")
	v.SetDefault("providers.newsapi.timeout", "30s")
	v.SetDefault("providers.exa.base_url", "https://api.exa.ai/search")
	v.SetDefault("providers.exa.timeout", "30s")
	v.SetDefault("providers.arxiv.base_url", "https://export.arxiv.org/api/query")
	v.SetDefault("providers.arxiv.max_results", 10)
	v.SetDefault("providers.arxiv.timeout", "30s")
	v.SetDefault("providers.rss.feeds", []string{
		"https://news.google.com/rss/search?q=%s&hl=en-US&gl=US&ceid=US:en",
	})
	v.SetDefault("providers.rss.timeout", "30s")

	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 800)
	v.SetDefault("llm.timeout", "60s")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

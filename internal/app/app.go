package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solscreener/internal/alerting"
	"solscreener/internal/config"
	"solscreener/internal/feed"
	"solscreener/internal/pipeline"
	"solscreener/internal/screener"
	"solscreener/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFeed() feed.Source {
	return feed.NewClient(feed.Options{
		BaseURL:        a.Config.Upstream.BaseURL,
		AuditBaseURL:   a.Config.Upstream.AuditBaseURL,
		Timeout:        a.Config.Upstream.RequestTimeout,
		UserAgent:      a.Config.Upstream.UserAgent,
		RequestsPerMin: a.Config.Upstream.RequestsPerMin,
		MaxRetries:     a.Config.Upstream.MaxRetries,
		CacheTTL:       a.Config.Upstream.CacheTTL,
	}, a.Logger)
}

func (a *App) thresholds() screener.Thresholds {
	t := a.Config.Thresholds
	return screener.Thresholds{
		MinLiquidityUSD:      decimal.NewFromFloat(t.MinLiquidityUSD),
		MinTxCount:           t.MinTxCount,
		MaxHolderShare:       decimal.NewFromFloat(t.MaxHolderShare),
		RequireLiquidityLock: t.RequireLiquidityLock,
		MinVolumeUSD:         decimal.NewFromFloat(t.MinVolumeUSD),
		MinAge:               t.MinAge,
	}
}

func (a *App) weights() screener.Weights {
	w := a.Config.Weights
	return screener.Weights{
		TxCount:    decimal.NewFromFloat(w.TxCount),
		Volume:     decimal.NewFromFloat(w.Volume),
		Liquidity:  decimal.NewFromFloat(w.Liquidity),
		TrendBonus: decimal.NewFromFloat(w.TrendBonus),
		MinScore:   decimal.NewFromFloat(w.MinScore),
	}
}

func (a *App) newRunner(source feed.Source, history pipeline.HistorySource) *pipeline.Runner {
	return pipeline.New(source, history, a.thresholds(), a.weights(), pipeline.Options{
		Chain:           a.Config.Screener.Chain,
		Workers:         a.Config.Screener.Workers,
		FetchTimeout:    a.Config.Screener.FetchTimeout,
		HistoryLookback: a.Config.Screener.HistoryLookback,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Enabled && a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}

	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// ScreenOptions configure a single screening run.
type ScreenOptions struct {
	JSON  bool
	Limit int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Runs  int
	RunAt *time.Time
}

// ExportOptions hold parameters for exporting a token's stored history.
type ExportOptions struct {
	Token     string
	From      *time.Time
	To        *time.Time
	CSVPath   string
	PNGPath   string
	MaxPoints int
}

// PruneOptions configure snapshot retention.
type PruneOptions struct {
	OlderThan time.Duration
}

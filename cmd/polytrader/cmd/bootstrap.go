package cmd

import (
	"fmt"

	"polytrader/config"
	"polytrader/internal/adapters/binanceclient"
	"polytrader/internal/adapters/gamma"
	"polytrader/internal/adapters/logger"
	"polytrader/internal/adapters/sqlite"
	"polytrader/internal/adapters/telegram"
	"polytrader/internal/app"
	"polytrader/internal/ports"
	"polytrader/internal/strategy"
)

// buildEngine assembles the engine from environment configuration. The
// returned store must be closed by the caller.
func buildEngine() (*app.Engine, *sqlite.Store, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.NewStdLogger(cfg.LogLevel)

	store, err := sqlite.NewStore(sqlite.Config{DBPath: cfg.DBPath, Logger: log})
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	marketData, err := gamma.New(gamma.Config{
		BaseURL:   cfg.GammaBaseURL,
		Timeout:   cfg.HTTPTimeout,
		Attempts:  cfg.RetryAttempts,
		BaseDelay: cfg.RetryBaseDelay,
		Logger:    log,
	})
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("create market data client: %w", err)
	}

	candles, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.BinanceAPIKey,
		SecretKey:  cfg.BinanceSecretKey,
		UseTestnet: cfg.UseTestnet,
		Logger:     log,
	})
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("create candle client: %w", err)
	}

	var notifier ports.Notifier
	tg, err := telegram.New(telegram.Config{
		Token:  cfg.TelegramToken,
		ChatID: cfg.TelegramChatID,
		Logger: log,
	})
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("create notifier: %w", err)
	}
	if tg != nil {
		notifier = tg
	}

	trend, err := strategy.NewTrend(strategy.TrendConfig{
		Interval: cfg.CandleInterval,
		Limit:    cfg.CandleLimit,
	}, candles, log)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("create trend strategy: %w", err)
	}
	divergence, err := strategy.NewDivergence(strategy.DivergenceConfig{
		Interval: cfg.CandleInterval,
		Limit:    cfg.CandleLimit,
	}, candles, log)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("create divergence strategy: %w", err)
	}

	providers := []ports.SignalProvider{
		strategy.NewContrarian(strategy.ContrarianConfig{}, nil),
		strategy.NewLateEntry(strategy.LateEntryConfig{}),
		trend,
		divergence,
	}

	engine, err := app.NewEngine(app.Deps{
		Config:     cfg,
		Logger:     log,
		MarketData: marketData,
		Providers:  providers,
		Notifier:   notifier,
		Trades:     store.Trades(),
		Accounts:   store.Accounts(),
		Breakers:   store.Breakers(),
		History:    store.History(),
	})
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("create engine: %w", err)
	}

	return engine, store, nil
}

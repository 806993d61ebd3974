package internal

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/sbl/config"
	"github.com/vadiminshakov/sbl/internal/events"
	"github.com/vadiminshakov/sbl/internal/report"
	"github.com/vadiminshakov/sbl/internal/services/market/collector"
	"github.com/vadiminshakov/sbl/internal/services/screener"
	"github.com/vadiminshakov/sbl/internal/storage/cache"
	"github.com/vadiminshakov/sbl/internal/storage/scanjournal"
	"github.com/vadiminshakov/sbl/internal/web"
	"github.com/vadiminshakov/sbl/pkg/retrier"
)

// ScreenerApp is one configured screener with its cache, journal and HTTP surface.
type ScreenerApp struct {
	Config   config.Config
	screener *screener.Screener
	journal  *scanjournal.WALStore
	server   *web.Server
	logger   *zap.Logger
	closers  []func() error
}

// NewScreenerApp builds the platform client and everything on top of it.
func NewScreenerApp(ctx context.Context, conf config.Config, logger *zap.Logger) (*ScreenerApp, error) {
	client, err := newClient(conf)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create platform client")
	}

	return newScreenerApp(ctx, conf, client, logger)
}

func newScreenerApp(ctx context.Context, conf config.Config, client any, logger *zap.Logger) (*ScreenerApp, error) {
	provider, err := newServiceProvider(client, conf.AlpacaFeed)
	if err != nil {
		return nil, err
	}

	app := &ScreenerApp{Config: conf, logger: logger}

	store, err := app.newCache(ctx)
	if err != nil {
		return nil, err
	}

	journal, err := scanjournal.NewWALStore(conf.JournalDir)
	if err != nil {
		_ = app.Close()
		return nil, errors.Wrap(err, "failed to open scan journal")
	}
	app.journal = journal
	app.closers = append(app.closers, journal.Close)

	r := retrier.New(
		retrier.WithMaxRetries(conf.Retry.MaxRetries),
		retrier.WithInitialInterval(conf.Retry.InitialInterval),
		retrier.WithRetryIf(collector.Retryable),
	)
	fetcher := collector.NewMarketDataCollector(provider.KlineProvider(), r,
		logger.With(zap.String("platform", string(conf.Platform))), conf.Interval, conf.Lookback)

	broadcaster := events.NewScanBroadcaster(8)
	opts := []screener.Option{screener.WithJournal(journal), screener.WithPublisher(broadcaster)}
	if conf.LivePrices {
		if p := provider.Pricer(); p != nil {
			opts = append(opts, screener.WithPricer(p))
		} else {
			logger.Warn("live prices requested but platform has no pricer", zap.String("platform", string(conf.Platform)))
		}
	}

	app.screener = screener.NewScreener(fetcher, store, logger, screener.Config{
		Instruments:  conf.Instruments,
		Concurrency:  conf.Concurrency,
		ScanInterval: conf.ScanInterval,
		CacheKey:     fmt.Sprintf("%s:%s", conf.Platform, conf.Interval),
		Location:     conf.Cache.Location,
	}, opts...)

	app.server = web.NewServer(conf.ListenAddr, app.screener, journal, conf.Cache.Location, logger)
	app.server.Events = broadcaster

	return app, nil
}

func (a *ScreenerApp) newCache(ctx context.Context) (cache.Store, error) {
	if a.Config.Cache.Backend != config.CacheRedis {
		return cache.NewMemoryStore(), nil
	}

	store, err := cache.NewRedisStore(ctx, a.Config.Cache.RedisAddr, a.Config.Secrets.RedisPassword, a.Config.Cache.RedisDB)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to redis cache")
	}
	a.closers = append(a.closers, store.Close)

	return store, nil
}

// Run serves HTTP and rescans on schedule until ctx is cancelled.
func (a *ScreenerApp) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.screener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if len(a.Config.TLSDomains) > 0 {
			return a.server.StartWithAutoTLS(ctx, a.Config.TLSDomains, a.Config.CertCacheDir)
		}
		return a.server.Start(ctx)
	})

	return g.Wait()
}

// ScanOnce runs a fresh scan and prints the top limit results.
func (a *ScreenerApp) ScanOnce(ctx context.Context, w io.Writer, limit int) error {
	batch, _, err := a.screener.Scan(ctx, true)
	if err != nil {
		return err
	}

	return report.Scan(w, batch, limit)
}

// Analyze prints the scenario analysis for one symbol.
func (a *ScreenerApp) Analyze(ctx context.Context, w io.Writer, symbol string) error {
	analysis, err := a.screener.Analyze(ctx, symbol)
	if err != nil {
		return err
	}

	return report.Analysis(w, analysis)
}

// Close releases the journal and cache connections.
func (a *ScreenerApp) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil

	return firstErr
}

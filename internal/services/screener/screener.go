// Package screener runs the fast scanner over the configured universe and serves full analyses.
package screener

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/sbl/internal/domain"
	"github.com/vadiminshakov/sbl/internal/events"
	"github.com/vadiminshakov/sbl/internal/sbl"
	"github.com/vadiminshakov/sbl/internal/sbscan"
	"github.com/vadiminshakov/sbl/internal/services/pricer"
	"github.com/vadiminshakov/sbl/internal/storage/cache"
)

const defaultConcurrency = 10

var (
	// ErrNoInstruments the universe is empty, nothing to scan.
	ErrNoInstruments = errors.New("no instruments configured")
	// ErrInvalidSymbol the symbol cannot be parsed into a pair.
	ErrInvalidSymbol = errors.New("invalid symbol")
)

type candleFetcher interface {
	FetchCandles(ctx context.Context, pair domain.Pair) ([]domain.MarketCandle, error)
}

type batchJournal interface {
	Append(batch sbscan.Batch) (uint64, error)
}

type scanPublisher interface {
	Publish(e events.ScanCompleted)
}

// Config screener settings.
type Config struct {
	Instruments []domain.Instrument
	Concurrency int
	// ScanInterval period of the Run loop.
	ScanInterval time.Duration
	// CacheKey identifies this universe in the cache store.
	CacheKey string
	// Location market-hours timezone for cache freshness.
	Location *time.Location
}

// Screener bounded fan-out over the instrument universe.
type Screener struct {
	fetcher candleFetcher
	pricer  pricer.Pricer
	cache   cache.Store
	journal batchJournal
	events  scanPublisher
	logger  *zap.Logger
	cfg     Config
	now     func() time.Time

	// serializes fresh scans so the Run loop and HTTP requests never scan twice at once
	scanMu sync.Mutex
}

// Option configures optional collaborators.
type Option func(*Screener)

// WithPricer overrides each instrument's last close with a live price.
func WithPricer(p pricer.Pricer) Option {
	return func(s *Screener) {
		s.pricer = p
	}
}

// WithJournal appends every non-empty batch to j.
func WithJournal(j batchJournal) Option {
	return func(s *Screener) {
		s.journal = j
	}
}

// WithPublisher announces every journaled batch to p.
func WithPublisher(p scanPublisher) Option {
	return func(s *Screener) {
		s.events = p
	}
}

// NewScreener creates a screener. A nil store gets an in-memory one.
func NewScreener(fetcher candleFetcher, store cache.Store, logger *zap.Logger, cfg Config, opts ...Option) *Screener {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if store == nil {
		store = cache.NewMemoryStore()
	}

	s := &Screener{
		fetcher: fetcher,
		cache:   store,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Scan returns the ranked batch. A fresh cached batch is served unless forceRefresh is set.
// fromCache reports whether the batch came from the cache, which includes the stale
// fallback used when a fresh scan produced no results at all.
func (s *Screener) Scan(ctx context.Context, forceRefresh bool) (batch sbscan.Batch, fromCache bool, err error) {
	if !forceRefresh {
		if cached, ok := s.cached(ctx); ok && cache.Fresh(cached, s.now(), s.cfg.Location) {
			return cached, true, nil
		}
	}

	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	// another caller may have refreshed while we waited
	if !forceRefresh {
		if cached, ok := s.cached(ctx); ok && cache.Fresh(cached, s.now(), s.cfg.Location) {
			return cached, true, nil
		}
	}

	batch, err = s.scanAll(ctx)
	if err != nil {
		return sbscan.Batch{}, false, err
	}

	if len(batch.Results) == 0 {
		if stale, ok := s.cached(ctx); ok && len(stale.Results) > 0 {
			s.logger.Warn("fresh scan returned no results, serving stale batch",
				zap.String("batch_id", stale.ID), zap.Time("finished_at", stale.FinishedAt))
			return stale, true, nil
		}
		return batch, false, nil
	}

	if err := s.cache.Save(ctx, s.cfg.CacheKey, batch); err != nil {
		s.logger.Warn("failed to cache scan batch", zap.Error(err))
	}
	s.record(batch)

	return batch, false, nil
}

func (s *Screener) record(batch sbscan.Batch) {
	if s.journal == nil {
		return
	}

	index, err := s.journal.Append(batch)
	if err != nil {
		s.logger.Warn("failed to journal scan batch", zap.String("batch_id", batch.ID), zap.Error(err))
		return
	}

	if s.events != nil {
		s.events.Publish(events.ScanCompleted{
			Index:      index,
			BatchID:    batch.ID,
			Results:    len(batch.Results),
			FinishedAt: batch.FinishedAt,
		})
	}
}

func (s *Screener) cached(ctx context.Context) (sbscan.Batch, bool) {
	b, ok, err := s.cache.Load(ctx, s.cfg.CacheKey)
	if err != nil {
		s.logger.Warn("failed to load cached scan batch", zap.Error(err))
		return sbscan.Batch{}, false
	}
	return b, ok
}

func (s *Screener) scanAll(ctx context.Context) (sbscan.Batch, error) {
	instruments := s.cfg.Instruments
	if len(instruments) == 0 {
		return sbscan.Batch{}, ErrNoInstruments
	}

	startedAt := s.now()
	results := make([]*sbscan.Result, len(instruments))
	failures := make([]error, len(instruments))

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)
	for i, inst := range instruments {
		g.Go(func() error {
			// per-instrument failures are recorded, never propagated
			results[i], failures[i] = s.scanOne(ctx, inst)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return sbscan.Batch{}, errors.Wrap(err, "scan interrupted")
	}

	batch := sbscan.Batch{
		ID:        uuid.NewString(),
		StartedAt: startedAt,
		Results:   make([]sbscan.Result, 0, len(instruments)),
	}
	for i, inst := range instruments {
		if failures[i] != nil {
			s.logger.Warn("instrument omitted from scan", zap.String("symbol", inst.Pair.String()), zap.Error(failures[i]))
			batch.Omitted = append(batch.Omitted, sbscan.Omission{Symbol: inst.Pair.String(), Reason: failures[i].Error()})
			continue
		}
		batch.Results = append(batch.Results, *results[i])
	}
	sbscan.Rank(batch.Results)
	batch.FinishedAt = s.now()

	s.logger.Info("scan completed",
		zap.String("batch_id", batch.ID),
		zap.Int("scanned", len(batch.Results)),
		zap.Int("omitted", len(batch.Omitted)),
		zap.Duration("duration", batch.FinishedAt.Sub(startedAt)))

	return batch, nil
}

func (s *Screener) scanOne(ctx context.Context, inst domain.Instrument) (*sbscan.Result, error) {
	candles, err := s.fetcher.FetchCandles(ctx, inst.Pair)
	if err != nil {
		return nil, err
	}

	var opts []sbscan.Option
	if price, ok := s.livePrice(ctx, inst.Pair); ok {
		opts = append(opts, sbscan.WithCurrentPrice(price))
	}

	return sbscan.Scan(inst.Pair.String(), inst.Name, candles, opts...)
}

// Analyze runs the full scenario engine for symbol ("BTC_USDT" or a plain ticker).
func (s *Screener) Analyze(ctx context.Context, symbol string) (*sbl.Analysis, error) {
	pair, err := domain.ParsePair(symbol)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidSymbol, "%q: %v", symbol, err)
	}

	candles, err := s.fetcher.FetchCandles(ctx, pair)
	if err != nil {
		return nil, err
	}

	var opts []sbl.Option
	if price, ok := s.livePrice(ctx, pair); ok {
		opts = append(opts, sbl.WithCurrentPrice(price))
	}

	return sbl.Analyze(pair.String(), candles, opts...)
}

// livePrice falls back to the last close on any pricer failure.
func (s *Screener) livePrice(ctx context.Context, pair domain.Pair) (float64, bool) {
	if s.pricer == nil {
		return 0, false
	}

	p, err := s.pricer.GetPrice(ctx, pair)
	if err != nil || !p.IsPositive() {
		s.logger.Warn("live price unavailable, using last close", zap.String("symbol", pair.String()), zap.Error(err))
		return 0, false
	}

	return p.InexactFloat64(), true
}

// Run scans immediately and then every ScanInterval until ctx is done.
func (s *Screener) Run(ctx context.Context) error {
	interval := s.cfg.ScanInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Starting scan loop", zap.Int("instruments", len(s.cfg.Instruments)), zap.Duration("scan_interval", interval))

	for {
		if _, _, err := s.Scan(ctx, true); err != nil && ctx.Err() == nil {
			s.logger.Error("scheduled scan failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			s.logger.Info("Context done, stopping scan loop.")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

package screener

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/sbl/internal/domain"
	"github.com/vadiminshakov/sbl/internal/events"
	"github.com/vadiminshakov/sbl/internal/sbl"
	"github.com/vadiminshakov/sbl/internal/sbscan"
	"github.com/vadiminshakov/sbl/internal/services/market/collector"
	"github.com/vadiminshakov/sbl/internal/storage/cache"
	"github.com/vadiminshakov/sbl/internal/storage/scanjournal"
	collectorMock "github.com/vadiminshakov/sbl/mocks/collector"
	pricerMock "github.com/vadiminshakov/sbl/mocks/pricer"
	"github.com/vadiminshakov/sbl/pkg/retrier"
)

var (
	rising  = domain.Instrument{Pair: domain.Pair{From: "RISE"}, Name: "Rising ASA"}
	falling = domain.Instrument{Pair: domain.Pair{From: "FALL"}, Name: "Falling ASA"}
	short   = domain.Instrument{Pair: domain.Pair{From: "SHRT"}, Name: "Short History"}
	missing = domain.Instrument{Pair: domain.Pair{From: "GONE"}, Name: "Delisted"}

	// saturday, 60 minute freshness window
	fixedNow = time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
)

func linearCandles(n int, start, step float64) []domain.MarketCandle {
	begin := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	out := make([]domain.MarketCandle, n)
	for i := range out {
		c := start + step*float64(i)
		out[i] = domain.MarketCandle{
			OpenTime: begin.AddDate(0, 0, i),
			Open:     decimal.NewFromFloat(c),
			High:     decimal.NewFromFloat(c + 1),
			Low:      decimal.NewFromFloat(c - 1),
			Close:    decimal.NewFromFloat(c),
			Volume:   decimal.NewFromInt(500),
		}
	}
	return out
}

func newTestScreener(t *testing.T, provider *collectorMock.KlineProvider, store cache.Store, instruments []domain.Instrument, opts ...Option) *Screener {
	t.Helper()

	r := retrier.New(
		retrier.WithInitialInterval(time.Millisecond),
		retrier.WithMaxRetries(1),
		retrier.WithRetryIf(collector.Retryable),
	)
	c := collector.NewMarketDataCollector(provider, r, zap.NewNop(), "1d", 120)

	s := NewScreener(c, store, zap.NewNop(), Config{
		Instruments: instruments,
		Concurrency: 2,
		CacheKey:    "test",
		Location:    time.UTC,
	}, opts...)
	s.now = func() time.Time { return fixedNow }

	return s
}

func expectUniverse(p *collectorMock.KlineProvider) {
	p.On("GetKlines", mock.Anything, rising.Pair, "1d", 120).Return(linearCandles(60, 100, 1), nil)
	p.On("GetKlines", mock.Anything, falling.Pair, "1d", 120).Return(linearCandles(60, 200, -1), nil)
	p.On("GetKlines", mock.Anything, short.Pair, "1d", 120).Return(linearCandles(5, 100, 1), nil)
	p.On("GetKlines", mock.Anything, missing.Pair, "1d", 120).
		Return(nil, errors.Wrap(collector.ErrUnknownSymbol, "csv"))
}

func TestScreener_Scan(t *testing.T) {
	provider := collectorMock.NewKlineProvider(t)
	expectUniverse(provider)

	journal, err := scanjournal.NewWALStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })

	s := newTestScreener(t, provider, cache.NewMemoryStore(),
		[]domain.Instrument{falling, short, rising, missing}, WithJournal(journal))

	batch, fromCache, err := s.Scan(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.NotEmpty(t, batch.ID)

	require.Len(t, batch.Results, 2)
	assert.Equal(t, "RISE", batch.Results[0].Symbol)
	assert.Equal(t, "Rising ASA", batch.Results[0].Name)
	assert.Equal(t, 85, batch.Results[0].Score)
	assert.Equal(t, "FALL", batch.Results[1].Symbol)
	assert.Equal(t, 55, batch.Results[1].Score)

	require.Len(t, batch.Omitted, 2)
	assert.Equal(t, "SHRT", batch.Omitted[0].Symbol)
	assert.Contains(t, batch.Omitted[0].Reason, sbscan.ErrInsufficientData.Error())
	assert.Equal(t, "GONE", batch.Omitted[1].Symbol)

	// unknown symbols are not retried
	provider.AssertNumberOfCalls(t, "GetKlines", 4)

	latest, ok, err := journal.Latest()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, batch.ID, latest.ID)

	t.Run("second call is served from cache", func(t *testing.T) {
		again, fromCache, err := s.Scan(context.Background(), false)
		require.NoError(t, err)
		assert.True(t, fromCache)
		assert.Equal(t, batch.ID, again.ID)
		provider.AssertNumberOfCalls(t, "GetKlines", 4)
	})

	t.Run("force refresh bypasses cache", func(t *testing.T) {
		again, fromCache, err := s.Scan(context.Background(), true)
		require.NoError(t, err)
		assert.False(t, fromCache)
		assert.NotEqual(t, batch.ID, again.ID)
		provider.AssertNumberOfCalls(t, "GetKlines", 8)
	})

	t.Run("expired cache triggers a fresh scan", func(t *testing.T) {
		s.now = func() time.Time { return fixedNow.Add(2 * time.Hour) }
		_, fromCache, err := s.Scan(context.Background(), false)
		require.NoError(t, err)
		assert.False(t, fromCache)
		provider.AssertNumberOfCalls(t, "GetKlines", 12)
	})
}

func TestScreener_Scan_PublishesJournaledBatch(t *testing.T) {
	provider := collectorMock.NewKlineProvider(t)
	provider.On("GetKlines", mock.Anything, rising.Pair, "1d", 120).Return(linearCandles(60, 100, 1), nil)

	journal, err := scanjournal.NewWALStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })

	b := events.NewScanBroadcaster(1)
	sub := b.Subscribe()

	s := newTestScreener(t, provider, nil, []domain.Instrument{rising}, WithJournal(journal), WithPublisher(b))
	batch, _, err := s.Scan(context.Background(), true)
	require.NoError(t, err)

	select {
	case e := <-sub:
		assert.Equal(t, batch.ID, e.BatchID)
		assert.Equal(t, journal.CurrentIndex(), e.Index)
		assert.Equal(t, 1, e.Results)
	default:
		t.Fatal("no scan event published")
	}
}

func TestScreener_Scan_StaleFallback(t *testing.T) {
	provider := collectorMock.NewKlineProvider(t)
	provider.On("GetKlines", mock.Anything, missing.Pair, "1d", 120).
		Return(nil, errors.Wrap(collector.ErrUnknownSymbol, "csv"))

	store := cache.NewMemoryStore()
	stale := sbscan.Batch{
		ID:         "old",
		FinishedAt: fixedNow.Add(-3 * time.Hour),
		Results:    []sbscan.Result{{Symbol: "GONE", Score: 40}},
	}
	require.NoError(t, store.Save(context.Background(), "test", stale))

	s := newTestScreener(t, provider, store, []domain.Instrument{missing})

	batch, fromCache, err := s.Scan(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, "old", batch.ID)
}

func TestScreener_Scan_Errors(t *testing.T) {
	t.Run("empty universe", func(t *testing.T) {
		s := newTestScreener(t, collectorMock.NewKlineProvider(t), nil, nil)
		_, _, err := s.Scan(context.Background(), true)
		assert.ErrorIs(t, err, ErrNoInstruments)
	})

	t.Run("cancelled context", func(t *testing.T) {
		provider := collectorMock.NewKlineProvider(t)
		provider.On("GetKlines", mock.Anything, rising.Pair, "1d", 120).
			Return(nil, context.Canceled).Maybe()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		s := newTestScreener(t, provider, nil, []domain.Instrument{rising})
		_, _, err := s.Scan(ctx, true)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestScreener_LivePrice(t *testing.T) {
	tests := []struct {
		name      string
		price     decimal.Decimal
		priceErr  error
		wantPrice float64
	}{
		{name: "live price overrides last close", price: decimal.NewFromFloat(158.5), wantPrice: 158.5},
		{name: "pricer failure falls back to last close", priceErr: errors.New("rate limited"), wantPrice: 159},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := collectorMock.NewKlineProvider(t)
			provider.On("GetKlines", mock.Anything, rising.Pair, "1d", 120).Return(linearCandles(60, 100, 1), nil)

			p := pricerMock.NewPricer(t)
			p.On("GetPrice", mock.Anything, rising.Pair).Return(tt.price, tt.priceErr)

			s := newTestScreener(t, provider, nil, []domain.Instrument{rising}, WithPricer(p))

			batch, _, err := s.Scan(context.Background(), true)
			require.NoError(t, err)
			require.Len(t, batch.Results, 1)
			assert.InDelta(t, tt.wantPrice, batch.Results[0].CurrentPrice, 1e-9)
		})
	}
}

func TestScreener_Analyze(t *testing.T) {
	provider := collectorMock.NewKlineProvider(t)
	provider.On("GetKlines", mock.Anything, rising.Pair, "1d", 120).Return(linearCandles(60, 100, 1), nil)
	provider.On("GetKlines", mock.Anything, short.Pair, "1d", 120).Return(linearCandles(20, 100, 1), nil)
	provider.On("GetKlines", mock.Anything, missing.Pair, "1d", 120).
		Return(nil, errors.Wrap(collector.ErrUnknownSymbol, "csv"))

	s := newTestScreener(t, provider, nil, nil)

	tests := []struct {
		name       string
		symbol     string
		wantErr    error
		wantActive sbl.ScenarioID
	}{
		{name: "breakout setup", symbol: "rise", wantActive: sbl.ScenarioBreakout},
		{name: "insufficient data", symbol: "SHRT", wantErr: sbl.ErrInsufficientData},
		{name: "unknown symbol", symbol: "GONE", wantErr: collector.ErrUnknownSymbol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := s.Analyze(context.Background(), tt.symbol)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "RISE", a.Symbol)
			assert.Equal(t, tt.wantActive, a.ActiveScenario)
			assert.Equal(t, 60, a.DataPoints)
		})
	}

	_, err := s.Analyze(context.Background(), " ")
	assert.ErrorIs(t, err, ErrInvalidSymbol)
}

func TestScreener_Run_StopsOnCancel(t *testing.T) {
	provider := collectorMock.NewKlineProvider(t)
	provider.On("GetKlines", mock.Anything, rising.Pair, "1d", 120).Return(linearCandles(60, 100, 1), nil)

	s := newTestScreener(t, provider, nil, []domain.Instrument{rising})
	s.cfg.ScanInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		b, ok, _ := s.cache.Load(context.Background(), "test")
		return ok && len(b.Results) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

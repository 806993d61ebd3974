package web

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/sbl/internal/domain"
	"github.com/vadiminshakov/sbl/internal/events"
	"github.com/vadiminshakov/sbl/internal/sbl"
	"github.com/vadiminshakov/sbl/internal/sbscan"
	"github.com/vadiminshakov/sbl/internal/services/market/collector"
	"github.com/vadiminshakov/sbl/internal/services/screener"
	"github.com/vadiminshakov/sbl/internal/storage/scanjournal"
)

// saturday noon, off-hours 60 minute window
var fixedNow = time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

type fakeScanner struct {
	batch      sbscan.Batch
	fromCache  bool
	scanErr    error
	lastForce  bool
	analyses   map[string][]domain.MarketCandle
	analyzeErr map[string]error
}

func (f *fakeScanner) Scan(_ context.Context, forceRefresh bool) (sbscan.Batch, bool, error) {
	f.lastForce = forceRefresh
	return f.batch, f.fromCache, f.scanErr
}

func (f *fakeScanner) Analyze(_ context.Context, symbol string) (*sbl.Analysis, error) {
	if err, ok := f.analyzeErr[symbol]; ok {
		return nil, err
	}
	return sbl.Analyze(symbol, f.analyses[symbol])
}

func results(n int) []sbscan.Result {
	out := make([]sbscan.Result, n)
	for i := range out {
		out[i] = sbscan.Result{Symbol: "T" + string(rune('A'+i%26)), Score: 100 - i%100}
	}
	return out
}

func risingCandles(n int) []domain.MarketCandle {
	begin := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	out := make([]domain.MarketCandle, n)
	for i := range out {
		c := 100 + float64(i)
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

func newTestServer(sc scanner, journal batchReader) *Server {
	s := NewServer(":0", sc, journal, time.UTC, zap.NewNop())
	s.now = func() time.Time { return fixedNow }
	return s
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{raw: "", want: 50},
		{raw: "abc", want: 50},
		{raw: "5", want: 10},
		{raw: "25", want: 25},
		{raw: "500", want: 200},
		{raw: "-3", want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLimit(tt.raw))
		})
	}
}

func TestHandleScan(t *testing.T) {
	fresh := sbscan.Batch{ID: "b1", FinishedAt: fixedNow.Add(-10 * time.Minute), Results: results(60)}
	stale := sbscan.Batch{ID: "b0", FinishedAt: fixedNow.Add(-2 * time.Hour), Results: results(3)}

	tests := []struct {
		name          string
		sc            *fakeScanner
		target        string
		wantStatus    int
		wantLen       int
		wantTotal     int
		wantFromCache bool
		wantStale     bool
		wantCacheAge  *int64
		wantForce     bool
	}{
		{
			name:       "fresh scan with default limit",
			sc:         &fakeScanner{batch: fresh},
			target:     "/api/sb-scan",
			wantStatus: http.StatusOK, wantLen: 50, wantTotal: 60,
		},
		{
			name:       "limit and force refresh",
			sc:         &fakeScanner{batch: fresh},
			target:     "/api/sb-scan?limit=12&forceRefresh=true",
			wantStatus: http.StatusOK, wantLen: 12, wantTotal: 60, wantForce: true,
		},
		{
			name:       "cached batch reports its age",
			sc:         &fakeScanner{batch: fresh, fromCache: true},
			target:     "/api/sb-scan?limit=200",
			wantStatus: http.StatusOK, wantLen: 60, wantTotal: 60, wantFromCache: true,
			wantCacheAge: ptr(int64(600)),
		},
		{
			name:       "stale fallback is flagged",
			sc:         &fakeScanner{batch: stale, fromCache: true},
			target:     "/api/sb-scan",
			wantStatus: http.StatusOK, wantLen: 3, wantTotal: 3, wantFromCache: true, wantStale: true,
			wantCacheAge: ptr(int64(7200)),
		},
		{
			name:       "empty universe",
			sc:         &fakeScanner{scanErr: screener.ErrNoInstruments},
			target:     "/api/sb-scan",
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "scan failure",
			sc:         &fakeScanner{scanErr: errors.New("boom")},
			target:     "/api/sb-scan",
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, newTestServer(tt.sc, nil).Routes(), tt.target)
			require.Equal(t, tt.wantStatus, rec.Code)

			var resp scanResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotNil(t, resp.Results)
			assert.Len(t, resp.Results, tt.wantLen)
			assert.Equal(t, tt.wantTotal, resp.TotalCount)
			assert.Equal(t, tt.wantFromCache, resp.FromCache)
			assert.Equal(t, tt.wantStale, resp.Stale)
			assert.Equal(t, tt.wantCacheAge, resp.CacheAge)
			assert.Equal(t, tt.wantForce, tt.sc.lastForce)
			if tt.wantStatus != http.StatusOK {
				assert.NotEmpty(t, resp.Error)
			}
		})
	}
}

func TestHandleAnalysis(t *testing.T) {
	sc := &fakeScanner{
		analyses: map[string][]domain.MarketCandle{
			"RISE": risingCandles(60),
			"SHRT": risingCandles(12),
		},
		analyzeErr: map[string]error{
			"GONE": errors.Wrap(collector.ErrUnknownSymbol, "binance: GONE"),
			"BAD":  errors.Wrap(screener.ErrInvalidSymbol, "BAD"),
			"OOPS": errors.New("exchange down"),
		},
	}
	h := newTestServer(sc, nil).Routes()

	tests := []struct {
		symbol     string
		wantStatus int
	}{
		{symbol: "RISE", wantStatus: http.StatusOK},
		{symbol: "SHRT", wantStatus: http.StatusUnprocessableEntity},
		{symbol: "GONE", wantStatus: http.StatusNotFound},
		{symbol: "BAD", wantStatus: http.StatusBadRequest},
		{symbol: "OOPS", wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			rec := get(t, h, "/api/analysis/"+tt.symbol)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.wantStatus != http.StatusOK {
				assert.NotEmpty(t, body["error"])
				return
			}
			assert.Equal(t, "RISE", body["ticker"])
			assert.Equal(t, "A", body["activeScenario"])
			assert.NotEmpty(t, body["summary"])
			assert.Contains(t, body, "scenarioA")
		})
	}
}

func TestHandleHealth(t *testing.T) {
	rec := get(t, newTestServer(&fakeScanner{}, nil).Routes(), "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHandleScanStream(t *testing.T) {
	t.Run("journal not configured", func(t *testing.T) {
		rec := get(t, newTestServer(&fakeScanner{}, nil).Routes(), "/api/sb-scan/stream")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	journal, err := scanjournal.NewWALStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })

	for _, id := range []string{"b1", "b2"} {
		_, err := journal.Append(sbscan.Batch{ID: id, Results: results(1)})
		require.NoError(t, err)
	}

	srv := httptest.NewServer(newTestServer(&fakeScanner{}, journal).Routes())
	t.Cleanup(srv.Close)

	tests := []struct {
		name        string
		lastEventID string
		wantFirstID string
	}{
		{name: "replays from the start", wantFirstID: "1"},
		{name: "resumes after last event id", lastEventID: "1", wantFirstID: "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/sb-scan/stream", nil)
			require.NoError(t, err)
			if tt.lastEventID != "" {
				req.Header.Set("Last-Event-ID", tt.lastEventID)
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

			reader := bufio.NewReader(resp.Body)
			id, _ := reader.ReadString('\n')
			event, _ := reader.ReadString('\n')
			data, _ := reader.ReadString('\n')

			assert.Equal(t, "id: "+tt.wantFirstID, strings.TrimSpace(id))
			assert.Equal(t, "event: scan", strings.TrimSpace(event))

			var batch sbscan.Batch
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(data), "data: ")), &batch))
			assert.Equal(t, "b"+tt.wantFirstID, batch.ID)
		})
	}
}

func TestHandleScanStream_WakesOnEvent(t *testing.T) {
	journal, err := scanjournal.NewWALStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })

	b := events.NewScanBroadcaster(1)
	s := newTestServer(&fakeScanner{}, journal)
	s.Events = b

	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)

	// shorter than the journal poll interval
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/sb-scan/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	event, _ := reader.ReadString('\n')
	require.Equal(t, "event: no_data", strings.TrimSpace(event))
	_, _ = reader.ReadString('\n')
	_, _ = reader.ReadString('\n')

	require.Eventually(t, func() bool { return b.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	index, err := journal.Append(sbscan.Batch{ID: "live", Results: results(1)})
	require.NoError(t, err)
	b.Publish(events.ScanCompleted{Index: index, BatchID: "live"})

	id, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "id: 1", strings.TrimSpace(id))
}

func ptr[T any](v T) *T { return &v }

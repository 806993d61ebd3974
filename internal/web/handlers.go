package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/sbl/internal/sbl"
	"github.com/vadiminshakov/sbl/internal/sbscan"
	"github.com/vadiminshakov/sbl/internal/services/market/collector"
	"github.com/vadiminshakov/sbl/internal/services/screener"
	"github.com/vadiminshakov/sbl/internal/storage/cache"
	"github.com/vadiminshakov/sbl/internal/ta"
)

const (
	defaultLimit = 50
	minLimit     = 10
	maxLimit     = 200
)

type scanResponse struct {
	Results    []sbscan.Result `json:"results"`
	TotalCount int             `json:"totalCount"`
	FromCache  bool            `json:"fromCache"`
	Stale      bool            `json:"stale,omitempty"`
	// CacheAge seconds since the batch finished, set only for cached batches.
	CacheAge    *int64    `json:"cacheAge,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`
	Error       string    `json:"error,omitempty"`
}

type analysisResponse struct {
	*sbl.Analysis
	Summary string `json:"summary"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, msg string) {
	writeJSON(w, statusCode, map[string]string{"error": msg})
}

// parseLimit clamps to [10,200]; anything unparsable means the default.
func parseLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultLimit
	}
	return min(maxLimit, max(minLimit, n))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   s.now().UTC(),
	})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"))
	forceRefresh := r.URL.Query().Get("forceRefresh") == "true"

	batch, fromCache, err := s.Scanner.Scan(r.Context(), forceRefresh)
	if err != nil {
		status, msg := http.StatusInternalServerError, "failed to run scan"
		if errors.Is(err, screener.ErrNoInstruments) {
			status, msg = http.StatusServiceUnavailable, "no instruments available"
		}
		s.Logger.Error("scan request failed", zap.Error(err))
		writeJSON(w, status, scanResponse{Results: []sbscan.Result{}, Error: msg})
		return
	}

	resp := scanResponse{
		Results:     batch.Top(limit),
		TotalCount:  len(batch.Results),
		FromCache:   fromCache,
		LastUpdated: batch.FinishedAt,
	}
	if resp.Results == nil {
		resp.Results = []sbscan.Result{}
	}
	if fromCache {
		now := s.now()
		age := int64(now.Sub(batch.FinishedAt).Round(time.Second) / time.Second)
		resp.CacheAge = &age
		resp.Stale = !cache.Fresh(batch, now, s.Location)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	a, err := s.Scanner.Analyze(r.Context(), symbol)
	if err != nil {
		switch {
		case errors.Is(err, screener.ErrInvalidSymbol):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, collector.ErrUnknownSymbol):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, sbl.ErrInsufficientData), errors.Is(err, collector.ErrNoData), errors.Is(err, ta.ErrMalformedCandle):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			s.Logger.Error("analysis failed", zap.String("symbol", symbol), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "analysis failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, analysisResponse{Analysis: a, Summary: a.Summary()})
}

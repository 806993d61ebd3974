// Package web serves the scan and analysis HTTP API and the scan SSE stream.
package web

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/vadiminshakov/sbl/internal/events"
	"github.com/vadiminshakov/sbl/internal/sbl"
	"github.com/vadiminshakov/sbl/internal/sbscan"
	"github.com/vadiminshakov/sbl/internal/storage/scanjournal"
)

type scanner interface {
	Scan(ctx context.Context, forceRefresh bool) (sbscan.Batch, bool, error)
	Analyze(ctx context.Context, symbol string) (*sbl.Analysis, error)
}

type batchReader interface {
	BatchesAfter(index uint64) ([]scanjournal.Record, error)
}

// Server exposes the HTTP API.
type Server struct {
	Addr    string
	Scanner scanner
	Journal batchReader
	// Events wakes stream subscribers as soon as a batch is journaled. Optional.
	Events *events.ScanBroadcaster
	// Location market-hours timezone used to flag stale cached batches.
	Location *time.Location
	Logger   *zap.Logger

	now func() time.Time
}

// NewServer creates a new web server instance. journal may be nil, the stream endpoint then answers 503.
func NewServer(addr string, sc scanner, journal batchReader, loc *time.Location, logger *zap.Logger) *Server {
	if loc == nil {
		loc = time.UTC
	}
	return &Server{
		Addr:     addr,
		Scanner:  sc,
		Journal:  journal,
		Location: loc,
		Logger:   logger,
		now:      time.Now,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/api/sb-scan/stream", s.handleScanStream)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5, "application/json"))
		r.Get("/api/sb-scan", s.handleScan)
		r.Get("/api/analysis/{symbol}", s.handleAnalysis)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.Logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.Logger.Info("HTTP server listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS runs an HTTPS server with automatic TLS certificates via ACME.
// It also starts an HTTP server on port 80 to handle ACME HTTP-01 challenges.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if len(domains) == 0 {
		return fmt.Errorf("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	// HTTP server on port 80 for ACME challenges and HTTP->HTTPS redirects.
	httpSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	httpsSrv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
		TLSConfig:         tlsConfig,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Warn("http (acme) server shutdown error", zap.Error(err))
		}
		if err := httpsSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Warn("https server shutdown error", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Error("http (acme) server error", zap.Error(err))
		}
	}()

	s.Logger.Info("HTTPS server listening", zap.String("addr", s.Addr), zap.Strings("domains", domains))
	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

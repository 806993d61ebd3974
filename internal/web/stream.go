package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/sbl/internal/events"
)

const journalPollInterval = 3 * time.Second

func (s *Server) handleScanStream(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "scan journal not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// send a comment heartbeat every 20s so proxies keep connection
	heartbeat := time.NewTicker(20 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(journalPollInterval)
	defer pollTicker.Stop()

	// nil channel when no broadcaster is wired, polling alone drives the stream
	var completed chan events.ScanCompleted
	if s.Events != nil {
		completed = s.Events.Subscribe()
		defer s.Events.Unsubscribe(completed)
	}

	lastIndex := s.parseLastEventID(r.Header.Get("Last-Event-ID"), r.URL.Query().Get("last_event_id"))
	sendBatches := func() error {
		records, err := s.Journal.BatchesAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Batch)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "id: %d\n", record.Index)
			fmt.Fprintf(w, "event: scan\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	if err := sendBatches(); err != nil {
		http.Error(w, "failed to load scan batches", http.StatusInternalServerError)
		s.Logger.Error("scan stream initial load", zap.Error(err))
		return
	}

	// lets the client leave its loading state when nothing was journaled yet
	if lastIndex == 0 {
		fmt.Fprintf(w, "event: no_data\n")
		fmt.Fprintf(w, "data: {}\n\n")
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-completed:
			if err := sendBatches(); err != nil {
				s.Logger.Warn("scan stream notify", zap.Error(err))
			}
		case <-pollTicker.C:
			if err := sendBatches(); err != nil {
				s.Logger.Warn("scan stream poll", zap.Error(err))
			}
		}
	}
}

// parseLastEventID extracts an SSE event ID from either the Last-Event-ID header or a query parameter.
// The header is preferred; the query parameter allows manual reconnects to resume from a known index.
func (s *Server) parseLastEventID(headerVal, queryVal string) uint64 {
	idStr := strings.TrimSpace(headerVal)
	if idStr == "" {
		idStr = strings.TrimSpace(queryVal)
	}
	if idStr == "" {
		return 0
	}

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		s.Logger.Debug("invalid last event id", zap.String("id", idStr), zap.Error(err))
		return 0
	}
	return id
}

// Command sse_load opens many subscriptions to the scan stream and reports
// how many scan batches each connection received.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

type counters struct {
	connected   atomic.Int64
	connectErrs atomic.Int64
	streamErrs  atomic.Int64
	scans       atomic.Int64
	noData      atomic.Int64
}

func (c *counters) String() string {
	return fmt.Sprintf("connected=%d connect_errs=%d stream_errs=%d scans=%d no_data=%d",
		c.connected.Load(), c.connectErrs.Load(), c.streamErrs.Load(), c.scans.Load(), c.noData.Load())
}

func main() {
	var (
		targetURL    string
		connections  int
		testDuration time.Duration
		rampUp       time.Duration
		lastEventID  string
	)

	flag.StringVar(&targetURL, "url", "http://localhost:8080/api/sb-scan/stream", "scan stream URL")
	flag.IntVar(&connections, "conns", 200, "number of concurrent subscriptions")
	flag.DurationVar(&testDuration, "dur", 60*time.Second, "test duration (0 for until interrupted)")
	flag.DurationVar(&rampUp, "ramp", 0, "spread connection starts across this window")
	flag.StringVar(&lastEventID, "last-event-id", "", "resume every subscription after this journal index")
	flag.Parse()

	if connections <= 0 {
		log.Fatalf("invalid conns: %d", connections)
	}
	if rampUp == 0 && connections > 100 {
		// 1 second per 500 connections
		rampUp = max(time.Duration(connections/500)*time.Second, time.Second)
		log.Printf("using default ramp-up %s", rampUp)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if testDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, testDuration)
		defer cancel()
	}

	client := &http.Client{
		Transport: &http.Transport{
			MaxConnsPerHost:     connections + 100,
			MaxIdleConns:        connections + 100,
			MaxIdleConnsPerHost: connections + 100,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}

	log.Printf("starting scan stream load: url=%s conns=%d duration=%s ramp=%s", targetURL, connections, testDuration, rampUp)

	var (
		stats counters
		wg    sync.WaitGroup
		start = time.Now()
	)

	go report(ctx, &stats, start)

	interval := rampUp / time.Duration(connections)
	for i := 0; i < connections && ctx.Err() == nil; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
				continue
			case <-time.After(interval):
			}
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			subscribe(ctx, client, targetURL, lastEventID, &stats)
		}()
	}

	wg.Wait()

	elapsed := max(time.Since(start), time.Millisecond)
	fmt.Printf("done: %s elapsed=%s scans/s=%.2f\n", &stats, elapsed.Truncate(time.Millisecond),
		float64(stats.scans.Load())/elapsed.Seconds())
}

func subscribe(ctx context.Context, client *http.Client, url, lastEventID string, stats *counters) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		stats.connectErrs.Add(1)
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}

	resp, err := client.Do(req)
	if err != nil {
		stats.connectErrs.Add(1)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		stats.connectErrs.Add(1)
		return
	}
	stats.connected.Add(1)

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if ctx.Err() == nil {
				stats.streamErrs.Add(1)
			}
			return
		}

		// heartbeats are comments and are not counted
		switch strings.TrimSpace(line) {
		case "event: scan":
			stats.scans.Add(1)
		case "event: no_data":
			stats.noData.Add(1)
		}
	}
}

func report(ctx context.Context, stats *counters, start time.Time) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Printf("status: %s elapsed=%s", stats, time.Since(start).Truncate(time.Second))
		}
	}
}

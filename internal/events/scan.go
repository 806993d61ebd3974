package events

import (
	"sync"
	"time"
)

// ScanCompleted announces a batch that was just written to the scan journal.
type ScanCompleted struct {
	Index      uint64    `json:"index"`
	BatchID    string    `json:"batchId"`
	Results    int       `json:"results"`
	FinishedAt time.Time `json:"finishedAt"`
}

// ScanBroadcaster fans out completions to all subscribers via buffered channels.
type ScanBroadcaster struct {
	mu     sync.RWMutex
	subs   map[chan ScanCompleted]struct{}
	buffer int
}

// NewScanBroadcaster creates a broadcaster with the given per-subscriber buffer.
func NewScanBroadcaster(buffer int) *ScanBroadcaster {
	if buffer < 1 {
		buffer = 8
	}
	return &ScanBroadcaster{
		subs:   make(map[chan ScanCompleted]struct{}),
		buffer: buffer,
	}
}

// Publish sends the event to all subscribers, dropping it for a slow reader.
func (b *ScanBroadcaster) Publish(e ScanCompleted) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// slow consumer catches up from the journal on the next event
		}
	}
}

// Subscribe returns a channel that receives events until Unsubscribe is called.
func (b *ScanBroadcaster) Subscribe() chan ScanCompleted {
	ch := make(chan ScanCompleted, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel and closes it.
func (b *ScanBroadcaster) Unsubscribe(ch chan ScanCompleted) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Subscribers returns the number of live subscriptions.
func (b *ScanBroadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

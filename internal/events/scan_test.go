package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanBroadcaster(t *testing.T) {
	b := NewScanBroadcaster(1)

	first := b.Subscribe()
	second := b.Subscribe()
	require.Equal(t, 2, b.Subscribers())

	b.Publish(ScanCompleted{Index: 1, BatchID: "b1"})
	assert.Equal(t, uint64(1), (<-first).Index)
	assert.Equal(t, "b1", (<-second).BatchID)

	t.Run("slow subscriber drops events", func(t *testing.T) {
		b.Publish(ScanCompleted{Index: 2})
		b.Publish(ScanCompleted{Index: 3})
		assert.Equal(t, uint64(2), (<-first).Index)
		assert.Empty(t, first)
		<-second
	})

	t.Run("unsubscribe closes the channel", func(t *testing.T) {
		b.Unsubscribe(first)
		_, open := <-first
		assert.False(t, open)
		assert.Equal(t, 1, b.Subscribers())

		// second call is a no-op
		b.Unsubscribe(first)
	})
}

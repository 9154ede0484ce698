package asyncsink

import (
	"context"
	"sync"
	"testing"
	"time"

	"benthic/internal/events"
	"benthic/internal/ids"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSink struct {
	mu     sync.Mutex
	trades int
}

func (c *countingSink) OnPromise(events.Promise) {}
func (c *countingSink) OnExecute(events.Execute) {}
func (c *countingSink) OnCancel(events.Cancel)   {}
func (c *countingSink) OnDepth(events.Depth)     {}
func (c *countingSink) OnTrade(events.Trade) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trades++
}

func (c *countingSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trades
}

func TestAsyncSinkDeliversAllEventsBeforeClose(t *testing.T) {
	inner := &countingSink{}
	s := New(context.Background(), inner, 2)

	for i := 0; i < 50; i++ {
		s.OnTrade(events.Trade{Instrument: ids.Instrument{Base: "BTC", Quote: "ETH"}})
	}
	require.NoError(t, s.Close())
	assert.Equal(t, 50, inner.count())
}

func TestAsyncSinkStopsAcceptingAfterClose(t *testing.T) {
	inner := &countingSink{}
	s := New(context.Background(), inner, 1)
	require.NoError(t, s.Close())

	done := make(chan struct{})
	go func() {
		s.OnTrade(events.Trade{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue after close should not block forever")
	}
}

// Package asyncsink decorates an events.Sink so its callbacks run off
// the exchange's single cooperative execution thread (spec.md §5 treats
// event delivery as an external, best-effort concern once an event has
// been emitted). It is grounded on the teacher's tomb-supervised
// WorkerPool (internal/worker.go, internal/server.go): a fixed pool of
// goroutines drains a task channel under a tomb.Tomb, so the pool can be
// torn down cleanly instead of leaking goroutines on shutdown.
package asyncsink

import (
	"context"

	"benthic/internal/events"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const defaultQueueSize = 256

// envelope carries one queued event call through to a worker.
type envelope func(events.Sink)

// Sink fans events out to an inner events.Sink from a small pool of
// worker goroutines, so a slow inner sink (a metrics exporter, a network
// publisher) does not stall order processing while its queue has room.
// Events are buffered in a queue of defaultQueueSize; once that queue is
// full, each callback blocks until a worker frees a slot.
type Sink struct {
	inner events.Sink
	tasks chan envelope
	t     *tomb.Tomb
}

// New starts workers worker goroutines draining into inner, supervised
// by a tomb.Tomb derived from ctx. Call Close to drain and stop them.
func New(ctx context.Context, inner events.Sink, workers int) *Sink {
	if workers < 1 {
		workers = 1
	}
	t, ctx := tomb.WithContext(ctx)
	s := &Sink{
		inner: inner,
		tasks: make(chan envelope, defaultQueueSize),
		t:     t,
	}
	for i := 0; i < workers; i++ {
		t.Go(func() error {
			return s.worker()
		})
	}
	return s
}

func (s *Sink) worker() error {
	for {
		select {
		case <-s.t.Dying():
			// Deliver whatever is already queued before stopping.
			for {
				select {
				case fn, ok := <-s.tasks:
					if !ok {
						return nil
					}
					fn(s.inner)
				default:
					return nil
				}
			}
		case fn, ok := <-s.tasks:
			if !ok {
				return nil
			}
			fn(s.inner)
		}
	}
}

// Close stops accepting new events and waits for queued ones to drain.
func (s *Sink) Close() error {
	close(s.tasks)
	s.t.Kill(nil)
	return s.t.Wait()
}

func (s *Sink) enqueue(fn envelope) {
	select {
	case <-s.t.Dying():
		log.Warn().Msg("asyncsink: dropping event, sink is shutting down")
		return
	default:
	}
	select {
	case s.tasks <- fn:
	case <-s.t.Dying():
		log.Warn().Msg("asyncsink: dropping event, sink is shutting down")
	}
}

func (s *Sink) OnPromise(e events.Promise) { s.enqueue(func(inner events.Sink) { inner.OnPromise(e) }) }
func (s *Sink) OnExecute(e events.Execute) { s.enqueue(func(inner events.Sink) { inner.OnExecute(e) }) }
func (s *Sink) OnCancel(e events.Cancel)   { s.enqueue(func(inner events.Sink) { inner.OnCancel(e) }) }
func (s *Sink) OnDepth(e events.Depth)     { s.enqueue(func(inner events.Sink) { inner.OnDepth(e) }) }
func (s *Sink) OnTrade(e events.Trade)     { s.enqueue(func(inner events.Sink) { inner.OnTrade(e) }) }

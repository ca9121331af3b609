// Package eventbus implements the process-wide broadcast primitive described
// in spec.md §4.1: publishers never block on slow subscribers, and a
// subscriber that falls behind is told how many events it dropped via
// Lagged rather than silently losing consistency.
package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agentcore/runtime/pkg/models"
)

// DefaultBufferSize is the default bounded per-subscriber buffer
// (spec.md §4.1).
const DefaultBufferSize = 1024

// Bus is a multicast publish/subscribe channel. It is safe for concurrent
// publish and subscribe from any number of goroutines.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[*Subscription]struct{}
	bufferSize  int
	closed      bool

	published prometheus.Counter
	lagged    prometheus.Counter
	dropped   prometheus.Counter
}

// New creates an event bus whose subscribers are given a buffer of
// bufferSize (DefaultBufferSize if <= 0).
func New(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Bus{
		subscribers: make(map[*Subscription]struct{}),
		bufferSize:  bufferSize,
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentrun_eventbus_published_total",
			Help: "Total events published to the bus.",
		}),
		lagged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentrun_eventbus_lagged_total",
			Help: "Total Lagged signals delivered to subscribers.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentrun_eventbus_dropped_total",
			Help: "Total events dropped because a subscriber's buffer was full.",
		}),
	}
}

// Collectors exposes this bus's prometheus counters for registration.
func (b *Bus) Collectors() []prometheus.Collector {
	return []prometheus.Collector{b.published, b.lagged, b.dropped}
}

// Subscription is a single subscriber's bounded view of the bus. Events for
// a single (WorkerID, JobID) pair arrive in publish order as long as this
// subscription never lags; cross-worker ordering is not guaranteed
// (spec.md §5).
type Subscription struct {
	bus     *Bus
	events  chan models.Event
	lagged  chan uint64
	dropped uint64
	mu      sync.Mutex
}

// Subscribe registers a new subscription with the bus's configured buffer
// size. Callers must eventually call Unsubscribe.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		bus:    b,
		events: make(chan models.Event, b.bufferSize),
		lagged: make(chan uint64, 1),
	}
	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes the subscription from the bus. Safe to call more
// than once.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	delete(b.subscribers, sub)
	b.mu.Unlock()
}

// Publish fans the event out to every current subscriber without blocking.
// A subscriber whose buffer is full has an event dropped and its lag
// counter incremented; it will receive a Lagged signal the next time it
// calls Recv.
func (b *Bus) Publish(e models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	b.published.Inc()
	for sub := range b.subscribers {
		select {
		case sub.events <- e:
		default:
			b.dropped.Inc()
			sub.mu.Lock()
			sub.dropped++
			select {
			case sub.lagged <- sub.dropped:
			default:
			}
			sub.mu.Unlock()
		}
	}
}

// Close shuts the bus down; every subscriber's Recv returns a RecvResult
// with Closed set once its buffer drains.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subscribers {
		close(sub.events)
	}
	b.subscribers = make(map[*Subscription]struct{})
}

// RecvResult is the outcome of a single Recv call: exactly one of Event,
// Lagged, or Closed is meaningful.
type RecvResult struct {
	Event  models.Event
	Lagged uint64
	Closed bool
}

// Recv blocks until the next event, a lag notification, bus closure, or
// context cancellation. UIs that subscribe after a job starts reconcile a
// Lagged signal by re-fetching a snapshot (GetWorkers / conversation
// history) rather than assuming incremental consistency (spec.md §4.1).
func (s *Subscription) Recv(ctx context.Context) (RecvResult, error) {
	select {
	case n := <-s.lagged:
		s.bus.lagged.Inc()
		return RecvResult{Lagged: n}, nil
	default:
	}

	select {
	case n := <-s.lagged:
		s.bus.lagged.Inc()
		return RecvResult{Lagged: n}, nil
	case e, ok := <-s.events:
		if !ok {
			return RecvResult{Closed: true}, nil
		}
		return RecvResult{Event: e}, nil
	case <-ctx.Done():
		return RecvResult{}, ctx.Err()
	}
}

// RecvTimeout is a convenience wrapper around Recv bounding the wait.
func (s *Subscription) RecvTimeout(d time.Duration) (RecvResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return s.Recv(ctx)
}

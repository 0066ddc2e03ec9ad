// Package publish fans accepted gesture readings out to sinks that must not
// slow down frame processing: MQTT, the reading history and the actuator.
package publish

import (
	"context"
	"sync"

	"github.com/ayusman/pinchview/internal/log"
	"github.com/ayusman/pinchview/internal/metric"
)

// Publisher receives readings.
type Publisher interface {
	Publish(ctx context.Context, r metric.Reading) error
}

// Func adapts a function to Publisher.
type Func func(ctx context.Context, r metric.Reading) error

// Publish implements Publisher.
func (f Func) Publish(ctx context.Context, r metric.Reading) error {
	return f(ctx, r)
}

// DefaultQueueSize is the Dispatcher buffer when none is given.
const DefaultQueueSize = 64

// Dispatcher hands readings to its publishers on a single background
// goroutine. Offer never blocks; readings are dropped when the queue is full.
type Dispatcher struct {
	publishers []Publisher
	logger     log.Logger
	queue      chan metric.Reading

	mu      sync.Mutex
	dropped int
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. Call Start to begin delivering.
func NewDispatcher(logger log.Logger, queueSize int, publishers ...Publisher) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		publishers: publishers,
		logger:     logger,
		queue:      make(chan metric.Reading, queueSize),
	}
}

// Offer queues r for delivery and reports whether it was accepted.
func (d *Dispatcher) Offer(r metric.Reading) bool {
	select {
	case d.queue <- r:
		return true
	default:
		d.mu.Lock()
		d.dropped++
		d.mu.Unlock()
		return false
	}
}

// Dropped returns how many readings Offer has rejected.
func (d *Dispatcher) Dropped() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

// Start delivers queued readings on a new goroutine until ctx is cancelled.
// Publisher errors are logged and do not stop delivery.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(ctx)
	}()
}

func (d *Dispatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-d.queue:
			for _, p := range d.publishers {
				if err := p.Publish(ctx, r); err != nil {
					d.logger.Warnf("publish reading %s: %v", r.Value, err)
				}
			}
		}
	}
}

// Wait blocks until every delivery goroutine from Start has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

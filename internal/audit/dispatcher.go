package audit

import (
	"context"
	"sync"
)

// Config controls dispatcher buffering.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull discards events instead of blocking the caller when the
	// buffer is full.
	DropIfFull bool
}

// Stats counts what a dispatcher did with the events it was given.
type Stats struct {
	Delivered uint64
	Dropped   uint64
	// DroppedByType splits Dropped by Event.EventType.
	DroppedByType map[string]uint64
}

// Dispatcher hands events to a sink from one worker goroutine, in the order
// they were emitted. A nil *Dispatcher is valid and discards everything.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool

	// mu guards queue against Close; senders hold it shared.
	mu      sync.RWMutex
	queue   chan Event
	closed  bool
	flushed chan struct{}

	statsMu sync.Mutex
	stats   Stats
}

// NewDispatcher starts a dispatcher, or returns nil when cfg is disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan Event, max(cfg.BufferSize, 1)),
		flushed:    make(chan struct{}),
		stats:      Stats{DroppedByType: map[string]uint64{}},
	}
	go d.work()
	return d
}

func (d *Dispatcher) work() {
	defer close(d.flushed)
	for ev := range d.queue {
		d.sink.Emit(context.Background(), ev)
		d.statsMu.Lock()
		d.stats.Delivered++
		d.statsMu.Unlock()
	}
}

// Emit queues event. Without DropIfFull it waits for room until ctx is
// done; an event abandoned that way counts as dropped.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	select {
	case d.queue <- event:
		return
	default:
	}
	if d.dropIfFull {
		d.drop(event.EventType)
		return
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.drop(event.EventType)
	}
}

func (d *Dispatcher) drop(eventType string) {
	d.statsMu.Lock()
	d.stats.Dropped++
	d.stats.DroppedByType[eventType]++
	d.statsMu.Unlock()
}

// Close stops accepting events and returns once the sink has seen every
// queued one. It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.flushed
}

// Stats returns a copy of the delivery counters.
func (d *Dispatcher) Stats() Stats {
	if d == nil {
		return Stats{DroppedByType: map[string]uint64{}}
	}
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	out := d.stats
	out.DroppedByType = make(map[string]uint64, len(d.stats.DroppedByType))
	for k, v := range d.stats.DroppedByType {
		out.DroppedByType[k] = v
	}
	return out
}

package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueFull is returned by AsyncNotifier when an event had to be dropped.
var ErrQueueFull = errors.New("event queue full")

// ErrNotifierClosed is returned after AsyncNotifier.Close.
var ErrNotifierClosed = errors.New("notifier closed")

// Notifier publishes lifecycle events to external listeners. Delivery is
// at-most-once; callers ignore the returned error beyond logging it.
type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(context.Context, Event) error

func (f NotifierFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Multi fans an event out to every notifier.
type Multi []Notifier

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AsyncNotifier hands events to a background goroutine so publishing never
// blocks the caller. When the queue is full the event is dropped.
type AsyncNotifier struct {
	next    Notifier
	queue   chan Event
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsyncNotifier starts the delivery goroutine.
func NewAsyncNotifier(next Notifier, buffer int, timeout time.Duration, logger *zap.Logger) *AsyncNotifier {
	if buffer <= 0 {
		buffer = 256
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &AsyncNotifier{
		next:    next,
		queue:   make(chan Event, buffer),
		timeout: timeout,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AsyncNotifier) Publish(_ context.Context, event Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrNotifierClosed
	}
	select {
	case a.queue <- event:
		return nil
	default:
		a.logger.Warn("dropping event, queue full",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (a *AsyncNotifier) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		<-a.done
		return
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()
	<-a.done
}

func (a *AsyncNotifier) run() {
	defer close(a.done)
	for event := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.Publish(ctx, event); err != nil {
			a.logger.Warn("event delivery failed",
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.Error(err))
		}
		cancel()
	}
}

package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDispatcherIgnoresHandlerErrors(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var calls []string
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "failing")
		return errors.New("listener down")
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventTicketAssigned, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"failing", "second"}, calls)
}

func TestMultiJoinsErrors(t *testing.T) {
	var delivered int
	ok := NotifierFunc(func(context.Context, Event) error { delivered++; return nil })
	bad := NotifierFunc(func(context.Context, Event) error { return errors.New("down") })

	err := Multi{bad, ok, ok}.Publish(context.Background(), Event{})
	assert.EqualError(t, err, "down")
	assert.Equal(t, 2, delivered)
}

func TestAsyncNotifierDeliversInOrder(t *testing.T) {
	var mu sync.Mutex
	var got []string
	sink := NotifierFunc(func(_ context.Context, ev Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev.ID)
		return nil
	})
	a := NewAsyncNotifier(sink, 8, time.Second, nil)
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, a.Publish(context.Background(), Event{ID: id}))
	}
	a.Close()

	assert.Equal(t, []string{"1", "2", "3"}, got)
	assert.ErrorIs(t, a.Publish(context.Background(), Event{ID: "4"}), ErrNotifierClosed)
	a.Close()
}

func TestAsyncNotifierNeverBlocks(t *testing.T) {
	release := make(chan struct{})
	blocked := NotifierFunc(func(ctx context.Context, _ Event) error {
		<-release
		return nil
	})
	a := NewAsyncNotifier(blocked, 1, time.Second, nil)

	done := make(chan struct{})
	var dropped bool
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			if errors.Is(a.Publish(context.Background(), Event{}), ErrQueueFull) {
				dropped = true
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a stuck listener")
	}
	assert.True(t, dropped)
	close(release)
	a.Close()
}

func TestEventInternal(t *testing.T) {
	assert.True(t, Event{Payload: TicketCommentedPayload{Internal: true}}.Internal())
	assert.False(t, Event{Payload: TicketCommentedPayload{}}.Internal())
	assert.False(t, Event{Payload: TicketStatusChangedPayload{}}.Internal())
}

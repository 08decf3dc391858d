package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

func TestWorkerDeliversToDispatcher(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	received := make(chan events.Event, 1)
	dispatcher.Subscribe(events.EventTicketAssigned, func(_ context.Context, ev events.Event) error {
		received <- ev
		return nil
	})

	w, err := StartNotificationWorker(config.EventsConfig{Backends: []string{"log"}, QueueSize: 4, DeliveryTimeout: time.Second}, dispatcher, nil, nil)
	require.NoError(t, err)
	require.NoError(t, w.Notifier().Publish(context.Background(), events.Event{ID: "e1", Type: events.EventTicketAssigned, TicketID: "t1"}))
	require.NoError(t, w.Stop())

	select {
	case ev := <-received:
		assert.Equal(t, "e1", ev.ID)
	default:
		t.Fatal("event not delivered before Stop returned")
	}
}

func TestWorkerRejectsMisconfiguredBackends(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)

	_, err := StartNotificationWorker(config.EventsConfig{Backends: []string{"redis"}}, dispatcher, nil, nil)
	assert.Error(t, err)

	_, err = StartNotificationWorker(config.EventsConfig{Backends: []string{"kafka"}, KafkaTopic: "t"}, dispatcher, nil, nil)
	assert.Error(t, err)
}

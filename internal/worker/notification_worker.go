// Package worker owns the background side of the service: the event
// delivery goroutine and the listeners it feeds.
package worker

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// NotificationWorker delivers lifecycle events to every configured backend
// off the request path.
type NotificationWorker struct {
	async   *events.AsyncNotifier
	closers []func() error
}

// StartNotificationWorker registers notification handlers on dispatcher and
// starts asynchronous delivery to the backends named in cfg. The returned
// worker is the Notifier handed to the ticket service.
func StartNotificationWorker(cfg config.EventsConfig, dispatcher events.Dispatcher, rdb redis.UniversalClient, logger *zap.Logger) (*NotificationWorker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &NotificationWorker{}
	var fanout events.Multi
	for _, backend := range cfg.Backends {
		switch backend {
		case "log":
			service.NewNotificationService(dispatcher, logger, cfg).RegisterHandlers()
			fanout = append(fanout, dispatcher)
		case "redis":
			if rdb == nil {
				return nil, fmt.Errorf("events backend redis requires a redis client")
			}
			fanout = append(fanout, events.NewRedisPublisher(rdb, cfg.RedisChannel))
		case "kafka":
			publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
			if err != nil {
				return nil, err
			}
			fanout = append(fanout, publisher)
			w.closers = append(w.closers, publisher.Close)
		default:
			return nil, fmt.Errorf("unknown events backend %q", backend)
		}
	}
	logger.Info("notification worker started", zap.Strings("backends", cfg.Backends))
	w.async = events.NewAsyncNotifier(fanout, cfg.QueueSize, cfg.DeliveryTimeout, logger)
	return w, nil
}

// Notifier returns the non-blocking publisher.
func (w *NotificationWorker) Notifier() events.Notifier {
	return w.async
}

// Stop drains queued events and closes the backends.
func (w *NotificationWorker) Stop() error {
	w.async.Close()
	var errs []error
	for _, closeFn := range w.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

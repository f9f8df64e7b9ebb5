package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/zap"

	"github.com/civicseva/civic-complaints/internal/events"
)

const (
	publishAttempts = 3
	publishDelay    = 500 * time.Millisecond
	publishMaxDelay = 5 * time.Second
)

// Publisher delivers serialized events to the broker.
type Publisher interface {
	Publish(ctx context.Context, eventType events.EventType, messageID string, body []byte) error
}

// EventRelay forwards domain events to the broker off the request path.
// Events are buffered; when the buffer is full new events are dropped and logged.
type EventRelay struct {
	publisher Publisher
	logger    *zap.Logger
	queue     chan events.Event
	wg        sync.WaitGroup
	mu        sync.RWMutex
	stopped   bool
}

// NewEventRelay builds a relay with the given buffer size.
func NewEventRelay(publisher Publisher, logger *zap.Logger, buffer int) *EventRelay {
	if buffer <= 0 {
		buffer = 256
	}
	return &EventRelay{
		publisher: publisher,
		logger:    logger,
		queue:     make(chan events.Event, buffer),
	}
}

// Subscribe registers the relay for every complaint event.
func (r *EventRelay) Subscribe(dispatcher events.Dispatcher) {
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, r.Enqueue)
	}
}

// Enqueue hands an event to the relay without blocking.
func (r *EventRelay) Enqueue(_ context.Context, event events.Event) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return nil
	}
	select {
	case r.queue <- event:
	default:
		r.logger.Warn("event relay full; dropping event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
	}
	return nil
}

// Start runs the delivery loop until ctx is done or Stop is called.
func (r *EventRelay) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-r.queue:
				if !ok {
					return
				}
				r.deliver(ctx, event)
			}
		}
	}()
}

// Stop refuses new events and waits until buffered ones were delivered.
func (r *EventRelay) Stop() {
	r.mu.Lock()
	if !r.stopped {
		r.stopped = true
		close(r.queue)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *EventRelay) deliver(ctx context.Context, event events.Event) {
	body, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("marshal event", zap.String("event_id", event.ID), zap.Error(err))
		return
	}

	err = retry.Do(
		func() error {
			return r.publisher.Publish(ctx, event.Type, event.ID, body)
		},
		retry.Context(ctx),
		retry.Attempts(publishAttempts),
		retry.Delay(publishDelay),
		retry.MaxDelay(publishMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			r.logger.Warn("event publish retry",
				zap.String("event_id", event.ID),
				zap.Uint("attempt", n+1),
				zap.Error(err))
		}),
	)
	if err != nil {
		r.logger.Error("event publish failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return
	}
	r.logger.Debug("event published", zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))
}

package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/civicseva/civic-complaints/internal/events"
)

// EventCounter counts published events.
type EventCounter interface {
	RecordEvent(eventType string)
}

// NotificationService writes an audit log line for every complaint event.
type NotificationService struct {
	dispatcher events.Dispatcher
	counter    EventCounter
	logger     *zap.Logger
}

// NewNotificationService creates the service. counter may be nil.
func NewNotificationService(dispatcher events.Dispatcher, counter EventCounter, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		counter:    counter,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		n.dispatcher.Subscribe(eventType, n.handleEvent)
	}
}

func (n *NotificationService) handleEvent(_ context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("complaint_id", event.ComplaintID),
		zap.String("actor_type", string(event.Actor.Type)),
		zap.Any("payload", event.Payload),
	}
	if event.Actor.ID != nil {
		fields = append(fields, zap.String("actor_id", *event.Actor.ID))
	}
	n.logger.Info("complaint event", fields...)
	if n.counter != nil {
		n.counter.RecordEvent(string(event.Type))
	}
	return nil
}

package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/civicseva/civic-complaints/internal/events"
)

const (
	reconnectDelay = 5 * time.Second
	publishTimeout = 5 * time.Second
)

var routingKeys = map[events.EventType]string{
	events.EventComplaintCreated:       "complaint.created",
	events.EventComplaintStatusChanged: "complaint.status.updated",
	events.EventComplaintReopened:      "complaint.reopened",
	events.EventComplaintVoted:         "complaint.vote.received",
	events.EventComplaintReviewed:      "complaint.review.received",
}

// ErrChannelUnavailable is returned while the broker connection is down.
var ErrChannelUnavailable = errors.New("amqp channel not available")

// RoutingKey maps an event type to its topic routing key.
func RoutingKey(eventType events.EventType) string {
	if key, ok := routingKeys[eventType]; ok {
		return key
	}
	return "complaint." + string(eventType)
}

// RabbitMQ publishes domain events to a durable topic exchange and
// reconnects when the broker drops the connection.
type RabbitMQ struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	url      string
	exchange string
	logger   *zap.Logger
	mu       sync.RWMutex
	done     chan struct{}
}

// NewRabbitMQ dials the broker and declares the exchange.
func NewRabbitMQ(url, exchange string, logger *zap.Logger) (*RabbitMQ, error) {
	rmq := &RabbitMQ{
		url:      url,
		exchange: exchange,
		logger:   logger,
		done:     make(chan struct{}),
	}

	if err := rmq.connect(); err != nil {
		return nil, err
	}

	go rmq.handleReconnect()

	return rmq, nil
}

func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(r.url)
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		r.exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	r.mu.Lock()
	r.conn = conn
	r.channel = channel
	r.mu.Unlock()

	r.logger.Info("rabbitmq connected", zap.String("exchange", r.exchange))
	return nil
}

// handleReconnect redials whenever the broker closes the connection.
// Publishes fail fast with ErrChannelUnavailable in the meantime.
func (r *RabbitMQ) handleReconnect() {
	for {
		r.mu.RLock()
		closed := r.conn.NotifyClose(make(chan *amqp.Error, 1))
		r.mu.RUnlock()

		select {
		case <-r.done:
			return
		case err := <-closed:
			select {
			case <-r.done:
				return
			default:
			}
			if err != nil {
				r.logger.Warn("rabbitmq connection lost", zap.Error(err))
			}

			r.mu.Lock()
			r.channel = nil
			r.mu.Unlock()

			for {
				err := r.connect()
				if err == nil {
					break
				}
				r.logger.Warn("rabbitmq reconnect failed", zap.Error(err), zap.Duration("retry_in", reconnectDelay))
				select {
				case <-r.done:
					return
				case <-time.After(reconnectDelay):
				}
			}
		}
	}
}

// Publish sends a JSON body under the routing key for eventType.
func (r *RabbitMQ) Publish(ctx context.Context, eventType events.EventType, messageID string, body []byte) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.channel == nil {
		return ErrChannelUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := r.channel.PublishWithContext(
		ctx,
		r.exchange,
		RoutingKey(eventType),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

// Close stops reconnecting and releases the connection.
func (r *RabbitMQ) Close() {
	close(r.done)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
	r.logger.Info("rabbitmq connection closed")
}

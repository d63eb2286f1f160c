package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/safetag/safetag-backend/pkg/logger"
)

// MaxDeliveries is how many times a failing message is redelivered before
// it is dead-lettered
const MaxDeliveries = 3

// MessageHandler is a function that handles a message
type MessageHandler func(ctx context.Context, event *Event) error

// Outcome is what the consumer does with a delivery after dispatch
type Outcome int

const (
	OutcomeAck Outcome = iota
	OutcomeRequeue
	OutcomeDeadLetter
)

// Consumer dispatches events from one queue to handlers keyed by event type
type Consumer struct {
	rmq       *RabbitMQ
	queueName string
	handlers  map[string]MessageHandler
	logger    *logger.Logger

	bindings []binding
}

type binding struct {
	exchange   string
	routingKey string
}

// NewConsumer declares queueName and returns a consumer for it
func NewConsumer(rmq *RabbitMQ, queueName string, log *logger.Logger) (*Consumer, error) {
	if _, err := rmq.DeclareQueue(queueName); err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}
	return newConsumer(rmq, queueName, log), nil
}

func newConsumer(rmq *RabbitMQ, queueName string, log *logger.Logger) *Consumer {
	return &Consumer{
		rmq:       rmq,
		queueName: queueName,
		handlers:  make(map[string]MessageHandler),
		logger:    log.WithComponent("consumer"),
	}
}

// Subscribe binds the queue to exchange for routingKeyPattern. The binding
// is replayed when the consumer resumes after a reconnect.
func (c *Consumer) Subscribe(exchange, routingKeyPattern string) error {
	b := binding{exchange: exchange, routingKey: routingKeyPattern}
	if err := c.bind(b); err != nil {
		return err
	}
	c.bindings = append(c.bindings, b)

	c.logger.Info().
		Str("queue", c.queueName).
		Str("exchange", exchange).
		Str("routing_key", routingKeyPattern).
		Msg("subscribed to exchange")

	return nil
}

// RegisterHandler registers a handler for a specific event type
func (c *Consumer) RegisterHandler(eventType string, handler MessageHandler) {
	c.handlers[eventType] = handler
}

func (c *Consumer) bind(b binding) error {
	if err := c.rmq.DeclareExchange(b.exchange); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	if err := c.rmq.BindQueue(c.queueName, b.exchange, b.routingKey); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	return nil
}

// Start consumes in a background goroutine until ctx is done. When the
// broker connection is re-established the consumer declares its queue,
// replays its bindings and consumes from the new channel.
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.consume(ctx); err != nil {
		return err
	}
	c.resumeOnReconnect(ctx)
	return nil
}

func (c *Consumer) resumeOnReconnect(ctx context.Context) {
	c.rmq.OnReconnect(func() {
		if ctx.Err() != nil {
			return
		}
		if err := c.resume(ctx); err != nil {
			c.logger.Error().Err(err).Str("queue", c.queueName).Msg("failed to resume consumer")
		}
	})
}

func (c *Consumer) resume(ctx context.Context) error {
	if _, err := c.rmq.DeclareQueue(c.queueName); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", c.queueName, err)
	}
	for _, b := range c.bindings {
		if err := c.bind(b); err != nil {
			return err
		}
	}
	return c.consume(ctx)
}

func (c *Consumer) consume(ctx context.Context) error {
	ch, err := c.rmq.openChannel()
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	msgs, err := ch.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info().Str("queue", c.queueName).Msg("consumer started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info().Str("queue", c.queueName).Msg("consumer stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Warn().Str("queue", c.queueName).Msg("message channel closed")
					return
				}
				c.settle(msg, c.Dispatch(ctx, msg.Body, deliveryCount(msg)))
			}
		}
	}()

	return nil
}

// Dispatch decodes body and runs the matching handler. deliveries is how
// many times the broker has already dead-lettered this message.
func (c *Consumer) Dispatch(ctx context.Context, body []byte, deliveries int) Outcome {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		c.logger.Error().Err(err).Msg("failed to unmarshal event")
		return OutcomeDeadLetter
	}

	handler, ok := c.handlers[event.Type]
	if !ok {
		c.logger.Debug().Str("event_type", event.Type).Msg("no handler registered for event type")
		return OutcomeAck
	}

	ctx = WithCorrelationID(ctx, event.CorrelationID)
	if err := handler(ctx, &event); err != nil {
		c.logger.Error().
			Err(err).
			Str("event_type", event.Type).
			Str("event_id", event.ID).
			Int("deliveries", deliveries).
			Msg("failed to process event")

		if deliveries >= MaxDeliveries {
			return OutcomeDeadLetter
		}
		return OutcomeRequeue
	}

	return OutcomeAck
}

func (c *Consumer) settle(msg amqp.Delivery, outcome Outcome) {
	var err error
	switch outcome {
	case OutcomeAck:
		err = msg.Ack(false)
	case OutcomeRequeue:
		err = msg.Nack(false, true)
	case OutcomeDeadLetter:
		err = msg.Reject(false)
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to settle delivery")
	}
}

func deliveryCount(msg amqp.Delivery) int {
	deaths, ok := msg.Headers["x-death"].([]interface{})
	if !ok {
		return 0
	}
	for _, death := range deaths {
		if d, ok := death.(amqp.Table); ok {
			if count, ok := d["count"].(int64); ok {
				return int(count)
			}
		}
	}
	return 0
}

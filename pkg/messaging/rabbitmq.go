package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/safetag/safetag-backend/pkg/config"
	"github.com/safetag/safetag-backend/pkg/logger"
)

// DeadLetterExchange receives messages rejected by consumers
const DeadLetterExchange = "sticker.dlx"

var (
	// ErrClosed is returned once Close has been called
	ErrClosed = errors.New("rabbitmq connection closed")
	// ErrNotConnected is returned when no channel has been opened yet
	ErrNotConnected = errors.New("rabbitmq not connected")
)

// RabbitMQ manages the connection to RabbitMQ. The lock guards only the
// connection fields; dialing and retry waits happen outside it.
type RabbitMQ struct {
	config *config.RabbitMQConfig
	logger *logger.Logger

	mu         sync.RWMutex
	conn       *amqp.Connection
	channel    *amqp.Channel
	closed     bool
	reconnects int
	lastErr    error
	hooks      []func()
}

// New dials the broker and opens a channel
func New(cfg *config.RabbitMQConfig, log *logger.Logger) (*RabbitMQ, error) {
	rmq := &RabbitMQ{
		config: cfg,
		logger: log.WithComponent("rabbitmq"),
	}

	conn, ch, err := rmq.dial()
	if err != nil {
		return nil, err
	}
	rmq.conn, rmq.channel = conn, ch
	rmq.logger.Info().Msg("connected to RabbitMQ")
	return rmq, nil
}

func (r *RabbitMQ) dial() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(r.config.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.Qos(r.config.PrefetchCount, 0, false); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
	}
	return conn, ch, nil
}

// Channel returns the current channel, or nil before the first connect
func (r *RabbitMQ) Channel() *amqp.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channel
}

func (r *RabbitMQ) openChannel() (*amqp.Channel, error) {
	ch := r.Channel()
	if ch == nil {
		return nil, ErrNotConnected
	}
	return ch, nil
}

// OnReconnect registers fn to run after every successful reconnect, in
// registration order. Consumers use it to resume on the new channel.
func (r *RabbitMQ) OnReconnect(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, fn)
}

func (r *RabbitMQ) runReconnectHooks() {
	r.mu.RLock()
	hooks := append([]func(){}, r.hooks...)
	r.mu.RUnlock()

	for _, fn := range hooks {
		fn()
	}
}

// Close closes the channel and the connection. Further reconnects fail.
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true

	if r.channel != nil {
		if err := r.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			r.logger.Warn().Err(err).Msg("failed to close channel")
		}
	}

	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}

	r.logger.Info().Msg("RabbitMQ connection closed")
	return nil
}

// HealthStatus is the broker section of the health endpoint
type HealthStatus struct {
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	Reconnects int    `json:"reconnects"`
}

// Health reports whether the connection is open and how often it was
// re-established
func (r *RabbitMQ) Health() HealthStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h := HealthStatus{Status: "up", Reconnects: r.reconnects}
	if r.conn == nil || r.conn.IsClosed() {
		h.Status = "down"
		h.Error = "connection closed"
		if r.lastErr != nil {
			h.Error = r.lastErr.Error()
		}
	}
	return h
}

// DeclareExchange declares a durable topic exchange
func (r *RabbitMQ) DeclareExchange(name string) error {
	ch, err := r.openChannel()
	if err != nil {
		return err
	}
	return ch.ExchangeDeclare(name, amqp.ExchangeTopic, true, false, false, false, nil)
}

// DeclareQueue declares a durable queue that dead-letters into DeadLetterExchange
func (r *RabbitMQ) DeclareQueue(name string) (amqp.Queue, error) {
	ch, err := r.openChannel()
	if err != nil {
		return amqp.Queue{}, err
	}
	return ch.QueueDeclare(name, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": DeadLetterExchange,
	})
}

// DeclareDeadLetterQueue declares DeadLetterExchange and a catch-all
// "dlq.<service>" queue bound to it
func (r *RabbitMQ) DeclareDeadLetterQueue(serviceName string) error {
	ch, err := r.openChannel()
	if err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(DeadLetterExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLX exchange: %w", err)
	}

	queueName := "dlq." + serviceName
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ queue: %w", err)
	}

	if err := ch.QueueBind(queueName, "#", DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}
	return nil
}

// BindQueue binds a queue to an exchange with a routing key pattern
func (r *RabbitMQ) BindQueue(queueName, exchange, routingKey string) error {
	ch, err := r.openChannel()
	if err != nil {
		return err
	}
	return ch.QueueBind(queueName, routingKey, exchange, false, nil)
}

// Watch reconnects whenever the broker drops the connection, until ctx is
// done or Close is called. Reconnect hooks run after each recovery.
func (r *RabbitMQ) Watch(ctx context.Context) {
	for {
		r.mu.RLock()
		conn := r.conn
		r.mu.RUnlock()
		if conn == nil {
			return
		}

		notify := conn.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-ctx.Done():
			return
		case amqpErr, ok := <-notify:
			if !ok || amqpErr == nil {
				// graceful close
				return
			}
			r.logger.Warn().Str("reason", amqpErr.Reason).Msg("RabbitMQ connection lost")
		}

		if err := r.Reconnect(ctx); err != nil {
			r.logger.Error().Err(err).Msg("giving up on RabbitMQ")
			return
		}
		r.runReconnectHooks()
	}
}

// Reconnect retries the dial up to MaxRetries times, ReconnectDelay apart.
// Readers of the connection are only blocked while a new one is swapped in.
func (r *RabbitMQ) Reconnect(ctx context.Context) error {
	for i := 0; i < r.config.MaxRetries; i++ {
		if r.isClosed() {
			return ErrClosed
		}

		r.logger.Info().Int("attempt", i+1).Msg("attempting to reconnect to RabbitMQ")
		conn, ch, err := r.dial()
		if err == nil {
			if r.swap(conn, ch) {
				r.logger.Info().Msg("reconnected to RabbitMQ")
				return nil
			}
			return ErrClosed
		}

		r.mu.Lock()
		r.lastErr = err
		r.mu.Unlock()
		r.logger.Warn().Err(err).Msg("reconnection attempt failed")

		t := time.NewTimer(r.config.ReconnectDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	return fmt.Errorf("failed to reconnect after %d attempts", r.config.MaxRetries)
}

func (r *RabbitMQ) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// swap installs a freshly dialed connection. It reports false and discards
// the connection when Close ran while dialing.
func (r *RabbitMQ) swap(conn *amqp.Connection, ch *amqp.Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		conn.Close()
		return false
	}
	r.conn, r.channel = conn, ch
	r.reconnects++
	r.lastErr = nil
	return true
}

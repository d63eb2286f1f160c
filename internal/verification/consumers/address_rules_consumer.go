package consumers

import (
	"context"

	"github.com/safetag/safetag-backend/pkg/logger"
	"github.com/safetag/safetag-backend/pkg/messaging"
)

// QueueAddressRules is the queue this service reads table change notices from
const QueueAddressRules = "sticker-service.address-rules"

// Invalidator drops a cached address table so the next resident decision reloads it
type Invalidator interface {
	Invalidate()
}

// AddressRulesConsumer invalidates the address cache when another process
// edits the rule table
type AddressRulesConsumer struct {
	consumer *messaging.Consumer
	cache    Invalidator
	logger   *logger.Logger
}

// NewAddressRulesConsumer creates a new address rules consumer
func NewAddressRulesConsumer(rmq *messaging.RabbitMQ, cache Invalidator, log *logger.Logger) (*AddressRulesConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, QueueAddressRules, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeStickerEvents, "sticker.address.#"); err != nil {
		return nil, err
	}

	c := newAddressRulesConsumer(cache, log)
	c.consumer = consumer
	consumer.RegisterHandler(messaging.EventStickerAddressRulesChanged, c.HandleRulesChanged)

	return c, nil
}

func newAddressRulesConsumer(cache Invalidator, log *logger.Logger) *AddressRulesConsumer {
	return &AddressRulesConsumer{
		cache:  cache,
		logger: log.WithComponent("address_rules_consumer"),
	}
}

// Start starts consuming messages
func (c *AddressRulesConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// HandleRulesChanged invalidates the cache. A payload that fails to decode
// still invalidates; only the log line loses its source.
func (c *AddressRulesConsumer) HandleRulesChanged(_ context.Context, event *messaging.Event) error {
	var data messaging.AddressRulesChangedEvent
	if err := event.UnmarshalData(&data); err != nil {
		c.logger.Warn().Err(err).Str("event_id", event.ID).Msg("undecodable address rules event")
	}

	c.cache.Invalidate()

	c.logger.Info().
		Str("event_id", event.ID).
		Str("source", data.Source).
		Msg("address table invalidated")

	return nil
}

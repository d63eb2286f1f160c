package events

import (
	"context"

	"github.com/safetag/safetag-backend/internal/verification/domain"
	"github.com/safetag/safetag-backend/pkg/logger"
	"github.com/safetag/safetag-backend/pkg/messaging"
)

// Source identifies this service on published events
const Source = "sticker-service"

// DecisionPublisher publishes sticker decision events for the issuance
// service. A nil *DecisionPublisher publishes nothing.
type DecisionPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewDecisionPublisher declares the sticker exchange and returns a publisher on it
func NewDecisionPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*DecisionPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeStickerEvents, Source, log)
	if err != nil {
		return nil, err
	}
	return NewDecisionPublisherWith(publisher, log), nil
}

// NewDecisionPublisherWith wraps any EventPublisher
func NewDecisionPublisherWith(publisher messaging.EventPublisher, log *logger.Logger) *DecisionPublisher {
	return &DecisionPublisher{
		publisher: publisher,
		logger:    log.WithComponent("decision_publisher"),
	}
}

// PublishDecisionMade publishes the issuance-facing subset of d. Diagnostics
// (resolved date, source path, trace) stay out of the payload.
func (p *DecisionPublisher) PublishDecisionMade(ctx context.Context, d *domain.Decision) error {
	if p == nil {
		return nil
	}

	data := messaging.StickerDecisionMadeEvent{
		DecisionID:       d.ID,
		DocumentType:     d.DocumentType.StickerEnum(),
		ValidDays:        d.ValidDays,
		MatchedApartment: d.MatchedApartment,
	}

	if err := p.publisher.Publish(ctx, messaging.EventStickerDecisionMade, data); err != nil {
		p.logger.Error().Err(err).Str("decision_id", d.ID).Msg("failed to publish decision event")
		return err
	}
	return nil
}

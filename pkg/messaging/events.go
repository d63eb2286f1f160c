package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Sticker events
	EventStickerDecisionMade        = "sticker.decision.made"
	EventStickerAddressRulesChanged = "sticker.address.rules.changed"
)

// Exchange names
const (
	ExchangeStickerEvents = "sticker.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// StickerDecisionMadeEvent is published for every classified document.
// It carries only what sticker issuance needs.
type StickerDecisionMadeEvent struct {
	DecisionID       string `json:"decisionId"`
	DocumentType     string `json:"documentType"`
	ValidDays        int    `json:"validDays"`
	MatchedApartment string `json:"matchedApartment,omitempty"`
}

// AddressRulesChangedEvent is published by whoever edits the address table
type AddressRulesChangedEvent struct {
	Source string `json:"source"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return uuid.NewString()
}

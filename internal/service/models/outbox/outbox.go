package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxRetries bounds publishing attempts of a message.
const DefaultMaxRetries = 10

// Topic names an order event stream. It is the Kafka topic and the AMQP
// routing key.
type Topic string

// TopicOrderStatusChanged carries every submission and status transition.
const TopicOrderStatusChanged Topic = "takeout.order.status_changed"

// OutboxMessage is an event stored in the same transaction as the state
// change it describes, waiting to be published to the broker.
type OutboxMessage struct {
	ID        int64
	MessageID string
	Topic     Topic
	// OrderNumber keys the message so events of one order stay ordered.
	OrderNumber string
	Payload     []byte
	ContentType string
	RetryCount  int
	MaxRetries  int
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	NextRetryAt time.Time
}

// NewJSONMessage marshals payload into a message ready to be inserted.
func NewJSONMessage(topic Topic, orderNumber string, payload any, now time.Time) (OutboxMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	return OutboxMessage{
		MessageID:   uuid.NewString(),
		Topic:       topic,
		OrderNumber: orderNumber,
		Payload:     body,
		ContentType: "application/json",
		MaxRetries:  DefaultMaxRetries,
		CreatedAt:   now,
		UpdatedAt:   now,
		NextRetryAt: now,
	}, nil
}

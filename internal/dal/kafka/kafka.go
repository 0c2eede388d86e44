package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/corray333/backend-labs/takeout/internal/service/models/outbox"
	"github.com/segmentio/kafka-go"
	"github.com/spf13/viper"
)

// Publisher writes outbox messages to Kafka, using the message topic as
// the Kafka topic and the order number as the partition key.
type Publisher struct {
	writer *kafka.Writer
}

// MustNewPublisher creates a publisher for the brokers in kafka.brokers.
func MustNewPublisher() *Publisher {
	brokers := splitBrokers(viper.GetString("kafka.brokers"))
	if len(brokers) == 0 {
		panic("kafka.brokers is empty")
	}

	slog.Info("Kafka publisher configured", "brokers", brokers)

	return NewPublisher(brokers)
}

// NewPublisher creates a publisher for the given brokers.
func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

// Publish writes msg and waits for the brokers to acknowledge it.
func (p *Publisher) Publish(ctx context.Context, msg outbox.OutboxMessage) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: string(msg.Topic),
		Key:   []byte(msg.OrderNumber),
		Value: msg.Payload,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "message_id", Value: []byte(msg.MessageID)},
			{Key: "content_type", Value: []byte(msg.ContentType)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	return nil
}

// Close flushes pending writes.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func splitBrokers(csv string) []string {
	var brokers []string
	for _, b := range strings.Split(csv, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}

	return brokers
}

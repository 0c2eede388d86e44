package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/corray333/backend-labs/takeout/internal/service/models/outbox"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
)

// Client represents a RabbitMQ client.
type Client struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	mu       sync.Mutex
}

// Channel returns the underlying AMQP channel.
func (r *Client) Channel() *amqp.Channel {
	return r.channel
}

// Close closes the channel and connection for graceful shutdown.
func (r *Client) Close() error {
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			return err
		}
	}
	if r.conn != nil {
		return r.conn.Close()
	}

	return nil
}

// MustNewClient connects to RabbitMQ and declares the events exchange.
func MustNewClient() *Client {
	host := viper.GetString("rabbitmq.host")
	if host == "" {
		host = "rabbitmq"
	}
	port := viper.GetInt("rabbitmq.port")
	if port == 0 {
		port = 5672
	}
	connStr := fmt.Sprintf(
		"amqp://%s:%s@%s:%d/",
		os.Getenv("RABBITMQ_DEFAULT_USER"),
		os.Getenv("RABBITMQ_DEFAULT_PASS"),
		host,
		port,
	)

	conn, err := amqp.Dial(connStr)
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to RabbitMQ: %v", err))
	}

	channel, err := conn.Channel()
	if err != nil {
		if err := conn.Close(); err != nil {
			panic(fmt.Sprintf("Failed to close a connection: %v", err))
		}
		panic(fmt.Sprintf("Failed to open a channel: %v", err))
	}

	client := &Client{
		conn:     conn,
		channel:  channel,
		exchange: viper.GetString("rabbitmq.exchange"),
	}
	if client.exchange == "" {
		client.exchange = "takeout.events"
	}

	if err := client.DeclareExchange(DeclareExchangeConfig{
		Name:    client.exchange,
		Kind:    amqp.ExchangeTopic,
		Durable: true,
	}); err != nil {
		_ = client.Close()
		panic(fmt.Sprintf("Failed to declare exchange %s: %v", client.exchange, err))
	}

	slog.Info("RabbitMQ connected", "exchange", client.exchange)

	return client
}

type DeclareExchangeConfig struct {
	Name       string
	Kind       string
	Durable    bool
	AutoDelete bool
	Internal   bool
	NoWait     bool
	Args       amqp.Table
}

// DeclareExchange declares an exchange with the given configuration.
func (r *Client) DeclareExchange(cfg DeclareExchangeConfig) error {
	return r.channel.ExchangeDeclare(
		cfg.Name,
		cfg.Kind,
		cfg.Durable,
		cfg.AutoDelete,
		cfg.Internal,
		cfg.NoWait,
		cfg.Args,
	)
}

// Publish sends msg to the events exchange with its topic as routing key.
func (r *Client) Publish(_ context.Context, msg outbox.OutboxMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.channel.Publish(
		r.exchange,
		string(msg.Topic),
		false,
		false,
		toPublishing(msg),
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", r.exchange, err)
	}

	return nil
}

func toPublishing(msg outbox.OutboxMessage) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  msg.ContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.MessageID,
		Timestamp:    msg.CreatedAt,
		Headers:      amqp.Table{"order_number": msg.OrderNumber},
		Body:         msg.Payload,
	}
}

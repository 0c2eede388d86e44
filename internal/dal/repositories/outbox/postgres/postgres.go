package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/takeout/internal/dal/postgres"
	"github.com/corray333/backend-labs/takeout/internal/service/models/outbox"
)

const outboxTable = "outbox"

// messageDal is an order event row of the outbox table.
type messageDal struct {
	Id          int64     `db:"id"`
	MessageId   string    `db:"message_id"`
	Topic       string    `db:"topic"`
	OrderNumber string    `db:"order_number"`
	Payload     []byte    `db:"payload"`
	ContentType string    `db:"content_type"`
	RetryCount  int       `db:"retry_count"`
	MaxRetries  int       `db:"max_retries"`
	LastError   string    `db:"last_error"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
	NextRetryAt time.Time `db:"next_retry_at"`
}

// insertColumns leaves out id, which the sequence assigns.
var insertColumns = []string{
	"message_id",
	"topic",
	"order_number",
	"payload",
	"content_type",
	"retry_count",
	"max_retries",
	"last_error",
	"created_at",
	"updated_at",
	"next_retry_at",
}

var selectColumns = append([]string{"id"}, insertColumns...)

func fromModel(msg outbox.OutboxMessage) messageDal {
	return messageDal{
		MessageId:   msg.MessageID,
		Topic:       string(msg.Topic),
		OrderNumber: msg.OrderNumber,
		Payload:     msg.Payload,
		ContentType: msg.ContentType,
		RetryCount:  msg.RetryCount,
		MaxRetries:  msg.MaxRetries,
		LastError:   msg.LastError,
		CreatedAt:   msg.CreatedAt,
		UpdatedAt:   msg.UpdatedAt,
		NextRetryAt: msg.NextRetryAt,
	}
}

func (m *messageDal) values() []any {
	return []any{
		m.MessageId,
		m.Topic,
		m.OrderNumber,
		m.Payload,
		m.ContentType,
		m.RetryCount,
		m.MaxRetries,
		m.LastError,
		m.CreatedAt,
		m.UpdatedAt,
		m.NextRetryAt,
	}
}

func (m *messageDal) scanTargets() []any {
	return []any{
		&m.Id,
		&m.MessageId,
		&m.Topic,
		&m.OrderNumber,
		&m.Payload,
		&m.ContentType,
		&m.RetryCount,
		&m.MaxRetries,
		&m.LastError,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.NextRetryAt,
	}
}

// ToModel converts messageDal to the service layer outbox message.
func (m *messageDal) ToModel() outbox.OutboxMessage {
	return outbox.OutboxMessage{
		ID:          m.Id,
		MessageID:   m.MessageId,
		Topic:       outbox.Topic(m.Topic),
		OrderNumber: m.OrderNumber,
		Payload:     m.Payload,
		ContentType: m.ContentType,
		RetryCount:  m.RetryCount,
		MaxRetries:  m.MaxRetries,
		LastError:   m.LastError,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		NextRetryAt: m.NextRetryAt,
	}
}

// OutboxRepository stores order events until the outbox worker publishes
// them. Bound to a transaction, its inserts commit together with the order
// change they describe.
type OutboxRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewOutboxRepository creates a new outbox repository.
func NewOutboxRepository(conn postgres.GenericConn) *OutboxRepository {
	return &OutboxRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Insert queues an order event.
func (r *OutboxRepository) Insert(ctx context.Context, msg outbox.OutboxMessage) error {
	row := fromModel(msg)
	query, args, err := r.sb.Insert(outboxTable).
		Columns(insertColumns...).
		Values(row.values()...).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build outbox insert: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to queue %s event for order %s: %w", msg.Topic, msg.OrderNumber, err)
	}

	return nil
}

// GetPendingMessages returns events due at now with attempts left, oldest
// first so events of one order go out in the order they were written.
func (r *OutboxRepository) GetPendingMessages(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]outbox.OutboxMessage, error) {
	query, args, err := r.sb.Select(selectColumns...).
		From(outboxTable).
		Where(sq.LtOrEq{"next_retry_at": now}).
		Where(sq.Expr("retry_count < max_retries")).
		OrderBy("next_retry_at ASC", "id ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build pending events query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending events: %w", err)
	}
	defer rows.Close()

	var messages []outbox.OutboxMessage
	for rows.Next() {
		var row messageDal
		if err := rows.Scan(row.scanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan pending event: %w", err)
		}
		messages = append(messages, row.ToModel())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending events: %w", err)
	}

	return messages, nil
}

// Delete drops a published event.
func (r *OutboxRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := r.sb.Delete(outboxTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build outbox delete: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete published event %d: %w", id, err)
	}

	return nil
}

// UpdateRetry records a failed publish and schedules the next attempt.
func (r *OutboxRepository) UpdateRetry(
	ctx context.Context,
	id int64,
	retryCount int,
	lastError string,
	nextRetryAt time.Time,
) error {
	query, args, err := r.sb.Update(outboxTable).
		Set("retry_count", retryCount).
		Set("last_error", lastError).
		Set("next_retry_at", nextRetryAt).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build outbox retry update: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to reschedule event %d: %w", id, err)
	}

	return nil
}

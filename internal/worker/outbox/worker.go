package outbox

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/corray333/backend-labs/takeout/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/takeout/internal/metrics"
	"github.com/corray333/backend-labs/takeout/internal/service/models/outbox"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Publisher hands a message to the broker.
type Publisher interface {
	Publish(ctx context.Context, msg outbox.OutboxMessage) error
}

// Config tunes the outbox polling.
type Config struct {
	PollInterval  time.Duration
	BatchSize     int
	RetryInterval time.Duration
}

// Worker publishes order events stored in the outbox table.
type Worker struct {
	outboxRepo ioutboxrepo.IOutboxRepository
	publisher  Publisher
	metrics    *metrics.Metrics
	cfg        Config
	now        func() time.Time
	stopCh     chan struct{}
}

// NewWorker creates a new outbox worker.
func NewWorker(
	outboxRepo ioutboxrepo.IOutboxRepository,
	pub Publisher,
	cfg Config,
	m *metrics.Metrics,
) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 30 * time.Second
	}
	if m == nil {
		m = metrics.New(nil)
	}

	return &Worker{
		outboxRepo: outboxRepo,
		publisher:  pub,
		metrics:    m,
		cfg:        cfg,
		now:        time.Now,
		stopCh:     make(chan struct{}),
	}
}

// Start begins processing messages from the outbox.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	slog.Info("Outbox worker started", "poll_interval", w.cfg.PollInterval, "batch_size", w.cfg.BatchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Outbox worker stopped")

			return
		case <-ticker.C:
			w.ProcessMessages(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// ProcessMessages publishes one batch of due messages and returns how many
// were published.
func (w *Worker) ProcessMessages(ctx context.Context) int {
	ctx, span := otel.Tracer("worker").Start(ctx, "Outbox.ProcessMessages")
	defer span.End()

	messages, err := w.outboxRepo.GetPendingMessages(ctx, w.now(), w.cfg.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to get pending messages from outbox", "error", err)

		return 0
	}

	if len(messages) == 0 {
		return 0
	}

	slog.InfoContext(ctx, "Processing outbox messages", "count", len(messages))

	published := 0
	for _, msg := range messages {
		if err := w.publisher.Publish(ctx, msg); err != nil {
			w.metrics.Published.WithLabelValues(string(msg.Topic), "error").Inc()

			retryCount := msg.RetryCount + 1
			nextRetryAt := w.now().Add(w.backoff(retryCount))

			slog.WarnContext(ctx, "Failed to publish message from outbox, will retry",
				"outbox_id", msg.ID,
				"message_id", msg.MessageID,
				"retry_count", retryCount,
				"max_retries", msg.MaxRetries,
				"next_retry", nextRetryAt,
				"error", err,
			)

			if err := w.outboxRepo.UpdateRetry(ctx, msg.ID, retryCount, err.Error(), nextRetryAt); err != nil {
				slog.ErrorContext(ctx, "Failed to update retry information", "outbox_id", msg.ID, "error", err)
			}

			continue
		}

		w.metrics.Published.WithLabelValues(string(msg.Topic), "ok").Inc()
		published++

		if err := w.outboxRepo.Delete(ctx, msg.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to delete message from outbox after successful publish",
				"outbox_id", msg.ID,
				"error", err,
			)
		}
	}
	span.SetAttributes(attribute.Int("outbox.published", published))

	return published
}

// backoff doubles the retry interval with every attempt: 2x, 4x, 8x, ...
func (w *Worker) backoff(retryCount int) time.Duration {
	return time.Duration(math.Pow(2, float64(retryCount))) * w.cfg.RetryInterval
}

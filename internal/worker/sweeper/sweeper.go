package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corray333/backend-labs/takeout/internal/metrics"
	"github.com/corray333/backend-labs/takeout/internal/service/models/order"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	sweepPaymentTimeout = "payment_timeout"
	sweepStaleDelivery  = "stale_delivery"
)

// orderService is the part of the order service the sweeper drives.
type orderService interface {
	ListSweepable(ctx context.Context, status order.Status, cutoff time.Time, afterID int64, limit int) ([]order.Order, error)
	SweepPaymentTimeout(ctx context.Context, id int64, cutoff time.Time) (order.Order, error)
	SweepStaleDelivery(ctx context.Context, id int64, cutoff time.Time) (order.Order, error)
}

// Config holds the two sweep schedules.
type Config struct {
	PaymentInterval   time.Duration
	PaymentThreshold  time.Duration
	DeliveryInterval  time.Duration
	DeliveryThreshold time.Duration
	BatchSize         int
	Concurrency       int
}

// Result summarizes one sweep pass.
type Result struct {
	Visited int
	Applied int
	Skipped int
	Failed  int
}

// Sweeper periodically applies time based transitions: it cancels orders
// left unpaid past the payment threshold and completes orders stuck in
// delivery past the delivery threshold.
type Sweeper struct {
	svc      orderService
	cfg      Config
	metrics  *metrics.Metrics
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSweeper creates a new sweeper.
func NewSweeper(svc orderService, cfg Config, m *metrics.Metrics) *Sweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if m == nil {
		m = metrics.New(nil)
	}

	return &Sweeper{
		svc:     svc,
		cfg:     cfg,
		metrics: m,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
}

// Start runs both sweep loops until ctx is done or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	slog.Info("Sweeper started",
		"payment_interval", s.cfg.PaymentInterval,
		"payment_threshold", s.cfg.PaymentThreshold,
		"delivery_interval", s.cfg.DeliveryInterval,
		"delivery_threshold", s.cfg.DeliveryThreshold)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.loop(ctx, s.cfg.PaymentInterval, s.SweepPaymentTimeouts)
	}()
	go func() {
		defer wg.Done()
		s.loop(ctx, s.cfg.DeliveryInterval, s.SweepStaleDeliveries)
	}()
	wg.Wait()
}

// Stop stops the sweeper.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

func (s *Sweeper) loop(ctx context.Context, interval time.Duration, pass func(context.Context) Result) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sweeper shutting down")

			return
		case <-s.stopCh:
			slog.Info("Sweeper stopped")

			return
		case <-ticker.C:
			pass(ctx)
		}
	}
}

// SweepPaymentTimeouts runs one pass cancelling unpaid orders older than
// the payment threshold.
func (s *Sweeper) SweepPaymentTimeouts(ctx context.Context) Result {
	return s.sweep(ctx, sweepPaymentTimeout, order.StatusPendingPayment, s.cfg.PaymentThreshold, s.svc.SweepPaymentTimeout)
}

// SweepStaleDeliveries runs one pass completing orders in delivery older
// than the delivery threshold.
func (s *Sweeper) SweepStaleDeliveries(ctx context.Context) Result {
	return s.sweep(ctx, sweepStaleDelivery, order.StatusDeliveryInProgress, s.cfg.DeliveryThreshold, s.svc.SweepStaleDelivery)
}

// sweep pages through eligible orders by id and applies the transition to
// each of them. A failed order is logged and left for the next pass.
func (s *Sweeper) sweep(
	ctx context.Context,
	name string,
	status order.Status,
	threshold time.Duration,
	apply func(ctx context.Context, id int64, cutoff time.Time) (order.Order, error),
) Result {
	ctx, span := otel.Tracer("worker").Start(ctx, "Sweeper."+name)
	defer span.End()

	cutoff := s.now().Add(-threshold)
	var visited, applied, skipped, failed atomic.Int64

	var afterID int64
	for ctx.Err() == nil {
		batch, err := s.svc.ListSweepable(ctx, status, cutoff, afterID, s.cfg.BatchSize)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to list orders to sweep", "sweep", name, "error", err)

			break
		}
		if len(batch) == 0 {
			break
		}

		var g errgroup.Group
		g.SetLimit(s.cfg.Concurrency)
		for _, o := range batch {
			g.Go(func() error {
				visited.Add(1)
				_, err := apply(ctx, o.ID, cutoff)
				switch {
				case err == nil:
					applied.Add(1)
					s.metrics.Swept.WithLabelValues(name, "applied").Inc()
				case errors.Is(err, order.ErrInvalidStateTransition):
					skipped.Add(1)
					s.metrics.Swept.WithLabelValues(name, "skipped").Inc()
					slog.InfoContext(ctx, "Order changed before sweep", "sweep", name, "order_id", o.ID, "error", err)
				default:
					failed.Add(1)
					s.metrics.Swept.WithLabelValues(name, "failed").Inc()
					slog.ErrorContext(ctx, "Failed to sweep order", "sweep", name, "order_id", o.ID, "error", err)
				}

				return nil
			})
		}
		_ = g.Wait()

		afterID = batch[len(batch)-1].ID
		if len(batch) < s.cfg.BatchSize {
			break
		}
	}

	res := Result{
		Visited: int(visited.Load()),
		Applied: int(applied.Load()),
		Skipped: int(skipped.Load()),
		Failed:  int(failed.Load()),
	}
	span.SetAttributes(
		attribute.Int("sweep.visited", res.Visited),
		attribute.Int("sweep.applied", res.Applied),
		attribute.Int("sweep.failed", res.Failed),
	)
	if res.Visited > 0 {
		slog.InfoContext(ctx, "Sweep pass finished",
			"sweep", name,
			"cutoff", cutoff,
			"visited", res.Visited,
			"applied", res.Applied,
			"skipped", res.Skipped,
			"failed", res.Failed)
	}

	return res
}

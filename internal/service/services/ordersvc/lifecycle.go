package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/takeout/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/takeout/internal/metrics"
	"github.com/corray333/backend-labs/takeout/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/takeout/internal/service/models/order"
	"github.com/corray333/backend-labs/takeout/internal/service/models/payment"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// conflictRetries is how many times a transition is replayed after losing
// the conditional update.
const conflictRetries = 1

// orderRef identifies the order a transition applies to. A non-zero owner
// restricts it to that user's orders.
type orderRef struct {
	id     int64
	number string
	owner  int64
}

func (r orderRef) lock(ctx context.Context, repo iorderrepo.IOrderRepository) (order.Order, error) {
	var (
		o   order.Order
		err error
	)
	if r.number != "" {
		o, err = repo.LockByNumber(ctx, r.number)
	} else {
		o, err = repo.LockByID(ctx, r.id)
	}
	if err != nil {
		return order.Order{}, err
	}
	if r.owner != 0 && o.UserID != r.owner {
		return order.Order{}, fmt.Errorf("order %d of another user: %w", o.ID, order.ErrOrderNotFound)
	}

	return o, nil
}

func (r orderRef) String() string {
	if r.number != "" {
		return r.number
	}

	return fmt.Sprint(r.id)
}

// PaymentConfirmed records the gateway's payment notification for an order.
// A payment arriving after the order was cancelled unpaid is refunded; the
// invalid transition is still returned once the refund went through.
func (s *OrderService) PaymentConfirmed(ctx context.Context, number string) (order.Order, error) {
	updated, err := s.transition(ctx, orderRef{number: number}, order.EventPaymentConfirmed,
		order.TransitionParams{Actor: order.ActorPaymentGateway})

	var invalid *order.InvalidTransitionError
	if errors.As(err, &invalid) && invalid.Current == order.StatusCancelled {
		if refundErr := s.refundLatePayment(ctx, number); refundErr != nil {
			return order.Order{}, refundErr
		}
	}

	return updated, err
}

// refundLatePayment returns the money of a cancelled order whose payment
// was captured after the cancellation. Orders refunded on cancel are skipped.
func (s *OrderService) refundLatePayment(ctx context.Context, number string) error {
	o, err := s.newUOW().OrderRepository().GetByNumber(ctx, number)
	if err != nil {
		return fmt.Errorf("failed to load cancelled order %s: %w", number, err)
	}
	if o.PayStatus != order.PayStatusUnpaid {
		return nil
	}

	err = s.refund(ctx, o)
	s.metrics.LatePayments.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return err
	}

	slog.WarnContext(ctx, "Refunded payment captured after cancellation",
		"order_id", o.ID,
		"order_number", o.Number,
		"cancel_reason", o.CancelReason)

	return nil
}

// Confirm accepts a paid order.
func (s *OrderService) Confirm(ctx context.Context, staffID, id int64) (order.Order, error) {
	return s.transition(ctx, orderRef{id: id}, order.EventConfirm,
		order.TransitionParams{Actor: order.StaffActor(staffID)})
}

// Reject declines an order awaiting confirmation, refunding it if paid.
func (s *OrderService) Reject(ctx context.Context, staffID, id int64, reason string) (order.Order, error) {
	return s.transition(ctx, orderRef{id: id}, order.EventReject,
		order.TransitionParams{Actor: order.StaffActor(staffID), Reason: reason})
}

// UserCancel cancels one of the user's orders before delivery starts.
func (s *OrderService) UserCancel(ctx context.Context, userID, id int64) (order.Order, error) {
	return s.transition(ctx, orderRef{id: id, owner: userID}, order.EventUserCancel,
		order.TransitionParams{Actor: order.UserActor(userID)})
}

// StaffCancel cancels any order that is not finished yet.
func (s *OrderService) StaffCancel(ctx context.Context, staffID, id int64, reason string) (order.Order, error) {
	return s.transition(ctx, orderRef{id: id}, order.EventStaffCancel,
		order.TransitionParams{Actor: order.StaffActor(staffID), Reason: reason})
}

// Delivery hands a confirmed order to the courier.
func (s *OrderService) Delivery(ctx context.Context, staffID, id int64) (order.Order, error) {
	return s.transition(ctx, orderRef{id: id}, order.EventDelivery,
		order.TransitionParams{Actor: order.StaffActor(staffID)})
}

// Complete marks a delivered order as completed.
func (s *OrderService) Complete(ctx context.Context, staffID, id int64) (order.Order, error) {
	return s.transition(ctx, orderRef{id: id}, order.EventComplete,
		order.TransitionParams{Actor: order.StaffActor(staffID)})
}

// SweepPaymentTimeout cancels an unpaid order placed before cutoff.
func (s *OrderService) SweepPaymentTimeout(ctx context.Context, id int64, cutoff time.Time) (order.Order, error) {
	return s.transition(ctx, orderRef{id: id}, order.EventSweepTimeout,
		order.TransitionParams{Actor: order.ActorSweeper, Cutoff: cutoff})
}

// SweepStaleDelivery completes an order still in delivery that was placed before cutoff.
func (s *OrderService) SweepStaleDelivery(ctx context.Context, id int64, cutoff time.Time) (order.Order, error) {
	return s.transition(ctx, orderRef{id: id}, order.EventSweepStaleDelivery,
		order.TransitionParams{Actor: order.ActorSweeper, Cutoff: cutoff})
}

// transition applies ev to the referenced order, replaying it once if the
// conditional update loses a race.
func (s *OrderService) transition(
	ctx context.Context,
	ref orderRef,
	ev order.Event,
	p order.TransitionParams,
) (order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.Transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.ref", ref.String()),
		attribute.String("order.event", string(ev)),
		attribute.String("order.actor", string(p.Actor)),
	)

	var (
		updated order.Order
		err     error
	)
	for attempt := 0; ; attempt++ {
		updated, err = s.applyOnce(ctx, ref, ev, p)
		if !errors.Is(err, order.ErrStorageConflict) || attempt >= conflictRetries {
			break
		}
		slog.WarnContext(ctx, "Order transition lost a race, retrying",
			"order", ref.String(), "event", ev, "error", err)
	}

	s.metrics.Transitions.WithLabelValues(string(ev), transitionResult(err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logTransitionError(ctx, ref, ev, err)

		return order.Order{}, err
	}

	slog.InfoContext(ctx, "Order transition applied",
		"order_id", updated.ID,
		"event", ev,
		"status", updated.Status,
		"pay_status", updated.PayStatus,
		"actor", p.Actor)

	return updated, nil
}

// applyOnce runs one transition attempt. The order row stays locked from
// the guard check until commit, so the refund is issued at most once per
// committed cancellation.
func (s *OrderService) applyOnce(
	ctx context.Context,
	ref orderRef,
	ev order.Event,
	p order.TransitionParams,
) (order.Order, error) {
	var updated order.Order
	err := s.inTx(ctx, func(work unitOfWork) error {
		o, err := ref.lock(ctx, work.OrderRepository())
		if err != nil {
			return err
		}

		change, err := o.Plan(ev, p, s.now())
		if err != nil {
			return err
		}

		if change.Refund {
			if err := s.refund(ctx, o); err != nil {
				return err
			}
		}

		if err := work.OrderRepository().UpdateStatus(ctx, o.ID, o.Guard(), change.Update); err != nil {
			return err
		}
		updated = o.Apply(change.Update)

		if err := work.AuditRepository().LogStatusChange(ctx, auditlog.FromOrder(updated, ev, change.From)); err != nil {
			return fmt.Errorf("failed to log status change: %w", err)
		}

		orders := []order.Order{updated}
		if err := attachItems(ctx, work.OrderItemRepository(), orders); err != nil {
			return err
		}
		updated = orders[0]

		return nil
	})

	return updated, err
}

// refund asks the gateway to refund the whole order. A refund the gateway
// already processed counts as success.
func (s *OrderService) refund(ctx context.Context, o order.Order) error {
	rec, err := s.gateway.Refund(ctx, payment.RefundRequest{
		OrderNumber:  o.Number,
		RefundNumber: o.Number,
		TotalAmount:  o.Amount,
		RefundAmount: o.Amount,
		Currency:     o.Currency,
	})
	s.metrics.Refunds.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return &order.PaymentGatewayError{OrderNumber: o.Number, Op: "refund", Err: err}
	}

	slog.InfoContext(ctx, "Order refunded",
		"order_id", o.ID,
		"order_number", o.Number,
		"refund_id", rec.RefundID,
		"amount", o.Amount.StringFixed(2),
		"already_processed", rec.AlreadyProcessed)

	return nil
}

func transitionResult(err error) string {
	switch {
	case err == nil:
		return "applied"
	case errors.Is(err, order.ErrInvalidStateTransition):
		return "rejected"
	case errors.Is(err, order.ErrValidation), errors.Is(err, order.ErrOrderNotFound):
		return "invalid"
	case errors.Is(err, order.ErrPaymentGateway):
		return "gateway_error"
	case errors.Is(err, order.ErrStorageConflict):
		return "conflict"
	default:
		return "error"
	}
}

func logTransitionError(ctx context.Context, ref orderRef, ev order.Event, err error) {
	attrs := []any{"order", ref.String(), "event", ev, "error", err}
	switch {
	case errors.Is(err, order.ErrInvalidStateTransition),
		errors.Is(err, order.ErrValidation),
		errors.Is(err, order.ErrOrderNotFound):
		slog.InfoContext(ctx, "Order transition refused", attrs...)
	default:
		slog.ErrorContext(ctx, "Order transition failed", attrs...)
	}
}

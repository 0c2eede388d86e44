package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/corray333/backend-labs/takeout/internal/service/models/order"
	"github.com/corray333/backend-labs/takeout/internal/service/models/payment"
	"go.opentelemetry.io/otel"
)

// Pay opens a prepay transaction for one of the user's unpaid orders.
// The order itself changes only when the gateway confirms the payment.
func (s *OrderService) Pay(ctx context.Context, userID int64, number, payerRef string) (payment.PrepayToken, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.Pay")
	defer span.End()

	o, err := s.newUOW().OrderRepository().GetByNumber(ctx, number)
	if err != nil {
		return payment.PrepayToken{}, err
	}
	if o.UserID != userID {
		return payment.PrepayToken{}, fmt.Errorf("order %s of another user: %w", number, order.ErrOrderNotFound)
	}
	if err := o.Payable(); err != nil {
		return payment.PrepayToken{}, err
	}

	token, err := s.gateway.Pay(ctx, payment.PayRequest{
		OrderNumber: o.Number,
		Amount:      o.Amount,
		Currency:    o.Currency,
		Description: "Takeout order " + o.Number,
		PayerRef:    payerRef,
	})
	if errors.Is(err, payment.ErrAlreadyPaid) {
		return payment.PrepayToken{}, fmt.Errorf("order %s: %w", number, order.ErrAlreadyPaid)
	}
	if err != nil {
		span.RecordError(err)
		slog.ErrorContext(ctx, "Failed to open prepay transaction", "order_number", number, "error", err)

		return payment.PrepayToken{}, &order.PaymentGatewayError{OrderNumber: number, Op: "pay", Err: err}
	}

	slog.InfoContext(ctx, "Prepay transaction opened", "order_id", o.ID, "order_number", o.Number)

	return token, nil
}

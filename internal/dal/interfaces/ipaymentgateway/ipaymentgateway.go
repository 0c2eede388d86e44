package ipaymentgateway

import (
	"context"

	"github.com/corray333/backend-labs/takeout/internal/service/models/payment"
)

// IPaymentGateway issues prepay transactions and refunds.
// Both calls are idempotent by order number.
type IPaymentGateway interface {
	Pay(ctx context.Context, req payment.PayRequest) (payment.PrepayToken, error)
	Refund(ctx context.Context, req payment.RefundRequest) (payment.RefundRecord, error)
}

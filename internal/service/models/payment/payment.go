package payment

import (
	"errors"

	"github.com/corray333/backend-labs/takeout/internal/service/models/currency"
	"github.com/shopspring/decimal"
)

// ErrAlreadyPaid is returned by a gateway asked to prepay a settled order.
var ErrAlreadyPaid = errors.New("order already paid at gateway")

// PayRequest asks the gateway for a prepay transaction.
type PayRequest struct {
	OrderNumber string
	Amount      decimal.Decimal
	Currency    currency.Currency
	Description string
	PayerRef    string
}

// PrepayToken is what the client needs to complete the payment.
type PrepayToken struct {
	OrderNumber string `json:"orderNumber"`
	PrepayID    string `json:"prepayId"`
	NonceStr    string `json:"nonceStr"`
	TimeStamp   string `json:"timeStamp"`
	SignType    string `json:"signType"`
	PaySign     string `json:"paySign"`
}

// RefundRequest asks the gateway to refund an order. Requests are keyed by
// OrderNumber: repeating one never refunds twice.
type RefundRequest struct {
	OrderNumber  string
	RefundNumber string
	TotalAmount  decimal.Decimal
	RefundAmount decimal.Decimal
	Currency     currency.Currency
}

// RefundRecord is the gateway's answer to a refund.
type RefundRecord struct {
	OrderNumber string          `json:"orderNumber"`
	RefundID    string          `json:"refundId"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	// AlreadyProcessed is set when the refund had been issued by an earlier call.
	AlreadyProcessed bool `json:"alreadyProcessed"`
}

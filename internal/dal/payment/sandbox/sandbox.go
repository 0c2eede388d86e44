package sandbox

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/corray333/backend-labs/takeout/internal/service/models/payment"
	"github.com/google/uuid"
)

// Gateway is an in-process payment gateway for local runs and tests.
// Like a real provider it is idempotent by order number.
type Gateway struct {
	mu          sync.Mutex
	prepaid     map[string]payment.PrepayToken
	paid        map[string]bool
	refunds     map[string]payment.RefundRecord
	refundCalls int
	refundErr   error
}

// NewGateway creates an empty sandbox gateway.
func NewGateway() *Gateway {
	return &Gateway{
		prepaid: make(map[string]payment.PrepayToken),
		paid:    make(map[string]bool),
		refunds: make(map[string]payment.RefundRecord),
	}
}

// Pay returns the same prepay token for repeated calls on one order.
func (g *Gateway) Pay(_ context.Context, req payment.PayRequest) (payment.PrepayToken, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.paid[req.OrderNumber] {
		return payment.PrepayToken{}, payment.ErrAlreadyPaid
	}
	if token, ok := g.prepaid[req.OrderNumber]; ok {
		return token, nil
	}

	token := payment.PrepayToken{
		OrderNumber: req.OrderNumber,
		PrepayID:    "sandbox-" + uuid.NewString(),
		NonceStr:    uuid.NewString(),
		TimeStamp:   strconv.FormatInt(time.Now().Unix(), 10),
		SignType:    "NONE",
	}
	g.prepaid[req.OrderNumber] = token

	return token, nil
}

// MarkPaid simulates the customer completing the payment of an order.
func (g *Gateway) MarkPaid(orderNumber string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.paid[orderNumber] = true
}

// Refund refunds an order once; repeated calls report AlreadyProcessed.
func (g *Gateway) Refund(_ context.Context, req payment.RefundRequest) (payment.RefundRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.refundCalls++
	if g.refundErr != nil {
		return payment.RefundRecord{}, g.refundErr
	}
	if req.RefundAmount.GreaterThan(req.TotalAmount) {
		return payment.RefundRecord{}, fmt.Errorf("refund %s exceeds total %s", req.RefundAmount, req.TotalAmount)
	}

	if rec, ok := g.refunds[req.OrderNumber]; ok {
		rec.AlreadyProcessed = true

		return rec, nil
	}

	rec := payment.RefundRecord{
		OrderNumber: req.OrderNumber,
		RefundID:    "sandbox-refund-" + uuid.NewString(),
		Amount:      req.RefundAmount,
		Status:      "SUCCESS",
	}
	g.refunds[req.OrderNumber] = rec

	return rec, nil
}

// FailRefunds makes every following refund fail with err until reset with nil.
func (g *Gateway) FailRefunds(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.refundErr = err
}

// RefundCalls returns how many refund requests reached the gateway.
func (g *Gateway) RefundCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.refundCalls
}

// Refunded returns the refund recorded for an order, if any.
func (g *Gateway) Refunded(orderNumber string) (payment.RefundRecord, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.refunds[orderNumber]

	return rec, ok
}

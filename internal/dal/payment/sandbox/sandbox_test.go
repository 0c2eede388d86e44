package sandbox

import (
	"context"
	"errors"
	"testing"

	"github.com/corray333/backend-labs/takeout/internal/service/models/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRefundIsIdempotentByOrderNumber(t *testing.T) {
	g := NewGateway()
	req := payment.RefundRequest{
		OrderNumber:  "n-1",
		RefundNumber: "n-1",
		TotalAmount:  decimal.RequireFromString("20.00"),
		RefundAmount: decimal.RequireFromString("20.00"),
	}

	first, err := g.Refund(context.Background(), req)
	require.NoError(t, err)
	require.False(t, first.AlreadyProcessed)

	second, err := g.Refund(context.Background(), req)
	require.NoError(t, err)
	require.True(t, second.AlreadyProcessed)
	require.Equal(t, first.RefundID, second.RefundID)
	require.Equal(t, 2, g.RefundCalls())
}

func TestPayReturnsSameTokenUntilPaid(t *testing.T) {
	g := NewGateway()
	req := payment.PayRequest{OrderNumber: "n-2", Amount: decimal.RequireFromString("9.90")}

	first, err := g.Pay(context.Background(), req)
	require.NoError(t, err)
	second, err := g.Pay(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, first, second)

	g.MarkPaid("n-2")
	_, err = g.Pay(context.Background(), req)
	require.ErrorIs(t, err, payment.ErrAlreadyPaid)
}

func TestFailRefunds(t *testing.T) {
	g := NewGateway()
	boom := errors.New("gateway down")
	g.FailRefunds(boom)

	_, err := g.Refund(context.Background(), payment.RefundRequest{OrderNumber: "n-3"})
	require.ErrorIs(t, err, boom)
	_, ok := g.Refunded("n-3")
	require.False(t, ok)

	g.FailRefunds(nil)
	_, err = g.Refund(context.Background(), payment.RefundRequest{OrderNumber: "n-3"})
	require.NoError(t, err)
}

package wechat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/corray333/backend-labs/takeout/internal/service/models/currency"
	"github.com/corray333/backend-labs/takeout/internal/service/models/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, h http.HandlerFunc) *Gateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return NewGateway(Config{
		BaseURL:    srv.URL,
		AppID:      "app",
		MerchantID: "mch",
		APIKey:     "secret",
		MaxRetries: 2,
		RetryBase:  time.Millisecond,
	}, srv.Client())
}

func TestRefundSendsCentsAndOrderNumber(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, refundPath, r.URL.Path)
		assert.NotEmpty(t, r.Header.Get(signatureHeader))

		var body refundRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "202610150001", body.OutTradeNo)
		assert.Equal(t, "202610150001", body.OutRefundNo)
		assert.EqualValues(t, 2050, body.Amount.Refund)
		assert.EqualValues(t, 2050, body.Amount.Total)

		_, _ = w.Write([]byte(`{"refund_id":"r-1","status":"PROCESSING","amount":{"refund":2050}}`))
	})

	rec, err := g.Refund(context.Background(), payment.RefundRequest{
		OrderNumber:  "202610150001",
		TotalAmount:  decimal.RequireFromString("20.50"),
		RefundAmount: decimal.RequireFromString("20.50"),
		Currency:     currency.CurrencyCNY,
	})
	require.NoError(t, err)
	require.Equal(t, "r-1", rec.RefundID)
	require.True(t, rec.Amount.Equal(decimal.RequireFromString("20.50")))
	require.False(t, rec.AlreadyProcessed)
}

func TestRefundAlreadyProcessedIsSuccess(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"RESOURCE_ALREADY_EXISTS","message":"refund exists"}`))
	})

	rec, err := g.Refund(context.Background(), payment.RefundRequest{
		OrderNumber:  "n",
		TotalAmount:  decimal.RequireFromString("1.00"),
		RefundAmount: decimal.RequireFromString("1.00"),
	})
	require.NoError(t, err)
	require.True(t, rec.AlreadyProcessed)
}

func TestCallRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	g := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)

			return
		}
		_, _ = w.Write([]byte(`{"prepay_id":"wx-1"}`))
	})

	token, err := g.Pay(context.Background(), payment.PayRequest{
		OrderNumber: "n",
		Amount:      decimal.RequireFromString("3.00"),
	})
	require.NoError(t, err)
	require.Equal(t, "wx-1", token.PrepayID)
	require.NotEmpty(t, token.PaySign)
	require.EqualValues(t, 3, calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	g := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"ORDERPAID","message":"paid"}`))
	})

	_, err := g.Pay(context.Background(), payment.PayRequest{
		OrderNumber: "n",
		Amount:      decimal.RequireFromString("3.00"),
	})
	require.ErrorIs(t, err, payment.ErrAlreadyPaid)
	require.EqualValues(t, 1, calls.Load())
}

func TestToCentsRejectsFractionsOfCents(t *testing.T) {
	_, err := toCents(decimal.RequireFromString("1.005"))
	require.Error(t, err)

	cents, err := toCents(decimal.RequireFromString("12.3"))
	require.NoError(t, err)
	require.EqualValues(t, 1230, cents)
}

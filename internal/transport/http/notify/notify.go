package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/takeout/internal/service/models/order"
	"github.com/corray333/backend-labs/takeout/internal/transport/http/request"
	"github.com/corray333/backend-labs/takeout/internal/transport/http/respond"
)

// SignatureHeader carries the hex HMAC-SHA256 of the notification body.
const SignatureHeader = "X-Takeout-Signature"

const maxBodyBytes = 64 << 10

// Service records confirmed payments.
type Service interface {
	PaymentConfirmed(ctx context.Context, number string) (order.Order, error)
}

// Config controls how notifications are authenticated. Without a secret
// every notification is refused unless Insecure is set.
type Config struct {
	Secret   string
	Insecure bool
}

type paySuccessRequest struct {
	OrderNumber   string `json:"out_trade_no"   validate:"required"`
	TransactionID string `json:"transaction_id"`
}

type ack struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PaySuccess handles the gateway's payment notification. A notification
// for an order that already left PendingPayment is acknowledged so the
// gateway stops redelivering it.
func PaySuccess(w http.ResponseWriter, r *http.Request, service Service, cfg Config) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	if !cfg.authentic(body, r.Header.Get(SignatureHeader)) {
		slog.WarnContext(r.Context(), "Payment notification refused", "remote_addr", r.RemoteAddr)
		respond.JSON(w, r, http.StatusUnauthorized, ack{Code: "FAIL", Message: "bad signature"})

		return
	}

	r.Body = io.NopCloser(bytes.NewReader(body))
	var req paySuccessRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)

		return
	}

	_, err = service.PaymentConfirmed(r.Context(), req.OrderNumber)
	var invalid *order.InvalidTransitionError
	switch {
	case err == nil:
	case errors.As(err, &invalid):
		if invalid.Current == order.StatusCancelled {
			slog.WarnContext(r.Context(), "Payment notified for cancelled order, refunded",
				"order_number", req.OrderNumber,
				"transaction_id", req.TransactionID)
		}
	default:
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, r, http.StatusOK, ack{Code: "SUCCESS", Message: "OK"})
}

func (c Config) authentic(body []byte, signature string) bool {
	if c.Secret == "" {
		return c.Insecure
	}

	return validSignature(body, signature, c.Secret)
}

func validSignature(body []byte, signature, secret string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	return hmac.Equal(got, mac.Sum(nil))
}

package wechat

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/corray333/backend-labs/takeout/internal/service/models/payment"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	payPath    = "/v3/pay/transactions/jsapi"
	refundPath = "/v3/refund/domestic/refunds"

	codeOrderPaid     = "ORDERPAID"
	codeRefundExists  = "RESOURCE_ALREADY_EXISTS"
	codeRefundRepeat  = "REFUND_ALREADY_PROCESSED"
	signType          = "HMAC-SHA256"
	signatureHeader   = "X-Takeout-Signature"
	merchantHeader    = "X-Takeout-Merchant"
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
)

// Config holds the merchant credentials of the payment provider.
type Config struct {
	BaseURL    string
	AppID      string
	MerchantID string
	APIKey     string
	Timeout    time.Duration
	MaxRetries uint64
	RetryBase  time.Duration
}

// ConfigFromViper reads the payment.wechat section.
func ConfigFromViper() Config {
	return Config{
		BaseURL:    viper.GetString("payment.wechat.base_url"),
		AppID:      viper.GetString("payment.wechat.app_id"),
		MerchantID: viper.GetString("payment.wechat.merchant_id"),
		APIKey:     viper.GetString("payment.wechat.api_key"),
		Timeout:    viper.GetDuration("payment.wechat.timeout"),
		MaxRetries: viper.GetUint64("payment.wechat.max_retries"),
		RetryBase:  viper.GetDuration("payment.wechat.retry_base"),
	}
}

// Gateway talks to the WeChat Pay style HTTP API.
type Gateway struct {
	cfg    Config
	client *http.Client
}

// NewGateway creates a gateway client. A nil client gets a default one.
func NewGateway(cfg Config, client *http.Client) *Gateway {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryBase == 0 {
		cfg.RetryBase = 200 * time.Millisecond
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Gateway{cfg: cfg, client: client}
}

type amount struct {
	Total    int64  `json:"total,omitempty"`
	Refund   int64  `json:"refund,omitempty"`
	Currency string `json:"currency"`
}

type payRequest struct {
	AppID       string `json:"appid"`
	MchID       string `json:"mchid"`
	Description string `json:"description"`
	OutTradeNo  string `json:"out_trade_no"`
	Amount      amount `json:"amount"`
	Payer       struct {
		OpenID string `json:"openid"`
	} `json:"payer"`
}

type payResponse struct {
	PrepayID string `json:"prepay_id"`
}

type refundRequest struct {
	OutTradeNo  string `json:"out_trade_no"`
	OutRefundNo string `json:"out_refund_no"`
	Amount      amount `json:"amount"`
}

type refundResponse struct {
	RefundID string `json:"refund_id"`
	Status   string `json:"status"`
	Amount   struct {
		Refund int64 `json:"refund"`
	} `json:"amount"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// apiError is a non-2xx answer of the provider.
type apiError struct {
	status int
	errorResponse
}

func (e *apiError) Error() string {
	return fmt.Sprintf("payment provider returned %d %s: %s", e.status, e.Code, e.Message)
}

// Pay creates a prepay transaction and signs the token for the client.
func (g *Gateway) Pay(ctx context.Context, req payment.PayRequest) (payment.PrepayToken, error) {
	total, err := toCents(req.Amount)
	if err != nil {
		return payment.PrepayToken{}, err
	}

	body := payRequest{
		AppID:       g.cfg.AppID,
		MchID:       g.cfg.MerchantID,
		Description: req.Description,
		OutTradeNo:  req.OrderNumber,
		Amount:      amount{Total: total, Currency: req.Currency.String()},
	}
	body.Payer.OpenID = req.PayerRef

	var resp payResponse
	if err := g.call(ctx, payPath, body, &resp); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.Code == codeOrderPaid {
			return payment.PrepayToken{}, payment.ErrAlreadyPaid
		}

		return payment.PrepayToken{}, err
	}

	token := payment.PrepayToken{
		OrderNumber: req.OrderNumber,
		PrepayID:    resp.PrepayID,
		NonceStr:    uuid.NewString(),
		TimeStamp:   strconv.FormatInt(time.Now().Unix(), 10),
		SignType:    signType,
	}
	token.PaySign = g.sign([]byte(g.cfg.AppID + "\n" + token.TimeStamp + "\n" + token.NonceStr + "\nprepay_id=" + token.PrepayID + "\n"))

	return token, nil
}

// Refund refunds an order. The refund number is derived from the order
// number, so the provider treats a repeated request as the same refund.
func (g *Gateway) Refund(ctx context.Context, req payment.RefundRequest) (payment.RefundRecord, error) {
	total, err := toCents(req.TotalAmount)
	if err != nil {
		return payment.RefundRecord{}, err
	}
	refund, err := toCents(req.RefundAmount)
	if err != nil {
		return payment.RefundRecord{}, err
	}

	refundNumber := req.RefundNumber
	if refundNumber == "" {
		refundNumber = req.OrderNumber
	}

	body := refundRequest{
		OutTradeNo:  req.OrderNumber,
		OutRefundNo: refundNumber,
		Amount:      amount{Total: total, Refund: refund, Currency: req.Currency.String()},
	}

	var resp refundResponse
	err = g.call(ctx, refundPath, body, &resp)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && (apiErr.Code == codeRefundExists || apiErr.Code == codeRefundRepeat) {
			return payment.RefundRecord{
				OrderNumber:      req.OrderNumber,
				Amount:           req.RefundAmount,
				Status:           "SUCCESS",
				AlreadyProcessed: true,
			}, nil
		}

		return payment.RefundRecord{}, err
	}

	return payment.RefundRecord{
		OrderNumber: req.OrderNumber,
		RefundID:    resp.RefundID,
		Amount:      decimal.New(resp.Amount.Refund, -2),
		Status:      resp.Status,
	}, nil
}

// call posts body and decodes the answer into out, retrying transport
// failures and 5xx answers with exponential backoff.
func (g *Gateway) call(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal payment request: %w", err)
	}

	backoff := retry.WithMaxRetries(g.cfg.MaxRetries, retry.NewExponential(g.cfg.RetryBase))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set(merchantHeader, g.cfg.MerchantID)
		req.Header.Set(signatureHeader, g.sign(payload))

		resp, err := g.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("do request: %w", err))
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("read response: %w", err))
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if len(raw) == 0 || out == nil {
				return nil
			}
			if err := json.Unmarshal(raw, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}

			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return retry.RetryableError(decodeError(resp.StatusCode, raw))
		default:
			return decodeError(resp.StatusCode, raw)
		}
	})
}

func (g *Gateway) sign(data []byte) string {
	mac := hmac.New(sha256.New, []byte(g.cfg.APIKey))
	mac.Write(data)

	return hex.EncodeToString(mac.Sum(nil))
}

func decodeError(status int, raw []byte) error {
	apiErr := &apiError{status: status}
	if err := json.Unmarshal(raw, &apiErr.errorResponse); err != nil || apiErr.Code == "" {
		apiErr.Code = http.StatusText(status)
		apiErr.Message = string(raw)
	}

	return apiErr
}

func toCents(d decimal.Decimal) (int64, error) {
	cents := d.Shift(2)
	if !cents.Equal(cents.Truncate(0)) || cents.IsNegative() {
		return 0, fmt.Errorf("amount %s is not a non-negative value in cents", d)
	}

	return cents.IntPart(), nil
}

package userorders

import (
	"context"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/takeout/internal/service/models/cartitem"
	"github.com/corray333/backend-labs/takeout/internal/service/models/order"
	"github.com/corray333/backend-labs/takeout/internal/service/models/payment"
	"github.com/corray333/backend-labs/takeout/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/takeout/internal/transport/http/identity"
	"github.com/corray333/backend-labs/takeout/internal/transport/http/request"
	"github.com/corray333/backend-labs/takeout/internal/transport/http/respond"
)

// Service is the order service as seen by customers.
type Service interface {
	Submit(ctx context.Context, userID int64, req ordersvc.SubmitRequest) (order.Order, error)
	Pay(ctx context.Context, userID int64, number, payerRef string) (payment.PrepayToken, error)
	History(ctx context.Context, userID int64, req ordersvc.HistoryRequest) (order.Page, error)
	Details(ctx context.Context, userID, id int64) (order.Order, error)
	UserCancel(ctx context.Context, userID, id int64) (order.Order, error)
	Repeat(ctx context.Context, userID, orderID int64) ([]cartitem.CartItem, error)
}

type submitRequest struct {
	AddressBookID int64  `json:"addressBookId" validate:"gt=0"`
	Remark        string `json:"remark"        validate:"max=100"`
}

// submitResponse is the short receipt of a submission.
type submitResponse struct {
	ID          int64  `json:"id"`
	OrderNumber string `json:"orderNumber"`
	OrderAmount string `json:"orderAmount"`
	OrderTime   string `json:"orderTime"`
}

type payRequest struct {
	OrderNumber string `json:"orderNumber" validate:"required"`
	PayerRef    string `json:"payerRef"`
}

type historyRequest struct {
	Page     int    `schema:"page"     validate:"gte=0"`
	PageSize int    `schema:"pageSize" validate:"gte=0,lte=100"`
	Status   string `schema:"status"`
}

// Submit handles cart submission.
func Submit(w http.ResponseWriter, r *http.Request, service Service) {
	var req submitRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)

		return
	}

	o, err := service.Submit(r.Context(), identity.UserID(r.Context()), ordersvc.SubmitRequest{
		AddressBookID: req.AddressBookID,
		Remark:        req.Remark,
	})
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, r, http.StatusCreated, submitResponse{
		ID:          o.ID,
		OrderNumber: o.Number,
		OrderAmount: o.Amount.StringFixed(2),
		OrderTime:   o.OrderTime.Format(time.RFC3339),
	})
}

// Pay opens a prepay transaction.
func Pay(w http.ResponseWriter, r *http.Request, service Service) {
	var req payRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)

		return
	}

	token, err := service.Pay(r.Context(), identity.UserID(r.Context()), req.OrderNumber, req.PayerRef)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, r, http.StatusOK, token)
}

// History pages through the caller's orders.
func History(w http.ResponseWriter, r *http.Request, service Service) {
	var req historyRequest
	if err := request.DecodeQuery(r, &req); err != nil {
		respond.Error(w, r, err)

		return
	}

	hr := ordersvc.HistoryRequest{Page: req.Page, PageSize: req.PageSize}
	if req.Status != "" {
		status, err := order.ParseStatus(req.Status)
		if err != nil {
			respond.Error(w, r, err)

			return
		}
		hr.Status = &status
	}

	page, err := service.History(r.Context(), identity.UserID(r.Context()), hr)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, r, http.StatusOK, page)
}

// Details returns one of the caller's orders.
func Details(w http.ResponseWriter, r *http.Request, service Service) {
	id, err := request.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	o, err := service.Details(r.Context(), identity.UserID(r.Context()), id)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, r, http.StatusOK, o)
}

// Cancel cancels one of the caller's orders.
func Cancel(w http.ResponseWriter, r *http.Request, service Service) {
	id, err := request.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	o, err := service.UserCancel(r.Context(), identity.UserID(r.Context()), id)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, r, http.StatusOK, o)
}

// Repeat puts the items of a past order back into the cart.
func Repeat(w http.ResponseWriter, r *http.Request, service Service) {
	id, err := request.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	items, err := service.Repeat(r.Context(), identity.UserID(r.Context()), id)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, r, http.StatusOK, items)
}

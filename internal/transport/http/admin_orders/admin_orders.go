package adminorders

import (
	"context"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/takeout/internal/service/models/order"
	"github.com/corray333/backend-labs/takeout/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/takeout/internal/transport/http/identity"
	"github.com/corray333/backend-labs/takeout/internal/transport/http/request"
	"github.com/corray333/backend-labs/takeout/internal/transport/http/respond"
)

// Service is the order service as seen by staff.
type Service interface {
	Search(ctx context.Context, req ordersvc.SearchRequest) (order.SummaryPage, error)
	AdminDetails(ctx context.Context, id int64) (order.Order, error)
	Confirm(ctx context.Context, staffID, id int64) (order.Order, error)
	Reject(ctx context.Context, staffID, id int64, reason string) (order.Order, error)
	StaffCancel(ctx context.Context, staffID, id int64, reason string) (order.Order, error)
	Delivery(ctx context.Context, staffID, id int64) (order.Order, error)
	Complete(ctx context.Context, staffID, id int64) (order.Order, error)
}

type searchRequest struct {
	Page      int       `schema:"page"      validate:"gte=0"`
	PageSize  int       `schema:"pageSize"  validate:"gte=0,lte=100"`
	Status    string    `schema:"status"`
	Number    string    `schema:"number"    validate:"max=64"`
	Phone     string    `schema:"phone"     validate:"max=32"`
	BeginTime time.Time `schema:"beginTime"`
	EndTime   time.Time `schema:"endTime"`
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

// Search runs the staff condition search.
func Search(w http.ResponseWriter, r *http.Request, service Service) {
	var req searchRequest
	if err := request.DecodeQuery(r, &req); err != nil {
		respond.Error(w, r, err)

		return
	}

	sr := ordersvc.SearchRequest{
		Number:   req.Number,
		Phone:    req.Phone,
		Begin:    req.BeginTime,
		End:      req.EndTime,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.Status != "" {
		status, err := order.ParseStatus(req.Status)
		if err != nil {
			respond.Error(w, r, err)

			return
		}
		sr.Status = &status
	}

	page, err := service.Search(r.Context(), sr)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, r, http.StatusOK, page)
}

// Details returns any order.
func Details(w http.ResponseWriter, r *http.Request, service Service) {
	id, err := request.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	o, err := service.AdminDetails(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, r, http.StatusOK, o)
}

// Confirm accepts an order.
func Confirm(w http.ResponseWriter, r *http.Request, service Service) {
	transition(w, r, service.Confirm)
}

// Delivery starts delivering an order.
func Delivery(w http.ResponseWriter, r *http.Request, service Service) {
	transition(w, r, service.Delivery)
}

// Complete finishes an order.
func Complete(w http.ResponseWriter, r *http.Request, service Service) {
	transition(w, r, service.Complete)
}

// Reject declines an order with a reason.
func Reject(w http.ResponseWriter, r *http.Request, service Service) {
	transitionWithReason(w, r, service.Reject)
}

// Cancel cancels an order with a reason.
func Cancel(w http.ResponseWriter, r *http.Request, service Service) {
	transitionWithReason(w, r, service.StaffCancel)
}

func transition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, staffID, id int64) (order.Order, error),
) {
	id, err := request.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	o, err := apply(r.Context(), identity.StaffID(r.Context()), id)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, r, http.StatusOK, o)
}

func transitionWithReason(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, staffID, id int64, reason string) (order.Order, error),
) {
	id, err := request.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	var req reasonRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)

		return
	}

	o, err := apply(r.Context(), identity.StaffID(r.Context()), id, req.Reason)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, r, http.StatusOK, o)
}

package reports

import (
	"context"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/takeout/internal/service/models/statistics"
	"github.com/corray333/backend-labs/takeout/internal/transport/http/request"
	"github.com/corray333/backend-labs/takeout/internal/transport/http/respond"
)

// Service builds dashboard figures and reports.
type Service interface {
	StatusCounts(ctx context.Context) (statistics.StatusCounts, error)
	Turnover(ctx context.Context, begin, end time.Time) (statistics.TurnoverReport, error)
	OrderReport(ctx context.Context, begin, end time.Time) (statistics.OrderReport, error)
	SalesTop10(ctx context.Context, begin, end time.Time) (statistics.SalesTopReport, error)
	ParseDate(v string) (time.Time, error)
}

type rangeRequest struct {
	Begin string `schema:"begin" validate:"required,datetime=2006-01-02"`
	End   string `schema:"end"   validate:"required,datetime=2006-01-02"`
}

// StatusCounts returns the number of orders per staff handled status.
func StatusCounts(w http.ResponseWriter, r *http.Request, service Service) {
	counts, err := service.StatusCounts(r.Context())
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, r, http.StatusOK, counts)
}

// Turnover returns completed turnover per day.
func Turnover(w http.ResponseWriter, r *http.Request, service Service) {
	withRange(w, r, service, func(ctx context.Context, begin, end time.Time) (any, error) {
		return service.Turnover(ctx, begin, end)
	})
}

// Orders returns order counts per day.
func Orders(w http.ResponseWriter, r *http.Request, service Service) {
	withRange(w, r, service, func(ctx context.Context, begin, end time.Time) (any, error) {
		return service.OrderReport(ctx, begin, end)
	})
}

// Top10 returns the best selling items.
func Top10(w http.ResponseWriter, r *http.Request, service Service) {
	withRange(w, r, service, func(ctx context.Context, begin, end time.Time) (any, error) {
		return service.SalesTop10(ctx, begin, end)
	})
}

func withRange(
	w http.ResponseWriter,
	r *http.Request,
	service Service,
	build func(ctx context.Context, begin, end time.Time) (any, error),
) {
	var req rangeRequest
	if err := request.DecodeQuery(r, &req); err != nil {
		respond.Error(w, r, err)

		return
	}

	begin, err := service.ParseDate(req.Begin)
	if err != nil {
		respond.Error(w, r, err)

		return
	}
	end, err := service.ParseDate(req.End)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	report, err := build(r.Context(), begin, end)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, r, http.StatusOK, report)
}

package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/takeout/internal/metrics"
	adminorders "github.com/corray333/backend-labs/takeout/internal/transport/http/admin_orders"
	"github.com/corray333/backend-labs/takeout/internal/transport/http/cart"
	"github.com/corray333/backend-labs/takeout/internal/transport/http/identity"
	"github.com/corray333/backend-labs/takeout/internal/transport/http/notify"
	"github.com/corray333/backend-labs/takeout/internal/transport/http/reports"
	userorders "github.com/corray333/backend-labs/takeout/internal/transport/http/user_orders"
	"github.com/corray333/backend-labs/takeout/pkg/http/middleware/trace"
	"github.com/corray333/backend-labs/takeout/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
)

type orderService interface {
	userorders.Service
	adminorders.Service
	cart.Service
	notify.Service
}

type statsService interface {
	reports.Service
}

type HTTPTransport struct {
	server       *http.Server
	router       *chi.Mux
	orderService orderService
	statsService statsService
	metrics      *metrics.Metrics
	notify       notify.Config
}

func NewHTTPTransport(orderService orderService, statsService statsService, m *metrics.Metrics) *HTTPTransport {
	router := newRouter(m)
	server := newServer(router)

	return &HTTPTransport{
		server:       server,
		router:       router,
		orderService: orderService,
		statsService: statsService,
		metrics:      m,
		notify: notify.Config{
			Secret:   viper.GetString("payment.notify_secret"),
			Insecure: viper.GetBool("payment.notify_insecure"),
		},
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (h *HTTPTransport) Handler() http.Handler {
	return h.router
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if h.metrics != nil {
		h.router.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	h.router.Route("/api", func(r chi.Router) {
		r.Post("/notify/paySuccess", h.paySuccess)

		r.Route("/user", func(r chi.Router) {
			r.Use(identity.RequireUser)

			r.Post("/orders/submit", h.submit)
			r.Put("/orders/payment", h.pay)
			r.Get("/orders/history", h.history)
			r.Get("/orders/{id}", h.userDetails)
			r.Put("/orders/{id}/cancel", h.userCancel)
			r.Post("/orders/{id}/repetition", h.repeat)

			r.Get("/cart", h.listCart)
			r.Delete("/cart", h.clearCart)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(identity.RequireStaff)

			r.Get("/orders/search", h.search)
			r.Get("/orders/statistics", h.statusCounts)
			r.Get("/orders/{id}", h.adminDetails)
			r.Put("/orders/{id}/confirm", h.confirm)
			r.Put("/orders/{id}/rejection", h.reject)
			r.Put("/orders/{id}/cancel", h.staffCancel)
			r.Put("/orders/{id}/delivery", h.delivery)
			r.Put("/orders/{id}/complete", h.complete)

			r.Get("/reports/turnover", h.turnover)
			r.Get("/reports/orders", h.orderReport)
			r.Get("/reports/top10", h.top10)
		})
	})
}

func (h *HTTPTransport) submit(w http.ResponseWriter, r *http.Request) {
	userorders.Submit(w, r, h.orderService)
}

func (h *HTTPTransport) pay(w http.ResponseWriter, r *http.Request) {
	userorders.Pay(w, r, h.orderService)
}

func (h *HTTPTransport) history(w http.ResponseWriter, r *http.Request) {
	userorders.History(w, r, h.orderService)
}

func (h *HTTPTransport) userDetails(w http.ResponseWriter, r *http.Request) {
	userorders.Details(w, r, h.orderService)
}

func (h *HTTPTransport) userCancel(w http.ResponseWriter, r *http.Request) {
	userorders.Cancel(w, r, h.orderService)
}

func (h *HTTPTransport) repeat(w http.ResponseWriter, r *http.Request) {
	userorders.Repeat(w, r, h.orderService)
}

func (h *HTTPTransport) listCart(w http.ResponseWriter, r *http.Request) {
	cart.List(w, r, h.orderService)
}

func (h *HTTPTransport) clearCart(w http.ResponseWriter, r *http.Request) {
	cart.Clear(w, r, h.orderService)
}

func (h *HTTPTransport) search(w http.ResponseWriter, r *http.Request) {
	adminorders.Search(w, r, h.orderService)
}

func (h *HTTPTransport) adminDetails(w http.ResponseWriter, r *http.Request) {
	adminorders.Details(w, r, h.orderService)
}

func (h *HTTPTransport) confirm(w http.ResponseWriter, r *http.Request) {
	adminorders.Confirm(w, r, h.orderService)
}

func (h *HTTPTransport) reject(w http.ResponseWriter, r *http.Request) {
	adminorders.Reject(w, r, h.orderService)
}

func (h *HTTPTransport) staffCancel(w http.ResponseWriter, r *http.Request) {
	adminorders.Cancel(w, r, h.orderService)
}

func (h *HTTPTransport) delivery(w http.ResponseWriter, r *http.Request) {
	adminorders.Delivery(w, r, h.orderService)
}

func (h *HTTPTransport) complete(w http.ResponseWriter, r *http.Request) {
	adminorders.Complete(w, r, h.orderService)
}

func (h *HTTPTransport) paySuccess(w http.ResponseWriter, r *http.Request) {
	notify.PaySuccess(w, r, h.orderService, h.notify)
}

func (h *HTTPTransport) statusCounts(w http.ResponseWriter, r *http.Request) {
	reports.StatusCounts(w, r, h.statsService)
}

func (h *HTTPTransport) turnover(w http.ResponseWriter, r *http.Request) {
	reports.Turnover(w, r, h.statsService)
}

func (h *HTTPTransport) orderReport(w http.ResponseWriter, r *http.Request) {
	reports.Orders(w, r, h.statsService)
}

func (h *HTTPTransport) top10(w http.ResponseWriter, r *http.Request) {
	reports.Top10(w, r, h.statsService)
}

func newRouter(m *metrics.Metrics) *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware)
	if m != nil {
		router.Use(m.Middleware)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   viper.GetStringSlice("server.http.cors.allowed_origins"),
		AllowedMethods:   viper.GetStringSlice("server.http.cors.allowed_methods"),
		AllowedHeaders:   viper.GetStringSlice("server.http.cors.allowed_headers"),
		ExposedHeaders:   viper.GetStringSlice("server.http.cors.exposed_headers"),
		AllowCredentials: viper.GetBool("server.http.cors.allow_credentials"),
		MaxAge:           viper.GetInt("server.http.cors.max_age"),
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:              "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler:           router,
		ReadHeaderTimeout: viper.GetDuration("server.http.read_header_timeout"),
	}
}

package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/corray333/backend-labs/takeout/internal/dal/interfaces/ipaymentgateway"
	"github.com/corray333/backend-labs/takeout/internal/dal/kafka"
	"github.com/corray333/backend-labs/takeout/internal/dal/payment/sandbox"
	"github.com/corray333/backend-labs/takeout/internal/dal/payment/wechat"
	"github.com/corray333/backend-labs/takeout/internal/dal/postgres"
	"github.com/corray333/backend-labs/takeout/internal/dal/rabbitmq"
	outboxrepo "github.com/corray333/backend-labs/takeout/internal/dal/repositories/outbox/postgres"
	"github.com/corray333/backend-labs/takeout/internal/metrics"
	"github.com/corray333/backend-labs/takeout/internal/otel"
	"github.com/corray333/backend-labs/takeout/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/takeout/internal/service/services/statssvc"
	httptransport "github.com/corray333/backend-labs/takeout/internal/transport/http"
	"github.com/corray333/backend-labs/takeout/internal/worker/outbox"
	"github.com/corray333/backend-labs/takeout/internal/worker/sweeper"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
)

type publisher interface {
	outbox.Publisher
	io.Closer
}

// App represents the application.
type App struct {
	orderSvc       *ordersvc.OrderService
	statsSvc       *statssvc.StatisticsService
	transport      *httptransport.HTTPTransport
	sweeper        *sweeper.Sweeper
	outboxWorker   *outbox.Worker
	publisher      publisher
	postgresClient *postgres.Client
	otel           *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel(viper.GetBool("tracing.enabled"))
	m := metrics.New(prometheus.DefaultRegisterer)

	postgresClient := postgres.MustNewClient()

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(postgresClient),
		ordersvc.WithPaymentGateway(mustNewGateway()),
		ordersvc.WithMetrics(m),
	)

	statsSvc := statssvc.MustNewStatisticsService(
		statssvc.WithPostgresClient(postgresClient),
		statssvc.WithLocation(mustLoadLocation(viper.GetString("statistics.timezone"))),
	)

	sw := sweeper.NewSweeper(orderSvc, sweeper.Config{
		PaymentInterval:   viper.GetDuration("sweeper.payment_interval"),
		PaymentThreshold:  viper.GetDuration("sweeper.payment_threshold"),
		DeliveryInterval:  viper.GetDuration("sweeper.delivery_interval"),
		DeliveryThreshold: viper.GetDuration("sweeper.delivery_threshold"),
		BatchSize:         viper.GetInt("sweeper.batch_size"),
		Concurrency:       viper.GetInt("sweeper.concurrency"),
	}, m)

	pub := mustNewPublisher(viper.GetString("events.broker"))
	worker := outbox.NewWorker(
		outboxrepo.NewOutboxRepository(postgresClient.Pool()),
		pub,
		outbox.Config{
			PollInterval:  viper.GetDuration("events.poll_interval"),
			BatchSize:     viper.GetInt("events.batch_size"),
			RetryInterval: viper.GetDuration("events.retry_interval"),
		},
		m,
	)

	transport := httptransport.NewHTTPTransport(orderSvc, statsSvc, m)
	transport.RegisterRoutes()

	return &App{
		orderSvc:       orderSvc,
		statsSvc:       statsSvc,
		transport:      transport,
		sweeper:        sw,
		outboxWorker:   worker,
		publisher:      pub,
		postgresClient: postgresClient,
		otel:           otelController,
	}
}

func mustNewGateway() ipaymentgateway.IPaymentGateway {
	switch provider := viper.GetString("payment.provider"); provider {
	case "sandbox":
		slog.Warn("Using the sandbox payment gateway")

		return sandbox.NewGateway()
	case "wechat":
		if viper.GetString("payment.notify_secret") == "" || viper.GetBool("payment.notify_insecure") {
			panic("the wechat payment provider requires payment.notify_secret and signed notifications")
		}

		return wechat.NewGateway(wechat.ConfigFromViper(), nil)
	default:
		panic(fmt.Sprintf("unknown payment provider %q", provider))
	}
}

func mustNewPublisher(broker string) publisher {
	switch broker {
	case "rabbitmq":
		return rabbitmq.MustNewClient()
	case "kafka":
		return kafka.MustNewPublisher()
	default:
		panic(fmt.Sprintf("unknown events broker %q", broker))
	}
}

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic("error while loading statistics timezone: " + err.Error())
	}

	return loc
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	var workers sync.WaitGroup

	workers.Add(2)
	go func() {
		defer workers.Done()
		a.sweeper.Start(workerCtx)
	}()
	go func() {
		defer workers.Done()
		a.outboxWorker.Start(workerCtx)
	}()

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("server.shutdown_timeout"))
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	a.sweeper.Stop()
	a.outboxWorker.Stop()
	workers.Wait()
	slog.Info("Background workers stopped")

	if err := a.publisher.Close(); err != nil {
		slog.Error("Event publisher close error", "error", err)
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed gracefully")

	if err := a.otel.Shutdown(ctx); err != nil {
		slog.Error("Tracer provider shutdown error", "error", err)
	}

	slog.Info("Application shutdown complete")
}

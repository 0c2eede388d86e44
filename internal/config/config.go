package config

import (
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/takeout/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func MustInit() {
	if err := godotenv.Load("./.env"); err != nil {
		slog.Warn("No .env file loaded, relying on process environment", "error", err)
	}

	SetDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/takeout")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		panic("error while reading config file: " + err.Error())
	}
	SetupLogger()
}

// SetDefaults registers the values used when config.yaml leaves a key out.
func SetDefaults() {
	viper.SetDefault("server.http.port", "8080")
	viper.SetDefault("server.http.read_header_timeout", 5*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("log.level", "info")

	viper.SetDefault("payment.provider", "sandbox")
	viper.SetDefault("payment.notify_insecure", false)
	viper.SetDefault("payment.wechat.timeout", 10*time.Second)
	viper.SetDefault("payment.wechat.max_retries", 3)
	viper.SetDefault("payment.wechat.retry_base", 200*time.Millisecond)

	viper.SetDefault("sweeper.payment_interval", time.Minute)
	viper.SetDefault("sweeper.payment_threshold", 15*time.Minute)
	viper.SetDefault("sweeper.delivery_interval", 24*time.Hour)
	viper.SetDefault("sweeper.delivery_threshold", time.Hour)
	viper.SetDefault("sweeper.batch_size", 100)
	viper.SetDefault("sweeper.concurrency", 4)

	viper.SetDefault("events.broker", "rabbitmq")
	viper.SetDefault("events.poll_interval", 10*time.Second)
	viper.SetDefault("events.batch_size", 100)
	viper.SetDefault("events.retry_interval", 30*time.Second)

	viper.SetDefault("statistics.timezone", "Local")
	viper.SetDefault("tracing.enabled", true)
}

func SetupLogger() {
	handler := logger.NewHandler(&slog.HandlerOptions{
		Level: logger.ParseLevel(viper.GetString("log.level")),
	})
	log := slog.New(handler)
	slog.SetDefault(log)
}

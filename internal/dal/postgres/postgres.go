package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/viper"
)

// GenericConn is an interface that works with both pgxpool.Pool and pgx.Tx.
type GenericConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Client represents a Postgres client.
type Client struct {
	pool *pgxpool.Pool
}

// Pool returns the underlying connection pool.
func (p *Client) Pool() *pgxpool.Pool {
	return p.pool
}

// Close closes the database connection for graceful shutdown.
func (p *Client) Close() {
	p.pool.Close()
}

// MustNewClient creates a new Postgres client and applies migrations.
func MustNewClient() *Client {
	port := os.Getenv("TAKEOUT_PG_PORT")
	if port == "" {
		port = "5432"
	}
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		os.Getenv("TAKEOUT_PG_HOST"),
		port,
		os.Getenv("TAKEOUT_PG_USER"),
		os.Getenv("TAKEOUT_PG_PASSWORD"),
		os.Getenv("TAKEOUT_PG_DB"),
	)

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		panic(err)
	}
	if maxConns := viper.GetInt32("postgres.max_conns"); maxConns > 0 {
		config.MaxConns = maxConns
	}
	// Day buckets in the statistics queries follow the session time zone.
	if tz := viper.GetString("statistics.timezone"); tz != "" && tz != "Local" {
		config.ConnConfig.RuntimeParams["timezone"] = tz
	}

	mustMigrate(config.Copy())

	config.AfterConnect = registerTypes
	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		panic(err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		panic(err)
	}

	return &Client{
		pool: pool,
	}
}

// mustMigrate applies migrations over a dedicated pool, since the custom
// types registered on the main pool only exist once migrations ran.
func mustMigrate(config *pgxpool.Config) {
	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	// Run migrations using goose with stdlib adapter
	if err := goose.SetDialect("postgres"); err != nil {
		panic(err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.Up(db, viper.GetString("postgres.migrations_path")); err != nil &&
		!errors.Is(err, goose.ErrNoNextVersion) {
		panic(err)
	}
}

// registerTypes registers custom composite types used by bulk inserts.
func registerTypes(ctx context.Context, conn *pgx.Conn) error {
	orderItemType, err := conn.LoadType(ctx, "v1_order_item")
	if err != nil {
		return fmt.Errorf("failed to load v1_order_item type: %w", err)
	}
	conn.TypeMap().RegisterType(orderItemType)

	arrayType, err := conn.LoadType(ctx, "_v1_order_item")
	if err != nil {
		return fmt.Errorf("failed to load v1_order_item[] type: %w", err)
	}
	conn.TypeMap().RegisterType(arrayType)

	return nil
}

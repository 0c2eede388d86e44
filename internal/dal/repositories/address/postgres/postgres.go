package postgresrepo

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/takeout/internal/dal/postgres"
	"github.com/corray333/backend-labs/takeout/internal/service/models/address"
	"github.com/jackc/pgx/v5"
)

// PostgresAddressRepository represents a Postgres address book repository.
type PostgresAddressRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresAddressRepository creates a new Postgres address book repository.
func NewPostgresAddressRepository(conn postgres.GenericConn) *PostgresAddressRepository {
	return &PostgresAddressRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// GetByID retrieves an address book entry owned by userID.
func (r *PostgresAddressRepository) GetByID(ctx context.Context, userID, id int64) (address.Address, error) {
	sql, args, err := r.sb.
		Select(
			"id",
			"user_id",
			"consignee",
			"phone",
			"province_name",
			"city_name",
			"district_name",
			"detail",
		).
		From("address_book").
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return address.Address{}, fmt.Errorf("failed to build query: %w", err)
	}

	var a address.Address
	err = r.conn.QueryRow(ctx, sql, args...).Scan(
		&a.ID,
		&a.UserID,
		&a.Consignee,
		&a.Phone,
		&a.ProvinceName,
		&a.CityName,
		&a.DistrictName,
		&a.Detail,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return address.Address{}, address.ErrNotFound
		}

		return address.Address{}, fmt.Errorf("failed to scan address: %w", err)
	}

	return a, nil
}

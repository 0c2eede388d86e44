package iaddressrepo

import (
	"context"

	"github.com/corray333/backend-labs/takeout/internal/service/models/address"
)

// IAddressRepository is an interface for address book postgres repository.
type IAddressRepository interface {
	// GetByID returns address.ErrNotFound unless the entry exists and belongs to userID.
	GetByID(ctx context.Context, userID, id int64) (address.Address, error)
}

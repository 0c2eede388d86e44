package cart

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/takeout/internal/service/models/cartitem"
	"github.com/corray333/backend-labs/takeout/internal/transport/http/identity"
	"github.com/corray333/backend-labs/takeout/internal/transport/http/respond"
)

// Service reads and clears shopping carts.
type Service interface {
	ListCart(ctx context.Context, userID int64) ([]cartitem.CartItem, error)
	ClearCart(ctx context.Context, userID int64) error
}

// List returns the caller's cart.
func List(w http.ResponseWriter, r *http.Request, service Service) {
	items, err := service.ListCart(r.Context(), identity.UserID(r.Context()))
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, r, http.StatusOK, items)
}

// Clear empties the caller's cart.
func Clear(w http.ResponseWriter, r *http.Request, service Service) {
	if err := service.ClearCart(r.Context(), identity.UserID(r.Context())); err != nil {
		respond.Error(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package request

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/corray333/backend-labs/takeout/internal/service/models/order"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type query struct {
	Page  int       `schema:"page"  validate:"gte=0"`
	Since time.Time `schema:"since"`
}

func TestDecodeQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=3&since=2024-05-01T08:00:00Z&unknown=1", nil)

	var q query
	require.NoError(t, DecodeQuery(r, &q))
	require.Equal(t, 3, q.Page)
	require.Equal(t, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), q.Since)

	r = httptest.NewRequest(http.MethodGet, "/?page=-1", nil)
	require.True(t, errors.Is(DecodeQuery(r, &q), order.ErrValidation))
}

func TestPathID(t *testing.T) {
	withID := func(v string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", v)
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}

	id, err := PathID(withID("15"), "id")
	require.NoError(t, err)
	require.EqualValues(t, 15, id)

	for _, bad := range []string{"", "0", "x1"} {
		_, err := PathID(withID(bad), "id")
		require.ErrorIs(t, err, order.ErrValidation)
	}
}

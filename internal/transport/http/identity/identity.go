package identity

import (
	"context"
	"net/http"
	"strconv"

	"github.com/corray333/backend-labs/takeout/internal/transport/http/respond"
)

// Authentication happens in front of this service; the gateway forwards
// the resolved principal in these headers.
const (
	UserHeader  = "X-User-ID"
	StaffHeader = "X-Staff-ID"
)

type ctxKey int

const (
	userKey ctxKey = iota
	staffKey
)

// RequireUser rejects requests without a customer id.
func RequireUser(next http.Handler) http.Handler {
	return require(UserHeader, userKey, next)
}

// RequireStaff rejects requests without a staff id.
func RequireStaff(next http.Handler) http.Handler {
	return require(StaffHeader, staffKey, next)
}

// UserID returns the customer id stored by RequireUser.
func UserID(ctx context.Context) int64 {
	id, _ := ctx.Value(userKey).(int64)

	return id
}

// StaffID returns the staff id stored by RequireStaff.
func StaffID(ctx context.Context) int64 {
	id, _ := ctx.Value(staffKey).(int64)

	return id
}

func require(header string, key ctxKey, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.Header.Get(header), 10, 64)
		if err != nil || id <= 0 {
			respond.JSON(w, r, http.StatusUnauthorized, respond.ErrorBody{
				Code:    "UNAUTHORIZED",
				Message: "missing or invalid " + header,
			})

			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), key, id)))
	})
}

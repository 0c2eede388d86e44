package request

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/corray333/backend-labs/takeout/internal/service/models/order"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

var (
	validate = validator.New(validator.WithRequiredStructEnabled())
	decoder  = newQueryDecoder()
)

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)

	return d
}

// DecodeJSON reads the body into dst and validates its struct tags.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed body: %v", order.ErrValidation, err)
	}

	return Validate(dst)
}

// DecodeQuery reads the query string into dst and validates its struct tags.
func DecodeQuery(r *http.Request, dst any) error {
	if err := decoder.Decode(dst, r.URL.Query()); err != nil {
		return fmt.Errorf("%w: malformed query: %v", order.ErrValidation, err)
	}

	return Validate(dst)
}

// Validate checks the validate tags of v.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", order.ErrValidation, err)
	}

	return nil
}

// PathID parses a positive integer URL parameter.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad %s %q", order.ErrValidation, name, chi.URLParam(r, name))
	}

	return id, nil
}

package order

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

const numberTimeLayout = "20060102150405"

// NewNumber generates a human-facing order number: the submission time in
// UTC followed by 48 random bits, so numbers sort by submission second.
func NewNumber(now time.Time) string {
	id := uuid.New()

	return now.UTC().Format(numberTimeLayout) + hex.EncodeToString(id[10:])
}

package postgres

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNumericRoundTripIsExact(t *testing.T) {
	for _, v := range []string{"0", "10.00", "5.5", "1234567.89", "-3.10", "0.01"} {
		d := decimal.RequireFromString(v)

		got := DecimalFromNumeric(NumericFromDecimal(d))

		require.True(t, d.Equal(got), "value %s came back as %s", v, got)
	}
}

func TestDecimalFromNullNumericIsZero(t *testing.T) {
	require.True(t, DecimalFromNumeric(NumericFromDecimal(decimal.Zero)).IsZero())
	require.True(t, DecimalFromNumeric(pgtypeNull()).IsZero())
}

func pgtypeNull() pgtype.Numeric {
	return pgtype.Numeric{}
}

package currency

import (
	"database/sql/driver"
	"errors"
)

type Currency string

const (
	CurrencyCNY Currency = "CNY"
)

// Default is the currency every order is settled in.
const Default = CurrencyCNY

var ErrInvalidCurrency = errors.New("invalid currency")

func (c Currency) String() string {
	return string(c)
}

func (c Currency) Value() (driver.Value, error) {
	return c.String(), nil
}

func ParseCurrency(s string) (Currency, error) {
	switch s {
	case CurrencyCNY.String():
		return CurrencyCNY, nil
	default:
		return "", ErrInvalidCurrency
	}
}

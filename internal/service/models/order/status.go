package order

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of an order.
type Status int

const (
	StatusPendingPayment Status = iota + 1
	StatusToBeConfirmed
	StatusConfirmed
	StatusDeliveryInProgress
	StatusCompleted
	StatusCancelled
)

var statusNames = map[Status]string{
	StatusPendingPayment:     "PENDING_PAYMENT",
	StatusToBeConfirmed:      "TO_BE_CONFIRMED",
	StatusConfirmed:          "CONFIRMED",
	StatusDeliveryInProgress: "DELIVERY_IN_PROGRESS",
	StatusCompleted:          "COMPLETED",
	StatusCancelled:          "CANCELLED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}

	return fmt.Sprintf("Status(%d)", int(s))
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusNames[s]

	return ok
}

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed

	return nil
}

// ParseStatus accepts either the status name or its numeric code.
func ParseStatus(v string) (Status, error) {
	v = strings.TrimSpace(v)
	for s, name := range statusNames {
		if strings.EqualFold(name, v) || fmt.Sprint(int(s)) == v {
			return s, nil
		}
	}

	return 0, fmt.Errorf("%w: unknown order status %q", ErrValidation, v)
}

// PayStatus is the payment state of an order.
type PayStatus int

const (
	PayStatusUnpaid PayStatus = iota
	PayStatusPaid
	PayStatusRefunded
)

func (p PayStatus) String() string {
	switch p {
	case PayStatusUnpaid:
		return "UNPAID"
	case PayStatusPaid:
		return "PAID"
	case PayStatusRefunded:
		return "REFUNDED"
	default:
		return fmt.Sprintf("PayStatus(%d)", int(p))
	}
}

func (p PayStatus) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

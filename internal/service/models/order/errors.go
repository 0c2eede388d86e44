package order

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks bad caller input. Not retryable.
	ErrValidation = errors.New("validation error")
	// ErrAddressNotFound is returned on submission with an unknown address.
	ErrAddressNotFound = fmt.Errorf("%w: address book entry not found", ErrValidation)
	// ErrCartEmpty is returned on submission with an empty cart.
	ErrCartEmpty = fmt.Errorf("%w: shopping cart is empty", ErrValidation)

	ErrOrderNotFound = errors.New("order not found")
	// ErrAlreadyPaid is returned when the gateway reports the order as paid already.
	ErrAlreadyPaid = errors.New("order already paid")

	ErrInvalidStateTransition = errors.New("invalid order state transition")
	ErrPaymentGateway         = errors.New("payment gateway error")
	// ErrStorageConflict means the conditional update lost a race.
	ErrStorageConflict = errors.New("order storage conflict")
)

// InvalidTransitionError is returned when a transition guard fails
// against the persisted state of the order.
type InvalidTransitionError struct {
	OrderID int64
	Event   Event
	Current Status
	Target  Status
	Reason  string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("order %d: cannot apply %s in status %s (target %s)", e.OrderID, e.Event, e.Current, e.Target)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}

	return msg
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}

// PaymentGatewayError wraps a failed pay or refund call. The order is left
// untouched, so the same call may be retried.
type PaymentGatewayError struct {
	OrderNumber string
	Op          string
	Err         error
}

func (e *PaymentGatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s for order %s: %v", e.Op, e.OrderNumber, e.Err)
}

func (e *PaymentGatewayError) Unwrap() []error {
	return []error{ErrPaymentGateway, e.Err}
}

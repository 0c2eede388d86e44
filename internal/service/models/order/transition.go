package order

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Event is an action that moves an order between states.
type Event string

const (
	EventPaymentConfirmed   Event = "payment_confirmed"
	EventSweepTimeout       Event = "sweep_timeout"
	EventConfirm            Event = "confirm"
	EventReject             Event = "reject"
	EventUserCancel         Event = "user_cancel"
	EventStaffCancel        Event = "staff_cancel"
	EventDelivery           Event = "delivery"
	EventComplete           Event = "complete"
	EventSweepStaleDelivery Event = "sweep_stale_delivery"
)

const (
	ReasonPaymentTimeout = "payment timeout"
	ReasonUserCancelled  = "user cancelled"

	maxReasonLength = 255
)

type rule struct {
	from           []Status
	to             Status
	needsReason    bool
	elapsedGuarded bool
}

var rules = map[Event]rule{
	EventPaymentConfirmed: {
		from: []Status{StatusPendingPayment},
		to:   StatusToBeConfirmed,
	},
	EventSweepTimeout: {
		from:           []Status{StatusPendingPayment},
		to:             StatusCancelled,
		elapsedGuarded: true,
	},
	EventConfirm: {
		from: []Status{StatusToBeConfirmed},
		to:   StatusConfirmed,
	},
	EventReject: {
		from:        []Status{StatusToBeConfirmed},
		to:          StatusCancelled,
		needsReason: true,
	},
	EventUserCancel: {
		from: []Status{StatusPendingPayment, StatusToBeConfirmed, StatusConfirmed},
		to:   StatusCancelled,
	},
	// Staff may cancel any order that has not reached a terminal state.
	EventStaffCancel: {
		from:        []Status{StatusPendingPayment, StatusToBeConfirmed, StatusConfirmed, StatusDeliveryInProgress},
		to:          StatusCancelled,
		needsReason: true,
	},
	EventDelivery: {
		from: []Status{StatusConfirmed},
		to:   StatusDeliveryInProgress,
	},
	EventComplete: {
		from: []Status{StatusDeliveryInProgress},
		to:   StatusCompleted,
	},
	EventSweepStaleDelivery: {
		from:           []Status{StatusDeliveryInProgress},
		to:             StatusCompleted,
		elapsedGuarded: true,
	},
}

// Target returns the status ev leads to.
func (ev Event) Target() Status {
	return rules[ev].to
}

// TransitionParams carries the caller supplied inputs of a transition.
type TransitionParams struct {
	Actor Actor
	// Reason is required for reject and staff cancel.
	Reason string
	// Cutoff applies to sweep events: the order must be placed before it.
	Cutoff time.Time
}

// Change is a planned transition: what to write and whether a refund
// must be issued before writing it.
type Change struct {
	Event  Event
	From   Status
	Update Update
	Refund bool
}

// Plan checks the guard of ev against o and computes the resulting update.
// o must be the currently persisted state of the order.
func (o Order) Plan(ev Event, p TransitionParams, now time.Time) (Change, error) {
	r, ok := rules[ev]
	if !ok {
		return Change{}, fmt.Errorf("%w: unknown order event %q", ErrValidation, ev)
	}

	if !slices.Contains(r.from, o.Status) {
		return Change{}, o.invalid(ev, r.to, "")
	}

	reason := strings.TrimSpace(p.Reason)
	if r.needsReason {
		if reason == "" {
			return Change{}, fmt.Errorf("%w: %s requires a reason", ErrValidation, ev)
		}
		if len(reason) > maxReasonLength {
			return Change{}, fmt.Errorf("%w: reason longer than %d bytes", ErrValidation, maxReasonLength)
		}
	}

	if ev == EventPaymentConfirmed && o.PayStatus != PayStatusUnpaid {
		return Change{}, o.invalid(ev, r.to, "order is "+o.PayStatus.String())
	}
	if r.elapsedGuarded && !o.OrderTime.Before(p.Cutoff) {
		return Change{}, o.invalid(ev, r.to, "order placed after sweep cutoff")
	}

	at := now
	upd := Update{
		Status:    r.to,
		UpdatedAt: at,
		UpdatedBy: p.Actor,
	}
	change := Change{Event: ev, From: o.Status}

	switch ev {
	case EventPaymentConfirmed:
		paid := PayStatusPaid
		upd.PayStatus = &paid
		upd.CheckoutTime = &at
	case EventSweepTimeout:
		upd.CancelReason = ptr(ReasonPaymentTimeout)
	case EventUserCancel:
		upd.CancelReason = ptr(ReasonUserCancelled)
	case EventReject:
		upd.CancelReason = ptr(reason)
		upd.RejectionReason = ptr(reason)
	case EventStaffCancel:
		upd.CancelReason = ptr(reason)
	case EventComplete, EventSweepStaleDelivery:
		upd.DeliveryTime = &at
	}

	if r.to == StatusCancelled {
		upd.CancelTime = &at
		if o.PayStatus == PayStatusPaid {
			refunded := PayStatusRefunded
			upd.PayStatus = &refunded
			change.Refund = true
		}
	}
	change.Update = upd

	return change, nil
}

func (o Order) invalid(ev Event, target Status, reason string) *InvalidTransitionError {
	return &InvalidTransitionError{
		OrderID: o.ID,
		Event:   ev,
		Current: o.Status,
		Target:  target,
		Reason:  reason,
	}
}

func ptr[T any](v T) *T {
	return &v
}

// Payable reports whether a prepay transaction may be opened for o.
func (o Order) Payable() error {
	if o.Status != StatusPendingPayment {
		return o.invalid(EventPaymentConfirmed, StatusToBeConfirmed, "order is not awaiting payment")
	}
	if o.PayStatus != PayStatusUnpaid {
		return o.invalid(EventPaymentConfirmed, StatusToBeConfirmed, "order is "+o.PayStatus.String())
	}

	return nil
}

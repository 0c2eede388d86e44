package order

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var placed = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func newOrder(status Status, pay PayStatus) Order {
	return Order{
		ID:        1,
		Number:    "20261015120000abcdef",
		Status:    status,
		PayStatus: pay,
		Amount:    decimal.RequireFromString("20.00"),
		OrderTime: placed,
	}
}

func TestPlanTable(t *testing.T) {
	allStatuses := []Status{
		StatusPendingPayment,
		StatusToBeConfirmed,
		StatusConfirmed,
		StatusDeliveryInProgress,
		StatusCompleted,
		StatusCancelled,
	}
	allowed := map[Event][]Status{
		EventPaymentConfirmed:   {StatusPendingPayment},
		EventSweepTimeout:       {StatusPendingPayment},
		EventConfirm:            {StatusToBeConfirmed},
		EventReject:             {StatusToBeConfirmed},
		EventUserCancel:         {StatusPendingPayment, StatusToBeConfirmed, StatusConfirmed},
		EventStaffCancel:        {StatusPendingPayment, StatusToBeConfirmed, StatusConfirmed, StatusDeliveryInProgress},
		EventDelivery:           {StatusConfirmed},
		EventComplete:           {StatusDeliveryInProgress},
		EventSweepStaleDelivery: {StatusDeliveryInProgress},
	}
	p := TransitionParams{Actor: ActorSweeper, Reason: "reason", Cutoff: placed.Add(time.Second)}

	for ev, from := range allowed {
		for _, status := range allStatuses {
			_, err := newOrder(status, PayStatusUnpaid).Plan(ev, p, placed.Add(time.Hour))
			if slices.Contains(from, status) {
				require.NoError(t, err, "%s from %s", ev, status)
			} else {
				require.ErrorIs(t, err, ErrInvalidStateTransition, "%s from %s", ev, status)
			}
		}
	}
}

func TestTerminalStatesHaveNoWayOut(t *testing.T) {
	for _, status := range []Status{StatusCompleted, StatusCancelled} {
		require.True(t, status.Terminal())
		for ev := range rules {
			_, err := newOrder(status, PayStatusPaid).Plan(ev, TransitionParams{Reason: "x", Cutoff: placed.Add(time.Hour)}, placed)
			require.Error(t, err)
		}
	}
}

func TestPlanPaymentConfirmed(t *testing.T) {
	now := placed.Add(time.Minute)
	change, err := newOrder(StatusPendingPayment, PayStatusUnpaid).Plan(EventPaymentConfirmed, TransitionParams{Actor: ActorPaymentGateway}, now)
	require.NoError(t, err)
	require.False(t, change.Refund)
	require.Equal(t, StatusPendingPayment, change.From)

	o := newOrder(StatusPendingPayment, PayStatusUnpaid).Apply(change.Update)
	require.Equal(t, StatusToBeConfirmed, o.Status)
	require.Equal(t, PayStatusPaid, o.PayStatus)
	require.Equal(t, now, *o.CheckoutTime)
	require.Nil(t, o.CancelTime)
	require.EqualValues(t, 1, o.Version)
	require.Equal(t, ActorPaymentGateway, o.UpdatedBy)

	_, err = newOrder(StatusPendingPayment, PayStatusPaid).Plan(EventPaymentConfirmed, TransitionParams{}, now)
	require.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestPlanSweepTimeoutHonoursCutoff(t *testing.T) {
	o := newOrder(StatusPendingPayment, PayStatusUnpaid)
	threshold := 15 * time.Minute

	at14 := placed.Add(14 * time.Minute)
	_, err := o.Plan(EventSweepTimeout, TransitionParams{Cutoff: at14.Add(-threshold)}, at14)
	require.ErrorIs(t, err, ErrInvalidStateTransition)

	at16 := placed.Add(16 * time.Minute)
	change, err := o.Plan(EventSweepTimeout, TransitionParams{Actor: ActorSweeper, Cutoff: at16.Add(-threshold)}, at16)
	require.NoError(t, err)
	cancelled := o.Apply(change.Update)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.Equal(t, ReasonPaymentTimeout, cancelled.CancelReason)
	require.Equal(t, at16, *cancelled.CancelTime)
	require.Equal(t, PayStatusUnpaid, cancelled.PayStatus)

	_, err = cancelled.Plan(EventSweepTimeout, TransitionParams{Cutoff: at16}, at16)
	require.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestPlanCancelPaidOrderRequestsRefund(t *testing.T) {
	for _, ev := range []Event{EventReject, EventUserCancel, EventStaffCancel} {
		change, err := newOrder(StatusToBeConfirmed, PayStatusPaid).Plan(ev, TransitionParams{Reason: "out of stock"}, placed)
		require.NoError(t, err, ev)
		require.True(t, change.Refund, ev)
		require.Equal(t, PayStatusRefunded, *change.Update.PayStatus, ev)
		require.NotNil(t, change.Update.CancelTime, ev)
	}

	change, err := newOrder(StatusToBeConfirmed, PayStatusUnpaid).Plan(EventStaffCancel, TransitionParams{Reason: "closing"}, placed)
	require.NoError(t, err)
	require.False(t, change.Refund)
	require.Nil(t, change.Update.PayStatus)
}

func TestPlanRejectStoresReason(t *testing.T) {
	change, err := newOrder(StatusToBeConfirmed, PayStatusPaid).Plan(EventReject, TransitionParams{Reason: " out of stock "}, placed)
	require.NoError(t, err)

	o := newOrder(StatusToBeConfirmed, PayStatusPaid).Apply(change.Update)
	require.Equal(t, "out of stock", o.RejectionReason)
	require.Equal(t, "out of stock", o.CancelReason)

	_, err = newOrder(StatusToBeConfirmed, PayStatusPaid).Plan(EventReject, TransitionParams{Reason: strings.Repeat("x", 256)}, placed)
	require.ErrorIs(t, err, ErrValidation)

	_, err = newOrder(StatusToBeConfirmed, PayStatusPaid).Plan(EventReject, TransitionParams{}, placed)
	require.ErrorIs(t, err, ErrValidation)
}

func TestPlanStatusGuardPrecedesReasonCheck(t *testing.T) {
	for _, ev := range []Event{EventReject, EventStaffCancel} {
		_, err := newOrder(StatusCompleted, PayStatusPaid).Plan(ev, TransitionParams{}, placed)
		require.ErrorIs(t, err, ErrInvalidStateTransition, ev)
		require.NotErrorIs(t, err, ErrValidation, ev)
	}

	_, err := newOrder(StatusConfirmed, PayStatusPaid).Plan(EventReject, TransitionParams{Reason: "  "}, placed)
	require.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestInvalidTransitionErrorCarriesStates(t *testing.T) {
	_, err := newOrder(StatusConfirmed, PayStatusPaid).Plan(EventReject, TransitionParams{Reason: "late"}, placed)

	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, StatusConfirmed, invalid.Current)
	require.Equal(t, StatusCancelled, invalid.Target)
	require.Equal(t, EventReject, invalid.Event)
	require.Contains(t, err.Error(), "CONFIRMED")
}

func TestPayable(t *testing.T) {
	require.NoError(t, newOrder(StatusPendingPayment, PayStatusUnpaid).Payable())
	require.ErrorIs(t, newOrder(StatusCancelled, PayStatusUnpaid).Payable(), ErrInvalidStateTransition)
	require.ErrorIs(t, newOrder(StatusPendingPayment, PayStatusPaid).Payable(), ErrInvalidStateTransition)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("to_be_confirmed")
	require.NoError(t, err)
	require.Equal(t, StatusToBeConfirmed, s)

	s, err = ParseStatus("6")
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, s)

	_, err = ParseStatus("shipped")
	require.ErrorIs(t, err, ErrValidation)
}

func TestNewNumberIsUniqueAndTimePrefixed(t *testing.T) {
	seen := make(map[string]struct{})
	for range 1000 {
		n := NewNumber(placed)
		require.True(t, strings.HasPrefix(n, "20261015120000"))
		require.Len(t, n, 26)
		_, dup := seen[n]
		require.False(t, dup)
		seen[n] = struct{}{}
	}
}

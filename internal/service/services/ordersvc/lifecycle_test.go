package ordersvc

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/corray333/backend-labs/takeout/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/takeout/internal/service/models/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const paymentTimeout = 15 * time.Minute

func TestHappyPath(t *testing.T) {
	f := newFixture(t)
	o := f.submit(t, 7)

	f.clock.Set(base.Add(time.Minute))
	o, err := f.svc.PaymentConfirmed(t.Context(), o.Number)
	require.NoError(t, err)
	require.Equal(t, order.StatusToBeConfirmed, o.Status)
	require.Equal(t, order.PayStatusPaid, o.PayStatus)
	require.NotNil(t, o.CheckoutTime)
	require.Equal(t, base.Add(time.Minute), *o.CheckoutTime)
	require.Equal(t, order.ActorPaymentGateway, o.UpdatedBy)

	o, err = f.svc.Confirm(t.Context(), 100, o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusConfirmed, o.Status)
	require.Equal(t, order.StaffActor(100), o.UpdatedBy)

	o, err = f.svc.Delivery(t.Context(), 100, o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusDeliveryInProgress, o.Status)
	require.Nil(t, o.DeliveryTime)

	f.clock.Set(base.Add(40 * time.Minute))
	o, err = f.svc.Complete(t.Context(), 100, o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusCompleted, o.Status)
	require.NotNil(t, o.DeliveryTime)
	require.Equal(t, base.Add(40*time.Minute), *o.DeliveryTime)
	require.Len(t, o.OrderItems, 2)
	require.EqualValues(t, 4, o.Version)

	require.Equal(t, []order.Event{
		auditlog.EventSubmitted,
		order.EventPaymentConfirmed,
		order.EventConfirm,
		order.EventDelivery,
		order.EventComplete,
	}, f.events(o.ID))
	require.Zero(t, f.gateway.RefundCalls())
}

func TestCompletedIsUnreachableWithoutDelivery(t *testing.T) {
	f := newFixture(t)
	o := f.paid(t, 7)

	_, err := f.svc.Complete(t.Context(), 100, o.ID)
	require.ErrorIs(t, err, order.ErrInvalidStateTransition)

	_, err = f.svc.Delivery(t.Context(), 100, o.ID)
	require.ErrorIs(t, err, order.ErrInvalidStateTransition)

	require.Equal(t, order.StatusToBeConfirmed, f.store.order(o.ID).Status)
}

func TestPaymentConfirmedTwice(t *testing.T) {
	f := newFixture(t)
	o := f.paid(t, 7)

	_, err := f.svc.PaymentConfirmed(t.Context(), o.Number)
	var invalid *order.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, order.StatusToBeConfirmed, invalid.Current)

	_, err = f.svc.PaymentConfirmed(t.Context(), "unknown")
	require.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestSweepPaymentTimeout(t *testing.T) {
	f := newFixture(t)
	o := f.submit(t, 7)

	now := base.Add(14 * time.Minute)
	f.clock.Set(now)
	_, err := f.svc.SweepPaymentTimeout(t.Context(), o.ID, now.Add(-paymentTimeout))
	require.ErrorIs(t, err, order.ErrInvalidStateTransition)
	require.Equal(t, order.StatusPendingPayment, f.store.order(o.ID).Status)

	now = base.Add(16 * time.Minute)
	f.clock.Set(now)
	cancelled, err := f.svc.SweepPaymentTimeout(t.Context(), o.ID, now.Add(-paymentTimeout))
	require.NoError(t, err)
	require.Equal(t, order.StatusCancelled, cancelled.Status)
	require.Equal(t, order.ReasonPaymentTimeout, cancelled.CancelReason)
	require.Equal(t, now, *cancelled.CancelTime)
	require.Equal(t, order.ActorSweeper, cancelled.UpdatedBy)
	require.Equal(t, order.PayStatusUnpaid, cancelled.PayStatus)

	_, err = f.svc.SweepPaymentTimeout(t.Context(), o.ID, now.Add(-paymentTimeout))
	require.ErrorIs(t, err, order.ErrInvalidStateTransition)

	require.Equal(t, []order.Event{auditlog.EventSubmitted, order.EventSweepTimeout}, f.events(o.ID))
	require.Zero(t, f.gateway.RefundCalls())
}

func TestSweepStaleDelivery(t *testing.T) {
	f := newFixture(t)
	o := f.paid(t, 7)
	_, err := f.svc.Confirm(t.Context(), 100, o.ID)
	require.NoError(t, err)
	_, err = f.svc.Delivery(t.Context(), 100, o.ID)
	require.NoError(t, err)

	now := base.Add(2 * time.Hour)
	f.clock.Set(now)
	done, err := f.svc.SweepStaleDelivery(t.Context(), o.ID, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, order.StatusCompleted, done.Status)
	require.Equal(t, now, *done.DeliveryTime)

	_, err = f.svc.SweepStaleDelivery(t.Context(), o.ID, now.Add(-time.Hour))
	require.ErrorIs(t, err, order.ErrInvalidStateTransition)
}

func TestRejectOnlyFromToBeConfirmed(t *testing.T) {
	f := newFixture(t)
	o := f.paid(t, 7)
	_, err := f.svc.Confirm(t.Context(), 100, o.ID)
	require.NoError(t, err)

	_, err = f.svc.Reject(t.Context(), 100, o.ID, "out of stock")
	var invalid *order.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, order.StatusConfirmed, invalid.Current)
	require.Equal(t, order.StatusCancelled, invalid.Target)
	require.Zero(t, f.gateway.RefundCalls())
}

func TestRejectPaidOrderRefunds(t *testing.T) {
	f := newFixture(t)
	o := f.paid(t, 7)

	rejected, err := f.svc.Reject(t.Context(), 100, o.ID, "out of stock")
	require.NoError(t, err)
	require.Equal(t, order.StatusCancelled, rejected.Status)
	require.Equal(t, order.PayStatusRefunded, rejected.PayStatus)
	require.Equal(t, "out of stock", rejected.RejectionReason)
	require.Equal(t, "out of stock", rejected.CancelReason)
	require.NotNil(t, rejected.CancelTime)

	require.Equal(t, 1, f.gateway.RefundCalls())
	rec, ok := f.gateway.Refunded(o.Number)
	require.True(t, ok)
	require.True(t, rec.Amount.Equal(decimal.RequireFromString("20.00")))
}

func TestRejectRequiresReason(t *testing.T) {
	f := newFixture(t)
	o := f.paid(t, 7)

	_, err := f.svc.Reject(t.Context(), 100, o.ID, "  ")
	require.ErrorIs(t, err, order.ErrValidation)
	_, err = f.svc.StaffCancel(t.Context(), 100, o.ID, "")
	require.ErrorIs(t, err, order.ErrValidation)
	require.Equal(t, order.StatusToBeConfirmed, f.store.order(o.ID).Status)
}

func TestUserCancel(t *testing.T) {
	f := newFixture(t)

	unpaid := f.submit(t, 7)
	cancelled, err := f.svc.UserCancel(t.Context(), 7, unpaid.ID)
	require.NoError(t, err)
	require.Equal(t, order.ReasonUserCancelled, cancelled.CancelReason)
	require.Equal(t, order.PayStatusUnpaid, cancelled.PayStatus)
	require.Zero(t, f.gateway.RefundCalls())

	paid := f.paid(t, 7)
	_, err = f.svc.UserCancel(t.Context(), 8, paid.ID)
	require.ErrorIs(t, err, order.ErrOrderNotFound)

	cancelled, err = f.svc.UserCancel(t.Context(), 7, paid.ID)
	require.NoError(t, err)
	require.Equal(t, order.PayStatusRefunded, cancelled.PayStatus)
	require.Equal(t, 1, f.gateway.RefundCalls())
	require.Equal(t, order.UserActor(7), cancelled.UpdatedBy)
}

func TestUserCannotCancelDuringDelivery(t *testing.T) {
	f := newFixture(t)
	o := f.paid(t, 7)
	_, err := f.svc.Confirm(t.Context(), 100, o.ID)
	require.NoError(t, err)
	_, err = f.svc.Delivery(t.Context(), 100, o.ID)
	require.NoError(t, err)

	_, err = f.svc.UserCancel(t.Context(), 7, o.ID)
	require.ErrorIs(t, err, order.ErrInvalidStateTransition)

	cancelled, err := f.svc.StaffCancel(t.Context(), 100, o.ID, "courier accident")
	require.NoError(t, err)
	require.Equal(t, order.PayStatusRefunded, cancelled.PayStatus)

	_, err = f.svc.StaffCancel(t.Context(), 100, o.ID, "again")
	require.ErrorIs(t, err, order.ErrInvalidStateTransition)
	require.Equal(t, 1, f.gateway.RefundCalls())
}

func TestRefundFailureLeavesOrderUntouched(t *testing.T) {
	f := newFixture(t)
	o := f.paid(t, 7)
	f.gateway.FailRefunds(errors.New("gateway unavailable"))

	_, err := f.svc.Reject(t.Context(), 100, o.ID, "out of stock")
	var gwErr *order.PaymentGatewayError
	require.ErrorAs(t, err, &gwErr)
	require.ErrorIs(t, err, order.ErrPaymentGateway)
	require.Equal(t, o.Number, gwErr.OrderNumber)

	stored := f.store.order(o.ID)
	require.Equal(t, order.StatusToBeConfirmed, stored.Status)
	require.Equal(t, order.PayStatusPaid, stored.PayStatus)
	require.Empty(t, stored.RejectionReason)

	f.gateway.FailRefunds(nil)
	rejected, err := f.svc.Reject(t.Context(), 100, o.ID, "out of stock")
	require.NoError(t, err)
	require.Equal(t, order.PayStatusRefunded, rejected.PayStatus)
}

func TestCommitFailureAfterRefundIsReconciledOnRetry(t *testing.T) {
	f := newFixture(t)
	o := f.paid(t, 7)
	f.store.setFailCommits(1)

	_, err := f.svc.StaffCancel(t.Context(), 100, o.ID, "closing early")
	require.ErrorIs(t, err, errCommitFailed)
	require.Equal(t, order.PayStatusPaid, f.store.order(o.ID).PayStatus)

	cancelled, err := f.svc.StaffCancel(t.Context(), 100, o.ID, "closing early")
	require.NoError(t, err)
	require.Equal(t, order.PayStatusRefunded, cancelled.PayStatus)

	require.Equal(t, 2, f.gateway.RefundCalls())
	_, ok := f.gateway.Refunded(o.Number)
	require.True(t, ok)
}

func TestStorageConflictIsRetriedOnce(t *testing.T) {
	f := newFixture(t)
	o := f.paid(t, 7)

	f.store.setConflicts(1)
	confirmed, err := f.svc.Confirm(t.Context(), 100, o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusConfirmed, confirmed.Status)

	f.store.setConflicts(2)
	_, err = f.svc.Delivery(t.Context(), 100, o.ID)
	require.ErrorIs(t, err, order.ErrStorageConflict)
	require.Equal(t, order.StatusConfirmed, f.store.order(o.ID).Status)
}

func TestConcurrentUserCancelAndSweep(t *testing.T) {
	f := newFixture(t)
	now := base.Add(20 * time.Minute)

	for range 20 {
		f.clock.Set(base)
		o := f.submit(t, 7)
		f.clock.Set(now)

		var (
			wg   sync.WaitGroup
			errs [2]error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = f.svc.UserCancel(t.Context(), 7, o.ID)
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = f.svc.SweepPaymentTimeout(t.Context(), o.ID, now.Add(-paymentTimeout))
		}()
		wg.Wait()

		applied := 0
		for _, err := range errs {
			if err == nil {
				applied++
			} else {
				require.ErrorIs(t, err, order.ErrInvalidStateTransition)
			}
		}
		require.Equal(t, 1, applied)
		require.Equal(t, order.StatusCancelled, f.store.order(o.ID).Status)
		require.Len(t, f.events(o.ID), 2)
	}
	require.Zero(t, f.gateway.RefundCalls())
}

func TestConcurrentCancellationsRefundOnce(t *testing.T) {
	f := newFixture(t)

	for i := range 20 {
		o := f.paid(t, 7)

		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, _ = f.svc.UserCancel(t.Context(), 7, o.ID)
		}()
		go func() {
			defer wg.Done()
			_, _ = f.svc.StaffCancel(t.Context(), 100, o.ID, "kitchen closed")
		}()
		go func() {
			defer wg.Done()
			_, _ = f.svc.Reject(t.Context(), 100, o.ID, "out of stock")
		}()
		wg.Wait()

		stored := f.store.order(o.ID)
		require.Equal(t, order.StatusCancelled, stored.Status)
		require.Equal(t, order.PayStatusRefunded, stored.PayStatus)
		require.Equal(t, i+1, f.gateway.RefundCalls())
	}
}

func TestPaymentAfterSweepCancelIsRefunded(t *testing.T) {
	f := newFixture(t)
	o := f.submit(t, 7)

	now := base.Add(16 * time.Minute)
	f.clock.Set(now)
	_, err := f.svc.SweepPaymentTimeout(t.Context(), o.ID, now.Add(-paymentTimeout))
	require.NoError(t, err)
	require.Zero(t, f.gateway.RefundCalls())

	_, err = f.svc.PaymentConfirmed(t.Context(), o.Number)
	var invalid *order.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, order.StatusCancelled, invalid.Current)

	require.Equal(t, 1, f.gateway.RefundCalls())
	rec, ok := f.gateway.Refunded(o.Number)
	require.True(t, ok)
	require.True(t, rec.Amount.Equal(o.Amount))

	// A redelivered notification hits the same idempotent refund.
	_, err = f.svc.PaymentConfirmed(t.Context(), o.Number)
	require.ErrorIs(t, err, order.ErrInvalidStateTransition)
	require.Equal(t, 2, f.gateway.RefundCalls())

	stored := f.store.order(o.ID)
	require.Equal(t, order.StatusCancelled, stored.Status)
	require.Equal(t, order.PayStatusUnpaid, stored.PayStatus)
}

func TestLatePaymentRefundFailureIsReported(t *testing.T) {
	f := newFixture(t)
	o := f.submit(t, 7)
	_, err := f.svc.UserCancel(t.Context(), 7, o.ID)
	require.NoError(t, err)

	f.gateway.FailRefunds(errors.New("gateway unavailable"))
	_, err = f.svc.PaymentConfirmed(t.Context(), o.Number)
	require.ErrorIs(t, err, order.ErrPaymentGateway)
	require.NotErrorIs(t, err, order.ErrInvalidStateTransition)

	f.gateway.FailRefunds(nil)
	_, err = f.svc.PaymentConfirmed(t.Context(), o.Number)
	require.ErrorIs(t, err, order.ErrInvalidStateTransition)
	_, ok := f.gateway.Refunded(o.Number)
	require.True(t, ok)
}

func TestPaymentForRefundedOrderIsNotRefundedAgain(t *testing.T) {
	f := newFixture(t)
	o := f.paid(t, 7)
	_, err := f.svc.Reject(t.Context(), 100, o.ID, "out of stock")
	require.NoError(t, err)
	require.Equal(t, 1, f.gateway.RefundCalls())

	_, err = f.svc.PaymentConfirmed(t.Context(), o.Number)
	require.ErrorIs(t, err, order.ErrInvalidStateTransition)
	require.Equal(t, 1, f.gateway.RefundCalls())
}

package services

import (
	"context"
	"testing"
	"time"

	"campus-events/config"
	"campus-events/internal/services/checkout/devpay"
	"campus-events/internal/status"
	"campus-events/models"

	"github.com/go-redis/redismock/v9"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBookingService(t *testing.T) (*BookingService, redismock.ClientMock, *devpay.Gateway) {
	t.Helper()

	db, mock := redismock.NewClientMock()
	gateway := devpay.New(&devpay.Config{Secret: "test-secret"})

	cfg := &config.Config{
		EventsCollection:   "events",
		BookingsCollection: "bookings",
		PaymentsCollection: "payments",
		CheckoutTimeout:    15 * time.Minute,
		Checkout: config.CheckoutConfig{
			Currency:    "INR",
			DisplayName: "Campus Events",
		},
	}

	return NewBookingService(nil, db, nil, gateway, cfg), mock, gateway
}

func TestInitiateCheckout_ValidatesHolder(t *testing.T) {
	svc, _, _ := newTestBookingService(t)
	ctx := context.Background()

	_, err := svc.InitiateCheckout(ctx, "user-1", "acct@college.edu", "event-1", "   ", "priya@college.edu")
	assert.ErrorIs(t, err, status.ErrEmptyHolderName)

	_, err = svc.InitiateCheckout(ctx, "user-1", "acct@college.edu", "event-1", "Priya", "not-an-email")
	assert.ErrorIs(t, err, status.ErrInvalidEmail)

	// Empty holder email falls back to the account email, so a broken
	// account email is caught too.
	_, err = svc.InitiateCheckout(ctx, "user-1", "broken", "event-1", "Priya", "")
	assert.ErrorIs(t, err, status.ErrInvalidEmail)
}

func TestConfirmPayment_ExpiredCheckout(t *testing.T) {
	svc, mock, _ := newTestBookingService(t)
	ctx := context.Background()

	mock.ExpectHGetAll("checkout:order_dev_1").SetVal(map[string]string{})

	_, err := svc.ConfirmPayment(ctx, models.SuccessCallback{
		OrderID:    "order_dev_1",
		PaymentRef: "pay_123",
		Signature:  "anything",
	})
	assert.ErrorIs(t, err, status.ErrCheckoutExpired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPayment_BadSignature(t *testing.T) {
	svc, mock, _ := newTestBookingService(t)
	ctx := context.Background()

	mock.ExpectHGetAll("checkout:order_dev_1").SetVal(map[string]string{
		"event_id":     "event-1",
		"user_id":      "user-1",
		"holder_name":  "Priya",
		"holder_email": "priya@college.edu",
		"amount":       "50000",
		"currency":     "INR",
	})

	_, err := svc.ConfirmPayment(ctx, models.SuccessCallback{
		OrderID:    "order_dev_1",
		PaymentRef: "pay_123",
		Signature:  "forged",
	})
	assert.ErrorIs(t, err, status.ErrBadSignature)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPayment_DuplicateReference(t *testing.T) {
	svc, mock, gateway := newTestBookingService(t)
	ctx := context.Background()

	mock.ExpectHGetAll("checkout:order_dev_1").SetVal(map[string]string{
		"event_id":     "event-1",
		"user_id":      "user-1",
		"holder_name":  "Priya",
		"holder_email": "priya@college.edu",
		"amount":       "50000",
		"currency":     "INR",
	})
	mock.ExpectSetNX("processed:payment:pay_123", "order_dev_1", 24*time.Hour).SetVal(false)

	sig := gateway.Sign("order_dev_1", "pay_123")
	_, err := svc.ConfirmPayment(ctx, models.SuccessCallback{
		OrderID:    "order_dev_1",
		PaymentRef: "pay_123",
		Signature:  sig,
	})
	assert.ErrorIs(t, err, status.ErrDuplicatePayment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// newConfirmTestApp spins up a PocketBase test app with the events and
// bookings collections plus a sample active event. The payments
// collection is created only when withPayments is set, so a test can
// force the middle write of the confirmation transaction to fail.
func newConfirmTestApp(t *testing.T, withPayments bool) (*tests.TestApp, *core.Record) {
	t.Helper()

	app, err := tests.NewTestApp(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(app.Cleanup)

	events := core.NewBaseCollection("events")
	events.Fields.Add(
		&core.TextField{Name: "title"},
		&core.NumberField{Name: "price"},
		&core.TextField{Name: "status"},
		&core.JSONField{Name: "attendees"},
	)
	require.NoError(t, app.Save(events))

	bookings := core.NewBaseCollection("bookings")
	bookings.Fields.Add(
		&core.TextField{Name: "event"},
		&core.TextField{Name: "user"},
		&core.TextField{Name: "payment_ref"},
		&core.TextField{Name: "holder_name"},
		&core.TextField{Name: "holder_email"},
		&core.TextField{Name: "amount"},
		&core.TextField{Name: "status"},
	)
	require.NoError(t, app.Save(bookings))

	if withPayments {
		payments := core.NewBaseCollection("payments")
		payments.Fields.Add(
			&core.TextField{Name: "event"},
			&core.TextField{Name: "user"},
			&core.TextField{Name: "payment_ref"},
			&core.TextField{Name: "amount"},
			&core.TextField{Name: "currency"},
			&core.TextField{Name: "method"},
			&core.TextField{Name: "status"},
		)
		require.NoError(t, app.Save(payments))
	}

	event := core.NewRecord(events)
	event.Set("title", "Tech Fest")
	event.Set("price", 500.0)
	event.Set("status", "active")
	event.Set("attendees", []string{"existing-user"})
	require.NoError(t, app.Save(event))

	return app, event
}

func pendingCheckoutState(eventID string) map[string]string {
	return map[string]string{
		"event_id":     eventID,
		"user_id":      "user-1",
		"holder_name":  "A. Sharma",
		"holder_email": "a@x.com",
		"amount":       "50000",
		"currency":     "INR",
	}
}

func TestConfirmPayment_Success(t *testing.T) {
	app, event := newConfirmTestApp(t, true)

	db, mock := redismock.NewClientMock()
	gateway := devpay.New(&devpay.Config{Secret: "test-secret"})
	svc := NewBookingService(app, db, nil, gateway, &config.Config{
		EventsCollection:   "events",
		BookingsCollection: "bookings",
		PaymentsCollection: "payments",
	})

	mock.ExpectHGetAll("checkout:order_dev_1").SetVal(pendingCheckoutState(event.Id))
	mock.ExpectSetNX("processed:payment:pay_123", "order_dev_1", 24*time.Hour).SetVal(true)
	mock.ExpectDel("checkout:order_dev_1").SetVal(1)

	confirmation, err := svc.ConfirmPayment(context.Background(), models.SuccessCallback{
		OrderID:    "order_dev_1",
		PaymentRef: "pay_123",
		Signature:  gateway.Sign("order_dev_1", "pay_123"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Booking successful!", confirmation.Message)
	assert.Equal(t, "pay_123", confirmation.PaymentRef)
	assert.NotEmpty(t, confirmation.BookingID)

	// Exactly one booking and one payment carry the payment reference.
	bookingRecords, err := app.FindRecordsByFilter(
		"bookings", "payment_ref = {:ref}", "", -1, 0,
		map[string]any{"ref": "pay_123"},
	)
	require.NoError(t, err)
	require.Len(t, bookingRecords, 1)

	booking := models.BookingFromRecord(bookingRecords[0])
	assert.Equal(t, confirmation.BookingID, booking.ID)
	assert.Equal(t, event.Id, booking.EventID)
	assert.Equal(t, "user-1", booking.UserID)
	assert.Equal(t, "A. Sharma", booking.HolderName)
	assert.Equal(t, "a@x.com", booking.HolderEmail)
	assert.Equal(t, "500", booking.Amount)
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)

	paymentRecords, err := app.FindRecordsByFilter(
		"payments", "payment_ref = {:ref}", "", -1, 0,
		map[string]any{"ref": "pay_123"},
	)
	require.NoError(t, err)
	require.Len(t, paymentRecords, 1)
	assert.Equal(t, "500", paymentRecords[0].GetString("amount"))
	assert.Equal(t, "INR", paymentRecords[0].GetString("currency"))
	assert.Equal(t, "devpay", paymentRecords[0].GetString("method"))
	assert.Equal(t, models.PaymentStatusCompleted, paymentRecords[0].GetString("status"))

	// The attendee list gained exactly the booking user.
	reloaded, err := app.FindRecordById("events", event.Id)
	require.NoError(t, err)
	assert.Equal(t, []string{"existing-user", "user-1"}, models.AttendeesFromRecord(reloaded))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPayment_WriteFailureRollsBack(t *testing.T) {
	// No payments collection: the second write of the transaction fails
	// after the booking was already saved.
	app, event := newConfirmTestApp(t, false)

	db, mock := redismock.NewClientMock()
	gateway := devpay.New(&devpay.Config{Secret: "test-secret"})
	svc := NewBookingService(app, db, nil, gateway, &config.Config{
		EventsCollection:   "events",
		BookingsCollection: "bookings",
		PaymentsCollection: "payments",
	})

	mock.ExpectHGetAll("checkout:order_dev_1").SetVal(pendingCheckoutState(event.Id))
	mock.ExpectSetNX("processed:payment:pay_123", "order_dev_1", 24*time.Hour).SetVal(true)
	// The idempotency key is released so the callback can be replayed.
	mock.ExpectDel("processed:payment:pay_123").SetVal(1)

	_, err := svc.ConfirmPayment(context.Background(), models.SuccessCallback{
		OrderID:    "order_dev_1",
		PaymentRef: "pay_123",
		Signature:  gateway.Sign("order_dev_1", "pay_123"),
	})
	require.Error(t, err)

	// All-or-nothing: the already-written booking was rolled back and
	// the attendee list kept its pre-booking value.
	bookingRecords, err := app.FindRecordsByFilter(
		"bookings", "payment_ref = {:ref}", "", -1, 0,
		map[string]any{"ref": "pay_123"},
	)
	require.NoError(t, err)
	assert.Empty(t, bookingRecords)

	reloaded, err := app.FindRecordById("events", event.Id)
	require.NoError(t, err)
	assert.Equal(t, []string{"existing-user"}, models.AttendeesFromRecord(reloaded))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordFailure_NothingPersisted(t *testing.T) {
	svc, mock, _ := newTestBookingService(t)
	ctx := context.Background()

	// No PubNub configured: the failure is only logged and counted. No
	// Redis expectations are registered, so any access would fail the
	// expectation check below.
	svc.RecordFailure(ctx, "order_dev_1", models.CheckoutError{
		Code:        "BAD_REQUEST_ERROR",
		Description: "Payment failed",
		Step:        "payment_authorization",
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"campus-events/config"
	"campus-events/internal/services/checkout"
	"campus-events/internal/status"
	"campus-events/models"
	"campus-events/monitoring"
	"campus-events/utils"

	"github.com/pocketbase/pocketbase/core"
	pubnub "github.com/pubnub/go"
	"github.com/redis/go-redis/v9"
)

// BookingService drives the booking-and-payment workflow: it opens
// checkout orders against the gateway and, on the widget's success
// callback, records the booking, the payment and the attendee-list
// update as one transaction.
type BookingService struct {
	app     core.App
	Redis   *redis.Client
	PubNub  *pubnub.PubNub
	gateway checkout.Gateway
	breaker *utils.CircuitBreaker
	cfg     *config.Config
}

func NewBookingService(app core.App, redisClient *redis.Client, pn *pubnub.PubNub, gateway checkout.Gateway, cfg *config.Config) *BookingService {
	return &BookingService{
		app:     app,
		Redis:   redisClient,
		PubNub:  pn,
		gateway: gateway,
		breaker: utils.NewCircuitBreaker(string(gateway.Provider())),
		cfg:     cfg,
	}
}

// WidgetConfig is everything the client page needs to open the hosted
// checkout widget. Amount is the minor-unit value as a string.
type WidgetConfig struct {
	Key         string            `json:"key"`
	Amount      string            `json:"amount"`
	Currency    string            `json:"currency"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Prefill     checkout.Prefill  `json:"prefill"`
	Notes       map[string]string `json:"notes"`
	Theme       string            `json:"theme,omitempty"`
}

type CheckoutSession struct {
	OrderID string       `json:"order_id"`
	Widget  WidgetConfig `json:"widget"`
}

type BookingConfirmation struct {
	Message    string `json:"message"`
	BookingID  string `json:"booking_id"`
	PaymentRef string `json:"payment_id"`
}

// InitiateCheckout validates the booking form and opens a gateway
// order for price x 100 minor units. Pending checkout state is parked
// in Redis until the widget calls back.
func (s *BookingService) InitiateCheckout(ctx context.Context, userID, accountEmail, eventID, holderName, holderEmail string) (*CheckoutSession, error) {
	if holderEmail == "" {
		holderEmail = accountEmail
	}

	holderName, holderEmail, err := models.ValidateTicketHolder(holderName, holderEmail)
	if err != nil {
		return nil, err
	}

	record, err := s.app.FindRecordById(s.cfg.EventsCollection, eventID)
	if err != nil {
		return nil, status.ErrEventNotFound
	}

	event, err := models.EventFromRecord(record)
	if err != nil {
		slog.Error("rejecting malformed event record", "event_id", eventID, "error", err)
		return nil, status.ErrEventNotFound
	}

	if event.Status != "active" {
		return nil, status.ErrEventInactive
	}

	// One booking per (event, user). The unique index on the bookings
	// collection is the backstop; checking here gives a clean error
	// before any money moves.
	existing, err := s.app.FindRecordsByFilter(
		s.cfg.BookingsCollection,
		"event = {:eventId} && user = {:userId}",
		"", 1, 0,
		map[string]any{"eventId": event.ID, "userId": userID},
	)
	if err == nil && len(existing) > 0 {
		return nil, status.ErrDuplicateBooking
	}

	receipt, err := utils.GenerateCode(6)
	if err != nil {
		return nil, err
	}

	orderReq := &checkout.OrderRequest{
		Amount:      checkout.MinorUnits(event.Price),
		Currency:    s.cfg.Checkout.Currency,
		Receipt:     receipt,
		Name:        s.cfg.Checkout.DisplayName,
		Description: fmt.Sprintf("Ticket for %s", event.Title),
		Prefill:     checkout.Prefill{Name: holderName, Email: holderEmail},
		Notes: map[string]string{
			"userId":  userID,
			"eventId": event.ID,
		},
		Theme: s.cfg.Checkout.ThemeColor,
	}

	var order *checkout.Order
	start := time.Now()
	err = s.breaker.Do(ctx, func(ctx context.Context) error {
		var cerr error
		order, cerr = s.gateway.CreateOrder(ctx, orderReq)
		return cerr
	})
	monitoring.ObserveCheckoutOrderDuration(string(s.gateway.Provider()), time.Since(start).Seconds())
	if err != nil {
		monitoring.TrackCheckoutOrder(string(s.gateway.Provider()), "failed")
		slog.Error("checkout order creation failed", "event_id", event.ID, "user_id", userID, "error", err)
		return nil, err
	}
	monitoring.TrackCheckoutOrder(string(s.gateway.Provider()), "created")

	checkoutKey := fmt.Sprintf("checkout:%s", order.ID)
	s.Redis.HSet(ctx, checkoutKey, map[string]any{
		"event_id":     event.ID,
		"user_id":      userID,
		"holder_name":  holderName,
		"holder_email": holderEmail,
		"amount":       order.Amount,
		"currency":     order.Currency,
		"created_at":   time.Now().Unix(),
	})
	s.Redis.Expire(ctx, checkoutKey, s.cfg.CheckoutTimeout)

	return &CheckoutSession{
		OrderID: order.ID,
		Widget: WidgetConfig{
			Key:         order.KeyID,
			Amount:      strconv.FormatInt(order.Amount, 10),
			Currency:    order.Currency,
			Name:        orderReq.Name,
			Description: orderReq.Description,
			Prefill:     orderReq.Prefill,
			Notes:       orderReq.Notes,
			Theme:       orderReq.Theme,
		},
	}, nil
}

// ConfirmPayment handles the widget success callback. The payment
// reference is the only signal that money moved; after verifying the
// signature the booking record, the payment record and the attendee
// append are written inside one store transaction, so a failure on
// any of the three leaves the attendee list at its pre-booking value.
func (s *BookingService) ConfirmPayment(ctx context.Context, cb models.SuccessCallback) (*BookingConfirmation, error) {
	checkoutKey := fmt.Sprintf("checkout:%s", cb.OrderID)
	pending, err := s.Redis.HGetAll(ctx, checkoutKey).Result()
	if err != nil || len(pending) == 0 {
		monitoring.TrackPaymentCallback("expired")
		return nil, status.ErrCheckoutExpired
	}

	if !s.gateway.VerifySignature(cb.OrderID, cb.PaymentRef, cb.Signature) {
		monitoring.TrackPaymentCallback("rejected_signature")
		slog.Warn("payment callback with bad signature", "order_id", cb.OrderID, "payment_ref", cb.PaymentRef)
		return nil, status.ErrBadSignature
	}

	// Duplicate callbacks for the same payment reference must not
	// create a second booking/payment pair.
	processedKey := fmt.Sprintf("processed:payment:%s", cb.PaymentRef)
	ok, err := s.Redis.SetNX(ctx, processedKey, cb.OrderID, 24*time.Hour).Result()
	if err != nil {
		return nil, fmt.Errorf("idempotency check: %w", err)
	}
	if !ok {
		monitoring.TrackPaymentCallback("duplicate")
		return nil, status.ErrDuplicatePayment
	}

	amountMinor, _ := strconv.ParseInt(pending["amount"], 10, 64)
	amount := checkout.MajorUnits(amountMinor, pending["currency"])

	var bookingID string
	txErr := s.app.RunInTransaction(func(txApp core.App) error {
		bookingsCol, err := txApp.FindCollectionByNameOrId(s.cfg.BookingsCollection)
		if err != nil {
			return err
		}
		booking := core.NewRecord(bookingsCol)
		booking.Set("event", pending["event_id"])
		booking.Set("user", pending["user_id"])
		booking.Set("payment_ref", cb.PaymentRef)
		booking.Set("holder_name", pending["holder_name"])
		booking.Set("holder_email", pending["holder_email"])
		booking.Set("amount", amount)
		booking.Set("status", models.BookingStatusConfirmed)
		if err := txApp.Save(booking); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		bookingID = booking.Id

		paymentsCol, err := txApp.FindCollectionByNameOrId(s.cfg.PaymentsCollection)
		if err != nil {
			return err
		}
		payment := core.NewRecord(paymentsCol)
		payment.Set("user", pending["user_id"])
		payment.Set("event", pending["event_id"])
		payment.Set("payment_ref", cb.PaymentRef)
		payment.Set("amount", amount)
		payment.Set("currency", pending["currency"])
		payment.Set("method", string(s.gateway.Provider()))
		payment.Set("status", models.PaymentStatusCompleted)
		if err := txApp.Save(payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		// Re-read inside the transaction and append with set
		// semantics, so concurrent bookings cannot drop each
		// other's entries.
		eventRecord, err := txApp.FindRecordById(s.cfg.EventsCollection, pending["event_id"])
		if err != nil {
			return fmt.Errorf("reload event: %w", err)
		}
		attendees, _ := models.AppendAttendee(models.AttendeesFromRecord(eventRecord), pending["user_id"])
		eventRecord.Set("attendees", attendees)
		if err := txApp.Save(eventRecord); err != nil {
			return fmt.Errorf("update attendees: %w", err)
		}

		return nil
	})
	if txErr != nil {
		// Nothing was persisted; release the idempotency key so the
		// support team can replay the callback after fixing the cause.
		s.Redis.Del(ctx, processedKey)
		monitoring.TrackPaymentCallback("write_failed")
		slog.Error("post-payment record creation failed",
			"payment_ref", cb.PaymentRef,
			"order_id", cb.OrderID,
			"error", txErr,
		)
		return nil, txErr
	}

	s.Redis.Del(ctx, checkoutKey)
	monitoring.TrackPaymentCallback("confirmed")
	monitoring.TrackBooking(pending["event_id"])

	if s.PubNub != nil {
		channel := fmt.Sprintf("user-%s", pending["user_id"])
		s.PubNub.Publish().
			Channel(channel).
			Message(map[string]any{
				"type":       "booking_confirmed",
				"booking_id": bookingID,
				"payment_id": cb.PaymentRef,
				"event_id":   pending["event_id"],
			}).
			Execute()
	}

	return &BookingConfirmation{
		Message:    "Booking successful!",
		BookingID:  bookingID,
		PaymentRef: cb.PaymentRef,
	}, nil
}

// RecordFailure handles the widget failure callback. Per the checkout
// protocol nothing is persisted; the structured error is logged and
// counted, and the user is notified if the checkout is still known.
func (s *BookingService) RecordFailure(ctx context.Context, orderID string, cerr models.CheckoutError) {
	monitoring.TrackPaymentCallback("failed_widget")
	slog.Warn("payment failed in checkout widget",
		"order_id", orderID,
		"code", cerr.Code,
		"description", cerr.Description,
		"source", cerr.Source,
		"step", cerr.Step,
		"reason", cerr.Reason,
	)

	if s.PubNub == nil {
		return
	}
	pending, err := s.Redis.HGetAll(ctx, fmt.Sprintf("checkout:%s", orderID)).Result()
	if err != nil || len(pending) == 0 {
		return
	}
	s.PubNub.Publish().
		Channel(fmt.Sprintf("user-%s", pending["user_id"])).
		Message(map[string]any{
			"type":        "payment_failed",
			"order_id":    orderID,
			"code":        cerr.Code,
			"description": cerr.Description,
		}).
		Execute()
}

// Gateway exposes the configured checkout gateway, used by the dev
// payment simulator.
func (s *BookingService) Gateway() checkout.Gateway {
	return s.gateway
}

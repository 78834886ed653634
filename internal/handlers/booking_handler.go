package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"campus-events/config"
	"campus-events/internal/services"
	"campus-events/internal/services/checkout/devpay"
	"campus-events/internal/status"
	"campus-events/models"
	"campus-events/utils"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type BookingHandler struct {
	app            *pocketbase.PocketBase
	bookingService *services.BookingService
	cfg            *config.Config
}

func NewBookingHandler(app *pocketbase.PocketBase, bookingService *services.BookingService, cfg *config.Config) *BookingHandler {
	return &BookingHandler{
		app:            app,
		bookingService: bookingService,
		cfg:            cfg,
	}
}

// Checkout - Validate the booking form and open a checkout order
func (h *BookingHandler) Checkout(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		EventID     string `json:"event_id"`
		HolderName  string `json:"holder_name"`
		HolderEmail string `json:"holder_email"` // empty = use account email
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	session, err := h.bookingService.InitiateCheckout(
		e.Request.Context(),
		e.Auth.Id,
		e.Auth.Email(),
		req.EventID,
		req.HolderName,
		req.HolderEmail,
	)
	if err != nil {
		switch {
		case errors.Is(err, status.ErrEventNotFound):
			return apis.NewNotFoundError("Event not found", err)
		case errors.Is(err, status.ErrEventInactive),
			errors.Is(err, status.ErrEmptyHolderName),
			errors.Is(err, status.ErrInvalidEmail),
			errors.Is(err, status.ErrDuplicateBooking):
			return apis.NewBadRequestError(err.Error(), nil)
		case errors.Is(err, utils.ErrBreakerOpen):
			return apis.NewApiError(http.StatusServiceUnavailable, "Checkout temporarily unavailable", err)
		default:
			return apis.NewApiError(http.StatusBadGateway, "Failed to open checkout", err)
		}
	}

	return e.JSON(http.StatusOK, session)
}

// PaymentCallback - The widget success callback. On a write failure
// after payment, the response is the manual-support handoff carrying
// the payment reference and the error.
func (h *BookingHandler) PaymentCallback(e *core.RequestEvent) error {
	var cb models.SuccessCallback
	if err := e.BindBody(&cb); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if cb.OrderID == "" || cb.PaymentRef == "" {
		return apis.NewBadRequestError("order_id and payment_ref are required", nil)
	}

	confirmation, err := h.bookingService.ConfirmPayment(e.Request.Context(), cb)
	if err != nil {
		switch {
		case errors.Is(err, status.ErrCheckoutExpired):
			return apis.NewNotFoundError(err.Error(), nil)
		case errors.Is(err, status.ErrBadSignature):
			return apis.NewBadRequestError(err.Error(), nil)
		case errors.Is(err, status.ErrDuplicatePayment):
			return apis.NewApiError(http.StatusConflict, err.Error(), nil)
		default:
			// Money moved but no record exists. Hand the payment
			// reference to the user for manual support.
			return e.JSON(http.StatusInternalServerError, map[string]any{
				"message": fmt.Sprintf(
					"Payment completed but record creation failed. Please contact support with this ID: %s",
					cb.PaymentRef,
				),
				"payment_id":  cb.PaymentRef,
				"error":       err.Error(),
				"support_url": fmt.Sprintf("/api/v1/support?paymentId=%s", cb.PaymentRef),
			})
		}
	}

	return e.JSON(http.StatusOK, confirmation)
}

// PaymentFailed - The widget failure callback; nothing is persisted.
func (h *BookingHandler) PaymentFailed(e *core.RequestEvent) error {
	var req struct {
		OrderID string               `json:"order_id"`
		Error   models.CheckoutError `json:"error"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	h.bookingService.RecordFailure(e.Request.Context(), req.OrderID, req.Error)

	return e.JSON(http.StatusOK, map[string]any{
		"message": "Payment failure recorded",
	})
}

// BookingHistory - Get user's booking history
func (h *BookingHandler) BookingHistory(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	bookings, err := h.app.FindRecordsByFilter(
		h.cfg.BookingsCollection,
		"user = {:userId}",
		"-created",
		20,
		0,
		map[string]any{"userId": e.Auth.Id},
	)
	if err != nil {
		return apis.NewBadRequestError("Failed to get bookings", err)
	}

	result := []map[string]any{}
	for _, record := range bookings {
		booking := models.BookingFromRecord(record)

		eventTitle := "Unknown"
		eventDate := ""
		if event, err := h.app.FindRecordById(h.cfg.EventsCollection, booking.EventID); err == nil {
			eventTitle = event.GetString("title")
			eventDate = event.GetString("date")
		}

		result = append(result, map[string]any{
			"id":           booking.ID,
			"event_id":     booking.EventID,
			"event_title":  eventTitle,
			"event_date":   eventDate,
			"payment_id":   booking.PaymentRef,
			"holder_name":  booking.HolderName,
			"holder_email": booking.HolderEmail,
			"amount":       booking.Amount,
			"status":       booking.Status,
			"created":      booking.CreatedAt,
		})
	}

	return e.JSON(http.StatusOK, result)
}

// SimulatePayment - Simulate a widget success callback (development only)
func (h *BookingHandler) SimulatePayment(e *core.RequestEvent) error {
	var req struct {
		OrderID string `json:"order_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	dev, ok := h.bookingService.Gateway().(*devpay.Gateway)
	if !ok {
		return apis.NewBadRequestError("Payment simulation requires the devpay provider", nil)
	}

	code, err := utils.GenerateCode(6)
	if err != nil {
		return apis.NewBadRequestError("Failed to simulate payment", err)
	}
	paymentRef := fmt.Sprintf("pay_sim_%s", code)

	confirmation, err := h.bookingService.ConfirmPayment(e.Request.Context(), models.SuccessCallback{
		OrderID:    req.OrderID,
		PaymentRef: paymentRef,
		Signature:  dev.Sign(req.OrderID, paymentRef),
	})
	if err != nil {
		return apis.NewBadRequestError("Simulated payment failed", err)
	}

	return e.JSON(http.StatusOK, confirmation)
}

package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"campus-events/config"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type DashboardHandler struct {
	app *pocketbase.PocketBase
	cfg *config.Config
}

func NewDashboardHandler(app *pocketbase.PocketBase, cfg *config.Config) *DashboardHandler {
	return &DashboardHandler{app: app, cfg: cfg}
}

// Stats - Events booked / attended / organized for the current user
func (h *DashboardHandler) Stats(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	userID := e.Auth.Id

	booked, err := h.count(
		fmt.Sprintf("SELECT COUNT(*) AS c FROM %s WHERE user = {:user}", h.cfg.BookingsCollection),
		dbx.Params{"user": userID},
	)
	if err != nil {
		return apis.NewBadRequestError("Failed to load stats", err)
	}

	// Attended = booked events whose date has passed.
	now := time.Now().UTC().Format("2006-01-02 15:04:05.000Z")
	attended, err := h.count(
		fmt.Sprintf(
			"SELECT COUNT(*) AS c FROM %s b JOIN %s ev ON ev.id = b.event WHERE b.user = {:user} AND ev.date < {:now}",
			h.cfg.BookingsCollection, h.cfg.EventsCollection,
		),
		dbx.Params{"user": userID, "now": now},
	)
	if err != nil {
		return apis.NewBadRequestError("Failed to load stats", err)
	}

	organized, err := h.count(
		fmt.Sprintf("SELECT COUNT(*) AS c FROM %s WHERE organizer = {:user}", h.cfg.EventsCollection),
		dbx.Params{"user": userID},
	)
	if err != nil {
		return apis.NewBadRequestError("Failed to load stats", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"booked":    booked,
		"attended":  attended,
		"organized": organized,
	})
}

func (h *DashboardHandler) count(query string, params dbx.Params) (int, error) {
	var row struct {
		C int `db:"c"`
	}
	if err := h.app.DB().NewQuery(query).Bind(params).One(&row); err != nil {
		return 0, err
	}
	return row.C, nil
}

// Attendees - Booked attendees of an event (organizer only)
func (h *DashboardHandler) Attendees(e *core.RequestEvent) error {
	bookings, err := h.eventBookings(e)
	if err != nil {
		return err
	}

	result := make([]map[string]any, 0, len(bookings))
	for _, booking := range bookings {
		result = append(result, map[string]any{
			"name":         booking.GetString("holder_name"),
			"email":        booking.GetString("holder_email"),
			"booking_date": booking.GetDateTime("created"),
		})
	}

	return e.JSON(http.StatusOK, map[string]any{
		"attendees": result,
		"total":     len(result),
	})
}

// ExportAttendees - Attendee list as CSV
func (h *DashboardHandler) ExportAttendees(e *core.RequestEvent) error {
	bookings, err := h.eventBookings(e)
	if err != nil {
		return err
	}

	eventID := e.Request.PathValue("eventId")
	e.Response.Header().Set("Content-Type", "text/csv")
	e.Response.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=attendees-%s.csv", eventID))

	cw := csv.NewWriter(e.Response)
	if err := cw.Write([]string{"Name", "Email", "Booking Date"}); err != nil {
		return err
	}
	for _, booking := range bookings {
		row := []string{
			booking.GetString("holder_name"),
			booking.GetString("holder_email"),
			booking.GetDateTime("created").String(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Support - The manual-support handoff page. Echoes the payment
// reference and error passed along from a failed booking write.
func (h *DashboardHandler) Support(e *core.RequestEvent) error {
	paymentID := e.Request.URL.Query().Get("paymentId")
	errMsg := e.Request.URL.Query().Get("error")

	resp := map[string]any{
		"support_email": h.cfg.SupportEmail,
		"message":       fmt.Sprintf("Please contact our support team at %s with the details below.", h.cfg.SupportEmail),
	}
	if paymentID != "" {
		resp["payment_id"] = paymentID
	}
	if errMsg != "" {
		resp["error"] = errMsg
	}

	return e.JSON(http.StatusOK, resp)
}

func (h *DashboardHandler) eventBookings(e *core.RequestEvent) ([]*core.Record, error) {
	if e.Auth == nil {
		return nil, apis.NewUnauthorizedError("Unauthorized", nil)
	}

	eventID := e.Request.PathValue("eventId")
	event, err := h.app.FindRecordById(h.cfg.EventsCollection, eventID)
	if err != nil {
		return nil, apis.NewNotFoundError("Event not found", err)
	}
	if event.GetString("organizer") != e.Auth.Id {
		return nil, apis.NewForbiddenError("Only the organizer can view attendees", nil)
	}

	bookings, err := h.app.FindRecordsByFilter(
		h.cfg.BookingsCollection,
		"event = {:eventId}",
		"created",
		-1,
		0,
		map[string]any{"eventId": eventID},
	)
	if err != nil {
		return nil, apis.NewBadRequestError("Failed to load attendees", err)
	}

	return bookings, nil
}

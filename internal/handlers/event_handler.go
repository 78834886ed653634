package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"campus-events/config"
	"campus-events/models"
	"campus-events/utils"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/filesystem"
)

type EventHandler struct {
	app *pocketbase.PocketBase
	cfg *config.Config
}

func NewEventHandler(app *pocketbase.PocketBase, cfg *config.Config) *EventHandler {
	return &EventHandler{app: app, cfg: cfg}
}

// ListEvents - Browse events with equality filters
func (h *EventHandler) ListEvents(e *core.RequestEvent) error {
	filter := "status = {:status}"
	params := map[string]any{"status": "active"}

	if status := e.Request.URL.Query().Get("status"); status != "" {
		params["status"] = status
	}
	if category := e.Request.URL.Query().Get("category"); category != "" {
		filter += " && category = {:category}"
		params["category"] = category
	}
	if organizer := e.Request.URL.Query().Get("organizer"); organizer != "" {
		filter += " && organizer = {:organizer}"
		params["organizer"] = organizer
	}

	records, err := h.app.FindRecordsByFilter(
		h.cfg.EventsCollection,
		filter,
		"-date",
		100,
		0,
		params,
	)
	if err != nil {
		return apis.NewBadRequestError("Failed to list events", err)
	}

	result := make([]map[string]any, 0, len(records))
	for _, record := range records {
		event, err := models.EventFromRecord(record)
		if err != nil {
			slog.Warn("skipping malformed event record", "record_id", record.Id, "error", err)
			continue
		}
		result = append(result, h.eventResponse(event))
	}

	return e.JSON(http.StatusOK, map[string]any{
		"events": result,
		"total":  len(result),
	})
}

// GetEvent - Event detail
func (h *EventHandler) GetEvent(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")

	record, err := h.app.FindRecordById(h.cfg.EventsCollection, eventID)
	if err != nil {
		return apis.NewNotFoundError("Event not found", err)
	}

	event, err := models.EventFromRecord(record)
	if err != nil {
		return apis.NewNotFoundError("Event not found", err)
	}

	return e.JSON(http.StatusOK, h.eventResponse(event))
}

// CreateEvent - Organizer creates an event (multipart with template image)
func (h *EventHandler) CreateEvent(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	collection, err := h.app.FindCollectionByNameOrId(h.cfg.EventsCollection)
	if err != nil {
		return apis.NewBadRequestError("Events collection missing", err)
	}

	record := core.NewRecord(collection)
	if err := h.applyEventForm(e, record); err != nil {
		return err
	}
	record.Set("organizer", e.Auth.Id)

	template, err := h.templateFromRequest(e)
	if err != nil {
		return err
	}
	if template == nil {
		return apis.NewBadRequestError("Template image is required", nil)
	}
	record.Set("template", template)

	if err := h.app.Save(record); err != nil {
		return apis.NewBadRequestError("Failed to create event", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"id": record.Id})
}

// UpdateEvent - Organizer updates an event
func (h *EventHandler) UpdateEvent(e *core.RequestEvent) error {
	record, err := h.ownedEvent(e)
	if err != nil {
		return err
	}

	if err := h.applyEventForm(e, record); err != nil {
		return err
	}

	template, err := h.templateFromRequest(e)
	if err != nil {
		return err
	}
	if template != nil {
		record.Set("template", template)
	}

	if err := h.app.Save(record); err != nil {
		return apis.NewBadRequestError("Failed to update event", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"id": record.Id})
}

// DeleteEvent - Organizer deletes an event; the stored template file
// is removed together with the record.
func (h *EventHandler) DeleteEvent(e *core.RequestEvent) error {
	record, err := h.ownedEvent(e)
	if err != nil {
		return err
	}

	if err := h.app.Delete(record); err != nil {
		return apis.NewBadRequestError("Failed to delete event", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "Event deleted"})
}

func (h *EventHandler) ownedEvent(e *core.RequestEvent) (*core.Record, error) {
	if e.Auth == nil {
		return nil, apis.NewUnauthorizedError("Unauthorized", nil)
	}

	eventID := e.Request.PathValue("eventId")
	record, err := h.app.FindRecordById(h.cfg.EventsCollection, eventID)
	if err != nil {
		return nil, apis.NewNotFoundError("Event not found", err)
	}

	if record.GetString("organizer") != e.Auth.Id {
		return nil, apis.NewForbiddenError("Only the organizer can modify this event", nil)
	}

	return record, nil
}

func (h *EventHandler) applyEventForm(e *core.RequestEvent, record *core.Record) error {
	form := func(key string) string { return strings.TrimSpace(e.Request.FormValue(key)) }

	if v := form("title"); v != "" {
		record.Set("title", v)
	}
	if v := form("description"); v != "" {
		record.Set("description", v)
	}
	if v := form("price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil || price < 0 {
			return apis.NewBadRequestError("Price must be a non-negative number", err)
		}
		record.Set("price", price)
	}
	if v := form("date"); v != "" {
		record.Set("date", v)
	}
	if v := form("venue"); v != "" {
		record.Set("venue", v)
	}
	if v := form("category"); v != "" {
		record.Set("category", v)
	}
	if v := form("college_years"); v != "" {
		record.Set("college_years", strings.Join(models.SplitList(v), ", "))
	}
	if v := form("status"); v != "" {
		if v != "active" && v != "inactive" {
			return apis.NewBadRequestError("Status must be active or inactive", nil)
		}
		record.Set("status", v)
	}

	return nil
}

// templateFromRequest reads an optional multipart template image,
// downscales it and returns a storable file. Returns nil when the
// request carries no file.
func (h *EventHandler) templateFromRequest(e *core.RequestEvent) (*filesystem.File, error) {
	file, header, err := e.Request.FormFile("template")
	if err != nil {
		return nil, nil // no file uploaded
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apis.NewBadRequestError("Failed to read template image", err)
	}

	normalized, err := utils.NormalizeTemplateImage(data)
	if err != nil {
		return nil, apis.NewBadRequestError("Template must be a valid image", err)
	}

	f, err := filesystem.NewFileFromBytes(normalized, header.Filename)
	if err != nil {
		return nil, apis.NewBadRequestError("Failed to store template image", err)
	}

	return f, nil
}

func (h *EventHandler) eventResponse(event *models.Event) map[string]any {
	resp := map[string]any{
		"id":            event.ID,
		"title":         event.Title,
		"description":   event.Description,
		"price":         event.Price,
		"date":          event.Date,
		"venue":         event.Venue,
		"category":      event.Category,
		"college_years": event.CollegeYears,
		"status":        event.Status,
		"organizer":     event.Organizer,
		"attendees":     len(event.Attendees),
	}
	if event.Template != "" {
		resp["template_url"] = h.templateURL(event)
	}
	return resp
}

// templateURL derives the preview URL for the stored template file.
func (h *EventHandler) templateURL(event *models.Event) string {
	return fmt.Sprintf("/api/files/%s/%s/%s", h.cfg.EventsCollection, event.ID, event.Template)
}

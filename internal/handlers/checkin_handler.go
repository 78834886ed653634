package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"campus-events/config"
	"campus-events/internal/services"
	"campus-events/internal/status"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type CheckinHandler struct {
	app            *pocketbase.PocketBase
	checkinService *services.CheckinService
	cfg            *config.Config
}

func NewCheckinHandler(app *pocketbase.PocketBase, checkinService *services.CheckinService, cfg *config.Config) *CheckinHandler {
	return &CheckinHandler{
		app:            app,
		checkinService: checkinService,
		cfg:            cfg,
	}
}

// StartSession - Open a scan session for an event the caller organizes
func (h *CheckinHandler) StartSession(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		EventID string `json:"event_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	event, err := h.app.FindRecordById(h.cfg.EventsCollection, req.EventID)
	if err != nil {
		return apis.NewNotFoundError("Event not found", err)
	}
	if event.GetString("organizer") != e.Auth.Id {
		return apis.NewForbiddenError("Only the organizer can run check-in", nil)
	}

	sessionID, accessCode, err := h.checkinService.StartSession(event.Id)
	if err != nil {
		return apis.NewBadRequestError("Failed to start scan session", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"session_id":  sessionID,
		"access_code": accessCode,
	})
}

// Scan - Handle one decoded QR payload
func (h *CheckinHandler) Scan(e *core.RequestEvent) error {
	sessionID := e.Request.PathValue("sessionId")

	var req struct {
		AccessCode string `json:"access_code"`
		Payload    string `json:"payload"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	entry, err := h.checkinService.Scan(sessionID, req.AccessCode, req.Payload)
	if err != nil {
		switch {
		case errors.Is(err, status.ErrSessionNotFound):
			return apis.NewNotFoundError(err.Error(), nil)
		case errors.Is(err, status.ErrBadAccessCode):
			return apis.NewForbiddenError(err.Error(), nil)
		case errors.Is(err, status.ErrMissingEmail):
			return apis.NewBadRequestError("Invalid QR Code: Email not found.", nil)
		case errors.Is(err, status.ErrInvalidQRFormat):
			return apis.NewBadRequestError("Invalid QR Code format.", nil)
		case errors.Is(err, status.ErrAlreadyCheckedIn):
			return apis.NewApiError(http.StatusConflict, "Already checked in", nil)
		default:
			return apis.NewBadRequestError("Scan failed", err)
		}
	}

	return e.JSON(http.StatusOK, map[string]any{
		"message": fmt.Sprintf("User %s checked in successfully!", entry.Email),
		"entry":   entry,
	})
}

// ListEntries - The session's check-in list in scan order
func (h *CheckinHandler) ListEntries(e *core.RequestEvent) error {
	sessionID := e.Request.PathValue("sessionId")
	accessCode := e.Request.URL.Query().Get("access_code")

	entries, transient, err := h.checkinService.Entries(sessionID, accessCode)
	if err != nil {
		return h.sessionError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"entries": entries,
		"status":  transient,
		"total":   len(entries),
	})
}

// ExportSession - Download the scanned list as a spreadsheet
func (h *CheckinHandler) ExportSession(e *core.RequestEvent) error {
	sessionID := e.Request.PathValue("sessionId")
	accessCode := e.Request.URL.Query().Get("access_code")

	e.Response.Header().Set("Content-Type", "text/csv")
	e.Response.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=checkins-%s.csv", sessionID))

	if err := h.checkinService.Export(sessionID, accessCode, e.Response); err != nil {
		return h.sessionError(err)
	}
	return nil
}

// ImportSession - Load a previously exported sheet into the session
func (h *CheckinHandler) ImportSession(e *core.RequestEvent) error {
	sessionID := e.Request.PathValue("sessionId")
	accessCode := e.Request.URL.Query().Get("access_code")

	imported, err := h.checkinService.Import(sessionID, accessCode, e.Request.Body)
	if err != nil {
		return h.sessionError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"imported": imported,
	})
}

// CloseSession - End a scan session
func (h *CheckinHandler) CloseSession(e *core.RequestEvent) error {
	sessionID := e.Request.PathValue("sessionId")
	accessCode := e.Request.URL.Query().Get("access_code")

	if err := h.checkinService.CloseSession(sessionID, accessCode); err != nil {
		return h.sessionError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "Session closed"})
}

func (h *CheckinHandler) sessionError(err error) error {
	switch {
	case errors.Is(err, status.ErrSessionNotFound):
		return apis.NewNotFoundError(err.Error(), nil)
	case errors.Is(err, status.ErrBadAccessCode):
		return apis.NewForbiddenError(err.Error(), nil)
	default:
		return apis.NewBadRequestError("Scan session operation failed", err)
	}
}

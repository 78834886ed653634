package models

import (
	"encoding/json"
	"strings"

	"campus-events/internal/status"
)

const CheckinStatusCheckedIn = "Checked In"

// CheckinEntry is one scanned attendee. Entries live only for the
// duration of a scanning session and are never persisted.
type CheckinEntry struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

// ParseScanPayload decodes the text of a scanned QR code. The payload
// is first tried as JSON: an object must carry an "email" field, and
// any other valid JSON value (scalar, array) is a ticket without an
// email. Payloads that are not JSON at all are read as a "name,email"
// pair; anything else is rejected as an invalid format.
func ParseScanPayload(payload string) (name, email string, err error) {
	var decoded any
	if jsonErr := json.Unmarshal([]byte(payload), &decoded); jsonErr == nil {
		obj, ok := decoded.(map[string]any)
		if !ok {
			return "", "", status.ErrMissingEmail
		}
		email, _ := obj["email"].(string)
		email = strings.TrimSpace(email)
		if email == "" {
			return "", "", status.ErrMissingEmail
		}
		name, _ := obj["name"].(string)
		return strings.TrimSpace(name), email, nil
	}

	// Plain text fallback: "name,email". Extra fields are ignored,
	// matching how the scanner app treated hand-rolled codes.
	parts := strings.Split(payload, ",")
	if len(parts) >= 2 {
		name = strings.TrimSpace(parts[0])
		email = strings.TrimSpace(parts[1])
		if name != "" && email != "" {
			return name, email, nil
		}
	}

	return "", "", status.ErrInvalidQRFormat
}

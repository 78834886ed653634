package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/core"
)

type Event struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	Date         time.Time `json:"date"`
	Venue        string    `json:"venue"`
	Category     string    `json:"category"`
	CollegeYears []string  `json:"college_years"`
	Status       string    `json:"status"` // active, inactive
	Organizer    string    `json:"organizer"`
	Template     string    `json:"template"` // stored file name
	Attendees    []string  `json:"attendees"`
}

// EventFromRecord maps a raw store record to a validated Event.
// Malformed records are rejected here so they never reach the
// booking flow with a non-numeric price or missing title.
func EventFromRecord(record *core.Record) (*Event, error) {
	if record == nil {
		return nil, fmt.Errorf("event: nil record")
	}

	title := strings.TrimSpace(record.GetString("title"))
	if title == "" {
		return nil, fmt.Errorf("event %s: missing title", record.Id)
	}

	price := record.GetFloat("price")
	if price < 0 {
		return nil, fmt.Errorf("event %s: negative price", record.Id)
	}

	return &Event{
		ID:           record.Id,
		Title:        title,
		Description:  record.GetString("description"),
		Price:        price,
		Date:         record.GetDateTime("date").Time(),
		Venue:        record.GetString("venue"),
		Category:     record.GetString("category"),
		CollegeYears: SplitList(record.GetString("college_years")),
		Status:       record.GetString("status"),
		Organizer:    record.GetString("organizer"),
		Template:     record.GetString("template"),
		Attendees:    AttendeesFromRecord(record),
	}, nil
}

// AttendeesFromRecord reads the attendees field of an event record.
// The field is a JSON list of user ids; records migrated from the old
// schema may still carry a comma-joined string, which is accepted too.
func AttendeesFromRecord(record *core.Record) []string {
	raw := record.Get("attendees")

	switch v := raw.(type) {
	case []string:
		return normalizeAttendees(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return normalizeAttendees(out)
	case string:
		return normalizeAttendees(SplitList(v))
	}

	// The record type stores JSON fields as types.JSONRaw, so fall back
	// to the unmarshalled string slice accessor.
	return normalizeAttendees(record.GetStringSlice("attendees"))
}

// AppendAttendee adds userID to the list with set semantics.
// Reports whether the list actually grew.
func AppendAttendee(attendees []string, userID string) ([]string, bool) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return attendees, false
	}
	for _, id := range attendees {
		if id == userID {
			return attendees, false
		}
	}
	return append(attendees, userID), true
}

// SplitList splits a comma-joined value, trimming whitespace and
// dropping empty parts.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeAttendees(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out, _ = AppendAttendee(out, id)
	}
	return out
}

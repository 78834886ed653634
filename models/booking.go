package models

import (
	"regexp"
	"strings"
	"time"

	"campus-events/internal/status"

	"github.com/pocketbase/pocketbase/core"
)

type Booking struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	UserID      string    `json:"user_id"`
	PaymentRef  string    `json:"payment_ref"`
	HolderName  string    `json:"holder_name"`
	HolderEmail string    `json:"holder_email"`
	Amount      string    `json:"amount"`
	Status      string    `json:"status"` // confirmed
	CreatedAt   time.Time `json:"created_at"`
}

const BookingStatusConfirmed = "confirmed"

// BookingFromRecord maps a stored booking record.
func BookingFromRecord(record *core.Record) *Booking {
	return &Booking{
		ID:          record.Id,
		EventID:     record.GetString("event"),
		UserID:      record.GetString("user"),
		PaymentRef:  record.GetString("payment_ref"),
		HolderName:  record.GetString("holder_name"),
		HolderEmail: record.GetString("holder_email"),
		Amount:      record.GetString("amount"),
		Status:      record.GetString("status"),
		CreatedAt:   record.GetDateTime("created").Time(),
	}
}

// Permissive on purpose: a single "@" and at least one "." in the
// domain part. Deliverability is the mail server's problem.
var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidTicketEmail reports whether email passes the booking form check.
func ValidTicketEmail(email string) bool {
	return emailRe.MatchString(strings.TrimSpace(email))
}

// ValidateTicketHolder checks the booking form inputs. The name must be
// non-empty after trimming; the email must pass ValidTicketEmail.
// Returns the trimmed values.
func ValidateTicketHolder(name, email string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", status.ErrEmptyHolderName
	}

	email = strings.TrimSpace(email)
	if !ValidTicketEmail(email) {
		return "", "", status.ErrInvalidEmail
	}

	return name, email, nil
}

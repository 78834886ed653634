package status

import "errors"

var (
	ErrEventNotFound    = errors.New("event: event not found")
	ErrEventInactive    = errors.New("event: event is not active")
	ErrEmptyHolderName  = errors.New("booking: ticket holder name is required")
	ErrInvalidEmail     = errors.New("booking: invalid email address")
	ErrDuplicateBooking = errors.New("booking: user already booked this event")
	ErrBadSignature     = errors.New("payment: signature verification failed")
	ErrDuplicatePayment = errors.New("payment: payment reference already processed")
	ErrCheckoutExpired  = errors.New("payment: checkout session not found or expired")
	ErrInvalidQRFormat  = errors.New("checkin: invalid QR code format")
	ErrMissingEmail     = errors.New("checkin: email not found in QR code")
	ErrAlreadyCheckedIn = errors.New("checkin: already checked in")
	ErrSessionNotFound  = errors.New("checkin: scan session not found")
	ErrBadAccessCode    = errors.New("checkin: invalid access code")
)

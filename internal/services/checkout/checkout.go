package checkout

import (
	"context"

	"github.com/shopspring/decimal"
)

// Provider identifies a checkout gateway implementation.
type Provider string

const (
	ProviderRazorpay Provider = "razorpay"
	ProviderDevpay   Provider = "devpay"
)

// OrderRequest describes a checkout order to be opened by the hosted
// widget: amount in minor currency units, display strings, prefilled
// ticket holder details and free-form metadata notes.
type OrderRequest struct {
	Amount      int64             `json:"amount"` // minor units
	Currency    string            `json:"currency"`
	Receipt     string            `json:"receipt"`
	Name        string            `json:"name"`        // display name shown by the widget
	Description string            `json:"description"` // e.g. "Ticket for <event title>"
	Prefill     Prefill           `json:"prefill"`
	Notes       map[string]string `json:"notes,omitempty"`
	Theme       string            `json:"theme,omitempty"`
}

type Prefill struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Order is the gateway's created order. KeyID is echoed back so the
// client page can open the widget against the right account.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	KeyID    string `json:"key_id,omitempty"`
}

// Gateway is the common interface for checkout payment providers.
type Gateway interface {
	// Provider returns the gateway provider tag.
	Provider() Provider

	// CreateOrder registers an order with the gateway so the hosted
	// widget can collect the payment against it.
	CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error)

	// VerifySignature checks the signature delivered with a success
	// callback against the (order, payment reference) pair.
	VerifySignature(orderID, paymentRef, signature string) bool

	// Close gracefully closes any connections.
	Close(ctx context.Context) error
}

// MinorUnits converts a price in major currency units to the integer
// minor-unit amount the gateway expects (paise for INR).
func MinorUnits(price float64) int64 {
	return decimal.NewFromFloat(price).Shift(2).Round(0).IntPart()
}

// MajorUnits renders a minor-unit amount back as a decimal string,
// e.g. 50000 -> "500".
func MajorUnits(amount int64, _ string) string {
	return decimal.NewFromInt(amount).Shift(-2).String()
}

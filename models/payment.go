package models

const PaymentStatusCompleted = "completed"

// CheckoutError is the structured failure object delivered by the
// hosted checkout widget when a payment attempt fails.
type CheckoutError struct {
	Code        string            `json:"code"`
	Description string            `json:"description"`
	Source      string            `json:"source"`
	Step        string            `json:"step"`
	Reason      string            `json:"reason"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// SuccessCallback is the payload of the widget's success callback:
// the opaque payment reference plus the order it settles and the
// signature proving the gateway produced it.
type SuccessCallback struct {
	OrderID    string `json:"order_id"`
	PaymentRef string `json:"payment_ref"`
	Signature  string `json:"signature"`
}

// Package razorpay implements the checkout gateway against the
// Razorpay orders API. The hosted widget itself runs in the browser;
// this side only creates orders and verifies callback signatures.
package razorpay

import (
	"context"
	"fmt"

	"campus-events/internal/services/checkout"
)

type Gateway struct {
	keyID  string
	client *Client
}

// New returns a new Razorpay gateway instance.
func New(ctx context.Context, cfg *ClientConfig) (*Gateway, error) {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, fmt.Errorf("razorpay: key id and secret are required")
	}

	return &Gateway{
		keyID:  cfg.KeyID,
		client: newClient(ctx, cfg),
	}, nil
}

func (g *Gateway) Provider() checkout.Provider {
	return checkout.ProviderRazorpay
}

func (g *Gateway) CreateOrder(ctx context.Context, req *checkout.OrderRequest) (*checkout.Order, error) {
	resp, err := g.client.createOrder(ctx, &orderPayload{
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		return nil, err
	}

	return &checkout.Order{
		ID:       resp.ID,
		Amount:   resp.Amount,
		Currency: resp.Currency,
		Status:   resp.Status,
		KeyID:    g.keyID,
	}, nil
}

// VerifySignature checks the widget success callback signature:
// HMAC-SHA256 over "<order_id>|<payment_ref>" keyed with the API
// secret, hex encoded.
func (g *Gateway) VerifySignature(orderID, paymentRef, signature string) bool {
	payload := fmt.Sprintf("%s|%s", orderID, paymentRef)
	return VerifyHmac256([]byte(payload), []byte(g.client.keySecret), signature)
}

func (g *Gateway) Close(_ context.Context) error {
	return nil
}

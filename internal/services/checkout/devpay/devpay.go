// Package devpay is an in-process checkout gateway for development
// and tests. Orders are issued locally and signatures are computed
// with the same scheme as the real gateway, so the whole booking flow
// can run without network access.
package devpay

import (
	"context"
	"fmt"
	"sync"

	"campus-events/internal/services/checkout"
	"campus-events/internal/services/checkout/razorpay"
	"campus-events/utils"
)

type Config struct {
	Secret string `json:"secret" mapstructure:"secret"`
}

type Gateway struct {
	secret string

	mu     sync.Mutex
	orders map[string]*checkout.Order
}

func New(cfg *Config) *Gateway {
	secret := cfg.Secret
	if secret == "" {
		secret = "devpay-secret"
	}
	return &Gateway{
		secret: secret,
		orders: make(map[string]*checkout.Order),
	}
}

func (g *Gateway) Provider() checkout.Provider {
	return checkout.ProviderDevpay
}

func (g *Gateway) CreateOrder(_ context.Context, req *checkout.OrderRequest) (*checkout.Order, error) {
	code, err := utils.GenerateCode(7)
	if err != nil {
		return nil, err
	}

	order := &checkout.Order{
		ID:       fmt.Sprintf("order_dev_%s", code),
		Amount:   req.Amount,
		Currency: req.Currency,
		Status:   "created",
	}

	g.mu.Lock()
	g.orders[order.ID] = order
	g.mu.Unlock()

	return order, nil
}

func (g *Gateway) VerifySignature(orderID, paymentRef, signature string) bool {
	payload := fmt.Sprintf("%s|%s", orderID, paymentRef)
	return razorpay.VerifyHmac256([]byte(payload), []byte(g.secret), signature)
}

// Sign produces a valid callback signature for an order. Used by the
// payment simulation endpoint and tests.
func (g *Gateway) Sign(orderID, paymentRef string) string {
	payload := fmt.Sprintf("%s|%s", orderID, paymentRef)
	return razorpay.Hmac256([]byte(payload), []byte(g.secret))
}

// Order returns a previously created order, if it exists.
func (g *Gateway) Order(orderID string) (*checkout.Order, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	order, ok := g.orders[orderID]
	return order, ok
}

func (g *Gateway) Close(_ context.Context) error {
	return nil
}

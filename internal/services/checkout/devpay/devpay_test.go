package devpay

import (
	"context"
	"testing"

	"campus-events/internal/services/checkout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateway_CreateOrder(t *testing.T) {
	g := New(&Config{})
	ctx := context.Background()

	order, err := g.CreateOrder(ctx, &checkout.OrderRequest{
		Amount:   50000,
		Currency: "INR",
		Receipt:  "ABC123",
	})
	require.NoError(t, err)

	assert.Contains(t, order.ID, "order_dev_")
	assert.Equal(t, int64(50000), order.Amount)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, "created", order.Status)

	stored, ok := g.Order(order.ID)
	require.True(t, ok)
	assert.Equal(t, order, stored)
}

func TestGateway_VerifySignature(t *testing.T) {
	g := New(&Config{Secret: "test-secret"})

	sig := g.Sign("order_dev_1", "pay_123")
	assert.True(t, g.VerifySignature("order_dev_1", "pay_123", sig))

	// Any change to the pair invalidates the signature.
	assert.False(t, g.VerifySignature("order_dev_2", "pay_123", sig))
	assert.False(t, g.VerifySignature("order_dev_1", "pay_456", sig))
	assert.False(t, g.VerifySignature("order_dev_1", "pay_123", "forged"))

	other := New(&Config{Secret: "different-secret"})
	assert.False(t, other.VerifySignature("order_dev_1", "pay_123", sig))
}

func TestGateway_Provider(t *testing.T) {
	g := New(&Config{})
	assert.Equal(t, checkout.ProviderDevpay, g.Provider())
}

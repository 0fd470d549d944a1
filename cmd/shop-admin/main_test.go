package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/xenking/kart-shop/internal/domain/catalog"
	"github.com/xenking/kart-shop/internal/domain/order"
)

type fakeOrders struct {
	granted []string
	filter  order.ListFilter
	list    []order.Order
	err     error
}

func (f *fakeOrders) GrantRefund(_ context.Context, ref string) error {
	if f.err != nil {
		return f.err
	}
	f.granted = append(f.granted, ref)
	return nil
}

func (f *fakeOrders) ListPlaced(_ context.Context, filter order.ListFilter) ([]order.Order, error) {
	f.filter = filter
	return f.list, f.err
}

func runApp(t *testing.T, orders *fakeOrders, args ...string) (string, error) {
	t.Helper()
	closed := false
	app := newApp(func(*cli.Context) (Orders, func(), error) {
		return orders, func() { closed = true }, nil
	})
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out

	err := app.RunContext(context.Background(), append([]string{"shop-admin", "--database-url", "postgres://test"}, args...))
	if err == nil {
		assert.True(t, closed, "database must be closed")
	}
	return out.String(), err
}

func TestGrantRefund(t *testing.T) {
	orders := &fakeOrders{}
	out, err := runApp(t, orders, "refunds", "grant", "--ref", "abc123")
	require.NoError(t, err)
	assert.Equal(t, []string{"abc123"}, orders.granted)
	assert.Contains(t, out, "refund granted for abc123")

	orders.err = order.ErrNoRefundRequested
	_, err = runApp(t, orders, "refunds", "grant", "--ref", "abc123")
	assert.ErrorIs(t, err, order.ErrNoRefundRequested)
}

func TestListOrders(t *testing.T) {
	placed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	orders := &fakeOrders{list: []order.Order{{
		ID:              1,
		UserID:          uuid.MustParse("9c3f7a0e-5a4b-4f0e-9a51-2b7e0e6c1d11"),
		RefCode:         "abc123",
		Ordered:         true,
		OrderedDate:     &placed,
		BeingDelivered:  true,
		RefundRequested: true,
		AmountPaid:      decimal.NewNullDecimal(decimal.RequireFromString("25")),
		// Prices changed since the order was charged.
		Items: []order.OrderItem{{
			Item:     catalog.Item{Price: decimal.RequireFromString("40.00")},
			Quantity: 2,
		}},
	}}}

	out, err := runApp(t, orders, "orders", "list", "--refund-requested", "--limit", "5")
	require.NoError(t, err)
	assert.Equal(t, order.ListFilter{RefundRequested: true, Limit: 5}, orders.filter)
	assert.Contains(t, out, "abc123")
	assert.Contains(t, out, "2024-03-01T10:00:00Z")
	assert.Contains(t, out, "PAID")
	assert.Contains(t, out, "25.00")
	assert.NotContains(t, out, "80.00")
	assert.Contains(t, out, "in transit")
	assert.Contains(t, out, "requested")
}

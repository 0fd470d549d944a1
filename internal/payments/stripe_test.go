package payments

import (
	"context"
	"net/url"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"

	"github.com/xenking/kart-shop/internal/domain/payment"
)

type fakeCustomers struct {
	created *stripe.CustomerParams
	updated *stripe.CustomerParams
	err     error
}

func (f *fakeCustomers) New(params *stripe.CustomerParams) (*stripe.Customer, error) {
	f.created = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.Customer{ID: "cus_123"}, nil
}

func (f *fakeCustomers) Update(id string, params *stripe.CustomerParams) (*stripe.Customer, error) {
	f.updated = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.Customer{ID: id}, nil
}

type fakeCharges struct {
	params *stripe.ChargeParams
	err    error
}

func (f *fakeCharges) New(params *stripe.ChargeParams) (*stripe.Charge, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.Charge{ID: "ch_123", Amount: *params.Amount}, nil
}

func newTestGateway(t *testing.T, customers *fakeCustomers, charges *fakeCharges) *StripeGateway {
	t.Helper()
	g, err := NewStripeGateway(Config{
		AccountID: "acct_1",
		Clients:   &Clients{Customers: customers, Charges: charges},
	})
	require.NoError(t, err)
	return g
}

func TestNewStripeGateway_RequiresKey(t *testing.T) {
	_, err := NewStripeGateway(Config{})
	require.Error(t, err)

	g, err := NewStripeGateway(Config{SecretKey: "sk_test_123"})
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestNewBackends_NoRetries(t *testing.T) {
	b := newBackends()
	for _, backend := range []stripe.Backend{b.API, b.Connect, b.Uploads} {
		impl, ok := backend.(*stripe.BackendImplementation)
		require.True(t, ok)
		assert.Zero(t, impl.MaxNetworkRetries)
	}
}

func TestStripeGateway_Flow(t *testing.T) {
	ctx := context.Background()
	customers := &fakeCustomers{}
	charges := &fakeCharges{}
	g := newTestGateway(t, customers, charges)

	id, err := g.CreateCustomer(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "cus_123", id)
	assert.Equal(t, "jane@example.com", *customers.created.Email)
	assert.Equal(t, "acct_1", *customers.created.StripeAccount)

	require.NoError(t, g.AttachSource(ctx, id, "tok_visa"))
	assert.Equal(t, "tok_visa", *customers.updated.Source)

	ch, err := g.Charge(ctx, payment.ChargeRequest{
		CustomerID:  id,
		AmountCents: 2625,
		Currency:    "USD",
		Metadata:    map[string]string{"user_id": "u1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ch_123", ch.ID)
	assert.Equal(t, int64(2625), ch.AmountCents)
	assert.Equal(t, "usd", *charges.params.Currency)
	assert.Equal(t, "cus_123", *charges.params.Customer)
	assert.Equal(t, "u1", charges.params.Metadata["user_id"])
	assert.Equal(t, ctx, charges.params.Context)
}

func TestStripeGateway_ClassifiesErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    payment.FailureKind
		message string
	}{
		{
			name:    "card declined",
			err:     &stripe.Error{Type: stripe.ErrorTypeCard, Msg: "Your card was declined.", HTTPStatusCode: 402},
			kind:    payment.KindDeclined,
			message: "Your card was declined.",
		},
		{
			name:    "rate limit",
			err:     &stripe.Error{Type: stripe.ErrorTypeInvalidRequest, HTTPStatusCode: 429},
			kind:    payment.KindRateLimited,
			message: "Too many requests made to the API too quickly",
		},
		{
			name:    "invalid request",
			err:     &stripe.Error{Type: stripe.ErrorTypeInvalidRequest, HTTPStatusCode: 400},
			kind:    payment.KindInvalidRequest,
			message: "Invalid parameters were supplied to Stripe's API",
		},
		{
			name:    "authentication",
			err:     &stripe.Error{Type: stripe.ErrorTypeInvalidRequest, HTTPStatusCode: 401},
			kind:    payment.KindAuthFailed,
			message: "Authentication with Stripe's API failed",
		},
		{
			name:    "api error",
			err:     &stripe.Error{Type: stripe.ErrorTypeAPI, HTTPStatusCode: 500},
			kind:    payment.KindProcessor,
			message: "Something went wrong. You were not charged. Please try again",
		},
		{
			name:    "network",
			err:     &url.Error{Op: "Post", URL: "https://api.stripe.com/v1/charges", Err: errors.New("connection refused")},
			kind:    payment.KindUnavailable,
			message: "Network communication with Stripe failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(t, &fakeCustomers{}, &fakeCharges{err: tt.err})

			_, err := g.Charge(context.Background(), payment.ChargeRequest{CustomerID: "cus_1", AmountCents: 100, Currency: "usd"})

			var f *payment.Failure
			require.True(t, errors.As(err, &f))
			assert.Equal(t, tt.kind, f.Kind)
			assert.Equal(t, tt.message, f.Message())
		})
	}
}

func TestStripeGateway_TimeoutIsUnavailable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := newTestGateway(t, &fakeCustomers{err: context.Canceled}, &fakeCharges{})
	_, err := g.CreateCustomer(ctx, "jane@example.com")

	var f *payment.Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, payment.KindUnavailable, f.Kind)
}

func TestStripeGateway_UnknownErrorPassesThrough(t *testing.T) {
	boom := errors.New("boom")
	g := newTestGateway(t, &fakeCustomers{err: boom}, &fakeCharges{})

	_, err := g.CreateCustomer(context.Background(), "")

	var f *payment.Failure
	assert.False(t, errors.As(err, &f))
	assert.ErrorIs(t, err, boom)
}

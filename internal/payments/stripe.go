// Package payments adapts the Stripe API to the checkout payment gateway.
package payments

import (
	"context"
	"net"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"go.uber.org/zap"

	"github.com/xenking/kart-shop/internal/domain/payment"
)

type customerAPI interface {
	New(params *stripe.CustomerParams) (*stripe.Customer, error)
	Update(id string, params *stripe.CustomerParams) (*stripe.Customer, error)
}

type chargeAPI interface {
	New(params *stripe.ChargeParams) (*stripe.Charge, error)
}

// Clients overrides the Stripe sub-clients. Used by tests.
type Clients struct {
	Customers customerAPI
	Charges   chargeAPI
}

// Config configures a StripeGateway.
type Config struct {
	SecretKey string
	// AccountID is set on every request when the platform acts on behalf
	// of a connected account.
	AccountID string
	// Backends defaults to backends with network retries disabled.
	Backends *stripe.Backends
	Clients  *Clients
}

// StripeGateway implements payment.Gateway on top of the Stripe API. The key
// is bound to the client instance; the package level stripe.Key is never
// touched.
type StripeGateway struct {
	customers customerAPI
	charges   chargeAPI
	account   string
}

var _ payment.Gateway = (*StripeGateway)(nil)

// NewStripeGateway creates a gateway from cfg.
func NewStripeGateway(cfg Config) (*StripeGateway, error) {
	key := strings.TrimSpace(cfg.SecretKey)
	if key == "" && cfg.Clients == nil {
		return nil, errors.New("stripe: secret key is required")
	}

	var clients Clients
	if cfg.Clients != nil {
		clients = *cfg.Clients
	} else {
		backends := cfg.Backends
		if backends == nil {
			backends = newBackends()
		}
		sc := client.New(key, backends)
		clients = Clients{
			Customers: sc.Customers,
			Charges:   sc.Charges,
		}
	}
	if clients.Customers == nil || clients.Charges == nil {
		return nil, errors.New("stripe: incomplete client configuration")
	}

	return &StripeGateway{
		customers: clients.Customers,
		charges:   clients.Charges,
		account:   strings.TrimSpace(cfg.AccountID),
	}, nil
}

// newBackends returns Stripe backends that never retry a request.
func newBackends() *stripe.Backends {
	return stripe.NewBackendsWithConfig(&stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
	})
}

func (g *StripeGateway) prepare(ctx context.Context, p *stripe.Params) {
	p.Context = ctx
	if g.account != "" {
		p.SetStripeAccount(g.account)
	}
}

// CreateCustomer creates a Stripe customer for email and returns its id.
func (g *StripeGateway) CreateCustomer(ctx context.Context, email string) (string, error) {
	params := &stripe.CustomerParams{}
	g.prepare(ctx, &params.Params)
	if email != "" {
		params.Email = stripe.String(email)
	}

	c, err := g.customers.New(params)
	if err != nil {
		return "", classify(ctx, err)
	}
	zctx.From(ctx).Debug("Stripe customer created", zap.String("customer_id", c.ID))
	return c.ID, nil
}

// AttachSource sets token as the customer's funding source.
func (g *StripeGateway) AttachSource(ctx context.Context, customerID, token string) error {
	params := &stripe.CustomerParams{
		Source: stripe.String(token),
	}
	g.prepare(ctx, &params.Params)

	if _, err := g.customers.Update(customerID, params); err != nil {
		return classify(ctx, err)
	}
	return nil
}

// Charge charges the customer's default source.
func (g *StripeGateway) Charge(ctx context.Context, req payment.ChargeRequest) (*payment.Charge, error) {
	params := &stripe.ChargeParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		Customer: stripe.String(req.CustomerID),
	}
	g.prepare(ctx, &params.Params)
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if len(req.Metadata) > 0 {
		params.Metadata = make(map[string]string, len(req.Metadata))
		for k, v := range req.Metadata {
			params.Metadata[k] = v
		}
	}

	ch, err := g.charges.New(params)
	if err != nil {
		return nil, classify(ctx, err)
	}
	zctx.From(ctx).Info("Stripe charge created",
		zap.String("charge_id", ch.ID),
		zap.Int64("amount", ch.Amount),
	)
	return &payment.Charge{ID: ch.ID, AmountCents: ch.Amount}, nil
}

// classify maps a Stripe client error onto a payment failure kind.
func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, context.DeadlineExceeded) {
		return &payment.Failure{Kind: payment.KindUnavailable, Err: err}
	}

	var serr *stripe.Error
	if errors.As(err, &serr) {
		switch {
		case serr.Type == stripe.ErrorTypeCard:
			return &payment.Failure{Kind: payment.KindDeclined, ProcessorMessage: serr.Msg, Err: err}
		case serr.HTTPStatusCode == 429 || serr.Code == stripe.ErrorCodeRateLimit:
			return &payment.Failure{Kind: payment.KindRateLimited, Err: err}
		case serr.HTTPStatusCode == 401:
			return &payment.Failure{Kind: payment.KindAuthFailed, Err: err}
		case serr.Type == stripe.ErrorTypeInvalidRequest:
			return &payment.Failure{Kind: payment.KindInvalidRequest, Err: err}
		default:
			return &payment.Failure{Kind: payment.KindProcessor, Err: err}
		}
	}

	var (
		urlErr *url.Error
		netErr net.Error
	)
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return &payment.Failure{Kind: payment.KindUnavailable, Err: err}
	}
	return err
}

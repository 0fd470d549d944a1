package payment

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/kart-shop/internal/domain/address"
	"github.com/xenking/kart-shop/internal/domain/order"
	"github.com/xenking/kart-shop/internal/domain/profile"
)

// Checkout validation errors. They are reported before the processor is
// contacted.
var (
	ErrTokenRequired = errors.New("payment token required")
	ErrEmptyCart     = errors.New("cart is empty")
	ErrZeroTotal     = errors.New("order total must be positive")
)

// CheckoutRequest holds the input for paying the active order.
type CheckoutRequest struct {
	Token             string
	BillingAddressID  int64
	ShippingAddressID int64
}

// Receipt is the result of a successful checkout.
type Receipt struct {
	OrderID int64
	RefCode string
	Payment Payment
}

// Transactor runs fn inside a single database transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CheckoutOptions configures a CheckoutService.
type CheckoutOptions struct {
	// Currency is the ISO code sent to the processor. Defaults to "usd".
	Currency string
	// Timeout bounds the whole processor interaction. Defaults to 20s.
	Timeout time.Duration

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider

	Now     func() time.Time
	RefCode func() (string, error)
}

func (o *CheckoutOptions) setDefaults() {
	if o.Currency == "" {
		o.Currency = "usd"
	}
	if o.Timeout <= 0 {
		o.Timeout = 20 * time.Second
	}
	if o.TracerProvider == nil {
		o.TracerProvider = tracenoop.NewTracerProvider()
	}
	if o.MeterProvider == nil {
		o.MeterProvider = metricnoop.NewMeterProvider()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.RefCode == nil {
		o.RefCode = order.NewRefCode
	}
}

// CheckoutService charges the active order and places it.
type CheckoutService struct {
	orders    order.Repository
	addresses address.Repository
	profiles  profile.Repository
	payments  Repository
	gateway   Gateway
	notifier  Notifier
	tx        Transactor

	currency string
	timeout  time.Duration
	now      func() time.Time
	refCode  func() (string, error)

	tracer   trace.Tracer
	attempts metric.Int64Counter
}

// NewCheckoutService creates a CheckoutService.
func NewCheckoutService(
	orders order.Repository,
	addresses address.Repository,
	profiles profile.Repository,
	payments Repository,
	gateway Gateway,
	notifier Notifier,
	tx Transactor,
	opts CheckoutOptions,
) (*CheckoutService, error) {
	opts.setDefaults()

	meter := opts.MeterProvider.Meter("github.com/xenking/kart-shop/internal/domain/payment")
	attempts, err := meter.Int64Counter("checkout.attempts",
		metric.WithDescription("Checkout attempts by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create counter")
	}

	return &CheckoutService{
		orders:    orders,
		addresses: addresses,
		profiles:  profiles,
		payments:  payments,
		gateway:   gateway,
		notifier:  notifier,
		tx:        tx,
		currency:  opts.Currency,
		timeout:   opts.Timeout,
		now:       opts.Now,
		refCode:   opts.RefCode,
		tracer:    opts.TracerProvider.Tracer("github.com/xenking/kart-shop/internal/domain/payment"),
		attempts:  attempts,
	}, nil
}

// Checkout charges the caller's active order and, once the charge succeeds,
// records the payment and places the order. The order row stays locked for
// the whole sequence so the cart cannot change between pricing and
// persistence.
//
// Precondition failures are returned as-is (order.ErrNoActiveOrder,
// profile.ErrNotFound, address.ErrNotFound, ErrEmptyCart, ...). Every other
// failure is returned as *Failure and leaves the order untouched.
func (s *CheckoutService) Checkout(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (_ *Receipt, rerr error) {
	ctx, span := s.tracer.Start(ctx, "payment.Checkout",
		trace.WithAttributes(attribute.String("user.id", userID.String())),
	)
	defer func() {
		outcome := "success"
		if rerr != nil {
			outcome = "rejected"
			var f *Failure
			if errors.As(rerr, &f) {
				outcome = f.Kind.String()
			}
			span.RecordError(rerr)
			span.SetStatus(codes.Error, outcome)
		}
		s.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
		span.End()
	}()

	token := strings.TrimSpace(req.Token)
	if token == "" {
		return nil, ErrTokenRequired
	}

	lg := zctx.From(ctx).With(zap.Stringer("user_id", userID))

	var (
		receipt  *Receipt
		captured *Charge
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.ActiveForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if len(o.Items) == 0 {
			return ErrEmptyCart
		}
		total := o.Total()
		if !total.IsPositive() {
			return ErrZeroTotal
		}

		if err := s.checkAddress(ctx, userID, req.BillingAddressID, address.TypeBilling); err != nil {
			return err
		}
		if err := s.checkAddress(ctx, userID, req.ShippingAddressID, address.TypeShipping); err != nil {
			return err
		}

		prof, err := s.profiles.Get(ctx, userID)
		if err != nil {
			return err
		}

		customerID, charge, err := s.charge(ctx, prof, token, o, total)
		if err != nil {
			return err
		}
		captured = charge

		r, err := s.place(ctx, userID, o, req, prof, customerID, charge, total)
		if err != nil {
			return err
		}
		receipt = r
		return nil
	})
	if err != nil {
		if captured != nil {
			// Money has moved but the order was not placed.
			lg.Error("Charge captured but order was not placed",
				zap.String("charge_id", captured.ID),
				zap.Int64("amount_cents", captured.AmountCents),
				zap.Error(err),
			)
		}
		return nil, s.classify(ctx, err, captured != nil)
	}

	lg.Info("Order placed",
		zap.Int64("order_id", receipt.OrderID),
		zap.String("ref_code", receipt.RefCode),
		zap.String("charge_id", receipt.Payment.StripeChargeID),
	)
	return receipt, nil
}

func (s *CheckoutService) checkAddress(ctx context.Context, userID uuid.UUID, id int64, want address.Type) error {
	a, err := s.addresses.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if a.Type != want {
		return address.ErrNotFound
	}
	return nil
}

// charge talks to the processor. It returns the customer handle used so the
// caller can cache it once the order is placed.
func (s *CheckoutService) charge(
	ctx context.Context,
	prof *profile.Profile,
	token string,
	o *order.Order,
	total decimal.Decimal,
) (string, *Charge, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	customerID := prof.StripeCustomerID
	if !prof.HasCustomer() {
		id, err := s.gateway.CreateCustomer(ctx, prof.Email)
		if err != nil {
			return "", nil, errors.Wrap(err, "create customer")
		}
		customerID = id
	}

	if err := s.gateway.AttachSource(ctx, customerID, token); err != nil {
		return "", nil, errors.Wrap(err, "attach source")
	}

	ch, err := s.gateway.Charge(ctx, ChargeRequest{
		CustomerID:  customerID,
		AmountCents: total.Mul(decimal.NewFromInt(100)).Round(0).IntPart(),
		Currency:    s.currency,
		Description: "Order " + strconv.FormatInt(o.ID, 10),
		Metadata: map[string]string{
			"user_id": prof.UserID.String(),
		},
	})
	if err != nil {
		return "", nil, errors.Wrap(err, "charge")
	}
	return customerID, ch, nil
}

func (s *CheckoutService) place(
	ctx context.Context,
	userID uuid.UUID,
	o *order.Order,
	req CheckoutRequest,
	prof *profile.Profile,
	customerID string,
	ch *Charge,
	total decimal.Decimal,
) (*Receipt, error) {
	p := Payment{
		StripeChargeID: ch.ID,
		UserID:         userID,
		Amount:         total,
	}
	if err := s.payments.Create(ctx, &p); err != nil {
		return nil, errors.Wrap(err, "create payment")
	}

	ref, err := s.refCode()
	if err != nil {
		return nil, errors.Wrap(err, "generate ref code")
	}

	if err := s.orders.MarkOrdered(ctx, order.Placement{
		OrderID:           o.ID,
		PaymentID:         p.ID,
		BillingAddressID:  req.BillingAddressID,
		ShippingAddressID: req.ShippingAddressID,
		RefCode:           ref,
		OrderedAt:         s.now(),
	}); err != nil {
		return nil, errors.Wrap(err, "mark ordered")
	}

	if !prof.HasCustomer() || !prof.OneClickPurchasing {
		if err := s.profiles.SaveCustomer(ctx, userID, customerID); err != nil {
			return nil, errors.Wrap(err, "save customer")
		}
	}

	return &Receipt{OrderID: o.ID, RefCode: ref, Payment: p}, nil
}

// classify passes precondition errors through and turns everything else
// into a *Failure. Internal failures notify operators. Once charged, every
// failure is internal.
func (s *CheckoutService) classify(ctx context.Context, err error, charged bool) error {
	var f *Failure
	switch {
	case charged:
	case errors.As(err, &f):
		return err
	case errors.Is(err, order.ErrNoActiveOrder),
		errors.Is(err, profile.ErrNotFound),
		errors.Is(err, address.ErrNotFound),
		errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrZeroTotal):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return &Failure{Kind: KindUnavailable, Err: err}
	}

	zctx.From(ctx).Error("Checkout failed", zap.Error(err))
	if s.notifier != nil {
		s.notifier.Notify(ctx, "checkout failed", err)
	}
	return &Failure{Kind: KindInternal, Err: err}
}

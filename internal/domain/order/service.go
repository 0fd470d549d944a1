package order

import (
	"context"
	"crypto/rand"
	"net/mail"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/kart-shop/internal/domain/catalog"
	"github.com/xenking/kart-shop/internal/domain/coupon"
)

// Sentinel errors for cart and order operations.
var (
	ErrNoActiveOrder        = errors.New("no active order")
	ErrItemNotInCart        = errors.New("item not in cart")
	ErrOrderItemNotFound    = errors.New("order item not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrCouponCodeRequired   = errors.New("coupon code required")
	ErrSlugRequired         = errors.New("item slug required")
	ErrRefundAlreadyGranted = errors.New("refund already granted")
	ErrNoRefundRequested    = errors.New("no refund requested")
)

// InvalidRefundError reports a malformed refund request field.
type InvalidRefundError struct {
	Field string
}

func (e *InvalidRefundError) Error() string {
	return "invalid refund request: " + e.Field
}

// AddToCartRequest holds the input for adding an item to the cart.
type AddToCartRequest struct {
	Slug       string
	Variations []int64
}

// RemoveOneRequest identifies the cart line to decrement. When Variations is
// empty the oldest line for the item is used.
type RemoveOneRequest struct {
	Slug       string
	Variations []int64
}

// RefundRequest holds the input for requesting a refund.
type RefundRequest struct {
	RefCode string
	Reason  string
	Email   string
}

// Service encapsulates cart mutation and order bookkeeping.
type Service struct {
	catalog catalog.Repository
	coupons coupon.Repository
	orders  Repository
	tx      Transactor
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	items catalog.Repository,
	coupons coupon.Repository,
	orders Repository,
	tx Transactor,
) *Service {
	return &Service{
		catalog: items,
		coupons: coupons,
		orders:  orders,
		tx:      tx,
	}
}

// AddToCart adds one unit of the item identified by slug with the selected
// variation values. An existing line with the same variation set is
// incremented; otherwise a new line with quantity 1 is created. The active
// order is created on first use.
func (s *Service) AddToCart(ctx context.Context, userID uuid.UUID, req AddToCartRequest) (*Order, error) {
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		return nil, ErrSlugRequired
	}

	item, err := s.catalog.GetBySlug(ctx, slug)
	if err != nil {
		return nil, errors.Wrap(err, "get item")
	}

	sel := catalog.NewSelection(req.Variations)
	chosen, err := item.Resolve(sel)
	if err != nil {
		return nil, err
	}

	var result *Order
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetOrCreateActive(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "get or create active order")
		}

		if line, ok := o.FindLine(item.ID, sel); ok {
			if err := s.orders.SetItemQuantity(ctx, line.ID, line.Quantity+1); err != nil {
				return errors.Wrap(err, "increment quantity")
			}
			line.Quantity++
			result = o
			return nil
		}

		oi := OrderItem{
			OrderID:    o.ID,
			UserID:     userID,
			Item:       *item,
			Quantity:   1,
			Variations: chosen,
		}
		if err := s.orders.CreateItem(ctx, &oi); err != nil {
			return errors.Wrap(err, "create order item")
		}
		o.Items = append(o.Items, oi)
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveOne decrements the quantity of a cart line, deleting the line when
// its quantity would drop to zero.
func (s *Service) RemoveOne(ctx context.Context, userID uuid.UUID, req RemoveOneRequest) error {
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		return ErrSlugRequired
	}

	item, err := s.catalog.GetBySlug(ctx, slug)
	if err != nil {
		return errors.Wrap(err, "get item")
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.ActiveForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		var (
			line *OrderItem
			ok   bool
		)
		if len(req.Variations) > 0 {
			line, ok = o.FindLine(item.ID, catalog.NewSelection(req.Variations))
		} else {
			line, ok = o.OldestLine(item.ID)
		}
		if !ok {
			return ErrItemNotInCart
		}

		if line.Quantity > 1 {
			return errors.Wrap(s.orders.SetItemQuantity(ctx, line.ID, line.Quantity-1), "decrement quantity")
		}
		return errors.Wrap(s.orders.DeleteItem(ctx, line.ID), "delete order item")
	})
}

// DeleteItem removes a line from the caller's active order. Lines of other
// users or of placed orders are reported as ErrOrderItemNotFound.
func (s *Service) DeleteItem(ctx context.Context, userID uuid.UUID, orderItemID int64) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.ActiveForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, ErrNoActiveOrder) {
				return ErrOrderItemNotFound
			}
			return err
		}
		if _, ok := o.Line(orderItemID); !ok {
			return ErrOrderItemNotFound
		}
		return errors.Wrap(s.orders.DeleteItem(ctx, orderItemID), "delete order item")
	})
}

// Summary returns the caller's active order.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (*Order, error) {
	return s.orders.Active(ctx, userID)
}

// ApplyCoupon attaches the coupon identified by code to the active order.
// An unknown code leaves the order untouched.
func (s *Service) ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*Order, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrCouponCodeRequired
	}

	c, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	var result *Order
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.ActiveForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.orders.SetCoupon(ctx, o.ID, c.ID); err != nil {
			return errors.Wrap(err, "set coupon")
		}
		o.Coupon = c
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RequestRefund records a refund request against one of the caller's placed
// orders.
func (s *Service) RequestRefund(ctx context.Context, userID uuid.UUID, req RefundRequest) (*Refund, error) {
	refCode := strings.TrimSpace(req.RefCode)
	if refCode == "" {
		return nil, &InvalidRefundError{Field: "ref_code"}
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, &InvalidRefundError{Field: "message"}
	}
	email, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return nil, &InvalidRefundError{Field: "email"}
	}

	var refund *Refund
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.PlacedForUpdate(ctx, userID, refCode)
		if err != nil {
			return err
		}
		if o.RefundGranted {
			return ErrRefundAlreadyGranted
		}
		if err := s.orders.SetRefundState(ctx, o.ID, true, false); err != nil {
			return errors.Wrap(err, "set refund state")
		}

		r := &Refund{
			OrderID: o.ID,
			Reason:  reason,
			Email:   email.Address,
		}
		if err := s.orders.CreateRefund(ctx, r); err != nil {
			return errors.Wrap(err, "create refund")
		}
		refund = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refund, nil
}

// GrantRefund accepts the pending refund of the order with refCode. It is an
// operator action and is not scoped to a user.
func (s *Service) GrantRefund(ctx context.Context, refCode string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.PlacedForUpdate(ctx, uuid.Nil, refCode)
		if err != nil {
			return err
		}
		if !o.RefundRequested {
			return ErrNoRefundRequested
		}
		if err := s.orders.SetRefundState(ctx, o.ID, false, true); err != nil {
			return errors.Wrap(err, "set refund state")
		}
		return errors.Wrap(s.orders.AcceptRefunds(ctx, o.ID), "accept refunds")
	})
}

// ListPlaced returns placed orders for operators.
func (s *Service) ListPlaced(ctx context.Context, filter ListFilter) ([]Order, error) {
	return s.orders.ListPlaced(ctx, filter)
}

const refCodeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewRefCode generates a random 20 character order reference code.
func NewRefCode() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "read random")
	}
	for i, b := range buf {
		buf[i] = refCodeAlphabet[int(b)%len(refCodeAlphabet)]
	}
	return string(buf), nil
}

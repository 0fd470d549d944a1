package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-shop/internal/domain/catalog"
	"github.com/xenking/kart-shop/internal/domain/coupon"
)

// Order is either the active cart of a user (Ordered == false) or a placed
// order. A user has at most one active order.
type Order struct {
	ID          int64
	UserID      uuid.UUID
	RefCode     string
	StartDate   time.Time
	Ordered     bool
	OrderedDate *time.Time
	Items       []OrderItem
	Coupon      *coupon.Coupon

	BillingAddressID  *int64
	ShippingAddressID *int64
	PaymentID         *int64
	// AmountPaid is the captured payment amount of a placed order.
	AmountPaid decimal.NullDecimal

	BeingDelivered  bool
	Received        bool
	RefundRequested bool
	RefundGranted   bool
}

// OrderItem is one cart line: an item, the chosen variation values and a
// quantity.
type OrderItem struct {
	ID         int64
	OrderID    int64
	UserID     uuid.UUID
	Item       catalog.Item
	Quantity   int
	Ordered    bool
	Variations []catalog.ItemVariation
}

// Selection returns the normalized variation set of the line.
func (oi OrderItem) Selection() catalog.Selection {
	ids := make([]int64, len(oi.Variations))
	for i, v := range oi.Variations {
		ids[i] = v.ID
	}
	return catalog.NewSelection(ids)
}

// FinalPrice is the line total: quantity times the item's final price.
func (oi OrderItem) FinalPrice() decimal.Decimal {
	return oi.Item.FinalPrice().Mul(decimal.NewFromInt(int64(oi.Quantity)))
}

// Subtotal is the sum of all line totals before any coupon.
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, oi := range o.Items {
		sum = sum.Add(oi.FinalPrice())
	}
	return sum
}

// Total is the subtotal minus the coupon amount, floored at zero and rounded
// to cents.
func (o *Order) Total() decimal.Decimal {
	total := o.Subtotal()
	if o.Coupon != nil {
		total = total.Sub(o.Coupon.Amount)
	}
	if total.IsNegative() {
		total = decimal.Zero
	}
	return total.Round(2)
}

// Line returns the line with the given id.
func (o *Order) Line(id int64) (*OrderItem, bool) {
	for i := range o.Items {
		if o.Items[i].ID == id {
			return &o.Items[i], true
		}
	}
	return nil, false
}

// FindLine returns the line for itemID whose variation set equals sel.
func (o *Order) FindLine(itemID int64, sel catalog.Selection) (*OrderItem, bool) {
	for i := range o.Items {
		oi := &o.Items[i]
		if oi.Item.ID == itemID && oi.Selection().Equal(sel) {
			return oi, true
		}
	}
	return nil, false
}

// OldestLine returns the earliest created line for itemID.
func (o *Order) OldestLine(itemID int64) (*OrderItem, bool) {
	var found *OrderItem
	for i := range o.Items {
		oi := &o.Items[i]
		if oi.Item.ID != itemID {
			continue
		}
		if found == nil || oi.ID < found.ID {
			found = oi
		}
	}
	return found, found != nil
}

// Placement carries everything recorded when an active order is paid.
type Placement struct {
	OrderID           int64
	PaymentID         int64
	BillingAddressID  int64
	ShippingAddressID int64
	RefCode           string
	OrderedAt         time.Time
}

// Refund is a customer's request to refund a placed order.
type Refund struct {
	ID       int64
	OrderID  int64
	Reason   string
	Accepted bool
	Email    string
}

// Repository defines persistence operations for orders and their lines.
// Methods join the transaction carried by ctx when there is one.
type Repository interface {
	// Active returns the user's active order, or ErrNoActiveOrder.
	Active(ctx context.Context, userID uuid.UUID) (*Order, error)
	// ActiveForUpdate is Active with a row lock held until the transaction
	// ends.
	ActiveForUpdate(ctx context.Context, userID uuid.UUID) (*Order, error)
	// GetOrCreateActive atomically finds or creates the active order and
	// locks it.
	GetOrCreateActive(ctx context.Context, userID uuid.UUID) (*Order, error)

	// CreateItem inserts a line with its variations and sets oi.ID.
	CreateItem(ctx context.Context, oi *OrderItem) error
	SetItemQuantity(ctx context.Context, itemID int64, quantity int) error
	DeleteItem(ctx context.Context, itemID int64) error

	SetCoupon(ctx context.Context, orderID, couponID int64) error
	// MarkOrdered flips the order and all its lines to ordered.
	MarkOrdered(ctx context.Context, p Placement) error

	// PlacedForUpdate returns a placed order by reference code. A nil user
	// matches any owner. Returns ErrOrderNotFound when absent.
	PlacedForUpdate(ctx context.Context, userID uuid.UUID, refCode string) (*Order, error)
	ListPlaced(ctx context.Context, filter ListFilter) ([]Order, error)
	SetRefundState(ctx context.Context, orderID int64, requested, granted bool) error
	CreateRefund(ctx context.Context, r *Refund) error
	AcceptRefunds(ctx context.Context, orderID int64) error
}

// ListFilter narrows ListPlaced.
type ListFilter struct {
	RefundRequested bool
	Limit           int
}

// Transactor runs fn inside a single database transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

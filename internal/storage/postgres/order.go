package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-shop/internal/domain/catalog"
	"github.com/xenking/kart-shop/internal/domain/coupon"
	"github.com/xenking/kart-shop/internal/domain/order"
)

const (
	orderColumns = `o.id, o.user_id, COALESCE(o.ref_code, ''), o.start_date, o.ordered, o.ordered_date,
		o.billing_address_id, o.shipping_address_id, o.payment_id,
		o.being_delivered, o.received, o.refund_requested, o.refund_granted,
		c.id, c.code, c.amount, p.amount`

	orderFrom = ` FROM orders o
		LEFT JOIN coupons c ON c.id = o.coupon_id
		LEFT JOIN payments p ON p.id = o.payment_id`

	getActiveOrderSQL = `SELECT ` + orderColumns + orderFrom + ` WHERE o.user_id = $1 AND NOT o.ordered`

	getActiveOrderForUpdateSQL = getActiveOrderSQL + ` FOR UPDATE OF o`

	insertActiveOrderSQL = `INSERT INTO orders (user_id) VALUES ($1)
		ON CONFLICT (user_id) WHERE NOT ordered DO NOTHING`

	getPlacedOrderForUpdateSQL = `SELECT ` + orderColumns + orderFrom + `
		WHERE o.ref_code = $1 AND o.ordered AND ($2::uuid IS NULL OR o.user_id = $2)
		FOR UPDATE OF o`

	listPlacedOrdersSQL = `SELECT ` + orderColumns + orderFrom + `
		WHERE o.ordered AND (NOT $1 OR o.refund_requested)
		ORDER BY o.ordered_date DESC, o.id DESC
		LIMIT $2`

	listOrderItemsSQL = `SELECT oi.id, oi.order_id, oi.user_id, oi.quantity, oi.ordered, ` + itemColumns + `
		FROM order_items oi JOIN items i ON i.id = oi.item_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.id`

	listOrderItemVariationsSQL = `SELECT oiv.order_item_id, iv.id, iv.variation_id, v.name, iv.value, iv.attachment
		FROM order_item_variations oiv
		JOIN order_items oi ON oi.id = oiv.order_item_id
		JOIN item_variations iv ON iv.id = oiv.item_variation_id
		JOIN variations v ON v.id = iv.variation_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oiv.order_item_id, v.id`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, user_id, item_id, quantity, variation_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	insertOrderItemVariationsSQL = `INSERT INTO order_item_variations (order_item_id, item_variation_id)
		SELECT $1, unnest($2::bigint[])`

	updateOrderItemQuantitySQL = `UPDATE order_items SET quantity = $2 WHERE id = $1 AND NOT ordered`

	deleteOrderItemSQL = `DELETE FROM order_items WHERE id = $1 AND NOT ordered`

	setOrderCouponSQL = `UPDATE orders SET coupon_id = $2 WHERE id = $1 AND NOT ordered`

	markOrderItemsOrderedSQL = `UPDATE order_items SET ordered = TRUE WHERE order_id = $1`

	markOrderOrderedSQL = `UPDATE orders SET ordered = TRUE, ordered_date = $2, payment_id = $3,
		billing_address_id = $4, shipping_address_id = $5, ref_code = $6
		WHERE id = $1 AND NOT ordered`

	setRefundStateSQL = `UPDATE orders SET refund_requested = $2, refund_granted = $3 WHERE id = $1`

	insertRefundSQL = `INSERT INTO refunds (order_id, reason, email) VALUES ($1, $2, $3) RETURNING id`

	acceptRefundsSQL = `UPDATE refunds SET accepted = TRUE WHERE order_id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Active returns the user's active order with its lines.
func (r *OrderRepository) Active(ctx context.Context, userID uuid.UUID) (*order.Order, error) {
	return r.getActive(ctx, getActiveOrderSQL, userID)
}

// ActiveForUpdate returns the user's active order and locks its row.
func (r *OrderRepository) ActiveForUpdate(ctx context.Context, userID uuid.UUID) (*order.Order, error) {
	return r.getActive(ctx, getActiveOrderForUpdateSQL, userID)
}

// GetOrCreateActive inserts an active order unless one exists, then returns
// it locked. The partial unique index on orders(user_id) makes concurrent
// calls converge on a single row.
func (r *OrderRepository) GetOrCreateActive(ctx context.Context, userID uuid.UUID) (*order.Order, error) {
	if _, err := conn(ctx, r.pool).Exec(ctx, insertActiveOrderSQL, userID); err != nil {
		return nil, fmt.Errorf("creating active order for %s: %w", userID, err)
	}
	return r.getActive(ctx, getActiveOrderForUpdateSQL, userID)
}

func (r *OrderRepository) getActive(ctx context.Context, query string, userID uuid.UUID) (*order.Order, error) {
	q := conn(ctx, r.pool)

	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("getting active order for %s: %w", userID, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNoActiveOrder
		}
		return nil, fmt.Errorf("getting active order for %s: %w", userID, err)
	}

	orders := []order.Order{o}
	if err := loadLines(ctx, q, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// CreateItem inserts a cart line and its variation values.
func (r *OrderRepository) CreateItem(ctx context.Context, oi *order.OrderItem) error {
	q := conn(ctx, r.pool)

	ids := oi.Selection()
	err := q.QueryRow(ctx, insertOrderItemSQL,
		oi.OrderID, oi.UserID, oi.Item.ID, oi.Quantity, ids.Key(),
	).Scan(&oi.ID)
	if err != nil {
		return fmt.Errorf("creating order item: %w", err)
	}

	if len(ids) == 0 {
		return nil
	}
	if _, err := q.Exec(ctx, insertOrderItemVariationsSQL, oi.ID, []int64(ids)); err != nil {
		return fmt.Errorf("creating order item %d variations: %w", oi.ID, err)
	}
	return nil
}

// SetItemQuantity updates the quantity of an unordered line.
func (r *OrderRepository) SetItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, updateOrderItemQuantitySQL, itemID, quantity)
	if err != nil {
		return fmt.Errorf("updating order item %d: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrOrderItemNotFound
	}
	return nil
}

// DeleteItem removes an unordered line.
func (r *OrderRepository) DeleteItem(ctx context.Context, itemID int64) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, deleteOrderItemSQL, itemID)
	if err != nil {
		return fmt.Errorf("deleting order item %d: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrOrderItemNotFound
	}
	return nil
}

// SetCoupon attaches a coupon to an active order, replacing any previous one.
func (r *OrderRepository) SetCoupon(ctx context.Context, orderID, couponID int64) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, setOrderCouponSQL, orderID, couponID)
	if err != nil {
		return fmt.Errorf("setting coupon on order %d: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNoActiveOrder
	}
	return nil
}

// MarkOrdered flips the order and its lines to ordered. Both updates must
// run in the same transaction as the caller's payment insert.
func (r *OrderRepository) MarkOrdered(ctx context.Context, p order.Placement) error {
	q := conn(ctx, r.pool)

	if _, err := q.Exec(ctx, markOrderItemsOrderedSQL, p.OrderID); err != nil {
		return fmt.Errorf("marking order %d items ordered: %w", p.OrderID, err)
	}

	tag, err := q.Exec(ctx, markOrderOrderedSQL,
		p.OrderID, p.OrderedAt, p.PaymentID, p.BillingAddressID, p.ShippingAddressID, p.RefCode,
	)
	if err != nil {
		return fmt.Errorf("marking order %d ordered: %w", p.OrderID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNoActiveOrder
	}
	return nil
}

// PlacedForUpdate returns a placed order by reference code and locks it. A
// nil userID matches any owner.
func (r *OrderRepository) PlacedForUpdate(ctx context.Context, userID uuid.UUID, refCode string) (*order.Order, error) {
	q := conn(ctx, r.pool)

	var owner *uuid.UUID
	if userID != uuid.Nil {
		owner = &userID
	}

	rows, err := q.Query(ctx, getPlacedOrderForUpdateSQL, refCode, owner)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", refCode, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", refCode, err)
	}
	return &o, nil
}

// ListPlaced returns placed orders, newest first, with their lines.
func (r *OrderRepository) ListPlaced(ctx context.Context, filter order.ListFilter) ([]order.Order, error) {
	q := conn(ctx, r.pool)

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := q.Query(ctx, listPlacedOrdersSQL, filter.RefundRequested, limit)
	if err != nil {
		return nil, fmt.Errorf("listing placed orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing placed orders: %w", err)
	}
	if err := loadLines(ctx, q, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// SetRefundState sets both refund flags of an order.
func (r *OrderRepository) SetRefundState(ctx context.Context, orderID int64, requested, granted bool) error {
	_, err := conn(ctx, r.pool).Exec(ctx, setRefundStateSQL, orderID, requested, granted)
	if err != nil {
		return fmt.Errorf("setting refund state of order %d: %w", orderID, err)
	}
	return nil
}

// CreateRefund inserts a refund request and sets its ID.
func (r *OrderRepository) CreateRefund(ctx context.Context, ref *order.Refund) error {
	err := conn(ctx, r.pool).QueryRow(ctx, insertRefundSQL, ref.OrderID, ref.Reason, ref.Email).Scan(&ref.ID)
	if err != nil {
		return fmt.Errorf("creating refund for order %d: %w", ref.OrderID, err)
	}
	return nil
}

// AcceptRefunds marks every refund request of an order as accepted.
func (r *OrderRepository) AcceptRefunds(ctx context.Context, orderID int64) error {
	_, err := conn(ctx, r.pool).Exec(ctx, acceptRefundsSQL, orderID)
	if err != nil {
		return fmt.Errorf("accepting refunds of order %d: %w", orderID, err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o           order.Order
		orderedDate *time.Time
		couponID    *int64
		couponCode  *string
		couponAmt   decimal.NullDecimal
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.RefCode, &o.StartDate, &o.Ordered, &orderedDate,
		&o.BillingAddressID, &o.ShippingAddressID, &o.PaymentID,
		&o.BeingDelivered, &o.Received, &o.RefundRequested, &o.RefundGranted,
		&couponID, &couponCode, &couponAmt, &o.AmountPaid,
	)
	o.OrderedDate = orderedDate
	if couponID != nil {
		o.Coupon = &coupon.Coupon{ID: *couponID, Code: deref(couponCode), Amount: couponAmt.Decimal}
	}
	return o, err
}

// loadLines fills Items of every order in orders.
func loadLines(ctx context.Context, q querier, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
	}

	rows, err := q.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.OrderItem, error) {
		var oi order.OrderItem
		err := row.Scan(
			&oi.ID, &oi.OrderID, &oi.UserID, &oi.Quantity, &oi.Ordered,
			&oi.Item.ID, &oi.Item.Title, &oi.Item.Price, &oi.Item.DiscountPrice,
			&oi.Item.Category, &oi.Item.Label, &oi.Item.Slug, &oi.Item.Description, &oi.Item.Image,
		)
		return oi, err
	})
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}

	variations, err := loadLineVariations(ctx, q, ids)
	if err != nil {
		return err
	}

	for _, oi := range lines {
		oi.Variations = variations[oi.ID]
		o := &orders[index[oi.OrderID]]
		o.Items = append(o.Items, oi)
	}
	return nil
}

func loadLineVariations(ctx context.Context, q querier, orderIDs []int64) (map[int64][]catalog.ItemVariation, error) {
	rows, err := q.Query(ctx, listOrderItemVariationsSQL, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("listing order item variations: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]catalog.ItemVariation)
	for rows.Next() {
		var (
			lineID int64
			iv     catalog.ItemVariation
		)
		if err := rows.Scan(&lineID, &iv.ID, &iv.VariationID, &iv.VariationName, &iv.Value, &iv.Attachment); err != nil {
			return nil, fmt.Errorf("scanning order item variation: %w", err)
		}
		out[lineID] = append(out[lineID], iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing order item variations: %w", err)
	}
	return out, nil
}

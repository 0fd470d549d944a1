package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-shop/internal/domain/payment"
)

const (
	insertPaymentSQL = `INSERT INTO payments (stripe_charge_id, user_id, amount)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	listPaymentsByUserSQL = `SELECT id, stripe_charge_id, user_id, amount, created_at
		FROM payments WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`
)

var _ payment.Repository = (*PaymentRepository)(nil)

// PaymentRepository implements payment.Repository backed by PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository returns a PaymentRepository that uses the given pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// Create records a captured charge.
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	err := conn(ctx, r.pool).QueryRow(ctx, insertPaymentSQL,
		p.StripeChargeID, p.UserID, p.Amount,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating payment for charge %q: %w", p.StripeChargeID, err)
	}
	return nil
}

// ListByUser returns the user's payments, newest first.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]payment.Payment, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, listPaymentsByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByPos[payment.Payment])
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	return out, nil
}

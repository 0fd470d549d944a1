package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-shop/internal/domain/profile"
)

const (
	getProfileSQL = `SELECT p.user_id, u.email, p.stripe_customer_id, p.one_click_purchasing
		FROM user_profiles p JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1`

	saveProfileCustomerSQL = `UPDATE user_profiles
		SET stripe_customer_id = $2, one_click_purchasing = TRUE
		WHERE user_id = $1`
)

var _ profile.Repository = (*ProfileRepository)(nil)

// ProfileRepository implements profile.Repository backed by PostgreSQL.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository returns a ProfileRepository that uses the given pool.
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func (r *ProfileRepository) Get(ctx context.Context, userID uuid.UUID) (*profile.Profile, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getProfileSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("getting profile of %s: %w", userID, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[profile.Profile])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, profile.ErrNotFound
		}
		return nil, fmt.Errorf("getting profile of %s: %w", userID, err)
	}
	return &p, nil
}

func (r *ProfileRepository) SaveCustomer(ctx context.Context, userID uuid.UUID, customerID string) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, saveProfileCustomerSQL, userID, customerID)
	if err != nil {
		return fmt.Errorf("saving customer of %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return profile.ErrNotFound
	}
	return nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-shop/internal/domain/address"
)

const (
	addressColumns = `id, user_id, street_address, apartment_address, country, zip, address_type, is_default`

	listAddressesSQL = `SELECT ` + addressColumns + ` FROM addresses
		WHERE user_id = $1 AND ($2::text = '' OR address_type = $2::text)
		ORDER BY id`

	getAddressSQL = `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1 AND user_id = $2`

	insertAddressSQL = `INSERT INTO addresses
		(user_id, street_address, apartment_address, country, zip, address_type, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	updateAddressSQL = `UPDATE addresses SET street_address = $3, apartment_address = $4,
		country = $5, zip = $6, address_type = $7, is_default = $8
		WHERE id = $1 AND user_id = $2`

	deleteAddressSQL = `DELETE FROM addresses WHERE id = $1 AND user_id = $2`

	clearDefaultAddressSQL = `UPDATE addresses SET is_default = FALSE
		WHERE user_id = $1 AND address_type = $2 AND id <> $3 AND is_default`
)

var _ address.Repository = (*AddressRepository)(nil)

// AddressRepository implements address.Repository backed by PostgreSQL.
// Every statement filters by user id so foreign rows look absent.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

func (r *AddressRepository) List(ctx context.Context, userID uuid.UUID, typ address.Type) ([]address.Address, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, listAddressesSQL, userID, string(typ))
	if err != nil {
		return nil, fmt.Errorf("listing addresses: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanAddress)
	if err != nil {
		return nil, fmt.Errorf("listing addresses: %w", err)
	}
	return out, nil
}

func (r *AddressRepository) Get(ctx context.Context, userID uuid.UUID, id int64) (*address.Address, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getAddressSQL, id, userID)
	if err != nil {
		return nil, fmt.Errorf("getting address %d: %w", id, err)
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanAddress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, address.ErrNotFound
		}
		return nil, fmt.Errorf("getting address %d: %w", id, err)
	}
	return &a, nil
}

func (r *AddressRepository) Create(ctx context.Context, a *address.Address) error {
	err := conn(ctx, r.pool).QueryRow(ctx, insertAddressSQL,
		a.UserID, a.StreetAddress, a.ApartmentAddress, a.Country, a.Zip, string(a.Type), a.Default,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("creating address: %w", err)
	}
	return nil
}

func (r *AddressRepository) Update(ctx context.Context, a *address.Address) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, updateAddressSQL,
		a.ID, a.UserID, a.StreetAddress, a.ApartmentAddress, a.Country, a.Zip, string(a.Type), a.Default,
	)
	if err != nil {
		return fmt.Errorf("updating address %d: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return address.ErrNotFound
	}
	return nil
}

func (r *AddressRepository) Delete(ctx context.Context, userID uuid.UUID, id int64) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, deleteAddressSQL, id, userID)
	if err != nil {
		return fmt.Errorf("deleting address %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return address.ErrNotFound
	}
	return nil
}

func (r *AddressRepository) ClearDefault(ctx context.Context, userID uuid.UUID, typ address.Type, exceptID int64) error {
	_, err := conn(ctx, r.pool).Exec(ctx, clearDefaultAddressSQL, userID, string(typ), exceptID)
	if err != nil {
		return fmt.Errorf("clearing default %s address: %w", typ, err)
	}
	return nil
}

func scanAddress(row pgx.CollectableRow) (address.Address, error) {
	var (
		a   address.Address
		typ string
	)
	err := row.Scan(
		&a.ID, &a.UserID, &a.StreetAddress, &a.ApartmentAddress,
		&a.Country, &a.Zip, &typ, &a.Default,
	)
	a.Type = address.Type(typ)
	return a, err
}

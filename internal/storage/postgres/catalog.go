package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-shop/internal/domain/catalog"
)

const (
	itemColumns = `i.id, i.title, i.price, i.discount_price, i.category, i.label, i.slug, i.description, i.image`

	listItemsSQL = `SELECT ` + itemColumns + ` FROM items i ORDER BY i.id`

	getItemByIDSQL = `SELECT ` + itemColumns + ` FROM items i WHERE i.id = $1`

	getItemBySlugSQL = `SELECT ` + itemColumns + ` FROM items i WHERE i.slug = $1`

	listItemVariationsSQL = `SELECT v.id, v.name, iv.id, iv.value, iv.attachment
		FROM variations v
		LEFT JOIN item_variations iv ON iv.variation_id = v.id
		WHERE v.item_id = $1
		ORDER BY v.id, iv.id`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// List returns all items ordered by ID, without variations.
func (r *CatalogRepository) List(ctx context.Context) ([]catalog.Item, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, listItemsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	items, err := pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

// GetByID returns the item with its variations, or catalog.ErrNotFound.
func (r *CatalogRepository) GetByID(ctx context.Context, id int64) (*catalog.Item, error) {
	return r.getItem(ctx, getItemByIDSQL, id)
}

// GetBySlug returns the item with its variations, or catalog.ErrNotFound.
func (r *CatalogRepository) GetBySlug(ctx context.Context, slug string) (*catalog.Item, error) {
	return r.getItem(ctx, getItemBySlugSQL, slug)
}

func (r *CatalogRepository) getItem(ctx context.Context, query string, arg any) (*catalog.Item, error) {
	q := conn(ctx, r.pool)

	rows, err := q.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("getting item %v: %w", arg, err)
	}
	item, err := pgx.CollectExactlyOneRow(rows, scanItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting item %v: %w", arg, err)
	}

	item.Variations, err = loadVariations(ctx, q, item.ID)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func loadVariations(ctx context.Context, q querier, itemID int64) ([]catalog.Variation, error) {
	rows, err := q.Query(ctx, listItemVariationsSQL, itemID)
	if err != nil {
		return nil, fmt.Errorf("listing variations of item %d: %w", itemID, err)
	}
	defer rows.Close()

	var out []catalog.Variation
	for rows.Next() {
		var (
			variationID int64
			name        string
			valueID     *int64
			value       *string
			attachment  *string
		)
		if err := rows.Scan(&variationID, &name, &valueID, &value, &attachment); err != nil {
			return nil, fmt.Errorf("scanning variation: %w", err)
		}

		if len(out) == 0 || out[len(out)-1].ID != variationID {
			out = append(out, catalog.Variation{ID: variationID, ItemID: itemID, Name: name})
		}
		if valueID == nil {
			continue
		}
		v := &out[len(out)-1]
		v.Values = append(v.Values, catalog.ItemVariation{
			ID:            *valueID,
			VariationID:   variationID,
			VariationName: name,
			Value:         deref(value),
			Attachment:    deref(attachment),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing variations of item %d: %w", itemID, err)
	}
	return out, nil
}

func scanItem(row pgx.CollectableRow) (catalog.Item, error) {
	var item catalog.Item
	err := row.Scan(
		&item.ID, &item.Title, &item.Price, &item.DiscountPrice,
		&item.Category, &item.Label, &item.Slug, &item.Description, &item.Image,
	)
	return item, err
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested item does not exist.
var ErrNotFound = errors.New("item not found")

// Category codes for catalog items.
const (
	CategoryShirt     = "S"
	CategorySportWear = "SW"
	CategoryOutwear   = "OW"
)

// Label codes used by the storefront to colour item badges.
const (
	LabelPrimary   = "P"
	LabelSecondary = "S"
	LabelDanger    = "D"
)

var (
	categoryNames = map[string]string{
		CategoryShirt:     "Shirt",
		CategorySportWear: "Sport wear",
		CategoryOutwear:   "Outwear",
	}
	labelNames = map[string]string{
		LabelPrimary:   "primary",
		LabelSecondary: "secondary",
		LabelDanger:    "danger",
	}
)

// Item is a product in the catalog.
type Item struct {
	ID            int64
	Title         string
	Price         decimal.Decimal
	DiscountPrice decimal.NullDecimal
	Category      string
	Label         string
	Slug          string
	Description   string
	Image         string

	// Variations is only populated by detail lookups.
	Variations []Variation
}

// FinalPrice is the unit price a customer pays: the discount price when one
// is set, the list price otherwise.
func (i Item) FinalPrice() decimal.Decimal {
	if i.DiscountPrice.Valid {
		return i.DiscountPrice.Decimal
	}
	return i.Price
}

// CategoryName returns the display name of the item category.
func (i Item) CategoryName() string {
	if name, ok := categoryNames[i.Category]; ok {
		return name
	}
	return i.Category
}

// LabelName returns the display name of the item label.
func (i Item) LabelName() string {
	if name, ok := labelNames[i.Label]; ok {
		return name
	}
	return i.Label
}

// Variation is a named option group of an item, e.g. "Size".
type Variation struct {
	ID     int64
	ItemID int64
	Name   string
	Values []ItemVariation
}

// ItemVariation is a concrete value of a Variation, e.g. "Large".
type ItemVariation struct {
	ID          int64
	VariationID int64
	// VariationName is denormalized for display in cart lines.
	VariationName string
	Value         string
	Attachment    string
}

// Repository defines read operations for the catalog.
type Repository interface {
	List(ctx context.Context) ([]Item, error)
	// GetByID returns the item with its variations and their values.
	GetByID(ctx context.Context, id int64) (*Item, error)
	// GetBySlug returns the item with its variations and their values.
	GetBySlug(ctx context.Context, slug string) (*Item, error)
}

package coupon

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no coupon matches a code.
var ErrNotFound = errors.New("coupon not found")

// Coupon is a promotional code worth a fixed amount off an order.
type Coupon struct {
	ID     int64
	Code   string
	Amount decimal.Decimal
}

// Repository provides lookup of coupons.
type Repository interface {
	// FindByCode returns ErrNotFound when the code does not exist.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
}

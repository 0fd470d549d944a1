package address

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/kart-shop/internal/countries"
)

// ErrNotFound is returned for missing addresses and for addresses owned by
// another user.
var ErrNotFound = errors.New("address not found")

// Type distinguishes billing from shipping addresses.
type Type string

const (
	TypeBilling  Type = "B"
	TypeShipping Type = "S"
)

// ParseType accepts the single-letter codes as well as "billing" and
// "shipping".
func ParseType(s string) (Type, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "b", "billing":
		return TypeBilling, true
	case "s", "shipping":
		return TypeShipping, true
	}
	return "", false
}

// Address is a postal address in a user's address book.
type Address struct {
	ID               int64
	UserID           uuid.UUID
	StreetAddress    string
	ApartmentAddress string
	Country          string
	Zip              string
	Type             Type
	Default          bool
}

// ValidationError reports an invalid address field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// Validate normalizes and checks the address fields.
func (a *Address) Validate() error {
	a.StreetAddress = strings.TrimSpace(a.StreetAddress)
	a.ApartmentAddress = strings.TrimSpace(a.ApartmentAddress)
	a.Zip = strings.TrimSpace(a.Zip)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))

	switch {
	case a.StreetAddress == "":
		return &ValidationError{Field: "street_address", Reason: "this field is required"}
	case a.Zip == "":
		return &ValidationError{Field: "zip", Reason: "this field is required"}
	case !countries.Valid(a.Country):
		return &ValidationError{Field: "country", Reason: "not a valid choice"}
	case a.Type != TypeBilling && a.Type != TypeShipping:
		return &ValidationError{Field: "address_type", Reason: "not a valid choice"}
	}
	return nil
}

// Repository persists addresses. Every query is scoped by user id.
type Repository interface {
	// List returns the user's addresses; an empty typ matches all types.
	List(ctx context.Context, userID uuid.UUID, typ Type) ([]Address, error)
	Get(ctx context.Context, userID uuid.UUID, id int64) (*Address, error)
	Create(ctx context.Context, a *Address) error
	// Update returns ErrNotFound unless a.ID belongs to a.UserID.
	Update(ctx context.Context, a *Address) error
	Delete(ctx context.Context, userID uuid.UUID, id int64) error
	// ClearDefault unsets the default flag on the user's other addresses of
	// the given type.
	ClearDefault(ctx context.Context, userID uuid.UUID, typ Type, exceptID int64) error
}

// Transactor runs fn inside a single database transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

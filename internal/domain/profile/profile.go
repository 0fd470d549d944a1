package profile

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a user has no profile.
var ErrNotFound = errors.New("user profile not found")

// Profile holds per-user billing metadata.
type Profile struct {
	UserID uuid.UUID
	// Email comes from the user record and is sent to the payment processor
	// when a customer is created.
	Email              string
	StripeCustomerID   string
	OneClickPurchasing bool
}

// HasCustomer reports whether a payment processor customer is cached.
func (p Profile) HasCustomer() bool {
	return p.StripeCustomerID != ""
}

// Repository persists profiles.
type Repository interface {
	Get(ctx context.Context, userID uuid.UUID) (*Profile, error)
	// SaveCustomer caches the processor customer handle and enables
	// one-click purchasing.
	SaveCustomer(ctx context.Context, userID uuid.UUID, customerID string) error
}

package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment records a successful charge. It is immutable once created.
type Payment struct {
	ID             int64
	StripeChargeID string
	UserID         uuid.UUID
	Amount         decimal.Decimal
	CreatedAt      time.Time
}

// Repository persists payments.
type Repository interface {
	// Create inserts p and sets its ID and CreatedAt.
	Create(ctx context.Context, p *Payment) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Payment, error)
}

// ChargeRequest describes a charge against a processor customer.
type ChargeRequest struct {
	CustomerID  string
	AmountCents int64
	Currency    string
	Description string
	Metadata    map[string]string
}

// Charge is the processor-side result of a successful charge.
type Charge struct {
	ID          string
	AmountCents int64
}

// Gateway is the external payment processor. Implementations must report
// processor errors as *Failure.
type Gateway interface {
	CreateCustomer(ctx context.Context, email string) (string, error)
	// AttachSource adds a one-time token as a funding source of a customer.
	AttachSource(ctx context.Context, customerID, token string) error
	Charge(ctx context.Context, req ChargeRequest) (*Charge, error)
}

// Notifier alerts operators about failures that need human attention.
type Notifier interface {
	Notify(ctx context.Context, subject string, err error)
}

package address

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Patch carries the fields of an address update; nil fields are kept.
type Patch struct {
	StreetAddress    *string
	ApartmentAddress *string
	Country          *string
	Zip              *string
	Type             *Type
	Default          *bool
}

func (p Patch) Apply(a *Address) {
	if p.StreetAddress != nil {
		a.StreetAddress = *p.StreetAddress
	}
	if p.ApartmentAddress != nil {
		a.ApartmentAddress = *p.ApartmentAddress
	}
	if p.Country != nil {
		a.Country = *p.Country
	}
	if p.Zip != nil {
		a.Zip = *p.Zip
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.Default != nil {
		a.Default = *p.Default
	}
}

// Service manages a user's address book.
type Service struct {
	repo Repository
	tx   Transactor
}

// NewService creates an address Service.
func NewService(repo Repository, tx Transactor) *Service {
	return &Service{repo: repo, tx: tx}
}

// List returns the caller's addresses, optionally filtered by type.
func (s *Service) List(ctx context.Context, userID uuid.UUID, typ Type) ([]Address, error) {
	return s.repo.List(ctx, userID, typ)
}

// Create validates and stores a new address for the caller.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, a Address) (*Address, error) {
	a.ID = 0
	a.UserID = userID
	if err := a.Validate(); err != nil {
		return nil, err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, &a); err != nil {
			return errors.Wrap(err, "create address")
		}
		if a.Default {
			return errors.Wrap(s.repo.ClearDefault(ctx, userID, a.Type, a.ID), "clear default")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Update applies p to one of the caller's addresses.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, id int64, p Patch) (*Address, error) {
	var result *Address
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.repo.Get(ctx, userID, id)
		if err != nil {
			return err
		}
		p.Apply(a)
		if err := a.Validate(); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, a); err != nil {
			return errors.Wrap(err, "update address")
		}
		if a.Default {
			if err := s.repo.ClearDefault(ctx, userID, a.Type, a.ID); err != nil {
				return errors.Wrap(err, "clear default")
			}
		}
		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes one of the caller's addresses.
func (s *Service) Delete(ctx context.Context, userID uuid.UUID, id int64) error {
	return s.repo.Delete(ctx, userID, id)
}

package address

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	rows   map[int64]Address
	nextID int64
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[int64]Address)}
}

func (r *memRepo) List(_ context.Context, userID uuid.UUID, typ Type) ([]Address, error) {
	var out []Address
	for id := int64(1); id <= r.nextID; id++ {
		a, ok := r.rows[id]
		if ok && a.UserID == userID && (typ == "" || a.Type == typ) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memRepo) Get(_ context.Context, userID uuid.UUID, id int64) (*Address, error) {
	a, ok := r.rows[id]
	if !ok || a.UserID != userID {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (r *memRepo) Create(_ context.Context, a *Address) error {
	r.nextID++
	a.ID = r.nextID
	r.rows[a.ID] = *a
	return nil
}

func (r *memRepo) Update(_ context.Context, a *Address) error {
	cur, ok := r.rows[a.ID]
	if !ok || cur.UserID != a.UserID {
		return ErrNotFound
	}
	r.rows[a.ID] = *a
	return nil
}

func (r *memRepo) Delete(_ context.Context, userID uuid.UUID, id int64) error {
	a, ok := r.rows[id]
	if !ok || a.UserID != userID {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memRepo) ClearDefault(_ context.Context, userID uuid.UUID, typ Type, exceptID int64) error {
	for id, a := range r.rows {
		if id != exceptID && a.UserID == userID && a.Type == typ {
			a.Default = false
			r.rows[id] = a
		}
	}
	return nil
}

type passTx struct{}

func (passTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var (
	owner    = uuid.MustParse("3d2a1b0c-9e8f-4a7b-8c6d-5e4f3a2b1c0d")
	stranger = uuid.MustParse("a1b2c3d4-e5f6-4789-8abc-def012345678")
)

func validAddress(typ Type) Address {
	return Address{StreetAddress: "1 Main St", Country: "us", Zip: "10001", Type: typ}
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{"B": TypeBilling, "billing": TypeBilling, " s ": TypeShipping, "Shipping": TypeShipping} {
		got, ok := ParseType(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseType("home")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(a *Address)
		field string
	}{
		{name: "valid", edit: func(*Address) {}},
		{name: "blank street", edit: func(a *Address) { a.StreetAddress = "  " }, field: "street_address"},
		{name: "no zip", edit: func(a *Address) { a.Zip = "" }, field: "zip"},
		{name: "unknown country", edit: func(a *Address) { a.Country = "XX" }, field: "country"},
		{name: "bad type", edit: func(a *Address) { a.Type = "X" }, field: "address_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAddress(TypeBilling)
			tt.edit(&a)
			err := a.Validate()
			if tt.field == "" {
				require.NoError(t, err)
				assert.Equal(t, "US", a.Country)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestService_CreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := NewService(repo, passTx{})

	first := validAddress(TypeShipping)
	first.Default = true
	a, err := svc.Create(ctx, owner, first)
	require.NoError(t, err)
	assert.Equal(t, owner, a.UserID)

	second := validAddress(TypeShipping)
	second.Default = true
	second.ID = 999
	b, err := svc.Create(ctx, owner, second)
	require.NoError(t, err)
	assert.NotEqual(t, int64(999), b.ID, "client ids are ignored")

	_, err = svc.Create(ctx, owner, validAddress(TypeBilling))
	require.NoError(t, err)

	shipping, err := svc.List(ctx, owner, TypeShipping)
	require.NoError(t, err)
	require.Len(t, shipping, 2)
	assert.False(t, shipping[0].Default, "a new default clears the previous one")
	assert.True(t, shipping[1].Default)

	all, err := svc.List(ctx, owner, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := svc.List(ctx, stranger, "")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = svc.Create(ctx, owner, Address{Country: "US"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := NewService(repo, passTx{})

	a, err := svc.Create(ctx, owner, validAddress(TypeBilling))
	require.NoError(t, err)

	zip := "94105"
	updated, err := svc.Update(ctx, owner, a.ID, Patch{Zip: &zip})
	require.NoError(t, err)
	assert.Equal(t, "94105", updated.Zip)
	assert.Equal(t, "1 Main St", updated.StreetAddress)

	bad := "ZZ"
	_, err = svc.Update(ctx, owner, a.ID, Patch{Country: &bad})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "country", verr.Field)
	assert.Equal(t, "US", repo.rows[a.ID].Country, "invalid patches are not stored")

	_, err = svc.Update(ctx, stranger, a.ID, Patch{Zip: &zip})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemRepo(), passTx{})

	a, err := svc.Create(ctx, owner, validAddress(TypeBilling))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, stranger, a.ID), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, owner, a.ID))
	assert.ErrorIs(t, svc.Delete(ctx, owner, a.ID), ErrNotFound)
}

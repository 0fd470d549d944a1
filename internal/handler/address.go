package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-shop/internal/domain/address"
)

// ListAddresses returns the caller's addresses, optionally filtered by the
// address_type query parameter.
func (h *Handler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	var typ address.Type
	if raw := r.URL.Query().Get("address_type"); raw != "" && raw != "null" {
		t, ok := address.ParseType(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "address_type: not a valid choice")
			return
		}
		typ = t
	}

	list, err := h.addresses.List(r.Context(), userID(r), typ)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, a := range list {
				encodeAddress(e, a)
			}
		})
	})
}

// CreateAddress adds an address to the caller's address book.
func (h *Handler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	p, err := decodeAddressPatch(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var a address.Address
	p.Apply(&a)

	created, err := h.addresses.Create(r.Context(), userID(r), a)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeAddress(e, *created) })
}

// UpdateAddress changes one of the caller's addresses. PUT and PATCH both
// accept partial bodies.
func (h *Handler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Address not found")
		return
	}
	p, err := decodeAddressPatch(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	updated, err := h.addresses.Update(r.Context(), userID(r), id, p)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeAddress(e, *updated) })
}

// DeleteAddress removes one of the caller's addresses.
func (h *Handler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Address not found")
		return
	}
	if err := h.addresses.Delete(r.Context(), userID(r), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeAddressPatch(r *http.Request) (address.Patch, error) {
	var p address.Patch
	str := func(d *jx.Decoder, dst **string) error {
		s, err := decodeOptString(d)
		if err != nil {
			return err
		}
		*dst = &s
		return nil
	}
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "street_address":
			return str(d, &p.StreetAddress)
		case "apartment_address":
			return str(d, &p.ApartmentAddress)
		case "country":
			return str(d, &p.Country)
		case "zip":
			return str(d, &p.Zip)
		case "address_type":
			s, err := decodeOptString(d)
			if err != nil {
				return err
			}
			t, ok := address.ParseType(s)
			if !ok {
				return &address.ValidationError{Field: "address_type", Reason: "not a valid choice"}
			}
			p.Type = &t
			return nil
		case "default":
			b, err := d.Bool()
			if err != nil {
				return err
			}
			p.Default = &b
			return nil
		default:
			return d.Skip()
		}
	})
	return p, err
}

func encodeAddress(e *jx.Encoder, a address.Address) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(a.ID) })
		e.Field("user", func(e *jx.Encoder) { e.Str(a.UserID.String()) })
		e.Field("street_address", func(e *jx.Encoder) { e.Str(a.StreetAddress) })
		e.Field("apartment_address", func(e *jx.Encoder) { e.Str(a.ApartmentAddress) })
		e.Field("country", func(e *jx.Encoder) { e.Str(a.Country) })
		e.Field("zip", func(e *jx.Encoder) { e.Str(a.Zip) })
		e.Field("address_type", func(e *jx.Encoder) { e.Str(string(a.Type)) })
		e.Field("default", func(e *jx.Encoder) { e.Bool(a.Default) })
	})
}

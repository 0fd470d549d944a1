package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-shop/internal/domain/catalog"
	"github.com/xenking/kart-shop/internal/domain/order"
)

// AddToCart adds one unit of an item with the chosen variation values.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req order.AddToCartRequest
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "slug":
			req.Slug, err = decodeOptString(d)
		case "variations":
			req.Variations, err = decodeIDs(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	o, err := h.cart.AddToCart(r.Context(), userID(r), req)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusBadRequest, msgInvalidRequest)
			return
		}
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeOrder(e, o) })
}

// RemoveOne decrements the quantity of a cart line.
func (h *Handler) RemoveOne(w http.ResponseWriter, r *http.Request) {
	var req order.RemoveOneRequest
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "slug":
			req.Slug, err = decodeOptString(d)
		case "variations":
			req.Variations, err = decodeIDs(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if err := h.cart.RemoveOne(r.Context(), userID(r), req); err != nil {
		if errors.Is(err, order.ErrNoActiveOrder) {
			writeError(w, http.StatusBadRequest, msgNoActiveOrder)
			return
		}
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// DeleteOrderItem removes a line from the caller's cart.
func (h *Handler) DeleteOrderItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Order item not found")
		return
	}
	if err := h.cart.DeleteItem(r.Context(), userID(r), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OrderSummary returns the caller's active order.
func (h *Handler) OrderSummary(w http.ResponseWriter, r *http.Request) {
	o, err := h.cart.Summary(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeOrder(e, o) })
}

// AddCoupon attaches a coupon to the active order.
func (h *Handler) AddCoupon(w http.ResponseWriter, r *http.Request) {
	var code string
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key != "code" {
			return d.Skip()
		}
		var err error
		code, err = decodeOptString(d)
		return err
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	o, err := h.cart.ApplyCoupon(r.Context(), userID(r), code)
	if err != nil {
		if errors.Is(err, order.ErrNoActiveOrder) {
			writeError(w, http.StatusBadRequest, msgNoActiveOrder)
			return
		}
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeOrder(e, o) })
}

func (h *Handler) encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(o.ID) })
		e.Field("order_items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, oi := range o.Items {
					h.encodeOrderItem(e, oi)
				}
			})
		})
		e.Field("total", func(e *jx.Encoder) { encodeMoney(e, o.Total()) })
		e.Field("coupon", func(e *jx.Encoder) {
			if o.Coupon == nil {
				e.Null()
				return
			}
			e.Obj(func(e *jx.Encoder) {
				e.Field("id", func(e *jx.Encoder) { e.Int64(o.Coupon.ID) })
				e.Field("code", func(e *jx.Encoder) { e.Str(o.Coupon.Code) })
				e.Field("amount", func(e *jx.Encoder) { encodeMoney(e, o.Coupon.Amount) })
			})
		})
	})
}

func (h *Handler) encodeOrderItem(e *jx.Encoder, oi order.OrderItem) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(oi.ID) })
		e.Field("item", func(e *jx.Encoder) { h.encodeItem(e, oi.Item, false) })
		e.Field("item_variations", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, iv := range oi.Variations {
					e.Obj(func(e *jx.Encoder) {
						e.Field("id", func(e *jx.Encoder) { e.Int64(iv.ID) })
						e.Field("value", func(e *jx.Encoder) { e.Str(iv.Value) })
						e.Field("attachment", func(e *jx.Encoder) { e.Str(h.imageURL(iv.Attachment)) })
						e.Field("variation", func(e *jx.Encoder) {
							e.Obj(func(e *jx.Encoder) {
								e.Field("id", func(e *jx.Encoder) { e.Int64(iv.VariationID) })
								e.Field("name", func(e *jx.Encoder) { e.Str(iv.VariationName) })
							})
						})
					})
				}
			})
		})
		e.Field("quantity", func(e *jx.Encoder) { e.Int(oi.Quantity) })
		e.Field("final_price", func(e *jx.Encoder) { encodeMoney(e, oi.FinalPrice()) })
	})
}

package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-shop/internal/domain/payment"
)

// Checkout charges the caller's active order. Processor failures are
// reported as 400 with a message chosen by failure kind.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req payment.CheckoutRequest
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "stripeToken":
			req.Token, err = decodeOptString(d)
		case "selectedBillingAddress":
			req.BillingAddressID, err = decodeID(d)
		case "selectedShippingAddress":
			req.ShippingAddressID, err = decodeID(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	receipt, err := h.checkout.Checkout(r.Context(), userID(r), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("message", func(e *jx.Encoder) { e.Str(msgOrderSuccessful) })
			e.Field("ref_code", func(e *jx.Encoder) { e.Str(receipt.RefCode) })
		})
	})
}

// ListPayments returns the caller's payments.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	list, err := h.payments.ListByUser(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, p := range list {
				e.Obj(func(e *jx.Encoder) {
					e.Field("id", func(e *jx.Encoder) { e.Int64(p.ID) })
					e.Field("amount", func(e *jx.Encoder) { encodeMoney(e, p.Amount) })
					e.Field("timestamp", func(e *jx.Encoder) { encodeTime(e, p.CreatedAt) })
				})
			}
		})
	})
}

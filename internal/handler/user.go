package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-shop/internal/domain/order"
)

// GetUser returns the id of the authenticated user.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := userID(r)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("userID", func(e *jx.Encoder) { e.Str(id.String()) })
		})
	})
}

// RequestRefund records a refund request for one of the caller's orders.
func (h *Handler) RequestRefund(w http.ResponseWriter, r *http.Request) {
	var req order.RefundRequest
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "ref_code":
			req.RefCode, err = decodeOptString(d)
		case "message":
			req.Reason, err = decodeOptString(d)
		case "email":
			req.Email, err = decodeOptString(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if _, err := h.cart.RequestRefund(r.Context(), userID(r), req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Your request was received.")
}

package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-shop/internal/domain/address"
	"github.com/xenking/kart-shop/internal/domain/catalog"
	"github.com/xenking/kart-shop/internal/domain/coupon"
	"github.com/xenking/kart-shop/internal/domain/order"
	"github.com/xenking/kart-shop/internal/domain/payment"
	"github.com/xenking/kart-shop/internal/domain/profile"
)

// Customer-facing messages.
const (
	msgNoActiveOrder      = "You do not have an active order"
	msgItemNotInCart      = "This item was not in your cart"
	msgRequiredVariations = "Please specify the required variations"
	msgInvalidRequest     = "Invalid request"
	msgOrderSuccessful    = "Your order was successful!"
)

// writeDomainError maps a domain error to a response. Unknown errors are
// logged and reported as 500 without detail.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		failure     *payment.Failure
		addrInvalid *address.ValidationError
		refInvalid  *order.InvalidRefundError
	)
	switch {
	case errors.As(err, &failure):
		lg := zctx.From(r.Context())
		lg.Warn("Checkout failed", zap.Stringer("kind", failure.Kind), zap.Error(err))
		writeError(w, http.StatusBadRequest, failure.Message())

	case errors.As(err, &addrInvalid):
		writeError(w, http.StatusBadRequest, addrInvalid.Error())
	case errors.Is(err, errBadJSON):
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
	case errors.As(err, &refInvalid):
		writeError(w, http.StatusBadRequest, refInvalid.Error())
	case errors.Is(err, catalog.ErrIncompleteSelection):
		writeError(w, http.StatusBadRequest, msgRequiredVariations)
	case errors.Is(err, order.ErrItemNotInCart):
		writeError(w, http.StatusBadRequest, msgItemNotInCart)
	case errors.Is(err, order.ErrSlugRequired),
		errors.Is(err, order.ErrCouponCodeRequired),
		errors.Is(err, payment.ErrTokenRequired):
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
	case errors.Is(err, payment.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "Your cart is empty")
	case errors.Is(err, payment.ErrZeroTotal):
		writeError(w, http.StatusBadRequest, "Order total must be positive")
	case errors.Is(err, order.ErrRefundAlreadyGranted):
		writeError(w, http.StatusBadRequest, "A refund was already granted for this order")

	case errors.Is(err, order.ErrNoActiveOrder):
		writeError(w, http.StatusNotFound, msgNoActiveOrder)
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "Item not found")
	case errors.Is(err, coupon.ErrNotFound):
		writeError(w, http.StatusNotFound, "This coupon does not exist")
	case errors.Is(err, address.ErrNotFound):
		writeError(w, http.StatusNotFound, "Address not found")
	case errors.Is(err, order.ErrOrderItemNotFound):
		writeError(w, http.StatusNotFound, "Order item not found")
	case errors.Is(err, order.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, profile.ErrNotFound):
		writeError(w, http.StatusNotFound, "User profile not found")

	default:
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/xenking/kart-shop/internal/domain/address"
	"github.com/xenking/kart-shop/internal/domain/catalog"
	"github.com/xenking/kart-shop/internal/domain/order"
	"github.com/xenking/kart-shop/internal/domain/payment"
)

// Cart is the cart and order bookkeeping used by the handlers.
type Cart interface {
	AddToCart(ctx context.Context, userID uuid.UUID, req order.AddToCartRequest) (*order.Order, error)
	RemoveOne(ctx context.Context, userID uuid.UUID, req order.RemoveOneRequest) error
	DeleteItem(ctx context.Context, userID uuid.UUID, orderItemID int64) error
	Summary(ctx context.Context, userID uuid.UUID) (*order.Order, error)
	ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*order.Order, error)
	RequestRefund(ctx context.Context, userID uuid.UUID, req order.RefundRequest) (*order.Refund, error)
}

// AddressBook manages the caller's addresses.
type AddressBook interface {
	List(ctx context.Context, userID uuid.UUID, typ address.Type) ([]address.Address, error)
	Create(ctx context.Context, userID uuid.UUID, a address.Address) (*address.Address, error)
	Update(ctx context.Context, userID uuid.UUID, id int64, p address.Patch) (*address.Address, error)
	Delete(ctx context.Context, userID uuid.UUID, id int64) error
}

// Checkout pays the active order.
type Checkout interface {
	Checkout(ctx context.Context, userID uuid.UUID, req payment.CheckoutRequest) (*payment.Receipt, error)
}

// PaymentHistory lists a user's payments.
type PaymentHistory interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]payment.Payment, error)
}

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in item responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Deps are the domain collaborators of the Handler.
type Deps struct {
	Catalog   catalog.Repository
	Cart      Cart
	Addresses AddressBook
	Checkout  Checkout
	Payments  PaymentHistory
	Auth      *Authenticator
}

// Handler serves the shop REST API.
type Handler struct {
	catalog   catalog.Repository
	cart      Cart
	addresses AddressBook
	checkout  Checkout
	payments  PaymentHistory
	auth      *Authenticator

	imageBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cfg HandlerConfig, deps Deps) *Handler {
	return &Handler{
		catalog:      deps.Catalog,
		cart:         deps.Cart,
		addresses:    deps.Addresses,
		checkout:     deps.Checkout,
		payments:     deps.Payments,
		auth:         deps.Auth,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes returns the API router. Paths keep their trailing slash.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/products/", h.ListProducts)
	r.Get("/products/{id}/", h.GetProduct)
	r.Get("/countries/", h.ListCountries)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.Require)

		r.Get("/user/", h.GetUser)

		r.Post("/add-to-cart/", h.AddToCart)
		r.Post("/order-items/update-quantity/", h.RemoveOne)
		r.Delete("/order-items/{id}/delete/", h.DeleteOrderItem)
		r.Get("/order-summary/", h.OrderSummary)
		r.Post("/add-coupon/", h.AddCoupon)

		r.Get("/addresses/", h.ListAddresses)
		r.Post("/addresses/", h.CreateAddress)
		r.Put("/addresses/{id}/update/", h.UpdateAddress)
		r.Patch("/addresses/{id}/update/", h.UpdateAddress)
		r.Delete("/addresses/{id}/delete/", h.DeleteAddress)

		r.Post("/checkout/", h.Checkout)
		r.Get("/payments/", h.ListPayments)
		r.Post("/request-refund/", h.RequestRefund)
	})
	return r
}

func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

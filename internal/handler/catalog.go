package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-shop/internal/countries"
	"github.com/xenking/kart-shop/internal/domain/catalog"
)

// ListProducts returns every catalog item.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, it := range items {
				h.encodeItem(e, it, false)
			}
		})
	})
}

// GetProduct returns one item with its variations.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}
	item, err := h.catalog.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.encodeItem(e, *item, true)
	})
}

// ListCountries returns the country choices as a code to name object,
// ordered by name.
func (h *Handler) ListCountries(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			for _, c := range countries.All() {
				e.Field(c.Code, func(e *jx.Encoder) { e.Str(c.Name) })
			}
		})
	})
}

func (h *Handler) imageURL(path string) string {
	if h.imageBaseURL == "" || path == "" || strings.Contains(path, "://") {
		return path
	}
	return strings.TrimRight(h.imageBaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func (h *Handler) encodeItem(e *jx.Encoder, it catalog.Item, withVariations bool) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(it.ID) })
		e.Field("title", func(e *jx.Encoder) { e.Str(it.Title) })
		e.Field("price", func(e *jx.Encoder) { encodeMoney(e, it.Price) })
		e.Field("discount_price", func(e *jx.Encoder) {
			if it.DiscountPrice.Valid {
				encodeMoney(e, it.DiscountPrice.Decimal)
				return
			}
			e.Null()
		})
		e.Field("category", func(e *jx.Encoder) { e.Str(it.CategoryName()) })
		e.Field("label", func(e *jx.Encoder) { e.Str(it.LabelName()) })
		e.Field("slug", func(e *jx.Encoder) { e.Str(it.Slug) })
		e.Field("description", func(e *jx.Encoder) { e.Str(it.Description) })
		e.Field("image", func(e *jx.Encoder) { e.Str(h.imageURL(it.Image)) })

		if !withVariations {
			return
		}
		e.Field("variations", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, v := range it.Variations {
					e.Obj(func(e *jx.Encoder) {
						e.Field("id", func(e *jx.Encoder) { e.Int64(v.ID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(v.Name) })
						e.Field("item_variations", func(e *jx.Encoder) {
							e.Arr(func(e *jx.Encoder) {
								for _, iv := range v.Values {
									e.Obj(func(e *jx.Encoder) {
										e.Field("id", func(e *jx.Encoder) { e.Int64(iv.ID) })
										e.Field("value", func(e *jx.Encoder) { e.Str(iv.Value) })
										e.Field("attachment", func(e *jx.Encoder) { e.Str(h.imageURL(iv.Attachment)) })
									})
								}
							})
						})
					})
				}
			})
		})
	})
}

//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
)

// findItem returns the seeded item with slug, including its variations.
func findItem(t *testing.T, slug string) itemResponse {
	t.Helper()

	resp := doGet(t, "/api/products/")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	for _, it := range decodeJSON[[]itemResponse](t, resp) {
		if it.Slug != slug {
			continue
		}
		detail := doGet(t, fmt.Sprintf("/api/products/%d/", it.ID))
		defer detail.Body.Close()
		expectStatus(t, detail, http.StatusOK)
		return decodeJSON[itemResponse](t, detail)
	}
	t.Fatalf("item %q not seeded", slug)
	return itemResponse{}
}

// pick returns the id of the value named value of the variation named name.
func pick(t *testing.T, it itemResponse, name, value string) int64 {
	t.Helper()
	for _, v := range it.Variations {
		if v.Name != name {
			continue
		}
		for _, iv := range v.ItemVariations {
			if iv.Value == value {
				return iv.ID
			}
		}
	}
	t.Fatalf("%s has no %s=%s", it.Slug, name, value)
	return 0
}

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products/")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	items := decodeJSON[[]itemResponse](t, resp)
	if len(items) != seededItems {
		t.Fatalf("expected %d items, got %d", seededItems, len(items))
	}
	for _, it := range items {
		if it.Slug == "" || it.Title == "" || it.Price <= 0 {
			t.Errorf("incomplete item: %+v", it)
		}
	}
}

func TestGetProduct(t *testing.T) {
	tee := findItem(t, "classic-tee")

	if tee.Category != "Shirt" {
		t.Errorf("category: got %q, want Shirt", tee.Category)
	}
	if tee.DiscountPrice == nil || *tee.DiscountPrice != 15.5 {
		t.Errorf("discount_price: got %v, want 15.5", tee.DiscountPrice)
	}
	if len(tee.Variations) != 2 {
		t.Fatalf("expected 2 variations, got %d", len(tee.Variations))
	}
	if !strings.HasSuffix(tee.Image, "items/classic-tee.jpg") {
		t.Errorf("image: got %q", tee.Image)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/999999/")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusNotFound)

	body := decodeJSON[errorResponse](t, resp)
	if body.Code != http.StatusNotFound || body.Message == "" {
		t.Errorf("unexpected error body: %+v", body)
	}
}

func TestListCountries(t *testing.T) {
	resp := doGet(t, "/api/countries/")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	countries := decodeJSON[map[string]string](t, resp)
	if countries["DE"] != "Germany" {
		t.Errorf("DE: got %q, want Germany", countries["DE"])
	}
}

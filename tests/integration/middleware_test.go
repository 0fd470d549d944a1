//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"
)

func send(t *testing.T, method, path string, headers map[string]string) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, baseURL+path, nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func TestRequestID(t *testing.T) {
	resp := send(t, http.MethodGet, "/livez", nil)
	defer resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not generated")
	}

	resp = send(t, http.MethodGet, "/livez", map[string]string{"X-Request-ID": "kart-trace-42"})
	defer resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "kart-trace-42" {
		t.Errorf("X-Request-ID: got %q, want kart-trace-42", got)
	}
}

func TestCORS(t *testing.T) {
	origin := map[string]string{"Origin": "http://shop.example.com"}

	preflight := send(t, http.MethodOptions, "/api/add-to-cart/", map[string]string{
		"Origin":                         "http://shop.example.com",
		"Access-Control-Request-Method":  "POST",
		"Access-Control-Request-Headers": "api_key, content-type",
	})
	defer preflight.Body.Close()
	expectStatus(t, preflight, http.StatusNoContent)
	for _, h := range []string{"Access-Control-Allow-Origin", "Access-Control-Allow-Methods", "Access-Control-Allow-Headers"} {
		if preflight.Header.Get(h) == "" {
			t.Errorf("%s missing on preflight", h)
		}
	}

	resp := send(t, http.MethodGet, "/api/products/", origin)
	defer resp.Body.Close()
	if resp.Header.Get("Access-Control-Allow-Origin") == "" {
		t.Error("Access-Control-Allow-Origin missing on simple request")
	}
}

func TestUnknownRoute(t *testing.T) {
	resp := doGet(t, "/api/does-not-exist/")
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusNotFound)
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID missing on 404")
	}
}

//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestHealthEndpoints(t *testing.T) {
	for _, path := range []string{"/livez", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			resp := doGet(t, path)
			defer resp.Body.Close()
			expectStatus(t, resp, http.StatusOK)

			if body := decodeJSON[healthResponse](t, resp); body.Status != "ok" || len(body.Checks) != 0 {
				t.Fatalf("unexpected health body: %+v", body)
			}
		})
	}
}

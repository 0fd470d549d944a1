package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

type fakeClock struct {
	t time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func request(remote string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/products/", nil)
	req.RemoteAddr = remote
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_UnderLimit(t *testing.T) {
	clock := newClock()
	h := RateLimit(RateLimitConfig{Max: 5, Window: time.Minute, Now: clock.Now})(okHandler())

	for i := range 5 {
		w := serve(h, request("192.168.1.1:12345"))
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(4-i), w.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	clock := newClock()
	h := RateLimit(RateLimitConfig{Max: 2, Window: time.Minute, Now: clock.Now})(okHandler())

	for range 2 {
		require.Equal(t, http.StatusOK, serve(h, request("10.0.0.1:9999")).Code)
	}

	w := serve(h, request("10.0.0.1:9999"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.EqualValues(t, 429, body["code"])
	assert.Equal(t, "rate limit exceeded", body["message"])
}

func TestRateLimit_SlidingWindow(t *testing.T) {
	clock := newClock()
	h := RateLimit(RateLimitConfig{Max: 4, Window: time.Minute, Now: clock.Now})(okHandler())

	for range 4 {
		require.Equal(t, http.StatusOK, serve(h, request("10.0.0.1:1")).Code)
	}
	require.Equal(t, http.StatusTooManyRequests, serve(h, request("10.0.0.1:1")).Code)

	// Half way into the next window the previous one still weighs 2.
	clock.Advance(90 * time.Second)
	assert.Equal(t, http.StatusOK, serve(h, request("10.0.0.1:1")).Code)
	assert.Equal(t, http.StatusOK, serve(h, request("10.0.0.1:1")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, request("10.0.0.1:1")).Code)

	// Two idle windows reset the budget.
	clock.Advance(2 * time.Minute)
	assert.Equal(t, "3", serve(h, request("10.0.0.1:1")).Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimit_DifferentIPs(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute, Now: newClock().Now})(okHandler())

	assert.Equal(t, http.StatusOK, serve(h, request("10.0.0.1:1234")).Code)
	assert.Equal(t, http.StatusOK, serve(h, request("10.0.0.2:1234")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, request("10.0.0.1:5678")).Code)
}

func TestRateLimit_IgnoresCredentialHeaders(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 2, Window: time.Minute, Now: newClock().Now})(okHandler())

	withHeaders := func(i int) *http.Request {
		req := request("10.0.0.1:1")
		req.Header.Set("api_key", "garbage-"+strconv.Itoa(i))
		req.Header.Set("Authorization", "Bearer "+strconv.Itoa(i))
		return req
	}

	assert.Equal(t, http.StatusOK, serve(h, withHeaders(1)).Code)
	assert.Equal(t, http.StatusOK, serve(h, withHeaders(2)).Code)
	for i := 3; i < 10; i++ {
		assert.Equal(t, http.StatusTooManyRequests, serve(h, withHeaders(i)).Code, "request %d", i)
	}
}

func TestLimiter_OneCounterPerAddress(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 100, Window: time.Minute, Now: newClock().Now})
	h := l.middleware(okHandler())

	for i := range 20 {
		req := request("10.0.0.1:1")
		req.Header.Set("api_key", "key-"+strconv.Itoa(i))
		serve(h, req)
	}
	assert.Len(t, l.counters, 1)
}

func TestRateLimit_XForwardedFor(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute, Now: newClock().Now})(okHandler())

	req := request("192.168.1.1:4444")
	req.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18")
	assert.Equal(t, http.StatusOK, serve(h, req).Code)

	req = request("192.168.1.2:5555")
	req.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18")
	assert.Equal(t, http.StatusTooManyRequests, serve(h, req).Code)
}

func TestLimiter_Evict(t *testing.T) {
	clock := newClock()
	l := newLimiter(RateLimitConfig{Max: 1, Window: time.Minute, Now: clock.Now})
	l.take("a", clock.Now())
	clock.Advance(time.Minute)
	l.take("b", clock.Now())

	clock.Advance(90 * time.Second)
	l.evict(clock.Now())
	assert.NotContains(t, l.counters, "a")
	assert.Contains(t, l.counters, "b")
}

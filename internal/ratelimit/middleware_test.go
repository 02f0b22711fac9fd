package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func serveTwice(t *testing.T, h http.Handler, remoteAddr string) (*httptest.ResponseRecorder, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/a/coupon", nil)
	req.RemoteAddr = remoteAddr
	rr1 := httptest.NewRecorder()
	h.ServeHTTP(rr1, req.Clone(req.Context()))
	rr2 := httptest.NewRecorder()
	h.ServeHTTP(rr2, req.Clone(req.Context()))
	return rr1, rr2
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHandlerMiddlewareEnforcesLimitInMemory(t *testing.T) {
	lim, err := New("1-M", nil, "test")
	require.NoError(t, err)

	counted := Handler{Limiter: lim, Name: "coupon"}.Middleware(okHandler())
	rr1, rr2 := serveTwice(t, counted, "10.0.0.1:1234")

	require.Equal(t, http.StatusOK, rr1.Code)
	require.Equal(t, http.StatusTooManyRequests, rr2.Code)
	require.Equal(t, "1", rr2.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", rr2.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, rr2.Header().Get("Retry-After"))
	require.Contains(t, rr2.Body.String(), "RATE_LIMITED")

	other, _ := serveTwice(t, counted, "10.0.0.2:1234")
	require.Equal(t, http.StatusOK, other.Code)
}

func TestHandlerMiddlewareEnforcesLimitRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	lim, err := New("1-M", client, "test")
	require.NoError(t, err)

	counted := Handler{
		Limiter: lim,
		Key:     func(*http.Request) string { return "static" },
	}.Middleware(okHandler())
	rr1, rr2 := serveTwice(t, counted, "10.0.0.1:1234")

	require.Equal(t, http.StatusOK, rr1.Code)
	require.Equal(t, http.StatusTooManyRequests, rr2.Code)
}

func TestHandlerMiddlewareOnError(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	lim, err := New("1-M", client, "test")
	require.NoError(t, err)
	mr.Close()

	called := false
	counted := Handler{Limiter: lim, OnError: func(error) { called = true }}.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()
	counted.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, called)
}

func TestNewRejectsMalformedRate(t *testing.T) {
	_, err := New("lots", nil, "")
	require.Error(t, err)
}

func TestNilLimiterPassesThrough(t *testing.T) {
	rr := httptest.NewRecorder()
	Handler{}.Middleware(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/marketplace-cart/internal/config"
	"github.com/noah-isme/marketplace-cart/internal/handoff"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:          "test",
		HandoffTTL:      time.Minute,
		QuantityMin:     1,
		QuantityMax:     10,
		CouponNoticeTTL: 3 * time.Second,
		CouponRateLimit: "100-M",
		SecurityHeaders: true,
		Obs: config.ObsConfig{
			MetricsNamespace: "cart_app_test",
			EnablePrometheus: true,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (http.Handler, *Dependencies) {
	t.Helper()
	reg := prometheus.NewRegistry()
	deps, cleanup, err := NewDependencies(context.Background(), cfg, zerolog.Nop(), reg, reg)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return NewRouter(deps, NewServices(deps)), deps
}

func call(t *testing.T, h http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "192.0.2.10:4000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var out map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	}
	return rr.Code, out
}

func dataOf(body map[string]any) map[string]any {
	return body["data"].(map[string]any)
}

func TestCartToOrderFlow(t *testing.T) {
	h, _ := newTestServer(t, testConfig())

	code, body := call(t, h, http.MethodPost, "/api/v1/carts", `{"items":[{"id":"kit","title":"UI Kit","quantity":"1","license":"personal","licenses":[{"name":"personal","price":"$49.00"},{"name":"commercial","price":"$99.00"}]}]}`)
	require.Equal(t, http.StatusCreated, code)
	id := dataOf(body)["cartId"].(string)

	code, _ = call(t, h, http.MethodPost, "/api/v1/carts/"+id+"/coupon", `{"code":"SAVE10"}`)
	require.Equal(t, http.StatusOK, code)
	code, body = call(t, h, http.MethodPatch, "/api/v1/carts/"+id+"/items/kit", `{"license":"commercial"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "$89.10", dataOf(body)["total"])

	code, _ = call(t, h, http.MethodPost, "/api/v1/carts/"+id+"/checkout", "")
	require.Equal(t, http.StatusOK, code)

	code, body = call(t, h, http.MethodPost, "/api/v1/checkout/"+id, "")
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, "$89.10", dataOf(body)["total"])
	require.Equal(t, "SAVE10", dataOf(body)["discountCode"])

	code, body = call(t, h, http.MethodPost, "/api/v1/checkout/"+id, "")
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "NO_HANDOFF", body["error"].(map[string]any)["code"])

	code, _ = call(t, h, http.MethodPut, "/api/v1/checkout/"+id+"/payment", `{"method":"stripe"}`)
	require.Equal(t, http.StatusOK, code)

	order := `{"customer":{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","country":"UK","city":"London","agreeTerms":true}}`
	code, body = call(t, h, http.MethodPost, "/api/v1/checkout/"+id+"/order", order)
	require.Equal(t, http.StatusCreated, code)
	require.EqualValues(t, 8910, dataOf(body)["total"])
	require.Equal(t, "stripe", dataOf(body)["paymentMethod"])
	require.NotEmpty(t, dataOf(body)["orderNumber"])
}

func TestCouponRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.CouponRateLimit = "2-M"
	h, _ := newTestServer(t, cfg)

	_, body := call(t, h, http.MethodPost, "/api/v1/carts", "")
	id := dataOf(body)["cartId"].(string)

	for i := 0; i < 2; i++ {
		code, _ := call(t, h, http.MethodPost, "/api/v1/carts/"+id+"/coupon", `{"code":"SAVE20"}`)
		require.Equal(t, http.StatusOK, code)
	}
	code, body := call(t, h, http.MethodPost, "/api/v1/carts/"+id+"/coupon", `{"code":"SAVE20"}`)
	require.Equal(t, http.StatusTooManyRequests, code)
	require.Equal(t, "RATE_LIMITED", body["error"].(map[string]any)["code"])

	code, _ = call(t, h, http.MethodGet, "/api/v1/carts/"+id, "")
	require.Equal(t, http.StatusOK, code)
}

func TestDefaultCatalogSeedsCart(t *testing.T) {
	h, _ := newTestServer(t, testConfig())
	code, body := call(t, h, http.MethodPost, "/api/v1/carts", "")
	require.Equal(t, http.StatusCreated, code)
	view := dataOf(body)["cart"].(map[string]any)
	require.EqualValues(t, len(DefaultCatalog()), view["itemCount"])
	require.Equal(t, "$78.00", view["total"])
}

func TestRedisBackedDependencies(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := testConfig()
	cfg.RedisURL = "redis://" + mr.Addr()
	h, deps := newTestServer(t, cfg)
	require.IsType(t, handoff.GuardedStore{}, deps.Handoff)

	_, body := call(t, h, http.MethodPost, "/api/v1/carts", "")
	id := dataOf(body)["cartId"].(string)
	code, _ := call(t, h, http.MethodPost, "/api/v1/carts/"+id+"/checkout", "")
	require.Equal(t, http.StatusOK, code)
	require.True(t, mr.Exists(handoff.Key(id)))

	code, body = call(t, h, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", body["handoff"])
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestServer(t, testConfig())
	call(t, h, http.MethodGet, "/health/live", "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "cart_app_test_http_requests_total")
}

func TestSecurityMiddleware(t *testing.T) {
	h, _ := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	oversized := `{"code":"` + strings.Repeat("A", 1<<20) + `"}`
	code, body := call(t, h, http.MethodPost, "/api/v1/coupons/preview", oversized)
	require.Equal(t, http.StatusRequestEntityTooLarge, code)
	require.Equal(t, "PAYLOAD_TOO_LARGE", body["error"].(map[string]any)["code"])
}

func TestNewDependenciesRejectsBadCoupons(t *testing.T) {
	cfg := testConfig()
	cfg.CouponCodes = "BROKEN"
	_, _, err := NewDependencies(context.Background(), cfg, zerolog.Nop(), prometheus.NewRegistry(), nil)
	require.Error(t, err)
}

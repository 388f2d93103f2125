package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secforge/billing/internal/domain/catalog"
	"github.com/secforge/billing/internal/infrastructure/auth"
	"github.com/secforge/billing/internal/infrastructure/config"
	"github.com/secforge/billing/internal/infrastructure/repository"
	"github.com/secforge/billing/internal/infrastructure/repository/testdb"
	sharedConfig "github.com/secforge/billing/internal/shared/config"
	"github.com/secforge/billing/internal/shared/logger"
)

const testJWTSecret = "router-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: sharedConfig.ServerConfig{AllowedOrigins: []string{"*"}},
		Auth: sharedConfig.AuthConfig{JWT: sharedConfig.JWTConfig{
			Secret:           testJWTSecret,
			Issuer:           "billing",
			AccessExpMinutes: 15,
		}},
		Payments: sharedConfig.PaymentsConfig{
			Provider: "razorpay",
			Mock:     true,
			Currency: "INR",
		},
		Catalog: sharedConfig.CatalogConfig{FreeByDefault: []string{"challenge"}},
		Plans: sharedConfig.PlansConfig{
			Default: "free",
			Tiers: []sharedConfig.TierConfig{
				{Name: "free"},
				{Name: "basic", Price: 19900, PeriodDays: 30},
				{Name: "pro", Price: 49900, PeriodDays: 30},
			},
		},
	}
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

type routerFixture struct {
	router *Router
	token  string
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	gdb := testdb.New(t)
	log := logger.NewNopLogger()

	price := int64(499)
	rule, err := catalog.NewRule("course", "c1", nil, &price, "INR", true)
	require.NoError(t, err)
	require.NoError(t, repository.NewCatalogRepository(gdb, log).Upsert(context.Background(), rule))

	router, err := NewRouter(gdb, testConfig(), log)
	require.NoError(t, err)
	router.SetupRoutes()
	t.Cleanup(router.Shutdown)

	token, err := auth.NewJWTService(testJWTSecret, "billing", 15).Generate("u1")
	require.NoError(t, err)

	return &routerFixture{router: router, token: token}
}

func (f *routerFixture) do(t *testing.T, method, path string, body any, authed bool) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	w := httptest.NewRecorder()
	f.router.GetEngine().ServeHTTP(w, req)

	var env apiEnvelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

type decisionBody struct {
	Allow           bool   `json:"allow"`
	Reason          string `json:"reason"`
	IndividualPrice int64  `json:"individual_price"`
	Priced          bool   `json:"priced"`
}

func decodeDecision(t *testing.T, env apiEnvelope) decisionBody {
	t.Helper()
	var d decisionBody
	require.NoError(t, json.Unmarshal(env.Data, &d))
	return d
}

func TestRouter_PurchaseFlowInMockMode(t *testing.T) {
	f := newRouterFixture(t)

	w, env := f.do(t, stdhttp.MethodGet, "/access/course/c1", nil, false)
	require.Equal(t, stdhttp.StatusOK, w.Code)
	d := decodeDecision(t, env)
	assert.False(t, d.Allow)
	assert.Equal(t, "NO_AUTH", d.Reason)
	assert.Equal(t, int64(499), d.IndividualPrice)
	assert.True(t, d.Priced)

	w, env = f.do(t, stdhttp.MethodPost, "/payments", map[string]any{
		"action":       "create",
		"content_type": "course",
		"content_id":   "c1",
	}, true)
	require.Equal(t, stdhttp.StatusCreated, w.Code, w.Body.String())
	var order struct {
		OrderID string `json:"order_id"`
		Amount  int64  `json:"amount"`
		Mock    bool   `json:"mock"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.True(t, order.Mock)
	assert.Equal(t, int64(499), order.Amount)

	w, _ = f.do(t, stdhttp.MethodPost, "/payments", map[string]any{
		"action":     "verify",
		"order_id":   order.OrderID,
		"payment_id": "pay_router_1",
		"signature":  "mock",
	}, true)
	require.Equal(t, stdhttp.StatusOK, w.Code, w.Body.String())

	w, env = f.do(t, stdhttp.MethodGet, "/access/course/c1", nil, true)
	require.Equal(t, stdhttp.StatusOK, w.Code)
	assert.Equal(t, "PURCHASE_OK", decodeDecision(t, env).Reason)

	w, env = f.do(t, stdhttp.MethodGet, "/access/course/c1/reconstruct", nil, true)
	require.Equal(t, stdhttp.StatusOK, w.Code)
	assert.Equal(t, "PURCHASE_OK", decodeDecision(t, env).Reason)

	w, _ = f.do(t, stdhttp.MethodGet, "/metrics", nil, false)
	require.Equal(t, stdhttp.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `billing_access_decisions_total{path="atomic",reason="PURCHASE_OK"} 1`)
	assert.Contains(t, w.Body.String(), `billing_payment_verifications_total{outcome="success"} 1`)
}

func TestRouter_AuthBoundaries(t *testing.T) {
	f := newRouterFixture(t)

	w, _ := f.do(t, stdhttp.MethodPost, "/payments", map[string]any{"action": "create", "plan": "pro"}, false)
	assert.Equal(t, stdhttp.StatusUnauthorized, w.Code)

	w, _ = f.do(t, stdhttp.MethodGet, "/me/plan", nil, false)
	assert.Equal(t, stdhttp.StatusUnauthorized, w.Code)

	w, env := f.do(t, stdhttp.MethodGet, "/me/plan", nil, true)
	require.Equal(t, stdhttp.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"tier":"free"`)

	w, env = f.do(t, stdhttp.MethodGet, "/catalog/course/c1", nil, false)
	require.Equal(t, stdhttp.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"found":true`)

	w, env = f.do(t, stdhttp.MethodGet, "/access/challenge/daily", nil, false)
	require.Equal(t, stdhttp.StatusOK, w.Code)
	assert.Equal(t, "FREE_CHALLENGE", decodeDecision(t, env).Reason)
}

func TestRouter_WebhookAndHealth(t *testing.T) {
	f := newRouterFixture(t)

	w, env := f.do(t, stdhttp.MethodPost, "/webhooks/mock", map[string]any{
		"id":    "evt_router_1",
		"event": "order.paid.later",
	}, false)
	require.Equal(t, stdhttp.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"received":true`)

	w, _ = f.do(t, stdhttp.MethodPost, "/webhooks/stripe", map[string]any{"event": "x"}, false)
	assert.Equal(t, stdhttp.StatusNotFound, w.Code)

	w, _ = f.do(t, stdhttp.MethodGet, "/healthz", nil, false)
	assert.Equal(t, stdhttp.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secforge/billing/internal/infrastructure/auth"
	"github.com/secforge/billing/internal/shared/constants"
	"github.com/secforge/billing/internal/shared/logger"
	"github.com/secforge/billing/internal/shared/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func whoAmI(c *gin.Context) {
	c.String(http.StatusOK, UserID(c))
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newAuthEngine(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	jwtService := auth.NewJWTService("test-secret", "billing", 15)
	token, err := jwtService.Generate("u1")
	require.NoError(t, err)

	m := NewAuthMiddleware(jwtService, logger.NewNopLogger())
	r := gin.New()
	r.GET("/required", m.RequireAuth(), whoAmI)
	r.GET("/optional", m.OptionalAuth(), whoAmI)
	return r, token
}

func TestRequireAuth(t *testing.T) {
	r, token := newAuthEngine(t)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer " + token, http.StatusOK, "u1"},
		{"lower-case scheme", "bearer " + token, http.StatusOK, "u1"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized, ""},
		{"tampered token", "Bearer " + token + "x", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/required", nil)
			if tt.header != "" {
				req.Header.Set(constants.HeaderAuthorization, tt.header)
			}
			w := serve(r, req)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, w.Body.String())
				return
			}
			var resp utils.APIResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, "unauthorized", resp.Error.Type)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	r, token := newAuthEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/optional", nil)
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/optional", nil)
	req.Header.Set(constants.HeaderAuthorization, "Bearer garbage")
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/optional", nil)
	req.Header.Set(constants.HeaderAuthorization, "Bearer "+token)
	w = serve(r, req)
	assert.Equal(t, "u1", w.Body.String())
}

func TestRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	r := gin.New()
	r.POST("/payments", func(c *gin.Context) {
		c.Set(constants.ContextKeyUserID, c.GetHeader("X-Test-User"))
		c.Next()
	}, NewRateLimiter(client, "payments", 2, time.Minute).Limit(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	post := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/payments", nil)
		req.Header.Set("X-Test-User", user)
		return serve(r, req)
	}

	assert.Equal(t, http.StatusCreated, post("u1").Code)
	assert.Equal(t, http.StatusCreated, post("u1").Code)

	w := post("u1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.True(t, retryAfter > 0 && retryAfter <= 60, retryAfter)

	assert.Equal(t, http.StatusCreated, post("u2").Code, "limits are per user")
}

func TestRateLimiterFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	r := gin.New()
	r.POST("/payments", NewRateLimiter(client, "payments", 1, time.Minute).Limit(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusCreated, serve(r, httptest.NewRequest(http.MethodPost, "/payments", nil)).Code)
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	r := gin.New()
	r.POST("/payments", NewRateLimiter(nil, "payments", 1, time.Minute).Limit(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusCreated, serve(r, httptest.NewRequest(http.MethodPost, "/payments", nil)).Code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(constants.ContextKeyRequestID))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(constants.HeaderXRequestID, "req-1")
	w := serve(r, req)
	assert.Equal(t, "req-1", w.Body.String())
	assert.Equal(t, "req-1", w.Header().Get(constants.HeaderXRequestID))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Body.String())
	assert.Equal(t, w.Body.String(), w.Header().Get(constants.HeaderXRequestID))
}

type observed struct {
	method, route, status string
}

type fakeObserver struct{ calls []observed }

func (f *fakeObserver) ObserveHTTP(method, route, status string, _ float64) {
	f.calls = append(f.calls, observed{method, route, status})
}

func TestCustomLoggerObservesRoutes(t *testing.T) {
	obs := &fakeObserver{}
	r := gin.New()
	r.Use(CustomLogger(logger.NewNopLogger(), obs))
	r.GET("/catalog/:ct/:cid", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, httptest.NewRequest(http.MethodGet, "/catalog/course/c1", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	require.Len(t, obs.calls, 2)
	assert.Equal(t, observed{"GET", "/catalog/:ct/:cid", "200"}, obs.calls[0])
	assert.Equal(t, observed{"GET", "unmatched", "404"}, obs.calls[1])
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://app.example.com"}), SecurityHeaders())
	r.POST("/payments", func(c *gin.Context) { c.Status(http.StatusCreated) })

	req := httptest.NewRequest(http.MethodOptions, "/payments", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodPost, "/payments", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = serve(r, req)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(logger.NewNopLogger()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(constants.HeaderAuthorization, "Bearer secret")
	w := serve(r, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "internal_error", resp.Error.Type)
}

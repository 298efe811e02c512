package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"posbackend/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": CurrentUserID(c), "role": c.GetString(ContextUserRole)})
	})
	r.GET("/protected", handlers...)
	return r
}

func do(r http.Handler, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func TestRequireAuth(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Minute, time.Hour)
	r := newRouter(RequireAuth(tokens))

	token, _, err := tokens.IssueAccessToken("user-1", "alice", "cashier")
	require.NoError(t, err)

	w := do(r, bearer(token))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user":"user-1"`)

	w = do(r, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	})
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusUnauthorized, do(r, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, bearer("garbage")).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, func(req *http.Request) {
		req.Header.Set("Authorization", "Token "+token)
	}).Code)

	other := auth.NewTokenManager("other-secret", time.Minute, time.Hour)
	forged, _, err := other.IssueAccessToken("user-1", "alice", "admin")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, bearer(forged)).Code)
}

func TestRequireRole(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Minute, time.Hour)
	r := newRouter(RequireRole(tokens, "admin"))

	cashier, _, err := tokens.IssueAccessToken("user-1", "alice", "cashier")
	require.NoError(t, err)
	admin, _, err := tokens.IssueAccessToken("user-2", "root", "admin")
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, do(r, bearer(cashier)).Code)
	w := do(r, bearer(admin))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"admin"`)
}

func TestRateLimiter(t *testing.T) {
	limiter := PerMinute(1, 2)
	r := newRouter(limiter.Middleware())

	assert.Equal(t, http.StatusOK, do(r, nil).Code)
	assert.Equal(t, http.StatusOK, do(r, nil).Code)
	w := do(r, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	// A different client has its own bucket.
	assert.Equal(t, http.StatusOK, do(r, func(req *http.Request) { req.RemoteAddr = "10.0.0.9:1234" }).Code)
}

func TestRateLimiterCleanup(t *testing.T) {
	limiter := PerMinute(10, 1)
	now := time.Now()
	limiter.now = func() time.Time { return now }
	limiter.getVisitor("1.2.3.4")

	limiter.now = func() time.Time { return now.Add(visitorIdleTTL + time.Second) }
	limiter.cleanup()
	assert.Empty(t, limiter.visitors)
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	r := newRouter(RequestLogger(), Metrics())

	w := do(r, nil)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = do(r, func(req *http.Request) { req.Header.Set(RequestIDHeader, "abc") })
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
}

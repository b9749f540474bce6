package middleware

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZeldaFan0225/expense-flow/internal/database"
	"github.com/ZeldaFan0225/expense-flow/internal/models"
	"github.com/ZeldaFan0225/expense-flow/internal/ratelimit"
	"github.com/ZeldaFan0225/expense-flow/internal/store"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "gate-test-secret"

type gateEnv struct {
	router *gin.Engine
	stores *store.Stores
	db     *gorm.DB
	userID uint
}

func newGateEnv(t *testing.T, limiter *ratelimit.Limiter) *gateEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	user := models.User{Username: "gatekeeper", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)

	stores := store.New(db)
	if limiter == nil {
		limiter = ratelimit.New(1000, time.Minute)
	}

	r := gin.New()
	protected := r.Group("/api")
	protected.Use(Gate(stores, testSecret, limiter))
	ok := func(c *gin.Context) { util.Success(c, util.Response{"ok": true}) }
	protected.GET("/read", RequireScope(util.ScopeExpensesRead), ok)
	protected.GET("/write", RequireScope(util.ScopeExpensesWrite), ok)
	protected.GET("/session-only", RequireSession(), ok)

	return &gateEnv{router: r, stores: stores, db: db, userID: user.ID}
}

func (e *gateEnv) request(t *testing.T, path string, header, value string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *gateEnv) issueKey(t *testing.T, scopes string, mutate func(*models.ApiKey)) string {
	t.Helper()
	generated, err := util.GenerateApiKey()
	require.NoError(t, err)
	key := models.ApiKey{
		UserID:       e.userID,
		Prefix:       generated.Prefix,
		HashedSecret: generated.HashedSecret,
		Scopes:       scopes,
	}
	if mutate != nil {
		mutate(&key)
	}
	require.NoError(t, e.db.Create(&key).Error)
	return generated.Token
}

func (e *gateEnv) sessionToken(t *testing.T) string {
	t.Helper()
	token, err := util.GenerateToken(testSecret, e.userID, time.Hour)
	require.NoError(t, err)
	return token
}

func TestGateRejectsAnonymous(t *testing.T) {
	env := newGateEnv(t, nil)
	w := env.request(t, "/api/read", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
}

func TestGateSessionBypassesScopes(t *testing.T) {
	env := newGateEnv(t, nil)
	token := env.sessionToken(t)

	for _, path := range []string{"/api/read", "/api/write", "/api/session-only"} {
		w := env.request(t, path, "Authorization", "Bearer "+token)
		require.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestGateSessionCookie(t *testing.T) {
	env := newGateEnv(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/read", nil)
	req.AddCookie(&http.Cookie{Name: "ef_token", Value: env.sessionToken(t)})
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestGateApiKeyScopes(t *testing.T) {
	env := newGateEnv(t, nil)
	token := env.issueKey(t, util.ScopeExpensesRead, nil)

	w := env.request(t, "/api/read", "x-api-key", token)
	require.Equal(t, http.StatusOK, w.Code)

	// granted scope does not imply any other
	w = env.request(t, "/api/write", "x-api-key", token)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.JSONEq(t, `{"error":"Forbidden"}`, w.Body.String())
}

func TestGateApiKeyNeverSessionOnly(t *testing.T) {
	env := newGateEnv(t, nil)
	token := env.issueKey(t, util.JoinScopes([]string{
		util.ScopeExpensesRead, util.ScopeExpensesWrite,
		util.ScopeAnalyticsRead, util.ScopeIncomeWrite, util.ScopeBudgetRead,
	}), nil)

	w := env.request(t, "/api/session-only", "x-api-key", token)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestGateRejectsBadApiKeys(t *testing.T) {
	env := newGateEnv(t, nil)

	revoked := env.issueKey(t, util.ScopeExpensesRead, func(k *models.ApiKey) {
		now := time.Now().UTC()
		k.RevokedAt = &now
	})
	expired := env.issueKey(t, util.ScopeExpensesRead, func(k *models.ApiKey) {
		past := time.Now().UTC().Add(-time.Hour)
		k.ExpiresAt = &past
	})
	valid := env.issueKey(t, util.ScopeExpensesRead, nil)
	prefix, _, ok := util.ParseApiKeyToken(valid)
	require.True(t, ok)

	cases := map[string]string{
		"revoked":      revoked,
		"expired":      expired,
		"malformed":    "not-a-token",
		"wrong secret": "exp_" + prefix + "_completelyWrongSecret1234567890ab",
		"no record":    "exp_zzzzzzzz_completelyWrongSecret1234567890ab",
	}
	for name, token := range cases {
		w := env.request(t, "/api/read", "x-api-key", token)
		require.Equal(t, http.StatusUnauthorized, w.Code, name)
	}
}

func TestGateRateLimits(t *testing.T) {
	env := newGateEnv(t, ratelimit.New(2, time.Minute))
	token := env.sessionToken(t)

	for i := 0; i < 2; i++ {
		w := env.request(t, "/api/read", "Authorization", "Bearer "+token)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := env.request(t, "/api/read", "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotEmpty(t, w.Header().Get("Retry-After"))
	require.JSONEq(t, `{"error":"Rate limit exceeded"}`, w.Body.String())

	// a different route has its own window
	w = env.request(t, "/api/write", "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestGateExpiredSession(t *testing.T) {
	env := newGateEnv(t, nil)
	claims := &util.Claims{
		UserID: env.userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	w := env.request(t, "/api/read", "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ZeldaFan0225/expense-flow/internal/models"
	"github.com/ZeldaFan0225/expense-flow/internal/ratelimit"
	"github.com/ZeldaFan0225/expense-flow/internal/store"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Auth sources.
const (
	SourceSession = "session"
	SourceApiKey  = "api_key"
)

const authContextKey = "auth"

// Auth is the resolved identity of an admitted request.
type Auth struct {
	User   *models.User
	Source string
	// Scopes granted to the API key; empty for sessions, which are not
	// scope-checked.
	Scopes map[string]bool
	KeyID  uint
}

// CurrentAuth returns the request's resolved identity, or nil before the
// gate has run.
func CurrentAuth(c *gin.Context) *Auth {
	v, ok := c.Get(authContextKey)
	if !ok {
		return nil
	}
	auth, ok := v.(*Auth)
	if !ok {
		return nil
	}
	return auth
}

// Gate resolves the request to an authenticated identity: session cookie
// or bearer token first, then the x-api-key header. Every admitted
// request is then counted against the rate limit; a deny overrides
// admission.
func Gate(stores *store.Stores, jwtSecret string, limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth, err := resolve(c, stores, jwtSecret)
		if err != nil {
			util.Error(c, http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}

		identity := fmt.Sprintf("user:%d", auth.User.ID)
		if auth.Source == SourceApiKey {
			identity = fmt.Sprintf("key:%d", auth.KeyID)
		}
		if allowed, retryAfter := limiter.Check(identity, c.FullPath()); !allowed {
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			util.Error(c, http.StatusTooManyRequests, "Rate limit exceeded")
			c.Abort()
			return
		}

		c.Set(authContextKey, auth)
		c.Next()
	}
}

func resolve(c *gin.Context, stores *store.Stores, jwtSecret string) (*Auth, error) {
	if tokenStr := sessionToken(c); tokenStr != "" {
		return resolveSession(c, stores, jwtSecret, tokenStr)
	}
	if apiToken := c.GetHeader("x-api-key"); apiToken != "" {
		return resolveApiKey(c, stores, apiToken)
	}
	return nil, util.ErrUnauthorized
}

func sessionToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	if cookie, err := c.Cookie("ef_token"); err == nil {
		return cookie
	}
	return ""
}

func resolveSession(c *gin.Context, stores *store.Stores, jwtSecret, tokenStr string) (*Auth, error) {
	claims, err := util.ParseToken(jwtSecret, tokenStr)
	if err != nil || claims.ExpiresAt == nil || claims.ExpiresAt.Before(time.Now()) {
		return nil, util.ErrUnauthorized
	}
	user, err := stores.Users.FindByID(c.Request.Context(), claims.UserID)
	if err != nil {
		return nil, util.ErrUnauthorized
	}
	return &Auth{User: user, Source: SourceSession}, nil
}

func resolveApiKey(c *gin.Context, stores *store.Stores, token string) (*Auth, error) {
	prefix, secret, ok := util.ParseApiKeyToken(token)
	if !ok {
		return nil, util.ErrUnauthorized
	}
	key, err := stores.ApiKeys.FindByPrefix(c.Request.Context(), prefix)
	if err != nil {
		return nil, util.ErrUnauthorized
	}
	if !util.VerifyApiKeySecret(secret, key.HashedSecret) {
		return nil, util.ErrUnauthorized
	}
	now := time.Now()
	if key.RevokedAt != nil || (key.ExpiresAt != nil && key.ExpiresAt.Before(now)) {
		return nil, util.ErrUnauthorized
	}
	user, err := stores.Users.FindByID(c.Request.Context(), key.UserID)
	if err != nil {
		return nil, util.ErrUnauthorized
	}

	scopes := make(map[string]bool)
	for _, s := range util.SplitScopes(key.Scopes) {
		scopes[s] = true
	}

	// Usage bookkeeping must not block or fail the request.
	keyID := key.ID
	go func() {
		if err := stores.ApiKeys.TouchLastUsed(keyID, now); err != nil {
			logrus.WithField("key_id", keyID).WithError(err).Warn("record api key usage")
		}
	}()

	return &Auth{User: user, Source: SourceApiKey, Scopes: scopes, KeyID: key.ID}, nil
}

// RequireScope admits sessions unconditionally and API keys only when
// the scope was granted.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := CurrentAuth(c)
		if auth == nil {
			util.Error(c, http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}
		if auth.Source != SourceSession && !auth.Scopes[scope] {
			util.Error(c, http.StatusForbidden, "Forbidden")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSession rejects API key callers regardless of scopes. Key
// management, import schedule mutation and account export must not be
// key-automatable.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := CurrentAuth(c)
		if auth == nil {
			util.Error(c, http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}
		if auth.Source != SourceSession {
			util.Error(c, http.StatusForbidden, "Forbidden")
			c.Abort()
			return
		}
		c.Next()
	}
}

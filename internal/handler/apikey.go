package handler

import (
	"net/http"
	"time"

	"github.com/ZeldaFan0225/expense-flow/internal/models"
	"github.com/ZeldaFan0225/expense-flow/internal/store"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"github.com/gin-gonic/gin"
)

// ApiKeyHandler manages machine credentials. All routes here require a
// session; a key cannot mint or revoke keys.
type ApiKeyHandler struct {
	Keys *store.ApiKeyStore
}

func NewApiKeyHandler(keys *store.ApiKeyStore) *ApiKeyHandler {
	return &ApiKeyHandler{Keys: keys}
}

func apiKeyResp(key *models.ApiKey) gin.H {
	resp := gin.H{
		"id":          key.ID,
		"prefix":      key.Prefix,
		"description": key.Description,
		"scopes":      util.ScopesToWire(util.SplitScopes(key.Scopes)),
		"createdAt":   key.CreatedAt,
		"expiresAt":   key.ExpiresAt,
		"lastUsedAt":  key.TokenLastUsedAt,
		"revoked":     key.RevokedAt != nil,
	}
	return resp
}

func (h *ApiKeyHandler) List(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}

	keys, err := h.Keys.List(c.Request.Context(), auth.User.ID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	items := make([]gin.H, 0, len(keys))
	for i := range keys {
		items = append(items, apiKeyResp(&keys[i]))
	}
	util.Success(c, util.Response{"apiKeys": items})
}

type createApiKeyReq struct {
	Description string   `json:"description" binding:"max=255"`
	Scopes      []string `json:"scopes" binding:"required,min=1"`
	ExpiresIn   int      `json:"expiresInDays"`
}

// Create issues a key. The full token appears in this response only;
// afterwards only the prefix and the secret's hash remain.
func (h *ApiKeyHandler) Create(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}

	var req createApiKeyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}

	scopes := util.NormalizeScopes(req.Scopes)
	if len(scopes) == 0 {
		util.Error(c, http.StatusBadRequest, "invalid scopes: no recognized scope given")
		return
	}

	generated, err := util.GenerateApiKey()
	if err != nil {
		util.Fail(c, err)
		return
	}

	key := models.ApiKey{
		UserID:       auth.User.ID,
		Prefix:       generated.Prefix,
		HashedSecret: generated.HashedSecret,
		Scopes:       util.JoinScopes(scopes),
		Description:  req.Description,
	}
	if req.ExpiresIn > 0 {
		expires := time.Now().UTC().AddDate(0, 0, req.ExpiresIn)
		key.ExpiresAt = &expires
	}

	if err := h.Keys.Create(c.Request.Context(), &key); err != nil {
		util.Fail(c, err)
		return
	}

	util.Success(c, util.Response{
		"apiKey": apiKeyResp(&key),
		"token":  generated.Token,
	})
}

func (h *ApiKeyHandler) Revoke(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.Keys.Revoke(c.Request.Context(), auth.User.ID, id, time.Now().UTC()); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"revoked": true})
}

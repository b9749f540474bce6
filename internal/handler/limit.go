package handler

import (
	"net/http"

	"github.com/ZeldaFan0225/expense-flow/internal/models"
	"github.com/ZeldaFan0225/expense-flow/internal/store"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"github.com/gin-gonic/gin"
)

type LimitHandler struct {
	Limits     *store.LimitStore
	Categories *store.CategoryStore
	Codec      *util.Codec
}

func NewLimitHandler(limits *store.LimitStore, categories *store.CategoryStore, codec *util.Codec) *LimitHandler {
	return &LimitHandler{Limits: limits, Categories: categories, Codec: codec}
}

func (h *LimitHandler) limitResp(limit *models.CategoryLimit) (gin.H, error) {
	amount, err := h.Codec.DecryptCents(limit.AmountEnc)
	if err != nil {
		return nil, err
	}
	return gin.H{
		"id":         limit.ID,
		"categoryId": limit.CategoryID,
		"category":   categoryResp(&limit.Category),
		"amount":     util.FormatCents(amount),
		"updatedAt":  limit.UpdatedAt,
	}, nil
}

func (h *LimitHandler) List(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}

	limits, err := h.Limits.List(c.Request.Context(), auth.User.ID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	items := make([]gin.H, 0, len(limits))
	for i := range limits {
		item, err := h.limitResp(&limits[i])
		if err != nil {
			util.Fail(c, err)
			return
		}
		items = append(items, item)
	}
	util.Success(c, util.Response{"limits": items})
}

type limitReq struct {
	CategoryID uint   `json:"categoryId" binding:"required"`
	Amount     string `json:"amount" binding:"required"`
}

// Upsert sets the ceiling for a category, replacing any previous value.
// A zero amount is a valid ceiling meaning any spend counts as overage.
func (h *LimitHandler) Upsert(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}

	var req limitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := util.ParseCents(req.Amount)
	if err != nil {
		util.Fail(c, err)
		return
	}
	if amount < 0 {
		util.Error(c, http.StatusBadRequest, "invalid amount: must not be negative")
		return
	}

	ctx := c.Request.Context()
	if err := h.Categories.Exists(ctx, auth.User.ID, req.CategoryID); err != nil {
		util.Error(c, http.StatusBadRequest, "invalid categoryId: unknown category")
		return
	}

	amountEnc, err := h.Codec.EncryptCents(amount)
	if err != nil {
		util.Fail(c, err)
		return
	}
	limit, err := h.Limits.Upsert(ctx, auth.User.ID, req.CategoryID, amountEnc)
	if err != nil {
		util.Fail(c, err)
		return
	}

	item, err := h.limitResp(limit)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"limit": item})
}

func (h *LimitHandler) Delete(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.Limits.Delete(c.Request.Context(), auth.User.ID, id); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"deleted": true})
}

package handler

import (
	"net/http"
	"strings"

	"github.com/ZeldaFan0225/expense-flow/internal/models"
	"github.com/ZeldaFan0225/expense-flow/internal/store"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"github.com/gin-gonic/gin"
)

type CategoryHandler struct {
	Categories *store.CategoryStore
}

func NewCategoryHandler(categories *store.CategoryStore) *CategoryHandler {
	return &CategoryHandler{Categories: categories}
}

type categoryReq struct {
	Name  string `json:"name" binding:"required,max=64"`
	Color string `json:"color" binding:"max=16"`
}

func categoryResp(category *models.Category) gin.H {
	return gin.H{
		"id":        category.ID,
		"name":      category.Name,
		"color":     category.Color,
		"createdAt": category.CreatedAt,
	}
}

func (h *CategoryHandler) List(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}

	categories, err := h.Categories.List(c.Request.Context(), auth.User.ID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	items := make([]gin.H, 0, len(categories))
	for i := range categories {
		items = append(items, categoryResp(&categories[i]))
	}
	util.Success(c, util.Response{"categories": items})
}

func (h *CategoryHandler) Create(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}

	var req categoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "invalid name: required, max 64 characters")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		util.Error(c, http.StatusBadRequest, "invalid name: is empty")
		return
	}

	category := models.Category{
		UserID: auth.User.ID,
		Name:   req.Name,
		Color:  req.Color,
	}
	if err := h.Categories.Create(c.Request.Context(), &category); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"category": categoryResp(&category)})
}

func (h *CategoryHandler) Update(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req categoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "invalid name: required, max 64 characters")
		return
	}

	category, err := h.Categories.Get(c.Request.Context(), auth.User.ID, id)
	if err != nil {
		util.Fail(c, err)
		return
	}
	category.Name = strings.TrimSpace(req.Name)
	category.Color = req.Color
	if err := h.Categories.Update(c.Request.Context(), category); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"category": categoryResp(category)})
}

// Delete removes a category; referencing expenses become uncategorized.
func (h *CategoryHandler) Delete(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.Categories.Delete(c.Request.Context(), auth.User.ID, id); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"deleted": true})
}

package handler

import (
	"net/http"

	"github.com/ZeldaFan0225/expense-flow/internal/models"
	"github.com/ZeldaFan0225/expense-flow/internal/store"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"github.com/gin-gonic/gin"
)

// RecurringHandler manages monthly templates. Materialization itself is
// driven by ledger reads, not by this handler.
type RecurringHandler struct {
	Recurring  *store.RecurringStore
	Categories *store.CategoryStore
	Codec      *util.Codec
}

func NewRecurringHandler(recurring *store.RecurringStore, categories *store.CategoryStore, codec *util.Codec) *RecurringHandler {
	return &RecurringHandler{Recurring: recurring, Categories: categories, Codec: codec}
}

func (h *RecurringHandler) expenseTemplateResp(template *models.RecurringExpense) (gin.H, error) {
	amount, err := h.Codec.DecryptCents(template.AmountEnc)
	if err != nil {
		return nil, err
	}
	description := ""
	if template.DescriptionEnc != "" {
		description, err = h.Codec.DecryptString(template.DescriptionEnc)
		if err != nil {
			return nil, err
		}
	}
	resp := gin.H{
		"id":              template.ID,
		"amount":          util.FormatCents(amount),
		"description":     description,
		"dueDayOfMonth":   template.DueDayOfMonth,
		"splitBy":         template.SplitBy,
		"isActive":        template.IsActive,
		"lastGeneratedOn": nil,
		"createdAt":       template.CreatedAt,
	}
	if template.LastGeneratedOn != nil {
		resp["lastGeneratedOn"] = template.LastGeneratedOn.Format("2006-01-02")
	}
	if template.Category != nil {
		resp["category"] = categoryResp(template.Category)
	}
	return resp, nil
}

func (h *RecurringHandler) incomeTemplateResp(template *models.RecurringIncome) (gin.H, error) {
	amount, err := h.Codec.DecryptCents(template.AmountEnc)
	if err != nil {
		return nil, err
	}
	description := ""
	if template.DescriptionEnc != "" {
		description, err = h.Codec.DecryptString(template.DescriptionEnc)
		if err != nil {
			return nil, err
		}
	}
	resp := gin.H{
		"id":              template.ID,
		"amount":          util.FormatCents(amount),
		"description":     description,
		"dueDayOfMonth":   template.DueDayOfMonth,
		"isActive":        template.IsActive,
		"lastGeneratedOn": nil,
		"createdAt":       template.CreatedAt,
	}
	if template.LastGeneratedOn != nil {
		resp["lastGeneratedOn"] = template.LastGeneratedOn.Format("2006-01-02")
	}
	return resp, nil
}

func (h *RecurringHandler) ListExpenseTemplates(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}

	templates, err := h.Recurring.ListExpenseTemplates(c.Request.Context(), auth.User.ID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	items := make([]gin.H, 0, len(templates))
	for i := range templates {
		item, err := h.expenseTemplateResp(&templates[i])
		if err != nil {
			util.Fail(c, err)
			return
		}
		items = append(items, item)
	}
	util.Success(c, util.Response{"templates": items})
}

func (h *RecurringHandler) ListIncomeTemplates(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}

	templates, err := h.Recurring.ListIncomeTemplates(c.Request.Context(), auth.User.ID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	items := make([]gin.H, 0, len(templates))
	for i := range templates {
		item, err := h.incomeTemplateResp(&templates[i])
		if err != nil {
			util.Fail(c, err)
			return
		}
		items = append(items, item)
	}
	util.Success(c, util.Response{"templates": items})
}

type recurringExpenseReq struct {
	Amount        string `json:"amount" binding:"required"`
	Description   string `json:"description" binding:"max=255"`
	DueDayOfMonth int    `json:"dueDayOfMonth" binding:"required"`
	CategoryID    *uint  `json:"categoryId"`
	SplitBy       int    `json:"splitBy"`
}

func (h *RecurringHandler) CreateExpenseTemplate(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}

	var req recurringExpenseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DueDayOfMonth < 1 || req.DueDayOfMonth > 31 {
		util.Error(c, http.StatusBadRequest, "invalid dueDayOfMonth: must be 1-31")
		return
	}
	amount, err := util.ParseCents(req.Amount)
	if err != nil {
		util.Fail(c, err)
		return
	}
	if amount <= 0 {
		util.Error(c, http.StatusBadRequest, "invalid amount: must be positive")
		return
	}
	splitBy := req.SplitBy
	if splitBy <= 0 {
		splitBy = 1
	}
	if req.CategoryID != nil {
		if err := h.Categories.Exists(c.Request.Context(), auth.User.ID, *req.CategoryID); err != nil {
			util.Error(c, http.StatusBadRequest, "invalid categoryId: unknown category")
			return
		}
	}

	amountEnc, err := h.Codec.EncryptCents(amount)
	if err != nil {
		util.Fail(c, err)
		return
	}
	descriptionEnc, err := h.Codec.EncryptString(req.Description)
	if err != nil {
		util.Fail(c, err)
		return
	}

	template := models.RecurringExpense{
		UserID:         auth.User.ID,
		CategoryID:     req.CategoryID,
		AmountEnc:      amountEnc,
		DescriptionEnc: descriptionEnc,
		DueDayOfMonth:  req.DueDayOfMonth,
		SplitBy:        splitBy,
		IsActive:       true,
	}
	if err := h.Recurring.CreateExpenseTemplate(c.Request.Context(), &template); err != nil {
		util.Fail(c, err)
		return
	}

	item, err := h.expenseTemplateResp(&template)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"template": item})
}

type recurringIncomeReq struct {
	Amount        string `json:"amount" binding:"required"`
	Description   string `json:"description" binding:"max=255"`
	DueDayOfMonth int    `json:"dueDayOfMonth" binding:"required"`
}

func (h *RecurringHandler) CreateIncomeTemplate(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}

	var req recurringIncomeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DueDayOfMonth < 1 || req.DueDayOfMonth > 31 {
		util.Error(c, http.StatusBadRequest, "invalid dueDayOfMonth: must be 1-31")
		return
	}
	amount, err := util.ParseCents(req.Amount)
	if err != nil {
		util.Fail(c, err)
		return
	}
	if amount <= 0 {
		util.Error(c, http.StatusBadRequest, "invalid amount: must be positive")
		return
	}

	amountEnc, err := h.Codec.EncryptCents(amount)
	if err != nil {
		util.Fail(c, err)
		return
	}
	descriptionEnc, err := h.Codec.EncryptString(req.Description)
	if err != nil {
		util.Fail(c, err)
		return
	}

	template := models.RecurringIncome{
		UserID:         auth.User.ID,
		AmountEnc:      amountEnc,
		DescriptionEnc: descriptionEnc,
		DueDayOfMonth:  req.DueDayOfMonth,
		IsActive:       true,
	}
	if err := h.Recurring.CreateIncomeTemplate(c.Request.Context(), &template); err != nil {
		util.Fail(c, err)
		return
	}

	item, err := h.incomeTemplateResp(&template)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"template": item})
}

type updateTemplateReq struct {
	Amount        *string `json:"amount"`
	Description   *string `json:"description"`
	DueDayOfMonth *int    `json:"dueDayOfMonth"`
	IsActive      *bool   `json:"isActive"`
	SplitBy       *int    `json:"splitBy"`
}

func (h *RecurringHandler) UpdateExpenseTemplate(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updateTemplateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	template, err := h.Recurring.GetExpenseTemplate(ctx, auth.User.ID, id)
	if err != nil {
		util.Fail(c, err)
		return
	}

	if req.Amount != nil {
		amount, err := util.ParseCents(*req.Amount)
		if err != nil {
			util.Fail(c, err)
			return
		}
		if amount <= 0 {
			util.Error(c, http.StatusBadRequest, "invalid amount: must be positive")
			return
		}
		template.AmountEnc, err = h.Codec.EncryptCents(amount)
		if err != nil {
			util.Fail(c, err)
			return
		}
	}
	if req.Description != nil {
		template.DescriptionEnc, err = h.Codec.EncryptString(*req.Description)
		if err != nil {
			util.Fail(c, err)
			return
		}
	}
	if req.DueDayOfMonth != nil {
		if *req.DueDayOfMonth < 1 || *req.DueDayOfMonth > 31 {
			util.Error(c, http.StatusBadRequest, "invalid dueDayOfMonth: must be 1-31")
			return
		}
		template.DueDayOfMonth = *req.DueDayOfMonth
	}
	if req.SplitBy != nil {
		if *req.SplitBy <= 0 {
			util.Error(c, http.StatusBadRequest, "invalid splitBy: must be at least 1")
			return
		}
		template.SplitBy = *req.SplitBy
	}
	if req.IsActive != nil {
		template.IsActive = *req.IsActive
	}

	if err := h.Recurring.SaveExpenseTemplate(ctx, template); err != nil {
		util.Fail(c, err)
		return
	}
	item, err := h.expenseTemplateResp(template)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"template": item})
}

func (h *RecurringHandler) UpdateIncomeTemplate(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updateTemplateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	template, err := h.Recurring.GetIncomeTemplate(ctx, auth.User.ID, id)
	if err != nil {
		util.Fail(c, err)
		return
	}

	if req.Amount != nil {
		amount, err := util.ParseCents(*req.Amount)
		if err != nil {
			util.Fail(c, err)
			return
		}
		if amount <= 0 {
			util.Error(c, http.StatusBadRequest, "invalid amount: must be positive")
			return
		}
		template.AmountEnc, err = h.Codec.EncryptCents(amount)
		if err != nil {
			util.Fail(c, err)
			return
		}
	}
	if req.Description != nil {
		template.DescriptionEnc, err = h.Codec.EncryptString(*req.Description)
		if err != nil {
			util.Fail(c, err)
			return
		}
	}
	if req.DueDayOfMonth != nil {
		if *req.DueDayOfMonth < 1 || *req.DueDayOfMonth > 31 {
			util.Error(c, http.StatusBadRequest, "invalid dueDayOfMonth: must be 1-31")
			return
		}
		template.DueDayOfMonth = *req.DueDayOfMonth
	}
	if req.IsActive != nil {
		template.IsActive = *req.IsActive
	}

	if err := h.Recurring.SaveIncomeTemplate(ctx, template); err != nil {
		util.Fail(c, err)
		return
	}
	item, err := h.incomeTemplateResp(template)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"template": item})
}

// ToggleExpenseTemplate flips the active flag. Pausing stops future
// materialization but keeps entries already generated.
func (h *RecurringHandler) ToggleExpenseTemplate(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	template, err := h.Recurring.GetExpenseTemplate(ctx, auth.User.ID, id)
	if err != nil {
		util.Fail(c, err)
		return
	}
	template.IsActive = !template.IsActive
	if err := h.Recurring.SaveExpenseTemplate(ctx, template); err != nil {
		util.Fail(c, err)
		return
	}

	item, err := h.expenseTemplateResp(template)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"template": item})
}

func (h *RecurringHandler) DeleteExpenseTemplate(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.Recurring.DeleteExpenseTemplate(c.Request.Context(), auth.User.ID, id); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"deleted": true})
}

func (h *RecurringHandler) DeleteIncomeTemplate(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.Recurring.DeleteIncomeTemplate(c.Request.Context(), auth.User.ID, id); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"deleted": true})
}

package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ZeldaFan0225/expense-flow/internal/models"
	"github.com/ZeldaFan0225/expense-flow/internal/recurring"
	"github.com/ZeldaFan0225/expense-flow/internal/store"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"github.com/gin-gonic/gin"
)

// ExpenseHandler serves the expense ledger. Reads trigger recurring
// catch-up first, so templates materialize without a scheduler.
type ExpenseHandler struct {
	Stores       *store.Stores
	Codec        *util.Codec
	Materializer *recurring.Materializer
}

func NewExpenseHandler(stores *store.Stores, codec *util.Codec, materializer *recurring.Materializer) *ExpenseHandler {
	return &ExpenseHandler{Stores: stores, Codec: codec, Materializer: materializer}
}

func (h *ExpenseHandler) toExpenseResp(expense *models.Expense) (gin.H, error) {
	amount, err := h.Codec.DecryptCents(expense.AmountEnc)
	if err != nil {
		return nil, err
	}
	// Legacy rows may have a blank impact blob; fall back to the amount.
	impact := h.Codec.DecryptCentsOr(expense.ImpactAmountEnc, amount)
	description := ""
	if expense.DescriptionEnc != "" {
		description, err = h.Codec.DecryptString(expense.DescriptionEnc)
		if err != nil {
			return nil, err
		}
	}

	resp := gin.H{
		"id":                expense.ID,
		"amount":            util.FormatCents(amount),
		"impactAmount":      util.FormatCents(impact),
		"description":       description,
		"occurredOn":        expense.OccurredOn.Format("2006-01-02"),
		"splitBy":           expense.SplitBy,
		"recurringSourceId": expense.RecurringSourceID,
		"createdAt":         expense.CreatedAt,
	}
	if expense.Category != nil {
		resp["category"] = categoryResp(expense.Category)
	}
	if expense.Group != nil {
		group := gin.H{"id": expense.Group.ID, "splitBy": expense.Group.SplitBy}
		if expense.Group.TitleEnc != "" {
			title, err := h.Codec.DecryptString(expense.Group.TitleEnc)
			if err != nil {
				return nil, err
			}
			group["title"] = title
		}
		resp["group"] = group
	}
	return resp, nil
}

func (h *ExpenseHandler) List(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}
	ctx := c.Request.Context()

	if err := h.Materializer.CatchUp(ctx, auth.User.ID); err != nil {
		util.Fail(c, err)
		return
	}

	params := store.ListParams{Limit: 200}
	if s := c.Query("start"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			util.Error(c, http.StatusBadRequest, "invalid start: expected YYYY-MM-DD")
			return
		}
		params.Start = &t
	}
	if s := c.Query("end"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			util.Error(c, http.StatusBadRequest, "invalid end: expected YYYY-MM-DD")
			return
		}
		end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		params.End = &end
	}
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 500 {
			util.Error(c, http.StatusBadRequest, "invalid limit")
			return
		}
		params.Limit = n
	}

	expenses, err := h.Stores.Expenses.List(ctx, auth.User.ID, params)
	if err != nil {
		util.Fail(c, err)
		return
	}

	items := make([]gin.H, 0, len(expenses))
	for i := range expenses {
		item, err := h.toExpenseResp(&expenses[i])
		if err != nil {
			util.Fail(c, err)
			return
		}
		items = append(items, item)
	}
	util.Success(c, util.Response{"expenses": items})
}

func (h *ExpenseHandler) Get(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	expense, err := h.Stores.Expenses.Get(c.Request.Context(), auth.User.ID, id)
	if err != nil {
		util.Fail(c, err)
		return
	}
	item, err := h.toExpenseResp(expense)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"expense": item})
}

type expenseItemReq struct {
	Amount      string `json:"amount" binding:"required"`
	Description string `json:"description" binding:"max=255"`
	OccurredOn  string `json:"occurredOn"`
	CategoryID  *uint  `json:"categoryId"`
	SplitBy     int    `json:"splitBy"`
}

// buildExpense validates one item and encrypts its fields. splitBy wins
// in the order: group factor, item factor, 1.
func (h *ExpenseHandler) buildExpense(c *gin.Context, userID uint, req *expenseItemReq, groupSplit int) (*models.Expense, error) {
	amount, err := util.ParseCents(req.Amount)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, util.Invalid("amount", "must be positive")
	}

	occurredOn := time.Now().UTC().Truncate(24 * time.Hour)
	if req.OccurredOn != "" {
		occurredOn, err = parseDate(req.OccurredOn)
		if err != nil {
			return nil, util.Invalid("occurredOn", "expected YYYY-MM-DD")
		}
	}

	splitBy := req.SplitBy
	if groupSplit > 0 {
		splitBy = groupSplit
	}
	if splitBy <= 0 {
		splitBy = 1
	}

	if req.CategoryID != nil {
		if err := h.Stores.Categories.Exists(c.Request.Context(), userID, *req.CategoryID); err != nil {
			return nil, util.Invalid("categoryId", "unknown category")
		}
	}

	amountEnc, err := h.Codec.EncryptCents(amount)
	if err != nil {
		return nil, err
	}
	impactEnc, err := h.Codec.EncryptCents(util.ImpactShare(amount, splitBy))
	if err != nil {
		return nil, err
	}
	descriptionEnc, err := h.Codec.EncryptString(req.Description)
	if err != nil {
		return nil, err
	}

	return &models.Expense{
		UserID:          userID,
		CategoryID:      req.CategoryID,
		AmountEnc:       amountEnc,
		ImpactAmountEnc: impactEnc,
		DescriptionEnc:  descriptionEnc,
		SplitBy:         splitBy,
		OccurredOn:      occurredOn,
	}, nil
}

func (h *ExpenseHandler) Create(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}

	var req expenseItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}

	expense, err := h.buildExpense(c, auth.User.ID, &req, 0)
	if err != nil {
		util.Fail(c, err)
		return
	}
	if err := h.Stores.Expenses.Create(c.Request.Context(), expense); err != nil {
		util.Fail(c, err)
		return
	}

	item, err := h.toExpenseResp(expense)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"expense": item})
}

type bulkGroupReq struct {
	Title   string `json:"title" binding:"required,max=128"`
	Notes   string `json:"notes" binding:"max=1024"`
	SplitBy int    `json:"splitBy"`
}

type bulkExpenseReq struct {
	Items []expenseItemReq `json:"items" binding:"required,min=1,dive"`
	Group *bulkGroupReq    `json:"group"`
}

// BulkCreate stores a batch of expenses, optionally under a shared
// group whose split factor overrides each item's own.
func (h *ExpenseHandler) BulkCreate(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}

	var req bulkExpenseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}

	var group *models.ExpenseGroup
	groupSplit := 0
	if req.Group != nil {
		groupSplit = req.Group.SplitBy
		if groupSplit <= 0 {
			groupSplit = 1
		}
		titleEnc, err := h.Codec.EncryptString(req.Group.Title)
		if err != nil {
			util.Fail(c, err)
			return
		}
		notesEnc := ""
		if req.Group.Notes != "" {
			notesEnc, err = h.Codec.EncryptString(req.Group.Notes)
			if err != nil {
				util.Fail(c, err)
				return
			}
		}
		group = &models.ExpenseGroup{
			UserID:   auth.User.ID,
			TitleEnc: titleEnc,
			NotesEnc: notesEnc,
			SplitBy:  groupSplit,
		}
	}

	expenses := make([]models.Expense, 0, len(req.Items))
	for i := range req.Items {
		expense, err := h.buildExpense(c, auth.User.ID, &req.Items[i], groupSplit)
		if err != nil {
			util.Fail(c, err)
			return
		}
		expenses = append(expenses, *expense)
	}

	if err := h.Stores.Expenses.CreateBatch(c.Request.Context(), group, expenses); err != nil {
		util.Fail(c, err)
		return
	}

	items := make([]gin.H, 0, len(expenses))
	for i := range expenses {
		expenses[i].Group = group
		item, err := h.toExpenseResp(&expenses[i])
		if err != nil {
			util.Fail(c, err)
			return
		}
		items = append(items, item)
	}
	util.Success(c, util.Response{"expenses": items})
}

// updateExpenseReq models a partial update: nil means leave unchanged,
// clearCategory detaches the category explicitly since a null id in
// JSON is indistinguishable from an absent one.
type updateExpenseReq struct {
	Amount        *string `json:"amount"`
	Description   *string `json:"description"`
	OccurredOn    *string `json:"occurredOn"`
	CategoryID    *uint   `json:"categoryId"`
	ClearCategory bool    `json:"clearCategory"`
	SplitBy       *int    `json:"splitBy"`
}

func (h *ExpenseHandler) Update(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updateExpenseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	expense, err := h.Stores.Expenses.Get(ctx, auth.User.ID, id)
	if err != nil {
		util.Fail(c, err)
		return
	}

	amount, err := h.Codec.DecryptCents(expense.AmountEnc)
	if err != nil {
		util.Fail(c, err)
		return
	}
	if req.Amount != nil {
		amount, err = util.ParseCents(*req.Amount)
		if err != nil {
			util.Fail(c, err)
			return
		}
		if amount <= 0 {
			util.Error(c, http.StatusBadRequest, "invalid amount: must be positive")
			return
		}
	}
	if req.SplitBy != nil {
		if *req.SplitBy <= 0 {
			util.Error(c, http.StatusBadRequest, "invalid splitBy: must be at least 1")
			return
		}
		expense.SplitBy = *req.SplitBy
	}
	if req.OccurredOn != nil {
		occurredOn, err := parseDate(*req.OccurredOn)
		if err != nil {
			util.Error(c, http.StatusBadRequest, "invalid occurredOn: expected YYYY-MM-DD")
			return
		}
		expense.OccurredOn = occurredOn
	}
	if req.ClearCategory {
		expense.CategoryID = nil
		expense.Category = nil
	} else if req.CategoryID != nil {
		if err := h.Stores.Categories.Exists(ctx, auth.User.ID, *req.CategoryID); err != nil {
			util.Error(c, http.StatusBadRequest, "invalid categoryId: unknown category")
			return
		}
		expense.CategoryID = req.CategoryID
		expense.Category = nil
	}
	if req.Description != nil {
		expense.DescriptionEnc, err = h.Codec.EncryptString(*req.Description)
		if err != nil {
			util.Fail(c, err)
			return
		}
	}

	// Re-seal amount and impact so the split invariant holds after any
	// combination of changes. The group's factor still wins when grouped.
	splitBy := expense.SplitBy
	if expense.Group != nil {
		splitBy = expense.Group.SplitBy
	}
	expense.AmountEnc, err = h.Codec.EncryptCents(amount)
	if err != nil {
		util.Fail(c, err)
		return
	}
	expense.ImpactAmountEnc, err = h.Codec.EncryptCents(util.ImpactShare(amount, splitBy))
	if err != nil {
		util.Fail(c, err)
		return
	}

	if err := h.Stores.Expenses.Update(ctx, expense); err != nil {
		util.Fail(c, err)
		return
	}

	updated, err := h.Stores.Expenses.Get(ctx, auth.User.ID, id)
	if err != nil {
		util.Fail(c, err)
		return
	}
	item, err := h.toExpenseResp(updated)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"expense": item})
}

func (h *ExpenseHandler) Delete(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.Stores.Expenses.Delete(c.Request.Context(), auth.User.ID, id); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"deleted": true})
}

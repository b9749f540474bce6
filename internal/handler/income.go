package handler

import (
	"net/http"
	"time"

	"github.com/ZeldaFan0225/expense-flow/internal/models"
	"github.com/ZeldaFan0225/expense-flow/internal/recurring"
	"github.com/ZeldaFan0225/expense-flow/internal/store"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"github.com/gin-gonic/gin"
)

type IncomeHandler struct {
	Incomes      *store.IncomeStore
	Codec        *util.Codec
	Materializer *recurring.Materializer
}

func NewIncomeHandler(incomes *store.IncomeStore, codec *util.Codec, materializer *recurring.Materializer) *IncomeHandler {
	return &IncomeHandler{Incomes: incomes, Codec: codec, Materializer: materializer}
}

func (h *IncomeHandler) toIncomeResp(income *models.Income) (gin.H, error) {
	amount, err := h.Codec.DecryptCents(income.AmountEnc)
	if err != nil {
		return nil, err
	}
	description := ""
	if income.DescriptionEnc != "" {
		description, err = h.Codec.DecryptString(income.DescriptionEnc)
		if err != nil {
			return nil, err
		}
	}
	return gin.H{
		"id":                income.ID,
		"amount":            util.FormatCents(amount),
		"description":       description,
		"occurredOn":        income.OccurredOn.Format("2006-01-02"),
		"recurringSourceId": income.RecurringSourceID,
		"createdAt":         income.CreatedAt,
	}, nil
}

func (h *IncomeHandler) List(c *gin.Context) {
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

	incomes, err := h.Incomes.List(ctx, auth.User.ID, params)
	if err != nil {
		util.Fail(c, err)
		return
	}
	items := make([]gin.H, 0, len(incomes))
	for i := range incomes {
		item, err := h.toIncomeResp(&incomes[i])
		if err != nil {
			util.Fail(c, err)
			return
		}
		items = append(items, item)
	}
	util.Success(c, util.Response{"income": items})
}

type incomeReq struct {
	Amount      string `json:"amount" binding:"required"`
	Description string `json:"description" binding:"max=255"`
	OccurredOn  string `json:"occurredOn"`
}

func (h *IncomeHandler) Create(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}

	var req incomeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "invalid request body")
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

	occurredOn := time.Now().UTC().Truncate(24 * time.Hour)
	if req.OccurredOn != "" {
		occurredOn, err = parseDate(req.OccurredOn)
		if err != nil {
			util.Error(c, http.StatusBadRequest, "invalid occurredOn: expected YYYY-MM-DD")
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

	income := models.Income{
		UserID:         auth.User.ID,
		AmountEnc:      amountEnc,
		DescriptionEnc: descriptionEnc,
		OccurredOn:     occurredOn,
	}
	if err := h.Incomes.Create(c.Request.Context(), &income); err != nil {
		util.Fail(c, err)
		return
	}

	item, err := h.toIncomeResp(&income)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"income": item})
}

func (h *IncomeHandler) Delete(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.Incomes.Delete(c.Request.Context(), auth.User.ID, id); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"deleted": true})
}

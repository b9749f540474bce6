package handler

import (
	"fmt"
	"net/http"

	"github.com/ZeldaFan0225/expense-flow/internal/recurring"
	"github.com/ZeldaFan0225/expense-flow/internal/report"
	"github.com/ZeldaFan0225/expense-flow/internal/store"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportHandler produces downloadable snapshots. Decrypted values exist
// only inside the response body.
type ExportHandler struct {
	Engine       *report.Engine
	Expenses     *store.ExpenseStore
	Codec        *util.Codec
	Materializer *recurring.Materializer
}

func NewExportHandler(engine *report.Engine, expenses *store.ExpenseStore, codec *util.Codec, materializer *recurring.Materializer) *ExportHandler {
	return &ExportHandler{Engine: engine, Expenses: expenses, Codec: codec, Materializer: materializer}
}

// Account streams the full account archive. Session-only: a stolen API
// key must not be able to exfiltrate the whole account in one request.
func (h *ExportHandler) Account(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}
	ctx := c.Request.Context()

	if err := h.Materializer.CatchUp(ctx, auth.User.ID); err != nil {
		util.Fail(c, err)
		return
	}

	archive, err := h.Engine.AccountExport(ctx, auth.User.ID)
	if err != nil {
		util.Fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive.Filename))
	c.Data(http.StatusOK, "application/zip", archive.Data)
}

// ExpensesXlsx streams the expense ledger as a spreadsheet, filtered by
// the same start/end selectors as the list endpoint.
func (h *ExportHandler) ExpensesXlsx(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}
	ctx := c.Request.Context()

	if err := h.Materializer.CatchUp(ctx, auth.User.ID); err != nil {
		util.Fail(c, err)
		return
	}

	params := store.ListParams{}
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
		params.End = &t
	}

	expenses, err := h.Expenses.List(ctx, auth.User.ID, params)
	if err != nil {
		util.Fail(c, err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Expenses"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Date", "Amount", "Impact", "Description", "Category", "Split By"}
	for i, title := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, title)
	}

	for row := range expenses {
		expense := &expenses[row]
		amount, err := h.Codec.DecryptCents(expense.AmountEnc)
		if err != nil {
			util.Fail(c, err)
			return
		}
		impact := h.Codec.DecryptCentsOr(expense.ImpactAmountEnc, amount)
		description := ""
		if expense.DescriptionEnc != "" {
			description, err = h.Codec.DecryptString(expense.DescriptionEnc)
			if err != nil {
				util.Fail(c, err)
				return
			}
		}
		category := ""
		if expense.Category != nil {
			category = expense.Category.Name
		}
		splitBy := expense.SplitBy
		if expense.Group != nil {
			splitBy = expense.Group.SplitBy
		}

		values := []interface{}{
			expense.OccurredOn.Format("2006-01-02"),
			util.FormatCents(amount),
			util.FormatCents(impact),
			description,
			category,
			splitBy,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		util.Fail(c, fmt.Errorf("build spreadsheet: %w", err))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="expenses.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

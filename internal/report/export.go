package report

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ZeldaFan0225/expense-flow/internal/models"
	"github.com/ZeldaFan0225/expense-flow/internal/store"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"golang.org/x/sync/errgroup"
)

// Archive is a fully built account export. The decrypted payload exists
// only in this buffer; nothing decrypted is written back anywhere.
type Archive struct {
	Filename string
	Data     []byte
	Counts   map[string]int
}

type exportUser struct {
	ID                   uint      `json:"id"`
	Username             string    `json:"username"`
	DisplayName          string    `json:"displayName"`
	DefaultCurrency      string    `json:"defaultCurrency"`
	EncryptionKeyVersion int       `json:"encryptionKeyVersion"`
	CreatedAt            time.Time `json:"createdAt"`
}

type exportCategory struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
}

type exportLimit struct {
	ID           uint   `json:"id"`
	CategoryID   uint   `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	Limit        string `json:"limit"`
}

type exportGroup struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Notes     string    `json:"notes,omitempty"`
	SplitBy   int       `json:"splitBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type exportExpense struct {
	ID                uint      `json:"id"`
	Amount            string    `json:"amount"`
	ImpactAmount      string    `json:"impactAmount"`
	Description       string    `json:"description"`
	OccurredOn        time.Time `json:"occurredOn"`
	CategoryID        *uint     `json:"categoryId"`
	GroupID           *uint     `json:"groupId"`
	SplitBy           int       `json:"splitBy"`
	RecurringSourceID *uint     `json:"recurringSourceId"`
}

type exportRecurring struct {
	ID              uint       `json:"id"`
	Amount          string     `json:"amount"`
	Description     string     `json:"description"`
	DueDayOfMonth   int        `json:"dueDayOfMonth"`
	SplitBy         int        `json:"splitBy,omitempty"`
	IsActive        bool       `json:"isActive"`
	CategoryID      *uint      `json:"categoryId,omitempty"`
	LastGeneratedOn *time.Time `json:"lastGeneratedOn"`
}

type exportIncome struct {
	ID                uint      `json:"id"`
	Amount            string    `json:"amount"`
	Description       string    `json:"description"`
	OccurredOn        time.Time `json:"occurredOn"`
	RecurringSourceID *uint     `json:"recurringSourceId"`
}

type exportApiKey struct {
	ID              uint       `json:"id"`
	Prefix          string     `json:"prefix"`
	Scopes          []string   `json:"scopes"`
	Description     string     `json:"description"`
	ExpiresAt       *time.Time `json:"expiresAt"`
	RevokedAt       *time.Time `json:"revokedAt"`
	TokenLastUsedAt *time.Time `json:"tokenLastUsedAt"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type exportSchedule struct {
	ID        uint       `json:"id"`
	Name      string     `json:"name"`
	Mode      string     `json:"mode"`
	Template  string     `json:"template"`
	Frequency string     `json:"frequency"`
	SourceURL string     `json:"sourceUrl"`
	LastRunAt *time.Time `json:"lastRunAt"`
	NextRunAt *time.Time `json:"nextRunAt"`
}

// AccountExport decrypts every owned entity and packs one JSON file per
// entity type plus a metadata manifest into a compressed archive.
func (e *Engine) AccountExport(ctx context.Context, userID uint) (*Archive, error) {
	user, err := e.stores.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var (
		categories []models.Category
		limits     []models.CategoryLimit
		groups     []models.ExpenseGroup
		expenses   []models.Expense
		incomes    []models.Income
		recExp     []models.RecurringExpense
		recInc     []models.RecurringIncome
		apiKeys    []models.ApiKey
		schedules  []models.ImportSchedule
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { categories, err = e.stores.Categories.List(gctx, userID); return })
	g.Go(func() (err error) { limits, err = e.stores.Limits.List(gctx, userID); return })
	g.Go(func() (err error) { groups, err = e.stores.Expenses.ListGroups(gctx, userID); return })
	g.Go(func() (err error) { expenses, err = e.stores.Expenses.List(gctx, userID, store.ListParams{}); return })
	g.Go(func() (err error) { incomes, err = e.stores.Incomes.List(gctx, userID, store.ListParams{}); return })
	g.Go(func() (err error) { recExp, err = e.stores.Recurring.ListExpenseTemplates(gctx, userID); return })
	g.Go(func() (err error) { recInc, err = e.stores.Recurring.ListIncomeTemplates(gctx, userID); return })
	g.Go(func() (err error) { apiKeys, err = e.stores.ApiKeys.List(gctx, userID); return })
	g.Go(func() (err error) { schedules, err = e.stores.Schedules.List(gctx, userID); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	files := map[string]interface{}{}

	files["data/user.json"] = exportUser{
		ID:                   user.ID,
		Username:             user.Username,
		DisplayName:          user.DisplayName,
		DefaultCurrency:      user.DefaultCurrency,
		EncryptionKeyVersion: user.EncryptionKeyVersion,
		CreatedAt:            user.CreatedAt,
	}

	categoryRows := make([]exportCategory, 0, len(categories))
	for _, c := range categories {
		categoryRows = append(categoryRows, exportCategory{ID: c.ID, Name: c.Name, Color: c.Color, CreatedAt: c.CreatedAt})
	}
	files["data/categories.json"] = categoryRows

	limitRows := make([]exportLimit, 0, len(limits))
	for i := range limits {
		cents, err := e.codec.DecryptCents(limits[i].AmountEnc)
		if err != nil {
			return nil, fmt.Errorf("limit %d: %w", limits[i].ID, err)
		}
		limitRows = append(limitRows, exportLimit{
			ID:           limits[i].ID,
			CategoryID:   limits[i].CategoryID,
			CategoryName: limits[i].Category.Name,
			Limit:        util.FormatCents(cents),
		})
	}
	files["data/category-limits.json"] = limitRows

	groupRows := make([]exportGroup, 0, len(groups))
	for i := range groups {
		title, err := e.decryptOptional(groups[i].TitleEnc)
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", groups[i].ID, err)
		}
		notes, err := e.decryptOptional(groups[i].NotesEnc)
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", groups[i].ID, err)
		}
		groupRows = append(groupRows, exportGroup{
			ID: groups[i].ID, Title: title, Notes: notes,
			SplitBy: groups[i].SplitBy, CreatedAt: groups[i].CreatedAt,
		})
	}
	files["data/expense-groups.json"] = groupRows

	expenseRows := make([]exportExpense, 0, len(expenses))
	for i := range expenses {
		row, err := e.exportExpenseRow(&expenses[i])
		if err != nil {
			return nil, err
		}
		expenseRows = append(expenseRows, row)
	}
	files["data/expenses.json"] = expenseRows

	recExpRows := make([]exportRecurring, 0, len(recExp))
	for i := range recExp {
		row, err := e.exportRecurringRow(recExp[i].ID, recExp[i].AmountEnc, recExp[i].DescriptionEnc)
		if err != nil {
			return nil, err
		}
		row.DueDayOfMonth = recExp[i].DueDayOfMonth
		row.SplitBy = recExp[i].SplitBy
		row.IsActive = recExp[i].IsActive
		row.CategoryID = recExp[i].CategoryID
		row.LastGeneratedOn = recExp[i].LastGeneratedOn
		recExpRows = append(recExpRows, row)
	}
	files["data/recurring-expenses.json"] = recExpRows

	incomeRows := make([]exportIncome, 0, len(incomes))
	for i := range incomes {
		amount, err := e.codec.DecryptCents(incomes[i].AmountEnc)
		if err != nil {
			return nil, fmt.Errorf("income %d: %w", incomes[i].ID, err)
		}
		description, err := e.decryptOptional(incomes[i].DescriptionEnc)
		if err != nil {
			return nil, fmt.Errorf("income %d: %w", incomes[i].ID, err)
		}
		incomeRows = append(incomeRows, exportIncome{
			ID:                incomes[i].ID,
			Amount:            util.FormatCents(amount),
			Description:       description,
			OccurredOn:        incomes[i].OccurredOn,
			RecurringSourceID: incomes[i].RecurringSourceID,
		})
	}
	files["data/income.json"] = incomeRows

	recIncRows := make([]exportRecurring, 0, len(recInc))
	for i := range recInc {
		row, err := e.exportRecurringRow(recInc[i].ID, recInc[i].AmountEnc, recInc[i].DescriptionEnc)
		if err != nil {
			return nil, err
		}
		row.DueDayOfMonth = recInc[i].DueDayOfMonth
		row.IsActive = recInc[i].IsActive
		row.LastGeneratedOn = recInc[i].LastGeneratedOn
		recIncRows = append(recIncRows, row)
	}
	files["data/recurring-income.json"] = recIncRows

	keyRows := make([]exportApiKey, 0, len(apiKeys))
	for _, k := range apiKeys {
		keyRows = append(keyRows, exportApiKey{
			ID:              k.ID,
			Prefix:          k.Prefix,
			Scopes:          util.ScopesToWire(util.SplitScopes(k.Scopes)),
			Description:     k.Description,
			ExpiresAt:       k.ExpiresAt,
			RevokedAt:       k.RevokedAt,
			TokenLastUsedAt: k.TokenLastUsedAt,
			CreatedAt:       k.CreatedAt,
		})
	}
	files["data/api-keys.json"] = keyRows

	scheduleRows := make([]exportSchedule, 0, len(schedules))
	for _, s := range schedules {
		scheduleRows = append(scheduleRows, exportSchedule{
			ID: s.ID, Name: s.Name, Mode: s.Mode, Template: s.Template,
			Frequency: s.Frequency, SourceURL: s.SourceURL,
			LastRunAt: s.LastRunAt, NextRunAt: s.NextRunAt,
		})
	}
	files["data/import-schedules.json"] = scheduleRows

	counts := map[string]int{
		"categories":        len(categoryRows),
		"categoryLimits":    len(limitRows),
		"expenseGroups":     len(groupRows),
		"expenses":          len(expenseRows),
		"recurringExpenses": len(recExpRows),
		"incomes":           len(incomeRows),
		"recurringIncomes":  len(recIncRows),
		"apiKeys":           len(keyRows),
		"importSchedules":   len(scheduleRows),
	}

	generatedAt := e.now().UTC()
	files["metadata.json"] = map[string]interface{}{
		"version":     1,
		"generatedAt": generatedAt.Format(time.RFC3339),
		"userId":      userID,
		"counts":      counts,
	}

	data, err := buildZip(files)
	if err != nil {
		return nil, err
	}

	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(generatedAt.Format(time.RFC3339))
	return &Archive{
		Filename: "expense-flow-account-export-" + stamp + ".zip",
		Data:     data,
		Counts:   counts,
	}, nil
}

func (e *Engine) exportExpenseRow(expense *models.Expense) (exportExpense, error) {
	amount, err := e.codec.DecryptCents(expense.AmountEnc)
	if err != nil {
		return exportExpense{}, fmt.Errorf("expense %d: %w", expense.ID, err)
	}
	impact, err := e.codec.DecryptCents(expense.ImpactAmountEnc)
	if err != nil {
		return exportExpense{}, fmt.Errorf("expense %d: %w", expense.ID, err)
	}
	description, err := e.decryptOptional(expense.DescriptionEnc)
	if err != nil {
		return exportExpense{}, fmt.Errorf("expense %d: %w", expense.ID, err)
	}
	splitBy := expense.SplitBy
	if expense.Group != nil {
		splitBy = expense.Group.SplitBy
	}
	return exportExpense{
		ID:                expense.ID,
		Amount:            util.FormatCents(amount),
		ImpactAmount:      util.FormatCents(impact),
		Description:       description,
		OccurredOn:        expense.OccurredOn,
		CategoryID:        expense.CategoryID,
		GroupID:           expense.GroupID,
		SplitBy:           splitBy,
		RecurringSourceID: expense.RecurringSourceID,
	}, nil
}

func (e *Engine) exportRecurringRow(id uint, amountEnc, descriptionEnc string) (exportRecurring, error) {
	amount, err := e.codec.DecryptCents(amountEnc)
	if err != nil {
		return exportRecurring{}, fmt.Errorf("template %d: %w", id, err)
	}
	description, err := e.decryptOptional(descriptionEnc)
	if err != nil {
		return exportRecurring{}, fmt.Errorf("template %d: %w", id, err)
	}
	return exportRecurring{
		ID:          id,
		Amount:      util.FormatCents(amount),
		Description: description,
	}, nil
}

func (e *Engine) decryptOptional(blob string) (string, error) {
	if blob == "" {
		return "", nil
	}
	return e.codec.DecryptString(blob)
}

func buildZip(files map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	w.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	// metadata.json first, then data files in stable order
	names := make([]string, 0, len(files))
	for name := range files {
		if name != "metadata.json" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	names = append([]string{"metadata.json"}, names...)

	for _, name := range names {
		f, err := w.Create(name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", name, err)
		}
		payload, err := json.MarshalIndent(files[name], "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", name, err)
		}
		if _, err := f.Write(payload); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Package report computes derived views over decrypted ledger values.
// Decrypted data only ever lives in the in-memory response, never in
// storage or logs.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ZeldaFan0225/expense-flow/internal/models"
	"github.com/ZeldaFan0225/expense-flow/internal/store"
	"github.com/ZeldaFan0225/expense-flow/internal/util"
)

type Engine struct {
	stores *store.Stores
	codec  *util.Codec
	now    func() time.Time
}

func NewEngine(stores *store.Stores, codec *util.Codec) *Engine {
	return &Engine{stores: stores, codec: codec, now: time.Now}
}

// ParseMonth resolves a YYYY-MM selector; missing or invalid input
// defaults to the current month.
func (e *Engine) ParseMonth(selector string) time.Time {
	if selector != "" {
		if t, err := time.Parse("2006-01", selector); err == nil {
			return t
		}
	}
	now := e.now()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func monthBounds(month time.Time) (time.Time, time.Time) {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// LimitRow is one category's spend against its ceiling.
type LimitRow struct {
	ID           uint   `json:"id"`
	CategoryID   uint   `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	Color        string `json:"color"`
	LimitCents   int64  `json:"limitCents"`
	SpentCents   int64  `json:"spentCents"`
	// Variance is spent - limit; positive means the ceiling is broken.
	VarianceCents int64  `json:"varianceCents"`
	Status        string `json:"status"`
	Limit         string `json:"limit"`
	Spent         string `json:"spent"`
	Variance      string `json:"variance"`
}

type LimitTotals struct {
	LimitCents   int64  `json:"limitCents"`
	SpentCents   int64  `json:"spentCents"`
	OverageCents int64  `json:"overageCents"`
	Limit        string `json:"limit"`
	Spent        string `json:"spent"`
	Overage      string `json:"overage"`
}

type LimitReport struct {
	Month  string      `json:"month"`
	Rows   []LimitRow  `json:"rows"`
	Totals LimitTotals `json:"totals"`
}

// CategoryLimitReport sums the month's split-adjusted expense impact per
// category and compares it against each configured ceiling. A zero limit
// with any spend is over, with the whole spend counting as overage; no
// ratio is computed here so division by zero never arises.
func (e *Engine) CategoryLimitReport(ctx context.Context, userID uint, month time.Time) (*LimitReport, error) {
	limits, err := e.stores.Limits.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	start, end := monthBounds(month)
	expenses, err := e.stores.Expenses.List(ctx, userID, store.ListParams{Start: &start, End: &end})
	if err != nil {
		return nil, err
	}

	spentByCategory, err := e.sumImpactByCategory(expenses)
	if err != nil {
		return nil, err
	}

	report := &LimitReport{
		Month: start.Format("2006-01"),
		Rows:  make([]LimitRow, 0, len(limits)),
	}
	for i := range limits {
		limit := &limits[i]
		limitCents, err := e.codec.DecryptCents(limit.AmountEnc)
		if err != nil {
			return nil, fmt.Errorf("limit %d: %w", limit.ID, err)
		}
		spent := spentByCategory[limit.CategoryID]
		variance := spent - limitCents
		status := "under"
		if variance > 0 {
			status = "over"
			report.Totals.OverageCents += variance
		}
		report.Totals.LimitCents += limitCents
		report.Totals.SpentCents += spent
		report.Rows = append(report.Rows, LimitRow{
			ID:            limit.ID,
			CategoryID:    limit.CategoryID,
			CategoryName:  limit.Category.Name,
			Color:         limit.Category.Color,
			LimitCents:    limitCents,
			SpentCents:    spent,
			VarianceCents: variance,
			Status:        status,
			Limit:         util.FormatCents(limitCents),
			Spent:         util.FormatCents(spent),
			Variance:      util.FormatCents(variance),
		})
	}

	sort.Slice(report.Rows, func(i, j int) bool {
		return report.Rows[i].CategoryName < report.Rows[j].CategoryName
	})
	report.Totals.Limit = util.FormatCents(report.Totals.LimitCents)
	report.Totals.Spent = util.FormatCents(report.Totals.SpentCents)
	report.Totals.Overage = util.FormatCents(report.Totals.OverageCents)
	return report, nil
}

// sumImpactByCategory decrypts each expense amount and attributes the
// impact share to its category. The group's split factor wins over the
// expense's own.
func (e *Engine) sumImpactByCategory(expenses []models.Expense) (map[uint]int64, error) {
	sums := make(map[uint]int64)
	for i := range expenses {
		expense := &expenses[i]
		amount, err := e.codec.DecryptCents(expense.AmountEnc)
		if err != nil {
			return nil, fmt.Errorf("expense %d: %w", expense.ID, err)
		}
		splitBy := expense.SplitBy
		if expense.Group != nil {
			splitBy = expense.Group.SplitBy
		}
		var categoryID uint
		if expense.CategoryID != nil {
			categoryID = *expense.CategoryID
		}
		sums[categoryID] += util.ImpactShare(amount, splitBy)
	}
	return sums, nil
}

// CategorySummary is one category's impact total in a monthly summary.
type CategorySummary struct {
	CategoryID   uint   `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	SpentCents   int64  `json:"spentCents"`
	Spent        string `json:"spent"`
}

type MonthlySummary struct {
	Month         string            `json:"month"`
	ExpenseCents  int64             `json:"expenseCents"`
	IncomeCents   int64             `json:"incomeCents"`
	BalanceCents  int64             `json:"balanceCents"`
	TotalExpenses string            `json:"totalExpenses"`
	TotalIncome   string            `json:"totalIncome"`
	Balance       string            `json:"balance"`
	ByCategory    []CategorySummary `json:"byCategory"`
}

// Summary aggregates the month's decrypted impact spend and income.
func (e *Engine) Summary(ctx context.Context, userID uint, month time.Time) (*MonthlySummary, error) {
	start, end := monthBounds(month)
	params := store.ListParams{Start: &start, End: &end}

	expenses, err := e.stores.Expenses.List(ctx, userID, params)
	if err != nil {
		return nil, err
	}
	incomes, err := e.stores.Incomes.List(ctx, userID, params)
	if err != nil {
		return nil, err
	}

	summary := &MonthlySummary{Month: start.Format("2006-01")}

	names := make(map[uint]string)
	byCategory, err := e.sumImpactByCategory(expenses)
	if err != nil {
		return nil, err
	}
	for i := range expenses {
		if expenses[i].Category != nil {
			names[expenses[i].Category.ID] = expenses[i].Category.Name
		}
	}
	for _, cents := range byCategory {
		summary.ExpenseCents += cents
	}
	for categoryID, cents := range byCategory {
		name := names[categoryID]
		if categoryID == 0 {
			name = "Uncategorized"
		}
		summary.ByCategory = append(summary.ByCategory, CategorySummary{
			CategoryID:   categoryID,
			CategoryName: name,
			SpentCents:   cents,
			Spent:        util.FormatCents(cents),
		})
	}
	sort.Slice(summary.ByCategory, func(i, j int) bool {
		return summary.ByCategory[i].CategoryName < summary.ByCategory[j].CategoryName
	})

	for i := range incomes {
		cents, err := e.codec.DecryptCents(incomes[i].AmountEnc)
		if err != nil {
			return nil, fmt.Errorf("income %d: %w", incomes[i].ID, err)
		}
		summary.IncomeCents += cents
	}

	summary.BalanceCents = summary.IncomeCents - summary.ExpenseCents
	summary.TotalExpenses = util.FormatCents(summary.ExpenseCents)
	summary.TotalIncome = util.FormatCents(summary.IncomeCents)
	summary.Balance = util.FormatCents(summary.BalanceCents)
	return summary, nil
}

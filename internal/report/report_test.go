package report

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZeldaFan0225/expense-flow/internal/database"
	"github.com/ZeldaFan0225/expense-flow/internal/models"
	"github.com/ZeldaFan0225/expense-flow/internal/store"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type reportEnv struct {
	db     *gorm.DB
	stores *store.Stores
	codec  *util.Codec
	engine *Engine
	userID uint
}

func newReportEnv(t *testing.T) *reportEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	codec, err := util.NewCodec(map[int]string{1: "report test key"}, 1)
	require.NoError(t, err)

	user := models.User{Username: "tester", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)

	stores := store.New(db)
	return &reportEnv{
		db:     db,
		stores: stores,
		codec:  codec,
		engine: NewEngine(stores, codec),
		userID: user.ID,
	}
}

func (e *reportEnv) addCategory(t *testing.T, name string) uint {
	t.Helper()
	category := models.Category{UserID: e.userID, Name: name}
	require.NoError(t, e.db.Create(&category).Error)
	return category.ID
}

func (e *reportEnv) setLimit(t *testing.T, categoryID uint, cents int64) {
	t.Helper()
	enc, err := e.codec.EncryptCents(cents)
	require.NoError(t, err)
	_, err = e.stores.Limits.Upsert(context.Background(), e.userID, categoryID, enc)
	require.NoError(t, err)
}

func (e *reportEnv) addExpense(t *testing.T, categoryID *uint, cents int64, splitBy int, occurredOn time.Time) *models.Expense {
	t.Helper()
	amountEnc, err := e.codec.EncryptCents(cents)
	require.NoError(t, err)
	impactEnc, err := e.codec.EncryptCents(util.ImpactShare(cents, splitBy))
	require.NoError(t, err)

	expense := models.Expense{
		UserID:          e.userID,
		CategoryID:      categoryID,
		AmountEnc:       amountEnc,
		ImpactAmountEnc: impactEnc,
		SplitBy:         splitBy,
		OccurredOn:      occurredOn,
	}
	require.NoError(t, e.db.Create(&expense).Error)
	return &expense
}

func (e *reportEnv) addIncome(t *testing.T, cents int64, occurredOn time.Time) {
	t.Helper()
	amountEnc, err := e.codec.EncryptCents(cents)
	require.NoError(t, err)
	income := models.Income{UserID: e.userID, AmountEnc: amountEnc, OccurredOn: occurredOn}
	require.NoError(t, e.db.Create(&income).Error)
}

func mid(month time.Time, day int) time.Time {
	return time.Date(month.Year(), month.Month(), day, 12, 0, 0, 0, time.UTC)
}

func TestCategoryLimitReport(t *testing.T) {
	env := newReportEnv(t)
	month := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)

	groceries := env.addCategory(t, "Groceries")
	transport := env.addCategory(t, "Transport")
	env.setLimit(t, groceries, 30000) // 300.00
	env.setLimit(t, transport, 5000)  // 50.00

	env.addExpense(t, &groceries, 20000, 1, mid(month, 3))
	env.addExpense(t, &groceries, 15000, 1, mid(month, 20)) // over by 50.00
	env.addExpense(t, &transport, 2000, 1, mid(month, 10))  // under
	// outside the month: ignored
	env.addExpense(t, &groceries, 99999, 1, mid(month.AddDate(0, 1, 0), 1))
	env.addExpense(t, &groceries, 99999, 1, mid(month.AddDate(0, -1, 0), 28))

	report, err := env.engine.CategoryLimitReport(context.Background(), env.userID, month)
	require.NoError(t, err)
	require.Equal(t, "2026-07", report.Month)
	require.Len(t, report.Rows, 2)

	// rows sorted by category name
	g := report.Rows[0]
	require.Equal(t, "Groceries", g.CategoryName)
	require.Equal(t, int64(35000), g.SpentCents)
	require.Equal(t, int64(5000), g.VarianceCents)
	require.Equal(t, "over", g.Status)
	require.Equal(t, "50.00", g.Variance)

	tr := report.Rows[1]
	require.Equal(t, "Transport", tr.CategoryName)
	require.Equal(t, int64(-3000), tr.VarianceCents)
	require.Equal(t, "under", tr.Status)

	require.Equal(t, int64(35000), report.Totals.LimitCents)
	require.Equal(t, int64(37000), report.Totals.SpentCents)
	// overage counts only broken ceilings, not the transport headroom
	require.Equal(t, int64(5000), report.Totals.OverageCents)
	require.Equal(t, "50.00", report.Totals.Overage)
}

func TestCategoryLimitReportZeroLimit(t *testing.T) {
	env := newReportEnv(t)
	month := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)

	noSpend := env.addCategory(t, "Frozen")
	env.setLimit(t, noSpend, 0)

	report, err := env.engine.CategoryLimitReport(context.Background(), env.userID, month)
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	require.Equal(t, "under", report.Rows[0].Status, "zero limit with zero spend is not over")

	env.addExpense(t, &noSpend, 1, 1, mid(month, 5))
	report, err = env.engine.CategoryLimitReport(context.Background(), env.userID, month)
	require.NoError(t, err)
	require.Equal(t, "over", report.Rows[0].Status, "any spend against a zero limit is over")
	require.Equal(t, int64(1), report.Totals.OverageCents)
}

func TestCategoryLimitReportUsesImpactShares(t *testing.T) {
	env := newReportEnv(t)
	month := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)

	dining := env.addCategory(t, "Dining")
	env.setLimit(t, dining, 10000)

	// 90.00 split three ways: only 30.00 counts against the ceiling
	env.addExpense(t, &dining, 9000, 3, mid(month, 8))

	report, err := env.engine.CategoryLimitReport(context.Background(), env.userID, month)
	require.NoError(t, err)
	require.Equal(t, int64(3000), report.Rows[0].SpentCents)
	require.Equal(t, "under", report.Rows[0].Status)
}

func TestCategoryLimitReportGroupSplitWins(t *testing.T) {
	env := newReportEnv(t)
	month := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)

	trip := env.addCategory(t, "Trip")
	env.setLimit(t, trip, 1000)

	group := models.ExpenseGroup{UserID: env.userID, SplitBy: 4}
	require.NoError(t, env.db.Create(&group).Error)
	expense := env.addExpense(t, &trip, 8000, 1, mid(month, 2))
	require.NoError(t, env.db.Model(expense).Update("group_id", group.ID).Error)

	report, err := env.engine.CategoryLimitReport(context.Background(), env.userID, month)
	require.NoError(t, err)
	// 80.00 with the group's factor 4, not the expense's own 1
	require.Equal(t, int64(2000), report.Rows[0].SpentCents)
}

func TestMonthlySummary(t *testing.T) {
	env := newReportEnv(t)
	month := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)

	groceries := env.addCategory(t, "Groceries")
	env.addExpense(t, &groceries, 12000, 1, mid(month, 4))
	env.addExpense(t, nil, 500, 1, mid(month, 6)) // uncategorized
	env.addIncome(t, 250000, mid(month, 1))

	summary, err := env.engine.Summary(context.Background(), env.userID, month)
	require.NoError(t, err)
	require.Equal(t, int64(12500), summary.ExpenseCents)
	require.Equal(t, int64(250000), summary.IncomeCents)
	require.Equal(t, int64(237500), summary.BalanceCents)
	require.Equal(t, "2375.00", summary.Balance)

	require.Len(t, summary.ByCategory, 2)
	require.Equal(t, "Groceries", summary.ByCategory[0].CategoryName)
	require.Equal(t, "Uncategorized", summary.ByCategory[1].CategoryName)
	require.Equal(t, int64(500), summary.ByCategory[1].SpentCents)
}

func TestParseMonth(t *testing.T) {
	env := newReportEnv(t)
	env.engine.now = func() time.Time {
		return time.Date(2026, time.August, 30, 10, 0, 0, 0, time.UTC)
	}

	require.Equal(t, "2026-03", env.engine.ParseMonth("2026-03").Format("2006-01"))
	require.Equal(t, "2026-08", env.engine.ParseMonth("").Format("2006-01"))
	require.Equal(t, "2026-08", env.engine.ParseMonth("not-a-month").Format("2006-01"))
}

func TestAccountExportArchive(t *testing.T) {
	env := newReportEnv(t)
	env.engine.now = func() time.Time {
		return time.Date(2026, time.August, 30, 10, 0, 0, 0, time.UTC)
	}

	groceries := env.addCategory(t, "Groceries")
	env.setLimit(t, groceries, 10000)
	env.addExpense(t, &groceries, 4200, 1, mid(env.engine.now(), 2))
	env.addIncome(t, 100000, mid(env.engine.now(), 1))

	archive, err := env.engine.AccountExport(context.Background(), env.userID)
	require.NoError(t, err)
	require.Equal(t, "expense-flow-account-export-2026-08-30T10-00-00Z.zip", archive.Filename)
	require.NotEmpty(t, archive.Data)
	require.Equal(t, 1, archive.Counts["categories"])
	require.Equal(t, 1, archive.Counts["expenses"])
	require.Equal(t, 1, archive.Counts["incomes"])
	require.Equal(t, 1, archive.Counts["categoryLimits"])
	require.Equal(t, 0, archive.Counts["apiKeys"])

	r, err := zip.NewReader(bytes.NewReader(archive.Data), int64(len(archive.Data)))
	require.NoError(t, err)
	names := make(map[string]bool, len(r.File))
	for _, f := range r.File {
		names[f.Name] = true
	}
	require.True(t, names["metadata.json"])
	require.True(t, names["data/expenses.json"])
	require.True(t, names["data/user.json"])

	// decrypted amounts appear in the payload; ciphertext does not
	for _, f := range r.File {
		if f.Name != "data/expenses.json" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		payload, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		require.Contains(t, string(payload), `"42.00"`)
		require.NotContains(t, string(payload), "v1:")
	}
}

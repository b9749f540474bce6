package recurring

import (
	"context"
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

type testEnv struct {
	db     *gorm.DB
	stores *store.Stores
	codec  *util.Codec
	userID uint
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	codec, err := util.NewCodec(map[int]string{1: "test key"}, 1)
	require.NoError(t, err)

	user := models.User{Username: "tester", PasswordHash: "x", EncryptionKeyVersion: 1}
	require.NoError(t, db.Create(&user).Error)

	return &testEnv{db: db, stores: store.New(db), codec: codec, userID: user.ID}
}

func (e *testEnv) materializerAt(now time.Time) *Materializer {
	m := NewMaterializer(e.stores.Recurring, e.codec)
	m.now = func() time.Time { return now }
	return m
}

func (e *testEnv) addExpenseTemplate(t *testing.T, dueDay int, createdAt time.Time, amountCents int64, splitBy int) *models.RecurringExpense {
	t.Helper()
	amountEnc, err := e.codec.EncryptCents(amountCents)
	require.NoError(t, err)
	descEnc, err := e.codec.EncryptString("rent")
	require.NoError(t, err)

	template := models.RecurringExpense{
		UserID:         e.userID,
		AmountEnc:      amountEnc,
		DescriptionEnc: descEnc,
		DueDayOfMonth:  dueDay,
		SplitBy:        splitBy,
		IsActive:       true,
		CreatedAt:      createdAt,
	}
	require.NoError(t, e.db.Create(&template).Error)
	return &template
}

func (e *testEnv) expenses(t *testing.T) []models.Expense {
	t.Helper()
	var out []models.Expense
	require.NoError(t, e.db.Where("user_id = ?", e.userID).Order("occurred_on ASC").Find(&out).Error)
	return out
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCatchUpClampsShortMonths(t *testing.T) {
	env := newTestEnv(t)
	env.addExpenseTemplate(t, 31, day(2026, time.January, 10), 120000, 1)

	m := env.materializerAt(day(2026, time.April, 30))
	require.NoError(t, m.CatchUp(context.Background(), env.userID))

	entries := env.expenses(t)
	require.Len(t, entries, 3)
	require.Equal(t, "2026-01-31", entries[0].OccurredOn.Format("2006-01-02"))
	require.Equal(t, "2026-02-28", entries[1].OccurredOn.Format("2006-01-02"))
	// March has 31 days again; the clamp must not stick
	require.Equal(t, "2026-03-31", entries[2].OccurredOn.Format("2006-01-02"))

	for _, entry := range entries {
		cents, err := env.codec.DecryptCents(entry.AmountEnc)
		require.NoError(t, err)
		require.Equal(t, int64(120000), cents)
	}

	var template models.RecurringExpense
	require.NoError(t, env.db.First(&template).Error)
	require.NotNil(t, template.LastGeneratedOn)
	require.Equal(t, "2026-03-31", template.LastGeneratedOn.UTC().Format("2006-01-02"))
}

func TestCatchUpIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.addExpenseTemplate(t, 15, day(2026, time.January, 1), 5000, 1)

	m := env.materializerAt(day(2026, time.March, 20))
	require.NoError(t, m.CatchUp(context.Background(), env.userID))
	require.Len(t, env.expenses(t), 3)

	require.NoError(t, m.CatchUp(context.Background(), env.userID))
	require.Len(t, env.expenses(t), 3, "second run must not duplicate entries")

	// later run picks up only the newly elapsed period
	later := env.materializerAt(day(2026, time.April, 16))
	require.NoError(t, later.CatchUp(context.Background(), env.userID))
	require.Len(t, env.expenses(t), 4)
}

func TestCatchUpSkipsDueDayBeforeCreation(t *testing.T) {
	env := newTestEnv(t)
	// created Jan 10 with due day 5: the Jan 5 period predates the
	// template and must not be generated
	env.addExpenseTemplate(t, 5, day(2026, time.January, 10), 1000, 1)

	m := env.materializerAt(day(2026, time.February, 10))
	require.NoError(t, m.CatchUp(context.Background(), env.userID))

	entries := env.expenses(t)
	require.Len(t, entries, 1)
	require.Equal(t, "2026-02-05", entries[0].OccurredOn.Format("2006-01-02"))
}

func TestCatchUpNothingDueYet(t *testing.T) {
	env := newTestEnv(t)
	env.addExpenseTemplate(t, 25, day(2026, time.March, 1), 1000, 1)

	m := env.materializerAt(day(2026, time.March, 20))
	require.NoError(t, m.CatchUp(context.Background(), env.userID))
	require.Empty(t, env.expenses(t))
}

func TestCatchUpSkipsInactiveTemplates(t *testing.T) {
	env := newTestEnv(t)
	template := env.addExpenseTemplate(t, 1, day(2026, time.January, 1), 1000, 1)
	require.NoError(t, env.db.Model(template).Update("is_active", false).Error)

	m := env.materializerAt(day(2026, time.June, 1))
	require.NoError(t, m.CatchUp(context.Background(), env.userID))
	require.Empty(t, env.expenses(t))
}

func TestCatchUpAppliesSplitToImpact(t *testing.T) {
	env := newTestEnv(t)
	env.addExpenseTemplate(t, 10, day(2026, time.January, 1), 999, 2)

	m := env.materializerAt(day(2026, time.January, 31))
	require.NoError(t, m.CatchUp(context.Background(), env.userID))

	entries := env.expenses(t)
	require.Len(t, entries, 1)

	amount, err := env.codec.DecryptCents(entries[0].AmountEnc)
	require.NoError(t, err)
	impact, err := env.codec.DecryptCents(entries[0].ImpactAmountEnc)
	require.NoError(t, err)
	require.Equal(t, int64(999), amount)
	require.Equal(t, int64(500), impact)
	require.Equal(t, 2, entries[0].SplitBy)
}

func TestCatchUpIncome(t *testing.T) {
	env := newTestEnv(t)
	amountEnc, err := env.codec.EncryptCents(250000)
	require.NoError(t, err)
	template := models.RecurringIncome{
		UserID:        env.userID,
		AmountEnc:     amountEnc,
		DueDayOfMonth: 1,
		IsActive:      true,
		CreatedAt:     day(2026, time.January, 1),
	}
	require.NoError(t, env.db.Create(&template).Error)

	m := env.materializerAt(day(2026, time.March, 2))
	require.NoError(t, m.CatchUp(context.Background(), env.userID))

	var incomes []models.Income
	require.NoError(t, env.db.Where("user_id = ?", env.userID).Order("occurred_on ASC").Find(&incomes).Error)
	require.Len(t, incomes, 3)
	require.Equal(t, &template.ID, incomes[0].RecurringSourceID)
}

func TestMaterializeLosesRaceCleanly(t *testing.T) {
	env := newTestEnv(t)
	env.addExpenseTemplate(t, 15, day(2026, time.January, 1), 1000, 1)

	// read the template, then let another run advance it first
	stale, err := env.stores.Recurring.ActiveExpenseTemplates(context.Background(), env.userID)
	require.NoError(t, err)
	require.Len(t, stale, 1)

	m := env.materializerAt(day(2026, time.February, 20))
	require.NoError(t, m.CatchUp(context.Background(), env.userID))
	require.Len(t, env.expenses(t), 2)

	// the stale observer must lose the conditional advance and write nothing
	amountEnc, err := env.codec.EncryptCents(1000)
	require.NoError(t, err)
	entry := models.Expense{
		UserID:          env.userID,
		AmountEnc:       amountEnc,
		ImpactAmountEnc: amountEnc,
		SplitBy:         1,
		OccurredOn:      day(2026, time.January, 15),
	}
	advanced, err := env.stores.Recurring.MaterializeExpense(
		context.Background(), &stale[0], []models.Expense{entry}, day(2026, time.January, 15))
	require.NoError(t, err)
	require.False(t, advanced)
	require.Len(t, env.expenses(t), 2, "losing run must not insert entries")
}

func TestDueDatesThroughYearBoundary(t *testing.T) {
	last := day(2026, time.November, 20)
	got := dueDatesThrough(&last, day(2026, time.January, 1), 20, day(2027, time.February, 1))
	require.Equal(t, []time.Time{
		day(2026, time.December, 20),
		day(2027, time.January, 20),
	}, got)
}

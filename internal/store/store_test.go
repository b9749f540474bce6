package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZeldaFan0225/expense-flow/internal/database"
	"github.com/ZeldaFan0225/expense-flow/internal/models"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) uint {
	t.Helper()
	user := models.User{Username: username, PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)
	return user.ID
}

func createCategory(t *testing.T, db *gorm.DB, userID uint, name string) uint {
	t.Helper()
	category := models.Category{UserID: userID, Name: name}
	require.NoError(t, db.Create(&category).Error)
	return category.ID
}

func TestLimitUpsertKeepsOneRowPerCategory(t *testing.T) {
	db := openTestDB(t)
	stores := New(db)
	ctx := context.Background()

	userID := createUser(t, db, "alice")
	categoryID := createCategory(t, db, userID, "Groceries")

	first, err := stores.Limits.Upsert(ctx, userID, categoryID, "v1:first")
	require.NoError(t, err)
	second, err := stores.Limits.Upsert(ctx, userID, categoryID, "v1:second")
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID, "upsert must update in place")
	require.Equal(t, "v1:second", second.AmountEnc)
	require.Equal(t, "Groceries", second.Category.Name)

	var count int64
	require.NoError(t, db.Model(&models.CategoryLimit{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestLimitUpsertIsPerUser(t *testing.T) {
	db := openTestDB(t)
	stores := New(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	aliceCat := createCategory(t, db, alice, "Food")
	bobCat := createCategory(t, db, bob, "Food")

	_, err := stores.Limits.Upsert(ctx, alice, aliceCat, "v1:a")
	require.NoError(t, err)
	_, err = stores.Limits.Upsert(ctx, bob, bobCat, "v1:b")
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.CategoryLimit{}).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestOwnershipScopingReadsAsNotFound(t *testing.T) {
	db := openTestDB(t)
	stores := New(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	expense := models.Expense{
		UserID:          alice,
		AmountEnc:       "v1:x",
		ImpactAmountEnc: "v1:x",
		SplitBy:         1,
		OccurredOn:      time.Now().UTC(),
	}
	require.NoError(t, db.Create(&expense).Error)

	// the owner sees it
	_, err := stores.Expenses.Get(ctx, alice, expense.ID)
	require.NoError(t, err)

	// anyone else sees the same response as for a nonexistent id
	_, err = stores.Expenses.Get(ctx, bob, expense.ID)
	require.ErrorIs(t, err, util.ErrNotFound)
	err = stores.Expenses.Delete(ctx, bob, expense.ID)
	require.ErrorIs(t, err, util.ErrNotFound)

	_, err = stores.Expenses.Get(ctx, alice, expense.ID+999)
	require.ErrorIs(t, err, util.ErrNotFound)
}

func TestCategoryDeleteDetachesReferences(t *testing.T) {
	db := openTestDB(t)
	stores := New(db)
	ctx := context.Background()

	userID := createUser(t, db, "alice")
	categoryID := createCategory(t, db, userID, "Transport")

	expense := models.Expense{
		UserID: userID, CategoryID: &categoryID,
		AmountEnc: "v1:x", ImpactAmountEnc: "v1:x", SplitBy: 1,
		OccurredOn: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&expense).Error)
	template := models.RecurringExpense{
		UserID: userID, CategoryID: &categoryID,
		AmountEnc: "v1:x", DueDayOfMonth: 1, SplitBy: 1, IsActive: true,
	}
	require.NoError(t, db.Create(&template).Error)
	_, err := stores.Limits.Upsert(ctx, userID, categoryID, "v1:x")
	require.NoError(t, err)

	require.NoError(t, stores.Categories.Delete(ctx, userID, categoryID))

	var gotExpense models.Expense
	require.NoError(t, db.First(&gotExpense, expense.ID).Error)
	require.Nil(t, gotExpense.CategoryID, "expense must become uncategorized")

	var gotTemplate models.RecurringExpense
	require.NoError(t, db.First(&gotTemplate, template.ID).Error)
	require.Nil(t, gotTemplate.CategoryID)

	var limitCount int64
	require.NoError(t, db.Model(&models.CategoryLimit{}).Count(&limitCount).Error)
	require.EqualValues(t, 0, limitCount, "the category's limit goes with it")
}

func TestCategoryDeleteIsOwnerScoped(t *testing.T) {
	db := openTestDB(t)
	stores := New(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	categoryID := createCategory(t, db, alice, "Food")

	err := stores.Categories.Delete(ctx, bob, categoryID)
	require.ErrorIs(t, err, util.ErrNotFound)
}

func TestCreateBatchLinksGroup(t *testing.T) {
	db := openTestDB(t)
	stores := New(db)
	ctx := context.Background()

	userID := createUser(t, db, "alice")
	group := models.ExpenseGroup{UserID: userID, TitleEnc: "v1:t", SplitBy: 3}
	expenses := []models.Expense{
		{UserID: userID, AmountEnc: "v1:a", ImpactAmountEnc: "v1:a", SplitBy: 3, OccurredOn: time.Now().UTC()},
		{UserID: userID, AmountEnc: "v1:b", ImpactAmountEnc: "v1:b", SplitBy: 3, OccurredOn: time.Now().UTC()},
	}
	require.NoError(t, stores.Expenses.CreateBatch(ctx, &group, expenses))
	require.NotZero(t, group.ID)

	listed, err := stores.Expenses.List(ctx, userID, ListParams{})
	require.NoError(t, err)
	require.Len(t, listed, 2)
	for _, e := range listed {
		require.NotNil(t, e.GroupID)
		require.Equal(t, group.ID, *e.GroupID)
		require.NotNil(t, e.Group)
		require.Equal(t, 3, e.Group.SplitBy)
	}
}

func TestApiKeyRevokeOnce(t *testing.T) {
	db := openTestDB(t)
	stores := New(db)
	ctx := context.Background()

	userID := createUser(t, db, "alice")
	key := models.ApiKey{UserID: userID, Prefix: "abcd1234", HashedSecret: "h", Scopes: "expenses_read"}
	require.NoError(t, stores.ApiKeys.Create(ctx, &key))

	require.NoError(t, stores.ApiKeys.Revoke(ctx, userID, key.ID, time.Now().UTC()))

	// already revoked: indistinguishable from absent
	err := stores.ApiKeys.Revoke(ctx, userID, key.ID, time.Now().UTC())
	require.ErrorIs(t, err, util.ErrNotFound)
}

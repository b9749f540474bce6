// Package store wraps gorm behind narrow per-entity read/write contracts.
// Every query is scoped by the owning user id, so a record belonging to
// another user is indistinguishable from an absent one.
package store

import (
	"errors"

	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"gorm.io/gorm"
)

// Stores bundles the per-entity stores over one database handle.
type Stores struct {
	Users      *UserStore
	Categories *CategoryStore
	Expenses   *ExpenseStore
	Incomes    *IncomeStore
	Recurring  *RecurringStore
	Limits     *LimitStore
	ApiKeys    *ApiKeyStore
	Schedules  *ScheduleStore
}

// New builds the store set.
func New(db *gorm.DB) *Stores {
	return &Stores{
		Users:      &UserStore{db: db},
		Categories: &CategoryStore{db: db},
		Expenses:   &ExpenseStore{db: db},
		Incomes:    &IncomeStore{db: db},
		Recurring:  &RecurringStore{db: db},
		Limits:     &LimitStore{db: db},
		ApiKeys:    &ApiKeyStore{db: db},
		Schedules:  &ScheduleStore{db: db},
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrNotFound
	}
	return err
}

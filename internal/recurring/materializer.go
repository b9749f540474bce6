// Package recurring turns monthly templates into concrete ledger
// entries. Materialization is lazy: it runs inline on ledger reads, not
// from a scheduler, and is safe to invoke repeatedly and concurrently.
package recurring

import (
	"context"
	"fmt"
	"time"

	"github.com/ZeldaFan0225/expense-flow/internal/models"
	"github.com/ZeldaFan0225/expense-flow/internal/store"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"github.com/sirupsen/logrus"
)

type Materializer struct {
	store *store.RecurringStore
	codec *util.Codec
	now   func() time.Time
}

func NewMaterializer(s *store.RecurringStore, codec *util.Codec) *Materializer {
	return &Materializer{store: s, codec: codec, now: time.Now}
}

// CatchUp generates every missing entry for the user's active templates,
// one entry per elapsed due period. A template three months behind gets
// three entries, each dated at its period's due date.
func (m *Materializer) CatchUp(ctx context.Context, userID uint) error {
	now := m.now()

	expenseTemplates, err := m.store.ActiveExpenseTemplates(ctx, userID)
	if err != nil {
		return err
	}
	for i := range expenseTemplates {
		if err := m.catchUpExpense(ctx, &expenseTemplates[i], now); err != nil {
			return err
		}
	}

	incomeTemplates, err := m.store.ActiveIncomeTemplates(ctx, userID)
	if err != nil {
		return err
	}
	for i := range incomeTemplates {
		if err := m.catchUpIncome(ctx, &incomeTemplates[i], now); err != nil {
			return err
		}
	}
	return nil
}

func (m *Materializer) catchUpExpense(ctx context.Context, template *models.RecurringExpense, now time.Time) error {
	dueDates := dueDatesThrough(template.LastGeneratedOn, template.CreatedAt, template.DueDayOfMonth, now)
	if len(dueDates) == 0 {
		return nil
	}

	amount, err := m.codec.DecryptCents(template.AmountEnc)
	if err != nil {
		return fmt.Errorf("recurring expense %d amount: %w", template.ID, err)
	}
	description, err := m.decryptDescription(template.DescriptionEnc)
	if err != nil {
		return fmt.Errorf("recurring expense %d description: %w", template.ID, err)
	}
	impact := util.ImpactShare(amount, template.SplitBy)

	entries := make([]models.Expense, 0, len(dueDates))
	for _, due := range dueDates {
		amountEnc, err := m.codec.EncryptCents(amount)
		if err != nil {
			return err
		}
		impactEnc, err := m.codec.EncryptCents(impact)
		if err != nil {
			return err
		}
		descriptionEnc, err := m.codec.EncryptString(description)
		if err != nil {
			return err
		}
		entries = append(entries, models.Expense{
			UserID:            template.UserID,
			CategoryID:        template.CategoryID,
			RecurringSourceID: &template.ID,
			AmountEnc:         amountEnc,
			ImpactAmountEnc:   impactEnc,
			DescriptionEnc:    descriptionEnc,
			SplitBy:           template.SplitBy,
			OccurredOn:        due,
		})
	}

	advanced, err := m.store.MaterializeExpense(ctx, template, entries, dueDates[len(dueDates)-1])
	if err != nil {
		return err
	}
	if !advanced {
		logrus.WithField("template_id", template.ID).Debug("recurring expense already materialized concurrently")
	}
	return nil
}

func (m *Materializer) catchUpIncome(ctx context.Context, template *models.RecurringIncome, now time.Time) error {
	dueDates := dueDatesThrough(template.LastGeneratedOn, template.CreatedAt, template.DueDayOfMonth, now)
	if len(dueDates) == 0 {
		return nil
	}

	amount, err := m.codec.DecryptCents(template.AmountEnc)
	if err != nil {
		return fmt.Errorf("recurring income %d amount: %w", template.ID, err)
	}
	description, err := m.decryptDescription(template.DescriptionEnc)
	if err != nil {
		return fmt.Errorf("recurring income %d description: %w", template.ID, err)
	}

	entries := make([]models.Income, 0, len(dueDates))
	for _, due := range dueDates {
		amountEnc, err := m.codec.EncryptCents(amount)
		if err != nil {
			return err
		}
		descriptionEnc, err := m.codec.EncryptString(description)
		if err != nil {
			return err
		}
		entries = append(entries, models.Income{
			UserID:            template.UserID,
			RecurringSourceID: &template.ID,
			AmountEnc:         amountEnc,
			DescriptionEnc:    descriptionEnc,
			OccurredOn:        due,
		})
	}

	advanced, err := m.store.MaterializeIncome(ctx, template, entries, dueDates[len(dueDates)-1])
	if err != nil {
		return err
	}
	if !advanced {
		logrus.WithField("template_id", template.ID).Debug("recurring income already materialized concurrently")
	}
	return nil
}

func (m *Materializer) decryptDescription(blob string) (string, error) {
	if blob == "" {
		return "", nil
	}
	return m.codec.DecryptString(blob)
}

// dueDatesThrough lists every due date after the last generated period up
// to and including now. Periods are iterated by (year, month), so a due
// day clamped in a short month (31 in February) does not shift later
// months off the configured day.
func dueDatesThrough(last *time.Time, createdAt time.Time, dueDay int, now time.Time) []time.Time {
	var year int
	var month time.Month
	if last != nil {
		year, month = last.Year(), last.Month()
		year, month = nextMonth(year, month)
	} else {
		year, month = createdAt.Year(), createdAt.Month()
		// A due day already past at creation starts the following month.
		if dueInMonth(year, month, dueDay).Before(dayOf(createdAt)) {
			year, month = nextMonth(year, month)
		}
	}

	var out []time.Time
	for {
		due := dueInMonth(year, month, dueDay)
		if due.After(now) {
			return out
		}
		out = append(out, due)
		year, month = nextMonth(year, month)
	}
}

// dueInMonth clamps the due day to the month's length.
func dueInMonth(year int, month time.Month, day int) time.Time {
	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func nextMonth(year int, month time.Month) (int, time.Month) {
	if month == time.December {
		return year + 1, time.January
	}
	return year, month + 1
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

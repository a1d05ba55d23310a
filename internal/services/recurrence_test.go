package services

import (
	"context"
	"testing"
	"time"

	"github.com/nimasrn/finance-ledger/internal/model"
	"github.com/nimasrn/finance-ledger/test/helpers"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerService_RegisterGeneratesFiniteSeries(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	root, err := f.svc.CreateSimple(ctx, model.SimpleTransactionRequest{
		AccountID:       f.account.ID,
		TransactionType: model.TransactionTypeDebit,
		CategoryID:      &f.expense.ID,
		Description:     "Rent",
		Value:           decimal.NewFromInt(1000),
		BuyDate:         helpers.Day(2024, time.January, 31),
		DueDate:         helpers.DayPtr(2024, time.January, 31),
		Recurrence:      monthly(model.RecurrenceEndAfterCount, 3),
	})
	require.NoError(t, err)
	assert.Empty(t, f.members(t, root.ID), "a pending root generates nothing")

	_, err = f.svc.Register(ctx, root.ID, model.RegisterRequest{PayDate: helpers.Day(2024, time.January, 31)})
	require.NoError(t, err)

	members := f.members(t, root.ID)
	require.Len(t, members, 1)
	second := members[0]
	assert.Equal(t, 2, seqOf(second))
	assert.Equal(t, "Rent (02/03)", second.Description)
	assert.Equal(t, model.StatusPending, second.Status())
	assertDay(t, helpers.Day(2024, time.February, 29), second.DueDate)
	assertAmount(t, "1000", second.Value)
	assert.Equal(t, f.expense.ID, *second.CategoryID)

	t.Run("registering again does not generate", func(t *testing.T) {
		_, err := f.svc.Register(ctx, root.ID, model.RegisterRequest{PayDate: helpers.Day(2024, time.February, 1)})
		require.NoError(t, err)
		assert.Len(t, f.members(t, root.ID), 1)
	})

	_, err = f.svc.Register(ctx, second.ID, model.RegisterRequest{PayDate: helpers.Day(2024, time.March, 1)})
	require.NoError(t, err)
	members = f.members(t, root.ID)
	require.Len(t, members, 2)
	third := members[1]
	assert.Equal(t, 3, seqOf(third))
	assert.Equal(t, "Rent (03/03)", third.Description)
	assertDay(t, helpers.Day(2024, time.March, 29), third.DueDate)

	_, err = f.svc.Register(ctx, third.ID, model.RegisterRequest{PayDate: helpers.Day(2024, time.March, 29)})
	require.NoError(t, err)
	assert.Len(t, f.members(t, root.ID), 2, "the last installment generates nothing")
}

func TestLedgerService_CreateRegisteredRootTriggers(t *testing.T) {
	f := newLedgerFixture(t)

	root, err := f.svc.CreateSimple(context.Background(), model.SimpleTransactionRequest{
		AccountID:   f.account.ID,
		CategoryID:  &f.income.ID,
		Description: "Salary",
		Value:       decimal.NewFromInt(3000),
		BuyDate:     helpers.Day(2024, time.May, 5),
		PayDate:     helpers.DayPtr(2024, time.May, 5),
		Recurrence:  monthly(model.RecurrenceEndNever, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, model.TransactionTypeCredit, root.TransactionType, "type comes from the category")

	members := f.members(t, root.ID)
	require.Len(t, members, 1)
	assert.Equal(t, "Salary (2)", members[0].Description)
	assertDay(t, helpers.Day(2024, time.June, 5), members[0].DueDate)
}

func TestLedgerService_OnDateCutoff(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	rec := monthly(model.RecurrenceEndOnDate, 0)
	rec.EndDate = helpers.DayPtr(2024, time.February, 20)
	root, err := f.svc.CreateSimple(ctx, model.SimpleTransactionRequest{
		AccountID:       f.account.ID,
		TransactionType: model.TransactionTypeDebit,
		Value:           decimal.NewFromInt(10),
		BuyDate:         helpers.Day(2024, time.January, 15),
		DueDate:         helpers.DayPtr(2024, time.January, 15),
		PayDate:         helpers.DayPtr(2024, time.January, 15),
		Recurrence:      rec,
	})
	require.NoError(t, err)

	members := f.members(t, root.ID)
	require.Len(t, members, 1)
	assertDay(t, helpers.Day(2024, time.February, 15), members[0].DueDate)

	_, err = f.svc.Register(ctx, members[0].ID, model.RegisterRequest{PayDate: helpers.Day(2024, time.February, 15)})
	require.NoError(t, err)
	assert.Len(t, f.members(t, root.ID), 1, "March 15 is past the end date")
}

func TestLedgerService_DeletePendingInstallment(t *testing.T) {
	f := newLedgerFixture(t)
	root, members := f.series(t, model.Recurrence{
		Type:     model.RecurrenceMonthly,
		Interval: 1,
		EndType:  model.RecurrenceEndNever,
	}, true, false, false, true)
	second, third, fourth := members[0], members[1], members[2]

	require.NoError(t, f.svc.Delete(context.Background(), second.ID))

	assert.True(t, f.exists(t, root.ID))
	assert.False(t, f.exists(t, second.ID))
	assert.False(t, f.exists(t, third.ID))

	left := f.members(t, root.ID)
	require.Len(t, left, 1)
	assert.Equal(t, fourth.ID, left[0].ID)
	assert.Equal(t, 2, seqOf(left[0]))
	assert.Equal(t, "Gym (2)", left[0].Description)
	assert.Equal(t, model.StatusRegistered, left[0].Status())
}

func TestLedgerService_DeleteRegisteredInstallment(t *testing.T) {
	f := newLedgerFixture(t)
	_, members := f.series(t, model.Recurrence{
		Type:     model.RecurrenceMonthly,
		Interval: 1,
		EndType:  model.RecurrenceEndNever,
	}, true, true, false)

	err := f.svc.Delete(context.Background(), members[0].ID)
	require.ErrorIs(t, err, ErrRegisteredInstallmentImmutable)
	assert.True(t, f.exists(t, members[0].ID))
	assert.True(t, f.exists(t, members[1].ID))
}

func TestLedgerService_DeleteSeriesRootPromotes(t *testing.T) {
	f := newLedgerFixture(t)
	count := 4
	root, members := f.series(t, model.Recurrence{
		Type:     model.RecurrenceMonthly,
		Interval: 1,
		EndType:  model.RecurrenceEndAfterCount,
		EndCount: &count,
	}, true, true, false)

	require.NoError(t, f.svc.Delete(context.Background(), root.ID))
	assert.False(t, f.exists(t, root.ID))

	promoted, err := f.txns.Get(context.Background(), members[0].ID)
	require.NoError(t, err)
	assert.True(t, promoted.IsRoot())
	assert.Equal(t, model.ParentNone, promoted.ParentType)
	assert.Equal(t, 1, seqOf(promoted))
	assert.Equal(t, "Gym (01/04)", promoted.Description)
	assert.Equal(t, model.RecurrenceMonthly, promoted.Recurrence.Type)
	require.NotNil(t, promoted.Recurrence.EndCount)
	assert.Equal(t, 4, *promoted.Recurrence.EndCount)

	left := f.members(t, promoted.ID)
	require.Len(t, left, 1)
	assert.Equal(t, members[1].ID, left[0].ID)
	assert.Equal(t, promoted.ID, *left[0].ParentID)
	assert.Equal(t, 2, seqOf(left[0]))
	assert.Equal(t, "Gym (02/04)", left[0].Description)
}

func TestLedgerService_DeleteSeriesRootAlone(t *testing.T) {
	f := newLedgerFixture(t)
	root, _ := f.series(t, model.Recurrence{Type: model.RecurrenceWeekly, Interval: 1, EndType: model.RecurrenceEndNever}, true)

	require.NoError(t, f.svc.Delete(context.Background(), root.ID))
	assert.False(t, f.exists(t, root.ID))
}

func TestLedgerService_Skip(t *testing.T) {
	never := model.Recurrence{Type: model.RecurrenceMonthly, Interval: 1, EndType: model.RecurrenceEndNever}

	t.Run("replaces the pending installment", func(t *testing.T) {
		f := newLedgerFixture(t)
		root, members := f.series(t, never, true, false)
		skipped := members[0]

		replacement, err := f.svc.Skip(context.Background(), skipped.ID)
		require.NoError(t, err)

		assert.False(t, f.exists(t, skipped.ID))
		left := f.members(t, root.ID)
		require.Len(t, left, 1)
		assert.Equal(t, replacement.ID, left[0].ID)
		assert.Equal(t, 2, seqOf(replacement))
		assert.Equal(t, model.StatusPending, replacement.Status())
		assertDay(t, helpers.Day(2024, time.March, 10), replacement.DueDate)
	})

	t.Run("rejects the root", func(t *testing.T) {
		f := newLedgerFixture(t)
		root, _ := f.series(t, never, false)
		_, err := f.svc.Skip(context.Background(), root.ID)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects registered installments", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, members := f.series(t, never, true, true)
		_, err := f.svc.Skip(context.Background(), members[0].ID)
		require.ErrorIs(t, err, ErrRegisteredInstallmentImmutable)
	})

	t.Run("rejects finite series", func(t *testing.T) {
		f := newLedgerFixture(t)
		count := 3
		_, members := f.series(t, model.Recurrence{
			Type: model.RecurrenceMonthly, Interval: 1, EndType: model.RecurrenceEndAfterCount, EndCount: &count,
		}, true, false)
		_, err := f.svc.Skip(context.Background(), members[0].ID)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects an installment that already has a successor", func(t *testing.T) {
		f := newLedgerFixture(t)
		root, members := f.series(t, never, true, false, false)
		_, err := f.svc.Skip(context.Background(), members[0].ID)
		require.ErrorIs(t, err, ErrValidation)
		assert.Len(t, f.members(t, root.ID), 2)
		assert.True(t, f.exists(t, members[0].ID))
	})

	t.Run("rejects interrupted series", func(t *testing.T) {
		f := newLedgerFixture(t)
		interrupted := never
		interrupted.Interrupted = true
		_, members := f.series(t, interrupted, true, false)
		_, err := f.svc.Skip(context.Background(), members[0].ID)
		require.ErrorIs(t, err, ErrRecurrenceInterrupted)
	})
}

func TestLedgerService_UndoPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("drops the generated installment", func(t *testing.T) {
		f := newLedgerFixture(t)
		root, err := f.svc.CreateSimple(ctx, model.SimpleTransactionRequest{
			AccountID:       f.account.ID,
			TransactionType: model.TransactionTypeDebit,
			Description:     "Laptop",
			Value:           decimal.NewFromInt(400),
			BuyDate:         helpers.Day(2024, time.March, 1),
			PayDate:         helpers.DayPtr(2024, time.March, 1),
			Recurrence:      monthly(model.RecurrenceEndAfterCount, 3),
		})
		require.NoError(t, err)
		generated := f.members(t, root.ID)
		require.Len(t, generated, 1)

		undone, err := f.svc.UndoPayment(ctx, root.ID)
		require.NoError(t, err)
		assert.Nil(t, undone.PayDate)
		assert.Equal(t, model.StatusPending, undone.Status())
		assert.False(t, f.exists(t, generated[0].ID))
		assert.Empty(t, f.members(t, root.ID))
	})

	t.Run("never-ending series refuse", func(t *testing.T) {
		f := newLedgerFixture(t)
		root, _ := f.series(t, model.Recurrence{Type: model.RecurrenceMonthly, Interval: 1, EndType: model.RecurrenceEndNever}, true, false)
		_, err := f.svc.UndoPayment(ctx, root.ID)
		require.ErrorIs(t, err, ErrRegisteredInstallmentImmutable)
	})

	t.Run("registered successor blocks", func(t *testing.T) {
		f := newLedgerFixture(t)
		count := 3
		root, members := f.series(t, model.Recurrence{
			Type: model.RecurrenceMonthly, Interval: 1, EndType: model.RecurrenceEndAfterCount, EndCount: &count,
		}, true, true, false)
		_, err := f.svc.UndoPayment(ctx, root.ID)
		require.ErrorIs(t, err, ErrRegisteredInstallmentImmutable)
		assert.True(t, f.exists(t, members[0].ID))
	})

	t.Run("pending node is rejected", func(t *testing.T) {
		f := newLedgerFixture(t)
		count := 3
		root, _ := f.series(t, model.Recurrence{
			Type: model.RecurrenceMonthly, Interval: 1, EndType: model.RecurrenceEndAfterCount, EndCount: &count,
		}, false)
		_, err := f.svc.UndoPayment(ctx, root.ID)
		require.ErrorIs(t, err, ErrValidation)
	})
}

func TestLedgerService_Interrupt(t *testing.T) {
	ctx := context.Background()

	t.Run("stops generation", func(t *testing.T) {
		f := newLedgerFixture(t)
		root, members := f.series(t, model.Recurrence{Type: model.RecurrenceMonthly, Interval: 1, EndType: model.RecurrenceEndNever}, true, false)

		out, err := f.svc.Interrupt(ctx, members[0].ID)
		require.NoError(t, err)
		assert.Equal(t, root.ID, out.ID)
		assert.True(t, out.Recurrence.Interrupted)
		assert.True(t, f.members(t, root.ID)[0].Recurrence.Interrupted)

		_, err = f.svc.Register(ctx, members[0].ID, model.RegisterRequest{PayDate: helpers.Day(2024, time.February, 10)})
		require.NoError(t, err)
		assert.Len(t, f.members(t, root.ID), 1)

		_, err = f.svc.GenerateNext(ctx, members[0].ID)
		require.ErrorIs(t, err, ErrRecurrenceInterrupted)
	})

	t.Run("finite series refuse", func(t *testing.T) {
		f := newLedgerFixture(t)
		count := 2
		root, _ := f.series(t, model.Recurrence{
			Type: model.RecurrenceMonthly, Interval: 1, EndType: model.RecurrenceEndAfterCount, EndCount: &count,
		}, false)
		_, err := f.svc.Interrupt(ctx, root.ID)
		require.ErrorIs(t, err, ErrValidation)
	})
}

func TestLedgerService_GenerateNext(t *testing.T) {
	ctx := context.Background()
	biweekly := model.Recurrence{Type: model.RecurrenceWeekly, Interval: 2, EndType: model.RecurrenceEndNever}

	t.Run("registered installment gets one successor", func(t *testing.T) {
		f := newLedgerFixture(t)
		root, _ := f.series(t, biweekly, true)

		next, err := f.svc.GenerateNext(ctx, root.ID)
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.Equal(t, 2, seqOf(next))
		assertDay(t, helpers.Day(2024, time.January, 24), next.DueDate)

		again, err := f.svc.GenerateNext(ctx, root.ID)
		require.NoError(t, err)
		assert.Nil(t, again, "a successor already exists")

		chained, err := f.svc.GenerateNext(ctx, next.ID)
		require.NoError(t, err)
		assert.Nil(t, chained, "the successor is still pending")
		assert.Len(t, f.members(t, root.ID), 1)
	})

	t.Run("pending root generates nothing", func(t *testing.T) {
		f := newLedgerFixture(t)
		root, _ := f.series(t, biweekly, false)

		next, err := f.svc.GenerateNext(ctx, root.ID)
		require.NoError(t, err)
		assert.Nil(t, next)
		assert.Empty(t, f.members(t, root.ID))
	})

	t.Run("registered node while another installment is pending", func(t *testing.T) {
		f := newLedgerFixture(t)
		root, members := f.series(t, biweekly, true, false, true)

		next, err := f.svc.GenerateNext(ctx, members[1].ID)
		require.NoError(t, err)
		assert.Nil(t, next)
		assert.Len(t, f.members(t, root.ID), 2)
	})

	t.Run("plain transactions are rejected", func(t *testing.T) {
		f := newLedgerFixture(t)
		plain, err := f.svc.CreateSimple(ctx, model.SimpleTransactionRequest{
			AccountID:       f.account.ID,
			TransactionType: model.TransactionTypeDebit,
			Value:           decimal.NewFromInt(1),
			BuyDate:         helpers.Day(2024, time.January, 1),
		})
		require.NoError(t, err)
		_, err = f.svc.GenerateNext(ctx, plain.ID)
		require.ErrorIs(t, err, ErrValidation)
	})
}

func TestLedgerService_InstallmentKeepsUserParentheses(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	root, err := f.svc.CreateSimple(ctx, model.SimpleTransactionRequest{
		AccountID:       f.account.ID,
		TransactionType: model.TransactionTypeDebit,
		Description:     "Property tax (2024)",
		Value:           decimal.NewFromInt(300),
		BuyDate:         helpers.Day(2024, time.February, 1),
		DueDate:         helpers.DayPtr(2024, time.February, 1),
		PayDate:         helpers.DayPtr(2024, time.February, 1),
		Recurrence:      monthly(model.RecurrenceEndAfterCount, 3),
	})
	require.NoError(t, err)
	assert.Equal(t, "Property tax (2024)", root.Description)

	members := f.members(t, root.ID)
	require.Len(t, members, 1)
	assert.Equal(t, "Property tax (2024) (02/03)", members[0].Description)

	t.Run("promotion keeps it too", func(t *testing.T) {
		require.NoError(t, f.svc.Delete(ctx, root.ID))
		promoted, err := f.txns.Get(ctx, members[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "Property tax (2024) (01/03)", promoted.Description)

		_, err = f.svc.Register(ctx, promoted.ID, model.RegisterRequest{PayDate: helpers.Day(2024, time.March, 1)})
		require.NoError(t, err)
		next := f.members(t, promoted.ID)
		require.Len(t, next, 1)
		assert.Equal(t, "Property tax (2024) (02/03)", next[0].Description)
	})
}

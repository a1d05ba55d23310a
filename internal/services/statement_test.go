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

func statementRows() (*model.Account, []*model.Transaction) {
	account := &model.Account{
		ID:             1,
		Currency:       "USD",
		OpeningBalance: decimal.NewFromInt(100),
		MinimumBalance: decimal.NewFromInt(80),
	}
	txns := []*model.Transaction{
		{ID: 4, AccountID: 1, TransactionType: model.TransactionTypeCredit, Value: decimal.NewFromInt(50), PayDate: helpers.DayPtr(2024, time.January, 3)},
		{ID: 2, AccountID: 1, TransactionType: model.TransactionTypeDebit, Value: decimal.NewFromInt(30), PayDate: helpers.DayPtr(2024, time.January, 2)},
		{ID: 5, AccountID: 1, TransactionType: model.TransactionTypeDebit, Value: decimal.NewFromInt(5)},
		{ID: 6, AccountID: 1, TransactionType: model.TransactionTypeDebit, Value: decimal.NewFromInt(7), DueDate: helpers.DayPtr(2024, time.February, 1)},
		{ID: 3, AccountID: 1, TransactionType: model.TransactionTypeDebit, Value: decimal.NewFromInt(9), DueDate: helpers.DayPtr(2024, time.January, 20)},
		{ID: 9, AccountID: 2, TransactionType: model.TransactionTypeCredit, Value: decimal.NewFromInt(1000), PayDate: helpers.DayPtr(2024, time.January, 1)},
	}
	return account, txns
}

func TestProjectStatement(t *testing.T) {
	account, txns := statementRows()

	st := ProjectStatement(account, txns, model.StatusFilterAll)

	require.Len(t, st.Registered, 2)
	assert.Equal(t, int64(2), st.Registered[0].Transaction.ID)
	assertAmount(t, "70", st.Registered[0].Balance)
	assert.True(t, st.Registered[0].BelowMinimum)
	assert.Equal(t, int64(4), st.Registered[1].Transaction.ID)
	assertAmount(t, "120", st.Registered[1].Balance)
	assert.False(t, st.Registered[1].BelowMinimum)
	assertAmount(t, "100", st.OpeningBalance)
	assertAmount(t, "120", st.FinalBalance)

	require.Len(t, st.Pending, 3)
	assert.Equal(t, int64(3), st.Pending[0].ID)
	assert.Equal(t, int64(6), st.Pending[1].ID)
	assert.Equal(t, int64(5), st.Pending[2].ID, "rows without a due date come last")

	assert.Equal(t, "$120.00", st.Format(st.FinalBalance))
}

func TestProjectStatement_SamePayDateOrdersByID(t *testing.T) {
	account := &model.Account{ID: 1, OpeningBalance: decimal.Zero}
	day := helpers.DayPtr(2024, time.March, 1)
	st := ProjectStatement(account, []*model.Transaction{
		{ID: 8, AccountID: 1, TransactionType: model.TransactionTypeDebit, Value: decimal.NewFromInt(3), PayDate: day},
		{ID: 7, AccountID: 1, TransactionType: model.TransactionTypeCredit, Value: decimal.NewFromInt(10), PayDate: day},
	}, model.StatusFilterAll)

	require.Len(t, st.Registered, 2)
	assertAmount(t, "10", st.Registered[0].Balance)
	assertAmount(t, "7", st.Registered[1].Balance)
}

func TestProjectStatement_Filters(t *testing.T) {
	account, txns := statementRows()

	registered := ProjectStatement(account, txns, model.StatusFilterRegistered)
	assert.Len(t, registered.Registered, 2)
	assert.Empty(t, registered.Pending)

	pending := ProjectStatement(account, txns, model.StatusFilterPending)
	assert.Empty(t, pending.Registered)
	assert.Len(t, pending.Pending, 3)
	assertAmount(t, "120", pending.FinalBalance)
}

func TestLedgerService_Statement(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.CreateTransfer(ctx, model.TransferRequest{
		SourceAccountID:      f.account.ID,
		DestinationAccountID: f.other.ID,
		Value:                decimal.NewFromInt(30),
		BuyDate:              helpers.Day(2024, time.January, 2),
		PayDate:              helpers.DayPtr(2024, time.January, 2),
	})
	require.NoError(t, err)
	_, err = f.svc.CreateSimple(ctx, model.SimpleTransactionRequest{
		AccountID:   f.account.ID,
		CategoryID:  &f.income.ID,
		Value:       decimal.NewFromInt(50),
		BuyDate:     helpers.Day(2024, time.January, 3),
		PayDate:     helpers.DayPtr(2024, time.January, 3),
		Description: "Bonus",
	})
	require.NoError(t, err)

	st, err := f.svc.Statement(ctx, f.account.ID, model.StatusFilterAll)
	require.NoError(t, err)
	require.Len(t, st.Registered, 2)
	assertAmount(t, "70", st.Registered[0].Balance)
	assertAmount(t, "120", st.Registered[1].Balance)
	assertAmount(t, "120", st.FinalBalance)

	savings, err := f.svc.Statement(ctx, f.other.ID, model.StatusFilterAll)
	require.NoError(t, err)
	require.Len(t, savings.Registered, 1)
	assertAmount(t, "30", savings.FinalBalance)

	_, err = f.svc.Statement(ctx, f.account.ID, model.StatusFilter("bogus"))
	require.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.Statement(ctx, 4242, model.StatusFilterAll)
	require.ErrorIs(t, err, ErrNotFound)
}

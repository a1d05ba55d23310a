package services

import (
	"context"
	"testing"
	"time"

	"github.com/nimasrn/finance-ledger/internal/model"
	"github.com/nimasrn/finance-ledger/internal/repository"
	"github.com/nimasrn/finance-ledger/pkg/pg"
	"github.com/nimasrn/finance-ledger/test/helpers"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledgerFixture struct {
	db       *pg.DB
	svc      *LedgerService
	txns     *repository.TransactionRepository
	account  *model.Account
	other    *model.Account
	expense  *model.Category
	income   *model.Category
	landlord *model.Beneficiary
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	db := helpers.SetupTestDB(t)
	txns := repository.NewTransactionRepository(db)
	svc := NewLedgerService(
		txns,
		repository.NewAccountRepository(db),
		repository.NewCategoryRepository(db),
		repository.NewBeneficiaryRepository(db),
		nil,
	)
	return &ledgerFixture{
		db:       db,
		svc:      svc,
		txns:     txns,
		account:  helpers.CreateTestAccount(t, db, "Checking", 100),
		other:    helpers.CreateTestAccount(t, db, "Savings", 0),
		expense:  helpers.CreateTestCategory(t, db, "Housing", model.TransactionTypeDebit),
		income:   helpers.CreateTestCategory(t, db, "Salary", model.TransactionTypeCredit),
		landlord: helpers.CreateTestBeneficiary(t, db, "Landlord"),
	}
}

// series inserts a root and its installments directly. paid lists, per
// sequence starting at 1, whether that installment is registered.
func (f *ledgerFixture) series(t *testing.T, rec model.Recurrence, paid ...bool) (*model.Transaction, []*model.Transaction) {
	t.Helper()
	require.NotEmpty(t, paid)

	node := func(seq int) *model.Transaction {
		due := helpers.Day(2024, time.Month(seq), 10)
		n := seq
		txn := &model.Transaction{
			OperationType:   model.OperationSimple,
			TransactionType: model.TransactionTypeDebit,
			AccountID:       f.account.ID,
			CategoryID:      &f.expense.ID,
			Description:     "Gym",
			Value:           decimal.NewFromInt(50),
			BuyDate:         due,
			DueDate:         &due,
			IsRecurring:     true,
			Sequence:        &n,
			Recurrence:      rec,
		}
		if paid[seq-1] {
			txn.PayDate = &due
		}
		return txn
	}

	root := helpers.CreateTestTransaction(t, f.db, node(1))
	var members []*model.Transaction
	for seq := 2; seq <= len(paid); seq++ {
		m := node(seq)
		m.ParentID = &root.ID
		m.ParentType = model.ParentRecurring
		m.Description = model.WithInstallmentLabel("Gym", seq, model.TotalInstallments(root))
		members = append(members, helpers.CreateTestTransaction(t, f.db, m))
	}
	return root, members
}

func (f *ledgerFixture) members(t *testing.T, rootID int64) []*model.Transaction {
	t.Helper()
	members, err := f.txns.Children(context.Background(), rootID, model.ParentRecurring)
	require.NoError(t, err)
	return members
}

func (f *ledgerFixture) legs(t *testing.T, anchorID int64) []*model.Transaction {
	t.Helper()
	legs, err := f.txns.Children(context.Background(), anchorID, model.LegParentTypes...)
	require.NoError(t, err)
	return legs
}

func (f *ledgerFixture) exists(t *testing.T, id int64) bool {
	t.Helper()
	_, err := f.txns.Get(context.Background(), id)
	if err != nil {
		require.ErrorIs(t, err, repository.ErrTransactionNotFound)
		return false
	}
	return true
}

func (f *ledgerFixture) count(t *testing.T) int64 {
	t.Helper()
	_, total, err := f.txns.List(context.Background(), model.TransactionFilter{})
	require.NoError(t, err)
	return total
}

func monthly(endType model.RecurrenceEndType, count int) *model.RecurrenceRequest {
	rec := &model.RecurrenceRequest{
		Type:     model.RecurrenceMonthly,
		Interval: 1,
		EndType:  endType,
	}
	if endType == model.RecurrenceEndAfterCount {
		rec.EndCount = &count
	}
	return rec
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func assertDay(t *testing.T, want time.Time, got *time.Time) {
	t.Helper()
	if assert.NotNil(t, got) {
		assert.True(t, want.Equal(*got), "want %s, got %s", want.Format(dateLayout), got.Format(dateLayout))
	}
}

func seqOf(t *model.Transaction) int {
	return model.CurrentInstallment(t)
}

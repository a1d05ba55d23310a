package services

import (
	"context"
	"testing"
	"time"

	"github.com/nimasrn/finance-ledger/internal/model"
	"github.com/nimasrn/finance-ledger/internal/repository"
	"github.com/nimasrn/finance-ledger/test/helpers"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(f *ledgerFixture) *CatalogService {
	return NewCatalogService(
		repository.NewAccountRepository(f.db),
		repository.NewCategoryRepository(f.db),
		repository.NewBeneficiaryRepository(f.db),
	)
}

func TestCatalogService_CreateAccount(t *testing.T) {
	f := newLedgerFixture(t)
	catalog := newCatalog(f)
	ctx := context.Background()

	t.Run("applies defaults", func(t *testing.T) {
		a, err := catalog.CreateAccount(ctx, model.Account{Name: "  Wallet ", OpeningBalance: decimal.NewFromInt(20)})
		require.NoError(t, err)
		assert.NotZero(t, a.ID)
		assert.Equal(t, "Wallet", a.Name)
		assert.Equal(t, model.AccountTypeBank, a.AccountType)
		assert.Equal(t, model.DefaultCurrency, a.Currency)
	})

	t.Run("reports every invalid field", func(t *testing.T) {
		_, err := catalog.CreateAccount(ctx, model.Account{AccountType: "crypto", Currency: "XXX1"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Len(t, verr.Fields, 3)
	})
}

func TestCatalogService_ListAccountsFavoritesFirst(t *testing.T) {
	f := newLedgerFixture(t)
	catalog := newCatalog(f)
	ctx := context.Background()

	fav, err := catalog.CreateAccount(ctx, model.Account{Name: "Zeta", IsFavorite: true})
	require.NoError(t, err)
	_, err = catalog.CreateAccount(ctx, model.Account{Name: "Alpha", IsClosed: true})
	require.NoError(t, err)

	all, err := catalog.ListAccounts(ctx, model.AccountFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, fav.ID, all[0].ID)

	open, err := catalog.ListAccounts(ctx, model.AccountFilter{OpenOnly: true})
	require.NoError(t, err)
	assert.Len(t, open, 3)
}

func TestCatalogService_DeleteAccountRemovesPostings(t *testing.T) {
	f := newLedgerFixture(t)
	catalog := newCatalog(f)
	ctx := context.Background()

	debit, credit, err := f.svc.CreateTransfer(ctx, model.TransferRequest{
		SourceAccountID:      f.account.ID,
		DestinationAccountID: f.other.ID,
		Value:                decimal.NewFromInt(10),
		BuyDate:              helpers.Day(2024, time.January, 1),
	})
	require.NoError(t, err)

	require.NoError(t, catalog.DeleteAccount(ctx, f.other.ID))
	assert.False(t, f.exists(t, debit.ID))
	assert.False(t, f.exists(t, credit.ID))

	_, err = catalog.GetAccount(ctx, f.other.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, catalog.DeleteAccount(ctx, f.other.ID), ErrNotFound)
}

func TestCatalogService_DeleteCategoryDetaches(t *testing.T) {
	f := newLedgerFixture(t)
	catalog := newCatalog(f)
	ctx := context.Background()

	txn, err := f.svc.CreateSimple(ctx, model.SimpleTransactionRequest{
		AccountID:     f.account.ID,
		CategoryID:    &f.expense.ID,
		BeneficiaryID: &f.landlord.ID,
		Value:         decimal.NewFromInt(10),
		BuyDate:       helpers.Day(2024, time.January, 1),
	})
	require.NoError(t, err)

	require.NoError(t, catalog.DeleteCategory(ctx, f.expense.ID))
	require.NoError(t, catalog.DeleteBeneficiary(ctx, f.landlord.ID))

	reloaded, err := f.svc.Get(ctx, txn.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.CategoryID)
	assert.Nil(t, reloaded.BeneficiaryID)

	require.ErrorIs(t, catalog.DeleteCategory(ctx, f.expense.ID), ErrNotFound)
}

func TestCatalogService_CategoriesAndBeneficiaries(t *testing.T) {
	f := newLedgerFixture(t)
	catalog := newCatalog(f)
	ctx := context.Background()

	_, err := catalog.CreateCategory(ctx, model.Category{Category: " "})
	require.ErrorIs(t, err, ErrValidation)
	_, err = catalog.CreateCategory(ctx, model.Category{Category: "Food", DefaultTransactionType: "refund"})
	require.ErrorIs(t, err, ErrValidation)

	food, err := catalog.CreateCategory(ctx, model.Category{Category: "Food", Subcategory: "Groceries"})
	require.NoError(t, err)
	assert.Equal(t, "Food - Groceries", food.String())

	categories, err := catalog.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 3)

	_, err = catalog.CreateBeneficiary(ctx, model.Beneficiary{})
	require.ErrorIs(t, err, ErrValidation)
	_, err = catalog.CreateBeneficiary(ctx, model.Beneficiary{FullName: "Grocer"})
	require.NoError(t, err)
	beneficiaries, err := catalog.ListBeneficiaries(ctx)
	require.NoError(t, err)
	assert.Len(t, beneficiaries, 2)
}

package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/finance-ledger/internal/model"
	"github.com/nimasrn/finance-ledger/internal/repository"
	"github.com/nimasrn/finance-ledger/pkg/pg"
	"github.com/nimasrn/finance-ledger/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// SetupTestDB returns a migrated in-memory sqlite database behind pg.DB.
func SetupTestDB(t *testing.T) *pg.DB {
	t.Helper()
	db, err := pg.CreateSQLite(":memory:", false)
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return pg.New(db, db)
}

// SetupTestRedis starts a miniredis server and an adapter registered under
// the test's name.
func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	t.Helper()
	mr := miniredis.RunT(t)

	adapter, err := redis.NewRedisAdapter(t.Name(), "test:", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestAccount(t *testing.T, db *pg.DB, name string, opening int64) *model.Account {
	t.Helper()
	account, err := repository.NewAccountRepository(db).Create(context.Background(), &model.Account{
		Name:           name,
		AccountType:    model.AccountTypeBank,
		Currency:       model.DefaultCurrency,
		OpeningBalance: decimal.NewFromInt(opening),
	})
	require.NoError(t, err)
	return account
}

func CreateTestCategory(t *testing.T, db *pg.DB, name string, defaultType model.TransactionType) *model.Category {
	t.Helper()
	category, err := repository.NewCategoryRepository(db).Create(context.Background(), &model.Category{
		Category:               name,
		Subcategory:            "general",
		DefaultTransactionType: defaultType,
	})
	require.NoError(t, err)
	return category
}

func CreateTestBeneficiary(t *testing.T, db *pg.DB, name string) *model.Beneficiary {
	t.Helper()
	b, err := repository.NewBeneficiaryRepository(db).Create(context.Background(), &model.Beneficiary{FullName: name})
	require.NoError(t, err)
	return b
}

// CreateTestTransaction inserts txn as is, bypassing every ledger rule.
func CreateTestTransaction(t *testing.T, db *pg.DB, txn *model.Transaction) *model.Transaction {
	t.Helper()
	created, err := repository.NewTransactionRepository(db).Create(context.Background(), txn)
	require.NoError(t, err)
	return created
}

func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func DayPtr(year int, month time.Month, day int) *time.Time {
	d := Day(year, month, day)
	return &d
}

func Ptr[T any](v T) *T {
	return &v
}

package bootstrap

import (
	"github.com/nimasrn/finance-ledger/internal/config"
	"github.com/nimasrn/finance-ledger/internal/repository"
	"github.com/nimasrn/finance-ledger/internal/services"
	"github.com/nimasrn/finance-ledger/pkg/logger"
	"github.com/nimasrn/finance-ledger/pkg/pg"
	"github.com/nimasrn/finance-ledger/pkg/redis"
	"github.com/pkg/errors"
)

// OpenDB connects to the configured database. sqlite files are migrated from
// the entity definitions on open; postgres relies on the goose migrations.
func OpenDB(c *config.Config) (*pg.DB, error) {
	debug := c.AppEnv == "dev"
	switch c.DBDriver {
	case config.DriverSQLite:
		db, err := pg.CreateSQLite(c.SQLitePath, debug)
		if err != nil {
			return nil, errors.Wrapf(err, "open sqlite %s", c.SQLitePath)
		}
		if err = repository.AutoMigrate(db); err != nil {
			return nil, errors.Wrap(err, "migrate sqlite schema")
		}
		return pg.New(db, db), nil
	case config.DriverPostgres:
		db, err := pg.CreateReadWrite(c.PostgresRead(), c.PostgresWrite(), debug)
		if err != nil {
			return nil, errors.Wrap(err, "connect to postgres")
		}
		return db, nil
	}
	return nil, errors.Errorf("unknown DB_DRIVER %q", c.DBDriver)
}

// Redis connects the shared adapter, or returns nil when no Redis address is
// configured.
func Redis(c *config.Config) (redis.RedisAdapter, error) {
	if c.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, series locking and idempotency keys disabled")
		return nil, nil
	}
	adapter, err := redis.NewRedisAdapter("default", c.RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{c.RedisAddr},
		ClientName: c.AppName,
		DB:         c.RedisDatabase,
		Username:   c.RedisUsername,
		Password:   c.RedisPassword,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect to redis")
	}
	return adapter, nil
}

// Locker guards series mutations with adapter, or disables locking when
// adapter is nil.
func Locker(c *config.Config, adapter redis.RedisAdapter) services.Locker {
	if adapter == nil {
		return nil
	}
	return redis.NewLocker(adapter, c.LockTTL())
}

type Services struct {
	Ledger  *services.LedgerService
	Catalog *services.CatalogService
}

func NewServices(db *pg.DB, locker services.Locker) *Services {
	accounts := repository.NewAccountRepository(db)
	categories := repository.NewCategoryRepository(db)
	beneficiaries := repository.NewBeneficiaryRepository(db)
	return &Services{
		Ledger:  services.NewLedgerService(repository.NewTransactionRepository(db), accounts, categories, beneficiaries, locker),
		Catalog: services.NewCatalogService(accounts, categories, beneficiaries),
	}
}

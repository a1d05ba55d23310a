package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
	"github.com/nimasrn/finance-ledger/internal/bootstrap"
	"github.com/nimasrn/finance-ledger/internal/config"
	"github.com/nimasrn/finance-ledger/internal/model"
	"github.com/nimasrn/finance-ledger/pkg/pg"
)

var commands = []subcommands.Command{
	&migrateCmd{},
	&migrationStatusCmd{},
	&statementCmd{},
	&nextCmd{},
	&generateDueCmd{},
}

type migrateCmd struct {
	dir string
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply pending schema migrations" }
func (*migrateCmd) Usage() string {
	return `ledger migrate [-dir <migrations dir>]

  Applies the goose migrations on postgres. For sqlite the schema is created
  from the entity definitions.
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dir, "dir", "", "migrations directory (defaults to MIGRATIONS_DIR)")
}

func (c *migrateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, ok := loadConfig()
	if !ok {
		return subcommands.ExitFailure
	}
	if cfg.DBDriver == config.DriverSQLite {
		if _, err := bootstrap.OpenDB(cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		fmt.Println("sqlite schema is up to date")
		return subcommands.ExitSuccess
	}

	dir := c.dir
	if dir == "" {
		dir = cfg.MigrationsDir
	}
	if err := pg.Migrate(cfg.PostgresWrite(), dir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type migrationStatusCmd struct {
	dir string
}

func (*migrationStatusCmd) Name() string     { return "migration-status" }
func (*migrationStatusCmd) Synopsis() string { return "show the state of every postgres migration" }
func (*migrationStatusCmd) Usage() string {
	return "ledger migration-status [-dir <migrations dir>]\n"
}

func (c *migrationStatusCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dir, "dir", "", "migrations directory (defaults to MIGRATIONS_DIR)")
}

func (c *migrationStatusCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, ok := loadConfig()
	if !ok {
		return subcommands.ExitFailure
	}
	if cfg.DBDriver != config.DriverPostgres {
		fmt.Fprintln(os.Stderr, "migration-status needs DB_DRIVER=postgres")
		return subcommands.ExitUsageError
	}
	dir := c.dir
	if dir == "" {
		dir = cfg.MigrationsDir
	}
	if err := pg.MigrationStatus(cfg.PostgresWrite(), dir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type statementCmd struct {
	account int64
	status  string
}

func (*statementCmd) Name() string     { return "statement" }
func (*statementCmd) Synopsis() string { return "print the statement of an account" }
func (*statementCmd) Usage() string {
	return `ledger statement -account <id> [-status registered|pending]

  Prints registered transactions with the running balance, flags lines
  below the account minimum, then lists pending transactions by due date.
`
}

func (c *statementCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.account, "account", 0, "account id")
	f.StringVar(&c.status, "status", "", "only list registered or pending transactions")
}

func (c *statementCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == 0 {
		fmt.Fprintln(os.Stderr, "-account is required")
		return subcommands.ExitUsageError
	}
	svc, err := openServices()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	st, err := svc.Ledger.Statement(ctx, c.account, model.StatusFilter(c.status))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	printStatement(st)
	return subcommands.ExitSuccess
}

func printStatement(st *model.Statement) {
	fmt.Printf("%s (%s)\n", st.Account.Name, st.Account.Currency)
	fmt.Printf("opening balance %s\n\n", st.Format(st.OpeningBalance))
	for _, l := range st.Registered {
		mark := ""
		if l.BelowMinimum {
			mark = " !"
		}
		fmt.Printf("%s  %-40s %14s %14s%s\n",
			l.Transaction.PayDate.Format("2006-01-02"),
			l.Transaction.Description,
			st.Format(l.Transaction.SignedValue()),
			st.Format(l.Balance),
			mark,
		)
	}
	if len(st.Pending) > 0 {
		fmt.Println("\npending")
		for _, t := range st.Pending {
			due := "no due date"
			if t.DueDate != nil {
				due = t.DueDate.Format("2006-01-02")
			}
			fmt.Printf("%-11s %-40s %14s\n", due, t.Description, st.Format(t.SignedValue()))
		}
	}
	fmt.Printf("\nfinal balance %s\n", st.Format(st.FinalBalance))
}

type nextCmd struct {
	id int64
}

func (*nextCmd) Name() string     { return "next" }
func (*nextCmd) Synopsis() string { return "generate the installment following a recurring transaction" }
func (*nextCmd) Usage() string {
	return "ledger next -id <transaction id>\n"
}

func (c *nextCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "recurring transaction id")
}

func (c *nextCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == 0 {
		fmt.Fprintln(os.Stderr, "-id is required")
		return subcommands.ExitUsageError
	}
	svc, err := openServices()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	txn, err := svc.Ledger.GenerateNext(ctx, c.id)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if txn == nil {
		fmt.Println("nothing to generate")
		return subcommands.ExitSuccess
	}
	fmt.Printf("created installment %d due %s\n", txn.ID, txn.DueDate.Format("2006-01-02"))
	return subcommands.ExitSuccess
}

type generateDueCmd struct {
	until   string
	workers int
}

func (*generateDueCmd) Name() string     { return "generate-due" }
func (*generateDueCmd) Synopsis() string { return "generate missing successors of open recurring series" }
func (*generateDueCmd) Usage() string {
	return `ledger generate-due [-until YYYY-MM-DD] [-workers n]

  Generates the next installment of every series whose latest installment
  is registered, has no successor and is due on or before the given date
  (today by default).
`
}

func (c *generateDueCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.until, "until", "", "cutoff date, defaults to today")
	f.IntVar(&c.workers, "workers", 4, "series processed in parallel")
}

func (c *generateDueCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	until := time.Now().UTC()
	if c.until != "" {
		t, err := time.Parse("2006-01-02", c.until)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -until: %v\n", err)
			return subcommands.ExitUsageError
		}
		until = t
	}
	svc, err := openServices()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	n, err := svc.Ledger.GenerateDue(ctx, until, c.workers)
	fmt.Printf("generated %d installments\n", n)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func openServices() (*bootstrap.Services, error) {
	cfg, ok := loadConfig()
	if !ok {
		return nil, errors.New("configuration is not valid")
	}
	db, err := bootstrap.OpenDB(cfg)
	if err != nil {
		return nil, err
	}
	adapter, err := bootstrap.Redis(cfg)
	if err != nil {
		return nil, err
	}
	return bootstrap.NewServices(db, bootstrap.Locker(cfg, adapter)), nil
}

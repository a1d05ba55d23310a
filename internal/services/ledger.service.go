package services

import (
	"context"
	"fmt"
	"time"

	"github.com/nimasrn/finance-ledger/internal/model"
	"github.com/nimasrn/finance-ledger/pkg/logger"
	"github.com/nimasrn/finance-ledger/pkg/prom"
)

const dateLayout = "2006-01-02"

var zeroTime time.Time

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	Update(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	Get(ctx context.Context, id int64) (*model.Transaction, error)
	Delete(ctx context.Context, ids ...int64) error
	Children(ctx context.Context, parentID int64, types ...model.ParentType) ([]*model.Transaction, error)
	ListByAccount(ctx context.Context, accountID int64) ([]*model.Transaction, error)
	SeriesRoots(ctx context.Context) ([]*model.Transaction, error)
	List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error)
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type AccountGetter interface {
	Get(ctx context.Context, id int64) (*model.Account, error)
}

type CategoryGetter interface {
	Get(ctx context.Context, id int64) (*model.Category, error)
}

type BeneficiaryGetter interface {
	Get(ctx context.Context, id int64) (*model.Beneficiary, error)
}

// Locker serializes mutations of one posting or series across processes.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type nopLocker struct{}

func (nopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }

type LedgerService struct {
	transactions  TransactionRepository
	accounts      AccountGetter
	categories    CategoryGetter
	beneficiaries BeneficiaryGetter
	locker        Locker
}

// NewLedgerService wires the ledger. A nil locker disables cross-process
// locking.
func NewLedgerService(transactions TransactionRepository, accounts AccountGetter, categories CategoryGetter, beneficiaries BeneficiaryGetter, locker Locker) *LedgerService {
	if locker == nil {
		locker = nopLocker{}
	}
	return &LedgerService{
		transactions:  transactions,
		accounts:      accounts,
		categories:    categories,
		beneficiaries: beneficiaries,
		locker:        locker,
	}
}

// run executes fn as one atomic unit. A non-zero id holds the lock of the
// posting or series id belongs to while fn runs.
func (s *LedgerService) run(ctx context.Context, op string, id int64, fn func(ctx context.Context) error) (err error) {
	start := time.Now()
	defer func() {
		prom.ObserveOperation(op, resultLabel(err), time.Since(start).Seconds())
		if err != nil {
			logger.Warn("ledger operation failed", "operation", op, "id", id, "error", err)
		}
	}()

	if id != 0 {
		unlock, lerr := s.lockSeries(ctx, id)
		if lerr != nil {
			return lerr
		}
		defer unlock()
	}

	return s.transactions.WithinTransaction(ctx, fn)
}

const maxRelock = 3

// lockSeries locks the posting or series id belongs to. The key is read again
// once the lock is held: deleting a series root moves its installments under a
// promoted root, and the lock has to follow them.
func (s *LedgerService) lockSeries(ctx context.Context, id int64) (func(), error) {
	key, err := s.lockKey(ctx, id)
	if err != nil {
		return nil, err
	}
	for attempt := 0; attempt < maxRelock; attempt++ {
		unlock, err := s.locker.Lock(ctx, key)
		if err != nil {
			return nil, lockError(err)
		}
		current, err := s.lockKey(ctx, id)
		if err != nil {
			unlock()
			return nil, err
		}
		if current == key {
			return unlock, nil
		}
		unlock()
		logger.Debug("series lock moved", "id", id, "from", key, "to", current)
		key = current
	}
	return nil, fmt.Errorf("%w: series of transaction %d moved while locking", ErrConcurrentUpdate, id)
}

// lockKey names the lock guarding the posting or series id belongs to.
func (s *LedgerService) lockKey(ctx context.Context, id int64) (string, error) {
	txn, err := s.getTransaction(ctx, id)
	if err != nil {
		return "", err
	}
	anchor, err := s.anchorOf(ctx, txn)
	if err != nil {
		return "", err
	}
	if anchor.ParentType == model.ParentRecurring && anchor.ParentID != nil {
		return fmt.Sprintf("series:%d", *anchor.ParentID), nil
	}
	return fmt.Sprintf("series:%d", anchor.ID), nil
}

func (s *LedgerService) getTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	txn, err := s.transactions.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "transaction", id)
	}
	return txn, nil
}

// anchorOf returns the row that represents the whole posting txn belongs to:
// the parent for composite and transfer legs, txn itself otherwise.
func (s *LedgerService) anchorOf(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	if !txn.ParentType.IsLeg() || txn.ParentID == nil {
		return txn, nil
	}
	return s.getTransaction(ctx, *txn.ParentID)
}

func (s *LedgerService) legsOf(ctx context.Context, anchor *model.Transaction) ([]*model.Transaction, error) {
	return s.transactions.Children(ctx, anchor.ID, model.LegParentTypes...)
}

func (s *LedgerService) Get(ctx context.Context, id int64) (*model.Transaction, error) {
	return s.getTransaction(ctx, id)
}

func (s *LedgerService) List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	return s.transactions.List(ctx, f)
}

// CreateSimple records a single-row transaction, optionally as the root of a
// new recurring series.
func (s *LedgerService) CreateSimple(ctx context.Context, req model.SimpleTransactionRequest) (*model.Transaction, error) {
	var created *model.Transaction
	err := s.run(ctx, "create_simple", 0, func(ctx context.Context) error {
		txn, err := s.buildSimple(ctx, req)
		if err != nil {
			return err
		}

		payDate := txn.PayDate
		txn.PayDate = nil
		created, err = s.transactions.Create(ctx, txn)
		if err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}

		if payDate == nil {
			return nil
		}
		created.PayDate = payDate
		registered, err := s.transactions.Update(ctx, created)
		if err != nil {
			return fmt.Errorf("register transaction %d: %w", created.ID, err)
		}
		created = registered
		_, err = s.trigger(ctx, created)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info("transaction created", "id", created.ID, "account_id", created.AccountID, "recurring", created.IsRecurring)
	return created, nil
}

func (s *LedgerService) buildSimple(ctx context.Context, req model.SimpleTransactionRequest) (*model.Transaction, error) {
	v := &ValidationError{}

	if _, err := s.openAccount(ctx, "account_id", req.AccountID); err != nil {
		return nil, err
	}
	if !req.Value.IsPositive() {
		v.Add("value", "must be greater than zero")
	}
	if req.BuyDate.IsZero() {
		v.Add("buy_date", "is required")
	}

	txType := req.TransactionType
	if req.CategoryID != nil {
		cat, err := s.categories.Get(ctx, *req.CategoryID)
		if err != nil {
			return nil, notFound(err, "category", *req.CategoryID)
		}
		if txType == "" {
			txType = cat.DefaultTransactionType
		}
	}
	if !txType.Valid() {
		v.Add("transaction_type", "must be credit or debit")
	}
	if req.BeneficiaryID != nil {
		if _, err := s.beneficiaries.Get(ctx, *req.BeneficiaryID); err != nil {
			return nil, notFound(err, "beneficiary", *req.BeneficiaryID)
		}
	}

	txn := &model.Transaction{
		OperationType:   model.OperationSimple,
		TransactionType: txType,
		AccountID:       req.AccountID,
		CategoryID:      req.CategoryID,
		BeneficiaryID:   req.BeneficiaryID,
		Description:     req.Description,
		Value:           req.Value,
		BuyDate:         model.Date(req.BuyDate),
		DueDate:         model.DatePtr(req.DueDate),
		PayDate:         model.DatePtr(req.PayDate),
	}
	if req.Recurrence != nil {
		applyRecurrence(v, "recurrence", txn, req.Recurrence)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	return txn, nil
}

// openAccount loads an account that may receive new postings.
func (s *LedgerService) openAccount(ctx context.Context, field string, id int64) (*model.Account, error) {
	account, err := s.accounts.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "account", id)
	}
	if account.IsClosed {
		return nil, invalid(field, "account %d is closed", id)
	}
	return account, nil
}

// applyRecurrence validates rec and turns txn into a series root.
func applyRecurrence(v *ValidationError, field string, txn *model.Transaction, rec *model.RecurrenceRequest) {
	if !rec.Type.Valid() {
		v.Add(field+".type", "must be one of daily, weekly, monthly, yearly")
	}
	interval := rec.Interval
	if interval == 0 {
		interval = 1
	}
	if interval < 1 {
		v.Add(field+".interval", "must be at least 1")
	}
	endType := rec.EndType
	if endType == "" {
		endType = model.RecurrenceEndNever
	}
	if !endType.Valid() {
		v.Add(field+".end_type", "must be one of never, on_date, after_count")
	}
	switch endType {
	case model.RecurrenceEndAfterCount:
		if rec.EndCount == nil || *rec.EndCount < 1 {
			v.Add(field+".end_count", "must be at least 1 when the series ends after a count")
		}
	case model.RecurrenceEndOnDate:
		if rec.EndDate == nil {
			v.Add(field+".end_date", "is required when the series ends on a date")
		} else if model.Date(*rec.EndDate).Before(txn.BuyDate) {
			v.Add(field+".end_date", "must not be before buy_date")
		}
	}

	start := rec.StartDate
	if start == nil {
		start = txn.DueDate
	}
	if start == nil {
		start = &txn.BuyDate
	}

	seq := 1
	txn.IsRecurring = true
	txn.Sequence = &seq
	txn.Recurrence = model.Recurrence{
		Type:      rec.Type,
		Interval:  interval,
		StartDate: model.DatePtr(start),
		EndType:   endType,
	}
	if endType == model.RecurrenceEndAfterCount && rec.EndCount != nil {
		n := *rec.EndCount
		txn.Recurrence.EndCount = &n
	}
	if endType == model.RecurrenceEndOnDate {
		txn.Recurrence.EndDate = model.DatePtr(rec.EndDate)
	}
}

// Register settles a transaction. Legs of a posting register the whole
// posting. Generation of the next installment only happens when the
// transaction was pending.
func (s *LedgerService) Register(ctx context.Context, id int64, req model.RegisterRequest) (*model.Transaction, error) {
	if req.PayDate.IsZero() {
		return nil, invalid("pay_date", "is required")
	}
	if req.Value != nil && !req.Value.IsPositive() {
		return nil, invalid("value", "must be greater than zero")
	}

	var out *model.Transaction
	err := s.run(ctx, "register", id, func(ctx context.Context) error {
		txn, err := s.getTransaction(ctx, id)
		if err != nil {
			return err
		}
		anchor, err := s.anchorOf(ctx, txn)
		if err != nil {
			return err
		}
		if err := s.applyRegisterFields(ctx, anchor, req); err != nil {
			return err
		}

		wasPending := !anchor.IsRegistered()
		payDate := model.Date(req.PayDate)
		anchor.PayDate = &payDate

		legs, err := s.legsOf(ctx, anchor)
		if err != nil {
			return err
		}
		for _, leg := range legs {
			leg.PayDate = &payDate
			if leg.ParentType == model.ParentTransferPair {
				mirrorTransferLeg(anchor, leg)
			}
			if _, err := s.transactions.Update(ctx, leg); err != nil {
				return fmt.Errorf("register leg %d: %w", leg.ID, err)
			}
		}

		if out, err = s.transactions.Update(ctx, anchor); err != nil {
			return fmt.Errorf("register transaction %d: %w", anchor.ID, err)
		}
		if wasPending {
			if _, err := s.trigger(ctx, out); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("transaction registered", "id", out.ID, "pay_date", out.PayDate)
	return out, nil
}

func (s *LedgerService) applyRegisterFields(ctx context.Context, txn *model.Transaction, req model.RegisterRequest) error {
	if req.Value != nil {
		txn.Value = *req.Value
	}
	if req.Description != nil {
		desc := *req.Description
		if txn.ParentType == model.ParentRecurring {
			desc = model.WithInstallmentLabel(desc, model.CurrentInstallment(txn), model.TotalInstallments(txn))
		}
		txn.Description = desc
	}
	if req.DueDate != nil {
		txn.DueDate = model.DatePtr(req.DueDate)
	}
	if req.CategoryID != nil {
		if _, err := s.categories.Get(ctx, *req.CategoryID); err != nil {
			return notFound(err, "category", *req.CategoryID)
		}
		txn.CategoryID = req.CategoryID
	}
	if req.BeneficiaryID != nil {
		if _, err := s.beneficiaries.Get(ctx, *req.BeneficiaryID); err != nil {
			return notFound(err, "beneficiary", *req.BeneficiaryID)
		}
		txn.BeneficiaryID = req.BeneficiaryID
	}
	return nil
}

// Delete removes a transaction following the rules of what it belongs to:
// legs take their whole posting with them, series members go through the
// recurrence rules.
func (s *LedgerService) Delete(ctx context.Context, id int64) error {
	err := s.run(ctx, "delete", id, func(ctx context.Context) error {
		txn, err := s.getTransaction(ctx, id)
		if err != nil {
			return err
		}
		anchor, err := s.anchorOf(ctx, txn)
		if err != nil {
			return err
		}

		switch {
		case anchor.ParentType == model.ParentRecurring:
			root, err := s.getTransaction(ctx, *anchor.ParentID)
			if err != nil {
				return err
			}
			return s.deleteInstallment(ctx, root, anchor)
		case anchor.IsRecurring && anchor.IsRoot():
			return s.deleteSeriesRoot(ctx, anchor)
		default:
			return s.deletePosting(ctx, anchor)
		}
	})
	if err != nil {
		return err
	}
	logger.Info("transaction deleted", "id", id)
	return nil
}

// deletePosting removes an anchor row together with its legs.
func (s *LedgerService) deletePosting(ctx context.Context, anchor *model.Transaction) error {
	legs, err := s.legsOf(ctx, anchor)
	if err != nil {
		return err
	}
	ids := make([]int64, 0, len(legs)+1)
	for _, leg := range legs {
		ids = append(ids, leg.ID)
	}
	ids = append(ids, anchor.ID)
	if err := s.transactions.Delete(ctx, ids...); err != nil {
		return fmt.Errorf("delete posting %d: %w", anchor.ID, err)
	}
	return nil
}

// Statement projects the account's transactions into registered lines with
// running balances and pending lines.
func (s *LedgerService) Statement(ctx context.Context, accountID int64, filter model.StatusFilter) (*model.Statement, error) {
	if !filter.Valid() {
		return nil, invalid("status", "must be registered or pending")
	}
	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, notFound(err, "account", accountID)
	}
	txns, err := s.transactions.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load transactions of account %d: %w", accountID, err)
	}
	return ProjectStatement(account, txns, filter), nil
}

package services

import (
	"context"
	"fmt"

	"github.com/nimasrn/finance-ledger/internal/model"
	"github.com/nimasrn/finance-ledger/pkg/logger"
	"github.com/nimasrn/finance-ledger/pkg/prom"
)

// CreateTransfer moves money between two accounts: a debit root on the source
// and a credit leg on the destination, both with the same value and dates.
func (s *LedgerService) CreateTransfer(ctx context.Context, req model.TransferRequest) (*model.Transaction, *model.Transaction, error) {
	var debit, credit *model.Transaction
	err := s.run(ctx, "create_transfer", 0, func(ctx context.Context) error {
		if err := s.validateTransfer(ctx, req); err != nil {
			return err
		}
		d, c := transferRows(req)

		var err error
		if debit, err = s.transactions.Create(ctx, d); err != nil {
			return fmt.Errorf("create transfer debit: %w", err)
		}
		c.ParentID = &debit.ID
		if credit, err = s.transactions.Create(ctx, c); err != nil {
			return fmt.Errorf("create transfer credit: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("transfer created", "debit_id", debit.ID, "credit_id", credit.ID,
		"source_account_id", req.SourceAccountID, "destination_account_id", req.DestinationAccountID)
	return debit, credit, nil
}

// UpdateTransfer rewrites both legs of the transfer id belongs to. Either leg
// may be passed.
func (s *LedgerService) UpdateTransfer(ctx context.Context, id int64, req model.TransferRequest) (*model.Transaction, *model.Transaction, error) {
	var debit, credit *model.Transaction
	err := s.run(ctx, "update_transfer", id, func(ctx context.Context) error {
		txn, err := s.getTransaction(ctx, id)
		if err != nil {
			return err
		}
		anchor, err := s.anchorOf(ctx, txn)
		if err != nil {
			return err
		}
		if anchor.OperationType != model.OperationTransfer || !anchor.IsRoot() {
			return invalid("id", "transaction %d is not a transfer", id)
		}
		if err := s.validateTransfer(ctx, req); err != nil {
			return err
		}

		d, c := transferRows(req)
		d.ID = anchor.ID
		d.CategoryID = anchor.CategoryID
		d.BeneficiaryID = anchor.BeneficiaryID
		d.DueDate = anchor.DueDate
		d.CreatedAt = anchor.CreatedAt
		if debit, err = s.transactions.Update(ctx, d); err != nil {
			return fmt.Errorf("update transfer debit %d: %w", d.ID, err)
		}

		legs, err := s.transactions.Children(ctx, debit.ID, model.ParentTransferPair)
		if err != nil {
			return err
		}
		c.ParentID = &debit.ID
		if len(legs) == 0 {
			credit, err = s.transactions.Create(ctx, c)
		} else {
			leg := legs[0]
			leg.AccountID = req.DestinationAccountID
			mirrorTransferLeg(debit, leg)
			credit, err = s.transactions.Update(ctx, leg)
		}
		if err != nil {
			return fmt.Errorf("update transfer credit of %d: %w", debit.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("transfer updated", "debit_id", debit.ID, "credit_id", credit.ID)
	return debit, credit, nil
}

func (s *LedgerService) validateTransfer(ctx context.Context, req model.TransferRequest) error {
	if req.SourceAccountID == req.DestinationAccountID {
		return fmt.Errorf("%w: account %d", ErrInvalidTransferEndpoints, req.SourceAccountID)
	}
	if _, err := s.openAccount(ctx, "source_account_id", req.SourceAccountID); err != nil {
		return err
	}
	if _, err := s.openAccount(ctx, "destination_account_id", req.DestinationAccountID); err != nil {
		return err
	}

	v := &ValidationError{}
	if !req.Value.IsPositive() {
		v.Add("value", "must be greater than zero")
	}
	if req.BuyDate.IsZero() {
		v.Add("buy_date", "is required")
	}
	return v.Err()
}

func transferRows(req model.TransferRequest) (*model.Transaction, *model.Transaction) {
	dst := req.DestinationAccountID
	debit := &model.Transaction{
		OperationType:        model.OperationTransfer,
		TransactionType:      model.TransactionTypeDebit,
		AccountID:            req.SourceAccountID,
		DestinationAccountID: &dst,
		Description:          req.Description,
		Value:                req.Value,
		BuyDate:              model.Date(req.BuyDate),
		PayDate:              model.DatePtr(req.PayDate),
	}
	credit := &model.Transaction{
		ParentType:      model.ParentTransferPair,
		OperationType:   model.OperationTransfer,
		TransactionType: model.TransactionTypeCredit,
		AccountID:       req.DestinationAccountID,
	}
	mirrorTransferLeg(debit, credit)
	return debit, credit
}

// mirrorTransferLeg copies the shared fields of a transfer onto its credit leg.
func mirrorTransferLeg(debit, credit *model.Transaction) {
	credit.Value = debit.Value
	credit.Description = debit.Description
	credit.BeneficiaryID = debit.BeneficiaryID
	credit.BuyDate = debit.BuyDate
	credit.DueDate = model.DatePtr(debit.DueDate)
	credit.PayDate = model.DatePtr(debit.PayDate)
}

// CreateComposite records a multi-line posting. The first line becomes the
// root; later lines and the credit side of transfer lines hang under it.
func (s *LedgerService) CreateComposite(ctx context.Context, req model.CompositeRequest) (*model.Transaction, error) {
	var root *model.Transaction
	err := s.run(ctx, "create_composite", 0, func(ctx context.Context) error {
		anchor, legs, err := s.buildComposite(ctx, req)
		if err != nil {
			return err
		}

		payDate := anchor.PayDate
		anchor.PayDate = nil
		if root, err = s.transactions.Create(ctx, anchor); err != nil {
			return fmt.Errorf("create composite root: %w", err)
		}
		if err := s.createLegs(ctx, root, legs); err != nil {
			return err
		}
		if payDate == nil {
			return nil
		}

		root.PayDate = payDate
		registered, err := s.transactions.Update(ctx, root)
		if err != nil {
			return fmt.Errorf("register composite %d: %w", root.ID, err)
		}
		root = registered
		_, err = s.trigger(ctx, root)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info("composite created", "id", root.ID, "account_id", root.AccountID, "lines", len(req.Lines))
	return root, nil
}

// UpdateComposite replaces every line of the posting id belongs to. The root
// row keeps its identity so series installments stay attached to it.
func (s *LedgerService) UpdateComposite(ctx context.Context, id int64, req model.CompositeRequest) (*model.Transaction, error) {
	return s.rewriteComposite(ctx, "update_composite", id, req)
}

// RegisterComposite is UpdateComposite with a mandatory pay date. The next
// installment is only generated once every leg exists.
func (s *LedgerService) RegisterComposite(ctx context.Context, id int64, req model.CompositeRequest) (*model.Transaction, error) {
	if req.PayDate == nil {
		return nil, invalid("pay_date", "is required")
	}
	return s.rewriteComposite(ctx, "register_composite", id, req)
}

func (s *LedgerService) rewriteComposite(ctx context.Context, op string, id int64, req model.CompositeRequest) (*model.Transaction, error) {
	var out *model.Transaction
	err := s.run(ctx, op, id, func(ctx context.Context) error {
		txn, err := s.getTransaction(ctx, id)
		if err != nil {
			return err
		}
		anchor, err := s.anchorOf(ctx, txn)
		if err != nil {
			return err
		}
		if anchor.OperationType != model.OperationCompositeMember {
			return invalid("id", "transaction %d is not a composite posting", id)
		}

		fresh, legs, err := s.buildComposite(ctx, req)
		if err != nil {
			return err
		}

		wasPending := !anchor.IsRegistered()
		if !wasPending && fresh.PayDate == nil && anchor.IsRecurring {
			root, err := s.seriesRoot(ctx, anchor)
			if err != nil {
				return err
			}
			next, err := s.successor(ctx, root, anchor)
			if err != nil {
				return err
			}
			if next != nil {
				return fmt.Errorf("%w: installment %d already produced %d, undo the payment instead",
					ErrRegisteredInstallmentImmutable, anchor.ID, next.ID)
			}
		}

		if err := s.dropLegs(ctx, anchor); err != nil {
			return err
		}

		configChanged := anchor.IsRoot() && req.Recurrence != nil
		anchor.TransactionType = fresh.TransactionType
		anchor.AccountID = fresh.AccountID
		anchor.DestinationAccountID = fresh.DestinationAccountID
		anchor.CategoryID = fresh.CategoryID
		anchor.BeneficiaryID = fresh.BeneficiaryID
		anchor.Value = fresh.Value
		anchor.BuyDate = fresh.BuyDate
		anchor.DueDate = fresh.DueDate
		anchor.Description = fresh.Description
		if anchor.ParentType == model.ParentRecurring {
			anchor.Description = model.WithInstallmentLabel(fresh.Description, model.CurrentInstallment(anchor), model.TotalInstallments(anchor))
		}
		if configChanged {
			anchor.IsRecurring = true
			anchor.Recurrence = fresh.Recurrence
			if anchor.Sequence == nil {
				anchor.Sequence = fresh.Sequence
			}
		}
		anchor.PayDate = nil

		if out, err = s.transactions.Update(ctx, anchor); err != nil {
			return fmt.Errorf("rewrite composite %d: %w", anchor.ID, err)
		}
		if err := s.createLegs(ctx, out, legs); err != nil {
			return err
		}
		if configChanged {
			if err := s.mirrorConfig(ctx, out); err != nil {
				return err
			}
		}
		if fresh.PayDate == nil {
			return nil
		}

		out.PayDate = fresh.PayDate
		registered, err := s.transactions.Update(ctx, out)
		if err != nil {
			return fmt.Errorf("register composite %d: %w", out.ID, err)
		}
		out = registered
		if wasPending {
			_, err = s.trigger(ctx, out)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info("composite rewritten", "operation", op, "id", out.ID, "lines", len(req.Lines))
	return out, nil
}

func (s *LedgerService) dropLegs(ctx context.Context, anchor *model.Transaction) error {
	legs, err := s.legsOf(ctx, anchor)
	if err != nil {
		return err
	}
	if len(legs) == 0 {
		return nil
	}
	ids := make([]int64, len(legs))
	for i, leg := range legs {
		ids[i] = leg.ID
	}
	if err := s.transactions.Delete(ctx, ids...); err != nil {
		return fmt.Errorf("drop legs of %d: %w", anchor.ID, err)
	}
	return nil
}

func (s *LedgerService) createLegs(ctx context.Context, root *model.Transaction, legs []*model.Transaction) error {
	for _, leg := range legs {
		leg.ParentID = &root.ID
		if _, err := s.transactions.Create(ctx, leg); err != nil {
			return fmt.Errorf("create leg of composite %d: %w", root.ID, err)
		}
	}
	prom.AddCompositeLegsWritten(len(legs))
	return nil
}

// mirrorConfig copies the root's recurrence configuration onto its
// installments and refreshes their counters.
func (s *LedgerService) mirrorConfig(ctx context.Context, root *model.Transaction) error {
	members, err := s.members(ctx, root)
	if err != nil {
		return err
	}
	for _, m := range members {
		m.Recurrence = root.Clone().Recurrence
		if _, err := s.transactions.Update(ctx, m); err != nil {
			return fmt.Errorf("mirror recurrence onto %d: %w", m.ID, err)
		}
	}
	return s.reorganize(ctx, root)
}

// buildComposite validates req into an unsaved root row and its legs. Every
// malformed line is reported, not only the first one.
func (s *LedgerService) buildComposite(ctx context.Context, req model.CompositeRequest) (*model.Transaction, []*model.Transaction, error) {
	if _, err := s.openAccount(ctx, "account_id", req.AccountID); err != nil {
		return nil, nil, err
	}
	if req.BeneficiaryID != nil {
		if _, err := s.beneficiaries.Get(ctx, *req.BeneficiaryID); err != nil {
			return nil, nil, notFound(err, "beneficiary", *req.BeneficiaryID)
		}
	}

	v := &ValidationError{}
	if req.BuyDate.IsZero() {
		v.Add("buy_date", "is required")
	}
	if len(req.Lines) == 0 {
		v.Add("lines", "at least one line is required")
		return nil, nil, v
	}

	buyDate := model.Date(req.BuyDate)
	var (
		anchor *model.Transaction
		legs   []*model.Transaction
	)
	for i, line := range req.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		row := &model.Transaction{
			OperationType: model.OperationCompositeMember,
			AccountID:     req.AccountID,
			BeneficiaryID: req.BeneficiaryID,
			Description:   line.Description,
			Value:         line.Value,
			BuyDate:       buyDate,
			DueDate:       model.DatePtr(req.DueDate),
			PayDate:       model.DatePtr(req.PayDate),
		}
		if !line.Value.IsPositive() {
			v.Add(field+".value", "must be greater than zero")
		}

		var credit *model.Transaction
		switch line.LineType {
		case model.LineNormal, "":
			if err := s.normalLine(ctx, v, field, line, row); err != nil {
				return nil, nil, err
			}
		case model.LineTransfer:
			ok, err := s.transferLine(ctx, v, field, req.AccountID, line, row)
			if err != nil {
				return nil, nil, err
			}
			if ok {
				credit = &model.Transaction{
					ParentType:      model.ParentComposite,
					OperationType:   model.OperationCompositeMember,
					TransactionType: model.TransactionTypeCredit,
					AccountID:       *line.DestinationAccountID,
					BeneficiaryID:   req.BeneficiaryID,
					Description:     line.Description,
					Value:           line.Value,
					BuyDate:         buyDate,
					DueDate:         model.DatePtr(req.DueDate),
					PayDate:         model.DatePtr(req.PayDate),
				}
			}
		default:
			v.Add(field+".line_type", "must be normal or transfer")
		}

		if i == 0 {
			anchor = row
		} else {
			row.ParentType = model.ParentComposite
			legs = append(legs, row)
		}
		if credit != nil {
			legs = append(legs, credit)
		}
	}

	if req.Recurrence != nil {
		applyRecurrence(v, "recurrence", anchor, req.Recurrence)
	}
	if err := v.Err(); err != nil {
		return nil, nil, err
	}
	return anchor, legs, nil
}

func (s *LedgerService) normalLine(ctx context.Context, v *ValidationError, field string, line model.CompositeLine, row *model.Transaction) error {
	if line.DestinationAccountID != nil {
		v.Add(field+".destination_account_id", "is not allowed on a normal line")
	}

	txType := line.TransactionType
	if line.CategoryID == nil {
		v.Add(field+".category_id", "is required on a normal line")
	} else {
		cat, err := s.categories.Get(ctx, *line.CategoryID)
		switch {
		case isNotFound(err):
			v.Add(field+".category_id", "category %d does not exist", *line.CategoryID)
		case err != nil:
			return err
		case txType == "":
			txType = cat.DefaultTransactionType
		}
	}
	if !txType.Valid() {
		v.Add(field+".transaction_type", "must be credit or debit")
	}

	row.TransactionType = txType
	row.CategoryID = line.CategoryID
	return nil
}

// transferLine reports whether the line is sound enough to spawn its credit
// leg.
func (s *LedgerService) transferLine(ctx context.Context, v *ValidationError, field string, accountID int64, line model.CompositeLine, row *model.Transaction) (bool, error) {
	row.TransactionType = model.TransactionTypeDebit
	row.DestinationAccountID = line.DestinationAccountID

	if line.CategoryID != nil {
		v.Add(field+".category_id", "is not allowed on a transfer line")
	}
	if line.DestinationAccountID == nil {
		v.Add(field+".destination_account_id", "is required on a transfer line")
		return false, nil
	}
	dst := *line.DestinationAccountID
	if dst == accountID {
		v.Add(field+".destination_account_id", "must differ from the posting account")
		return false, nil
	}

	account, err := s.accounts.Get(ctx, dst)
	switch {
	case isNotFound(err):
		v.Add(field+".destination_account_id", "account %d does not exist", dst)
		return false, nil
	case err != nil:
		return false, err
	case account.IsClosed:
		v.Add(field+".destination_account_id", "account %d is closed", dst)
		return false, nil
	}
	return true, nil
}

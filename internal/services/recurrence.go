package services

import (
	"context"
	"fmt"

	"github.com/nimasrn/finance-ledger/internal/model"
	"github.com/nimasrn/finance-ledger/pkg/logger"
	"github.com/nimasrn/finance-ledger/pkg/prom"
)

// Series layout: every installment points at the series root with
// parent_type=recurring and the chain order is the recurrence_sequence order.
// The root is installment 1.

func (s *LedgerService) seriesRoot(ctx context.Context, node *model.Transaction) (*model.Transaction, error) {
	if node.ParentType == model.ParentRecurring && node.ParentID != nil {
		return s.getTransaction(ctx, *node.ParentID)
	}
	return node, nil
}

func (s *LedgerService) members(ctx context.Context, root *model.Transaction) ([]*model.Transaction, error) {
	members, err := s.transactions.Children(ctx, root.ID, model.ParentRecurring)
	if err != nil {
		return nil, fmt.Errorf("load installments of %d: %w", root.ID, err)
	}
	return members, nil
}

// successor returns the installment right after node, or nil.
func (s *LedgerService) successor(ctx context.Context, root, node *model.Transaction) (*model.Transaction, error) {
	members, err := s.members(ctx, root)
	if err != nil {
		return nil, err
	}
	cur := model.CurrentInstallment(node)
	for _, m := range members {
		if m.ID != node.ID && model.CurrentInstallment(m) > cur {
			return m, nil
		}
	}
	return nil, nil
}

// pendingInstallment returns the first unregistered row of root's series, or
// nil when every installment is registered.
func (s *LedgerService) pendingInstallment(ctx context.Context, root *model.Transaction) (*model.Transaction, error) {
	if !root.IsRegistered() {
		return root, nil
	}
	members, err := s.members(ctx, root)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if !m.IsRegistered() {
			return m, nil
		}
	}
	return nil, nil
}

// trigger is evaluated once node went from pending to registered.
func (s *LedgerService) trigger(ctx context.Context, node *model.Transaction) (*model.Transaction, error) {
	if !node.IsRecurring {
		return nil, nil
	}
	root, err := s.seriesRoot(ctx, node)
	if err != nil {
		return nil, err
	}
	if !model.CanGenerateNext(root, node) {
		return nil, nil
	}
	next, err := s.successor(ctx, root, node)
	if err != nil || next != nil {
		return nil, err
	}
	return s.generate(ctx, root, node, model.CurrentInstallment(node)+1)
}

// generate creates installment seq of root's series, due one interval after
// base. The root's legs are cloned under the new installment.
func (s *LedgerService) generate(ctx context.Context, root, base *model.Transaction, seq int) (*model.Transaction, error) {
	due, err := model.NextDueDate(root, base)
	if err != nil {
		return nil, invalid("recurrence.type", "%v", err)
	}
	due = model.Date(due)

	rootID := root.ID
	inst := root.Clone()
	inst.ID = 0
	inst.ParentID = &rootID
	inst.ParentType = model.ParentRecurring
	inst.Description = model.WithInstallmentLabel(seriesDescription(root), seq, model.TotalInstallments(root))
	inst.BuyDate = due
	inst.DueDate = &due
	inst.PayDate = nil
	inst.IsRecurring = true
	inst.Sequence = &seq
	inst.CreatedAt, inst.UpdatedAt = zeroTime, zeroTime

	created, err := s.transactions.Create(ctx, inst)
	if err != nil {
		return nil, fmt.Errorf("create installment %d of %d: %w", seq, root.ID, err)
	}

	legs, err := s.legsOf(ctx, root)
	if err != nil {
		return nil, err
	}
	for _, leg := range legs {
		l := leg.Clone()
		l.ID = 0
		l.ParentID = &created.ID
		l.BuyDate = due
		l.DueDate = &due
		l.PayDate = nil
		l.CreatedAt, l.UpdatedAt = zeroTime, zeroTime
		if _, err := s.transactions.Create(ctx, l); err != nil {
			return nil, fmt.Errorf("clone leg %d for installment %d: %w", leg.ID, created.ID, err)
		}
	}

	prom.IncInstallmentsGenerated()
	logger.Info("installment generated", "root_id", root.ID, "id", created.ID, "sequence", seq, "due_date", due.Format(dateLayout))
	return created, nil
}

// seriesDescription is the description of root without the counter a
// promoted root may carry.
func seriesDescription(root *model.Transaction) string {
	return model.TrimInstallmentLabel(root.Description, model.CurrentInstallment(root), model.TotalInstallments(root))
}

// GenerateNext creates the installment following id when the series allows
// it. Only a registered installment gets a successor, and a series never holds
// more than one pending installment: it returns nil without error when id is
// still pending, another installment is pending, a successor already exists
// or the series has ended.
func (s *LedgerService) GenerateNext(ctx context.Context, id int64) (*model.Transaction, error) {
	var generated *model.Transaction
	err := s.run(ctx, "generate_next", id, func(ctx context.Context) error {
		node, err := s.recurringNode(ctx, id)
		if err != nil {
			return err
		}
		root, err := s.seriesRoot(ctx, node)
		if err != nil {
			return err
		}
		if root.Recurrence.Interrupted {
			return fmt.Errorf("%w: series %d", ErrRecurrenceInterrupted, root.ID)
		}
		if !node.IsRegistered() {
			return nil
		}
		pending, err := s.pendingInstallment(ctx, root)
		if err != nil || pending != nil {
			return err
		}
		next, err := s.successor(ctx, root, node)
		if err != nil || next != nil {
			return err
		}
		if !model.CanGenerateNext(root, node) {
			return nil
		}
		generated, err = s.generate(ctx, root, node, model.CurrentInstallment(node)+1)
		return err
	})
	return generated, err
}

func (s *LedgerService) recurringNode(ctx context.Context, id int64) (*model.Transaction, error) {
	txn, err := s.getTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	node, err := s.anchorOf(ctx, txn)
	if err != nil {
		return nil, err
	}
	if !node.IsRecurring {
		return nil, invalid("id", "transaction %d is not part of a recurring series", id)
	}
	return node, nil
}

// Interrupt stops a never-ending series for good. Installments that already
// exist are kept.
func (s *LedgerService) Interrupt(ctx context.Context, id int64) (*model.Transaction, error) {
	var out *model.Transaction
	err := s.run(ctx, "interrupt", id, func(ctx context.Context) error {
		node, err := s.recurringNode(ctx, id)
		if err != nil {
			return err
		}
		root, err := s.seriesRoot(ctx, node)
		if err != nil {
			return err
		}
		if root.Recurrence.EndType != model.RecurrenceEndNever {
			return invalid("recurrence.end_type", "only never-ending series can be interrupted")
		}
		if root.Recurrence.Interrupted {
			out = root
			return nil
		}

		root.Recurrence.Interrupted = true
		if out, err = s.transactions.Update(ctx, root); err != nil {
			return fmt.Errorf("interrupt series %d: %w", root.ID, err)
		}
		members, err := s.members(ctx, root)
		if err != nil {
			return err
		}
		for _, m := range members {
			m.Recurrence.Interrupted = true
			if _, err := s.transactions.Update(ctx, m); err != nil {
				return fmt.Errorf("interrupt installment %d: %w", m.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("series interrupted", "root_id", out.ID)
	return out, nil
}

// UndoPayment reverts a registration inside a fixed-count series, dropping
// the installment that registration generated.
func (s *LedgerService) UndoPayment(ctx context.Context, id int64) (*model.Transaction, error) {
	var out *model.Transaction
	err := s.run(ctx, "undo_payment", id, func(ctx context.Context) error {
		txn, err := s.getTransaction(ctx, id)
		if err != nil {
			return err
		}
		node, err := s.anchorOf(ctx, txn)
		if err != nil {
			return err
		}
		if !node.IsRecurring {
			return fmt.Errorf("%w: transaction %d is not part of a series with a fixed count", ErrRegisteredInstallmentImmutable, id)
		}
		root, err := s.seriesRoot(ctx, node)
		if err != nil {
			return err
		}
		if !root.Recurrence.Finite() {
			return fmt.Errorf("%w: undo is only available for series with a fixed count", ErrRegisteredInstallmentImmutable)
		}
		if !node.IsRegistered() {
			return invalid("pay_date", "transaction %d is not registered", node.ID)
		}

		next, err := s.successor(ctx, root, node)
		if err != nil {
			return err
		}
		if next != nil {
			if next.IsRegistered() {
				return fmt.Errorf("%w: installment %d is already registered", ErrRegisteredInstallmentImmutable, next.ID)
			}
			if err := s.deletePosting(ctx, next); err != nil {
				return err
			}
		}

		node.PayDate = nil
		legs, err := s.legsOf(ctx, node)
		if err != nil {
			return err
		}
		for _, leg := range legs {
			leg.PayDate = nil
			if _, err := s.transactions.Update(ctx, leg); err != nil {
				return fmt.Errorf("undo leg %d: %w", leg.ID, err)
			}
		}
		if out, err = s.transactions.Update(ctx, node); err != nil {
			return fmt.Errorf("undo payment of %d: %w", node.ID, err)
		}
		if next != nil {
			return s.reorganize(ctx, root)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("payment undone", "id", out.ID)
	return out, nil
}

// Skip replaces a pending installment of a never-ending series with the one
// that would follow it, keeping its sequence number. The installment must be
// the last of its series so that no period ends up with two installments.
func (s *LedgerService) Skip(ctx context.Context, id int64) (*model.Transaction, error) {
	var replacement *model.Transaction
	err := s.run(ctx, "skip", id, func(ctx context.Context) error {
		node, err := s.recurringNode(ctx, id)
		if err != nil {
			return err
		}
		if node.ParentType != model.ParentRecurring {
			return invalid("id", "the first installment of a series cannot be skipped")
		}
		if node.IsRegistered() {
			return fmt.Errorf("%w: installment %d is registered", ErrRegisteredInstallmentImmutable, node.ID)
		}
		root, err := s.seriesRoot(ctx, node)
		if err != nil {
			return err
		}
		if root.Recurrence.Interrupted {
			return fmt.Errorf("%w: series %d", ErrRecurrenceInterrupted, root.ID)
		}
		if root.Recurrence.EndType != model.RecurrenceEndNever {
			return invalid("recurrence.end_type", "only never-ending series support skipping")
		}
		next, err := s.successor(ctx, root, node)
		if err != nil {
			return err
		}
		if next != nil {
			return invalid("id", "installment %d is followed by installment %d", node.ID, next.ID)
		}

		seq := model.CurrentInstallment(node)
		if err := s.deletePosting(ctx, node); err != nil {
			return err
		}
		replacement, err = s.generate(ctx, root, node, seq)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info("installment skipped", "skipped_id", id, "replacement_id", replacement.ID)
	return replacement, nil
}

// deleteInstallment removes a pending installment together with every later
// pending one. Registered installments survive and the series is renumbered.
func (s *LedgerService) deleteInstallment(ctx context.Context, root, node *model.Transaction) error {
	if node.IsRegistered() {
		return fmt.Errorf("%w: installment %d is registered", ErrRegisteredInstallmentImmutable, node.ID)
	}
	members, err := s.members(ctx, root)
	if err != nil {
		return err
	}
	seq := model.CurrentInstallment(node)
	for _, m := range members {
		if m.ID == node.ID || m.IsRegistered() || model.CurrentInstallment(m) <= seq {
			continue
		}
		if err := s.deletePosting(ctx, m); err != nil {
			return err
		}
	}
	if err := s.deletePosting(ctx, node); err != nil {
		return err
	}
	return s.reorganize(ctx, root)
}

// deleteSeriesRoot removes the root row only; its installments live on under
// the earliest of them.
func (s *LedgerService) deleteSeriesRoot(ctx context.Context, root *model.Transaction) error {
	members, err := s.members(ctx, root)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return s.deletePosting(ctx, root)
	}
	newRoot, err := s.promote(ctx, root, members)
	if err != nil {
		return err
	}
	if err := s.deletePosting(ctx, root); err != nil {
		return err
	}
	return s.reorganize(ctx, newRoot)
}

// promote detaches the earliest installment, hands it the series
// configuration and re-points the other installments to it.
func (s *LedgerService) promote(ctx context.Context, root *model.Transaction, members []*model.Transaction) (*model.Transaction, error) {
	first := members[0]
	config := root.Clone().Recurrence

	first.ParentID = nil
	first.ParentType = model.ParentNone
	first.Recurrence = config
	total := model.TotalInstallments(root)
	if model.TrimInstallmentLabel(first.Description, model.CurrentInstallment(first), total) != first.Description {
		first.Description = model.RelabelInstallment(first.Description, model.CurrentInstallment(first), 1, total)
	}
	one := 1
	first.Sequence = &one
	promoted, err := s.transactions.Update(ctx, first)
	if err != nil {
		return nil, fmt.Errorf("promote installment %d: %w", first.ID, err)
	}

	for _, m := range members[1:] {
		newParent := promoted.ID
		m.ParentID = &newParent
		m.Recurrence = promoted.Clone().Recurrence
		if _, err := s.transactions.Update(ctx, m); err != nil {
			return nil, fmt.Errorf("re-parent installment %d: %w", m.ID, err)
		}
	}

	logger.Info("series root promoted", "old_root_id", root.ID, "new_root_id", promoted.ID)
	return promoted, nil
}

// reorganize renumbers the installments of root contiguously from 2 and
// rewrites their description counters.
func (s *LedgerService) reorganize(ctx context.Context, root *model.Transaction) error {
	members, err := s.members(ctx, root)
	if err != nil {
		return err
	}
	total := model.TotalInstallments(root)
	for i, m := range members {
		seq := i + 2
		desc := model.RelabelInstallment(m.Description, model.CurrentInstallment(m), seq, total)
		if m.Sequence != nil && *m.Sequence == seq && desc == m.Description {
			continue
		}
		m.Sequence = &seq
		m.Description = desc
		if _, err := s.transactions.Update(ctx, m); err != nil {
			return fmt.Errorf("renumber installment %d: %w", m.ID, err)
		}
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nimasrn/finance-ledger/internal/model"
	"github.com/nimasrn/finance-ledger/pkg/logger"
	"github.com/nimasrn/finance-ledger/pkg/worker"
)

// GenerateDue fills the missing successor of every open series whose latest
// installment is registered and due on or before until, as registration
// would have done. Series with a pending installment are left alone, so a
// run creates at most one installment per series. Series are processed by up
// to workers goroutines and the number of installments created is returned
// along with every failure.
func (s *LedgerService) GenerateDue(ctx context.Context, until time.Time, workers int) (int, error) {
	roots, err := s.transactions.SeriesRoots(ctx)
	if err != nil {
		return 0, fmt.Errorf("load series roots: %w", err)
	}
	until = model.Date(until)

	var (
		generated atomic.Int64
		mu        sync.Mutex
		errs      []error
	)
	pool := worker.NewWorkerManager(len(roots), workers)
	pool.SetWorker(func(ctx context.Context, _ int, job interface{}) {
		root := job.(*model.Transaction)
		n, err := s.fillSuccessor(ctx, root, until)
		generated.Add(int64(n))
		if err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}
	})
	pool.Start(ctx)
	for _, root := range roots {
		pool.Enqueue(root)
	}
	pool.Wait()

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	logger.Info("due installments generated",
		"until", until.Format(dateLayout),
		"series", len(roots),
		"generated", generated.Load(),
		"failures", len(errs))
	return int(generated.Load()), errors.Join(errs...)
}

func (s *LedgerService) fillSuccessor(ctx context.Context, root *model.Transaction, until time.Time) (int, error) {
	members, err := s.members(ctx, root)
	if err != nil {
		return 0, err
	}
	tip := root
	if len(members) > 0 {
		tip = members[len(members)-1]
	}
	if !tip.IsRegistered() || dueOf(tip).After(until) {
		return 0, nil
	}

	next, err := s.GenerateNext(ctx, tip.ID)
	if errors.Is(err, ErrRecurrenceInterrupted) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("series %d: %w", root.ID, err)
	}
	if next == nil {
		return 0, nil
	}
	return 1, nil
}

// dueOf is the date a recurring node counts as due, the same base the next
// due date is computed from.
func dueOf(t *model.Transaction) time.Time {
	switch {
	case t.DueDate != nil:
		return model.Date(*t.DueDate)
	case t.PayDate != nil:
		return model.Date(*t.PayDate)
	}
	return model.Date(t.BuyDate)
}

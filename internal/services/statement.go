package services

import (
	"sort"

	"github.com/nimasrn/finance-ledger/internal/model"
)

// ProjectStatement turns the transactions of one account into a statement.
// Registered rows are applied to the opening balance in pay date order (ties
// by id); pending rows are listed by due date with undated ones last. The
// filter only restricts what is listed, the final balance always covers every
// registered row.
func ProjectStatement(account *model.Account, txns []*model.Transaction, filter model.StatusFilter) *model.Statement {
	st := &model.Statement{
		Account:        account,
		Filter:         filter,
		OpeningBalance: account.OpeningBalance,
		Registered:     []model.StatementLine{},
		Pending:        []*model.Transaction{},
	}

	var registered, pending []*model.Transaction
	for _, t := range txns {
		if t.AccountID != account.ID {
			continue
		}
		if t.IsRegistered() {
			registered = append(registered, t)
		} else {
			pending = append(pending, t)
		}
	}

	sort.SliceStable(registered, func(i, j int) bool {
		a, b := registered[i], registered[j]
		if !a.PayDate.Equal(*b.PayDate) {
			return a.PayDate.Before(*b.PayDate)
		}
		return a.ID < b.ID
	})
	sort.SliceStable(pending, func(i, j int) bool {
		a, b := pending[i], pending[j]
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return a.ID < b.ID
		case a.DueDate == nil:
			return false
		case b.DueDate == nil:
			return true
		case !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		}
		return a.ID < b.ID
	})

	balance := account.OpeningBalance
	for _, t := range registered {
		balance = balance.Add(t.SignedValue())
		if filter == model.StatusFilterPending {
			continue
		}
		st.Registered = append(st.Registered, model.StatementLine{
			Transaction:  t,
			Balance:      balance,
			BelowMinimum: balance.LessThan(account.MinimumBalance),
		})
	}
	st.FinalBalance = balance

	if filter != model.StatusFilterRegistered {
		st.Pending = append(st.Pending, pending...)
	}
	return st
}

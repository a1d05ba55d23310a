package model

import "github.com/shopspring/decimal"

type StatusFilter string

const (
	StatusFilterAll        StatusFilter = ""
	StatusFilterRegistered StatusFilter = "registered"
	StatusFilterPending    StatusFilter = "pending"
)

func (f StatusFilter) Valid() bool {
	return f == StatusFilterAll || f == StatusFilterRegistered || f == StatusFilterPending
}

// StatementLine is a registered transaction with the account balance right
// after it.
type StatementLine struct {
	Transaction  *Transaction    `json:"transaction"`
	Balance      decimal.Decimal `json:"balance"`
	BelowMinimum bool            `json:"below_minimum"`
}

type Statement struct {
	Account        *Account        `json:"account"`
	Filter         StatusFilter    `json:"status_filter,omitempty"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Registered     []StatementLine `json:"registered"`
	Pending        []*Transaction  `json:"pending"`
	FinalBalance   decimal.Decimal `json:"final_balance"`
}

// Format renders an amount in the statement's account currency.
func (s *Statement) Format(v decimal.Decimal) string {
	cur := DefaultCurrency
	if s.Account != nil && s.Account.Currency != "" {
		cur = s.Account.Currency
	}
	return FormatAmount(v, cur)
}

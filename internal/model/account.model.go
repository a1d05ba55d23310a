package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeCash   AccountType = "cash"
	AccountTypeBank   AccountType = "bank"
	AccountTypeInvest AccountType = "invest"
)

const DefaultCurrency = "BRL"

type Account struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Institution    string          `json:"institution"`
	Number         string          `json:"number"`
	AccountType    AccountType     `json:"account_type"`
	Currency       string          `json:"currency"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	MinimumBalance decimal.Decimal `json:"minimum_balance"`
	Group          string          `json:"group"`
	Abbreviation   string          `json:"abbreviation"`
	Comment        string          `json:"comment"`
	IsFavorite     bool            `json:"is_favorite"`
	IsClosed       bool            `json:"is_closed"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// AccountFilter controls account listing. Favorites always come first.
type AccountFilter struct {
	OpenOnly bool
}

type Category struct {
	ID                     int64           `json:"id"`
	Category               string          `json:"category"`
	Subcategory            string          `json:"subcategory"`
	DefaultTransactionType TransactionType `json:"default_transaction_type"`
}

func (c Category) String() string {
	return c.Category + " - " + c.Subcategory
}

type Beneficiary struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
}

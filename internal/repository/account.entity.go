package repository

import (
	"time"

	"github.com/nimasrn/finance-ledger/internal/model"
	"github.com/shopspring/decimal"
)

type AccountEntity struct {
	ID             int64           `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	Name           string          `db:"name"            gorm:"column:name;size:100;not null"`
	Institution    string          `db:"institution"     gorm:"column:institution;size:100;not null;default:''"`
	Number         string          `db:"number"          gorm:"column:number;size:50;not null;default:''"`
	AccountType    string          `db:"account_type"    gorm:"column:account_type;size:10;not null;default:bank"`
	Currency       string          `db:"currency"        gorm:"column:currency;size:3;not null;default:BRL"`
	OpeningBalance decimal.Decimal `db:"opening_balance" gorm:"column:opening_balance;type:numeric(12,2);not null;default:0"`
	MinimumBalance decimal.Decimal `db:"minimum_balance" gorm:"column:minimum_balance;type:numeric(12,2);not null;default:0"`
	Group          string          `db:"group"           gorm:"column:account_group;size:100;not null;default:''"`
	Abbreviation   string          `db:"abbreviation"    gorm:"column:abbreviation;size:20;not null;default:''"`
	Comment        string          `db:"comment"         gorm:"column:comment;not null;default:''"`
	IsFavorite     bool            `db:"is_favorite"     gorm:"column:is_favorite;not null;default:false"`
	IsClosed       bool            `db:"is_closed"       gorm:"column:is_closed;not null;default:false"`
	CreatedAt      time.Time       `db:"created_at"      gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `db:"updated_at"      gorm:"column:updated_at;autoUpdateTime"`
}

func (AccountEntity) TableName() string {
	return "accounts"
}

func toAccountEntity(m *model.Account) *AccountEntity {
	if m == nil {
		return nil
	}
	return &AccountEntity{
		ID:             m.ID,
		Name:           m.Name,
		Institution:    m.Institution,
		Number:         m.Number,
		AccountType:    string(m.AccountType),
		Currency:       m.Currency,
		OpeningBalance: m.OpeningBalance,
		MinimumBalance: m.MinimumBalance,
		Group:          m.Group,
		Abbreviation:   m.Abbreviation,
		Comment:        m.Comment,
		IsFavorite:     m.IsFavorite,
		IsClosed:       m.IsClosed,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toAccountModel(e *AccountEntity) *model.Account {
	if e == nil {
		return nil
	}
	return &model.Account{
		ID:             e.ID,
		Name:           e.Name,
		Institution:    e.Institution,
		Number:         e.Number,
		AccountType:    model.AccountType(e.AccountType),
		Currency:       e.Currency,
		OpeningBalance: e.OpeningBalance,
		MinimumBalance: e.MinimumBalance,
		Group:          e.Group,
		Abbreviation:   e.Abbreviation,
		Comment:        e.Comment,
		IsFavorite:     e.IsFavorite,
		IsClosed:       e.IsClosed,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func toAccountModels(entities []*AccountEntity) []*model.Account {
	if entities == nil {
		return nil
	}
	models := make([]*model.Account, len(entities))
	for i, e := range entities {
		models[i] = toAccountModel(e)
	}
	return models
}

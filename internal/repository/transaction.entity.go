package repository

import (
	"time"

	"github.com/nimasrn/finance-ledger/internal/model"
	"github.com/shopspring/decimal"
)

type TransactionEntity struct {
	ID                   int64           `db:"id"                     gorm:"primaryKey;autoIncrement;column:id"`
	ParentID             *int64          `db:"parent_id"              gorm:"column:parent_id;index"`
	ParentType           *string         `db:"parent_type"            gorm:"column:parent_type;size:20"`
	OperationType        string          `db:"operation_type"         gorm:"column:operation_type;size:20;not null;default:simple"`
	TransactionType      string          `db:"transaction_type"       gorm:"column:transaction_type;size:10;not null"`
	AccountID            int64           `db:"account_id"             gorm:"column:account_id;not null;index"`
	DestinationAccountID *int64          `db:"destination_account_id" gorm:"column:destination_account_id;index"`
	CategoryID           *int64          `db:"category_id"            gorm:"column:category_id;index"`
	BeneficiaryID        *int64          `db:"beneficiary_id"         gorm:"column:beneficiary_id;index"`
	Description          string          `db:"description"            gorm:"column:description;size:500;not null;default:''"`
	Value                decimal.Decimal `db:"value"                  gorm:"column:value;type:numeric(15,2);not null"`
	BuyDate              time.Time       `db:"buy_date"               gorm:"column:buy_date;type:date;not null"`
	DueDate              *time.Time      `db:"due_date"               gorm:"column:due_date;type:date"`
	PayDate              *time.Time      `db:"pay_date"               gorm:"column:pay_date;type:date;index"`

	IsRecurring           bool       `db:"is_recurring"           gorm:"column:is_recurring;not null;default:false"`
	RecurrenceType        *string    `db:"recurrence_type"        gorm:"column:recurrence_type;size:10"`
	RecurrenceInterval    int        `db:"recurrence_interval"    gorm:"column:recurrence_interval;not null;default:1"`
	RecurrenceStartDate   *time.Time `db:"recurrence_start_date"  gorm:"column:recurrence_start_date;type:date"`
	RecurrenceEndType     string     `db:"recurrence_end_type"    gorm:"column:recurrence_end_type;size:15;not null;default:never"`
	RecurrenceEndDate     *time.Time `db:"recurrence_end_date"    gorm:"column:recurrence_end_date;type:date"`
	RecurrenceEndCount    *int       `db:"recurrence_end_count"   gorm:"column:recurrence_end_count"`
	RecurrenceSequence    *int       `db:"recurrence_sequence"    gorm:"column:recurrence_sequence"`
	RecurrenceInterrupted bool       `db:"recurrence_interrupted" gorm:"column:recurrence_interrupted;not null;default:false"`

	CreatedAt time.Time `db:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `db:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	e := &TransactionEntity{
		ID:                    m.ID,
		ParentID:              m.ParentID,
		OperationType:         string(m.OperationType),
		TransactionType:       string(m.TransactionType),
		AccountID:             m.AccountID,
		DestinationAccountID:  m.DestinationAccountID,
		CategoryID:            m.CategoryID,
		BeneficiaryID:         m.BeneficiaryID,
		Description:           m.Description,
		Value:                 m.Value,
		BuyDate:               model.Date(m.BuyDate),
		DueDate:               model.DatePtr(m.DueDate),
		PayDate:               model.DatePtr(m.PayDate),
		IsRecurring:           m.IsRecurring,
		RecurrenceInterval:    m.Recurrence.Interval,
		RecurrenceStartDate:   model.DatePtr(m.Recurrence.StartDate),
		RecurrenceEndType:     string(m.Recurrence.EndType),
		RecurrenceEndDate:     model.DatePtr(m.Recurrence.EndDate),
		RecurrenceEndCount:    m.Recurrence.EndCount,
		RecurrenceSequence:    m.Sequence,
		RecurrenceInterrupted: m.Recurrence.Interrupted,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
	if m.ParentType != model.ParentNone {
		pt := string(m.ParentType)
		e.ParentType = &pt
	}
	if m.Recurrence.Type != "" {
		rt := string(m.Recurrence.Type)
		e.RecurrenceType = &rt
	}
	if e.RecurrenceInterval < 1 {
		e.RecurrenceInterval = 1
	}
	if e.RecurrenceEndType == "" {
		e.RecurrenceEndType = string(model.RecurrenceEndNever)
	}
	return e
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	m := &model.Transaction{
		ID:                   e.ID,
		ParentID:             e.ParentID,
		OperationType:        model.OperationType(e.OperationType),
		TransactionType:      model.TransactionType(e.TransactionType),
		AccountID:            e.AccountID,
		DestinationAccountID: e.DestinationAccountID,
		CategoryID:           e.CategoryID,
		BeneficiaryID:        e.BeneficiaryID,
		Description:          e.Description,
		Value:                e.Value,
		BuyDate:              model.Date(e.BuyDate),
		DueDate:              model.DatePtr(e.DueDate),
		PayDate:              model.DatePtr(e.PayDate),
		IsRecurring:          e.IsRecurring,
		Sequence:             e.RecurrenceSequence,
		Recurrence: model.Recurrence{
			Interval:    e.RecurrenceInterval,
			StartDate:   model.DatePtr(e.RecurrenceStartDate),
			EndType:     model.RecurrenceEndType(e.RecurrenceEndType),
			EndDate:     model.DatePtr(e.RecurrenceEndDate),
			EndCount:    e.RecurrenceEndCount,
			Interrupted: e.RecurrenceInterrupted,
		},
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	if e.ParentType != nil {
		m.ParentType = model.ParentType(*e.ParentType)
	}
	if e.RecurrenceType != nil {
		m.Recurrence.Type = model.RecurrenceType(*e.RecurrenceType)
	}
	return m
}

func toTransactionModels(entities []*TransactionEntity) []*model.Transaction {
	if entities == nil {
		return nil
	}
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}

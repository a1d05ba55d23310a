package repository

import (
	"github.com/nimasrn/finance-ledger/internal/model"
)

type CategoryEntity struct {
	ID                     int64  `db:"id"                       gorm:"primaryKey;autoIncrement;column:id"`
	Category               string `db:"category"                 gorm:"column:category;size:200;not null"`
	Subcategory            string `db:"subcategory"              gorm:"column:subcategory;size:200;not null;default:''"`
	DefaultTransactionType string `db:"default_transaction_type" gorm:"column:default_transaction_type;size:10;not null;default:debit"`
}

func (CategoryEntity) TableName() string {
	return "categories"
}

type BeneficiaryEntity struct {
	ID       int64  `db:"id"        gorm:"primaryKey;autoIncrement;column:id"`
	FullName string `db:"full_name" gorm:"column:full_name;size:200;not null"`
}

func (BeneficiaryEntity) TableName() string {
	return "beneficiaries"
}

func toCategoryEntity(m *model.Category) *CategoryEntity {
	if m == nil {
		return nil
	}
	return &CategoryEntity{
		ID:                     m.ID,
		Category:               m.Category,
		Subcategory:            m.Subcategory,
		DefaultTransactionType: string(m.DefaultTransactionType),
	}
}

func toCategoryModel(e *CategoryEntity) *model.Category {
	if e == nil {
		return nil
	}
	return &model.Category{
		ID:                     e.ID,
		Category:               e.Category,
		Subcategory:            e.Subcategory,
		DefaultTransactionType: model.TransactionType(e.DefaultTransactionType),
	}
}

func toBeneficiaryEntity(m *model.Beneficiary) *BeneficiaryEntity {
	if m == nil {
		return nil
	}
	return &BeneficiaryEntity{ID: m.ID, FullName: m.FullName}
}

func toBeneficiaryModel(e *BeneficiaryEntity) *model.Beneficiary {
	if e == nil {
		return nil
	}
	return &model.Beneficiary{ID: e.ID, FullName: e.FullName}
}

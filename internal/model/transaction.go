package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

func (t TransactionType) Valid() bool {
	return t == TransactionTypeCredit || t == TransactionTypeDebit
}

type OperationType string

const (
	OperationSimple          OperationType = "simple"
	OperationTransfer        OperationType = "transfer"
	OperationCompositeMember OperationType = "composite_member"
)

// ParentType tells how a child row relates to its parent. The zero value
// means the row is a root.
type ParentType string

const (
	ParentNone         ParentType = ""
	ParentSplit        ParentType = "split"
	ParentRecurring    ParentType = "recurring"
	ParentTransferPair ParentType = "transfer_pair"
	ParentComposite    ParentType = "composite"
)

// IsLeg reports whether rows of this parent type belong to the parent's
// posting (and are deleted with it).
func (p ParentType) IsLeg() bool {
	return p == ParentComposite || p == ParentTransferPair || p == ParentSplit
}

// LegParentTypes are the parent types that make up a single posting.
var LegParentTypes = []ParentType{ParentComposite, ParentTransferPair, ParentSplit}

// Status is derived from PayDate and never stored.
type Status string

const (
	StatusPending    Status = "pending"
	StatusRegistered Status = "registered"
)

type Transaction struct {
	ID                   int64           `json:"id"`
	ParentID             *int64          `json:"parent_id,omitempty"`
	ParentType           ParentType      `json:"parent_type,omitempty"`
	OperationType        OperationType   `json:"operation_type"`
	TransactionType      TransactionType `json:"transaction_type"`
	AccountID            int64           `json:"account_id"`
	DestinationAccountID *int64          `json:"destination_account_id,omitempty"`
	CategoryID           *int64          `json:"category_id,omitempty"`
	BeneficiaryID        *int64          `json:"beneficiary_id,omitempty"`
	Description          string          `json:"description"`
	Value                decimal.Decimal `json:"value"`
	BuyDate              time.Time       `json:"buy_date"`
	DueDate              *time.Time      `json:"due_date,omitempty"`
	PayDate              *time.Time      `json:"pay_date,omitempty"`

	IsRecurring bool       `json:"is_recurring"`
	Sequence    *int       `json:"recurrence_sequence,omitempty"`
	Recurrence  Recurrence `json:"recurrence"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Transaction) Status() Status {
	if t.PayDate != nil {
		return StatusRegistered
	}
	return StatusPending
}

func (t *Transaction) IsRegistered() bool { return t.PayDate != nil }

func (t *Transaction) IsRoot() bool { return t.ParentID == nil }

// SignedValue is the effect of the row on its account balance.
func (t *Transaction) SignedValue() decimal.Decimal {
	if t.TransactionType == TransactionTypeCredit {
		return t.Value
	}
	return t.Value.Neg()
}

// Clone returns a copy that shares no pointers with t.
func (t *Transaction) Clone() *Transaction {
	c := *t
	c.ParentID = cloneInt64(t.ParentID)
	c.DestinationAccountID = cloneInt64(t.DestinationAccountID)
	c.CategoryID = cloneInt64(t.CategoryID)
	c.BeneficiaryID = cloneInt64(t.BeneficiaryID)
	c.DueDate = cloneTime(t.DueDate)
	c.PayDate = cloneTime(t.PayDate)
	if t.Sequence != nil {
		s := *t.Sequence
		c.Sequence = &s
	}
	c.Recurrence = t.Recurrence.clone()
	return &c
}

// TransactionFilter controls List queries.
type TransactionFilter struct {
	AccountID *int64
	Status    *Status
	ParentID  *int64
	RootsOnly bool
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// Date truncates t to midnight UTC of the same calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DatePtr is Date for optional dates.
func DatePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := Date(*t)
	return &d
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

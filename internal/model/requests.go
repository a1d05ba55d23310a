package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecurrenceRequest configures a new series. The transaction it is attached
// to becomes the series root.
type RecurrenceRequest struct {
	Type      RecurrenceType
	Interval  int
	StartDate *time.Time
	EndType   RecurrenceEndType
	EndDate   *time.Time
	EndCount  *int
}

// SimpleTransactionRequest is the input for CreateSimple.
type SimpleTransactionRequest struct {
	AccountID       int64
	TransactionType TransactionType
	CategoryID      *int64
	BeneficiaryID   *int64
	Description     string
	Value           decimal.Decimal
	BuyDate         time.Time
	DueDate         *time.Time
	PayDate         *time.Time
	Recurrence      *RecurrenceRequest
}

type TransferRequest struct {
	SourceAccountID      int64
	DestinationAccountID int64
	Value                decimal.Decimal
	BuyDate              time.Time
	PayDate              *time.Time
	Description          string
}

type LineType string

const (
	LineNormal   LineType = "normal"
	LineTransfer LineType = "transfer"
)

// CompositeLine is one user-entered line of a composite posting.
type CompositeLine struct {
	LineType             LineType
	TransactionType      TransactionType
	Value                decimal.Decimal
	CategoryID           *int64
	DestinationAccountID *int64
	Description          string
}

// CompositeRequest is the input for creating or rewriting a composite
// posting. The first line becomes the posting root.
type CompositeRequest struct {
	AccountID     int64
	BeneficiaryID *int64
	BuyDate       time.Time
	DueDate       *time.Time
	PayDate       *time.Time
	Lines         []CompositeLine
	Recurrence    *RecurrenceRequest
}

// RegisterRequest settles a transaction. Nil fields are left untouched.
type RegisterRequest struct {
	PayDate       time.Time
	Value         *decimal.Decimal
	Description   *string
	DueDate       *time.Time
	CategoryID    *int64
	BeneficiaryID *int64
}

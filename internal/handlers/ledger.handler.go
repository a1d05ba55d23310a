package handlers

import (
	"context"
	"time"

	"github.com/fasthttp/router"
	"github.com/nimasrn/finance-ledger/internal/model"
	xhttp "github.com/nimasrn/finance-ledger/pkg/http"
	"github.com/shopspring/decimal"
)

type LedgerService interface {
	Get(ctx context.Context, id int64) (*model.Transaction, error)
	List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error)
	CreateSimple(ctx context.Context, req model.SimpleTransactionRequest) (*model.Transaction, error)
	Register(ctx context.Context, id int64, req model.RegisterRequest) (*model.Transaction, error)
	Delete(ctx context.Context, id int64) error
	GenerateNext(ctx context.Context, id int64) (*model.Transaction, error)
	Interrupt(ctx context.Context, id int64) (*model.Transaction, error)
	UndoPayment(ctx context.Context, id int64) (*model.Transaction, error)
	Skip(ctx context.Context, id int64) (*model.Transaction, error)
	CreateTransfer(ctx context.Context, req model.TransferRequest) (*model.Transaction, *model.Transaction, error)
	UpdateTransfer(ctx context.Context, id int64, req model.TransferRequest) (*model.Transaction, *model.Transaction, error)
	CreateComposite(ctx context.Context, req model.CompositeRequest) (*model.Transaction, error)
	UpdateComposite(ctx context.Context, id int64, req model.CompositeRequest) (*model.Transaction, error)
	RegisterComposite(ctx context.Context, id int64, req model.CompositeRequest) (*model.Transaction, error)
	Statement(ctx context.Context, accountID int64, filter model.StatusFilter) (*model.Statement, error)
	GenerateDue(ctx context.Context, until time.Time, workers int) (int, error)
}

type LedgerHandler struct {
	svc LedgerService
}

func RegisterLedgerRoutes(e *router.Group, h *LedgerHandler) {
	e.POST("/transactions", h.CreateTransaction)
	e.GET("/transactions", h.ListTransactions)
	e.GET("/transactions/{id}", h.GetTransaction)
	e.DELETE("/transactions/{id}", h.DeleteTransaction)
	e.POST("/transactions/{id}/register", h.RegisterTransaction)
	e.POST("/transactions/{id}/next", h.GenerateNext)
	e.POST("/transactions/{id}/interrupt", h.Interrupt)
	e.POST("/transactions/{id}/undo-payment", h.UndoPayment)
	e.POST("/transactions/{id}/skip", h.Skip)

	e.POST("/transfers", h.CreateTransfer)
	e.PUT("/transfers/{id}", h.UpdateTransfer)

	e.POST("/composites", h.CreateComposite)
	e.PUT("/composites/{id}", h.UpdateComposite)
	e.POST("/composites/{id}/register", h.RegisterComposite)

	e.GET("/accounts/{id}/statement", h.Statement)

	e.POST("/series/generate-due", h.GenerateDue)
}

func NewLedgerHandler(svc LedgerService) *LedgerHandler {
	return &LedgerHandler{
		svc: svc,
	}
}

type recurrenceRequest struct {
	Type      string `json:"type"`
	Interval  int    `json:"interval"`
	StartDate *Date  `json:"start_date"`
	EndType   string `json:"end_type"`
	EndDate   *Date  `json:"end_date"`
	EndCount  *int   `json:"end_count"`
}

func (r *recurrenceRequest) toModel() *model.RecurrenceRequest {
	if r == nil {
		return nil
	}
	return &model.RecurrenceRequest{
		Type:      model.RecurrenceType(r.Type),
		Interval:  r.Interval,
		StartDate: r.StartDate.ptr(),
		EndType:   model.RecurrenceEndType(r.EndType),
		EndDate:   r.EndDate.ptr(),
		EndCount:  r.EndCount,
	}
}

type createTransactionRequest struct {
	AccountID       int64              `json:"account_id"`
	TransactionType string             `json:"transaction_type"`
	CategoryID      *int64             `json:"category_id"`
	BeneficiaryID   *int64             `json:"beneficiary_id"`
	Description     string             `json:"description"`
	Value           decimal.Decimal    `json:"value"`
	BuyDate         Date               `json:"buy_date"`
	DueDate         *Date              `json:"due_date"`
	PayDate         *Date              `json:"pay_date"`
	Recurrence      *recurrenceRequest `json:"recurrence"`
}

type registerRequest struct {
	PayDate       Date             `json:"pay_date"`
	Value         *decimal.Decimal `json:"value"`
	Description   *string          `json:"description"`
	DueDate       *Date            `json:"due_date"`
	CategoryID    *int64           `json:"category_id"`
	BeneficiaryID *int64           `json:"beneficiary_id"`
}

type transferRequest struct {
	SourceAccountID      int64           `json:"source_account_id"`
	DestinationAccountID int64           `json:"destination_account_id"`
	Value                decimal.Decimal `json:"value"`
	BuyDate              Date            `json:"buy_date"`
	PayDate              *Date           `json:"pay_date"`
	Description          string          `json:"description"`
}

func (r transferRequest) toModel() model.TransferRequest {
	return model.TransferRequest{
		SourceAccountID:      r.SourceAccountID,
		DestinationAccountID: r.DestinationAccountID,
		Value:                r.Value,
		BuyDate:              r.BuyDate.Time,
		PayDate:              r.PayDate.ptr(),
		Description:          r.Description,
	}
}

type transferResponse struct {
	Debit  *model.Transaction `json:"debit"`
	Credit *model.Transaction `json:"credit"`
}

type compositeLineRequest struct {
	LineType             string          `json:"line_type"`
	TransactionType      string          `json:"transaction_type"`
	Value                decimal.Decimal `json:"value"`
	CategoryID           *int64          `json:"category_id"`
	DestinationAccountID *int64          `json:"destination_account_id"`
	Description          string          `json:"description"`
}

type compositeRequest struct {
	AccountID     int64                  `json:"account_id"`
	BeneficiaryID *int64                 `json:"beneficiary_id"`
	BuyDate       Date                   `json:"buy_date"`
	DueDate       *Date                  `json:"due_date"`
	PayDate       *Date                  `json:"pay_date"`
	Lines         []compositeLineRequest `json:"lines"`
	Recurrence    *recurrenceRequest     `json:"recurrence"`
}

func (r compositeRequest) toModel() model.CompositeRequest {
	lines := make([]model.CompositeLine, len(r.Lines))
	for i, l := range r.Lines {
		lineType := model.LineType(l.LineType)
		if lineType == "" {
			lineType = model.LineNormal
		}
		lines[i] = model.CompositeLine{
			LineType:             lineType,
			TransactionType:      model.TransactionType(l.TransactionType),
			Value:                l.Value,
			CategoryID:           l.CategoryID,
			DestinationAccountID: l.DestinationAccountID,
			Description:          l.Description,
		}
	}
	return model.CompositeRequest{
		AccountID:     r.AccountID,
		BeneficiaryID: r.BeneficiaryID,
		BuyDate:       r.BuyDate.Time,
		DueDate:       r.DueDate.ptr(),
		PayDate:       r.PayDate.ptr(),
		Lines:         lines,
		Recurrence:    r.Recurrence.toModel(),
	}
}

type generateDueResponse struct {
	Until     string `json:"until"`
	Generated int    `json:"generated"`
}

type listTransactionsResponse struct {
	Items []*model.Transaction `json:"items"`
	Total int64                `json:"total"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *LedgerHandler) CreateTransaction(ctx *xhttp.RequestCtx) {
	var req createTransactionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	txn, err := h.svc.CreateSimple(ctx, model.SimpleTransactionRequest{
		AccountID:       req.AccountID,
		TransactionType: model.TransactionType(req.TransactionType),
		CategoryID:      req.CategoryID,
		BeneficiaryID:   req.BeneficiaryID,
		Description:     req.Description,
		Value:           req.Value,
		BuyDate:         req.BuyDate.Time,
		DueDate:         req.DueDate.ptr(),
		PayDate:         req.PayDate.ptr(),
		Recurrence:      req.Recurrence.toModel(),
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, txn)
}

func (h *LedgerHandler) ListTransactions(ctx *xhttp.RequestCtx) {
	var (
		f   model.TransactionFilter
		err error
	)

	if f.AccountID, err = queryInt64(ctx, "account_id"); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid account_id")
		return
	}
	if f.ParentID, err = queryInt64(ctx, "parent_id"); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid parent_id")
		return
	}
	switch v := model.Status(query(ctx, "status")); v {
	case "":
	case model.StatusPending, model.StatusRegistered:
		f.Status = &v
	default:
		writeError(ctx, xhttp.StatusBadRequest, "status must be pending or registered")
		return
	}
	f.RootsOnly = query(ctx, "roots_only") == "true"
	if f.From, err = queryTime(ctx, "from"); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid from")
		return
	}
	if f.To, err = queryTime(ctx, "to"); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid to")
		return
	}
	if v, e := queryInt64(ctx, "limit"); e == nil && v != nil {
		f.Limit = int(*v)
	}
	if v, e := queryInt64(ctx, "offset"); e == nil && v != nil {
		f.Offset = int(*v)
	}

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, listTransactionsResponse{Items: items, Total: total})
}

func (h *LedgerHandler) GetTransaction(ctx *xhttp.RequestCtx) {
	h.withID(ctx, h.svc.Get)
}

func (h *LedgerHandler) DeleteTransaction(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid id")
		return
	}
	if err = h.svc.Delete(ctx, id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.Response.SetStatusCode(xhttp.StatusNoContent)
}

func (h *LedgerHandler) RegisterTransaction(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid id")
		return
	}
	var req registerRequest
	if err = readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	txn, err := h.svc.Register(ctx, id, model.RegisterRequest{
		PayDate:       req.PayDate.Time,
		Value:         req.Value,
		Description:   req.Description,
		DueDate:       req.DueDate.ptr(),
		CategoryID:    req.CategoryID,
		BeneficiaryID: req.BeneficiaryID,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, txn)
}

func (h *LedgerHandler) GenerateNext(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid id")
		return
	}
	txn, err := h.svc.GenerateNext(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	if txn == nil {
		ctx.Response.SetStatusCode(xhttp.StatusNoContent)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, txn)
}

func (h *LedgerHandler) Interrupt(ctx *xhttp.RequestCtx) {
	h.withID(ctx, h.svc.Interrupt)
}

func (h *LedgerHandler) UndoPayment(ctx *xhttp.RequestCtx) {
	h.withID(ctx, h.svc.UndoPayment)
}

func (h *LedgerHandler) Skip(ctx *xhttp.RequestCtx) {
	h.withID(ctx, h.svc.Skip)
}

func (h *LedgerHandler) CreateTransfer(ctx *xhttp.RequestCtx) {
	var req transferRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	debit, credit, err := h.svc.CreateTransfer(ctx, req.toModel())
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, transferResponse{Debit: debit, Credit: credit})
}

func (h *LedgerHandler) UpdateTransfer(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid id")
		return
	}
	var req transferRequest
	if err = readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	debit, credit, err := h.svc.UpdateTransfer(ctx, id, req.toModel())
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, transferResponse{Debit: debit, Credit: credit})
}

func (h *LedgerHandler) CreateComposite(ctx *xhttp.RequestCtx) {
	var req compositeRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	root, err := h.svc.CreateComposite(ctx, req.toModel())
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, root)
}

func (h *LedgerHandler) UpdateComposite(ctx *xhttp.RequestCtx) {
	h.rewriteComposite(ctx, h.svc.UpdateComposite)
}

func (h *LedgerHandler) RegisterComposite(ctx *xhttp.RequestCtx) {
	h.rewriteComposite(ctx, h.svc.RegisterComposite)
}

func (h *LedgerHandler) Statement(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid id")
		return
	}
	st, err := h.svc.Statement(ctx, id, model.StatusFilter(query(ctx, "status")))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, st)
}

// GenerateDue fills missing successors of registered series tips due by ?until= (today by default).
func (h *LedgerHandler) GenerateDue(ctx *xhttp.RequestCtx) {
	until := time.Now().UTC()
	if v, err := queryTime(ctx, "until"); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid until")
		return
	} else if v != nil {
		until = *v
	}
	workers := 4
	if v, err := queryInt64(ctx, "workers"); err == nil && v != nil && *v > 0 {
		workers = int(*v)
	}
	n, err := h.svc.GenerateDue(ctx, until, workers)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, generateDueResponse{Until: until.Format(dateLayout), Generated: n})
}

func (h *LedgerHandler) withID(ctx *xhttp.RequestCtx, fn func(context.Context, int64) (*model.Transaction, error)) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid id")
		return
	}
	txn, err := fn(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, txn)
}

func (h *LedgerHandler) rewriteComposite(ctx *xhttp.RequestCtx, fn func(context.Context, int64, model.CompositeRequest) (*model.Transaction, error)) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid id")
		return
	}
	var req compositeRequest
	if err = readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	root, err := fn(ctx, id, req.toModel())
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, root)
}

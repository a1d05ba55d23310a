package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/finance-ledger/internal/model"
	xhttp "github.com/nimasrn/finance-ledger/pkg/http"
)

type CatalogService interface {
	CreateAccount(ctx context.Context, a model.Account) (*model.Account, error)
	UpdateAccount(ctx context.Context, id int64, a model.Account) (*model.Account, error)
	GetAccount(ctx context.Context, id int64) (*model.Account, error)
	ListAccounts(ctx context.Context, f model.AccountFilter) ([]*model.Account, error)
	DeleteAccount(ctx context.Context, id int64) error
	CreateCategory(ctx context.Context, c model.Category) (*model.Category, error)
	ListCategories(ctx context.Context) ([]*model.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	CreateBeneficiary(ctx context.Context, b model.Beneficiary) (*model.Beneficiary, error)
	ListBeneficiaries(ctx context.Context) ([]*model.Beneficiary, error)
	DeleteBeneficiary(ctx context.Context, id int64) error
}

type CatalogHandler struct {
	svc CatalogService
}

func RegisterCatalogRoutes(e *router.Group, h *CatalogHandler) {
	e.POST("/accounts", h.CreateAccount)
	e.GET("/accounts", h.ListAccounts)
	e.GET("/accounts/{id}", h.GetAccount)
	e.PUT("/accounts/{id}", h.UpdateAccount)
	e.DELETE("/accounts/{id}", h.DeleteAccount)

	e.POST("/categories", h.CreateCategory)
	e.GET("/categories", h.ListCategories)
	e.DELETE("/categories/{id}", h.DeleteCategory)

	e.POST("/beneficiaries", h.CreateBeneficiary)
	e.GET("/beneficiaries", h.ListBeneficiaries)
	e.DELETE("/beneficiaries/{id}", h.DeleteBeneficiary)
}

func NewCatalogHandler(svc CatalogService) *CatalogHandler {
	return &CatalogHandler{
		svc: svc,
	}
}

func (h *CatalogHandler) CreateAccount(ctx *xhttp.RequestCtx) {
	var req model.Account
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	account, err := h.svc.CreateAccount(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, account)
}

func (h *CatalogHandler) UpdateAccount(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid id")
		return
	}
	var req model.Account
	if err = readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	account, err := h.svc.UpdateAccount(ctx, id, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, account)
}

func (h *CatalogHandler) GetAccount(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid id")
		return
	}
	account, err := h.svc.GetAccount(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, account)
}

func (h *CatalogHandler) ListAccounts(ctx *xhttp.RequestCtx) {
	items, err := h.svc.ListAccounts(ctx, model.AccountFilter{OpenOnly: query(ctx, "open_only") == "true"})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, items)
}

func (h *CatalogHandler) DeleteAccount(ctx *xhttp.RequestCtx) {
	h.deleteByID(ctx, h.svc.DeleteAccount)
}

func (h *CatalogHandler) CreateCategory(ctx *xhttp.RequestCtx) {
	var req model.Category
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	category, err := h.svc.CreateCategory(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, category)
}

func (h *CatalogHandler) ListCategories(ctx *xhttp.RequestCtx) {
	items, err := h.svc.ListCategories(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, items)
}

func (h *CatalogHandler) DeleteCategory(ctx *xhttp.RequestCtx) {
	h.deleteByID(ctx, h.svc.DeleteCategory)
}

func (h *CatalogHandler) CreateBeneficiary(ctx *xhttp.RequestCtx) {
	var req model.Beneficiary
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	b, err := h.svc.CreateBeneficiary(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, b)
}

func (h *CatalogHandler) ListBeneficiaries(ctx *xhttp.RequestCtx) {
	items, err := h.svc.ListBeneficiaries(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, items)
}

func (h *CatalogHandler) DeleteBeneficiary(ctx *xhttp.RequestCtx) {
	h.deleteByID(ctx, h.svc.DeleteBeneficiary)
}

func (h *CatalogHandler) deleteByID(ctx *xhttp.RequestCtx, fn func(context.Context, int64) error) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid id")
		return
	}
	if err = fn(ctx, id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.Response.SetStatusCode(xhttp.StatusNoContent)
}

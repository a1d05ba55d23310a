package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/nimasrn/finance-ledger/internal/model"
	"github.com/nimasrn/finance-ledger/pkg/logger"
)

type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) (*model.Account, error)
	Update(ctx context.Context, account *model.Account) (*model.Account, error)
	Get(ctx context.Context, id int64) (*model.Account, error)
	List(ctx context.Context, f model.AccountFilter) ([]*model.Account, error)
	Delete(ctx context.Context, id int64) error
}

type CategoryRepository interface {
	Create(ctx context.Context, c *model.Category) (*model.Category, error)
	Get(ctx context.Context, id int64) (*model.Category, error)
	List(ctx context.Context) ([]*model.Category, error)
	Delete(ctx context.Context, id int64) error
}

type BeneficiaryRepository interface {
	Create(ctx context.Context, b *model.Beneficiary) (*model.Beneficiary, error)
	Get(ctx context.Context, id int64) (*model.Beneficiary, error)
	List(ctx context.Context) ([]*model.Beneficiary, error)
	Delete(ctx context.Context, id int64) error
}

// CatalogService manages the reference data postings point at.
type CatalogService struct {
	accounts      AccountRepository
	categories    CategoryRepository
	beneficiaries BeneficiaryRepository
}

func NewCatalogService(accounts AccountRepository, categories CategoryRepository, beneficiaries BeneficiaryRepository) *CatalogService {
	return &CatalogService{
		accounts:      accounts,
		categories:    categories,
		beneficiaries: beneficiaries,
	}
}

func (s *CatalogService) CreateAccount(ctx context.Context, a model.Account) (*model.Account, error) {
	if err := normalizeAccount(&a); err != nil {
		return nil, err
	}
	a.ID = 0
	created, err := s.accounts.Create(ctx, &a)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	logger.Info("account created", "id", created.ID, "name", created.Name)
	return created, nil
}

func (s *CatalogService) UpdateAccount(ctx context.Context, id int64, a model.Account) (*model.Account, error) {
	current, err := s.accounts.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "account", id)
	}
	if err := normalizeAccount(&a); err != nil {
		return nil, err
	}
	a.ID = id
	a.CreatedAt = current.CreatedAt
	updated, err := s.accounts.Update(ctx, &a)
	if err != nil {
		return nil, notFound(err, "account", id)
	}
	return updated, nil
}

func normalizeAccount(a *model.Account) error {
	v := &ValidationError{}
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		v.Add("name", "is required")
	}
	if a.AccountType == "" {
		a.AccountType = model.AccountTypeBank
	}
	switch a.AccountType {
	case model.AccountTypeCash, model.AccountTypeBank, model.AccountTypeInvest:
	default:
		v.Add("account_type", "must be one of cash, bank, invest")
	}
	a.Currency = strings.ToUpper(strings.TrimSpace(a.Currency))
	if a.Currency == "" {
		a.Currency = model.DefaultCurrency
	}
	if money.GetCurrency(a.Currency) == nil {
		v.Add("currency", "unknown currency code %q", a.Currency)
	}
	return v.Err()
}

func (s *CatalogService) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	a, err := s.accounts.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "account", id)
	}
	return a, nil
}

func (s *CatalogService) ListAccounts(ctx context.Context, f model.AccountFilter) ([]*model.Account, error) {
	return s.accounts.List(ctx, f)
}

// DeleteAccount removes the account and every posting touching it.
func (s *CatalogService) DeleteAccount(ctx context.Context, id int64) error {
	if err := s.accounts.Delete(ctx, id); err != nil {
		return notFound(err, "account", id)
	}
	logger.Info("account deleted", "id", id)
	return nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, c model.Category) (*model.Category, error) {
	v := &ValidationError{}
	c.Category = strings.TrimSpace(c.Category)
	c.Subcategory = strings.TrimSpace(c.Subcategory)
	if c.Category == "" {
		v.Add("category", "is required")
	}
	if c.DefaultTransactionType != "" && !c.DefaultTransactionType.Valid() {
		v.Add("default_transaction_type", "must be credit or debit")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	c.ID = 0
	return s.categories.Create(ctx, &c)
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]*model.Category, error) {
	return s.categories.List(ctx)
}

// DeleteCategory detaches the category from its transactions before removing
// it.
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		return notFound(err, "category", id)
	}
	return nil
}

func (s *CatalogService) CreateBeneficiary(ctx context.Context, b model.Beneficiary) (*model.Beneficiary, error) {
	b.FullName = strings.TrimSpace(b.FullName)
	if b.FullName == "" {
		return nil, invalid("full_name", "is required")
	}
	b.ID = 0
	return s.beneficiaries.Create(ctx, &b)
}

func (s *CatalogService) ListBeneficiaries(ctx context.Context) ([]*model.Beneficiary, error) {
	return s.beneficiaries.List(ctx)
}

func (s *CatalogService) DeleteBeneficiary(ctx context.Context, id int64) error {
	if err := s.beneficiaries.Delete(ctx, id); err != nil {
		return notFound(err, "beneficiary", id)
	}
	return nil
}

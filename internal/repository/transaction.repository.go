package repository

import (
	"context"
	"errors"

	"github.com/nimasrn/finance-ledger/internal/model"
	"github.com/nimasrn/finance-ledger/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
)

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	entity := toTransactionEntity(txn)

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toTransactionModel(entity), nil
}

// Update writes every column of txn, including cleared optional ones.
func (r *TransactionRepository) Update(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	entity := toTransactionEntity(txn)

	result := r.Write(ctx).Model(entity).
		Select("*").
		Omit("id", "created_at").
		Updates(entity)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrTransactionNotFound
	}

	return r.Get(ctx, entity.ID)
}

func (r *TransactionRepository) Get(ctx context.Context, id int64) (*model.Transaction, error) {
	var entity TransactionEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return toTransactionModel(&entity), nil
}

// Delete removes the given rows only; children are the caller's concern.
func (r *TransactionRepository) Delete(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.Write(ctx).Where("id IN ?", ids).Delete(&TransactionEntity{}).Error
}

// Children lists the direct children of parentID, optionally restricted to
// some parent types, in sequence order.
func (r *TransactionRepository) Children(ctx context.Context, parentID int64, types ...model.ParentType) ([]*model.Transaction, error) {
	q := r.Read(ctx).Where("parent_id = ?", parentID)
	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		q = q.Where("parent_type IN ?", names)
	}

	var entities []*TransactionEntity
	if err := q.Order("recurrence_sequence ASC").Order("id ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toTransactionModels(entities), nil
}

// SeriesRoots lists the roots of every recurring series that was not
// interrupted.
func (r *TransactionRepository) SeriesRoots(ctx context.Context) ([]*model.Transaction, error) {
	var entities []*TransactionEntity
	err := r.Read(ctx).
		Where("parent_id IS NULL").
		Where("is_recurring = ?", true).
		Where("recurrence_interrupted = ?", false).
		Order("id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toTransactionModels(entities), nil
}

func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID int64) ([]*model.Transaction, error) {
	var entities []*TransactionEntity
	err := r.Read(ctx).
		Where("account_id = ?", accountID).
		Order("id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toTransactionModels(entities), nil
}

func (r *TransactionRepository) List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	q := r.Read(ctx).Model(&TransactionEntity{})

	if f.AccountID != nil {
		q = q.Where("account_id = ?", *f.AccountID)
	}
	if f.ParentID != nil {
		q = q.Where("parent_id = ?", *f.ParentID)
	}
	if f.RootsOnly {
		q = q.Where("parent_id IS NULL")
	}
	if f.Status != nil {
		switch *f.Status {
		case model.StatusRegistered:
			q = q.Where("pay_date IS NOT NULL")
		case model.StatusPending:
			q = q.Where("pay_date IS NULL")
		}
	}
	if f.From != nil {
		q = q.Where("buy_date >= ?", model.Date(*f.From))
	}
	if f.To != nil {
		q = q.Where("buy_date < ?", model.Date(*f.To))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*TransactionEntity
	err := q.Order("buy_date DESC").Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&entities).Error
	if err != nil {
		return nil, 0, err
	}
	return toTransactionModels(entities), total, nil
}

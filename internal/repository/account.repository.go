package repository

import (
	"context"
	"errors"

	"github.com/nimasrn/finance-ledger/internal/model"
	"github.com/nimasrn/finance-ledger/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrAccountNotFound = errors.New("account not found")
)

type AccountRepository struct {
	*pg.DB
}

func NewAccountRepository(db *pg.DB) *AccountRepository {
	return &AccountRepository{
		db,
	}
}

func (r *AccountRepository) Create(ctx context.Context, account *model.Account) (*model.Account, error) {
	entity := toAccountEntity(account)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toAccountModel(entity), nil
}

func (r *AccountRepository) Update(ctx context.Context, account *model.Account) (*model.Account, error) {
	entity := toAccountEntity(account)
	result := r.Write(ctx).Model(entity).
		Select("*").
		Omit("id", "created_at").
		Updates(entity)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrAccountNotFound
	}
	return r.Get(ctx, entity.ID)
}

func (r *AccountRepository) Get(ctx context.Context, id int64) (*model.Account, error) {
	var entity AccountEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return toAccountModel(&entity), nil
}

func (r *AccountRepository) List(ctx context.Context, f model.AccountFilter) ([]*model.Account, error) {
	q := r.Read(ctx).Model(&AccountEntity{})
	if f.OpenOnly {
		q = q.Where("is_closed = ?", false)
	}
	var entities []*AccountEntity
	if err := q.Order("is_favorite DESC").Order("name ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toAccountModels(entities), nil
}

// Delete removes the account together with every transaction booked on it or
// pointing at it as a transfer destination, and the legs hanging off those.
func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	return r.WithinTransaction(ctx, func(ctx context.Context) error {
		var ids []int64
		err := r.Write(ctx).Model(&TransactionEntity{}).
			Where("account_id = ? OR destination_account_id = ?", id, id).
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			err = r.Write(ctx).
				Where("id IN ? OR parent_id IN ?", ids, ids).
				Delete(&TransactionEntity{}).Error
			if err != nil {
				return err
			}
		}

		result := r.Write(ctx).Where("id = ?", id).Delete(&AccountEntity{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAccountNotFound
		}
		return nil
	})
}

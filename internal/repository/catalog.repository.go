package repository

import (
	"context"
	"errors"

	"github.com/nimasrn/finance-ledger/internal/model"
	"github.com/nimasrn/finance-ledger/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrCategoryNotFound    = errors.New("category not found")
	ErrBeneficiaryNotFound = errors.New("beneficiary not found")
)

type CategoryRepository struct {
	*pg.DB
}

func NewCategoryRepository(db *pg.DB) *CategoryRepository {
	return &CategoryRepository{
		db,
	}
}

func (r *CategoryRepository) Create(ctx context.Context, c *model.Category) (*model.Category, error) {
	entity := toCategoryEntity(c)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toCategoryModel(entity), nil
}

func (r *CategoryRepository) Get(ctx context.Context, id int64) (*model.Category, error) {
	var entity CategoryEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return toCategoryModel(&entity), nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]*model.Category, error) {
	var entities []*CategoryEntity
	err := r.Read(ctx).Order("category ASC").Order("subcategory ASC").Find(&entities).Error
	if err != nil {
		return nil, err
	}
	out := make([]*model.Category, len(entities))
	for i, e := range entities {
		out[i] = toCategoryModel(e)
	}
	return out, nil
}

// Delete removes the category and clears it from every transaction using it.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	return r.WithinTransaction(ctx, func(ctx context.Context) error {
		err := r.Write(ctx).Model(&TransactionEntity{}).
			Where("category_id = ?", id).
			Update("category_id", nil).Error
		if err != nil {
			return err
		}
		result := r.Write(ctx).Where("id = ?", id).Delete(&CategoryEntity{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrCategoryNotFound
		}
		return nil
	})
}

type BeneficiaryRepository struct {
	*pg.DB
}

func NewBeneficiaryRepository(db *pg.DB) *BeneficiaryRepository {
	return &BeneficiaryRepository{
		db,
	}
}

func (r *BeneficiaryRepository) Create(ctx context.Context, b *model.Beneficiary) (*model.Beneficiary, error) {
	entity := toBeneficiaryEntity(b)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toBeneficiaryModel(entity), nil
}

func (r *BeneficiaryRepository) Get(ctx context.Context, id int64) (*model.Beneficiary, error) {
	var entity BeneficiaryEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBeneficiaryNotFound
		}
		return nil, err
	}
	return toBeneficiaryModel(&entity), nil
}

func (r *BeneficiaryRepository) List(ctx context.Context) ([]*model.Beneficiary, error) {
	var entities []*BeneficiaryEntity
	if err := r.Read(ctx).Order("full_name ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	out := make([]*model.Beneficiary, len(entities))
	for i, e := range entities {
		out[i] = toBeneficiaryModel(e)
	}
	return out, nil
}

// Delete removes the beneficiary and clears it from every transaction.
func (r *BeneficiaryRepository) Delete(ctx context.Context, id int64) error {
	return r.WithinTransaction(ctx, func(ctx context.Context) error {
		err := r.Write(ctx).Model(&TransactionEntity{}).
			Where("beneficiary_id = ?", id).
			Update("beneficiary_id", nil).Error
		if err != nil {
			return err
		}
		result := r.Write(ctx).Where("id = ?", id).Delete(&BeneficiaryEntity{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrBeneficiaryNotFound
		}
		return nil
	})
}

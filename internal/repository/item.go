package repository

import (
	"context"
	"errors"

	"greenloop/internal/cache"
	"greenloop/internal/models"

	"gorm.io/gorm"
)

// ItemRepository defines persistence operations for the redeemable catalog.
type ItemRepository interface {
	Create(ctx context.Context, item *models.Item) error
	GetByID(ctx context.Context, id uint) (*models.Item, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]models.Item, error)
	Update(ctx context.Context, item *models.Item) error
	SetActive(ctx context.Context, id uint, active bool) error
	Restock(ctx context.Context, id uint, delta int) error
	Delete(ctx context.Context, id uint) error
}

type itemRepository struct {
	db *gorm.DB
}

// NewItemRepository returns an ItemRepository implementation.
func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) Create(ctx context.Context, item *models.Item) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *itemRepository) GetByID(ctx context.Context, id uint) (*models.Item, error) {
	var item models.Item
	err := cache.Aside(ctx, cache.ItemKey(id), &item, cache.ItemTTL, func() error {
		if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Item", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) List(ctx context.Context, activeOnly bool, limit, offset int) ([]models.Item, error) {
	var items []models.Item
	q := r.db.WithContext(ctx)
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	err := q.Order("name ASC").Limit(limit).Offset(offset).Find(&items).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return items, nil
}

func (r *itemRepository) Update(ctx context.Context, item *models.Item) error {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateItem(ctx, item.ID)
	return nil
}

func (r *itemRepository) SetActive(ctx context.Context, id uint, active bool) error {
	res := r.db.WithContext(ctx).Model(&models.Item{}).Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Item", id)
	}
	cache.InvalidateItem(ctx, id)
	return nil
}

// Restock adjusts stock by delta; the guard keeps stock non-negative.
func (r *itemRepository) Restock(ctx context.Context, id uint, delta int) error {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE items SET stock = stock + ?, updated_at = NOW()
		 WHERE id = ? AND stock + ? >= 0 AND deleted_at IS NULL`,
		delta, id, delta,
	)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewValidationError("restock would make stock negative or item not found")
	}
	cache.InvalidateItem(ctx, id)
	return nil
}

func (r *itemRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Item{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateItem(ctx, id)
	return nil
}

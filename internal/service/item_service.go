package service

import (
	"context"
	"strings"

	"greenloop/internal/models"
	"greenloop/internal/repository"
)

// ItemService manages the redeemable catalog. Redemption itself lives in
// PointsService; this service only shapes the catalog.
type ItemService struct {
	itemRepo repository.ItemRepository
}

type CreateItemInput struct {
	Name        string
	Description string
	ImageURL    string
	Price       int64
	Stock       int
}

type UpdateItemInput struct {
	ItemID      uint
	Name        string
	Description string
	ImageURL    string
	Price       *int64
}

func NewItemService(itemRepo repository.ItemRepository) *ItemService {
	return &ItemService{itemRepo: itemRepo}
}

func (s *ItemService) CreateItem(ctx context.Context, in CreateItemInput) (*models.Item, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewValidationError("Item name is required")
	}
	if in.Price <= 0 {
		return nil, models.NewValidationError("Price must be positive")
	}
	if in.Stock < 0 {
		return nil, models.NewValidationError("Stock cannot be negative")
	}

	item := &models.Item{
		Name:        name,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Price:       in.Price,
		Stock:       in.Stock,
		Active:      true,
	}
	if err := s.itemRepo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ItemService) GetItem(ctx context.Context, id uint) (*models.Item, error) {
	return s.itemRepo.GetByID(ctx, id)
}

// ListCatalog lists items. Regular users see only active items; catalog
// managers may ask for everything.
func (s *ItemService) ListCatalog(ctx context.Context, role models.Role, includeInactive bool, limit, offset int) ([]models.Item, error) {
	activeOnly := !includeInactive || !role.Can(models.CapManageCatalog)
	return s.itemRepo.List(ctx, activeOnly, normalizeLimit(limit), offset)
}

func (s *ItemService) UpdateItem(ctx context.Context, in UpdateItemInput) (*models.Item, error) {
	item, err := s.itemRepo.GetByID(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		item.Name = name
	}
	if in.Description != "" {
		item.Description = in.Description
	}
	if in.ImageURL != "" {
		item.ImageURL = in.ImageURL
	}
	if in.Price != nil {
		if *in.Price <= 0 {
			return nil, models.NewValidationError("Price must be positive")
		}
		item.Price = *in.Price
	}

	if err := s.itemRepo.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ItemService) SetActive(ctx context.Context, id uint, active bool) error {
	return s.itemRepo.SetActive(ctx, id, active)
}

// Restock adjusts stock by delta. The repository refuses adjustments that
// would drive stock negative.
func (s *ItemService) Restock(ctx context.Context, id uint, delta int) (*models.Item, error) {
	if delta == 0 {
		return nil, models.NewValidationError("Stock delta must be non-zero")
	}
	if err := s.itemRepo.Restock(ctx, id, delta); err != nil {
		return nil, err
	}
	return s.itemRepo.GetByID(ctx, id)
}

func (s *ItemService) DeleteItem(ctx context.Context, id uint) error {
	return s.itemRepo.Delete(ctx, id)
}

package repository

import (
	"context"
	"errors"

	"greenloop/internal/cache"
	"greenloop/internal/middleware"
	"greenloop/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerRepository is the append-only point ledger. Entries are never updated
// or deleted; a user's balance is always the sum of their deltas.
type LedgerRepository interface {
	Append(ctx context.Context, entry *models.PointEntry) error
	Deduct(ctx context.Context, entry *models.PointEntry) error
	Balance(ctx context.Context, userID uint) (int64, error)
	History(ctx context.Context, userID uint, limit, offset int) ([]models.PointEntry, error)
	Redeem(ctx context.Context, userID, itemID uint, price int64) (*models.ItemRedemption, error)
	RedemptionsByUser(ctx context.Context, userID uint, limit, offset int) ([]models.ItemRedemption, error)
	ListRedemptions(ctx context.Context, limit, offset int) ([]models.ItemRedemption, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository returns a LedgerRepository implementation.
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Append(ctx context.Context, entry *models.PointEntry) error {
	if entry.Delta == 0 {
		return models.NewValidationError("point delta must be non-zero")
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		middleware.LedgerOperations.WithLabelValues(entry.Reason, "error").Inc()
		return models.NewInternalError(err)
	}
	middleware.LedgerOperations.WithLabelValues(entry.Reason, "ok").Inc()
	cache.InvalidateBalance(ctx, entry.UserID)
	return nil
}

// Deduct appends a negative entry, refusing to take the balance below zero.
// Like Redeem, the user row is locked FOR UPDATE and the balance is summed
// inside the transaction, so concurrent deductions against the same user
// serialize instead of both passing a stale check.
func (r *ledgerRepository) Deduct(ctx context.Context, entry *models.PointEntry) error {
	if entry.Delta >= 0 {
		return models.NewValidationError("deduction delta must be negative")
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, entry.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", entry.UserID)
			}
			return models.NewInternalError(err)
		}

		var balance int64
		if err := tx.Model(&models.PointEntry{}).
			Where("user_id = ?", entry.UserID).
			Select("COALESCE(SUM(delta), 0)").
			Scan(&balance).Error; err != nil {
			return models.NewInternalError(err)
		}
		if balance+entry.Delta < 0 {
			return models.NewInsufficientBalanceError(balance, -entry.Delta)
		}

		if err := tx.Create(entry).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		middleware.LedgerOperations.WithLabelValues(entry.Reason, "error").Inc()
		return err
	}

	middleware.LedgerOperations.WithLabelValues(entry.Reason, "ok").Inc()
	cache.InvalidateBalance(ctx, entry.UserID)
	return nil
}

func (r *ledgerRepository) Balance(ctx context.Context, userID uint) (int64, error) {
	var balance int64
	err := cache.Aside(ctx, cache.BalanceKey(userID), &balance, cache.BalanceTTL, func() error {
		return r.db.WithContext(ctx).Model(&models.PointEntry{}).
			Where("user_id = ?", userID).
			Select("COALESCE(SUM(delta), 0)").
			Scan(&balance).Error
	})
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return balance, nil
}

func (r *ledgerRepository) History(ctx context.Context, userID uint, limit, offset int) ([]models.PointEntry, error) {
	var entries []models.PointEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return entries, nil
}

// Redeem atomically exchanges tokens for one unit of an item. The user row is
// locked FOR UPDATE to serialize concurrent redemptions by the same user, the
// balance is summed inside the transaction, and the stock decrement is guarded
// so it can never go negative. Either all of debit, stock decrement and
// redemption record commit, or none do.
func (r *ledgerRepository) Redeem(ctx context.Context, userID, itemID uint, price int64) (*models.ItemRedemption, error) {
	if price <= 0 {
		return nil, models.NewValidationError("redemption price must be positive")
	}

	var redemption models.ItemRedemption
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", userID)
			}
			return models.NewInternalError(err)
		}

		var balance int64
		if err := tx.Model(&models.PointEntry{}).
			Where("user_id = ?", userID).
			Select("COALESCE(SUM(delta), 0)").
			Scan(&balance).Error; err != nil {
			return models.NewInternalError(err)
		}
		if balance < price {
			middleware.RedemptionConflicts.WithLabelValues("insufficient_balance").Inc()
			return models.NewInsufficientBalanceError(balance, price)
		}

		res := tx.Exec(
			`UPDATE items SET stock = stock - 1, updated_at = NOW()
			 WHERE id = ? AND stock > 0 AND active AND deleted_at IS NULL`,
			itemID,
		)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			middleware.RedemptionConflicts.WithLabelValues("item_unavailable").Inc()
			return models.NewItemUnavailableError(itemID)
		}

		entry := models.PointEntry{
			UserID:      userID,
			Delta:       -price,
			Reason:      models.ReasonRedemption,
			ReferenceID: &itemID,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return models.NewInternalError(err)
		}

		redemption = models.ItemRedemption{
			UserID:      userID,
			ItemID:      itemID,
			PointsSpent: price,
		}
		if err := tx.Create(&redemption).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		middleware.LedgerOperations.WithLabelValues(models.ReasonRedemption, "error").Inc()
		return nil, err
	}

	middleware.LedgerOperations.WithLabelValues(models.ReasonRedemption, "ok").Inc()
	cache.InvalidateBalance(ctx, userID)
	cache.InvalidateItem(ctx, itemID)
	return &redemption, nil
}

func (r *ledgerRepository) RedemptionsByUser(ctx context.Context, userID uint, limit, offset int) ([]models.ItemRedemption, error) {
	var redemptions []models.ItemRedemption
	err := r.db.WithContext(ctx).
		Preload("Item").
		Where("user_id = ?", userID).
		Order("redeemed_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&redemptions).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return redemptions, nil
}

func (r *ledgerRepository) ListRedemptions(ctx context.Context, limit, offset int) ([]models.ItemRedemption, error) {
	var redemptions []models.ItemRedemption
	err := r.db.WithContext(ctx).
		Preload("Item").
		Preload("User").
		Order("redeemed_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&redemptions).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return redemptions, nil
}

package repository

import (
	"context"
	"strconv"

	"greenloop/internal/cache"
	"greenloop/internal/models"

	"gorm.io/gorm"
)

// SettingRepository stores tunable reward parameters as (kind, key) rows.
type SettingRepository interface {
	Snapshot(ctx context.Context) (*models.RewardSnapshot, error)
	List(ctx context.Context, kind models.SettingKind) ([]models.RewardSetting, error)
	Upsert(ctx context.Context, setting *models.RewardSetting) error
	Delete(ctx context.Context, kind models.SettingKind, key string) error
}

type settingRepository struct {
	db *gorm.DB
}

// NewSettingRepository returns a SettingRepository implementation.
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

// Snapshot assembles all reward settings into an immutable view. The result
// is cached briefly; writers invalidate on every change.
func (r *settingRepository) Snapshot(ctx context.Context) (*models.RewardSnapshot, error) {
	snapshot := &models.RewardSnapshot{}
	err := cache.Aside(ctx, cache.SettingsKey("snapshot"), snapshot, cache.SettingsTTL, func() error {
		var rows []models.RewardSetting
		if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
			return models.NewInternalError(err)
		}

		snapshot.GiftPrices = make(map[string]int64)
		snapshot.StreakMilestones = make(map[string]int64)
		snapshot.ActionRewards = make(map[string]int64)
		for _, row := range rows {
			switch row.Kind {
			case models.SettingGiftPrice:
				snapshot.GiftPrices[row.Key] = row.Value
			case models.SettingStreakMilestone:
				snapshot.StreakMilestones[row.Key] = row.Value
			case models.SettingActionReward:
				snapshot.ActionRewards[row.Key] = row.Value
			case models.SettingDefaultReward:
				snapshot.DefaultReward = row.Value
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (r *settingRepository) List(ctx context.Context, kind models.SettingKind) ([]models.RewardSetting, error) {
	var rows []models.RewardSetting
	q := r.db.WithContext(ctx)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if err := q.Order("kind ASC, key ASC").Find(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

func (r *settingRepository) Upsert(ctx context.Context, setting *models.RewardSetting) error {
	err := r.db.WithContext(ctx).Exec(
		`INSERT INTO reward_settings (kind, key, value, updated_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, NOW(), NOW())
		 ON CONFLICT (kind, key)
		 DO UPDATE SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = NOW()`,
		setting.Kind, setting.Key, setting.Value, setting.UpdatedBy,
	).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateSettings(ctx, "snapshot")
	return nil
}

func (r *settingRepository) Delete(ctx context.Context, kind models.SettingKind, key string) error {
	res := r.db.WithContext(ctx).Where("kind = ? AND key = ?", kind, key).Delete(&models.RewardSetting{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Setting", string(kind)+"/"+key)
	}
	cache.InvalidateSettings(ctx, "snapshot")
	return nil
}

// MilestoneBonus resolves the streak bonus for a streak of length days, if a
// milestone setting exists for exactly that length.
func MilestoneBonus(snapshot *models.RewardSnapshot, days int) (int64, bool) {
	v, ok := snapshot.StreakMilestones[strconv.Itoa(days)]
	return v, ok
}

package service

import (
	"context"
	"strconv"

	"greenloop/internal/models"
	"greenloop/internal/repository"
)

// SettingsService manages the tunable reward parameters. Every change goes
// through validation specific to the setting kind, so the snapshot the rest
// of the system reads is always well-formed.
type SettingsService struct {
	settingRepo repository.SettingRepository
	itemRepo    repository.ItemRepository
}

type UpdateSettingInput struct {
	ActorID uint
	Kind    models.SettingKind
	Key     string
	Value   int64
}

func NewSettingsService(settingRepo repository.SettingRepository, itemRepo repository.ItemRepository) *SettingsService {
	return &SettingsService{settingRepo: settingRepo, itemRepo: itemRepo}
}

func (s *SettingsService) Snapshot(ctx context.Context) (*models.RewardSnapshot, error) {
	return s.settingRepo.Snapshot(ctx)
}

func (s *SettingsService) List(ctx context.Context, kind models.SettingKind) ([]models.RewardSetting, error) {
	if kind != "" && !validSettingKind(kind) {
		return nil, models.NewValidationError("Unknown setting kind")
	}
	return s.settingRepo.List(ctx, kind)
}

// UpdateSetting upserts one reward parameter. Key semantics depend on kind:
// an item id for gift_price, a streak length for streak_milestone, a ledger
// reason code for action_reward, and the literal "default" for default_reward.
func (s *SettingsService) UpdateSetting(ctx context.Context, in UpdateSettingInput) (*models.RewardSetting, error) {
	if err := s.validateSetting(ctx, in); err != nil {
		return nil, err
	}

	setting := &models.RewardSetting{
		Kind:      in.Kind,
		Key:       in.Key,
		Value:     in.Value,
		UpdatedBy: &in.ActorID,
	}
	if err := s.settingRepo.Upsert(ctx, setting); err != nil {
		return nil, err
	}
	return setting, nil
}

// DeleteSetting removes an override. The default reward cannot be deleted,
// only changed, so reward resolution always has a fallback.
func (s *SettingsService) DeleteSetting(ctx context.Context, kind models.SettingKind, key string) error {
	if !validSettingKind(kind) {
		return models.NewValidationError("Unknown setting kind")
	}
	if kind == models.SettingDefaultReward {
		return models.NewValidationError("The default reward cannot be deleted")
	}
	return s.settingRepo.Delete(ctx, kind, key)
}

func (s *SettingsService) validateSetting(ctx context.Context, in UpdateSettingInput) error {
	if in.Value < 0 {
		return models.NewValidationError("Setting value cannot be negative")
	}

	switch in.Kind {
	case models.SettingGiftPrice:
		itemID, err := strconv.ParseUint(in.Key, 10, 32)
		if err != nil || itemID == 0 {
			return models.NewValidationError("Gift price key must be an item id")
		}
		if in.Value <= 0 {
			return models.NewValidationError("Gift price must be positive")
		}
		if _, err := s.itemRepo.GetByID(ctx, uint(itemID)); err != nil {
			return err
		}
	case models.SettingStreakMilestone:
		days, err := strconv.Atoi(in.Key)
		if err != nil || days <= 0 {
			return models.NewValidationError("Streak milestone key must be a positive number of days")
		}
	case models.SettingActionReward:
		switch in.Key {
		case models.ReasonPostApproved, models.ReasonSignupBonus:
		default:
			return models.NewValidationError("Action reward key must be a rewardable action")
		}
	case models.SettingDefaultReward:
		if in.Key != "default" {
			return models.NewValidationError(`Default reward key must be "default"`)
		}
	default:
		return models.NewValidationError("Unknown setting kind")
	}
	return nil
}

func validSettingKind(kind models.SettingKind) bool {
	switch kind {
	case models.SettingGiftPrice, models.SettingStreakMilestone, models.SettingActionReward, models.SettingDefaultReward:
		return true
	}
	return false
}

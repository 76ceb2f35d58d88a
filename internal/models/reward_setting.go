package models

import "time"

// Reward setting kinds. Settings are rows keyed (kind, key) rather than a
// mutable in-process singleton, so updates are transactional.
type SettingKind string

const (
	SettingGiftPrice       SettingKind = "gift_price"
	SettingStreakMilestone SettingKind = "streak_milestone"
	SettingActionReward    SettingKind = "action_reward"
	SettingDefaultReward   SettingKind = "default_reward"
)

// RewardSetting is one tunable reward parameter.
//   - gift_price: Key is an item id, Value its token price override
//   - streak_milestone: Key is a streak length in days, Value the bonus
//   - action_reward: Key is a ledger reason code, Value the points awarded
//   - default_reward: Key is "default", Value the fallback action reward
type RewardSetting struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	Kind      SettingKind `gorm:"type:varchar(24);not null;uniqueIndex:idx_setting_kind_key" json:"kind"`
	Key       string      `gorm:"size:64;not null;uniqueIndex:idx_setting_kind_key" json:"key"`
	Value     int64       `gorm:"not null" json:"value"`
	UpdatedBy *uint       `json:"updated_by,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RewardSnapshot is an immutable assembled view of all reward settings,
// returned by reads so callers never share mutable state.
type RewardSnapshot struct {
	GiftPrices       map[string]int64 `json:"gift_prices"`
	StreakMilestones map[string]int64 `json:"streak_milestones"`
	ActionRewards    map[string]int64 `json:"action_rewards"`
	DefaultReward    int64            `json:"default_reward"`
}

// ActionReward resolves the reward for a reason code, falling back to the
// default reward when no explicit setting exists.
func (s *RewardSnapshot) ActionReward(reason string) int64 {
	if v, ok := s.ActionRewards[reason]; ok {
		return v
	}
	return s.DefaultReward
}

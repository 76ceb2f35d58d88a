package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix     = "user:%d"
	PostKeyPrefix     = "post:%d"
	BalanceKeyPrefix  = "balance:%d"
	ItemKeyPrefix     = "item:%d"
	SettingsKeyPrefix = "settings:%s"
)

const (
	UserTTL     = 5 * time.Minute
	PostTTL     = 30 * time.Minute
	BalanceTTL  = 10 * time.Minute
	ItemTTL     = 10 * time.Minute
	SettingsTTL = time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func BalanceKey(userID uint) string {
	return fmt.Sprintf(BalanceKeyPrefix, userID)
}

func ItemKey(itemID uint) string {
	return fmt.Sprintf(ItemKeyPrefix, itemID)
}

func SettingsKey(kind string) string {
	return fmt.Sprintf(SettingsKeyPrefix, kind)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidateBalance must run after every ledger append so the cached
// balance never lags a committed entry.
func InvalidateBalance(ctx context.Context, userID uint) {
	Invalidate(ctx, BalanceKey(userID))
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}

func InvalidateItem(ctx context.Context, itemID uint) {
	Invalidate(ctx, ItemKey(itemID))
}

func InvalidateSettings(ctx context.Context, kind string) {
	Invalidate(ctx, SettingsKey(kind))
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Item is a redeemable catalog entry priced in tokens.
type Item struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	ImageURL    string         `json:"image_url"`
	Price       int64          `gorm:"not null" json:"price"`
	Stock       int            `gorm:"not null;default:0" json:"stock"`
	Active      bool           `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Available reports whether the item can currently be redeemed.
func (i *Item) Available() bool {
	return i.Active && i.Stock > 0
}

// ItemRedemption is an append-only record of a user redeeming an item.
// Rows are never updated or deleted; redemption counts are derived by replay.
type ItemRedemption struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	ItemID      uint      `gorm:"not null;index" json:"item_id"`
	PointsSpent int64     `gorm:"not null" json:"points_spent"`
	RedeemedAt  time.Time `gorm:"autoCreateTime;index" json:"redeemed_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"user"`
	Item Item `gorm:"foreignKey:ItemID;constraint:OnDelete:RESTRICT" json:"item"`
}

// TableName returns the database table name for ItemRedemption.
func (ItemRedemption) TableName() string {
	return "item_redemptions"
}

package models

import "time"

// Ledger reason codes. Each PointEntry carries one so balances and awards can
// be audited by replaying the ledger.
const (
	ReasonSignupBonus  = "signup_bonus"
	ReasonPostApproved = "post_approved"
	ReasonStreakBonus  = "streak_bonus"
	ReasonRedemption   = "redemption"
	ReasonAdminGrant   = "admin_grant"
	ReasonAdminDeduct  = "admin_deduct"
)

// PointEntry is one row of the append-only point ledger. A user's balance is
// the fold of Delta over their entries; no mutable balance field exists
// anywhere that could drift from the ledger.
type PointEntry struct {
	ID      uint  `gorm:"primaryKey" json:"id"`
	UserID  uint  `gorm:"not null;index:idx_point_entries_user_time,priority:1" json:"user_id"`
	ActorID *uint `gorm:"index" json:"actor_id,omitempty"`
	Delta   int64 `gorm:"not null" json:"delta"`
	// Reason is one of the Reason* codes above.
	Reason string `gorm:"size:32;not null" json:"reason"`
	// ReferenceID optionally points at the post or item that produced the entry.
	ReferenceID *uint     `json:"reference_id,omitempty"`
	CreatedAt   time.Time `gorm:"index:idx_point_entries_user_time,priority:2" json:"created_at"`

	User  User  `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"-"`
	Actor *User `gorm:"foreignKey:ActorID;constraint:OnDelete:SET NULL" json:"actor,omitempty"`
}

// TableName returns the database table name for PointEntry.
func (PointEntry) TableName() string {
	return "point_entries"
}

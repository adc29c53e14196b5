package models

import (
	"gorm.io/gorm"
)

// Subscription tiers. The tier drives the daily quiz-attempt quota.
const (
	TierFree       = "FREE"
	TierPro        = "PRO"
	TierEnterprise = "ENTERPRISE"
)

type User struct {
	gorm.Model
	Username     string `gorm:"unique;not null"`
	Email        string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null"`
	Tier         string `gorm:"default:FREE"` // FREE, PRO, ENTERPRISE
}

// UserTotals is the reward ledger: XP and gems only ever grow, and the
// level is derived from cumulative XP. One row per user.
type UserTotals struct {
	gorm.Model
	UserID uint `gorm:"uniqueIndex;not null"`
	XP     int  `gorm:"default:0"`
	Gems   int  `gorm:"default:0"`
	Level  int  `gorm:"default:1"`
}

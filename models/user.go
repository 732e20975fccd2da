package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the learner aggregate: identity plus progression state. Passwords
// are stored as bcrypt hashes only.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"size:64;not null;uniqueIndex" json:"username"`
	DisplayName  string `gorm:"size:128" json:"displayName"`
	PasswordHash string `gorm:"size:255" json:"-"`
	// TotalXP only grows, and only through XP awards.
	TotalXP int64 `gorm:"not null;default:0;index" json:"totalXP"`
	// Level is a persisted marker of the last level reached; the live value is
	// always derived from TotalXP.
	Level         int        `gorm:"not null;default:1" json:"level"`
	StreakCount   int        `gorm:"not null;default:0" json:"streak"`
	LongestStreak int        `gorm:"not null;default:0" json:"longestStreak"`
	LastCheckIn   *time.Time `json:"lastCheckIn"`
	// ProgressVersion is bumped on every progression write and guards
	// conditional updates.
	ProgressVersion int64          `gorm:"not null;default:0" json:"-"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.Level < 1 {
		u.Level = 1
	}
	return nil
}

package models

import "time"

// CheckIn stores one successful daily check-in.
type CheckIn struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"userId"`
	CheckedInAt time.Time `gorm:"index;not null" json:"checkedInAt"`
	Streak      int       `json:"streak"`
	XPAwarded   int64     `json:"xpAwarded"`
	CreatedAt   time.Time `json:"createdAt"`
}

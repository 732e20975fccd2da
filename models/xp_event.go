package models

import "time"

// XP event sources.
const (
	XPSourceAward   = "award"
	XPSourceCheckIn = "checkin"
	XPSourceQuest   = "quest"
)

// XPEvent is the audit trail of a single XP award.
type XPEvent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"index;not null" json:"userId"`
	Amount     int64     `gorm:"not null" json:"amount"`
	Source     string    `gorm:"size:16;not null" json:"source"`
	Reason     string    `gorm:"size:255" json:"reason"`
	TotalAfter int64     `json:"totalAfter"`
	LevelAfter int       `json:"levelAfter"`
	CreatedAt  time.Time `json:"createdAt"`
}

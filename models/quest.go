package models

import "time"

// Quest is an editing task that grants XP once per user.
type Quest struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Slug        string    `gorm:"size:64;not null;uniqueIndex" json:"slug"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	XPReward    int64     `gorm:"not null;default:0" json:"xpReward"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// QuestCompletion records that a user finished a quest.
type QuestCompletion struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_quest_completion_user_quest" json:"userId"`
	QuestID     uint      `gorm:"not null;uniqueIndex:idx_quest_completion_user_quest" json:"questId"`
	XPAwarded   int64     `json:"xpAwarded"`
	CompletedAt time.Time `gorm:"not null" json:"completedAt"`
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wikiquest/wikiquest/models"
	"github.com/wikiquest/wikiquest/progression"
	"github.com/wikiquest/wikiquest/utils"
)

// DefaultQuests are created on startup when missing.
var DefaultQuests = []models.Quest{
	{Slug: "first-edit", Title: "Make your first edit", Description: "Fix a typo or improve a sentence in any article.", XPReward: 50, Active: true},
	{Slug: "add-citation", Title: "Add a citation", Description: "Back an unsourced claim with a reliable reference.", XPReward: 100, Active: true},
	{Slug: "create-stub", Title: "Expand a stub", Description: "Add at least one referenced paragraph to a stub article.", XPReward: 250, Active: true},
	{Slug: "welcome-newcomer", Title: "Welcome a newcomer", Description: "Leave a welcome message on a new editor's talk page.", XPReward: 25, Active: true},
}

// QuestView is a quest as seen by one user.
type QuestView struct {
	models.Quest
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// EnsureQuests inserts any quest whose slug is not present yet.
func (s *ProgressionService) EnsureQuests(ctx context.Context, quests []models.Quest) error {
	for _, q := range quests {
		q := q
		if err := s.db.WithContext(ctx).Where(models.Quest{Slug: q.Slug}).FirstOrCreate(&q).Error; err != nil {
			return fmt.Errorf("seed quest %s: %w", q.Slug, err)
		}
	}
	return nil
}

// ListQuests returns active quests with the user's completion state.
func (s *ProgressionService) ListQuests(ctx context.Context, userID uint) ([]QuestView, error) {
	var quests []models.Quest
	if err := s.db.WithContext(ctx).Where("active = ?", true).Order("id ASC").Find(&quests).Error; err != nil {
		return nil, err
	}

	var done []models.QuestCompletion
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&done).Error; err != nil {
		return nil, err
	}
	completed := make(map[uint]time.Time, len(done))
	for _, c := range done {
		completed[c.QuestID] = c.CompletedAt
	}

	views := make([]QuestView, 0, len(quests))
	for _, q := range quests {
		v := QuestView{Quest: q}
		if at, ok := completed[q.ID]; ok {
			at := at
			v.Completed = true
			v.CompletedAt = &at
		}
		views = append(views, v)
	}
	return views, nil
}

// CompleteQuest awards a quest's XP. Each quest pays out once per user.
func (s *ProgressionService) CompleteQuest(ctx context.Context, userID, questID uint) (*AwardResult, error) {
	var quest models.Quest
	if err := s.db.WithContext(ctx).Where("id = ? AND active = ?", questID, true).First(&quest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestNotFound
		}
		return nil, err
	}
	reward, err := progression.ParseXP(quest.XPReward)
	if err != nil {
		return nil, fmt.Errorf("quest %s: %w", quest.Slug, err)
	}

	var result AwardResult
	err = s.mutate(ctx, userID, func(tx *gorm.DB, u *models.User) error {
		var count int64
		if err := tx.Model(&models.QuestCompletion{}).
			Where("user_id = ? AND quest_id = ?", u.ID, quest.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrQuestAlreadyCompleted
		}

		completion := models.QuestCompletion{
			UserID:      u.ID,
			QuestID:     quest.ID,
			XPAwarded:   int64(reward),
			CompletedAt: s.now().UTC(),
		}
		if err := tx.Create(&completion).Error; err != nil {
			return err
		}

		award, err := s.applyAward(tx, u, reward, models.XPSourceQuest, "quest: "+quest.Slug)
		if err != nil {
			return err
		}
		result = AwardResult{
			XPAwarded: int64(award.Delta),
			TotalXP:   int64(award.NewTotal),
			OldLevel:  award.OldLevel,
			NewLevel:  award.NewLevel,
			LeveledUp: award.LeveledUp,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.Logger.Info("quest completed",
		zap.Uint("user_id", userID),
		zap.String("quest", quest.Slug),
		zap.Int64("xp_awarded", result.XPAwarded),
	)
	return &result, nil
}

package services

import (
	"context"

	"github.com/wikiquest/wikiquest/models"
)

// LeaderboardEntry is one ranked row of the public leaderboard.
type LeaderboardEntry struct {
	Rank         int    `json:"rank"`
	UserID       uint   `json:"userId"`
	Username     string `json:"username"`
	DisplayName  string `json:"displayName"`
	TotalXP      int64  `json:"totalXP"`
	CurrentLevel int    `json:"currentLevel"`
	Streak       int    `json:"streak"`
}

// leaderboardKey holds the full-size board; smaller limits are served as a
// prefix of it.
const leaderboardKey = "cache:leaderboard:top"

// Leaderboard returns the top users by total XP. XP changes made through the
// service invalidate the cached board; other writes show up after the TTL or
// the next refresh.
func (s *ProgressionService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > s.leaderboardSize {
		limit = s.leaderboardSize
	}

	var entries []LeaderboardEntry
	if !s.cache.GetJSON(ctx, leaderboardKey, &entries) {
		var err error
		if entries, err = s.refreshLeaderboard(ctx); err != nil {
			return nil, err
		}
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// RefreshLeaderboard recomputes the leaderboard into the cache.
func (s *ProgressionService) RefreshLeaderboard(ctx context.Context) error {
	_, err := s.refreshLeaderboard(ctx)
	return err
}

func (s *ProgressionService) refreshLeaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).
		Select("id", "username", "display_name", "total_xp", "streak_count", "last_check_in").
		Order("total_xp DESC, id ASC").
		Limit(s.leaderboardSize).
		Find(&users).Error; err != nil {
		return nil, err
	}

	now := s.now()
	entries := make([]LeaderboardEntry, 0, len(users))
	for i, u := range users {
		streak := u.StreakCount
		if !s.streaks.IsActive(u.LastCheckIn, now) {
			streak = 0
		}
		entries = append(entries, LeaderboardEntry{
			Rank:         i + 1,
			UserID:       u.ID,
			Username:     u.Username,
			DisplayName:  u.DisplayName,
			TotalXP:      u.TotalXP,
			CurrentLevel: s.levels.LevelForXP(xpOf(&u)),
			Streak:       streak,
		})
	}
	s.cache.SetJSON(ctx, leaderboardKey, entries, s.leaderboardTTL)
	return entries, nil
}

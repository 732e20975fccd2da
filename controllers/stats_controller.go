package controllers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/wikiquest/wikiquest/models"
	"github.com/wikiquest/wikiquest/services"
	"github.com/wikiquest/wikiquest/utils"
)

// StatsController provides the leaderboard and site-wide counters.
type StatsController struct {
	db       *gorm.DB
	progress *services.ProgressionService
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB, progress *services.ProgressionService) *StatsController {
	return &StatsController{db: db, progress: progress}
}

// GetLeaderboard returns the top users by total XP.
func (s *StatsController) GetLeaderboard(ctx *gin.Context) {
	limit := 0
	if v := strings.TrimSpace(ctx.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	items, err := s.progress.Leaderboard(ctx.Request.Context(), limit)
	if err != nil {
		respondProgressError(ctx, err, 50050, "failed to load leaderboard")
		return
	}
	utils.Success(ctx, gin.H{"items": items})
}

// GetStats returns aggregate counters for the current calendar day.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var userCount int64
	var checkInsToday int64
	var xpToday int64

	if err := s.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		userCount = 0
	}

	// Day bounds follow the streak timezone; audit rows are stored in UTC.
	loc := s.progress.Streaks().Location()
	now := s.progress.Now().In(loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1).UTC()
	dayStart = dayStart.UTC()

	if err := s.db.Model(&models.CheckIn{}).
		Where("checked_in_at >= ? AND checked_in_at < ?", dayStart, dayEnd).
		Count(&checkInsToday).Error; err != nil {
		checkInsToday = 0
	}

	if err := s.db.Model(&models.XPEvent{}).
		Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
		Select("COALESCE(SUM(amount),0)").
		Scan(&xpToday).Error; err != nil {
		xpToday = 0
	}

	utils.Success(ctx, gin.H{
		"userCount":      userCount,
		"checkInsToday":  checkInsToday,
		"xpAwardedToday": xpToday,
	})
}

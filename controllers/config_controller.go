package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/wikiquest/wikiquest/services"
	"github.com/wikiquest/wikiquest/utils"
)

// ConfigController serves the active progression rules.
type ConfigController struct {
	progress *services.ProgressionService
}

func NewConfigController(progress *services.ProgressionService) *ConfigController {
	return &ConfigController{progress: progress}
}

// GetLevels returns the level thresholds and check-in reward rules.
func (c *ConfigController) GetLevels(ctx *gin.Context) {
	levels := c.progress.Levels()
	streaks := c.progress.Streaks()

	milestones := make([]gin.H, 0, len(streaks.Milestones()))
	for _, m := range streaks.Milestones() {
		milestones = append(milestones, gin.H{"period": m.Period, "bonusXP": int64(m.Bonus)})
	}

	utils.Success(ctx, gin.H{
		"thresholds":    levels.Table().Values(),
		"maxLevel":      levels.MaxLevel(),
		"baseCheckInXP": int64(streaks.BaseXP()),
		"milestones":    milestones,
		"timezone":      streaks.Location().String(),
	})
}

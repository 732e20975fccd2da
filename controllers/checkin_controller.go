package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wikiquest/wikiquest/services"
	"github.com/wikiquest/wikiquest/utils"
)

// CheckInController handles daily check-in endpoints.
type CheckInController struct {
	progress *services.ProgressionService
}

func NewCheckInController(progress *services.ProgressionService) *CheckInController {
	return &CheckInController{progress: progress}
}

// DailyCheckIn records today's check-in. A repeat on the same day answers
// 200 with alreadyCheckedIn set.
func (c *CheckInController) DailyCheckIn(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	result, err := c.progress.CheckIn(ctx.Request.Context(), userID)
	if err != nil {
		respondProgressError(ctx, err, 50030, "failed to record check-in")
		return
	}
	if result.AlreadyCheckedIn {
		utils.Info(ctx, 0, "already checked in today", result)
		return
	}
	utils.Success(ctx, result)
}

// CheckInStatus returns the streak and last check-in time.
func (c *CheckInController) CheckInStatus(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	status, err := c.progress.StreakStatus(ctx.Request.Context(), userID)
	if err != nil {
		respondProgressError(ctx, err, 50031, "failed to load streak")
		return
	}
	utils.Success(ctx, status)
}

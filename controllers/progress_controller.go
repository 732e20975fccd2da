package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wikiquest/wikiquest/progression"
	"github.com/wikiquest/wikiquest/services"
	"github.com/wikiquest/wikiquest/utils"
)

// ProgressController exposes level progress and XP awards.
type ProgressController struct {
	progress *services.ProgressionService
}

func NewProgressController(progress *services.ProgressionService) *ProgressController {
	return &ProgressController{progress: progress}
}

// GetLevel returns the caller's live level information.
func (p *ProgressController) GetLevel(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	info, err := p.progress.LevelInfo(ctx.Request.Context(), userID)
	if err != nil {
		respondProgressError(ctx, err, 50010, "failed to load level")
		return
	}
	utils.Success(ctx, info)
}

// GetStats returns level information together with streak status.
func (p *ProgressController) GetStats(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	stats, err := p.progress.Stats(ctx.Request.Context(), userID)
	if err != nil {
		respondProgressError(ctx, err, 50011, "failed to load stats")
		return
	}
	utils.Success(ctx, stats)
}

// AwardXP grants XP to the caller, optionally counting it as the day's check-in.
func (p *ProgressController) AwardXP(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		XP           *float64 `json:"xp" binding:"required"`
		Reason       string   `json:"reason"`
		UpdateStreak bool     `json:"updateStreak"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}

	delta, err := progression.ParseXPNumber(*req.XP)
	if err != nil {
		switch {
		case errors.Is(err, progression.ErrNegativeXP):
			utils.Error(ctx, http.StatusBadRequest, 40011, "xp must not be negative")
		case errors.Is(err, progression.ErrNonIntegerXP):
			utils.Error(ctx, http.StatusBadRequest, 40011, "xp must be a whole number")
		default:
			utils.Error(ctx, http.StatusBadRequest, 40011, err.Error())
		}
		return
	}

	reason := utils.PlainText(req.Reason, 255)
	if reason == "" {
		reason = "xp award"
	}

	result, err := p.progress.AwardXP(ctx.Request.Context(), userID, delta, reason, req.UpdateStreak)
	if err != nil {
		respondProgressError(ctx, err, 50012, "failed to award xp")
		return
	}
	utils.Success(ctx, result)
}

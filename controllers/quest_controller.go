package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wikiquest/wikiquest/services"
	"github.com/wikiquest/wikiquest/utils"
)

// QuestController lists quests and records completions.
type QuestController struct {
	progress *services.ProgressionService
}

func NewQuestController(progress *services.ProgressionService) *QuestController {
	return &QuestController{progress: progress}
}

func (q *QuestController) ListQuests(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	items, err := q.progress.ListQuests(ctx.Request.Context(), userID)
	if err != nil {
		respondProgressError(ctx, err, 50040, "failed to list quests")
		return
	}
	utils.Success(ctx, gin.H{"items": items})
}

// CompleteQuest awards the quest's XP once per user.
func (q *QuestController) CompleteQuest(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	questID, ok := parseIDParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid quest id")
		return
	}

	result, err := q.progress.CompleteQuest(ctx.Request.Context(), userID, questID)
	if err != nil {
		respondProgressError(ctx, err, 50041, "failed to complete quest")
		return
	}
	utils.Success(ctx, result)
}

package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wikiquest/wikiquest/middleware"
	"github.com/wikiquest/wikiquest/progression"
	"github.com/wikiquest/wikiquest/services"
	"github.com/wikiquest/wikiquest/utils"
)

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

func parseIDParam(ctx *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// respondProgressError maps service errors onto the JSON envelope. Unknown
// errors are logged and reported with the caller's 500 code.
func respondProgressError(ctx *gin.Context, err error, code int, message string) {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
	case errors.Is(err, services.ErrQuestNotFound):
		utils.Error(ctx, http.StatusNotFound, 40420, "quest not found")
	case errors.Is(err, services.ErrQuestAlreadyCompleted):
		utils.Error(ctx, http.StatusConflict, 40920, "quest already completed")
	case errors.Is(err, services.ErrConcurrentUpdate), errors.Is(err, services.ErrLockTimeout):
		utils.Error(ctx, http.StatusConflict, 40930, "progress is being updated, please retry")
	case errors.Is(err, services.ErrAwardTooLarge):
		utils.Error(ctx, http.StatusBadRequest, 40012, err.Error())
	case errors.Is(err, progression.ErrNegativeXP):
		utils.Error(ctx, http.StatusBadRequest, 40011, "xp must not be negative")
	case errors.Is(err, progression.ErrXPOverflow):
		utils.Error(ctx, http.StatusBadRequest, 40013, "xp total would overflow")
	default:
		utils.Logger.Error(message, zap.Error(err), zap.String("path", ctx.FullPath()))
		utils.Error(ctx, http.StatusInternalServerError, code, message)
	}
}

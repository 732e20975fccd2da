package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/wikiquest/wikiquest/middleware"
	"github.com/wikiquest/wikiquest/models"
	"github.com/wikiquest/wikiquest/services"
	"github.com/wikiquest/wikiquest/utils"
)

// AuthController handles local account registration and JWT sessions.
type AuthController struct {
	db       *gorm.DB
	progress *services.ProgressionService
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB, progress *services.ProgressionService) *AuthController {
	return &AuthController{db: db, progress: progress}
}

// Register creates a local account with a bcrypt password hash and returns a token.
func (a *AuthController) Register(ctx *gin.Context) {
	type request struct {
		Username    string `json:"username" binding:"required"`
		Password    string `json:"password" binding:"required"`
		DisplayName string `json:"displayName"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if l := len([]rune(req.Username)); l < 3 || l > 32 || !validUsername(req.Username) {
		utils.Error(ctx, http.StatusBadRequest, 40002, "username must be 3-32 letters, digits, '-' or '_'")
		return
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, err.Error())
		return
	}

	var count int64
	if err := a.db.Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to check username")
		return
	}
	if count > 0 {
		utils.Error(ctx, http.StatusConflict, 40901, "username already exists")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to hash password")
		return
	}

	displayName := utils.PlainText(req.DisplayName, 64)
	if displayName == "" {
		displayName = req.Username
	}

	user := models.User{
		Username:     req.Username,
		DisplayName:  displayName,
		PasswordHash: hash,
	}
	if err := a.db.Create(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to create user")
		return
	}

	token, expiresAt, err := utils.GenerateToken(user.ID, user.Username)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Created(ctx, gin.H{
		"token":     token,
		"expiresAt": expiresAt,
		"user":      userResponse(user),
	})
}

// Login verifies credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to load user")
			return
		}
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	token, expiresAt, err := utils.GenerateToken(user.ID, user.Username)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{
		"token":     token,
		"expiresAt": expiresAt,
		"user":      userResponse(user),
	})
}

// Logout revokes the bearer token until it would have expired.
func (a *AuthController) Logout(ctx *gin.Context) {
	token, err := middleware.BearerToken(ctx)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40107, err.Error())
		return
	}

	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	expiresAt := time.Now().Add(72 * time.Hour)
	if claims.RegisteredClaims.ExpiresAt != nil {
		expiresAt = claims.RegisteredClaims.ExpiresAt.Time
	}

	utils.RevokeToken(ctx.Request.Context(), token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated user with live level information.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to load user")
		return
	}

	resp := userResponse(user)
	info, err := a.progress.LevelInfo(ctx.Request.Context(), user.ID)
	if err != nil {
		respondProgressError(ctx, err, 50007, "failed to compute level")
		return
	}
	resp["level"] = info
	utils.Success(ctx, resp)
}

func validUsername(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

func userResponse(user models.User) gin.H {
	return gin.H{
		"id":            user.ID,
		"username":      user.Username,
		"displayName":   user.DisplayName,
		"totalXP":       user.TotalXP,
		"streak":        user.StreakCount,
		"longestStreak": user.LongestStreak,
		"lastCheckIn":   user.LastCheckIn,
		"createdAt":     user.CreatedAt,
	}
}

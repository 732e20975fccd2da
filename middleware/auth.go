package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wikiquest/wikiquest/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
)

var (
	errMissingAuthHeader = errors.New("authorization header missing")
	errBadAuthHeader     = errors.New("invalid authorization header format")
	errEmptyBearerToken  = errors.New("empty bearer token")
)

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(ctx *gin.Context) (string, error) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return "", errMissingAuthHeader
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errBadAuthHeader
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errEmptyBearerToken
	}
	return token, nil
}

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, err := BearerToken(ctx)
		if err != nil {
			code := 40102
			switch {
			case errors.Is(err, errMissingAuthHeader):
				code = 40101
			case errors.Is(err, errEmptyBearerToken):
				code = 40103
			}
			utils.Error(ctx, http.StatusUnauthorized, code, err.Error())
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			ctx.Abort()
			return
		}

		if utils.IsTokenRevoked(ctx.Request.Context(), tokenString) {
			utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Next()
	}
}

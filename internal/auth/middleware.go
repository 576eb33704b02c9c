package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserIDKey - ключ, под которым ID пользователя кладется в контекст gin.
const UserIDKey = "user_id"

// Middleware проверяет Bearer токен и кладет user_id в контекст запроса.
func Middleware(tokens *TokenManager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "отсутствует заголовок Authorization"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "некорректный формат заголовка Authorization"})
			return
		}

		claims, err := tokens.ValidateToken(parts[1])
		if err != nil {
			logger.Debug("Token validation failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "невалидный токен"})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/annel0/fractal-terrain/internal/auth"
	"github.com/gin-gonic/gin"
)

// ClaimsKey ключ gin.Context с проверенными claims
const ClaimsKey = "claims"

// RequireJWT пропускает только запросы с валидным Bearer токеном.
// adminOnly дополнительно требует is_admin в claims.
func RequireJWT(m *auth.Manager, adminOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := m.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if adminOnly && !claims.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin rights required"})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// Subject возвращает subject токена из контекста или пустую строку
func Subject(c *gin.Context) string {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims.Subject
		}
	}
	return ""
}

package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vpetrenko/courtbooking/internal/auth"
	"github.com/vpetrenko/courtbooking/internal/domain"
)

const (
	ctxActorID = "actor_id"
	ctxRole    = "actor_role"
)

func Authenticated(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := tokens.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxActorID, claims.Sub)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if role, _ := c.Get(ctxRole); role != domain.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "administrator role required"})
			return
		}
		c.Next()
	}
}

func actorID(c *gin.Context) string {
	return c.GetString(ctxActorID)
}
